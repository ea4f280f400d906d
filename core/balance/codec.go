// Package balance encodes and interprets confidential balances. Ledger slots
// hold twisted ElGamal ciphertexts, which add homomorphically; the
// decryptable available balance is a symmetric ciphertext that only the
// owner can open.
package balance

import (
	"errors"
	"fmt"

	"github.com/tos-network/ctoken/crypto/aekey"
	"github.com/tos-network/ctoken/crypto/elgamal"
	"github.com/tos-network/ctoken/params"
)

// ErrDecode indicates a ciphertext that cannot be interpreted with the given
// key: wrong key, corrupted bytes, or a value outside the decryptable range.
var ErrDecode = errors.New("balance: decode failed")

// ErrEncode indicates an amount that could not be encrypted.
var ErrEncode = errors.New("balance: encode failed")

// Encrypt encrypts amount under pub.
func Encrypt(pub elgamal.PublicKey, amount uint64) (elgamal.Ciphertext, error) {
	ct, _, err := elgamal.Encrypt(pub, amount)
	if err != nil {
		return elgamal.Ciphertext{}, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return ct, nil
}

// Decrypt recovers a value up to params.MaxDecryptableAmount.
func Decrypt(kp *elgamal.Keypair, ct elgamal.Ciphertext) (uint64, error) {
	return DecryptBounded(kp, ct, params.MaxDecryptableAmount)
}

// DecryptBounded recovers a value up to max.
func DecryptBounded(kp *elgamal.Keypair, ct elgamal.Ciphertext, max uint64) (uint64, error) {
	if kp == nil {
		return 0, fmt.Errorf("%w: no key", ErrDecode)
	}
	v, err := kp.Decrypt(ct, max)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return v, nil
}

// Combine adds two encrypted balances.
func Combine(a, b elgamal.Ciphertext) (elgamal.Ciphertext, error) {
	sum, err := a.Add(b)
	if err != nil {
		return elgamal.Ciphertext{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return sum, nil
}

// PendingHi decrypts the high half of a pending balance, which may grow
// past 32 bits as credits accumulate.
func PendingHi(kp *elgamal.Keypair, hi elgamal.Ciphertext) (uint64, error) {
	return DecryptBounded(kp, hi, params.MaxPendingBalanceHi)
}

// PendingTotal decrypts a pending balance kept as lo and hi halves and
// returns lo + hi<<16.
func PendingTotal(kp *elgamal.Keypair, lo, hi elgamal.Ciphertext) (uint64, error) {
	l, err := Decrypt(kp, lo)
	if err != nil {
		return 0, err
	}
	h, err := PendingHi(kp, hi)
	if err != nil {
		return 0, err
	}
	return l + h<<params.PendingBalanceLoBits, nil
}

// Seal encrypts amount for the owner under the symmetric key.
func Seal(key *aekey.Key, amount uint64) (aekey.Ciphertext, error) {
	if key == nil {
		return aekey.Ciphertext{}, fmt.Errorf("%w: no key", ErrEncode)
	}
	ct, err := key.Encrypt(amount)
	if err != nil {
		return aekey.Ciphertext{}, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return ct, nil
}

// Open decrypts a symmetric balance ciphertext.
func Open(key *aekey.Key, ct aekey.Ciphertext) (uint64, error) {
	if key == nil {
		return 0, fmt.Errorf("%w: no key", ErrDecode)
	}
	v, err := key.Decrypt(ct)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return v, nil
}
