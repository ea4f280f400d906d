// Package keymaterial derives the encryption keys of a confidential account
// from its controller's signature. Nothing here is persisted: the keys are
// recomputed whenever they are needed.
package keymaterial

import (
	"errors"
	"fmt"
	"io"

	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/crypto/aekey"
	"github.com/tos-network/ctoken/crypto/elgamal"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

var (
	// ErrKeyDerivation indicates that the controller could not produce a
	// usable signature, or the signature did not yield a valid key.
	ErrKeyDerivation = errors.New("keymaterial: key derivation failed")
)

const (
	elgamalMessageTag = "ElGamalSecretKey"
	aeMessageTag      = "AeKey"

	elgamalSalt = "ctoken/elgamal/v1"
	aeSalt      = "ctoken/aekey/v1"
)

// Signer produces deterministic signatures on behalf of an account's
// controller. Ed25519 wallets satisfy it; randomized schemes do not.
type Signer interface {
	PublicKey() common.Address
	SignMessage(msg []byte) (common.Signature, error)
}

// KeyMaterial is the per-account key pair used for confidential balances.
type KeyMaterial struct {
	ElGamal *elgamal.Keypair
	AE      *aekey.Key
}

// Derive computes the key material of account as seen by signer. Two calls
// with the same inputs return identical keys.
func Derive(signer Signer, account common.Address) (*KeyMaterial, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: no signer", ErrKeyDerivation)
	}
	eg, err := DeriveElGamal(signer, account)
	if err != nil {
		return nil, err
	}
	ae, err := DeriveAE(signer, account)
	if err != nil {
		return nil, err
	}
	return &KeyMaterial{ElGamal: eg, AE: ae}, nil
}

// DeriveElGamal derives only the asymmetric half.
func DeriveElGamal(signer Signer, account common.Address) (*elgamal.Keypair, error) {
	seed, err := expand(signer, elgamalMessageTag, elgamalSalt, account, elgamal.SeedSize)
	if err != nil {
		return nil, err
	}
	kp, err := elgamal.KeypairFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	return kp, nil
}

// DeriveAE derives only the symmetric half.
func DeriveAE(signer Signer, account common.Address) (*aekey.Key, error) {
	seed, err := expand(signer, aeMessageTag, aeSalt, account, aekey.KeySize)
	if err != nil {
		return nil, err
	}
	k, err := aekey.FromBytes(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	return k, nil
}

// Message returns the domain-separated message the controller signs.
func Message(tag string, account common.Address) []byte {
	msg := make([]byte, 0, len(tag)+common.AddressLength)
	msg = append(msg, tag...)
	return append(msg, account[:]...)
}

func expand(signer Signer, tag, salt string, account common.Address, size int) ([]byte, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: no signer", ErrKeyDerivation)
	}
	sig, err := signer.SignMessage(Message(tag, account))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	if sig.IsZero() {
		return nil, fmt.Errorf("%w: empty signature", ErrKeyDerivation)
	}
	kdf := hkdf.New(sha3.New512, sig[:], []byte(salt), []byte(tag))
	out := make([]byte, size)
	if _, err := io.ReadFull(kdf, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	return out, nil
}
