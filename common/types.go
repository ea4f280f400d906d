package common

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

const (
	// AddressLength is the expected length of an account address.
	AddressLength = 32
	// HashLength is the expected length of a checkpoint or message hash.
	HashLength = 32
	// SignatureLength is the expected length of an ed25519 signature.
	SignatureLength = 64
)

var (
	errInvalidAddress   = errors.New("common: invalid address")
	errInvalidSignature = errors.New("common: invalid signature")
)

// Address identifies a ledger account. Its text form is base58.
type Address [AddressLength]byte

// BytesToAddress returns Address with value b.
// If b is larger than len(a), b will be cropped from the left.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// Base58ToAddress decodes a base58 address, rejecting anything that is not
// exactly 32 bytes.
func Base58ToAddress(s string) (Address, error) {
	raw := base58.Decode(s)
	if len(raw) != AddressLength {
		return Address{}, fmt.Errorf("%w: %q", errInvalidAddress, s)
	}
	return BytesToAddress(raw), nil
}

// SetBytes sets the address to the value of b.
func (a *Address) SetBytes(b []byte) {
	if len(b) > len(a) {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) IsZero() bool { return a == Address{} }

func (a Address) String() string { return base58.Encode(a[:]) }

// TerminalString returns a shortened form for log output.
func (a Address) TerminalString() string {
	s := a.String()
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(input []byte) error {
	addr, err := Base58ToAddress(string(input))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Hash is a 32-byte digest, used for checkpoints and bundle messages.
type Hash [HashLength]byte

func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return base58.Encode(h[:]) }

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(input []byte) error {
	raw := base58.Decode(string(input))
	if len(raw) != HashLength {
		return fmt.Errorf("common: invalid hash %q", input)
	}
	copy(h[:], raw)
	return nil
}

// Signature is a detached ed25519 signature. The first signature of a bundle
// doubles as its identifier.
type Signature [SignatureLength]byte

func BytesToSignature(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != SignatureLength {
		return sig, errInvalidSignature
	}
	copy(sig[:], b)
	return sig, nil
}

func (s Signature) Bytes() []byte { return s[:] }

func (s Signature) IsZero() bool { return s == Signature{} }

func (s Signature) String() string { return base58.Encode(s[:]) }

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signature) UnmarshalText(input []byte) error {
	sig, err := BytesToSignature(base58.Decode(string(input)))
	if err != nil {
		return fmt.Errorf("%w: %q", err, input)
	}
	*s = sig
	return nil
}

// CopyBytes returns an exact copy of the provided bytes.
func CopyBytes(b []byte) (copiedBytes []byte) {
	if b == nil {
		return nil
	}
	copiedBytes = make([]byte, len(b))
	copy(copiedBytes, b)
	return
}
