// Package aekey implements the authenticated symmetric encryption used for
// the decryptable available balance of a confidential account.
package aekey

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	KeySize        = chacha20poly1305.KeySize
	NonceSize      = chacha20poly1305.NonceSize
	CiphertextSize = NonceSize + 8 + chacha20poly1305.Overhead
)

var (
	ErrInvalidKey        = errors.New("aekey: invalid key")
	ErrInvalidCiphertext = errors.New("aekey: invalid ciphertext")
	ErrDecryption        = errors.New("aekey: decryption failed")
)

// Key is a 32-byte symmetric key.
type Key struct {
	raw [KeySize]byte
}

// Ciphertext is nonce || sealed little-endian amount || tag.
type Ciphertext [CiphertextSize]byte

// New returns a random key.
func New() (*Key, error) {
	var k Key
	if _, err := rand.Read(k.raw[:]); err != nil {
		return nil, err
	}
	return &k, nil
}

// FromBytes copies a 32-byte key.
func FromBytes(raw []byte) (*Key, error) {
	if len(raw) != KeySize {
		return nil, ErrInvalidKey
	}
	var k Key
	copy(k.raw[:], raw)
	return &k, nil
}

func (k *Key) Bytes() [KeySize]byte { return k.raw }

func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return subtle.ConstantTimeCompare(k.raw[:], other.raw[:]) == 1
}

// Encrypt seals amount under a fresh random nonce.
func (k *Key) Encrypt(amount uint64) (Ciphertext, error) {
	var out Ciphertext
	if _, err := rand.Read(out[:NonceSize]); err != nil {
		return out, err
	}
	aead, err := chacha20poly1305.New(k.raw[:])
	if err != nil {
		return out, err
	}
	var plain [8]byte
	binary.LittleEndian.PutUint64(plain[:], amount)
	aead.Seal(out[NonceSize:NonceSize], out[:NonceSize], plain[:], nil)
	return out, nil
}

// Decrypt opens a ciphertext produced by Encrypt under the same key.
func (k *Key) Decrypt(ct Ciphertext) (uint64, error) {
	aead, err := chacha20poly1305.New(k.raw[:])
	if err != nil {
		return 0, err
	}
	plain, err := aead.Open(nil, ct[:NonceSize], ct[NonceSize:], nil)
	if err != nil {
		return 0, ErrDecryption
	}
	return binary.LittleEndian.Uint64(plain), nil
}

// CiphertextFromBytes copies a 36-byte encoding.
func CiphertextFromBytes(raw []byte) (Ciphertext, error) {
	var ct Ciphertext
	if len(raw) != CiphertextSize {
		return ct, ErrInvalidCiphertext
	}
	copy(ct[:], raw)
	return ct, nil
}

func (ct Ciphertext) Bytes() []byte { return ct[:] }
