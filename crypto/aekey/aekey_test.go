package aekey

import (
	"errors"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	k, err := New()
	if err != nil {
		t.Fatal(err)
	}
	for _, amount := range []uint64{0, 1, 1 << 40, ^uint64(0)} {
		ct, err := k.Encrypt(amount)
		if err != nil {
			t.Fatal(err)
		}
		got, err := k.Decrypt(ct)
		if err != nil {
			t.Fatalf("decrypt %d: %v", amount, err)
		}
		if got != amount {
			t.Fatalf("have %d want %d", got, amount)
		}
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	k, _ := New()
	a, _ := k.Encrypt(5)
	b, _ := k.Encrypt(5)
	if a == b {
		t.Fatal("two encryptions of the same amount are identical")
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	k1, _ := New()
	k2, _ := New()
	ct, _ := k1.Encrypt(77)
	if _, err := k2.Decrypt(ct); !errors.Is(err, ErrDecryption) {
		t.Fatalf("expected decryption failure, got %v", err)
	}
	ct[NonceSize] ^= 1
	if _, err := k1.Decrypt(ct); !errors.Is(err, ErrDecryption) {
		t.Fatalf("expected tamper detection, got %v", err)
	}
}

func TestFromBytes(t *testing.T) {
	if _, err := FromBytes(make([]byte, 16)); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected invalid key, got %v", err)
	}
	raw := make([]byte, KeySize)
	raw[0] = 1
	k, err := FromBytes(raw)
	if err != nil {
		t.Fatal(err)
	}
	k2, _ := FromBytes(raw)
	if !k.Equal(k2) {
		t.Fatal("equal keys compare unequal")
	}
	if _, err := CiphertextFromBytes(make([]byte, 10)); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected invalid ciphertext, got %v", err)
	}
}
