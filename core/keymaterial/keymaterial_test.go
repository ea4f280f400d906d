package keymaterial

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tos-network/ctoken/accounts/wallet"
	"github.com/tos-network/ctoken/common"
)

type failingSigner struct{ addr common.Address }

func (f failingSigner) PublicKey() common.Address { return f.addr }
func (f failingSigner) SignMessage([]byte) (common.Signature, error) {
	return common.Signature{}, errors.New("device locked")
}

type emptySigner struct{}

func (emptySigner) PublicKey() common.Address { return common.Address{} }
func (emptySigner) SignMessage([]byte) (common.Signature, error) {
	return common.Signature{}, nil
}

func testWallet(t *testing.T, b byte) *wallet.Wallet {
	t.Helper()
	w, err := wallet.FromSeed(bytes.Repeat([]byte{b}, 32))
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestDeriveDeterministic(t *testing.T) {
	w := testWallet(t, 7)
	account := common.BytesToAddress([]byte("account-1"))

	k1, err := Derive(w, account)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := Derive(w, account)
	if err != nil {
		t.Fatal(err)
	}
	if !k1.ElGamal.Equal(k2.ElGamal) || k1.ElGamal.PublicKey() != k2.ElGamal.PublicKey() {
		t.Fatal("elgamal keys differ between derivations")
	}
	if !k1.AE.Equal(k2.AE) {
		t.Fatal("ae keys differ between derivations")
	}
}

func TestDeriveSeparatesAccountsAndSigners(t *testing.T) {
	w := testWallet(t, 7)
	a1 := common.BytesToAddress([]byte("account-1"))
	a2 := common.BytesToAddress([]byte("account-2"))

	k1, _ := Derive(w, a1)
	k2, _ := Derive(w, a2)
	if k1.ElGamal.PublicKey() == k2.ElGamal.PublicKey() || k1.AE.Equal(k2.AE) {
		t.Fatal("different accounts share key material")
	}
	k3, _ := Derive(testWallet(t, 8), a1)
	if k1.ElGamal.PublicKey() == k3.ElGamal.PublicKey() {
		t.Fatal("different signers share key material")
	}
	eg := k1.ElGamal.SecretBytes()
	ae := k1.AE.Bytes()
	if bytes.Equal(eg[:], ae[:]) {
		t.Fatal("elgamal and ae keys must be independent")
	}
}

func TestDeriveSignerFailure(t *testing.T) {
	_, err := Derive(failingSigner{}, common.Address{1})
	if !errors.Is(err, ErrKeyDerivation) {
		t.Fatalf("expected key derivation error, got %v", err)
	}
	_, err = Derive(emptySigner{}, common.Address{1})
	if !errors.Is(err, ErrKeyDerivation) {
		t.Fatalf("expected key derivation error for empty signature, got %v", err)
	}
	_, err = Derive(nil, common.Address{1})
	if !errors.Is(err, ErrKeyDerivation) {
		t.Fatalf("expected key derivation error for nil signer, got %v", err)
	}
}

func TestMessageLayout(t *testing.T) {
	account := common.Address{0xaa}
	msg := Message("AeKey", account)
	if !bytes.HasPrefix(msg, []byte("AeKey")) || len(msg) != 5+common.AddressLength {
		t.Fatalf("unexpected message layout %x", msg)
	}
}
