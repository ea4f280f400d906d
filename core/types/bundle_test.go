package types

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tos-network/ctoken/accounts/wallet"
	"github.com/tos-network/ctoken/common"
)

func testWallet(t *testing.T, b byte) *wallet.Wallet {
	t.Helper()
	w, err := wallet.FromSeed(bytes.Repeat([]byte{b}, 32))
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func testBundle(payer, owner common.Address) *Bundle {
	return &Bundle{
		FeePayer:   payer,
		Checkpoint: common.Hash{9},
		Instructions: []Instruction{
			{
				Program:  common.Address{1},
				Accounts: []AccountMeta{Writable(common.Address{5}, false), ReadOnly(owner, true)},
				Data:     []byte{1, 2, 3},
			},
			{
				Program:  common.Address{2},
				Accounts: []AccountMeta{ReadOnly(owner, true)},
				Data:     []byte{4},
			},
		},
	}
}

func TestRequiredSigners(t *testing.T) {
	payer, owner := testWallet(t, 1), testWallet(t, 2)
	b := testBundle(payer.PublicKey(), owner.PublicKey())
	signers := b.RequiredSigners()
	if len(signers) != 2 || signers[0] != payer.PublicKey() || signers[1] != owner.PublicKey() {
		t.Fatalf("unexpected signers %v", signers)
	}
}

func TestSignVerify(t *testing.T) {
	payer, owner := testWallet(t, 1), testWallet(t, 2)
	b := testBundle(payer.PublicKey(), owner.PublicKey())

	if err := b.Sign(payer); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected missing signature, got %v", err)
	}
	if err := b.Sign(payer, owner); err != nil {
		t.Fatal(err)
	}
	if err := b.VerifySignatures(wallet.Verify); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if b.ID() != b.Signatures[0].Signature {
		t.Fatal("bundle id must be the fee payer signature")
	}

	b.Instructions[0].Data[0] = 0xff
	if err := b.VerifySignatures(wallet.Verify); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected bad signature after tampering, got %v", err)
	}
}

func TestEncodeDecode(t *testing.T) {
	payer, owner := testWallet(t, 1), testWallet(t, 2)
	b := testBundle(payer.PublicKey(), owner.PublicKey())
	if err := b.Sign(payer, owner); err != nil {
		t.Fatal(err)
	}
	raw, err := EncodeBundle(b)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeBundle(raw)
	if err != nil {
		t.Fatal(err)
	}
	if err := decoded.VerifySignatures(wallet.Verify); err != nil {
		t.Fatalf("decoded bundle does not verify: %v", err)
	}
	h1, _ := b.MessageHash()
	h2, _ := decoded.MessageHash()
	if h1 != h2 {
		t.Fatal("message hash changed across encoding")
	}
}

func TestSizeStableAcrossSigning(t *testing.T) {
	payer, owner := testWallet(t, 1), testWallet(t, 2)
	b := testBundle(payer.PublicKey(), owner.PublicKey())
	before, err := b.Size()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Sign(payer, owner); err != nil {
		t.Fatal(err)
	}
	after, err := b.Size()
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Fatalf("size changed after signing: %d -> %d", before, after)
	}
}

func TestSignEmptyBundle(t *testing.T) {
	b := &Bundle{FeePayer: common.Address{1}}
	if err := b.Sign(); !errors.Is(err, ErrEmptyBundle) {
		t.Fatalf("expected empty bundle error, got %v", err)
	}
}
