package txbuilder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/zkproof"
	"github.com/tos-network/ctoken/crypto/aekey"
	"github.com/tos-network/ctoken/crypto/elgamal"
	"github.com/tos-network/ctoken/params"
	"github.com/tos-network/ctoken/token"
)

var (
	owner = common.Address{1}
	mint  = common.Address{2}
	payer = common.Address{3}
)

func configureOp(t *testing.T) (*token.ConfigureAccount, *zkproof.PubkeyValidityData) {
	t.Helper()
	kp, err := elgamal.NewKeypair()
	require.NoError(t, err)
	ae, err := aekey.New()
	require.NoError(t, err)
	zero, err := ae.Encrypt(0)
	require.NoError(t, err)
	proof, err := zkproof.NewPubkeyValidityData(kp)
	require.NoError(t, err)
	return &token.ConfigureAccount{
		Account:                token.DeriveAccountAddress(owner, mint),
		Mint:                   mint,
		Owner:                  owner,
		DecryptableZeroBalance: zero,
		MaxPendingCredits:      params.DefaultMaxPendingBalanceCreditCounter,
	}, proof
}

func TestCreateAndConfigureLayout(t *testing.T) {
	account := token.DeriveAccountAddress(owner, mint)
	cfg, proof := configureOp(t)

	b := New(WithComputeUnitLimit(400_000))
	b.Add(token.CreateAssociatedAccount(payer, owner, mint)).
		Add(token.Reallocate(account, payer, owner, token.ExtensionConfidentialTransferAccount)).
		AddWithProofs(cfg, proof)
	bundle, err := b.Build(payer, common.Hash{9})
	require.NoError(t, err)
	require.Len(t, bundle.Instructions, 5)

	require.Equal(t, params.ComputeBudgetProgramID, bundle.Instructions[0].Program)
	require.Equal(t, params.ProofProgramID, bundle.Instructions[4].Program)

	locs := b.Locators()
	require.Len(t, locs, 1)
	require.Equal(t, 4, locs[0].Position)
	require.Equal(t, zkproof.ProofTypePubkeyValidity, locs[0].Payload.Type())

	tag, body, err := token.DecodeData(bundle.Instructions[3].Data)
	require.NoError(t, err)
	require.Equal(t, token.TagConfigureAccount, tag)
	off := token.Offset(body.(*token.ConfigureAccountData).ProofOffset)
	require.Equal(t, locs[0].Position, 3+int(off))

	decoded, err := token.DecodeVerifyProof(bundle.Instructions[3+int(off)].Data)
	require.NoError(t, err)
	require.NoError(t, decoded.Verify())
}

func TestConfigureBeforeCreate(t *testing.T) {
	account := token.DeriveAccountAddress(owner, mint)
	cfg, proof := configureOp(t)

	_, err := New().
		AddWithProofs(cfg, proof).
		Add(token.CreateAssociatedAccount(payer, owner, mint)).
		Add(token.Reallocate(account, payer, owner, token.ExtensionConfidentialTransferAccount)).
		Build(payer, common.Hash{})
	require.ErrorIs(t, err, ErrNotConfigurable)

	_, err = New().
		Add(token.CreateAssociatedAccount(payer, owner, mint)).
		AddWithProofs(cfg, proof).
		Add(token.Reallocate(account, payer, owner, token.ExtensionConfidentialTransferAccount)).
		Build(payer, common.Hash{})
	require.ErrorIs(t, err, ErrNotConfigurable)

	// Created without reallocation: no room for the extension.
	_, err = New().
		Add(token.CreateAssociatedAccount(payer, owner, mint)).
		AddWithProofs(cfg, proof).
		Build(payer, common.Hash{})
	require.ErrorIs(t, err, ErrNotConfigurable)

	// An account created in an earlier bundle is the ledger's call.
	_, err = New().AddWithProofs(cfg, proof).Build(payer, common.Hash{})
	require.NoError(t, err)
}

func TestBundleTooLarge(t *testing.T) {
	cfg, proof := configureOp(t)
	_, err := New(WithMaxBundleSize(128)).AddWithProofs(cfg, proof).Build(payer, common.Hash{})
	require.ErrorIs(t, err, ErrBundleTooLarge)

	b := New(WithMaxInstructions(2))
	for i := 0; i < 3; i++ {
		b.Add(token.Memo("x"))
	}
	_, err = b.Build(payer, common.Hash{})
	require.ErrorIs(t, err, ErrBundleTooLarge)
}

func TestProofCountMismatch(t *testing.T) {
	cfg, _ := configureOp(t)
	_, err := New().AddWithProofs(cfg).Build(payer, common.Hash{})
	require.True(t, errors.Is(err, ErrProofCount))

	_, err = New().Build(payer, common.Hash{})
	require.ErrorIs(t, err, ErrEmpty)
}

func TestTransferFitsDefaultLimit(t *testing.T) {
	src, err := elgamal.NewKeypair()
	require.NoError(t, err)
	dst, err := elgamal.NewKeypair()
	require.NoError(t, err)
	available, _, err := elgamal.Encrypt(src.PublicKey(), 100)
	require.NoError(t, err)
	proofs, err := zkproof.BuildTransferProofs(zkproof.TransferArgs{
		Source:                  src,
		DestinationPubkey:       dst.PublicKey(),
		CurrentAvailable:        available,
		CurrentAvailableBalance: 100,
		Amount:                  40,
	})
	require.NoError(t, err)

	tr := &token.Transfer{Source: common.Address{4}, Mint: mint, Destination: common.Address{5}, Owner: owner}
	b := New(WithMemo("rent"))
	bundle, err := b.AddWithProofs(tr, proofs.Equality, proofs.ValidityLo, proofs.ValidityHi, proofs.Range).Build(payer, common.Hash{})
	require.NoError(t, err)
	require.Len(t, bundle.Instructions, 6)
	require.Equal(t, params.MemoProgramID, bundle.Instructions[5].Program)

	for i, loc := range b.Locators() {
		require.Equal(t, i+1, loc.Position)
	}
	size, err := bundle.Size()
	require.NoError(t, err)
	require.LessOrEqual(t, size, params.MaxBundleSize)
}
