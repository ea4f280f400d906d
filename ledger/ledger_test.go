package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/ctoken/accounts/wallet"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/txbuilder"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/core/zkproof"
	"github.com/tos-network/ctoken/crypto/aekey"
	"github.com/tos-network/ctoken/crypto/elgamal"
	"github.com/tos-network/ctoken/params"
	"github.com/tos-network/ctoken/token"
	"github.com/tos-network/ctoken/tosdb/leveldb"
)

const airdrop = params.SOL

func newTestLedger(t *testing.T, cfg Config) *Ledger {
	t.Helper()
	db, err := leveldb.NewMemory()
	require.NoError(t, err)
	l, err := New(cfg, db, DefaultRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func fundedWallet(t *testing.T, l *Ledger) *wallet.Wallet {
	t.Helper()
	w, err := wallet.New()
	require.NoError(t, err)
	require.NoError(t, l.Airdrop(context.Background(), w.PublicKey(), airdrop))
	return w
}

func signed(t *testing.T, l *Ledger, payer *wallet.Wallet, extra []*wallet.Wallet, ixs ...types.Instruction) *types.Bundle {
	t.Helper()
	cp, err := l.LatestCheckpoint(context.Background())
	require.NoError(t, err)
	b := &types.Bundle{FeePayer: payer.PublicKey(), Checkpoint: cp, Instructions: ixs}
	signers := []types.MessageSigner{payer}
	for _, w := range extra {
		signers = append(signers, w)
	}
	require.NoError(t, b.Sign(signers...))
	return b
}

func submit(t *testing.T, l *Ledger, b *types.Bundle) *types.Receipt {
	t.Helper()
	ctx := context.Background()
	id, err := l.SendBundle(ctx, b)
	require.NoError(t, err)
	r, err := l.ConfirmBundle(ctx, id)
	require.NoError(t, err)
	return r
}

func lamports(t *testing.T, l *Ledger, addr common.Address) uint64 {
	t.Helper()
	info, err := l.GetAccount(context.Background(), addr)
	require.NoError(t, err)
	return info.Lamports
}

func TestTransferLamports(t *testing.T) {
	l := newTestLedger(t, Config{})
	alice := fundedWallet(t, l)
	bob := common.Address{0xb0}

	r := submit(t, l, signed(t, l, alice, nil, token.TransferLamports(alice.PublicKey(), bob, 1234)))
	require.True(t, r.Succeeded(), "%v", r.Err)
	require.Equal(t, params.DefaultLamportsPerSignature, r.Fee)
	require.Equal(t, uint64(airdrop-1234)-r.Fee, lamports(t, l, alice.PublicKey()))
	require.Equal(t, uint64(1234), lamports(t, l, bob))
	require.Greater(t, r.Slot, uint64(0))
}

func TestFailedBundleRollsBack(t *testing.T) {
	l := newTestLedger(t, Config{})
	alice := fundedWallet(t, l)
	bob := common.Address{0xb0}

	r := submit(t, l, signed(t, l, alice, nil,
		token.TransferLamports(alice.PublicKey(), bob, 10),
		token.TransferLamports(alice.PublicKey(), bob, 2*airdrop),
	))
	require.False(t, r.Succeeded())
	require.Equal(t, uint8(1), r.Err.Index)
	require.Equal(t, uint32(token.ErrInsufficientLamports), r.Err.Code)

	// Only the fee was charged.
	require.Equal(t, uint64(airdrop)-r.Fee, lamports(t, l, alice.PublicKey()))
	_, err := l.GetAccount(context.Background(), bob)
	require.ErrorIs(t, err, types.ErrAccountNotFound)
}

func TestBundleAdmission(t *testing.T) {
	l := newTestLedger(t, Config{CheckpointWindow: 2})
	ctx := context.Background()
	alice := fundedWallet(t, l)
	bob := common.Address{0xb0}

	b := signed(t, l, alice, nil, token.TransferLamports(alice.PublicKey(), bob, 1))
	_, err := l.SendBundle(ctx, b)
	require.NoError(t, err)
	_, err = l.SendBundle(ctx, b)
	require.ErrorIs(t, err, ErrAlreadyProcessed)

	stale := signed(t, l, alice, nil, token.TransferLamports(alice.PublicKey(), bob, 2))
	l.AdvanceSlot()
	l.AdvanceSlot()
	_, err = l.SendBundle(ctx, stale)
	require.ErrorIs(t, err, ErrCheckpointNotFound)

	unsigned := signed(t, l, alice, nil, token.TransferLamports(alice.PublicKey(), bob, 3))
	unsigned.Signatures = nil
	_, err = l.SendBundle(ctx, unsigned)
	require.ErrorIs(t, err, types.ErrMissingSignature)

	poor, err := wallet.New()
	require.NoError(t, err)
	_, err = l.SendBundle(ctx, signed(t, l, poor, nil, token.Memo("hi")))
	require.ErrorIs(t, err, ErrInsufficientFee)

	_, err = l.ConfirmBundle(ctx, common.Signature{1})
	require.ErrorIs(t, err, types.ErrBundleNotFound)
}

func TestSimulateLeavesStateUntouched(t *testing.T) {
	l := newTestLedger(t, Config{})
	alice := fundedWallet(t, l)
	bob := common.Address{0xb0}

	b := signed(t, l, alice, nil, token.TransferLamports(alice.PublicKey(), bob, 5), token.Memo("hello", alice.PublicKey()))
	est, err := l.SimulateBundle(context.Background(), b)
	require.NoError(t, err)
	require.Nil(t, est.Err)
	require.Equal(t, 2*params.BaseInstructionCost+5*params.MemoCostPerByte, est.ComputeUnits)
	require.Equal(t, uint64(airdrop), lamports(t, l, alice.PublicKey()))
}

func TestComputeBudget(t *testing.T) {
	l := newTestLedger(t, Config{})
	alice := fundedWallet(t, l)

	r := submit(t, l, signed(t, l, alice, nil,
		token.SetComputeUnitLimit(200),
		token.Memo("a long enough memo to blow the budget"),
	))
	require.False(t, r.Succeeded())
	require.Equal(t, uint32(token.ErrComputeBudgetExceeded), r.Err.Code)

	r = submit(t, l, signed(t, l, alice, nil,
		token.SetComputeUnitLimit(100_000),
		token.SetComputeUnitPrice(1_000_000),
		token.Memo("paid"),
	))
	require.True(t, r.Succeeded())
	require.Equal(t, params.DefaultLamportsPerSignature+100_000, r.Fee)
}

// confidentialFixture is a configured confidential account holding public
// tokens.
type confidentialFixture struct {
	l       *Ledger
	owner   *wallet.Wallet
	mint    common.Address
	account common.Address
	kp      *elgamal.Keypair
	ae      *aekey.Key
}

func createAccount(t *testing.T, l *Ledger, mint common.Address, owner *wallet.Wallet) common.Address {
	t.Helper()
	account := token.DeriveAccountAddress(owner.PublicKey(), mint)
	r := submit(t, l, signed(t, l, owner, nil,
		token.CreateAssociatedAccount(owner.PublicKey(), owner.PublicKey(), mint),
		token.Reallocate(account, owner.PublicKey(), owner.PublicKey(), token.ExtensionConfidentialTransferAccount),
	))
	require.True(t, r.Succeeded(), "%v", r.Err)
	return account
}

func configure(t *testing.T, l *Ledger, owner *wallet.Wallet, mint, account common.Address, pub elgamal.PublicKey, proofKey *elgamal.Keypair, ae *aekey.Key, maxCredits uint64) *types.Receipt {
	t.Helper()
	zero, err := ae.Encrypt(0)
	require.NoError(t, err)
	proof, err := zkproof.NewPubkeyValidityData(proofKey)
	require.NoError(t, err)
	cp, err := l.LatestCheckpoint(context.Background())
	require.NoError(t, err)
	b, err := txbuilder.New().AddWithProofs(&token.ConfigureAccount{
		Account:                account,
		Mint:                   mint,
		Owner:                  owner.PublicKey(),
		ElGamalPubkey:          pub,
		DecryptableZeroBalance: zero,
		MaxPendingCredits:      maxCredits,
	}, proof).Build(owner.PublicKey(), cp)
	require.NoError(t, err)
	require.NoError(t, b.Sign(owner))
	return submit(t, l, b)
}

func newConfidentialFixture(t *testing.T, maxCredits uint64) *confidentialFixture {
	t.Helper()
	l := newTestLedger(t, Config{})
	owner := fundedWallet(t, l)
	mint := common.Address{0x4d}
	require.NoError(t, l.CreateMint(context.Background(), mint, owner.PublicKey(), 2, true, true))

	account := createAccount(t, l, mint, owner)
	kp, err := elgamal.NewKeypair()
	require.NoError(t, err)
	ae, err := aekey.New()
	require.NoError(t, err)
	r := configure(t, l, owner, mint, account, kp.PublicKey(), kp, ae, maxCredits)
	require.True(t, r.Succeeded(), "%v", r.Err)
	require.NoError(t, l.MintTo(context.Background(), mint, account, 100))
	return &confidentialFixture{l: l, owner: owner, mint: mint, account: account, kp: kp, ae: ae}
}

func (f *confidentialFixture) state(t *testing.T) (*token.Account, *token.ConfidentialAccount) {
	t.Helper()
	info, err := f.l.GetAccount(context.Background(), f.account)
	require.NoError(t, err)
	acc, err := token.UnpackAccount(info.Data)
	require.NoError(t, err)
	ext, err := token.GetConfidentialAccount(info.Data)
	require.NoError(t, err)
	return acc, ext
}

func TestConfigureRequiresExtensionSpace(t *testing.T) {
	l := newTestLedger(t, Config{})
	owner := fundedWallet(t, l)
	mint := common.Address{0x4d}
	require.NoError(t, l.CreateMint(context.Background(), mint, owner.PublicKey(), 2, true, true))

	r := submit(t, l, signed(t, l, owner, nil, token.CreateAssociatedAccount(owner.PublicKey(), owner.PublicKey(), mint)))
	require.True(t, r.Succeeded())
	account := token.DeriveAccountAddress(owner.PublicKey(), mint)

	kp, _ := elgamal.NewKeypair()
	ae, _ := aekey.New()
	r = configure(t, l, owner, mint, account, kp.PublicKey(), kp, ae, 0)
	require.False(t, r.Succeeded())
	require.Equal(t, uint32(token.ErrInvalidAccountSize), r.Err.Code)

	// Creating again fails; the idempotent variant does not.
	r = submit(t, l, signed(t, l, owner, nil, token.CreateAssociatedAccount(owner.PublicKey(), owner.PublicKey(), mint)))
	require.Equal(t, uint32(token.ErrAccountAlreadyInUse), r.Err.Code)
	r = submit(t, l, signed(t, l, owner, nil, token.CreateAssociatedAccountIdempotent(owner.PublicKey(), owner.PublicKey(), mint)))
	require.True(t, r.Succeeded())
}

func TestConfigureRejectsForeignProof(t *testing.T) {
	l := newTestLedger(t, Config{})
	owner := fundedWallet(t, l)
	mint := common.Address{0x4d}
	require.NoError(t, l.CreateMint(context.Background(), mint, owner.PublicKey(), 2, true, true))
	account := createAccount(t, l, mint, owner)

	kp, _ := elgamal.NewKeypair()
	other, _ := elgamal.NewKeypair()
	ae, _ := aekey.New()
	r := configure(t, l, owner, mint, account, kp.PublicKey(), other, ae, 0)
	require.False(t, r.Succeeded())
	require.Equal(t, uint32(token.ErrProofContextMismatch), r.Err.Code)

	r = configure(t, l, owner, mint, account, kp.PublicKey(), kp, ae, 0)
	require.True(t, r.Succeeded(), "%v", r.Err)
	r = configure(t, l, owner, mint, account, kp.PublicKey(), kp, ae, 0)
	require.Equal(t, uint32(token.ErrExtensionAlreadyInitialized), r.Err.Code)
}

func TestDepositAndApply(t *testing.T) {
	f := newConfidentialFixture(t, 1)
	owner := f.owner.PublicKey()

	r := submit(t, f.l, signed(t, f.l, f.owner, nil, token.Deposit(f.account, f.mint, owner, 60, 2)))
	require.True(t, r.Succeeded(), "%v", r.Err)
	acc, ext := f.state(t)
	require.Equal(t, uint64(40), acc.Amount)
	require.Equal(t, uint64(1), ext.PendingBalanceCreditCounter)

	r = submit(t, f.l, signed(t, f.l, f.owner, nil, token.Deposit(f.account, f.mint, owner, 10, 2)))
	require.Equal(t, uint32(token.ErrMaximumPendingBalanceCreditCounterExceeded), r.Err.Code)

	r = submit(t, f.l, signed(t, f.l, f.owner, nil, token.Deposit(f.account, f.mint, owner, 10, 6)))
	require.Equal(t, uint32(token.ErrMintDecimalsMismatch), r.Err.Code)

	sealed, err := f.ae.Encrypt(60)
	require.NoError(t, err)
	r = submit(t, f.l, signed(t, f.l, f.owner, nil, token.ApplyPendingBalance(f.account, owner, 0, 1, sealed)))
	require.Equal(t, uint32(token.ErrPendingBalanceCounterMismatch), r.Err.Code)

	r = submit(t, f.l, signed(t, f.l, f.owner, nil, token.ApplyPendingBalance(f.account, owner, 1, 0, sealed)))
	require.Equal(t, uint32(token.ErrPendingBalanceCounterMismatch), r.Err.Code)

	r = submit(t, f.l, signed(t, f.l, f.owner, nil, token.ApplyPendingBalance(f.account, owner, 1, 1, sealed)))
	require.True(t, r.Succeeded(), "%v", r.Err)
	_, ext = f.state(t)
	require.Zero(t, ext.PendingBalanceCreditCounter)
	require.Equal(t, uint64(2), ext.PendingBalanceVersion)
	require.Equal(t, uint64(1), ext.ActualPendingCreditCounter)
	got, err := f.kp.Decrypt(ext.AvailableBalance, 1<<16)
	require.NoError(t, err)
	require.Equal(t, uint64(60), got)
	plain, err := f.ae.Decrypt(ext.DecryptableAvailableBalance)
	require.NoError(t, err)
	require.Equal(t, uint64(60), plain)
}

func TestDepositLimits(t *testing.T) {
	f := newConfidentialFixture(t, 0)
	owner := f.owner.PublicKey()

	r := submit(t, f.l, signed(t, f.l, f.owner, nil, token.Deposit(f.account, f.mint, owner, 101, 2)))
	require.Equal(t, uint32(token.ErrInsufficientFunds), r.Err.Code)
	r = submit(t, f.l, signed(t, f.l, f.owner, nil, token.Deposit(f.account, f.mint, owner, params.MaxDepositAmount, 2)))
	require.Equal(t, uint32(token.ErrMaximumDepositAmountExceeded), r.Err.Code)

	r = submit(t, f.l, signed(t, f.l, f.owner, nil, token.DisableConfidentialCredits(f.account, owner)))
	require.True(t, r.Succeeded())
	r = submit(t, f.l, signed(t, f.l, f.owner, nil, token.Deposit(f.account, f.mint, owner, 1, 2)))
	require.Equal(t, uint32(token.ErrConfidentialCreditsDisabled), r.Err.Code)

	r = submit(t, f.l, signed(t, f.l, f.owner, nil, token.DisableNonConfidentialCredits(f.account, owner)))
	require.True(t, r.Succeeded())
	err := f.l.MintTo(context.Background(), f.mint, f.account, 1)
	require.True(t, errors.Is(err, token.ErrNonConfidentialCreditsDisabled))
}

func TestWithdraw(t *testing.T) {
	f := newConfidentialFixture(t, 0)
	owner := f.owner.PublicKey()
	sealed, _ := f.ae.Encrypt(100)
	require.True(t, submit(t, f.l, signed(t, f.l, f.owner, nil, token.Deposit(f.account, f.mint, owner, 100, 2))).Succeeded())
	require.True(t, submit(t, f.l, signed(t, f.l, f.owner, nil, token.ApplyPendingBalance(f.account, owner, 1, 1, sealed))).Succeeded())

	_, ext := f.state(t)
	proofs, err := zkproof.BuildWithdrawProofs(zkproof.WithdrawArgs{
		Keypair:                 f.kp,
		CurrentAvailable:        ext.AvailableBalance,
		CurrentAvailableBalance: 100,
		Amount:                  30,
	})
	require.NoError(t, err)
	newSealed, _ := f.ae.Encrypt(70)
	cp, _ := f.l.LatestCheckpoint(context.Background())
	b, err := txbuilder.New().AddWithProofs(&token.Withdraw{
		Account:                        f.account,
		Mint:                           f.mint,
		Owner:                          owner,
		Amount:                         30,
		Decimals:                       2,
		NewDecryptableAvailableBalance: newSealed,
	}, proofs.Equality, proofs.Range).Build(owner, cp)
	require.NoError(t, err)
	require.NoError(t, b.Sign(f.owner))
	r := submit(t, f.l, b)
	require.True(t, r.Succeeded(), "%v", r.Err)

	acc, ext := f.state(t)
	require.Equal(t, uint64(30), acc.Amount)
	got, err := f.kp.Decrypt(ext.AvailableBalance, 1<<16)
	require.NoError(t, err)
	require.Equal(t, uint64(70), got)
}

func TestApprovalRequired(t *testing.T) {
	l := newTestLedger(t, Config{})
	authority := fundedWallet(t, l)
	owner := fundedWallet(t, l)
	mint := common.Address{0x4e}
	require.NoError(t, l.CreateMint(context.Background(), mint, authority.PublicKey(), 0, true, false))
	account := createAccount(t, l, mint, owner)

	kp, _ := elgamal.NewKeypair()
	ae, _ := aekey.New()
	require.True(t, configure(t, l, owner, mint, account, kp.PublicKey(), kp, ae, 0).Succeeded())
	require.NoError(t, l.MintTo(context.Background(), mint, account, 5))

	r := submit(t, l, signed(t, l, owner, nil, token.Deposit(account, mint, owner.PublicKey(), 5, 0)))
	require.Equal(t, uint32(token.ErrAccountNotApproved), r.Err.Code)

	r = submit(t, l, signed(t, l, owner, nil, token.ApproveAccount(account, mint, owner.PublicKey())))
	require.Equal(t, uint32(token.ErrOwnerMismatch), r.Err.Code)

	r = submit(t, l, signed(t, l, authority, nil, token.ApproveAccount(account, mint, authority.PublicKey())))
	require.True(t, r.Succeeded(), "%v", r.Err)
	r = submit(t, l, signed(t, l, owner, nil, token.Deposit(account, mint, owner.PublicKey(), 5, 0)))
	require.True(t, r.Succeeded(), "%v", r.Err)
}

func TestUnknownProgram(t *testing.T) {
	l := newTestLedger(t, Config{})
	alice := fundedWallet(t, l)
	r := submit(t, l, signed(t, l, alice, nil, types.Instruction{Program: common.Address{0xee}}))
	require.False(t, r.Succeeded())
	require.Equal(t, uint8(0), r.Err.Index)
}
