package confidential

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/ctoken/accounts/wallet"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/balance"
	"github.com/tos-network/ctoken/core/keymaterial"
	"github.com/tos-network/ctoken/core/submitter"
	"github.com/tos-network/ctoken/core/txbuilder"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/core/zkproof"
	"github.com/tos-network/ctoken/crypto/elgamal"
	"github.com/tos-network/ctoken/ledger"
	"github.com/tos-network/ctoken/params"
	"github.com/tos-network/ctoken/token"
)

type fixture struct {
	ctx       context.Context
	ledger    *ledger.Ledger
	m         *Manager
	authority *wallet.Wallet
	mint      common.Address
}

type fixtureOpts struct {
	maxCredits     uint64
	manualApproval bool
	estimate       bool
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()
	ctx := context.Background()
	l, err := ledger.Open(ledger.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	payer := newWallet(t)
	require.NoError(t, l.Airdrop(ctx, payer.PublicKey(), 10_000_000_000))
	authority := newWallet(t)
	mint := newWallet(t).PublicKey()
	require.NoError(t, l.CreateMint(ctx, mint, authority.PublicKey(), 2, true, !opts.manualApproval))

	m, err := New(Config{
		Backend:           l,
		FeePayer:          payer,
		MaxPendingCredits: opts.maxCredits,
		EstimateCompute:   opts.estimate,
		Submitter:         submitter.Config{RequestsPerSecond: 1000, ConfirmPollInterval: time.Millisecond},
	})
	require.NoError(t, err)
	return &fixture{ctx: ctx, ledger: l, m: m, authority: authority, mint: mint}
}

func newWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.New()
	require.NoError(t, err)
	return w
}

// funded creates a configured account holding public tokens.
func (f *fixture) funded(t *testing.T, public uint64) (*Account, *wallet.Wallet) {
	t.Helper()
	owner := newWallet(t)
	acct, err := f.m.CreateAndConfigure(f.ctx, owner, f.mint)
	require.NoError(t, err)
	require.Equal(t, Configured, acct.State)
	if public > 0 {
		require.NoError(t, f.ledger.MintTo(f.ctx, f.mint, acct.Address, public))
	}
	return acct, owner
}

func (f *fixture) balances(t *testing.T, acct *Account, owner *wallet.Wallet) *Balances {
	t.Helper()
	b, err := f.m.Balances(f.ctx, acct, owner)
	require.NoError(t, err)
	return b
}

// elgamalAvailable decrypts the ledger's available ciphertext directly.
func (f *fixture) elgamalAvailable(t *testing.T, acct *Account, owner *wallet.Wallet) uint64 {
	t.Helper()
	snap, err := f.m.Snapshot(f.ctx, acct.Address)
	require.NoError(t, err)
	kp, err := keymaterial.DeriveElGamal(owner, acct.Address)
	require.NoError(t, err)
	v, err := balance.Decrypt(kp, snap.Confidential.AvailableBalance)
	require.NoError(t, err)
	return v
}

func TestConfigureWithoutExtensionSpace(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	owner := newWallet(t)

	acct, err := f.m.CreateBaseOnly(f.ctx, owner, f.mint)
	require.NoError(t, err)
	require.Equal(t, Created, acct.State)

	err = f.m.Configure(f.ctx, acct, owner)
	require.ErrorIs(t, err, ErrNotConfigurable)

	// The ledger refuses the same bundle when the local check is skipped.
	km, err := keymaterial.Derive(owner, acct.Address)
	require.NoError(t, err)
	op, proof, err := f.m.configureOp(acct, km)
	require.NoError(t, err)
	_, err = f.m.Submit(f.ctx, func(b *txbuilder.Builder) { b.AddWithProofs(op, proof) }, owner)
	require.ErrorIs(t, err, ErrNotConfigurable)
	var ie *types.InstructionError
	require.True(t, errors.As(err, &ie))
	require.Equal(t, uint32(token.ErrInvalidAccountSize), ie.Code)
}

func TestCreateThenConfigure(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	owner := newWallet(t)

	acct, err := f.m.Create(f.ctx, owner, f.mint)
	require.NoError(t, err)
	require.Equal(t, Reallocated, acct.State)
	require.NoError(t, f.m.Configure(f.ctx, acct, owner))
	require.Equal(t, Configured, acct.State)

	require.ErrorIs(t, f.m.Configure(f.ctx, acct, owner), ErrNotConfigurable)
	_, err = f.m.Create(f.ctx, owner, f.mint)
	require.ErrorIs(t, err, ErrAccountAlreadyExists)

	opened, err := f.m.Open(f.ctx, owner.PublicKey(), f.mint)
	require.NoError(t, err)
	require.Equal(t, acct.Address, opened.Address)
	require.Equal(t, Configured, opened.State)

	b := f.balances(t, acct, owner)
	require.Equal(t, params.DefaultMaxPendingBalanceCreditCounter, b.MaxPendingCredits)
	require.Zero(t, b.Available)
}

func TestConfigureWithForeignProof(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	owner := newWallet(t)
	acct, err := f.m.Create(f.ctx, owner, f.mint)
	require.NoError(t, err)

	km, err := keymaterial.Derive(owner, acct.Address)
	require.NoError(t, err)
	op, _, err := f.m.configureOp(acct, km)
	require.NoError(t, err)
	other, err := elgamal.NewKeypair()
	require.NoError(t, err)
	foreign, err := zkproof.NewPubkeyValidityData(other)
	require.NoError(t, err)

	_, err = f.m.Submit(f.ctx, func(b *txbuilder.Builder) { b.AddWithProofs(op, foreign) }, owner)
	require.ErrorIs(t, err, ErrTransferRejected)

	snap, err := f.m.Snapshot(f.ctx, acct.Address)
	require.NoError(t, err)
	require.Equal(t, Reallocated, snap.State)
}

func TestDepositThenApply(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	acct, owner := f.funded(t, 100)

	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, 100))
	require.Equal(t, Active, acct.State)
	b := f.balances(t, acct, owner)
	require.Equal(t, uint64(100), b.Pending)
	require.Zero(t, b.Public)

	available, err := f.m.ApplyPendingBalance(f.ctx, acct, owner)
	require.NoError(t, err)
	require.Equal(t, uint64(100), available)
	require.Equal(t, uint64(100), f.balances(t, acct, owner).Available)
	require.Equal(t, uint64(100), f.elgamalAvailable(t, acct, owner))
}

func TestTwoDepositsSingleApply(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	acct, owner := f.funded(t, 100)

	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, 30))
	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, 70))
	b := f.balances(t, acct, owner)
	require.Equal(t, uint64(2), b.PendingCredits)
	require.Equal(t, uint64(100), b.Pending)

	_, err := f.m.ApplyPendingBalance(f.ctx, acct, owner)
	require.NoError(t, err)
	b = f.balances(t, acct, owner)
	require.Equal(t, uint64(100), b.Available)
	require.Zero(t, b.Pending)
	require.Zero(t, b.PendingCredits)
}

func TestConfidentialTransfer(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	x, xOwner := f.funded(t, 100)
	y, yOwner := f.funded(t, 0)

	require.NoError(t, f.m.Deposit(f.ctx, x, xOwner, 100))
	_, err := f.m.ApplyPendingBalance(f.ctx, x, xOwner)
	require.NoError(t, err)

	require.NoError(t, f.m.Transfer(f.ctx, x, y.Address, xOwner, 40))
	yb := f.balances(t, y, yOwner)
	require.Equal(t, uint64(40), yb.Pending)
	require.Equal(t, uint64(1), yb.PendingCredits)

	available, err := f.m.ApplyPendingBalance(f.ctx, y, yOwner)
	require.NoError(t, err)
	require.Equal(t, uint64(40), available)
	require.Equal(t, uint64(40), f.elgamalAvailable(t, y, yOwner))

	require.Equal(t, uint64(60), f.balances(t, x, xOwner).Available)
	require.Equal(t, uint64(60), f.elgamalAvailable(t, x, xOwner))

	err = f.m.Transfer(f.ctx, x, y.Address, xOwner, 61)
	require.ErrorIs(t, err, ErrProofGeneration)
	err = f.m.Transfer(f.ctx, x, y.Address, yOwner, 1)
	require.ErrorIs(t, err, ErrKeyDerivation)
}

func TestTransferToUnconfiguredAccount(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	x, xOwner := f.funded(t, 10)
	require.NoError(t, f.m.Deposit(f.ctx, x, xOwner, 10))
	_, err := f.m.ApplyPendingBalance(f.ctx, x, xOwner)
	require.NoError(t, err)

	bare, err := f.m.Create(f.ctx, newWallet(t), f.mint)
	require.NoError(t, err)
	err = f.m.Transfer(f.ctx, x, bare.Address, xOwner, 5)
	require.ErrorIs(t, err, ErrAccountNotConfigured)
}

func TestPendingCreditBound(t *testing.T) {
	f := newFixture(t, fixtureOpts{maxCredits: 3})
	acct, owner := f.funded(t, 10)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.m.Deposit(f.ctx, acct, owner, 1))
	}
	err := f.m.Deposit(f.ctx, acct, owner, 1)
	require.ErrorIs(t, err, ErrPendingCreditCounterExceeded)

	// The ledger enforces the same bound.
	_, err = f.m.Submit(f.ctx, func(b *txbuilder.Builder) {
		b.Add(token.Deposit(acct.Address, acct.Mint, owner.PublicKey(), 1, 2))
	}, owner)
	require.ErrorIs(t, err, ErrPendingCreditCounterExceeded)

	_, err = f.m.ApplyPendingBalance(f.ctx, acct, owner)
	require.NoError(t, err)
	require.Zero(t, f.balances(t, acct, owner).PendingCredits)
	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, 1))
}

func TestStaleApply(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	acct, owner := f.funded(t, 10)
	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, 5))

	apply, err := f.m.PrepareApply(f.ctx, acct, owner)
	require.NoError(t, err)
	require.Equal(t, uint64(5), apply.Pending)
	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, 3))

	err = f.m.SubmitApply(f.ctx, apply, owner)
	require.ErrorIs(t, err, ErrStaleSnapshot)
	require.False(t, errors.Is(err, ErrPendingCreditCounterExceeded))

	available, err := f.m.ApplyPendingBalance(f.ctx, acct, owner)
	require.NoError(t, err)
	require.Equal(t, uint64(8), available)
}

// The credit counter is back at 1 when the old apply arrives; only the
// pending balance version tells the two snapshots apart.
func TestStaleApplyAfterCounterRepeats(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	acct, owner := f.funded(t, 10)
	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, 5))

	stale, err := f.m.PrepareApply(f.ctx, acct, owner)
	require.NoError(t, err)
	require.Equal(t, uint64(1), stale.ExpectedCounter)
	available, err := f.m.ApplyPendingBalance(f.ctx, acct, owner)
	require.NoError(t, err)
	require.Equal(t, uint64(5), available)

	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, 3))
	err = f.m.SubmitApply(f.ctx, stale, owner)
	require.ErrorIs(t, err, ErrStaleSnapshot)

	available, err = f.m.ApplyPendingBalance(f.ctx, acct, owner)
	require.NoError(t, err)
	require.Equal(t, uint64(8), available)
	b, err := f.m.Balances(f.ctx, acct, owner)
	require.NoError(t, err)
	require.Equal(t, uint64(8), b.Available)
	require.Zero(t, b.Pending)
}

// Two deposits just under the per-credit limit carry the high half of the
// pending balance past 32 bits.
func TestLargeDepositsStayDecryptable(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	const amount = params.MaxDepositAmount - 1
	acct, owner := f.funded(t, 2*amount)
	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, amount))
	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, amount))

	b := f.balances(t, acct, owner)
	require.Equal(t, 2*amount, b.Pending)
	require.Zero(t, b.Public)

	available, err := f.m.ApplyPendingBalance(f.ctx, acct, owner)
	require.NoError(t, err)
	require.Equal(t, 2*amount, available)
	require.Equal(t, 2*amount, f.balances(t, acct, owner).Available)
}

func TestMissingSigner(t *testing.T) {
	f := newFixture(t, fixtureOpts{manualApproval: true})
	acct, _ := f.funded(t, 10)

	require.ErrorIs(t, f.m.Deposit(f.ctx, acct, nil, 1), ErrKeyDerivation)
	require.ErrorIs(t, f.m.ApproveAccount(f.ctx, acct, nil), ErrKeyDerivation)
	require.ErrorIs(t, f.m.EnableConfidentialCredits(f.ctx, acct, nil), ErrKeyDerivation)
	require.ErrorIs(t, f.m.DisableNonConfidentialCredits(f.ctx, acct, nil), ErrKeyDerivation)
}

func TestDepositPreconditions(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	acct, owner := f.funded(t, 50)

	require.ErrorIs(t, f.m.Deposit(f.ctx, acct, owner, 0), ErrInvalidAmount)
	require.ErrorIs(t, f.m.Deposit(f.ctx, acct, owner, params.MaxDepositAmount), ErrInvalidAmount)
	require.ErrorIs(t, f.m.Deposit(f.ctx, acct, owner, 51), ErrInsufficientPublicBalance)

	// Raced past the local check, the ledger reports the same class.
	_, err := f.m.Submit(f.ctx, func(b *txbuilder.Builder) {
		b.Add(token.Deposit(acct.Address, acct.Mint, owner.PublicKey(), 51, 2))
	}, owner)
	require.ErrorIs(t, err, ErrInsufficientPublicBalance)

	other := newWallet(t)
	bare, err := f.m.Create(f.ctx, other, f.mint)
	require.NoError(t, err)
	require.ErrorIs(t, f.m.Deposit(f.ctx, bare, other, 1), ErrAccountNotConfigured)
}

func TestConfirmByID(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	acct, owner := f.funded(t, 50)

	conf, err := f.m.Submit(f.ctx, func(b *txbuilder.Builder) {
		b.Add(token.Deposit(acct.Address, acct.Mint, owner.PublicKey(), 51, 2))
	}, owner)
	require.ErrorIs(t, err, ErrInsufficientPublicBalance)

	again, err := f.m.Confirm(f.ctx, conf.ID)
	require.ErrorIs(t, err, ErrInsufficientPublicBalance)
	require.Equal(t, conf.Receipt.Slot, again.Receipt.Slot)
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	acct, owner := f.funded(t, 100)
	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, 100))
	_, err := f.m.ApplyPendingBalance(f.ctx, acct, owner)
	require.NoError(t, err)

	require.NoError(t, f.m.Withdraw(f.ctx, acct, owner, 25))
	b := f.balances(t, acct, owner)
	require.Equal(t, uint64(25), b.Public)
	require.Equal(t, uint64(75), b.Available)
	require.Equal(t, uint64(75), f.elgamalAvailable(t, acct, owner))

	require.ErrorIs(t, f.m.Withdraw(f.ctx, acct, owner, 76), ErrProofGeneration)
	require.ErrorIs(t, f.m.Withdraw(f.ctx, acct, owner, 0), ErrInvalidAmount)
}

func TestManualApproval(t *testing.T) {
	f := newFixture(t, fixtureOpts{manualApproval: true})
	acct, owner := f.funded(t, 20)

	err := f.m.Deposit(f.ctx, acct, owner, 5)
	require.ErrorIs(t, err, ErrAccountNotApproved)

	require.Error(t, f.m.ApproveAccount(f.ctx, acct, owner))
	require.NoError(t, f.m.ApproveAccount(f.ctx, acct, f.authority))
	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, 5))
}

func TestCreditFlags(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	acct, owner := f.funded(t, 20)

	require.NoError(t, f.m.DisableConfidentialCredits(f.ctx, acct, owner))
	require.ErrorIs(t, f.m.Deposit(f.ctx, acct, owner, 5), ErrCreditsDisabled)
	require.NoError(t, f.m.EnableConfidentialCredits(f.ctx, acct, owner))
	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, 5))

	require.NoError(t, f.m.DisableNonConfidentialCredits(f.ctx, acct, owner))
	require.Error(t, f.ledger.MintTo(f.ctx, f.mint, acct.Address, 1))
	require.NoError(t, f.m.EnableNonConfidentialCredits(f.ctx, acct, owner))
	require.NoError(t, f.ledger.MintTo(f.ctx, f.mint, acct.Address, 1))
}

func TestEstimateCompute(t *testing.T) {
	f := newFixture(t, fixtureOpts{estimate: true})
	acct, owner := f.funded(t, 10)
	require.NoError(t, f.m.Deposit(f.ctx, acct, owner, 10))
	_, err := f.m.ApplyPendingBalance(f.ctx, acct, owner)
	require.NoError(t, err)
}

func TestClassify(t *testing.T) {
	err := classify(&types.InstructionError{Code: uint32(token.ErrPendingBalanceCounterMismatch)})
	require.ErrorIs(t, err, ErrStaleSnapshot)
	var ie *types.InstructionError
	require.True(t, errors.As(err, &ie))

	err = classify(&types.InstructionError{Code: uint32(token.ErrProofVerificationFailed)})
	require.ErrorIs(t, err, ErrTransferRejected)

	unknown := &types.InstructionError{Code: uint32(token.ErrComputeBudgetExceeded)}
	require.Equal(t, error(unknown), classify(unknown))
	plain := errors.New("boom")
	require.Equal(t, plain, classify(plain))
}

func TestAccountLocker(t *testing.T) {
	l := NewAccountLocker()
	addr := common.Address{1}

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(addr)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	require.Equal(t, 16, counter)
	require.Zero(t, l.Len())

	unlock := l.Lock(addr)
	other := l.Lock(common.Address{2})
	require.Equal(t, 2, l.Len())
	unlock()
	other()
	require.Zero(t, l.Len())
}
