// Package confidential drives token accounts through the confidential
// balance lifecycle: creation, configuration, deposits into the pending
// balance, applying pending credits, transfers and withdrawals.
//
// Operations on one account must be serialized by the caller (see
// AccountLocker). Concurrent applies are still safe: the ledger rejects the
// loser with ErrStaleSnapshot.
package confidential

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/balance"
	"github.com/tos-network/ctoken/core/keymaterial"
	"github.com/tos-network/ctoken/core/submitter"
	"github.com/tos-network/ctoken/core/txbuilder"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/core/zkproof"
	"github.com/tos-network/ctoken/crypto/aekey"
	"github.com/tos-network/ctoken/params"
	"github.com/tos-network/ctoken/token"
)

// Config wires a Manager to its ledger.
type Config struct {
	Backend  submitter.Backend
	FeePayer types.MessageSigner
	Logger   log.Logger

	// MaxPendingCredits is written into accounts at configure time. Zero
	// selects params.DefaultMaxPendingBalanceCreditCounter.
	MaxPendingCredits uint64

	MaxBundleSize    int
	ComputeUnitPrice uint64

	// EstimateCompute simulates every bundle before sending it and sizes
	// its compute unit limit from the result.
	EstimateCompute bool

	Submitter submitter.Config
}

type Manager struct {
	cfg      Config
	pipeline *submitter.Pipeline
	log      log.Logger
}

func New(cfg Config) (*Manager, error) {
	if cfg.Backend == nil {
		return nil, errors.New("confidential: no backend")
	}
	if cfg.FeePayer == nil {
		return nil, errors.New("confidential: no fee payer")
	}
	if cfg.MaxPendingCredits == 0 {
		cfg.MaxPendingCredits = params.DefaultMaxPendingBalanceCreditCounter
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New("module", "confidential")
	}
	return &Manager{
		cfg:      cfg,
		pipeline: submitter.New(cfg.Backend, cfg.Submitter),
		log:      logger,
	}, nil
}

// Pipeline exposes the submission pipeline the manager sends through.
func (m *Manager) Pipeline() *submitter.Pipeline { return m.pipeline }

func (m *Manager) payer() common.Address { return m.cfg.FeePayer.PublicKey() }

// Snapshot reads and decodes an account. Unknown addresses yield an
// Uninitialized snapshot rather than an error.
func (m *Manager) Snapshot(ctx context.Context, addr common.Address) (*Snapshot, error) {
	info, err := m.pipeline.Account(ctx, addr)
	if errors.Is(err, types.ErrAccountNotFound) {
		return &Snapshot{Address: addr, State: Uninitialized}, nil
	}
	if err != nil {
		return nil, err
	}
	snap, err := decodeSnapshot(info)
	if err != nil {
		return nil, fmt.Errorf("%w: account %v: %v", ErrDecode, addr, err)
	}
	return snap, nil
}

// Open returns a handle on the associated token account of owner for mint,
// with its state read from the ledger.
func (m *Manager) Open(ctx context.Context, owner, mint common.Address) (*Account, error) {
	acct := &Account{Address: token.DeriveAccountAddress(owner, mint), Owner: owner, Mint: mint}
	snap, err := m.Snapshot(ctx, acct.Address)
	if err != nil {
		return nil, err
	}
	acct.State = snap.State
	return acct, nil
}

// configured reads acct and requires its confidential extension.
func (m *Manager) configured(ctx context.Context, acct *Account) (*Snapshot, error) {
	snap, err := m.Snapshot(ctx, acct.Address)
	if err != nil {
		return nil, err
	}
	if snap.Confidential == nil {
		return nil, fmt.Errorf("%w: %v is %s", ErrAccountNotConfigured, acct.Address, snap.State)
	}
	acct.State = snap.State
	return snap, nil
}

func (m *Manager) decimals(ctx context.Context, mint common.Address) (uint8, error) {
	info, err := m.pipeline.Account(ctx, mint)
	if errors.Is(err, types.ErrAccountNotFound) {
		return 0, fmt.Errorf("%w: mint %v", ErrAccountNotFound, mint)
	}
	if err != nil {
		return 0, err
	}
	mt, err := token.UnpackMint(info.Data)
	if err != nil {
		return 0, fmt.Errorf("%w: mint %v: %v", ErrDecode, mint, err)
	}
	return mt.Decimals, nil
}

func deriveKeys(controller keymaterial.Signer, acct *Account) (*keymaterial.KeyMaterial, error) {
	if controller == nil || controller.PublicKey() != acct.Owner {
		return nil, fmt.Errorf("%w: controller does not own %v", ErrKeyDerivation, acct.Address)
	}
	return keymaterial.Derive(controller, acct.Address)
}

// requireSigner rejects a missing signer before anything is built or sent.
func requireSigner(s types.MessageSigner, role string) error {
	if s == nil {
		return fmt.Errorf("%w: no %s signer", ErrKeyDerivation, role)
	}
	return nil
}

func proofError(err error) error {
	if errors.Is(err, ErrProofGeneration) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrProofGeneration, err)
}

// Create creates the associated token account of owner for mint and
// reallocates it to hold the confidential extension.
func (m *Manager) Create(ctx context.Context, owner keymaterial.Signer, mint common.Address) (*Account, error) {
	return m.create(ctx, owner, mint, true)
}

// CreateBaseOnly creates the account without extension space. Such an
// account cannot be configured.
func (m *Manager) CreateBaseOnly(ctx context.Context, owner keymaterial.Signer, mint common.Address) (*Account, error) {
	return m.create(ctx, owner, mint, false)
}

func (m *Manager) create(ctx context.Context, owner keymaterial.Signer, mint common.Address, withExtension bool) (*Account, error) {
	acct, err := m.fresh(ctx, owner, mint)
	if err != nil {
		return nil, err
	}
	payer := m.payer()
	conf, err := m.send(ctx, func(b *txbuilder.Builder) {
		b.Add(token.CreateAssociatedAccount(payer, acct.Owner, mint))
		if withExtension {
			b.Add(token.Reallocate(acct.Address, payer, acct.Owner, token.ExtensionConfidentialTransferAccount))
		}
	}, owner)
	if err != nil {
		return nil, err
	}
	acct.State = Created
	if withExtension {
		acct.State = Reallocated
	}
	m.log.Info("Created token account", "account", acct.Address, "owner", acct.Owner, "mint", mint, "state", acct.State, "slot", conf.Receipt.Slot)
	return acct, nil
}

// fresh returns a handle for an account that must not exist yet.
func (m *Manager) fresh(ctx context.Context, owner keymaterial.Signer, mint common.Address) (*Account, error) {
	if owner == nil {
		return nil, fmt.Errorf("%w: no owner", ErrKeyDerivation)
	}
	acct := &Account{Address: token.DeriveAccountAddress(owner.PublicKey(), mint), Owner: owner.PublicKey(), Mint: mint}
	snap, err := m.Snapshot(ctx, acct.Address)
	if err != nil {
		return nil, err
	}
	if snap.State != Uninitialized {
		return nil, fmt.Errorf("%w: %v", ErrAccountAlreadyExists, acct.Address)
	}
	return acct, nil
}

func (m *Manager) configureOp(acct *Account, km *keymaterial.KeyMaterial) (*token.ConfigureAccount, zkproof.ProofData, error) {
	zero, err := balance.Seal(km.AE, 0)
	if err != nil {
		return nil, nil, err
	}
	proof, err := zkproof.NewPubkeyValidityData(km.ElGamal)
	if err != nil {
		return nil, nil, proofError(err)
	}
	return &token.ConfigureAccount{
		Account:                acct.Address,
		Mint:                   acct.Mint,
		Owner:                  acct.Owner,
		ElGamalPubkey:          km.ElGamal.PublicKey(),
		DecryptableZeroBalance: zero,
		MaxPendingCredits:      m.cfg.MaxPendingCredits,
	}, proof, nil
}

// Configure installs the confidential extension on a reallocated account,
// keyed to the controller's derived key material.
func (m *Manager) Configure(ctx context.Context, acct *Account, controller keymaterial.Signer) error {
	snap, err := m.Snapshot(ctx, acct.Address)
	if err != nil {
		return err
	}
	switch snap.State {
	case Reallocated:
	case Uninitialized, Created:
		return fmt.Errorf("%w: %v is %s, no extension space", ErrNotConfigurable, acct.Address, snap.State)
	default:
		return fmt.Errorf("%w: %v already configured", ErrNotConfigurable, acct.Address)
	}
	km, err := deriveKeys(controller, acct)
	if err != nil {
		return err
	}
	op, proof, err := m.configureOp(acct, km)
	if err != nil {
		return err
	}
	conf, err := m.send(ctx, func(b *txbuilder.Builder) { b.AddWithProofs(op, proof) }, controller)
	if err != nil {
		return err
	}
	acct.State = Configured
	m.log.Info("Configured confidential account", "account", acct.Address, "maxCredits", op.MaxPendingCredits, "slot", conf.Receipt.Slot)
	return nil
}

// CreateAndConfigure creates, reallocates and configures an account in a
// single bundle.
func (m *Manager) CreateAndConfigure(ctx context.Context, owner keymaterial.Signer, mint common.Address) (*Account, error) {
	acct, err := m.fresh(ctx, owner, mint)
	if err != nil {
		return nil, err
	}
	km, err := deriveKeys(owner, acct)
	if err != nil {
		return nil, err
	}
	op, proof, err := m.configureOp(acct, km)
	if err != nil {
		return nil, err
	}
	payer := m.payer()
	conf, err := m.send(ctx, func(b *txbuilder.Builder) {
		b.Add(token.CreateAssociatedAccount(payer, acct.Owner, mint)).
			Add(token.Reallocate(acct.Address, payer, acct.Owner, token.ExtensionConfidentialTransferAccount)).
			AddWithProofs(op, proof)
	}, owner)
	if err != nil {
		return nil, err
	}
	acct.State = Configured
	m.log.Info("Created confidential account", "account", acct.Address, "owner", acct.Owner, "mint", mint, "slot", conf.Receipt.Slot)
	return acct, nil
}

// ApproveAccount approves acct for confidential transfers on a mint that
// does not auto-approve. authority must be the mint's confidential
// authority.
func (m *Manager) ApproveAccount(ctx context.Context, acct *Account, authority types.MessageSigner) error {
	if err := requireSigner(authority, "authority"); err != nil {
		return err
	}
	if _, err := m.configured(ctx, acct); err != nil {
		return err
	}
	_, err := m.send(ctx, func(b *txbuilder.Builder) {
		b.Add(token.ApproveAccount(acct.Address, acct.Mint, authority.PublicKey()))
	}, authority)
	if err != nil {
		return err
	}
	m.log.Info("Approved confidential account", "account", acct.Address, "authority", authority.PublicKey())
	return nil
}

// Deposit moves amount from the public balance into the pending balance.
// A deposit that would leave the pending balance beyond what the owner can
// decrypt is refused with ErrPendingBalanceLimit.
func (m *Manager) Deposit(ctx context.Context, acct *Account, owner types.MessageSigner, amount uint64) error {
	if err := requireSigner(owner, "owner"); err != nil {
		return err
	}
	if amount == 0 || amount >= params.MaxDepositAmount {
		return fmt.Errorf("%w: deposit of %d", ErrInvalidAmount, amount)
	}
	snap, err := m.configured(ctx, acct)
	if err != nil {
		return err
	}
	if snap.Token.Amount < amount {
		return fmt.Errorf("%w: have %d, want %d", ErrInsufficientPublicBalance, snap.Token.Amount, amount)
	}
	ext := snap.Confidential
	if ext.PendingBalanceCreditCounter >= ext.MaxPendingBalanceCredits {
		return fmt.Errorf("%w: %d/%d", ErrPendingCreditCounterExceeded, ext.PendingBalanceCreditCounter, ext.MaxPendingBalanceCredits)
	}
	if ext.PendingBalanceCreditCounter > 0 {
		km, err := deriveKeys(owner, acct)
		if err != nil {
			return err
		}
		hi, err := balance.PendingHi(km.ElGamal, ext.PendingBalanceHi)
		if err != nil {
			return err
		}
		if hi+amount>>params.PendingBalanceLoBits > params.MaxPendingBalanceHi {
			return fmt.Errorf("%w: pending high half %d, deposit %d", ErrPendingBalanceLimit, hi, amount)
		}
	}
	decimals, err := m.decimals(ctx, acct.Mint)
	if err != nil {
		return err
	}
	conf, err := m.send(ctx, func(b *txbuilder.Builder) {
		b.Add(token.Deposit(acct.Address, acct.Mint, owner.PublicKey(), amount, decimals))
	}, owner)
	if err != nil {
		return err
	}
	acct.State = Active
	m.log.Info("Confidential deposit confirmed", "account", acct.Address, "amount", amount, "credits", ext.PendingBalanceCreditCounter+1, "slot", conf.Receipt.Slot)
	return nil
}

// PendingApply is an apply computed against one snapshot of the pending
// balance.
type PendingApply struct {
	Account         common.Address
	Owner           common.Address
	ExpectedCounter uint64
	ExpectedVersion uint64
	Pending         uint64
	NewAvailable    uint64
	NewDecryptable  aekey.Ciphertext
}

// PrepareApply decrypts the pending and available balances and seals their
// sum for the owner.
func (m *Manager) PrepareApply(ctx context.Context, acct *Account, controller keymaterial.Signer) (*PendingApply, error) {
	snap, err := m.configured(ctx, acct)
	if err != nil {
		return nil, err
	}
	km, err := deriveKeys(controller, acct)
	if err != nil {
		return nil, err
	}
	ext := snap.Confidential
	pending, err := balance.PendingTotal(km.ElGamal, ext.PendingBalanceLo, ext.PendingBalanceHi)
	if err != nil {
		return nil, err
	}
	available, err := balance.Open(km.AE, ext.DecryptableAvailableBalance)
	if err != nil {
		return nil, err
	}
	total := available + pending
	if total < available {
		return nil, fmt.Errorf("%w: available balance overflows", ErrDecode)
	}
	sealed, err := balance.Seal(km.AE, total)
	if err != nil {
		return nil, err
	}
	return &PendingApply{
		Account:         acct.Address,
		Owner:           acct.Owner,
		ExpectedCounter: ext.PendingBalanceCreditCounter,
		ExpectedVersion: ext.PendingBalanceVersion,
		Pending:         pending,
		NewAvailable:    total,
		NewDecryptable:  sealed,
	}, nil
}

// SubmitApply sends a prepared apply. If the pending balance changed after
// it was prepared, even if the credit counter came back to the same value,
// the ledger rejects it with ErrStaleSnapshot.
func (m *Manager) SubmitApply(ctx context.Context, apply *PendingApply, controller types.MessageSigner) error {
	conf, err := m.send(ctx, func(b *txbuilder.Builder) {
		b.Add(token.ApplyPendingBalance(apply.Account, apply.Owner, apply.ExpectedCounter, apply.ExpectedVersion, apply.NewDecryptable))
	}, controller)
	if err != nil {
		return err
	}
	m.log.Info("Applied pending balance", "account", apply.Account, "credits", apply.ExpectedCounter, "slot", conf.Receipt.Slot)
	return nil
}

// ApplyPendingBalance folds the pending balance into the available balance
// and returns the new available amount.
func (m *Manager) ApplyPendingBalance(ctx context.Context, acct *Account, controller keymaterial.Signer) (uint64, error) {
	apply, err := m.PrepareApply(ctx, acct, controller)
	if err != nil {
		return 0, err
	}
	if err := m.SubmitApply(ctx, apply, controller); err != nil {
		return 0, err
	}
	return apply.NewAvailable, nil
}

// Transfer moves amount from the available balance of from to the pending
// balance of the account at to.
func (m *Manager) Transfer(ctx context.Context, from *Account, to common.Address, controller keymaterial.Signer, amount uint64) error {
	if amount == 0 || amount >= params.MaxDepositAmount {
		return fmt.Errorf("%w: transfer of %d", ErrInvalidAmount, amount)
	}
	src, err := m.configured(ctx, from)
	if err != nil {
		return err
	}
	dst, err := m.Snapshot(ctx, to)
	if err != nil {
		return err
	}
	if dst.Confidential == nil {
		return fmt.Errorf("%w: destination %v is %s", ErrAccountNotConfigured, to, dst.State)
	}
	km, err := deriveKeys(controller, from)
	if err != nil {
		return err
	}
	available, err := balance.Open(km.AE, src.Confidential.DecryptableAvailableBalance)
	if err != nil {
		return err
	}
	proofs, err := zkproof.BuildTransferProofs(zkproof.TransferArgs{
		Source:                  km.ElGamal,
		DestinationPubkey:       dst.Confidential.ElGamalPubkey,
		CurrentAvailable:        src.Confidential.AvailableBalance,
		CurrentAvailableBalance: available,
		Amount:                  amount,
	})
	if err != nil {
		return proofError(err)
	}
	sealed, err := balance.Seal(km.AE, proofs.NewAvailableBalance)
	if err != nil {
		return err
	}
	op := &token.Transfer{
		Source:                               from.Address,
		Mint:                                 from.Mint,
		Destination:                          to,
		Owner:                                from.Owner,
		NewSourceDecryptableAvailableBalance: sealed,
	}
	conf, err := m.send(ctx, func(b *txbuilder.Builder) {
		b.AddWithProofs(op, proofs.Equality, proofs.ValidityLo, proofs.ValidityHi, proofs.Range)
	}, controller)
	if err != nil {
		return err
	}
	m.log.Info("Confidential transfer confirmed", "from", from.Address, "to", to, "slot", conf.Receipt.Slot, "units", conf.Receipt.ComputeUnits)
	return nil
}

// Withdraw moves amount from the available balance back to the public
// balance.
func (m *Manager) Withdraw(ctx context.Context, acct *Account, controller keymaterial.Signer, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: withdrawal of 0", ErrInvalidAmount)
	}
	snap, err := m.configured(ctx, acct)
	if err != nil {
		return err
	}
	km, err := deriveKeys(controller, acct)
	if err != nil {
		return err
	}
	available, err := balance.Open(km.AE, snap.Confidential.DecryptableAvailableBalance)
	if err != nil {
		return err
	}
	proofs, err := zkproof.BuildWithdrawProofs(zkproof.WithdrawArgs{
		Keypair:                 km.ElGamal,
		CurrentAvailable:        snap.Confidential.AvailableBalance,
		CurrentAvailableBalance: available,
		Amount:                  amount,
	})
	if err != nil {
		return proofError(err)
	}
	sealed, err := balance.Seal(km.AE, proofs.NewAvailableBalance)
	if err != nil {
		return err
	}
	decimals, err := m.decimals(ctx, acct.Mint)
	if err != nil {
		return err
	}
	op := &token.Withdraw{
		Account:                        acct.Address,
		Mint:                           acct.Mint,
		Owner:                          acct.Owner,
		Amount:                         amount,
		Decimals:                       decimals,
		NewDecryptableAvailableBalance: sealed,
	}
	conf, err := m.send(ctx, func(b *txbuilder.Builder) {
		b.AddWithProofs(op, proofs.Equality, proofs.Range)
	}, controller)
	if err != nil {
		return err
	}
	m.log.Info("Confidential withdrawal confirmed", "account", acct.Address, "amount", amount, "slot", conf.Receipt.Slot)
	return nil
}

// Balances is the owner's decrypted view of an account.
type Balances struct {
	Public            uint64
	Pending           uint64
	Available         uint64
	PendingCredits    uint64
	MaxPendingCredits uint64

	// Slot is the ledger slot the account was read at.
	Slot uint64
}

// Balances decrypts the pending and available balances of acct.
func (m *Manager) Balances(ctx context.Context, acct *Account, controller keymaterial.Signer) (*Balances, error) {
	snap, err := m.configured(ctx, acct)
	if err != nil {
		return nil, err
	}
	km, err := deriveKeys(controller, acct)
	if err != nil {
		return nil, err
	}
	ext := snap.Confidential
	pending, err := balance.PendingTotal(km.ElGamal, ext.PendingBalanceLo, ext.PendingBalanceHi)
	if err != nil {
		return nil, err
	}
	available, err := balance.Open(km.AE, ext.DecryptableAvailableBalance)
	if err != nil {
		return nil, err
	}
	return &Balances{
		Public:            snap.Token.Amount,
		Pending:           pending,
		Available:         available,
		PendingCredits:    ext.PendingBalanceCreditCounter,
		MaxPendingCredits: ext.MaxPendingBalanceCredits,
		Slot:              snap.Slot,
	}, nil
}

func (m *Manager) EnableConfidentialCredits(ctx context.Context, acct *Account, owner types.MessageSigner) error {
	return m.setCredits(ctx, acct, owner, token.EnableConfidentialCredits(acct.Address, acct.Owner))
}

func (m *Manager) DisableConfidentialCredits(ctx context.Context, acct *Account, owner types.MessageSigner) error {
	return m.setCredits(ctx, acct, owner, token.DisableConfidentialCredits(acct.Address, acct.Owner))
}

func (m *Manager) EnableNonConfidentialCredits(ctx context.Context, acct *Account, owner types.MessageSigner) error {
	return m.setCredits(ctx, acct, owner, token.EnableNonConfidentialCredits(acct.Address, acct.Owner))
}

func (m *Manager) DisableNonConfidentialCredits(ctx context.Context, acct *Account, owner types.MessageSigner) error {
	return m.setCredits(ctx, acct, owner, token.DisableNonConfidentialCredits(acct.Address, acct.Owner))
}

func (m *Manager) setCredits(ctx context.Context, acct *Account, owner types.MessageSigner, ix types.Instruction) error {
	if err := requireSigner(owner, "owner"); err != nil {
		return err
	}
	if _, err := m.configured(ctx, acct); err != nil {
		return err
	}
	_, err := m.send(ctx, func(b *txbuilder.Builder) { b.Add(ix) }, owner)
	return err
}

// Submit assembles a custom bundle, pays for it from the fee payer and
// classifies any failure like the built-in operations do.
func (m *Manager) Submit(ctx context.Context, build func(*txbuilder.Builder), signers ...types.MessageSigner) (*submitter.Confirmation, error) {
	return m.send(ctx, build, signers...)
}

// Confirm fetches the outcome of a bundle whose earlier submission ended in
// a *submitter.UnconfirmedError.
func (m *Manager) Confirm(ctx context.Context, id common.Signature) (*submitter.Confirmation, error) {
	conf, err := m.pipeline.Confirm(ctx, id)
	if err != nil {
		return conf, classify(err)
	}
	return conf, nil
}

func (m *Manager) builderOptions() []txbuilder.Option {
	var opts []txbuilder.Option
	if m.cfg.MaxBundleSize > 0 {
		opts = append(opts, txbuilder.WithMaxBundleSize(m.cfg.MaxBundleSize))
	}
	if m.cfg.ComputeUnitPrice > 0 {
		opts = append(opts, txbuilder.WithComputeUnitPrice(m.cfg.ComputeUnitPrice))
	}
	return opts
}

// estimate dry-runs the bundle and returns a compute unit limit with some
// headroom. Zero means no estimate is available.
func (m *Manager) estimate(ctx context.Context, build func(*txbuilder.Builder)) uint32 {
	b := txbuilder.New(m.builderOptions()...)
	build(b)
	bundle, err := b.Build(m.payer(), common.Hash{})
	if err != nil {
		return 0
	}
	est, err := m.pipeline.Simulate(ctx, bundle)
	if err != nil || est.Err != nil {
		m.log.Debug("Compute estimate unavailable", "err", err)
		return 0
	}
	units := est.ComputeUnits + est.ComputeUnits/10 + params.BaseInstructionCost
	if units > params.ComputeUnitLimitMax {
		units = params.ComputeUnitLimitMax
	}
	return uint32(units)
}

func (m *Manager) send(ctx context.Context, build func(*txbuilder.Builder), signers ...types.MessageSigner) (*submitter.Confirmation, error) {
	opts := m.builderOptions()
	if m.cfg.EstimateCompute {
		if units := m.estimate(ctx, build); units > 0 {
			opts = append(opts, txbuilder.WithComputeUnitLimit(units))
		}
	}
	checkpoint, err := m.pipeline.Checkpoint(ctx)
	if err != nil {
		return nil, err
	}
	b := txbuilder.New(opts...)
	build(b)
	bundle, err := b.Build(m.payer(), checkpoint)
	if err != nil {
		return nil, err
	}
	conf, err := m.pipeline.Submit(ctx, bundle, append([]types.MessageSigner{m.cfg.FeePayer}, signers...)...)
	if err != nil {
		return conf, classify(err)
	}
	return conf, nil
}
