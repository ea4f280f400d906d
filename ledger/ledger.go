// Package ledger is an in-process reference ledger for confidential token
// bundles. It runs the token, associated account, proof verification,
// compute budget, memo and system programs against a tosdb account store,
// executes each bundle atomically and pins bundles to a window of recent
// checkpoints.
package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tos-network/ctoken/accounts/wallet"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/params"
	"github.com/tos-network/ctoken/token"
	"github.com/tos-network/ctoken/tosdb"
	"github.com/tos-network/ctoken/tosdb/leveldb"
	"github.com/tos-network/ctoken/tosdb/memorydb"
	"lukechampine.com/blake3"
)

var (
	ErrCheckpointNotFound = errors.New("ledger: checkpoint not found or expired")
	ErrAlreadyProcessed   = types.ErrAlreadyProcessed
	ErrBundleTooLarge     = types.ErrBundleTooLarge
	ErrInsufficientFee    = errors.New("ledger: fee payer cannot cover fee")
	ErrInvalidBudget      = errors.New("ledger: invalid compute budget")
)

// Ledger executes bundles one at a time.
type Ledger struct {
	cfg      Config
	db       tosdb.KeyValueStore
	registry *Registry

	mu       sync.Mutex
	slot     uint64
	head     common.Hash
	recent   *lru.Cache    // checkpoint -> slot
	receipts *lru.ARCCache // bundle id -> *types.Receipt

	reg     *prometheus.Registry
	metrics *metrics
	log     log.Logger
}

// Open creates a ledger on the configured data directory, or in memory if
// none is set.
func Open(cfg Config) (*Ledger, error) {
	var db tosdb.KeyValueStore
	if cfg.DataDir == "" {
		db = memorydb.New()
	} else {
		ldb, err := leveldb.New(cfg.DataDir, cfg.DatabaseCache, 0, false)
		if err != nil {
			return nil, err
		}
		db = ldb
	}
	return New(cfg, db, DefaultRegistry())
}

// New creates a ledger over db with the given programs.
func New(cfg Config, db tosdb.KeyValueStore, registry *Registry) (*Ledger, error) {
	cfg = cfg.sanitize()
	recent, err := lru.New(cfg.CheckpointWindow)
	if err != nil {
		return nil, err
	}
	receipts, err := lru.NewARC(cfg.ReceiptCacheSize)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	l := &Ledger{
		cfg:      cfg,
		db:       db,
		registry: registry,
		recent:   recent,
		receipts: receipts,
		reg:      reg,
		metrics:  newMetrics(reg),
		log:      log.New("module", "ledger"),
	}
	l.head = common.Hash(blake3.Sum256([]byte("ctoken/genesis")))
	l.recent.Add(l.head, l.slot)
	return l, nil
}

// Close releases the account store.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Registry exposes the ledger's prometheus registry.
func (l *Ledger) Registry() *prometheus.Registry { return l.reg }

func (l *Ledger) Config() Config { return l.cfg }

func (l *Ledger) Slot() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slot
}

// advance moves to the next slot, deriving its checkpoint from the previous
// one and the bundle that closed it. Callers hold l.mu.
func (l *Ledger) advance(seed []byte) {
	l.slot++
	var enc [8]byte
	binary.BigEndian.PutUint64(enc[:], l.slot)
	h := blake3.New(32, nil)
	h.Write(l.head[:])
	h.Write(enc[:])
	h.Write(seed)
	copy(l.head[:], h.Sum(nil))
	l.recent.Add(l.head, l.slot)
	l.metrics.slot.Set(float64(l.slot))
}

// AdvanceSlot closes the current slot without a bundle.
func (l *Ledger) AdvanceSlot() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advance(nil)
}

func (l *Ledger) LatestCheckpoint(ctx context.Context) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head, nil
}

func (l *Ledger) GetAccount(ctx context.Context, addr common.Address) (*types.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, err := dbReader{l.db}.account(addr)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, types.ErrAccountNotFound
	}
	info := rec.info(addr)
	info.Slot = l.slot
	return info, nil
}

func (l *Ledger) RentExemptMinimum(ctx context.Context, size uint64) (uint64, error) {
	return params.RentExemptMinimum(size), nil
}

// ConfirmBundle returns the receipt of a processed bundle. Execution is
// synchronous, so a bundle that was accepted is already final.
func (l *Ledger) ConfirmBundle(ctx context.Context, id common.Signature) (*types.Receipt, error) {
	if v, ok := l.receipts.Get(id); ok {
		return v.(*types.Receipt), nil
	}
	return nil, types.ErrBundleNotFound
}

// budget is what the compute budget instructions of a bundle request.
type budget struct {
	limit uint64
	price uint64
}

func (l *Ledger) readBudget(b *types.Bundle) (budget, error) {
	out := budget{limit: l.cfg.ComputeUnitLimit}
	for _, ix := range b.Instructions {
		if ix.Program != params.ComputeBudgetProgramID {
			continue
		}
		tag, v, err := token.DecodeComputeBudget(ix.Data)
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrInvalidBudget, err)
		}
		switch tag {
		case token.BudgetSetComputeUnitLimit:
			if v > params.ComputeUnitLimitMax {
				v = params.ComputeUnitLimitMax
			}
			out.limit = v
		case token.BudgetSetComputeUnitPrice:
			out.price = v
		}
	}
	return out, nil
}

func (l *Ledger) fee(b *types.Bundle, bud budget) uint64 {
	return uint64(len(b.RequiredSigners()))*l.cfg.LamportsPerSignature + bud.price*bud.limit/params.MicroLamportsPerLamport
}

func (l *Ledger) checkShape(b *types.Bundle) error {
	if len(b.Instructions) == 0 {
		return types.ErrEmptyBundle
	}
	if len(b.Instructions) > l.cfg.MaxInstructions {
		return fmt.Errorf("%w: %d instructions", ErrBundleTooLarge, len(b.Instructions))
	}
	size, err := b.Size()
	if err != nil {
		return err
	}
	if size > l.cfg.MaxBundleSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrBundleTooLarge, size, l.cfg.MaxBundleSize)
	}
	return nil
}

// chargeFee debits the fee payer inside base.
func chargeFee(base *overlay, payer common.Address, fee uint64) error {
	rec, err := base.account(payer)
	if err != nil {
		return err
	}
	if rec == nil || rec.Lamports < fee {
		return ErrInsufficientFee
	}
	rec.Lamports -= fee
	base.set(payer, rec)
	return nil
}

type execResult struct {
	units uint64
	err   *types.InstructionError
	logs  []string
}

// execute runs every instruction against a child of base and merges the
// child back only if all of them succeed.
func (l *Ledger) execute(b *types.Bundle, base *overlay, limit uint64) *execResult {
	state := newOverlay(base)
	res := new(execResult)
	for i := range b.Instructions {
		ix := &b.Instructions[i]
		prog, ok := l.registry.Lookup(ix.Program)
		if !ok {
			res.err = &types.InstructionError{Index: uint8(i), Program: ix.Program.String(), Code: uint32(token.ErrInvalidInstruction), Message: "unknown program"}
			return res
		}
		ctx := &InvokeContext{Index: i, Ix: ix, Bundle: b, state: state}
		ctx.Consume(params.BaseInstructionCost)
		res.logs = append(res.logs, fmt.Sprintf("Program %s invoke [%d]", prog.Name(), i))
		err := prog.Execute(ctx)
		res.units += ctx.units
		res.logs = append(res.logs, ctx.logs...)
		if err == nil && res.units > limit {
			err = token.ErrComputeBudgetExceeded
		}
		if err != nil {
			res.err = instructionError(i, prog.Name(), err)
			res.logs = append(res.logs, fmt.Sprintf("Program %s failed: %v", prog.Name(), err))
			return res
		}
		res.logs = append(res.logs, fmt.Sprintf("Program %s success", prog.Name()))
	}
	state.mergeInto(base)
	return res
}

func instructionError(index int, program string, err error) *types.InstructionError {
	ie := &types.InstructionError{Index: uint8(index), Program: program, Message: err.Error()}
	var code token.Error
	if errors.As(err, &code) {
		ie.Code = uint32(code)
	} else {
		ie.Code = uint32(token.ErrInvalidInstruction)
	}
	return ie
}

// SendBundle verifies and executes b. Bundles that pass the signature,
// checkpoint and fee checks are charged and recorded even when an
// instruction fails; the failure is reported in the receipt.
func (l *Ledger) SendBundle(ctx context.Context, b *types.Bundle) (common.Signature, error) {
	if err := l.checkShape(b); err != nil {
		return common.Signature{}, err
	}
	if err := b.VerifySignatures(wallet.Verify); err != nil {
		return common.Signature{}, err
	}
	id := b.ID()

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.recent.Contains(b.Checkpoint) {
		return id, ErrCheckpointNotFound
	}
	if l.receipts.Contains(id) {
		return id, ErrAlreadyProcessed
	}
	bud, err := l.readBudget(b)
	if err != nil {
		return id, err
	}
	fee := l.fee(b, bud)
	base := newOverlay(dbReader{l.db})
	if err := chargeFee(base, b.FeePayer, fee); err != nil {
		return id, err
	}
	res := l.execute(b, base, bud.limit)
	if err := base.commit(l.db); err != nil {
		return id, err
	}
	l.advance(id[:])
	receipt := &types.Receipt{
		ID:           id,
		Slot:         l.slot,
		Checkpoint:   l.head,
		ComputeUnits: res.units,
		Fee:          fee,
		Err:          res.err,
		Logs:         res.logs,
	}
	l.receipts.Add(id, receipt)

	l.metrics.fees.Add(float64(fee))
	l.metrics.computeUnits.Observe(float64(res.units))
	if res.err != nil {
		l.metrics.bundles.WithLabelValues("failed").Inc()
		l.log.Debug("Bundle failed", "id", id, "slot", l.slot, "err", res.err)
	} else {
		l.metrics.bundles.WithLabelValues("success").Inc()
		l.log.Debug("Bundle executed", "id", id, "slot", l.slot, "units", res.units)
	}
	return id, nil
}

// SimulateBundle executes b without signature or checkpoint checks and
// discards the result.
func (l *Ledger) SimulateBundle(ctx context.Context, b *types.Bundle) (*types.ResourceEstimate, error) {
	if err := l.checkShape(b); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	bud, err := l.readBudget(b)
	if err != nil {
		return nil, err
	}
	fee := l.fee(b, bud)
	base := newOverlay(dbReader{l.db})
	if err := chargeFee(base, b.FeePayer, fee); err != nil {
		return nil, err
	}
	res := l.execute(b, base, params.ComputeUnitLimitMax)
	l.metrics.bundles.WithLabelValues("simulated").Inc()
	return &types.ResourceEstimate{ComputeUnits: res.units, Fee: fee, Err: res.err, Logs: res.logs}, nil
}
