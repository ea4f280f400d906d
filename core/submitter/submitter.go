// Package submitter signs bundles, hands them to a ledger backend and waits
// for their receipts.
package submitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/types"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrSubmission wraps network and admission failures. The bundle may or
	// may not have landed; check before resending.
	ErrSubmission = errors.New("submitter: submission failed")

	// ErrConfirmTimeout indicates no receipt appeared in time.
	ErrConfirmTimeout = errors.New("submitter: confirmation timed out")
)

// Backend is the ledger surface the pipeline needs.
type Backend interface {
	LatestCheckpoint(ctx context.Context) (common.Hash, error)
	SendBundle(ctx context.Context, b *types.Bundle) (common.Signature, error)
	ConfirmBundle(ctx context.Context, id common.Signature) (*types.Receipt, error)
	SimulateBundle(ctx context.Context, b *types.Bundle) (*types.ResourceEstimate, error)
	GetAccount(ctx context.Context, addr common.Address) (*types.AccountInfo, error)
	RentExemptMinimum(ctx context.Context, size uint64) (uint64, error)
}

type Config struct {
	RequestsPerSecond   int
	ConfirmPollInterval time.Duration
	ConfirmTimeout      time.Duration

	// The breaker opens once more than BreakerMinRequests calls were made
	// in an interval and at least BreakerFailingRatio of them failed.
	BreakerMinRequests  uint32
	BreakerFailingRatio float64
	BreakerOpenTimeout  time.Duration

	// Registerer receives the pipeline metrics. Nil keeps them private.
	Registerer prometheus.Registerer `toml:"-"`
}

var DefaultConfig = Config{
	RequestsPerSecond:   50,
	ConfirmPollInterval: 200 * time.Millisecond,
	ConfirmTimeout:      30 * time.Second,
	BreakerMinRequests:  10,
	BreakerFailingRatio: 0.6,
	BreakerOpenTimeout:  30 * time.Second,
}

// Confirmation is the handle returned for a landed bundle.
type Confirmation struct {
	ID      common.Signature
	Receipt *types.Receipt
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	backend Backend
	cfg     Config
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
	group   singleflight.Group
	log     log.Logger

	submitted *prometheus.CounterVec
	latency   prometheus.Histogram
}

func New(backend Backend, cfg Config) *Pipeline {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultConfig.RequestsPerSecond
	}
	if cfg.ConfirmPollInterval <= 0 {
		cfg.ConfirmPollInterval = DefaultConfig.ConfirmPollInterval
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfig.ConfirmTimeout
	}
	if cfg.BreakerMinRequests == 0 {
		cfg.BreakerMinRequests = DefaultConfig.BreakerMinRequests
	}
	if cfg.BreakerFailingRatio <= 0 {
		cfg.BreakerFailingRatio = DefaultConfig.BreakerFailingRatio
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = DefaultConfig.BreakerOpenTimeout
	}
	logger := log.New("module", "submitter")
	p := &Pipeline{
		backend: backend,
		cfg:     cfg,
		limiter: ratelimit.New(cfg.RequestsPerSecond),
		log:     logger,
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctoken",
			Subsystem: "submitter",
			Name:      "bundles_total",
			Help:      "Bundles submitted, by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ctoken",
			Subsystem: "submitter",
			Name:      "confirm_seconds",
			Help:      "Time from send to receipt.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ledger",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests > cfg.BreakerMinRequests && ratio >= cfg.BreakerFailingRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from, "to", to)
		},
	})
	if cfg.Registerer != nil {
		cfg.Registerer.MustRegister(p.submitted, p.latency)
	}
	return p
}

// call runs fn behind the rate limiter and the circuit breaker.
func (p *Pipeline) call(fn func() (interface{}, error)) (interface{}, error) {
	p.limiter.Take()
	return p.cb.Execute(fn)
}

// Checkpoint returns the ledger's latest checkpoint. Concurrent callers share
// one request.
func (p *Pipeline) Checkpoint(ctx context.Context) (common.Hash, error) {
	// The shared fetch outlives whichever caller started it. Each caller
	// still stops waiting when its own ctx ends.
	fetchCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan("checkpoint", func() (interface{}, error) {
		return p.call(func() (interface{}, error) {
			return p.backend.LatestCheckpoint(fetchCtx)
		})
	})
	select {
	case <-ctx.Done():
		return common.Hash{}, fmt.Errorf("%w: checkpoint: %w", ErrSubmission, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return common.Hash{}, fmt.Errorf("%w: checkpoint: %w", ErrSubmission, res.Err)
		}
		return res.Val.(common.Hash), nil
	}
}

// Account fetches a ledger account. Unknown addresses yield
// types.ErrAccountNotFound.
func (p *Pipeline) Account(ctx context.Context, addr common.Address) (*types.AccountInfo, error) {
	v, err := p.call(func() (interface{}, error) {
		info, err := p.backend.GetAccount(ctx, addr)
		if errors.Is(err, types.ErrAccountNotFound) {
			return (*types.AccountInfo)(nil), nil
		}
		return info, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: account %v: %w", ErrSubmission, addr, err)
	}
	info := v.(*types.AccountInfo)
	if info == nil {
		return nil, types.ErrAccountNotFound
	}
	return info, nil
}

func (p *Pipeline) RentExemptMinimum(ctx context.Context, size uint64) (uint64, error) {
	v, err := p.call(func() (interface{}, error) {
		return p.backend.RentExemptMinimum(ctx, size)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: rent: %w", ErrSubmission, err)
	}
	return v.(uint64), nil
}

// Simulate dry-runs an unsigned bundle.
func (p *Pipeline) Simulate(ctx context.Context, b *types.Bundle) (*types.ResourceEstimate, error) {
	v, err := p.call(func() (interface{}, error) {
		return p.backend.SimulateBundle(ctx, b)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: simulate: %w", ErrSubmission, err)
	}
	return v.(*types.ResourceEstimate), nil
}

// UnconfirmedError reports a bundle that was sent but whose receipt did not
// show up. Pass ID to Confirm before resending.
type UnconfirmedError struct {
	ID  common.Signature
	Err error
}

func (e *UnconfirmedError) Error() string {
	return fmt.Sprintf("%v: confirm %v: %v", ErrSubmission, e.ID, e.Err)
}

func (e *UnconfirmedError) Unwrap() []error { return []error{ErrSubmission, e.Err} }

// Submit signs b with signers, sends it and waits for its receipt. A bundle
// that lands but fails in a program returns the confirmation together with
// the receipt's *types.InstructionError. Other failures wrap ErrSubmission.
// Once the bundle was sent the confirmation is returned even on error, so
// its ID is never lost.
func (p *Pipeline) Submit(ctx context.Context, b *types.Bundle, signers ...types.MessageSigner) (*Confirmation, error) {
	if err := b.Sign(signers...); err != nil {
		p.submitted.WithLabelValues("unsigned").Inc()
		return nil, fmt.Errorf("%w: sign: %w", ErrSubmission, err)
	}
	start := time.Now()
	v, err := p.call(func() (interface{}, error) {
		return p.backend.SendBundle(ctx, b)
	})
	var id common.Signature
	switch {
	case err == nil:
		id = v.(common.Signature)
		p.log.Debug("Bundle sent", "id", id, "instructions", len(b.Instructions))
	case errors.Is(err, types.ErrAlreadyProcessed):
		// An earlier send landed. Its receipt is the answer.
		id = b.ID()
		p.log.Debug("Bundle already processed", "id", id)
	default:
		p.submitted.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: send: %w", ErrSubmission, err)
	}
	conf, err := p.Confirm(ctx, id)
	if conf.Receipt != nil {
		p.latency.Observe(time.Since(start).Seconds())
	}
	return conf, err
}

// Confirm waits for the receipt of a bundle sent earlier. The returned
// confirmation is never nil. Without a receipt the error is an
// *UnconfirmedError.
func (p *Pipeline) Confirm(ctx context.Context, id common.Signature) (*Confirmation, error) {
	conf := &Confirmation{ID: id}
	receipt, err := p.confirm(ctx, id)
	if err != nil {
		p.submitted.WithLabelValues("unconfirmed").Inc()
		return conf, &UnconfirmedError{ID: id, Err: err}
	}
	conf.Receipt = receipt
	if receipt.Err != nil {
		p.submitted.WithLabelValues("failed").Inc()
		p.log.Debug("Bundle failed", "id", id, "slot", receipt.Slot, "err", receipt.Err)
		return conf, receipt.Err
	}
	p.submitted.WithLabelValues("confirmed").Inc()
	p.log.Debug("Bundle confirmed", "id", id, "slot", receipt.Slot, "units", receipt.ComputeUnits)
	return conf, nil
}

func (p *Pipeline) confirm(ctx context.Context, id common.Signature) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(p.cfg.ConfirmPollInterval)
	defer ticker.Stop()
	for {
		v, err := p.call(func() (interface{}, error) {
			r, err := p.backend.ConfirmBundle(ctx, id)
			if errors.Is(err, types.ErrBundleNotFound) {
				return (*types.Receipt)(nil), nil
			}
			return r, err
		})
		if err != nil {
			return nil, err
		}
		if r := v.(*types.Receipt); r != nil {
			return r, nil
		}
		select {
		case <-ctx.Done():
			return nil, ErrConfirmTimeout
		case <-ticker.C:
		}
	}
}
