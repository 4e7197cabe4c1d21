package fee

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrz1836/remit/internal/metrics"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// DefaultTimeout bounds a single emulation call.
const DefaultTimeout = 20 * time.Second

// Status is the lifecycle of the current estimate.
type Status int

// Estimate statuses.
const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is the gateway's view of the current key.
type Snapshot struct {
	Key        string
	Generation uint64
	Status     Status
	Estimate   *Estimate
	// Err wraps ErrFeeEstimationFailed when Status is StatusFailed.
	Err error
}

// Config holds dependencies for the gateway.
type Config struct {
	Estimator Estimator
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	// Timeout bounds each emulation call. Zero uses DefaultTimeout.
	Timeout time.Duration
	// OnChange is called after each snapshot change, outside the gateway lock.
	OnChange func(Snapshot)
}

// Gateway issues fee estimates keyed by Request.Key.
type Gateway struct {
	estimator Estimator
	logger    *zap.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
	onChange  func(Snapshot)

	mu     sync.Mutex
	gen    uint64
	snap   Snapshot
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// NewGateway creates a fee gateway.
func NewGateway(cfg Config) *Gateway {
	g := &Gateway{
		estimator: cfg.Estimator,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		timeout:   cfg.Timeout,
		onChange:  cfg.OnChange,
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	return g
}

// Update issues a new estimate when req's key differs from the current one.
// A request that is not Ready resets the gateway to idle. Any in-flight
// request for an older key is cancelled and its result will be discarded.
func (g *Gateway) Update(req Request) {
	key := req.Key()

	g.mu.Lock()
	if g.closed || (key == g.snap.Key && g.snap.Status != StatusIdle) {
		g.mu.Unlock()
		return
	}

	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.gen++
	gen := g.gen

	if !req.Ready() {
		g.snap = Snapshot{Generation: gen, Status: StatusIdle}
		snap := g.snap
		g.mu.Unlock()
		g.notify(snap)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	g.cancel = cancel
	g.snap = Snapshot{Key: key, Generation: gen, Status: StatusLoading}
	snap := g.snap
	g.wg.Add(1)
	g.mu.Unlock()

	g.notify(snap)
	go g.run(ctx, cancel, gen, req)
}

func (g *Gateway) run(ctx context.Context, cancel context.CancelFunc, gen uint64, req Request) {
	defer g.wg.Done()
	defer cancel()

	chainID := string(req.Amount.Asset.Chain)
	start := time.Now()
	est, err := g.estimator.EstimateFee(ctx, req)
	g.metrics.ObserveFeeEstimate(chainID, time.Since(start), err)

	g.mu.Lock()
	if g.closed || gen != g.gen || g.snap.Key != req.Key() {
		g.mu.Unlock()
		g.metrics.StaleDiscarded(metrics.StaleFee)
		g.logger.Debug("discarding stale fee estimate",
			zap.Uint64("generation", gen),
			zap.String("chain", chainID))
		return
	}

	if err == nil && est == nil {
		err = remiterr.ErrFeeEstimationFailed
	}
	if err != nil {
		g.snap.Status = StatusFailed
		g.snap.Err = remiterr.WithCause(remiterr.ErrFeeEstimationFailed, err)
		g.logger.Warn("fee estimation failed", zap.String("chain", chainID), zap.Error(err))
	} else {
		g.snap.Status = StatusReady
		g.snap.Estimate = est
	}
	g.cancel = nil
	snap := g.snap
	g.mu.Unlock()

	g.notify(snap)
}

// Snapshot returns the current state.
func (g *Gateway) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snap
}

// Current returns the estimate if it is ready for key.
func (g *Gateway) Current(key string) (*Estimate, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.snap.Key != key || g.snap.Status != StatusReady {
		return nil, false
	}
	return g.snap.Estimate, true
}

// Close cancels any in-flight request. Results arriving after Close are
// discarded. Close does not wait for the estimator to return; use Wait.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

// Wait blocks until every issued request has returned.
func (g *Gateway) Wait() {
	g.wg.Wait()
}

func (g *Gateway) notify(snap Snapshot) {
	if g.onChange != nil {
		g.onChange(snap)
	}
}
