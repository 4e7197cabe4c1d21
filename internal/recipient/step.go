package recipient

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/metrics"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// DefaultTimeout bounds a single account lookup.
const DefaultTimeout = 10 * time.Second

// Config holds dependencies for the recipient step.
type Config struct {
	Validators map[chain.ID]chain.AddressValidator
	Resolver   AccountResolver
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Timeout    time.Duration
}

// Step validates and resolves recipients.
type Step struct {
	validators map[chain.ID]chain.AddressValidator
	resolver   AccountResolver
	logger     *zap.Logger
	metrics    *metrics.Metrics
	timeout    time.Duration

	mu      sync.Mutex
	gen     uint64
	current *Data
	cancel  context.CancelFunc
	closed  bool
}

// NewStep creates a recipient step.
func NewStep(cfg Config) *Step {
	s := &Step{
		validators: cfg.Validators,
		resolver:   cfg.Resolver,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		timeout:    cfg.Timeout,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	return s
}

// Resolve validates raw for chainID and, when the syntax is valid, looks the
// account up. Invalid syntax never reaches the resolver. A call superseded
// by a newer Resolve returns ErrSuperseded and its result is dropped.
// The comment current when the lookup finishes carries over to the new data.
func (s *Step) Resolve(ctx context.Context, chainID chain.ID, raw string) (*Data, error) {
	validator, ok := s.validators[chainID]
	if !ok {
		return nil, remiterr.WithDetails(remiterr.ErrNotSupported, map[string]string{"chain": chainID.String()})
	}
	raw = strings.TrimSpace(raw)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, remiterr.ErrWizardClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	data := &Data{Chain: chainID, RawAddress: raw}

	if err := validator.ValidateAddress(raw); err != nil {
		data.Err = remiterr.WithCause(remiterr.ErrInvalidAddress, err)
		data.evaluate()
		return s.commit(gen, data)
	}
	data.IsName = validator.IsName(raw)

	acc, err := s.resolver.ResolveAccount(ctx, chainID, raw)
	if err != nil {
		s.logger.Debug("recipient lookup failed",
			zap.String("chain", chainID.String()),
			zap.Error(err))
		data.Err = remiterr.WithCause(remiterr.ErrRecipientUnresolved, err)
	} else {
		data.Account = acc
		data.MemoRequired = acc.MemoRequired
	}
	data.evaluate()
	return s.commit(gen, data)
}

func (s *Step) commit(gen uint64, data *Data) (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		s.metrics.StaleDiscarded(metrics.StaleRecipient)
		return nil, remiterr.ErrSuperseded
	}
	if s.current != nil && s.current.Comment != "" {
		data = data.withComment(s.current.Comment)
	}
	data.gen = gen
	s.current = data
	s.cancel = nil
	out := *data
	return &out, nil
}

// SetComment replaces the current data with a copy carrying comment.
func (s *Step) SetComment(comment string) (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, remiterr.ErrWizardClosed
	}
	if s.current == nil {
		return nil, remiterr.ErrNotReady
	}
	s.current = s.current.withComment(comment)
	out := *s.current
	return &out, nil
}

// Current returns a copy of the latest applied data, or nil.
func (s *Step) Current() *Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	out := *s.current
	return &out
}

// Applied returns the current data when d came from the latest applied
// resolution, including comment edits made since.
func (s *Step) Applied(d *Data) (*Data, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d == nil || s.current == nil || s.current.gen != d.gen {
		return nil, false
	}
	out := *s.current
	return &out, true
}

// Close cancels any in-flight lookup; later results are discarded.
func (s *Step) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
