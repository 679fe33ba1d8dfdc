package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/analysis"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/port"
)

// ErrKeeperClosed is returned once Close has been called.
var ErrKeeperClosed = errors.New("mode keeper closed")

// ModeStep computes the next state from the authoritative prior state.
// It runs on the writer goroutine and must not block.
type ModeStep func(prior domain.ModeState) (next domain.ModeState, changed bool)

// ModeKeeper owns the mode state of every customer. A single writer
// goroutine applies evaluations one at a time, so two concurrent runs for
// the same customer can never both escalate from the same prior state.
// Readers load an immutable snapshot without locking and see either the
// state before or after an evaluation, never a partial one.
type ModeKeeper struct {
	store  port.ModeStore // optional
	logger *zap.Logger

	requests  chan modeRequest
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	states atomic.Pointer[map[string]domain.ModeState]
}

type modeRequest struct {
	ctx        context.Context
	customerID string
	at         time.Time
	step       ModeStep // nil loads without evaluating
	reply      chan modeReply
}

type modeReply struct {
	state   domain.ModeState
	changed bool
	err     error
}

// NewModeKeeper starts the writer goroutine. store may be nil, in which
// case states live in memory only.
func NewModeKeeper(store port.ModeStore, logger *zap.Logger) *ModeKeeper {
	k := &ModeKeeper{
		store:    store,
		logger:   logger,
		requests: make(chan modeRequest),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	empty := map[string]domain.ModeState{}
	k.states.Store(&empty)

	go k.run()
	return k
}

// Current returns the last stable state of a customer without blocking.
// ok is false when the customer has not been loaded or evaluated yet.
func (k *ModeKeeper) Current(customerID string) (domain.ModeState, bool) {
	s, ok := (*k.states.Load())[customerID]
	if !ok {
		return domain.ModeState{}, false
	}
	return cloneState(s), true
}

// Get returns the state of a customer, loading it from the store (or
// starting a fresh normal state at at) the first time it is asked for.
func (k *ModeKeeper) Get(ctx context.Context, customerID string, at time.Time) (domain.ModeState, error) {
	if s, ok := k.Current(customerID); ok {
		return s, nil
	}
	s, _, err := k.submit(ctx, modeRequest{customerID: customerID, at: at})
	return s, err
}

// Evaluate applies step to the current state of a customer and publishes
// the result.
func (k *ModeKeeper) Evaluate(ctx context.Context, customerID string, at time.Time, step ModeStep) (domain.ModeState, bool, error) {
	if step == nil {
		return domain.ModeState{}, false, fmt.Errorf("mode keeper: nil step")
	}
	return k.submit(ctx, modeRequest{customerID: customerID, at: at, step: step})
}

// Close stops the writer goroutine. Pending callers get ErrKeeperClosed.
func (k *ModeKeeper) Close() {
	k.closeOnce.Do(func() { close(k.quit) })
	<-k.done
}

func (k *ModeKeeper) submit(ctx context.Context, req modeRequest) (domain.ModeState, bool, error) {
	req.ctx = ctx
	req.reply = make(chan modeReply, 1)

	select {
	case k.requests <- req:
	case <-ctx.Done():
		return domain.ModeState{}, false, ctx.Err()
	case <-k.quit:
		return domain.ModeState{}, false, ErrKeeperClosed
	}

	select {
	case r := <-req.reply:
		return cloneState(r.state), r.changed, r.err
	case <-ctx.Done():
		return domain.ModeState{}, false, ctx.Err()
	}
}

func (k *ModeKeeper) run() {
	defer close(k.done)
	for {
		select {
		case <-k.quit:
			return
		case req := <-k.requests:
			req.reply <- k.handle(req)
		}
	}
}

func (k *ModeKeeper) handle(req modeRequest) modeReply {
	prior, known := (*k.states.Load())[req.customerID]
	if !known {
		loaded, err := k.load(req.ctx, req.customerID)
		if err != nil {
			return modeReply{err: err}
		}
		if loaded != nil {
			prior = *loaded
		} else {
			prior = analysis.NewModeState(req.at)
		}
	}

	if req.step == nil {
		if !known {
			k.publish(req.customerID, prior)
		}
		return modeReply{state: prior}
	}

	next, changed := req.step(prior)
	if changed || !known ||
		!next.LastTriggeredAt.Equal(prior.LastTriggeredAt) ||
		!next.LastEvaluatedAt.Equal(prior.LastEvaluatedAt) {
		k.save(req.ctx, req.customerID, next)
	}
	k.publish(req.customerID, next)

	if changed {
		k.logger.Info("mode transition",
			zap.String("customer_id", req.customerID),
			zap.String("from", string(prior.CurrentMode)),
			zap.String("to", string(next.CurrentMode)),
			zap.String("reason", next.Reason),
		)
	}
	return modeReply{state: next, changed: changed}
}

func (k *ModeKeeper) load(ctx context.Context, customerID string) (*domain.ModeState, error) {
	if k.store == nil {
		return nil, nil
	}
	s, err := k.store.LoadMode(ctx, customerID)
	if err != nil {
		k.logger.Error("mode state load failed",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("mode load: %w", err)
	}
	return s, nil
}

// save persists a state. A failed write keeps the in-memory state, which
// stays authoritative for this process.
func (k *ModeKeeper) save(ctx context.Context, customerID string, s domain.ModeState) {
	if k.store == nil {
		return
	}
	if err := k.store.SaveMode(ctx, customerID, s); err != nil {
		k.logger.Error("mode state save failed",
			zap.String("customer_id", customerID),
			zap.String("mode", string(s.CurrentMode)),
			zap.Error(err),
		)
	}
}

// publish swaps in a new snapshot (copy-on-write).
func (k *ModeKeeper) publish(customerID string, s domain.ModeState) {
	next := maps.Clone(*k.states.Load())
	next[customerID] = s
	k.states.Store(&next)
}

func cloneState(s domain.ModeState) domain.ModeState {
	s.Restrictions.BlockedCategories = slices.Clone(s.Restrictions.BlockedCategories)
	s.Restrictions.MaxCategorySpending = maps.Clone(s.Restrictions.MaxCategorySpending)
	if s.Restrictions.MaxDailySpending != nil {
		v := *s.Restrictions.MaxDailySpending
		s.Restrictions.MaxDailySpending = &v
	}
	return s
}
