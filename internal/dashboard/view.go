package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/regstats/internal/logger"
	"github.com/blockedby/regstats/internal/stats"
	"github.com/blockedby/regstats/internal/statsclient"
)

// Fetcher is the subset of the statistics client the view needs.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (*stats.Snapshot, error)
	ClearCredential()
	HasCredential() bool
}

// Options holds optional View dependencies.
type Options struct {
	Logger *logger.Logger
	Now    func() time.Time
}

// View holds exactly one State at a time. Every entry into PhaseLoading
// issues one fetch; only the result of the most recently issued fetch is
// applied, older results are dropped when they arrive.
type View struct {
	fetcher Fetcher
	gate    Gate
	log     *logger.Logger
	now     func() time.Time

	mu        sync.Mutex
	state     State
	gen       uint64
	listeners []func(State)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a view. With a non-nil gate the view starts locked; otherwise
// it starts loading and Start issues the first fetch.
func New(fetcher Fetcher, gate Gate, opts Options) *View {
	v := &View{
		fetcher: fetcher,
		gate:    gate,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if v.log == nil {
		v.log = logger.Get()
	}
	v.log = v.log.Component("dashboard")
	if v.now == nil {
		v.now = time.Now
	}
	v.ctx, v.cancel = context.WithCancel(context.Background())

	if gate != nil {
		v.state = State{Phase: PhaseLocked}
	} else {
		v.state = State{Phase: PhaseLoading}
	}
	return v
}

// Start binds fetches to ctx and, for an ungated view, issues the first fetch.
func (v *View) Start(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cancel()
	v.ctx, v.cancel = context.WithCancel(ctx)

	if v.gate == nil && v.gen == 0 {
		v.beginFetchLocked(TriggerStart)
	}
}

// Close cancels outstanding fetches and waits for them to return.
func (v *View) Close() {
	v.mu.Lock()
	v.cancel()
	v.mu.Unlock()
	v.wg.Wait()
}

// Wait blocks until every issued fetch has returned.
func (v *View) Wait() {
	v.wg.Wait()
}

// State returns a copy of the current state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// GateRequired reports whether the view was built with a password gate.
func (v *View) GateRequired() bool {
	return v.gate != nil
}

// OnChange registers fn to receive every new state, in transition order.
// fn runs with the view locked and must not call back into the View.
func (v *View) OnChange(fn func(State)) {
	v.mu.Lock()
	v.listeners = append(v.listeners, fn)
	v.mu.Unlock()
}

// Unlock opens the gate and starts loading.
func (v *View) Unlock(password string) (State, error) {
	if st := v.State(); st.Phase != PhaseLocked {
		return st, ErrInvalidTransition
	}

	// bcrypt is slow; check outside the lock
	if v.gate == nil || !v.gate.Check(password) {
		v.log.Warn().Msg("gate rejected password")
		return v.State(), ErrWrongPassword
	}

	return v.fire(TriggerUnlock, nil)
}

// Refresh refetches while loaded, or supersedes a pending fetch.
func (v *View) Refresh() (State, error) {
	return v.fire(TriggerRefresh, nil)
}

// Retry refetches after an error.
func (v *View) Retry() (State, error) {
	return v.fire(TriggerRetry, nil)
}

// ClearCredential discards the client's token and refetches, forcing a new login.
func (v *View) ClearCredential() (State, error) {
	return v.fire(TriggerClearCredential, v.fetcher.ClearCredential)
}

func (v *View) fire(trigger Trigger, before func()) (State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state.Phase == PhaseLocked && trigger != TriggerUnlock {
		return v.state, ErrLocked
	}
	if !v.state.Allows(trigger) {
		v.log.Debug().
			Str("trigger", string(trigger)).
			Str("phase", string(v.state.Phase)).
			Msg("transition rejected")
		return v.state, ErrInvalidTransition
	}

	if before != nil {
		before()
	}
	v.beginFetchLocked(trigger)
	return v.state, nil
}

// beginFetchLocked enters PhaseLoading and issues one fetch. Caller holds mu.
func (v *View) beginFetchLocked(trigger Trigger) {
	v.gen++
	gen := v.gen
	id := uuid.NewString()

	v.setLocked(State{
		Phase:         PhaseLoading,
		FetchID:       id,
		Trigger:       trigger,
		HasCredential: v.fetcher.HasCredential(),
	})

	ctx := v.ctx
	v.wg.Add(1)
	go v.runFetch(ctx, gen, id)
}

func (v *View) runFetch(ctx context.Context, gen uint64, id string) {
	defer v.wg.Done()

	snap, err := v.fetcher.FetchSnapshot(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.gen {
		v.log.Debug().Str("fetch_id", id).Msg("discarding superseded fetch result")
		return
	}

	next := State{
		FetchID:       id,
		Trigger:       TriggerFetchDone,
		HasCredential: v.fetcher.HasCredential(),
	}
	if err != nil {
		next.Phase = PhaseError
		next.Reason = err.Error()
		var fe *statsclient.FetchError
		if errors.As(err, &fe) {
			next.ErrorKind = string(fe.Kind)
		}
		v.log.Warn().Err(err).Str("fetch_id", id).Msg("fetch failed")
	} else {
		next.Phase = PhaseLoaded
		next.Snapshot = snap
		next.FetchedAt = v.now()
	}
	v.setLocked(next)
}

func (v *View) setLocked(next State) {
	prev := v.state.Phase
	v.state = next

	v.log.Info().
		Str("from", string(prev)).
		Str("to", string(next.Phase)).
		Str("trigger", string(next.Trigger)).
		Str("fetch_id", next.FetchID).
		Msg("state transition")

	for _, fn := range v.listeners {
		fn(next)
	}
}
