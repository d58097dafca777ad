// Package orchestrator enforces phase deadlines for card sessions. Every change it
// makes is a conditional write against values it just read, so any number of
// concurrent callers for the same session apply each transition at most once.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"table-keeper/internal/config"
	"table-keeper/internal/game"
	"table-keeper/internal/store"
)

type Orchestrator struct {
	store   Store
	cfg     config.OrchestratorConfig
	clock   Clock
	decider Decider

	dealMu sync.Mutex
	rnd    *rand.Rand
}

type Option func(*Orchestrator)

func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

func WithDecider(d Decider) Option {
	return func(o *Orchestrator) { o.decider = d }
}

// WithRandSource seeds card dealing. Tests use it for reproducible payloads.
func WithRandSource(src rand.Source) Option {
	return func(o *Orchestrator) { o.rnd = rand.New(src) }
}

func New(st Store, cfg config.OrchestratorConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store: st,
		cfg:   cfg,
		clock: SystemClock(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.decider == nil {
		o.decider = NewRandomDecider(cfg.BotStayProbability, nil)
	}
	if o.rnd == nil {
		o.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

func (o *Orchestrator) Config() config.OrchestratorConfig { return o.cfg }

func (o *Orchestrator) deal(rules game.Rules, round int, seats []int) ([]byte, error) {
	o.dealMu.Lock()
	defer o.dealMu.Unlock()
	return rules.Deal(round, seats, o.rnd)
}

// run is the state of one Enforce invocation.
type run struct {
	o       *Orchestrator
	req     Request
	snap    *Snapshot
	now     time.Time
	actions []Action
	deleted bool
	logger  zerolog.Logger
}

func (r *run) took(a Action) {
	r.actions = append(r.actions, a)
	metricActions.Add(string(a.Kind), 1)
	r.logger.Info().Str("action", a.String()).Msg("orchestrator action applied")
}

func (r *run) skipped(kind ActionKind) {
	metricCASLost.Add(1)
	r.logger.Debug().Str("action", string(kind)).Msg("conditional write lost; already handled")
}

func (r *run) reload(ctx context.Context) error {
	snap, err := loadSnapshot(ctx, r.o.store, r.req.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		r.deleted = true
		return nil
	}
	if err != nil {
		return transient("reload session", err)
	}
	r.snap = snap
	return nil
}

// Enforce reads the session, applies whatever its deadlines require, and reports
// what it did. Calling it again on an unchanged session does nothing.
func (o *Orchestrator) Enforce(ctx context.Context, req Request) (*Response, error) {
	if req.SessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrInvalidRequest)
	}
	if req.Source == "" {
		req.Source = SourceClient
	}
	if !req.Source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidRequest, req.Source)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	metricEnforceTotal.Add(1)

	resp := &Response{Success: true, ActionsTaken: []string{}, RequestID: req.RequestID}
	if req.AuditOnly {
		report, err := o.Audit(ctx, req.SessionID)
		if errors.Is(err, ErrSessionNotFound) {
			resp.SessionMissing = true
			return resp, nil
		}
		if err != nil {
			metricEnforceErrors.Add(1)
			return nil, err
		}
		resp.Audit = report
		resp.SessionStatus = report.Status
		resp.IsPaused = report.IsPaused
		return resp, nil
	}

	r := &run{
		o:   o,
		req: req,
		now: sample(o.clock),
		logger: log.With().
			Str("session_id", req.SessionID).
			Str("request_id", req.RequestID).
			Str("source", string(req.Source)).
			Logger(),
	}
	snap, err := loadSnapshot(ctx, o.store, req.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		resp.SessionMissing = true
		return resp, nil
	}
	if err != nil {
		metricEnforceErrors.Add(1)
		return nil, transient("load session", err)
	}
	r.snap = snap

	if err := r.execute(ctx); err != nil {
		metricEnforceErrors.Add(1)
		r.logger.Error().Err(err).Strs("actions", actionStrings(r.actions)).Msg("enforce failed")
		return nil, err
	}

	resp.ActionsTaken = actionStrings(r.actions)
	if r.deleted {
		resp.SessionMissing = true
		return resp, nil
	}
	resp.SessionStatus = string(r.snap.Session.Status)
	resp.IsPaused = r.snap.Session.IsPaused
	return resp, nil
}

func (r *run) execute(ctx context.Context) error {
	if r.req.Source.reclaims() {
		if p := evalStale(r.snap, r.now, r.o.cfg); p != nil {
			if err := r.endOrDelete(ctx, p.Reason); err != nil {
				return err
			}
			if len(r.actions) > 0 && !r.deleted {
				return r.reload(ctx)
			}
			return nil
		}
	}
	s := r.snap.Session
	if s.IsPaused || s.Status == store.StatusSessionEnded {
		return nil
	}

	if p := evalResume(r.snap, r.now, r.o.cfg); p != nil {
		if err := r.apply(ctx, p); err != nil {
			return err
		}
		if err := r.reload(ctx); err != nil || r.deleted {
			return err
		}
		// Someone paused again, or a resume is still in flight.
		if r.snap.Session.IsPaused || r.snap.Session.PausedTimeRemaining != nil {
			return nil
		}
	}

	for _, rl := range phaseRules[r.snap.Session.Status] {
		p := rl.eval(r.snap, r.now, r.o.cfg)
		if p == nil {
			continue
		}
		p.Rule = rl.name
		before := len(r.actions)
		if err := r.apply(ctx, p); err != nil {
			return err
		}
		if len(r.actions) == before {
			continue
		}
		if r.deleted {
			return nil
		}
		if err := r.reload(ctx); err != nil || r.deleted {
			return err
		}
	}
	return nil
}

func actionStrings(actions []Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.String())
	}
	return out
}
