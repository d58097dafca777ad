package orchestrator

import (
	"context"
	"time"

	"table-keeper/internal/config"
	"table-keeper/internal/store"
)

// evalStale decides whether a session has been idle long enough to reclaim.
// Paused real-money sessions are never reclaimed.
func evalStale(snap *Snapshot, now time.Time, cfg config.OrchestratorConfig) *Plan {
	s := snap.Session
	if s.Status == store.StatusSessionEnded {
		return nil
	}
	age := now.Sub(s.UpdatedAt)
	if s.IsPaused {
		if s.RealMoney || age < cfg.StalePausedAfter {
			return nil
		}
		return &Plan{Rule: "reclaim", Kind: planEnd, Reason: "stale_paused"}
	}
	if hasLiveDeadline(snap) {
		return nil
	}
	threshold, reason := cfg.StaleWaitingAfter, "stale_waiting"
	switch s.Status {
	case store.StatusWaiting, store.StatusWaitingForPlayers:
	case store.StatusInProgress:
		threshold, reason = cfg.StaleInProgressAfter, "stale_in_progress"
	default:
		reason = "stale_without_deadline"
	}
	if age < threshold {
		return nil
	}
	return &Plan{Rule: "reclaim", Kind: planEnd, Reason: reason}
}

// hasLiveDeadline reports whether some phase rule will eventually move the session.
func hasLiveDeadline(snap *Snapshot) bool {
	s := snap.Session
	switch {
	case s.Status.IsConfigPhase():
		return s.ConfigDeadline != nil
	case s.Status == store.StatusAnteDecision:
		return s.AnteDecisionDeadline != nil
	case s.Status == store.StatusGameOver:
		return s.GameOverAt != nil
	case s.Status == store.StatusInProgress:
		if s.AwaitingNextRound {
			return true
		}
		r := snap.Round
		if r == nil {
			return false
		}
		if r.Status == store.RoundBetting {
			return r.DecisionDeadline != nil
		}
		return s.AllDecisionsIn
	}
	return false
}

// endSession moves the session to session_ended and keeps every row.
func (r *run) endSession(ctx context.Context, reason string) error {
	s := r.snap.Session
	ok, err := r.o.store.UpdateSessionIf(ctx, s.ID,
		store.SessionCond{Status: store.Set(s.Status), UpdatedAt: store.Set(s.UpdatedAt)},
		store.SessionPatch{
			Status:               store.Set(store.StatusSessionEnded),
			SessionEndedAt:       store.Set(r.now),
			ConfigDeadline:       store.SetNull[time.Time](),
			AnteDecisionDeadline: store.SetNull[time.Time](),
			AwaitingNextRound:    store.Set(false),
		}, r.now)
	if err != nil {
		return transient("end session", err)
	}
	if !ok {
		r.skipped(ActionEndSession)
		return nil
	}
	r.took(Action{Kind: ActionEndSession, Detail: reason})
	metricSessionsEnded.Add(1)
	return nil
}

// endOrDelete removes a session nobody will come back to. Sessions with history
// or real money are ended and kept; the rest are deleted outright.
func (r *run) endOrDelete(ctx context.Context, reason string) error {
	s := r.snap.Session
	keep := s.RealMoney
	if !keep {
		has, err := r.o.store.HasHistory(ctx, s.ID)
		if err != nil {
			return transient("has history", err)
		}
		keep = has
	}
	if keep {
		return r.endSession(ctx, reason)
	}
	ok, err := r.o.store.DeleteSessionIf(ctx, s.ID, s.UpdatedAt)
	if err != nil {
		return transient("delete session", err)
	}
	if !ok {
		r.skipped(ActionDeleteSession)
		return nil
	}
	r.took(Action{Kind: ActionDeleteSession, Detail: reason})
	r.deleted = true
	metricSessionsDeleted.Add(1)
	return nil
}
