package memstore

import (
	"encoding/json"
	"time"

	"table-keeper/internal/store"
)

func matchEq[T comparable](o store.Opt[T], cur T) bool {
	if !o.Valid {
		return true
	}
	if o.Val == nil {
		var zero T
		return cur == zero
	}
	return *o.Val == cur
}

func matchPtr[T comparable](o store.Opt[T], cur *T) bool {
	if !o.Valid {
		return true
	}
	if o.Val == nil || cur == nil {
		return o.Val == nil && cur == nil
	}
	return *o.Val == *cur
}

func matchTime(o store.Opt[time.Time], cur *time.Time) bool {
	if !o.Valid {
		return true
	}
	if o.Val == nil || cur == nil {
		return o.Val == nil && cur == nil
	}
	return o.Val.Equal(*cur)
}

func assign[T any](dst *T, o store.Opt[T]) {
	if !o.Valid {
		return
	}
	if o.Val == nil {
		var zero T
		*dst = zero
		return
	}
	*dst = *o.Val
}

func assignPtr[T any](dst **T, o store.Opt[T]) {
	if !o.Valid {
		return
	}
	if o.Val == nil {
		*dst = nil
		return
	}
	v := *o.Val
	*dst = &v
}

func sessionMatches(s *store.Session, c store.SessionCond) bool {
	return matchEq(c.Status, s.Status) &&
		(!c.UpdatedAt.Valid || (c.UpdatedAt.Val != nil && c.UpdatedAt.Val.Equal(s.UpdatedAt))) &&
		matchEq(c.DealerPosition, s.DealerPosition) &&
		matchTime(c.ConfigDeadline, s.ConfigDeadline) &&
		matchTime(c.AnteDecisionDeadline, s.AnteDecisionDeadline) &&
		matchEq(c.AwaitingNextRound, s.AwaitingNextRound) &&
		matchPtr(c.NextRoundNumber, s.NextRoundNumber) &&
		matchEq(c.AllDecisionsIn, s.AllDecisionsIn) &&
		matchEq(c.IsPaused, s.IsPaused) &&
		matchPtr(c.PausedTimeRemaining, s.PausedTimeRemaining) &&
		matchTime(c.GameOverAt, s.GameOverAt)
}

func applySessionPatch(s *store.Session, p store.SessionPatch) {
	assign(&s.Status, p.Status)
	assign(&s.DealerPosition, p.DealerPosition)
	assignPtr(&s.ConfigDeadline, p.ConfigDeadline)
	assignPtr(&s.AnteDecisionDeadline, p.AnteDecisionDeadline)
	assignPtr(&s.CurrentRound, p.CurrentRound)
	assign(&s.AwaitingNextRound, p.AwaitingNextRound)
	assignPtr(&s.NextRoundNumber, p.NextRoundNumber)
	assign(&s.AllDecisionsIn, p.AllDecisionsIn)
	assign(&s.IsPaused, p.IsPaused)
	assignPtr(&s.PausedTimeRemaining, p.PausedTimeRemaining)
	assign(&s.PendingSessionEnd, p.PendingSessionEnd)
	assignPtr(&s.GameOverAt, p.GameOverAt)
	assignPtr(&s.SessionEndedAt, p.SessionEndedAt)
}

func copySession(s store.Session) store.Session {
	s.ConfigDeadline = clonePtr(s.ConfigDeadline)
	s.AnteDecisionDeadline = clonePtr(s.AnteDecisionDeadline)
	s.CurrentRound = clonePtr(s.CurrentRound)
	s.NextRoundNumber = clonePtr(s.NextRoundNumber)
	s.PausedTimeRemaining = clonePtr(s.PausedTimeRemaining)
	s.GameOverAt = clonePtr(s.GameOverAt)
	s.SessionEndedAt = clonePtr(s.SessionEndedAt)
	return s
}

func copyRound(r store.Round) store.Round {
	r.DecisionDeadline = clonePtr(r.DecisionDeadline)
	r.CurrentTurnPosition = clonePtr(r.CurrentTurnPosition)
	r.Payload = append(json.RawMessage(nil), r.Payload...)
	return r
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
