// Package memstore is an in-process session store with the same conditional-write
// semantics as the Postgres store. Every write holds one mutex, so each CAS is atomic.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"table-keeper/internal/store"
)

type Store struct {
	mu       sync.Mutex
	sessions map[string]*store.Session
	players  map[string]*store.Player
	rounds   map[string]*store.Round
	results  map[string][]store.SessionResult
}

func New() *Store {
	return &Store{
		sessions: map[string]*store.Session{},
		players:  map[string]*store.Player{},
		rounds:   map[string]*store.Round{},
		results:  map[string][]store.SessionResult{},
	}
}

func (s *Store) CreateSession(_ context.Context, sess store.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == "" {
		sess.ID = store.NewID()
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = time.Now().UTC()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = sess.UpdatedAt
	}
	cp := copySession(sess)
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *Store) AddPlayer(_ context.Context, p store.Player) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = store.NewID()
	}
	if p.Status == "" {
		p.Status = store.PlayerActive
	}
	s.players[p.ID] = &p
	return p.ID, nil
}

func (s *Store) CreateRound(_ context.Context, r store.Round) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = store.NewID()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	cp := copyRound(r)
	s.rounds[r.ID] = &cp
	return r.ID, nil
}

func (s *Store) RecordResult(_ context.Context, sessionID string, payload []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := store.NewID()
	s.results[sessionID] = append(s.results[sessionID], store.SessionResult{
		ID:         id,
		SessionID:  sessionID,
		Payload:    payload,
		RecordedAt: time.Now().UTC(),
	})
	return id, nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (*store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := copySession(*sess)
	return &cp, nil
}

func (s *Store) ListPlayers(_ context.Context, sessionID string) ([]store.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []store.Player{}
	for _, p := range s.players {
		if p.SessionID == sessionID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Store) GetRound(_ context.Context, sessionID string, roundNumber int) (*store.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findRoundLocked(sessionID, roundNumber)
	if r == nil {
		return nil, store.ErrNotFound
	}
	cp := copyRound(*r)
	return &cp, nil
}

func (s *Store) ListOpenSessionIDs(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := make([]*store.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.Status != store.StatusSessionEnded {
			open = append(open, sess)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].UpdatedAt.Before(open[j].UpdatedAt) })
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	out := make([]string, 0, len(open))
	for _, sess := range open {
		out = append(out, sess.ID)
	}
	return out, nil
}

func (s *Store) UpdateSessionIf(_ context.Context, sessionID string, cond store.SessionCond, patch store.SessionPatch, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || !sessionMatches(sess, cond) {
		return false, nil
	}
	applySessionPatch(sess, patch)
	sess.UpdatedAt = at
	return true, nil
}

func (s *Store) UpdatePlayerIf(_ context.Context, playerID string, cond store.PlayerCond, patch store.PlayerPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok || patch == (store.PlayerPatch{}) {
		return false, nil
	}
	if !matchEq(cond.SittingOut, p.SittingOut) ||
		!matchEq(cond.AnteDecision, p.AnteDecision) ||
		!matchEq(cond.DecisionLocked, p.DecisionLocked) {
		return false, nil
	}
	assign(&p.SittingOut, patch.SittingOut)
	assign(&p.AnteDecision, patch.AnteDecision)
	assign(&p.CurrentDecision, patch.CurrentDecision)
	assign(&p.DecisionLocked, patch.DecisionLocked)
	assign(&p.AutoFold, patch.AutoFold)
	return true, nil
}

func (s *Store) UpdateRoundIf(_ context.Context, roundID string, cond store.RoundCond, patch store.RoundPatch, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[roundID]
	if !ok {
		return false, nil
	}
	if !matchEq(cond.Status, r.Status) ||
		!matchTime(cond.DecisionDeadline, r.DecisionDeadline) ||
		!matchPtr(cond.CurrentTurnPosition, r.CurrentTurnPosition) {
		return false, nil
	}
	assign(&r.Status, patch.Status)
	assignPtr(&r.DecisionDeadline, patch.DecisionDeadline)
	assignPtr(&r.CurrentTurnPosition, patch.CurrentTurnPosition)
	r.UpdatedAt = at
	return true, nil
}

func (s *Store) StartRound(_ context.Context, p store.StartRoundParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[p.SessionID]
	if !ok || sess.Status != store.StatusInProgress || !sess.AwaitingNextRound ||
		(sess.NextRoundNumber != nil && *sess.NextRoundNumber != p.RoundNumber) {
		return false, nil
	}
	existing := s.findRoundLocked(p.SessionID, p.RoundNumber)
	if existing != nil && existing.Status != store.RoundCompleted {
		return false, nil
	}
	for _, r := range s.rounds {
		if r.SessionID == p.SessionID && r.Status == store.RoundBetting {
			return false, nil
		}
	}

	n := p.RoundNumber
	sess.AwaitingNextRound = false
	sess.NextRoundNumber = nil
	sess.CurrentRound = &n
	sess.AllDecisionsIn = false
	sess.UpdatedAt = p.At
	for _, pl := range s.players {
		if pl.SessionID == p.SessionID && pl.Seated() {
			pl.CurrentDecision = store.DecisionNone
			pl.DecisionLocked = false
		}
	}
	deadline := p.DecisionDeadline
	round := store.Round{
		ID:               p.RoundID,
		SessionID:        p.SessionID,
		RoundNumber:      p.RoundNumber,
		Status:           store.RoundBetting,
		DecisionDeadline: &deadline,
		Payload:          append(json.RawMessage(nil), p.Payload...),
		UpdatedAt:        p.At,
	}
	if p.TurnPosition != nil {
		seat := *p.TurnPosition
		round.CurrentTurnPosition = &seat
	}
	if existing != nil {
		round.ID = existing.ID
		delete(s.rounds, existing.ID)
	}
	s.rounds[round.ID] = &round
	return true, nil
}

func (s *Store) BeginHand(_ context.Context, p store.BeginHandParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[p.SessionID]
	if !ok || sess.Status != store.StatusGameOver || sess.GameOverAt == nil || !sess.GameOverAt.Equal(p.ObservedGameOverAt) {
		return false, nil
	}
	deadline := p.ConfigDeadline
	sess.Status = store.StatusConfiguring
	sess.DealerPosition = p.DealerPosition
	sess.ConfigDeadline = &deadline
	sess.GameOverAt = nil
	sess.AnteDecisionDeadline = nil
	sess.CurrentRound = nil
	sess.AwaitingNextRound = false
	sess.NextRoundNumber = nil
	sess.AllDecisionsIn = false
	sess.UpdatedAt = p.At
	for _, pl := range s.players {
		if pl.SessionID == p.SessionID {
			pl.AnteDecision = store.AnteUndecided
			pl.CurrentDecision = store.DecisionNone
			pl.DecisionLocked = false
		}
	}
	return true, nil
}

func (s *Store) HasHistory(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results[sessionID]) > 0 {
		return true, nil
	}
	for _, r := range s.rounds {
		if r.SessionID == sessionID && r.Status == store.RoundCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteSessionIf(_ context.Context, sessionID string, observedUpdatedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.RealMoney || !sess.UpdatedAt.Equal(observedUpdatedAt) {
		return false, nil
	}
	delete(s.results, sessionID)
	for id, r := range s.rounds {
		if r.SessionID == sessionID {
			delete(s.rounds, id)
		}
	}
	for id, p := range s.players {
		if p.SessionID == sessionID {
			delete(s.players, id)
		}
	}
	delete(s.sessions, sessionID)
	return true, nil
}

func (s *Store) findRoundLocked(sessionID string, roundNumber int) *store.Round {
	for _, r := range s.rounds {
		if r.SessionID == sessionID && r.RoundNumber == roundNumber {
			return r
		}
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }
