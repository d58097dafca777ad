package orchestrator

import (
	"context"
	"errors"
	"time"

	"table-keeper/internal/store"
)

var ErrSessionNotFound = errors.New("session_not_found")

// AuditReport is a read-only view of a session and of what an enforce call would
// do to it right now.
type AuditReport struct {
	SessionID           string         `json:"sessionId"`
	Status              string         `json:"status"`
	GameType            string         `json:"gameType"`
	DealerPosition      int            `json:"dealerPosition"`
	IsPaused            bool           `json:"isPaused"`
	PausedTimeRemaining *int           `json:"pausedTimeRemaining,omitempty"`
	PendingSessionEnd   bool           `json:"pendingSessionEnd"`
	RealMoney           bool           `json:"realMoney"`
	AwaitingNextRound   bool           `json:"awaitingNextRound"`
	NextRoundNumber     *int           `json:"nextRoundNumber,omitempty"`
	AllDecisionsIn      bool           `json:"allDecisionsIn"`
	UpdatedAt           time.Time      `json:"updatedAt"`
	Now                 time.Time      `json:"now"`
	Deadlines           []DeadlineView `json:"deadlines"`
	Players             []PlayerView   `json:"players"`
	Round               *RoundView     `json:"round,omitempty"`
	Pending             []string       `json:"pending"`
	Reclaim             string         `json:"reclaim,omitempty"`
}

type DeadlineView struct {
	Name      string    `json:"name"`
	At        time.Time `json:"at"`
	Remaining string    `json:"remaining"`
	Elapsed   bool      `json:"elapsed"`
}

type PlayerView struct {
	Position        int    `json:"position"`
	IsBot           bool   `json:"isBot"`
	Status          string `json:"status"`
	SittingOut      bool   `json:"sittingOut"`
	AnteDecision    string `json:"anteDecision,omitempty"`
	CurrentDecision string `json:"currentDecision,omitempty"`
	DecisionLocked  bool   `json:"decisionLocked"`
	AutoFold        bool   `json:"autoFold"`
}

type RoundView struct {
	Number              int    `json:"number"`
	Status              string `json:"status"`
	CurrentTurnPosition *int   `json:"currentTurnPosition,omitempty"`
}

// Audit evaluates every rule against the current snapshot without writing.
func (o *Orchestrator) Audit(ctx context.Context, sessionID string) (*AuditReport, error) {
	if sessionID == "" {
		return nil, ErrInvalidRequest
	}
	snap, err := loadSnapshot(ctx, o.store, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, transient("load session", err)
	}
	now := sample(o.clock)
	s := snap.Session
	rep := &AuditReport{
		SessionID:           s.ID,
		Status:              string(s.Status),
		GameType:            snap.Rules.Name,
		DealerPosition:      s.DealerPosition,
		IsPaused:            s.IsPaused,
		PausedTimeRemaining: s.PausedTimeRemaining,
		PendingSessionEnd:   s.PendingSessionEnd,
		RealMoney:           s.RealMoney,
		AwaitingNextRound:   s.AwaitingNextRound,
		NextRoundNumber:     s.NextRoundNumber,
		AllDecisionsIn:      s.AllDecisionsIn,
		UpdatedAt:           s.UpdatedAt,
		Now:                 now,
		Deadlines:           []DeadlineView{},
		Players:             make([]PlayerView, 0, len(snap.Players)),
		Pending:             []string{},
	}
	rep.addDeadline("config", s.ConfigDeadline, now)
	rep.addDeadline("ante_decision", s.AnteDecisionDeadline, now)
	if snap.Round != nil {
		rep.Round = &RoundView{
			Number:              snap.Round.RoundNumber,
			Status:              string(snap.Round.Status),
			CurrentTurnPosition: snap.Round.CurrentTurnPosition,
		}
		rep.addDeadline("decision", snap.Round.DecisionDeadline, now)
	}
	for _, p := range snap.Players {
		rep.Players = append(rep.Players, PlayerView{
			Position:        p.Position,
			IsBot:           p.IsBot,
			Status:          string(p.Status),
			SittingOut:      p.SittingOut,
			AnteDecision:    string(p.AnteDecision),
			CurrentDecision: string(p.CurrentDecision),
			DecisionLocked:  p.DecisionLocked,
			AutoFold:        p.AutoFold,
		})
	}

	if p := evalStale(snap, now, o.cfg); p != nil {
		rep.Reclaim = p.Reason
	}
	if s.IsPaused || s.Status == store.StatusSessionEnded {
		return rep, nil
	}
	if p := evalResume(snap, now, o.cfg); p != nil {
		rep.Pending = append(rep.Pending, "resume: "+p.String())
		return rep, nil
	}
	for _, rl := range phaseRules[s.Status] {
		if p := rl.eval(snap, now, o.cfg); p != nil {
			rep.Pending = append(rep.Pending, rl.name+": "+p.String())
		}
	}
	return rep, nil
}

func (r *AuditReport) addDeadline(name string, at *time.Time, now time.Time) {
	if at == nil {
		return
	}
	r.Deadlines = append(r.Deadlines, DeadlineView{
		Name:      name,
		At:        *at,
		Remaining: at.Sub(now).Round(time.Second).String(),
		Elapsed:   elapsed(at, now),
	})
}
