package orchestrator

import (
	"fmt"
	"time"

	"table-keeper/internal/config"
	"table-keeper/internal/store"
)

type planKind string

const (
	planConfigTimeout       planKind = "config_timeout"
	planAnteTimeout         planKind = "ante_timeout"
	planTurnTimeout         planKind = "turn_timeout"
	planSimultaneousTimeout planKind = "simultaneous_timeout"
	planRecoverTurn         planKind = "recover_turn"
	planFlipAllIn           planKind = "flip_all_decisions_in"
	planCompleteRound       planKind = "complete_round"
	planStartRound          planKind = "start_round"
	planRegressShortHanded  planKind = "regress_short_handed"
	planGameOverAdvance     planKind = "game_over_advance"
	planResume              planKind = "resume"
	planEnd                 planKind = "end_or_delete"
	planEndSession          planKind = "end_session"
)

// Plan is what a rule decided to do about one snapshot. It carries the observed
// values the applier conditions its writes on.
type Plan struct {
	Rule     string
	Kind     planKind
	Seat     int
	NextSeat *int
	Players  []store.Player
	Round    *store.Round
	Observed *time.Time
	Number   int
	Count    int
	Flag     bool
	Reason   string
}

func (p *Plan) String() string {
	s := string(p.Kind)
	switch p.Kind {
	case planConfigTimeout, planGameOverAdvance:
		if p.NextSeat != nil {
			return fmt.Sprintf("%s: dealer %d -> %d", s, p.Seat, *p.NextSeat)
		}
		return fmt.Sprintf("%s: dealer %d, no eligible successor", s, p.Seat)
	case planAnteTimeout:
		return fmt.Sprintf("%s: %d undecided, %d anted", s, len(p.Players), p.Count)
	case planTurnTimeout, planRecoverTurn:
		return fmt.Sprintf("%s: seat %d", s, p.Seat)
	case planSimultaneousTimeout:
		return fmt.Sprintf("%s: %d undecided", s, len(p.Players))
	case planCompleteRound, planStartRound:
		return fmt.Sprintf("%s: round %d", s, p.Number)
	case planEnd, planEndSession:
		return fmt.Sprintf("%s: %s", s, p.Reason)
	case planResume:
		return fmt.Sprintf("%s: %ds remaining", s, p.Count)
	}
	return s
}

type evalFunc func(snap *Snapshot, now time.Time, cfg config.OrchestratorConfig) *Plan

type rule struct {
	name string
	eval evalFunc
}

// phaseRules is evaluated in order for the session's status. Each rule rechecks
// its own preconditions, so the list stays valid after an earlier rule applies.
var phaseRules = map[store.SessionStatus][]rule{
	store.StatusDealerSelection: {{"config_deadline", evalConfigDeadline}},
	store.StatusGameSelection:   {{"config_deadline", evalConfigDeadline}},
	store.StatusConfiguring:     {{"config_deadline", evalConfigDeadline}},
	store.StatusAnteDecision:    {{"ante_deadline", evalAnteDeadline}},
	store.StatusInProgress: {
		{"turn_recovery", evalTurnRecovery},
		{"decision_deadline", evalDecisionDeadline},
		{"all_decisions_in", evalAllDecisionsIn},
		{"stuck_showdown", evalStuckShowdown},
		{"stuck_awaiting_next_round", evalAwaitingNextRound},
	},
	store.StatusGameOver: {{"game_over", evalGameOver}},
}

func evalConfigDeadline(snap *Snapshot, now time.Time, cfg config.OrchestratorConfig) *Plan {
	s := snap.Session
	if !s.Status.IsConfigPhase() || !elapsed(s.ConfigDeadline, now) {
		return nil
	}
	candidates := dealerCandidates(snap.Players, cfg.AllowBotDealers, map[int]bool{s.DealerPosition: true})
	humans := 0
	for _, p := range snap.Players {
		if p.Status == store.PlayerActive && !p.IsBot && p.Position != s.DealerPosition {
			humans++
		}
	}
	return &Plan{
		Kind:     planConfigTimeout,
		Seat:     s.DealerPosition,
		NextSeat: nextClockwise(s.DealerPosition, candidates),
		Observed: s.ConfigDeadline,
		Count:    humans,
	}
}

func evalAnteDeadline(snap *Snapshot, now time.Time, cfg config.OrchestratorConfig) *Plan {
	s := snap.Session
	if s.Status != store.StatusAnteDecision || !elapsed(s.AnteDecisionDeadline, now) {
		return nil
	}
	var undecided []store.Player
	anted := 0
	for _, p := range snap.Players {
		if !p.Seated() {
			continue
		}
		switch p.AnteDecision {
		case store.AnteUndecided:
			undecided = append(undecided, p)
		case store.AnteUp:
			anted++
		}
	}
	return &Plan{
		Kind:     planAnteTimeout,
		Seat:     s.DealerPosition,
		Players:  undecided,
		Observed: s.AnteDecisionDeadline,
		Count:    anted,
	}
}

func evalGameOver(snap *Snapshot, now time.Time, cfg config.OrchestratorConfig) *Plan {
	s := snap.Session
	if s.Status != store.StatusGameOver || s.GameOverAt == nil {
		return nil
	}
	window := cfg.GameOverDealerWindow
	if d := snap.dealer(); d != nil && d.Seated() && !d.IsBot {
		window = cfg.GameOverAutoAdvance
	}
	if now.Sub(*s.GameOverAt) < window {
		return nil
	}
	if s.PendingSessionEnd {
		return &Plan{Kind: planEndSession, Reason: "pending_session_end"}
	}
	if len(snap.seated()) < 2 || seatedHumans(snap.Players) < 1 {
		return &Plan{Kind: planEndSession, Reason: "not_enough_players"}
	}
	next := nextClockwise(s.DealerPosition, dealerCandidates(snap.Players, cfg.AllowBotDealers, map[int]bool{s.DealerPosition: true}))
	if next == nil {
		if len(dealerCandidates(snap.Players, cfg.AllowBotDealers, nil)) == 0 {
			return &Plan{Kind: planEndSession, Reason: "no_eligible_dealer"}
		}
		stay := s.DealerPosition
		next = &stay
	}
	return &Plan{
		Kind:     planGameOverAdvance,
		Seat:     s.DealerPosition,
		NextSeat: next,
		Observed: s.GameOverAt,
	}
}

// evalResume fires once after an unpause: the saved remaining seconds become a
// fresh deadline for whichever phase was frozen.
func evalResume(snap *Snapshot, now time.Time, _ config.OrchestratorConfig) *Plan {
	s := snap.Session
	if s.IsPaused || s.PausedTimeRemaining == nil {
		return nil
	}
	remaining := *s.PausedTimeRemaining
	if remaining < 0 {
		remaining = 0
	}
	deadline := now.Add(time.Duration(remaining) * time.Second)
	p := &Plan{Rule: "resume", Kind: planResume, Count: remaining, Observed: &deadline}
	if s.Status == store.StatusInProgress && snap.Round != nil && snap.Round.Status == store.RoundBetting {
		p.Round = snap.Round
	}
	return p
}
