package orchestrator

import (
	"time"

	"table-keeper/internal/config"
	"table-keeper/internal/store"
)

func bettingRound(snap *Snapshot) *store.Round {
	if snap.Session.Status != store.StatusInProgress || snap.Session.AwaitingNextRound {
		return nil
	}
	if snap.Round == nil || snap.Round.Status != store.RoundBetting {
		return nil
	}
	return snap.Round
}

// evalTurnRecovery repairs a turn-based betting round whose turn pointer is
// missing or names a seat that is no longer in the hand.
func evalTurnRecovery(snap *Snapshot, _ time.Time, _ config.OrchestratorConfig) *Plan {
	round := bettingRound(snap)
	if round == nil || !snap.Rules.TurnBased {
		return nil
	}
	undecided := snap.undecided()
	if len(undecided) == 0 {
		return nil
	}
	from := -1
	if round.CurrentTurnPosition != nil {
		p := snap.playerAt(*round.CurrentTurnPosition)
		if p != nil && p.Seated() {
			return nil
		}
		from = *round.CurrentTurnPosition
	}
	next := nextClockwise(from, positions(undecided))
	return &Plan{Kind: planRecoverTurn, Round: round, Seat: *next}
}

func evalDecisionDeadline(snap *Snapshot, now time.Time, _ config.OrchestratorConfig) *Plan {
	round := bettingRound(snap)
	if round == nil || !elapsed(round.DecisionDeadline, now) {
		return nil
	}
	if snap.Rules.TurnBased {
		if round.CurrentTurnPosition == nil {
			return nil
		}
		seat := *round.CurrentTurnPosition
		actor := snap.playerAt(seat)
		if actor == nil || !actor.Seated() {
			return nil
		}
		return &Plan{
			Kind:     planTurnTimeout,
			Round:    round,
			Seat:     seat,
			Players:  []store.Player{*actor},
			Observed: round.DecisionDeadline,
		}
	}
	undecided := snap.undecided()
	if len(undecided) == 0 {
		return nil
	}
	return &Plan{
		Kind:     planSimultaneousTimeout,
		Round:    round,
		Players:  undecided,
		Observed: round.DecisionDeadline,
	}
}

// evalAllDecisionsIn moves a betting round whose seated players have all locked
// a decision on to showdown.
func evalAllDecisionsIn(snap *Snapshot, _ time.Time, _ config.OrchestratorConfig) *Plan {
	round := bettingRound(snap)
	if round == nil || len(snap.seated()) == 0 || len(snap.undecided()) > 0 {
		return nil
	}
	return &Plan{Kind: planFlipAllIn, Round: round, Number: round.RoundNumber}
}

func evalStuckShowdown(snap *Snapshot, now time.Time, cfg config.OrchestratorConfig) *Plan {
	s := snap.Session
	round := snap.Round
	if s.Status != store.StatusInProgress || s.AwaitingNextRound || !s.AllDecisionsIn || round == nil {
		return nil
	}
	switch round.Status {
	case store.RoundShowdown, store.RoundProcessing, store.RoundCompleted:
	default:
		return nil
	}
	last := s.UpdatedAt
	if round.UpdatedAt.After(last) {
		last = round.UpdatedAt
	}
	if now.Sub(last) < cfg.ShowdownGrace {
		return nil
	}
	current := round.RoundNumber
	return &Plan{
		Kind:   planCompleteRound,
		Round:  round,
		Number: current,
		Count:  snap.Rules.NextRoundNumber(&current),
	}
}

func evalAwaitingNextRound(snap *Snapshot, now time.Time, cfg config.OrchestratorConfig) *Plan {
	s := snap.Session
	if s.Status != store.StatusInProgress || !s.AwaitingNextRound || now.Sub(s.UpdatedAt) < cfg.NextRoundGrace {
		return nil
	}
	if s.PendingSessionEnd {
		return &Plan{Kind: planEndSession, Reason: "pending_session_end"}
	}
	seated := snap.seated()
	if len(seated) < 2 {
		return &Plan{Kind: planRegressShortHanded, Count: len(seated)}
	}
	number := snap.Rules.NextRoundNumber(s.CurrentRound)
	if s.NextRoundNumber != nil {
		number = *s.NextRoundNumber
	}
	p := &Plan{Kind: planStartRound, Number: number, Players: seated}
	if snap.Rules.TurnBased {
		p.NextSeat = nextClockwise(s.DealerPosition, positions(seated))
	}
	return p
}
