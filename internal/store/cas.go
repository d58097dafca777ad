package store

import (
	"encoding/json"
	"time"
)

// Opt is one column of a conditional write. A zero Opt leaves the column out;
// a valid Opt with a nil Val means NULL.
type Opt[T any] struct {
	Valid bool
	Val   *T
}

func Set[T any](v T) Opt[T] {
	return Opt[T]{Valid: true, Val: &v}
}

func SetNull[T any]() Opt[T] {
	return Opt[T]{Valid: true}
}

// SetPtr copies v so later mutation of the caller's value cannot leak into the write.
func SetPtr[T any](v *T) Opt[T] {
	if v == nil {
		return SetNull[T]()
	}
	return Set(*v)
}

// SessionCond lists the values a session row must still hold for a write to land.
type SessionCond struct {
	Status               Opt[SessionStatus]
	UpdatedAt            Opt[time.Time]
	DealerPosition       Opt[int]
	ConfigDeadline       Opt[time.Time]
	AnteDecisionDeadline Opt[time.Time]
	AwaitingNextRound    Opt[bool]
	NextRoundNumber      Opt[int]
	AllDecisionsIn       Opt[bool]
	IsPaused             Opt[bool]
	PausedTimeRemaining  Opt[int]
	GameOverAt           Opt[time.Time]
}

type SessionPatch struct {
	Status               Opt[SessionStatus]
	DealerPosition       Opt[int]
	ConfigDeadline       Opt[time.Time]
	AnteDecisionDeadline Opt[time.Time]
	CurrentRound         Opt[int]
	AwaitingNextRound    Opt[bool]
	NextRoundNumber      Opt[int]
	AllDecisionsIn       Opt[bool]
	IsPaused             Opt[bool]
	PausedTimeRemaining  Opt[int]
	PendingSessionEnd    Opt[bool]
	GameOverAt           Opt[time.Time]
	SessionEndedAt       Opt[time.Time]
}

// PlayerCond and PlayerPatch treat "" decisions as NULL.
type PlayerCond struct {
	SittingOut     Opt[bool]
	AnteDecision   Opt[AnteDecision]
	DecisionLocked Opt[bool]
}

type PlayerPatch struct {
	SittingOut      Opt[bool]
	AnteDecision    Opt[AnteDecision]
	CurrentDecision Opt[Decision]
	DecisionLocked  Opt[bool]
	AutoFold        Opt[bool]
}

type RoundCond struct {
	Status              Opt[RoundStatus]
	DecisionDeadline    Opt[time.Time]
	CurrentTurnPosition Opt[int]
}

type RoundPatch struct {
	Status              Opt[RoundStatus]
	DecisionDeadline    Opt[time.Time]
	CurrentTurnPosition Opt[int]
}

// StartRoundParams describes the atomic "deal the next round" write. It lands only
// while the session is still awaiting NextRoundNumber.
type StartRoundParams struct {
	SessionID        string
	RoundID          string
	RoundNumber      int
	DecisionDeadline time.Time
	TurnPosition     *int
	Payload          json.RawMessage
	At               time.Time
}

// BeginHandParams describes the atomic game_over -> configuring transition.
type BeginHandParams struct {
	SessionID          string
	ObservedGameOverAt time.Time
	DealerPosition     int
	ConfigDeadline     time.Time
	At                 time.Time
}
