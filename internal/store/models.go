package store

import (
	"encoding/json"
	"time"
)

type SessionStatus string

const (
	StatusWaiting           SessionStatus = "waiting"
	StatusWaitingForPlayers SessionStatus = "waiting_for_players"
	StatusDealerSelection   SessionStatus = "dealer_selection"
	StatusGameSelection     SessionStatus = "game_selection"
	StatusConfiguring       SessionStatus = "configuring"
	StatusAnteDecision      SessionStatus = "ante_decision"
	StatusInProgress        SessionStatus = "in_progress"
	StatusGameOver          SessionStatus = "game_over"
	StatusSessionEnded      SessionStatus = "session_ended"
)

// IsConfigPhase reports whether the dealer owns the session and configDeadline applies.
func (s SessionStatus) IsConfigPhase() bool {
	switch s {
	case StatusDealerSelection, StatusGameSelection, StatusConfiguring:
		return true
	default:
		return false
	}
}

type GameType string

const (
	GameHolm           GameType = "holm"
	GameThreeFiveSeven GameType = "3-5-7"
)

type PlayerStatus string

const (
	PlayerActive   PlayerStatus = "active"
	PlayerObserver PlayerStatus = "observer"
)

// AnteDecision and Decision use "" for a NULL column.
type AnteDecision string

const (
	AnteUndecided AnteDecision = ""
	AnteUp        AnteDecision = "ante_up"
	AnteSitOut    AnteDecision = "sit_out"
)

type Decision string

const (
	DecisionNone Decision = ""
	DecisionStay Decision = "stay"
	DecisionFold Decision = "fold"
)

type RoundStatus string

const (
	RoundBetting    RoundStatus = "betting"
	RoundShowdown   RoundStatus = "showdown"
	RoundProcessing RoundStatus = "processing"
	RoundCompleted  RoundStatus = "completed"
)

type Session struct {
	ID                   string        `json:"id"`
	Status               SessionStatus `json:"status"`
	GameType             GameType      `json:"game_type"`
	DealerPosition       int           `json:"dealer_position"`
	ConfigDeadline       *time.Time    `json:"config_deadline,omitempty"`
	AnteDecisionDeadline *time.Time    `json:"ante_decision_deadline,omitempty"`
	CurrentRound         *int          `json:"current_round,omitempty"`
	AwaitingNextRound    bool          `json:"awaiting_next_round"`
	NextRoundNumber      *int          `json:"next_round_number,omitempty"`
	AllDecisionsIn       bool          `json:"all_decisions_in"`
	IsPaused             bool          `json:"is_paused"`
	PausedTimeRemaining  *int          `json:"paused_time_remaining,omitempty"`
	PendingSessionEnd    bool          `json:"pending_session_end"`
	GameOverAt           *time.Time    `json:"game_over_at,omitempty"`
	SessionEndedAt       *time.Time    `json:"session_ended_at,omitempty"`
	RealMoney            bool          `json:"real_money"`
	UpdatedAt            time.Time     `json:"updated_at"`
	CreatedAt            time.Time     `json:"created_at"`
}

type Player struct {
	ID              string       `json:"id"`
	SessionID       string       `json:"session_id"`
	Position        int          `json:"position"`
	IsBot           bool         `json:"is_bot"`
	SittingOut      bool         `json:"sitting_out"`
	AnteDecision    AnteDecision `json:"ante_decision,omitempty"`
	CurrentDecision Decision     `json:"current_decision,omitempty"`
	DecisionLocked  bool         `json:"decision_locked"`
	AutoFold        bool         `json:"auto_fold"`
	Status          PlayerStatus `json:"status"`
}

// Seated reports whether the player is an active, non-sitting-out participant.
func (p Player) Seated() bool {
	return p.Status == PlayerActive && !p.SittingOut
}

type Round struct {
	ID                  string          `json:"id"`
	SessionID           string          `json:"session_id"`
	RoundNumber         int             `json:"round_number"`
	Status              RoundStatus     `json:"status"`
	DecisionDeadline    *time.Time      `json:"decision_deadline,omitempty"`
	CurrentTurnPosition *int            `json:"current_turn_position,omitempty"`
	Payload             json.RawMessage `json:"payload,omitempty"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type SessionResult struct {
	ID         string
	SessionID  string
	Payload    []byte
	RecordedAt time.Time
}
