package orchestrator

type Source string

const (
	SourceClient     Source = "client"
	SourceReconciler Source = "reconciler"
	SourceDebug      Source = "debug"
)

func (s Source) Valid() bool {
	switch s {
	case SourceClient, SourceReconciler, SourceDebug:
		return true
	default:
		return false
	}
}

// reclaims reports whether callers from this source may run the stale-session
// reclaimer. Clients only ever drive phase deadlines.
func (s Source) reclaims() bool {
	return s == SourceReconciler || s == SourceDebug
}

type Request struct {
	SessionID string `json:"sessionId"`
	Source    Source `json:"source"`
	RequestID string `json:"requestId,omitempty"`
	AuditOnly bool   `json:"auditOnly,omitempty"`
}

type Response struct {
	Success        bool         `json:"success"`
	ActionsTaken   []string     `json:"actionsTaken"`
	SessionStatus  string       `json:"sessionStatus"`
	SessionMissing bool         `json:"sessionMissing,omitempty"`
	IsPaused       bool         `json:"isPaused,omitempty"`
	RequestID      string       `json:"requestId"`
	Audit          *AuditReport `json:"audit,omitempty"`
}

type ActionKind string

const (
	ActionDealerSatOut    ActionKind = "dealer_sat_out"
	ActionRotateDealer    ActionKind = "rotate_dealer"
	ActionRegressWaiting  ActionKind = "regress_to_waiting_for_players"
	ActionForceAnteSitOut ActionKind = "force_ante_sit_out"
	ActionAnteComplete    ActionKind = "ante_complete"
	ActionForceFold       ActionKind = "force_fold"
	ActionBotDecision     ActionKind = "bot_fallback_decision"
	ActionAdvanceTurn     ActionKind = "advance_turn"
	ActionRecoverTurn     ActionKind = "recover_turn_position"
	ActionHealDeadline    ActionKind = "heal_turn_deadline"
	ActionAllDecisionsIn  ActionKind = "all_decisions_in"
	ActionRoundShowdown   ActionKind = "round_showdown"
	ActionCompleteRound   ActionKind = "complete_stuck_round"
	ActionAwaitNextRound  ActionKind = "awaiting_next_round"
	ActionStartRound      ActionKind = "start_next_round"
	ActionBeginHand       ActionKind = "begin_next_hand"
	ActionResume          ActionKind = "resume_from_pause"
	ActionEndSession      ActionKind = "end_session"
	ActionDeleteSession   ActionKind = "delete_session"
)

type Action struct {
	Kind   ActionKind
	Detail string
}

func (a Action) String() string {
	if a.Detail == "" {
		return string(a.Kind)
	}
	return string(a.Kind) + ":" + a.Detail
}
