package orchestrator

import (
	"context"
	"time"

	"table-keeper/internal/store"
)

// Store is everything the orchestrator needs from persistence: row reads and
// conditional writes. Writes report false when the observed values no longer hold.
type Store interface {
	GetSession(ctx context.Context, sessionID string) (*store.Session, error)
	ListPlayers(ctx context.Context, sessionID string) ([]store.Player, error)
	GetRound(ctx context.Context, sessionID string, roundNumber int) (*store.Round, error)
	ListOpenSessionIDs(ctx context.Context, limit int) ([]string, error)

	UpdateSessionIf(ctx context.Context, sessionID string, cond store.SessionCond, patch store.SessionPatch, at time.Time) (bool, error)
	UpdatePlayerIf(ctx context.Context, playerID string, cond store.PlayerCond, patch store.PlayerPatch) (bool, error)
	UpdateRoundIf(ctx context.Context, roundID string, cond store.RoundCond, patch store.RoundPatch, at time.Time) (bool, error)
	StartRound(ctx context.Context, p store.StartRoundParams) (bool, error)
	BeginHand(ctx context.Context, p store.BeginHandParams) (bool, error)

	HasHistory(ctx context.Context, sessionID string) (bool, error)
	DeleteSessionIf(ctx context.Context, sessionID string, observedUpdatedAt time.Time) (bool, error)
}

var _ Store = (*store.Store)(nil)
