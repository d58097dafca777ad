package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// HasHistory reports whether the session has a completed hand or an externally
// recorded result.
func (s *Store) HasHistory(ctx context.Context, sessionID string) (bool, error) {
	var ok bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM rounds WHERE session_id = $1 AND status = 'completed')
		    OR EXISTS (SELECT 1 FROM session_results WHERE session_id = $1)`, sessionID).Scan(&ok)
	return ok, err
}

func (s *Store) RecordResult(ctx context.Context, sessionID string, payload []byte) (string, error) {
	id := NewID()
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO session_results (id, session_id, payload) VALUES ($1,$2,$3)`, id, sessionID, payload)
	return id, err
}

// DeleteSessionIf removes a play-money session and all of its rows, leaves first.
// Nothing is deleted when the session moved on since observedUpdatedAt.
func (s *Store) DeleteSessionIf(ctx context.Context, sessionID string, observedUpdatedAt time.Time) (bool, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
		SELECT id FROM sessions
		WHERE id = $1 AND updated_at = $2 AND NOT real_money
		FOR UPDATE`, sessionID, observedUpdatedAt).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	for _, stmt := range []string{
		`DELETE FROM session_results WHERE session_id = $1`,
		`DELETE FROM rounds WHERE session_id = $1`,
		`DELETE FROM players WHERE session_id = $1`,
		`DELETE FROM sessions WHERE id = $1`,
	} {
		if _, err := tx.Exec(ctx, stmt, sessionID); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
