package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const sessionColumns = `id, status, game_type, dealer_position, config_deadline, ante_decision_deadline,
	current_round, awaiting_next_round, next_round_number, all_decisions_in, is_paused,
	paused_time_remaining, pending_session_end, game_over_at, session_ended_at, real_money,
	updated_at, created_at`

func scanSession(row pgx.Row) (*Session, error) {
	var (
		s                                  Session
		status, gameType                   string
		configDeadline, anteDeadline       pgtype.Timestamptz
		gameOverAt, endedAt                pgtype.Timestamptz
		currentRound, nextRound, remaining pgtype.Int4
	)
	err := row.Scan(&s.ID, &status, &gameType, &s.DealerPosition, &configDeadline, &anteDeadline,
		&currentRound, &s.AwaitingNextRound, &nextRound, &s.AllDecisionsIn, &s.IsPaused,
		&remaining, &s.PendingSessionEnd, &gameOverAt, &endedAt, &s.RealMoney,
		&s.UpdatedAt, &s.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	s.Status = SessionStatus(status)
	s.GameType = GameType(gameType)
	s.ConfigDeadline = timePtrVal(configDeadline)
	s.AnteDecisionDeadline = timePtrVal(anteDeadline)
	s.GameOverAt = timePtrVal(gameOverAt)
	s.SessionEndedAt = timePtrVal(endedAt)
	s.CurrentRound = intPtrVal(currentRound)
	s.NextRoundNumber = intPtrVal(nextRound)
	s.PausedTimeRemaining = intPtrVal(remaining)
	s.UpdatedAt = s.UpdatedAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, sessionID)
	return scanSession(row)
}

func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		sess.ID = NewID()
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = time.Now().UTC()
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO sessions (id, status, game_type, dealer_position, config_deadline, ante_decision_deadline,
			current_round, awaiting_next_round, next_round_number, all_decisions_in, is_paused,
			paused_time_remaining, pending_session_end, game_over_at, session_ended_at, real_money, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		sess.ID, string(sess.Status), string(sess.GameType), sess.DealerPosition,
		timeParam(sess.ConfigDeadline), timeParam(sess.AnteDecisionDeadline),
		int4PtrParam(sess.CurrentRound), sess.AwaitingNextRound, int4PtrParam(sess.NextRoundNumber),
		sess.AllDecisionsIn, sess.IsPaused, int4PtrParam(sess.PausedTimeRemaining), sess.PendingSessionEnd,
		timeParam(sess.GameOverAt), timeParam(sess.SessionEndedAt), sess.RealMoney, sess.UpdatedAt)
	return err
}

// UpdateSessionIf applies patch only while every column named in cond still holds
// its observed value. It reports whether the row was written.
func (s *Store) UpdateSessionIf(ctx context.Context, sessionID string, cond SessionCond, patch SessionPatch, at time.Time) (bool, error) {
	q := newCASQuery("sessions", sessionID)
	setCol(q, "status", patch.Status)
	setCol(q, "dealer_position", patch.DealerPosition)
	setCol(q, "config_deadline", patch.ConfigDeadline)
	setCol(q, "ante_decision_deadline", patch.AnteDecisionDeadline)
	setCol(q, "current_round", patch.CurrentRound)
	setCol(q, "awaiting_next_round", patch.AwaitingNextRound)
	setCol(q, "next_round_number", patch.NextRoundNumber)
	setCol(q, "all_decisions_in", patch.AllDecisionsIn)
	setCol(q, "is_paused", patch.IsPaused)
	setCol(q, "paused_time_remaining", patch.PausedTimeRemaining)
	setCol(q, "pending_session_end", patch.PendingSessionEnd)
	setCol(q, "game_over_at", patch.GameOverAt)
	setCol(q, "session_ended_at", patch.SessionEndedAt)
	q.setRaw("updated_at", at)

	whereCol(q, "status", cond.Status)
	whereCol(q, "updated_at", cond.UpdatedAt)
	whereCol(q, "dealer_position", cond.DealerPosition)
	whereCol(q, "config_deadline", cond.ConfigDeadline)
	whereCol(q, "ante_decision_deadline", cond.AnteDecisionDeadline)
	whereCol(q, "awaiting_next_round", cond.AwaitingNextRound)
	whereCol(q, "next_round_number", cond.NextRoundNumber)
	whereCol(q, "all_decisions_in", cond.AllDecisionsIn)
	whereCol(q, "is_paused", cond.IsPaused)
	whereCol(q, "paused_time_remaining", cond.PausedTimeRemaining)
	whereCol(q, "game_over_at", cond.GameOverAt)

	tag, err := s.Pool.Exec(ctx, q.sql(), q.args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListOpenSessionIDs returns non-terminal sessions, least recently touched first.
func (s *Store) ListOpenSessionIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.Pool.Query(ctx, `SELECT id FROM sessions WHERE status <> 'session_ended' ORDER BY updated_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// BeginHand moves a game_over session into configuring for the next hand and clears
// every player's per-hand decisions, guarded on the observed gameOverAt.
func (s *Store) BeginHand(ctx context.Context, p BeginHandParams) (bool, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE sessions
		SET status = 'configuring', dealer_position = $3, config_deadline = $4, game_over_at = NULL,
		    ante_decision_deadline = NULL, current_round = NULL, awaiting_next_round = false,
		    next_round_number = NULL, all_decisions_in = false, updated_at = $5
		WHERE id = $1 AND status = 'game_over' AND game_over_at = $2`,
		p.SessionID, p.ObservedGameOverAt, p.DealerPosition, p.ConfigDeadline, p.At)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, `
		UPDATE players
		SET ante_decision = NULL, current_decision = NULL, decision_locked = false
		WHERE session_id = $1`, p.SessionID); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
