package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func (s *Store) GetRound(ctx context.Context, sessionID string, roundNumber int) (*Round, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, session_id, round_number, status, decision_deadline, current_turn_position, payload, updated_at
		FROM rounds WHERE session_id = $1 AND round_number = $2`, sessionID, roundNumber)
	var (
		r        Round
		status   string
		deadline pgtype.Timestamptz
		turn     pgtype.Int4
		payload  []byte
	)
	if err := row.Scan(&r.ID, &r.SessionID, &r.RoundNumber, &status, &deadline, &turn, &payload, &r.UpdatedAt); err != nil {
		return nil, mapNotFound(err)
	}
	r.Status = RoundStatus(status)
	r.DecisionDeadline = timePtrVal(deadline)
	r.CurrentTurnPosition = intPtrVal(turn)
	r.Payload = payload
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func (s *Store) CreateRound(ctx context.Context, r Round) (string, error) {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	payload := []byte(r.Payload)
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO rounds (id, session_id, round_number, status, decision_deadline, current_turn_position, payload, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		r.ID, r.SessionID, r.RoundNumber, string(r.Status), timeParam(r.DecisionDeadline),
		int4PtrParam(r.CurrentTurnPosition), payload, r.UpdatedAt)
	return r.ID, err
}

func (s *Store) UpdateRoundIf(ctx context.Context, roundID string, cond RoundCond, patch RoundPatch, at time.Time) (bool, error) {
	q := newCASQuery("rounds", roundID)
	setCol(q, "status", patch.Status)
	setCol(q, "decision_deadline", patch.DecisionDeadline)
	setCol(q, "current_turn_position", patch.CurrentTurnPosition)
	q.setRaw("updated_at", at)

	whereCol(q, "status", cond.Status)
	whereCol(q, "decision_deadline", cond.DecisionDeadline)
	whereCol(q, "current_turn_position", cond.CurrentTurnPosition)

	tag, err := s.Pool.Exec(ctx, q.sql(), q.args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// StartRound claims the session's awaiting-next-round flag and deals the round in one
// transaction. A NULL next_round_number accepts any number. A completed row with
// the same number (3-5-7 cycles) is reused. Nothing is written while another round
// is still betting.
func (s *Store) StartRound(ctx context.Context, p StartRoundParams) (bool, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE sessions
		SET awaiting_next_round = false, next_round_number = NULL, current_round = $2,
		    all_decisions_in = false, updated_at = $3
		WHERE id = $1 AND status = 'in_progress' AND awaiting_next_round
		  AND (next_round_number = $2 OR next_round_number IS NULL)
		  AND NOT EXISTS (SELECT 1 FROM rounds WHERE session_id = $1 AND status = 'betting')`,
		p.SessionID, p.RoundNumber, p.At)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, `
		UPDATE players SET current_decision = NULL, decision_locked = false
		WHERE session_id = $1 AND status = 'active' AND NOT sitting_out`, p.SessionID); err != nil {
		return false, err
	}
	payload := []byte(p.Payload)
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	tag, err = tx.Exec(ctx, `
		INSERT INTO rounds (id, session_id, round_number, status, decision_deadline, current_turn_position, payload, updated_at)
		VALUES ($1,$2,$3,'betting',$4,$5,$6,$7)
		ON CONFLICT (session_id, round_number) DO UPDATE
		SET status = 'betting', decision_deadline = EXCLUDED.decision_deadline,
		    current_turn_position = EXCLUDED.current_turn_position, payload = EXCLUDED.payload,
		    updated_at = EXCLUDED.updated_at
		WHERE rounds.status = 'completed'`,
		p.RoundID, p.SessionID, p.RoundNumber, p.DecisionDeadline, int4PtrParam(p.TurnPosition), payload, p.At)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
