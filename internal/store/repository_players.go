package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

func (s *Store) ListPlayers(ctx context.Context, sessionID string) ([]Player, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, session_id, position, is_bot, sitting_out, ante_decision, current_decision,
		       decision_locked, auto_fold, status
		FROM players WHERE session_id = $1 ORDER BY position ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Player{}
	for rows.Next() {
		var (
			p              Player
			ante, decision pgtype.Text
			status         string
		)
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Position, &p.IsBot, &p.SittingOut, &ante, &decision,
			&p.DecisionLocked, &p.AutoFold, &status); err != nil {
			return nil, err
		}
		p.AnteDecision = AnteDecision(textVal(ante))
		p.CurrentDecision = Decision(textVal(decision))
		p.Status = PlayerStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) AddPlayer(ctx context.Context, p Player) (string, error) {
	if p.ID == "" {
		p.ID = NewID()
	}
	if p.Status == "" {
		p.Status = PlayerActive
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO players (id, session_id, position, is_bot, sitting_out, ante_decision, current_decision,
			decision_locked, auto_fold, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.SessionID, p.Position, p.IsBot, p.SittingOut, textParam(string(p.AnteDecision)),
		textParam(string(p.CurrentDecision)), p.DecisionLocked, p.AutoFold, string(p.Status))
	return p.ID, err
}

// UpdatePlayerIf is the per-seat conditional write; the decisionLocked=false guard
// is what keeps two racing callers from both resolving one turn.
func (s *Store) UpdatePlayerIf(ctx context.Context, playerID string, cond PlayerCond, patch PlayerPatch) (bool, error) {
	q := newCASQuery("players", playerID)
	setCol(q, "sitting_out", patch.SittingOut)
	setCol(q, "ante_decision", patch.AnteDecision)
	setCol(q, "current_decision", patch.CurrentDecision)
	setCol(q, "decision_locked", patch.DecisionLocked)
	setCol(q, "auto_fold", patch.AutoFold)
	if len(q.sets) == 0 {
		return false, nil
	}
	whereCol(q, "sitting_out", cond.SittingOut)
	whereCol(q, "ante_decision", cond.AnteDecision)
	whereCol(q, "decision_locked", cond.DecisionLocked)

	tag, err := s.Pool.Exec(ctx, q.sql(), q.args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
