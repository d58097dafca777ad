package orchestrator

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog/log"

	"table-keeper/internal/game"
	"table-keeper/internal/store"
)

// Snapshot is one consistent-enough read of a session: the session row, its
// players ordered by position, and the current round when there is one.
type Snapshot struct {
	Session store.Session
	Players []store.Player
	Round   *store.Round
	Rules   game.Rules
}

func loadSnapshot(ctx context.Context, st Store, sessionID string) (*Snapshot, error) {
	sess, err := st.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	players, err := st.ListPlayers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Session: *sess, Players: players, Rules: rulesFor(sess)}
	if sess.CurrentRound != nil {
		round, err := st.GetRound(ctx, sessionID, *sess.CurrentRound)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			snap.Round = round
		}
	}
	return snap, nil
}

func rulesFor(sess *store.Session) game.Rules {
	rules, err := game.RulesFor(string(sess.GameType))
	if err != nil {
		fallback, _ := game.RulesFor(string(store.GameHolm))
		if sess.GameType != "" {
			log.Warn().Str("session_id", sess.ID).Str("game_type", string(sess.GameType)).Msg("unknown game type, using holm rules")
		}
		return fallback
	}
	return rules
}

func (s *Snapshot) playerAt(position int) *store.Player {
	for i := range s.Players {
		if s.Players[i].Position == position {
			return &s.Players[i]
		}
	}
	return nil
}

func (s *Snapshot) dealer() *store.Player {
	return s.playerAt(s.Session.DealerPosition)
}

func (s *Snapshot) seated() []store.Player {
	out := make([]store.Player, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Seated() {
			out = append(out, p)
		}
	}
	return out
}

// undecided returns seated players whose decision for the current round is not locked.
func (s *Snapshot) undecided() []store.Player {
	return undecidedOf(s.Players)
}

func undecidedOf(players []store.Player) []store.Player {
	var out []store.Player
	for _, p := range players {
		if p.Seated() && !p.DecisionLocked {
			out = append(out, p)
		}
	}
	return out
}

func seatedHumans(players []store.Player) int {
	n := 0
	for _, p := range players {
		if p.Seated() && !p.IsBot {
			n++
		}
	}
	return n
}

// dealerCandidates lists seats that may take the dealer button, excluding skip.
func dealerCandidates(players []store.Player, allowBots bool, skip map[int]bool) []int {
	var seats []int
	for _, p := range players {
		if !p.Seated() || skip[p.Position] {
			continue
		}
		if p.IsBot && !allowBots {
			continue
		}
		seats = append(seats, p.Position)
	}
	return seats
}

func positions(players []store.Player) []int {
	out := make([]int, 0, len(players))
	for _, p := range players {
		out = append(out, p.Position)
	}
	return out
}

// nextClockwise returns the smallest seat greater than from, wrapping to the
// smallest seat overall. Nil when seats is empty.
func nextClockwise(from int, seats []int) *int {
	if len(seats) == 0 {
		return nil
	}
	sorted := append([]int(nil), seats...)
	sort.Ints(sorted)
	for _, seat := range sorted {
		if seat > from {
			return &seat
		}
	}
	first := sorted[0]
	return &first
}
