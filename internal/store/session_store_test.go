package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"table-keeper/internal/store"
	"table-keeper/internal/testutil"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) (*store.Store, context.Context) {
	t.Helper()
	st, cleanup := testutil.OpenTestStore(t)
	t.Cleanup(cleanup)
	return st, context.Background()
}

func seedSession(t *testing.T, st *store.Store, ctx context.Context, sess store.Session, seats ...store.Player) store.Session {
	t.Helper()
	if sess.ID == "" {
		sess.ID = store.NewIDAt(t0)
	}
	if sess.GameType == "" {
		sess.GameType = store.GameHolm
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = t0
	}
	if err := st.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	for _, p := range seats {
		p.SessionID = sess.ID
		if _, err := st.AddPlayer(ctx, p); err != nil {
			t.Fatalf("add player %d: %v", p.Position, err)
		}
	}
	return sess
}

func TestUpdateSessionIfObservedValues(t *testing.T) {
	st, ctx := openStore(t)
	deadline := t0.Add(30 * time.Second)
	sess := seedSession(t, st, ctx, store.Session{
		Status:         store.StatusConfiguring,
		DealerPosition: 1,
		ConfigDeadline: &deadline,
	})

	next := t0.Add(time.Minute)
	ok, err := st.UpdateSessionIf(ctx, sess.ID,
		store.SessionCond{Status: store.Set(store.StatusConfiguring), ConfigDeadline: store.Set(deadline)},
		store.SessionPatch{DealerPosition: store.Set(2), ConfigDeadline: store.Set(next)}, t0.Add(time.Second))
	if err != nil || !ok {
		t.Fatalf("first write: ok=%v err=%v", ok, err)
	}

	ok, err = st.UpdateSessionIf(ctx, sess.ID,
		store.SessionCond{ConfigDeadline: store.Set(deadline)},
		store.SessionPatch{DealerPosition: store.Set(3)}, t0.Add(2*time.Second))
	if err != nil {
		t.Fatalf("stale write: %v", err)
	}
	if ok {
		t.Fatalf("expected write on stale deadline to be rejected")
	}

	got, err := st.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.DealerPosition != 2 || got.ConfigDeadline == nil || !got.ConfigDeadline.Equal(next) {
		t.Fatalf("unexpected session: %+v", got)
	}
	if !got.UpdatedAt.Equal(t0.Add(time.Second)) {
		t.Fatalf("expected updatedAt to advance, got %v", got.UpdatedAt)
	}

	ok, err = st.UpdateSessionIf(ctx, sess.ID,
		store.SessionCond{AnteDecisionDeadline: store.SetNull[time.Time]()},
		store.SessionPatch{ConfigDeadline: store.SetNull[time.Time](), IsPaused: store.Set(true)}, t0.Add(3*time.Second))
	if err != nil || !ok {
		t.Fatalf("null-conditioned write: ok=%v err=%v", ok, err)
	}
	got, _ = st.GetSession(ctx, sess.ID)
	if got.ConfigDeadline != nil || !got.IsPaused {
		t.Fatalf("expected cleared deadline and paused session: %+v", got)
	}
}

func TestUpdatePlayerIfDecisionLock(t *testing.T) {
	st, ctx := openStore(t)
	sess := seedSession(t, st, ctx, store.Session{Status: store.StatusInProgress},
		store.Player{Position: 1}, store.Player{Position: 2, IsBot: true})
	players, err := st.ListPlayers(ctx, sess.ID)
	if err != nil || len(players) != 2 {
		t.Fatalf("list players: %v (%d)", err, len(players))
	}
	p := players[0]

	cond := store.PlayerCond{DecisionLocked: store.Set(false)}
	ok, err := st.UpdatePlayerIf(ctx, p.ID, cond, store.PlayerPatch{
		CurrentDecision: store.Set(store.DecisionFold),
		DecisionLocked:  store.Set(true),
		AutoFold:        store.Set(true),
	})
	if err != nil || !ok {
		t.Fatalf("first decision: ok=%v err=%v", ok, err)
	}
	ok, err = st.UpdatePlayerIf(ctx, p.ID, cond, store.PlayerPatch{
		CurrentDecision: store.Set(store.DecisionStay),
		DecisionLocked:  store.Set(true),
	})
	if err != nil {
		t.Fatalf("second decision: %v", err)
	}
	if ok {
		t.Fatalf("expected locked decision to reject a second writer")
	}

	players, _ = st.ListPlayers(ctx, sess.ID)
	if players[0].CurrentDecision != store.DecisionFold || !players[0].AutoFold {
		t.Fatalf("unexpected player: %+v", players[0])
	}
	if !players[1].IsBot || players[1].CurrentDecision != store.DecisionNone {
		t.Fatalf("second seat should be untouched: %+v", players[1])
	}

	ok, err = st.UpdatePlayerIf(ctx, players[1].ID,
		store.PlayerCond{AnteDecision: store.Set(store.AnteUndecided)},
		store.PlayerPatch{AnteDecision: store.Set(store.AnteSitOut), SittingOut: store.Set(true)})
	if err != nil || !ok {
		t.Fatalf("sit out undecided ante: ok=%v err=%v", ok, err)
	}
}

func TestStartRoundClaimsAwaitingOnce(t *testing.T) {
	st, ctx := openStore(t)
	first := 1
	sess := seedSession(t, st, ctx, store.Session{
		Status:            store.StatusInProgress,
		AwaitingNextRound: true,
		NextRoundNumber:   &first,
	},
		store.Player{Position: 1, CurrentDecision: store.DecisionStay, DecisionLocked: true},
		store.Player{Position: 2},
	)

	turn := 2
	params := store.StartRoundParams{
		SessionID:        sess.ID,
		RoundID:          store.NewIDAt(t0),
		RoundNumber:      1,
		DecisionDeadline: t0.Add(30 * time.Second),
		TurnPosition:     &turn,
		Payload:          []byte(`{"round":1}`),
		At:               t0.Add(time.Second),
	}
	ok, err := st.StartRound(ctx, params)
	if err != nil || !ok {
		t.Fatalf("start round: ok=%v err=%v", ok, err)
	}
	params.RoundID = store.NewIDAt(t0.Add(time.Second))
	ok, err = st.StartRound(ctx, params)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if ok {
		t.Fatalf("expected the awaiting flag to be claimed once")
	}

	got, _ := st.GetSession(ctx, sess.ID)
	if got.AwaitingNextRound || got.NextRoundNumber != nil || got.CurrentRound == nil || *got.CurrentRound != 1 {
		t.Fatalf("unexpected session after start: %+v", got)
	}
	round, err := st.GetRound(ctx, sess.ID, 1)
	if err != nil {
		t.Fatalf("get round: %v", err)
	}
	if round.Status != store.RoundBetting || round.CurrentTurnPosition == nil || *round.CurrentTurnPosition != 2 {
		t.Fatalf("unexpected round: %+v", round)
	}
	players, _ := st.ListPlayers(ctx, sess.ID)
	for _, p := range players {
		if p.CurrentDecision != store.DecisionNone || p.DecisionLocked {
			t.Fatalf("expected decisions cleared: %+v", p)
		}
	}
}

func TestStartRoundReusesCompletedRoundNumber(t *testing.T) {
	st, ctx := openStore(t)
	sess := seedSession(t, st, ctx, store.Session{
		Status:            store.StatusInProgress,
		GameType:          store.GameThreeFiveSeven,
		AwaitingNextRound: true,
	}, store.Player{Position: 1}, store.Player{Position: 2})
	if _, err := st.CreateRound(ctx, store.Round{SessionID: sess.ID, RoundNumber: 1, Status: store.RoundCompleted, UpdatedAt: t0}); err != nil {
		t.Fatalf("create round: %v", err)
	}

	ok, err := st.StartRound(ctx, store.StartRoundParams{
		SessionID:        sess.ID,
		RoundID:          store.NewIDAt(t0),
		RoundNumber:      1,
		DecisionDeadline: t0.Add(time.Minute),
		At:               t0.Add(time.Second),
	})
	if err != nil || !ok {
		t.Fatalf("start over completed round: ok=%v err=%v", ok, err)
	}
	round, _ := st.GetRound(ctx, sess.ID, 1)
	if round.Status != store.RoundBetting || round.CurrentTurnPosition != nil {
		t.Fatalf("expected reused betting round, got %+v", round)
	}
}

func TestStartRoundRefusedWhileRoundBetting(t *testing.T) {
	st, ctx := openStore(t)
	sess := seedSession(t, st, ctx, store.Session{
		Status:            store.StatusInProgress,
		AwaitingNextRound: true,
	}, store.Player{Position: 1}, store.Player{Position: 2})
	if _, err := st.CreateRound(ctx, store.Round{SessionID: sess.ID, RoundNumber: 1, Status: store.RoundBetting, UpdatedAt: t0}); err != nil {
		t.Fatalf("create round: %v", err)
	}

	ok, err := st.StartRound(ctx, store.StartRoundParams{
		SessionID:        sess.ID,
		RoundID:          store.NewIDAt(t0),
		RoundNumber:      2,
		DecisionDeadline: t0.Add(time.Minute),
		At:               t0.Add(time.Second),
	})
	if err != nil {
		t.Fatalf("start round: %v", err)
	}
	if ok {
		t.Fatal("expected start refused while round 1 is betting")
	}
	got, _ := st.GetSession(ctx, sess.ID)
	if !got.AwaitingNextRound {
		t.Fatalf("session claim must be left untouched: %+v", got)
	}
	if _, err := st.GetRound(ctx, sess.ID, 2); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no round 2, got %v", err)
	}
}

func TestUpdatePlayerIfEmptyPatchWritesNothing(t *testing.T) {
	st, ctx := openStore(t)
	sess := seedSession(t, st, ctx, store.Session{Status: store.StatusInProgress}, store.Player{Position: 1})
	players, _ := st.ListPlayers(ctx, sess.ID)
	ok, err := st.UpdatePlayerIf(ctx, players[0].ID, store.PlayerCond{DecisionLocked: store.Set(false)}, store.PlayerPatch{})
	if err != nil || ok {
		t.Fatalf("expected no write for empty patch: ok=%v err=%v", ok, err)
	}
}

func TestUpdateRoundIfTurnAdvance(t *testing.T) {
	st, ctx := openStore(t)
	sess := seedSession(t, st, ctx, store.Session{Status: store.StatusInProgress})
	deadline := t0.Add(30 * time.Second)
	turn := 1
	id, err := st.CreateRound(ctx, store.Round{
		SessionID: sess.ID, RoundNumber: 1, Status: store.RoundBetting,
		DecisionDeadline: &deadline, CurrentTurnPosition: &turn, UpdatedAt: t0,
	})
	if err != nil {
		t.Fatalf("create round: %v", err)
	}

	cond := store.RoundCond{Status: store.Set(store.RoundBetting), DecisionDeadline: store.Set(deadline)}
	ok, err := st.UpdateRoundIf(ctx, id, cond, store.RoundPatch{
		CurrentTurnPosition: store.Set(2),
		DecisionDeadline:    store.Set(t0.Add(time.Minute)),
	}, t0.Add(31*time.Second))
	if err != nil || !ok {
		t.Fatalf("advance: ok=%v err=%v", ok, err)
	}
	ok, _ = st.UpdateRoundIf(ctx, id, cond, store.RoundPatch{CurrentTurnPosition: store.Set(3)}, t0.Add(32*time.Second))
	if ok {
		t.Fatalf("expected second advance on the same deadline to lose")
	}
	round, _ := st.GetRound(ctx, sess.ID, 1)
	if *round.CurrentTurnPosition != 2 {
		t.Fatalf("expected turn at seat 2, got %d", *round.CurrentTurnPosition)
	}
}

func TestBeginHandResetsDecisions(t *testing.T) {
	st, ctx := openStore(t)
	over := t0.Add(-time.Minute)
	sess := seedSession(t, st, ctx, store.Session{
		Status:         store.StatusGameOver,
		DealerPosition: 1,
		GameOverAt:     &over,
	}, store.Player{Position: 1, AnteDecision: store.AnteUp, CurrentDecision: store.DecisionStay, DecisionLocked: true})

	params := store.BeginHandParams{
		SessionID:          sess.ID,
		ObservedGameOverAt: over,
		DealerPosition:     2,
		ConfigDeadline:     t0.Add(30 * time.Second),
		At:                 t0,
	}
	ok, err := st.BeginHand(ctx, params)
	if err != nil || !ok {
		t.Fatalf("begin hand: ok=%v err=%v", ok, err)
	}
	if ok, _ := st.BeginHand(ctx, params); ok {
		t.Fatalf("expected second begin to lose on gameOverAt")
	}
	got, _ := st.GetSession(ctx, sess.ID)
	if got.Status != store.StatusConfiguring || got.DealerPosition != 2 || got.GameOverAt != nil {
		t.Fatalf("unexpected session: %+v", got)
	}
	players, _ := st.ListPlayers(ctx, sess.ID)
	if players[0].AnteDecision != store.AnteUndecided || players[0].CurrentDecision != store.DecisionNone || players[0].DecisionLocked {
		t.Fatalf("expected cleared player: %+v", players[0])
	}
}

func TestReclaimQueries(t *testing.T) {
	st, ctx := openStore(t)
	play := seedSession(t, st, ctx, store.Session{Status: store.StatusWaiting}, store.Player{Position: 1})
	money := seedSession(t, st, ctx, store.Session{ID: store.NewIDAt(t0.Add(time.Millisecond)), Status: store.StatusWaiting, RealMoney: true})
	ended := seedSession(t, st, ctx, store.Session{ID: store.NewIDAt(t0.Add(2 * time.Millisecond)), Status: store.StatusSessionEnded})

	ids, err := st.ListOpenSessionIDs(ctx, 10)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	for _, id := range ids {
		if id == ended.ID {
			t.Fatalf("ended session listed as open")
		}
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 open sessions, got %v", ids)
	}

	has, err := st.HasHistory(ctx, play.ID)
	if err != nil || has {
		t.Fatalf("expected no history: has=%v err=%v", has, err)
	}
	if _, err := st.RecordResult(ctx, money.ID, []byte(`{"winner":1}`)); err != nil {
		t.Fatalf("record result: %v", err)
	}
	if has, _ := st.HasHistory(ctx, money.ID); !has {
		t.Fatalf("expected recorded result to count as history")
	}

	if ok, _ := st.DeleteSessionIf(ctx, play.ID, t0.Add(time.Second)); ok {
		t.Fatalf("expected delete on stale updatedAt to be refused")
	}
	if ok, _ := st.DeleteSessionIf(ctx, money.ID, t0); ok {
		t.Fatalf("expected real-money session to survive delete")
	}
	ok, err := st.DeleteSessionIf(ctx, play.ID, t0)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if _, err := st.GetSession(ctx, play.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	players, err := st.ListPlayers(ctx, play.ID)
	if err != nil || len(players) != 0 {
		t.Fatalf("expected players removed: %v %d", err, len(players))
	}
}
