package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"table-keeper/internal/store"
)

func TestEnforceRejectsInvalidRequests(t *testing.T) {
	f := newFixture(t, store.Session{Status: store.StatusWaiting})
	cases := []struct {
		name string
		req  Request
	}{
		{"missing session id", Request{Source: SourceClient}},
		{"unknown source", Request{SessionID: f.id, Source: "cron"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.orch.Enforce(context.Background(), tc.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestEnforceMissingSessionSucceeds(t *testing.T) {
	f := newFixture(t, store.Session{Status: store.StatusWaiting})
	resp, err := f.orch.Enforce(context.Background(), Request{SessionID: "gone"})
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if !resp.Success || !resp.SessionMissing {
		t.Fatalf("expected success with sessionMissing, got %+v", resp)
	}
	if resp.RequestID == "" {
		t.Fatal("expected generated request id")
	}
}

func TestEnforceKeepsCallerRequestID(t *testing.T) {
	f := newFixture(t, store.Session{Status: store.StatusWaiting})
	resp, err := f.orch.Enforce(context.Background(), Request{SessionID: f.id, RequestID: "req-42"})
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if resp.RequestID != "req-42" {
		t.Fatalf("request id = %q", resp.RequestID)
	}
	if resp.SessionStatus != string(store.StatusWaiting) {
		t.Fatalf("status = %q", resp.SessionStatus)
	}
}

type failingStore struct {
	Store
}

func (failingStore) GetSession(context.Context, string) (*store.Session, error) {
	return nil, errors.New("connection refused")
}

func TestEnforceStoreFailureIsTransient(t *testing.T) {
	f := newFixture(t, store.Session{Status: store.StatusWaiting})
	o := New(failingStore{Store: f.st}, f.orch.cfg, WithClock(f.clock))
	_, err := o.Enforce(context.Background(), Request{SessionID: f.id})
	if !IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestConfigDeadlineRotatesDealerClockwise(t *testing.T) {
	f := newFixture(t, store.Session{Status: store.StatusConfiguring, DealerPosition: 1},
		human(1), human(3))
	f.seedConfigDeadline(-time.Second)

	resp := f.enforce(SourceClient)
	assertActions(t, resp, "rotate_dealer:1->3", "dealer_sat_out:1")

	sess := f.session()
	if sess.DealerPosition != 3 {
		t.Fatalf("dealer = %d, want 3", sess.DealerPosition)
	}
	if sess.ConfigDeadline == nil || !sess.ConfigDeadline.Equal(f.clock.Now().Add(30*time.Second)) {
		t.Fatalf("config deadline = %v, want now+30s", sess.ConfigDeadline)
	}
	if !f.player(1).SittingOut {
		t.Fatal("expected old dealer to sit out")
	}
	if sess.Status != store.StatusConfiguring {
		t.Fatalf("status = %s", sess.Status)
	}

	assertNoActions(t, f.enforce(SourceClient))
}

func TestConfigDeadlineNotYetElapsed(t *testing.T) {
	f := newFixture(t, store.Session{Status: store.StatusGameSelection, DealerPosition: 1},
		human(1), human(2))
	f.seedConfigDeadline(time.Second)
	assertNoActions(t, f.enforce(SourceClient))
}

func TestConfigDeadlineSkipsBotsUnlessAllowed(t *testing.T) {
	f := newFixture(t, store.Session{Status: store.StatusDealerSelection, DealerPosition: 1},
		human(1), bot(2), human(4))
	f.seedConfigDeadline(-time.Second)
	assertActions(t, f.enforce(SourceClient), "rotate_dealer:1->4", "dealer_sat_out:1")

	cfg := f.orch.cfg
	cfg.AllowBotDealers = true
	g := newFixtureWithConfig(t, cfg, store.Session{Status: store.StatusDealerSelection, DealerPosition: 1},
		human(1), bot(2), human(4))
	g.seedConfigDeadline(-time.Second)
	assertActions(t, g.enforce(SourceClient), "rotate_dealer:1->2", "dealer_sat_out:1")
}

func TestConfigDeadlineWrapsAroundTable(t *testing.T) {
	f := newFixture(t, store.Session{Status: store.StatusConfiguring, DealerPosition: 5},
		human(2), human(5))
	f.seedConfigDeadline(-time.Second)
	assertActions(t, f.enforce(SourceClient), "rotate_dealer:5->2", "dealer_sat_out:5")
}

func TestConfigDeadlineRegressesWhenNoEligibleDealer(t *testing.T) {
	away := human(2)
	away.SittingOut = true
	f := newFixture(t, store.Session{Status: store.StatusConfiguring, DealerPosition: 1},
		human(1), away, bot(3))
	f.seedConfigDeadline(-time.Second)

	assertActions(t, f.enforce(SourceClient), "regress_to_waiting_for_players", "dealer_sat_out:1")
	sess := f.session()
	if sess.Status != store.StatusWaitingForPlayers || sess.ConfigDeadline != nil {
		t.Fatalf("unexpected session after regress: status=%s deadline=%v", sess.Status, sess.ConfigDeadline)
	}
	assertNoActions(t, f.enforce(SourceClient))
}

func TestConfigDeadlineWithoutHumansDeletesFreshSession(t *testing.T) {
	f := newFixture(t, store.Session{Status: store.StatusConfiguring, DealerPosition: 1},
		human(1), bot(2))
	f.seedConfigDeadline(-time.Second)

	resp := f.enforce(SourceClient)
	assertActions(t, resp, "delete_session:no_active_humans")
	if !resp.SessionMissing {
		t.Fatal("expected sessionMissing after delete")
	}
	if _, err := f.st.GetSession(context.Background(), f.id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected session deleted, got %v", err)
	}
}

func TestConfigDeadlineWithoutHumansEndsSessionWithHistory(t *testing.T) {
	f := newFixture(t, store.Session{Status: store.StatusConfiguring, DealerPosition: 1},
		human(1), bot(2))
	f.seedConfigDeadline(-time.Second)
	if _, err := f.st.RecordResult(context.Background(), f.id, []byte(`{"winner":2}`)); err != nil {
		t.Fatalf("record result: %v", err)
	}

	resp := f.enforce(SourceClient)
	assertActions(t, resp, "end_session:no_active_humans")
	sess := f.session()
	if sess.Status != store.StatusSessionEnded || sess.SessionEndedAt == nil {
		t.Fatalf("expected ended session, got %s", sess.Status)
	}
	if resp.SessionStatus != string(store.StatusSessionEnded) {
		t.Fatalf("response status = %q", resp.SessionStatus)
	}
}

func (f *fixture) seedConfigDeadline(offset time.Duration) {
	f.t.Helper()
	if _, err := f.st.UpdateSessionIf(context.Background(), f.id, store.SessionCond{},
		store.SessionPatch{ConfigDeadline: store.SetPtr(f.at(offset))}, f.clock.Now()); err != nil {
		f.t.Fatalf("seed config deadline: %v", err)
	}
}

func anteSession() store.Session {
	return store.Session{Status: store.StatusAnteDecision, DealerPosition: 1, AnteDecisionDeadline: pastDeadline()}
}

func withAnte(p store.Player, d store.AnteDecision) store.Player {
	p.AnteDecision = d
	return p
}

func pastDeadline() *time.Time {
	v := newFakeClock().Now().Add(-time.Second)
	return &v
}

func TestAnteDeadlineForcesSitOutAndStartsHand(t *testing.T) {
	f := newFixture(t, anteSession(),
		withAnte(human(1), store.AnteUp), withAnte(human(2), store.AnteUp), human(3))

	resp := f.enforce(SourceClient)
	assertActions(t, resp, "force_ante_sit_out:3", "ante_complete:2 players")

	p3 := f.player(3)
	if p3.AnteDecision != store.AnteSitOut || !p3.SittingOut {
		t.Fatalf("player 3 = %+v", p3)
	}
	sess := f.session()
	if sess.Status != store.StatusInProgress || sess.AnteDecisionDeadline != nil {
		t.Fatalf("status=%s ante deadline=%v", sess.Status, sess.AnteDecisionDeadline)
	}
	if !sess.AwaitingNextRound || sess.NextRoundNumber == nil || *sess.NextRoundNumber != 1 {
		t.Fatalf("expected awaiting round 1, got awaiting=%v next=%v", sess.AwaitingNextRound, sess.NextRoundNumber)
	}
	assertNoActions(t, f.enforce(SourceClient))
}

func TestAnteDeadlineRotatesDealerWhenDealerSatOut(t *testing.T) {
	f := newFixture(t, anteSession(),
		human(1), withAnte(human(2), store.AnteUp), human(3))

	assertActions(t, f.enforce(SourceClient),
		"force_ante_sit_out:1", "force_ante_sit_out:3", "rotate_dealer:1->2", "regress_to_waiting_for_players:1 anted")
	sess := f.session()
	if sess.Status != store.StatusWaitingForPlayers || sess.DealerPosition != 2 || sess.AnteDecisionDeadline != nil {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestAnteDeadlineRegressesWithActiveDealer(t *testing.T) {
	f := newFixture(t, anteSession(),
		withAnte(human(1), store.AnteUp), human(2))

	assertActions(t, f.enforce(SourceClient), "force_ante_sit_out:2", "regress_to_waiting_for_players:1 anted")
	if got := f.session().DealerPosition; got != 1 {
		t.Fatalf("dealer = %d, want 1", got)
	}
}

func TestAnteDeadlineLeavesDecidedPlayersAlone(t *testing.T) {
	f := newFixture(t, anteSession(),
		withAnte(human(1), store.AnteUp), withAnte(human(2), store.AnteUp), withAnte(human(3), store.AnteSitOut))
	assertActions(t, f.enforce(SourceClient), "ante_complete:2 players")
	if f.player(3).SittingOut {
		t.Fatal("sit_out ante decision must not be rewritten")
	}
}

func gameOverSession(f *fixture, dealer int, ago time.Duration) {
	f.t.Helper()
	if _, err := f.st.UpdateSessionIf(context.Background(), f.id, store.SessionCond{},
		store.SessionPatch{
			Status:         store.Set(store.StatusGameOver),
			DealerPosition: store.Set(dealer),
			GameOverAt:     store.SetPtr(f.at(-ago)),
		}, f.clock.Now()); err != nil {
		f.t.Fatalf("seed game over: %v", err)
	}
}

func TestGameOverWaitsForHumanDealer(t *testing.T) {
	f := newFixture(t, store.Session{}, human(1), human(2))
	gameOverSession(f, 1, 10*time.Second)
	assertNoActions(t, f.enforce(SourceClient))

	f.clock.Advance(21 * time.Second)
	assertActions(t, f.enforce(SourceClient), "begin_next_hand:dealer 2")
	sess := f.session()
	if sess.Status != store.StatusConfiguring || sess.DealerPosition != 2 {
		t.Fatalf("status=%s dealer=%d", sess.Status, sess.DealerPosition)
	}
	if sess.ConfigDeadline == nil || !sess.ConfigDeadline.Equal(f.clock.Now().Add(30*time.Second)) {
		t.Fatalf("config deadline = %v", sess.ConfigDeadline)
	}
	if sess.GameOverAt != nil {
		t.Fatal("expected gameOverAt cleared")
	}
	assertNoActions(t, f.enforce(SourceClient))
}

func TestGameOverBotDealerAdvancesAfterShortWindow(t *testing.T) {
	f := newFixture(t, store.Session{}, bot(1), human(2), human(3))
	gameOverSession(f, 1, 9*time.Second)
	assertActions(t, f.enforce(SourceClient), "begin_next_hand:dealer 2")
}

func TestGameOverEndsWhenTooFewPlayers(t *testing.T) {
	gone := human(2)
	gone.SittingOut = true
	f := newFixture(t, store.Session{}, human(1), gone)
	gameOverSession(f, 1, time.Minute)
	f.addRound(store.Round{RoundNumber: 1, Status: store.RoundCompleted})
	assertActions(t, f.enforce(SourceClient), "end_session:not_enough_players")
}

func TestGameOverHonorsPendingSessionEnd(t *testing.T) {
	f := newFixture(t, store.Session{PendingSessionEnd: true}, human(1), human(2))
	gameOverSession(f, 1, time.Minute)
	f.addRound(store.Round{RoundNumber: 1, Status: store.RoundCompleted})
	assertActions(t, f.enforce(SourceClient), "end_session:pending_session_end")
	if f.session().Status != store.StatusSessionEnded {
		t.Fatal("expected session ended")
	}
}

func TestPausedSessionFreezesDeadlines(t *testing.T) {
	f := newFixture(t, store.Session{Status: store.StatusInProgress, DealerPosition: 1, CurrentRound: intPtr(1),
		IsPaused: true, PausedTimeRemaining: intPtr(12)},
		decided(human(1), store.DecisionStay), human(2))
	f.addRound(store.Round{RoundNumber: 1, Status: store.RoundBetting, DecisionDeadline: f.at(-time.Minute), CurrentTurnPosition: intPtr(2)})

	resp := f.enforce(SourceClient)
	assertNoActions(t, resp)
	if !resp.IsPaused {
		t.Fatal("expected isPaused in response")
	}

	f.clock.Advance(time.Hour)
	if ok, err := f.st.UpdateSessionIf(context.Background(), f.id, store.SessionCond{},
		store.SessionPatch{IsPaused: store.Set(false)}, f.clock.Now()); err != nil || !ok {
		t.Fatalf("unpause: ok=%v err=%v", ok, err)
	}

	assertActions(t, f.enforce(SourceClient), "resume_from_pause:12s")
	round := f.round(1)
	if round.DecisionDeadline == nil || !round.DecisionDeadline.Equal(f.clock.Now().Add(12*time.Second)) {
		t.Fatalf("decision deadline = %v, want resume+12s", round.DecisionDeadline)
	}
	if f.session().PausedTimeRemaining != nil {
		t.Fatal("expected pausedTimeRemaining cleared")
	}
	if f.player(2).DecisionLocked {
		t.Fatal("no decision should be forced on resume")
	}
	assertNoActions(t, f.enforce(SourceClient))

	f.clock.Advance(13 * time.Second)
	assertActions(t, f.enforce(SourceClient), "force_fold:2", "all_decisions_in:round 1", "round_showdown:1")
}

func TestResumeRestoresConfigDeadline(t *testing.T) {
	f := newFixture(t, store.Session{Status: store.StatusConfiguring, DealerPosition: 1, PausedTimeRemaining: intPtr(20)},
		human(1), human(2))
	f.seedConfigDeadline(-time.Hour)

	assertActions(t, f.enforce(SourceClient), "resume_from_pause:20s")
	sess := f.session()
	if sess.ConfigDeadline == nil || !sess.ConfigDeadline.Equal(f.clock.Now().Add(20*time.Second)) {
		t.Fatalf("config deadline = %v", sess.ConfigDeadline)
	}
}
