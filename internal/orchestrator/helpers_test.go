package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"table-keeper/internal/config"
	"table-keeper/internal/store"
	"table-keeper/internal/store/memstore"
)

var _ Store = (*memstore.Store)(nil)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	t     *testing.T
	st    *memstore.Store
	clock *fakeClock
	orch  *Orchestrator
	id    string
}

func newFixture(t *testing.T, sess store.Session, players ...store.Player) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, config.DefaultOrchestrator(), sess, players...)
}

func newFixtureWithConfig(t *testing.T, cfg config.OrchestratorConfig, sess store.Session, players ...store.Player) *fixture {
	t.Helper()
	f := &fixture{t: t, st: memstore.New(), clock: newFakeClock()}
	if sess.ID == "" {
		sess.ID = "sess-1"
	}
	if sess.GameType == "" {
		sess.GameType = store.GameHolm
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = f.clock.Now()
	}
	f.id = sess.ID
	if err := f.st.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	for _, p := range players {
		p.SessionID = sess.ID
		if p.ID == "" {
			p.ID = fmt.Sprintf("%s-p%d", sess.ID, p.Position)
		}
		if _, err := f.st.AddPlayer(context.Background(), p); err != nil {
			t.Fatalf("add player: %v", err)
		}
	}
	f.orch = New(f.st, cfg,
		WithClock(f.clock),
		WithDecider(DeciderFunc(func(store.Player) store.Decision { return store.DecisionStay })),
		WithRandSource(rand.NewSource(7)),
	)
	return f
}

func (f *fixture) at(offset time.Duration) *time.Time {
	v := f.clock.Now().Add(offset)
	return &v
}

func (f *fixture) addRound(r store.Round) store.Round {
	f.t.Helper()
	r.SessionID = f.id
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = f.clock.Now()
	}
	id, err := f.st.CreateRound(context.Background(), r)
	if err != nil {
		f.t.Fatalf("create round: %v", err)
	}
	r.ID = id
	return r
}

func (f *fixture) enforce(src Source) *Response {
	f.t.Helper()
	resp, err := f.orch.Enforce(context.Background(), Request{SessionID: f.id, Source: src})
	if err != nil {
		f.t.Fatalf("enforce: %v", err)
	}
	return resp
}

func (f *fixture) session() store.Session {
	f.t.Helper()
	s, err := f.st.GetSession(context.Background(), f.id)
	if err != nil {
		f.t.Fatalf("get session: %v", err)
	}
	return *s
}

func (f *fixture) player(position int) store.Player {
	f.t.Helper()
	players, err := f.st.ListPlayers(context.Background(), f.id)
	if err != nil {
		f.t.Fatalf("list players: %v", err)
	}
	for _, p := range players {
		if p.Position == position {
			return p
		}
	}
	f.t.Fatalf("no player at position %d", position)
	return store.Player{}
}

func (f *fixture) round(number int) store.Round {
	f.t.Helper()
	r, err := f.st.GetRound(context.Background(), f.id, number)
	if err != nil {
		f.t.Fatalf("get round %d: %v", number, err)
	}
	return *r
}

func human(position int) store.Player {
	return store.Player{Position: position}
}

func bot(position int) store.Player {
	return store.Player{Position: position, IsBot: true}
}

func decided(p store.Player, d store.Decision) store.Player {
	p.CurrentDecision = d
	p.DecisionLocked = true
	return p
}

func intPtr(v int) *int { return &v }

func assertActions(t *testing.T, resp *Response, want ...string) {
	t.Helper()
	got := strings.Join(resp.ActionsTaken, ",")
	if got != strings.Join(want, ",") {
		t.Fatalf("actions = [%s], want [%s]", got, strings.Join(want, ","))
	}
}

func assertNoActions(t *testing.T, resp *Response) {
	t.Helper()
	if len(resp.ActionsTaken) != 0 {
		t.Fatalf("expected no actions, got %v", resp.ActionsTaken)
	}
}

func countActions(responses []*Response, prefix string) int {
	n := 0
	for _, resp := range responses {
		for _, a := range resp.ActionsTaken {
			if strings.HasPrefix(a, prefix) {
				n++
			}
		}
	}
	return n
}
