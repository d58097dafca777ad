package orchestrator

import (
	"math/rand"
	"sync"
	"time"

	"table-keeper/internal/store"
)

// Decider picks the decision locked in for a bot whose turn timed out.
type Decider interface {
	Decide(p store.Player) store.Decision
}

// RandomDecider stays with a fixed probability and folds otherwise.
type RandomDecider struct {
	mu   sync.Mutex
	rnd  *rand.Rand
	stay float64
}

func NewRandomDecider(stayProbability float64, src rand.Source) *RandomDecider {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &RandomDecider{rnd: rand.New(src), stay: stayProbability}
}

func (d *RandomDecider) Decide(store.Player) store.Decision {
	d.mu.Lock()
	roll := d.rnd.Float64()
	d.mu.Unlock()
	if roll < d.stay {
		return store.DecisionStay
	}
	return store.DecisionFold
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(p store.Player) store.Decision

func (f DeciderFunc) Decide(p store.Player) store.Decision { return f(p) }
