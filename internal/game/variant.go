package game

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
)

var ErrUnknownVariant = errors.New("unknown_variant")

// Rules holds what the orchestrator needs to know about a game variant: turn order,
// round numbering, and how many cards a dealt round carries.
type Rules struct {
	Name           string
	TurnBased      bool
	FirstRound     int
	CommunityCards int
	holeCards      func(round int) int
	next           func(round int) int
}

var variants = map[string]Rules{
	"holm": {
		Name:           "holm",
		TurnBased:      true,
		FirstRound:     1,
		CommunityCards: 4,
		holeCards:      func(int) int { return 4 },
		next:           func(round int) int { return round + 1 },
	},
	"3-5-7": {
		Name:       "3-5-7",
		TurnBased:  false,
		FirstRound: 1,
		holeCards: func(round int) int {
			switch round {
			case 2:
				return 5
			case 3:
				return 7
			default:
				return 3
			}
		},
		next: func(round int) int { return round%3 + 1 },
	},
}

func RulesFor(gameType string) (Rules, error) {
	r, ok := variants[gameType]
	if !ok {
		return Rules{}, ErrUnknownVariant
	}
	return r, nil
}

// NextRoundNumber returns the round that follows current. A nil current means no
// round was played yet in this hand.
func (r Rules) NextRoundNumber(current *int) int {
	if current == nil || *current <= 0 {
		return r.FirstRound
	}
	return r.next(*current)
}

func (r Rules) HoleCards(round int) int {
	return r.holeCards(round)
}

type DealtRound struct {
	Round     int                 `json:"round"`
	Variant   string              `json:"variant"`
	Hands     map[string][]string `json:"hands"`
	Community []string            `json:"community,omitempty"`
	Pot       int64               `json:"pot"`
}

// Deal shuffles a fresh deck and deals every seat its hole cards for round.
func (r Rules) Deal(round int, seats []int, rnd *rand.Rand) (json.RawMessage, error) {
	deck := NewDeck()
	deck.Shuffle(rnd)
	out := DealtRound{
		Round:   round,
		Variant: r.Name,
		Hands:   make(map[string][]string, len(seats)),
	}
	n := r.HoleCards(round)
	for _, seat := range seats {
		cards, err := deck.DealN(n)
		if err != nil {
			return nil, err
		}
		out.Hands[strconv.Itoa(seat)] = cards
	}
	if r.CommunityCards > 0 {
		community, err := deck.DealN(r.CommunityCards)
		if err != nil {
			return nil, err
		}
		out.Community = community
	}
	return json.Marshal(out)
}
