package game

import (
	"errors"
	"math/rand"
)

var ErrDeckExhausted = errors.New("deck_exhausted")

type Suit int

type Rank int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

var (
	rankNames = map[Rank]string{
		Two: "2", Three: "3", Four: "4", Five: "5", Six: "6", Seven: "7", Eight: "8", Nine: "9", Ten: "T", Jack: "J", Queen: "Q", King: "K", Ace: "A",
	}
	suitNames = map[Suit]string{Spades: "s", Hearts: "h", Diamonds: "d", Clubs: "c"}
)

type Card struct {
	Rank Rank
	Suit Suit
}

func (c Card) String() string {
	return rankNames[c.Rank] + suitNames[c.Suit]
}

type Deck struct {
	cards []Card
}

func NewDeck() *Deck {
	cards := make([]Card, 0, 52)
	for s := Spades; s <= Clubs; s++ {
		for r := Two; r <= Ace; r++ {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	return &Deck{cards: cards}
}

func (d *Deck) Shuffle(rnd *rand.Rand) {
	rnd.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

func (d *Deck) Remaining() int {
	return len(d.cards)
}

// DealN removes n cards from the top of the deck.
func (d *Deck) DealN(n int) ([]string, error) {
	if n > len(d.cards) {
		return nil, ErrDeckExhausted
	}
	out := make([]string, 0, n)
	for _, c := range d.cards[:n] {
		out = append(out, c.String())
	}
	d.cards = d.cards[n:]
	return out, nil
}
