package game

import "math/rand"

// MaxHandSize is the number of cards a hand can hold.
const MaxHandSize = 7

// Deck is an ordered draw pile. Cards only ever leave from the front.
type Deck struct {
	cards []*CardInstance
}

// NewDeck creates a deck holding cards in the given order.
func NewDeck(cards []*CardInstance) *Deck {
	d := &Deck{cards: make([]*CardInstance, len(cards))}
	copy(d.cards, cards)
	return d
}

// Shuffle randomizes the deck order. Called once at match setup.
func (d *Deck) Shuffle(r *rand.Rand) {
	shuffle := rand.Shuffle
	if r != nil {
		shuffle = r.Shuffle
	}
	shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// DrawCard pops the front card. ok is false when the deck is empty.
func (d *Deck) DrawCard() (card *CardInstance, ok bool) {
	if len(d.cards) == 0 {
		return nil, false
	}
	card = d.cards[0]
	d.cards[0] = nil
	d.cards = d.cards[1:]
	return card, true
}

func (d *Deck) Len() int {
	return len(d.cards)
}

// Hand holds at most MaxHandSize cards.
type Hand struct {
	cards []*CardInstance
}

func NewHand() *Hand {
	return &Hand{cards: make([]*CardInstance, 0, MaxHandSize)}
}

// AddCard inserts c and returns true, or returns false without changes
// when the hand is already full.
func (h *Hand) AddCard(c *CardInstance) bool {
	if c == nil || len(h.cards) >= MaxHandSize {
		return false
	}
	h.cards = append(h.cards, c)
	return true
}

// DeleteFromID removes the card with the given instance id.
func (h *Hand) DeleteFromID(instanceID int) bool {
	for i, c := range h.cards {
		if c.InstanceID == instanceID {
			h.cards = append(h.cards[:i], h.cards[i+1:]...)
			return true
		}
	}
	return false
}

func (h *Hand) TryGetCard(instanceID int) (*CardInstance, bool) {
	for _, c := range h.cards {
		if c.InstanceID == instanceID {
			return c, true
		}
	}
	return nil, false
}

func (h *Hand) Len() int {
	return len(h.cards)
}

func (h *Hand) IsFull() bool {
	return len(h.cards) >= MaxHandSize
}

// Cards returns a copy of the hand contents.
func (h *Hand) Cards() []*CardInstance {
	out := make([]*CardInstance, len(h.cards))
	copy(out, h.cards)
	return out
}

// Graveyard collects dead and burned cards. It is append-only.
type Graveyard struct {
	cards []*CardInstance
}

func NewGraveyard() *Graveyard {
	return &Graveyard{}
}

// AddCard appends c; nil is ignored.
func (g *Graveyard) AddCard(c *CardInstance) {
	if c == nil {
		return
	}
	g.cards = append(g.cards, c)
}

// AddCards appends every non-nil card.
func (g *Graveyard) AddCards(cards []*CardInstance) {
	for _, c := range cards {
		g.AddCard(c)
	}
}

func (g *Graveyard) Len() int {
	return len(g.cards)
}

func (g *Graveyard) Cards() []*CardInstance {
	out := make([]*CardInstance, len(g.cards))
	copy(out, g.cards)
	return out
}
