package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"card-duel-server/game"
	"card-duel-server/matcherrors"
)

// DeckSummary is a deck as listed to players.
type DeckSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

type deck struct {
	ID    string
	Name  string
	cards []int
}

// MemoryCatalog is a read-only catalog held in memory.
type MemoryCatalog struct {
	templates map[int]game.CardTemplate
	decks     map[string]deck
}

type catalogFile struct {
	Cards []struct {
		ID      int      `json:"id"`
		Name    string   `json:"name"`
		HP      int      `json:"hp"`
		Attack  int      `json:"attack"`
		Cost    int      `json:"cost"`
		Type    string   `json:"type"`
		Classes []string `json:"classes"`
	} `json:"cards"`
	Decks []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Cards []int  `json:"cards"`
	} `json:"decks"`
}

// LoadCatalogFile reads a JSON catalog. Every deck must reference known cards.
func LoadCatalogFile(path string) (*MemoryCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	c := &MemoryCatalog{
		templates: make(map[int]game.CardTemplate, len(f.Cards)),
		decks:     make(map[string]deck, len(f.Decks)),
	}
	for _, fc := range f.Cards {
		ct := game.Guard
		if fc.Type != "" {
			var ok bool
			if ct, ok = game.ParseCardType(fc.Type); !ok {
				return nil, fmt.Errorf("card %d: unknown type %q", fc.ID, fc.Type)
			}
		}
		c.templates[fc.ID] = game.CardTemplate{
			ID: fc.ID, Name: fc.Name, HP: fc.HP, Attack: fc.Attack, Cost: fc.Cost, Type: ct, Classes: fc.Classes,
		}
	}
	for _, fd := range f.Decks {
		for _, id := range fd.Cards {
			if _, ok := c.templates[id]; !ok {
				return nil, fmt.Errorf("deck %q references unknown card %d", fd.ID, id)
			}
		}
		c.decks[fd.ID] = deck{ID: fd.ID, Name: fd.Name, cards: fd.Cards}
	}
	return c, nil
}

// StarterCatalog returns the built-in catalog: ten guards and one deck
// holding three copies of each.
func StarterCatalog() *MemoryCatalog {
	guards := []game.CardTemplate{
		{ID: 1, Name: "Squire", HP: 1, Attack: 1, Cost: 1, Classes: []string{"human"}},
		{ID: 2, Name: "Shieldbearer", HP: 3, Attack: 0, Cost: 1, Classes: []string{"human"}},
		{ID: 3, Name: "Footman", HP: 2, Attack: 2, Cost: 2, Classes: []string{"human"}},
		{ID: 4, Name: "Wolf", HP: 1, Attack: 3, Cost: 2, Classes: []string{"beast"}},
		{ID: 5, Name: "Archer", HP: 2, Attack: 3, Cost: 3, Classes: []string{"human"}},
		{ID: 6, Name: "Stone Sentinel", HP: 5, Attack: 1, Cost: 3, Classes: []string{"construct"}},
		{ID: 7, Name: "Knight", HP: 4, Attack: 3, Cost: 4, Classes: []string{"human"}},
		{ID: 8, Name: "Bear", HP: 5, Attack: 4, Cost: 5, Classes: []string{"beast"}},
		{ID: 9, Name: "Warlord", HP: 6, Attack: 5, Cost: 6, Classes: []string{"human"}},
		{ID: 10, Name: "Drake", HP: 6, Attack: 6, Cost: 7, Classes: []string{"dragon"}},
	}
	c := &MemoryCatalog{
		templates: make(map[int]game.CardTemplate, len(guards)),
		decks:     make(map[string]deck),
	}
	cards := make([]int, 0, 3*len(guards))
	for _, g := range guards {
		g.Type = game.Guard
		c.templates[g.ID] = g
		cards = append(cards, g.ID, g.ID, g.ID)
	}
	c.decks["starter"] = deck{ID: "starter", Name: "Starter", cards: cards}
	return c
}

// LoadDeck returns the deck's templates in deck order.
func (c *MemoryCatalog) LoadDeck(_ context.Context, deckID string) ([]game.CardTemplate, error) {
	d, ok := c.decks[deckID]
	if !ok {
		return nil, fmt.Errorf("deck %q: %w", deckID, matcherrors.ErrDeckNotFound)
	}
	out := make([]game.CardTemplate, 0, len(d.cards))
	for _, id := range d.cards {
		out = append(out, c.templates[id])
	}
	return out, nil
}

// ListDecks returns every deck; the catalog has no per-user decks.
func (c *MemoryCatalog) ListDecks(_ context.Context, _ string) ([]DeckSummary, error) {
	out := make([]DeckSummary, 0, len(c.decks))
	for _, d := range c.deckList() {
		out = append(out, DeckSummary{ID: d.ID, Name: d.Name, Size: len(d.cards)})
	}
	return out, nil
}

// Close is a no-op.
func (c *MemoryCatalog) Close() {}

func (c *MemoryCatalog) templateList() []game.CardTemplate {
	out := make([]game.CardTemplate, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *MemoryCatalog) deckList() []deck {
	out := make([]deck, 0, len(c.decks))
	for _, d := range c.decks {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
