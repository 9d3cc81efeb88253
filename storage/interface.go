package storage

import (
	"context"

	"card-duel-server/game"
)

// Catalog is a card catalog the server can load decks from.
// Implementations can be swapped for testing or different backends.
type Catalog interface {
	game.DeckLoader
	ListDecks(ctx context.Context, ownerUserID string) ([]DeckSummary, error)
	Close()
}

// Ensure both catalogs implement Catalog at compile time.
var (
	_ Catalog = (*Store)(nil)
	_ Catalog = (*MemoryCatalog)(nil)
)
