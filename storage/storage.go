package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"card-duel-server/game"
	"card-duel-server/matcherrors"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS card_templates (
	id        INT PRIMARY KEY,
	name      TEXT NOT NULL,
	hp        INT  NOT NULL,
	attack    INT  NOT NULL,
	cost      INT  NOT NULL,
	card_type TEXT NOT NULL DEFAULT 'guard',
	classes   TEXT[] NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS decks (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	owner_user_id TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_decks_owner ON decks(owner_user_id);
CREATE TABLE IF NOT EXISTS deck_cards (
	deck_id     TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
	position    INT  NOT NULL,
	template_id INT  NOT NULL REFERENCES card_templates(id),
	PRIMARY KEY (deck_id, position)
);
`

// Store is the Postgres card catalog.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to databaseURL, creates the schema and seeds the
// starter deck. An empty url returns (nil, nil) so callers can fall back
// to a file catalog.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	s := &Store{pool: pool}
	if err := s.seed(ctx, StarterCatalog()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("seeding starter deck: %w", err)
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// seed inserts the catalog's templates and decks, leaving existing rows alone.
func (s *Store) seed(ctx context.Context, c *MemoryCatalog) error {
	b := &pgx.Batch{}
	for _, t := range c.templateList() {
		classes := t.Classes
		if classes == nil {
			classes = []string{}
		}
		b.Queue(`INSERT INTO card_templates (id, name, hp, attack, cost, card_type, classes)
			VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
			t.ID, t.Name, t.HP, t.Attack, t.Cost, t.Type.String(), classes)
	}
	for _, d := range c.deckList() {
		b.Queue(`INSERT INTO decks (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, d.ID, d.Name)
		for pos, tid := range d.cards {
			b.Queue(`INSERT INTO deck_cards (deck_id, position, template_id)
				VALUES ($1, $2, $3) ON CONFLICT (deck_id, position) DO NOTHING`, d.ID, pos, tid)
		}
	}
	br := s.pool.SendBatch(ctx, b)
	defer br.Close()
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadDeck returns the deck's templates in deck order.
func (s *Store) LoadDeck(ctx context.Context, deckID string) ([]game.CardTemplate, error) {
	if s == nil || s.pool == nil {
		return nil, matcherrors.ErrDeckNotFound
	}
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.name, t.hp, t.attack, t.cost, t.card_type, t.classes
		FROM deck_cards dc
		JOIN card_templates t ON t.id = dc.template_id
		WHERE dc.deck_id = $1
		ORDER BY dc.position`,
		deckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.CardTemplate
	for rows.Next() {
		var t game.CardTemplate
		var cardType string
		if err := rows.Scan(&t.ID, &t.Name, &t.HP, &t.Attack, &t.Cost, &cardType, &t.Classes); err != nil {
			return nil, err
		}
		ct, ok := game.ParseCardType(cardType)
		if !ok {
			return nil, fmt.Errorf("card %d has unknown type %q", t.ID, cardType)
		}
		t.Type = ct
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("deck %q: %w", deckID, matcherrors.ErrDeckNotFound)
	}
	return out, nil
}

// ListDecks returns the shared decks plus those owned by ownerUserID.
func (s *Store) ListDecks(ctx context.Context, ownerUserID string) ([]DeckSummary, error) {
	if s == nil || s.pool == nil {
		return []DeckSummary{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT d.id, d.name, COUNT(dc.position)
		FROM decks d
		LEFT JOIN deck_cards dc ON dc.deck_id = d.id
		WHERE d.owner_user_id IS NULL OR d.owner_user_id = $1
		GROUP BY d.id, d.name
		ORDER BY d.name`,
		ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DeckSummary{}
	for rows.Next() {
		var d DeckSummary
		if err := rows.Scan(&d.ID, &d.Name, &d.Size); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
