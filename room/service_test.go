package room

import (
	"context"
	"errors"
	"strings"
	"testing"

	"card-duel-server/config"
	"card-duel-server/game"
	"card-duel-server/matcherrors"

	"pgregory.net/rapid"
)

type staticLoader map[string][]game.CardTemplate

func (l staticLoader) LoadDeck(_ context.Context, deckID string) ([]game.CardTemplate, error) {
	d, ok := l[deckID]
	if !ok {
		return nil, matcherrors.ErrDeckNotFound
	}
	return d, nil
}

func testDeck() []game.CardTemplate {
	deck := make([]game.CardTemplate, 30)
	for i := range deck {
		deck[i] = game.CardTemplate{ID: i + 1, Name: "Guard", HP: 3, Attack: 2, Cost: 1, Type: game.Guard}
	}
	return deck
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.Defaults()
	cfg.PhaseTimeoutSec = 0
	s := NewService(cfg, staticLoader{"starter": testDeck()}, nil)
	t.Cleanup(s.Close)
	return s
}

func TestCreateRoomGeneratedCode(t *testing.T) {
	s := newTestService(t)
	code, ok := s.TryCreateRoom("alice", "")
	if !ok {
		t.Fatal("expected room creation to succeed")
	}
	if !validCode(code) {
		t.Errorf("generated code %q is not 6 uppercase alphanumerics", code)
	}
	if got, _ := s.RoomOf("alice"); got != code {
		t.Errorf("expected alice in %q, got %q", code, got)
	}
	if _, ok := s.TryCreateRoom("alice", ""); ok {
		t.Error("a user already in a room cannot create another")
	}
}

func TestCreateRoomPreferredCode(t *testing.T) {
	s := newTestService(t)

	code, ok := s.TryCreateRoom("alice", "  abc123 ")
	if !ok || code != "ABC123" {
		t.Fatalf("expected normalized code ABC123, got %q ok=%v", code, ok)
	}
	if _, ok := s.TryCreateRoom("bob", "Abc123"); ok {
		t.Error("taken code must be rejected regardless of case")
	}
	if _, ok := s.TryCreateRoom("bob", "abc"); ok {
		t.Error("short code must be rejected")
	}
	if _, ok := s.TryCreateRoom("bob", "ABC-12"); ok {
		t.Error("non-alphanumeric code must be rejected")
	}
}

func TestGeneratedCodesAreUniqueProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewService(config.Defaults(), staticLoader{}, nil)
		n := rapid.IntRange(2, 40).Draw(t, "rooms")
		seen := make(map[string]bool)
		for i := 0; i < n; i++ {
			code, ok := s.TryCreateRoom(strings.Repeat("u", i+1), "")
			if !ok {
				t.Fatalf("room %d was not created", i)
			}
			if seen[code] {
				t.Fatalf("code %q generated twice", code)
			}
			seen[code] = true
		}
	})
}

func TestRoomErrors(t *testing.T) {
	s := newTestService(t)
	if _, err := s.CreateRoom("alice", "DUEL01"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := s.JoinRoom("bob", "duel01"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"create while in a room", func() error { _, err := s.CreateRoom("alice", ""); return err }, matcherrors.ErrAlreadyInRoom},
		{"create with a taken code", func() error { _, err := s.CreateRoom("carol", "duel01"); return err }, matcherrors.ErrCodeTaken},
		{"create with a malformed code", func() error { _, err := s.CreateRoom("carol", "DUEL-1"); return err }, matcherrors.ErrInvalidCode},
		{"join while in a room", func() error { _, err := s.JoinRoom("bob", "DUEL01"); return err }, matcherrors.ErrAlreadyInRoom},
		{"join an unknown room", func() error { _, err := s.JoinRoom("carol", "NOPE00"); return err }, matcherrors.ErrRoomNotFound},
		{"join a full room", func() error { _, err := s.JoinRoom("carol", "DUEL01"); return err }, matcherrors.ErrRoomFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if res := s.Leave("carol"); res.OK {
		t.Error("leaving without a room should report !OK")
	}
	if s.SetPlayerDeck(context.Background(), "carol", "starter") {
		t.Error("a user outside any room cannot pick a deck")
	}
}

func TestJoinRoom(t *testing.T) {
	s := newTestService(t)
	code, _ := s.TryCreateRoom("alice", "")

	opp, full, ok := s.TryJoinRoom("bob", strings.ToLower(code))
	if !ok || full || opp != "alice" {
		t.Fatalf("expected bob to join alice, got opp=%q full=%v ok=%v", opp, full, ok)
	}
	if _, full, ok := s.TryJoinRoom("carol", code); ok || !full {
		t.Errorf("third player should see a full room, got full=%v ok=%v", full, ok)
	}
	if _, full, ok := s.TryJoinRoom("carol", "ZZZZZZ"); ok || full {
		t.Error("unknown code should fail without isFull")
	}
	if _, _, ok := s.TryJoinRoom("bob", code); ok {
		t.Error("a user already in a room cannot join again")
	}
	if got := s.Players(code); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Errorf("unexpected players %v", got)
	}
}

func TestLeave(t *testing.T) {
	s := newTestService(t)
	code, _ := s.TryCreateRoom("alice", "")
	s.TryJoinRoom("bob", code)

	res := s.Leave("alice")
	if !res.OK || res.Code != code || res.OpponentID != "bob" || res.RoomEmpty {
		t.Errorf("unexpected leave result %+v", res)
	}
	if _, in := s.RoomOf("alice"); in {
		t.Error("alice should no longer be indexed")
	}

	res = s.Leave("bob")
	if !res.OK || !res.RoomEmpty || res.OpponentID != "" {
		t.Errorf("unexpected leave result %+v", res)
	}
	if s.Count() != 0 {
		t.Errorf("empty room should be deleted, %d left", s.Count())
	}
	if res := s.Leave("bob"); res.OK {
		t.Error("leaving twice should report not found")
	}

	// The code is free again.
	if _, ok := s.TryCreateRoom("carol", code); !ok {
		t.Error("code of a deleted room should be reusable")
	}
}

func TestSetPlayerDeckAndStart(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if s.SetPlayerDeck(ctx, "alice", "starter") {
		t.Error("user outside any room cannot set a deck")
	}

	code, _ := s.TryCreateRoom("alice", "")
	s.TryJoinRoom("bob", code)

	if !s.SetPlayerDeck(ctx, "alice", "starter") {
		t.Fatal("alice's deck should be accepted")
	}
	if s.Ready(code) {
		t.Error("room should not be ready with one deck")
	}
	if s.SetPlayerDeck(ctx, "bob", "missing") {
		t.Error("unknown deck should be rejected")
	}
	if !s.SetPlayerDeck(ctx, "bob", "starter") {
		t.Fatal("bob's deck should be accepted")
	}
	if !s.Ready(code) {
		t.Error("room should be ready with two decks")
	}

	sess := s.SessionForUser("bob")
	if sess == nil || sess != s.Session(code) {
		t.Fatal("both lookups should return the room's session")
	}
	res := sess.StartGame()
	if res == nil || res.Phase != "placement" || res.TurnNumber != 1 || res.ActivePlayerID != "alice" {
		t.Fatalf("unexpected start %+v", res)
	}
	if s.SetPlayerDeck(ctx, "bob", "starter") {
		t.Error("deck cannot change after the game started")
	}
}

func TestLeaveStopsSession(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	code, _ := s.TryCreateRoom("alice", "")
	s.TryJoinRoom("bob", code)
	s.SetPlayerDeck(ctx, "alice", "starter")
	s.SetPlayerDeck(ctx, "bob", "starter")
	sess := s.Session(code)
	sess.StartGame()

	s.Leave("bob")
	select {
	case <-sess.Done:
	default:
		t.Fatal("session should be stopped when Leave returns")
	}
	if s.SessionForUser("alice") != nil {
		t.Error("remaining player should have no session")
	}
	if s.Ready(code) {
		t.Error("room should need new deck choices")
	}
}

func TestEndToEndRoomScenario(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	code, ok := s.TryCreateRoom("A", "")
	if !ok {
		t.Fatal("A should create a room")
	}
	opp, full, ok := s.TryJoinRoom("B", code)
	if !ok || full || opp != "A" {
		t.Fatalf("B should join A, got %q %v %v", opp, full, ok)
	}
	s.SetPlayerDeck(ctx, "A", "starter")
	s.SetPlayerDeck(ctx, "B", "starter")
	sess := s.Session(code)

	start := sess.StartGame()
	if start.Phase != "placement" || start.TurnNumber != 1 || start.ActivePlayerID != "A" {
		t.Fatalf("unexpected start %+v", start)
	}

	hand := sess.Snapshot("A").Hand
	if res, _ := sess.PlayCard("A", hand[0].InstanceID, 0); res == nil {
		t.Fatal("A should place a card at slot 0")
	}
	res := sess.ChangePhase("A")
	if res == nil || res.ActivePlayerID != "B" || res.TurnNumber != 1 {
		t.Fatalf("expected B's turn within round 1, got %+v", res)
	}
	res = sess.ChangePhase("B")
	if res == nil || res.ActivePlayerID != "A" || res.TurnNumber != 2 {
		t.Fatalf("expected A's turn in round 2, got %+v", res)
	}
}
