package game

import (
	"context"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"testing"

	"card-duel-server/config"
	"card-duel-server/matcherrors"
)

// recordingListener is a test double for Listener that keeps every event.
type recordingListener struct {
	mu        sync.Mutex
	phases    []*PhaseChangeResult
	draws     []*DrawCardsResult
	plays     []*PlayCardResult
	oppPlays  []*OpponentPlayCardResult
	attacks   []*AttackResponse
	defenses  []*DefenseResponse
	battles   [][]BattleResult
	gameOvers []*GameOverResult
}

func (l *recordingListener) SendDrawCardsData(r *DrawCardsResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.draws = append(l.draws, r)
}

func (l *recordingListener) SendPlayCardData(p *PlayCardResult, o *OpponentPlayCardResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.plays = append(l.plays, p)
	l.oppPlays = append(l.oppPlays, o)
}

func (l *recordingListener) SendAttackEngageData(r *AttackResponse) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attacks = append(l.attacks, r)
}

func (l *recordingListener) SendDefenseEngageData(r *DefenseResponse) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defenses = append(l.defenses, r)
}

func (l *recordingListener) SendBattleResolveData(b []BattleResult, _, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.battles = append(l.battles, b)
}

func (l *recordingListener) SendPhaseChangeData(r *PhaseChangeResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.phases = append(l.phases, r)
}

func (l *recordingListener) SendGameOverData(r *GameOverResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gameOvers = append(l.gameOvers, r)
}

func (l *recordingListener) phaseChanges() []*PhaseChangeResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*PhaseChangeResult, len(l.phases))
	copy(out, l.phases)
	return out
}

// staticLoader is a DeckLoader backed by a map.
type staticLoader map[string][]CardTemplate

func (l staticLoader) LoadDeck(_ context.Context, deckID string) ([]CardTemplate, error) {
	d, ok := l[deckID]
	if !ok {
		return nil, matcherrors.ErrDeckNotFound
	}
	return d, nil
}

func guardDeck(n, hp, attack, cost int) []CardTemplate {
	deck := make([]CardTemplate, n)
	for i := range deck {
		deck[i] = CardTemplate{ID: i + 1, Name: "Guard", HP: hp, Attack: attack, Cost: cost, Type: Guard}
	}
	return deck
}

func testConfig() *config.Config {
	return &config.Config{
		PhaseTimeoutSec: 0,
		DeckSize:        30,
		OpeningHandSize: 4,
		ChampionHP:      30,
		BaseGold:        1,
		MaxGold:         10,
	}
}

// createTestGame seats alice and bob and starts the game without running
// the session goroutine; tests drive the unexported handlers directly.
func createTestGame(t *testing.T, cfg *config.Config, deckA, deckB []CardTemplate) (*Session, *recordingListener) {
	t.Helper()
	l := &recordingListener{}
	s := NewSession("ABC123", cfg, staticLoader{}, l, WithRand(rand.New(rand.NewSource(1))))
	if err := s.setPlayer(0, "alice", "deck-a", deckA); err != nil {
		t.Fatalf("seating alice: %v", err)
	}
	if err := s.setPlayer(1, "bob", "deck-b", deckB); err != nil {
		t.Fatalf("seating bob: %v", err)
	}
	if s.startGame() == nil {
		t.Fatal("startGame returned nil")
	}
	return s, l
}

func defaultTestGame(t *testing.T) (*Session, *recordingListener) {
	return createTestGame(t, testConfig(), guardDeck(30, 3, 2, 1), guardDeck(30, 3, 2, 1))
}

func (s *Session) player(userID string) *PlayerState {
	idx, ok := s.playerIndex(userID)
	if !ok {
		return nil
	}
	return s.players[idx]
}

// placeReady moves the first hand card of p straight onto slot, without
// the summoning engagement a normal play applies.
func placeReady(t *testing.T, p *PlayerState, slot int) *CardInstance {
	t.Helper()
	cards := p.Hand.Cards()
	if len(cards) == 0 {
		t.Fatal("hand is empty")
	}
	c := cards[0]
	p.Hand.DeleteFromID(c.InstanceID)
	p.Board.PosCard(c, slot)
	return c
}

func TestStartGame(t *testing.T) {
	s, l := defaultTestGame(t)

	if len(l.phases) != 1 {
		t.Fatalf("expected 1 phase event, got %d", len(l.phases))
	}
	res := l.phases[0]
	if res.Phase != "placement" || res.TurnNumber != 1 || res.ActivePlayerID != "alice" || !res.CanAct {
		t.Errorf("unexpected start result %+v", res)
	}
	for _, id := range []string{"alice", "bob"} {
		p := s.player(id)
		if p.Hand.Len() != 4 {
			t.Errorf("%s: expected 4 cards in hand, got %d", id, p.Hand.Len())
		}
		if p.Deck.Len() != 26 {
			t.Errorf("%s: expected 26 cards in deck, got %d", id, p.Deck.Len())
		}
	}
	if s.player("alice").Champion.Gold != 1 {
		t.Errorf("expected alice to have 1 gold, got %d", s.player("alice").Champion.Gold)
	}
	if !s.initialized() {
		t.Error("expected game to be initialized")
	}
	if s.startGame() != nil {
		t.Error("second startGame should return nil")
	}
}

func TestStartGameRequiresBothPlayers(t *testing.T) {
	s := NewSession("ABC123", testConfig(), staticLoader{}, nil)
	if err := s.setPlayer(0, "alice", "deck-a", guardDeck(30, 3, 2, 1)); err != nil {
		t.Fatal(err)
	}
	if s.startGame() != nil {
		t.Error("startGame with one player should return nil")
	}
	if s.initialized() {
		t.Error("game must not be initialized with one player")
	}
	if s.changePhase("alice") != nil {
		t.Error("changePhase before start should return nil")
	}
}

func TestInstanceIDsAreUniqueAcrossPlayers(t *testing.T) {
	s, _ := defaultTestGame(t)
	seen := make(map[int]bool)
	for _, p := range s.players {
		cards := p.Hand.Cards()
		for {
			c, ok := p.Deck.DrawCard()
			if !ok {
				break
			}
			cards = append(cards, c)
		}
		for _, c := range cards {
			if seen[c.InstanceID] {
				t.Fatalf("instance id %d used twice", c.InstanceID)
			}
			seen[c.InstanceID] = true
		}
	}
	if len(seen) != 60 {
		t.Errorf("expected 60 instances, got %d", len(seen))
	}
}

func TestChangePhaseWrongPlayer(t *testing.T) {
	s, l := defaultTestGame(t)
	if s.changePhase("bob") != nil {
		t.Error("non-active player must not change phase")
	}
	if s.changePhase("carol") != nil {
		t.Error("unknown player must not change phase")
	}
	if len(l.phases) != 1 {
		t.Errorf("no phase events expected after rejected requests, got %d", len(l.phases))
	}
}

func TestPlayCard(t *testing.T) {
	s, l := defaultTestGame(t)
	alice := s.player("alice")
	card := alice.Hand.Cards()[0]

	res, oppRes := s.playCard("alice", card.InstanceID, 0)
	if res == nil || oppRes == nil {
		t.Fatal("expected play to succeed")
	}
	if res.Slot != 0 || res.Card.InstanceID != card.InstanceID || res.RemainingGold != 0 || res.HandSize != 3 {
		t.Errorf("unexpected player result %+v", res)
	}
	if oppRes.InstanceID != card.InstanceID || oppRes.Slot != 0 || oppRes.HandSize != 3 {
		t.Errorf("unexpected opponent result %+v", oppRes)
	}
	if alice.Board.CardFromSlot(0) != card {
		t.Error("card should be on slot 0")
	}
	if _, ok := alice.Hand.TryGetCard(card.InstanceID); ok {
		t.Error("card should have left the hand")
	}
	if !card.HasState(Engage) {
		t.Error("a freshly placed card should be engaged")
	}
	if len(l.plays) != 1 {
		t.Errorf("expected 1 play event, got %d", len(l.plays))
	}
}

func TestPlayCardGating(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *Session) (userID string, cardID, slot int)
	}{
		{"wrong phase", func(s *Session) (string, int, int) {
			s.phase = Attack
			return "alice", s.player("alice").Hand.Cards()[0].InstanceID, 0
		}},
		{"non-active player", func(s *Session) (string, int, int) {
			return "bob", s.player("bob").Hand.Cards()[0].InstanceID, 0
		}},
		{"slot below range", func(s *Session) (string, int, int) {
			return "alice", s.player("alice").Hand.Cards()[0].InstanceID, -1
		}},
		{"slot above range", func(s *Session) (string, int, int) {
			return "alice", s.player("alice").Hand.Cards()[0].InstanceID, BoardSize
		}},
		{"card not in hand", func(s *Session) (string, int, int) {
			return "alice", 999, 0
		}},
		{"opponent's card", func(s *Session) (string, int, int) {
			return "alice", s.player("bob").Hand.Cards()[0].InstanceID, 0
		}},
		{"occupied slot", func(s *Session) (string, int, int) {
			return "alice", s.player("alice").Hand.Cards()[1].InstanceID, 3
		}},
		{"not enough gold", func(s *Session) (string, int, int) {
			s.player("alice").Champion.Gold = 0
			return "alice", s.player("alice").Hand.Cards()[0].InstanceID, 0
		}},
		{"not a guard", func(s *Session) (string, int, int) {
			c := s.player("alice").Hand.Cards()[0]
			c.Template.Type = Spell
			return "alice", c.InstanceID, 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, l := defaultTestGame(t)
			alice := s.player("alice")
			placeReady(t, alice, 3)
			userID, cardID, slot := tt.setup(s)

			handBefore := alice.Hand.Len()
			boardBefore := len(alice.Board.Cards())
			goldBefore := alice.Champion.Gold

			res, oppRes := s.playCard(userID, cardID, slot)
			if res != nil || oppRes != nil {
				t.Fatal("expected play to be rejected")
			}
			if alice.Hand.Len() != handBefore || len(alice.Board.Cards()) != boardBefore || alice.Champion.Gold != goldBefore {
				t.Error("rejected play must not change hand, board or gold")
			}
			if len(l.plays) != 0 {
				t.Error("rejected play must not emit an event")
			}
		})
	}
}

func TestEndToEndTurnPassesToOpponent(t *testing.T) {
	s, _ := defaultTestGame(t)
	alice := s.player("alice")
	bob := s.player("bob")
	card := alice.Hand.Cards()[0]

	if res, _ := s.playCard("alice", card.InstanceID, 0); res == nil {
		t.Fatal("play at slot 0 should succeed")
	}

	// The only card on the board was just placed, so Attack is skipped.
	res := s.changePhase("alice")
	if res == nil {
		t.Fatal("changePhase should succeed")
	}
	if res.PreviousPhase != "placement" || res.Phase != "placement" || res.ActivePlayerID != "bob" || !res.TurnChanged {
		t.Errorf("unexpected result %+v", res)
	}
	if res.TurnNumber != 1 {
		t.Errorf("turn number should advance per round, got %d", res.TurnNumber)
	}
	if bob.Hand.Len() != 5 {
		t.Errorf("bob should draw on turn start, hand=%d", bob.Hand.Len())
	}
	if bob.Champion.Gold != 1 {
		t.Errorf("bob should have 1 gold, got %d", bob.Champion.Gold)
	}
	if card.HasState(Engage) {
		t.Error("end of turn should clear summoning engagement")
	}

	res = s.changePhase("bob")
	if res == nil || res.ActivePlayerID != "alice" || res.TurnNumber != 2 {
		t.Fatalf("expected alice's turn 2, got %+v", res)
	}

	res = s.changePhase("alice")
	if res == nil || res.Phase != "attack" || res.TurnChanged {
		t.Fatalf("expected attack phase, got %+v", res)
	}

	atk := s.handleAttackEvent("alice", card.InstanceID)
	if atk == nil || !reflect.DeepEqual(atk.AttackerIDs, []int{card.InstanceID}) {
		t.Fatalf("expected card to be declared, got %+v", atk)
	}

	res = s.changePhase("alice")
	if res == nil || res.Phase != "defense" {
		t.Fatalf("expected defense phase, got %+v", res)
	}

	res = s.changePhase("alice")
	if res == nil || res.ActivePlayerID != "bob" || res.Phase != "placement" {
		t.Fatalf("expected bob's placement, got %+v", res)
	}
	if bob.Champion.HP != 28 {
		t.Errorf("unblocked attacker should hit bob for 2, HP=%d", bob.Champion.HP)
	}
}

func TestAttackSkippedToEndWhenNoAttackers(t *testing.T) {
	s, _ := defaultTestGame(t)
	placeReady(t, s.player("alice"), 0)

	if res := s.changePhase("alice"); res == nil || res.Phase != "attack" {
		t.Fatalf("expected attack phase, got %+v", res)
	}
	res := s.changePhase("alice")
	if res == nil || res.PreviousPhase != "attack" || res.ActivePlayerID != "bob" || !res.TurnChanged {
		t.Fatalf("no attackers should skip defense and end the turn, got %+v", res)
	}
}

func TestHandleAttackEventToggle(t *testing.T) {
	s, l := defaultTestGame(t)
	alice := s.player("alice")
	c1 := placeReady(t, alice, 0)
	c2 := placeReady(t, alice, 1)

	if s.handleAttackEvent("alice", c1.InstanceID) != nil {
		t.Error("attack declaration outside Attack phase should be rejected")
	}
	s.changePhase("alice")

	s.handleAttackEvent("alice", c2.InstanceID)
	res := s.handleAttackEvent("alice", c1.InstanceID)
	if !reflect.DeepEqual(res.AttackerIDs, []int{c2.InstanceID, c1.InstanceID}) {
		t.Errorf("attackers should follow declaration order, got %v", res.AttackerIDs)
	}
	if !c1.HasState(AttackEngage) {
		t.Error("declared card should be attack-engaged")
	}

	res = s.handleAttackEvent("alice", c2.InstanceID)
	if !reflect.DeepEqual(res.AttackerIDs, []int{c1.InstanceID}) {
		t.Errorf("toggle should withdraw c2, got %v", res.AttackerIDs)
	}
	if c2.HasState(AttackEngage) {
		t.Error("withdrawn card should not be attack-engaged")
	}

	if s.handleAttackEvent("bob", c1.InstanceID) != nil {
		t.Error("non-active player must not declare attackers")
	}
	if s.handleAttackEvent("alice", 999) != nil {
		t.Error("unknown card must be rejected")
	}
	if len(l.attacks) != 3 {
		t.Errorf("expected 3 attack events, got %d", len(l.attacks))
	}
}

func TestHandleAttackEventRejectsEngagedCard(t *testing.T) {
	s, _ := defaultTestGame(t)
	alice := s.player("alice")
	ready := placeReady(t, alice, 0)
	sick := placeReady(t, alice, 1)
	sick.AddState(Engage)
	s.changePhase("alice")

	if s.handleAttackEvent("alice", sick.InstanceID) != nil {
		t.Error("engaged card must not attack")
	}
	if s.handleAttackEvent("alice", ready.InstanceID) == nil {
		t.Error("ready card should attack")
	}
}

// setupDefense puts two ready attackers on alice's board and two ready
// defenders on bob's, declares both attackers and moves to Defense.
func setupDefense(t *testing.T, s *Session) (a1, a2, d1, d2 *CardInstance) {
	t.Helper()
	alice, bob := s.player("alice"), s.player("bob")
	a1 = placeReady(t, alice, 0)
	a2 = placeReady(t, alice, 1)
	d1 = placeReady(t, bob, 0)
	d2 = placeReady(t, bob, 1)
	s.changePhase("alice")
	s.handleAttackEvent("alice", a1.InstanceID)
	s.handleAttackEvent("alice", a2.InstanceID)
	if res := s.changePhase("alice"); res == nil || res.Phase != "defense" {
		t.Fatalf("expected defense phase, got %+v", res)
	}
	return a1, a2, d1, d2
}

func TestHandleDefenseEventAssignments(t *testing.T) {
	s, _ := defaultTestGame(t)
	a1, a2, d1, d2 := setupDefense(t, s)
	attacks := s.player("alice").Attacks

	res := s.handleDefenseEvent("bob", d1.InstanceID, a1.InstanceID)
	if res == nil || !reflect.DeepEqual(res.Defenses, []DefensePair{{d1.InstanceID, a1.InstanceID}}) {
		t.Fatalf("unexpected defenses %+v", res)
	}
	if !d1.HasState(DefenseEngage) {
		t.Error("d1 should be defense-engaged")
	}

	// Replacing the defender of a1 releases d1 immediately.
	res = s.handleDefenseEvent("bob", d2.InstanceID, a1.InstanceID)
	if !reflect.DeepEqual(res.Defenses, []DefensePair{{d2.InstanceID, a1.InstanceID}}) {
		t.Errorf("expected d2 to replace d1, got %v", res.Defenses)
	}
	if d1.HasState(DefenseEngage) {
		t.Error("replaced defender should be released")
	}

	// Sending d2 against a2 moves it off a1.
	res = s.handleDefenseEvent("bob", d2.InstanceID, a2.InstanceID)
	if !reflect.DeepEqual(res.Defenses, []DefensePair{{d2.InstanceID, a2.InstanceID}}) {
		t.Errorf("expected d2 to move to a2, got %v", res.Defenses)
	}
	if _, ok := attacks.SpecificDefender(a1.InstanceID); ok {
		t.Error("a1 should be unblocked after d2 moved")
	}

	res = s.handleDefenseEvent("bob", d1.InstanceID, a1.InstanceID)
	want := []DefensePair{{d1.InstanceID, a1.InstanceID}, {d2.InstanceID, a2.InstanceID}}
	if !reflect.DeepEqual(res.Defenses, want) {
		t.Errorf("expected %v, got %v", want, res.Defenses)
	}

	// Repeating a pair withdraws it.
	res = s.handleDefenseEvent("bob", d1.InstanceID, a1.InstanceID)
	if !reflect.DeepEqual(res.Defenses, []DefensePair{{d2.InstanceID, a2.InstanceID}}) {
		t.Errorf("expected withdrawal of d1, got %v", res.Defenses)
	}
	if d1.HasState(DefenseEngage) {
		t.Error("withdrawn defender should be released")
	}
}

func TestHandleDefenseEventGating(t *testing.T) {
	s, _ := defaultTestGame(t)
	a1, _, d1, _ := setupDefense(t, s)

	if s.handleDefenseEvent("alice", d1.InstanceID, a1.InstanceID) != nil {
		t.Error("attacking player must not assign defenders")
	}
	if s.handleDefenseEvent("bob", 999, a1.InstanceID) != nil {
		t.Error("unknown defender must be rejected")
	}
	if s.handleDefenseEvent("bob", d1.InstanceID, 999) != nil {
		t.Error("unknown attacker must be rejected")
	}
	if s.handleDefenseEvent("bob", a1.InstanceID, a1.InstanceID) != nil {
		t.Error("defender must come from the defending board")
	}

	sick := placeReady(t, s.player("bob"), 2)
	sick.AddState(Engage)
	if s.handleDefenseEvent("bob", sick.InstanceID, a1.InstanceID) != nil {
		t.Error("engaged card must not defend")
	}
}

func TestCombatResolution(t *testing.T) {
	s, l := createTestGame(t, testConfig(), guardDeck(30, 2, 3, 1), guardDeck(30, 3, 1, 1))
	a1, a2, d1, _ := setupDefense(t, s)
	s.handleDefenseEvent("bob", d1.InstanceID, a1.InstanceID)

	res := s.changePhase("alice")
	if res == nil || res.ActivePlayerID != "bob" {
		t.Fatalf("expected turn to pass to bob, got %+v", res)
	}

	alice, bob := s.player("alice"), s.player("bob")
	if len(l.battles) != 1 || len(l.battles[0]) != 2 {
		t.Fatalf("expected one resolution with 2 battles, got %v", l.battles)
	}
	blocked, unblocked := l.battles[0][0], l.battles[0][1]

	if blocked.AttackerID != a1.InstanceID || blocked.DefenderID != d1.InstanceID {
		t.Errorf("unexpected blocked battle %+v", blocked)
	}
	if blocked.DamageToDefender != 3 || blocked.DamageToAttacker != 1 || !blocked.DefenderDied || blocked.AttackerDied {
		t.Errorf("unexpected blocked outcome %+v", blocked)
	}
	if blocked.ChampionDamageDealt != 0 {
		t.Errorf("counter-damage should default to 0, got %d", blocked.ChampionDamageDealt)
	}
	if a1.HP != 1 {
		t.Errorf("a1 should survive with 1 HP, got %d", a1.HP)
	}
	if _, ok := bob.Board.TryGetCardPos(d1.InstanceID); ok {
		t.Error("dead defender should leave the board")
	}
	if bob.Graveyard.Len() != 1 {
		t.Errorf("expected 1 card in bob's graveyard, got %d", bob.Graveyard.Len())
	}

	if unblocked.AttackerID != a2.InstanceID || unblocked.DefenderID != 0 || unblocked.ChampionDamage != 3 {
		t.Errorf("unexpected unblocked battle %+v", unblocked)
	}
	if bob.Champion.HP != 27 {
		t.Errorf("expected bob HP=27, got %d", bob.Champion.HP)
	}

	if alice.Attacks.HasAttackers() {
		t.Error("attack handler should be reset after resolution")
	}
	for _, c := range append(alice.Board.Cards(), bob.Board.Cards()...) {
		if c.HasAnyState(Engage, AttackEngage, DefenseEngage) {
			t.Errorf("card %d still engaged after resolution", c.InstanceID)
		}
	}
}

func TestCombatBothCardsDie(t *testing.T) {
	s, _ := createTestGame(t, testConfig(), guardDeck(30, 2, 2, 1), guardDeck(30, 2, 2, 1))
	a1, _, d1, _ := setupDefense(t, s)
	s.handleDefenseEvent("bob", d1.InstanceID, a1.InstanceID)
	s.changePhase("alice")

	if _, ok := s.player("alice").Board.TryGetCardPos(a1.InstanceID); ok {
		t.Error("attacker should have died")
	}
	if _, ok := s.player("bob").Board.TryGetCardPos(d1.InstanceID); ok {
		t.Error("defender should have died")
	}
	if s.player("alice").Graveyard.Len() != 1 || s.player("bob").Graveyard.Len() != 1 {
		t.Error("each graveyard should hold one card")
	}
}

func TestDrawCardsBurnsOverflow(t *testing.T) {
	s, l := defaultTestGame(t)
	alice := s.player("alice")
	drawsBefore := len(l.draws)

	res := s.drawCards("alice", 5)
	if res == nil {
		t.Fatal("expected draw result")
	}
	if len(res.Player.Drawn) != 3 || len(res.Player.Burned) != 2 {
		t.Errorf("expected 3 drawn and 2 burned, got %d and %d", len(res.Player.Drawn), len(res.Player.Burned))
	}
	if alice.Hand.Len() != MaxHandSize || alice.Graveyard.Len() != 2 {
		t.Errorf("expected full hand and 2 burned, got hand=%d graveyard=%d", alice.Hand.Len(), alice.Graveyard.Len())
	}
	if res.Opponent.DrawnCount != 3 || res.Opponent.BurnedCount != 2 || res.Opponent.DeckSize != 21 {
		t.Errorf("unexpected opponent view %+v", res.Opponent)
	}
	if len(l.draws) != drawsBefore+1 {
		t.Error("expected one draw event")
	}
}

func TestDrawCardsFatigue(t *testing.T) {
	s, _ := defaultTestGame(t)
	alice := s.player("alice")
	alice.Deck = NewDeck(nil)

	res := s.drawCards("alice", 3)
	if res.Player.FatigueDamage != 6 || res.Player.PreviousFatigueDamage != 0 {
		t.Errorf("expected 6 fatigue from 0, got %+v", res.Player)
	}
	if alice.Champion.HP != 24 || alice.Champion.FatigueCount != 3 {
		t.Errorf("expected HP=24 and fatigue=3, got %d and %d", alice.Champion.HP, alice.Champion.FatigueCount)
	}
	if len(res.Player.Drawn) != 0 || res.Opponent.FatigueDamage != 6 {
		t.Errorf("unexpected result %+v", res)
	}

	res = s.drawCards("alice", 1)
	if res.Player.PreviousFatigueDamage != 6 || res.Player.FatigueDamage != 4 {
		t.Errorf("expected 4 fatigue on top of 6, got %+v", res.Player)
	}
}

func TestDrawCardsNoOp(t *testing.T) {
	s, l := defaultTestGame(t)
	before := len(l.draws)
	if s.drawCards("alice", 0) != nil || s.drawCards("alice", -2) != nil {
		t.Error("non-positive count should be a no-op")
	}
	if s.drawCards("carol", 1) != nil {
		t.Error("unknown user should be a no-op")
	}
	if len(l.draws) != before {
		t.Error("no-op draws must not emit events")
	}
}

func TestGameOverByFatigue(t *testing.T) {
	s, l := defaultTestGame(t)
	alice := s.player("alice")
	alice.Deck = NewDeck(nil)
	alice.Champion.HP = 1

	s.drawCards("alice", 1)
	if !s.finished {
		t.Fatal("game should be over")
	}
	if len(l.gameOvers) != 1 || l.gameOvers[0].WinnerID != "bob" || l.gameOvers[0].LoserID != "alice" {
		t.Fatalf("unexpected game over %+v", l.gameOvers)
	}
	if s.changePhase("alice") != nil {
		t.Error("changePhase after game over should return nil")
	}
	if res, _ := s.playCard("alice", alice.Hand.Cards()[0].InstanceID, 0); res != nil {
		t.Error("playCard after game over should return nil")
	}
}

func TestGameOverByCombat(t *testing.T) {
	s, l := defaultTestGame(t)
	a := placeReady(t, s.player("alice"), 0)
	s.player("bob").Champion.HP = 2
	s.changePhase("alice")
	s.handleAttackEvent("alice", a.InstanceID)
	s.changePhase("alice")

	res := s.changePhase("alice")
	if res == nil || res.CanAct {
		t.Fatalf("expected final phase result with CanAct=false, got %+v", res)
	}
	if len(l.gameOvers) != 1 || l.gameOvers[0].WinnerID != "alice" {
		t.Fatalf("expected alice to win, got %+v", l.gameOvers)
	}
	if s.forceChangePhase() != nil {
		t.Error("forced change after game over should return nil")
	}
}

func TestTurnNumberAdvancesPerRound(t *testing.T) {
	s, _ := defaultTestGame(t)
	want := []struct {
		requester, active string
		turn              int
	}{
		{"alice", "bob", 1},
		{"bob", "alice", 2},
		{"alice", "bob", 2},
		{"bob", "alice", 3},
	}
	for i, w := range want {
		res := s.changePhase(w.requester)
		if res == nil || res.ActivePlayerID != w.active || res.TurnNumber != w.turn {
			t.Fatalf("step %d: expected %s on turn %d, got %+v", i, w.active, w.turn, res)
		}
	}
}

func TestGoldGrowthPerTurn(t *testing.T) {
	cfg := testConfig()
	cfg.GoldGrowthPerTurn = 1
	cfg.MaxGold = 2
	s, _ := createTestGame(t, cfg, guardDeck(30, 3, 2, 1), guardDeck(30, 3, 2, 1))
	alice, bob := s.player("alice"), s.player("bob")

	if alice.Champion.Gold != 1 {
		t.Errorf("alice turn 1: expected gold 1, got %d", alice.Champion.Gold)
	}
	s.changePhase("alice")
	if bob.Champion.Gold != 1 {
		t.Errorf("bob turn 1: expected gold 1, got %d", bob.Champion.Gold)
	}
	s.changePhase("bob")
	if alice.Champion.Gold != 2 {
		t.Errorf("alice turn 2: expected gold 2, got %d", alice.Champion.Gold)
	}
	s.changePhase("alice")
	s.changePhase("bob")
	if alice.Champion.Gold != 2 {
		t.Errorf("alice turn 3: expected gold capped at 2, got %d", alice.Champion.Gold)
	}
}

func TestForceChangePhase(t *testing.T) {
	s, _ := defaultTestGame(t)
	s.phaseTimeout = 0

	res := s.forceChangePhase()
	if res == nil || !res.AutoChanged || res.ActivePlayerID != "bob" {
		t.Fatalf("unexpected forced result %+v", res)
	}
	if !strings.Contains(res.Reason, "elapsed") {
		t.Errorf("expected a timeout reason, got %q", res.Reason)
	}

	idle := NewSession("XYZ789", testConfig(), staticLoader{}, nil)
	if idle.forceChangePhase() != nil {
		t.Error("forced change before start should return nil")
	}
}

func TestStaleTimerIsIgnored(t *testing.T) {
	s, l := defaultTestGame(t)
	stale := s.timerGen
	s.cancelPhaseTimer()

	s.handlePhaseTimeout(stale)
	if s.players[s.activeIdx].UserID != "alice" || len(l.phases) != 1 {
		t.Fatal("stale timer must not change the phase")
	}

	s.handlePhaseTimeout(s.timerGen)
	if s.players[s.activeIdx].UserID != "bob" {
		t.Error("current timer should force the phase forward")
	}
}

func TestCanPlayerAct(t *testing.T) {
	s, _ := defaultTestGame(t)
	if !s.canPlayerAct("alice") || s.canPlayerAct("bob") {
		t.Error("only alice may act during her placement")
	}
	setupDefense(t, s)
	if s.canPlayerAct("alice") || !s.canPlayerAct("bob") {
		t.Error("only bob may act during defense")
	}
}

func TestSnapshotHidesOpponentHand(t *testing.T) {
	s, _ := defaultTestGame(t)
	placeReady(t, s.player("bob"), 2)

	v := s.snapshot("alice")
	if v == nil {
		t.Fatal("expected snapshot")
	}
	if len(v.Hand) != 4 || v.Opponent.HandSize != 3 {
		t.Errorf("unexpected hand sizes %d/%d", len(v.Hand), v.Opponent.HandSize)
	}
	if v.Opponent.Board[2].Card == nil {
		t.Error("opponent board should show slot 2")
	}
	if len(v.Board) != BoardSize {
		t.Errorf("expected %d slots, got %d", BoardSize, len(v.Board))
	}
	if s.snapshot("carol") != nil {
		t.Error("unknown user should get no snapshot")
	}
}

func TestSnapshotShowsGraveyards(t *testing.T) {
	s, _ := defaultTestGame(t)
	alice, bob := s.player("alice"), s.player("bob")
	dead := bob.Hand.Cards()[0]
	bob.Hand.DeleteFromID(dead.InstanceID)
	bob.Graveyard.AddCard(dead)

	v := s.snapshot("alice")
	if len(v.Graveyard) != 0 {
		t.Errorf("alice's graveyard should be empty, got %v", v.Graveyard)
	}
	if len(v.Opponent.Graveyard) != 1 || v.Opponent.Graveyard[0].InstanceID != dead.InstanceID {
		t.Errorf("expected bob's graveyard to show card %d, got %v", dead.InstanceID, v.Opponent.Graveyard)
	}
	if len(s.snapshot("bob").Graveyard) != 1 || alice.Graveyard.Len() != 0 {
		t.Error("bob should see his own graveyard")
	}
}
