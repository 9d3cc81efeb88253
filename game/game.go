package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"card-duel-server/config"
	"card-duel-server/matcherrors"
)

// Phase is one sub-step of a player's turn.
type Phase int

const (
	Placement Phase = iota
	Attack
	Defense
	EndTurn
)

// String returns the protocol string for a Phase.
func (p Phase) String() string {
	switch p {
	case Placement:
		return "placement"
	case Attack:
		return "attack"
	case Defense:
		return "defense"
	case EndTurn:
		return "end_turn"
	default:
		return "unknown"
	}
}

// PlayerState is everything one seat owns inside a session.
type PlayerState struct {
	UserID    string
	DeckID    string
	Board     *Board
	Hand      *Hand
	Deck      *Deck
	Graveyard *Graveyard
	Champion  *Champion
	Attacks   *AttackHandler

	turnsTaken int
}

// ActionType enumerates the kinds of actions a session processes.
type ActionType int

const (
	ActionCall         ActionType = iota // run Fn on the session goroutine
	ActionPhaseTimeout                   // internal: the phase timer armed with TimerGen fired
)

// Action is one unit of work sent into the session's action channel.
type Action struct {
	Type     ActionType
	Fn       func() // for ActionCall
	TimerGen uint64 // for ActionPhaseTimeout
}

// Option customizes a Session.
type Option func(*Session)

// WithRand sets the random source used to shuffle decks.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

// WithPhaseTimeout overrides Config.PhaseTimeoutSec. Zero disables the timer.
func WithPhaseTimeout(d time.Duration) Option {
	return func(s *Session) { s.phaseTimeout = d }
}

// Session is one match between two players. All state is owned by the
// goroutine running Run; exported methods hand work to it and wait.
type Session struct {
	Code string

	cfg          *config.Config
	loader       DeckLoader
	listener     Listener
	rng          *rand.Rand
	phaseTimeout time.Duration

	players        [2]*PlayerState
	phase          Phase
	activeIdx      int
	turnNumber     int
	started        bool
	finished       bool
	nextInstanceID int

	phaseEndsAt time.Time
	timerGen    uint64
	timerCancel chan struct{}

	actions  chan Action
	quit     chan struct{}
	stopOnce sync.Once
	Done     chan struct{}
}

// NewSession creates a session. Run must be started before any other call.
func NewSession(code string, cfg *config.Config, loader DeckLoader, listener Listener, opts ...Option) *Session {
	if listener == nil {
		listener = NopListener{}
	}
	s := &Session{
		Code:         code,
		cfg:          cfg,
		loader:       loader,
		listener:     listener,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		phaseTimeout: time.Duration(cfg.PhaseTimeoutSec) * time.Second,
		turnNumber:   1,
		actions:      make(chan Action, 16),
		quit:         make(chan struct{}),
		Done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes actions one at a time until ctx is cancelled or Stop is called.
func (s *Session) Run(ctx context.Context) {
	defer close(s.Done)
	defer s.cancelPhaseTimer()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case action := <-s.actions:
			switch action.Type {
			case ActionCall:
				action.Fn()
			case ActionPhaseTimeout:
				s.handlePhaseTimeout(action.TimerGen)
			}
		}
	}
}

// Stop ends the session goroutine and cancels any pending phase timer.
// It returns once the goroutine has exited.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.Done
}

// exec runs fn on the session goroutine and waits for it. It returns
// false if the session has already stopped.
func (s *Session) exec(fn func()) bool {
	done := make(chan struct{})
	select {
	case s.actions <- Action{Type: ActionCall, Fn: func() {
		defer close(done)
		fn()
	}}:
	case <-s.Done:
		return false
	}
	select {
	case <-done:
		return true
	case <-s.Done:
		return false
	}
}

// SetPlayer loads deckID from the catalog and seats userID in slot (0 or 1).
func (s *Session) SetPlayer(ctx context.Context, slot int, userID, deckID string) error {
	if slot != 0 && slot != 1 {
		return fmt.Errorf("seat %d: %w", slot, matcherrors.ErrInvalidSeat)
	}
	templates, err := s.loader.LoadDeck(ctx, deckID)
	if err != nil {
		return fmt.Errorf("loading deck %s: %w", deckID, err)
	}
	if s.cfg.DeckSize > 0 && len(templates) != s.cfg.DeckSize {
		return fmt.Errorf("deck %s has %d cards, want %d: %w", deckID, len(templates), s.cfg.DeckSize, matcherrors.ErrInvalidDeckSize)
	}
	var setErr error
	if !s.exec(func() { setErr = s.setPlayer(slot, userID, deckID, templates) }) {
		return matcherrors.ErrSessionStopped
	}
	return setErr
}

func (s *Session) setPlayer(slot int, userID, deckID string, templates []CardTemplate) error {
	if s.started {
		return matcherrors.ErrGameStarted
	}
	cards := make([]*CardInstance, 0, len(templates))
	for i := range templates {
		tmpl := templates[i]
		s.nextInstanceID++
		cards = append(cards, NewCardInstance(&tmpl, s.nextInstanceID))
	}
	deck := NewDeck(cards)
	deck.Shuffle(s.rng)

	champ := &Champion{}
	champ.Init(userID, s.cfg.ChampionHP, s.cfg.BaseGold)

	s.players[slot] = &PlayerState{
		UserID:    userID,
		DeckID:    deckID,
		Board:     NewBoard(),
		Hand:      NewHand(),
		Deck:      deck,
		Graveyard: NewGraveyard(),
		Champion:  champ,
		Attacks:   NewAttackHandler(),
	}
	slog.Debug("player seated", "tag", "game", "code", s.Code, "slot", slot, "user", userID, "deck", deckID)
	return nil
}

// StartGame deals opening hands and gives the first turn to seat 0.
// It returns nil if both seats are not filled or the game already started.
func (s *Session) StartGame() *PhaseChangeResult {
	var res *PhaseChangeResult
	s.exec(func() { res = s.startGame() })
	return res
}

func (s *Session) startGame() *PhaseChangeResult {
	if s.started || s.players[0] == nil || s.players[1] == nil {
		return nil
	}
	s.started = true
	s.phase = Placement
	s.activeIdx = 0
	s.turnNumber = 1

	for _, p := range s.players {
		s.drawCards(p.UserID, s.cfg.OpeningHandSize)
	}
	first := s.players[0]
	first.turnsTaken++
	first.Champion.ResetGold()

	s.startPhaseTimer()
	res := s.phaseResult(Placement, true, false, "")
	res.PreviousPhase = ""
	slog.Info("game started", "tag", "game", "code", s.Code, "player0", s.players[0].UserID, "player1", s.players[1].UserID)
	s.listener.SendPhaseChangeData(res)
	return res
}

// ChangePhase advances the phase on behalf of the active player.
func (s *Session) ChangePhase(requesterID string) *PhaseChangeResult {
	var res *PhaseChangeResult
	s.exec(func() { res = s.changePhase(requesterID) })
	return res
}

func (s *Session) changePhase(requesterID string) *PhaseChangeResult {
	if !s.initialized() || s.finished || s.players[s.activeIdx].UserID != requesterID {
		return nil
	}
	return s.advance(false, "")
}

// ForceChangePhase advances the phase regardless of who is active.
func (s *Session) ForceChangePhase() *PhaseChangeResult {
	var res *PhaseChangeResult
	s.exec(func() { res = s.forceChangePhase() })
	return res
}

func (s *Session) forceChangePhase() *PhaseChangeResult {
	if !s.initialized() || s.finished {
		return nil
	}
	reason := fmt.Sprintf("%s phase time limit of %s elapsed", s.phase, s.phaseTimeout)
	return s.advance(true, reason)
}

// advance moves to the next phase, skipping Attack when the active player
// has nothing able to attack and Defense when nobody attacked.
func (s *Session) advance(auto bool, reason string) *PhaseChangeResult {
	prev := s.phase
	active := s.players[s.activeIdx]
	turnChanged := false

	switch s.phase {
	case Placement:
		if active.Board.HasAttackableCards() {
			active.Attacks.Reset()
			s.phase = Attack
		} else {
			s.endTurn()
			turnChanged = true
		}
	case Attack:
		if active.Attacks.HasAttackers() {
			s.phase = Defense
		} else {
			s.endTurn()
			turnChanged = true
		}
	default:
		s.endTurn()
		turnChanged = true
	}

	if s.finished {
		s.cancelPhaseTimer()
	} else {
		s.startPhaseTimer()
	}
	res := s.phaseResult(prev, turnChanged, auto, reason)
	slog.Debug("phase changed", "tag", "game", "code", s.Code, "from", prev, "to", s.phase, "active", res.ActivePlayerID, "turn", s.turnNumber, "auto", auto)
	s.listener.SendPhaseChangeData(res)
	return res
}

// endTurn resolves combat, passes the turn and starts the next player's
// Placement phase. The turn number advances once per full round.
func (s *Session) endTurn() {
	s.phase = EndTurn
	s.resolveCombat()
	if s.finished {
		return
	}
	s.activeIdx = 1 - s.activeIdx
	if s.activeIdx == 0 {
		s.turnNumber++
	}
	s.beginTurn()
}

func (s *Session) beginTurn() {
	p := s.players[s.activeIdx]
	if p.turnsTaken > 0 {
		p.Champion.GrowGold(s.cfg.GoldGrowthPerTurn, s.cfg.MaxGold)
	}
	p.turnsTaken++
	p.Champion.ResetGold()
	s.phase = Placement
	s.drawCards(p.UserID, 1)
}

func (s *Session) phaseResult(prev Phase, turnChanged, auto bool, reason string) *PhaseChangeResult {
	res := &PhaseChangeResult{
		PreviousPhase:  prev.String(),
		Phase:          s.phase.String(),
		ActivePlayerID: s.players[s.activeIdx].UserID,
		TurnNumber:     s.turnNumber,
		TurnChanged:    turnChanged,
		CanAct:         !s.finished,
		AutoChanged:    auto,
		Reason:         reason,
	}
	if !s.phaseEndsAt.IsZero() {
		res.PhaseEndsAtUnixMs = s.phaseEndsAt.UnixMilli()
	}
	return res
}

// cancelPhaseTimer closes the timer cancel channel and invalidates any
// timeout already queued. Safe if no timer is armed.
func (s *Session) cancelPhaseTimer() {
	s.timerGen++
	if s.timerCancel != nil {
		close(s.timerCancel)
		s.timerCancel = nil
	}
	s.phaseEndsAt = time.Time{}
}

// startPhaseTimer arms a fresh timer for the current phase, replacing any
// previous one. No-op when the timeout is disabled.
func (s *Session) startPhaseTimer() {
	s.cancelPhaseTimer()
	if s.phaseTimeout <= 0 {
		return
	}
	gen := s.timerGen
	limit := s.phaseTimeout
	s.phaseEndsAt = time.Now().Add(limit)
	s.timerCancel = make(chan struct{})
	cancel := s.timerCancel
	go func() {
		t := time.NewTimer(limit)
		defer t.Stop()
		select {
		case <-t.C:
			select {
			case s.actions <- Action{Type: ActionPhaseTimeout, TimerGen: gen}:
			case <-cancel:
			case <-s.Done:
			}
		case <-cancel:
		}
	}()
}

func (s *Session) handlePhaseTimeout(gen uint64) {
	if gen != s.timerGen {
		slog.Debug("stale phase timer ignored", "tag", "game", "code", s.Code, "gen", gen, "current", s.timerGen)
		return
	}
	s.forceChangePhase()
}

func (s *Session) initialized() bool {
	return s.started && s.players[0] != nil && s.players[1] != nil
}

func (s *Session) playerIndex(userID string) (int, bool) {
	for i, p := range s.players {
		if p != nil && p.UserID == userID {
			return i, true
		}
	}
	return -1, false
}

// IsPlayerTurn reports whether userID is the active player of a started game.
func (s *Session) IsPlayerTurn(userID string) bool {
	var ok bool
	s.exec(func() { ok = s.initialized() && s.players[s.activeIdx].UserID == userID })
	return ok
}

// CanPlayerAct reports whether userID may submit an action now: the active
// player in any phase, or the defending player during Defense.
func (s *Session) CanPlayerAct(userID string) bool {
	var ok bool
	s.exec(func() { ok = s.canPlayerAct(userID) })
	return ok
}

func (s *Session) canPlayerAct(userID string) bool {
	if !s.initialized() || s.finished {
		return false
	}
	idx, found := s.playerIndex(userID)
	if !found {
		return false
	}
	if s.phase == Defense {
		return idx == 1-s.activeIdx
	}
	return idx == s.activeIdx
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	var p Phase
	s.exec(func() { p = s.phase })
	return p
}

// ActivePlayerID returns the active player's user id, or "" before seating.
func (s *Session) ActivePlayerID() string {
	var id string
	s.exec(func() {
		if p := s.players[s.activeIdx]; p != nil {
			id = p.UserID
		}
	})
	return id
}

func (s *Session) TurnNumber() int {
	var n int
	s.exec(func() { n = s.turnNumber })
	return n
}

// Initialized reports whether both seats are filled and the game started.
func (s *Session) Initialized() bool {
	var ok bool
	s.exec(func() { ok = s.initialized() })
	return ok
}

func (s *Session) Finished() bool {
	var ok bool
	s.exec(func() { ok = s.finished })
	return ok
}

// finish ends the match after a champion falls.
func (s *Session) finish(reason string) {
	if s.finished {
		return
	}
	s.finished = true
	s.cancelPhaseTimer()

	res := &GameOverResult{
		TurnNumber: s.turnNumber,
		Reason:     reason,
		PlayerIDs:  []string{s.players[0].UserID, s.players[1].UserID},
	}
	dead0 := s.players[0].Champion.IsDead()
	dead1 := s.players[1].Champion.IsDead()
	switch {
	case dead0 && dead1:
		res.Draw = true
	case dead0:
		res.WinnerID, res.LoserID = s.players[1].UserID, s.players[0].UserID
	default:
		res.WinnerID, res.LoserID = s.players[0].UserID, s.players[1].UserID
	}
	slog.Info("game over", "tag", "game", "code", s.Code, "winner", res.WinnerID, "draw", res.Draw, "reason", reason)
	s.listener.SendGameOverData(res)
}

// checkChampions finishes the game if either champion has fallen.
func (s *Session) checkChampions(reason string) {
	if !s.started || s.finished {
		return
	}
	for _, p := range s.players {
		if p.Champion.IsDead() {
			s.finish(reason)
			return
		}
	}
}
