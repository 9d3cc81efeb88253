package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"card-duel-server/config"
	"card-duel-server/game"
	"card-duel-server/matcherrors"
)

// CodeLength is the number of characters in a room code.
const CodeLength = 6

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Room is one registry entry: up to two users, their deck choices and the
// session they play in.
type Room struct {
	Code    string
	players []string
	decks   map[string]string
	session *game.Session
}

// LeaveResult describes what Leave did.
type LeaveResult struct {
	OK         bool
	Code       string
	OpponentID string
	RoomEmpty  bool
}

// Service maps room codes to rooms and users to the room they are in.
type Service struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	userRoom map[string]string

	cfg      *config.Config
	loader   game.DeckLoader
	listener game.Listener
	opts     []game.Option
}

// NewService creates an empty registry. Sessions it creates load decks
// through loader and report events to listener.
func NewService(cfg *config.Config, loader game.DeckLoader, listener game.Listener, opts ...game.Option) *Service {
	return &Service{
		rooms:    make(map[string]*Room),
		userRoom: make(map[string]string),
		cfg:      cfg,
		loader:   loader,
		listener: listener,
		opts:     opts,
	}
}

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			return false
		}
	}
	return true
}

// GenerateCode returns a random code not used by any live room.
func (s *Service) GenerateCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateCodeLocked()
}

func (s *Service) generateCodeLocked() string {
	buf := make([]byte, CodeLength)
	for {
		for i := range buf {
			buf[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(buf)
		if _, taken := s.rooms[code]; !taken {
			return code
		}
	}
}

// TryCreateRoom is CreateRoom reporting failure as false.
func (s *Service) TryCreateRoom(userID, preferredCode string) (string, bool) {
	code, err := s.CreateRoom(userID, preferredCode)
	if err != nil {
		slog.Debug("create room rejected", "tag", "room", "user", userID, "code", preferredCode, "err", err)
		return "", false
	}
	return code, true
}

// CreateRoom opens a room owned by userID. An empty preferredCode gets a
// generated code; otherwise the normalized preferred code must be valid and free.
func (s *Service) CreateRoom(userID, preferredCode string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, in := s.userRoom[userID]; in {
		return "", matcherrors.ErrAlreadyInRoom
	}
	code := NormalizeCode(preferredCode)
	if code == "" {
		code = s.generateCodeLocked()
	} else if !validCode(code) {
		return "", fmt.Errorf("%q: %w", code, matcherrors.ErrInvalidCode)
	} else if _, taken := s.rooms[code]; taken {
		return "", fmt.Errorf("%q: %w", code, matcherrors.ErrCodeTaken)
	}

	s.rooms[code] = &Room{
		Code:    code,
		players: []string{userID},
		decks:   make(map[string]string),
	}
	s.userRoom[userID] = code
	slog.Info("room created", "tag", "room", "code", code, "user", userID)
	return code, nil
}

// TryJoinRoom is JoinRoom reporting failure as false. isFull is set when
// the room already holds two players.
func (s *Service) TryJoinRoom(userID, code string) (opponentID string, isFull bool, ok bool) {
	opponentID, err := s.JoinRoom(userID, code)
	if err != nil {
		slog.Debug("join room rejected", "tag", "room", "user", userID, "code", code, "err", err)
		return "", errors.Is(err, matcherrors.ErrRoomFull), false
	}
	return opponentID, false, true
}

// JoinRoom adds userID to the room with code and returns the user already
// waiting there.
func (s *Service) JoinRoom(userID, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, in := s.userRoom[userID]; in {
		return "", matcherrors.ErrAlreadyInRoom
	}
	code = NormalizeCode(code)
	r, exists := s.rooms[code]
	if !exists {
		return "", fmt.Errorf("%q: %w", code, matcherrors.ErrRoomNotFound)
	}
	if len(r.players) >= 2 {
		return "", fmt.Errorf("%q: %w", code, matcherrors.ErrRoomFull)
	}
	opponentID := r.players[0]
	r.players = append(r.players, userID)
	s.userRoom[userID] = r.Code
	slog.Info("room joined", "tag", "room", "code", r.Code, "user", userID, "opponent", opponentID)
	return opponentID, nil
}

// Leave removes userID from its room. The room's session, if any, is
// stopped before Leave returns. An emptied room is deleted.
func (s *Service) Leave(userID string) LeaveResult {
	s.mu.Lock()
	code, in := s.userRoom[userID]
	if !in {
		s.mu.Unlock()
		slog.Debug("leave ignored", "tag", "room", "user", userID, "err", matcherrors.ErrNotInRoom)
		return LeaveResult{}
	}
	r := s.rooms[code]
	delete(s.userRoom, userID)

	res := LeaveResult{OK: true, Code: code}
	remaining := r.players[:0]
	for _, p := range r.players {
		if p != userID {
			remaining = append(remaining, p)
		}
	}
	r.players = remaining
	sess := r.session
	r.session = nil
	// A match cannot continue with one seat; whoever stays picks a deck again.
	r.decks = make(map[string]string)

	if len(r.players) == 0 {
		delete(s.rooms, code)
		res.RoomEmpty = true
	} else {
		res.OpponentID = r.players[0]
	}
	s.mu.Unlock()

	if sess != nil {
		sess.Stop()
	}
	slog.Info("room left", "tag", "room", "code", code, "user", userID, "empty", res.RoomEmpty)
	return res
}

// SetPlayerDeck seats userID in its room's session with deckID. The session
// is created by the first deck choice; once both seats are filled the
// caller may start the game. It returns false if the user is not in a
// room or the deck could not be seated.
func (s *Service) SetPlayerDeck(ctx context.Context, userID, deckID string) bool {
	s.mu.Lock()
	code, in := s.userRoom[userID]
	if !in {
		s.mu.Unlock()
		slog.Debug("deck rejected", "tag", "room", "user", userID, "deck", deckID, "err", matcherrors.ErrNotInRoom)
		return false
	}
	r := s.rooms[code]
	seat := -1
	for i, p := range r.players {
		if p == userID {
			seat = i
		}
	}
	if r.session == nil {
		r.session = game.NewSession(code, s.cfg, s.loader, s.listener, s.opts...)
		go r.session.Run(context.Background())
	}
	sess := r.session
	s.mu.Unlock()

	if err := sess.SetPlayer(ctx, seat, userID, deckID); err != nil {
		slog.Warn("deck rejected", "tag", "room", "code", code, "user", userID, "deck", deckID, "err", err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.rooms[code]; !ok || cur.session != sess {
		return false
	}
	r.decks[userID] = deckID
	return true
}

// Ready reports whether both players of the room have a seated deck.
func (s *Service) Ready(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[NormalizeCode(code)]
	return ok && len(r.players) == 2 && len(r.decks) == 2
}

// Session returns the session of the room with code, or nil.
func (s *Service) Session(code string) *game.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[NormalizeCode(code)]; ok {
		return r.session
	}
	return nil
}

// SessionForUser returns the session userID plays in, or nil.
func (s *Service) SessionForUser(userID string) *game.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.userRoom[userID]; ok {
		return s.rooms[code].session
	}
	return nil
}

// RoomOf returns the code of the room userID is in.
func (s *Service) RoomOf(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.userRoom[userID]
	return code, ok
}

// Players returns the user ids in the room, in join order.
func (s *Service) Players(code string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[NormalizeCode(code)]
	if !ok {
		return nil
	}
	return append([]string(nil), r.players...)
}

// Count returns the number of live rooms.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Close stops every running session.
func (s *Service) Close() {
	s.mu.Lock()
	var sessions []*game.Session
	for _, r := range s.rooms {
		if r.session != nil {
			sessions = append(sessions, r.session)
		}
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Stop()
	}
}
