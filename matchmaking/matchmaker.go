package matchmaking

import (
	"log/slog"
	"sync"
)

// Pairing is the result of Enqueue. When Matched is false the caller is
// waiting in the queue and the other fields are empty.
type Pairing struct {
	Matched        bool
	RoomCode       string
	OpponentConnID string
	OpponentUserID string
	OpponentDeckID string
}

type ticket struct {
	connID string
	userID string
	deckID string
}

type match struct {
	opponentConnID string
	roomCode       string
}

// Matchmaker pairs waiting connections first-in first-out.
type Matchmaker struct {
	mu      sync.Mutex
	waiting []ticket
	matches map[string]match
	newCode func() string
}

// NewMatchmaker creates a Matchmaker that names each pairing with newCode.
func NewMatchmaker(newCode func() string) *Matchmaker {
	return &Matchmaker{
		matches: make(map[string]match),
		newCode: newCode,
	}
}

// Enqueue adds a connection to the queue. If an earlier connection from a
// different user is waiting, both are paired and the earlier one's
// identifiers are returned.
func (m *Matchmaker) Enqueue(connID, userID, deckID string) Pairing {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.matches[connID]; ok {
		return Pairing{}
	}
	for _, t := range m.waiting {
		if t.connID == connID {
			return Pairing{}
		}
	}

	for i, t := range m.waiting {
		if t.userID == userID {
			continue
		}
		m.waiting = append(m.waiting[:i], m.waiting[i+1:]...)
		code := m.newCode()
		m.matches[t.connID] = match{opponentConnID: connID, roomCode: code}
		m.matches[connID] = match{opponentConnID: t.connID, roomCode: code}
		slog.Info("match found", "tag", "matchmaking", "room", code, "player0", t.userID, "player1", userID)
		return Pairing{
			Matched:        true,
			RoomCode:       code,
			OpponentConnID: t.connID,
			OpponentUserID: t.userID,
			OpponentDeckID: t.deckID,
		}
	}

	m.waiting = append(m.waiting, ticket{connID: connID, userID: userID, deckID: deckID})
	slog.Debug("queued", "tag", "matchmaking", "conn", connID, "user", userID, "waiting", len(m.waiting))
	return Pairing{}
}

// Opponent returns the paired connection and room code for connID.
func (m *Matchmaker) Opponent(connID string) (opponentConnID, roomCode string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[connID]
	return mt.opponentConnID, mt.roomCode, ok
}

// RoomID returns the room code connID was paired into.
func (m *Matchmaker) RoomID(connID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[connID]
	return mt.roomCode, ok
}

// LeaveOrDisconnect forgets connID: it leaves the queue if still waiting,
// and both sides of its pairing are dropped.
func (m *Matchmaker) LeaveOrDisconnect(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.waiting {
		if t.connID == connID {
			m.waiting = append(m.waiting[:i], m.waiting[i+1:]...)
			break
		}
	}
	if mt, ok := m.matches[connID]; ok {
		delete(m.matches, mt.opponentConnID)
		delete(m.matches, connID)
		slog.Debug("pairing removed", "tag", "matchmaking", "conn", connID, "room", mt.roomCode)
	}
}

// Waiting returns the number of queued connections.
func (m *Matchmaker) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting)
}
