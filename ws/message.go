package ws

import (
	"encoding/json"

	"card-duel-server/game"
	"card-duel-server/storage"
)

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Client-to-Server message payloads ---

// HelloMsg must be the first message on a connection. Token is a Neon Auth
// JWT; UserID is only honoured when the server runs without auth.
type HelloMsg struct {
	Type   string `json:"type"`
	Token  string `json:"token,omitempty"`
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
}

// QueueMsg enters matchmaking with the chosen deck.
type QueueMsg struct {
	Type   string `json:"type"`
	DeckID string `json:"deckId"`
}

// CreateRoomMsg opens a private room; Code is optional.
type CreateRoomMsg struct {
	Type string `json:"type"`
	Code string `json:"code,omitempty"`
}

// JoinRoomMsg joins a private room by code.
type JoinRoomMsg struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// SetDeckMsg picks the deck for the current room.
type SetDeckMsg struct {
	Type   string `json:"type"`
	DeckID string `json:"deckId"`
}

// PlayCardMsg places a card from hand onto a board slot.
type PlayCardMsg struct {
	Type       string `json:"type"`
	InstanceID int    `json:"instanceId"`
	Slot       int    `json:"slot"`
}

// DeclareAttackMsg toggles a card as attacker.
type DeclareAttackMsg struct {
	Type       string `json:"type"`
	InstanceID int    `json:"instanceId"`
}

// DeclareDefenseMsg assigns, moves or withdraws a blocker.
type DeclareDefenseMsg struct {
	Type       string `json:"type"`
	DefenderID int    `json:"defenderId"`
	AttackerID int    `json:"attackerId"`
}

// --- Server-to-Client messages ---

// ErrorMsg is sent when a client action is invalid.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WelcomeMsg confirms the hello handshake.
type WelcomeMsg struct {
	Type   string `json:"type"`
	ConnID string `json:"connId"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// WaitingForMatchMsg confirms the player is in the matchmaking queue.
type WaitingForMatchMsg struct {
	Type string `json:"type"`
}

// MatchFoundMsg is sent to both players when matchmaking pairs them.
type MatchFoundMsg struct {
	Type           string `json:"type"`
	RoomCode       string `json:"roomCode"`
	OpponentUserID string `json:"opponentUserId"`
	YourTurn       bool   `json:"yourTurn"`
}

// RoomMsg covers room_created, room_joined, room_left, opponent_joined and opponent_left.
type RoomMsg struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	UserID string `json:"userId,omitempty"`
}

// DeckSetMsg confirms a deck choice. Ready is true once both players chose.
type DeckSetMsg struct {
	Type   string `json:"type"`
	DeckID string `json:"deckId"`
	Ready  bool   `json:"ready"`
}

// DeckListMsg answers list_decks.
type DeckListMsg struct {
	Type  string                `json:"type"`
	Decks []storage.DeckSummary `json:"decks"`
}

// DrawCardsMsg carries the drawing player's view.
type DrawCardsMsg struct {
	Type string `json:"type"`
	game.DrawCardsPlayerView
}

// OpponentDrawCardsMsg carries counts only.
type OpponentDrawCardsMsg struct {
	Type string `json:"type"`
	game.DrawCardsOpponentView
}

// CardPlayedMsg is sent to the player who placed a card.
type CardPlayedMsg struct {
	Type string `json:"type"`
	*game.PlayCardResult
}

// OpponentCardPlayedMsg is sent to the other player.
type OpponentCardPlayedMsg struct {
	Type string `json:"type"`
	*game.OpponentPlayCardResult
}

// AttackDeclaredMsg lists the current attackers.
type AttackDeclaredMsg struct {
	Type string `json:"type"`
	*game.AttackResponse
}

// DefenseDeclaredMsg lists the current blocks.
type DefenseDeclaredMsg struct {
	Type string `json:"type"`
	*game.DefenseResponse
}

// BattleResolvedMsg reports combat resolution.
type BattleResolvedMsg struct {
	Type             string              `json:"type"`
	AttackerPlayerID string              `json:"attackerPlayerId"`
	DefenderPlayerID string              `json:"defenderPlayerId"`
	Battles          []game.BattleResult `json:"battles"`
}

// PhaseChangedMsg reports a phase transition.
type PhaseChangedMsg struct {
	Type string `json:"type"`
	*game.PhaseChangeResult
}

// GameOverMsg reports the end of a match.
type GameOverMsg struct {
	Type string `json:"type"`
	*game.GameOverResult
}

// SnapshotMsg carries the full visible state, sent on request and on reconnect.
type SnapshotMsg struct {
	Type string `json:"type"`
	*game.SnapshotView
}
