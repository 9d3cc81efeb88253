package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"card-duel-server/matcherrors"
	"card-duel-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Upper bound for catalog lookups made on behalf of a client.
	catalogTimeout = 5 * time.Second
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	ConnID string

	// Set by the hello handshake; only the read goroutine touches these.
	UserID string
	Name   string
}

// ReadPump pumps messages from the websocket connection to the hub.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.disconnect()
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "tag", "ws", "conn", c.ConnID, "err", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
// It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// disconnect leaves the queue and, unless a newer connection of the same
// user has taken over, the room.
func (c *Client) disconnect() {
	c.Hub.Matchmaker.LeaveOrDisconnect(c.ConnID)
	if c.UserID == "" || !c.Hub.releaseUser(c) {
		return
	}
	c.leaveRoom(false)
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("Invalid message format.")
		return
	}

	if envelope.Type == "hello" {
		c.handleHello(envelope.Raw)
		return
	}
	if c.UserID == "" {
		c.sendError("Say hello first.")
		return
	}

	switch envelope.Type {
	case "list_decks":
		c.handleListDecks()
	case "queue":
		c.handleQueue(envelope.Raw)
	case "leave_queue":
		c.Hub.Matchmaker.LeaveOrDisconnect(c.ConnID)
	case "create_room":
		c.handleCreateRoom(envelope.Raw)
	case "join_room":
		c.handleJoinRoom(envelope.Raw)
	case "set_deck":
		c.handleSetDeck(envelope.Raw)
	case "leave_room":
		c.leaveRoom(true)
	case "play_card":
		c.handlePlayCard(envelope.Raw)
	case "declare_attack":
		c.handleDeclareAttack(envelope.Raw)
	case "declare_defense":
		c.handleDeclareDefense(envelope.Raw)
	case "change_phase":
		c.handleChangePhase()
	case "snapshot":
		c.handleSnapshot()
	default:
		c.sendError("Unknown message type: " + envelope.Type)
	}
}

func (c *Client) handleHello(raw json.RawMessage) {
	if c.UserID != "" {
		c.sendError("Already identified.")
		return
	}
	var msg HelloMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid hello message.")
		return
	}

	if c.Hub.auth != nil {
		userID, name, err := c.Hub.auth.Validate(msg.Token)
		if err != nil {
			slog.Info("auth rejected", "tag", "ws", "conn", c.ConnID, "err", err)
			c.sendError("Authentication failed.")
			return
		}
		c.UserID, c.Name = userID, name
	} else {
		c.UserID, c.Name = msg.UserID, msg.Name
		if c.UserID == "" {
			c.UserID = "guest-" + uuid.NewString()
		}
		if c.Name == "" {
			c.Name = "Player"
		}
	}

	if prev := c.Hub.bindUser(c); prev != nil {
		slog.Info("connection replaced", "tag", "ws", "user", c.UserID, "old", prev.ConnID, "new", c.ConnID)
	}
	c.send(WelcomeMsg{Type: "welcome", ConnID: c.ConnID, UserID: c.UserID, Name: c.Name})

	if sess := c.Hub.Rooms.SessionForUser(c.UserID); sess != nil {
		if v := sess.Snapshot(c.UserID); v != nil {
			c.send(SnapshotMsg{Type: "snapshot", SnapshotView: v})
		}
	}
}

func (c *Client) handleListDecks() {
	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()
	decks, err := c.Hub.Catalog.ListDecks(ctx, c.UserID)
	if err != nil {
		slog.Warn("list decks failed", "tag", "ws", "user", c.UserID, "err", err)
		c.sendError("Could not load decks.")
		return
	}
	c.send(DeckListMsg{Type: "deck_list", Decks: decks})
}

func (c *Client) handleQueue(raw json.RawMessage) {
	var msg QueueMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.DeckID == "" {
		c.sendError("Invalid queue message.")
		return
	}
	if _, in := c.Hub.Rooms.RoomOf(c.UserID); in {
		c.sendError("Leave your room before queueing.")
		return
	}

	p := c.Hub.Matchmaker.Enqueue(c.ConnID, c.UserID, msg.DeckID)
	if !p.Matched {
		c.send(WaitingForMatchMsg{Type: "waiting_for_match"})
		return
	}

	rooms := c.Hub.Rooms
	code, err := rooms.CreateRoom(p.OpponentUserID, p.RoomCode)
	if errors.Is(err, matcherrors.ErrCodeTaken) {
		// The code was claimed by a private room after pairing.
		code, err = rooms.CreateRoom(p.OpponentUserID, "")
	}
	if err == nil {
		if _, err = rooms.JoinRoom(c.UserID, code); err != nil {
			rooms.Leave(p.OpponentUserID)
		}
	}
	if err != nil {
		slog.Warn("matched players could not share a room", "tag", "ws", "room", p.RoomCode, "player0", p.OpponentUserID, "player1", c.UserID, "err", err)
		c.Hub.Matchmaker.LeaveOrDisconnect(c.ConnID)
		c.sendError("Match could not be created.")
		c.Hub.sendToUser(p.OpponentUserID, ErrorMsg{Type: "error", Message: "Match could not be created."})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()
	if !rooms.SetPlayerDeck(ctx, p.OpponentUserID, p.OpponentDeckID) || !rooms.SetPlayerDeck(ctx, c.UserID, msg.DeckID) {
		c.Hub.Matchmaker.LeaveOrDisconnect(c.ConnID)
		rooms.Leave(c.UserID)
		rooms.Leave(p.OpponentUserID)
		c.sendError("Match could not be created: invalid deck.")
		c.Hub.sendToUser(p.OpponentUserID, ErrorMsg{Type: "error", Message: "Match could not be created: invalid deck."})
		return
	}

	c.Hub.sendToUser(p.OpponentUserID, MatchFoundMsg{Type: "match_found", RoomCode: code, OpponentUserID: c.UserID, YourTurn: true})
	c.send(MatchFoundMsg{Type: "match_found", RoomCode: code, OpponentUserID: p.OpponentUserID})
	if sess := rooms.Session(code); sess != nil {
		sess.StartGame()
	}
}

func (c *Client) handleCreateRoom(raw json.RawMessage) {
	var msg CreateRoomMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid create_room message.")
		return
	}
	code, err := c.Hub.Rooms.CreateRoom(c.UserID, msg.Code)
	switch {
	case errors.Is(err, matcherrors.ErrAlreadyInRoom):
		c.sendError("You are already in a room.")
		return
	case errors.Is(err, matcherrors.ErrCodeTaken):
		c.sendError("Room code is already taken.")
		return
	case err != nil:
		c.sendError("Room could not be created.")
		return
	}
	c.send(RoomMsg{Type: "room_created", Code: code, UserID: c.UserID})
}

func (c *Client) handleJoinRoom(raw json.RawMessage) {
	var msg JoinRoomMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid join_room message.")
		return
	}
	opponentID, err := c.Hub.Rooms.JoinRoom(c.UserID, msg.Code)
	switch {
	case errors.Is(err, matcherrors.ErrRoomFull):
		c.sendError("Room is full.")
		return
	case errors.Is(err, matcherrors.ErrRoomNotFound):
		c.sendError("Room not found.")
		return
	case err != nil:
		c.sendError("Room could not be joined.")
		return
	}
	code, _ := c.Hub.Rooms.RoomOf(c.UserID)
	c.send(RoomMsg{Type: "room_joined", Code: code, UserID: opponentID})
	c.Hub.sendToUser(opponentID, RoomMsg{Type: "opponent_joined", Code: code, UserID: c.UserID})
}

func (c *Client) handleSetDeck(raw json.RawMessage) {
	var msg SetDeckMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.DeckID == "" {
		c.sendError("Invalid set_deck message.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	rooms := c.Hub.Rooms
	if !rooms.SetPlayerDeck(ctx, c.UserID, msg.DeckID) {
		c.sendError("Deck could not be set.")
		return
	}
	code, _ := rooms.RoomOf(c.UserID)
	ready := rooms.Ready(code)
	c.send(DeckSetMsg{Type: "deck_set", DeckID: msg.DeckID, Ready: ready})
	if ready {
		if sess := rooms.Session(code); sess != nil {
			sess.StartGame()
		}
	}
}

// leaveRoom removes the user from its room and tells the opponent.
func (c *Client) leaveRoom(reply bool) {
	c.Hub.Matchmaker.LeaveOrDisconnect(c.ConnID)
	res := c.Hub.Rooms.Leave(c.UserID)
	if !res.OK {
		if reply {
			c.sendError("You are not in a room.")
		}
		return
	}
	if reply {
		c.send(RoomMsg{Type: "room_left", Code: res.Code, UserID: c.UserID})
	}
	if res.OpponentID != "" {
		c.Hub.sendToUser(res.OpponentID, RoomMsg{Type: "opponent_left", Code: res.Code, UserID: c.UserID})
	}
}

func (c *Client) handlePlayCard(raw json.RawMessage) {
	sess := c.Hub.Rooms.SessionForUser(c.UserID)
	if sess == nil {
		c.sendError("You are not in a game.")
		return
	}
	var msg PlayCardMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid play_card message.")
		return
	}
	if res, _ := sess.PlayCard(c.UserID, msg.InstanceID, msg.Slot); res == nil {
		c.sendError("Card cannot be played.")
	}
}

func (c *Client) handleDeclareAttack(raw json.RawMessage) {
	sess := c.Hub.Rooms.SessionForUser(c.UserID)
	if sess == nil {
		c.sendError("You are not in a game.")
		return
	}
	var msg DeclareAttackMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid declare_attack message.")
		return
	}
	if sess.HandleAttackEvent(c.UserID, msg.InstanceID) == nil {
		c.sendError("Card cannot attack.")
	}
}

func (c *Client) handleDeclareDefense(raw json.RawMessage) {
	sess := c.Hub.Rooms.SessionForUser(c.UserID)
	if sess == nil {
		c.sendError("You are not in a game.")
		return
	}
	var msg DeclareDefenseMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid declare_defense message.")
		return
	}
	if sess.HandleDefenseEvent(c.UserID, msg.DefenderID, msg.AttackerID) == nil {
		c.sendError("Card cannot defend.")
	}
}

func (c *Client) handleChangePhase() {
	sess := c.Hub.Rooms.SessionForUser(c.UserID)
	if sess == nil {
		c.sendError("You are not in a game.")
		return
	}
	if sess.ChangePhase(c.UserID) == nil {
		c.sendError("It is not your turn.")
	}
}

func (c *Client) handleSnapshot() {
	sess := c.Hub.Rooms.SessionForUser(c.UserID)
	if sess == nil {
		c.sendError("You are not in a game.")
		return
	}
	if v := sess.Snapshot(c.UserID); v != nil {
		c.send(SnapshotMsg{Type: "snapshot", SnapshotView: v})
	}
}

func (c *Client) send(msg any) {
	wsutil.SendJSON(c.Send, msg)
}

func (c *Client) sendError(message string) {
	c.send(ErrorMsg{Type: "error", Message: message})
}
