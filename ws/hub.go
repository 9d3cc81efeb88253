package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"card-duel-server/config"
	"card-duel-server/game"
	"card-duel-server/matchmaking"
	"card-duel-server/room"
	"card-duel-server/storage"
	"card-duel-server/wsutil"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TokenValidator resolves a client token to a user. *auth.Validator implements it.
type TokenValidator interface {
	Validate(token string) (userID, name string, err error)
}

// Hub maintains the set of active clients, owns the room registry and the
// matchmaker, and delivers session events to the players' connections.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	Rooms      *room.Service
	Matchmaker *matchmaking.Matchmaker
	Catalog    storage.Catalog
	Config     *config.Config

	auth TokenValidator

	mu      sync.RWMutex
	clients map[string]*Client
	byUser  map[string]*Client

	done chan struct{}
}

// NewHub creates a Hub. A nil validator accepts self-declared user ids.
func NewHub(cfg *config.Config, catalog storage.Catalog, validator TokenValidator, opts ...game.Option) *Hub {
	h := &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Catalog:    catalog,
		Config:     cfg,
		auth:       validator,
		clients:    make(map[string]*Client),
		byUser:     make(map[string]*Client),
		done:       make(chan struct{}),
	}
	h.Rooms = room.NewService(cfg, catalog, h, opts...)
	h.Matchmaker = matchmaking.NewMatchmaker(h.Rooms.GenerateCode)
	return h
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled (e.g. on server shutdown), Run stops every session and returns.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.Rooms.Close()
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "ws")
			return
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client.ConnID] = client
			n := len(h.clients)
			h.mu.Unlock()
			slog.Info("client connected", "tag", "ws", "conn", client.ConnID, "total", n)

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ConnID]; ok {
				delete(h.clients, client.ConnID)
				close(client.Send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			slog.Info("client disconnected", "tag", "ws", "conn", client.ConnID, "total", n)
		}
	}
}

// ServeWS handles WebSocket upgrade requests and creates a new Client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "tag", "ws", "err", err)
		return
	}

	client := &Client{
		Hub:    h,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		ConnID: uuid.NewString(),
	}

	select {
	case h.Register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// bindUser makes c the current connection of its user. It returns the
// connection it replaced, if any.
func (h *Hub) bindUser(c *Client) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.byUser[c.UserID]
	h.byUser[c.UserID] = c
	if prev == c {
		return nil
	}
	return prev
}

// releaseUser drops c as its user's connection. It reports false when a
// newer connection has taken over.
func (h *Hub) releaseUser(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byUser[c.UserID] != c {
		return false
	}
	delete(h.byUser, c.UserID)
	return true
}

func (h *Hub) sendToUser(userID string, msg any) {
	if userID == "" {
		return
	}
	h.mu.RLock()
	c := h.byUser[userID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	wsutil.SendJSON(c.Send, msg)
}

func (h *Hub) opponentOf(userID string) string {
	code, ok := h.Rooms.RoomOf(userID)
	if !ok {
		return ""
	}
	for _, p := range h.Rooms.Players(code) {
		if p != userID {
			return p
		}
	}
	return ""
}

// --- game.Listener ---

func (h *Hub) SendDrawCardsData(r *game.DrawCardsResult) {
	h.sendToUser(r.Player.PlayerID, DrawCardsMsg{Type: "draw_cards", DrawCardsPlayerView: r.Player})
	h.sendToUser(h.opponentOf(r.Player.PlayerID), OpponentDrawCardsMsg{Type: "opponent_draw_cards", DrawCardsOpponentView: r.Opponent})
}

func (h *Hub) SendPlayCardData(p *game.PlayCardResult, o *game.OpponentPlayCardResult) {
	h.sendToUser(p.PlayerID, CardPlayedMsg{Type: "card_played", PlayCardResult: p})
	h.sendToUser(h.opponentOf(p.PlayerID), OpponentCardPlayedMsg{Type: "opponent_card_played", OpponentPlayCardResult: o})
}

func (h *Hub) SendAttackEngageData(r *game.AttackResponse) {
	msg := AttackDeclaredMsg{Type: "attack_declared", AttackResponse: r}
	h.sendToUser(r.PlayerID, msg)
	h.sendToUser(r.OpponentID, msg)
}

func (h *Hub) SendDefenseEngageData(r *game.DefenseResponse) {
	msg := DefenseDeclaredMsg{Type: "defense_declared", DefenseResponse: r}
	h.sendToUser(r.PlayerID, msg)
	h.sendToUser(r.OpponentID, msg)
}

func (h *Hub) SendBattleResolveData(battles []game.BattleResult, attackerPlayerID, defenderPlayerID string) {
	msg := BattleResolvedMsg{
		Type:             "battle_resolved",
		AttackerPlayerID: attackerPlayerID,
		DefenderPlayerID: defenderPlayerID,
		Battles:          battles,
	}
	h.sendToUser(attackerPlayerID, msg)
	h.sendToUser(defenderPlayerID, msg)
}

func (h *Hub) SendPhaseChangeData(r *game.PhaseChangeResult) {
	msg := PhaseChangedMsg{Type: "phase_changed", PhaseChangeResult: r}
	h.sendToUser(r.ActivePlayerID, msg)
	h.sendToUser(h.opponentOf(r.ActivePlayerID), msg)
}

func (h *Hub) SendGameOverData(r *game.GameOverResult) {
	msg := GameOverMsg{Type: "game_over", GameOverResult: r}
	for _, id := range r.PlayerIDs {
		h.sendToUser(id, msg)
	}
}

var _ game.Listener = (*Hub)(nil)
