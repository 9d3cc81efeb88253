package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"card-duel-server/room"
	"card-duel-server/storage"
)

const bearerPrefix = "Bearer "

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	Validate(token string) (userID, name string, err error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	Catalog storage.Catalog
	Rooms   *room.Service
	Auth    TokenValidator
}

// NewHandler creates a new API handler. A nil validator lists only shared decks.
func NewHandler(catalog storage.Catalog, rooms *room.Service, validator TokenValidator) *Handler {
	return &Handler{Catalog: catalog, Rooms: rooms, Auth: validator}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/decks", h.Decks)
	mux.HandleFunc("/api/rooms/", h.RoomStatus)
}

// CORS sets CORS headers on the response. Call before writing body.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// extractUserID validates the Authorization header and returns the user ID, or empty string on failure.
func (h *Handler) extractUserID(r *http.Request) string {
	if h.Auth == nil {
		return ""
	}
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	userID, _, err := h.Auth.Validate(strings.TrimSpace(authHeader[len(bearerPrefix):]))
	if err != nil {
		return ""
	}
	return userID
}

// Decks lists the decks visible to the caller: shared decks plus, when a
// valid token is sent, the caller's own.
func (h *Handler) Decks(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	decks, err := h.Catalog.ListDecks(r.Context(), h.extractUserID(r))
	if err != nil {
		slog.Error("list decks failed", "tag", "api", "err", err)
		http.Error(w, "failed to load decks", http.StatusInternalServerError)
		return
	}
	if decks == nil {
		decks = []storage.DeckSummary{}
	}
	writeJSON(w, decks)
}

// RoomStatusResponse is the JSON structure for /api/rooms/{code}.
type RoomStatusResponse struct {
	Code           string   `json:"code"`
	Players        []string `json:"players"`
	Started        bool     `json:"started"`
	Phase          string   `json:"phase,omitempty"`
	ActivePlayerID string   `json:"activePlayerId,omitempty"`
	TurnNumber     int      `json:"turnNumber,omitempty"`
	Finished       bool     `json:"finished"`
}

// RoomStatus reports who is in a room and how far its match has progressed.
func (h *Handler) RoomStatus(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := room.NormalizeCode(strings.TrimPrefix(r.URL.Path, "/api/rooms/"))
	players := h.Rooms.Players(code)
	if players == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	resp := RoomStatusResponse{Code: code, Players: players}
	if sess := h.Rooms.Session(code); sess != nil && sess.Initialized() {
		resp.Started = true
		resp.Phase = sess.Phase().String()
		resp.ActivePlayerID = sess.ActivePlayerID()
		resp.TurnNumber = sess.TurnNumber()
		resp.Finished = sess.Finished()
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "tag", "api", "err", err)
	}
}
