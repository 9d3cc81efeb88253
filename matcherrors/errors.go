package matcherrors

import "errors"

// Sentinel errors shared by the game, room, storage and ws packages.
var (
	ErrSessionStopped  = errors.New("session stopped")
	ErrGameStarted     = errors.New("game already started")
	ErrInvalidSeat     = errors.New("invalid seat")
	ErrDeckNotFound    = errors.New("deck not found")
	ErrInvalidDeckSize = errors.New("invalid deck size")
	ErrNotInRoom       = errors.New("user is not in a room")
	ErrAlreadyInRoom   = errors.New("user is already in a room")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrCodeTaken       = errors.New("room code already taken")
	ErrInvalidCode     = errors.New("invalid room code")
)
