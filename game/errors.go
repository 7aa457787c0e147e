package game

import "errors"

var (
	ErrInvalidSettings    = errors.New("invalid room settings")
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrWrongPassword      = errors.New("wrong room password")
	ErrGameAlreadyStarted = errors.New("game has already started")
	ErrAlreadyAnswered    = errors.New("answer already submitted for this question")
	ErrNotHost            = errors.New("only the host can do that")
	ErrMalformedMessage   = errors.New("malformed message")

	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")
	ErrNotEnoughWords   = errors.New("not enough words for this level")
	ErrWrongPhase       = errors.New("command not allowed in the current phase")
	ErrPlayerNotFound   = errors.New("player not in room")
	ErrInvalidAnswer    = errors.New("answer index out of range")
	ErrAlreadyInRoom    = errors.New("connection already belongs to a room")
	ErrCodeSpace        = errors.New("could not allocate a unique room code")
)

// Code maps an engine error onto the external error taxonomy. Unknown errors
// come back as "Internal".
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSettings):
		return "InvalidSettings"
	case errors.Is(err, ErrRoomNotFound):
		return "RoomNotFound"
	case errors.Is(err, ErrRoomFull):
		return "RoomFull"
	case errors.Is(err, ErrWrongPassword):
		return "WrongPassword"
	case errors.Is(err, ErrGameAlreadyStarted):
		return "GameAlreadyStarted"
	case errors.Is(err, ErrAlreadyAnswered):
		return "AlreadyAnswered"
	case errors.Is(err, ErrNotHost):
		return "NotHost"
	case errors.Is(err, ErrMalformedMessage), errors.Is(err, ErrInvalidAnswer):
		return "MalformedMessage"
	case errors.Is(err, ErrNotEnoughPlayers):
		return "NotEnoughPlayers"
	case errors.Is(err, ErrNotEnoughWords):
		return "NotEnoughWords"
	case errors.Is(err, ErrWrongPhase):
		return "WrongPhase"
	case errors.Is(err, ErrPlayerNotFound):
		return "PlayerNotFound"
	case errors.Is(err, ErrAlreadyInRoom):
		return "AlreadyInRoom"
	default:
		return "Internal"
	}
}
