package signaling

import (
	"errors"

	"github.com/venudhannoju-glitch/ChitChat/internal/session"
)

// ErrInvalidCode rejects a join whose code is not four digits in 1000-9999.
var ErrInvalidCode = errors.New("invalid room code")

// errorText is the message shown to the requesting user for err.
func errorText(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return "Please enter a valid 4-digit code."
	case errors.Is(err, session.ErrRoomNotFound):
		return "Room does not exist. Create a new one!"
	case errors.Is(err, session.ErrRoomFull):
		return "Room is currently full."
	case errors.Is(err, session.ErrCodeSpaceExhausted):
		return "No rooms are available right now. Try again shortly."
	default:
		return "Something went wrong."
	}
}
