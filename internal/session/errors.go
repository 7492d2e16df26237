package session

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrCodeSpaceExhausted = errors.New("no room codes available")
)

// RoomError describes a rejected room operation.
type RoomError struct {
	Op   string
	Code string
	Err  error
}

func (e *RoomError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RoomError) Unwrap() error {
	return e.Err
}

func newRoomError(op, code string, err error) *RoomError {
	return &RoomError{Op: op, Code: code, Err: err}
}
