package room

import "errors"

var (
	// ErrRoomClosed is returned when posting to a room whose goroutine has
	// already exited.
	ErrRoomClosed = errors.New("room is closed")
	// ErrAlreadyConnected is returned when a user opens a second session
	// into the same room.
	ErrAlreadyConnected = errors.New("user already connected to this room")
)
