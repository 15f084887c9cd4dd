// Package store is the room server's narrow view of persistent state:
// users, rooms, room membership, balances and hand snapshots. Everything a
// room actor needs to read happens at well-defined points (connect, hand
// start); writes go through the async Writer so they never block a room.
package store

import "context"

// User is a registered account.
type User struct {
	ID       int64
	Username string
	Balance  int
}

// Room is a playable room record. OwnerID is the only user allowed to start
// a hand.
type Room struct {
	ID         int64
	Name       string
	OwnerID    int64
	SmallBlind int
	BigBlind   int
	Active     bool
}

// Member is a user seated in a room.
type Member struct {
	UserID   int64
	Username string
	Balance  int
	Seat     int
}

// Store provides persistence for rooms, users and hand outcomes.
type Store interface {
	// User returns the user with the given ID.
	User(ctx context.Context, id int64) (*User, error)
	// Room returns the room with the given ID.
	Room(ctx context.Context, id int64) (*Room, error)
	// RoomMembers returns a room's roster ordered by seat.
	RoomMembers(ctx context.Context, roomID int64) ([]Member, error)
	// AddMember seats a user in a room. Seating an existing member is a
	// no-op.
	AddMember(ctx context.Context, roomID, userID int64, seat int) error
	// RemoveMember takes a user out of a room's roster.
	RemoveMember(ctx context.Context, roomID, userID int64) error
	// SetRoomActive flips the in-progress flag on a room.
	SetRoomActive(ctx context.Context, roomID int64, active bool) error
	// CreditBalance applies a balance delta for a user, keyed by hand ID.
	// Re-applying the same (handID, userID) pair is a no-op, so the call is
	// safe to retry after a transient failure.
	CreditBalance(ctx context.Context, handID string, userID int64, amount int) error
	// SaveSnapshot persists the latest state snapshot for a room.
	SaveSnapshot(ctx context.Context, roomID int64, snapshot []byte) error
	// Close releases the underlying resources.
	Close() error
}
