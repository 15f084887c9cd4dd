package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-memory Store used by tests and by the server when run
// without a database path.
type Memory struct {
	mu        sync.Mutex
	users     map[int64]*User
	rooms     map[int64]*Room
	members   map[int64]map[int64]int // roomID -> userID -> seat
	credits   map[string]int          // handID/userID -> amount
	snapshots map[int64][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:     make(map[int64]*User),
		rooms:     make(map[int64]*Room),
		members:   make(map[int64]map[int64]int),
		credits:   make(map[string]int),
		snapshots: make(map[int64][]byte),
	}
}

// PutUser inserts or replaces a user record.
func (m *Memory) PutUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = &u
}

// PutRoom inserts or replaces a room record.
func (m *Memory) PutRoom(r Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID] = &r
}

func (m *Memory) User(ctx context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d not found", id)
	}
	copied := *u
	return &copied, nil
}

func (m *Memory) Room(ctx context.Context, id int64) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %d not found", id)
	}
	copied := *r
	return &copied, nil
}

func (m *Memory) RoomMembers(ctx context.Context, roomID int64) ([]Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var members []Member
	for userID, seat := range m.members[roomID] {
		u := m.users[userID]
		if u == nil {
			continue
		}
		members = append(members, Member{
			UserID:   userID,
			Username: u.Username,
			Balance:  u.Balance,
			Seat:     seat,
		})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Seat < members[j].Seat })
	return members, nil
}

func (m *Memory) AddMember(ctx context.Context, roomID, userID int64, seat int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[roomID] == nil {
		m.members[roomID] = make(map[int64]int)
	}
	if _, ok := m.members[roomID][userID]; !ok {
		m.members[roomID][userID] = seat
	}
	return nil
}

func (m *Memory) RemoveMember(ctx context.Context, roomID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[roomID], userID)
	return nil
}

func (m *Memory) SetRoomActive(ctx context.Context, roomID int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[roomID]; ok {
		r.Active = active
	}
	return nil
}

func (m *Memory) CreditBalance(ctx context.Context, handID string, userID int64, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s/%d", handID, userID)
	if _, ok := m.credits[key]; ok {
		return nil
	}
	m.credits[key] = amount
	if u, ok := m.users[userID]; ok {
		u.Balance += amount
	}
	return nil
}

func (m *Memory) SaveSnapshot(ctx context.Context, roomID int64, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[roomID] = append([]byte(nil), snapshot...)
	return nil
}

// Snapshot returns the last saved snapshot for a room, for tests.
func (m *Memory) Snapshot(roomID int64) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[roomID]
}

func (m *Memory) Close() error { return nil }
