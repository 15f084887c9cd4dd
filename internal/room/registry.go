package room

import (
	"context"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/feltround/holdem/internal/randutil"
	"github.com/feltround/holdem/internal/store"
)

// Registry owns the live room actors. Rooms are created on the first
// connection into them and torn down when the last session leaves.
type Registry struct {
	store       store.Store
	writer      *store.Writer
	clock       quartz.Clock
	logger      *log.Logger
	turnTimeout time.Duration
	seed        int64

	mu    sync.Mutex
	rooms map[int64]*Room
}

// RegistryConfig carries the collaborators shared by every room.
type RegistryConfig struct {
	Store       store.Store
	Writer      *store.Writer
	Clock       quartz.Clock
	Logger      *log.Logger
	TurnTimeout time.Duration
	// Seed derives each room's shuffle RNG. Zero seeds from the wall
	// clock.
	Seed int64
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Registry{
		store:       cfg.Store,
		writer:      cfg.Writer,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		turnTimeout: cfg.TurnTimeout,
		seed:        seed,
		rooms:       make(map[int64]*Room),
	}
}

// Get returns the live actor for a room, starting one if needed. The room
// must exist in the store.
func (g *Registry) Get(ctx context.Context, roomID int64) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.rooms[roomID]; ok {
		return r, nil
	}

	info, err := g.store.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}

	r := New(*info, Config{
		Store:       g.store,
		Writer:      g.writer,
		Clock:       g.clock,
		Logger:      g.logger,
		Rand:        g.roomRand(roomID),
		TurnTimeout: g.turnTimeout,
		OnEmpty:     g.remove,
	})
	g.rooms[roomID] = r
	g.logger.Info("room started", "roomId", roomID, "name", info.Name)
	return r, nil
}

// roomRand derives a per-room RNG so concurrent rooms never contend on one
// rand source.
func (g *Registry) roomRand(roomID int64) *rand.Rand {
	return randutil.New(g.seed ^ roomID)
}

// remove runs from a room goroutine as it shuts down.
func (g *Registry) remove(roomID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, roomID)
}

// Len returns the number of live rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}
