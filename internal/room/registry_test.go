package room

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltround/holdem/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mem.PutUser(store.User{ID: 1, Username: "a", Balance: 1000})
	mem.PutRoom(store.Room{ID: 1, Name: "test", OwnerID: 1, SmallBlind: 10, BigBlind: 20})

	logger := log.New(io.Discard)
	reg := NewRegistry(RegistryConfig{
		Store:       mem,
		Writer:      store.NewWriter(logger),
		Clock:       quartz.NewMock(t),
		Logger:      logger,
		TurnTimeout: 30 * time.Second,
		Seed:        1,
	})
	return reg, mem
}

func TestRegistryReusesLiveRooms(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	r1, err := reg.Get(ctx, 1)
	require.NoError(t, err)
	r2, err := reg.Get(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, r1, r2)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryRejectsUnknownRoom(t *testing.T) {
	reg, _ := newTestRegistry(t)
	_, err := reg.Get(context.Background(), 42)
	assert.Error(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryRemovesEmptyRooms(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	r, err := reg.Get(ctx, 1)
	require.NoError(t, err)

	c := newFakeClient(1, "a")
	require.NoError(t, r.Join(ctx, c))
	r.Leave(1)

	assert.Eventually(t, func() bool { return reg.Len() == 0 },
		5*time.Second, 10*time.Millisecond)

	// The next lookup starts a fresh actor
	r2, err := reg.Get(ctx, 1)
	require.NoError(t, err)
	assert.NotSame(t, r, r2)
}
