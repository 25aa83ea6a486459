package sqlite

import (
	"context"
	"testing"

	"github.com/appetiteclub/tableside/services/guest/internal/guest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedRepo(t *testing.T) *StateRepo {
	t.Helper()
	repo := NewInMemoryStateRepo()
	require.NoError(t, repo.Start(context.Background()))
	t.Cleanup(func() { _ = repo.Stop(context.Background()) })
	return repo
}

func TestStateRepoRoundTrip(t *testing.T) {
	repo := startedRepo(t)
	ctx := context.Background()

	state := &guest.State{
		TerminalID: "terminal-1",
		Session:    guest.Session{TableID: "5", SessionID: "s1", TableNumber: "5"},
		Cart:       []guest.CartItem{{ID: 1, Name: "Pizza", UnitPrice: 8, Quantity: 2}},
		Orders: []guest.LocalOrder{{
			ID:        "lo-1",
			TableID:   "5",
			SessionID: "s1",
			Round:     1,
			Items:     []guest.LocalOrderItem{{MenuItemID: 3, Name: "Water", Quantity: 1, UnitPrice: 2, TotalPrice: 2}},
			Subtotal:  2,
			Status:    "failed",
			Attempts:  1,
			LastError: "Server not reachable",
		}},
		LastRound: 1,
	}
	require.NoError(t, repo.Save(ctx, state))

	loaded, err := repo.Load(ctx, "terminal-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, state.Session, loaded.Session)
	assert.Equal(t, state.Cart, loaded.Cart)
	require.Len(t, loaded.Orders, 1)
	assert.Equal(t, state.Orders[0].Items, loaded.Orders[0].Items)
	assert.Equal(t, "failed", loaded.Orders[0].Status)
	assert.Equal(t, 1, loaded.LastRound)
}

func TestStateRepoSaveOverwrites(t *testing.T) {
	repo := startedRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &guest.State{TerminalID: "terminal-1", Cart: []guest.CartItem{{ID: 1, Quantity: 1}}}))
	require.NoError(t, repo.Save(ctx, &guest.State{TerminalID: "terminal-1"}))

	loaded, err := repo.Load(ctx, "terminal-1")
	require.NoError(t, err)
	assert.Empty(t, loaded.Cart)
	assert.True(t, loaded.Session.IsZero())
}

func TestStateRepoMissingAndDelete(t *testing.T) {
	repo := startedRepo(t)
	ctx := context.Background()

	loaded, err := repo.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, repo.Save(ctx, &guest.State{TerminalID: "terminal-2"}))
	require.NoError(t, repo.Delete(ctx, "terminal-2"))

	loaded, err = repo.Load(ctx, "terminal-2")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStateRepoNotStarted(t *testing.T) {
	repo := NewInMemoryStateRepo()

	_, err := repo.Load(context.Background(), "terminal-1")
	assert.Error(t, err)
	assert.Error(t, repo.Save(context.Background(), &guest.State{TerminalID: "terminal-1"}))
}
