package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/tableside/services/guest/internal/guest"
	"github.com/aquamarinepk/aqm"
)

// SeedDemo writes a seated demo session with a cart and two recorded rounds,
// the second one still waiting for the backend.
func SeedDemo(ctx context.Context, store guest.StateStore, terminalID string, logger aqm.Logger) error {
	session := guest.Session{TableID: "demo-table-5", SessionID: "demo-session-1", TableNumber: "5"}

	rounds := guest.NewRoundTracker(nil, 0)
	first, err := rounds.Open(session, []guest.CartItem{
		{ID: 1, Name: "Margherita", UnitPrice: 8.00, Quantity: 2},
		{ID: 7, Name: "Sparkling water", UnitPrice: 2.50, Quantity: 1},
	})
	if err != nil {
		return fmt.Errorf("open demo round: %w", err)
	}
	rounds.Confirm(first.ID, "demo-order-1")

	second, err := rounds.Open(session, []guest.CartItem{
		{ID: 12, Name: "Tiramisu", UnitPrice: 5.50, Quantity: 2},
	})
	if err != nil {
		return fmt.Errorf("open demo round: %w", err)
	}
	rounds.Fail(second.ID, fmt.Errorf("demo: backend unreachable"))

	cart := guest.NewCart(nil)
	cart.Add(guest.CartItem{ID: 20, Name: "Espresso", UnitPrice: 1.80})

	state := &guest.State{
		TerminalID: terminalID,
		Session:    session,
		Cart:       cart.Items(),
		Orders:     rounds.Orders(),
		LastRound:  rounds.LastRound(),
	}
	if err := store.Save(ctx, state); err != nil {
		return fmt.Errorf("save demo state: %w", err)
	}

	logger.Info("Seeded demo terminal", "terminal_id", terminalID, "rounds", len(state.Orders), "cart_items", len(state.Cart))
	return nil
}
