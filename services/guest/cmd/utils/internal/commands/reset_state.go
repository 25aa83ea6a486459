package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/tableside/services/guest/internal/guest"
	"github.com/aquamarinepk/aqm"
)

// ResetState removes everything the terminal persisted. Rounds that never
// reached the backend are lost, so they are logged before deletion.
func ResetState(ctx context.Context, store guest.StateStore, terminalID string, logger aqm.Logger) error {
	state, err := store.Load(ctx, terminalID)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if state != nil {
		for _, o := range state.Orders {
			if o.RemoteOrderID == "" {
				logger.Info("discarding unconfirmed round", "session_id", o.SessionID, "round", o.Round, "status", o.Status)
			}
		}
	}

	if err := store.Delete(ctx, terminalID); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}
