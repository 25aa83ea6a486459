package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/appetiteclub/tableside/services/guest/internal/guest"
)

// ShowState writes the persisted state of a terminal as indented JSON.
func ShowState(ctx context.Context, out io.Writer, store guest.StateStore, terminalID string) error {
	state, err := store.Load(ctx, terminalID)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if state == nil {
		_, err := fmt.Fprintf(out, "no persisted state for %s\n", terminalID)
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return nil
}
