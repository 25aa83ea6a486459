package event

import "time"

const (
	GuestRoundsTopic   = "guest.rounds"
	GuestSessionsTopic = "guest.sessions"

	EventRoundSubmitted = "round.submitted"
	EventRoundConfirmed = "round.confirmed"
	EventRoundFailed    = "round.failed"

	EventSessionStarted = "session.started"
	EventSessionEnded   = "session.ended"
)

// RoundEvent is published every time a guest round changes state on a terminal.
// Operations dashboards use it to spot rounds the backend never acknowledged.
type RoundEvent struct {
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	TerminalID    string    `json:"terminal_id"`
	TableID       string    `json:"table_id"`
	SessionID     string    `json:"session_id"`
	LocalOrderID  string    `json:"local_order_id"`
	Round         int       `json:"round"`
	Status        string    `json:"status"`
	ItemCount     int       `json:"item_count"`
	Subtotal      float64   `json:"subtotal"`
	RemoteOrderID string    `json:"remote_order_id,omitempty"`
	Attempts      int       `json:"attempts"`
	Error         string    `json:"error,omitempty"`
}

// SessionEvent marks the start and end of a guest session on a terminal.
type SessionEvent struct {
	EventType   string    `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	TerminalID  string    `json:"terminal_id"`
	TableID     string    `json:"table_id"`
	SessionID   string    `json:"session_id"`
	TableNumber string    `json:"table_number,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}
