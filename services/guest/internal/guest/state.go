package guest

import (
	"context"
	"sync"
	"time"
)

// State is everything a terminal must survive a restart with.
type State struct {
	TerminalID string       `json:"terminalId" bson:"_id"`
	Session    Session      `json:"session" bson:"session"`
	Cart       []CartItem   `json:"cart" bson:"cart"`
	Orders     []LocalOrder `json:"orders" bson:"orders"`
	LastRound  int          `json:"lastRound" bson:"last_round"`
	UpdatedAt  time.Time    `json:"updatedAt" bson:"updated_at"`
}

// StateStore persists terminal snapshots. Load returns nil, nil when the
// terminal has never been saved.
type StateStore interface {
	Load(ctx context.Context, terminalID string) (*State, error)
	Save(ctx context.Context, state *State) error
	Delete(ctx context.Context, terminalID string) error
}

// MemoryStateStore keeps snapshots in process. Used when no durable driver
// is configured and in tests.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]State)}
}

func (s *MemoryStateStore) Load(ctx context.Context, terminalID string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[terminalID]
	if !ok {
		return nil, nil
	}
	copied := state.clone()
	return &copied, nil
}

func (s *MemoryStateStore) Save(ctx context.Context, state *State) error {
	if state == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state.TerminalID] = state.clone()
	return nil
}

func (s *MemoryStateStore) Delete(ctx context.Context, terminalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, terminalID)
	return nil
}

func (s State) clone() State {
	cart := make([]CartItem, len(s.Cart))
	copy(cart, s.Cart)
	s.Cart = cart

	orders := make([]LocalOrder, 0, len(s.Orders))
	for _, o := range s.Orders {
		orders = append(orders, o.clone())
	}
	s.Orders = orders
	return s
}
