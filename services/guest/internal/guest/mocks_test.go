package guest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/appetiteclub/tableside/services/guest/internal/backend"
	"github.com/aquamarinepk/aqm/events"
)

var errUnreachable = &backend.APIError{Status: 0, Message: "connection refused", Err: errors.New("dial tcp: connection refused")}

// MockBackend is a mock implementation of Backend and Catalog for testing.
// Unset funcs fall back to an in-memory table floor.
type MockBackend struct {
	mu       sync.Mutex
	tables   map[string]backend.Table
	sessions map[string]*backend.TableSession
	orders   []backend.CreateOrderRequest
	nextID   int

	LoginFunc       func(ctx context.Context, username, password string) (*backend.AuthResponse, error)
	LogoutFunc      func(ctx context.Context) error
	GetMenuItemFunc func(ctx context.Context, id int64) (*backend.MenuItem, error)
	GetBillFunc     func(ctx context.Context, sessionID string) (*backend.Bill, error)
	CreateOrderFunc func(ctx context.Context, req backend.CreateOrderRequest) (*backend.Order, error)
	EndSessionFunc  func(ctx context.Context, id string) (*backend.TableSession, error)
	StartFunc       func(ctx context.Context, req backend.StartSessionRequest) (*backend.TableSession, error)
	ListOrdersFunc  func(ctx context.Context, sessionID string) ([]backend.Order, error)
}

func NewMockBackend(tables ...backend.Table) *MockBackend {
	m := &MockBackend{
		tables:   make(map[string]backend.Table),
		sessions: make(map[string]*backend.TableSession),
	}
	for _, t := range tables {
		m.tables[t.ID] = t
	}
	return m
}

func (m *MockBackend) Login(ctx context.Context, username, password string) (*backend.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}
	return &backend.AuthResponse{User: backend.User{ID: 42, Username: username, Role: "GUEST"}, Token: "token"}, nil
}

func (m *MockBackend) Logout(ctx context.Context) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx)
	}
	return nil
}

func (m *MockBackend) GetMenuItem(ctx context.Context, id int64) (*backend.MenuItem, error) {
	if m.GetMenuItemFunc != nil {
		return m.GetMenuItemFunc(ctx, id)
	}
	return &backend.MenuItem{ID: id, Name: fmt.Sprintf("Item %d", id), Price: 5, Available: true}, nil
}

func (m *MockBackend) ListTables(ctx context.Context) ([]backend.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]backend.Table, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t)
	}
	return out, nil
}

func (m *MockBackend) GetTable(ctx context.Context, id string) (*backend.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return nil, &backend.APIError{Status: 404, Message: "table not found"}
	}
	return &t, nil
}

func (m *MockBackend) GetTableSession(ctx context.Context, tableID string) (*backend.TableSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[tableID], nil
}

func (m *MockBackend) StartSession(ctx context.Context, req backend.StartSessionRequest) (*backend.TableSession, error) {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s := &backend.TableSession{
		ID:      backend.FlexString(fmt.Sprintf("s%d", m.nextID)),
		TableID: backend.FlexString(req.TableID),
		Status:  "taken",
	}
	m.sessions[req.TableID] = s
	if t, ok := m.tables[req.TableID]; ok {
		t.Status = "taken"
		t.CurrentSessionID = string(s.ID)
		m.tables[req.TableID] = t
	}
	return s, nil
}

func (m *MockBackend) EndSession(ctx context.Context, id string) (*backend.TableSession, error) {
	if m.EndSessionFunc != nil {
		return m.EndSessionFunc(ctx, id)
	}
	return &backend.TableSession{ID: backend.FlexString(id), Status: "finished"}, nil
}

func (m *MockBackend) RequestBill(ctx context.Context, id string) (*backend.TableSession, error) {
	return &backend.TableSession{ID: backend.FlexString(id), Status: "requesting_bill"}, nil
}

func (m *MockBackend) GetBill(ctx context.Context, sessionID string) (*backend.Bill, error) {
	if m.GetBillFunc != nil {
		return m.GetBillFunc(ctx, sessionID)
	}
	return &backend.Bill{SessionID: backend.FlexString(sessionID)}, nil
}

func (m *MockBackend) CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (*backend.Order, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return m.Record(req), nil
}

// Record stores an order as the backend would and returns it.
func (m *MockBackend) Record(req backend.CreateOrderRequest) *backend.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, req)
	return &backend.Order{ID: backend.FlexString(fmt.Sprintf("o%d", len(m.orders)))}
}

func (m *MockBackend) ListOrdersBySession(ctx context.Context, sessionID string) ([]backend.Order, error) {
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []backend.Order
	for i, req := range m.orders {
		if req.SessionID != sessionID {
			continue
		}
		order := backend.Order{
			ID:        backend.FlexString(fmt.Sprintf("o%d", i+1)),
			SessionID: backend.FlexString(req.SessionID),
			TableID:   backend.FlexString(req.TableID),
			Status:    "PENDING",
		}
		for _, item := range req.Items {
			order.Items = append(order.Items, backend.OrderItem{MenuItemID: item.MenuItemID, Quantity: item.Quantity})
		}
		out = append(out, order)
	}
	return out, nil
}

func (m *MockBackend) ListCategories(ctx context.Context) ([]backend.Category, error) {
	return []backend.Category{{ID: 1, Name: "Pizza"}, {ID: 2, Name: "Drinks"}}, nil
}

func (m *MockBackend) ListMenuItems(ctx context.Context) ([]backend.MenuItem, error) {
	return []backend.MenuItem{{ID: 1, CategoryID: 1, Name: "Margherita", Price: 8}, {ID: 2, CategoryID: 2, Name: "Water", Price: 2}}, nil
}

func (m *MockBackend) ListMenuItemsByCategory(ctx context.Context, categoryID int64) ([]backend.MenuItem, error) {
	items, _ := m.ListMenuItems(ctx)
	var out []backend.MenuItem
	for _, item := range items {
		if item.CategoryID == categoryID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *MockBackend) UpdateTableStatus(ctx context.Context, id, status string) (*backend.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return nil, &backend.APIError{Status: 404, Message: "table not found"}
	}
	t.Status = status
	m.tables[id] = t
	return &t, nil
}

func (m *MockBackend) SetTableSession(tableID string, session *backend.TableSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[tableID] = session
}

func (m *MockBackend) CreatedOrders() []backend.CreateOrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]backend.CreateOrderRequest, len(m.orders))
	copy(out, m.orders)
	return out
}

// MockPublisher records published messages.
type MockPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][][]byte)}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[topic] = append(m.messages[topic], msg)
	return nil
}

func (m *MockPublisher) Messages(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages[topic]
}

// MockSubscriber captures the handler registered for each topic.
type MockSubscriber struct {
	handlers map[string]events.HandlerFunc
}

func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{handlers: make(map[string]events.HandlerFunc)}
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	m.handlers[topic] = handler
	return nil
}

func (m *MockSubscriber) Unsubscribe(topic string) error {
	delete(m.handlers, topic)
	return nil
}

// FailingStore returns errors from every call.
type FailingStore struct{}

func (FailingStore) Load(ctx context.Context, terminalID string) (*State, error) {
	return nil, errors.New("disk unavailable")
}

func (FailingStore) Save(ctx context.Context, state *State) error {
	return errors.New("disk unavailable")
}

func (FailingStore) Delete(ctx context.Context, terminalID string) error {
	return errors.New("disk unavailable")
}

func newTestTerminal(be *MockBackend, store StateStore, pub *MockPublisher) *Terminal {
	opts := Options{
		TerminalID: "terminal-test",
		Backend:    be,
		Store:      store,
		Policy:     BillPolicy{TaxRate: DefaultTaxRate, Currency: DefaultCurrency},
	}
	if pub != nil {
		opts.Publisher = pub
	}
	return NewTerminal(opts)
}
