package guest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/appetiteclub/tableside/pkg/enums/roundstatus"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/guest/internal/backend"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

// Backend is the subset of the remote API the terminal depends on.
type Backend interface {
	Login(ctx context.Context, username, password string) (*backend.AuthResponse, error)
	Logout(ctx context.Context) error
	GetMenuItem(ctx context.Context, id int64) (*backend.MenuItem, error)
	ListTables(ctx context.Context) ([]backend.Table, error)
	GetTable(ctx context.Context, id string) (*backend.Table, error)
	GetTableSession(ctx context.Context, tableID string) (*backend.TableSession, error)
	StartSession(ctx context.Context, req backend.StartSessionRequest) (*backend.TableSession, error)
	EndSession(ctx context.Context, id string) (*backend.TableSession, error)
	RequestBill(ctx context.Context, id string) (*backend.TableSession, error)
	GetBill(ctx context.Context, sessionID string) (*backend.Bill, error)
	CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (*backend.Order, error)
	ListOrdersBySession(ctx context.Context, sessionID string) ([]backend.Order, error)
}

type Options struct {
	TerminalID    string
	Backend       Backend
	Store         StateStore
	Publisher     events.Publisher
	Logger        aqm.Logger
	Policy        BillPolicy
	SubmitTimeout time.Duration
}

// Terminal owns the guest state of one tableside device: the active session,
// the cart and the submitted rounds. Every mutation goes through its mutex
// and is persisted before the lock is released.
type Terminal struct {
	id            string
	backend       Backend
	store         StateStore
	publisher     events.Publisher
	logger        aqm.Logger
	policy        BillPolicy
	submitTimeout time.Duration
	now           func() time.Time

	mu      sync.Mutex
	session Session
	cart    *Cart
	rounds  *RoundTracker
	user    *backend.User
}

func NewTerminal(opts Options) *Terminal {
	logger := opts.Logger
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStateStore()
	}
	id := opts.TerminalID
	if id == "" {
		id = DefaultTerminalID
	}
	timeout := opts.SubmitTimeout
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}

	return &Terminal{
		id:            id,
		backend:       opts.Backend,
		store:         store,
		publisher:     opts.Publisher,
		logger:        logger.With("terminal_id", id),
		policy:        opts.Policy.withDefaults(),
		submitTimeout: timeout,
		now:           time.Now,
		cart:          NewCart(nil),
		rounds:        NewRoundTracker(nil, 0),
	}
}

func NewTerminalFromConfig(config *aqm.Config, be Backend, store StateStore, publisher events.Publisher, logger aqm.Logger) *Terminal {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return NewTerminal(Options{
		TerminalID: stringOr(config, "terminal.id", DefaultTerminalID),
		Backend:    be,
		Store:      store,
		Publisher:  publisher,
		Logger:     logger,
		Policy: BillPolicy{
			TaxRate:  floatOr(config, logger, "bill.tax_rate", DefaultTaxRate),
			Currency: stringOr(config, "bill.currency", DefaultCurrency),
		},
		SubmitTimeout: durationOr(config, logger, "orders.submit_timeout", DefaultSubmitTimeout),
	})
}

func (t *Terminal) ID() string {
	return t.id
}

// Start and Stop let the terminal be registered as a lifecycle component.
func (t *Terminal) Start(ctx context.Context) error { return t.Initialize(ctx) }

func (t *Terminal) Stop(ctx context.Context) error { return t.Teardown(ctx) }

// Initialize restores the persisted snapshot.
func (t *Terminal) Initialize(ctx context.Context) error {
	state, err := t.store.Load(ctx, t.id)
	if err != nil {
		return fmt.Errorf("load terminal state: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if state == nil {
		t.logger.Info("no persisted terminal state")
		return nil
	}

	t.session = state.Session
	t.cart = NewCart(state.Cart)
	t.rounds = NewRoundTracker(state.Orders, state.LastRound)
	t.rounds.now = t.now

	// A round that was in flight when the process died never got an answer.
	for _, o := range t.rounds.Orders() {
		status := roundstatus.ByName(o.Status)
		if status == nil || *status == roundstatus.Statuses.Pending {
			t.rounds.Fail(o.ID, errInterrupted)
		}
	}

	t.logger.Info("terminal state restored",
		"session_id", t.session.SessionID,
		"cart_items", t.cart.Len(),
		"rounds", len(t.rounds.Orders()))
	return nil
}

// Teardown flushes the current snapshot. Session state is kept for the next start.
func (t *Terminal) Teardown(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.persistLocked(ctx)
}

// Session returns the active session, zero when none.
func (t *Terminal) Session() Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

func (t *Terminal) User() *backend.User {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.user == nil {
		return nil
	}
	u := *t.user
	return &u
}

// Hydrate adopts a session from URL parameters when none is stored.
func (t *Terminal) Hydrate(ctx context.Context, params url.Values) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	resolved, ok := ResolveSession(t.session, params)
	if !ok {
		return Session{}, false
	}
	if resolved != t.session {
		t.setSessionLocked(resolved)
		t.logPersistErr(t.persistLocked(ctx))
	}
	return resolved, true
}

// SelectTable starts a backend session on a free table and makes it active.
func (t *Terminal) SelectTable(ctx context.Context, tableID string) (Session, error) {
	t.mu.Lock()
	active := t.session.Complete()
	var guestID *int64
	if t.user != nil {
		id := t.user.ID
		guestID = &id
	}
	t.mu.Unlock()

	if active {
		return Session{}, ErrSessionActive
	}
	if tableID == "" {
		return Session{}, ErrTableNotFound
	}

	table, err := t.backend.GetTable(ctx, tableID)
	if err != nil {
		if backend.IsNotFound(err) {
			return Session{}, ErrTableNotFound
		}
		return Session{}, fmt.Errorf("get table %s: %w", tableID, err)
	}
	if table == nil {
		return Session{}, ErrTableNotFound
	}
	if !table.Selectable() {
		return Session{}, ErrTableUnavailable
	}

	remote, err := t.backend.StartSession(ctx, backend.StartSessionRequest{TableID: table.ID, GuestID: guestID})
	if err != nil {
		return Session{}, fmt.Errorf("start session: %w", err)
	}

	session := Session{
		TableID:     table.ID,
		SessionID:   remote.SessionID(),
		TableNumber: table.Number,
	}
	if err := t.adopt(ctx, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// Login authenticates and, for table accounts, binds the terminal to that
// table's session.
func (t *Terminal) Login(ctx context.Context, username, password string) (LoginResult, error) {
	auth, err := t.backend.Login(ctx, username, password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	user := auth.User
	t.mu.Lock()
	t.user = &user
	t.mu.Unlock()

	result := LoginResult{User: user, Assignment: Assignment{Outcome: AssignmentNone}}

	number, ok := TableNumberFromUsername(username)
	if !ok {
		return result, nil
	}

	assignment, err := t.assign(ctx, number, &user.ID)
	if err != nil {
		return result, err
	}
	result.Assignment = assignment
	return result, nil
}

// Logout ends authentication and wipes the local guest state. A failed
// remote logout does not keep the terminal bound.
func (t *Terminal) Logout(ctx context.Context) error {
	if err := t.backend.Logout(ctx); err != nil {
		t.logger.Info("remote logout failed", "error", err)
	}

	t.mu.Lock()
	ended := t.session
	t.user = nil
	t.clearSessionLocked()
	err := t.persistLocked(ctx)
	t.mu.Unlock()

	if ended.Complete() {
		t.publishSession(ctx, event.EventSessionEnded, ended, "logout")
	}
	return err
}

type CartView struct {
	Items []CartItem `json:"items"`
	Count int        `json:"count"`
	Total float64    `json:"total"`
}

func (t *Terminal) Cart() CartView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cartViewLocked()
}

// AddItem puts one unit of the item in the cart.
func (t *Terminal) AddItem(ctx context.Context, item CartItem) CartView {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cart.Add(item)
	t.logPersistErr(t.persistLocked(ctx))
	return t.cartViewLocked()
}

// AddMenuItem looks the item up on the backend and adds one unit.
func (t *Terminal) AddMenuItem(ctx context.Context, menuItemID int64) (CartView, error) {
	item, err := t.backend.GetMenuItem(ctx, menuItemID)
	if err != nil {
		if backend.IsNotFound(err) {
			return CartView{}, ErrItemNotFound
		}
		return CartView{}, fmt.Errorf("get menu item %d: %w", menuItemID, err)
	}
	if item == nil {
		return CartView{}, ErrItemNotFound
	}
	if !item.Available {
		return CartView{}, ErrItemUnavailable
	}

	return t.AddItem(ctx, CartItem{
		ID:        item.ID,
		Name:      item.Name,
		UnitPrice: item.Price,
		Image:     item.Image,
	}), nil
}

func (t *Terminal) DecrementItem(ctx context.Context, id int64) CartView {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cart.Decrement(id) {
		t.logPersistErr(t.persistLocked(ctx))
	}
	return t.cartViewLocked()
}

func (t *Terminal) RemoveItem(ctx context.Context, id int64) CartView {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cart.Remove(id) {
		t.logPersistErr(t.persistLocked(ctx))
	}
	return t.cartViewLocked()
}

func (t *Terminal) ClearCart(ctx context.Context) CartView {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cart.Clear()
	t.logPersistErr(t.persistLocked(ctx))
	return t.cartViewLocked()
}

const (
	NoticeOrderPlaced = "Order placed"
	NoticeOrderQueued = "Order placed, waiting for the kitchen to confirm"
)

// SubmitResult carries the recorded round and the notice shown to the guest.
type SubmitResult struct {
	Order  LocalOrder `json:"order"`
	Notice string     `json:"notice,omitempty"`
}

// SubmitCart records the cart as the next round, empties the cart and only
// then sends the round to the backend. The local record and the cleared cart
// stand whatever the backend answers.
func (t *Terminal) SubmitCart(ctx context.Context) (SubmitResult, error) {
	t.mu.Lock()
	if !t.session.Complete() {
		t.mu.Unlock()
		return SubmitResult{}, ErrNoSession
	}
	if t.cart.IsEmpty() {
		t.mu.Unlock()
		return SubmitResult{}, ErrEmptyCart
	}

	order, err := t.rounds.Open(t.session, t.cart.Items())
	if err != nil {
		t.mu.Unlock()
		return SubmitResult{}, err
	}
	t.cart.Clear()
	t.logPersistErr(t.persistLocked(ctx))
	t.mu.Unlock()

	t.logger.Info("round submitted", "session_id", order.SessionID, "round", order.Round, "items", order.ItemCount())
	t.publishRound(ctx, event.EventRoundSubmitted, order)

	order = t.deliver(ctx, order)

	result := SubmitResult{Order: order, Notice: NoticeOrderPlaced}
	if order.Status == roundstatus.Statuses.Failed.Code() {
		result.Notice = NoticeOrderQueued
	}
	return result, nil
}

// Orders lists the rounds recorded for the active session.
func (t *Terminal) Orders() []LocalOrder {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.session.Complete() {
		return nil
	}
	return t.rounds.ForSession(t.session.SessionID)
}

// RetryFailed resends failed rounds of the active session that still have
// attempts left. Rounds whose earlier attempt may have landed are first
// looked up on the backend and confirmed without a resend when found. It
// returns how many rounds were handled and how many ended up confirmed.
func (t *Terminal) RetryFailed(ctx context.Context, maxAttempts int) (retried, confirmed int) {
	t.mu.Lock()
	if !t.session.Complete() {
		t.mu.Unlock()
		return 0, 0
	}
	sessionID := t.session.SessionID
	claimed := t.rounds.Claim(sessionID, maxAttempts)
	taken := make(map[string]bool)
	for _, o := range t.rounds.ForSession(sessionID) {
		if o.RemoteOrderID != "" {
			taken[o.RemoteOrderID] = true
		}
	}
	if len(claimed) > 0 {
		t.logPersistErr(t.persistLocked(ctx))
	}
	t.mu.Unlock()

	var remote []backend.Order
	var listErr error
	listed := false

	for _, order := range claimed {
		retried++

		if order.Uncertain {
			if !listed {
				remote, listErr = t.remoteOrders(ctx, sessionID)
				listed = true
			}
			if listErr != nil {
				t.settle(ctx, order, "", fmt.Errorf("check backend orders: %w", listErr), false)
				continue
			}
			if remoteID, ok := matchRemoteOrder(order, remote, taken); ok {
				taken[remoteID] = true
				t.settle(ctx, order, remoteID, nil, true)
				confirmed++
				continue
			}
		}

		delivered := t.deliver(ctx, order)
		if delivered.Status == roundstatus.Statuses.Confirmed.Code() {
			if delivered.RemoteOrderID != "" {
				taken[delivered.RemoteOrderID] = true
			}
			confirmed++
		}
	}
	return retried, confirmed
}

// Bill resolves the bill for the active session. When the backend cannot be
// reached but rounds were recorded here, the local figures are returned with
// a warning.
func (t *Terminal) Bill(ctx context.Context) (Bill, error) {
	t.mu.Lock()
	session := t.session
	var orders []LocalOrder
	if session.Complete() {
		orders = t.rounds.ForSession(session.SessionID)
	}
	t.mu.Unlock()

	if !session.Complete() {
		return Bill{}, ErrNoSession
	}

	remote, fetchErr := t.backend.GetBill(ctx, session.SessionID)
	if fetchErr != nil {
		if len(orders) == 0 {
			return Bill{}, fmt.Errorf("get bill: %w", fetchErr)
		}
		t.logger.Info("remote bill unavailable, using local rounds", "session_id", session.SessionID, "error", fetchErr)
		remote = nil
	}

	bill, err := ComputeBill(remote, orders, t.policy)
	if err != nil {
		return Bill{}, err
	}
	if fetchErr != nil {
		bill.Warning = backend.UserMessage(fetchErr)
	}
	if bill.TableNumber == "" {
		bill.TableNumber = session.TableNumber
	}
	if bill.SessionID == "" {
		bill.SessionID = session.SessionID
	}
	return bill, nil
}

// RequestBill asks staff to bring the bill.
func (t *Terminal) RequestBill(ctx context.Context) (*backend.TableSession, error) {
	session := t.Session()
	if !session.Complete() {
		return nil, ErrNoSession
	}

	remote, err := t.backend.RequestBill(ctx, session.SessionID)
	if err != nil {
		return nil, fmt.Errorf("request bill: %w", err)
	}
	return remote, nil
}

// Settle closes the session on the backend and clears the terminal. The
// final bill is returned; it is empty when nothing was ordered.
func (t *Terminal) Settle(ctx context.Context) (Bill, error) {
	session := t.Session()
	if !session.Complete() {
		return Bill{}, ErrNoSession
	}

	bill, err := t.Bill(ctx)
	if err != nil && !errors.Is(err, ErrNoItems) {
		return Bill{}, err
	}

	if _, err := t.backend.EndSession(ctx, session.SessionID); err != nil {
		return Bill{}, fmt.Errorf("end session: %w", err)
	}

	t.mu.Lock()
	if t.session.SessionID == session.SessionID {
		t.clearSessionLocked()
		t.logPersistErr(t.persistLocked(ctx))
	}
	t.mu.Unlock()

	t.logger.Info("session settled", "session_id", session.SessionID, "total", bill.Total)
	t.publishSession(ctx, event.EventSessionEnded, session, "settled")
	return bill, nil
}

// deliver sends a recorded round to the backend and stores the outcome. The
// call is detached from the caller's cancellation and bounded by the submit
// timeout.
func (t *Terminal) deliver(ctx context.Context, order LocalOrder) LocalOrder {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.submitTimeout)
	defer cancel()

	remote, err := t.backend.CreateOrder(callCtx, order.Request())
	return t.settle(ctx, order, remote.OrderID(), err, false)
}

func (t *Terminal) remoteOrders(ctx context.Context, sessionID string) ([]backend.Order, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.submitTimeout)
	defer cancel()
	return t.backend.ListOrdersBySession(callCtx, sessionID)
}

// settle records the outcome of a delivery attempt. reconciled marks a round
// found on the backend from an earlier attempt.
func (t *Terminal) settle(ctx context.Context, order LocalOrder, remoteOrderID string, err error, reconciled bool) LocalOrder {
	t.mu.Lock()
	var updated LocalOrder
	var found bool
	switch {
	case err != nil:
		updated, found = t.rounds.Fail(order.ID, err)
	case reconciled:
		updated, found = t.rounds.Reconcile(order.ID, remoteOrderID)
	default:
		updated, found = t.rounds.Confirm(order.ID, remoteOrderID)
	}
	if found {
		t.logPersistErr(t.persistLocked(ctx))
	}
	t.mu.Unlock()

	if !found {
		// The session was closed while the call was in flight.
		updated = order
		if !reconciled {
			updated.Attempts++
		}
		if err != nil {
			updated.Status = roundstatus.Statuses.Failed.Code()
			updated.LastError = err.Error()
		} else {
			updated.Status = roundstatus.Statuses.Confirmed.Code()
			updated.RemoteOrderID = remoteOrderID
		}
	}

	switch {
	case err != nil:
		t.logger.Info("round delivery failed", "session_id", updated.SessionID, "round", updated.Round, "attempts", updated.Attempts, "error", err)
		t.publishRound(ctx, event.EventRoundFailed, updated)
	case reconciled:
		t.logger.Info("round already recorded by backend", "session_id", updated.SessionID, "round", updated.Round, "remote_order_id", updated.RemoteOrderID)
		t.publishRound(ctx, event.EventRoundConfirmed, updated)
	default:
		t.logger.Info("round confirmed", "session_id", updated.SessionID, "round", updated.Round, "remote_order_id", updated.RemoteOrderID)
		t.publishRound(ctx, event.EventRoundConfirmed, updated)
	}
	return updated
}

// adopt makes the session active, persists it and announces it. It refuses
// to replace a different session that is still active here.
func (t *Terminal) adopt(ctx context.Context, session Session) error {
	t.mu.Lock()
	if t.session.Complete() && t.session.SessionID != session.SessionID {
		t.mu.Unlock()
		return ErrSessionActive
	}
	t.setSessionLocked(session)
	t.logPersistErr(t.persistLocked(ctx))
	t.mu.Unlock()

	t.logger.Info("session started", "table_id", session.TableID, "session_id", session.SessionID)
	t.publishSession(ctx, event.EventSessionStarted, session, "")
	return nil
}

// setSessionLocked switches the active session. Moving to a different
// session drops the previous session's cart and rounds.
func (t *Terminal) setSessionLocked(session Session) {
	if t.session.Complete() && t.session.SessionID != session.SessionID {
		t.cart.Clear()
		t.rounds.Clear()
	}
	t.session = session
}

// clearSessionLocked ends the guest's stay: session, cart and rounds go together.
func (t *Terminal) clearSessionLocked() {
	t.session = Session{}
	t.cart.Clear()
	t.rounds.Clear()
}

func (t *Terminal) cartViewLocked() CartView {
	return CartView{
		Items: t.cart.Items(),
		Count: t.cart.Count(),
		Total: t.cart.Total(),
	}
}

func (t *Terminal) snapshotLocked() *State {
	return &State{
		TerminalID: t.id,
		Session:    t.session,
		Cart:       t.cart.Items(),
		Orders:     t.rounds.Orders(),
		LastRound:  t.rounds.LastRound(),
		UpdatedAt:  t.now(),
	}
}

func (t *Terminal) persistLocked(ctx context.Context) error {
	if err := t.store.Save(context.WithoutCancel(ctx), t.snapshotLocked()); err != nil {
		return fmt.Errorf("save terminal state: %w", err)
	}
	return nil
}

func (t *Terminal) logPersistErr(err error) {
	if err != nil {
		t.logger.Error("cannot persist terminal state", "error", err)
	}
}

func (t *Terminal) publishRound(ctx context.Context, eventType string, order LocalOrder) {
	t.publish(ctx, event.GuestRoundsTopic, event.RoundEvent{
		EventType:     eventType,
		OccurredAt:    t.now().UTC(),
		TerminalID:    t.id,
		TableID:       order.TableID,
		SessionID:     order.SessionID,
		LocalOrderID:  order.ID,
		Round:         order.Round,
		Status:        order.Status,
		ItemCount:     order.ItemCount(),
		Subtotal:      order.Subtotal,
		RemoteOrderID: order.RemoteOrderID,
		Attempts:      order.Attempts,
		Error:         order.LastError,
	})
}

func (t *Terminal) publishSession(ctx context.Context, eventType string, session Session, reason string) {
	t.publish(ctx, event.GuestSessionsTopic, event.SessionEvent{
		EventType:   eventType,
		OccurredAt:  t.now().UTC(),
		TerminalID:  t.id,
		TableID:     session.TableID,
		SessionID:   session.SessionID,
		TableNumber: session.TableNumber,
		Reason:      reason,
	})
}

func (t *Terminal) publish(ctx context.Context, topic string, payload interface{}) {
	if t.publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("cannot encode event", "topic", topic, "error", err)
		return
	}
	if err := t.publisher.Publish(context.WithoutCancel(ctx), topic, data); err != nil {
		t.logger.Info("cannot publish event", "topic", topic, "error", err)
	}
}
