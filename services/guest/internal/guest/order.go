package guest

import (
	"errors"
	"strings"
	"time"

	"github.com/appetiteclub/tableside/pkg/enums/roundstatus"
	"github.com/appetiteclub/tableside/services/guest/internal/backend"
	"github.com/aquamarinepk/aqm"
	"github.com/shopspring/decimal"
)

type LocalOrderItem struct {
	MenuItemID int64   `json:"menuItemId" bson:"menu_item_id"`
	Name       string  `json:"name" bson:"name"`
	Quantity   int     `json:"quantity" bson:"quantity"`
	UnitPrice  float64 `json:"unitPrice" bson:"unit_price"`
	TotalPrice float64 `json:"totalPrice" bson:"total_price"`
}

// LocalOrder is the terminal's own record of a submitted round. Items are
// snapshotted at submission and never change afterwards; only the delivery
// fields (Status, Attempts, RemoteOrderID, LastError, Uncertain) move.
// Uncertain marks a round that may have reached the backend without an
// answer coming back; it holds until the round is confirmed.
type LocalOrder struct {
	ID            string           `json:"id" bson:"id"`
	TableID       string           `json:"tableId" bson:"table_id"`
	SessionID     string           `json:"sessionId" bson:"session_id"`
	Round         int              `json:"round" bson:"round"`
	Items         []LocalOrderItem `json:"items" bson:"items"`
	Subtotal      float64          `json:"subtotal" bson:"subtotal"`
	CreatedAt     time.Time        `json:"createdAt" bson:"created_at"`
	Status        string           `json:"status" bson:"status"`
	Attempts      int              `json:"attempts" bson:"attempts"`
	RemoteOrderID string           `json:"remoteOrderId,omitempty" bson:"remote_order_id,omitempty"`
	LastError     string           `json:"lastError,omitempty" bson:"last_error,omitempty"`
	Uncertain     bool             `json:"uncertain,omitempty" bson:"uncertain,omitempty"`
	UpdatedAt     time.Time        `json:"updatedAt" bson:"updated_at"`
}

func (o LocalOrder) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// Request builds the backend payload for the round.
func (o LocalOrder) Request() backend.CreateOrderRequest {
	items := make([]backend.CreateOrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, backend.CreateOrderItem{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
		})
	}
	return backend.CreateOrderRequest{
		TableID:   o.TableID,
		SessionID: o.SessionID,
		Items:     items,
	}
}

func (o LocalOrder) clone() LocalOrder {
	items := make([]LocalOrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

// RoundTracker numbers and records rounds for the active session. It is not
// safe for concurrent use; Terminal serializes access.
type RoundTracker struct {
	orders    []LocalOrder
	lastRound int
	now       func() time.Time
}

// NewRoundTracker restores a tracker from persisted orders and counter.
func NewRoundTracker(orders []LocalOrder, lastRound int) *RoundTracker {
	t := &RoundTracker{lastRound: lastRound, now: time.Now}
	for _, o := range orders {
		t.orders = append(t.orders, o.clone())
	}
	return t
}

// NextRound is one past the highest round seen, so a reset counter can never
// reuse a number already held by a recorded order.
func (t *RoundTracker) NextRound() int {
	highest := t.lastRound
	for _, o := range t.orders {
		if o.Round > highest {
			highest = o.Round
		}
	}
	return highest + 1
}

func (t *RoundTracker) LastRound() int {
	return t.lastRound
}

// Open snapshots the cart into a pending round and records it.
func (t *RoundTracker) Open(session Session, cart []CartItem) (LocalOrder, error) {
	if len(cart) == 0 {
		return LocalOrder{}, ErrEmptyCart
	}
	if !session.Complete() {
		return LocalOrder{}, ErrNoSession
	}

	subtotal := decimal.Zero
	items := make([]LocalOrderItem, 0, len(cart))
	for _, c := range cart {
		line := lineTotal(c.UnitPrice, c.Quantity)
		subtotal = subtotal.Add(line)
		items = append(items, LocalOrderItem{
			MenuItemID: c.ID,
			Name:       c.Name,
			Quantity:   c.Quantity,
			UnitPrice:  c.UnitPrice,
			TotalPrice: toAmount(line),
		})
	}

	now := t.now()
	order := LocalOrder{
		ID:        aqm.GenerateNewID().String(),
		TableID:   session.TableID,
		SessionID: session.SessionID,
		Round:     t.NextRound(),
		Items:     items,
		Subtotal:  toAmount(subtotal),
		CreatedAt: now,
		Status:    roundstatus.Statuses.Pending.Code(),
		UpdatedAt: now,
	}

	t.orders = append(t.orders, order)
	t.lastRound = order.Round
	return order.clone(), nil
}

// Confirm records a successful delivery.
func (t *RoundTracker) Confirm(id, remoteOrderID string) (LocalOrder, bool) {
	return t.update(id, func(o *LocalOrder) {
		o.Status = roundstatus.Statuses.Confirmed.Code()
		o.RemoteOrderID = remoteOrderID
		o.LastError = ""
		o.Uncertain = false
		o.Attempts++
	})
}

// Reconcile confirms a round the backend turned out to have recorded from an
// earlier attempt. No delivery attempt is counted.
func (t *RoundTracker) Reconcile(id, remoteOrderID string) (LocalOrder, bool) {
	return t.update(id, func(o *LocalOrder) {
		o.Status = roundstatus.Statuses.Confirmed.Code()
		o.RemoteOrderID = remoteOrderID
		o.LastError = ""
		o.Uncertain = false
	})
}

// Fail records a failed delivery attempt. The round stays on the bill.
func (t *RoundTracker) Fail(id string, cause error) (LocalOrder, bool) {
	return t.update(id, func(o *LocalOrder) {
		o.Status = roundstatus.Statuses.Failed.Code()
		if cause != nil {
			o.LastError = cause.Error()
		}
		if deliveryUncertain(cause) {
			o.Uncertain = true
		}
		o.Attempts++
	})
}

// errInterrupted marks a round that was in flight when the process stopped.
var errInterrupted = errors.New("interrupted before the backend answered")

func deliveryUncertain(err error) bool {
	return errors.Is(err, errInterrupted) || backend.IsUncertain(err)
}

// Claim moves failed rounds that still have attempts left back to pending
// and returns them for redelivery.
func (t *RoundTracker) Claim(sessionID string, maxAttempts int) []LocalOrder {
	var claimed []LocalOrder
	for i := range t.orders {
		o := &t.orders[i]
		if o.SessionID != sessionID || o.Status != roundstatus.Statuses.Failed.Code() {
			continue
		}
		if maxAttempts > 0 && o.Attempts >= maxAttempts {
			continue
		}
		o.Status = roundstatus.Statuses.Pending.Code()
		o.UpdatedAt = t.now()
		claimed = append(claimed, o.clone())
	}
	return claimed
}

// Orders returns copies of every recorded round in submission order.
func (t *RoundTracker) Orders() []LocalOrder {
	out := make([]LocalOrder, 0, len(t.orders))
	for _, o := range t.orders {
		out = append(out, o.clone())
	}
	return out
}

func (t *RoundTracker) ForSession(sessionID string) []LocalOrder {
	var out []LocalOrder
	for _, o := range t.orders {
		if o.SessionID == sessionID {
			out = append(out, o.clone())
		}
	}
	return out
}

// Clear drops all rounds and resets numbering. Only session teardown calls it.
func (t *RoundTracker) Clear() {
	t.orders = nil
	t.lastRound = 0
}

func (t *RoundTracker) update(id string, apply func(*LocalOrder)) (LocalOrder, bool) {
	for i := range t.orders {
		if t.orders[i].ID != id {
			continue
		}
		apply(&t.orders[i])
		t.orders[i].UpdatedAt = t.now()
		return t.orders[i].clone(), true
	}
	return LocalOrder{}, false
}

// matchRemoteOrder finds a backend order carrying the same items as the round,
// skipping orders already bound to another round.
func matchRemoteOrder(order LocalOrder, remote []backend.Order, taken map[string]bool) (string, bool) {
	want := itemQuantities(order.Items)
	for _, r := range remote {
		id := r.OrderID()
		if id == "" || taken[id] {
			continue
		}
		if sid := string(r.SessionID); sid != "" && sid != order.SessionID {
			continue
		}
		if strings.EqualFold(r.Status, "cancelled") {
			continue
		}
		got := make(map[int64]int, len(r.Items))
		for _, item := range r.Items {
			got[item.MenuItemID] += item.Quantity
		}
		if sameQuantities(want, got) {
			return id, true
		}
	}
	return "", false
}

func itemQuantities(items []LocalOrderItem) map[int64]int {
	out := make(map[int64]int, len(items))
	for _, item := range items {
		out[item.MenuItemID] += item.Quantity
	}
	return out
}

func sameQuantities(a, b map[int64]int) bool {
	if len(a) != len(b) {
		return false
	}
	for id, qty := range a {
		if b[id] != qty {
			return false
		}
	}
	return true
}
