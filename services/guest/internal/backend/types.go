package backend

import (
	"encoding/json"

	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

type AuthResponse struct {
	User      User   `json:"user"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	SortOrder   int    `json:"sortOrder"`
	IsActive    bool   `json:"isActive"`
}

type MenuItem struct {
	ID          int64   `json:"id"`
	CategoryID  int64   `json:"categoryId"`
	Category    string  `json:"category,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Available   bool    `json:"available"`
}

// Table is the canonical table shape; decoding accepts both `tableNumber`
// and `number` for the display label.
type Table struct {
	ID               string `json:"id"`
	Number           string `json:"tableNumber"`
	Status           string `json:"status"`
	Capacity         int    `json:"capacity,omitempty"`
	Location         string `json:"location,omitempty"`
	CurrentSessionID string `json:"currentSessionId,omitempty"`
	AssignedWaiter   string `json:"assignedWaiter,omitempty"`
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var wire tableWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*t = wire.normalize()
	return nil
}

// Selectable reports whether a guest can start a session on the table.
func (t Table) Selectable() bool {
	return tablestatus.IsSelectable(t.Status)
}

type TableSession struct {
	ID                   FlexString `json:"id"`
	TableID              FlexString `json:"tableId"`
	GuestID              *int64     `json:"guestId,omitempty"`
	WaiterID             *int64     `json:"waiterId,omitempty"`
	Status               string     `json:"status"`
	StartedAt            string     `json:"startedAt,omitempty"`
	EndedAt              string     `json:"endedAt,omitempty"`
	TotalPriceWithoutTax float64    `json:"totalPriceWithoutTax"`
	TaxAmount            float64    `json:"taxAmount"`
	TaxRate              float64    `json:"taxRate"`
	TotalPriceWithTax    float64    `json:"totalPriceWithTax"`
	Currency             string     `json:"currency,omitempty"`
	BillNumber           string     `json:"billNumber,omitempty"`
}

func (s *TableSession) SessionID() string {
	if s == nil {
		return ""
	}
	return string(s.ID)
}

func (s *TableSession) TableRef() string {
	if s == nil {
		return ""
	}
	return string(s.TableID)
}

// Active reports whether the session still accepts orders.
func (s *TableSession) Active() bool {
	if s == nil || s.ID == "" || s.EndedAt != "" {
		return false
	}
	status, _ := tablestatus.Parse(s.Status)
	return status != tablestatus.Statuses.Finished && status != tablestatus.Statuses.Free
}

type StartSessionRequest struct {
	TableID string `json:"tableId"`
	GuestID *int64 `json:"guestId,omitempty"`
}

type BillItem struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
	Round      int     `json:"round"`
}

type Bill struct {
	ID          FlexString `json:"id,omitempty"`
	BillNumber  string     `json:"billNumber,omitempty"`
	SessionID   FlexString `json:"sessionId,omitempty"`
	TableNumber FlexString `json:"tableNumber,omitempty"`
	WaiterName  string     `json:"waiterName,omitempty"`
	Items       []BillItem `json:"items"`
	Subtotal    float64    `json:"subtotal"`
	TaxRate     float64    `json:"taxRate"`
	TaxAmount   float64    `json:"taxAmount"`
	Total       float64    `json:"total"`
	Currency    string     `json:"currency,omitempty"`
}

type OrderItem struct {
	ID         FlexString `json:"id"`
	OrderID    FlexString `json:"orderId"`
	MenuItemID int64      `json:"menuItemId"`
	Name       string     `json:"name"`
	Quantity   int        `json:"quantity"`
	UnitPrice  float64    `json:"unitPrice"`
	TotalPrice float64    `json:"totalPrice"`
	Notes      string     `json:"notes,omitempty"`
	Status     string     `json:"status"`
}

type Order struct {
	ID        FlexString  `json:"id"`
	SessionID FlexString  `json:"sessionId"`
	TableID   FlexString  `json:"tableId"`
	Round     int         `json:"round"`
	Items     []OrderItem `json:"items"`
	Status    string      `json:"status"`
	Subtotal  float64     `json:"subtotal"`
	Notes     string      `json:"notes,omitempty"`
	CreatedAt string      `json:"createdAt,omitempty"`
}

func (o *Order) OrderID() string {
	if o == nil {
		return ""
	}
	return string(o.ID)
}

type CreateOrderItem struct {
	MenuItemID int64  `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes,omitempty"`
}

type CreateOrderRequest struct {
	TableID   string            `json:"tableId"`
	SessionID string            `json:"sessionId"`
	Items     []CreateOrderItem `json:"items"`
	Notes     string            `json:"notes,omitempty"`
}
