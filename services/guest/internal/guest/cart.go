package guest

import "github.com/shopspring/decimal"

// CartItem is one menu item the guest intends to order. Quantity is always >= 1.
type CartItem struct {
	ID        int64   `json:"id" bson:"id"`
	Name      string  `json:"name" bson:"name"`
	UnitPrice float64 `json:"unitPrice" bson:"unit_price"`
	Image     string  `json:"image,omitempty" bson:"image,omitempty"`
	Quantity  int     `json:"quantity" bson:"quantity"`
}

func (i CartItem) LineTotal() float64 {
	return toAmount(lineTotal(i.UnitPrice, i.Quantity))
}

// Cart holds at most one entry per menu item. It is not safe for concurrent
// use; Terminal serializes access.
type Cart struct {
	items []CartItem
}

// NewCart rebuilds a cart from a persisted snapshot, dropping entries with a
// non-positive quantity and merging duplicates.
func NewCart(items []CartItem) *Cart {
	c := &Cart{}
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if idx := c.index(item.ID); idx >= 0 {
			c.items[idx].Quantity += item.Quantity
			continue
		}
		c.items = append(c.items, item)
	}
	return c
}

// Add increments the matching entry or inserts the item with quantity 1.
func (c *Cart) Add(item CartItem) CartItem {
	if idx := c.index(item.ID); idx >= 0 {
		c.items[idx].Quantity++
		return c.items[idx]
	}

	item.Quantity = 1
	c.items = append(c.items, item)
	return item
}

// Decrement lowers the quantity by one, removing the entry at 1. It reports
// whether the cart changed.
func (c *Cart) Decrement(id int64) bool {
	idx := c.index(id)
	if idx < 0 {
		return false
	}

	if c.items[idx].Quantity > 1 {
		c.items[idx].Quantity--
		return true
	}

	c.removeAt(idx)
	return true
}

// Remove drops the entry regardless of its quantity.
func (c *Cart) Remove(id int64) bool {
	idx := c.index(id)
	if idx < 0 {
		return false
	}
	c.removeAt(idx)
	return true
}

func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the entries in insertion order.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Count is the number of units across all entries.
func (c *Cart) Count() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) Total() float64 {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(lineTotal(item.UnitPrice, item.Quantity))
	}
	return toAmount(total)
}

func (c *Cart) index(id int64) int {
	for i, item := range c.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(idx int) {
	c.items = append(c.items[:idx], c.items[idx+1:]...)
}
