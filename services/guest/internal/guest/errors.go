package guest

import "errors"

var (
	ErrNoSession        = errors.New("session not found, please log in again")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNoItems          = errors.New("no items")
	ErrTableNotFound    = errors.New("table not found")
	ErrTableUnavailable = errors.New("table is not available")
	ErrSessionActive    = errors.New("a session is already active on this terminal")
	ErrItemNotFound     = errors.New("menu item not found")
	ErrItemUnavailable  = errors.New("menu item is not available")
)
