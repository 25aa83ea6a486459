package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if req.TableID == "" || req.SessionID == "" {
		return nil, fmt.Errorf("table and session are required")
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("order has no items")
	}

	data, err := c.mutate(ctx, http.MethodPost, "/orders", nil, req, TagOrder, TagSession, TagBill)
	if err != nil {
		return nil, err
	}

	var order Order
	if isNull(data) {
		return &order, nil
	}
	if err := decodeObject(data, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) ListOrdersBySession(ctx context.Context, sessionID string) ([]Order, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("missing session id")
	}

	path := fmt.Sprintf("/orders/session/%s", url.PathEscape(sessionID))
	data, err := c.get(ctx, path, TagOrder, idTag(TagSession, sessionID))
	if err != nil {
		return nil, err
	}

	var orders []Order
	if err := decodeCollection(data, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
