package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) StartSession(ctx context.Context, req StartSessionRequest) (*TableSession, error) {
	if req.TableID == "" {
		return nil, fmt.Errorf("missing table id")
	}

	data, err := c.mutate(ctx, http.MethodPost, "/sessions/start", nil, req, TagSession, TagTable)
	if err != nil {
		return nil, err
	}

	var session TableSession
	if err := decodeObject(data, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, &APIError{Status: http.StatusOK, Message: "session response carried no id"}
	}
	return &session, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*TableSession, error) {
	if id == "" {
		return nil, fmt.Errorf("missing session id")
	}

	data, err := c.get(ctx, "/sessions/"+url.PathEscape(id), TagSession, idTag(TagSession, id))
	if err != nil {
		return nil, err
	}

	var session TableSession
	if err := decodeObject(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) EndSession(ctx context.Context, id string) (*TableSession, error) {
	return c.sessionAction(ctx, http.MethodPatch, id, "end")
}

// RequestBill flags the table so a waiter brings the bill.
func (c *Client) RequestBill(ctx context.Context, id string) (*TableSession, error) {
	return c.sessionAction(ctx, http.MethodPost, id, "request-bill")
}

func (c *Client) sessionAction(ctx context.Context, method, id, action string) (*TableSession, error) {
	if id == "" {
		return nil, fmt.Errorf("missing session id")
	}

	path := fmt.Sprintf("/sessions/%s/%s", url.PathEscape(id), action)
	data, err := c.mutate(ctx, method, path, nil, nil, TagSession, TagTable, TagBill)
	if err != nil {
		return nil, err
	}

	var session TableSession
	if isNull(data) {
		session.ID = FlexString(id)
		return &session, nil
	}
	if err := decodeObject(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) GetBill(ctx context.Context, sessionID string) (*Bill, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("missing session id")
	}

	path := fmt.Sprintf("/sessions/%s/bill", url.PathEscape(sessionID))
	data, err := c.get(ctx, path, TagBill, idTag(TagBill, sessionID))
	if err != nil {
		return nil, err
	}

	var bill Bill
	if isNull(data) {
		return &bill, nil
	}
	if err := decodeObject(data, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}
