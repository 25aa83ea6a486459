package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

func (c *Client) ListTables(ctx context.Context) ([]Table, error) {
	data, err := c.get(ctx, "/tables", TagTable)
	if err != nil {
		return nil, err
	}

	var tables []Table
	if err := decodeCollection(data, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

func (c *Client) GetTable(ctx context.Context, id string) (*Table, error) {
	if id == "" {
		return nil, fmt.Errorf("missing table id")
	}

	data, err := c.get(ctx, "/tables/"+url.PathEscape(id), TagTable, idTag(TagTable, id))
	if err != nil {
		return nil, err
	}

	var table Table
	if err := decodeObject(data, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// GetTableSession returns the table's current session, or nil when it has none.
func (c *Client) GetTableSession(ctx context.Context, tableID string) (*TableSession, error) {
	if tableID == "" {
		return nil, fmt.Errorf("missing table id")
	}

	path := fmt.Sprintf("/tables/%s/session", url.PathEscape(tableID))
	data, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if isNull(data) {
		return nil, nil
	}

	var session TableSession
	if err := decodeObject(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateTableStatus is the waiter-side transition. The backend expects
// upper-case status names.
func (c *Client) UpdateTableStatus(ctx context.Context, id, status string) (*Table, error) {
	if id == "" {
		return nil, fmt.Errorf("missing table id")
	}
	if status == "" {
		return nil, fmt.Errorf("missing status")
	}

	path := fmt.Sprintf("/tables/%s/status", url.PathEscape(id))
	query := url.Values{"status": []string{strings.ToUpper(status)}}
	data, err := c.mutate(ctx, http.MethodPatch, path, query, nil, TagTable)
	if err != nil {
		return nil, err
	}

	var table Table
	if err := decodeObject(data, &table); err != nil {
		return nil, err
	}
	return &table, nil
}
