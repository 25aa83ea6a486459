package guest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/appetiteclub/tableside/pkg"
	"github.com/appetiteclub/tableside/services/guest/internal/backend"
	"github.com/go-chi/chi/v5"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error interface{}     `json:"error"`
}

func newTestRouter(t *testing.T, be *MockBackend, pub *MockPublisher) (*Terminal, http.Handler) {
	t.Helper()
	terminal := newTestTerminal(be, NewMemoryStateStore(), pub)
	deps := HandlerDeps{
		Terminal:    terminal,
		Catalog:     be,
		TableStates: NewTableStatusCache(0),
	}
	if pub != nil {
		deps.Publisher = pub
	}
	h := NewHandler(deps, nil)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return terminal, r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		t.Fatalf("decode data: %v (body %s)", err, rec.Body.String())
	}
}

func TestNewHandler(t *testing.T) {
	h := NewHandler(HandlerDeps{}, nil)
	if h == nil {
		t.Fatal("NewHandler() returned nil")
	}
	if h.logger == nil {
		t.Error("NewHandler() should set noop logger when nil")
	}
}

func TestHandlerGuestFlow(t *testing.T) {
	be := NewMockBackend(
		backend.Table{ID: "t1", Number: "1", Status: "free"},
		backend.Table{ID: "t2", Number: "2", Status: "taken"},
	)
	_, router := newTestRouter(t, be, nil)

	rec := doRequest(t, router, http.MethodGet, "/guest/tables", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list tables status = %d", rec.Code)
	}
	var tables []backend.Table
	decodeData(t, rec, &tables)
	if len(tables) != 1 || tables[0].ID != "t1" {
		t.Fatalf("free tables = %+v, want only t1", tables)
	}

	rec = doRequest(t, router, http.MethodPost, "/guest/tables/t1/select", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("select status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPost, "/guest/cart/items", AddItemRequest{MenuItemID: 7})
	if rec.Code != http.StatusOK {
		t.Fatalf("add item status = %d, body %s", rec.Code, rec.Body.String())
	}
	var cart CartView
	decodeData(t, rec, &cart)
	if cart.Count != 1 || cart.Total != 5 {
		t.Fatalf("cart = %+v", cart)
	}

	rec = doRequest(t, router, http.MethodPost, "/guest/orders", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result SubmitResult
	decodeData(t, rec, &result)
	if result.Order.Round != 1 || result.Notice != NoticeOrderPlaced {
		t.Errorf("submit result = %+v", result)
	}

	rec = doRequest(t, router, http.MethodGet, "/guest/orders", nil)
	var orders []LocalOrder
	decodeData(t, rec, &orders)
	if len(orders) != 1 {
		t.Errorf("orders = %d, want 1", len(orders))
	}

	rec = doRequest(t, router, http.MethodGet, "/guest/bill", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("bill status = %d, body %s", rec.Code, rec.Body.String())
	}
	var bill Bill
	decodeData(t, rec, &bill)
	if bill.Total != 6 || bill.Source != BillSourceLocal {
		t.Errorf("bill = %+v", bill)
	}

	rec = doRequest(t, router, http.MethodPost, "/guest/settle", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("settle status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/guest/session", nil)
	var session SessionResponse
	decodeData(t, rec, &session)
	if session.Active {
		t.Errorf("session still active after settle: %+v", session)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		setup  func(be *MockBackend)
		status int
	}{
		{name: "submitWithoutSession", method: http.MethodPost, path: "/guest/orders", status: http.StatusConflict},
		{name: "billWithoutSession", method: http.MethodGet, path: "/guest/bill", status: http.StatusConflict},
		{name: "selectUnknownTable", method: http.MethodPost, path: "/guest/tables/zzz/select", status: http.StatusNotFound},
		{name: "invalidItemID", method: http.MethodDelete, path: "/guest/cart/items/abc", status: http.StatusBadRequest},
		{name: "missingMenuItemID", method: http.MethodPost, path: "/guest/cart/items", body: AddItemRequest{}, status: http.StatusBadRequest},
		{name: "invalidCategory", method: http.MethodGet, path: "/guest/menu?category=x", status: http.StatusBadRequest},
		{name: "loginWithoutPassword", method: http.MethodPost, path: "/guest/login", body: LoginRequest{Username: "table1"}, status: http.StatusBadRequest},
		{
			name:   "loginUnauthorized",
			method: http.MethodPost,
			path:   "/guest/login",
			body:   LoginRequest{Username: "table1", Password: "x"},
			setup: func(be *MockBackend) {
				be.LoginFunc = func(ctx context.Context, username, password string) (*backend.AuthResponse, error) {
					return nil, &backend.APIError{Status: http.StatusUnauthorized, Message: "bad credentials"}
				}
			},
			status: http.StatusUnauthorized,
		},
		{
			name:   "menuItemBackendDown",
			method: http.MethodPost,
			path:   "/guest/cart/items",
			body:   AddItemRequest{MenuItemID: 1},
			setup: func(be *MockBackend) {
				be.GetMenuItemFunc = func(ctx context.Context, id int64) (*backend.MenuItem, error) {
					return nil, errUnreachable
				}
			},
			status: http.StatusBadGateway,
		},
		{name: "invalidTableStatus", method: http.MethodPatch, path: "/waiter/tables/t1/status", body: TableStatusRequest{Status: "exploded"}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := NewMockBackend(backend.Table{ID: "t1", Number: "1", Status: "free"})
			if tt.setup != nil {
				tt.setup(be)
			}
			_, router := newTestRouter(t, be, nil)

			rec := doRequest(t, router, tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestHandlerMenu(t *testing.T) {
	_, router := newTestRouter(t, NewMockBackend(), nil)

	rec := doRequest(t, router, http.MethodGet, "/guest/menu?category=2", nil)
	var items []backend.MenuItem
	decodeData(t, rec, &items)
	if len(items) != 1 || items[0].Name != "Water" {
		t.Errorf("menu items = %+v", items)
	}

	rec = doRequest(t, router, http.MethodGet, "/guest/categories", nil)
	var categories []backend.Category
	decodeData(t, rec, &categories)
	if len(categories) != 2 {
		t.Errorf("categories = %d, want 2", len(categories))
	}
}

func TestHandlerUpdateTableStatusPublishes(t *testing.T) {
	pub := NewMockPublisher()
	be := NewMockBackend(backend.Table{ID: "t1", Number: "1", Status: "taken"})
	_, router := newTestRouter(t, be, pub)

	rec := doRequest(t, router, http.MethodPatch, "/waiter/tables/t1/status", TableStatusRequest{Status: "SERVED"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	msgs := pub.Messages(pkg.TableStatusTopic)
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	var evt pkg.TableStatusEvent
	if err := json.Unmarshal(msgs[0], &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.TableID != "t1" || evt.Status != "served" {
		t.Errorf("event = %+v", evt)
	}

	rec = doRequest(t, router, http.MethodGet, "/waiter/tables", nil)
	var tables []backend.Table
	decodeData(t, rec, &tables)
	if len(tables) != 1 || tables[0].Status != "served" {
		t.Errorf("tables = %+v", tables)
	}
}

func TestHandlerSessionHydratesFromQuery(t *testing.T) {
	terminal, router := newTestRouter(t, NewMockBackend(), nil)

	rec := doRequest(t, router, http.MethodGet, "/guest/session?tableId=4&sessionId=s4&tableNumber=4", nil)
	var resp SessionResponse
	decodeData(t, rec, &resp)

	if !resp.Active || resp.Session.SessionID != "s4" {
		t.Errorf("session = %+v", resp)
	}
	if terminal.Session().SessionID != "s4" {
		t.Error("terminal did not adopt the session from the query")
	}
}
