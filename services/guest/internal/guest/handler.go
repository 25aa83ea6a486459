package guest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/tableside/pkg"
	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
	"github.com/appetiteclub/tableside/services/guest/internal/backend"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
)

const MaxBodyBytes = 1 << 20

// Catalog is the read side of the backend used for menus and table listings.
type Catalog interface {
	ListCategories(ctx context.Context) ([]backend.Category, error)
	ListMenuItems(ctx context.Context) ([]backend.MenuItem, error)
	ListMenuItemsByCategory(ctx context.Context, categoryID int64) ([]backend.MenuItem, error)
	ListTables(ctx context.Context) ([]backend.Table, error)
	UpdateTableStatus(ctx context.Context, id, status string) (*backend.Table, error)
}

type Handler struct {
	logger      aqm.Logger
	tlm         *telemetry.HTTP
	terminal    *Terminal
	catalog     Catalog
	tableStates *TableStatusCache
	publisher   events.Publisher
}

type HandlerDeps struct {
	Terminal    *Terminal
	Catalog     Catalog
	TableStates *TableStatusCache
	Publisher   events.Publisher
}

func NewHandler(hd HandlerDeps, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		logger:      logger,
		tlm:         telemetry.NewHTTP(),
		terminal:    hd.Terminal,
		catalog:     hd.Catalog,
		tableStates: hd.TableStates,
		publisher:   hd.Publisher,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/guest", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/session", h.GetSession)

		r.Get("/tables", h.ListFreeTables)
		r.Post("/tables/{id}/select", h.SelectTable)

		r.Get("/categories", h.ListCategories)
		r.Get("/menu", h.ListMenu)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Post("/items/{id}/decrement", h.DecrementCartItem)
			r.Delete("/items/{id}", h.RemoveCartItem)
		})

		r.Post("/orders", h.SubmitOrder)
		r.Get("/orders", h.ListOrders)

		r.Get("/bill", h.GetBill)
		r.Post("/bill/request", h.RequestBill)
		r.Post("/settle", h.Settle)
	})

	r.Route("/waiter", func(r chi.Router) {
		r.Get("/tables", h.ListAllTables)
		r.Patch("/tables/{id}/status", h.UpdateTableStatus)
	})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AddItemRequest struct {
	MenuItemID int64 `json:"menuItemId"`
}

type TableStatusRequest struct {
	Status string `json:"status"`
}

type SessionResponse struct {
	Session Session `json:"session"`
	Active  bool    `json:"active"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Login")
	defer finish()

	log := h.log(r)

	var req LoginRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		aqm.RespondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := h.terminal.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		log.Info("login failed", "username", req.Username, "error", err)
		h.respondErr(w, err)
		return
	}

	aqm.RespondSuccess(w, result)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Logout")
	defer finish()

	if err := h.terminal.Logout(r.Context()); err != nil {
		h.log(r).Error("logout left state behind", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not clear terminal state")
		return
	}

	aqm.RespondSuccess(w, SessionResponse{})
}

// GetSession resolves the active session, adopting URL parameters when the
// terminal has none stored.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetSession")
	defer finish()

	session, ok := h.terminal.Hydrate(r.Context(), r.URL.Query())
	aqm.RespondSuccess(w, SessionResponse{Session: session, Active: ok})
}

func (h *Handler) ListFreeTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListFreeTables")
	defer finish()

	tables, ok := h.tables(w, r)
	if !ok {
		return
	}

	free := make([]backend.Table, 0, len(tables))
	for _, t := range tables {
		if t.Selectable() {
			free = append(free, t)
		}
	}
	aqm.RespondSuccess(w, free)
}

func (h *Handler) ListAllTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListAllTables")
	defer finish()

	tables, ok := h.tables(w, r)
	if !ok {
		return
	}
	aqm.RespondSuccess(w, tables)
}

func (h *Handler) SelectTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SelectTable")
	defer finish()

	tableID := chi.URLParam(r, "id")
	session, err := h.terminal.SelectTable(r.Context(), tableID)
	if err != nil {
		h.log(r).Info("table selection failed", "table_id", tableID, "error", err)
		h.respondErr(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, SessionResponse{Session: session, Active: true})
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListCategories")
	defer finish()

	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.log(r).Info("cannot list categories", "error", err)
		h.respondErr(w, err)
		return
	}
	aqm.RespondSuccess(w, categories)
}

func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListMenu")
	defer finish()

	var (
		items []backend.MenuItem
		err   error
	)
	if raw := r.URL.Query().Get("category"); raw != "" {
		categoryID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			aqm.RespondError(w, http.StatusBadRequest, "Invalid category parameter")
			return
		}
		items, err = h.catalog.ListMenuItemsByCategory(r.Context(), categoryID)
	} else {
		items, err = h.catalog.ListMenuItems(r.Context())
	}
	if err != nil {
		h.log(r).Info("cannot list menu items", "error", err)
		h.respondErr(w, err)
		return
	}
	aqm.RespondSuccess(w, items)
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetCart")
	defer finish()

	aqm.RespondSuccess(w, h.terminal.Cart())
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddCartItem")
	defer finish()

	log := h.log(r)

	var req AddItemRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if req.MenuItemID <= 0 {
		aqm.RespondError(w, http.StatusBadRequest, "menuItemId is required")
		return
	}

	cart, err := h.terminal.AddMenuItem(r.Context(), req.MenuItemID)
	if err != nil {
		log.Info("cannot add item to cart", "menu_item_id", req.MenuItemID, "error", err)
		h.respondErr(w, err)
		return
	}
	aqm.RespondSuccess(w, cart)
}

func (h *Handler) DecrementCartItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DecrementCartItem")
	defer finish()

	id, ok := h.parseItemID(w, r)
	if !ok {
		return
	}
	aqm.RespondSuccess(w, h.terminal.DecrementItem(r.Context(), id))
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemoveCartItem")
	defer finish()

	id, ok := h.parseItemID(w, r)
	if !ok {
		return
	}
	aqm.RespondSuccess(w, h.terminal.RemoveItem(r.Context(), id))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ClearCart")
	defer finish()

	aqm.RespondSuccess(w, h.terminal.ClearCart(r.Context()))
}

func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SubmitOrder")
	defer finish()

	result, err := h.terminal.SubmitCart(r.Context())
	if err != nil {
		h.log(r).Info("cannot submit cart", "error", err)
		h.respondErr(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, result)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	orders := h.terminal.Orders()
	if orders == nil {
		orders = []LocalOrder{}
	}
	aqm.RespondSuccess(w, orders)
}

func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetBill")
	defer finish()

	bill, err := h.terminal.Bill(r.Context())
	if err != nil {
		h.log(r).Info("cannot compute bill", "error", err)
		h.respondErr(w, err)
		return
	}
	aqm.RespondSuccess(w, bill)
}

func (h *Handler) RequestBill(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RequestBill")
	defer finish()

	session, err := h.terminal.RequestBill(r.Context())
	if err != nil {
		h.log(r).Info("bill request failed", "error", err)
		h.respondErr(w, err)
		return
	}
	aqm.RespondSuccess(w, session)
}

func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Settle")
	defer finish()

	bill, err := h.terminal.Settle(r.Context())
	if err != nil {
		h.log(r).Info("settle failed", "error", err)
		h.respondErr(w, err)
		return
	}
	aqm.RespondSuccess(w, bill)
}

// UpdateTableStatus lets staff move a table through its lifecycle. The change
// is announced so other terminals refresh their listings.
func (h *Handler) UpdateTableStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateTableStatus")
	defer finish()

	log := h.log(r)
	tableID := chi.URLParam(r, "id")

	var req TableStatusRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	status, ok := tablestatus.Parse(req.Status)
	if !ok {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	table, err := h.catalog.UpdateTableStatus(r.Context(), tableID, status.Code())
	if err != nil {
		log.Info("cannot update table status", "table_id", tableID, "error", err)
		h.respondErr(w, err)
		return
	}

	if h.tableStates != nil {
		h.tableStates.Set(tableID, status.Code())
	}
	h.publishTableStatus(r.Context(), tableID, status.Code(), log)

	aqm.RespondSuccess(w, table)
}

func (h *Handler) tables(w http.ResponseWriter, r *http.Request) ([]backend.Table, bool) {
	tables, err := h.catalog.ListTables(r.Context())
	if err != nil {
		h.log(r).Info("cannot list tables", "error", err)
		h.respondErr(w, err)
		return nil, false
	}
	if h.tableStates != nil {
		tables = h.tableStates.Overlay(tables)
	}
	return tables, true
}

func (h *Handler) publishTableStatus(ctx context.Context, tableID, status string, log aqm.Logger) {
	if h.publisher == nil {
		return
	}
	data, err := json.Marshal(pkg.TableStatusEvent{
		EventType:  pkg.EventTableStatusChanged,
		TableID:    tableID,
		Status:     status,
		Source:     "terminal:" + h.terminal.ID(),
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		log.Error("cannot encode table status event", "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, pkg.TableStatusTopic, data); err != nil {
		log.Info("cannot publish table status event", "table_id", tableID, "error", err)
	}
}

// respondErr maps domain and backend failures to HTTP responses.
func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoSession):
		aqm.RespondError(w, http.StatusConflict, ErrNoSession.Error())
	case errors.Is(err, ErrSessionActive):
		aqm.RespondError(w, http.StatusConflict, ErrSessionActive.Error())
	case errors.Is(err, ErrTableUnavailable):
		aqm.RespondError(w, http.StatusConflict, ErrTableUnavailable.Error())
	case errors.Is(err, ErrItemUnavailable):
		aqm.RespondError(w, http.StatusConflict, ErrItemUnavailable.Error())
	case errors.Is(err, ErrEmptyCart):
		aqm.RespondError(w, http.StatusBadRequest, ErrEmptyCart.Error())
	case errors.Is(err, ErrNoItems):
		aqm.RespondError(w, http.StatusNotFound, ErrNoItems.Error())
	case errors.Is(err, ErrTableNotFound):
		aqm.RespondError(w, http.StatusNotFound, ErrTableNotFound.Error())
	case errors.Is(err, ErrItemNotFound):
		aqm.RespondError(w, http.StatusNotFound, ErrItemNotFound.Error())
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Status {
			case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
				aqm.RespondError(w, apiErr.Status, backend.UserMessage(err))
			default:
				aqm.RespondError(w, http.StatusBadGateway, backend.UserMessage(err))
			}
			return
		}
		aqm.RespondError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

func (h *Handler) parseItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.log(r).Debug("invalid item id", "id", raw)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log aqm.Logger, dest interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dest); err != nil {
		log.Debug("failed to decode request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}
	return true
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}
