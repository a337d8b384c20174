package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/mavi-pizzeria/api/internal/middleware"
	"github.com/mavi-pizzeria/api/internal/printjob"
	"github.com/mavi-pizzeria/api/internal/service"
)

// --- Interfaces ---

// OrderPlacer creates orders. Satisfied by *service.OrderService.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error)
}

// OrderLifecycle reads and moves orders. Satisfied by *service.Lifecycle.
type OrderLifecycle interface {
	Get(ctx context.Context, id uuid.UUID, requester *uuid.UUID) (*service.OrderDetail, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, status string) (*service.OrderDetail, error)
	Reprint(ctx context.Context, id uuid.UUID) (printjob.Job, error)
}

// OrderListStore defines the list and report queries behind order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderListStore interface {
	ListOrdersByUser(ctx context.Context, arg database.ListOrdersByUserParams) ([]database.Order, error)
	CountOrdersByUser(ctx context.Context, userID pgtype.UUID) (int64, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	CountOrders(ctx context.Context, arg database.CountOrdersParams) (int64, error)
	GetOrderStats(ctx context.Context) (database.GetOrderStatsRow, error)
}

// OrderHandler handles customer and staff order endpoints.
type OrderHandler struct {
	orders    OrderPlacer
	lifecycle OrderLifecycle
	store     OrderListStore
	jwtSecret string
	loc       *time.Location
}

// NewOrderHandler creates a new OrderHandler. Date-only filters are read in
// loc.
func NewOrderHandler(orders OrderPlacer, lifecycle OrderLifecycle, store OrderListStore, jwtSecret string, loc *time.Location) *OrderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{
		orders:    orders,
		lifecycle: lifecycle,
		store:     store,
		jwtSecret: jwtSecret,
		loc:       loc,
	}
}

// RegisterRoutes registers customer order endpoints; mount at /orders.
// Placing and reading an order works for guests too.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(h.jwtSecret))
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
	})
	r.With(middleware.Authenticate(h.jwtSecret)).Get("/user/history", h.History)
}

// RegisterAdminRoutes registers staff order endpoints. Expected to be mounted
// behind RequireAdmin at /admin/orders.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.AdminList)
	r.Get("/stats", h.Stats)
	r.Get("/{id}", h.AdminGet)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/print", h.Print)
}

// --- Request / Response types ---

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	DeliveryType    string             `json:"delivery_type" validate:"required,oneof=DELIVERY PICKUP"`
	DeliveryAddress *addressRequest    `json:"delivery_address"`
	PaymentMethod   string             `json:"payment_method" validate:"required"`
	CustomerName    string             `json:"customer_name" validate:"max=100"`
	CustomerEmail   string             `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone   string             `json:"customer_phone" validate:"max=30"`
	CustomerNotes   string             `json:"customer_notes" validate:"max=500"`
}

type orderItemRequest struct {
	ProductID           string                 `json:"product_id" validate:"required,uuid"`
	Quantity            int32                  `json:"quantity" validate:"required,min=1,max=99"`
	Customizations      []customizationRequest `json:"customizations" validate:"max=30,dive"`
	SpecialInstructions string                 `json:"special_instructions" validate:"max=200"`
}

type customizationRequest struct {
	IngredientID string `json:"ingredient_id" validate:"required,uuid"`
	Action       string `json:"action" validate:"required"`
}

type addressRequest struct {
	Street       string `json:"street" validate:"max=200"`
	PostalCode   string `json:"postal_code" validate:"max=10"`
	City         string `json:"city" validate:"max=100"`
	Instructions string `json:"instructions" validate:"max=300"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type orderSummaryResponse struct {
	ID            uuid.UUID `json:"id"`
	OrderNumber   string    `json:"order_number"`
	Status        string    `json:"status"`
	DeliveryType  string    `json:"delivery_type"`
	PaymentMethod string    `json:"payment_method"`
	CustomerName  *string   `json:"customer_name"`
	Total         string    `json:"total"`
	CreatedAt     time.Time `json:"created_at"`
}

type orderListResponse struct {
	Orders     []orderSummaryResponse `json:"orders"`
	Pagination pagination             `json:"pagination"`
}

type orderStatsResponse struct {
	TotalOrders     int64  `json:"total_orders"`
	PendingOrders   int64  `json:"pending_orders"`
	CompletedOrders int64  `json:"completed_orders"`
	CancelledOrders int64  `json:"cancelled_orders"`
	TotalRevenue    string `json:"total_revenue"`
}

func toOrderSummary(o database.Order) orderSummaryResponse {
	return orderSummaryResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		DeliveryType:  o.DeliveryType,
		PaymentMethod: o.PaymentMethod,
		CustomerName:  textPtr(o.CustomerName),
		Total:         money(o.Total),
		CreatedAt:     o.CreatedAt,
	}
}

func (req createOrderRequest) toService(userID *uuid.UUID) (service.CreateOrderRequest, error) {
	items := make([]service.CartItem, len(req.Items))
	for i, it := range req.Items {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			return service.CreateOrderRequest{}, errInvalidID
		}
		custs := make([]service.CustomizationRequest, len(it.Customizations))
		for j, c := range it.Customizations {
			ingredientID, err := uuid.Parse(c.IngredientID)
			if err != nil {
				return service.CreateOrderRequest{}, errInvalidID
			}
			custs[j] = service.CustomizationRequest{IngredientID: ingredientID, Action: strings.ToUpper(c.Action)}
		}
		items[i] = service.CartItem{
			ProductID:           productID,
			Quantity:            it.Quantity,
			Customizations:      custs,
			SpecialInstructions: it.SpecialInstructions,
		}
	}

	out := service.CreateOrderRequest{
		UserID:        userID,
		Items:         items,
		DeliveryType:  req.DeliveryType,
		PaymentMethod: strings.ToUpper(req.PaymentMethod),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.CustomerNotes,
	}
	if a := req.DeliveryAddress; a != nil {
		out.Address = &service.AddressInput{
			Street:       a.Street,
			PostalCode:   a.PostalCode,
			City:         a.City,
			Instructions: a.Instructions,
		}
	}
	return out, nil
}

// --- Customer handlers ---

// Create places an order for a guest or the signed-in customer.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	in, err := req.toService(requesterID(r))
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), in)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusCreated, order)
}

// Get returns one order. Signed-in customers may only read their own orders.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	order, err := h.lifecycle.Get(r.Context(), id, requesterID(r))
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, order)
}

// History returns the signed-in customer's orders, newest first.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	userID := pgtype.UUID{Bytes: claims.UserID, Valid: true}
	p := parsePage(r)

	orders, err := h.store.ListOrdersByUser(r.Context(), database.ListOrdersByUserParams{
		UserID: userID,
		Limit:  p.Limit,
		Offset: p.Offset(),
	})
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	total, err := h.store.CountOrdersByUser(r.Context(), userID)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, toOrderList(orders, p.Result(total)))
}

// --- Staff handlers ---

// AdminList filters orders by ?status, ?payment_method, ?start_date and
// ?end_date. Dates are RFC 3339 or YYYY-MM-DD; a date-only end_date covers
// the whole day.
func (h *OrderHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := strings.ToUpper(q.Get("status"))
	if status != "" && !enum.IsOrderStatus(status) {
		apperr.WriteError(w, r, service.ErrInvalidStatus)
		return
	}
	method := strings.ToUpper(q.Get("payment_method"))
	if method != "" && !enum.IsPaymentMethod(method) {
		apperr.WriteError(w, r, service.ErrInvalidPaymentMethod)
		return
	}
	start, err := h.parseDate(q.Get("start_date"), false)
	if err != nil {
		apperr.WriteError(w, r, apperr.Validation("invalid start_date"))
		return
	}
	end, err := h.parseDate(q.Get("end_date"), true)
	if err != nil {
		apperr.WriteError(w, r, apperr.Validation("invalid end_date"))
		return
	}
	p := parsePage(r)

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		Status:        database.Text(status),
		PaymentMethod: database.Text(method),
		StartDate:     start,
		EndDate:       end,
		Limit:         p.Limit,
		Offset:        p.Offset(),
	})
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	total, err := h.store.CountOrders(r.Context(), database.CountOrdersParams{
		Status:        database.Text(status),
		PaymentMethod: database.Text(method),
		StartDate:     start,
		EndDate:       end,
	})
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, toOrderList(orders, p.Result(total)))
}

// AdminGet returns any order.
func (h *OrderHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	order, err := h.lifecycle.Get(r.Context(), id, nil)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, order)
}

// Stats returns order counts and revenue. Cancelled orders earn nothing.
func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetOrderStats(r.Context())
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, orderStatsResponse{
		TotalOrders:     stats.TotalOrders,
		PendingOrders:   stats.PendingOrders,
		CompletedOrders: stats.CompletedOrders,
		CancelledOrders: stats.CancelledOrders,
		TotalRevenue:    money(stats.TotalRevenue),
	})
}

// UpdateStatus moves an order along its lifecycle.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	order, err := h.lifecycle.ChangeStatus(r.Context(), id, strings.ToUpper(req.Status))
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusOK, order)
}

// Print queues a fresh receipt for an order.
func (h *OrderHandler) Print(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}

	job, err := h.lifecycle.Reprint(r.Context(), id)
	if err != nil {
		apperr.WriteError(w, r, err)
		return
	}
	apperr.WriteData(w, http.StatusCreated, job)
}

// --- Helpers ---

// requesterID returns the signed-in customer's id, or nil for guests and
// staff.
func requesterID(r *http.Request) *uuid.UUID {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.IsAdmin() {
		return nil
	}
	id := claims.UserID
	return &id
}

func toOrderList(orders []database.Order, pg pagination) orderListResponse {
	resp := orderListResponse{
		Orders:     make([]orderSummaryResponse, len(orders)),
		Pagination: pg,
	}
	for i, o := range orders {
		resp.Orders[i] = toOrderSummary(o)
	}
	return resp
}

func (h *OrderHandler) parseDate(s string, endOfRange bool) (pgtype.Timestamptz, error) {
	if s == "" {
		return pgtype.Timestamptz{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return pgtype.Timestamptz{Time: t, Valid: true}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, h.loc)
	if err != nil {
		return pgtype.Timestamptz{}, err
	}
	if endOfRange {
		t = t.AddDate(0, 0, 1)
	}
	return pgtype.Timestamptz{Time: t, Valid: true}, nil
}
