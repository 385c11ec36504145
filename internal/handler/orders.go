package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/database"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateCustomerOrder(ctx context.Context, req service.CreateOrderRequest) (database.Order, error)
	CreateCounterOrder(ctx context.Context, req service.CreateOrderRequest) (database.Order, error)
	ApplyAction(ctx context.Context, id int64, action string) (database.Order, error)
	ApplyActionByOrderID(ctx context.Context, orderID, action string) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	GetOrderByOrderID(ctx context.Context, orderID string) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrdersByKitchenStatus(ctx context.Context, statuses []string) ([]database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers the public order endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/place-order", h.PlaceOrder)
	r.Get("/order-status/{order_id}", h.OrderStatus)
}

// RegisterAdminRoutes registers the staff order endpoints.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/create-manual-order", h.CreateManualOrder)
	r.Post("/update-order-status", h.UpdateOrderStatus)
	r.Post("/handle-order-action", h.HandleOrderAction)
	r.Get("/pending-orders", h.PendingOrders)
	r.Get("/active-orders", h.ActiveOrders)
	r.Get("/all-orders", h.AllOrders)
	r.Get("/orders/{id}", h.Get)
}

// --- Request / Response types ---

// flexString accepts a JSON string or number. Mobile clients send order
// ids and totals both ways.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type orderItemRequest struct {
	ID         string `json:"id"`
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
}

type createOrderRequest struct {
	CustomerName    string             `json:"customer_name"`
	CustomerMobile  string             `json:"customer_mobile"`
	CustomerAddress string             `json:"customer_address"`
	Items           []orderItemRequest `json:"items"`
	TotalPrice      flexString         `json:"total_price"`
	PaymentMethod   string             `json:"payment_method"`
	PaymentID       string             `json:"payment_id"`
	DiscountType    string             `json:"discount_type"`
	DiscountValue   flexString         `json:"discount_value"`
}

func (req createOrderRequest) toService() service.CreateOrderRequest {
	items := make([]service.OrderItemRequest, len(req.Items))
	for i, it := range req.Items {
		id := it.ID
		if id == "" {
			id = it.MenuItemID
		}
		items[i] = service.OrderItemRequest{MenuItemID: strings.TrimSpace(id), Quantity: it.Quantity}
	}
	return service.CreateOrderRequest{
		CustomerName:    req.CustomerName,
		CustomerMobile:  req.CustomerMobile,
		CustomerAddress: req.CustomerAddress,
		Items:           items,
		TotalPrice:      string(req.TotalPrice),
		PaymentMethod:   req.PaymentMethod,
		PaymentID:       req.PaymentID,
		DiscountType:    req.DiscountType,
		DiscountValue:   string(req.DiscountValue),
	}
}

type updateOrderStatusRequest struct {
	ID     flexString `json:"id"`
	Status string     `json:"status"`
}

type orderActionRequest struct {
	OrderID flexString `json:"order_id"`
	Action  string     `json:"action"`
}

type lineItemResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Quantity  int32     `json:"quantity"`
	LineTotal string    `json:"line_total"`
}

type orderResponse struct {
	ID              int64              `json:"id"`
	OrderID         string             `json:"order_id"`
	CustomerName    string             `json:"customer_name"`
	CustomerMobile  string             `json:"customer_mobile"`
	CustomerAddress *string            `json:"customer_address"`
	Items           []lineItemResponse `json:"items"`
	Subtotal        string             `json:"subtotal"`
	Discount        string             `json:"discount"`
	DeliveryFee     string             `json:"delivery_fee"`
	TotalPrice      string             `json:"total_price"`
	Status          string             `json:"status"`
	OrderStatus     string             `json:"order_status"`
	PaymentMethod   string             `json:"payment_method"`
	PaymentID       *string            `json:"payment_id"`
	Source          string             `json:"source"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	ReadyTime       *time.Time         `json:"ready_time"`
	PickupTime      *time.Time         `json:"pickup_time"`
}

// orderStatusResponse is the public view of an order: no contact details.
type orderStatusResponse struct {
	OrderID     string    `json:"order_id"`
	Status      string    `json:"status"`
	OrderStatus string    `json:"order_status"`
	TotalPrice  string    `json:"total_price"`
	CreatedAt   time.Time `json:"created_at"`
}

type createOrderResponse struct {
	Success    bool          `json:"success"`
	OrderID    string        `json:"order_id"`
	TotalPrice string        `json:"total_price"`
	Order      orderResponse `json:"order"`
}

type orderActionResponse struct {
	Success bool          `json:"success"`
	Order   orderResponse `json:"order"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// PlaceOrder handles POST /api/place-order from the customer page and app.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.CreateCustomerOrder(r.Context(), req.toService())
	if err != nil {
		writeOrderError(w, "place order", err)
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		Success:    true,
		OrderID:    order.OrderID,
		TotalPrice: database.FormatNumeric(order.TotalPrice),
		Order:      dbOrderToResponse(order),
	})
}

// CreateManualOrder handles POST /api/create-manual-order for counter staff.
func (h *OrderHandler) CreateManualOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.CreateCounterOrder(r.Context(), req.toService())
	if err != nil {
		writeOrderError(w, "create manual order", err)
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		Success:    true,
		OrderID:    order.OrderID,
		TotalPrice: database.FormatNumeric(order.TotalPrice),
		Order:      dbOrderToResponse(order),
	})
}

// UpdateOrderStatus handles POST /api/update-order-status {id, status}. id
// is the internal numeric key; status is the target state.
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.ID == "" || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id and status are required"})
		return
	}

	id, err := strconv.ParseInt(string(req.ID), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	action, err := service.ActionForStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	order, err := h.svc.ApplyAction(r.Context(), id, action)
	if err != nil {
		writeOrderError(w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, orderActionResponse{Success: true, Order: dbOrderToResponse(order)})
}

// HandleOrderAction handles POST /api/handle-order-action {order_id, action}.
// order_id is the external identifier shown to customers.
func (h *OrderHandler) HandleOrderAction(w http.ResponseWriter, r *http.Request) {
	var req orderActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.OrderID == "" || req.Action == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_id and action are required"})
		return
	}

	order, err := h.svc.ApplyActionByOrderID(r.Context(), string(req.OrderID), strings.ToLower(strings.TrimSpace(req.Action)))
	if err != nil {
		writeOrderError(w, "handle order action", err)
		return
	}

	writeJSON(w, http.StatusOK, orderActionResponse{Success: true, Order: dbOrderToResponse(order)})
}

// PendingOrders lists orders awaiting confirmation, oldest first.
func (h *OrderHandler) PendingOrders(w http.ResponseWriter, r *http.Request) {
	h.listByKitchenStatus(w, r, string(database.KitchenStatusPending))
}

// ActiveOrders lists orders the kitchen is working on, oldest first.
func (h *OrderHandler) ActiveOrders(w http.ResponseWriter, r *http.Request) {
	h.listByKitchenStatus(w, r, string(database.KitchenStatusOpen), string(database.KitchenStatusReady))
}

func (h *OrderHandler) listByKitchenStatus(w http.ResponseWriter, r *http.Request, statuses ...string) {
	orders, err := h.store.ListOrdersByKitchenStatus(r.Context(), statuses)
	if err != nil {
		log.Printf("ERROR: list orders by kitchen status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// AllOrders handles GET /api/all-orders with optional filters, newest first.
func (h *OrderHandler) AllOrders(w http.ResponseWriter, r *http.Request) {
	// Parse pagination
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 200 {
		limit = 200
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		if !isValidOrderStatus(database.OrderStatus(s)) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("order_status"); s != "" {
		if !isValidKitchenStatus(database.KitchenStatus(s)) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_status"})
			return
		}
		params.OrderStatus = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("source"); s != "" {
		if s != string(database.OrderSourceCustomer) && s != string(database.OrderSourceCounter) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid source"})
			return
		}
		params.Source = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /api/orders/{id} by internal id.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// OrderStatus handles the public GET /api/order-status/{order_id} lookup.
func (h *OrderHandler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "order_id"))
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_id is required"})
		return
	}

	order, err := h.store.GetOrderByOrderID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, orderStatusResponse{
		OrderID:     order.OrderID,
		Status:      string(order.Status),
		OrderStatus: string(order.OrderStatus),
		TotalPrice:  database.FormatNumeric(order.TotalPrice),
		CreatedAt:   order.CreatedAt,
	})
}

// --- Helpers ---

// writeOrderError maps service errors to HTTP responses. Anything not
// recognised is logged and reported as a generic 500.
func writeOrderError(w http.ResponseWriter, op string, err error) {
	var te *service.TransitionError
	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &te):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": te.Error()})
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrMissingName) ||
		errors.Is(err, service.ErrNameTooLong) ||
		errors.Is(err, service.ErrPaymentIDTooLong) ||
		errors.Is(err, service.ErrQuantityTooLarge) ||
		errors.Is(err, service.ErrOrderTooLarge) ||
		errors.Is(err, service.ErrInvalidMobile) ||
		errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrMenuItemUnavailable) ||
		errors.Is(err, service.ErrInvalidPaymentMethod) ||
		errors.Is(err, service.ErrTotalRequired) ||
		errors.Is(err, service.ErrInvalidTotal) ||
		errors.Is(err, service.ErrTotalMismatch) ||
		errors.Is(err, service.ErrInvalidDiscount) ||
		errors.Is(err, service.ErrInvalidDiscountValue) ||
		errors.Is(err, service.ErrInvalidAction) ||
		errors.Is(err, service.ErrInvalidStatus)
}

// dbOrderToResponse converts a database.Order to an orderResponse.
func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		OrderID:        o.OrderID,
		CustomerName:   o.CustomerName,
		CustomerMobile: o.CustomerMobile,
		Subtotal:       database.FormatNumeric(o.Subtotal),
		Discount:       database.FormatNumeric(o.Discount),
		DeliveryFee:    database.FormatNumeric(o.DeliveryFee),
		TotalPrice:     database.FormatNumeric(o.TotalPrice),
		Status:         string(o.Status),
		OrderStatus:    string(o.OrderStatus),
		PaymentMethod:  o.PaymentMethod,
		Source:         string(o.Source),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.CustomerAddress.Valid {
		resp.CustomerAddress = &o.CustomerAddress.String
	}
	if o.PaymentID.Valid {
		resp.PaymentID = &o.PaymentID.String
	}
	if o.ReadyTime.Valid {
		resp.ReadyTime = &o.ReadyTime.Time
	}
	if o.PickupTime.Valid {
		resp.PickupTime = &o.PickupTime.Time
	}

	resp.Items = make([]lineItemResponse, len(o.Items))
	for i, it := range o.Items {
		resp.Items[i] = lineItemResponse{
			ID:        it.ID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		}
	}
	return resp
}

// isValidOrderStatus checks if the given status is a valid customer status.
func isValidOrderStatus(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusPending,
		database.OrderStatusConfirmed,
		database.OrderStatusRejected,
		database.OrderStatusCompleted,
		database.OrderStatusCancelled:
		return true
	}
	return false
}

func isValidKitchenStatus(s database.KitchenStatus) bool {
	switch s {
	case database.KitchenStatusPending,
		database.KitchenStatusOpen,
		database.KitchenStatusReady,
		database.KitchenStatusPickedUp,
		database.KitchenStatusCancelled:
		return true
	}
	return false
}
