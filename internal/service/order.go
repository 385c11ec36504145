package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/database"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/enum"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/notify"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const (
	maxOrderIDAttempts = 10
	maxNameLength      = 100
	maxPaymentIDLength = 100
	maxQuantity        = 1000
)

// Errors returned by the order service.
var (
	ErrMissingName          = errors.New("customer_name is required")
	ErrNameTooLong          = errors.New("customer_name must be at most 100 characters")
	ErrPaymentIDTooLong     = errors.New("payment_id must be at most 100 characters")
	ErrQuantityTooLarge     = errors.New("quantity must be at most 1000")
	ErrOrderTooLarge        = errors.New("order amount exceeds the maximum")
	ErrInvalidMobile        = errors.New("customer_mobile must be a 10-digit number")
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrInvalidMenuItemID    = errors.New("invalid menu item ID")
	ErrMenuItemUnavailable  = errors.New("menu item not available")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrTotalRequired        = errors.New("total_price is required")
	ErrInvalidTotal         = errors.New("invalid total_price")
	ErrTotalMismatch        = errors.New("total amount mismatch")
	ErrInvalidDiscount      = errors.New("invalid discount_type")
	ErrInvalidDiscountValue = errors.New("invalid discount_value")
	ErrInvalidAction        = errors.New("invalid action")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderIDExhausted     = errors.New("could not allocate a unique order id")
)

var mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

// TransitionError reports an action that does not apply to the order's
// current kitchen status.
type TransitionError struct {
	Action string
	From   database.KitchenStatus
	To     database.KitchenStatus
}

func (e *TransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("order is already %s", e.To)
	}
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (database.GetMenuItemForOrderRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// TransitionStore defines the DB methods needed to move orders through the
// kitchen workflow. Satisfied by *database.Queries.
type TransitionStore interface {
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	GetOrderByOrderID(ctx context.Context, orderID string) (database.Order, error)
	TransitionOrder(ctx context.Context, arg database.TransitionOrderParams) (database.Order, error)
}

// Publisher receives order events after they are committed.
type Publisher interface {
	Publish(e notify.Event)
}

// CreateOrderRequest is the input for creating an order.
type CreateOrderRequest struct {
	CustomerName    string
	CustomerMobile  string
	CustomerAddress string
	Items           []OrderItemRequest
	TotalPrice      string // client-computed total; may be empty for counter orders
	PaymentMethod   string
	PaymentID       string
	DiscountType    string // counter orders only
	DiscountValue   string
}

// OrderItemRequest is a single catalog reference in the order.
type OrderItemRequest struct {
	MenuItemID string
	Quantity   int32
}

// transition is one edge of the kitchen workflow.
type transition struct {
	from        database.KitchenStatus
	to          database.KitchenStatus
	status      database.OrderStatus
	stampReady  bool
	stampPickup bool
}

var transitions = map[string]transition{
	enum.ActionAccept:   {from: database.KitchenStatusPending, to: database.KitchenStatusOpen, status: database.OrderStatusConfirmed},
	enum.ActionReject:   {from: database.KitchenStatusPending, to: database.KitchenStatusCancelled, status: database.OrderStatusRejected},
	enum.ActionReady:    {from: database.KitchenStatusOpen, to: database.KitchenStatusReady, status: database.OrderStatusConfirmed, stampReady: true},
	enum.ActionPickedUp: {from: database.KitchenStatusReady, to: database.KitchenStatusPickedUp, status: database.OrderStatusCompleted, stampPickup: true},
	enum.ActionCancel:   {from: database.KitchenStatusOpen, to: database.KitchenStatusCancelled, status: database.OrderStatusCancelled},
}

// OrderService handles order business logic.
type OrderService struct {
	pool        TxBeginner
	newStore    NewOrderStore
	transitions TransitionStore
	pricing     Pricing
	publisher   Publisher
	newOrderID  func() (string, error)
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, transitions TransitionStore, pricing Pricing, publisher Publisher) *OrderService {
	return &OrderService{
		pool:        pool,
		newStore:    newStore,
		transitions: transitions,
		pricing:     pricing,
		publisher:   publisher,
		newOrderID:  randomOrderID,
	}
}

// pricedOrder is a validated request, ready to be priced inside a tx.
type pricedOrder struct {
	req      CreateOrderRequest
	source   database.OrderSource
	itemIDs  []uuid.UUID
	discount Discount
	client   *decimal.Decimal
	payment  string
}

// CreateCustomerOrder places a self-service order. It starts awaiting
// confirmation and must carry the client's total.
func (s *OrderService) CreateCustomerOrder(ctx context.Context, req CreateOrderRequest) (database.Order, error) {
	if strings.TrimSpace(req.TotalPrice) == "" {
		return database.Order{}, ErrTotalRequired
	}
	req.DiscountType = ""
	req.DiscountValue = ""
	return s.createOrder(ctx, req, database.OrderSourceCustomer)
}

// CreateCounterOrder places a staff-entered order, already confirmed and
// open in the kitchen.
func (s *OrderService) CreateCounterOrder(ctx context.Context, req CreateOrderRequest) (database.Order, error) {
	return s.createOrder(ctx, req, database.OrderSourceCounter)
}

func (s *OrderService) createOrder(ctx context.Context, req CreateOrderRequest, source database.OrderSource) (database.Order, error) {
	p, err := validateOrder(req, source)
	if err != nil {
		return database.Order{}, err
	}

	// Retry loop: a fresh random identifier per attempt, each in its own tx.
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		order, err := s.createOrderTx(ctx, p)
		if err == nil {
			if s.publisher != nil {
				s.publisher.Publish(notify.OrderEvent(enum.EventOrderCreated, order))
			}
			return order, nil
		}
		if isOrderIDConflict(err) {
			continue
		}
		return database.Order{}, err
	}
	return database.Order{}, ErrOrderIDExhausted
}

func validateOrder(req CreateOrderRequest, source database.OrderSource) (*pricedOrder, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerMobile = strings.TrimSpace(req.CustomerMobile)
	req.CustomerAddress = strings.TrimSpace(req.CustomerAddress)
	req.PaymentID = strings.TrimSpace(req.PaymentID)

	if req.CustomerName == "" {
		return nil, ErrMissingName
	}
	if utf8.RuneCountInString(req.CustomerName) > maxNameLength {
		return nil, ErrNameTooLong
	}
	if utf8.RuneCountInString(req.PaymentID) > maxPaymentIDLength {
		return nil, ErrPaymentIDTooLong
	}
	if !mobilePattern.MatchString(req.CustomerMobile) {
		return nil, ErrInvalidMobile
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	p := &pricedOrder{req: req, source: source, payment: enum.PaymentMethodCash}

	if m := strings.ToLower(strings.TrimSpace(req.PaymentMethod)); m != "" {
		if !enum.IsPaymentMethod(m) {
			return nil, ErrInvalidPaymentMethod
		}
		p.payment = m
	}

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if item.Quantity > maxQuantity {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrQuantityTooLarge)
		}
		id, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidMenuItemID, item.MenuItemID)
		}
		p.itemIDs = append(p.itemIDs, id)
	}

	if req.DiscountType != "" {
		if !isValidDiscountType(req.DiscountType) {
			return nil, ErrInvalidDiscount
		}
		dv, err := decimal.NewFromString(req.DiscountValue)
		if err != nil || dv.IsNegative() {
			return nil, ErrInvalidDiscountValue
		}
		if req.DiscountType == enum.DiscountTypePercentage && dv.GreaterThan(hundred) {
			return nil, ErrInvalidDiscountValue
		}
		p.discount = Discount{Type: req.DiscountType, Value: dv}
	}

	if t := strings.TrimSpace(req.TotalPrice); t != "" {
		total, err := decimal.NewFromString(t)
		if err != nil || total.IsNegative() {
			return nil, ErrInvalidTotal
		}
		p.client = &total
	}

	return p, nil
}

// isOrderIDConflict checks if the error is a unique constraint violation
// on the external order identifier (pgconn error code 23505).
func isOrderIDConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_id_key"
	}
	return false
}

// createOrderTx prices the order from live catalog rows and inserts it in a
// single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, p *pricedOrder) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	subtotal := decimal.Zero
	lines := make([]database.LineItem, 0, len(p.itemIDs))
	for i, id := range p.itemIDs {
		item, err := store.GetMenuItemForOrder(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.Order{}, fmt.Errorf("%w: %s", ErrInvalidMenuItemID, id)
			}
			return database.Order{}, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}
		if !item.IsAvailable {
			return database.Order{}, fmt.Errorf("%w: %s", ErrMenuItemUnavailable, item.Name)
		}

		qty := p.req.Items[i].Quantity
		price := database.NumericToDecimal(item.Price)
		lineTotal := price.Mul(decimal.NewFromInt32(qty))
		subtotal = subtotal.Add(lineTotal)

		lines = append(lines, database.LineItem{
			ID:        item.ID,
			Name:      item.Name,
			Price:     price.StringFixed(2),
			Quantity:  qty,
			LineTotal: lineTotal.StringFixed(2),
		})
	}

	quote := s.pricing.Quote(subtotal, p.req.CustomerAddress != "", p.discount)
	if quote.Subtotal.Add(quote.DeliveryFee).GreaterThan(database.MaxMoney) {
		return database.Order{}, fmt.Errorf("%w: %s", ErrOrderTooLarge, quote.Subtotal.StringFixed(2))
	}

	if p.client != nil && !s.pricing.Matches(quote.Total, *p.client) {
		return database.Order{}, fmt.Errorf("%w: expected %s, got %s",
			ErrTotalMismatch, quote.Total.StringFixed(2), p.client.StringFixed(2))
	}

	orderID, err := s.newOrderID()
	if err != nil {
		return database.Order{}, fmt.Errorf("generate order id: %w", err)
	}

	status, kitchen := database.OrderStatusPending, database.KitchenStatusPending
	if p.source == database.OrderSourceCounter {
		status, kitchen = database.OrderStatusConfirmed, database.KitchenStatusOpen
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderID:         orderID,
		CustomerName:    p.req.CustomerName,
		CustomerMobile:  p.req.CustomerMobile,
		CustomerAddress: optionalText(p.req.CustomerAddress),
		Items:           lines,
		Subtotal:        database.DecimalToNumeric(quote.Subtotal),
		Discount:        database.DecimalToNumeric(quote.Discount),
		DeliveryFee:     database.DecimalToNumeric(quote.DeliveryFee),
		TotalPrice:      database.DecimalToNumeric(quote.Total),
		Status:          status,
		OrderStatus:     kitchen,
		PaymentMethod:   p.payment,
		PaymentID:       optionalText(p.req.PaymentID),
		Source:          p.source,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// ApplyAction moves the order with internal id through the kitchen
// workflow. The update is conditional on the current kitchen status, so two
// concurrent actions can not both succeed.
func (s *OrderService) ApplyAction(ctx context.Context, id int64, action string) (database.Order, error) {
	t, ok := transitions[action]
	if !ok {
		return database.Order{}, ErrInvalidAction
	}

	order, err := s.transitions.TransitionOrder(ctx, database.TransitionOrderParams{
		ID:          id,
		FromStatus:  t.from,
		Status:      t.status,
		OrderStatus: t.to,
		StampReady:  t.stampReady,
		StampPickup: t.stampPickup,
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, fmt.Errorf("transition order: %w", err)
		}
		current, getErr := s.transitions.GetOrder(ctx, id)
		if getErr != nil {
			if errors.Is(getErr, pgx.ErrNoRows) {
				return database.Order{}, ErrOrderNotFound
			}
			return database.Order{}, fmt.Errorf("get order: %w", getErr)
		}
		return database.Order{}, &TransitionError{Action: action, From: current.OrderStatus, To: t.to}
	}

	if s.publisher != nil {
		s.publisher.Publish(notify.OrderEvent(enum.EventOrderStatusChanged, order))
	}
	return order, nil
}

// ApplyActionByOrderID is ApplyAction addressed by the external order
// identifier.
func (s *OrderService) ApplyActionByOrderID(ctx context.Context, orderID, action string) (database.Order, error) {
	if _, ok := transitions[action]; !ok {
		return database.Order{}, ErrInvalidAction
	}
	order, err := s.transitions.GetOrderByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	return s.ApplyAction(ctx, order.ID, action)
}

// ActionForStatus maps a target status, as sent to update-order-status, to
// the workflow action reaching it.
func ActionForStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "open", "confirmed", "accepted":
		return enum.ActionAccept, nil
	case "rejected":
		return enum.ActionReject, nil
	case "ready":
		return enum.ActionReady, nil
	case "pickedup", "picked_up", "completed":
		return enum.ActionPickedUp, nil
	case "cancelled", "canceled":
		return enum.ActionCancel, nil
	}
	return "", ErrInvalidStatus
}

// randomOrderID draws an 8-digit decimal identifier.
func randomOrderID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+10000000), nil
}

// --- Helpers ---

func isValidDiscountType(s string) bool {
	switch s {
	case enum.DiscountTypePercentage, enum.DiscountTypeFixed:
		return true
	}
	return false
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

