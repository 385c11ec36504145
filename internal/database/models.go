package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderStatus is the customer-visible order status.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (e *OrderStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderStatus(s)
	case string:
		*e = OrderStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderStatus: %T", src)
	}
	return nil
}

// KitchenStatus is the fulfillment state used by the kitchen workflow.
type KitchenStatus string

const (
	KitchenStatusPending   KitchenStatus = "pending"
	KitchenStatusOpen      KitchenStatus = "open"
	KitchenStatusReady     KitchenStatus = "ready"
	KitchenStatusPickedUp  KitchenStatus = "pickedup"
	KitchenStatusCancelled KitchenStatus = "cancelled"
)

func (e *KitchenStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = KitchenStatus(s)
	case string:
		*e = KitchenStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for KitchenStatus: %T", src)
	}
	return nil
}

// OrderSource tells self-service orders apart from staff-entered ones.
type OrderSource string

const (
	OrderSourceCustomer OrderSource = "customer"
	OrderSourceCounter  OrderSource = "counter"
)

func (e *OrderSource) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderSource(s)
	case string:
		*e = OrderSource(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderSource: %T", src)
	}
	return nil
}

type MenuItem struct {
	ID               uuid.UUID      `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	Price            pgtype.Numeric `json:"price"`
	Category         string         `json:"category"`
	VegNonveg        string         `json:"veg_nonveg"`
	MealType         string         `json:"meal_type"`
	AvailabilityTime string         `json:"availability_time"`
	ImageUrl         pgtype.Text    `json:"image_url"`
	IsAvailable      bool           `json:"is_available"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// LineItem is the snapshot of a menu item stored inside an order.
// Prices are fixed-point strings with two decimal places.
type LineItem struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Quantity  int32     `json:"quantity"`
	LineTotal string    `json:"line_total"`
}

type Order struct {
	ID              int64              `json:"id"`
	OrderID         string             `json:"order_id"`
	CustomerName    string             `json:"customer_name"`
	CustomerMobile  string             `json:"customer_mobile"`
	CustomerAddress pgtype.Text        `json:"customer_address"`
	Items           []LineItem         `json:"items"`
	Subtotal        pgtype.Numeric     `json:"subtotal"`
	Discount        pgtype.Numeric     `json:"discount"`
	DeliveryFee     pgtype.Numeric     `json:"delivery_fee"`
	TotalPrice      pgtype.Numeric     `json:"total_price"`
	Status          OrderStatus        `json:"status"`
	OrderStatus     KitchenStatus      `json:"order_status"`
	PaymentMethod   string             `json:"payment_method"`
	PaymentID       pgtype.Text        `json:"payment_id"`
	Source          OrderSource        `json:"source"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	ReadyTime       pgtype.Timestamptz `json:"ready_time"`
	PickupTime      pgtype.Timestamptz `json:"pickup_time"`
}

type AdminAccount struct {
	ID           uuid.UUID `json:"id"`
	Mobile       string    `json:"mobile"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
