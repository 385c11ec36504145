package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_id, customer_name, customer_mobile, customer_address, items,
    subtotal, discount, delivery_fee, total_price, status, order_status, payment_method,
    payment_id, source, created_at, updated_at, ready_time, pickup_time`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	var items []byte
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.CustomerName,
		&i.CustomerMobile,
		&i.CustomerAddress,
		&items,
		&i.Subtotal,
		&i.Discount,
		&i.DeliveryFee,
		&i.TotalPrice,
		&i.Status,
		&i.OrderStatus,
		&i.PaymentMethod,
		&i.PaymentID,
		&i.Source,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.ReadyTime,
		&i.PickupTime,
	)
	if err != nil {
		return i, err
	}
	if err := json.Unmarshal(items, &i.Items); err != nil {
		return i, fmt.Errorf("decode items of order %d: %w", i.ID, err)
	}
	return i, nil
}

func collectOrders(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}) ([]Order, error) {
	defer rows.Close()
	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (order_id, customer_name, customer_mobile, customer_address, items,
    subtotal, discount, delivery_fee, total_price, status, order_status, payment_method,
    payment_id, source)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderID         string
	CustomerName    string
	CustomerMobile  string
	CustomerAddress pgtype.Text
	Items           []LineItem
	Subtotal        pgtype.Numeric
	Discount        pgtype.Numeric
	DeliveryFee     pgtype.Numeric
	TotalPrice      pgtype.Numeric
	Status          OrderStatus
	OrderStatus     KitchenStatus
	PaymentMethod   string
	PaymentID       pgtype.Text
	Source          OrderSource
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	items, err := json.Marshal(arg.Items)
	if err != nil {
		return Order{}, fmt.Errorf("encode items: %w", err)
	}
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderID,
		arg.CustomerName,
		arg.CustomerMobile,
		arg.CustomerAddress,
		items,
		arg.Subtotal,
		arg.Discount,
		arg.DeliveryFee,
		arg.TotalPrice,
		string(arg.Status),
		string(arg.OrderStatus),
		arg.PaymentMethod,
		arg.PaymentID,
		string(arg.Source),
	)
	return scanOrder(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	return scanOrder(row)
}

const getOrderByOrderID = `-- name: GetOrderByOrderID :one
SELECT ` + orderColumns + `
FROM orders
WHERE order_id = $1
`

func (q *Queries) GetOrderByOrderID(ctx context.Context, orderID string) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderByOrderID, orderID)
	return scanOrder(row)
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR order_status = $2)
  AND ($3::text IS NULL OR source = $3)
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5
`

type ListOrdersParams struct {
	Status      pgtype.Text
	OrderStatus pgtype.Text
	Source      pgtype.Text
	Limit       int32
	Offset      int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status,
		arg.OrderStatus,
		arg.Source,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listOrdersByKitchenStatus = `-- name: ListOrdersByKitchenStatus :many
SELECT ` + orderColumns + `
FROM orders
WHERE order_status = ANY($1::text[])
ORDER BY created_at ASC, id ASC
`

// ListOrdersByKitchenStatus returns orders in any of the given kitchen
// states, oldest first.
func (q *Queries) ListOrdersByKitchenStatus(ctx context.Context, statuses []string) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByKitchenStatus, statuses)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const transitionOrder = `-- name: TransitionOrder :one
UPDATE orders
SET status = $3,
    order_status = $4,
    ready_time = CASE WHEN $5::bool THEN now() ELSE ready_time END,
    pickup_time = CASE WHEN $6::bool THEN now() ELSE pickup_time END,
    updated_at = now()
WHERE id = $1 AND order_status = $2
RETURNING ` + orderColumns

type TransitionOrderParams struct {
	ID          int64
	FromStatus  KitchenStatus
	Status      OrderStatus
	OrderStatus KitchenStatus
	StampReady  bool
	StampPickup bool
}

// TransitionOrder moves an order to a new state only if its kitchen status
// still equals FromStatus. Returns pgx.ErrNoRows otherwise.
func (q *Queries) TransitionOrder(ctx context.Context, arg TransitionOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, transitionOrder,
		arg.ID,
		string(arg.FromStatus),
		string(arg.Status),
		string(arg.OrderStatus),
		arg.StampReady,
		arg.StampPickup,
	)
	return scanOrder(row)
}

const getOrderCounts = `-- name: GetOrderCounts :one
SELECT
    COUNT(*)::bigint AS total_orders,
    COUNT(*) FILTER (WHERE order_status = 'pending')::bigint AS pending_orders,
    COUNT(*) FILTER (WHERE order_status IN ('open', 'ready'))::bigint AS active_orders,
    COALESCE(SUM(total_price) FILTER (
        WHERE created_at >= $1 AND status IN ('confirmed', 'completed')
    ), 0)::numeric(12,2) AS revenue_since
FROM orders
`

type GetOrderCountsRow struct {
	TotalOrders   int64
	PendingOrders int64
	ActiveOrders  int64
	RevenueSince  pgtype.Numeric
}

func (q *Queries) GetOrderCounts(ctx context.Context, since time.Time) (GetOrderCountsRow, error) {
	row := q.db.QueryRow(ctx, getOrderCounts, since)
	var i GetOrderCountsRow
	err := row.Scan(&i.TotalOrders, &i.PendingOrders, &i.ActiveOrders, &i.RevenueSince)
	return i, err
}
