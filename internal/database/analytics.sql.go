package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Revenue-bearing orders: accepted by the kitchen (or counter) and not
// rejected or cancelled afterwards.
const salesWhere = `
WHERE created_at >= $1 AND created_at < $2
  AND ($3::text IS NULL OR payment_method = $3)
  AND status IN ('confirmed', 'completed')
`

// AnalyticsRangeParams selects orders created in [Start, End), optionally
// restricted to one payment method.
type AnalyticsRangeParams struct {
	Start         time.Time
	End           time.Time
	PaymentMethod pgtype.Text
}

const getSalesSummary = `-- name: GetSalesSummary :one
SELECT
    COUNT(*)::bigint AS order_count,
    COALESCE(SUM(total_price), 0)::numeric(12,2) AS total_revenue,
    COALESCE(SUM(total_price) FILTER (WHERE payment_method = 'cash'), 0)::numeric(12,2) AS cash_amount,
    COALESCE(SUM(total_price) FILTER (WHERE payment_method = 'online'), 0)::numeric(12,2) AS online_amount
FROM orders` + salesWhere

type GetSalesSummaryRow struct {
	OrderCount   int64
	TotalRevenue pgtype.Numeric
	CashAmount   pgtype.Numeric
	OnlineAmount pgtype.Numeric
}

func (q *Queries) GetSalesSummary(ctx context.Context, arg AnalyticsRangeParams) (GetSalesSummaryRow, error) {
	row := q.db.QueryRow(ctx, getSalesSummary, arg.Start, arg.End, arg.PaymentMethod)
	var i GetSalesSummaryRow
	err := row.Scan(&i.OrderCount, &i.TotalRevenue, &i.CashAmount, &i.OnlineAmount)
	return i, err
}

const getTopItems = `-- name: GetTopItems :many
SELECT
    it->>'name' AS name,
    SUM((it->>'quantity')::int)::bigint AS quantity,
    COALESCE(SUM((it->>'price')::numeric * (it->>'quantity')::int), 0)::numeric(12,2) AS revenue
FROM orders o
CROSS JOIN LATERAL jsonb_array_elements(o.items) it
WHERE o.created_at >= $1 AND o.created_at < $2
  AND ($3::text IS NULL OR o.payment_method = $3)
  AND o.status IN ('confirmed', 'completed')
GROUP BY 1
ORDER BY quantity DESC, name ASC
LIMIT $4
`

type GetTopItemsRow struct {
	Name     string
	Quantity int64
	Revenue  pgtype.Numeric
}

func (q *Queries) GetTopItems(ctx context.Context, arg AnalyticsRangeParams, limit int32) ([]GetTopItemsRow, error) {
	rows, err := q.db.Query(ctx, getTopItems, arg.Start, arg.End, arg.PaymentMethod, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetTopItemsRow{}
	for rows.Next() {
		var i GetTopItemsRow
		if err := rows.Scan(&i.Name, &i.Quantity, &i.Revenue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDailySales = `-- name: GetDailySales :many
SELECT
    (created_at AT TIME ZONE $4)::date AS sale_date,
    COUNT(*)::bigint AS order_count,
    COALESCE(SUM(total_price), 0)::numeric(12,2) AS revenue
FROM orders` + salesWhere + `
GROUP BY 1
ORDER BY 1
`

type GetDailySalesRow struct {
	SaleDate   pgtype.Date
	OrderCount int64
	Revenue    pgtype.Numeric
}

func (q *Queries) GetDailySales(ctx context.Context, arg AnalyticsRangeParams, timezone string) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.Start, arg.End, arg.PaymentMethod, timezone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetDailySalesRow{}
	for rows.Next() {
		var i GetDailySalesRow
		if err := rows.Scan(&i.SaleDate, &i.OrderCount, &i.Revenue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getHourlyOrders = `-- name: GetHourlyOrders :many
SELECT
    EXTRACT(HOUR FROM created_at AT TIME ZONE $4)::int AS hour,
    COUNT(*)::bigint AS order_count
FROM orders` + salesWhere + `
GROUP BY 1
ORDER BY 1
`

type GetHourlyOrdersRow struct {
	Hour       int32
	OrderCount int64
}

func (q *Queries) GetHourlyOrders(ctx context.Context, arg AnalyticsRangeParams, timezone string) ([]GetHourlyOrdersRow, error) {
	rows, err := q.db.Query(ctx, getHourlyOrders, arg.Start, arg.End, arg.PaymentMethod, timezone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetHourlyOrdersRow{}
	for rows.Next() {
		var i GetHourlyOrdersRow
		if err := rows.Scan(&i.Hour, &i.OrderCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// BreakdownRow is one group of a GROUP BY over revenue-bearing orders.
type BreakdownRow struct {
	Key        string
	OrderCount int64
	Revenue    pgtype.Numeric
}

const getPaymentBreakdown = `-- name: GetPaymentBreakdown :many
SELECT payment_method, COUNT(*)::bigint, COALESCE(SUM(total_price), 0)::numeric(12,2)
FROM orders` + salesWhere + `
GROUP BY 1
ORDER BY 1
`

func (q *Queries) GetPaymentBreakdown(ctx context.Context, arg AnalyticsRangeParams) ([]BreakdownRow, error) {
	return q.breakdown(ctx, getPaymentBreakdown, arg)
}

const getSourceBreakdown = `-- name: GetSourceBreakdown :many
SELECT source, COUNT(*)::bigint, COALESCE(SUM(total_price), 0)::numeric(12,2)
FROM orders` + salesWhere + `
GROUP BY 1
ORDER BY 1
`

func (q *Queries) GetSourceBreakdown(ctx context.Context, arg AnalyticsRangeParams) ([]BreakdownRow, error) {
	return q.breakdown(ctx, getSourceBreakdown, arg)
}

func (q *Queries) breakdown(ctx context.Context, sql string, arg AnalyticsRangeParams) ([]BreakdownRow, error) {
	rows, err := q.db.Query(ctx, sql, arg.Start, arg.End, arg.PaymentMethod)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []BreakdownRow{}
	for rows.Next() {
		var i BreakdownRow
		if err := rows.Scan(&i.Key, &i.OrderCount, &i.Revenue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getStatusBreakdown = `-- name: GetStatusBreakdown :many
SELECT status, COUNT(*)::bigint
FROM orders
WHERE created_at >= $1 AND created_at < $2
  AND ($3::text IS NULL OR payment_method = $3)
GROUP BY 1
ORDER BY 2 DESC, 1
`

type GetStatusBreakdownRow struct {
	Status OrderStatus
	Count  int64
}

// GetStatusBreakdown counts every order in the range, including the ones
// that never became revenue.
func (q *Queries) GetStatusBreakdown(ctx context.Context, arg AnalyticsRangeParams) ([]GetStatusBreakdownRow, error) {
	rows, err := q.db.Query(ctx, getStatusBreakdown, arg.Start, arg.End, arg.PaymentMethod)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetStatusBreakdownRow{}
	for rows.Next() {
		var i GetStatusBreakdownRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
