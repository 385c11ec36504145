package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/database"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/enum"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	dateLayout      = "2006-01-02"
	defaultTopItems = 10
	maxTopItems     = 50
)

// Errors returned by the analytics service.
var (
	ErrInvalidDateFilter    = errors.New("invalid date_filter")
	ErrInvalidPaymentFilter = errors.New("invalid payment_filter")
	ErrCustomRangeRequired  = errors.New("start_date and end_date are required for a custom range")
	ErrInvalidDate          = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidRange         = errors.New("start_date must not be after end_date")
)

// AnalyticsStore defines the DB methods needed for the sales report.
// Satisfied by *database.Queries.
type AnalyticsStore interface {
	GetSalesSummary(ctx context.Context, arg database.AnalyticsRangeParams) (database.GetSalesSummaryRow, error)
	GetTopItems(ctx context.Context, arg database.AnalyticsRangeParams, limit int32) ([]database.GetTopItemsRow, error)
	GetDailySales(ctx context.Context, arg database.AnalyticsRangeParams, timezone string) ([]database.GetDailySalesRow, error)
	GetHourlyOrders(ctx context.Context, arg database.AnalyticsRangeParams, timezone string) ([]database.GetHourlyOrdersRow, error)
	GetPaymentBreakdown(ctx context.Context, arg database.AnalyticsRangeParams) ([]database.BreakdownRow, error)
	GetSourceBreakdown(ctx context.Context, arg database.AnalyticsRangeParams) ([]database.BreakdownRow, error)
	GetStatusBreakdown(ctx context.Context, arg database.AnalyticsRangeParams) ([]database.GetStatusBreakdownRow, error)
}

// AnalyticsQuery is the caller's filter, as received from query params.
type AnalyticsQuery struct {
	DateFilter    string
	StartDate     string
	EndDate       string
	PaymentFilter string
	Top           int
}

// DateRange is a half-open [Start, End) interval in the report timezone.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Report is the aggregated sales view. Money values are decimal strings.
type Report struct {
	DateFilter     string         `json:"date_filter"`
	PaymentFilter  string         `json:"payment_filter"`
	StartDate      string         `json:"start_date"`
	EndDate        string         `json:"end_date"`
	Metrics        Metrics        `json:"metrics"`
	TopItems       []TopItem      `json:"top_items"`
	Daily          []DailySales   `json:"daily"`
	Hourly         []HourlyOrders `json:"hourly"`
	PaymentMethods []Breakdown    `json:"payment_methods"`
	Sources        []Breakdown    `json:"sources"`
	Statuses       []StatusCount  `json:"statuses"`
}

type Metrics struct {
	TotalRevenue  string `json:"total_revenue"`
	TotalOrders   int64  `json:"total_orders"`
	AvgOrderValue string `json:"avg_order_value"`
	CashAmount    string `json:"cash_amount"`
	OnlineAmount  string `json:"online_amount"`
}

type TopItem struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Revenue  string `json:"revenue"`
}

type DailySales struct {
	Date    string `json:"date"`
	Orders  int64  `json:"orders"`
	Revenue string `json:"revenue"`
}

type HourlyOrders struct {
	Hour   int32 `json:"hour"`
	Orders int64 `json:"orders"`
}

type Breakdown struct {
	Key     string `json:"key"`
	Orders  int64  `json:"orders"`
	Revenue string `json:"revenue"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// AnalyticsService builds sales reports over a date range.
type AnalyticsService struct {
	store AnalyticsStore
	loc   *time.Location
	now   func() time.Time
}

// NewAnalyticsService creates an AnalyticsService reporting in loc.
func NewAnalyticsService(store AnalyticsStore, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{store: store, loc: loc, now: time.Now}
}

// ResolveRange turns a date filter into a concrete range. An empty filter
// means today.
func (s *AnalyticsService) ResolveRange(filter, startDate, endDate string) (DateRange, error) {
	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	tomorrow := today.AddDate(0, 0, 1)

	switch strings.ToLower(strings.TrimSpace(filter)) {
	case "", enum.DateFilterToday:
		return DateRange{Start: today, End: tomorrow}, nil
	case enum.DateFilterYesterday:
		return DateRange{Start: today.AddDate(0, 0, -1), End: today}, nil
	case enum.DateFilterWeek:
		// Weeks start on Monday.
		offset := (int(today.Weekday()) + 6) % 7
		return DateRange{Start: today.AddDate(0, 0, -offset), End: tomorrow}, nil
	case enum.DateFilterMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.loc)
		return DateRange{Start: first, End: tomorrow}, nil
	case enum.DateFilterCustom:
		if startDate == "" || endDate == "" {
			return DateRange{}, ErrCustomRangeRequired
		}
		start, err := time.ParseInLocation(dateLayout, startDate, s.loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: start_date %q", ErrInvalidDate, startDate)
		}
		end, err := time.ParseInLocation(dateLayout, endDate, s.loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: end_date %q", ErrInvalidDate, endDate)
		}
		if start.After(end) {
			return DateRange{}, ErrInvalidRange
		}
		return DateRange{Start: start, End: end.AddDate(0, 0, 1)}, nil
	}
	return DateRange{}, ErrInvalidDateFilter
}

// Report runs every aggregate for the query. Queries run concurrently; the
// first failure cancels the rest.
func (s *AnalyticsService) Report(ctx context.Context, q AnalyticsQuery) (Report, error) {
	dr, err := s.ResolveRange(q.DateFilter, q.StartDate, q.EndDate)
	if err != nil {
		return Report{}, err
	}

	paymentFilter := strings.ToLower(strings.TrimSpace(q.PaymentFilter))
	var payment pgtype.Text
	switch paymentFilter {
	case "", enum.PaymentFilterAll:
		paymentFilter = enum.PaymentFilterAll
	case enum.PaymentFilterCash, enum.PaymentFilterOnline:
		payment = pgtype.Text{String: paymentFilter, Valid: true}
	default:
		return Report{}, ErrInvalidPaymentFilter
	}

	top := q.Top
	if top <= 0 {
		top = defaultTopItems
	}
	if top > maxTopItems {
		top = maxTopItems
	}

	arg := database.AnalyticsRangeParams{Start: dr.Start, End: dr.End, PaymentMethod: payment}
	tz := s.loc.String()

	var (
		summary  database.GetSalesSummaryRow
		topItems []database.GetTopItemsRow
		daily    []database.GetDailySalesRow
		hourly   []database.GetHourlyOrdersRow
		payments []database.BreakdownRow
		sources  []database.BreakdownRow
		statuses []database.GetStatusBreakdownRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		summary, err = s.store.GetSalesSummary(gctx, arg)
		return wrapQuery("sales summary", err)
	})
	g.Go(func() (err error) {
		topItems, err = s.store.GetTopItems(gctx, arg, int32(top))
		return wrapQuery("top items", err)
	})
	g.Go(func() (err error) {
		daily, err = s.store.GetDailySales(gctx, arg, tz)
		return wrapQuery("daily sales", err)
	})
	g.Go(func() (err error) {
		hourly, err = s.store.GetHourlyOrders(gctx, arg, tz)
		return wrapQuery("hourly orders", err)
	})
	g.Go(func() (err error) {
		payments, err = s.store.GetPaymentBreakdown(gctx, arg)
		return wrapQuery("payment breakdown", err)
	})
	g.Go(func() (err error) {
		sources, err = s.store.GetSourceBreakdown(gctx, arg)
		return wrapQuery("source breakdown", err)
	})
	g.Go(func() (err error) {
		statuses, err = s.store.GetStatusBreakdown(gctx, arg)
		return wrapQuery("status breakdown", err)
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	revenue := database.NumericToDecimal(summary.TotalRevenue)
	avg := decimal.Zero
	if summary.OrderCount > 0 {
		avg = revenue.Div(decimal.NewFromInt(summary.OrderCount))
	}

	report := Report{
		DateFilter:    dateFilterName(q.DateFilter),
		PaymentFilter: paymentFilter,
		StartDate:     dr.Start.Format(dateLayout),
		EndDate:       dr.End.AddDate(0, 0, -1).Format(dateLayout),
		Metrics: Metrics{
			TotalRevenue:  revenue.StringFixed(2),
			TotalOrders:   summary.OrderCount,
			AvgOrderValue: avg.StringFixed(2),
			CashAmount:    database.NumericToDecimal(summary.CashAmount).StringFixed(2),
			OnlineAmount:  database.NumericToDecimal(summary.OnlineAmount).StringFixed(2),
		},
		TopItems:       make([]TopItem, 0, len(topItems)),
		Daily:          make([]DailySales, 0, len(daily)),
		Hourly:         make([]HourlyOrders, 24),
		PaymentMethods: toBreakdown(payments),
		Sources:        toBreakdown(sources),
		Statuses:       make([]StatusCount, 0, len(statuses)),
	}

	for _, row := range topItems {
		report.TopItems = append(report.TopItems, TopItem{
			Name:     row.Name,
			Quantity: row.Quantity,
			Revenue:  database.NumericToDecimal(row.Revenue).StringFixed(2),
		})
	}
	for _, row := range daily {
		date := "N/A"
		if row.SaleDate.Valid {
			date = row.SaleDate.Time.Format(dateLayout)
		}
		report.Daily = append(report.Daily, DailySales{
			Date:    date,
			Orders:  row.OrderCount,
			Revenue: database.NumericToDecimal(row.Revenue).StringFixed(2),
		})
	}
	for h := range report.Hourly {
		report.Hourly[h].Hour = int32(h)
	}
	for _, row := range hourly {
		if row.Hour >= 0 && row.Hour < 24 {
			report.Hourly[row.Hour].Orders = row.OrderCount
		}
	}
	for _, row := range statuses {
		report.Statuses = append(report.Statuses, StatusCount{Status: string(row.Status), Count: row.Count})
	}

	return report, nil
}

func wrapQuery(name string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func toBreakdown(rows []database.BreakdownRow) []Breakdown {
	out := make([]Breakdown, 0, len(rows))
	for _, row := range rows {
		out = append(out, Breakdown{
			Key:     row.Key,
			Orders:  row.OrderCount,
			Revenue: database.NumericToDecimal(row.Revenue).StringFixed(2),
		})
	}
	return out
}

func dateFilterName(filter string) string {
	f := strings.ToLower(strings.TrimSpace(filter))
	if f == "" {
		return enum.DateFilterToday
	}
	return f
}

// IsAnalyticsInputError reports whether err came from a bad filter rather
// than the database.
func IsAnalyticsInputError(err error) bool {
	return errors.Is(err, ErrInvalidDateFilter) ||
		errors.Is(err, ErrInvalidPaymentFilter) ||
		errors.Is(err, ErrCustomRangeRequired) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidRange)
}
