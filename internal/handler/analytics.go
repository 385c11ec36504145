package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/service"
	"github.com/go-chi/chi/v5"
)

// AnalyticsReporter defines the service method needed by the analytics
// handler. Satisfied by *service.AnalyticsService.
type AnalyticsReporter interface {
	Report(ctx context.Context, q service.AnalyticsQuery) (service.Report, error)
}

// AnalyticsHandler serves the sales report.
type AnalyticsHandler struct {
	svc AnalyticsReporter
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc AnalyticsReporter) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// RegisterRoutes registers the admin analytics endpoint.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/analytics", h.Report)
}

// Report handles GET /api/analytics.
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	q, err := analyticsQueryFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	report, err := h.svc.Report(r.Context(), q)
	if err != nil {
		if service.IsAnalyticsInputError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: analytics report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

type queryError string

func (e queryError) Error() string { return string(e) }

func analyticsQueryFromRequest(r *http.Request) (service.AnalyticsQuery, error) {
	v := r.URL.Query()
	q := service.AnalyticsQuery{
		DateFilter:    v.Get("date_filter"),
		StartDate:     v.Get("start_date"),
		EndDate:       v.Get("end_date"),
		PaymentFilter: v.Get("payment_filter"),
	}
	if s := v.Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return q, queryError("top must be a positive integer")
		}
		q.Top = n
	}
	return q, nil
}
