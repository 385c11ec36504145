package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/database"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/enum"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// MenuHandler handles menu item CRUD endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers the public catalog listing.
// Expected to be mounted at /menu-items behind OptionalAuthenticate.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// RegisterAdminRoutes registers menu management endpoints.
// Expected to be mounted at /menu-items behind Authenticate.
func (h *MenuHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type menuItemRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Price            string `json:"price"`
	Category         string `json:"category"`
	VegNonveg        string `json:"veg_nonveg"`
	MealType         string `json:"meal_type"`
	AvailabilityTime string `json:"availability_time"`
	ImageURL         string `json:"image_url"`
	IsAvailable      *bool  `json:"is_available"`
}

type menuItemResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Price            string    `json:"price"`
	Category         string    `json:"category"`
	VegNonveg        string    `json:"veg_nonveg"`
	MealType         string    `json:"meal_type"`
	AvailabilityTime string    `json:"availability_time"`
	ImageURL         *string   `json:"image_url"`
	IsAvailable      bool      `json:"is_available"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:               m.ID,
		Name:             m.Name,
		Description:      m.Description,
		Price:            database.FormatNumeric(m.Price),
		Category:         m.Category,
		VegNonveg:        m.VegNonveg,
		MealType:         m.MealType,
		AvailabilityTime: m.AvailabilityTime,
		IsAvailable:      m.IsAvailable,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.ImageUrl.Valid {
		resp.ImageURL = &m.ImageUrl.String
	}
	return resp
}

// menuItemFields is a validated menuItemRequest.
type menuItemFields struct {
	name, description, category string
	vegNonveg, mealType, avail  string
	price                       pgtype.Numeric
	imageURL                    pgtype.Text
	isAvailable                 bool
}

func (f menuItemFields) createParams() database.CreateMenuItemParams {
	return database.CreateMenuItemParams{
		Name:             f.name,
		Description:      f.description,
		Price:            f.price,
		Category:         f.category,
		VegNonveg:        f.vegNonveg,
		MealType:         f.mealType,
		AvailabilityTime: f.avail,
		ImageUrl:         f.imageURL,
		IsAvailable:      f.isAvailable,
	}
}

func (f menuItemFields) updateParams(id uuid.UUID) database.UpdateMenuItemParams {
	return database.UpdateMenuItemParams{
		ID:               id,
		Name:             f.name,
		Description:      f.description,
		Price:            f.price,
		Category:         f.category,
		VegNonveg:        f.vegNonveg,
		MealType:         f.mealType,
		AvailabilityTime: f.avail,
		ImageUrl:         f.imageURL,
		IsAvailable:      f.isAvailable,
	}
}

// menuValidationError carries a message safe to show the caller.
type menuValidationError struct{ msg string }

func (e *menuValidationError) Error() string { return e.msg }

var (
	errNegativePrice  = errors.New("negative price")
	errPricePrecision = errors.New("price has more than 2 decimal places")
	errPriceTooLarge  = errors.New("price too large")
)

// Column widths of menu_items text fields.
var menuFieldLimits = []struct {
	field string
	max   int
	value func(f menuItemFields) string
}{
	{"name", 100, func(f menuItemFields) string { return f.name }},
	{"category", 50, func(f menuItemFields) string { return f.category }},
	{"meal_type", 50, func(f menuItemFields) string { return f.mealType }},
	{"availability_time", 100, func(f menuItemFields) string { return f.avail }},
}

func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errNegativePrice
	}
	if !d.Equal(d.Truncate(2)) {
		return pgtype.Numeric{}, errPricePrecision
	}
	if d.GreaterThan(database.MaxMoney) {
		return pgtype.Numeric{}, errPriceTooLarge
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

// validateMenuItem is shared by the JSON API and the admin menu form.
func validateMenuItem(req menuItemRequest) (menuItemFields, error) {
	f := menuItemFields{
		name:        strings.TrimSpace(req.Name),
		description: strings.TrimSpace(req.Description),
		category:    strings.TrimSpace(req.Category),
		vegNonveg:   strings.ToLower(strings.TrimSpace(req.VegNonveg)),
		mealType:    strings.TrimSpace(req.MealType),
		avail:       strings.TrimSpace(req.AvailabilityTime),
		isAvailable: true,
	}
	if req.IsAvailable != nil {
		f.isAvailable = *req.IsAvailable
	}

	if f.name == "" {
		return f, &menuValidationError{"name is required"}
	}
	for _, l := range menuFieldLimits {
		if utf8.RuneCountInString(l.value(f)) > l.max {
			return f, &menuValidationError{fmt.Sprintf("%s must be at most %d characters", l.field, l.max)}
		}
	}
	if strings.TrimSpace(req.Price) == "" {
		return f, &menuValidationError{"price is required"}
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		switch {
		case errors.Is(err, errNegativePrice):
			return f, &menuValidationError{"price must be >= 0"}
		case errors.Is(err, errPricePrecision):
			return f, &menuValidationError{"price must have at most 2 decimal places"}
		case errors.Is(err, errPriceTooLarge):
			return f, &menuValidationError{"price must be at most " + database.MaxMoney.StringFixed(2)}
		}
		return f, &menuValidationError{"invalid price"}
	}
	f.price = price

	if f.vegNonveg == "" {
		f.vegNonveg = enum.FoodTypeVeg
	}
	if !enum.IsFoodType(f.vegNonveg) {
		return f, &menuValidationError{"veg_nonveg must be veg or non-veg"}
	}

	if u := strings.TrimSpace(req.ImageURL); u != "" {
		f.imageURL = pgtype.Text{String: u, Valid: true}
	}
	return f, nil
}

// --- Handlers ---

// List returns the catalog. Only available items are listed unless an
// authenticated admin asks for all=true.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	params := database.ListMenuItemsParams{}
	if c := strings.TrimSpace(r.URL.Query().Get("category")); c != "" {
		params.Category = pgtype.Text{String: c, Valid: true}
	}
	if r.URL.Query().Get("all") == "true" && middleware.ClaimsFromContext(r.Context()) != nil {
		params.IncludeUnavailable = true
	}

	items, err := h.store.ListMenuItems(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single menu item by ID.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Create adds a new menu item.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	fields, err := validateMenuItem(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), fields.createParams())
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update replaces an existing menu item. Orders already placed keep their
// own copy of the item.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	fields, err := validateMenuItem(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), fields.updateParams(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete hard-deletes a menu item.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	_, err = h.store.DeleteMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
