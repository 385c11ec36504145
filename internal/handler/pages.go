package handler

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/auth"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/database"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/middleware"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{"login", "dashboard", "orders", "menu", "menu_edit", "analytics", "settings", "customer"}

// PageStore defines the database methods needed by the server-rendered
// pages. Satisfied by *database.Queries.
type PageStore interface {
	MenuStore
	GetOrderCounts(ctx context.Context, since time.Time) (database.GetOrderCountsRow, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrdersByKitchenStatus(ctx context.Context, statuses []string) ([]database.Order, error)
	ListAdmins(ctx context.Context) ([]database.AdminAccount, error)
}

// SiteSettings is the read-only configuration shown on the settings page
// and used by the customer page to preview totals.
type SiteSettings struct {
	DeliveryFee           string
	FreeDeliveryThreshold string
	Timezone              string
	FCMTopic              string
	FCMEnabled            bool
	AMQPExchange          string
	AMQPEnabled           bool
}

// PageHandler renders the admin pages and the customer ordering page.
type PageHandler struct {
	store     PageStore
	orders    OrderServicer
	analytics AnalyticsReporter
	auth      *AuthHandler
	sessions  sessions.Store
	settings  SiteSettings
	loc       *time.Location
	pages     map[string]*template.Template
}

// NewPageHandler parses the embedded templates.
func NewPageHandler(store PageStore, orders OrderServicer, analytics AnalyticsReporter, authHandler *AuthHandler,
	sessionStore sessions.Store, settings SiteSettings, loc *time.Location) (*PageHandler, error) {
	if loc == nil {
		loc = time.UTC
	}
	h := &PageHandler{
		store:     store,
		orders:    orders,
		analytics: analytics,
		auth:      authHandler,
		sessions:  sessionStore,
		settings:  settings,
		loc:       loc,
		pages:     make(map[string]*template.Template),
	}

	funcs := template.FuncMap{
		"fmtTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format("02 Jan 2006 15:04")
		},
		// checked treats an unset availability as available.
		"checked": func(b *bool) bool { return b == nil || *b },
		"list":    func(v ...interface{}) []interface{} { return v },
		"dict": func(kv ...interface{}) (map[string]interface{}, error) {
			if len(kv)%2 != 0 {
				return nil, errors.New("dict: odd number of arguments")
			}
			m := make(map[string]interface{}, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				k, ok := kv[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
				}
				m[k] = kv[i+1]
			}
			return m, nil
		},
	}
	base, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parse base template: %w", err)
	}
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		t, err := clone.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		h.pages[name] = t
	}
	return h, nil
}

// RegisterRoutes registers the pages reachable without a session.
func (h *PageHandler) RegisterRoutes(r chi.Router) {
	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/", h.Customer)
	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
}

// RegisterAdminRoutes registers the pages behind RequireAdminPage.
func (h *PageHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/logout", h.Logout)
	r.Get("/logout", h.Logout)
	r.Get("/dashboard", h.Dashboard)
	r.Get("/orders", h.Orders)
	r.Post("/orders/{id}/action", h.OrderAction)
	r.Get("/menu", h.Menu)
	r.Post("/menu", h.CreateMenuItem)
	r.Get("/menu/{id}/edit", h.EditMenuItem)
	r.Post("/menu/{id}", h.UpdateMenuItem)
	r.Post("/menu/{id}/delete", h.DeleteMenuItem)
	r.Get("/analytics", h.Analytics)
	r.Get("/settings", h.Settings)
}

// pageData is passed to every template.
type pageData struct {
	Title     string
	Admin     *auth.Claims
	CSRFField template.HTML
	Flash     string
	Error     string
	Data      interface{}
}

// --- Public pages ---

type customerPageData struct {
	Categories            []menuCategory
	DeliveryFee           string
	FreeDeliveryThreshold string
}

type menuCategory struct {
	Name  string
	Items []menuItemResponse
}

// Customer renders the self-service ordering page.
func (h *PageHandler) Customer(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenuItems(r.Context(), database.ListMenuItemsParams{})
	if err != nil {
		h.serverError(w, "list menu items", err)
		return
	}

	var cats []menuCategory
	for _, m := range items {
		name := m.Category
		if name == "" {
			name = "Menu"
		}
		if len(cats) == 0 || cats[len(cats)-1].Name != name {
			cats = append(cats, menuCategory{Name: name})
		}
		cats[len(cats)-1].Items = append(cats[len(cats)-1].Items, toMenuItemResponse(m))
	}

	h.render(w, r, http.StatusOK, "customer", pageData{
		Title: "Vanita Lunch Home",
		Data: customerPageData{
			Categories:            cats,
			DeliveryFee:           h.settings.DeliveryFee,
			FreeDeliveryThreshold: h.settings.FreeDeliveryThreshold,
		},
	})
}

// LoginForm renders the admin login form. A valid session skips it.
func (h *PageHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if tok := middleware.SessionToken(r, h.sessions); tok != "" {
		if _, err := auth.ValidateToken(h.auth.jwtSecret, tok); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
	}
	h.render(w, r, http.StatusOK, "login", pageData{Title: "Admin Login"})
}

// Login handles the login form post.
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "login", pageData{Title: "Admin Login", Error: "invalid form"})
		return
	}

	mobile := strings.TrimSpace(r.PostFormValue("mobile"))
	password := r.PostFormValue("password")
	if mobile == "" || password == "" {
		h.render(w, r, http.StatusBadRequest, "login", pageData{Title: "Admin Login", Error: "mobile and password are required"})
		return
	}

	resp, err := h.auth.authenticate(r.Context(), mobile, password)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			h.render(w, r, http.StatusUnauthorized, "login", pageData{Title: "Admin Login", Error: "invalid credentials"})
			return
		}
		h.serverError(w, "login", err)
		return
	}

	if err := middleware.SaveSessionToken(w, r, h.sessions, resp.Token); err != nil {
		h.serverError(w, "save session", err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// --- Admin pages ---

// Logout clears the session and returns to the login page.
func (h *PageHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := middleware.ClearSession(w, r, h.sessions); err != nil {
		log.Printf("ERROR: clear session: %v", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type dashboardData struct {
	TotalOrders   int64
	PendingOrders int64
	ActiveOrders  int64
	TodayRevenue  string
	Pending       []orderResponse
}

// Dashboard shows order counts, today's revenue and the orders waiting
// for confirmation.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(h.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)

	counts, err := h.store.GetOrderCounts(r.Context(), today)
	if err != nil {
		h.serverError(w, "get order counts", err)
		return
	}
	pending, err := h.store.ListOrdersByKitchenStatus(r.Context(), []string{string(database.KitchenStatusPending)})
	if err != nil {
		h.serverError(w, "list pending orders", err)
		return
	}

	h.render(w, r, http.StatusOK, "dashboard", pageData{
		Title: "Dashboard",
		Data: dashboardData{
			TotalOrders:   counts.TotalOrders,
			PendingOrders: counts.PendingOrders,
			ActiveOrders:  counts.ActiveOrders,
			TodayRevenue:  database.FormatNumeric(counts.RevenueSince),
			Pending:       toOrderResponses(pending),
		},
	})
}

type ordersPageData struct {
	Pending []orderResponse
	Open    []orderResponse
	Ready   []orderResponse
	Recent  []orderResponse
}

// Orders shows the kitchen board and the most recent orders.
func (h *PageHandler) Orders(w http.ResponseWriter, r *http.Request) {
	active, err := h.store.ListOrdersByKitchenStatus(r.Context(), []string{
		string(database.KitchenStatusPending),
		string(database.KitchenStatusOpen),
		string(database.KitchenStatusReady),
	})
	if err != nil {
		h.serverError(w, "list active orders", err)
		return
	}
	recent, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{Limit: 50})
	if err != nil {
		h.serverError(w, "list recent orders", err)
		return
	}

	var data ordersPageData
	for _, o := range active {
		resp := dbOrderToResponse(o)
		switch o.OrderStatus {
		case database.KitchenStatusPending:
			data.Pending = append(data.Pending, resp)
		case database.KitchenStatusOpen:
			data.Open = append(data.Open, resp)
		case database.KitchenStatusReady:
			data.Ready = append(data.Ready, resp)
		}
	}
	data.Recent = toOrderResponses(recent)

	h.render(w, r, http.StatusOK, "orders", pageData{Title: "Orders", Data: data})
}

// OrderAction applies a kitchen workflow action from the orders board.
func (h *PageHandler) OrderAction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid order ID", http.StatusBadRequest)
		return
	}

	action := strings.ToLower(strings.TrimSpace(r.PostFormValue("action")))
	order, err := h.orders.ApplyAction(r.Context(), id, action)
	if err != nil {
		var te *service.TransitionError
		switch {
		case errors.As(err, &te), errors.Is(err, service.ErrInvalidAction):
			h.flash(w, r, err.Error())
		case errors.Is(err, service.ErrOrderNotFound):
			h.flash(w, r, "order not found")
		default:
			h.serverError(w, "order action", err)
			return
		}
	} else {
		h.flash(w, r, fmt.Sprintf("Order #%s is now %s.", order.OrderID, order.OrderStatus))
	}
	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}

type menuPageData struct {
	Items []menuItemResponse
	Form  menuItemRequest
}

// Menu lists every menu item, including unavailable ones, with an add form.
func (h *PageHandler) Menu(w http.ResponseWriter, r *http.Request) {
	h.renderMenu(w, r, http.StatusOK, menuItemRequest{}, "")
}

func (h *PageHandler) renderMenu(w http.ResponseWriter, r *http.Request, status int, form menuItemRequest, formErr string) {
	items, err := h.store.ListMenuItems(r.Context(), database.ListMenuItemsParams{IncludeUnavailable: true})
	if err != nil {
		h.serverError(w, "list menu items", err)
		return
	}
	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	h.render(w, r, status, "menu", pageData{
		Title: "Menu",
		Error: formErr,
		Data:  menuPageData{Items: resp, Form: form},
	})
}

// CreateMenuItem handles the add form.
func (h *PageHandler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	req := menuItemFromForm(r)
	fields, err := validateMenuItem(req)
	if err != nil {
		h.renderMenu(w, r, http.StatusBadRequest, req, err.Error())
		return
	}
	item, err := h.store.CreateMenuItem(r.Context(), fields.createParams())
	if err != nil {
		h.serverError(w, "create menu item", err)
		return
	}
	h.flash(w, r, fmt.Sprintf("Added %s.", item.Name))
	http.Redirect(w, r, "/menu", http.StatusSeeOther)
}

type menuEditData struct {
	ID   uuid.UUID
	Form menuItemRequest
}

// EditMenuItem renders the edit form for one item.
func (h *PageHandler) EditMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid menu item ID", http.StatusBadRequest)
		return
	}
	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		h.serverError(w, "get menu item", err)
		return
	}

	resp := toMenuItemResponse(item)
	form := menuItemRequest{
		Name:             resp.Name,
		Description:      resp.Description,
		Price:            resp.Price,
		Category:         resp.Category,
		VegNonveg:        resp.VegNonveg,
		MealType:         resp.MealType,
		AvailabilityTime: resp.AvailabilityTime,
		IsAvailable:      &resp.IsAvailable,
	}
	if resp.ImageURL != nil {
		form.ImageURL = *resp.ImageURL
	}
	h.render(w, r, http.StatusOK, "menu_edit", pageData{Title: "Edit " + item.Name, Data: menuEditData{ID: id, Form: form}})
}

// UpdateMenuItem handles the edit form.
func (h *PageHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid menu item ID", http.StatusBadRequest)
		return
	}
	req := menuItemFromForm(r)
	fields, err := validateMenuItem(req)
	if err != nil {
		h.render(w, r, http.StatusBadRequest, "menu_edit", pageData{
			Title: "Edit menu item",
			Error: err.Error(),
			Data:  menuEditData{ID: id, Form: req},
		})
		return
	}
	item, err := h.store.UpdateMenuItem(r.Context(), fields.updateParams(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		h.serverError(w, "update menu item", err)
		return
	}
	h.flash(w, r, fmt.Sprintf("Saved %s.", item.Name))
	http.Redirect(w, r, "/menu", http.StatusSeeOther)
}

// DeleteMenuItem handles the delete button.
func (h *PageHandler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid menu item ID", http.StatusBadRequest)
		return
	}
	if _, err := h.store.DeleteMenuItem(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.flash(w, r, "menu item not found")
			http.Redirect(w, r, "/menu", http.StatusSeeOther)
			return
		}
		h.serverError(w, "delete menu item", err)
		return
	}
	h.flash(w, r, "Menu item deleted.")
	http.Redirect(w, r, "/menu", http.StatusSeeOther)
}

type analyticsPageData struct {
	Query  service.AnalyticsQuery
	Report service.Report
}

// Analytics renders the sales report for the filter in the query string.
func (h *PageHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	q, err := analyticsQueryFromRequest(r)
	if err != nil {
		h.render(w, r, http.StatusBadRequest, "analytics", pageData{Title: "Analytics", Error: err.Error(), Data: analyticsPageData{Query: q}})
		return
	}
	report, err := h.analytics.Report(r.Context(), q)
	if err != nil {
		if service.IsAnalyticsInputError(err) {
			h.render(w, r, http.StatusBadRequest, "analytics", pageData{Title: "Analytics", Error: err.Error(), Data: analyticsPageData{Query: q}})
			return
		}
		h.serverError(w, "analytics report", err)
		return
	}
	h.render(w, r, http.StatusOK, "analytics", pageData{Title: "Analytics", Data: analyticsPageData{Query: q, Report: report}})
}

type settingsPageData struct {
	Settings SiteSettings
	Admins   []adminResponse
}

// Settings shows the effective configuration and the provisioned admins.
func (h *PageHandler) Settings(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		h.serverError(w, "list admins", err)
		return
	}
	list := make([]adminResponse, len(admins))
	for i, a := range admins {
		list[i] = adminResponse{ID: a.ID, Mobile: a.Mobile}
	}
	h.render(w, r, http.StatusOK, "settings", pageData{
		Title: "Settings",
		Data:  settingsPageData{Settings: h.settings, Admins: list},
	})
}

// --- Helpers ---

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	t, ok := h.pages[name]
	if !ok {
		h.serverError(w, "render", fmt.Errorf("unknown page %q", name))
		return
	}
	data.Admin = middleware.ClaimsFromContext(r.Context())
	data.CSRFField = csrf.TemplateField(r)
	if data.Flash == "" {
		data.Flash = h.popFlash(w, r)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base.html", data); err != nil {
		h.serverError(w, "render "+name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w) //nolint:errcheck
}

func (h *PageHandler) serverError(w http.ResponseWriter, op string, err error) {
	log.Printf("ERROR: %s: %v", op, err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// flash queues a one-shot message for the next rendered page.
func (h *PageHandler) flash(w http.ResponseWriter, r *http.Request, msg string) {
	if h.sessions == nil {
		return
	}
	session, _ := h.sessions.Get(r, middleware.SessionName)
	session.AddFlash(msg)
	if err := session.Save(r, w); err != nil {
		log.Printf("ERROR: save flash: %v", err)
	}
}

func (h *PageHandler) popFlash(w http.ResponseWriter, r *http.Request) string {
	if h.sessions == nil {
		return ""
	}
	session, err := h.sessions.Get(r, middleware.SessionName)
	if err != nil {
		return ""
	}
	flashes := session.Flashes()
	if len(flashes) == 0 {
		return ""
	}
	if err := session.Save(r, w); err != nil {
		log.Printf("ERROR: save session: %v", err)
	}
	msgs := make([]string, 0, len(flashes))
	for _, f := range flashes {
		if s, ok := f.(string); ok {
			msgs = append(msgs, s)
		}
	}
	return strings.Join(msgs, " ")
}

func menuItemFromForm(r *http.Request) menuItemRequest {
	avail := r.PostFormValue("is_available") != ""
	return menuItemRequest{
		Name:             r.PostFormValue("name"),
		Description:      r.PostFormValue("description"),
		Price:            r.PostFormValue("price"),
		Category:         r.PostFormValue("category"),
		VegNonveg:        r.PostFormValue("veg_nonveg"),
		MealType:         r.PostFormValue("meal_type"),
		AvailabilityTime: r.PostFormValue("availability_time"),
		ImageURL:         r.PostFormValue("image_url"),
		IsAvailable:      &avail,
	}
}

func toOrderResponses(orders []database.Order) []orderResponse {
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	return resp
}
