package router

import (
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/config"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/database"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/handler"
	mw "github.com/RohitSadavarti/vanita.lunch.home/internal/middleware"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/service"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/csrf"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// The JSON API lives under /api; the admin pages and the customer page are
// served at the root behind CSRF protection.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, publisher service.Publisher) (chi.Router, error) {
	pricing, err := service.NewPricing(cfg.Pricing.DeliveryFee, cfg.Pricing.FreeDeliveryThreshold, cfg.Pricing.TotalTolerance)
	if err != nil {
		return nil, fmt.Errorf("pricing: %w", err)
	}
	loc := cfg.Location()
	sessions := mw.NewSessionStore(cfg.Auth.SessionKey, cfg.Auth.CookieSecure)

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newOrderStore, queries, pricing, publisher)
	analyticsService := service.NewAnalyticsService(queries, loc)

	authHandler := handler.NewAuthHandler(queries, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, sessions)
	menuHandler := handler.NewMenuHandler(queries)
	orderHandler := handler.NewOrderHandler(orderService, queries)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	pageHandler, err := handler.NewPageHandler(queries, orderService, analyticsService, authHandler, sessions, siteSettings(cfg), loc)
	if err != nil {
		return nil, fmt.Errorf("pages: %w", err)
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Live order feed for admins (token in query, header or session).
	wsAuth := ws.Auth{JWTSecret: cfg.Auth.JWTSecret, Sessions: sessions, AllowedOrigins: cfg.AllowedOrigins}
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, wsAuth, w, r)
	})

	r.Route("/api", func(r chi.Router) {
		authHandler.RegisterRoutes(r)
		orderHandler.RegisterRoutes(r)

		r.Route("/menu-items", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.OptionalAuthenticate(cfg.Auth.JWTSecret, sessions))
				menuHandler.RegisterRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.Auth.JWTSecret, sessions))
				menuHandler.RegisterAdminRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.Auth.JWTSecret, sessions))
			authHandler.RegisterAdminRoutes(r)
			orderHandler.RegisterAdminRoutes(r)
			analyticsHandler.RegisterRoutes(r)
		})
	})

	// Server-rendered pages
	r.Group(func(r chi.Router) {
		r.Use(mw.SecurityHeaders)
		r.Use(csrf.Protect(
			[]byte(cfg.Auth.CSRFKey),
			csrf.Secure(cfg.Auth.CookieSecure),
			csrf.Path("/"),
			csrf.TrustedOrigins(trustedOrigins(cfg.AllowedOrigins)),
		))
		pageHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdminPage(cfg.Auth.JWTSecret, sessions))
			pageHandler.RegisterAdminRoutes(r)
		})
	})

	log.Println("Router initialized with all handlers")
	return r, nil
}

func siteSettings(cfg *config.Config) handler.SiteSettings {
	s := handler.SiteSettings{
		DeliveryFee:           cfg.Pricing.DeliveryFee,
		FreeDeliveryThreshold: cfg.Pricing.FreeDeliveryThreshold,
		Timezone:              cfg.Timezone,
		FCMTopic:              cfg.Firebase.Topic,
		FCMEnabled:            cfg.Firebase.CredentialsFile != "" || cfg.Firebase.CredentialsJSON != "",
		AMQPExchange:          cfg.AMQP.Exchange,
		AMQPEnabled:           cfg.AMQP.URL != "",
	}
	if p, err := service.NewPricing(cfg.Pricing.DeliveryFee, cfg.Pricing.FreeDeliveryThreshold, cfg.Pricing.TotalTolerance); err == nil {
		s.DeliveryFee = p.DeliveryFee.StringFixed(2)
		s.FreeDeliveryThreshold = p.FreeDeliveryThreshold.StringFixed(2)
	}
	return s
}

// trustedOrigins converts allowed origins to the host form csrf expects.
func trustedOrigins(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
