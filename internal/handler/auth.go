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

	"github.com/RohitSadavarti/vanita.lunch.home/internal/auth"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/database"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5"
)

var errInvalidCredentials = errors.New("invalid credentials")

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetAdminByMobile(ctx context.Context, mobile string) (database.AdminAccount, error)
}

// AuthHandler handles admin login and logout.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
	tokenTTL  time.Duration
	sessions  sessions.Store
}

// NewAuthHandler creates a new AuthHandler. sessions may be nil when only
// bearer tokens are in use.
func NewAuthHandler(store AuthStore, jwtSecret string, tokenTTL time.Duration, sessions sessions.Store) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret, tokenTTL: tokenTTL, sessions: sessions}
}

// RegisterRoutes registers the public auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
}

// RegisterAdminRoutes registers endpoints that need an authenticated admin.
func (h *AuthHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)
}

// --- Request / Response types ---

type loginRequest struct {
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Admin     adminResponse `json:"admin"`
}

type adminResponse struct {
	ID     uuid.UUID `json:"id"`
	Mobile string    `json:"mobile"`
}

// --- Handlers ---

// Login handles mobile + password authentication. The token is returned in
// the body and also kept in the admin session so the pages work after an
// API login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if strings.TrimSpace(req.Mobile) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mobile and password are required"})
		return
	}

	resp, err := h.authenticate(r.Context(), req.Mobile, req.Password)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		log.Printf("ERROR: login: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if h.sessions != nil {
		if err := middleware.SaveSessionToken(w, r, h.sessions, resp.Token); err != nil {
			log.Printf("ERROR: save session: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Logout drops the admin session. Bearer tokens stay valid until they
// expire; clients discard them.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.sessions != nil {
		if err := middleware.ClearSession(w, r, h.sessions); err != nil {
			log.Printf("ERROR: clear session: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the identity carried by the request's token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, adminResponse{ID: claims.AdminID, Mobile: claims.Mobile})
}

// --- Helpers ---

// authenticate checks the credentials and issues a token. Unknown mobile
// and wrong password are indistinguishable to the caller.
func (h *AuthHandler) authenticate(ctx context.Context, mobile, password string) (tokenResponse, error) {
	admin, err := h.store.GetAdminByMobile(ctx, strings.TrimSpace(mobile))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.CheckMissingPassword(password)
			return tokenResponse{}, errInvalidCredentials
		}
		return tokenResponse{}, fmt.Errorf("get admin: %w", err)
	}

	if !auth.CheckPassword(admin.PasswordHash, password) {
		return tokenResponse{}, errInvalidCredentials
	}

	token, expiresAt, err := auth.GenerateToken(h.jwtSecret, admin.ID, admin.Mobile, h.tokenTTL)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("generate token: %w", err)
	}

	return tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Admin:     adminResponse{ID: admin.ID, Mobile: admin.Mobile},
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}
