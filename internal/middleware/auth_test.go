package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/auth"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/middleware"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func newToken(t *testing.T, adminID uuid.UUID) string {
	t.Helper()
	token, _, err := auth.GenerateToken(testSecret, adminID, "9876543210", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

// sessionCookie logs in through the store and returns the resulting cookie.
func sessionCookie(t *testing.T, store http.Handler) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	store.ServeHTTP(rr, httptest.NewRequest("POST", "/login", nil))
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie")
	}
	return cookies[0]
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	adminID := uuid.New()
	token := newToken(t, adminID)

	handler := middleware.Authenticate(testSecret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("expected claims in context")
		}
		if claims.AdminID != adminID {
			t.Errorf("admin ID: got %v, want %v", claims.AdminID, adminID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_BadScheme(t *testing.T) {
	handler := middleware.Authenticate(testSecret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_SessionCookie(t *testing.T) {
	store := middleware.NewSessionStore("session-test-key", false)
	adminID := uuid.New()
	token := newToken(t, adminID)

	login := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := middleware.SaveSessionToken(w, r, store, token); err != nil {
			t.Fatalf("save session: %v", err)
		}
	})
	cookie := sessionCookie(t, login)

	handler := middleware.Authenticate(testSecret, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil || claims.AdminID != adminID {
			t.Errorf("claims: got %+v, want admin %v", claims, adminID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/pending-orders", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRequireAdminPage_RedirectsWithoutSession(t *testing.T) {
	store := middleware.NewSessionStore("session-test-key", false)
	handler := middleware.RequireAdminPage(testSecret, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/dashboard", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusSeeOther)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Errorf("location: got %q, want /login", loc)
	}
}

func TestRequireAdminPage_AllowsSession(t *testing.T) {
	store := middleware.NewSessionStore("session-test-key", false)
	token := newToken(t, uuid.New())
	cookie := sessionCookie(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.SaveSessionToken(w, r, store, token)
	}))

	called := false
	handler := middleware.RequireAdminPage(testSecret, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if middleware.ClaimsFromContext(r.Context()) == nil {
			t.Error("expected claims in context")
		}
	}))

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.AddCookie(cookie)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("expected page handler to run")
	}
}

func TestClearSession(t *testing.T) {
	store := middleware.NewSessionStore("session-test-key", false)
	rr := httptest.NewRecorder()
	if err := middleware.ClearSession(rr, httptest.NewRequest("POST", "/logout", nil), store); err != nil {
		t.Fatalf("clear session: %v", err)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %+v", cookies)
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := middleware.SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/dashboard", nil))

	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options: got %q", got)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options: got %q", got)
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	adminID := uuid.New()

	tests := []struct {
		name       string
		header     string
		wantClaims bool
	}{
		{"no token", "", false},
		{"valid token", "Bearer " + newToken(t, adminID), true},
		{"invalid token", "Bearer garbage", false},
		{"bad scheme", "Basic abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotClaims bool
			handler := middleware.OptionalAuthenticate(testSecret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotClaims = middleware.ClaimsFromContext(r.Context()) != nil
			}))

			req := httptest.NewRequest("GET", "/api/menu-items", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("status: got %d, want 200", rr.Code)
			}
			if gotClaims != tt.wantClaims {
				t.Errorf("claims present: got %v, want %v", gotClaims, tt.wantClaims)
			}
		})
	}
}
