package middleware

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the cookie holding the admin session.
const SessionName = "vlh-admin"

const sessionTokenKey = "token"

// NewSessionStore returns the cookie store used for admin pages.
func NewSessionStore(key string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(key))
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.Path = "/"
	return store
}

// SessionToken returns the admin token kept in the session, or "".
func SessionToken(r *http.Request, store sessions.Store) string {
	if store == nil {
		return ""
	}
	session, err := store.Get(r, SessionName)
	if err != nil {
		return ""
	}
	token, _ := session.Values[sessionTokenKey].(string)
	return token
}

// SaveSessionToken stores token in the admin session cookie.
func SaveSessionToken(w http.ResponseWriter, r *http.Request, store sessions.Store, token string) error {
	session, _ := store.Get(r, SessionName)
	session.Values[sessionTokenKey] = token
	return session.Save(r, w)
}

// ClearSession expires the admin session cookie.
func ClearSession(w http.ResponseWriter, r *http.Request, store sessions.Store) error {
	session, _ := store.Get(r, SessionName)
	delete(session.Values, sessionTokenKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
