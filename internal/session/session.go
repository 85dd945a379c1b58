// Package session implements the cookie-correlated server-side session
// state: an opaque session ID travels in the cookie, the payload lives in
// a Store (Redis in production, memory in tests).
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName correlates a browser with its server-side session.
const CookieName = "chatterbox_session"

const defaultTTL = 24 * time.Hour

// Flash is a one-shot user-facing notification, rendered once then cleared.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Data is the server-side state for one browser session.
type Data struct {
	LoggedIn bool    `json:"loggedin"`
	Username string  `json:"username"`
	Flashes  []Flash `json:"flashes,omitempty"`
}

// Store persists session payloads keyed by an opaque session ID.
type Store interface {
	Save(ctx context.Context, id string, data Data, ttl time.Duration) error
	Load(ctx context.Context, id string) (Data, bool, error)
	Delete(ctx context.Context, id string) error
}

// Manager issues and resolves sessions for HTTP handlers.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager builds a Manager. A non-positive ttl falls back to 24h.
func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{store: store, ttl: ttl}
}

// Login establishes an authenticated session for username. The session ID
// is rotated: any prior session is discarded.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, username string) error {
	if old := requestSessionID(r); old != "" {
		_ = m.store.Delete(r.Context(), old)
	}
	id := uuid.NewString()
	data := Data{LoggedIn: true, Username: username}
	if err := m.store.Save(r.Context(), id, data, m.ttl); err != nil {
		return err
	}
	m.issueCookie(w, r, id)
	return nil
}

// Current returns the session data for the request, if any.
func (m *Manager) Current(r *http.Request) (Data, bool) {
	id := requestSessionID(r)
	if id == "" {
		return Data{}, false
	}
	data, found, err := m.store.Load(r.Context(), id)
	if err != nil || !found {
		return Data{}, false
	}
	return data, true
}

// IsAuthenticated reports whether the request carries a logged-in session.
func (m *Manager) IsAuthenticated(r *http.Request) (string, bool) {
	data, ok := m.Current(r)
	if !ok || !data.LoggedIn {
		return "", false
	}
	return data.Username, true
}

// Logout clears the server-side session and expires the cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	id := requestSessionID(r)
	if id == "" {
		return nil
	}
	if err := m.store.Delete(r.Context(), id); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// Shadow the stale cookie for the rest of this request.
	r.AddCookie(&http.Cookie{Name: CookieName, Value: ""})
	return nil
}

// AddFlash appends a one-shot notification to the session, creating an
// anonymous session when none exists yet (flashes must survive redirects
// for logged-out users too).
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, category, message string) error {
	id := requestSessionID(r)
	data := Data{}
	if id != "" {
		if loaded, found, err := m.store.Load(r.Context(), id); err == nil && found {
			data = loaded
		}
	} else {
		id = uuid.NewString()
		m.issueCookie(w, r, id)
	}
	data.Flashes = append(data.Flashes, Flash{Category: category, Message: message})
	return m.store.Save(r.Context(), id, data, m.ttl)
}

// PopFlashes returns pending flashes and clears them.
func (m *Manager) PopFlashes(r *http.Request) []Flash {
	id := requestSessionID(r)
	if id == "" {
		return nil
	}
	data, found, err := m.store.Load(r.Context(), id)
	if err != nil || !found || len(data.Flashes) == 0 {
		return nil
	}
	flashes := data.Flashes
	data.Flashes = nil
	_ = m.store.Save(r.Context(), id, data, m.ttl)
	return flashes
}

// issueCookie sets the cookie on the response and mirrors it onto the
// request so the new session is visible to later calls in the same handler.
func (m *Manager) issueCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.AddCookie(&http.Cookie{Name: CookieName, Value: id})
}

// requestSessionID returns the newest session cookie value on the request.
// Handlers that rotate the session append a fresh cookie, so the last
// entry wins.
func requestSessionID(r *http.Request) string {
	id := ""
	for _, cookie := range r.Cookies() {
		if cookie.Name == CookieName {
			id = cookie.Value
		}
	}
	return id
}
