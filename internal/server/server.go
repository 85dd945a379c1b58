// Package server is the HTTP surface: registration, login, the streaming
// chat endpoint, contact redirect and logout, with session-based auth
// gating in front of /chat.
package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"chatterbox/internal/app"
	"chatterbox/internal/session"
	"chatterbox/internal/util"
)

const defaultContactURL = "https://example.com"

// Config wires required dependencies for the HTTP server.
type Config struct {
	App        *app.App
	Sessions   *session.Manager
	ContactURL string
}

// Server exposes the HTTP endpoints for the chatbot.
type Server struct {
	app        *app.App
	sessions   *session.Manager
	contactURL string
	mux        *http.ServeMux
	tmpl       *template.Template
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	contactURL := strings.TrimSpace(cfg.ContactURL)
	if contactURL == "" {
		contactURL = defaultContactURL
	}
	s := &Server{
		app:        cfg.App,
		sessions:   cfg.Sessions,
		contactURL: contactURL,
		mux:        http.NewServeMux(),
		tmpl:       parseTemplates(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithRequestID(util.WithRequestLog("chatterbox", s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/static/", staticHandler())

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/register", s.handleRegister)
	s.mux.HandleFunc("/login", s.handleLogin)
	s.mux.HandleFunc("/chat", s.handleChat)
	s.mux.HandleFunc("/contact", s.handleContact)
	s.mux.HandleFunc("/logout", s.handleLogout)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleIndex shows the registration form, like /register.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s.render(w, r, "register.html", pageData{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, "register.html", pageData{})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}
		username := r.PostFormValue("username")
		email := r.PostFormValue("email")
		password := r.PostFormValue("password")
		confirm := r.PostFormValue("confirm")

		user, err := s.app.Register(username, email, password, confirm)
		if err != nil {
			s.audit(r, "register", "fail", "reason", err.Error())
			s.flashAppError(w, r, err)
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}
		if err := s.sessions.Login(w, r, user.Username); err != nil {
			slog.Error("establish session", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		s.audit(r, "register", "success", "username", user.Username)
		_ = s.sessions.AddFlash(w, r, "success", "Registration successful! Welcome, "+user.Username)
		http.Redirect(w, r, "/chat", http.StatusSeeOther)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, "login.html", pageData{})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}
		email := r.PostFormValue("email")
		password := r.PostFormValue("password")

		user, err := s.app.Login(email, password)
		if err != nil {
			s.audit(r, "login", "fail", "reason", err.Error())
			s.flashAppError(w, r, err)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := s.sessions.Login(w, r, user.Username); err != nil {
			slog.Error("establish session", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		s.audit(r, "login", "success", "username", user.Username)
		_ = s.sessions.AddFlash(w, r, "success", "Login successful!")
		http.Redirect(w, r, "/chat", http.StatusSeeOther)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	username, ok := s.sessions.IsAuthenticated(r)
	if !ok {
		s.audit(r, "chat.authorize", "fail")
		_ = s.sessions.AddFlash(w, r, "error", "Unauthorized access! Please log in first.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.render(w, r, "chat.html", pageData{Username: username})
	case http.MethodPost:
		s.handleChatMessage(w, r, username)
	default:
		methodNotAllowed(w)
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

// handleChatMessage streams model output to the client chunk by chunk.
// The reply is never buffered whole; each fragment is flushed as it
// arrives from the model.
func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request, username string) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "No input provided.", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher, canFlush := w.(http.Flusher)

	// Model failures arrive as an in-band error message with a nil return;
	// the only error left is the client disconnecting mid-stream.
	err := s.app.Chat(r.Context(), username, req.Message, func(delta string) error {
		if _, err := io.WriteString(w, delta); err != nil {
			return err
		}
		if canFlush {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		slog.Debug("chat stream aborted", "username", username, "err", err)
	}
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	http.Redirect(w, r, s.contactURL, http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if err := s.sessions.Logout(w, r); err != nil {
		slog.Error("clear session", "err", err)
	}
	s.audit(r, "logout", "success")
	_ = s.sessions.AddFlash(w, r, "success", "Logged out successfully!")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// flashAppError maps application errors to user-visible flash messages.
func (s *Server) flashAppError(w http.ResponseWriter, r *http.Request, err error) {
	message := "Something went wrong. Please try again."
	switch {
	case errors.Is(err, app.ErrUserExists):
		message = "Email already registered!"
	case errors.Is(err, app.ErrInvalidCredentials):
		message = "Incorrect email or password"
	case errors.Is(err, app.ErrMissingFields),
		errors.Is(err, app.ErrPasswordTooShort),
		errors.Is(err, app.ErrPasswordMismatch):
		message = err.Error()
	}
	_ = s.sessions.AddFlash(w, r, "error", message)
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}
