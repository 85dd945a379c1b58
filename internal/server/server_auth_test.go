package server

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"chatterbox/internal/app"
	"chatterbox/internal/engine"
	"chatterbox/internal/session"
	"chatterbox/internal/store"
	"chatterbox/pkg/domain"
)

// scriptedStreamer is a fake model client: it records prompts, counts
// calls and plays back a fixed reply (or error) in fragments.
type scriptedStreamer struct {
	reply string
	err   error

	calls   int32
	prompts [][]domain.ChatMessage
}

func (f *scriptedStreamer) StreamChat(_ context.Context, messages []domain.ChatMessage, onDelta func(string) error) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	snapshot := make([]domain.ChatMessage, len(messages))
	copy(snapshot, messages)
	f.prompts = append(f.prompts, snapshot)
	if f.err != nil {
		return "", f.err
	}
	for _, part := range strings.SplitAfter(f.reply, " ") {
		if onDelta != nil {
			if err := onDelta(part); err != nil {
				return "", err
			}
		}
	}
	return f.reply, nil
}

func (f *scriptedStreamer) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

func newTestServer(t *testing.T, streamer *scriptedStreamer) (*httptest.Server, *app.App) {
	t.Helper()
	appCore, err := app.New(app.Config{
		Store:  store.NewMemoryStore(),
		Engine: engine.New(streamer, ""),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv := New(Config{
		App:      appCore,
		Sessions: session.NewManager(session.NewMemoryStore(), 0),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, appCore
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("new cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func registerForm(username, email, password string) url.Values {
	return url.Values{
		"username": {username},
		"email":    {email},
		"password": {password},
		"confirm":  {password},
	}
}

func postForm(t *testing.T, client *http.Client, url string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := client.PostForm(url, form)
	if err != nil {
		t.Fatalf("post form %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func getPage(t *testing.T, client *http.Client, url string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestRegisterEstablishesSession(t *testing.T) {
	ts, _ := newTestServer(t, &scriptedStreamer{reply: "ok"})
	browser := newBrowser(t)

	resp, body := postForm(t, browser, ts.URL+"/register", registerForm("alice", "alice@example.com", "secret1"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after redirects, got %d", resp.StatusCode)
	}
	if got := resp.Request.URL.Path; got != "/chat" {
		t.Fatalf("expected to land on /chat, got %s", got)
	}
	if !strings.Contains(body, "Registration successful! Welcome, alice") {
		t.Fatalf("expected welcome flash in chat page, got:\n%s", body)
	}

	// Subsequent /chat GET succeeds without re-authenticating.
	resp, _ = getPage(t, browser, ts.URL+"/chat")
	if resp.StatusCode != http.StatusOK || resp.Request.URL.Path != "/chat" {
		t.Fatalf("expected authenticated /chat, got %d at %s", resp.StatusCode, resp.Request.URL.Path)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	ts, _ := newTestServer(t, &scriptedStreamer{reply: "ok"})

	first := newBrowser(t)
	postForm(t, first, ts.URL+"/register", registerForm("alice", "alice@example.com", "secret1"))

	second := newBrowser(t)
	resp, body := postForm(t, second, ts.URL+"/register", registerForm("alice", "other@example.com", "secret1"))
	if got := resp.Request.URL.Path; got != "/register" {
		t.Fatalf("duplicate registration should re-render register, got %s", got)
	}
	if !strings.Contains(body, "Email already registered!") {
		t.Fatalf("expected duplicate flash, got:\n%s", body)
	}

	// The rejected client holds no authenticated session.
	resp, _ = getPage(t, second, ts.URL+"/chat")
	if got := resp.Request.URL.Path; got != "/login" {
		t.Fatalf("expected redirect to /login, got %s", got)
	}
}

func TestLoginWrongPasswordCreatesNoSession(t *testing.T) {
	ts, _ := newTestServer(t, &scriptedStreamer{reply: "ok"})
	setup := newBrowser(t)
	postForm(t, setup, ts.URL+"/register", registerForm("alice", "alice@example.com", "secret1"))

	browser := newBrowser(t)
	resp, body := postForm(t, browser, ts.URL+"/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"wrong"},
	})
	if got := resp.Request.URL.Path; got != "/login" {
		t.Fatalf("failed login should land on /login, got %s", got)
	}
	if !strings.Contains(body, "Incorrect email or password") {
		t.Fatalf("expected credential flash, got:\n%s", body)
	}

	resp, _ = getPage(t, browser, ts.URL+"/chat")
	if got := resp.Request.URL.Path; got != "/login" {
		t.Fatalf("expected unauthenticated redirect, got %s", got)
	}
}

func TestRegisterLogoutLoginRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t, &scriptedStreamer{reply: "ok"})
	browser := newBrowser(t)

	postForm(t, browser, ts.URL+"/register", registerForm("alice", "alice@example.com", "secret1"))

	resp, body := getPage(t, browser, ts.URL+"/logout")
	if got := resp.Request.URL.Path; got != "/login" {
		t.Fatalf("logout should land on /login, got %s", got)
	}
	if !strings.Contains(body, "Logged out successfully!") {
		t.Fatalf("expected logout flash, got:\n%s", body)
	}

	// Session is gone.
	resp, _ = getPage(t, browser, ts.URL+"/chat")
	if got := resp.Request.URL.Path; got != "/login" {
		t.Fatalf("expected redirect after logout, got %s", got)
	}

	// Same credentials log back in and re-establish the session.
	resp, body = postForm(t, browser, ts.URL+"/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"secret1"},
	})
	if got := resp.Request.URL.Path; got != "/chat" {
		t.Fatalf("login should land on /chat, got %s", got)
	}
	if !strings.Contains(body, "Login successful!") {
		t.Fatalf("expected login flash, got:\n%s", body)
	}

	resp, _ = getPage(t, browser, ts.URL+"/chat")
	if resp.StatusCode != http.StatusOK || resp.Request.URL.Path != "/chat" {
		t.Fatalf("expected authenticated /chat, got %d at %s", resp.StatusCode, resp.Request.URL.Path)
	}
}

func TestUnauthenticatedChatRedirectsWithWarning(t *testing.T) {
	ts, _ := newTestServer(t, &scriptedStreamer{reply: "ok"})
	browser := newBrowser(t)

	resp, body := getPage(t, browser, ts.URL+"/chat")
	if got := resp.Request.URL.Path; got != "/login" {
		t.Fatalf("expected redirect to /login, got %s", got)
	}
	if !strings.Contains(body, "Unauthorized access! Please log in first.") {
		t.Fatalf("expected warning flash on login page, got:\n%s", body)
	}
}

func TestContactRedirectsToExternalSite(t *testing.T) {
	ts, _ := newTestServer(t, &scriptedStreamer{reply: "ok"})

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(ts.URL + "/contact")
	if err != nil {
		t.Fatalf("get /contact: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != defaultContactURL {
		t.Fatalf("unexpected contact target: %s", got)
	}
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, &scriptedStreamer{reply: "ok"})
	resp, body := getPage(t, newBrowser(t), ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, `"status":"ok"`) {
		t.Fatalf("unexpected healthz body: %s", body)
	}
}
