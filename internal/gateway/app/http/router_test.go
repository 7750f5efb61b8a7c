package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cacheAdapter "gotodo/internal/gateway/adapters/cache"
	upstreamAdapter "gotodo/internal/gateway/adapters/upstream"
	gatewayhttp "gotodo/internal/gateway/app/http"
	"gotodo/internal/gateway/app/services"
	"gotodo/internal/gateway/config"
	"gotodo/internal/gateway/resilience"
	"gotodo/internal/gateway/session"
)

type fakeAPI struct {
	logins     atomic.Int32
	logouts    atomic.Int32
	lastAuth   atomic.Value
	lastQuery  atomic.Value
	loginReply func(w http.ResponseWriter)
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.logins.Add(1)
		if f.loginReply != nil {
			f.loginReply(w)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Wrong password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"AT1","refresh_token":"RT1","id":"u1","email":"a@b.co"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/signup", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"u2"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logouts.Add(1)
		f.lastAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/v1/todos", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth.Store(r.Header.Get("Authorization"))
		f.lastQuery.Store(r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			body, _ := io.ReadAll(r.Body)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(body)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	mux.HandleFunc("/api/v1/forbidden", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"nope"}`))
	})
	return mux
}

type env struct {
	app   *fiber.App
	api   *fakeAPI
	clock *clockwork.FakeClock
}

func newEnv(t *testing.T, baseURL string) *env {
	t.Helper()

	api := &fakeAPI{}
	if baseURL == "" {
		server := httptest.NewServer(api.handler())
		t.Cleanup(server.Close)
		baseURL = server.URL
	}

	rcfg := resilience.DefaultConfig()
	rcfg.Retry.InitialBackoff = time.Millisecond
	rcfg.Retry.MaxBackoff = time.Millisecond

	upstreamCfg := &config.UpstreamConfig{BaseURL: baseURL, Timeout: time.Second}
	client := upstreamAdapter.NewClient(upstreamCfg, rcfg)
	cache := cacheAdapter.Noop{}
	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))

	app := fiber.New()
	gatewayhttp.SetupRouter(app, gatewayhttp.Services{
		Auth:     services.NewAuthService(client, cache),
		Proxy:    services.NewProxyService(client, cache, upstreamCfg.IsConfigured()),
		Sessions: session.NewManager(session.Config{Secure: true}, clock),
	})

	return &env{app: app, api: api, clock: clock}
}

func (e *env) do(t *testing.T, method, target, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", session.CookieName)
	return nil
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *env) login(t *testing.T) *http.Cookie {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.co","password":"secret"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := sessionCookie(t, resp)
	return &http.Cookie{Name: c.Name, Value: c.Value}
}

func TestLogin_Success(t *testing.T) {
	e := newEnv(t, "")

	resp := e.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.co","password":"secret"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := sessionCookie(t, resp)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, map[string]any{"id": "u1", "email": "a@b.co"}, decode(t, resp))
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		reply      func(w http.ResponseWriter)
		wantStatus int
		wantMsg    string
		wantError  string
	}{
		{name: "not json", body: `email=a`, wantStatus: 400, wantMsg: "Invalid request body: Expected JSON"},
		{name: "bad email", body: `{"email":"nope","password":"x"}`, wantStatus: 400, wantMsg: "Invalid input data"},
		{name: "empty password", body: `{"email":"a@b.co","password":""}`, wantStatus: 400, wantMsg: "Invalid input data", wantError: "Password is required"},
		{
			name:       "wrong password",
			body:       `{"email":"a@b.co","password":"bad"}`,
			wantStatus: 401,
			wantMsg:    "Wrong password",
			wantError:  "Wrong password",
		},
		{
			name: "unauthorized without message",
			body: `{"email":"a@b.co","password":"secret"}`,
			reply: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{}`))
			},
			wantStatus: 401,
			wantMsg:    "Authentication failed",
			wantError:  "Invalid credentials",
		},
		{
			name: "other status mirrored",
			body: `{"email":"a@b.co","password":"secret"}`,
			reply: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"message":"slow down"}`))
			},
			wantStatus: 429,
			wantMsg:    "slow down",
		},
		{
			name: "unparsable error body",
			body: `{"email":"a@b.co","password":"secret"}`,
			reply: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`<html>`))
			},
			wantStatus: 502,
			wantMsg:    "Invalid response from authentication service",
		},
		{
			name: "malformed success body",
			body: `{"email":"a@b.co","password":"secret"}`,
			reply: func(w http.ResponseWriter) {
				_, _ = w.Write([]byte(`oops`))
			},
			wantStatus: 500,
			wantMsg:    "Malformed response from authentication service",
		},
		{
			name: "no access token",
			body: `{"email":"a@b.co","password":"secret"}`,
			reply: func(w http.ResponseWriter) {
				_, _ = w.Write([]byte(`{"id":"u1"}`))
			},
			wantStatus: 500,
			wantMsg:    "No authentication token provided by server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, "")
			e.api.loginReply = tt.reply

			resp := e.do(t, http.MethodPost, "/api/v1/auth/login", tt.body)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			for _, c := range resp.Cookies() {
				assert.NotEqual(t, session.CookieName, c.Name)
			}
			body := decode(t, resp)
			assert.Equal(t, tt.wantMsg, body["message"])
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			}
		})
	}
}

func TestLogin_UpstreamDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	e := newEnv(t, url)

	resp := e.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.co","password":"secret"}`)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "Failed to connect to authentication service", decode(t, resp)["message"])
}

func TestSignup_Forwarded(t *testing.T) {
	e := newEnv(t, "")

	resp := e.do(t, http.MethodPost, "/api/v1/auth/sign-up", `{"email":"n@b.co","password":"pw","name":"N"}`)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "u2", decode(t, resp)["id"])
}

func TestLogout_AlwaysDeletesSession(t *testing.T) {
	e := newEnv(t, "")
	cookie := e.login(t)

	resp := e.do(t, http.MethodPost, "/api/v1/auth/logout", "", cookie)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Logged out", decode(t, resp)["message"])
	deleted := sessionCookie(t, resp)
	assert.Empty(t, deleted.Value)
	assert.Equal(t, int32(1), e.api.logouts.Load())
	assert.Equal(t, "Bearer AT1", e.api.lastAuth.Load())
}

func TestSessionStatus(t *testing.T) {
	e := newEnv(t, "")

	resp := e.do(t, http.MethodGet, "/api/v1/auth/session", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decode(t, resp)["authenticated"])

	cookie := e.login(t)
	resp = e.do(t, http.MethodGet, "/api/v1/auth/session", "", cookie)
	assert.Equal(t, true, decode(t, resp)["authenticated"])

	e.clock.Advance(24 * time.Hour)
	resp = e.do(t, http.MethodGet, "/api/v1/auth/session", "", cookie)
	assert.Equal(t, false, decode(t, resp)["authenticated"])
}

func TestProxy(t *testing.T) {
	e := newEnv(t, "")
	cookie := e.login(t)

	t.Run("without session", func(t *testing.T) {
		resp := e.do(t, http.MethodGet, "/api/v1/proxy/v1/todos", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Unauthorized", decode(t, resp)["message"])
	})

	t.Run("get forwards token and query", func(t *testing.T) {
		resp := e.do(t, http.MethodGet, "/api/v1/proxy/v1/todos?page=2&limit=5", "", cookie)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Bearer AT1", e.api.lastAuth.Load())
		assert.Equal(t, "page=2&limit=5", e.api.lastQuery.Load())
	})

	t.Run("post mirrors status and body", func(t *testing.T) {
		resp := e.do(t, http.MethodPost, "/api/v1/proxy/v1/todos", `{"title":"milk"}`, cookie)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "milk", decode(t, resp)["title"])
	})

	t.Run("invalid body", func(t *testing.T) {
		resp := e.do(t, http.MethodPut, "/api/v1/proxy/v1/todos", `{broken`, cookie)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid request body", decode(t, resp)["message"])
	})

	t.Run("upstream error status mirrored", func(t *testing.T) {
		resp := e.do(t, http.MethodGet, "/api/v1/proxy/v1/forbidden", "", cookie)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "nope", decode(t, resp)["message"])
	})
}

func TestProxy_NotConfigured(t *testing.T) {
	e := newEnv(t, "")
	cookie := e.login(t)

	rcfg := resilience.DefaultConfig()
	client := upstreamAdapter.NewClient(&config.UpstreamConfig{}, rcfg)
	bare := fiber.New()
	gatewayhttp.SetupRouter(bare, gatewayhttp.Services{
		Auth:     services.NewAuthService(client, cacheAdapter.Noop{}),
		Proxy:    services.NewProxyService(client, cacheAdapter.Noop{}, false),
		Sessions: session.NewManager(session.Config{Secure: true}, e.clock),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/proxy/v1/todos", nil)
	req.AddCookie(cookie)
	resp, err := bare.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "API base URL is not configured", decode(t, resp)["message"])
}

func TestPages_RouteGuard(t *testing.T) {
	e := newEnv(t, "")
	cookie := e.login(t)

	tests := []struct {
		name         string
		path         string
		withSession  bool
		wantStatus   int
		wantLocation string
	}{
		{name: "login without session", path: "/login", wantStatus: 200},
		{name: "signup without session", path: "/signup", wantStatus: 200},
		{name: "dashboard without session", path: "/dashboard", wantStatus: 302, wantLocation: "/login"},
		{name: "admin without session", path: "/admin/users", wantStatus: 302, wantLocation: "/login"},
		{name: "home without session", path: "/", wantStatus: 302, wantLocation: "/login"},
		{name: "login with session", path: "/login", withSession: true, wantStatus: 302, wantLocation: "/"},
		{name: "signup with session", path: "/signup", withSession: true, wantStatus: 302, wantLocation: "/"},
		{name: "profile with session", path: "/profile", withSession: true, wantStatus: 200},
		{name: "home with session", path: "/", withSession: true, wantStatus: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cookies []*http.Cookie
			if tt.withSession {
				cookies = append(cookies, cookie)
			}

			resp := e.do(t, http.MethodGet, tt.path, "", cookies...)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, resp.Header.Get("Location"))
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	e := newEnv(t, "")

	resp := e.do(t, http.MethodGet, "/api/v1/nothing", "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Route not found", decode(t, resp)["message"])
}
