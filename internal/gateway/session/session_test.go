package session_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotodo/internal/gateway/session"
)

func newApp(manager *session.Manager) *fiber.App {
	app := fiber.New()

	app.Post("/create", func(c fiber.Ctx) error {
		if err := manager.Create(c, c.Query("token")); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/get", func(c fiber.Ctx) error {
		token, ok := manager.Get(c)
		return c.JSON(fiber.Map{"token": token, "ok": ok})
	})
	app.Get("/verify", func(c fiber.Ctx) error {
		token, err := manager.Verify(c)
		if err != nil {
			return nil
		}
		return c.SendString(token)
	})
	app.Post("/delete", func(c fiber.Ctx) error {
		manager.Delete(c)
		return c.SendStatus(fiber.StatusOK)
	})

	return app
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == session.CookieName {
			return cookie
		}
	}
	t.Fatalf("response has no %s cookie", session.CookieName)
	return nil
}

func requestWithCookie(method, target, value string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if value != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: value})
	}
	return req
}

func encode(t *testing.T, s session.Session) string {
	t.Helper()
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	return url.QueryEscape(string(raw))
}

func TestManager_CreateSetsCookie(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	manager := session.NewManager(session.Config{Secure: true}, clock)
	app := newApp(manager)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/create?token=AT1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := sessionCookie(t, resp)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, clock.Now().Add(24*time.Hour).Unix(), cookie.Expires.Unix())

	parsed, err := manager.Parse(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "AT1", parsed.Token)
	assert.Equal(t, clock.Now().Add(24*time.Hour).UnixMilli(), parsed.Expires)
}

func TestManager_CreateRejectsEmptyToken(t *testing.T) {
	app := newApp(session.NewManager(session.Config{}, clockwork.NewFakeClock()))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/create", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestManager_Get(t *testing.T) {
	clock := clockwork.NewFakeClock()
	manager := session.NewManager(session.Config{}, clock)
	app := newApp(manager)
	now := clock.Now()

	tests := []struct {
		name        string
		cookie      string
		wantToken   string
		wantOK      bool
		wantDeleted bool
	}{
		{name: "absent", cookie: ""},
		{
			name:      "valid",
			cookie:    encode(t, session.Session{Token: "AT1", Expires: now.Add(time.Hour).UnixMilli()}),
			wantToken: "AT1",
			wantOK:    true,
		},
		{
			name:        "expired",
			cookie:      encode(t, session.Session{Token: "AT1", Expires: now.Add(-time.Millisecond).UnixMilli()}),
			wantDeleted: true,
		},
		{
			name:        "expires exactly now",
			cookie:      encode(t, session.Session{Token: "AT1", Expires: now.UnixMilli()}),
			wantDeleted: true,
		},
		{
			name:        "empty token",
			cookie:      encode(t, session.Session{Expires: now.Add(time.Hour).UnixMilli()}),
			wantDeleted: true,
		},
		{name: "malformed json", cookie: url.QueryEscape(`{"token":`), wantDeleted: true},
		{name: "not json", cookie: "garbage", wantDeleted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(requestWithCookie(http.MethodGet, "/get", tt.cookie))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var body struct {
				Token string `json:"token"`
				OK    bool   `json:"ok"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantToken, body.Token)
			assert.Equal(t, tt.wantOK, body.OK)

			if tt.wantDeleted {
				cookie := sessionCookie(t, resp)
				assert.Empty(t, cookie.Value)
				assert.True(t, cookie.Expires.Before(clock.Now()))
			}
		})
	}
}

func TestManager_VerifyRedirectsWhenExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	manager := session.NewManager(session.Config{}, clock)
	app := newApp(manager)

	created, err := app.Test(httptest.NewRequest(http.MethodPost, "/create?token=AT1", nil))
	require.NoError(t, err)
	value := sessionCookie(t, created).Value

	resp, err := app.Test(requestWithCookie(http.MethodGet, "/verify", value))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "AT1", string(body))

	clock.Advance(24 * time.Hour)

	resp, err = app.Test(requestWithCookie(http.MethodGet, "/verify", value))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Empty(t, sessionCookie(t, resp).Value)
}

func TestManager_VerifyWritesSessionCookieOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	app := newApp(session.NewManager(session.Config{}, clock))
	expired := encode(t, session.Session{Token: "AT1", Expires: clock.Now().Add(-time.Minute).UnixMilli()})

	tests := []struct {
		name        string
		cookie      string
		wantCookies int
	}{
		{name: "expired cookie is removed once", cookie: expired, wantCookies: 1},
		{name: "absent cookie is left alone", cookie: "", wantCookies: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(requestWithCookie(http.MethodGet, "/verify", tt.cookie))
			require.NoError(t, err)
			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/login", resp.Header.Get("Location"))

			written := 0
			for _, cookie := range resp.Cookies() {
				if cookie.Name == session.CookieName {
					written++
				}
			}
			assert.Equal(t, tt.wantCookies, written)
		})
	}
}

func TestManager_DeleteIsIdempotent(t *testing.T) {
	app := newApp(session.NewManager(session.Config{}, clockwork.NewFakeClock()))

	for range 2 {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/delete", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, sessionCookie(t, resp).Value)
	}
}
