package pipeline_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	adapters "gotodo/internal/client/adapters/storage"
	"gotodo/internal/client/credentials"
	"gotodo/internal/client/domain/entities"
	"gotodo/internal/client/executor"
	"gotodo/internal/client/pipeline"
	"gotodo/internal/client/refresh"
)

type mockRedirector struct {
	mock.Mock
}

func (m *mockRedirector) RedirectToLogin(ctx context.Context) {
	m.Called(ctx)
}

// backend принимает только AT2 и выдает его в обмен на RT1.
type backend struct {
	refreshCalls  atomic.Int32
	todoCalls     atomic.Int32
	failRefresh   bool
	alwaysExpired bool
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(refresh.Endpoint, func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if b.failRefresh || body["refresh_token"] != "RT1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "AT2", "refresh_token": "RT2"})
	})
	mux.HandleFunc("/api/v1/todos/t1", func(w http.ResponseWriter, r *http.Request) {
		b.todoCalls.Add(1)
		if b.alwaysExpired || r.Header.Get("Authorization") != "Bearer AT2" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
			return
		}
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = json.NewEncoder(w).Encode(entities.Todo{ID: "t1", Title: "Buy milk"})
	})
	return mux
}

type fixture struct {
	backend    *backend
	store      *credentials.Store
	redirector *mockRedirector
	pipeline   *pipeline.Pipeline
}

func newFixture(t *testing.T, b *backend) *fixture {
	t.Helper()

	server := httptest.NewServer(b.handler())
	t.Cleanup(server.Close)

	store := credentials.NewStore(adapters.NewMemoryKV())
	exec := executor.New(executor.Config{BaseURL: server.URL, Timeout: 5 * time.Second}, store)
	coordinator := refresh.NewCoordinator(store, exec, 5*time.Second)
	redirector := &mockRedirector{}

	return &fixture{
		backend:    b,
		store:      store,
		redirector: redirector,
		pipeline:   pipeline.New(exec, store, coordinator, redirector),
	}
}

var getTodo = executor.Request{Method: http.MethodGet, Endpoint: "/api/v1/todos/t1"}

func TestPipeline_RefreshesAndRetriesOnce(t *testing.T) {
	f := newFixture(t, &backend{})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, "AT1", "RT1"))

	todo, err := pipeline.Call[entities.Todo](ctx, f.pipeline, getTodo)

	require.NoError(t, err)
	assert.Equal(t, "Buy milk", todo.Title)
	assert.Equal(t, int32(1), f.backend.refreshCalls.Load())
	assert.Equal(t, int32(2), f.backend.todoCalls.Load())

	cred, err := f.store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, &credentials.Credential{AccessToken: "AT2", RefreshToken: "RT2"}, cred)
	f.redirector.AssertNotCalled(t, "RedirectToLogin", mock.Anything)
}

func TestPipeline_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	f := newFixture(t, &backend{})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, "AT1", "RT1"))

	const requests = 10
	var wg sync.WaitGroup
	errs := make([]error, requests)
	for i := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.pipeline.Do(ctx, getTodo)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.backend.refreshCalls.Load())
}

func TestPipeline_RefreshFailureExpiresSession(t *testing.T) {
	f := newFixture(t, &backend{failRefresh: true})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, "AT1", "RT1"))
	require.NoError(t, f.store.SetStoredUser(ctx, &entities.User{ID: "u1"}))
	f.redirector.On("RedirectToLogin", mock.Anything).Return().Once()

	_, err := f.pipeline.Do(ctx, getTodo)

	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrAuthExpired)
	assert.ErrorIs(t, err, refresh.ErrRefreshFailed)
	assert.True(t, pipeline.IsAuthError(err))
	assert.False(t, f.store.IsAuthenticated(ctx))
	_, err = f.store.StoredUser(ctx)
	assert.ErrorIs(t, err, credentials.ErrNoStoredUser)
	f.redirector.AssertExpectations(t)
}

func TestPipeline_SecondUnauthorizedIsSurfaced(t *testing.T) {
	f := newFixture(t, &backend{alwaysExpired: true})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, "AT1", "RT1"))

	_, err := f.pipeline.Do(ctx, getTodo)

	require.Error(t, err)
	assert.True(t, executor.IsUnauthorized(err))
	assert.False(t, pipeline.IsAuthError(err))
	assert.Equal(t, int32(1), f.backend.refreshCalls.Load())
	assert.Equal(t, int32(2), f.backend.todoCalls.Load())
	assert.True(t, f.store.IsAuthenticated(ctx))
	f.redirector.AssertNotCalled(t, "RedirectToLogin", mock.Anything)
}

func TestPipeline_NoRefreshTokenSurfacesUnauthorized(t *testing.T) {
	f := newFixture(t, &backend{})

	_, err := f.pipeline.Do(context.Background(), getTodo)

	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, executor.StatusOf(err))
	assert.Zero(t, f.backend.refreshCalls.Load())
	f.redirector.AssertNotCalled(t, "RedirectToLogin", mock.Anything)
}

func TestPipeline_RefreshEndpointIsNeverRefreshed(t *testing.T) {
	f := newFixture(t, &backend{failRefresh: true})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, "AT1", "RT1"))

	_, err := f.pipeline.Do(ctx, executor.Request{
		Method:   http.MethodPost,
		Endpoint: refresh.Endpoint,
		Body:     map[string]string{"refresh_token": "RT1"},
	})

	require.Error(t, err)
	assert.True(t, executor.IsUnauthorized(err))
	assert.Equal(t, int32(1), f.backend.refreshCalls.Load())
	assert.True(t, f.store.IsAuthenticated(ctx))
}

func TestCall_NoContent(t *testing.T) {
	f := newFixture(t, &backend{})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, "AT2", "RT2"))

	out, err := pipeline.Call[entities.Todo](ctx, f.pipeline, executor.Request{
		Method:   http.MethodDelete,
		Endpoint: "/api/v1/todos/t1",
	})

	require.ErrorIs(t, err, pipeline.ErrNoContent)
	assert.Nil(t, out)
}

func TestIsRefreshEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{refresh.Endpoint, true},
		{refresh.Endpoint + "/", true},
		{refresh.Endpoint + "?x=1", true},
		{"/api/v1/auth/me", false},
		{"/api/v1/todos", false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, pipeline.IsRefreshEndpoint(tt.endpoint))
		})
	}
}
