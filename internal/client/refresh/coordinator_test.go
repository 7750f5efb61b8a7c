package refresh_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapters "gotodo/internal/client/adapters/storage"
	"gotodo/internal/client/credentials"
	"gotodo/internal/client/executor"
	"gotodo/internal/client/refresh"
)

// fakeAuth - внешний API, выдающий пару AT2/RT2 на refresh_token RT1.
type fakeAuth struct {
	calls   atomic.Int32
	status  int
	rotate  bool
	started chan struct{}
	release chan struct{}
}

func (f *fakeAuth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != refresh.Endpoint {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	if f.status != 0 || body["refresh_token"] != "RT1" || r.Header.Get("Authorization") != "" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid refresh token"}`))
		return
	}

	resp := map[string]string{"access_token": "AT2"}
	if f.rotate {
		resp["refresh_token"] = "RT2"
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func setup(t *testing.T, auth *fakeAuth) (*refresh.Coordinator, *credentials.Store) {
	t.Helper()

	server := httptest.NewServer(auth)
	t.Cleanup(server.Close)

	store := credentials.NewStore(adapters.NewMemoryKV())
	exec := executor.New(executor.Config{BaseURL: server.URL, Timeout: 5 * time.Second}, store)

	return refresh.NewCoordinator(store, exec, 5*time.Second), store
}

func TestCoordinator_ConcurrentCallersShareOneRefresh(t *testing.T) {
	auth := &fakeAuth{rotate: true}
	coordinator, store := setup(t, auth)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "AT1", "RT1"))

	const callers = 20
	var wg sync.WaitGroup
	results := make([]*credentials.Credential, callers)
	errs := make([]error, callers)

	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = coordinator.RefreshStale(ctx, "AT1")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), auth.calls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, &credentials.Credential{AccessToken: "AT2", RefreshToken: "RT2"}, results[i])
	}

	stored, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AT2", stored.AccessToken)
	assert.Equal(t, "RT2", stored.RefreshToken)
}

func TestCoordinator_FailureClearsStore(t *testing.T) {
	auth := &fakeAuth{status: http.StatusUnauthorized}
	coordinator, store := setup(t, auth)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "AT1", "RT1"))

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = coordinator.RefreshStale(ctx, "AT1")
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, auth.calls.Load(), int32(1))
	for _, err := range errs {
		require.Error(t, err)
		// Поздние вызывающие видят уже очищенное хранилище.
		if errors.Is(err, refresh.ErrRefreshFailed) {
			assert.True(t, executor.IsUnauthorized(err))
			continue
		}
		assert.ErrorIs(t, err, refresh.ErrNoRefreshToken)
	}
	assert.False(t, store.IsAuthenticated(ctx))
	_, ok := store.RefreshToken(ctx)
	assert.False(t, ok)
}

func TestCoordinator_NoRefreshToken(t *testing.T) {
	auth := &fakeAuth{}
	coordinator, _ := setup(t, auth)

	_, err := coordinator.Refresh(context.Background())

	assert.ErrorIs(t, err, refresh.ErrNoRefreshToken)
	assert.Zero(t, auth.calls.Load())
}

func TestCoordinator_KeepsRefreshTokenWithoutRotation(t *testing.T) {
	auth := &fakeAuth{rotate: false}
	coordinator, store := setup(t, auth)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "AT1", "RT1"))

	cred, err := coordinator.Refresh(ctx)

	require.NoError(t, err)
	assert.Equal(t, "AT2", cred.AccessToken)
	assert.Equal(t, "RT1", cred.RefreshToken)
}

func TestCoordinator_StaleTokenAlreadyReplaced(t *testing.T) {
	auth := &fakeAuth{rotate: true}
	coordinator, store := setup(t, auth)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "AT2", "RT2"))

	cred, err := coordinator.RefreshStale(ctx, "AT1")

	require.NoError(t, err)
	assert.Equal(t, "AT2", cred.AccessToken)
	assert.Zero(t, auth.calls.Load())
}

func TestCoordinator_CancelledCallerDoesNotFailOthers(t *testing.T) {
	auth := &fakeAuth{
		rotate:  true,
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	coordinator, store := setup(t, auth)
	require.NoError(t, store.Save(context.Background(), "AT1", "RT1"))

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := coordinator.RefreshStale(leaderCtx, "AT1")
		leaderErr <- err
	}()
	<-auth.started

	followerResult := make(chan *credentials.Credential, 1)
	followerErr := make(chan error, 1)
	go func() {
		cred, err := coordinator.RefreshStale(context.Background(), "AT1")
		followerResult <- cred
		followerErr <- err
	}()

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(auth.release)
	require.NoError(t, <-followerErr)
	assert.Equal(t, "AT2", (<-followerResult).AccessToken)
	assert.Equal(t, int32(1), auth.calls.Load())
}
