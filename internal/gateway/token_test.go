package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory TokenStore with switchable failure modes.
type fakeStore struct {
	mu     sync.Mutex
	token  string
	ttl    time.Duration
	locked string // current lock owner, "" when free

	failGet  bool
	denyLock bool

	gets, sets, acquires int
}

func (f *fakeStore) GetToken(ctx context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failGet {
		return "", false, errors.New("store down")
	}
	return f.token, f.token != "", nil
}

func (f *fakeStore) SetToken(ctx context.Context, token string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.token, f.ttl = token, ttl
	return nil
}

func (f *fakeStore) AcquireLock(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	if f.denyLock || f.locked != "" {
		return false, nil
	}
	f.locked = owner
	return true, nil
}

func (f *fakeStore) ReleaseLock(ctx context.Context, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked == owner {
		f.locked = ""
	}
	return nil
}

func newTestSource(store TokenStore, fetch fetchFunc) *tokenSource {
	s := newTokenSource(store, fetch, 5*time.Minute, 15*time.Second, slog.Default())
	s.sleep = func(time.Duration) {}
	return s
}

func TestToken_ReturnsCachedWithoutFetch(t *testing.T) {
	store := &fakeStore{token: "cached"}
	fetches := 0
	src := newTestSource(store, func(ctx context.Context) (string, time.Duration, error) {
		fetches++
		return "fresh", time.Hour, nil
	})

	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "cached" {
		t.Fatalf("token = %q, want cached", tok)
	}
	if fetches != 0 {
		t.Fatalf("fetch called %d times on cache hit", fetches)
	}
}

func TestToken_FetchesUnderLockAndCachesWithMargin(t *testing.T) {
	store := &fakeStore{}
	src := newTestSource(store, func(ctx context.Context) (string, time.Duration, error) {
		return "fresh", time.Hour, nil
	})

	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "fresh" {
		t.Fatalf("token = %q, want fresh", tok)
	}
	if store.sets != 1 {
		t.Fatalf("SetToken called %d times", store.sets)
	}
	if store.ttl != 55*time.Minute {
		t.Fatalf("cache ttl = %v, want provider expiry minus margin", store.ttl)
	}
	if store.locked != "" {
		t.Fatalf("lock not released")
	}
}

func TestToken_LockHeld_ReChecksCacheInsteadOfFetching(t *testing.T) {
	store := &fakeStore{denyLock: true}
	fetches := 0
	src := newTestSource(store, func(ctx context.Context) (string, time.Duration, error) {
		fetches++
		return "fresh", time.Hour, nil
	})
	// Simulate the other holder finishing its refresh while we wait.
	src.sleep = func(time.Duration) {
		store.mu.Lock()
		store.token = "refreshed-elsewhere"
		store.mu.Unlock()
	}

	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "refreshed-elsewhere" {
		t.Fatalf("token = %q, want the other holder's token", tok)
	}
	if fetches != 0 {
		t.Fatalf("fetched %d times while lock was held elsewhere", fetches)
	}
}

func TestToken_LockNeverFree_GivesUpRetryable(t *testing.T) {
	store := &fakeStore{denyLock: true}
	src := newTestSource(store, func(ctx context.Context) (string, time.Duration, error) {
		return "fresh", time.Hour, nil
	})

	_, err := src.Token(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestToken_StoreDown_FallsBackToLocalCache(t *testing.T) {
	store := &fakeStore{failGet: true}
	fetches := 0
	src := newTestSource(store, func(ctx context.Context) (string, time.Duration, error) {
		fetches++
		return "local", time.Hour, nil
	})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src.clock = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		tok, err := src.Token(context.Background())
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		if tok != "local" {
			t.Fatalf("token = %q", tok)
		}
	}
	if fetches != 1 {
		t.Fatalf("fetch called %d times, want 1 (local cache)", fetches)
	}

	// Past the margin-adjusted expiry the local token is refreshed.
	now = now.Add(56 * time.Minute)
	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if fetches != 2 {
		t.Fatalf("fetch called %d times after expiry, want 2", fetches)
	}
}

func TestToken_AuthErrorSurfaces(t *testing.T) {
	store := &fakeStore{}
	src := newTestSource(store, func(ctx context.Context) (string, time.Duration, error) {
		return "", 0, ErrAuth
	})

	_, err := src.Token(context.Background())
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
	if IsRetryable(err) {
		t.Fatalf("auth failures must not be retryable")
	}
}
