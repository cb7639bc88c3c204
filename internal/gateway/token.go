package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"bodacover-platform/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// The provider invalidates every previously issued token whenever a new one
// is requested, so at most one token fetch may be in flight cluster-wide.
// tokenSource implements the shared-cache + named-lock protocol:
//
//  1. read the shared cache; a token not near expiry is returned as-is
//  2. otherwise try the auto-expiring lock; on acquiring it, re-check the
//     cache (another holder may have just refreshed) before fetching
//  3. cache the fresh token with the expiry margin subtracted, release
//  4. if the lock is held elsewhere, wait briefly and re-check the cache
//
// If the shared cache is unreachable the source degrades to a process-local
// token with the same margin; that can multiply token fetches across
// processes but can never double-post a payment.

// TokenStore is the shared cache + lock backing a tokenSource.
type TokenStore interface {
	GetToken(ctx context.Context) (token string, ok bool, err error)
	SetToken(ctx context.Context, token string, ttl time.Duration) error
	AcquireLock(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, owner string) error
}

// fetchFunc performs the actual provider OAuth call.
// expiresIn is the provider-reported token lifetime.
type fetchFunc func(ctx context.Context) (token string, expiresIn time.Duration, err error)

type tokenSource struct {
	store   TokenStore
	fetch   fetchFunc
	margin  time.Duration
	lockTTL time.Duration
	log     *slog.Logger

	// sleep is injectable for deterministic tests.
	sleep func(time.Duration)

	// process-local fallback when the store is unreachable
	mu          sync.Mutex
	localToken  string
	localExpiry time.Time
	clock       func() time.Time
}

const lockRetryWait = 200 * time.Millisecond
const lockRetryAttempts = 25

func newTokenSource(store TokenStore, fetch fetchFunc, margin, lockTTL time.Duration, log *slog.Logger) *tokenSource {
	return &tokenSource{
		store:   store,
		fetch:   fetch,
		margin:  margin,
		lockTTL: lockTTL,
		log:     log,
		sleep:   time.Sleep,
		clock:   time.Now,
	}
}

func (s *tokenSource) Token(ctx context.Context) (string, error) {
	tok, ok, err := s.store.GetToken(ctx)
	if err != nil {
		s.log.Warn("token cache unreachable, using process-local fallback", "err", err)
		return s.localFallback(ctx)
	}
	if ok {
		return tok, nil
	}

	owner := uuid.NewString()
	for attempt := 0; attempt < lockRetryAttempts; attempt++ {
		acquired, err := s.store.AcquireLock(ctx, owner, s.lockTTL)
		if err != nil {
			s.log.Warn("token lock unreachable, using process-local fallback", "err", err)
			return s.localFallback(ctx)
		}
		if acquired {
			return s.refreshLocked(ctx, owner)
		}

		// Another holder is refreshing; wait briefly and re-check the
		// cache instead of fetching a second token.
		s.sleep(lockRetryWait)
		tok, ok, err := s.store.GetToken(ctx)
		if err == nil && ok {
			return tok, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", ErrTimeout
}

// refreshLocked runs with the named lock held.
func (s *tokenSource) refreshLocked(ctx context.Context, owner string) (string, error) {
	defer func() {
		if err := s.store.ReleaseLock(ctx, owner); err != nil {
			s.log.Warn("token lock release failed", "err", err)
		}
	}()

	// Re-check: the previous holder may have refreshed between our cache
	// miss and our lock acquisition.
	if tok, ok, err := s.store.GetToken(ctx); err == nil && ok {
		return tok, nil
	}

	tok, expiresIn, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}

	ttl := expiresIn - s.margin
	if ttl <= 0 {
		ttl = expiresIn
	}
	if err := s.store.SetToken(ctx, tok, ttl); err != nil {
		s.log.Warn("token cache store failed", "err", err)
	}
	return tok, nil
}

func (s *tokenSource) localFallback(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if s.localToken != "" && now.Before(s.localExpiry) {
		return s.localToken, nil
	}

	tok, expiresIn, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	ttl := expiresIn - s.margin
	if ttl <= 0 {
		ttl = expiresIn
	}
	s.localToken = tok
	s.localExpiry = now.Add(ttl)
	return tok, nil
}

// redisTokenStore backs a tokenSource with the shared Redis used by all
// API processes.
type redisTokenStore struct {
	rdb *redis.Client
}

const (
	tokenCacheKey = "gateway:access_token"
	tokenLockKey  = "gateway:access_token_lock"
)

func NewRedisTokenStore(rdb *redis.Client) TokenStore {
	return &redisTokenStore{rdb: rdb}
}

func (r *redisTokenStore) GetToken(ctx context.Context) (string, bool, error) {
	tok, err := r.rdb.Get(ctx, tokenCacheKey).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return tok, tok != "", nil
}

func (r *redisTokenStore) SetToken(ctx context.Context, token string, ttl time.Duration) error {
	return r.rdb.Set(ctx, tokenCacheKey, token, ttl).Err()
}

func (r *redisTokenStore) AcquireLock(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	return utils.AcquireLock(ctx, r.rdb, tokenLockKey, owner, ttl)
}

func (r *redisTokenStore) ReleaseLock(ctx context.Context, owner string) error {
	return utils.ReleaseLock(ctx, r.rdb, tokenLockKey, owner)
}
