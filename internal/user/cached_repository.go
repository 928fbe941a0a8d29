package user

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nekogravitycat/user-directory/internal/pkg/cache"
	"github.com/nekogravitycat/user-directory/internal/pkg/metrics"
)

// DefaultRevalidateTTL is how long an upstream payload is served before it is fetched again.
const DefaultRevalidateTTL = 5 * time.Minute

const (
	listCacheKey         = "users:list"
	detailCacheKeyPrefix = "users:detail:"
)

// CachedRepositoryConfig holds the dependencies of the revalidating repository.
type CachedRepositoryConfig struct {
	Store   cache.Store
	TTL     time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type cachedRepository struct {
	next    Repository
	store   cache.Store
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
	group   singleflight.Group
}

// NewCachedRepository wraps next with a fixed-window revalidation cache.
// Only successful payloads are cached; concurrent misses on one key share a single upstream call.
func NewCachedRepository(next Repository, cfg CachedRepositoryConfig) Repository {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultRevalidateTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &cachedRepository{
		next:    next,
		store:   cfg.Store,
		ttl:     ttl,
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

func (r *cachedRepository) List(ctx context.Context) ([]User, error) {
	var users []User
	err := r.load(ctx, listCacheKey, &users, func(ctx context.Context) (any, error) {
		return r.next.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = make([]User, 0)
	}
	return users, nil
}

func (r *cachedRepository) GetByID(ctx context.Context, id int) (*User, error) {
	var u User
	err := r.load(ctx, detailCacheKeyPrefix+strconv.Itoa(id), &u, func(ctx context.Context) (any, error) {
		return r.next.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// load fills out from the cache, or from fetchFn on a miss.
func (r *cachedRepository) load(ctx context.Context, key string, out any, fetchFn func(context.Context) (any, error)) error {
	raw, err := r.store.Get(ctx, key)
	switch {
	case err == nil:
		jsonErr := json.Unmarshal(raw, out)
		if jsonErr == nil {
			r.metrics.ObserveCache(true)
			return nil
		}
		r.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(jsonErr))
		if err := r.store.Delete(ctx, key); err != nil {
			r.logger.Warn("failed to delete unreadable cache entry", zap.String("key", key), zap.Error(err))
		}
	case !errors.Is(err, cache.ErrMiss):
		r.logger.Warn("revalidation cache unavailable", zap.String("key", key), zap.Error(err))
	}
	r.metrics.ObserveCache(false)

	// The shared call must not die with whichever request happened to start it,
	// but each caller stops waiting as soon as its own ctx is done.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		result, err := fetchFn(shared)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}
		if err := r.store.Set(shared, key, data, r.ttl); err != nil {
			r.logger.Warn("failed to store revalidation entry", zap.String("key", key), zap.Error(err))
		}
		return data, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}
	if res.Err != nil {
		return res.Err
	}

	return json.Unmarshal(res.Val.([]byte), out)
}
