package user_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/user-directory/internal/fetch"
	"github.com/nekogravitycat/user-directory/internal/pkg/cache"
	"github.com/nekogravitycat/user-directory/internal/user"
)

var sampleUsers = []user.User{
	{
		ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz",
		Phone: "1-770-736-8031 x56442", Website: "hildegard.org",
		Address: user.Address{Street: "Kulas Light", Suite: "Apt. 556", City: "Gwenborough", Zipcode: "92998-3874",
			Geo: user.Geo{Lat: "-37.3159", Lng: "81.1496"}},
		Company: user.Company{Name: "Romaguera-Crona", CatchPhrase: "Multi-layered client-server neural-net", BS: "harness real-time e-markets"},
	},
	{ID: 2, Name: "Ervin Howell", Username: "Antonette", Email: "Shanna@melissa.tv", Website: "anastasia.net"},
}

// newUpstream serves the list and detail endpoints and counts hits.
func newUpstream(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(sampleUsers)
	})
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		for _, u := range sampleUsers {
			if r.PathValue("id") == strconv.Itoa(u.ID) {
				_ = json.NewEncoder(w).Encode(u)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPRepository(t *testing.T) {
	var hits atomic.Int32
	server := newUpstream(t, &hits)
	repo := user.NewHTTPRepository(fetch.NewClient(fetch.Config{}), server.URL)
	ctx := context.Background()

	t.Run("List", func(t *testing.T) {
		users, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "Leanne Graham", users[0].Name)
		assert.Equal(t, "Gwenborough", users[0].Address.City, "nested records are carried through")
		assert.Equal(t, "Romaguera-Crona", users[0].Company.Name)
	})

	t.Run("GetByID", func(t *testing.T) {
		u, err := repo.GetByID(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Antonette", u.Username)
	})

	t.Run("GetByID not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 99)
		require.Error(t, err)
		assert.ErrorIs(t, err, user.ErrNotFound)
		assert.Equal(t, http.StatusNotFound, fetch.StatusOf(err))
	})

	t.Run("upstream failure keeps fetch error", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer failing.Close()

		repo := user.NewHTTPRepository(fetch.NewClient(fetch.Config{}), failing.URL)
		_, err := repo.List(ctx)
		require.Error(t, err)
		assert.Equal(t, fetch.KindHTTP, fetch.KindOf(err))
		assert.NotErrorIs(t, err, user.ErrNotFound)
	})
}

func TestCachedRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("serves repeated reads from cache", func(t *testing.T) {
		var hits atomic.Int32
		server := newUpstream(t, &hits)
		repo := user.NewCachedRepository(
			user.NewHTTPRepository(fetch.NewClient(fetch.Config{}), server.URL),
			user.CachedRepositoryConfig{Store: cache.NewMemoryStore(), TTL: time.Minute},
		)

		for range 3 {
			users, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Len(t, users, 2)
		}
		u, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Bret", u.Username)
		_, err = repo.GetByID(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, int32(2), hits.Load(), "one list call and one detail call")
	})

	t.Run("errors are not cached", func(t *testing.T) {
		var hits atomic.Int32
		server := newUpstream(t, &hits)
		repo := user.NewCachedRepository(
			user.NewHTTPRepository(fetch.NewClient(fetch.Config{}), server.URL),
			user.CachedRepositoryConfig{Store: cache.NewMemoryStore()},
		)

		for range 2 {
			_, err := repo.GetByID(ctx, 42)
			assert.ErrorIs(t, err, user.ErrNotFound)
		}
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("concurrent misses share one upstream call", func(t *testing.T) {
		release := make(chan struct{})
		var hits atomic.Int32
		slow := &blockingRepo{release: release, hits: &hits}

		repo := user.NewCachedRepository(slow, user.CachedRepositoryConfig{Store: cache.NewMemoryStore()})

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				users, err := repo.List(ctx)
				assert.NoError(t, err)
				assert.Len(t, users, 2)
			}()
		}

		// Let the goroutines pile up on the in-flight call before releasing it.
		require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("cancelled caller stops waiting while the shared call finishes", func(t *testing.T) {
		release := make(chan struct{})
		var hits atomic.Int32
		store := cache.NewMemoryStore()
		repo := user.NewCachedRepository(&blockingRepo{release: release, hits: &hits}, user.CachedRepositoryConfig{Store: store})

		callCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			_, err := repo.List(callCtx)
			done <- err
		}()

		require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("List kept waiting after its context was cancelled")
		}

		close(release)
		require.Eventually(t, func() bool {
			_, err := store.Get(ctx, "users:list")
			return err == nil
		}, time.Second, 5*time.Millisecond, "the detached call still fills the cache")

		users, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("unreadable entry is dropped and refetched", func(t *testing.T) {
		var hits atomic.Int32
		server := newUpstream(t, &hits)
		store := cache.NewMemoryStore()
		require.NoError(t, store.Set(ctx, "users:list", []byte("{not json"), time.Minute))

		repo := user.NewCachedRepository(
			user.NewHTTPRepository(fetch.NewClient(fetch.Config{}), server.URL),
			user.CachedRepositoryConfig{Store: store, TTL: time.Minute},
		)

		users, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
		assert.Equal(t, int32(1), hits.Load())

		raw, err := store.Get(ctx, "users:list")
		require.NoError(t, err)
		assert.True(t, json.Valid(raw))
	})
}

type blockingRepo struct {
	release chan struct{}
	hits    *atomic.Int32
}

func (r *blockingRepo) List(ctx context.Context) ([]user.User, error) {
	r.hits.Add(1)
	<-r.release
	return sampleUsers, nil
}

func (r *blockingRepo) GetByID(ctx context.Context, id int) (*user.User, error) {
	return nil, user.ErrNotFound
}

func TestService(t *testing.T) {
	var hits atomic.Int32
	server := newUpstream(t, &hits)
	svc := user.NewService(user.NewHTTPRepository(fetch.NewClient(fetch.Config{}), server.URL))

	_, err := svc.GetByID(context.Background(), 0)
	assert.ErrorIs(t, err, user.ErrInvalidID)
	assert.Equal(t, int32(0), hits.Load(), "invalid ids never reach upstream")

	u, err := svc.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "1770736803156442", u.PhoneDigits())
}
