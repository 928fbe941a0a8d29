package app

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersJSON = `[
  {"id": 1, "name": "Leanne Graham", "username": "Bret", "email": "Sincere@april.biz", "phone": "1-770-736-8031 x56442", "website": "hildegard.org",
   "address": {"street": "Kulas Light", "suite": "Apt. 556", "city": "Gwenborough", "zipcode": "92998-3874", "geo": {"lat": "-37.3159", "lng": "81.1496"}},
   "company": {"name": "Romaguera-Crona", "catchPhrase": "Multi-layered client-server neural-net", "bs": "harness real-time e-markets"}},
  {"id": 2, "name": "Ervin Howell", "username": "Antonette", "email": "Shanna@melissa.tv", "phone": "010-692-6593 x09125", "website": "anastasia.net",
   "address": {"street": "Victor Plains", "suite": "Suite 879", "city": "Wisokyburgh", "zipcode": "90566-7771", "geo": {"lat": "-43.9509", "lng": "-34.4618"}},
   "company": {"name": "Deckow-Crist", "catchPhrase": "Proactive didactic contingency", "bs": "synergize scalable supply-chains"}}
]`

// upstream serves the list endpoint only and counts its hits.
func upstream(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(usersJSON))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestContainer(t *testing.T, baseURL string) *Container {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, err := NewContainer(Config{
		APIBaseURL:      baseURL,
		FetchTimeout:    2 * time.Second,
		RevalidateTTL:   time.Minute,
		DefaultPageSize: 5,
		ViewSessionTTL:  time.Minute,
		Registry:        prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	t.Cleanup(c.Sessions.Close)
	return c
}

func executeRequest(c *Container, method, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	c.Router.ServeHTTP(w, req)
	return w
}

func TestContainer(t *testing.T) {
	srv, hits := upstream(t)
	c := newTestContainer(t, srv.URL)

	t.Run("Users Page", func(t *testing.T) {
		w := executeRequest(c, "GET", "/users?search=leanne")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Leanne Graham")
		assert.NotContains(t, w.Body.String(), "Ervin Howell")
	})

	t.Run("List Is Served From The Revalidation Cache", func(t *testing.T) {
		w := executeRequest(c, "GET", "/v1/users?sort=name&dir=desc")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"catch_phrase":"Multi-layered client-server neural-net"`)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("Detail Uses Its Own Endpoint", func(t *testing.T) {
		w := executeRequest(c, "GET", "/users/1")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Metrics", func(t *testing.T) {
		w := executeRequest(c, "GET", "/metrics")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `directory_upstream_requests_total{outcome="ok"} 1`)
		assert.Contains(t, w.Body.String(), `directory_revalidation_cache_lookups_total{result="hit"} 1`)
	})
}

func TestContainer_UpstreamDown(t *testing.T) {
	srv, _ := upstream(t)
	srv.Close()
	c := newTestContainer(t, srv.URL)

	w := executeRequest(c, "GET", "/v1/users")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"network"`)
}
