package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "success"})
}

func get(router http.Handler, method, remote, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/test", nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	router := setupTestRouter()
	router.Use(CORS(DefaultCORSConfig()))
	router.GET("/test", okHandler)

	tests := []struct {
		name           string
		method         string
		origin         string
		wantStatus     int
		wantCORSHeader bool
	}{
		{
			name:           "simple GET request with origin",
			method:         "GET",
			origin:         "http://localhost:3000",
			wantStatus:     http.StatusOK,
			wantCORSHeader: true,
		},
		{
			name:           "preflight OPTIONS request",
			method:         "OPTIONS",
			origin:         "http://localhost:3000",
			wantStatus:     http.StatusNoContent,
			wantCORSHeader: true,
		},
		{
			name:           "no origin header",
			method:         "GET",
			wantStatus:     http.StatusOK,
			wantCORSHeader: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router, tt.method, "", tt.origin)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCORSHeader {
				assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"), "CORS header should be set")
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORSExposesRevision(t *testing.T) {
	router := setupTestRouter()
	router.Use(CORS(DefaultCORSConfig()))
	router.GET("/test", okHandler)

	w := get(router, "GET", "", "http://localhost:3000")

	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Revision")
}

func TestCORSWithOrigins(t *testing.T) {
	cfg := DefaultCORSConfig().WithOrigins([]string{"https://example.com"})
	assert.Equal(t, []string{"https://example.com"}, cfg.AllowOrigins)

	router := setupTestRouter()
	router.Use(CORS(cfg))
	router.GET("/test", okHandler)

	allowed := get(router, "GET", "", "https://example.com")
	assert.Equal(t, http.StatusOK, allowed.Code)
	assert.Equal(t, "https://example.com", allowed.Header().Get("Access-Control-Allow-Origin"))

	denied := get(router, "GET", "", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, denied.Code)
}

func TestCORSWithNoOriginsKeepsDefault(t *testing.T) {
	cfg := DefaultCORSConfig().WithOrigins(nil)
	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))
	router.GET("/test", okHandler)

	// Burst capacity
	for i := 0; i < 2; i++ {
		w := get(router, "GET", "192.168.1.1:1234", "")
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	w := get(router, "GET", "192.168.1.1:1234", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
}

func TestRateLimitDifferentClients(t *testing.T) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))
	router.GET("/test", okHandler)

	assert.Equal(t, http.StatusOK, get(router, "GET", "192.168.1.1:1234", "").Code)
	assert.Equal(t, http.StatusOK, get(router, "GET", "192.168.1.2:1234", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "GET", "192.168.1.1:1234", "").Code)
}

func TestRateLimitEvictsIdleClients(t *testing.T) {
	v := newVisitors(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Unix(1_700_000_000, 0)
	v.now = func() time.Time { return now }

	router := setupTestRouter()
	router.Use(rateLimit(v))
	router.GET("/test", okHandler)

	assert.Equal(t, http.StatusOK, get(router, "GET", "10.0.0.1:1", "").Code)
	assert.Equal(t, http.StatusOK, get(router, "GET", "10.0.0.2:1", "").Code)
	assert.Equal(t, 2, v.size())

	// Only 10.0.0.2 stays active
	now = now.Add(30 * time.Second)
	get(router, "GET", "10.0.0.2:1", "")

	now = now.Add(45 * time.Second)
	get(router, "GET", "10.0.0.2:1", "")
	assert.Equal(t, 1, v.size())

	// The evicted client starts over with a full bucket
	assert.Equal(t, http.StatusOK, get(router, "GET", "10.0.0.1:1", "").Code)
}

func TestRateLimitZeroTTLKeepsClients(t *testing.T) {
	v := newVisitors(RateLimitConfig{RequestsPerSecond: 10, Burst: 10})
	now := time.Unix(1_700_000_000, 0)
	v.now = func() time.Time { return now }

	v.get("10.0.0.1")
	now = now.Add(24 * time.Hour)
	v.get("10.0.0.2")

	assert.Equal(t, 2, v.size())
}

func TestGlobalRateLimit(t *testing.T) {
	router := setupTestRouter()
	router.Use(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))
	router.GET("/test", okHandler)

	for i := 0; i < 2; i++ {
		w := get(router, "GET", fmt.Sprintf("192.168.1.%d:1234", i+1), "")
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	w := get(router, "GET", "192.168.1.3:1234", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Contains(t, cfg.AllowOrigins, "*")
	assert.Contains(t, cfg.AllowMethods, "GET")
	assert.Contains(t, cfg.AllowMethods, "PUT")
	assert.NotEmpty(t, cfg.AllowHeaders)
	assert.Equal(t, 12*time.Hour, cfg.MaxAge)
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()

	assert.Equal(t, 100, cfg.RequestsPerSecond)
	assert.Equal(t, 200, cfg.Burst)
	assert.Equal(t, 10*time.Minute, cfg.IdleTTL)
}

func BenchmarkCORS(b *testing.B) {
	router := setupTestRouter()
	router.Use(CORS(DefaultCORSConfig()))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		get(router, "GET", "", "http://localhost:3000")
	}
}

func BenchmarkRateLimit(b *testing.B) {
	router := setupTestRouter()
	router.Use(RateLimit(DefaultRateLimitConfig()))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		get(router, "GET", "192.168.1.1:1234", "")
	}
}
