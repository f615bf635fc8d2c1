package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"biztech/api/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newLimitedRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(NewRateLimiterMiddleware(cfg).Limit())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func get(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterSoftLimitAppliesToAnonymous(t *testing.T) {
	r := newLimitedRouter(&config.Config{
		RateLimitSoftBucketSize: 2,
		RateLimitSoftRefillRate: 0,
		RateLimitHardBucketSize: 100,
		RateLimitHardRefillRate: 100,
	})

	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "").Code, "soft bucket exhausted")
}

func TestRateLimiterAuthenticatedSkipsSoftLimit(t *testing.T) {
	r := newLimitedRouter(&config.Config{
		RateLimitSoftBucketSize: 1,
		RateLimitSoftRefillRate: 0,
		RateLimitHardBucketSize: 10,
		RateLimitHardRefillRate: 10,
	})

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(r, "Bearer some-token").Code)
	}
}

func TestRateLimiterHardLimitCutsEveryoneOff(t *testing.T) {
	r := newLimitedRouter(&config.Config{
		RateLimitSoftBucketSize: 100,
		RateLimitSoftRefillRate: 100,
		RateLimitHardBucketSize: 3,
		RateLimitHardRefillRate: 0,
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, "Bearer some-token").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(r, "Bearer some-token").Code)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
