package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyiyo/wordcards-backend/internal/http/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, middleware.GetRequestID(c)) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	id := w.Header().Get(middleware.RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	w = do(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(middleware.RateLimit(0.001, 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := []int{}
	for range 3 {
		codes = append(codes, do(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, http.StatusOK, do(r, req).Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(middleware.RateLimit(0, 0))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	for range 20 {
		require.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(middleware.Timeout(20 * time.Millisecond))
	r.GET("/", func(c *gin.Context) {
		dl, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(20*time.Millisecond), dl, 20*time.Millisecond)
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, do(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := log.New(&buf)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(l))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	do(r, httptest.NewRequest(http.MethodGet, "/missing", nil))
	out := buf.String()
	assert.Contains(t, out, "path=/missing")
	assert.Contains(t, out, "status=404")
}
