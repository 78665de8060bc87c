// Package httpcache sets validators and freshness headers on API responses
// and answers conditional GETs.
package httpcache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CacheControl lets browsers and shared caches keep a response for a week and
// serve it stale for a day while revalidating.
const CacheControl = "public, max-age=604800, s-maxage=604800, stale-while-revalidate=86400"

// ETag is a strong validator over the values that determine a response.
func ETag(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// Matches reports whether an If-None-Match header value selects etag. Weak
// comparison is used, as required for If-None-Match.
func Matches(ifNoneMatch, etag string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, tag := range strings.Split(ifNoneMatch, ",") {
		if strings.TrimPrefix(strings.TrimSpace(tag), "W/") == want {
			return true
		}
	}
	return false
}

// Apply sets ETag and Cache-Control. For a GET whose If-None-Match matches it
// also writes 304 with no body and returns true; the caller must then stop.
func Apply(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	c.Header("Cache-Control", CacheControl)
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		return false
	}
	if !Matches(c.GetHeader("If-None-Match"), etag) {
		return false
	}
	c.AbortWithStatus(http.StatusNotModified)
	return true
}
