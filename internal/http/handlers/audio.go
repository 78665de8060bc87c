package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/steveyiyo/wordcards-backend/internal/core/httpcache"
	"github.com/steveyiyo/wordcards-backend/internal/repo/objectstore"
	"github.com/steveyiyo/wordcards-backend/pkg/types"

	"github.com/gin-gonic/gin"
)

// AudioHandler serves stored clips under the URLs the stores hand out.
type AudioHandler struct {
	Store objectstore.Store
}

func NewAudioHandler(s objectstore.Store) *AudioHandler {
	return &AudioHandler{Store: s}
}

func (h *AudioHandler) Get(c *gin.Context) {
	p := strings.TrimPrefix(c.Param("path"), "/")
	if !validPath(p) {
		c.JSON(http.StatusNotFound, types.ErrorResp{Error: "not_found"})
		return
	}

	// Paths are content addressed, so the path alone is a valid validator.
	etag := httpcache.ETag(p)
	if httpcache.Matches(c.GetHeader("If-None-Match"), etag) {
		info, err := h.Store.Head(c.Request.Context(), p)
		if err == nil {
			c.Header("ETag", etag)
			c.Header("Cache-Control", info.CacheControl)
			c.Status(http.StatusNotModified)
			return
		}
	}

	data, info, err := h.Store.Get(c.Request.Context(), p)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, types.ErrorResp{Error: "not_found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, types.ErrorResp{Error: "storage_failed"})
		return
	}
	ct := info.ContentType
	if ct == "" {
		ct = mimeWAV
	}
	c.Header("ETag", etag)
	if info.CacheControl != "" {
		c.Header("Cache-Control", info.CacheControl)
	}
	c.Data(http.StatusOK, ct, data)
}

// validPath rejects empty paths and any segment that could step outside the
// stored namespace.
func validPath(p string) bool {
	if p == "" {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
