package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/steveyiyo/wordcards-backend/internal/core/deck"
	"github.com/steveyiyo/wordcards-backend/internal/core/httpcache"
	"github.com/steveyiyo/wordcards-backend/internal/core/tts"
	"github.com/steveyiyo/wordcards-backend/pkg/types"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

const mimeWAV = "audio/wav"

type TTSHandler struct {
	Deck *deck.Service
	Log  *log.Logger
}

func NewTTSHandler(d *deck.Service, logger *log.Logger) *TTSHandler {
	return &TTSHandler{Deck: d, Log: logger.WithPrefix("tts")}
}

// Synthesize handles POST /tts with literal word and phrase text.
func (h *TTSHandler) Synthesize(c *gin.Context) {
	var req types.TTSReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResp{Error: "Invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Word) == "" || strings.TrimSpace(req.Phrase) == "" {
		h.fail(c, deck.ErrInvalidInput)
		return
	}

	audio, err := h.Deck.Adhoc(c.Request.Context(), req.Word, req.Phrase)
	if err != nil {
		h.fail(c, err)
		return
	}
	httpcache.Apply(c, httpcache.ETag(h.Deck.AdhocSeed(req.Word, req.Phrase)...))
	c.JSON(http.StatusOK, types.TTSResp{
		MimeType:       mimeWAV,
		WordAudioURL:   audio.WordURL,
		PhraseAudioURL: audio.PhraseURL,
	})
}

// Card handles GET /tts?id= for a registered card.
func (h *TTSHandler) Card(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, types.ErrorResp{Error: "Missing required query parameter: id"})
		return
	}
	card, err := h.Deck.Card(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if httpcache.Apply(c, httpcache.ETag(h.Deck.CardSeed(card)...)) {
		return
	}

	audio, err := h.Deck.CardAudio(c.Request.Context(), card)
	if err != nil {
		// Errors must not be cached as if they were the card's audio.
		c.Header("Cache-Control", "no-store")
		c.Writer.Header().Del("ETag")
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, types.TTSResp{
		MimeType:       mimeWAV,
		WordAudioURL:   audio.WordURL,
		PhraseAudioURL: audio.PhraseURL,
	})
}

func (h *TTSHandler) fail(c *gin.Context, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error("tts failed", "route", c.FullPath(), "method", c.Request.Method, "err", err)
	}
	_ = c.Error(err)
	c.JSON(status, types.ErrorResp{Error: msg})
}

func classify(err error) (int, string) {
	var cfgErr *tts.ConfigError
	switch {
	case errors.Is(err, deck.ErrInvalidInput):
		return http.StatusBadRequest, "Missing required fields: word, phrase"
	case errors.Is(err, deck.ErrUnknownCard):
		return http.StatusNotFound, "Unknown flashcard id"
	case errors.Is(err, tts.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusInternalServerError, tts.ErrTimeout.Error()
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, cfgErr.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
