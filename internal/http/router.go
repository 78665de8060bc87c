package http

import (
	"net/http"
	"time"

	"github.com/steveyiyo/wordcards-backend/internal/core/deck"
	"github.com/steveyiyo/wordcards-backend/internal/http/handlers"
	"github.com/steveyiyo/wordcards-backend/internal/http/middleware"
	"github.com/steveyiyo/wordcards-backend/internal/repo/objectstore"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Deck    *deck.Service
	Store   objectstore.Store
	Health  *handlers.HealthHandler
	Metrics http.Handler
	Log     *log.Logger

	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(d.Log))

	th := handlers.NewTTSHandler(d.Deck, d.Log)
	ah := handlers.NewAudioHandler(d.Store)
	ch := handlers.NewCardsHandler(d.Deck)

	synth := r.Group("/tts",
		middleware.RateLimit(d.RateLimitRPS, d.RateLimitBurst),
		middleware.Timeout(d.RequestTimeout),
	)
	synth.POST("", th.Synthesize)
	synth.GET("", th.Card)

	r.GET("/audio/*path", ah.Get)
	r.GET("/cards", ch.List)
	if d.Health != nil {
		r.GET("/healthz", d.Health.Get)
	}
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	return r
}
