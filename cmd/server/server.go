package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/steveyiyo/wordcards-backend/internal/config"
	"github.com/steveyiyo/wordcards-backend/internal/core/clips"
	"github.com/steveyiyo/wordcards-backend/internal/core/deck"
	"github.com/steveyiyo/wordcards-backend/internal/core/memo"
	"github.com/steveyiyo/wordcards-backend/internal/core/tts"
	h "github.com/steveyiyo/wordcards-backend/internal/http"
	"github.com/steveyiyo/wordcards-backend/internal/http/handlers"
	"github.com/steveyiyo/wordcards-backend/internal/logging"
	"github.com/steveyiyo/wordcards-backend/internal/repo/objectstore"
	"github.com/steveyiyo/wordcards-backend/internal/telemetry"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", "err", err)
	}

	logger, logCloser := logging.New(cfg.Log)
	defer logCloser.Close()
	gin.SetMode(cfg.HTTP.GinMode)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.TTS.Validate(); err != nil {
		logger.Warn("tts backend is not usable; requests will fail until fixed", "backend", cfg.TTS.Backend, "err", err)
	}

	metrics, metricsHandler, err := telemetry.Setup()
	if err != nil {
		return err
	}
	defer metrics.Shutdown(context.Background())

	synth, err := tts.New(cfg.TTS, logger)
	if err != nil {
		return err
	}
	cache, err := memo.New(synth, cfg.TTS.MemoEntries, memo.WithMetrics(metrics), memo.WithLogger(logger))
	if err != nil {
		return err
	}

	store, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	cat, err := deck.LoadCatalog(cfg.Content.Path)
	if err != nil {
		return err
	}

	voice := cfg.TTS.ResolvedVoice()
	resolver := clips.NewResolver(store, cache, synth.Engine(), cfg.TTS.CacheVersion, metrics, logger)
	svc := deck.NewService(cat, resolver, voice, synth.Engine(), cfg.TTS.CacheVersion, logger)

	r := h.NewRouter(h.Deps{
		Deck:           svc,
		Store:          store,
		Health:         handlers.NewHealthHandler(synth.Name(), synth.Engine(), store.Name(), voice),
		Metrics:        metricsHandler,
		Log:            logger,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			"addr", srv.Addr,
			"backend", synth.Name(),
			"engine", synth.Engine(),
			"store", store.Name(),
			"cards", cat.Len(),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, logger *log.Logger) (objectstore.Store, io.Closer, error) {
	base := cfg.HTTP.PublicBaseURL
	switch cfg.Store.Backend {
	case config.StoreNATS:
		s, err := objectstore.NewNATSStore(ctx, objectstore.NATSConfig{
			URL:        cfg.Store.NATSURL,
			Bucket:     cfg.Store.NATSBucket,
			ClaimTTL:   cfg.Store.NATSClaimTTL,
			PublicBase: base,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StoreRedis:
		s, err := objectstore.NewRedisStore(ctx, objectstore.RedisConfig{
			Addr:       cfg.Store.RedisAddr,
			Password:   cfg.Store.RedisPassword,
			DB:         cfg.Store.RedisDB,
			Prefix:     cfg.Store.RedisPrefix,
			PublicBase: base,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return objectstore.NewMemoryStore(base), nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
