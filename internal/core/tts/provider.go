package tts

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/steveyiyo/wordcards-backend/internal/config"
)

// Synthesizer turns text into a complete WAV file using one speech backend.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	// Name identifies the backend kind in logs and metrics.
	Name() string
	// Engine identifies the model producing the audio; it is part of every cache key.
	Engine() string
}

func New(cfg config.TTSConfig, logger *log.Logger) (Synthesizer, error) {
	switch cfg.Backend {
	case config.BackendGemini:
		return NewGemini(GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBase,
		}, logger), nil
	case config.BackendHTTP:
		return NewSpeech(SpeechConfig{
			Endpoint: cfg.HTTPEndpoint,
			Model:    cfg.HTTPModel,
			APIKey:   cfg.HTTPAPIKey,
			Timeout:  cfg.HTTPTimeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
	}
}
