package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/steveyiyo/wordcards-backend/internal/config"
	"github.com/steveyiyo/wordcards-backend/internal/core/wav"
)

const (
	defaultSpeechTimeout = 25 * time.Second
	maxAudioBytes        = 32 << 20
)

type SpeechConfig struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// SpeechSynthesizer posts {model, voice, input} to an HTTP speech service that
// answers with a complete WAV file.
type SpeechSynthesizer struct {
	cfg        SpeechConfig
	httpClient *http.Client
	log        *log.Logger
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

func NewSpeech(cfg SpeechConfig, logger *log.Logger) *SpeechSynthesizer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSpeechTimeout
	}
	return &SpeechSynthesizer{
		cfg:        cfg,
		httpClient: &http.Client{},
		log:        logger.WithPrefix("speech"),
	}
}

func (s *SpeechSynthesizer) Name() string { return config.BackendHTTP }

func (s *SpeechSynthesizer) Engine() string { return "http:" + s.cfg.Model }

func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if err := config.ValidateEndpoint(s.cfg.Endpoint); err != nil {
		return nil, &ConfigError{Err: err}
	}

	body, err := json.Marshal(speechRequest{
		Model:          s.cfg.Model,
		Voice:          voice,
		Input:          text,
		ResponseFormat: "wav",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Join(ErrTimeout, err)
		}
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Join(ErrTimeout, err)
		}
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Warn("speech service error", "status", resp.StatusCode, "bytes", len(data))
		return nil, &UpstreamError{Backend: s.Name(), Status: resp.StatusCode, Detail: errorDetail(data)}
	}
	if !wav.IsWAV(data) {
		return nil, ErrUnexpectedResponse
	}
	return data, nil
}

// errorDetail pulls a readable message out of a JSON or plain-text error body.
func errorDetail(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Detail  any             `json:"detail"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if len(payload.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			var flat string
			switch {
			case json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "":
				return truncate(nested.Message, maxDetailLen)
			case json.Unmarshal(payload.Error, &flat) == nil && flat != "":
				return truncate(flat, maxDetailLen)
			}
		}
		switch d := payload.Detail.(type) {
		case string:
			if d != "" {
				return truncate(d, maxDetailLen)
			}
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return truncate(string(b), maxDetailLen)
			}
		}
		if payload.Message != "" {
			return truncate(payload.Message, maxDetailLen)
		}
	}
	return truncate(strings.TrimSpace(string(body)), maxDetailLen)
}
