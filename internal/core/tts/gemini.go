package tts

import (
	"context"
	"crypto/tls"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"

	"github.com/steveyiyo/wordcards-backend/internal/config"
	"github.com/steveyiyo/wordcards-backend/internal/core/wav"
)

const defaultGeminiModel = "gemini-2.5-flash-preview-tts"

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// GeminiSynthesizer asks the generative API for AUDIO output with a prebuilt
// voice. The API answers with raw PCM, which is wrapped into a WAV here.
type GeminiSynthesizer struct {
	cfg GeminiConfig
	log *log.Logger

	mu sync.Mutex
	c  *genai.Client
}

func NewGemini(cfg GeminiConfig, logger *log.Logger) *GeminiSynthesizer {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	return &GeminiSynthesizer{cfg: cfg, log: logger.WithPrefix("gemini")}
}

func (g *GeminiSynthesizer) Name() string   { return config.BackendGemini }
func (g *GeminiSynthesizer) Engine() string { return g.cfg.Model }

func (g *GeminiSynthesizer) client(ctx context.Context) (*genai.Client, error) {
	if g.cfg.APIKey == "" {
		return nil, &ConfigError{Err: config.ErrMissingAPIKey}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.c != nil {
		return g.c, nil
	}

	tr := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2: false,
		MaxIdleConns:      100,
		IdleConnTimeout:   90 * time.Second,
	}
	hc := &http.Client{Transport: tr, Timeout: 60 * time.Second}
	cl, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     g.cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    g.cfg.BaseURL,
			APIVersion: "v1beta",
		},
	})
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	g.c = cl
	return cl, nil
}

func (g *GeminiSynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	cl, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	parts := []*genai.Part{{Text: text}}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	resp, err := cl.Models.GenerateContent(ctx, g.cfg.Model, []*genai.Content{{Parts: parts}}, cfg)
	if err != nil {
		return nil, g.mapError(ctx, err)
	}

	audio, ok := findAudio(resp)
	if !ok {
		return nil, ErrNoAudio
	}
	if wav.IsWAV(audio.data) {
		return audio.data, nil
	}
	g.log.Debug("received pcm", "bytes", len(audio.data), "mime", audio.mimeType)
	return wav.Encode(audio.data, audio.format()), nil
}

func (g *GeminiSynthesizer) mapError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Backend: g.Name(), Status: apiErr.Code, Detail: truncate(apiErr.Message, maxDetailLen)}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &UpstreamError{Backend: g.Name(), Status: apiErrPtr.Code, Detail: truncate(apiErrPtr.Message, maxDetailLen)}
	}
	return err
}

// audioPart is the inline payload of one response part. A response either
// carries one (found) or it does not.
type audioPart struct {
	data     []byte
	mimeType string
}

// format reads the sample rate from a mime type such as
// "audio/L16;codec=pcm;rate=24000", falling back to the default PCM format.
func (a audioPart) format() wav.Format {
	f := wav.DefaultFormat
	_, params, err := mime.ParseMediaType(a.mimeType)
	if err != nil {
		return f
	}
	if rate, err := strconv.Atoi(params["rate"]); err == nil && rate > 0 {
		f.SampleRate = rate
	}
	return f
}

func findAudio(resp *genai.GenerateContentResponse) (audioPart, bool) {
	if resp == nil {
		return audioPart{}, false
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			return audioPart{data: p.InlineData.Data, mimeType: p.InlineData.MIMEType}, true
		}
	}
	return audioPart{}, false
}
