// Package memo keeps recently synthesized clips in process and makes sure
// concurrent requests for the same clip share one synthesis call.
package memo

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/steveyiyo/wordcards-backend/internal/core/cachekey"
	"github.com/steveyiyo/wordcards-backend/internal/core/tts"
	"github.com/steveyiyo/wordcards-backend/internal/telemetry"
)

const DefaultMaxEntries = 400

type Artifact struct {
	Bytes     []byte
	CreatedAt time.Time
}

// Cache maps (engine, voice, normalized text) to a finished WAV.
//
// The completed table is only read with Peek and only written for keys it
// does not hold yet, so entries leave in insertion order. Failed syntheses
// are never stored.
type Cache struct {
	synth   tts.Synthesizer
	done    *lru.Cache[string, Artifact]
	flights singleflight.Group
	metrics *telemetry.Metrics
	log     *log.Logger
	now     func() time.Time
}

type Option func(*Cache)

func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.log = l.WithPrefix("memo") }
}

func New(s tts.Synthesizer, maxEntries int, opts ...Option) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	done, err := lru.New[string, Artifact](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("memo table: %w", err)
	}
	c := &Cache{synth: s, done: done, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = log.Default().WithPrefix("memo")
	}
	return c, nil
}

func (c *Cache) key(text, voice string) string {
	return cachekey.New(c.synth.Engine(), voice, text).String()
}

// GetOrSynthesize returns the cached WAV for text and voice, joining an
// in-flight synthesis for the same key if there is one. The synthesis itself
// is not cancelled when ctx is; only this caller stops waiting.
func (c *Cache) GetOrSynthesize(ctx context.Context, text, voice string) ([]byte, error) {
	key := c.key(text, voice)
	if a, ok := c.done.Peek(key); ok {
		c.metrics.MemoHit(ctx)
		return a.Bytes, nil
	}
	c.metrics.MemoMiss(ctx)

	flightCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key, func() (any, error) {
		if a, ok := c.done.Peek(key); ok {
			return a, nil
		}
		start := c.now()
		data, err := c.synth.Synthesize(flightCtx, cachekey.Normalize(text), voice)
		c.metrics.Synthesis(flightCtx, c.synth.Name(), time.Since(start), err)
		if err != nil {
			c.log.Warn("synthesis failed", "backend", c.synth.Name(), "voice", voice, "err", err)
			return nil, err
		}
		a := Artifact{Bytes: data, CreatedAt: c.now()}
		c.done.ContainsOrAdd(key, a)
		return a, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.metrics.MemoShared(ctx)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Artifact).Bytes, nil
	}
}

// Contains reports whether a completed clip is held, without touching order.
func (c *Cache) Contains(text, voice string) bool {
	return c.done.Contains(c.key(text, voice))
}

func (c *Cache) Len() int { return c.done.Len() }
