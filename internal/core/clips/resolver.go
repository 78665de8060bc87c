// Package clips turns a piece of card text into the public URL of its
// persisted WAV, synthesizing and uploading it the first time it is needed.
package clips

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/steveyiyo/wordcards-backend/internal/core/cachekey"
	"github.com/steveyiyo/wordcards-backend/internal/repo/objectstore"
	"github.com/steveyiyo/wordcards-backend/internal/telemetry"
)

const (
	ContentType  = "audio/wav"
	CacheControl = "public, max-age=31536000, immutable"
)

// Memo is the in-process tier the resolver falls back to on a store miss.
type Memo interface {
	GetOrSynthesize(ctx context.Context, text, voice string) ([]byte, error)
}

type Resolver struct {
	Store   objectstore.Store
	Memo    Memo
	Engine  string
	Version string
	Metrics *telemetry.Metrics
	Log     *log.Logger
}

func NewResolver(store objectstore.Store, m Memo, engine, version string, metrics *telemetry.Metrics, logger *log.Logger) *Resolver {
	return &Resolver{
		Store:   store,
		Memo:    m,
		Engine:  engine,
		Version: version,
		Metrics: metrics,
		Log:     logger.WithPrefix("clips"),
	}
}

// Path is where the clip for text lives; the logical id only groups clips
// and never changes the content hash.
func (r *Resolver) Path(logicalID, voice string, kind cachekey.Kind, text string) string {
	return cachekey.ObjectPath(r.Version, voice, logicalID, kind, cachekey.New(r.Engine, voice, text))
}

func (r *Resolver) GetOrCreateURL(ctx context.Context, logicalID, voice string, kind cachekey.Kind, text string) (string, error) {
	p := r.Path(logicalID, voice, kind, text)
	store := r.Store.Name()

	info, err := r.Store.Head(ctx, p)
	switch {
	case err == nil:
		r.Metrics.StoreHit(ctx, store)
		return info.URL, nil
	case !errors.Is(err, objectstore.ErrNotFound):
		return "", fmt.Errorf("lookup %s: %w", p, err)
	}
	r.Metrics.StoreMiss(ctx, store)

	data, err := r.Memo.GetOrSynthesize(ctx, text, voice)
	if err != nil {
		return "", err
	}

	info, err = r.Store.Put(ctx, p, data, objectstore.PutOptions{
		ContentType:  ContentType,
		CacheControl: CacheControl,
	})
	switch {
	case err == nil:
		r.Log.Debug("stored clip", "path", p, "bytes", len(data))
		return info.URL, nil
	case errors.Is(err, objectstore.ErrExists):
		// Another writer got there first; use theirs.
		r.Metrics.StoreConflict(ctx, store)
		info, err = r.Store.Head(ctx, p)
		if err != nil {
			return "", fmt.Errorf("lookup %s after conflict: %w", p, err)
		}
		return info.URL, nil
	default:
		return "", fmt.Errorf("upload %s: %w", p, err)
	}
}
