// Package objectstore holds the content-addressed blob stores that persist
// synthesized clips. Every store rejects a second write to the same path.
package objectstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("object not found")
	ErrExists   = errors.New("object already exists")
)

type Info struct {
	Path         string
	URL          string
	Size         int64
	ContentType  string
	CacheControl string
	ModTime      time.Time
}

type PutOptions struct {
	ContentType  string
	CacheControl string
}

type Store interface {
	// Head returns ErrNotFound when nothing is stored at path.
	Head(ctx context.Context, path string) (*Info, error)
	// Put returns ErrExists when path is already taken; the stored bytes are
	// never replaced.
	Put(ctx context.Context, path string, data []byte, opts PutOptions) (*Info, error)
	Get(ctx context.Context, path string) ([]byte, *Info, error)
	Name() string
}

// PublicURL is where the audio route serves path.
func PublicURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/audio/" + strings.TrimLeft(path, "/")
}
