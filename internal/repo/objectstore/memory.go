package objectstore

import (
	"context"
	"sync"
	"time"

	"github.com/steveyiyo/wordcards-backend/internal/config"
)

type object struct {
	data []byte
	info Info
}

type MemoryStore struct {
	base string
	m    sync.Map
}

func NewMemoryStore(publicBase string) *MemoryStore {
	return &MemoryStore{base: publicBase}
}

func (s *MemoryStore) Name() string { return config.StoreMemory }

func (s *MemoryStore) Head(_ context.Context, path string) (*Info, error) {
	v, ok := s.m.Load(path)
	if !ok {
		return nil, ErrNotFound
	}
	info := v.(*object).info
	return &info, nil
}

func (s *MemoryStore) Put(_ context.Context, path string, data []byte, opts PutOptions) (*Info, error) {
	obj := &object{
		data: append([]byte(nil), data...),
		info: Info{
			Path:         path,
			URL:          PublicURL(s.base, path),
			Size:         int64(len(data)),
			ContentType:  opts.ContentType,
			CacheControl: opts.CacheControl,
			ModTime:      time.Now().UTC(),
		},
	}
	if _, loaded := s.m.LoadOrStore(path, obj); loaded {
		return nil, ErrExists
	}
	info := obj.info
	return &info, nil
}

func (s *MemoryStore) Get(_ context.Context, path string) ([]byte, *Info, error) {
	v, ok := s.m.Load(path)
	if !ok {
		return nil, nil, ErrNotFound
	}
	obj := v.(*object)
	info := obj.info
	return obj.data, &info, nil
}
