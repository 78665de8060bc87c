package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/steveyiyo/wordcards-backend/internal/config"
)

// putIfAbsent writes the blob and its metadata in one step, or nothing.
var putIfAbsent = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'data', ARGV[1], 'ct', ARGV[2], 'cc', ARGV[3], 'size', ARGV[4], 'mod', ARGV[5])
return 1
`)

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	Prefix     string
	PublicBase string
}

// RedisStore keeps each clip as one hash holding the bytes and their headers.
type RedisStore struct {
	cfg RedisConfig
	rdb *redis.Client
}

func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return &RedisStore{cfg: cfg, rdb: rdb}, nil
}

func (s *RedisStore) Name() string { return config.StoreRedis }

func (s *RedisStore) Close() error { return s.rdb.Close() }

func (s *RedisStore) key(path string) string {
	if s.cfg.Prefix == "" {
		return "obj:" + path
	}
	return s.cfg.Prefix + ":obj:" + path
}

func (s *RedisStore) Head(ctx context.Context, path string) (*Info, error) {
	vals, err := s.rdb.HMGet(ctx, s.key(path), "ct", "cc", "size", "mod").Result()
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", path, err)
	}
	if vals[2] == nil {
		return nil, ErrNotFound
	}
	return s.info(path, vals), nil
}

func (s *RedisStore) info(path string, vals []any) *Info {
	str := func(v any) string {
		out, _ := v.(string)
		return out
	}
	size, _ := strconv.ParseInt(str(vals[2]), 10, 64)
	mod, _ := strconv.ParseInt(str(vals[3]), 10, 64)
	return &Info{
		Path:         path,
		URL:          PublicURL(s.cfg.PublicBase, path),
		Size:         size,
		ContentType:  str(vals[0]),
		CacheControl: str(vals[1]),
		ModTime:      time.Unix(0, mod).UTC(),
	}
}

func (s *RedisStore) Put(ctx context.Context, path string, data []byte, opts PutOptions) (*Info, error) {
	now := time.Now().UTC()
	created, err := putIfAbsent.Run(ctx, s.rdb, []string{s.key(path)},
		data, opts.ContentType, opts.CacheControl, len(data), now.UnixNano(),
	).Int()
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", path, err)
	}
	if created == 0 {
		return nil, ErrExists
	}
	return &Info{
		Path:         path,
		URL:          PublicURL(s.cfg.PublicBase, path),
		Size:         int64(len(data)),
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
		ModTime:      time.Unix(0, now.UnixNano()).UTC(),
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, path string) ([]byte, *Info, error) {
	vals, err := s.rdb.HMGet(ctx, s.key(path), "ct", "cc", "size", "mod", "data").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get %s: %w", path, err)
	}
	data, ok := vals[4].(string)
	if !ok {
		return nil, nil, ErrNotFound
	}
	return []byte(data), s.info(path, vals[:4]), nil
}
