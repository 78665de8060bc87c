package objectstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/steveyiyo/wordcards-backend/internal/config"
)

const (
	metaContentType  = "content-type"
	metaCacheControl = "cache-control"
)

type NATSConfig struct {
	URL      string
	Bucket   string
	ClaimTTL time.Duration
	// PublicBase prefixes the URLs handed out for stored objects.
	PublicBase string
}

// NATSStore keeps clips in a JetStream object store. JetStream object puts
// overwrite, so a write first takes a claim in a KV bucket: KV Create is
// atomic across every instance sharing the server.
type NATSStore struct {
	cfg    NATSConfig
	nc     *nats.Conn
	objs   jetstream.ObjectStore
	claims jetstream.KeyValue
	log    *log.Logger
}

func NewNATSStore(ctx context.Context, cfg NATSConfig, logger *log.Logger) (*NATSStore, error) {
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 5 * time.Minute
	}
	l := logger.WithPrefix("nats")
	nc, err := nats.Connect(cfg.URL,
		nats.Name("wordcards-backend"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Info("reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	objs, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      cfg.Bucket,
		Description: "synthesized word card clips",
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("object store %s: %w", cfg.Bucket, err)
	}
	claims, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: cfg.Bucket + "_CLAIMS",
		TTL:    cfg.ClaimTTL,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("claims bucket: %w", err)
	}
	return &NATSStore{cfg: cfg, nc: nc, objs: objs, claims: claims, log: l}, nil
}

func (s *NATSStore) Name() string { return config.StoreNATS }

func (s *NATSStore) Close() error {
	s.nc.Close()
	return nil
}

func (s *NATSStore) info(path string, oi *jetstream.ObjectInfo) *Info {
	return &Info{
		Path:         path,
		URL:          PublicURL(s.cfg.PublicBase, path),
		Size:         int64(oi.Size),
		ContentType:  oi.Metadata[metaContentType],
		CacheControl: oi.Metadata[metaCacheControl],
		ModTime:      oi.ModTime,
	}
}

func (s *NATSStore) Head(ctx context.Context, path string) (*Info, error) {
	oi, err := s.objs.GetInfo(ctx, path)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("head %s: %w", path, err)
	}
	return s.info(path, oi), nil
}

// claimKey keeps arbitrary paths inside the KV key alphabet.
func claimKey(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

func (s *NATSStore) Put(ctx context.Context, path string, data []byte, opts PutOptions) (*Info, error) {
	key := claimKey(path)
	for {
		_, err := s.claims.Create(ctx, key, []byte(path))
		if err == nil {
			break
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return nil, fmt.Errorf("claim %s: %w", path, err)
		}
		// Another writer holds the claim. Report the conflict only once its
		// object can be looked up, so callers can re-read it right away.
		err = s.awaitObject(ctx, path, key)
		if err == nil {
			return nil, ErrExists
		}
		if !errors.Is(err, errClaimReleased) {
			return nil, err
		}
	}
	// An expired claim does not mean the blob is gone.
	if _, err := s.objs.GetInfo(ctx, path); err == nil {
		return nil, ErrExists
	} else if !errors.Is(err, jetstream.ErrObjectNotFound) {
		s.release(key)
		return nil, fmt.Errorf("head %s: %w", path, err)
	}

	oi, err := s.objs.Put(ctx, jetstream.ObjectMeta{
		Name: path,
		Metadata: map[string]string{
			metaContentType:  opts.ContentType,
			metaCacheControl: opts.CacheControl,
		},
	}, bytes.NewReader(data))
	if err != nil {
		s.release(key)
		return nil, fmt.Errorf("put %s: %w", path, err)
	}
	return s.info(path, oi), nil
}

var errClaimReleased = errors.New("claim released")

const (
	minAwaitBackoff = 10 * time.Millisecond
	maxAwaitBackoff = 250 * time.Millisecond
)

// awaitObject polls until the claim holder's object is visible. It returns
// errClaimReleased when the claim goes away without an object, which means
// the holder failed and the caller may claim again.
func (s *NATSStore) awaitObject(ctx context.Context, path, key string) error {
	deadline := time.Now().Add(s.cfg.ClaimTTL)
	backoff := minAwaitBackoff
	for {
		_, err := s.objs.GetInfo(ctx, path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, jetstream.ErrObjectNotFound) {
			return fmt.Errorf("head %s: %w", path, err)
		}
		if _, err := s.claims.Get(ctx, key); err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				return errClaimReleased
			}
			return fmt.Errorf("claim %s: %w", path, err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("wait for %s: claim held longer than %s", path, s.cfg.ClaimTTL)
		}

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		backoff = min(backoff*2, maxAwaitBackoff)
	}
}

func (s *NATSStore) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.claims.Delete(ctx, key); err != nil {
		s.log.Warn("release claim", "key", key, "err", err)
	}
}

func (s *NATSStore) Get(ctx context.Context, path string) ([]byte, *Info, error) {
	oi, err := s.objs.GetInfo(ctx, path)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("head %s: %w", path, err)
	}
	data, err := s.objs.GetBytes(ctx, path)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get %s: %w", path, err)
	}
	return data, s.info(path, oi), nil
}
