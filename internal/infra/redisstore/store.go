// Package redisstore is the Redis-backed alternative to the cookie jar: same
// size cap and far-future expiry, shared by every browser tab of one player.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/brainquest/brainquest/internal/domain"
	"github.com/brainquest/brainquest/internal/pkg/logger"
)

const (
	// MaxValueBytes mirrors the cookie cap so either fallback accepts the same saves.
	MaxValueBytes = 4096
	// DefaultTTL is the far-future expiry of every key.
	DefaultTTL = 10 * 365 * 24 * time.Hour
)

// Options configures a Store.
type Options struct {
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// Store implements the fallback backend on a Redis client.
type Store struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// New dials addr and pings it.
func New(ctx context.Context, addr string, opts Options, log *logger.Logger) (*Store, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if log == nil {
		log = logger.Nop()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newWithClient(rdb, opts, log.With("service", "RedisStore")), nil
}

func newWithClient(rdb *goredis.Client, opts Options, log *logger.Logger) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "brainquest:"
	}
	return &Store{log: log, rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *Store) key(k string) string { return s.prefix + k }

// Get returns the value under key, or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

// Put stores value with the configured TTL, rejecting values over MaxValueBytes.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if len(value) > MaxValueBytes {
		return fmt.Errorf("%w: %d > %d bytes", domain.ErrValueTooLarge, len(value), MaxValueBytes)
	}
	if err := s.rdb.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Close releases the client.
func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
