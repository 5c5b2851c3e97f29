package redisstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/brainquest/brainquest/internal/domain"
	"github.com/brainquest/brainquest/internal/pkg/logger"
)

// newLiveStore connects to BRAINQUEST_TEST_REDIS_ADDR or skips.
func newLiveStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("BRAINQUEST_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BRAINQUEST_TEST_REDIS_ADDR not set")
	}
	s, err := New(context.Background(), addr, Options{KeyPrefix: "brainquest-test:" + t.Name() + ":"}, logger.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_RequiresAddress(t *testing.T) {
	if _, err := New(context.Background(), "  ", Options{}, nil); err == nil {
		t.Fatal("New() with empty address should fail")
	}
}

func TestPut_RejectsOversizedValueWithoutNetwork(t *testing.T) {
	// The client never dials: the size check runs first.
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()
	s := newWithClient(rdb, Options{}, logger.Nop())

	err := s.Put(context.Background(), "save", []byte(strings.Repeat("a", MaxValueBytes+1)))
	if !errors.Is(err, domain.ErrValueTooLarge) {
		t.Fatalf("Put() error = %v, want ErrValueTooLarge", err)
	}
}

func TestNewWithClient_Defaults(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()
	s := newWithClient(rdb, Options{}, logger.Nop())
	if s.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", s.ttl, DefaultTTL)
	}
	if s.key("x") != "brainquest:x" {
		t.Errorf("key(x) = %q", s.key("x"))
	}
}

func TestLive_RoundTrip(t *testing.T) {
	s := newLiveStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "save"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get() before put error = %v, want ErrNotFound", err)
	}
	if err := s.Put(ctx, "save", []byte("abc")); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	got, err := s.Get(ctx, "save")
	if err != nil || string(got) != "abc" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	ttl, err := s.rdb.TTL(ctx, s.key("save")).Result()
	if err != nil || ttl < 24*time.Hour {
		t.Errorf("TTL = %v, %v; want far future", ttl, err)
	}
	if err := s.Delete(ctx, "save"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if ok, _ := s.Exists(ctx, "save"); ok {
		t.Error("Exists() after delete = true")
	}
}
