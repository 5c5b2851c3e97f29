package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/brainquest/brainquest/internal/domain"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	t.Setenv("BRAINQUEST_HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.Storage.Dir = t.TempDir()
	cfg.API.Port = 0
	cfg.Storage.AutoSaveInterval = "0"
	cfg.API.TickInterval = "0"
	return cfg
}

func TestNew_FreshThenReload(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	d, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !d.Store.HasSave() {
		t.Fatal("fresh player was not saved")
	}
	d.Game.RecordAnswer("math", true, 4000)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d2, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d2.Close()
	if got := d2.Game.Ledger.SubjectStat("math"); got != (domain.SubjectStat{Correct: 1, Total: 1}) {
		t.Errorf("reloaded math stats = %+v", got)
	}

	saves, err := d2.DB.RecentSaves(ctx, cfg.Storage.Key, 10)
	if err != nil || len(saves) < 2 {
		t.Errorf("save history = %d, %v", len(saves), err)
	}
}

func TestOpenStore_FallbackNone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Fallback = FallbackNone

	d, err := OpenStore(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer d.Close()
	if d.Game != nil {
		t.Error("OpenStore loaded a game")
	}
	if d.Store.HasSave() {
		t.Error("empty directory has a save")
	}
}

func TestOpenStore_RedisUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Fallback = FallbackRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	d, err := OpenStore(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unreachable redis should degrade, got %v", err)
	}
	defer d.Close()
}

func TestRun_ShutsDownAndSaves(t *testing.T) {
	cfg := testConfig(t)
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	d.Game.CompleteWeek(1)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop")
	}

	loaded := d.Store.Load()
	if loaded == nil || !loaded.HasCompletedWeek(1) {
		t.Error("final save missing the completed week")
	}
}
