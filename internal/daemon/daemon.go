// Package daemon assembles the storage stack, the game and the HTTP server
// from a Config and runs them until the context is cancelled.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brainquest/brainquest/internal/api"
	"github.com/brainquest/brainquest/internal/app/game"
	"github.com/brainquest/brainquest/internal/app/persist"
	"github.com/brainquest/brainquest/internal/infra/cookiejar"
	"github.com/brainquest/brainquest/internal/infra/redisstore"
	"github.com/brainquest/brainquest/internal/infra/sqlite"
	"github.com/brainquest/brainquest/internal/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// Version is stamped by the build.
var Version = "dev"

// Daemon owns every long-lived resource.
type Daemon struct {
	Config Config
	DB     *sqlite.DB
	Store  *persist.Store
	Game   *game.Game

	closers []func() error
	log     *logger.Logger
}

// OpenStore opens the primary and fallback backends without loading a game.
// The CLI uses it for status, export, import and reset.
func OpenStore(ctx context.Context, cfg Config, log *logger.Logger) (*Daemon, error) {
	if log == nil {
		log = logger.Nop()
	}
	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("open save database: %w", err)
	}
	d := &Daemon{Config: cfg, DB: db, log: log, closers: []func() error{db.Close}}

	opts := []persist.Option{persist.WithKey(cfg.Storage.Key), persist.WithLogger(log)}
	switch cfg.Storage.Fallback {
	case FallbackCookie:
		jar, err := cookiejar.Open(filepath.Join(cfg.Storage.Dir, cfg.Storage.CookieFile))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open cookie jar: %w", err)
		}
		opts = append(opts, persist.WithFallback("cookie", jar))
	case FallbackRedis:
		rs, err := redisstore.New(ctx, cfg.Redis.Addr, redisstore.Options{
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, log)
		if err != nil {
			// A missing fallback only costs redundancy.
			log.Warn("redis fallback unavailable", "addr", cfg.Redis.Addr, "error", err)
			break
		}
		d.closers = append(d.closers, rs.Close)
		opts = append(opts, persist.WithFallback("redis", rs))
	}

	d.Store = persist.New("sqlite", db, opts...)
	return d, nil
}

// New opens storage and loads (or starts) the player's game.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Daemon, error) {
	d, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	doc := d.Store.Load()
	if doc == nil {
		d.log.Info("no save found, starting a new player", "dir", cfg.Storage.Dir)
	}
	d.Game = game.New(doc, game.WithSaver(d.Store), game.WithLogger(d.log))
	if doc == nil {
		d.Game.Save()
	}
	return d, nil
}

// Run serves HTTP, ticks expiry and auto-saves until ctx is cancelled,
// then writes a final save.
func (d *Daemon) Run(ctx context.Context) error {
	autosave, _ := d.Config.AutoSaveInterval()
	tick, _ := d.Config.TickInterval()

	server := api.NewServer(d.Game, d.Store, d.log)
	server.SetVersion(Version)
	if d.Config.API.Metrics {
		server.EnableMetrics()
	}
	httpSrv := &http.Server{
		Addr:              d.Config.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if autosave > 0 {
		d.Store.EnableAutoSave(d.Game.Snapshot, autosave)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.log.Info("listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})
	if tick > 0 {
		g.Go(func() error {
			t := time.NewTicker(tick)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-t.C:
					rep := d.Game.Tick()
					if n := len(rep.Events.Expired) + rep.ExpiredPowerUps; n > 0 {
						d.log.Debug("tick expired effects", "count", n)
					}
				}
			}
		})
	}

	err := g.Wait()
	d.Store.DisableAutoSave()
	if !d.Game.Save() {
		d.log.Warn("final save failed")
	}
	return err
}

// Close releases storage in reverse open order.
func (d *Daemon) Close() error {
	if d.Store != nil {
		d.Store.Close()
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.log.Sync()
	return errors.Join(errs...)
}
