// Package persist is the only I/O boundary of the engine. It writes the
// player document inside a versioned envelope to a primary backend and,
// best-effort, to a size-limited fallback. No error leaves this package:
// every failure is logged, counted and reported as false or nil.
package persist

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/brainquest/brainquest/internal/domain"
	"github.com/brainquest/brainquest/internal/infra/observability"
	"github.com/brainquest/brainquest/internal/pkg/logger"
)

const (
	// CurrentFormatVersion is written into every envelope. Loading any other
	// version runs Migrate.
	CurrentFormatVersion = "2.1.0"
	// DefaultKey is the logical key used in both backends.
	DefaultKey = "brainquest_progress"

	defaultTimeout = 5 * time.Second
)

// Envelope is the persisted wrapper around the player document.
type Envelope struct {
	FormatVersion string                 `json:"formatVersion"`
	SavedAt       int64                  `json:"savedAt"` // epoch ms
	Document      *domain.PlayerProgress `json:"document"`
}

// SaveInfo is a cheap summary of the stored save for menus and `status`.
type SaveInfo struct {
	FormatVersion  string               `json:"formatVersion"`
	SavedAt        int64                `json:"savedAt"`
	Source         string               `json:"source"`
	CharacterName  string               `json:"characterName,omitempty"`
	CharacterType  domain.CharacterType `json:"characterType,omitempty"`
	Level          int                  `json:"level"`
	CoinBalance    int                  `json:"coinBalance"`
	Achievements   int                  `json:"achievements"`
	WeeksCompleted int                  `json:"weeksCompleted"`
}

// Store reads and writes envelopes. Safe for concurrent use.
type Store struct {
	primary      Backend
	primaryName  string
	fallback     Backend
	fallbackName string
	key          string
	clock        domain.Clock
	log          *logger.Logger
	timeout      time.Duration

	mu         sync.Mutex
	autoCancel context.CancelFunc
	autoDone   chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithFallback adds the secondary, size-constrained backend.
func WithFallback(name string, b Backend) Option {
	return func(s *Store) { s.fallbackName, s.fallback = name, b }
}

// WithKey overrides DefaultKey.
func WithKey(key string) Option { return func(s *Store) { s.key = key } }

// WithClock sets the clock stamped into savedAt.
func WithClock(c domain.Clock) Option { return func(s *Store) { s.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option { return func(s *Store) { s.log = l } }

// WithTimeout bounds every backend call.
func WithTimeout(d time.Duration) Option { return func(s *Store) { s.timeout = d } }

// New builds a Store over the named primary backend.
func New(name string, primary Backend, opts ...Option) *Store {
	s := &Store{
		primary:     primary,
		primaryName: name,
		key:         DefaultKey,
		clock:       domain.SystemClock{},
		log:         logger.Nop(),
		timeout:     defaultTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "persist", "key", s.key)
	return s
}

// ─── Save / Load ────────────────────────────────────────────────────────────

// Save writes doc to the primary backend and then to the fallback. The
// result reflects the primary write only. A save too large for the fallback
// removes the fallback's older copy.
func (s *Store) Save(doc *domain.PlayerProgress) bool {
	if doc == nil {
		s.log.Warn("refusing to save nil document")
		return false
	}
	env := Envelope{
		FormatVersion: CurrentFormatVersion,
		SavedAt:       s.clock.Now().UnixMilli(),
		Document:      doc,
	}
	data, err := json.Marshal(env)
	if err != nil {
		s.record(s.primaryName, "encode", err)
		return false
	}
	observability.SaveSizeBytes.Observe(float64(len(data)))

	ctx, cancel := s.ctx()
	defer cancel()

	ok := s.record(s.primaryName, "put", s.primary.Put(ctx, s.key, data))
	if s.fallback != nil {
		// The fallback only accepts a restricted charset.
		encoded := base64.URLEncoding.EncodeToString(data)
		err := s.fallback.Put(ctx, s.key, []byte(encoded))
		s.record(s.fallbackName, "put", err)
		if errors.Is(err, domain.ErrValueTooLarge) {
			s.record(s.fallbackName, "delete", s.fallback.Delete(ctx, s.key))
		}
	}
	return ok
}

// Load returns the stored document, migrated to the current format, or nil
// when nothing readable is stored.
func (s *Store) Load() *domain.PlayerProgress {
	env, src := s.readEnvelope()
	if env == nil {
		return nil
	}
	if env.FormatVersion != CurrentFormatVersion {
		s.log.Info("migrating save", "from", env.FormatVersion, "to", CurrentFormatVersion, "source", src)
		Migrate(env.Document)
	}
	return env.Document
}

// HasSave reports whether either backend holds the key, without decoding it.
func (s *Store) HasSave() bool {
	ctx, cancel := s.ctx()
	defer cancel()

	ok, err := s.primary.Exists(ctx, s.key)
	s.record(s.primaryName, "exists", err)
	if ok {
		return true
	}
	if s.fallback == nil {
		return false
	}
	ok, err = s.fallback.Exists(ctx, s.key)
	s.record(s.fallbackName, "exists", err)
	return ok
}

// Clear deletes the save from both backends.
func (s *Store) Clear() bool {
	ctx, cancel := s.ctx()
	defer cancel()

	ok := s.record(s.primaryName, "delete", s.primary.Delete(ctx, s.key))
	if s.fallback != nil {
		ok = s.record(s.fallbackName, "delete", s.fallback.Delete(ctx, s.key)) && ok
	}
	return ok
}

// PeekInfo summarizes the stored save, or returns nil.
func (s *Store) PeekInfo() *SaveInfo {
	env, src := s.readEnvelope()
	if env == nil {
		return nil
	}
	d := env.Document
	info := &SaveInfo{
		FormatVersion:  env.FormatVersion,
		SavedAt:        env.SavedAt,
		Source:         src,
		Level:          d.CharacterProgression.Level,
		CoinBalance:    d.CoinBalance,
		Achievements:   len(d.Achievements),
		WeeksCompleted: len(d.WeeksCompleted),
	}
	if d.Character != nil {
		info.CharacterName = d.Character.Name
		info.CharacterType = d.Character.Type
	}
	return info
}

// ─── Export / Import ────────────────────────────────────────────────────────

// Export returns the stored envelope as indented JSON, or "" if none.
func (s *Store) Export() string {
	env, _ := s.readEnvelope()
	if env == nil {
		return ""
	}
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		s.record(s.primaryName, "export", err)
		return ""
	}
	return string(out)
}

// Import parses an exported envelope, migrates its document and saves it.
func (s *Store) Import(text string) bool {
	var env Envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		s.record("import", "decode", err)
		return false
	}
	if env.Document == nil {
		s.record("import", "decode", errors.New("envelope has no document"))
		return false
	}
	Migrate(env.Document)
	return s.Save(env.Document)
}

// ─── Auto-Save ──────────────────────────────────────────────────────────────

// EnableAutoSave saves source() every interval until disabled. Enabling
// again replaces the previous timer.
func (s *Store) EnableAutoSave(source func() *domain.PlayerProgress, interval time.Duration) {
	if source == nil || interval <= 0 {
		s.log.Warn("auto-save not enabled", "interval", interval)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAutoSaveLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.autoCancel, s.autoDone = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if doc := source(); doc != nil {
					s.Save(doc)
				}
			}
		}
	}()
	s.log.Debug("auto-save enabled", "interval", interval)
}

// DisableAutoSave stops the timer. A no-op when not enabled.
func (s *Store) DisableAutoSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAutoSaveLocked()
}

// AutoSaveEnabled reports whether a timer is running.
func (s *Store) AutoSaveEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoCancel != nil
}

// Close stops auto-save. Backends are owned and closed by the caller.
func (s *Store) Close() {
	s.DisableAutoSave()
}

func (s *Store) stopAutoSaveLocked() {
	if s.autoCancel == nil {
		return
	}
	s.autoCancel()
	<-s.autoDone
	s.autoCancel, s.autoDone = nil, nil
}

// ─── Internals ──────────────────────────────────────────────────────────────

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// readEnvelope prefers the primary backend and falls back to decoding the
// fallback when the primary is empty, unreadable or corrupt.
func (s *Store) readEnvelope() (*Envelope, string) {
	ctx, cancel := s.ctx()
	defer cancel()

	data, err := s.primary.Get(ctx, s.key)
	switch {
	case err == nil:
		s.record(s.primaryName, "get", nil)
		env, derr := decodeEnvelope(data)
		if derr == nil {
			return env, s.primaryName
		}
		s.record(s.primaryName, "decode", derr)
	case errors.Is(err, domain.ErrNotFound):
		s.record(s.primaryName, "get", nil)
	default:
		s.record(s.primaryName, "get", err)
	}

	if s.fallback == nil {
		return nil, ""
	}
	raw, err := s.fallback.Get(ctx, s.key)
	if errors.Is(err, domain.ErrNotFound) {
		s.record(s.fallbackName, "get", nil)
		return nil, ""
	}
	if !s.record(s.fallbackName, "get", err) {
		return nil, ""
	}
	data, err = base64.URLEncoding.DecodeString(string(raw))
	if err != nil {
		s.record(s.fallbackName, "decode", err)
		return nil, ""
	}
	env, err := decodeEnvelope(data)
	if err != nil {
		s.record(s.fallbackName, "decode", err)
		return nil, ""
	}
	s.log.Info("loaded save from fallback", "backend", s.fallbackName)
	return env, s.fallbackName
}

func decodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Document == nil {
		return nil, errors.New("envelope has no document")
	}
	return &env, nil
}

// record counts one backend operation and logs failures. Returns err == nil.
func (s *Store) record(backend, op string, err error) bool {
	observability.StorageOperations.WithLabelValues(backend, op, observability.Result(err == nil)).Inc()
	if err != nil {
		s.log.Warn("storage operation failed", "backend", backend, "op", op, "error", err)
		return false
	}
	return true
}
