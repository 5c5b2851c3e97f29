// Package cookiejar is the size-limited fallback store. Values are kept as
// Set-Cookie lines in a single file, with the same constraints a browser
// cookie has: a byte cap per cookie, a restricted charset and an expiry.
package cookiejar

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/brainquest/brainquest/internal/domain"
)

const (
	// MaxCookieBytes is the largest serialized cookie accepted.
	MaxCookieBytes = 4096
	// DefaultLifetime is the "far future" expiry written on every Put.
	DefaultLifetime = 10 * 365 * 24 * time.Hour
)

// Jar is a file-backed cookie store. Safe for concurrent use.
type Jar struct {
	mu       sync.Mutex
	path     string
	clock    domain.Clock
	lifetime time.Duration
}

// Option configures a Jar.
type Option func(*Jar)

// WithClock sets the clock used for expiry decisions.
func WithClock(c domain.Clock) Option { return func(j *Jar) { j.clock = c } }

// WithLifetime overrides DefaultLifetime.
func WithLifetime(d time.Duration) Option { return func(j *Jar) { j.lifetime = d } }

// Open returns a jar persisted at path. The file is created on first Put.
func Open(path string, opts ...Option) (*Jar, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cookie dir: %w", err)
	}
	j := &Jar{path: path, clock: domain.SystemClock{}, lifetime: DefaultLifetime}
	for _, o := range opts {
		o(j)
	}
	return j, nil
}

// Path returns the backing file.
func (j *Jar) Path() string { return j.path }

// Get returns the value of the unexpired cookie named key, or domain.ErrNotFound.
func (j *Jar) Get(_ context.Context, key string) ([]byte, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	cookies, err := j.read()
	if err != nil {
		return nil, err
	}
	c, ok := cookies[key]
	if !ok || j.expired(c) {
		return nil, domain.ErrNotFound
	}
	return []byte(c.Value), nil
}

// Put stores value under key with an expiry of now+lifetime.
func (j *Jar) Put(_ context.Context, key string, value []byte) error {
	c := &http.Cookie{
		Name:    key,
		Value:   string(value),
		Path:    "/",
		Expires: j.clock.Now().Add(j.lifetime).UTC(),
	}
	if err := c.Valid(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidValue, err)
	}
	// Cookie.String drops invalid bytes silently; reject instead.
	if !validValue(c.Value) {
		return domain.ErrInvalidValue
	}
	if n := len(c.String()); n > MaxCookieBytes {
		return fmt.Errorf("%w: %d > %d bytes", domain.ErrValueTooLarge, n, MaxCookieBytes)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	cookies, err := j.read()
	if err != nil {
		return err
	}
	cookies[key] = c
	return j.write(cookies)
}

// Delete removes key. Deleting a missing key is not an error.
func (j *Jar) Delete(_ context.Context, key string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	cookies, err := j.read()
	if err != nil {
		return err
	}
	if _, ok := cookies[key]; !ok {
		return nil
	}
	delete(cookies, key)
	return j.write(cookies)
}

// Exists reports whether an unexpired cookie named key is present.
func (j *Jar) Exists(ctx context.Context, key string) (bool, error) {
	_, err := j.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (j *Jar) expired(c *http.Cookie) bool {
	return !c.Expires.IsZero() && !c.Expires.After(j.clock.Now())
}

func (j *Jar) read() (map[string]*http.Cookie, error) {
	cookies := make(map[string]*http.Cookie)
	data, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return cookies, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cookie jar: %w", err)
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, MaxCookieBytes*2), MaxCookieBytes*2)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, err := http.ParseSetCookie(line)
		if err != nil {
			// A corrupt line loses that cookie only.
			continue
		}
		cookies[c.Name] = c
	}
	return cookies, sc.Err()
}

// write replaces the file atomically via tmp + rename.
func (j *Jar) write(cookies map[string]*http.Cookie) error {
	var buf bytes.Buffer
	buf.WriteString("# brainquest cookie jar\n")
	for _, c := range cookies {
		buf.WriteString(c.String())
		buf.WriteByte('\n')
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write cookie jar: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("replace cookie jar: %w", err)
	}
	return nil
}

func validValue(v string) bool {
	for i := 0; i < len(v); i++ {
		b := v[i]
		if b < 0x21 || b > 0x7e || b == '"' || b == ';' || b == '\\' || b == ',' {
			return false
		}
	}
	return true
}
