package cookiejar

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brainquest/brainquest/internal/domain"
)

func newTestJar(t *testing.T, opts ...Option) *Jar {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "cookies.txt"), opts...)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return j
}

func TestPutGet_RoundTrip(t *testing.T) {
	j := newTestJar(t)
	ctx := context.Background()

	if err := j.Put(ctx, "save", []byte("eyJhIjoxfQ==")); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	got, err := j.Get(ctx, "save")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got) != "eyJhIjoxfQ==" {
		t.Errorf("Get() = %q", got)
	}

	// A second jar over the same file sees the value.
	j2, _ := Open(j.Path())
	if ok, _ := j2.Exists(ctx, "save"); !ok {
		t.Error("reopened jar: Exists() = false")
	}
}

func TestGet_Missing(t *testing.T) {
	j := newTestJar(t)
	if _, err := j.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestPut_RejectsOversizedValue(t *testing.T) {
	j := newTestJar(t)
	err := j.Put(context.Background(), "save", []byte(strings.Repeat("a", MaxCookieBytes)))
	if !errors.Is(err, domain.ErrValueTooLarge) {
		t.Fatalf("Put() error = %v, want ErrValueTooLarge", err)
	}
	if _, err := os.Stat(j.Path()); !os.IsNotExist(err) {
		t.Error("rejected Put() should not create the jar file")
	}
}

func TestPut_RejectsInvalidCharset(t *testing.T) {
	j := newTestJar(t)
	for _, v := range []string{`{"a":1}`, "a;b", "with space"} {
		if err := j.Put(context.Background(), "save", []byte(v)); !errors.Is(err, domain.ErrInvalidValue) {
			t.Errorf("Put(%q) error = %v, want ErrInvalidValue", v, err)
		}
	}
}

func TestGet_ExpiredCookieIsMissing(t *testing.T) {
	clock := domain.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	j := newTestJar(t, WithClock(clock), WithLifetime(time.Hour))
	ctx := context.Background()

	if err := j.Put(ctx, "save", []byte("v")); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Hour)
	if ok, err := j.Exists(ctx, "save"); ok || err != nil {
		t.Errorf("Exists() after expiry = %v, %v; want false, nil", ok, err)
	}
}

func TestDelete(t *testing.T) {
	j := newTestJar(t)
	ctx := context.Background()
	_ = j.Put(ctx, "a", []byte("1"))
	_ = j.Put(ctx, "b", []byte("2"))

	if err := j.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if ok, _ := j.Exists(ctx, "a"); ok {
		t.Error("a still present after Delete")
	}
	if ok, _ := j.Exists(ctx, "b"); !ok {
		t.Error("b lost by deleting a")
	}
	if err := j.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}
