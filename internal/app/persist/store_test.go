package persist

import (
	"context"
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brainquest/brainquest/internal/domain"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type failingBackend struct{ MemoryBackend }

func (f *failingBackend) Put(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func newTestStore(t *testing.T) (*Store, *MemoryBackend, *MemoryBackend) {
	t.Helper()
	primary, fallback := NewMemoryBackend(), NewMemoryBackend()
	s := New("memory", primary,
		WithFallback("fallback", fallback),
		WithClock(domain.NewManualClock(testNow)))
	t.Cleanup(s.Close)
	return s, primary, fallback
}

func sampleDoc() *domain.PlayerProgress {
	doc := domain.NewPlayerProgress(testNow)
	doc.Character = &domain.Character{ID: "c1", Type: domain.CharacterExplorer, Name: "Ada", CreatedAt: testNow.UnixMilli()}
	doc.CoinBalance = 340
	doc.TotalCoinsEarned = 900
	doc.SubjectStats["math"] = domain.SubjectStat{Correct: 3, Total: 4}
	doc.SubjectAccuracies["math"] = 75
	doc.WeeksCompleted = []int{1, 2}
	doc.Achievements = []string{"first_steps"}
	doc.Badges = 1
	doc.Inventory.PowerUps["shield"] = 2
	doc.Inventory.Cosmetics["wizard_hat"] = true
	doc.EquippedItems[domain.SlotCosmetic] = "wizard_hat"
	doc.DailyRewards = domain.DailyRewards{LastClaimedDate: "2026-03-13", Streak: 4, MaxStreak: 6}
	return doc
}

// ═══════════════════════════════════════════════════════════════════════════
// Save / Load
// ═══════════════════════════════════════════════════════════════════════════

func TestSaveLoad_RoundTrip(t *testing.T) {
	s, _, _ := newTestStore(t)
	doc := sampleDoc()

	if !s.Save(doc) {
		t.Fatal("Save() = false")
	}
	got := s.Load()
	if got == nil {
		t.Fatal("Load() = nil")
	}
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("Load() = %+v\nwant %+v", got, doc)
	}
}

func TestLoad_NothingStored(t *testing.T) {
	s, _, _ := newTestStore(t)
	if got := s.Load(); got != nil {
		t.Errorf("Load() = %+v, want nil", got)
	}
	if s.PeekInfo() != nil {
		t.Error("PeekInfo() on empty store should be nil")
	}
}

func TestLoad_FallsBackToEncodedCopy(t *testing.T) {
	s, primary, fallback := newTestStore(t)
	doc := sampleDoc()
	s.Save(doc)

	raw, err := fallback.Get(context.Background(), DefaultKey)
	if err != nil {
		t.Fatalf("fallback Get() error: %v", err)
	}
	if _, err := base64.URLEncoding.DecodeString(string(raw)); err != nil {
		t.Fatalf("fallback value is not base64url: %v", err)
	}

	_ = primary.Delete(context.Background(), DefaultKey)
	got := s.Load()
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("Load() from fallback = %+v", got)
	}
	if info := s.PeekInfo(); info == nil || info.Source != "fallback" {
		t.Errorf("PeekInfo().Source = %+v, want fallback", info)
	}
}

func TestLoad_CorruptPrimaryUsesFallback(t *testing.T) {
	s, primary, _ := newTestStore(t)
	s.Save(sampleDoc())
	_ = primary.Put(context.Background(), DefaultKey, []byte("{not json"))

	if got := s.Load(); got == nil || got.CoinBalance != 340 {
		t.Errorf("Load() = %+v, want fallback document", got)
	}
}

func TestSave_FallbackQuotaDoesNotFail(t *testing.T) {
	s, _, fallback := newTestStore(t)
	fallback.MaxBytes = 16

	if !s.Save(sampleDoc()) {
		t.Error("Save() = false; fallback failures must not fail the save")
	}
	if ok, _ := fallback.Exists(context.Background(), DefaultKey); ok {
		t.Error("oversized value reached the fallback")
	}
}

func TestSave_OversizedFallbackDropsStaleCopy(t *testing.T) {
	s, primary, fallback := newTestStore(t)
	ctx := context.Background()
	s.Save(sampleDoc())
	if ok, _ := fallback.Exists(ctx, DefaultKey); !ok {
		t.Fatal("first save did not reach the fallback")
	}

	fallback.MaxBytes = 16
	newer := sampleDoc()
	newer.CoinBalance = 500
	if !s.Save(newer) {
		t.Fatal("Save() = false")
	}
	if ok, _ := fallback.Exists(ctx, DefaultKey); ok {
		t.Error("stale fallback copy survived an oversized save")
	}

	_ = primary.Put(ctx, DefaultKey, []byte("{not json"))
	if got := s.Load(); got != nil {
		t.Errorf("Load() = coins %d, want nil rather than the stale copy", got.CoinBalance)
	}
}

func TestSave_PrimaryFailureReturnsFalse(t *testing.T) {
	s := New("broken", &failingBackend{MemoryBackend{data: map[string][]byte{}}})
	if s.Save(sampleDoc()) {
		t.Error("Save() = true with failing primary")
	}
	if s.Save(nil) {
		t.Error("Save(nil) = true")
	}
}

func TestHasSaveAndClear(t *testing.T) {
	s, _, _ := newTestStore(t)
	if s.HasSave() {
		t.Fatal("HasSave() = true on empty store")
	}
	s.Save(sampleDoc())
	if !s.HasSave() {
		t.Fatal("HasSave() = false after Save")
	}
	if !s.Clear() {
		t.Fatal("Clear() = false")
	}
	if s.HasSave() {
		t.Error("HasSave() = true after Clear")
	}
}

func TestPeekInfo(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.Save(sampleDoc())

	info := s.PeekInfo()
	if info == nil {
		t.Fatal("PeekInfo() = nil")
	}
	if info.FormatVersion != CurrentFormatVersion || info.SavedAt != testNow.UnixMilli() {
		t.Errorf("version/savedAt = %s/%d", info.FormatVersion, info.SavedAt)
	}
	if info.CharacterName != "Ada" || info.CharacterType != domain.CharacterExplorer {
		t.Errorf("character = %s/%s", info.CharacterName, info.CharacterType)
	}
	if info.CoinBalance != 340 || info.Achievements != 1 || info.WeeksCompleted != 2 {
		t.Errorf("summary = %+v", info)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Migration
// ═══════════════════════════════════════════════════════════════════════════

const legacySave = `{
  "formatVersion": "1.0.0",
  "savedAt": 1700000000000,
  "document": {
    "coinBalance": 250,
    "subjectStats": {"math": {"correct": 3, "total": 4}},
    "achievements": ["first_steps", "first_steps", "on_fire"],
    "weeksCompleted": [2, 1, 2],
    "inventory": {"cosmetics": {"wizard_hat": true}},
    "equippedItems": {"cosmetic": "wizard_hat", "tool": "calculator"}
  }
}`

func TestLoad_MigratesLegacyFormat(t *testing.T) {
	s, primary, _ := newTestStore(t)
	_ = primary.Put(context.Background(), DefaultKey, []byte(legacySave))

	doc := s.Load()
	if doc == nil {
		t.Fatal("Load() = nil")
	}

	if doc.CoinBalance != 250 {
		t.Errorf("coinBalance = %d, want 250 (existing data kept)", doc.CoinBalance)
	}
	if doc.TotalCoinsEarned != 250 {
		t.Errorf("totalCoinsEarned = %d, want 250", doc.TotalCoinsEarned)
	}
	if doc.ExperienceMultiplier != 1 || doc.CharacterProgression.Level != 1 {
		t.Errorf("multiplier/level = %v/%d", doc.ExperienceMultiplier, doc.CharacterProgression.Level)
	}
	if doc.SubjectAccuracies["math"] != 75 {
		t.Errorf("subjectAccuracies[math] = %d, want 75", doc.SubjectAccuracies["math"])
	}
	if !reflect.DeepEqual(doc.Achievements, []string{"first_steps", "on_fire"}) || doc.Badges != 2 {
		t.Errorf("achievements = %v badges = %d", doc.Achievements, doc.Badges)
	}
	if !reflect.DeepEqual(doc.WeeksCompleted, []int{1, 2}) {
		t.Errorf("weeksCompleted = %v", doc.WeeksCompleted)
	}
	if doc.Inventory.PowerUps == nil || doc.Inventory.Tools == nil || doc.Inventory.Armor == nil {
		t.Error("inventory buckets not filled")
	}
	if doc.EquippedItems[domain.SlotCosmetic] != "wizard_hat" {
		t.Error("owned equipped item dropped")
	}
	if _, ok := doc.EquippedItems[domain.SlotTool]; ok {
		t.Error("unowned equipped item kept")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s, primary, _ := newTestStore(t)
	_ = primary.Put(context.Background(), DefaultKey, []byte(legacySave))
	doc := s.Load()

	again := doc.Clone()
	Migrate(again)
	if !reflect.DeepEqual(again, doc) {
		t.Errorf("second Migrate changed the document:\n%+v\n%+v", again, doc)
	}
	Migrate(nil)
}

// ═══════════════════════════════════════════════════════════════════════════
// Export / Import
// ═══════════════════════════════════════════════════════════════════════════

func TestExportImport_RoundTrip(t *testing.T) {
	src, _, _ := newTestStore(t)
	if src.Export() != "" {
		t.Error("Export() on empty store should be empty")
	}
	doc := sampleDoc()
	src.Save(doc)

	text := src.Export()
	if !strings.Contains(text, `"formatVersion": "2.1.0"`) || !strings.Contains(text, "\n  ") {
		t.Fatalf("Export() not an indented envelope:\n%s", text)
	}

	dst, _, _ := newTestStore(t)
	if !dst.Import(text) {
		t.Fatal("Import() = false")
	}
	if got := dst.Load(); !reflect.DeepEqual(got, doc) {
		t.Errorf("imported document = %+v", got)
	}
}

func TestImport_Rejects(t *testing.T) {
	s, _, _ := newTestStore(t)
	tests := []struct {
		name string
		text string
	}{
		{"garbage", "not json"},
		{"no document", `{"formatVersion":"2.1.0","savedAt":1}`},
		{"null document", `{"formatVersion":"2.1.0","document":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s.Import(tt.text) {
				t.Error("Import() = true")
			}
		})
	}
	if s.HasSave() {
		t.Error("rejected import wrote a save")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Auto-Save
// ═══════════════════════════════════════════════════════════════════════════

func TestAutoSave_SavesPeriodicallyAndStops(t *testing.T) {
	s, primary, _ := newTestStore(t)
	var calls atomic.Int32
	source := func() *domain.PlayerProgress {
		calls.Add(1)
		return sampleDoc()
	}

	s.EnableAutoSave(source, 5*time.Millisecond)
	if !s.AutoSaveEnabled() {
		t.Fatal("AutoSaveEnabled() = false")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if ok, _ := primary.Exists(context.Background(), DefaultKey); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("auto-save never wrote")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.DisableAutoSave()
	if s.AutoSaveEnabled() {
		t.Fatal("AutoSaveEnabled() = true after disable")
	}
	n := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != n {
		t.Error("source called after DisableAutoSave")
	}
	s.DisableAutoSave()
}

func TestAutoSave_EnableTwiceReplacesTimer(t *testing.T) {
	s, _, _ := newTestStore(t)
	var first, second atomic.Int32

	s.EnableAutoSave(func() *domain.PlayerProgress { first.Add(1); return nil }, time.Hour)
	s.EnableAutoSave(func() *domain.PlayerProgress { second.Add(1); return nil }, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for second.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("replacement timer never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if first.Load() != 0 {
		t.Error("replaced timer fired")
	}

	s.EnableAutoSave(nil, time.Second)
	if !s.AutoSaveEnabled() {
		t.Error("invalid enable should leave the running timer alone")
	}
}
