package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brainquest/brainquest/internal/app/game"
	"github.com/brainquest/brainquest/internal/app/persist"
	"github.com/brainquest/brainquest/internal/domain"
)

// ─── Game API Tests ─────────────────────────────────────────────────────────

var testNow = time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

func setupServer(t *testing.T) (*Server, *game.Game, http.Handler) {
	t.Helper()
	clock := domain.NewManualClock(testNow)
	store := persist.New("memory", persist.NewMemoryBackend(), persist.WithClock(clock))
	t.Cleanup(store.Close)

	g := game.New(nil,
		game.WithClock(clock),
		game.WithSaver(store),
		game.WithRandom(func() float64 { return 0.99 }),
	)
	s := NewServer(g, store, nil)
	s.EnableMetrics()
	return s, g, s.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp map[string]any
	if w.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return w, resp
}

func TestHealth(t *testing.T) {
	_, _, h := setupServer(t)
	w, resp := do(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || resp["status"] != "ok" {
		t.Errorf("health = %d %v", w.Code, resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, _, h := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("metrics = %d", w.Code)
	}
}

func TestProgress(t *testing.T) {
	_, _, h := setupServer(t)
	w, resp := do(t, h, http.MethodGet, "/api/progress", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["coin_balance"] != float64(100) || resp["level"] != float64(1) {
		t.Errorf("progress = %v", resp)
	}
}

func TestCharacterAndAnswer(t *testing.T) {
	_, g, h := setupServer(t)

	_, resp := do(t, h, http.MethodPost, "/api/character", map[string]string{"type": "explorer", "name": "Rin"})
	if resp["success"] != true {
		t.Fatalf("character = %v", resp)
	}
	_, resp = do(t, h, http.MethodPost, "/api/character", map[string]string{"type": "scholar"})
	if resp["success"] != false || resp["message"] != domain.ErrCharacterExists.Error() {
		t.Errorf("second character = %v", resp)
	}

	w, resp := do(t, h, http.MethodPost, "/api/answers", map[string]any{
		"subject": "history", "correct": true, "response_time_ms": 4200,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("answer = %d", w.Code)
	}
	answer := resp["answer"].(map[string]any)
	if answer["subject"] != "history" || answer["accuracy"] != float64(100) {
		t.Errorf("answer = %v", answer)
	}
	if g.Ledger.SubjectStat("history").Total != 1 {
		t.Error("answer not recorded")
	}
}

func TestAnswer_BadRequests(t *testing.T) {
	_, g, h := setupServer(t)
	tests := []struct {
		name string
		body any
	}{
		{"malformed", "{not json"},
		{"missing correct", map[string]any{"subject": "math"}},
		{"negative time", map[string]any{"subject": "math", "correct": true, "response_time_ms": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := do(t, h, http.MethodPost, "/api/answers", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
	if g.Ledger.SubjectStat("math").Total != 0 {
		t.Error("bad request was recorded")
	}
}

func TestPowerUpActivation(t *testing.T) {
	_, g, h := setupServer(t)

	_, resp := do(t, h, http.MethodPost, "/api/powerups/double_coins/activate", nil)
	if resp["success"] != false || resp["message"] != domain.ErrPowerUpNotOwned.Error() {
		t.Errorf("unowned activation = %v", resp)
	}

	g.Ledger.GrantPowerUp("double_coins", 1)
	_, resp = do(t, h, http.MethodPost, "/api/powerups/double_coins/activate", nil)
	if resp["success"] != true || resp["activation"] == nil {
		t.Fatalf("activation = %v", resp)
	}

	_, resp = do(t, h, http.MethodGet, "/api/powerups", nil)
	effects := resp["effects"].(map[string]any)
	if effects["coin_multiplier"] != float64(2) {
		t.Errorf("effects = %v", effects)
	}

	_, resp = do(t, h, http.MethodPost, "/api/powerups/protection", nil)
	if resp["used"] != false {
		t.Errorf("protection = %v", resp)
	}
}

func TestShop(t *testing.T) {
	_, _, h := setupServer(t)

	w, _ := do(t, h, http.MethodPost, "/api/shop/purchase", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty id = %d", w.Code)
	}
	_, resp := do(t, h, http.MethodPost, "/api/shop/purchase", map[string]string{"id": "globe"})
	if resp["success"] != true {
		t.Fatalf("purchase = %v", resp)
	}
	_, resp = do(t, h, http.MethodPost, "/api/shop/purchase", map[string]string{"id": "study_robe"})
	if resp["success"] != false || resp["message"] != domain.ErrInsufficientCoins.Error() {
		t.Errorf("unaffordable purchase = %v", resp)
	}

	_, resp = do(t, h, http.MethodDelete, "/api/equipment/decoration", nil)
	if resp["success"] != true {
		t.Errorf("unequip = %v", resp)
	}
	_, resp = do(t, h, http.MethodPost, "/api/equipment", map[string]string{"id": "globe", "type": "decoration"})
	if resp["success"] != true {
		t.Errorf("equip = %v", resp)
	}

	_, resp = do(t, h, http.MethodGet, "/api/shop", nil)
	if resp["balance"] != float64(20) {
		t.Errorf("shop = %v", resp)
	}
}

func TestDailyRewardAndWeeks(t *testing.T) {
	_, _, h := setupServer(t)

	_, resp := do(t, h, http.MethodPost, "/api/daily-reward", nil)
	if resp["success"] != true || resp["reward"] == nil {
		t.Errorf("first claim = %v", resp)
	}
	_, resp = do(t, h, http.MethodPost, "/api/daily-reward", nil)
	if resp["success"] != false || resp["message"] != domain.ErrAlreadyClaimed.Error() {
		t.Errorf("second claim = %v", resp)
	}

	w, _ := do(t, h, http.MethodPost, "/api/weeks/three/complete", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric week = %d", w.Code)
	}
	_, resp = do(t, h, http.MethodPost, "/api/weeks/1/complete", nil)
	if resp["success"] != true {
		t.Errorf("week 1 = %v", resp)
	}
	_, resp = do(t, h, http.MethodPost, "/api/weeks/1/complete", nil)
	if resp["success"] != false {
		t.Errorf("week 1 again = %v", resp)
	}
}

func TestProjections(t *testing.T) {
	_, _, h := setupServer(t)
	for _, path := range []string{"/api/achievements", "/api/events", "/api/difficulty/math", "/api/version"} {
		if w, resp := do(t, h, http.MethodGet, path, nil); w.Code != http.StatusOK || resp == nil {
			t.Errorf("GET %s = %d", path, w.Code)
		}
	}
	_, resp := do(t, h, http.MethodGet, "/api/difficulty/Math", nil)
	if resp["subject"] != "math" || resp["tier"] != "easy" {
		t.Errorf("difficulty = %v", resp)
	}
}

func TestSessionTickAndSave(t *testing.T) {
	_, _, h := setupServer(t)

	if w, _ := do(t, h, http.MethodGet, "/api/save", nil); w.Code != http.StatusNotFound {
		t.Errorf("save info before any save = %d", w.Code)
	}
	_, resp := do(t, h, http.MethodPost, "/api/save", nil)
	if resp["success"] != true {
		t.Fatalf("save = %v", resp)
	}
	_, resp = do(t, h, http.MethodGet, "/api/save", nil)
	if resp["formatVersion"] != persist.CurrentFormatVersion {
		t.Errorf("save info = %v", resp)
	}

	for _, path := range []string{"/api/tick", "/api/session/reset", "/api/abilities/use"} {
		if w, _ := do(t, h, http.MethodPost, path, nil); w.Code != http.StatusOK {
			t.Errorf("POST %s = %d", path, w.Code)
		}
	}
}
