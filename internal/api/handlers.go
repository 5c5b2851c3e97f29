package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brainquest/brainquest/internal/app/ledger"
	"github.com/brainquest/brainquest/internal/domain"
)

// ─── Game API ───────────────────────────────────────────────────────────────
// Precondition failures (cooldown, insufficient coins, already claimed) are
// 200 with {"success": false, "message": ...}. Only malformed requests get
// a 4xx.

// ─── Projections ────────────────────────────────────────────────────────────

// handleProgress returns the progress summary.
// GET /api/progress
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Ledger.GetProgressSummary())
}

// GET /api/achievements
func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Achievements.GetAchievementProgress())
}

// GET /api/powerups
func (s *Server) handlePowerUps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.game.PowerUps.GetPowerUpStatus())
}

// handleEvents returns running events, their folded effects and history.
// GET /api/events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active":  s.game.Events.GetActiveEvents(),
		"effects": s.game.Events.GetActiveEffects(),
		"history": s.game.Events.History(),
	})
}

// GET /api/difficulty/{subject}
func (s *Server) handleDifficulty(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Difficulty.GetDifficultySettings(chi.URLParam(r, "subject")))
}

// GET /api/shop
func (s *Server) handleShop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items":     domain.ShopCatalog(),
		"power_ups": s.game.PowerUps.Catalog(),
		"balance":   s.game.Ledger.CoinBalance(),
	})
}

// handleSaveInfo summarizes the stored save without loading it.
// GET /api/save
func (s *Server) handleSaveInfo(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}
	info := s.store.PeekInfo()
	if info == nil {
		writeError(w, http.StatusNotFound, "no save")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// ─── Actions ────────────────────────────────────────────────────────────────

// POST /api/character {"type": "scholar", "name": "Ada"}
func (s *Server) handleSetCharacter(w http.ResponseWriter, r *http.Request) {
	var in ledger.CharacterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	writeJSON(w, http.StatusOK, s.game.SetCharacter(in))
}

type answerRequest struct {
	Subject        string `json:"subject"`
	Correct        *bool  `json:"correct"`
	ResponseTimeMs int64  `json:"response_time_ms"`
}

// handleAnswer records one answered question and returns the fan-out report.
// POST /api/answers {"subject": "math", "correct": true, "response_time_ms": 4200}
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Correct == nil {
		writeError(w, http.StatusBadRequest, "correct is required")
		return
	}
	if req.ResponseTimeMs < 0 {
		writeError(w, http.StatusBadRequest, "response_time_ms must not be negative")
		return
	}
	writeJSON(w, http.StatusOK, s.game.RecordAnswer(req.Subject, *req.Correct, req.ResponseTimeMs))
}

// POST /api/powerups/{id}/activate
func (s *Server) handleActivatePowerUp(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.game.PowerUps.Activate(chi.URLParam(r, "id")))
}

// POST /api/powerups/protection
func (s *Server) handleUseProtection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"used": s.game.PowerUps.UseProtection()})
}

// POST /api/shop/purchase {"id": "globe"}
func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	writeJSON(w, http.StatusOK, s.game.Purchase(req.ID))
}

// POST /api/equipment {"id": "wizard_hat", "type": "cosmetic"}
func (s *Server) handleEquip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   string          `json:"id"`
		Type domain.ItemType `json:"type"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.game.Ledger.Equip(req.ID, req.Type))
}

// DELETE /api/equipment/{slot}
func (s *Server) handleUnequip(w http.ResponseWriter, r *http.Request) {
	slot := domain.ItemSlot(chi.URLParam(r, "slot"))
	if s.game.Ledger.Unequip(slot) {
		writeJSON(w, http.StatusOK, domain.OK("unequipped "+string(slot)))
		return
	}
	writeJSON(w, http.StatusOK, domain.Result{Message: "slot is empty"})
}

// POST /api/daily-reward
func (s *Server) handleDailyReward(w http.ResponseWriter, r *http.Request) {
	rep := s.game.ClaimDailyReward()
	res := domain.OK("daily reward claimed")
	if rep.Reward == nil {
		res = domain.Fail(domain.ErrAlreadyClaimed)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      res.Success,
		"message":      res.Message,
		"reward":       rep.Reward,
		"achievements": rep.Achievements,
	})
}

// POST /api/weeks/{n}/complete
func (s *Server) handleCompleteWeek(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "week must be a number")
		return
	}
	writeJSON(w, http.StatusOK, s.game.CompleteWeek(n))
}

// POST /api/abilities/use
func (s *Server) handleUseAbility(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.game.UseSpecialAbility())
}

// POST /api/tick
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Tick())
}

// POST /api/session/reset
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	s.game.NewSession()
	writeJSON(w, http.StatusOK, domain.OK("session reset"))
}

// handleSave forces a durable write instead of waiting for auto-save.
// POST /api/save
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.game.Save() {
		writeJSON(w, http.StatusOK, domain.OK("saved"))
		return
	}
	writeJSON(w, http.StatusOK, domain.Result{Message: "save failed"})
}
