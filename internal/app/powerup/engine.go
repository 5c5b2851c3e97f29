// Package powerup activates owned power-ups, enforces cooldowns and folds
// every running activation into one effect snapshot. Expiry is decided
// lazily, against the injected clock, whenever state is read.
package powerup

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/brainquest/brainquest/internal/app/ledger"
	"github.com/brainquest/brainquest/internal/domain"
	"github.com/brainquest/brainquest/internal/infra/observability"
	"github.com/brainquest/brainquest/internal/pkg/logger"
)

// CooldownSource shortens cooldowns by a fraction in [0, 1).
// The event engine implements it.
type CooldownSource interface {
	CooldownReduction() float64
}

// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	ledger   *ledger.Ledger
	clock    domain.Clock
	catalog  []domain.PowerUpDef
	active   []domain.PowerUpActivation // activation order
	lastUsed map[string]int64           // epoch ms
	cooldown CooldownSource
	log      *logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects the clock.
func WithClock(c domain.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithCatalog replaces the built-in catalog.
func WithCatalog(defs []domain.PowerUpDef) Option {
	return func(e *Engine) { e.catalog = defs }
}

// WithCooldownSource applies a cooldown reduction on activation.
func WithCooldownSource(s CooldownSource) Option { return func(e *Engine) { e.cooldown = s } }

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option { return func(e *Engine) { e.log = l } }

// New builds an engine over the shared ledger.
func New(l *ledger.Ledger, opts ...Option) *Engine {
	e := &Engine{
		ledger:   l,
		clock:    l.Clock(),
		catalog:  domain.PowerUpCatalog(),
		lastUsed: make(map[string]int64),
		log:      logger.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("component", "powerups")
	return e
}

// SetCooldownSource wires the cooldown source after construction.
func (e *Engine) SetCooldownSource(s CooldownSource) {
	e.mu.Lock()
	e.cooldown = s
	e.mu.Unlock()
}

func (e *Engine) find(id string) (domain.PowerUpDef, bool) {
	for _, d := range e.catalog {
		if d.ID == id {
			return d, true
		}
	}
	return domain.PowerUpDef{}, false
}

// Catalog returns the power-up definitions.
func (e *Engine) Catalog() []domain.PowerUpDef {
	return slices.Clone(e.catalog)
}

// ─── Activation ─────────────────────────────────────────────────────────────

// ActivationResult is the outcome of Activate.
type ActivationResult struct {
	domain.Result
	Activation *domain.PowerUpActivation `json:"activation,omitempty"`
}

// Activate consumes one owned power-up and starts it. A failed activation
// leaves inventory and the cooldown clock untouched.
func (e *Engine) Activate(id string) ActivationResult {
	def, ok := e.find(id)
	if !ok {
		return e.reject(id, domain.Fail(domain.ErrUnknownPowerUp))
	}
	if def.Restriction != "" && e.ledger.CharacterType() != def.Restriction {
		return e.reject(id, domain.Fail(domain.ErrPowerUpRestricted))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now().UnixMilli()
	if e.ledger.PowerUpCount(id) <= 0 {
		return e.reject(id, domain.Fail(domain.ErrPowerUpNotOwned))
	}
	if remaining := e.cooldownRemainingLocked(def, now); remaining > 0 {
		return e.reject(id, domain.Result{
			Message: fmt.Sprintf("%s: %ds remaining", domain.ErrPowerUpOnCooldown, (remaining+999)/1000),
		})
	}
	if !e.ledger.ConsumePowerUp(id) {
		return e.reject(id, domain.Fail(domain.ErrPowerUpNotOwned))
	}

	act := domain.PowerUpActivation{ID: uuid.NewString(), PowerUpID: id, StartTime: now}
	switch {
	case def.DurationMs > 0:
		act.EndTime = now + def.DurationMs
	case def.DurationMs == domain.DurationInstant:
		act.EndTime = now
	default:
		act.EndTime = -1
	}
	e.active = append(e.active, act)
	e.lastUsed[id] = now

	observability.PowerUpActivations.WithLabelValues(id, "ok").Inc()
	e.log.Info("power-up activated", "power_up", id, "end_time", act.EndTime)
	return ActivationResult{Result: domain.OK(def.Name + " activated"), Activation: &act}
}

func (e *Engine) reject(id string, res domain.Result) ActivationResult {
	observability.PowerUpActivations.WithLabelValues(id, "rejected").Inc()
	return ActivationResult{Result: res}
}

func (e *Engine) cooldownRemainingLocked(def domain.PowerUpDef, now int64) int64 {
	last, ok := e.lastUsed[def.ID]
	if !ok {
		return 0
	}
	cd := float64(def.CooldownMs)
	if e.cooldown != nil {
		if r := e.cooldown.CooldownReduction(); r > 0 && r < 1 {
			cd *= 1 - r
		}
	}
	return last + int64(cd) - now
}

// ─── Reads (lazy expiry) ────────────────────────────────────────────────────

// pruneLocked drops activations whose end time has passed.
func (e *Engine) pruneLocked(now int64) int {
	before := len(e.active)
	e.active = slices.DeleteFunc(e.active, func(a domain.PowerUpActivation) bool {
		return !a.ActiveAt(now)
	})
	return before - len(e.active)
}

// IsActive reports whether id has a running activation.
func (e *Engine) IsActive(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruneLocked(e.clock.Now().UnixMilli())
	return slices.ContainsFunc(e.active, func(a domain.PowerUpActivation) bool {
		return a.PowerUpID == id
	})
}

// GetActiveEffects folds every running activation into one snapshot.
func (e *Engine) GetActiveEffects() domain.PowerUpEffects {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.effectsLocked()
}

func (e *Engine) effectsLocked() domain.PowerUpEffects {
	e.pruneLocked(e.clock.Now().UnixMilli())
	agg := domain.NewPowerUpEffects()
	for _, a := range e.active {
		if def, ok := e.find(a.PowerUpID); ok && def.Effect != nil {
			def.Effect.Apply(&agg)
		}
	}
	return agg
}

// UseProtection consumes the first running protection effect.
func (e *Engine) UseProtection() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruneLocked(e.clock.Now().UnixMilli())

	for i, a := range e.active {
		def, ok := e.find(a.PowerUpID)
		if !ok {
			continue
		}
		if _, isProtection := def.Effect.(domain.Protection); isProtection {
			e.active = slices.Delete(e.active, i, i+1)
			e.log.Debug("protection consumed", "power_up", a.PowerUpID)
			return true
		}
	}
	return false
}

// CleanupExpiredPowerUps prunes and returns how many were removed.
func (e *Engine) CleanupExpiredPowerUps() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pruneLocked(e.clock.Now().UnixMilli())
}

// ─── Rewards ────────────────────────────────────────────────────────────────

// EnhancedReward is a base reward after power-up multipliers.
type EnhancedReward struct {
	Coins                int     `json:"coins"`
	Experience           int     `json:"experience"`
	PowerUpID            string  `json:"power_up_id,omitempty"`
	CoinMultiplier       float64 `json:"coin_multiplier"`
	ExperienceMultiplier float64 `json:"experience_multiplier"`
	BonusApplied         bool    `json:"bonus_applied"`
}

// CalculateEnhancedRewards applies the aggregate and subject multipliers to base.
func (e *Engine) CalculateEnhancedRewards(base domain.Reward, subject string) EnhancedReward {
	m := e.RewardModifiers(subject)
	return EnhancedReward{
		Coins:                domain.FloorInt(float64(base.Coins) * m.CoinMultiplier),
		Experience:           domain.FloorInt(float64(base.Experience) * m.ExperienceMultiplier),
		PowerUpID:            base.PowerUpID,
		CoinMultiplier:       m.CoinMultiplier,
		ExperienceMultiplier: m.ExperienceMultiplier,
		BonusApplied:         m.CoinMultiplier != 1 || m.ExperienceMultiplier != 1,
	}
}

// RewardModifiers makes the engine a ledger.EffectSource.
func (e *Engine) RewardModifiers(subject string) domain.Modifiers {
	eff := e.GetActiveEffects()
	sm := eff.SubjectMultiplier(domain.NormalizeSubject(subject))
	return domain.Modifiers{
		CoinMultiplier:       eff.CoinMultiplier * sm,
		ExperienceMultiplier: eff.ExperienceMultiplier * sm,
	}
}

// ─── Status Projection ──────────────────────────────────────────────────────

// Status is one catalog entry as the UI shows it.
type Status struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Description         string               `json:"description"`
	Kind                string               `json:"kind"`
	Cost                int                  `json:"cost"`
	Restriction         domain.CharacterType `json:"restriction,omitempty"`
	Owned               int                  `json:"owned"`
	Available           bool                 `json:"available"`
	Active              bool                 `json:"active"`
	RemainingMs         int64                `json:"remaining_ms"` // -1 until consumed
	CooldownRemainingMs int64                `json:"cooldown_remaining_ms"`
}

// PowerUpStatus is the full projection.
type PowerUpStatus struct {
	PowerUps []Status             `json:"power_ups"`
	Effects  domain.PowerUpEffects `json:"effects"`
}

// GetPowerUpStatus projects catalog, inventory and running activations.
func (e *Engine) GetPowerUpStatus() PowerUpStatus {
	owned := e.ledger.OwnedPowerUps()
	ct := e.ledger.CharacterType()

	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now().UnixMilli()
	effects := e.effectsLocked()

	out := PowerUpStatus{Effects: effects, PowerUps: make([]Status, 0, len(e.catalog))}
	for _, def := range e.catalog {
		st := Status{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Cost:        def.Cost,
			Restriction: def.Restriction,
			Owned:       owned[def.ID],
			Available:   def.Restriction == "" || def.Restriction == ct,
		}
		if def.Effect != nil {
			st.Kind = def.Effect.Kind()
		}
		for _, a := range e.active {
			if a.PowerUpID != def.ID {
				continue
			}
			st.Active = true
			if a.EndTime < 0 {
				st.RemainingMs = -1
			} else {
				st.RemainingMs = max(st.RemainingMs, a.EndTime-now)
			}
		}
		st.CooldownRemainingMs = max(e.cooldownRemainingLocked(def, now), 0)
		out.PowerUps = append(out.PowerUps, st)
	}
	return out
}
