package domain

// ─── Power-Up Types ─────────────────────────────────────────────────────────

const (
	// DurationUntilConsumed keeps an activation alive until explicitly consumed.
	DurationUntilConsumed int64 = -1
	// DurationInstant activations end the moment they start.
	DurationInstant int64 = 0
)

// PowerUpEffects is the effect snapshot folded from every active power-up.
type PowerUpEffects struct {
	CoinMultiplier       float64            `json:"coin_multiplier"`
	ExperienceMultiplier float64            `json:"experience_multiplier"`
	HintLevel            int                `json:"hint_level"`
	ProtectionCharges    int                `json:"protection_charges"`
	TimeFreezeMs         int64              `json:"time_freeze_ms"`
	SubjectMultipliers   map[string]float64 `json:"subject_multipliers"`
	SpecialEffects       []string           `json:"special_effects"`
}

// NewPowerUpEffects returns the identity snapshot.
func NewPowerUpEffects() PowerUpEffects {
	return PowerUpEffects{
		CoinMultiplier:       1,
		ExperienceMultiplier: 1,
		SubjectMultipliers:   make(map[string]float64),
		SpecialEffects:       []string{},
	}
}

// SubjectMultiplier returns the multiplier for subject (1 when none applies).
func (e PowerUpEffects) SubjectMultiplier(subject string) float64 {
	if m, ok := e.SubjectMultipliers[subject]; ok {
		return m
	}
	return 1
}

func addTag(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

// PowerUpEffect is the closed set of power-up effect kinds.
type PowerUpEffect interface {
	Kind() string
	Apply(agg *PowerUpEffects)
}

// TimeFreeze pauses the question timer. Composes with max().
type TimeFreeze struct{ FreezeMs int64 }

func (TimeFreeze) Kind() string { return "time_freeze" }
func (e TimeFreeze) Apply(agg *PowerUpEffects) {
	agg.TimeFreezeMs = max(agg.TimeFreezeMs, e.FreezeMs)
}

// CoinMultiplier scales coin rewards. Composes multiplicatively.
type CoinMultiplier struct{ Factor float64 }

func (CoinMultiplier) Kind() string { return "coin_multiplier" }
func (e CoinMultiplier) Apply(agg *PowerUpEffects) {
	agg.CoinMultiplier *= e.Factor
}

// Protection shields wrong answers. Charges compose additively.
type Protection struct{ Charges int }

func (Protection) Kind() string { return "protection" }
func (e Protection) Apply(agg *PowerUpEffects) {
	agg.ProtectionCharges += e.Charges
}

// HintReveal unlocks hints up to Level. Composes with max().
type HintReveal struct{ Level int }

func (HintReveal) Kind() string { return "hint_reveal" }
func (e HintReveal) Apply(agg *PowerUpEffects) {
	agg.HintLevel = max(agg.HintLevel, e.Level)
}

// SubjectMultiplier boosts coins and experience for one subject.
type SubjectMultiplier struct {
	Subject string
	Factor  float64
}

func (SubjectMultiplier) Kind() string { return "subject_multiplier" }
func (e SubjectMultiplier) Apply(agg *PowerUpEffects) {
	if agg.SubjectMultipliers == nil {
		agg.SubjectMultipliers = make(map[string]float64)
	}
	cur, ok := agg.SubjectMultipliers[e.Subject]
	if !ok {
		cur = 1
	}
	agg.SubjectMultipliers[e.Subject] = cur * e.Factor
}

// FocusBonus boosts experience and tags the snapshot "focus".
type FocusBonus struct{ ExperienceFactor float64 }

func (FocusBonus) Kind() string { return "focus" }
func (e FocusBonus) Apply(agg *PowerUpEffects) {
	agg.ExperienceMultiplier *= e.ExperienceFactor
	agg.SpecialEffects = addTag(agg.SpecialEffects, "focus")
}

// Optimization boosts coins and experience and tags the snapshot "optimized".
type Optimization struct{ Factor float64 }

func (Optimization) Kind() string { return "optimization" }
func (e Optimization) Apply(agg *PowerUpEffects) {
	agg.CoinMultiplier *= e.Factor
	agg.ExperienceMultiplier *= e.Factor
	agg.SpecialEffects = addTag(agg.SpecialEffects, "optimized")
}

// PowerUpDef is one static catalog entry.
type PowerUpDef struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	DurationMs  int64         `json:"duration_ms"` // -1 until consumed, 0 instant, >0 timed
	CooldownMs  int64         `json:"cooldown_ms"`
	Cost        int           `json:"cost"`
	Restriction CharacterType `json:"restriction,omitempty"` // empty = any character
	Effect      PowerUpEffect `json:"-"`
}

// PowerUpActivation is one running power-up instance.
type PowerUpActivation struct {
	ID        string `json:"id"`
	PowerUpID string `json:"power_up_id"`
	StartTime int64  `json:"start_time"` // epoch ms
	EndTime   int64  `json:"end_time"`   // epoch ms, -1 until consumed
}

// ActiveAt reports whether the activation is still running at nowMs.
func (a PowerUpActivation) ActiveAt(nowMs int64) bool {
	return a.EndTime < 0 || a.EndTime >= nowMs
}

var powerUpCatalog = []PowerUpDef{
	{ID: "time_freeze", Name: "Time Freeze", Description: "Stops the question timer for 10 seconds",
		DurationMs: 30_000, CooldownMs: 60_000, Cost: 50, Effect: TimeFreeze{FreezeMs: 10_000}},
	{ID: "double_coins", Name: "Double Coins", Description: "Doubles coin rewards for 5 minutes",
		DurationMs: 300_000, CooldownMs: 600_000, Cost: 100, Effect: CoinMultiplier{Factor: 2}},
	{ID: "shield", Name: "Shield", Description: "Protects you from one wrong answer",
		DurationMs: DurationUntilConsumed, CooldownMs: 30_000, Cost: 75, Effect: Protection{Charges: 1}},
	{ID: "hint_reveal", Name: "Hint Reveal", Description: "Reveals a hint for the current question",
		DurationMs: DurationInstant, CooldownMs: 15_000, Cost: 30, Effect: HintReveal{Level: 1}},
	{ID: "formula_focus", Name: "Formula Focus", Description: "+50% rewards in math for 3 minutes",
		DurationMs: 180_000, CooldownMs: 300_000, Cost: 90, Restriction: CharacterScholar,
		Effect: SubjectMultiplier{Subject: "math", Factor: 1.5}},
	{ID: "trailblazer", Name: "Trailblazer", Description: "+50% rewards in history for 3 minutes",
		DurationMs: 180_000, CooldownMs: 300_000, Cost: 90, Restriction: CharacterExplorer,
		Effect: SubjectMultiplier{Subject: "history", Factor: 1.5}},
	{ID: "focus_mode", Name: "Focus Mode", Description: "+50% experience for 2 minutes",
		DurationMs: 120_000, CooldownMs: 300_000, Cost: 80, Effect: FocusBonus{ExperienceFactor: 1.5}},
	{ID: "system_optimize", Name: "System Optimize", Description: "+25% coins and experience for 5 minutes",
		DurationMs: 300_000, CooldownMs: 900_000, Cost: 150, Restriction: CharacterInventor,
		Effect: Optimization{Factor: 1.25}},
}

// PowerUpCatalog returns the static power-up catalog in display order.
func PowerUpCatalog() []PowerUpDef {
	out := make([]PowerUpDef, len(powerUpCatalog))
	copy(out, powerUpCatalog)
	return out
}

// FindPowerUp looks up a catalog entry by id.
func FindPowerUp(id string) (PowerUpDef, bool) {
	for _, p := range powerUpCatalog {
		if p.ID == id {
			return p, true
		}
	}
	return PowerUpDef{}, false
}
