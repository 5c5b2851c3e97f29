package domain

// ─── Difficulty Tiers ───────────────────────────────────────────────────────

// Tier is one of five ordered difficulty levels.
type Tier string

const (
	TierBeginner Tier = "beginner"
	TierEasy     Tier = "easy"
	TierMedium   Tier = "medium"
	TierHard     Tier = "hard"
	TierExpert   Tier = "expert"
)

// TierSettings are the per-tier knobs handed to the question UI.
type TierSettings struct {
	Tier            Tier    `json:"tier"`
	ScoreMultiplier float64 `json:"score_multiplier"`
	TimeBonusFactor float64 `json:"time_bonus_factor"`
	HintsAvailable  bool    `json:"hints_available"`
	QuestionCount   int     `json:"question_count"`
	TargetTimeMs    int64   `json:"target_time_ms"`
	BaseCoins       int     `json:"base_coins"`      // ledger per-answer coin base
	BaseExperience  int     `json:"base_experience"` // ledger per-answer experience base
}

// tiers is ordered easiest first.
var tiers = []TierSettings{
	{Tier: TierBeginner, ScoreMultiplier: 0.8, TimeBonusFactor: 1.0, HintsAvailable: true,
		QuestionCount: 5, TargetTimeMs: 30_000, BaseCoins: 5, BaseExperience: 10},
	{Tier: TierEasy, ScoreMultiplier: 1.0, TimeBonusFactor: 1.1, HintsAvailable: true,
		QuestionCount: 8, TargetTimeMs: 25_000, BaseCoins: 8, BaseExperience: 15},
	{Tier: TierMedium, ScoreMultiplier: 1.25, TimeBonusFactor: 1.2, HintsAvailable: true,
		QuestionCount: 10, TargetTimeMs: 20_000, BaseCoins: 10, BaseExperience: 20},
	{Tier: TierHard, ScoreMultiplier: 1.5, TimeBonusFactor: 1.3, HintsAvailable: false,
		QuestionCount: 12, TargetTimeMs: 15_000, BaseCoins: 15, BaseExperience: 30},
	{Tier: TierExpert, ScoreMultiplier: 2.0, TimeBonusFactor: 1.5, HintsAvailable: false,
		QuestionCount: 15, TargetTimeMs: 10_000, BaseCoins: 20, BaseExperience: 40},
}

// Tiers returns every tier's settings, easiest first.
func Tiers() []TierSettings {
	out := make([]TierSettings, len(tiers))
	copy(out, tiers)
	return out
}

// TierIndex returns the 0-based rank of t, or -1 if unknown.
func TierIndex(t Tier) int {
	for i, s := range tiers {
		if s.Tier == t {
			return i
		}
	}
	return -1
}

// TierAt returns the tier at rank i, clamped into range.
func TierAt(i int) Tier {
	if i < 0 {
		i = 0
	}
	if i >= len(tiers) {
		i = len(tiers) - 1
	}
	return tiers[i].Tier
}

// SettingsFor returns the settings of t; unknown tiers fall back to easy.
func SettingsFor(t Tier) TierSettings {
	if i := TierIndex(t); i >= 0 {
		return tiers[i]
	}
	return tiers[1]
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool { return TierIndex(t) >= 0 }
