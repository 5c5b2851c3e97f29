package domain

import "slices"

// ─── Character Types ────────────────────────────────────────────────────────

// CharacterType is chosen once and drives bonus multipliers everywhere else.
type CharacterType string

const (
	CharacterScholar  CharacterType = "scholar"
	CharacterExplorer CharacterType = "explorer"
	CharacterInventor CharacterType = "inventor"
)

// CombatStats are the derived combat-style attributes of a character.
type CombatStats struct {
	Health  int `json:"health"`
	Attack  int `json:"attack"`
	Defense int `json:"defense"`
	Speed   int `json:"speed"`
	Wisdom  int `json:"wisdom"`
}

// Add returns the field-wise sum.
func (s CombatStats) Add(o CombatStats) CombatStats {
	return CombatStats{
		Health:  s.Health + o.Health,
		Attack:  s.Attack + o.Attack,
		Defense: s.Defense + o.Defense,
		Speed:   s.Speed + o.Speed,
		Wisdom:  s.Wisdom + o.Wisdom,
	}
}

// CharacterProfile is the static bonus table for one character type.
type CharacterProfile struct {
	Type               CharacterType `json:"type"`
	DisplayName        string        `json:"display_name"`
	CoinBonus          float64       `json:"coin_bonus"`
	ExperienceBonus    float64       `json:"experience_bonus"`
	StartingCoins      int           `json:"starting_coins"`      // one-time starting bonus
	StartingMultiplier float64       `json:"starting_multiplier"` // compounded into experienceMultiplier once
	Strengths          []string      `json:"strengths"`
	BaseStats          CombatStats   `json:"base_stats"`
	Ability            string        `json:"ability"`
}

// IsStrength reports whether subject is one of this character's strengths.
func (p CharacterProfile) IsStrength(subject string) bool {
	return slices.Contains(p.Strengths, subject)
}

// DefaultStats applies before a character has been chosen.
var DefaultStats = CombatStats{Health: 100, Attack: 10, Defense: 10, Speed: 10, Wisdom: 10}

// StatGrowthPerLevel is added once per level above 1.
var StatGrowthPerLevel = CombatStats{Health: 5, Attack: 1, Defense: 1, Speed: 1, Wisdom: 1}

var characterProfiles = map[CharacterType]CharacterProfile{
	CharacterScholar: {
		Type:               CharacterScholar,
		DisplayName:        "Scholar",
		CoinBonus:          1.0,
		ExperienceBonus:    1.2,
		StartingMultiplier: 1.1,
		Strengths:          []string{"math", "science"},
		BaseStats:          CombatStats{Health: 100, Attack: 8, Defense: 10, Speed: 8, Wisdom: 16},
		Ability:            "insight",
	},
	CharacterExplorer: {
		Type:               CharacterExplorer,
		DisplayName:        "Explorer",
		CoinBonus:          1.2,
		ExperienceBonus:    1.0,
		StartingCoins:      100,
		StartingMultiplier: 1.0,
		Strengths:          []string{"history", "geography"},
		BaseStats:          CombatStats{Health: 120, Attack: 12, Defense: 10, Speed: 14, Wisdom: 8},
		Ability:            "pathfinder",
	},
	CharacterInventor: {
		Type:               CharacterInventor,
		DisplayName:        "Inventor",
		CoinBonus:          1.1,
		ExperienceBonus:    1.1,
		StartingCoins:      50,
		StartingMultiplier: 1.05,
		Strengths:          []string{"logic", "technology"},
		BaseStats:          CombatStats{Health: 110, Attack: 10, Defense: 14, Speed: 10, Wisdom: 12},
		Ability:            "overclock",
	},
}

// ProfileFor returns the bonus table for t.
func ProfileFor(t CharacterType) (CharacterProfile, bool) {
	p, ok := characterProfiles[t]
	return p, ok
}

// CharacterTypes lists every selectable type in display order.
func CharacterTypes() []CharacterType {
	return []CharacterType{CharacterScholar, CharacterExplorer, CharacterInventor}
}
