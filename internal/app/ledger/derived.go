package ledger

import (
	"math"

	"github.com/brainquest/brainquest/internal/domain"
)

// Pure projections. Nothing here mutates the document or caches into it.

// CombatMultipliers are derived from the character stats.
type CombatMultipliers struct {
	Damage          float64 `json:"damage"`
	DamageReduction float64 `json:"damage_reduction"`
	CriticalChance  float64 `json:"critical_chance"`
	ExperienceBonus float64 `json:"experience_bonus"`
}

// GetEquippedEffects sums the effects of every equipped, owned catalog item.
func (l *Ledger) GetEquippedEffects() domain.ItemEffects {
	var eff domain.ItemEffects
	l.view(func(doc *domain.PlayerProgress) { eff = equippedEffects(doc) })
	return eff
}

func equippedEffects(doc *domain.PlayerProgress) domain.ItemEffects {
	var eff domain.ItemEffects
	for slot, id := range doc.EquippedItems {
		item, ok := domain.FindShopItem(id)
		if !ok || !doc.Inventory.Owns(domain.SlotItemType(slot), id) {
			continue
		}
		eff = eff.Add(item.Effects)
	}
	return eff
}

// GetCharacterStats is base stats + per-level growth + equipment.
func (l *Ledger) GetCharacterStats() domain.CombatStats {
	var s domain.CombatStats
	l.view(func(doc *domain.PlayerProgress) { s = characterStats(doc) })
	return s
}

func characterStats(doc *domain.PlayerProgress) domain.CombatStats {
	base := domain.DefaultStats
	if p, ok := profileOf(doc); ok {
		base = p.BaseStats
	}
	g := domain.StatGrowthPerLevel
	n := max(doc.CharacterProgression.Level-1, 0)
	grown := domain.CombatStats{
		Health:  g.Health * n,
		Attack:  g.Attack * n,
		Defense: g.Defense * n,
		Speed:   g.Speed * n,
		Wisdom:  g.Wisdom * n,
	}
	return base.Add(grown).Add(equippedEffects(doc).Stats)
}

// GetCombatMultipliers converts stats into multipliers.
func (l *Ledger) GetCombatMultipliers() CombatMultipliers {
	return combatMultipliers(l.GetCharacterStats())
}

func combatMultipliers(s domain.CombatStats) CombatMultipliers {
	return CombatMultipliers{
		Damage:          1 + float64(s.Attack)/100,
		DamageReduction: math.Min(float64(s.Defense)/200, 0.5),
		CriticalChance:  math.Min(0.05+float64(s.Speed)/500, 0.5),
		ExperienceBonus: 1 + float64(s.Wisdom)/200,
	}
}

// ─── Progress Summary ───────────────────────────────────────────────────────

// ProgressSummary is the read-only view the UI renders every frame.
type ProgressSummary struct {
	Character            *domain.Character   `json:"character"`
	Level                int                 `json:"level"`
	Experience           int                 `json:"experience"`
	ExperienceToNext     int                 `json:"experience_to_next"`
	CoinBalance          int                 `json:"coin_balance"`
	TotalCoinsEarned     int                 `json:"total_coins_earned"`
	ExperienceMultiplier float64             `json:"experience_multiplier"`
	Badges               int                 `json:"badges"`
	WeeksCompleted       []int               `json:"weeks_completed"`
	SubjectAccuracies    map[string]int      `json:"subject_accuracies"`
	OverallAccuracy      int                 `json:"overall_accuracy"`
	DailyStreak          int                 `json:"daily_streak"`
	Session              domain.SessionStats `json:"session"`
	Stats                domain.CombatStats  `json:"stats"`
	Combat               CombatMultipliers   `json:"combat"`
	Equipped             map[string]string   `json:"equipped"`
	Equipment            domain.ItemEffects  `json:"equipment"` // summed bonuses of the equipped items
}

// GetProgressSummary builds the summary from one consistent snapshot.
func (l *Ledger) GetProgressSummary() ProgressSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc := l.doc.Clone()

	stats := characterStats(doc)
	gear := equippedEffects(doc)
	overall := domain.SubjectStat{Correct: doc.TotalCorrect(), Total: doc.TotalAnswered()}
	equipped := make(map[string]string, len(doc.EquippedItems))
	for slot, id := range doc.EquippedItems {
		equipped[string(slot)] = id
	}
	return ProgressSummary{
		Character:            doc.Character,
		Level:                doc.CharacterProgression.Level,
		Experience:           doc.CharacterProgression.Experience,
		ExperienceToNext:     domain.ExperienceForLevel(doc.CharacterProgression.Level),
		CoinBalance:          doc.CoinBalance,
		TotalCoinsEarned:     doc.TotalCoinsEarned,
		ExperienceMultiplier: doc.ExperienceMultiplier,
		Badges:               len(doc.Achievements),
		WeeksCompleted:       doc.WeeksCompleted,
		SubjectAccuracies:    doc.SubjectAccuracies,
		OverallAccuracy:      overall.Accuracy(),
		DailyStreak:          doc.DailyRewards.Streak,
		Session:              doc.SessionStats,
		Stats:                stats,
		Combat:               combatMultipliers(stats),
		Equipped:             equipped,
		Equipment:            gear,
	}
}
