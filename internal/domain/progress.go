// Package domain contains pure business types with ZERO infrastructure imports.
// It holds the player-progress document, the static catalogs and the
// tagged variants every manager evaluates.
package domain

import (
	"math"
	"slices"
	"time"
)

// ─── Player Progress Document ───────────────────────────────────────────────

// StartingCoins is the balance every new save begins with.
const StartingCoins = 100

// SubjectStat holds the monotonically non-decreasing answer counters for one subject.
type SubjectStat struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Accuracy returns round(100*correct/total), or 0 when nothing was answered.
func (s SubjectStat) Accuracy() int {
	if s.Total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(s.Correct) / float64(s.Total)))
}

// Character is created once at character-selection time. Type never changes.
type Character struct {
	ID        string        `json:"id"`
	Type      CharacterType `json:"type"`
	Name      string        `json:"name"`
	CreatedAt int64         `json:"createdAt"` // epoch ms
}

// CharacterProgression tracks level and experience of the player's character.
type CharacterProgression struct {
	Level                int      `json:"level"`
	Experience           int      `json:"experience"`
	UpgradesUnlocked     []string `json:"upgradesUnlocked"`
	SpecialAbilitiesUsed int      `json:"specialAbilitiesUsed"`
}

// Inventory holds owned items. Power-ups are counted, everything else is a flag.
type Inventory struct {
	PowerUps    map[string]int  `json:"powerUps"`
	Cosmetics   map[string]bool `json:"cosmetics"`
	Tools       map[string]bool `json:"tools"`
	Decorations map[string]bool `json:"decorations"`
	Armor       map[string]bool `json:"armor"`
}

// DailyRewards tracks the daily claim streak.
type DailyRewards struct {
	LastClaimedDate string `json:"lastClaimedDate"` // "2006-01-02", empty if never claimed
	Streak          int    `json:"streak"`
	MaxStreak       int    `json:"maxStreak"`
}

// SessionStats are persisted but only reset by an explicit session reset.
type SessionStats struct {
	QuestionsAnswered int   `json:"questionsAnswered"`
	CorrectAnswers    int   `json:"correctAnswers"`
	TotalTimeMs       int64 `json:"totalTimeMs"`
	StartedAt         int64 `json:"startedAt"`
}

// PlayerProgress is the single persisted document. Every manager shares one
// instance through the Ledger; none of them keep a private copy.
type PlayerProgress struct {
	Character            *Character             `json:"character"`
	CoinBalance          int                    `json:"coinBalance"`
	TotalCoinsEarned     int                    `json:"totalCoinsEarned"`
	ExperienceMultiplier float64                `json:"experienceMultiplier"`
	SubjectStats         map[string]SubjectStat `json:"subjectStats"`
	SubjectAccuracies    map[string]int         `json:"subjectAccuracies"`
	CharacterProgression CharacterProgression   `json:"characterProgression"`
	WeeksCompleted       []int                  `json:"weeksCompleted"`
	Achievements         []string               `json:"achievements"`
	Badges               int                    `json:"badges"`
	Inventory            Inventory              `json:"inventory"`
	EquippedItems        map[ItemSlot]string    `json:"equippedItems"`
	DailyRewards         DailyRewards           `json:"dailyRewards"`
	SessionStats         SessionStats           `json:"sessionStats"`
}

// NewPlayerProgress returns a fresh document for a brand-new player.
func NewPlayerProgress(now time.Time) *PlayerProgress {
	return &PlayerProgress{
		CoinBalance:          StartingCoins,
		TotalCoinsEarned:     StartingCoins,
		ExperienceMultiplier: 1.0,
		SubjectStats:         make(map[string]SubjectStat),
		SubjectAccuracies:    make(map[string]int),
		CharacterProgression: CharacterProgression{
			Level:            1,
			UpgradesUnlocked: []string{},
		},
		WeeksCompleted: []int{},
		Achievements:   []string{},
		Inventory:      NewInventory(),
		EquippedItems:  make(map[ItemSlot]string),
		SessionStats:   SessionStats{StartedAt: now.UnixMilli()},
	}
}

// NewInventory returns an empty inventory with every bucket allocated.
func NewInventory() Inventory {
	return Inventory{
		PowerUps:    make(map[string]int),
		Cosmetics:   make(map[string]bool),
		Tools:       make(map[string]bool),
		Decorations: make(map[string]bool),
		Armor:       make(map[string]bool),
	}
}

// HasAchievement reports whether id is already unlocked.
func (p *PlayerProgress) HasAchievement(id string) bool {
	return slices.Contains(p.Achievements, id)
}

// HasCompletedWeek reports whether week n is in weeksCompleted.
func (p *PlayerProgress) HasCompletedWeek(n int) bool {
	return slices.Contains(p.WeeksCompleted, n)
}

// IsWeekUnlocked: week 1 is always open, week N opens once week N-1 is done.
func (p *PlayerProgress) IsWeekUnlocked(n int) bool {
	if n < 1 {
		return false
	}
	return n == 1 || p.HasCompletedWeek(n-1)
}

// TotalCorrect sums correct answers across all subjects.
func (p *PlayerProgress) TotalCorrect() int {
	n := 0
	for _, s := range p.SubjectStats {
		n += s.Correct
	}
	return n
}

// TotalAnswered sums answered questions across all subjects.
func (p *PlayerProgress) TotalAnswered() int {
	n := 0
	for _, s := range p.SubjectStats {
		n += s.Total
	}
	return n
}

// Clone returns a deep copy safe to hand to readers outside the Ledger lock.
func (p *PlayerProgress) Clone() *PlayerProgress {
	if p == nil {
		return nil
	}
	c := *p
	if p.Character != nil {
		ch := *p.Character
		c.Character = &ch
	}
	c.SubjectStats = cloneMap(p.SubjectStats)
	c.SubjectAccuracies = cloneMap(p.SubjectAccuracies)
	c.CharacterProgression.UpgradesUnlocked = slices.Clone(p.CharacterProgression.UpgradesUnlocked)
	c.WeeksCompleted = slices.Clone(p.WeeksCompleted)
	c.Achievements = slices.Clone(p.Achievements)
	c.Inventory = Inventory{
		PowerUps:    cloneMap(p.Inventory.PowerUps),
		Cosmetics:   cloneMap(p.Inventory.Cosmetics),
		Tools:       cloneMap(p.Inventory.Tools),
		Decorations: cloneMap(p.Inventory.Decorations),
		Armor:       cloneMap(p.Inventory.Armor),
	}
	c.EquippedItems = cloneMap(p.EquippedItems)
	return &c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ─── Leveling ───────────────────────────────────────────────────────────────

// ExperienceForLevel is the experience needed to leave the given level:
// floor(100 * 1.5^(level-1)).
func ExperienceForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Floor(100 * math.Pow(1.5, float64(level-1))))
}

// DateKey formats t as a calendar date in its own location.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
