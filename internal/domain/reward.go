package domain

import (
	"math"
	"strings"
)

// ─── Rewards & Modifiers ────────────────────────────────────────────────────

// Reward is a one-time bundle granted by achievements, events and mystery boxes.
type Reward struct {
	Coins      int    `json:"coins,omitempty"`
	Experience int    `json:"experience,omitempty"`
	PowerUpID  string `json:"power_up_id,omitempty"`
}

// IsZero reports whether the bundle grants nothing.
func (r Reward) IsZero() bool {
	return r.Coins == 0 && r.Experience == 0 && r.PowerUpID == ""
}

// Modifiers are the reward multipliers an effect source contributes to an answer.
type Modifiers struct {
	CoinMultiplier       float64 `json:"coin_multiplier"`
	ExperienceMultiplier float64 `json:"experience_multiplier"`
}

// NeutralModifiers multiplies by one.
func NeutralModifiers() Modifiers {
	return Modifiers{CoinMultiplier: 1, ExperienceMultiplier: 1}
}

// Combine composes two modifier sets multiplicatively.
func (m Modifiers) Combine(o Modifiers) Modifiers {
	return Modifiers{
		CoinMultiplier:       m.CoinMultiplier * o.CoinMultiplier,
		ExperienceMultiplier: m.ExperienceMultiplier * o.ExperienceMultiplier,
	}
}

// Response is one answered question as seen by the rolling windows.
type Response struct {
	Subject string `json:"subject"`
	Correct bool   `json:"correct"`
	TimeMs  int64  `json:"time_ms"`
}

// WindowAccuracy returns the percent of correct responses in rs (0 if empty).
func WindowAccuracy(rs []Response) float64 {
	if len(rs) == 0 {
		return 0
	}
	c := 0
	for _, r := range rs {
		if r.Correct {
			c++
		}
	}
	return 100 * float64(c) / float64(len(rs))
}

// AverageTimeMs returns the mean response time of rs.
func AverageTimeMs(rs []Response) float64 {
	if len(rs) == 0 {
		return 0
	}
	var sum int64
	for _, r := range rs {
		sum += r.TimeMs
	}
	return float64(sum) / float64(len(rs))
}

// FloorInt floors x to an int, absorbing float noise just below an integer.
func FloorInt(x float64) int {
	return int(math.Floor(x + 1e-9))
}

// NormalizeSubject lower-cases and trims a subject key; blank becomes "general".
func NormalizeSubject(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "general"
	}
	return s
}
