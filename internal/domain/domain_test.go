package domain

import (
	"math"
	"testing"
	"time"
)

func TestExperienceForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{0, 100},
		{1, 100},
		{2, 150},
		{3, 225},
		{4, 337},
		{10, 3844},
	}
	for _, tt := range tests {
		if got := ExperienceForLevel(tt.level); got != tt.want {
			t.Errorf("ExperienceForLevel(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestTiers(t *testing.T) {
	if got := TierAt(-3); got != TierBeginner {
		t.Errorf("TierAt(-3) = %q, want beginner", got)
	}
	if got := TierAt(99); got != TierExpert {
		t.Errorf("TierAt(99) = %q, want expert", got)
	}
	if TierIndex(TierHard) != 3 || TierIndex("legendary") != -1 {
		t.Errorf("TierIndex(hard) = %d, TierIndex(legendary) = %d", TierIndex(TierHard), TierIndex("legendary"))
	}
	if got := SettingsFor("nonsense").Tier; got != TierEasy {
		t.Errorf("SettingsFor(unknown) = %q, want easy", got)
	}
	prev := int64(1 << 62)
	for _, s := range Tiers() {
		if s.TargetTimeMs >= prev {
			t.Errorf("target time of %s = %d, not below the easier tier", s.Tier, s.TargetTimeMs)
		}
		prev = s.TargetTimeMs
	}
}

func TestFloorInt(t *testing.T) {
	if got := FloorInt(0.29 * 100); got != 29 {
		t.Errorf("FloorInt(0.29*100) = %d, want 29", got)
	}
	if got := FloorInt(12.99); got != 12 {
		t.Errorf("FloorInt(12.99) = %d, want 12", got)
	}
}

func TestNormalizeSubject(t *testing.T) {
	for in, want := range map[string]string{" Math ": "math", "": "general", "SCIENCE": "science"} {
		if got := NormalizeSubject(in); got != want {
			t.Errorf("NormalizeSubject(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFail(t *testing.T) {
	r := Fail(ErrInsufficientCoins)
	if r.Success || r.Message != ErrInsufficientCoins.Error() {
		t.Errorf("Fail() = %+v", r)
	}
	if ok := OK("saved"); !ok.Success || ok.Message != "saved" {
		t.Errorf("OK() = %+v", ok)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Triggers
// ═══════════════════════════════════════════════════════════════════════════

func TestTriggers(t *testing.T) {
	wed9 := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	wed23 := time.Date(2026, 3, 11, 23, 0, 0, 0, time.UTC)
	good := []Response{{Subject: "math", Correct: true}, {Subject: "art", Correct: false},
		{Subject: "math", Correct: true}, {Subject: "math", Correct: true}}

	tests := []struct {
		name string
		trig Trigger
		ctx  TriggerContext
		want bool
	}{
		{"random under", RandomChance{Probability: 0.1}, TriggerContext{Roll: func() float64 { return 0.05 }}, true},
		{"random over", RandomChance{Probability: 0.1}, TriggerContext{Roll: func() float64 { return 0.1 }}, false},
		{"random no roll", RandomChance{Probability: 1}, TriggerContext{}, false},
		{"streak multiple", StreakThreshold{Streak: 5}, TriggerContext{Data: EventData{Streak: 10}, Prev: EventData{Streak: 9}}, true},
		{"streak crossed between passes", StreakThreshold{Streak: 5}, TriggerContext{Data: EventData{Streak: 7}, Prev: EventData{Streak: 3}}, true},
		{"streak same band", StreakThreshold{Streak: 5}, TriggerContext{Data: EventData{Streak: 7}, Prev: EventData{Streak: 5}}, false},
		{"streak below threshold", StreakThreshold{Streak: 5}, TriggerContext{Data: EventData{Streak: 4}}, false},
		{"streak unchanged", StreakThreshold{Streak: 5}, TriggerContext{Data: EventData{Streak: 5}, Prev: EventData{Streak: 5}}, false},
		{"streak after reset", StreakThreshold{Streak: 5}, TriggerContext{Data: EventData{Streak: 6}, Prev: EventData{Streak: 12}}, true},
		{"streak zero", StreakThreshold{Streak: 5}, TriggerContext{}, false},
		{"questions", QuestionCount{Count: 10}, TriggerContext{Data: EventData{QuestionsAnswered: 20}}, true},
		{"questions same band", QuestionCount{Count: 10}, TriggerContext{Data: EventData{QuestionsAnswered: 19}, Prev: EventData{QuestionsAnswered: 11}}, false},
		{"accuracy short window", AccuracyThreshold{Window: 5, MinPercent: 50}, TriggerContext{Recent: good}, false},
		{"accuracy met", AccuracyThreshold{Window: 4, MinPercent: 75}, TriggerContext{Recent: good}, true},
		{"subject accuracy", SubjectAccuracy{Subject: "math", Window: 3, MinPercent: 100}, TriggerContext{Recent: good}, true},
		{"subject accuracy other", SubjectAccuracy{Subject: "art", Window: 1, MinPercent: 100}, TriggerContext{Recent: good}, false},
		{"ability uses", AbilityUseCount{Count: 3}, TriggerContext{Data: EventData{AbilityUses: 6}, Prev: EventData{AbilityUses: 5}}, true},
		{"ability uses already counted", AbilityUseCount{Count: 3}, TriggerContext{Data: EventData{AbilityUses: 6}, Prev: EventData{AbilityUses: 6}}, false},
		{"morning window", TimeOfDay{StartHour: 6, EndHour: 10}, TriggerContext{Now: wed9}, true},
		{"night wraps", TimeOfDay{StartHour: 22, EndHour: 4}, TriggerContext{Now: wed23}, true},
		{"night excludes morning", TimeOfDay{StartHour: 22, EndHour: 4}, TriggerContext{Now: wed9}, false},
		{"weekday", DayOfWeek{Days: []time.Weekday{time.Wednesday}}, TriggerContext{Now: wed9}, true},
		{"weekend", DayOfWeek{Days: []time.Weekday{time.Saturday, time.Sunday}}, TriggerContext{Now: wed9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.trig.Triggered(tt.ctx); got != tt.want {
				t.Errorf("%s.Triggered() = %v, want %v", tt.trig.Kind(), got, tt.want)
			}
		})
	}
}

func TestIsClockTrigger(t *testing.T) {
	for _, tt := range []struct {
		trig Trigger
		want bool
	}{
		{TimeOfDay{StartHour: 6, EndHour: 10}, true},
		{DayOfWeek{}, true},
		{StreakThreshold{Streak: 5}, false},
		{RandomChance{Probability: 1}, false},
	} {
		if got := IsClockTrigger(tt.trig); got != tt.want {
			t.Errorf("IsClockTrigger(%s) = %v, want %v", tt.trig.Kind(), got, tt.want)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Effects
// ═══════════════════════════════════════════════════════════════════════════

func TestEventEffects_Compose(t *testing.T) {
	agg := NewEventEffects()
	for _, e := range []EventEffect{
		CoinBoost{Factor: 2}, CoinBoost{Factor: 1.5},
		DropRate{Rate: 0.1}, DropRate{Rate: 0.05},
		CooldownCut{Fraction: 0.25},
		SpecialTag{Tag: "glow"}, SpecialTag{Tag: "glow"},
		MysteryBox{},
	} {
		e.Apply(&agg)
	}
	if agg.CoinMultiplier != 3 || agg.ExperienceMultiplier != 1 {
		t.Errorf("multipliers = %v/%v, want 3/1", agg.CoinMultiplier, agg.ExperienceMultiplier)
	}
	if agg.PowerUpDropRate != 0.1 || agg.CooldownReduction != 0.25 {
		t.Errorf("drop = %v cooldown = %v", agg.PowerUpDropRate, agg.CooldownReduction)
	}
	if len(agg.SpecialEffects) != 2 {
		t.Errorf("special effects = %v, want [glow mystery]", agg.SpecialEffects)
	}
}

func TestPowerUpEffects_Compose(t *testing.T) {
	agg := NewPowerUpEffects()
	for _, e := range []PowerUpEffect{
		SubjectMultiplier{Subject: "math", Factor: 2},
		SubjectMultiplier{Subject: "math", Factor: 1.5},
		Optimization{Factor: 1.2},
		FocusBonus{ExperienceFactor: 1.5},
	} {
		e.Apply(&agg)
	}
	if got := agg.SubjectMultiplier("math"); got != 3 {
		t.Errorf("math multiplier = %v, want 3", got)
	}
	if got := agg.SubjectMultiplier("art"); got != 1 {
		t.Errorf("art multiplier = %v, want 1", got)
	}
	if agg.CoinMultiplier != 1.2 || math.Abs(agg.ExperienceMultiplier-1.8) > 1e-9 {
		t.Errorf("multipliers = %v/%v, want 1.2/1.8", agg.CoinMultiplier, agg.ExperienceMultiplier)
	}
}

func TestMysteryBox_Pick(t *testing.T) {
	box := MysteryBox{Table: mysteryTable}
	tests := []struct {
		roll float64
		want string
	}{
		{0, "coin pouch"},
		{0.399, "coin pouch"},
		{0.4, "coin chest"},
		{0.9, "shield"},
		{0.999, "jackpot"},
	}
	for _, tt := range tests {
		got, ok := box.Pick(tt.roll)
		if !ok || got.Label != tt.want {
			t.Errorf("Pick(%v) = %q, want %q", tt.roll, got.Label, tt.want)
		}
	}
	if _, ok := (MysteryBox{}).Pick(0.5); ok {
		t.Error("empty box picked a reward")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Document
// ═══════════════════════════════════════════════════════════════════════════

func TestPlayerProgress_CloneIsDeep(t *testing.T) {
	p := NewPlayerProgress(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	p.SubjectStats["math"] = SubjectStat{Correct: 1, Total: 2}
	p.Achievements = append(p.Achievements, "first_steps")
	p.Inventory.PowerUps["shield"] = 1

	c := p.Clone()
	c.SubjectStats["math"] = SubjectStat{Correct: 9, Total: 9}
	c.Achievements[0] = "changed"
	c.Inventory.PowerUps["shield"] = 5

	if p.SubjectStats["math"].Total != 2 || p.Achievements[0] != "first_steps" || p.Inventory.PowerUps["shield"] != 1 {
		t.Errorf("clone shares state with original: %+v", p)
	}
}

func TestIsWeekUnlocked(t *testing.T) {
	p := NewPlayerProgress(time.Now())
	if !p.IsWeekUnlocked(1) || p.IsWeekUnlocked(2) || p.IsWeekUnlocked(0) {
		t.Error("fresh player week gates wrong")
	}
	p.WeeksCompleted = []int{1}
	if !p.IsWeekUnlocked(2) || p.IsWeekUnlocked(3) {
		t.Error("week 2 should open after week 1, week 3 should not")
	}
}

func TestManualClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)
	c.Advance(90 * time.Second)
	if got := c.Now().Sub(start); got != 90*time.Second {
		t.Errorf("after Advance = %v, want 90s", got)
	}
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("after Set = %v", c.Now())
	}
}
