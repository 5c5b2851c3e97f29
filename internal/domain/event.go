package domain

import (
	"slices"
	"time"
)

// ─── Event Types ────────────────────────────────────────────────────────────

// EventType classifies an event's lifecycle.
type EventType string

const (
	EventBonus     EventType = "bonus"
	EventChallenge EventType = "challenge"
	EventSpecial   EventType = "special"
	EventTimed     EventType = "timed"
)

// EventStatus is the lifecycle state of an activation.
type EventStatus string

const (
	StatusActive    EventStatus = "active"
	StatusCompleted EventStatus = "completed"
	StatusFailed    EventStatus = "failed"
	StatusExpired   EventStatus = "expired"
)

// EventData is the per-answer/per-tick payload the UI layer reports.
type EventData struct {
	Answered          bool   `json:"answered"` // false for a pure tick
	Subject           string `json:"subject,omitempty"`
	IsCorrect         bool   `json:"is_correct"`
	Protected         bool   `json:"protected,omitempty"` // wrong answer absorbed by a shield
	ResponseTimeMs    int64  `json:"response_time_ms"`
	Streak            int    `json:"streak"`
	QuestionsAnswered int    `json:"questions_answered"`
	AbilityUses       int    `json:"ability_uses"`
}

// TriggerContext is everything a trigger may look at.
type TriggerContext struct {
	Now    time.Time
	Data   EventData
	Prev   EventData  // counters seen at the previous evaluated pass
	Recent []Response // rolling answer window, oldest first
	Roll   func() float64
}

// crossed reports whether a counter moving from prev to cur reached a new
// multiple of step. A counter that went backwards was reset and counts from zero.
func crossed(prev, cur, step int) bool {
	if step <= 0 || cur < step {
		return false
	}
	if cur < prev {
		prev = 0
	}
	return cur/step > prev/step
}

// Trigger is the closed set of event trigger kinds.
type Trigger interface {
	Kind() string
	Triggered(ctx TriggerContext) bool
}

// RandomChance fires when a [0,1) roll lands under Probability.
type RandomChance struct{ Probability float64 }

func (RandomChance) Kind() string { return "random" }
func (t RandomChance) Triggered(ctx TriggerContext) bool {
	return ctx.Roll != nil && ctx.Roll() < t.Probability
}

// StreakThreshold fires each time the streak reaches a new multiple of Streak
// since the previous pass.
type StreakThreshold struct{ Streak int }

func (StreakThreshold) Kind() string { return "streak" }
func (t StreakThreshold) Triggered(ctx TriggerContext) bool {
	return crossed(ctx.Prev.Streak, ctx.Data.Streak, t.Streak)
}

// QuestionCount fires each time the session question count crosses a multiple of Count.
type QuestionCount struct{ Count int }

func (QuestionCount) Kind() string { return "question_count" }
func (t QuestionCount) Triggered(ctx TriggerContext) bool {
	return crossed(ctx.Prev.QuestionsAnswered, ctx.Data.QuestionsAnswered, t.Count)
}

// AccuracyThreshold fires when accuracy over the last Window answers is at least MinPercent.
type AccuracyThreshold struct {
	Window     int
	MinPercent float64
}

func (AccuracyThreshold) Kind() string { return "accuracy" }
func (t AccuracyThreshold) Triggered(ctx TriggerContext) bool {
	if t.Window <= 0 || len(ctx.Recent) < t.Window {
		return false
	}
	return WindowAccuracy(ctx.Recent[len(ctx.Recent)-t.Window:]) >= t.MinPercent
}

// SubjectAccuracy is AccuracyThreshold restricted to one subject's answers.
type SubjectAccuracy struct {
	Subject    string
	Window     int
	MinPercent float64
}

func (SubjectAccuracy) Kind() string { return "subject_accuracy" }
func (t SubjectAccuracy) Triggered(ctx TriggerContext) bool {
	var rs []Response
	for _, r := range ctx.Recent {
		if r.Subject == t.Subject {
			rs = append(rs, r)
		}
	}
	if t.Window <= 0 || len(rs) < t.Window {
		return false
	}
	return WindowAccuracy(rs[len(rs)-t.Window:]) >= t.MinPercent
}

// AbilityUseCount fires each time lifetime ability uses cross a multiple of Count.
type AbilityUseCount struct{ Count int }

func (AbilityUseCount) Kind() string { return "ability_uses" }
func (t AbilityUseCount) Triggered(ctx TriggerContext) bool {
	return crossed(ctx.Prev.AbilityUses, ctx.Data.AbilityUses, t.Count)
}

// TimeOfDay fires between StartHour (inclusive) and EndHour (exclusive).
// A window with StartHour > EndHour wraps past midnight.
type TimeOfDay struct {
	StartHour int
	EndHour   int
}

func (TimeOfDay) Kind() string { return "time_of_day" }
func (t TimeOfDay) Triggered(ctx TriggerContext) bool {
	h := ctx.Now.Hour()
	if t.StartHour <= t.EndHour {
		return h >= t.StartHour && h < t.EndHour
	}
	return h >= t.StartHour || h < t.EndHour
}

// DayOfWeek fires on any of Days.
type DayOfWeek struct{ Days []time.Weekday }

func (DayOfWeek) Kind() string { return "day_of_week" }
func (t DayOfWeek) Triggered(ctx TriggerContext) bool {
	return slices.Contains(t.Days, ctx.Now.Weekday())
}

// IsClockTrigger reports whether t depends only on the wall clock.
func IsClockTrigger(t Trigger) bool {
	switch t.(type) {
	case TimeOfDay, DayOfWeek:
		return true
	}
	return false
}

// ─── Event Effects ──────────────────────────────────────────────────────────

// EventEffects is the effect snapshot folded from every active event.
type EventEffects struct {
	CoinMultiplier       float64  `json:"coin_multiplier"`
	ExperienceMultiplier float64  `json:"experience_multiplier"`
	PowerUpDropRate      float64  `json:"power_up_drop_rate"`
	AbilityBoost         float64  `json:"ability_boost"`
	CooldownReduction    float64  `json:"cooldown_reduction"`
	SpecialEffects       []string `json:"special_effects"`
}

// NewEventEffects returns the identity snapshot.
func NewEventEffects() EventEffects {
	return EventEffects{
		CoinMultiplier:       1,
		ExperienceMultiplier: 1,
		AbilityBoost:         1,
		SpecialEffects:       []string{},
	}
}

// EventEffect is the closed set of event effect kinds.
type EventEffect interface {
	Kind() string
	Apply(agg *EventEffects)
}

// CoinBoost multiplies coin rewards.
type CoinBoost struct{ Factor float64 }

func (CoinBoost) Kind() string              { return "coin_boost" }
func (e CoinBoost) Apply(agg *EventEffects) { agg.CoinMultiplier *= e.Factor }

// ExperienceBoost multiplies experience rewards.
type ExperienceBoost struct{ Factor float64 }

func (ExperienceBoost) Kind() string              { return "experience_boost" }
func (e ExperienceBoost) Apply(agg *EventEffects) { agg.ExperienceMultiplier *= e.Factor }

// DropRate is the chance per correct answer of a free power-up. Composes with max().
type DropRate struct{ Rate float64 }

func (DropRate) Kind() string { return "drop_rate" }
func (e DropRate) Apply(agg *EventEffects) {
	agg.PowerUpDropRate = max(agg.PowerUpDropRate, e.Rate)
}

// AbilityPower multiplies special-ability strength.
type AbilityPower struct{ Factor float64 }

func (AbilityPower) Kind() string              { return "ability_boost" }
func (e AbilityPower) Apply(agg *EventEffects) { agg.AbilityBoost *= e.Factor }

// CooldownCut shortens power-up cooldowns by Fraction. Composes with max().
type CooldownCut struct{ Fraction float64 }

func (CooldownCut) Kind() string { return "cooldown_reduction" }
func (e CooldownCut) Apply(agg *EventEffects) {
	agg.CooldownReduction = max(agg.CooldownReduction, e.Fraction)
}

// SpecialTag only adds a named tag.
type SpecialTag struct{ Tag string }

func (SpecialTag) Kind() string              { return "special" }
func (e SpecialTag) Apply(agg *EventEffects) { agg.SpecialEffects = addTag(agg.SpecialEffects, e.Tag) }

// WeightedReward is one entry of a mystery box table.
type WeightedReward struct {
	Label  string `json:"label"`
	Weight int    `json:"weight"`
	Reward Reward `json:"reward"`
}

// MysteryBox resolves to one weighted reward on the next correct answer.
type MysteryBox struct{ Table []WeightedReward }

func (MysteryBox) Kind() string { return "mystery_box" }
func (e MysteryBox) Apply(agg *EventEffects) {
	agg.SpecialEffects = addTag(agg.SpecialEffects, "mystery")
}

// Pick returns the entry selected by a roll in [0,1).
func (e MysteryBox) Pick(roll float64) (WeightedReward, bool) {
	total := 0
	for _, w := range e.Table {
		total += w.Weight
	}
	if total <= 0 {
		return WeightedReward{}, false
	}
	target := roll * float64(total)
	acc := 0.0
	for _, w := range e.Table {
		acc += float64(w.Weight)
		if target < acc {
			return w, true
		}
	}
	return e.Table[len(e.Table)-1], true
}

// ─── Event Definitions ──────────────────────────────────────────────────────

// ChallengeSpec is the completion requirement of a challenge event.
type ChallengeSpec struct {
	Questions   int     `json:"questions"`
	MinAccuracy float64 `json:"min_accuracy"`
	Perfect     bool    `json:"perfect"`
	TimeLimitMs int64   `json:"time_limit_ms,omitempty"`
}

// EventDef is one static catalog entry.
type EventDef struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        EventType      `json:"type"`
	DurationMs  int64          `json:"duration_ms"` // <= 0 runs until resolved
	Rarity      Rarity         `json:"rarity"`
	Trigger     Trigger        `json:"-"`
	Effects     []EventEffect  `json:"-"`
	Challenge   *ChallengeSpec `json:"challenge,omitempty"`
	Reward      Reward         `json:"reward"`
}

// Mystery returns the mystery-box effect of the event, if it has one.
func (d EventDef) Mystery() (MysteryBox, bool) {
	for _, e := range d.Effects {
		if m, ok := e.(MysteryBox); ok {
			return m, true
		}
	}
	return MysteryBox{}, false
}

// ChallengeProgress is the internal progress of a running challenge.
type ChallengeProgress struct {
	QuestionsAnswered int   `json:"questions_answered"`
	CorrectAnswers    int   `json:"correct_answers"`
	TimeRemainingMs   int64 `json:"time_remaining_ms,omitempty"`
}

// Accuracy returns the challenge accuracy percent so far.
func (p ChallengeProgress) Accuracy() float64 {
	if p.QuestionsAnswered == 0 {
		return 0
	}
	return 100 * float64(p.CorrectAnswers) / float64(p.QuestionsAnswered)
}

// EventActivation is one running event instance.
type EventActivation struct {
	ID        string             `json:"id"`
	EventID   string             `json:"event_id"`
	Type      EventType          `json:"type"`
	StartTime int64              `json:"start_time"`
	EndTime   int64              `json:"end_time"` // -1 until resolved
	Status    EventStatus        `json:"status"`
	Progress  *ChallengeProgress `json:"progress,omitempty"`
}

// ActiveAt reports whether the activation has not passed its end time.
func (a EventActivation) ActiveAt(nowMs int64) bool {
	return a.EndTime < 0 || a.EndTime >= nowMs
}

// EventHistoryEntry records how an activation ended.
type EventHistoryEntry struct {
	ActivationID string      `json:"activation_id"`
	EventID      string      `json:"event_id"`
	Status       EventStatus `json:"status"`
	StartTime    int64       `json:"start_time"`
	EndedAt      int64       `json:"ended_at"`
	Reward       *Reward     `json:"reward,omitempty"`
	Label        string      `json:"label,omitempty"`
}

var mysteryTable = []WeightedReward{
	{Label: "coin pouch", Weight: 40, Reward: Reward{Coins: 50}},
	{Label: "coin chest", Weight: 25, Reward: Reward{Coins: 100}},
	{Label: "wisdom scroll", Weight: 20, Reward: Reward{Experience: 75}},
	{Label: "shield", Weight: 10, Reward: Reward{PowerUpID: "shield"}},
	{Label: "jackpot", Weight: 5, Reward: Reward{Coins: 250, Experience: 100}},
}

var eventCatalog = []EventDef{
	{ID: "coin_rush", Name: "Coin Rush", Description: "Double coins for one minute",
		Type: EventBonus, DurationMs: 60_000, Rarity: RarityUncommon,
		Trigger: RandomChance{Probability: 0.05},
		Effects: []EventEffect{CoinBoost{Factor: 2}}},
	{ID: "streak_fever", Name: "Streak Fever", Description: "+50% experience while the streak burns",
		Type: EventBonus, DurationMs: 120_000, Rarity: RarityCommon,
		Trigger: StreakThreshold{Streak: 5},
		Effects: []EventEffect{ExperienceBoost{Factor: 1.5}, SpecialTag{Tag: "fever"}}},
	{ID: "speed_challenge", Name: "Speed Challenge", Description: "Answer 5 questions at 80% accuracy within two minutes",
		Type: EventChallenge, DurationMs: 120_000, Rarity: RarityUncommon,
		Trigger:   QuestionCount{Count: 10},
		Challenge: &ChallengeSpec{Questions: 5, MinAccuracy: 80, TimeLimitMs: 120_000},
		Reward:    Reward{Coins: 100, Experience: 150}},
	{ID: "perfect_run", Name: "Perfect Run", Description: "Answer the next 5 questions without a mistake",
		Type: EventChallenge, DurationMs: -1, Rarity: RarityRare,
		Trigger:   AccuracyThreshold{Window: 10, MinPercent: 90},
		Challenge: &ChallengeSpec{Questions: 5, MinAccuracy: 100, Perfect: true},
		Reward:    Reward{Coins: 150, Experience: 200, PowerUpID: "shield"}},
	{ID: "math_spotlight", Name: "Math Spotlight", Description: "+25% experience after a strong math run",
		Type: EventBonus, DurationMs: 180_000, Rarity: RarityUncommon,
		Trigger: SubjectAccuracy{Subject: "math", Window: 5, MinPercent: 80},
		Effects: []EventEffect{ExperienceBoost{Factor: 1.25}}},
	{ID: "ability_surge", Name: "Ability Surge", Description: "Stronger abilities and faster power-up cooldowns",
		Type: EventBonus, DurationMs: 90_000, Rarity: RarityRare,
		Trigger: AbilityUseCount{Count: 3},
		Effects: []EventEffect{AbilityPower{Factor: 1.5}, CooldownCut{Fraction: 0.5}}},
	{ID: "mystery_box", Name: "Mystery Box", Description: "Your next correct answer opens a mystery box",
		Type: EventSpecial, DurationMs: -1, Rarity: RarityRare,
		Trigger: RandomChance{Probability: 0.03},
		Effects: []EventEffect{MysteryBox{Table: mysteryTable}}},
	{ID: "night_owl", Name: "Night Owl", Description: "Late-evening study raises power-up drops",
		Type: EventTimed, DurationMs: 3_600_000, Rarity: RarityCommon,
		Trigger: TimeOfDay{StartHour: 20, EndHour: 23},
		Effects: []EventEffect{DropRate{Rate: 0.1}, SpecialTag{Tag: "night_owl"}}},
	{ID: "weekend_warrior", Name: "Weekend Warrior", Description: "+50% coins on weekends",
		Type: EventTimed, DurationMs: 3_600_000, Rarity: RarityCommon,
		Trigger: DayOfWeek{Days: []time.Weekday{time.Saturday, time.Sunday}},
		Effects: []EventEffect{CoinBoost{Factor: 1.5}}},
}

// EventCatalog returns the static event catalog.
func EventCatalog() []EventDef {
	out := make([]EventDef, len(eventCatalog))
	copy(out, eventCatalog)
	return out
}

// FindEvent looks up a catalog entry by id.
func FindEvent(id string) (EventDef, bool) {
	for _, e := range eventCatalog {
		if e.ID == id {
			return e, true
		}
	}
	return EventDef{}, false
}
