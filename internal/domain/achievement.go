package domain

// ─── Achievement Types ──────────────────────────────────────────────────────

// Rarity tiers achievements and events for display and metrics.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// SessionCounters are the ephemeral, non-persisted counters of one play session.
type SessionCounters struct {
	QuestionsAnswered int                    `json:"questions_answered"`
	CorrectAnswers    int                    `json:"correct_answers"`
	CurrentStreak     int                    `json:"current_streak"`
	BestStreak        int                    `json:"best_streak"`
	Recent            []Response             `json:"recent"` // rolling response-time window, oldest first
	Subjects          map[string]SubjectStat `json:"subjects"`
}

// Accuracy returns the session accuracy percent.
func (s SessionCounters) Accuracy() float64 {
	if s.QuestionsAnswered == 0 {
		return 0
	}
	return 100 * float64(s.CorrectAnswers) / float64(s.QuestionsAnswered)
}

// AchievementContext is everything a condition may look at.
type AchievementContext struct {
	Progress *PlayerProgress // read-only snapshot
	Session  SessionCounters
}

// Condition is the closed set of achievement condition kinds. Each kind
// carries its own evaluator; adding a kind means implementing both methods.
type Condition interface {
	Kind() string
	Met(ctx AchievementContext) bool
	// Progress returns completion in [0, 1] for the progress projection.
	Progress(ctx AchievementContext) float64
}

func ratio(have, want int) float64 {
	if want <= 0 {
		return 1
	}
	r := float64(have) / float64(want)
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}

// CorrectAnswers: lifetime correct answers across all subjects.
type CorrectAnswers struct{ Count int }

func (CorrectAnswers) Kind() string { return "correct_answers" }
func (c CorrectAnswers) Met(ctx AchievementContext) bool {
	return ctx.Progress.TotalCorrect() >= c.Count
}
func (c CorrectAnswers) Progress(ctx AchievementContext) float64 {
	return ratio(ctx.Progress.TotalCorrect(), c.Count)
}

// SessionAccuracy: sustained accuracy over at least MinQuestions this session.
type SessionAccuracy struct {
	MinPercent   float64
	MinQuestions int
}

func (SessionAccuracy) Kind() string { return "session_accuracy" }
func (c SessionAccuracy) Met(ctx AchievementContext) bool {
	return ctx.Session.QuestionsAnswered >= c.MinQuestions && ctx.Session.Accuracy() >= c.MinPercent
}
func (c SessionAccuracy) Progress(ctx AchievementContext) float64 {
	if c.Met(ctx) {
		return 1
	}
	return ratio(ctx.Session.QuestionsAnswered, c.MinQuestions) * 0.99
}

// SpeedBurst: the last Count answers were all correct and each within WithinMs.
type SpeedBurst struct {
	Count    int
	WithinMs int64
}

func (SpeedBurst) Kind() string { return "speed_burst" }

func (c SpeedBurst) trailing(ctx AchievementContext) int {
	n := 0
	for i := len(ctx.Session.Recent) - 1; i >= 0; i-- {
		r := ctx.Session.Recent[i]
		if !r.Correct || r.TimeMs > c.WithinMs {
			break
		}
		n++
	}
	return n
}
func (c SpeedBurst) Met(ctx AchievementContext) bool { return c.trailing(ctx) >= c.Count }
func (c SpeedBurst) Progress(ctx AchievementContext) float64 {
	return ratio(c.trailing(ctx), c.Count)
}

// Streak: consecutive correct answers in the current session.
type Streak struct{ Length int }

func (Streak) Kind() string { return "streak" }
func (c Streak) Met(ctx AchievementContext) bool {
	return ctx.Session.CurrentStreak >= c.Length
}
func (c Streak) Progress(ctx AchievementContext) float64 {
	return ratio(ctx.Session.BestStreak, c.Length)
}

// SubjectMastery: lifetime accuracy in Subject over at least MinQuestions.
type SubjectMastery struct {
	Subject      string
	MinAccuracy  int
	MinQuestions int
}

func (SubjectMastery) Kind() string { return "subject_mastery" }
func (c SubjectMastery) Met(ctx AchievementContext) bool {
	s := ctx.Progress.SubjectStats[c.Subject]
	return s.Total >= c.MinQuestions && s.Accuracy() >= c.MinAccuracy
}
func (c SubjectMastery) Progress(ctx AchievementContext) float64 {
	if c.Met(ctx) {
		return 1
	}
	return ratio(ctx.Progress.SubjectStats[c.Subject].Total, c.MinQuestions) * 0.99
}

// WeeksCompleted: number of completed weeks.
type WeeksCompleted struct{ Count int }

func (WeeksCompleted) Kind() string { return "weeks_completed" }
func (c WeeksCompleted) Met(ctx AchievementContext) bool {
	return len(ctx.Progress.WeeksCompleted) >= c.Count
}
func (c WeeksCompleted) Progress(ctx AchievementContext) float64 {
	return ratio(len(ctx.Progress.WeeksCompleted), c.Count)
}

// AbilityUses: lifetime special-ability uses of the character.
type AbilityUses struct{ Count int }

func (AbilityUses) Kind() string { return "ability_uses" }
func (c AbilityUses) Met(ctx AchievementContext) bool {
	return ctx.Progress.CharacterProgression.SpecialAbilitiesUsed >= c.Count
}
func (c AbilityUses) Progress(ctx AchievementContext) float64 {
	return ratio(ctx.Progress.CharacterProgression.SpecialAbilitiesUsed, c.Count)
}

// TotalCoinsEarned: lifetime coins earned.
type TotalCoinsEarned struct{ Amount int }

func (TotalCoinsEarned) Kind() string { return "total_coins_earned" }
func (c TotalCoinsEarned) Met(ctx AchievementContext) bool {
	return ctx.Progress.TotalCoinsEarned >= c.Amount
}
func (c TotalCoinsEarned) Progress(ctx AchievementContext) float64 {
	return ratio(ctx.Progress.TotalCoinsEarned, c.Amount)
}

// AchievementDef is one static catalog entry.
type AchievementDef struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Rarity      Rarity    `json:"rarity"`
	Reward      Reward    `json:"reward"`
	Condition   Condition `json:"-"`
}

var achievementCatalog = []AchievementDef{
	// ── Answering ──────────────────────────────────────────────────────
	{ID: "first_steps", Name: "First Steps", Description: "Answer your first question correctly",
		Icon: "👣", Rarity: RarityCommon, Reward: Reward{Coins: 10, Experience: 20},
		Condition: CorrectAnswers{Count: 1}},
	{ID: "quick_learner", Name: "Quick Learner", Description: "Answer 10 questions correctly",
		Icon: "📘", Rarity: RarityCommon, Reward: Reward{Coins: 25, Experience: 50},
		Condition: CorrectAnswers{Count: 10}},
	{ID: "knowledge_seeker", Name: "Knowledge Seeker", Description: "Answer 50 questions correctly",
		Icon: "📚", Rarity: RarityUncommon, Reward: Reward{Coins: 75, Experience: 150, PowerUpID: "hint_reveal"},
		Condition: CorrectAnswers{Count: 50}},
	{ID: "scholar_supreme", Name: "Scholar Supreme", Description: "Answer 250 questions correctly",
		Icon: "🎓", Rarity: RarityEpic, Reward: Reward{Coins: 300, Experience: 500},
		Condition: CorrectAnswers{Count: 250}},

	// ── Accuracy & speed ───────────────────────────────────────────────
	{ID: "sharp_mind", Name: "Sharp Mind", Description: "Keep 90% accuracy over 10 questions in one session",
		Icon: "🎯", Rarity: RarityUncommon, Reward: Reward{Coins: 50, Experience: 100},
		Condition: SessionAccuracy{MinPercent: 90, MinQuestions: 10}},
	{ID: "speed_demon", Name: "Speed Demon", Description: "Answer 5 questions correctly in under 3 seconds each",
		Icon: "⚡", Rarity: RarityRare, Reward: Reward{Coins: 60, Experience: 120, PowerUpID: "time_freeze"},
		Condition: SpeedBurst{Count: 5, WithinMs: 3000}},

	// ── Streaks ────────────────────────────────────────────────────────
	{ID: "on_fire", Name: "On Fire", Description: "Answer 5 in a row correctly",
		Icon: "🔥", Rarity: RarityCommon, Reward: Reward{Coins: 30, Experience: 60},
		Condition: Streak{Length: 5}},
	{ID: "unstoppable", Name: "Unstoppable", Description: "Answer 15 in a row correctly",
		Icon: "🌋", Rarity: RarityRare, Reward: Reward{Coins: 100, Experience: 200, PowerUpID: "shield"},
		Condition: Streak{Length: 15}},

	// ── Mastery ────────────────────────────────────────────────────────
	{ID: "math_master", Name: "Math Master", Description: "Reach 90% accuracy in math over 20 questions",
		Icon: "➗", Rarity: RarityEpic, Reward: Reward{Coins: 150, Experience: 300},
		Condition: SubjectMastery{Subject: "math", MinAccuracy: 90, MinQuestions: 20}},
	{ID: "science_whiz", Name: "Science Whiz", Description: "Reach 90% accuracy in science over 20 questions",
		Icon: "🔬", Rarity: RarityEpic, Reward: Reward{Coins: 150, Experience: 300},
		Condition: SubjectMastery{Subject: "science", MinAccuracy: 90, MinQuestions: 20}},

	// ── Weeks ──────────────────────────────────────────────────────────
	{ID: "week_warrior", Name: "Week Warrior", Description: "Complete your first week",
		Icon: "📅", Rarity: RarityCommon, Reward: Reward{Coins: 40, Experience: 80},
		Condition: WeeksCompleted{Count: 1}},
	{ID: "dedicated_student", Name: "Dedicated Student", Description: "Complete 4 weeks",
		Icon: "🗓️", Rarity: RarityRare, Reward: Reward{Coins: 120, Experience: 250, PowerUpID: "double_coins"},
		Condition: WeeksCompleted{Count: 4}},

	// ── Character ──────────────────────────────────────────────────────
	{ID: "ability_adept", Name: "Ability Adept", Description: "Use your special ability 10 times",
		Icon: "✨", Rarity: RarityUncommon, Reward: Reward{Coins: 50, Experience: 100},
		Condition: AbilityUses{Count: 10}},

	// ── Economy ────────────────────────────────────────────────────────
	{ID: "coin_collector", Name: "Coin Collector", Description: "Earn 1,000 coins in total",
		Icon: "🪙", Rarity: RarityUncommon, Reward: Reward{Experience: 100},
		Condition: TotalCoinsEarned{Amount: 1000}},
	{ID: "tycoon", Name: "Tycoon", Description: "Earn 10,000 coins in total",
		Icon: "💰", Rarity: RarityLegendary, Reward: Reward{Experience: 1000, PowerUpID: "focus_mode"},
		Condition: TotalCoinsEarned{Amount: 10000}},
}

// AchievementCatalog returns the static achievement catalog in display order.
func AchievementCatalog() []AchievementDef {
	out := make([]AchievementDef, len(achievementCatalog))
	copy(out, achievementCatalog)
	return out
}
