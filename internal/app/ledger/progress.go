package ledger

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/brainquest/brainquest/internal/domain"
	"github.com/brainquest/brainquest/internal/infra/observability"
)

const (
	// fastAnswerMs: correct answers under this earn fastAnswerBonus coins.
	fastAnswerMs    = 5000
	fastAnswerBonus = 5
	// strengthBonus scales answer coins in a character strength subject.
	strengthBonus = 1.25

	abilityBaseExperience = 15
)

// ─── Character ──────────────────────────────────────────────────────────────

// CharacterInput is the character-selection payload.
type CharacterInput struct {
	Type domain.CharacterType `json:"type"`
	Name string               `json:"name"`
}

// SetCharacter creates the character once and applies the one-time
// starting bonus of its type.
func (l *Ledger) SetCharacter(in CharacterInput) domain.Result {
	profile, ok := domain.ProfileFor(in.Type)
	if !ok {
		return domain.Fail(domain.ErrUnknownCharacterType)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = profile.DisplayName
	}

	res := domain.Fail(domain.ErrCharacterExists)
	l.update(func(doc *domain.PlayerProgress) bool {
		if doc.Character != nil {
			return false
		}
		doc.Character = &domain.Character{
			ID:        uuid.NewString(),
			Type:      in.Type,
			Name:      name,
			CreatedAt: l.clock.Now().UnixMilli(),
		}
		credit(doc, profile.StartingCoins, "starting_bonus")
		if profile.StartingMultiplier > 0 {
			doc.ExperienceMultiplier *= profile.StartingMultiplier
		}
		if doc.ExperienceMultiplier < 1 {
			doc.ExperienceMultiplier = 1
		}
		res = domain.OK("character created")
		return true
	})
	if res.Success {
		l.log.Info("character created", "type", in.Type, "name", name)
	}
	return res
}

// ─── Answers ────────────────────────────────────────────────────────────────

// AnswerOutcome is what one recorded answer credited.
type AnswerOutcome struct {
	Subject    string      `json:"subject"`
	Correct    bool        `json:"correct"`
	Tier       domain.Tier `json:"tier"`
	Coins      int         `json:"coins"`
	Experience LevelResult `json:"experience"`
	Accuracy   int         `json:"accuracy"`
}

// RecordAnswer updates subject stats and session stats, pays a correct
// answer scaled by the effect sources and the equipped item bonuses, then
// recomputes every subject accuracy.
func (l *Ledger) RecordAnswer(subject string, correct bool, timeMs int64, tier domain.Tier) AnswerOutcome {
	subject = domain.NormalizeSubject(subject)
	if !tier.Valid() {
		tier = domain.TierEasy
	}
	mods := l.modifiers(subject)
	out := AnswerOutcome{Subject: subject, Correct: correct, Tier: tier}

	l.update(func(doc *domain.PlayerProgress) bool {
		st := doc.SubjectStats[subject]
		st.Total++
		if correct {
			st.Correct++
		}
		doc.SubjectStats[subject] = st

		ss := &doc.SessionStats
		ss.QuestionsAnswered++
		if correct {
			ss.CorrectAnswers++
		}
		if timeMs > 0 {
			ss.TotalTimeMs += timeMs
		}

		if correct {
			settings := domain.SettingsFor(tier)
			coins := float64(settings.BaseCoins)
			if timeMs > 0 && timeMs < fastAnswerMs {
				coins += fastAnswerBonus
			}
			if p, ok := profileOf(doc); ok && p.IsStrength(subject) {
				coins *= strengthBonus
			}
			gear := equippedEffects(doc)
			coins *= mods.CoinMultiplier * (1 + gear.CoinBonus)
			exp := float64(settings.BaseExperience) * mods.ExperienceMultiplier * (1 + gear.ExperienceBonus)

			var coinLevel LevelResult
			out.Coins, coinLevel = awardCoins(doc, domain.FloorInt(coins), "answer")
			out.Experience = awardExperience(doc, domain.FloorInt(exp))
			out.Experience.Gained += coinLevel.Gained
			if coinLevel.LeveledUp {
				out.Experience.LeveledUp = true
				out.Experience.BonusCoins += coinLevel.BonusCoins
			}
			out.Experience.NewLevel = doc.CharacterProgression.Level
		}

		recomputeAccuracies(doc)
		out.Accuracy = doc.SubjectAccuracies[subject]
		return true
	})

	observability.AnswersRecorded.WithLabelValues(subject, observability.Bool(correct)).Inc()
	return out
}

// ─── Weeks ──────────────────────────────────────────────────────────────────

// WeekResult is the outcome of CompleteWeek.
type WeekResult struct {
	domain.Result
	Coins      int         `json:"coins"`
	Experience LevelResult `json:"experience"`
}

// CompleteWeek records week n and pays 50+15n coins and 100+25n experience.
// Completing a week twice is a no-op.
func (l *Ledger) CompleteWeek(n int) WeekResult {
	if n < 1 {
		return WeekResult{Result: domain.Fail(domain.ErrInvalidWeek)}
	}
	res := WeekResult{Result: domain.Fail(domain.ErrWeekAlreadyCompleted)}
	l.update(func(doc *domain.PlayerProgress) bool {
		if doc.HasCompletedWeek(n) {
			return false
		}
		doc.WeeksCompleted = append(doc.WeeksCompleted, n)
		slices.Sort(doc.WeeksCompleted)
		res.Coins, _ = awardCoins(doc, 50+15*n, "week")
		res.Experience = awardExperience(doc, 100+25*n)
		res.Result = domain.OK("week completed")
		return true
	})
	if res.Success {
		l.log.Info("week completed", "week", n, "coins", res.Coins)
	}
	return res
}

// ─── Daily Reward ───────────────────────────────────────────────────────────

// DailyReward is what a daily claim paid.
type DailyReward struct {
	Date         string      `json:"date"`
	Streak       int         `json:"streak"`
	Coins        int         `json:"coins"`
	Experience   LevelResult `json:"experience"`
	NewMaxStreak bool        `json:"new_max_streak"`
}

// ClaimDailyReward pays once per calendar day; nil if already claimed today.
// Claiming on the day after the last claim extends the streak; any longer
// gap restarts it at 1.
func (l *Ledger) ClaimDailyReward() *DailyReward {
	now := l.clock.Now()
	today := domain.DateKey(now)
	yesterday := domain.DateKey(now.AddDate(0, 0, -1))

	var out *DailyReward
	l.update(func(doc *domain.PlayerProgress) bool {
		dr := &doc.DailyRewards
		if dr.LastClaimedDate == today {
			return false
		}
		if dr.LastClaimedDate == yesterday {
			dr.Streak++
		} else {
			dr.Streak = 1
		}
		dr.LastClaimedDate = today

		r := &DailyReward{Date: today, Streak: dr.Streak}
		if dr.Streak > dr.MaxStreak {
			dr.MaxStreak = dr.Streak
			r.NewMaxStreak = true
		}
		r.Coins, _ = awardCoins(doc, 15+min(dr.Streak*3, 30), "daily_reward")
		r.Experience = awardExperience(doc, 10+5*min(dr.Streak, 10))
		out = r
		return true
	})
	return out
}

// ─── Abilities ──────────────────────────────────────────────────────────────

// AbilityResult is the outcome of UseSpecialAbility.
type AbilityResult struct {
	domain.Result
	Ability    string      `json:"ability,omitempty"`
	Uses       int         `json:"uses"`
	Experience LevelResult `json:"experience"`
}

// UseSpecialAbility counts one ability use and pays experience scaled by boost.
func (l *Ledger) UseSpecialAbility(boost float64) AbilityResult {
	if boost <= 0 {
		boost = 1
	}
	res := AbilityResult{Result: domain.Fail(domain.ErrNoCharacter)}
	l.update(func(doc *domain.PlayerProgress) bool {
		p, ok := profileOf(doc)
		if !ok {
			return false
		}
		doc.CharacterProgression.SpecialAbilitiesUsed++
		res.Ability = p.Ability
		res.Uses = doc.CharacterProgression.SpecialAbilitiesUsed
		res.Experience = awardExperience(doc, domain.FloorInt(abilityBaseExperience*boost))
		res.Result = domain.OK(p.Ability + " used")
		return true
	})
	return res
}

// ─── Achievements ───────────────────────────────────────────────────────────

// UnlockAchievement appends def.ID and pays its reward exactly once.
// Returns false if it was already unlocked.
func (l *Ledger) UnlockAchievement(def domain.AchievementDef) bool {
	unlocked := false
	l.update(func(doc *domain.PlayerProgress) bool {
		if def.ID == "" || doc.HasAchievement(def.ID) {
			return false
		}
		doc.Achievements = append(doc.Achievements, def.ID)
		doc.Badges = len(doc.Achievements)
		grantReward(doc, def.Reward, "achievement")
		unlocked = true
		return true
	})
	if unlocked {
		observability.AchievementsUnlocked.WithLabelValues(string(def.Rarity)).Inc()
		l.log.Info("achievement unlocked", "id", def.ID, "rarity", def.Rarity)
	}
	return unlocked
}

// ─── Session ────────────────────────────────────────────────────────────────

// ResetSession zeroes the persisted session stats.
func (l *Ledger) ResetSession() {
	now := l.clock.Now().UnixMilli()
	l.update(func(doc *domain.PlayerProgress) bool {
		doc.SessionStats = domain.SessionStats{StartedAt: now}
		return true
	})
}
