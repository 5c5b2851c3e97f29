// Package game wires every manager around one Ledger and fans a reported
// answer out to all of them in a fixed order.
package game

import (
	"math/rand/v2"

	"github.com/brainquest/brainquest/internal/app/achievement"
	"github.com/brainquest/brainquest/internal/app/difficulty"
	"github.com/brainquest/brainquest/internal/app/event"
	"github.com/brainquest/brainquest/internal/app/ledger"
	"github.com/brainquest/brainquest/internal/app/powerup"
	"github.com/brainquest/brainquest/internal/domain"
	"github.com/brainquest/brainquest/internal/pkg/logger"
)

// Game owns the managers. The fields are exported for read-only projections;
// mutations go through Game methods so the fan-out stays consistent.
type Game struct {
	Ledger       *ledger.Ledger
	Achievements *achievement.Evaluator
	PowerUps     *powerup.Engine
	Events       *event.Engine
	Difficulty   *difficulty.Selector

	roll func() float64
	log  *logger.Logger
}

type options struct {
	saver ledger.Saver
	clock domain.Clock
	roll  func() float64
	log   *logger.Logger
}

// Option configures a Game.
type Option func(*options)

// WithSaver persists the document after every mutation.
func WithSaver(s ledger.Saver) Option { return func(o *options) { o.saver = s } }

// WithClock injects the clock shared by every manager.
func WithClock(c domain.Clock) Option { return func(o *options) { o.clock = c } }

// WithRandom injects the [0,1) source for event triggers, mystery boxes and drops.
func WithRandom(r func() float64) Option { return func(o *options) { o.roll = r } }

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option { return func(o *options) { o.log = l } }

// New builds every manager around doc. A nil doc starts a fresh player.
func New(doc *domain.PlayerProgress, opts ...Option) *Game {
	o := options{clock: domain.SystemClock{}, roll: rand.Float64, log: logger.Nop()}
	for _, fn := range opts {
		fn(&o)
	}

	lopts := []ledger.Option{ledger.WithClock(o.clock), ledger.WithLogger(o.log)}
	if o.saver != nil {
		lopts = append(lopts, ledger.WithSaver(o.saver))
	}
	l := ledger.New(doc, lopts...)

	events := event.New(l, event.WithRandom(o.roll), event.WithLogger(o.log))
	powerUps := powerup.New(l, powerup.WithCooldownSource(events), powerup.WithLogger(o.log))
	l.AddEffectSource(powerUps)
	l.AddEffectSource(events)

	return &Game{
		Ledger:       l,
		Achievements: achievement.New(l, achievement.WithLogger(o.log)),
		PowerUps:     powerUps,
		Events:       events,
		Difficulty:   difficulty.New(l, o.log),
		roll:         o.roll,
		log:          o.log.With("component", "game"),
	}
}

// ─── Answers ────────────────────────────────────────────────────────────────

// AnswerReport is everything one answer caused.
type AnswerReport struct {
	Answer         ledger.AnswerOutcome     `json:"answer"`
	Protected      bool                     `json:"protected"`
	Achievements   []domain.AchievementDef  `json:"achievements"`
	Events         event.UpdateResult       `json:"events"`
	StartedEvents  []domain.EventActivation `json:"started_events"`
	NextTier       domain.Tier              `json:"next_tier"`
	DroppedPowerUp string                   `json:"dropped_power_up,omitempty"`
}

// RecordAnswer pays the answer at the subject's current tier, then feeds
// achievements, events and the difficulty window in that order. A wrong
// answer consumes one protection charge when a shield is running; a
// protected miss still counts in the stats and the difficulty window but
// keeps the streak and does not count against a running challenge.
func (g *Game) RecordAnswer(subject string, correct bool, responseMs int64) AnswerReport {
	subject = domain.NormalizeSubject(subject)
	tier := g.Difficulty.Tier(subject)

	var rep AnswerReport
	if !correct {
		rep.Protected = g.PowerUps.UseProtection()
	}
	rep.Answer = g.Ledger.RecordAnswer(subject, correct, responseMs, tier)
	if rep.Protected {
		rep.Achievements = g.Achievements.RecordProtectedAnswer(subject, responseMs)
	} else {
		rep.Achievements = g.Achievements.RecordAnswer(subject, correct, responseMs)
	}

	data := g.eventData(subject, correct, responseMs)
	data.Protected = rep.Protected
	rep.Events = g.Events.UpdateEvents(data)
	rep.StartedEvents = g.Events.CheckEventTriggers(data)
	if len(rep.Events.Completed) > 0 {
		rep.Achievements = append(rep.Achievements, g.Achievements.CheckAchievements("event")...)
	}

	rep.NextTier = g.Difficulty.RecordAnswer(subject, correct, responseMs)
	if correct {
		rep.DroppedPowerUp = g.rollDrop()
	}
	return rep
}

func (g *Game) eventData(subject string, correct bool, responseMs int64) domain.EventData {
	s := g.Achievements.Session()
	return domain.EventData{
		Answered:          true,
		Subject:           subject,
		IsCorrect:         correct,
		ResponseTimeMs:    responseMs,
		Streak:            s.CurrentStreak,
		QuestionsAnswered: s.QuestionsAnswered,
		AbilityUses:       g.Ledger.AbilityUses(),
	}
}

// rollDrop grants one random usable power-up at the event drop rate.
func (g *Game) rollDrop() string {
	rate := g.Events.GetActiveEffects().PowerUpDropRate
	if rate <= 0 || g.roll() >= rate {
		return ""
	}
	ct := g.Ledger.CharacterType()
	var eligible []string
	for _, def := range g.PowerUps.Catalog() {
		if def.Restriction == "" || def.Restriction == ct {
			eligible = append(eligible, def.ID)
		}
	}
	if len(eligible) == 0 {
		return ""
	}
	id := eligible[min(int(g.roll()*float64(len(eligible))), len(eligible)-1)]
	g.Ledger.GrantPowerUp(id, 1)
	g.log.Info("power-up dropped", "power_up", id)
	return id
}

// ─── Actions ────────────────────────────────────────────────────────────────

// SetCharacter creates the character.
func (g *Game) SetCharacter(in ledger.CharacterInput) domain.Result {
	return g.Ledger.SetCharacter(in)
}

// AbilityReport is the outcome of UseSpecialAbility.
type AbilityReport struct {
	ledger.AbilityResult
	Boost         float64                  `json:"boost"`
	Achievements  []domain.AchievementDef  `json:"achievements"`
	StartedEvents []domain.EventActivation `json:"started_events"`
}

// UseSpecialAbility uses the character ability, boosted by running events.
func (g *Game) UseSpecialAbility() AbilityReport {
	boost := g.Events.GetActiveEffects().AbilityBoost
	rep := AbilityReport{AbilityResult: g.Ledger.UseSpecialAbility(boost), Boost: boost}
	if !rep.Success {
		return rep
	}
	rep.Achievements = g.Achievements.CheckAchievements("ability")
	s := g.Achievements.Session()
	rep.StartedEvents = g.Events.CheckEventTriggers(domain.EventData{
		Streak:            s.CurrentStreak,
		QuestionsAnswered: s.QuestionsAnswered,
		AbilityUses:       rep.Uses,
	})
	return rep
}

// WeekReport is the outcome of CompleteWeek.
type WeekReport struct {
	ledger.WeekResult
	Achievements []domain.AchievementDef `json:"achievements"`
}

// CompleteWeek records week n and re-checks achievements.
func (g *Game) CompleteWeek(n int) WeekReport {
	rep := WeekReport{WeekResult: g.Ledger.CompleteWeek(n)}
	if rep.Success {
		rep.Achievements = g.Achievements.CheckAchievements("week")
	}
	return rep
}

// DailyReport is the outcome of ClaimDailyReward. Reward is nil when today
// was already claimed.
type DailyReport struct {
	Reward       *ledger.DailyReward     `json:"reward"`
	Achievements []domain.AchievementDef `json:"achievements"`
}

// ClaimDailyReward claims today's reward and re-checks achievements.
func (g *Game) ClaimDailyReward() DailyReport {
	rep := DailyReport{Reward: g.Ledger.ClaimDailyReward()}
	if rep.Reward != nil {
		rep.Achievements = g.Achievements.CheckAchievements("daily")
	}
	return rep
}

// Purchase buys a shop item or one power-up at its catalog price. A power-up
// restricted to another character is refused before any coins move.
func (g *Game) Purchase(id string) domain.Result {
	var (
		t    domain.ItemType
		cost int
		name string
	)
	if item, ok := domain.FindShopItem(id); ok {
		t, cost, name = item.Type, item.Cost, item.Name
	} else if def, ok := domain.FindPowerUp(id); ok {
		if def.Restriction != "" && def.Restriction != g.Ledger.CharacterType() {
			return domain.Fail(domain.ErrPowerUpRestricted)
		}
		t, cost, name = domain.ItemPowerUp, def.Cost, def.Name
	} else {
		return domain.Fail(domain.ErrUnknownItem)
	}

	if t != domain.ItemPowerUp && g.Ledger.Owns(t, id) {
		return domain.Fail(domain.ErrItemOwned)
	}
	if !g.Ledger.PurchaseItem(id, t, cost) {
		return domain.Fail(domain.ErrInsufficientCoins)
	}
	g.Achievements.CheckAchievements("purchase")
	return domain.OK("purchased " + name)
}

// ─── Housekeeping ───────────────────────────────────────────────────────────

// TickReport is the outcome of one periodic tick.
type TickReport struct {
	Events          event.UpdateResult       `json:"events"`
	StartedEvents   []domain.EventActivation `json:"started_events"`
	ExpiredPowerUps int                      `json:"expired_power_ups"`
}

// Tick expires time-boxed state and gives time-of-day and weekday triggers a
// chance to fire. It leaves the answer trigger pass and its rate limit alone.
func (g *Game) Tick() TickReport {
	return TickReport{
		Events:          g.Events.UpdateEvents(domain.EventData{}),
		StartedEvents:   g.Events.CheckClockTriggers(),
		ExpiredPowerUps: g.PowerUps.CleanupExpiredPowerUps(),
	}
}

// NewSession clears every per-session counter. Lifetime progress stays.
func (g *Game) NewSession() {
	g.Ledger.ResetSession()
	g.Achievements.ResetSession()
	g.Events.ResetSession()
	g.Difficulty.ResetSession()
	g.log.Info("session reset")
}

// Save persists the current document through the configured saver.
func (g *Game) Save() bool { return g.Ledger.Save() }

// Snapshot returns a deep copy of the document.
func (g *Game) Snapshot() *domain.PlayerProgress { return g.Ledger.Snapshot() }
