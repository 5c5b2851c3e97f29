// Package event runs the triggerable event catalog: bonus buffs, multi-step
// challenges, mystery boxes and time-boxed buffs. Activations live in memory;
// only rewards reach the persisted document, through the ledger.
package event

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brainquest/brainquest/internal/app/ledger"
	"github.com/brainquest/brainquest/internal/domain"
	"github.com/brainquest/brainquest/internal/infra/observability"
	"github.com/brainquest/brainquest/internal/pkg/logger"
)

const (
	// TriggerInterval is the minimum gap between two trigger passes.
	TriggerInterval = 30 * time.Second
	// RecentWindow is how many answers the accuracy triggers can see.
	RecentWindow = 20

	historyLimit = 100
)

// Engine is safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	ledger  *ledger.Ledger
	clock   domain.Clock
	roll    func() float64
	catalog []domain.EventDef
	log     *logger.Logger

	active    []domain.EventActivation
	history   []domain.EventHistoryEntry
	recent    []domain.Response
	counters  domain.EventData // counters at the last evaluated pass
	lastCheck int64
	checked   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects the clock.
func WithClock(c domain.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithRandom injects the [0,1) source used by random triggers and mystery boxes.
func WithRandom(r func() float64) Option { return func(e *Engine) { e.roll = r } }

// WithCatalog replaces the built-in catalog.
func WithCatalog(defs []domain.EventDef) Option {
	return func(e *Engine) { e.catalog = defs }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option { return func(e *Engine) { e.log = l } }

// New builds an engine over the shared ledger.
func New(l *ledger.Ledger, opts ...Option) *Engine {
	e := &Engine{
		ledger:  l,
		clock:   l.Clock(),
		roll:    rand.Float64,
		catalog: domain.EventCatalog(),
		log:     logger.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("component", "events")
	return e
}

func (e *Engine) find(id string) (domain.EventDef, bool) {
	for _, d := range e.catalog {
		if d.ID == id {
			return d, true
		}
	}
	return domain.EventDef{}, false
}

func (e *Engine) isActiveLocked(id string) bool {
	return slices.ContainsFunc(e.active, func(a domain.EventActivation) bool {
		return a.EventID == id
	})
}

// ─── Triggering ─────────────────────────────────────────────────────────────

// CheckEventTriggers evaluates every inactive catalog entry and starts the
// ones whose trigger fires. At most one pass runs per TriggerInterval;
// calls inside the interval return nil. Counter triggers compare data with
// the counters of the previous evaluated pass, so a threshold crossed while
// rate limited still fires on the next pass.
func (e *Engine) CheckEventTriggers(data domain.EventData) []domain.EventActivation {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	nowMs := now.UnixMilli()
	if e.checked && nowMs-e.lastCheck < TriggerInterval.Milliseconds() {
		return nil
	}
	e.checked = true
	e.lastCheck = nowMs
	e.expireLocked(nowMs)

	ctx := domain.TriggerContext{
		Now:    now,
		Data:   data,
		Prev:   e.counters,
		Recent: slices.Clone(e.recent),
		Roll:   e.roll,
	}
	e.counters = data
	return e.fireLocked(ctx, nowMs, func(domain.Trigger) bool { return true })
}

// CheckClockTriggers starts inactive events whose time-of-day or weekday
// trigger fires. It neither consumes nor respects the CheckEventTriggers
// rate limit.
func (e *Engine) CheckClockTriggers() []domain.EventActivation {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	nowMs := now.UnixMilli()
	e.expireLocked(nowMs)
	return e.fireLocked(domain.TriggerContext{Now: now}, nowMs, domain.IsClockTrigger)
}

func (e *Engine) fireLocked(ctx domain.TriggerContext, nowMs int64, eligible func(domain.Trigger) bool) []domain.EventActivation {
	var started []domain.EventActivation
	for _, def := range e.catalog {
		if def.Trigger == nil || !eligible(def.Trigger) || e.isActiveLocked(def.ID) {
			continue
		}
		if !def.Trigger.Triggered(ctx) {
			continue
		}
		started = append(started, e.startLocked(def, nowMs))
	}
	return started
}

// StartEvent activates id directly, bypassing its trigger and the rate limit.
func (e *Engine) StartEvent(id string) (domain.EventActivation, domain.Result) {
	def, ok := e.find(id)
	if !ok {
		return domain.EventActivation{}, domain.Fail(domain.ErrUnknownEvent)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	nowMs := e.clock.Now().UnixMilli()
	e.expireLocked(nowMs)
	if e.isActiveLocked(id) {
		return domain.EventActivation{}, domain.Fail(domain.ErrEventActive)
	}
	return e.startLocked(def, nowMs), domain.OK(def.Name + " started")
}

func (e *Engine) startLocked(def domain.EventDef, nowMs int64) domain.EventActivation {
	act := domain.EventActivation{
		ID:        uuid.NewString(),
		EventID:   def.ID,
		Type:      def.Type,
		StartTime: nowMs,
		EndTime:   -1,
		Status:    domain.StatusActive,
	}
	if def.DurationMs > 0 {
		act.EndTime = nowMs + def.DurationMs
	}
	if def.Challenge != nil {
		act.Progress = &domain.ChallengeProgress{TimeRemainingMs: def.Challenge.TimeLimitMs}
	}
	e.active = append(e.active, act)

	observability.EventsTriggered.WithLabelValues(def.ID).Inc()
	e.log.Info("event started", "event", def.ID, "type", def.Type, "end_time", act.EndTime)
	return cloneActivation(act)
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// UpdateResult lists the activations that ended during one UpdateEvents call.
type UpdateResult struct {
	Completed []domain.EventHistoryEntry `json:"completed"`
	Failed    []domain.EventHistoryEntry `json:"failed"`
	Expired   []domain.EventHistoryEntry `json:"expired"`
}

// Empty reports whether nothing ended.
func (r UpdateResult) Empty() bool {
	return len(r.Completed) == 0 && len(r.Failed) == 0 && len(r.Expired) == 0
}

// UpdateEvents is called once per answer or tick. It expires activations
// past their end time, advances challenges and resolves mystery boxes.
// Answers reported here also feed the window the accuracy triggers read.
func (e *Engine) UpdateEvents(data domain.EventData) UpdateResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	nowMs := e.clock.Now().UnixMilli()
	var res UpdateResult
	res.Expired = e.expireLocked(nowMs)

	if !data.Answered {
		e.refreshTimersLocked(nowMs)
		return res
	}
	e.recent = append(e.recent, domain.Response{
		Subject: domain.NormalizeSubject(data.Subject),
		Correct: data.IsCorrect,
		TimeMs:  data.ResponseTimeMs,
	})
	if n := len(e.recent); n > RecentWindow {
		e.recent = slices.Clone(e.recent[n-RecentWindow:])
	}

	kept := e.active[:0]
	for _, act := range e.active {
		def, ok := e.find(act.EventID)
		if !ok {
			continue
		}
		switch {
		case def.Challenge != nil:
			status := advanceChallenge(&act, def.Challenge, data, nowMs)
			switch status {
			case domain.StatusCompleted:
				res.Completed = append(res.Completed, e.finishLocked(act, def, status, nowMs, &def.Reward, ""))
				continue
			case domain.StatusFailed:
				res.Failed = append(res.Failed, e.finishLocked(act, def, status, nowMs, nil, ""))
				continue
			}
		case data.IsCorrect:
			if box, isMystery := def.Mystery(); isMystery {
				if pick, ok := box.Pick(e.roll()); ok {
					r := pick.Reward
					res.Completed = append(res.Completed, e.finishLocked(act, def, domain.StatusCompleted, nowMs, &r, pick.Label))
					continue
				}
			}
		}
		kept = append(kept, act)
	}
	e.active = kept
	return res
}

// advanceChallenge applies one answer and reports the resulting status.
// A protected miss only refreshes the timer.
func advanceChallenge(act *domain.EventActivation, spec *domain.ChallengeSpec, data domain.EventData, nowMs int64) domain.EventStatus {
	p := act.Progress
	if p == nil {
		p = &domain.ChallengeProgress{}
		act.Progress = p
	}
	if spec.TimeLimitMs > 0 {
		p.TimeRemainingMs = max(act.StartTime+spec.TimeLimitMs-nowMs, 0)
	}
	correct := data.IsCorrect
	if !correct && data.Protected {
		return domain.StatusActive
	}
	p.QuestionsAnswered++
	if correct {
		p.CorrectAnswers++
	}

	if spec.Perfect && !correct {
		return domain.StatusFailed
	}
	if p.QuestionsAnswered < spec.Questions {
		return domain.StatusActive
	}
	if p.Accuracy() >= spec.MinAccuracy {
		return domain.StatusCompleted
	}
	return domain.StatusFailed
}

// finishLocked pays the reward (if any), records history and returns the entry.
// The caller removes the activation from the active list.
func (e *Engine) finishLocked(act domain.EventActivation, def domain.EventDef, status domain.EventStatus, nowMs int64, reward *domain.Reward, label string) domain.EventHistoryEntry {
	entry := domain.EventHistoryEntry{
		ActivationID: act.ID,
		EventID:      act.EventID,
		Status:       status,
		StartTime:    act.StartTime,
		EndedAt:      nowMs,
		Label:        label,
	}
	if status == domain.StatusCompleted && reward != nil && !reward.IsZero() {
		e.ledger.GrantReward(*reward, "event")
		r := *reward
		entry.Reward = &r
	}
	e.history = append(e.history, entry)
	if n := len(e.history); n > historyLimit {
		e.history = slices.Clone(e.history[n-historyLimit:])
	}

	observability.EventOutcomes.WithLabelValues(def.ID, string(status)).Inc()
	e.log.Info("event ended", "event", def.ID, "status", status, "label", label)
	return entry
}

// expireLocked moves every activation past its end time into history.
func (e *Engine) expireLocked(nowMs int64) []domain.EventHistoryEntry {
	var expired []domain.EventHistoryEntry
	kept := e.active[:0]
	for _, act := range e.active {
		if act.ActiveAt(nowMs) {
			kept = append(kept, act)
			continue
		}
		def, _ := e.find(act.EventID)
		if def.ID == "" {
			def.ID = act.EventID
		}
		expired = append(expired, e.finishLocked(act, def, domain.StatusExpired, act.EndTime, nil, ""))
	}
	e.active = kept
	return expired
}

func (e *Engine) refreshTimersLocked(nowMs int64) {
	for i := range e.active {
		act := &e.active[i]
		def, ok := e.find(act.EventID)
		if !ok || def.Challenge == nil || def.Challenge.TimeLimitMs <= 0 || act.Progress == nil {
			continue
		}
		act.Progress.TimeRemainingMs = max(act.StartTime+def.Challenge.TimeLimitMs-nowMs, 0)
	}
}

// CleanupExpiredEvents expires overdue activations and returns how many.
func (e *Engine) CleanupExpiredEvents() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.expireLocked(e.clock.Now().UnixMilli()))
}

// ─── Effects ────────────────────────────────────────────────────────────────

// GetActiveEffects folds the effects of every running event.
func (e *Engine) GetActiveEffects() domain.EventEffects {
	e.mu.Lock()
	defer e.mu.Unlock()

	nowMs := e.clock.Now().UnixMilli()
	agg := domain.NewEventEffects()
	for _, act := range e.active {
		if !act.ActiveAt(nowMs) {
			continue
		}
		def, ok := e.find(act.EventID)
		if !ok {
			continue
		}
		for _, eff := range def.Effects {
			eff.Apply(&agg)
		}
	}
	return agg
}

// RewardModifiers makes the engine a ledger.EffectSource.
func (e *Engine) RewardModifiers(string) domain.Modifiers {
	eff := e.GetActiveEffects()
	return domain.Modifiers{
		CoinMultiplier:       eff.CoinMultiplier,
		ExperienceMultiplier: eff.ExperienceMultiplier,
	}
}

// CooldownReduction makes the engine a powerup.CooldownSource.
func (e *Engine) CooldownReduction() float64 {
	return e.GetActiveEffects().CooldownReduction
}

// ─── Projections ────────────────────────────────────────────────────────────

// ActiveEvent is one running event as the UI shows it.
type ActiveEvent struct {
	domain.EventActivation
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Rarity      domain.Rarity `json:"rarity"`
	RemainingMs int64         `json:"remaining_ms"` // -1 until resolved
	Effects     []string      `json:"effects"`
}

// GetActiveEvents lists the running events in start order.
func (e *Engine) GetActiveEvents() []ActiveEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	nowMs := e.clock.Now().UnixMilli()
	out := make([]ActiveEvent, 0, len(e.active))
	for _, act := range e.active {
		if !act.ActiveAt(nowMs) {
			continue
		}
		def, _ := e.find(act.EventID)
		ev := ActiveEvent{
			EventActivation: cloneActivation(act),
			Name:            def.Name,
			Description:     def.Description,
			Rarity:          def.Rarity,
			RemainingMs:     -1,
			Effects:         make([]string, 0, len(def.Effects)),
		}
		if act.EndTime >= 0 {
			ev.RemainingMs = act.EndTime - nowMs
		}
		for _, eff := range def.Effects {
			ev.Effects = append(ev.Effects, eff.Kind())
		}
		out = append(out, ev)
	}
	return out
}

// History returns the ended activations, oldest first.
func (e *Engine) History() []domain.EventHistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.history)
}

// ResetSession drops running events, the answer window and the session
// counters. History stays.
func (e *Engine) ResetSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = nil
	e.recent = nil
	e.counters = domain.EventData{AbilityUses: e.counters.AbilityUses} // lifetime count
	e.checked = false
}

func cloneActivation(a domain.EventActivation) domain.EventActivation {
	if a.Progress != nil {
		p := *a.Progress
		a.Progress = &p
	}
	return a
}
