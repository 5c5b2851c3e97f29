// Package achievement evaluates the static achievement catalog against the
// ledger plus this session's counters, unlocking each entry at most once.
package achievement

import (
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/brainquest/brainquest/internal/app/ledger"
	"github.com/brainquest/brainquest/internal/domain"
	"github.com/brainquest/brainquest/internal/pkg/logger"
)

// ResponseWindow is how many recent answers the session keeps.
const ResponseWindow = 10

// Evaluator is safe for concurrent use.
type Evaluator struct {
	mu      sync.Mutex
	ledger  *ledger.Ledger
	catalog []domain.AchievementDef
	session domain.SessionCounters
	log     *logger.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCatalog replaces the built-in catalog.
func WithCatalog(defs []domain.AchievementDef) Option {
	return func(e *Evaluator) { e.catalog = defs }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option { return func(e *Evaluator) { e.log = l } }

// New builds an evaluator over the shared ledger.
func New(l *ledger.Ledger, opts ...Option) *Evaluator {
	e := &Evaluator{
		ledger:  l,
		catalog: domain.AchievementCatalog(),
		log:     logger.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("component", "achievements")
	e.resetLocked()
	return e
}

// RecordAnswer updates the session counters and checks the catalog.
func (e *Evaluator) RecordAnswer(subject string, correct bool, responseMs int64) []domain.AchievementDef {
	return e.record(subject, correct, false, responseMs)
}

// RecordProtectedAnswer counts a wrong answer a shield absorbed. The streak
// survives it.
func (e *Evaluator) RecordProtectedAnswer(subject string, responseMs int64) []domain.AchievementDef {
	return e.record(subject, false, true, responseMs)
}

func (e *Evaluator) record(subject string, correct, protected bool, responseMs int64) []domain.AchievementDef {
	subject = domain.NormalizeSubject(subject)

	e.mu.Lock()
	defer e.mu.Unlock()

	s := &e.session
	s.QuestionsAnswered++
	switch {
	case correct:
		s.CorrectAnswers++
		s.CurrentStreak++
		s.BestStreak = max(s.BestStreak, s.CurrentStreak)
	case !protected:
		s.CurrentStreak = 0
	}
	s.Recent = append(s.Recent, domain.Response{Subject: subject, Correct: correct, TimeMs: responseMs})
	if len(s.Recent) > ResponseWindow {
		s.Recent = slices.Clone(s.Recent[len(s.Recent)-ResponseWindow:])
	}
	st := s.Subjects[subject]
	st.Total++
	if correct {
		st.Correct++
	}
	s.Subjects[subject] = st

	return e.checkLocked("answer")
}

// CheckAchievements unlocks every not-yet-unlocked entry whose condition
// holds. Already-unlocked ids are skipped, so rewards are paid once.
func (e *Evaluator) CheckAchievements(trigger string) []domain.AchievementDef {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkLocked(trigger)
}

func (e *Evaluator) checkLocked(trigger string) []domain.AchievementDef {
	ctx := domain.AchievementContext{Progress: e.ledger.Snapshot(), Session: e.sessionCopy()}

	var unlocked []domain.AchievementDef
	for _, def := range e.catalog {
		if def.Condition == nil || ctx.Progress.HasAchievement(def.ID) {
			continue
		}
		if !def.Condition.Met(ctx) {
			continue
		}
		if e.ledger.UnlockAchievement(def) {
			unlocked = append(unlocked, def)
		}
	}
	if len(unlocked) > 0 {
		e.log.Debug("achievements unlocked", "trigger", trigger, "count", len(unlocked))
	}
	return unlocked
}

// ResetSession clears the ephemeral counters.
func (e *Evaluator) ResetSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Evaluator) resetLocked() {
	e.session = domain.SessionCounters{
		Recent:   []domain.Response{},
		Subjects: make(map[string]domain.SubjectStat),
	}
}

// Session returns a copy of the session counters.
func (e *Evaluator) Session() domain.SessionCounters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionCopy()
}

func (e *Evaluator) sessionCopy() domain.SessionCounters {
	c := e.session
	c.Recent = slices.Clone(e.session.Recent)
	c.Subjects = maps.Clone(e.session.Subjects)
	return c
}

// ─── Progress Projection ────────────────────────────────────────────────────

// Status is one catalog entry as the UI shows it.
type Status struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Rarity      domain.Rarity `json:"rarity"`
	Reward      domain.Reward `json:"reward"`
	Kind        string        `json:"kind"`
	Unlocked    bool          `json:"unlocked"`
	Progress    int           `json:"progress"` // 0-100
}

// Overview is the whole catalog with completion totals.
type Overview struct {
	Unlocked     int      `json:"unlocked"`
	Total        int      `json:"total"`
	Percent      int      `json:"percent"`
	Achievements []Status `json:"achievements"`
}

// GetAchievementProgress projects the catalog. No side effects.
func (e *Evaluator) GetAchievementProgress() Overview {
	e.mu.Lock()
	ctx := domain.AchievementContext{Progress: e.ledger.Snapshot(), Session: e.sessionCopy()}
	catalog := e.catalog
	e.mu.Unlock()

	ov := Overview{Total: len(catalog), Achievements: make([]Status, 0, len(catalog))}
	for _, def := range catalog {
		st := Status{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Rarity:      def.Rarity,
			Reward:      def.Reward,
		}
		if def.Condition != nil {
			st.Kind = def.Condition.Kind()
		}
		switch {
		case ctx.Progress.HasAchievement(def.ID):
			st.Unlocked = true
			st.Progress = 100
			ov.Unlocked++
		case def.Condition != nil:
			st.Progress = int(math.Floor(100 * def.Condition.Progress(ctx)))
		}
		ov.Achievements = append(ov.Achievements, st)
	}
	if ov.Total > 0 {
		ov.Percent = int(math.Round(100 * float64(ov.Unlocked) / float64(ov.Total)))
	}
	return ov
}
