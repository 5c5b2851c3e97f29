// Package ledger owns the canonical PlayerProgress document and every
// operation that mutates it. All other managers share this one instance.
//
// Lock order: callers may hold their own lock while calling into the
// Ledger, but the Ledger never calls another manager while holding mu.
// Effect sources are queried before mu is taken.
package ledger

import (
	"sync"

	"github.com/brainquest/brainquest/internal/domain"
	"github.com/brainquest/brainquest/internal/pkg/logger"
)

// Saver persists a document snapshot. *persist.Store satisfies it.
type Saver interface {
	Save(doc *domain.PlayerProgress) bool
}

// EffectSource contributes reward multipliers to answer rewards.
// The power-up and event engines implement it.
type EffectSource interface {
	RewardModifiers(subject string) domain.Modifiers
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu    sync.Mutex
	doc   *domain.PlayerProgress
	clock domain.Clock
	log   *logger.Logger
	saver Saver

	srcMu   sync.RWMutex
	sources []EffectSource

	// saveMu serializes writes; rev/savedRev stop an older snapshot from
	// overwriting a newer one when saves race.
	saveMu   sync.Mutex
	rev      uint64
	savedRev uint64
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithSaver persists after every mutation.
func WithSaver(s Saver) Option { return func(l *Ledger) { l.saver = s } }

// WithClock injects the clock.
func WithClock(c domain.Clock) Option { return func(l *Ledger) { l.clock = c } }

// WithLogger sets the logger.
func WithLogger(lg *logger.Logger) Option { return func(l *Ledger) { l.log = lg } }

// WithEffectSources registers reward-modifier sources.
func WithEffectSources(src ...EffectSource) Option {
	return func(l *Ledger) { l.sources = append(l.sources, src...) }
}

// New wraps doc. A nil doc starts a fresh player.
func New(doc *domain.PlayerProgress, opts ...Option) *Ledger {
	l := &Ledger{clock: domain.SystemClock{}, log: logger.Nop()}
	for _, o := range opts {
		o(l)
	}
	if doc == nil {
		doc = domain.NewPlayerProgress(l.clock.Now())
	}
	l.doc = doc
	l.log = l.log.With("component", "ledger")
	return l
}

// AddEffectSource registers another reward-modifier source.
func (l *Ledger) AddEffectSource(src EffectSource) {
	l.srcMu.Lock()
	l.sources = append(l.sources, src)
	l.srcMu.Unlock()
}

// Clock returns the injected clock.
func (l *Ledger) Clock() domain.Clock { return l.clock }

// modifiers folds every source. Must not be called with mu held.
func (l *Ledger) modifiers(subject string) domain.Modifiers {
	l.srcMu.RLock()
	defer l.srcMu.RUnlock()
	m := domain.NeutralModifiers()
	for _, s := range l.sources {
		m = m.Combine(s.RewardModifiers(subject))
	}
	return m
}

// ─── Mutation & Persistence ─────────────────────────────────────────────────

// update runs fn under mu. When fn reports a change, a snapshot is taken
// under the lock and saved after it is released.
func (l *Ledger) update(fn func(doc *domain.PlayerProgress) bool) {
	l.mu.Lock()
	changed := fn(l.doc)
	var snap *domain.PlayerProgress
	var rev uint64
	if changed {
		l.rev++
		rev = l.rev
		if l.saver != nil {
			snap = l.doc.Clone()
		}
	}
	l.mu.Unlock()

	if snap != nil {
		l.persist(snap, rev)
	}
}

func (l *Ledger) persist(snap *domain.PlayerProgress, rev uint64) bool {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()
	if rev <= l.savedRev {
		return true
	}
	if !l.saver.Save(snap) {
		return false
	}
	l.savedRev = rev
	return true
}

// Save writes the current document now. Use it when a durable write must
// be confirmed rather than left to auto-save.
func (l *Ledger) Save() bool {
	if l.saver == nil {
		return false
	}
	l.mu.Lock()
	l.rev++
	rev := l.rev
	snap := l.doc.Clone()
	l.mu.Unlock()
	return l.persist(snap, rev)
}

// Snapshot returns a deep copy of the document.
func (l *Ledger) Snapshot() *domain.PlayerProgress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doc.Clone()
}

// view runs fn under mu without persisting.
func (l *Ledger) view(fn func(doc *domain.PlayerProgress)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.doc)
}

// ─── Derived Fields ─────────────────────────────────────────────────────────

// RecomputeAccuracies rebuilds subjectAccuracies from subjectStats.
// It is the only writer of that field.
func (l *Ledger) RecomputeAccuracies() {
	l.update(func(doc *domain.PlayerProgress) bool {
		recomputeAccuracies(doc)
		return true
	})
}

func recomputeAccuracies(doc *domain.PlayerProgress) {
	if doc.SubjectAccuracies == nil {
		doc.SubjectAccuracies = make(map[string]int, len(doc.SubjectStats))
	}
	for s := range doc.SubjectAccuracies {
		if _, ok := doc.SubjectStats[s]; !ok {
			delete(doc.SubjectAccuracies, s)
		}
	}
	for s, st := range doc.SubjectStats {
		doc.SubjectAccuracies[s] = st.Accuracy()
	}
}

// profileOf returns the character profile, or a neutral one before selection.
func profileOf(doc *domain.PlayerProgress) (domain.CharacterProfile, bool) {
	if doc.Character == nil {
		return domain.CharacterProfile{CoinBonus: 1, ExperienceBonus: 1, StartingMultiplier: 1}, false
	}
	p, ok := domain.ProfileFor(doc.Character.Type)
	if !ok {
		return domain.CharacterProfile{CoinBonus: 1, ExperienceBonus: 1, StartingMultiplier: 1}, false
	}
	return p, true
}

// ─── Read-Only Accessors ────────────────────────────────────────────────────

// CharacterType returns the selected type, or "" before selection.
func (l *Ledger) CharacterType() domain.CharacterType {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.doc.Character == nil {
		return ""
	}
	return l.doc.Character.Type
}

// CharacterProfile returns the selected character's profile.
func (l *Ledger) CharacterProfile() (domain.CharacterProfile, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return profileOf(l.doc)
}

// IsStrength reports whether subject is a strength of the selected character.
func (l *Ledger) IsStrength(subject string) bool {
	p, ok := l.CharacterProfile()
	return ok && p.IsStrength(subject)
}

// SubjectStat returns the lifetime counters of subject.
func (l *Ledger) SubjectStat(subject string) domain.SubjectStat {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doc.SubjectStats[subject]
}

// AbilityUses returns lifetime special-ability uses.
func (l *Ledger) AbilityUses() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doc.CharacterProgression.SpecialAbilitiesUsed
}

// CoinBalance returns the spendable balance.
func (l *Ledger) CoinBalance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doc.CoinBalance
}

// IsWeekUnlocked: week 1 always, week N once week N-1 is completed.
func (l *Ledger) IsWeekUnlocked(n int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doc.IsWeekUnlocked(n)
}

// HasAchievement reports whether id is unlocked.
func (l *Ledger) HasAchievement(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doc.HasAchievement(id)
}

// Owns reports whether id is in the inventory bucket of t.
func (l *Ledger) Owns(t domain.ItemType, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doc.Inventory.Owns(t, id)
}
