// Package difficulty maps subject accuracy onto the five question tiers and
// nudges the tier within a session from a short rolling window.
package difficulty

import (
	"sync"

	"github.com/brainquest/brainquest/internal/app/ledger"
	"github.com/brainquest/brainquest/internal/domain"
	"github.com/brainquest/brainquest/internal/pkg/logger"
)

const (
	// SessionWindow is the rolling window the in-session adjustment reads.
	SessionWindow = 5

	strengthBias = 5.0

	baseCoins      = 10
	baseExperience = 20
	bonusFraction  = 0.1
)

// thresholds map cumulative accuracy onto tiers, hardest first.
var thresholds = []struct {
	min  float64
	tier domain.Tier
}{
	{90, domain.TierExpert},
	{80, domain.TierHard},
	{65, domain.TierMedium},
	{50, domain.TierEasy},
}

type subjectSession struct {
	tier       domain.Tier // empty until the window moves it
	window     []domain.Response
	correctRun int
	wrongRun   int
}

// Selector is safe for concurrent use.
type Selector struct {
	mu       sync.Mutex
	ledger   *ledger.Ledger
	sessions map[string]*subjectSession
	log      *logger.Logger
}

// New builds a selector reading subject stats from the ledger.
func New(l *ledger.Ledger, log *logger.Logger) *Selector {
	if log == nil {
		log = logger.Nop()
	}
	return &Selector{
		ledger:   l,
		sessions: make(map[string]*subjectSession),
		log:      log.With("component", "difficulty"),
	}
}

// GetCurrentDifficulty maps lifetime subject accuracy onto a tier. A subject
// with no answers yet returns easy. Strength subjects read 5 points higher.
func (s *Selector) GetCurrentDifficulty(subject string) domain.Tier {
	subject = domain.NormalizeSubject(subject)
	st := s.ledger.SubjectStat(subject)
	if st.Total == 0 {
		return domain.TierEasy
	}
	acc := 100 * float64(st.Correct) / float64(st.Total)
	if s.ledger.IsStrength(subject) {
		acc += strengthBias
	}
	for _, th := range thresholds {
		if acc >= th.min {
			return th.tier
		}
	}
	return domain.TierBeginner
}

// AdjustDifficultyDynamic moves one tier up when the window is at least 80%
// correct and within the target time, one tier down when it is under 50% or
// slower than twice the target, and otherwise holds.
func (s *Selector) AdjustDifficultyDynamic(subject string, recent []domain.Response) domain.Tier {
	return adjust(s.Tier(subject), recent)
}

func adjust(current domain.Tier, recent []domain.Response) domain.Tier {
	if len(recent) == 0 {
		return current
	}
	target := float64(domain.SettingsFor(current).TargetTimeMs)
	acc := domain.WindowAccuracy(recent)
	avg := domain.AverageTimeMs(recent)
	idx := domain.TierIndex(current)
	switch {
	case acc >= 80 && avg <= target:
		return domain.TierAt(idx + 1)
	case acc < 50 || avg > 2*target:
		return domain.TierAt(idx - 1)
	default:
		return current
	}
}

// Tier returns the session-adjusted tier of subject, falling back to
// GetCurrentDifficulty before the session has moved it.
func (s *Selector) Tier(subject string) domain.Tier {
	subject = domain.NormalizeSubject(subject)
	s.mu.Lock()
	ss, ok := s.sessions[subject]
	var t domain.Tier
	if ok {
		t = ss.tier
	}
	s.mu.Unlock()
	if t != "" {
		return t
	}
	return s.GetCurrentDifficulty(subject)
}

// RecordAnswer feeds the session window. Each time the window fills, the
// tier is re-evaluated and the window restarts.
func (s *Selector) RecordAnswer(subject string, correct bool, responseMs int64) domain.Tier {
	subject = domain.NormalizeSubject(subject)
	current := s.Tier(subject)

	s.mu.Lock()
	defer s.mu.Unlock()
	ss := s.sessions[subject]
	if ss == nil {
		ss = &subjectSession{}
		s.sessions[subject] = ss
	}
	if correct {
		ss.correctRun++
		ss.wrongRun = 0
	} else {
		ss.wrongRun++
		ss.correctRun = 0
	}
	ss.window = append(ss.window, domain.Response{Subject: subject, Correct: correct, TimeMs: responseMs})
	if len(ss.window) < SessionWindow {
		return current
	}

	next := adjust(current, ss.window)
	ss.window = ss.window[:0]
	ss.tier = next
	if next != current {
		s.log.Debug("tier changed", "subject", subject, "from", current, "to", next)
	}
	return next
}

// ─── Rewards ────────────────────────────────────────────────────────────────

// Rewards is the tier-scaled payout of one answer.
type Rewards struct {
	Coins      int  `json:"coins"`
	Experience int  `json:"experience"`
	Bonus      int  `json:"bonus"`
	TimeBonus  bool `json:"time_bonus"`
}

// CalculateRewards scales the base payout by tier, by the time-bonus factor
// for answers under half the target time, then by the character bonuses.
// Incorrect answers earn nothing.
func (s *Selector) CalculateRewards(tier domain.Tier, responseMs int64, correct bool) Rewards {
	if !correct {
		return Rewards{}
	}
	settings := domain.SettingsFor(tier)
	coins := baseCoins * settings.ScoreMultiplier
	exp := baseExperience * settings.ScoreMultiplier

	var r Rewards
	if responseMs > 0 && responseMs < settings.TargetTimeMs/2 {
		coins *= settings.TimeBonusFactor
		exp *= settings.TimeBonusFactor
		r.TimeBonus = true
	}
	if p, ok := s.ledger.CharacterProfile(); ok {
		coins *= p.CoinBonus
		exp *= p.ExperienceBonus
	}
	r.Coins = domain.FloorInt(coins)
	r.Experience = domain.FloorInt(exp)
	r.Bonus = domain.FloorInt(float64(r.Coins+r.Experience) * bonusFraction)
	return r
}

// ─── Projection ─────────────────────────────────────────────────────────────

// Settings is the per-subject view handed to the question UI.
type Settings struct {
	domain.TierSettings
	Subject         string  `json:"subject"`
	Accuracy        float64 `json:"accuracy"`
	Strength        bool    `json:"strength"`
	SessionAdjusted bool    `json:"session_adjusted"`
	CorrectRun      int     `json:"correct_run"`
	WrongRun        int     `json:"wrong_run"`
}

// GetDifficultySettings describes the current tier of subject.
func (s *Selector) GetDifficultySettings(subject string) Settings {
	subject = domain.NormalizeSubject(subject)
	tier := s.Tier(subject)
	st := s.ledger.SubjectStat(subject)

	out := Settings{
		TierSettings: domain.SettingsFor(tier),
		Subject:      subject,
		Strength:     s.ledger.IsStrength(subject),
	}
	if st.Total > 0 {
		out.Accuracy = 100 * float64(st.Correct) / float64(st.Total)
	}

	s.mu.Lock()
	if ss, ok := s.sessions[subject]; ok {
		out.SessionAdjusted = ss.tier != ""
		out.CorrectRun = ss.correctRun
		out.WrongRun = ss.wrongRun
	}
	s.mu.Unlock()
	return out
}

// ResetSession forgets every in-session adjustment.
func (s *Selector) ResetSession() {
	s.mu.Lock()
	s.sessions = make(map[string]*subjectSession)
	s.mu.Unlock()
}
