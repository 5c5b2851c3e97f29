package difficulty

import (
	"testing"
	"time"

	"github.com/brainquest/brainquest/internal/app/ledger"
	"github.com/brainquest/brainquest/internal/domain"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestSelector(t *testing.T, stats map[string]domain.SubjectStat, character domain.CharacterType) *Selector {
	t.Helper()
	doc := domain.NewPlayerProgress(testNow)
	for k, v := range stats {
		doc.SubjectStats[k] = v
	}
	l := ledger.New(doc, ledger.WithClock(domain.NewManualClock(testNow)))
	if character != "" {
		l.SetCharacter(ledger.CharacterInput{Type: character})
	}
	return New(l, nil)
}

func window(correct int, total int, ms int64) []domain.Response {
	out := make([]domain.Response, total)
	for i := range out {
		out[i] = domain.Response{Subject: "math", Correct: i < correct, TimeMs: ms}
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════
// Tier Selection
// ═══════════════════════════════════════════════════════════════════════════

func TestGetCurrentDifficulty(t *testing.T) {
	tests := []struct {
		name      string
		stat      domain.SubjectStat
		character domain.CharacterType
		subject   string
		want      domain.Tier
	}{
		{"no history", domain.SubjectStat{}, "", "math", domain.TierEasy},
		{"90%", domain.SubjectStat{Correct: 9, Total: 10}, "", "math", domain.TierExpert},
		{"80%", domain.SubjectStat{Correct: 8, Total: 10}, "", "math", domain.TierHard},
		{"65%", domain.SubjectStat{Correct: 13, Total: 20}, "", "math", domain.TierMedium},
		{"50%", domain.SubjectStat{Correct: 5, Total: 10}, "", "math", domain.TierEasy},
		{"40%", domain.SubjectStat{Correct: 4, Total: 10}, "", "math", domain.TierBeginner},
		{"strength bias", domain.SubjectStat{Correct: 17, Total: 20}, domain.CharacterScholar, "math", domain.TierExpert},
		{"no bias outside strengths", domain.SubjectStat{Correct: 17, Total: 20}, domain.CharacterScholar, "history", domain.TierHard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSelector(t, map[string]domain.SubjectStat{tt.subject: tt.stat}, tt.character)
			if got := s.GetCurrentDifficulty(tt.subject); got != tt.want {
				t.Errorf("GetCurrentDifficulty = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAdjustDifficultyDynamic(t *testing.T) {
	tests := []struct {
		name   string
		stat   domain.SubjectStat
		recent []domain.Response
		want   domain.Tier
	}{
		{"empty window holds", domain.SubjectStat{}, nil, domain.TierEasy},
		{"strong and fast moves up", domain.SubjectStat{}, window(5, 5, 1000), domain.TierMedium},
		{"weak moves down", domain.SubjectStat{}, window(2, 5, 1000), domain.TierBeginner},
		{"middling holds", domain.SubjectStat{}, window(3, 5, 1000), domain.TierEasy},
		{"accurate but slow holds", domain.SubjectStat{}, window(5, 5, 30_000), domain.TierEasy},
		{"very slow moves down", domain.SubjectStat{}, window(5, 5, 60_000), domain.TierBeginner},
		{"expert is the ceiling", domain.SubjectStat{Correct: 10, Total: 10}, window(5, 5, 1000), domain.TierExpert},
		{"beginner is the floor", domain.SubjectStat{Correct: 1, Total: 10}, window(0, 5, 1000), domain.TierBeginner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSelector(t, map[string]domain.SubjectStat{"math": tt.stat}, "")
			if got := s.AdjustDifficultyDynamic("math", tt.recent); got != tt.want {
				t.Errorf("AdjustDifficultyDynamic = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecordAnswer_AdjustsOncePerWindow(t *testing.T) {
	s := newTestSelector(t, nil, "")

	for i := 0; i < SessionWindow-1; i++ {
		if got := s.RecordAnswer("Math", true, 1000); got != domain.TierEasy {
			t.Fatalf("answer %d moved tier to %s", i+1, got)
		}
	}
	if got := s.RecordAnswer("math", true, 1000); got != domain.TierMedium {
		t.Fatalf("full window = %s, want medium", got)
	}
	if got := s.Tier("math"); got != domain.TierMedium {
		t.Errorf("Tier = %s", got)
	}

	st := s.GetDifficultySettings("math")
	if !st.SessionAdjusted || st.CorrectRun != SessionWindow || st.Tier != domain.TierMedium {
		t.Errorf("settings = %+v", st)
	}

	// The window restarted, so one more answer cannot move the tier again.
	if got := s.RecordAnswer("math", false, 1000); got != domain.TierMedium {
		t.Errorf("tier after restart = %s", got)
	}
	if st := s.GetDifficultySettings("math"); st.WrongRun != 1 || st.CorrectRun != 0 {
		t.Errorf("runs = %d/%d", st.CorrectRun, st.WrongRun)
	}

	s.ResetSession()
	if got := s.Tier("math"); got != domain.TierEasy {
		t.Errorf("tier after reset = %s", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Rewards
// ═══════════════════════════════════════════════════════════════════════════

func TestCalculateRewards(t *testing.T) {
	tests := []struct {
		name      string
		character domain.CharacterType
		tier      domain.Tier
		ms        int64
		correct   bool
		want      Rewards
	}{
		{"incorrect", "", domain.TierExpert, 1000, false, Rewards{}},
		{"medium slow", "", domain.TierMedium, 15_000, true, Rewards{Coins: 12, Experience: 25, Bonus: 3}},
		{"medium fast", "", domain.TierMedium, 5_000, true, Rewards{Coins: 15, Experience: 30, Bonus: 4, TimeBonus: true}},
		{"expert slow", "", domain.TierExpert, 9_000, true, Rewards{Coins: 20, Experience: 40, Bonus: 6}},
		{"scholar fast", domain.CharacterScholar, domain.TierMedium, 5_000, true, Rewards{Coins: 15, Experience: 36, Bonus: 5, TimeBonus: true}},
		{"unknown tier", "", domain.Tier("legendary"), 20_000, true, Rewards{Coins: 10, Experience: 20, Bonus: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSelector(t, nil, tt.character)
			if got := s.CalculateRewards(tt.tier, tt.ms, tt.correct); got != tt.want {
				t.Errorf("CalculateRewards = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGetDifficultySettings(t *testing.T) {
	s := newTestSelector(t, map[string]domain.SubjectStat{"science": {Correct: 8, Total: 10}}, domain.CharacterScholar)

	st := s.GetDifficultySettings("science")
	if st.Tier != domain.TierHard || !st.Strength || st.Accuracy != 80 || st.SessionAdjusted {
		t.Errorf("settings = %+v", st)
	}
	if st.HintsAvailable || st.QuestionCount != 12 {
		t.Errorf("tier knobs = %+v", st.TierSettings)
	}
}

func TestGetCurrentDifficulty_ShortHistory(t *testing.T) {
	tests := []struct {
		stat domain.SubjectStat
		want domain.Tier
	}{
		{domain.SubjectStat{}, domain.TierEasy},
		{domain.SubjectStat{Correct: 9, Total: 9}, domain.TierExpert},
		{domain.SubjectStat{Correct: 0, Total: 9}, domain.TierBeginner},
		{domain.SubjectStat{Correct: 1, Total: 1}, domain.TierExpert},
	}
	for _, tt := range tests {
		s := newTestSelector(t, map[string]domain.SubjectStat{"math": tt.stat}, "")
		if got := s.GetCurrentDifficulty("math"); got != tt.want {
			t.Errorf("tier with %d/%d = %s, want %s", tt.stat.Correct, tt.stat.Total, got, tt.want)
		}
	}
}
