package persist

import (
	"slices"

	"github.com/brainquest/brainquest/internal/domain"
)

// Migrate brings a document of any older format up to the current shape.
// It only fills what is structurally missing or outside its valid range;
// existing valid values are left alone, so running it twice is a no-op.
func Migrate(doc *domain.PlayerProgress) {
	if doc == nil {
		return
	}
	if doc.SubjectStats == nil {
		doc.SubjectStats = make(map[string]domain.SubjectStat)
	}
	if doc.SubjectAccuracies == nil {
		doc.SubjectAccuracies = make(map[string]int)
	}
	if doc.ExperienceMultiplier < 1 {
		doc.ExperienceMultiplier = 1
	}
	if doc.CoinBalance < 0 {
		doc.CoinBalance = 0
	}
	if doc.TotalCoinsEarned < doc.CoinBalance {
		// Saves older than 2.0 had no earned counter.
		doc.TotalCoinsEarned = doc.CoinBalance
	}

	cp := &doc.CharacterProgression
	if cp.Level < 1 {
		cp.Level = 1
	}
	if cp.Experience < 0 {
		cp.Experience = 0
	}
	if cp.UpgradesUnlocked == nil {
		cp.UpgradesUnlocked = []string{}
	}

	if doc.WeeksCompleted == nil {
		doc.WeeksCompleted = []int{}
	}
	slices.Sort(doc.WeeksCompleted)
	doc.WeeksCompleted = slices.Compact(doc.WeeksCompleted)

	if doc.Achievements == nil {
		doc.Achievements = []string{}
	}
	doc.Achievements = dedupe(doc.Achievements)
	doc.Badges = len(doc.Achievements)

	inv := &doc.Inventory
	if inv.PowerUps == nil {
		inv.PowerUps = make(map[string]int)
	}
	if inv.Cosmetics == nil {
		inv.Cosmetics = make(map[string]bool)
	}
	if inv.Tools == nil {
		inv.Tools = make(map[string]bool)
	}
	if inv.Decorations == nil {
		inv.Decorations = make(map[string]bool)
	}
	if inv.Armor == nil {
		inv.Armor = make(map[string]bool)
	}
	if doc.EquippedItems == nil {
		doc.EquippedItems = make(map[domain.ItemSlot]string)
	}
	// An equipped id must be owned in the matching bucket.
	for slot, id := range doc.EquippedItems {
		if id == "" || !inv.Owns(domain.SlotItemType(slot), id) {
			delete(doc.EquippedItems, slot)
		}
	}

	recomputeAccuracies(doc)
}

// recomputeAccuracies mirrors the ledger's derivation so a loaded document
// satisfies the accuracy invariant before any manager touches it.
func recomputeAccuracies(doc *domain.PlayerProgress) {
	for s, st := range doc.SubjectStats {
		doc.SubjectAccuracies[s] = st.Accuracy()
	}
}

// dedupe keeps the first occurrence of every id, preserving unlock order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
