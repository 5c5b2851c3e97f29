package ledger

import (
	"github.com/brainquest/brainquest/internal/domain"
	"github.com/brainquest/brainquest/internal/infra/observability"
)

const (
	// levelUpCoinsPerLevel is credited as levelUpCoinsPerLevel*newLevel.
	levelUpCoinsPerLevel = 50
	// coinsPerExperience: every full 10 coins awarded also grant 1 experience.
	coinsPerExperience = 10
)

// LevelResult describes one experience award.
type LevelResult struct {
	Gained     int  `json:"gained"`
	LeveledUp  bool `json:"leveled_up"`
	NewLevel   int  `json:"new_level"`
	BonusCoins int  `json:"bonus_coins,omitempty"`
}

// ─── Coins ──────────────────────────────────────────────────────────────────

// AwardCoins credits floor(amount * experienceMultiplier * coinBonus) and
// floor(credited/10) character experience. Returns the credited amount.
func (l *Ledger) AwardCoins(amount int, reason string) int {
	var credited int
	l.update(func(doc *domain.PlayerProgress) bool {
		credited, _ = awardCoins(doc, amount, reason)
		return credited > 0
	})
	return credited
}

func awardCoins(doc *domain.PlayerProgress, amount int, reason string) (int, LevelResult) {
	if amount <= 0 {
		return 0, LevelResult{NewLevel: doc.CharacterProgression.Level}
	}
	profile, _ := profileOf(doc)
	mult := doc.ExperienceMultiplier
	if mult <= 0 {
		mult = 1
	}
	final := domain.FloorInt(float64(amount) * mult * profile.CoinBonus)
	credit(doc, final, reason)
	// Experience goes straight to the experience path so coin multipliers
	// are not applied a second time.
	lr := awardExperience(doc, final/coinsPerExperience)
	return final, lr
}

// credit adds to balance and lifetime earnings with no multipliers.
func credit(doc *domain.PlayerProgress, coins int, reason string) {
	if coins <= 0 {
		return
	}
	doc.CoinBalance += coins
	doc.TotalCoinsEarned += coins
	observability.CoinsAwarded.WithLabelValues(reason).Add(float64(coins))
}

// SpendCoins debits amount iff the balance covers it. A failed spend
// changes nothing.
func (l *Ledger) SpendCoins(amount int) bool {
	ok := false
	l.update(func(doc *domain.PlayerProgress) bool {
		ok = spend(doc, amount)
		return ok && amount > 0
	})
	return ok
}

func spend(doc *domain.PlayerProgress, amount int) bool {
	if amount < 0 || doc.CoinBalance < amount {
		return false
	}
	doc.CoinBalance -= amount
	observability.CoinsSpent.Add(float64(amount))
	return true
}

// ─── Experience ─────────────────────────────────────────────────────────────

// AwardCharacterExperience applies the character experience bonus and
// grants at most one level-up.
func (l *Ledger) AwardCharacterExperience(amount int) LevelResult {
	var lr LevelResult
	l.update(func(doc *domain.PlayerProgress) bool {
		lr = awardExperience(doc, amount)
		return lr.Gained > 0
	})
	if lr.LeveledUp {
		l.log.Info("level up", "level", lr.NewLevel, "bonus_coins", lr.BonusCoins)
	}
	return lr
}

func awardExperience(doc *domain.PlayerProgress, amount int) LevelResult {
	cp := &doc.CharacterProgression
	if cp.Level < 1 {
		cp.Level = 1
	}
	lr := LevelResult{NewLevel: cp.Level}
	if amount <= 0 {
		return lr
	}
	profile, _ := profileOf(doc)
	lr.Gained = domain.FloorInt(float64(amount) * profile.ExperienceBonus)
	cp.Experience += lr.Gained
	observability.ExperienceAwarded.Add(float64(lr.Gained))

	// One level per award, never a loop.
	if threshold := domain.ExperienceForLevel(cp.Level); cp.Experience >= threshold {
		cp.Experience -= threshold
		cp.Level++
		lr.LeveledUp = true
		lr.NewLevel = cp.Level
		lr.BonusCoins = levelUpCoinsPerLevel * cp.Level
		credit(doc, lr.BonusCoins, "level_up")
		observability.LevelUps.Inc()
	}
	return lr
}

// ─── Rewards ────────────────────────────────────────────────────────────────

// RewardResult is what a reward bundle actually credited.
type RewardResult struct {
	Coins      int         `json:"coins"`
	Experience LevelResult `json:"experience"`
	PowerUpID  string      `json:"power_up_id,omitempty"`
}

// GrantReward pays a one-time bundle: coins through the coin path,
// experience through the experience path, a power-up into inventory.
func (l *Ledger) GrantReward(r domain.Reward, reason string) RewardResult {
	var rr RewardResult
	l.update(func(doc *domain.PlayerProgress) bool {
		rr = grantReward(doc, r, reason)
		return !r.IsZero()
	})
	return rr
}

func grantReward(doc *domain.PlayerProgress, r domain.Reward, reason string) RewardResult {
	var rr RewardResult
	rr.Coins, _ = awardCoins(doc, r.Coins, reason)
	rr.Experience = awardExperience(doc, r.Experience)
	if r.PowerUpID != "" {
		doc.Inventory.PowerUps[r.PowerUpID]++
		rr.PowerUpID = r.PowerUpID
	}
	return rr
}

// ─── Power-Up Inventory ─────────────────────────────────────────────────────

// GrantPowerUp adds n of id to inventory.
func (l *Ledger) GrantPowerUp(id string, n int) {
	if id == "" || n <= 0 {
		return
	}
	l.update(func(doc *domain.PlayerProgress) bool {
		doc.Inventory.PowerUps[id] += n
		return true
	})
}

// ConsumePowerUp removes one of id. False if none is owned.
func (l *Ledger) ConsumePowerUp(id string) bool {
	ok := false
	l.update(func(doc *domain.PlayerProgress) bool {
		if doc.Inventory.PowerUps[id] <= 0 {
			return false
		}
		doc.Inventory.PowerUps[id]--
		ok = true
		return true
	})
	return ok
}

// PowerUpCount returns how many of id are owned.
func (l *Ledger) PowerUpCount(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doc.Inventory.PowerUps[id]
}

// OwnedPowerUps returns a copy of the power-up counts.
func (l *Ledger) OwnedPowerUps() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.doc.Inventory.PowerUps))
	for id, n := range l.doc.Inventory.PowerUps {
		out[id] = n
	}
	return out
}

// ─── Shop & Equipment ───────────────────────────────────────────────────────

// PurchaseItem spends cost and grants id in the bucket of type t, all or
// nothing. Cosmetics and decorations are equipped immediately.
func (l *Ledger) PurchaseItem(id string, t domain.ItemType, cost int) bool {
	ok := false
	l.update(func(doc *domain.PlayerProgress) bool {
		ok = purchase(doc, id, t, cost)
		return ok
	})
	if ok {
		l.log.Debug("item purchased", "item", id, "type", t, "cost", cost)
	}
	return ok
}

func purchase(doc *domain.PlayerProgress, id string, t domain.ItemType, cost int) bool {
	if id == "" || !t.Valid() || cost < 0 {
		return false
	}
	if t != domain.ItemPowerUp && doc.Inventory.Owns(t, id) {
		return false
	}
	if !spend(doc, cost) {
		return false
	}

	inv := &doc.Inventory
	switch t {
	case domain.ItemPowerUp:
		inv.PowerUps[id]++
	case domain.ItemCosmetic:
		inv.Cosmetics[id] = true
		doc.EquippedItems[domain.SlotCosmetic] = id
	case domain.ItemTool:
		inv.Tools[id] = true
	case domain.ItemDecoration:
		inv.Decorations[id] = true
		doc.EquippedItems[domain.SlotDecoration] = id
	case domain.ItemArmor:
		inv.Armor[id] = true
	}
	return true
}

// Equip puts an owned item into its slot, replacing whatever was there.
func (l *Ledger) Equip(id string, t domain.ItemType) domain.Result {
	slot, ok := domain.SlotFor(t)
	if !ok {
		return domain.Fail(domain.ErrUnknownItemType)
	}
	res := domain.Fail(domain.ErrItemNotOwned)
	l.update(func(doc *domain.PlayerProgress) bool {
		if !doc.Inventory.Owns(t, id) {
			return false
		}
		doc.EquippedItems[slot] = id
		res = domain.OK("equipped " + id)
		return true
	})
	return res
}

// Unequip clears slot. False if it was already empty.
func (l *Ledger) Unequip(slot domain.ItemSlot) bool {
	ok := false
	l.update(func(doc *domain.PlayerProgress) bool {
		if _, ok = doc.EquippedItems[slot]; !ok {
			return false
		}
		delete(doc.EquippedItems, slot)
		return true
	})
	return ok
}
