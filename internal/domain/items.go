package domain

// ─── Shop Items ─────────────────────────────────────────────────────────────

// ItemType selects the inventory bucket a purchase lands in.
type ItemType string

const (
	ItemPowerUp    ItemType = "powerUp"
	ItemCosmetic   ItemType = "cosmetic"
	ItemTool       ItemType = "tool"
	ItemDecoration ItemType = "decoration"
	ItemArmor      ItemType = "armor"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case ItemPowerUp, ItemCosmetic, ItemTool, ItemDecoration, ItemArmor:
		return true
	}
	return false
}

// ItemSlot is an equipment slot. At most one id is equipped per slot.
type ItemSlot string

const (
	SlotCosmetic   ItemSlot = "cosmetic"
	SlotTool       ItemSlot = "tool"
	SlotDecoration ItemSlot = "decoration"
	SlotArmor      ItemSlot = "armor"
)

// SlotFor maps an equippable item type to its slot.
func SlotFor(t ItemType) (ItemSlot, bool) {
	switch t {
	case ItemCosmetic:
		return SlotCosmetic, true
	case ItemTool:
		return SlotTool, true
	case ItemDecoration:
		return SlotDecoration, true
	case ItemArmor:
		return SlotArmor, true
	}
	return "", false
}

// ItemEffects are the passive bonuses of an equipped item.
type ItemEffects struct {
	CoinBonus       float64     `json:"coin_bonus"`       // additive fraction, 0.05 = +5%
	ExperienceBonus float64     `json:"experience_bonus"` // additive fraction
	HintBonus       int         `json:"hint_bonus"`
	Stats           CombatStats `json:"stats"`
}

// Add returns the sum of two effect sets.
func (e ItemEffects) Add(o ItemEffects) ItemEffects {
	return ItemEffects{
		CoinBonus:       e.CoinBonus + o.CoinBonus,
		ExperienceBonus: e.ExperienceBonus + o.ExperienceBonus,
		HintBonus:       e.HintBonus + o.HintBonus,
		Stats:           e.Stats.Add(o.Stats),
	}
}

// ShopItem is a static catalog entry. Callers pass the cost at purchase time.
type ShopItem struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Type    ItemType    `json:"type"`
	Cost    int         `json:"cost"`
	Effects ItemEffects `json:"effects"`
}

var shopCatalog = []ShopItem{
	{ID: "wizard_hat", Name: "Wizard Hat", Type: ItemCosmetic, Cost: 120,
		Effects: ItemEffects{ExperienceBonus: 0.05, Stats: CombatStats{Wisdom: 3}}},
	{ID: "explorer_cap", Name: "Explorer Cap", Type: ItemCosmetic, Cost: 100,
		Effects: ItemEffects{CoinBonus: 0.05, Stats: CombatStats{Speed: 2}}},
	{ID: "calculator", Name: "Pocket Calculator", Type: ItemTool, Cost: 150,
		Effects: ItemEffects{HintBonus: 1, Stats: CombatStats{Wisdom: 2}}},
	{ID: "magnifier", Name: "Magnifying Glass", Type: ItemTool, Cost: 90,
		Effects: ItemEffects{HintBonus: 1}},
	{ID: "globe", Name: "Desk Globe", Type: ItemDecoration, Cost: 80,
		Effects: ItemEffects{CoinBonus: 0.02}},
	{ID: "bookshelf", Name: "Bookshelf", Type: ItemDecoration, Cost: 110,
		Effects: ItemEffects{ExperienceBonus: 0.03}},
	{ID: "study_robe", Name: "Study Robe", Type: ItemArmor, Cost: 200,
		Effects: ItemEffects{Stats: CombatStats{Health: 20, Defense: 5}}},
	{ID: "gear_vest", Name: "Gear Vest", Type: ItemArmor, Cost: 220,
		Effects: ItemEffects{Stats: CombatStats{Health: 10, Defense: 8, Attack: 2}}},
}

// ShopCatalog returns a copy of every purchasable non-power-up item.
func ShopCatalog() []ShopItem {
	out := make([]ShopItem, len(shopCatalog))
	copy(out, shopCatalog)
	return out
}

// FindShopItem looks up a catalog item by id.
func FindShopItem(id string) (ShopItem, bool) {
	for _, it := range shopCatalog {
		if it.ID == id {
			return it, true
		}
	}
	return ShopItem{}, false
}

// Owns reports whether id is unlocked in the bucket of item type t.
// Power-ups count as owned while at least one is held.
func (inv Inventory) Owns(t ItemType, id string) bool {
	switch t {
	case ItemPowerUp:
		return inv.PowerUps[id] > 0
	case ItemCosmetic:
		return inv.Cosmetics[id]
	case ItemTool:
		return inv.Tools[id]
	case ItemDecoration:
		return inv.Decorations[id]
	case ItemArmor:
		return inv.Armor[id]
	}
	return false
}

// SlotItemType maps a slot back to the item type stored in it.
func SlotItemType(s ItemSlot) ItemType {
	switch s {
	case SlotCosmetic:
		return ItemCosmetic
	case SlotTool:
		return ItemTool
	case SlotDecoration:
		return ItemDecoration
	case SlotArmor:
		return ItemArmor
	}
	return ""
}
