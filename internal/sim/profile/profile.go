// Package profile models the per-player persistent state the engines
// operate on: productions, hideout areas, skills, bonuses and the inventory
// item tree.
package profile

import (
	"driftbase.gg/internal/sim/item"
	"driftbase.gg/internal/sim/skills"
)

// Bonus types.
const (
	BonusStashRows               = "StashRows"
	BonusFuelConsumption         = "FuelConsumption"
	BonusEnergyRegeneration      = "EnergyRegeneration"
	BonusSkillGroupLevelingBoost = "SkillGroupLevelingBoost"
	BonusTextBonus               = "TextBonus"
)

type Profile struct {
	ID      string `json:"id"`
	Edition string `json:"edition"`

	Info      Info                      `json:"info"`
	Skills    map[string]*skills.Skill  `json:"skills"`
	Hideout   Hideout                   `json:"hideout"`
	Inventory Inventory                 `json:"inventory"`
	Bonuses   []Bonus                   `json:"bonuses"`

	UnlockedRecipes []string         `json:"unlocked_recipes,omitempty"`
	Achievements    map[string]int64 `json:"achievements,omitempty"`

	// Loyalty standing per trader id.
	TraderStandings map[string]float64 `json:"trader_standings,omitempty"`

	// Unlocked clothing/appearance template ids.
	Customizations []string `json:"customizations,omitempty"`

	// Pocket container template; replaced by certain rewards.
	PocketsTpl string `json:"pockets_tpl,omitempty"`

	// Purchase counters per trader, keyed by assort item id. Reset when the
	// trader's assortment refreshes.
	TraderPurchases map[string]map[string]*PurchaseRecord `json:"trader_purchases,omitempty"`
}

type Info struct {
	Experience int `json:"experience"`
	Level      int `json:"level"`
}

type Hideout struct {
	// Keyed by recipe id. A nil value is a cancelled craft awaiting cleanup;
	// the production engine garbage-collects it on the next pass.
	Productions map[string]*Production `json:"productions"`
	Areas       []*Area                `json:"areas"`

	// Wall-clock seconds of the last simulation pass. Zero means never run.
	LastRunTimestamp int64 `json:"last_run_timestamp,omitempty"`
}

// Production kinds. The production engine dispatches on this tag instead of
// re-deriving the category from area types at every tick.
const (
	KindStandard           = "STANDARD"
	KindScavCase           = "SCAV_CASE"
	KindWaterCollector     = "WATER_COLLECTOR"
	KindContinuousCurrency = "CONTINUOUS_CURRENCY"
	KindCultistCircle      = "CULTIST_CIRCLE"
)

// Production is a single in-progress or completed craft instance.
type Production struct {
	Kind           string  `json:"kind"`
	RecipeID       string  `json:"recipe_id"`
	Progress       float64 `json:"progress"`
	ProductionTime float64 `json:"production_time"`
	StartTimestamp int64   `json:"start_timestamp"`

	InProgress         bool `json:"in_progress"`
	AvailableForFinish bool `json:"available_for_finish"`

	// Outputs accumulated so far (continuous crafts).
	Products []item.Item `json:"products,omitempty"`

	// Craft freezes entirely while the generator is unpowered.
	NeedFuelForAllProductionTime bool `json:"need_fuel_for_all_production_time,omitempty"`

	// Tools consumed at start, returned to the stash on completion.
	RequiredTools []item.Item `json:"required_tools,omitempty"`
}

type Area struct {
	Type   int  `json:"type"`
	Level  int  `json:"level"`
	Active bool `json:"active"`
	// Resource-bearing slots, drained in order.
	Slots []Slot `json:"slots"`
}

type Slot struct {
	Item *item.Item `json:"item,omitempty"`
}

type Bonus struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Value      float64 `json:"value"`
	TemplateID string  `json:"template_id,omitempty"`
	IsPassive  bool    `json:"is_passive,omitempty"`
	IsVisible  bool    `json:"is_visible,omitempty"`
	IsProduction bool  `json:"is_production,omitempty"`
}

type PurchaseRecord struct {
	Count int `json:"count"`
}

// Area returns the first hideout area of the given type, or nil.
func (p *Profile) Area(areaType int) *Area {
	for _, a := range p.Hideout.Areas {
		if a != nil && a.Type == areaType {
			return a
		}
	}
	return nil
}

// Skill returns the progress record for a skill id, or nil when the profile
// has no such record.
func (p *Profile) Skill(id string) *skills.Skill {
	if p.Skills == nil {
		return nil
	}
	return p.Skills[id]
}

// AddSkillPoints credits points to a skill. Negative awards and missing
// skill records are rejected; progress is capped at level 51.
func (p *Profile) AddSkillPoints(skillID string, points float64, now int64) bool {
	return skills.Add(p.Skill(skillID), points, now)
}

// BonusValueSum totals the values of all bonuses of the given type.
func (p *Profile) BonusValueSum(bonusType string) float64 {
	var sum float64
	for _, b := range p.Bonuses {
		if b.Type == bonusType {
			sum += b.Value
		}
	}
	return sum
}

// PurchaseCount reports how many units of an assort item were bought from a
// trader this refresh cycle.
func (p *Profile) PurchaseCount(traderID, assortID string) int {
	rec := p.TraderPurchases[traderID][assortID]
	if rec == nil {
		return 0
	}
	return rec.Count
}

// RecordPurchase increments the per-cycle purchase counter.
func (p *Profile) RecordPurchase(traderID, assortID string, count int) {
	if p.TraderPurchases == nil {
		p.TraderPurchases = map[string]map[string]*PurchaseRecord{}
	}
	byAssort := p.TraderPurchases[traderID]
	if byAssort == nil {
		byAssort = map[string]*PurchaseRecord{}
		p.TraderPurchases[traderID] = byAssort
	}
	rec := byAssort[assortID]
	if rec == nil {
		rec = &PurchaseRecord{}
		byAssort[assortID] = rec
	}
	rec.Count += count
}

// ResetPurchases clears all purchase counters for a trader. Invoked by the
// trade engine when the trader's assortment refreshes.
func (p *Profile) ResetPurchases(traderID string) {
	delete(p.TraderPurchases, traderID)
}

// CalculateLevel recomputes the profile level from an experience table where
// expTable[i] is the total XP required for level i+1.
func (p *Profile) CalculateLevel(expTable []int) int {
	var accumulated int
	level := 1
	for i, step := range expTable {
		accumulated += step
		if p.Info.Experience < accumulated {
			break
		}
		level = i + 2
	}
	p.Info.Level = level
	return level
}
