// Package hideout is the production/resource simulation engine. It advances
// in-progress crafts from elapsed wall-clock time, drains fuel and filter
// resources, and awards skill points as a side effect. The engine never
// ticks while a player is away; every pass reconstructs what should have
// happened from the profile's last-run timestamp.
package hideout

import (
	"log"
	"math"
	"time"

	"driftbase.gg/internal/protocol"
	"driftbase.gg/internal/sim/catalogs"
	"driftbase.gg/internal/sim/profile"
	"driftbase.gg/internal/sim/skills"
	"driftbase.gg/internal/sim/tuning"
)

type Engine struct {
	cats *catalogs.Catalogs
	tune tuning.Tuning
	log  *log.Logger

	// Wall-clock source, seconds. Swappable under test.
	Now func() int64

	// Optional structured audit sink.
	Audit func(protocol.Event)

	// Continuous singleton recipes, resolved from the catalog at startup.
	btcRecipeID   string
	waterRecipeID string
}

func NewEngine(cats *catalogs.Catalogs, tune tuning.Tuning, logger *log.Logger) *Engine {
	e := &Engine{
		cats: cats,
		tune: tune,
		log:  logger,
		Now:  func() int64 { return time.Now().Unix() },
	}
	for id, r := range cats.Recipes.ByID {
		switch {
		case r.AreaType == catalogs.AreaBitcoinFarm && r.Continuous:
			e.btcRecipeID = id
		case r.AreaType == catalogs.AreaWaterCollector:
			e.waterRecipeID = id
		}
	}
	return e
}

func (e *Engine) audit(ev protocol.Event) {
	if e.Audit != nil {
		e.Audit(ev)
	}
}

// awardSkill credits skill points through the profile, applying the
// configured per-skill gain multiplier first.
func (e *Engine) awardSkill(p *profile.Profile, skillID string, points float64) {
	if mult, ok := e.tune.Skills.GainMultipliers[skillID]; ok {
		points *= mult
	}
	if !p.AddSkillPoints(skillID, points, e.Now()) {
		e.log.Printf("skill award skipped: profile %s has no %s record", p.ID, skillID)
	}
}

// AdjustedCraftTime returns a recipe's production time with skill bonuses
// subtracted. The crafting skill applies to everything except the coin farm
// recipe; the hideout-management skill applies only when asked for
// (power-sensitive crafts). Never shorter than the configured floor.
func (e *Engine) AdjustedCraftTime(p *profile.Profile, recipeID string, applyHideoutManagementBonus bool) (float64, error) {
	recipe, ok := e.cats.Recipes.ByID[recipeID]
	if !ok {
		return 0, protocol.Errorf(protocol.ErrRecipeNotFound, "recipe %s not in catalog", recipeID)
	}

	var reduction float64
	if recipeID != e.btcRecipeID {
		reduction += skills.TimeReduction(
			skillProgress(p, skills.Crafting),
			recipe.ProductionTime,
			e.tune.Skills.CraftingTimeReductionPerLevel,
		)
	}
	if applyHideoutManagementBonus {
		reduction += skills.TimeReduction(
			skillProgress(p, skills.HideoutManagement),
			recipe.ProductionTime,
			e.tune.Skills.HideoutManagementConsumptionPerLevel,
		)
	}

	adjusted := recipe.ProductionTime - reduction
	if adjusted < e.tune.Hideout.MinCraftSeconds {
		adjusted = e.tune.Hideout.MinCraftSeconds
	}
	return adjusted, nil
}

func skillProgress(p *profile.Profile, skillID string) float64 {
	if s := p.Skill(skillID); s != nil {
		return s.Progress
	}
	return 0
}

// hideoutManagementConsumptionBonus is the consumption reduction multiplier
// granted by the hideout-management skill level.
func (e *Engine) hideoutManagementConsumptionBonus(p *profile.Profile) float64 {
	return skills.BonusMultiplier(
		skillProgress(p, skills.HideoutManagement),
		e.tune.Skills.HideoutManagementConsumptionPerLevel,
	)
}

// timeElapsed returns the seconds since the profile's last simulation pass.
// When the craft's area needs fuel and the generator is off, elapsed time is
// scaled down by the unpowered-speed multiplier. Areas that do not need fuel
// run at full speed either way.
func (e *Engine) timeElapsed(p *profile.Profile, generatorOn bool, recipe *catalogs.RecipeDef) float64 {
	elapsed := float64(e.Now() - p.Hideout.LastRunTimestamp)

	if recipe != nil {
		area, ok := e.cats.Areas.ByType[recipe.AreaType]
		if ok && !area.NeedsFuel {
			return elapsed
		}
	}
	if !generatorOn {
		elapsed *= e.tune.Hideout.GeneratorSpeedWithoutFuel
	}
	return elapsed
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

// hideoutProperties is a transient per-pass snapshot so the per-area update
// calls don't re-derive these from profile state.
type hideoutProperties struct {
	generatorOn             bool
	waterCollectorHasFilter bool
	btcFarmGPUs             int
}

func (e *Engine) properties(p *profile.Profile) hideoutProperties {
	var props hideoutProperties

	if gen := p.Area(catalogs.AreaGenerator); gen != nil {
		props.generatorOn = gen.Active
	}
	if farm := p.Area(catalogs.AreaBitcoinFarm); farm != nil {
		for _, slot := range farm.Slots {
			if slot.Item != nil {
				props.btcFarmGPUs++
			}
		}
	}
	props.waterCollectorHasFilter = waterCollectorHasFilter(p.Area(catalogs.AreaWaterCollector))
	return props
}

// Filters can only be installed from area level 3.
func waterCollectorHasFilter(area *profile.Area) bool {
	if area == nil || area.Level != 3 {
		return false
	}
	for _, slot := range area.Slots {
		if slot.Item != nil {
			return true
		}
	}
	return false
}

// ToggleArea flips an area's active flag (e.g. switching the generator on).
func (e *Engine) ToggleArea(p *profile.Profile, areaType int, enabled bool) error {
	area := p.Area(areaType)
	if area == nil {
		return protocol.Errorf(protocol.ErrBadRequest, "profile has no area %d", areaType)
	}
	area.Active = enabled
	return nil
}
