package hideout

import (
	"math"

	"driftbase.gg/internal/sim/item"
	"driftbase.gg/internal/sim/profile"
	"driftbase.gg/internal/sim/skills"
)

// UpdatePlayerHideout runs one simulation pass over a profile: drains
// resource-bearing areas, then advances every production timer, then stamps
// the pass time. Callers must serialize passes with any concurrent
// trade/inventory mutation of the same profile.
func (e *Engine) UpdatePlayerHideout(p *profile.Profile) {
	props := e.properties(p)

	if p.Hideout.LastRunTimestamp == 0 {
		p.Hideout.LastRunTimestamp = e.Now()
	}

	e.updateAreasWithResources(p, &props)
	e.updateProductionTimers(p, props)
	p.Hideout.LastRunTimestamp = e.Now()
}

// updateProductionTimers advances each craft by kind. A malformed (nil)
// entry is collected during iteration and deleted afterwards rather than
// processed; one bad craft never aborts the pass.
func (e *Engine) updateProductionTimers(p *profile.Profile, props hideoutProperties) {
	var malformed []string

	for recipeID, production := range p.Hideout.Productions {
		if production == nil {
			malformed = append(malformed, recipeID)
			continue
		}

		switch production.Kind {
		case profile.KindScavCase:
			// Re-derive elapsed from the wall clock each pass; self-corrects
			// for missed ticks.
			production.Progress += float64(e.Now()-production.StartTimestamp) - production.Progress

		case profile.KindWaterCollector:
			if props.waterCollectorHasFilter {
				production.Progress += e.timeElapsedForRecipe(p, props.generatorOn, recipeID)
			}

		case profile.KindContinuousCurrency:
			e.updateCoinFarm(p, production, props)

		case profile.KindCultistCircle:
			e.updateCultistCircleCraft(p, production)

		default:
			e.updateStandardCraft(p, production, recipeID, props)
		}
	}

	for _, recipeID := range malformed {
		delete(p.Hideout.Productions, recipeID)
	}
}

func (e *Engine) timeElapsedForRecipe(p *profile.Profile, generatorOn bool, recipeID string) float64 {
	recipe, ok := e.cats.Recipes.ByID[recipeID]
	if !ok {
		return e.timeElapsed(p, generatorOn, nil)
	}
	return e.timeElapsed(p, generatorOn, &recipe)
}

func (e *Engine) updateStandardCraft(p *profile.Profile, production *profile.Production, recipeID string, props hideoutProperties) {
	recipe, ok := e.cats.Recipes.ByID[recipeID]
	if !ok {
		e.log.Printf("advance productions: recipe %s missing from catalog, craft skipped", recipeID)
		return
	}

	// Already complete, nothing to recompute.
	if production.Progress == production.ProductionTime {
		return
	}

	elapsed := e.timeElapsed(p, props.generatorOn, &recipe)

	// Power-hungry crafts freeze entirely without the generator; everything
	// else advances on the (possibly slowed) elapsed time.
	if production.NeedFuelForAllProductionTime {
		if props.generatorOn {
			production.Progress += elapsed
		}
	} else {
		production.Progress += elapsed
	}

	// Hard cap at the craft duration; continuous recipes are clamped by
	// their own branch, never here.
	if !recipe.Continuous {
		production.Progress = math.Min(production.Progress, production.ProductionTime)
	}
}

func (e *Engine) updateCultistCircleCraft(p *profile.Profile, production *profile.Production) {
	// Terminal already; not restarted here.
	if production.AvailableForFinish && !production.InProgress {
		return
	}

	// Flat wall-clock progress: no skill, power or area adjustments.
	elapsed := float64(e.Now() - p.Hideout.LastRunTimestamp)
	if production.Progress < production.ProductionTime {
		production.Progress += elapsed
	}
	if production.Progress >= production.ProductionTime {
		// The client expects progress 0 and inProgress false once done.
		production.AvailableForFinish = true
		production.InProgress = false
		production.Progress = 0
	}
}

// updateCoinFarm advances the continuous currency craft. Rate scales with
// installed GPUs; the accrual target stays the base production time.
func (e *Engine) updateCoinFarm(p *profile.Profile, production *profile.Production, props hideoutProperties) {
	// Needs power to function at all.
	if !props.generatorOn {
		return
	}

	recipe, ok := e.cats.Recipes.ByID[production.RecipeID]
	if !ok {
		e.log.Printf("coin farm: recipe %s missing from catalog", production.RecipeID)
		return
	}

	coinSlots := e.coinSlotCount(p)

	// Output storage full: halt accrual until collected.
	if len(production.Products) >= coinSlots {
		production.Progress = 0
		return
	}

	// A farm with no GPUs installed runs below the single-GPU base rate.
	adjustedCraftTime := recipe.ProductionTime /
		(1 + float64(props.btcFarmGPUs-1)*e.tune.Hideout.GpuBoostRate)
	timeMultiplier := recipe.ProductionTime / adjustedCraftTime

	elapsed := float64(e.Now() - p.Hideout.LastRunTimestamp)
	production.Progress += math.Floor(elapsed * timeMultiplier)

	for production.Progress >= recipe.ProductionTime {
		if len(production.Products) < coinSlots {
			production.Products = append(production.Products, item.Item{
				ID:  item.NewID(),
				Tpl: recipe.EndProduct,
				Upd: &item.Upd{StackObjectsCount: 1},
			})
			// Carry the remainder into the next unit.
			production.Progress -= recipe.ProductionTime
		} else {
			production.Progress = 0
		}
	}

	production.StartTimestamp = e.Now()
}

// coinSlotCount is the farm's output capacity: the recipe limit plus the
// elite hideout-management bonus slots.
func (e *Engine) coinSlotCount(p *profile.Profile) int {
	slots := 3
	if recipe, ok := e.cats.Recipes.ByID[e.btcRecipeID]; ok && recipe.ProductionLimitCount > 0 {
		slots = recipe.ProductionLimitCount
	}
	if skills.IsElite(p.Skill(skills.HideoutManagement)) {
		slots += e.tune.Skills.EliteBitcoinFarmExtraSlots
	}
	return slots
}
