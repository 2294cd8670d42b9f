package hideout

import (
	"driftbase.gg/internal/sim/catalogs"
	"driftbase.gg/internal/sim/item"
	"driftbase.gg/internal/sim/profile"
	"driftbase.gg/internal/sim/skills"
)

// updateAreasWithResources drains the resource-bearing areas for the time
// since the last pass. Crafts in the same pass still see the pre-drain
// generator state; a generator that ran dry only unpowers them next pass.
func (e *Engine) updateAreasWithResources(p *profile.Profile, props *hideoutProperties) {
	for _, area := range p.Hideout.Areas {
		switch area.Type {
		case catalogs.AreaGenerator:
			if area.Active {
				e.updateFuel(p, area)
			}
		case catalogs.AreaWaterCollector:
			e.updateWaterCollector(p, area, *props)
		case catalogs.AreaAirFilteringUnit:
			e.updateAirFilters(p, area, *props)
		}
	}

	// A drained filter changes what the water collector timer may accrue.
	props.waterCollectorHasFilter = waterCollectorHasFilter(p.Area(catalogs.AreaWaterCollector))
}

// updateFuel burns generator fuel. The fuel-consumption bonus (stored as a
// negative percentage on the profile) and the hideout-management skill both
// reduce the burn; together they can reach but never cross zero. When the
// last canister empties the generator switches itself off.
func (e *Engine) updateFuel(p *profile.Profile, area *profile.Area) {
	elapsed := float64(e.Now() - p.Hideout.LastRunTimestamp)

	fuelBonusRate := -p.BonusValueSum(profile.BonusFuelConsumption) / 100
	mult := 1 - (fuelBonusRate + e.hideoutManagementConsumptionBonus(p))
	if mult < 0 {
		mult = 0
	}

	drain := round4(e.tune.Hideout.GeneratorFuelFlowRate * elapsed * mult)
	if !e.drainSlots(p, area, drain, round4) {
		// Stays powered for the rest of this pass; the fuel did burn through
		// the elapsed window being credited. Next pass sees it off.
		area.Active = false
	}
}

// updateWaterCollector keeps the purified-water craft registered, re-derives
// its duration from current skill levels and drains the installed filter.
// Filter wear never exceeds what the remaining craft time can use.
func (e *Engine) updateWaterCollector(p *profile.Profile, area *profile.Area, props hideoutProperties) {
	production := p.Hideout.Productions[e.waterRecipeID]
	if production == nil {
		e.registerWaterCollectorCraft(p)
		production = p.Hideout.Productions[e.waterRecipeID]
	}
	if production == nil || area.Level != 3 {
		return
	}

	if adjusted, err := e.AdjustedCraftTime(p, e.waterRecipeID, false); err == nil {
		production.ProductionTime = adjusted
	}
	if production.Progress >= production.ProductionTime {
		return
	}

	elapsed := e.timeElapsedForRecipe(p, props.generatorOn, e.waterRecipeID)
	if remaining := production.ProductionTime - production.Progress; elapsed > remaining {
		elapsed = remaining
	}

	mult := 1 - e.hideoutManagementConsumptionBonus(p)
	if mult < 0 {
		mult = 0
	}

	drain := round3(e.tune.Hideout.WaterFilterFlowRate * elapsed * mult)
	e.drainSlots(p, area, drain, round3)
}

// updateAirFilters wears the installed air filters down. Only runs while the
// unit is switched on and powered.
func (e *Engine) updateAirFilters(p *profile.Profile, area *profile.Area, props hideoutProperties) {
	if !props.generatorOn || !area.Active {
		return
	}

	elapsed := float64(e.Now() - p.Hideout.LastRunTimestamp)

	mult := 1 - e.hideoutManagementConsumptionBonus(p)
	if mult < 0 {
		mult = 0
	}

	drain := round4(e.tune.Hideout.AirFilterFlowRate * elapsed * mult)
	e.drainSlots(p, area, drain, round4)
}

// drainSlots subtracts drain from the area's resource slots in order. A slot
// that empties is cleared and its overflow carries into the next one. Every
// ten units consumed award one hideout-management point; the remainder rides
// along on the item. Returns false once no resource is left in the area.
func (e *Engine) drainSlots(p *profile.Profile, area *profile.Area, drain float64, round func(float64) float64) bool {
	remaining := drain

	for i := range area.Slots {
		slot := &area.Slots[i]
		if slot.Item == nil {
			continue
		}
		if remaining <= 0 {
			break
		}

		res := e.resourceState(slot.Item)
		value := *res.Value
		consumed := res.UnitsConsumed

		if value > remaining {
			newValue := round(value - remaining)
			consumed += remaining
			remaining = 0
			res.Value = &newValue
		} else {
			remaining = round(remaining - value)
			consumed += value
			slot.Item = nil
		}

		for consumed >= 10 {
			e.awardSkill(p, skills.HideoutManagement, 1)
			consumed -= 10
		}
		if slot.Item != nil {
			res.UnitsConsumed = round(consumed)
		}
	}

	for _, slot := range area.Slots {
		if slot.Item != nil {
			return true
		}
	}
	return false
}

// resourceState returns the item's resource record, initializing a fresh
// container to its catalog capacity.
func (e *Engine) resourceState(it *item.Item) *item.Resource {
	upd := it.EnsureUpd()
	if upd.Resource == nil {
		upd.Resource = &item.Resource{}
	}
	if upd.Resource.Value == nil {
		capacity := 100.0
		if def, ok := e.cats.Items.Defs[it.Tpl]; ok && def.MaxResource > 0 {
			capacity = def.MaxResource
		}
		upd.Resource.Value = &capacity
	}
	return upd.Resource
}
