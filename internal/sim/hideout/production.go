package hideout

import (
	"driftbase.gg/internal/protocol"
	"driftbase.gg/internal/sim/catalogs"
	"driftbase.gg/internal/sim/item"
	"driftbase.gg/internal/sim/profile"
)

// kindForRecipe maps a recipe's area affinity onto a production kind tag.
func kindForRecipe(recipe catalogs.RecipeDef) string {
	switch {
	case recipe.AreaType == catalogs.AreaScavCase:
		return profile.KindScavCase
	case recipe.AreaType == catalogs.AreaWaterCollector:
		return profile.KindWaterCollector
	case recipe.AreaType == catalogs.AreaBitcoinFarm && recipe.Continuous:
		return profile.KindContinuousCurrency
	case recipe.AreaType == catalogs.AreaCircleOfCultists:
		return profile.KindCultistCircle
	default:
		return profile.KindStandard
	}
}

// StartProduction validates the recipe, computes the skill-adjusted craft
// duration, snapshots any consumed tools for later return and writes a fresh
// Production into the profile keyed by recipe id. A stale prior entry for
// the same recipe is overwritten.
func (e *Engine) StartProduction(p *profile.Profile, recipeID string, tools []protocol.ToolUse) error {
	recipe, ok := e.cats.Recipes.ByID[recipeID]
	if !ok {
		e.log.Printf("start production: recipe %s missing from catalog", recipeID)
		return protocol.Errorf(protocol.ErrRecipeNotFound, "recipe %s not in catalog", recipeID)
	}

	adjusted, err := e.AdjustedCraftTime(p, recipeID, recipe.NeedFuelForAllProductionTime)
	if err != nil {
		return err
	}

	production := &profile.Production{
		Kind:                         kindForRecipe(recipe),
		RecipeID:                     recipeID,
		Progress:                     0,
		ProductionTime:               adjusted,
		StartTimestamp:               e.Now(),
		InProgress:                   true,
		NeedFuelForAllProductionTime: recipe.NeedFuelForAllProductionTime,
	}

	// Snapshot tools so we can hand back exactly as many as were taken.
	// Every tool id must resolve before any is removed; one missing tool
	// aborts the request with the inventory untouched.
	for _, tool := range tools {
		src := p.Inventory.FindItem(tool.ItemID)
		if src == nil {
			return protocol.Errorf(protocol.ErrItemNotFound, "tool %s not in inventory", tool.ItemID)
		}
		snap := *src
		if src.Upd != nil {
			upd := *src.Upd
			snap.Upd = &upd
		}
		snap.ID = item.NewID()
		snap.ParentID = ""
		snap.SlotID = ""
		count := tool.Count
		if count <= 0 {
			count = 1
		}
		snap.EnsureUpd().StackObjectsCount = count
		production.RequiredTools = append(production.RequiredTools, snap)
	}
	for _, tool := range tools {
		p.Inventory.RemoveItem(tool.ItemID)
	}

	if p.Hideout.Productions == nil {
		p.Hideout.Productions = map[string]*profile.Production{}
	}
	p.Hideout.Productions[recipeID] = production

	e.audit(protocol.Event{
		"type":      "PRODUCTION_START",
		"profile":   p.ID,
		"recipe_id": recipeID,
		"duration":  adjusted,
	})
	return nil
}

// registerWaterCollectorCraft starts the purified-water craft when the
// profile somehow lacks one; the client does not reliably send the
// continuous start request.
func (e *Engine) registerWaterCollectorCraft(p *profile.Profile) {
	if e.waterRecipeID == "" {
		return
	}
	if err := e.StartProduction(p, e.waterRecipeID, nil); err != nil {
		e.log.Printf("water collector craft registration failed: %v", err)
	}
}

// TakeProduction collects the output of a completed or continuous craft and
// delivers it to the stash. For the coin farm all accumulated coins are
// collected at once; partial collection is not possible.
func (e *Engine) TakeProduction(p *profile.Profile, recipeID string) error {
	production := p.Hideout.Productions[recipeID]
	if production == nil {
		return protocol.Errorf(protocol.ErrCraftNotFound, "no craft for recipe %s", recipeID)
	}

	if production.Kind == profile.KindContinuousCurrency {
		return e.collectCoins(p, production)
	}

	done := production.AvailableForFinish ||
		(production.ProductionTime > 0 && production.Progress >= production.ProductionTime)
	if !done {
		return protocol.Errorf(protocol.ErrNothingToTake, "craft %s not finished", recipeID)
	}

	recipe, ok := e.cats.Recipes.ByID[recipeID]
	if !ok {
		return protocol.Errorf(protocol.ErrRecipeNotFound, "recipe %s not in catalog", recipeID)
	}

	count := recipe.Count
	if count <= 0 {
		count = 1
	}
	trees := [][]item.Item{{
		{
			ID:  item.NewID(),
			Tpl: recipe.EndProduct,
			Upd: &item.Upd{StackObjectsCount: count, SpawnedInSession: true},
		},
	}}
	// Hand tools back alongside the product; tools keep their FiR state.
	for _, tool := range production.RequiredTools {
		t := tool
		t.ID = item.NewID()
		trees = append(trees, []item.Item{t})
	}

	if err := p.Inventory.AddItemTreesToStash(trees); err != nil {
		return err
	}

	delete(p.Hideout.Productions, recipeID)

	e.audit(protocol.Event{
		"type":      "PRODUCTION_TAKE",
		"profile":   p.ID,
		"recipe_id": recipeID,
		"count":     count,
	})
	return nil
}

// collectCoins moves every farmed coin into the stash. When collection
// happens at full capacity the start timestamp resets so the next coin does
// not inherit idle-at-capacity time.
func (e *Engine) collectCoins(p *profile.Profile, production *profile.Production) error {
	if len(production.Products) == 0 {
		return protocol.Errorf(protocol.ErrNothingToTake, "no coins to collect")
	}

	trees := make([][]item.Item, 0, len(production.Products))
	for _, coin := range production.Products {
		c := coin
		c.ID = item.NewID()
		c.EnsureUpd().SpawnedInSession = true
		trees = append(trees, []item.Item{c})
	}
	if err := p.Inventory.AddItemTreesToStash(trees); err != nil {
		return err
	}

	if len(production.Products) >= e.coinSlotCount(p) {
		production.StartTimestamp = e.Now()
	}
	collected := len(production.Products)
	production.Products = nil

	e.audit(protocol.Event{
		"type":      "PRODUCTION_COLLECT",
		"profile":   p.ID,
		"recipe_id": production.RecipeID,
		"count":     collected,
	})
	return nil
}

// CancelProduction drops a craft. The profile keeps a nil entry until the
// next simulation pass garbage-collects it, matching how cancelled crafts
// arrive from the client.
func (e *Engine) CancelProduction(p *profile.Profile, recipeID string) error {
	if _, ok := p.Hideout.Productions[recipeID]; !ok {
		return protocol.Errorf(protocol.ErrCraftNotFound, "no craft for recipe %s", recipeID)
	}
	p.Hideout.Productions[recipeID] = nil
	return nil
}
