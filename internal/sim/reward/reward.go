// Package reward applies quest/achievement reward bundles to a profile:
// experience, skill points, trader standing, item grants, recipe unlocks and
// cosmetic/stash upgrades.
package reward

import (
	"log"

	"driftbase.gg/internal/protocol"
	"driftbase.gg/internal/sim/catalogs"
	"driftbase.gg/internal/sim/item"
	"driftbase.gg/internal/sim/profile"
	"driftbase.gg/internal/sim/skills"
	"driftbase.gg/internal/sim/tuning"
)

// Reward kinds.
const (
	KindExperience       = "Experience"
	KindSkill            = "Skill"
	KindTraderStanding   = "TraderStanding"
	KindItem             = "Item"
	KindProductionScheme = "ProductionScheme"
	KindStashRows        = "StashRows"
	KindAchievement      = "Achievement"
	KindCustomization    = "Customization"
	KindPockets          = "Pockets"
)

// Reward is one entry of a reward bundle.
type Reward struct {
	Kind   string  `json:"kind"`
	Target string  `json:"target,omitempty"`
	Value  float64 `json:"value,omitempty"`

	// Item grants: trees, root first.
	Items []item.Item `json:"items,omitempty"`
	// FoundInRaid marks granted items as found-in-raid where the template
	// class allows it.
	FoundInRaid bool `json:"found_in_raid,omitempty"`

	// Editions this reward is limited to. Empty means all.
	Editions []string `json:"editions,omitempty"`
}

// Outcome reports what ApplyRewards changed, for echoing to the client.
type Outcome struct {
	RecipesUnlocked []string
	LevelledUp      bool
}

type Engine struct {
	cats *catalogs.Catalogs
	tune tuning.Tuning
	log  *log.Logger

	// Total XP steps per level, for recomputing profile level after
	// experience rewards.
	ExpTable []int

	// Optional structured audit sink.
	Audit func(protocol.Event)
}

func NewEngine(cats *catalogs.Catalogs, tune tuning.Tuning, logger *log.Logger) *Engine {
	return &Engine{cats: cats, tune: tune, log: logger}
}

func (e *Engine) audit(ev protocol.Event) {
	if e.Audit != nil {
		e.Audit(ev)
	}
}

// ApplyRewards applies a bundle in order. Rewards gated to other game
// editions are skipped silently; an unknown kind is logged and skipped so
// one bad entry never voids the rest of the bundle.
func (e *Engine) ApplyRewards(p *profile.Profile, rewards []Reward, now int64) (*Outcome, error) {
	out := &Outcome{}

	for _, r := range rewards {
		if !editionMatches(r.Editions, p.Edition) {
			continue
		}

		switch r.Kind {
		case KindExperience:
			before := p.Info.Level
			p.Info.Experience += int(r.Value)
			if p.CalculateLevel(e.ExpTable) > before {
				out.LevelledUp = true
			}

		case KindSkill:
			points := r.Value * e.tune.Skills.ProgressRate
			if !p.AddSkillPoints(r.Target, points, now) {
				e.log.Printf("[reward] skill %s missing on profile %s, points dropped", r.Target, p.ID)
			}

		case KindTraderStanding:
			if p.TraderStandings == nil {
				p.TraderStandings = map[string]float64{}
			}
			p.TraderStandings[r.Target] += r.Value
			if p.TraderStandings[r.Target] < 0 {
				p.TraderStandings[r.Target] = 0
			}

		case KindItem:
			if err := e.grantItems(p, r); err != nil {
				return out, err
			}

		case KindProductionScheme:
			if !containsString(p.UnlockedRecipes, r.Target) {
				p.UnlockedRecipes = append(p.UnlockedRecipes, r.Target)
				out.RecipesUnlocked = append(out.RecipesUnlocked, r.Target)
			}

		case KindStashRows:
			p.Bonuses = append(p.Bonuses, profile.Bonus{
				ID:    item.NewID(),
				Type:  profile.BonusStashRows,
				Value: r.Value,
			})
			if p.Inventory.StashSlots > 0 {
				p.Inventory.StashSlots += int(r.Value)
			}

		case KindAchievement:
			if p.Achievements == nil {
				p.Achievements = map[string]int64{}
			}
			if _, done := p.Achievements[r.Target]; !done {
				p.Achievements[r.Target] = now
			}

		case KindCustomization:
			if !containsString(p.Customizations, r.Target) {
				p.Customizations = append(p.Customizations, r.Target)
			}

		case KindPockets:
			p.PocketsTpl = r.Target

		default:
			e.log.Printf("[reward] unknown reward kind %q skipped", r.Kind)
		}
	}

	e.audit(protocol.Event{
		"type":    "REWARDS_APPLIED",
		"profile": p.ID,
		"count":   len(rewards),
	})
	return out, nil
}

// grantItems delivers reward item trees, splitting oversized root stacks on
// the template's stack limit. Found-in-raid never applies to ammo or money.
func (e *Engine) grantItems(p *profile.Profile, r Reward) error {
	var trees [][]item.Item

	for _, root := range roots(r.Items) {
		tree := item.FindAndReturnChildren(r.Items, root.ID)
		if len(tree) == 0 {
			continue
		}

		maxStack := 1
		def, haveDef := e.cats.Items.Defs[tree[0].Tpl]
		if haveDef && def.MaxStackSize > 0 {
			maxStack = def.MaxStackSize
		}
		fir := r.FoundInRaid &&
			!(haveDef && def.IsOfBaseClass(catalogs.ClassAmmo, catalogs.ClassMoney))

		remaining := tree[0].StackCount()
		for remaining > 0 {
			n := remaining
			if n > maxStack {
				n = maxStack
			}
			chunk := item.Clone(tree)
			item.RemapIDs(chunk)
			upd := chunk[0].EnsureUpd()
			upd.StackObjectsCount = n
			upd.SpawnedInSession = fir
			remaining -= n
			trees = append(trees, chunk)
		}
	}

	return p.Inventory.AddItemTreesToStash(trees)
}

// roots picks the tree roots out of a flat reward item list: items whose
// parent is absent from the list.
func roots(items []item.Item) []item.Item {
	ids := make(map[string]struct{}, len(items))
	for i := range items {
		ids[items[i].ID] = struct{}{}
	}
	var out []item.Item
	for i := range items {
		if _, inList := ids[items[i].ParentID]; !inList {
			out = append(out, items[i])
		}
	}
	return out
}

func editionMatches(editions []string, edition string) bool {
	if len(editions) == 0 {
		return true
	}
	for _, e := range editions {
		if e == edition {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SkillPointsForLevel reports the progress a profile needs to reach the
// given skill level, for reward bundles expressed as "set skill to level N".
func SkillPointsForLevel(level int) float64 {
	if level > 51 {
		level = 51
	}
	if level < 0 {
		level = 0
	}
	points := float64(level * 100)
	if points > skills.MaxProgress {
		points = skills.MaxProgress
	}
	return points
}
