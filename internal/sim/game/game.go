// Package game ties the engines together behind a single dispatch surface:
// one profile registry, one action entry point, one periodic tick. Actions
// and ticks share a lock, so every engine sees profile state whole.
package game

import (
	"log"
	"sync"
	"time"

	"driftbase.gg/internal/protocol"
	"driftbase.gg/internal/sim/catalogs"
	"driftbase.gg/internal/sim/hideout"
	"driftbase.gg/internal/sim/item"
	"driftbase.gg/internal/sim/profile"
	"driftbase.gg/internal/sim/ragfair"
	"driftbase.gg/internal/sim/reward"
	"driftbase.gg/internal/sim/skills"
	"driftbase.gg/internal/sim/trade"
	"driftbase.gg/internal/sim/tuning"
)

// ProfileStore is what the game needs from persistence; nil-able for tests.
type ProfileStore interface {
	SaveProfile(p *profile.Profile) error
	LoadProfile(id string) (*profile.Profile, error)
}

type Game struct {
	cats *catalogs.Catalogs
	tune tuning.Tuning
	log  *log.Logger

	Hideout *hideout.Engine
	Trade   *trade.Engine
	Market  *ragfair.Market
	Rewards *reward.Engine

	Now func() int64

	store ProfileStore

	mu       sync.Mutex
	profiles map[string]*profile.Profile
}

func New(cats *catalogs.Catalogs, tune tuning.Tuning, logger *log.Logger, store ProfileStore) *Game {
	g := &Game{
		cats:     cats,
		tune:     tune,
		log:      logger,
		Now:      func() int64 { return time.Now().Unix() },
		store:    store,
		profiles: map[string]*profile.Profile{},
	}

	g.Hideout = hideout.NewEngine(cats, tune, logger)
	g.Trade = trade.NewEngine(cats, tune, logger)
	g.Rewards = reward.NewEngine(cats, tune, logger)
	g.Rewards.ExpTable = tune.Experience.LevelTable

	g.Market = ragfair.NewMarket(cats, tune, logger)
	g.Market.Profiles = g.lookupProfile
	g.Trade.RegisterSource(g.Market)

	return g
}

// SetAudit routes every engine's audit events into one sink.
func (g *Game) SetAudit(sink func(protocol.Event)) {
	g.Hideout.Audit = sink
	g.Trade.Audit = sink
	g.Market.Audit = sink
	g.Rewards.Audit = sink
}

// SetClock pins the wall clock across every engine, for tests.
func (g *Game) SetClock(now func() int64) {
	g.Now = now
	g.Hideout.Now = now
	g.Market.Now = now
}

// lookupProfile serves the flea market's seller resolution. Only called
// with g.mu already held by the action/tick path.
func (g *Game) lookupProfile(id string) *profile.Profile {
	return g.profiles[id]
}

// AttachProfile loads (or creates) the profile for a session and registers
// it as live.
func (g *Game) AttachProfile(sessionID string) (*profile.Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.profiles[sessionID]; ok {
		return p, nil
	}
	if g.store != nil {
		p, err := g.store.LoadProfile(sessionID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			g.profiles[sessionID] = p
			return p, nil
		}
	}

	p := g.newProfile(sessionID)
	g.profiles[sessionID] = p
	g.save(p)
	return p, nil
}

// newProfile builds a fresh profile: empty stash, zeroed skills, one area
// record per catalog area.
func (g *Game) newProfile(id string) *profile.Profile {
	p := &profile.Profile{
		ID:      id,
		Edition: "standard",
		Skills: map[string]*skills.Skill{
			skills.Crafting:          {ID: skills.Crafting},
			skills.HideoutManagement: {ID: skills.HideoutManagement},
		},
		Inventory: profile.Inventory{StashID: item.NewID()},
	}
	for areaType, def := range g.cats.Areas.ByType {
		p.Hideout.Areas = append(p.Hideout.Areas, &profile.Area{
			Type:  areaType,
			Slots: make([]profile.Slot, def.SlotCount),
		})
	}
	return p
}

// HandleAction is the single entry point for client requests. The profile's
// hideout is brought current before the action runs, so crafts and resources
// reflect real elapsed time at the moment of the request.
func (g *Game) HandleAction(sessionID string, act protocol.ActionMsg) protocol.ResultMsg {
	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		Ref:             act.ID,
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.profiles[sessionID]
	if !ok {
		return fail(res, protocol.Errorf(protocol.ErrBadRequest, "no profile for session"))
	}

	g.Hideout.UpdatePlayerHideout(p)

	var err error
	switch act.Kind {
	case protocol.ActionStartProduction:
		err = g.Hideout.StartProduction(p, act.RecipeID, act.Tools)

	case protocol.ActionTakeProduction:
		err = g.Hideout.TakeProduction(p, act.RecipeID)

	case protocol.ActionToggleArea:
		err = g.Hideout.ToggleArea(p, act.AreaType, act.Enabled)

	case protocol.ActionBuy:
		err = g.Trade.Buy(p, trade.Purchase{
			SourceID:    act.Source,
			OfferID:     act.OfferID,
			Count:       act.Count,
			FoundInRaid: act.FoundInRaid,
			Payment:     act.Payment,
		})

	case protocol.ActionSell:
		err = g.Trade.Sell(p, nil, act.Source, act.ItemIDs)

	case protocol.ActionAddRagfairOffer:
		if len(act.ItemIDs) != 1 {
			err = protocol.Errorf(protocol.ErrBadRequest, "flea listing takes exactly one root item")
		} else {
			_, err = g.Market.AddOffer(p, act.ItemIDs[0], act.Price)
		}

	case protocol.ActionRemoveRagfairOffer:
		err = g.Market.RemoveOffer(p, act.RagfairOfferID)

	default:
		err = protocol.Errorf(protocol.ErrBadRequest, "unknown action kind %q", act.Kind)
	}

	if err != nil {
		return fail(res, err)
	}

	g.save(p)
	res.Ok = true
	return res
}

// ApplyRewards runs a reward bundle against a live profile under the game
// lock and reports unlocked recipes.
func (g *Game) ApplyRewards(sessionID string, rewards []reward.Reward) (*reward.Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.profiles[sessionID]
	if !ok {
		return nil, protocol.Errorf(protocol.ErrBadRequest, "no profile for session")
	}
	out, err := g.Rewards.ApplyRewards(p, rewards, g.Now())
	if err == nil {
		g.save(p)
	}
	return out, err
}

// Tick advances everything time-driven: per-profile hideout passes, flea
// expiries, trader refreshes. Runs on the server's tick interval.
func (g *Game) Tick() {
	g.mu.Lock()
	defer g.mu.Unlock()

	live := make([]*profile.Profile, 0, len(g.profiles))
	for _, p := range g.profiles {
		g.Hideout.UpdatePlayerHideout(p)
		live = append(live, p)
	}

	g.Market.ExpireOffers(g.Now())
	g.Trade.RefreshDueTraders(g.Now(), live)

	for _, p := range live {
		g.save(p)
	}
}

// CatalogDigests reports what this server loaded, for the WELCOME handshake.
func (g *Game) CatalogDigests() protocol.CatalogDigests {
	return protocol.CatalogDigests{
		Recipes: g.cats.Recipes.Digest,
		Areas:   g.cats.Areas.Digest,
		Items:   g.cats.Items.Digest,
		Traders: g.cats.Traders.Digest,
	}
}

func (g *Game) save(p *profile.Profile) {
	if g.store == nil {
		return
	}
	if err := g.store.SaveProfile(p); err != nil {
		g.log.Printf("[game] save failed for %s: %v", p.ID, err)
	}
}

func fail(res protocol.ResultMsg, err error) protocol.ResultMsg {
	res.Ok = false
	res.ErrorCode = protocol.CodeOf(err)
	if ce, ok := err.(*protocol.CodedError); ok {
		res.ErrorMessage = ce.Message
	} else {
		res.ErrorMessage = err.Error()
	}
	return res
}
