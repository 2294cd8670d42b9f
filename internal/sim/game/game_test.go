package game

import (
	"encoding/json"
	"io"
	"log"
	"testing"

	"driftbase.gg/internal/protocol"
	"driftbase.gg/internal/sim/catalogs"
	"driftbase.gg/internal/sim/item"
	"driftbase.gg/internal/sim/profile"
	"driftbase.gg/internal/sim/reward"
	"driftbase.gg/internal/sim/skills"
	"driftbase.gg/internal/sim/tuning"
)

// fakeStore keeps profiles as JSON round-trips so saves are checked for
// serializability, same as the sqlite store does.
type fakeStore struct {
	blobs map[string][]byte
	saves int
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: map[string][]byte{}}
}

func (s *fakeStore) SaveProfile(p *profile.Profile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.blobs[p.ID] = b
	s.saves++
	return nil
}

func (s *fakeStore) LoadProfile(id string) (*profile.Profile, error) {
	b, ok := s.blobs[id]
	if !ok {
		return nil, nil
	}
	var p profile.Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func testGame(t *testing.T, store ProfileStore) *Game {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	g := New(cats, tuning.Defaults(), log.New(io.Discard, "", 0), store)
	g.SetClock(func() int64 { return 1000 })
	return g
}

func giveMoney(p *profile.Profile, amount int) {
	p.Inventory.Items = append(p.Inventory.Items, item.Item{
		ID: item.NewID(), Tpl: "roubles",
		ParentID: p.Inventory.StashID, SlotID: profile.StashSlotID,
		Upd: &item.Upd{StackObjectsCount: amount},
	})
}

func action(kind string) protocol.ActionMsg {
	return protocol.ActionMsg{
		Type:            protocol.TypeAction,
		ProtocolVersion: protocol.Version,
		ID:              "a1",
		Kind:            kind,
	}
}

func TestAttachProfile_CreatesAreasAndPersists(t *testing.T) {
	store := newFakeStore()
	g := testGame(t, store)

	p, err := g.AttachProfile("s1")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if len(p.Hideout.Areas) != len(g.cats.Areas.ByType) {
		t.Fatalf("areas: got %d want %d", len(p.Hideout.Areas), len(g.cats.Areas.ByType))
	}
	gen := p.Area(catalogs.AreaGenerator)
	if gen == nil || len(gen.Slots) != 2 {
		t.Fatalf("generator area missing or wrong slot count: %+v", gen)
	}
	if p.Skill(skills.Crafting) == nil || p.Skill(skills.HideoutManagement) == nil {
		t.Fatalf("skills not initialized")
	}
	if _, ok := store.blobs["s1"]; !ok {
		t.Fatalf("fresh profile not persisted")
	}

	again, err := g.AttachProfile("s1")
	if err != nil {
		t.Fatalf("re-attach: %v", err)
	}
	if again != p {
		t.Fatalf("re-attach returned a different instance")
	}
}

func TestAttachProfile_LoadsExisting(t *testing.T) {
	store := newFakeStore()
	seeded := &profile.Profile{ID: "s1", Edition: "standard",
		Info: profile.Info{Experience: 777, Level: 2}}
	if err := store.SaveProfile(seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}

	g := testGame(t, store)
	p, err := g.AttachProfile("s1")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if p.Info.Experience != 777 {
		t.Fatalf("loaded experience: got %d want 777", p.Info.Experience)
	}
}

func TestHandleAction_UnknownSession(t *testing.T) {
	g := testGame(t, nil)

	res := g.HandleAction("ghost", action(protocol.ActionToggleArea))
	if res.Ok {
		t.Fatalf("action succeeded with no profile")
	}
	if res.ErrorCode != protocol.ErrBadRequest {
		t.Fatalf("error code: got %q want %q", res.ErrorCode, protocol.ErrBadRequest)
	}
	if res.Ref != "a1" {
		t.Fatalf("ref not echoed: got %q", res.Ref)
	}
}

func TestHandleAction_UnknownKind(t *testing.T) {
	g := testGame(t, nil)
	if _, err := g.AttachProfile("s1"); err != nil {
		t.Fatalf("attach: %v", err)
	}

	res := g.HandleAction("s1", action("DANCE"))
	if res.Ok || res.ErrorCode != protocol.ErrBadRequest {
		t.Fatalf("unknown kind: got ok=%v code=%q", res.Ok, res.ErrorCode)
	}
}

func TestHandleAction_BuyDeliversAndSaves(t *testing.T) {
	store := newFakeStore()
	g := testGame(t, store)
	p, err := g.AttachProfile("s1")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	giveMoney(p, 100000)

	act := action(protocol.ActionBuy)
	act.Source = "supplier"
	act.OfferID = "assort_ammo_556"
	act.Count = 60

	savesBefore := store.saves
	res := g.HandleAction("s1", act)
	if !res.Ok {
		t.Fatalf("buy failed: %s %s", res.ErrorCode, res.ErrorMessage)
	}
	delivered := false
	for i := range p.Inventory.Items {
		if p.Inventory.Items[i].Tpl == "ammo_556" {
			delivered = true
		}
	}
	if !delivered {
		t.Fatalf("ammo not delivered")
	}
	if store.saves <= savesBefore {
		t.Fatalf("successful action did not persist the profile")
	}
}

func TestHandleAction_ErrorsCarryCodes(t *testing.T) {
	g := testGame(t, nil)
	if _, err := g.AttachProfile("s1"); err != nil {
		t.Fatalf("attach: %v", err)
	}

	act := action(protocol.ActionBuy)
	act.Source = "supplier"
	act.OfferID = "assort_ghost"
	act.Count = 1

	res := g.HandleAction("s1", act)
	if res.Ok || res.ErrorCode != protocol.ErrOfferNotFound {
		t.Fatalf("got ok=%v code=%q want %q", res.Ok, res.ErrorCode, protocol.ErrOfferNotFound)
	}
	if !protocol.IsKnownCode(res.ErrorCode) {
		t.Fatalf("unknown error code leaked: %q", res.ErrorCode)
	}
}

func TestHandleAction_CraftLifecycle(t *testing.T) {
	g := testGame(t, nil)
	p, err := g.AttachProfile("s1")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	now := int64(1000)
	g.SetClock(func() int64 { return now })

	start := action(protocol.ActionStartProduction)
	start.RecipeID = "craft_soap"
	if res := g.HandleAction("s1", start); !res.Ok {
		t.Fatalf("start failed: %s %s", res.ErrorCode, res.ErrorMessage)
	}

	// 7200s craft at the 0.15 unpowered rate needs 48000s of wall time.
	now = 1000 + 48001

	take := action(protocol.ActionTakeProduction)
	take.RecipeID = "craft_soap"
	if res := g.HandleAction("s1", take); !res.Ok {
		t.Fatalf("take failed: %s %s", res.ErrorCode, res.ErrorMessage)
	}

	found := false
	for i := range p.Inventory.Items {
		it := &p.Inventory.Items[i]
		if it.Tpl == "soap" {
			found = true
			if it.Upd == nil || !it.Upd.SpawnedInSession {
				t.Fatalf("craft output not found-in-raid")
			}
		}
	}
	if !found {
		t.Fatalf("soap not delivered")
	}
	if _, live := p.Hideout.Productions["craft_soap"]; live {
		t.Fatalf("finished craft not cleared")
	}
}

func TestHandleAction_RagfairAddNeedsSingleRoot(t *testing.T) {
	g := testGame(t, nil)
	if _, err := g.AttachProfile("s1"); err != nil {
		t.Fatalf("attach: %v", err)
	}

	act := action(protocol.ActionAddRagfairOffer)
	act.Price = 12000
	act.ItemIDs = []string{"a", "b"}

	res := g.HandleAction("s1", act)
	if res.Ok || res.ErrorCode != protocol.ErrBadRequest {
		t.Fatalf("got ok=%v code=%q want %q", res.Ok, res.ErrorCode, protocol.ErrBadRequest)
	}
}

func TestTick_ExpiresFleaListings(t *testing.T) {
	g := testGame(t, nil)
	p, err := g.AttachProfile("s1")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	giveMoney(p, 10000)
	p.Inventory.Items = append(p.Inventory.Items, item.Item{
		ID: "b1", Tpl: "bleach",
		ParentID: p.Inventory.StashID, SlotID: profile.StashSlotID,
	})

	now := int64(1000)
	g.SetClock(func() int64 { return now })

	act := action(protocol.ActionAddRagfairOffer)
	act.ItemIDs = []string{"b1"}
	act.Price = 12000
	if res := g.HandleAction("s1", act); !res.Ok {
		t.Fatalf("add offer failed: %s %s", res.ErrorCode, res.ErrorMessage)
	}
	if p.Inventory.FindItem("b1") != nil {
		t.Fatalf("listed item still in inventory")
	}

	now = 1000 + g.tune.Ragfair.OfferExpirySeconds
	g.Tick()

	if p.Inventory.FindItem("b1") == nil {
		t.Fatalf("expired listing not returned to stash")
	}
}

func TestApplyRewards_UnlocksRecipes(t *testing.T) {
	g := testGame(t, nil)
	p, err := g.AttachProfile("s1")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	out, err := g.ApplyRewards("s1", []reward.Reward{
		{Kind: reward.KindProductionScheme, Target: "craft_bleach_pair"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(out.RecipesUnlocked) != 1 || out.RecipesUnlocked[0] != "craft_bleach_pair" {
		t.Fatalf("unlocks: got %v", out.RecipesUnlocked)
	}
	if len(p.UnlockedRecipes) != 1 {
		t.Fatalf("profile unlocks: got %v", p.UnlockedRecipes)
	}
}

func TestApplyRewards_ExperienceRaisesLevel(t *testing.T) {
	g := testGame(t, nil)
	p, err := g.AttachProfile("s1")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	// 1000 + 3489 XP climbs the default table to level 3.
	out, err := g.ApplyRewards("s1", []reward.Reward{
		{Kind: reward.KindExperience, Value: 4489},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !out.LevelledUp {
		t.Fatalf("expected a level-up")
	}
	if p.Info.Level != 3 {
		t.Fatalf("level: got %d want 3", p.Info.Level)
	}
}

func TestCatalogDigests_NonEmpty(t *testing.T) {
	g := testGame(t, nil)
	d := g.CatalogDigests()
	if d.Recipes == "" || d.Areas == "" || d.Items == "" || d.Traders == "" {
		t.Fatalf("empty digest in %+v", d)
	}
}
