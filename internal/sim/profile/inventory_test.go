package profile

import (
	"testing"

	"driftbase.gg/internal/protocol"
	"driftbase.gg/internal/sim/item"
)

func money(id string, count int) item.Item {
	return item.Item{
		ID: id, Tpl: "roubles", ParentID: "stash", SlotID: StashSlotID,
		Upd: &item.Upd{StackObjectsCount: count},
	}
}

func isRoubles(tpl string) bool { return tpl == "roubles" }

func TestAddItemTreesToStash_CapacityCheckedBeforeMutation(t *testing.T) {
	inv := Inventory{StashID: "stash", StashSlots: 1}

	err := inv.AddItemTreesToStash([][]item.Item{
		{{ID: "a", Tpl: "bleach"}},
		{{ID: "b", Tpl: "soap"}},
	})
	if protocol.CodeOf(err) != protocol.ErrStashFull {
		t.Fatalf("error code: got %q want %q", protocol.CodeOf(err), protocol.ErrStashFull)
	}
	if len(inv.Items) != 0 {
		t.Fatalf("partial delivery after capacity failure: %d items", len(inv.Items))
	}

	if err := inv.AddItemTreesToStash([][]item.Item{{{ID: "a", Tpl: "bleach"}}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if inv.Items[0].ParentID != "stash" || inv.Items[0].SlotID != StashSlotID {
		t.Fatalf("root not reparented: parent=%s slot=%s", inv.Items[0].ParentID, inv.Items[0].SlotID)
	}
}

func TestPayMoney_InsufficientFundsLeavesStacksAlone(t *testing.T) {
	inv := Inventory{StashID: "stash", Items: []item.Item{money("m1", 100)}}

	err := inv.PayMoney(101, isRoubles)
	if protocol.CodeOf(err) != protocol.ErrNoFunds {
		t.Fatalf("error code: got %q want %q", protocol.CodeOf(err), protocol.ErrNoFunds)
	}
	if inv.Items[0].StackCount() != 100 {
		t.Fatalf("stack touched by failed payment: %d", inv.Items[0].StackCount())
	}
}

func TestPayMoney_DrainsStacksInOrderAndDeletesEmpty(t *testing.T) {
	inv := Inventory{StashID: "stash", Items: []item.Item{
		money("m1", 60),
		money("m2", 70),
	}}

	if err := inv.PayMoney(100, isRoubles); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if got := inv.MoneySum(isRoubles); got != 30 {
		t.Fatalf("remaining: got %d want 30", got)
	}
	if inv.FindItem("m1") != nil {
		t.Fatalf("emptied stack m1 not deleted")
	}
	if inv.FindItem("m2").StackCount() != 30 {
		t.Fatalf("m2: got %d want 30", inv.FindItem("m2").StackCount())
	}
}

func TestPayMoneyFrom_PreferredStacksDrainFirst(t *testing.T) {
	inv := Inventory{StashID: "stash", Items: []item.Item{
		money("m1", 60),
		money("m2", 70),
	}}

	if err := inv.PayMoneyFrom(50, []protocol.PaymentStack{{ItemID: "m2", Count: 50}}, isRoubles); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if inv.FindItem("m1").StackCount() != 60 {
		t.Fatalf("m1 touched: got %d want 60", inv.FindItem("m1").StackCount())
	}
	if inv.FindItem("m2").StackCount() != 20 {
		t.Fatalf("m2: got %d want 20", inv.FindItem("m2").StackCount())
	}
}

func TestPayMoneyFrom_ShortfallFallsThroughWithoutDoublePay(t *testing.T) {
	inv := Inventory{StashID: "stash", Items: []item.Item{
		money("m1", 60),
		money("m2", 70),
	}}

	// m2 capped at 10; the rest comes from inventory order without touching
	// the drained portion again.
	if err := inv.PayMoneyFrom(40, []protocol.PaymentStack{{ItemID: "m2", Count: 10}}, isRoubles); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if got := inv.MoneySum(isRoubles); got != 90 {
		t.Fatalf("remaining: got %d want 90", got)
	}
	if inv.FindItem("m1").StackCount() != 30 {
		t.Fatalf("m1: got %d want 30", inv.FindItem("m1").StackCount())
	}
	if inv.FindItem("m2").StackCount() != 60 {
		t.Fatalf("m2: got %d want 60", inv.FindItem("m2").StackCount())
	}
}

func TestGiveMoney_SplitsOnMaxStack(t *testing.T) {
	inv := Inventory{StashID: "stash"}
	inv.GiveMoney(250, "roubles", 100)

	if len(inv.Items) != 3 {
		t.Fatalf("stacks: got %d want 3", len(inv.Items))
	}
	if got := inv.MoneySum(isRoubles); got != 250 {
		t.Fatalf("total: got %d want 250", got)
	}
	if inv.Items[2].StackCount() != 50 {
		t.Fatalf("last stack: got %d want 50", inv.Items[2].StackCount())
	}
}

func TestItemWithChildrenAndRemove(t *testing.T) {
	inv := Inventory{StashID: "stash", Items: []item.Item{
		{ID: "rifle", Tpl: "rifle_556", ParentID: "stash", SlotID: StashSlotID},
		{ID: "mag", Tpl: "mag", ParentID: "rifle", SlotID: "mod_magazine"},
		{ID: "other", Tpl: "bleach", ParentID: "stash", SlotID: StashSlotID},
	}}

	tree := inv.ItemWithChildren("rifle")
	if len(tree) != 2 {
		t.Fatalf("tree: got %d want 2", len(tree))
	}
	if !inv.RemoveItem("rifle") {
		t.Fatalf("expected removal")
	}
	if len(inv.Items) != 1 || inv.Items[0].ID != "other" {
		t.Fatalf("unexpected inventory after removal: %+v", inv.Items)
	}
}
