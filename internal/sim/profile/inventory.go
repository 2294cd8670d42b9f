package profile

import (
	"driftbase.gg/internal/protocol"
	"driftbase.gg/internal/sim/item"
)

// Slot id all stash root items occupy.
const StashSlotID = "hideout"

type Inventory struct {
	// Id of the stash container item; root items parent to it.
	StashID string `json:"stash_id"`
	// Root item capacity; zero means unbounded.
	StashSlots int `json:"stash_slots,omitempty"`

	Items []item.Item `json:"items"`
}

// FindItem returns a pointer into the inventory for the item with the given
// id, or nil.
func (inv *Inventory) FindItem(id string) *item.Item {
	for i := range inv.Items {
		if inv.Items[i].ID == id {
			return &inv.Items[i]
		}
	}
	return nil
}

// ItemWithChildren returns a copy of the item and all its descendants.
func (inv *Inventory) ItemWithChildren(id string) []item.Item {
	return item.FindAndReturnChildren(inv.Items, id)
}

func (inv *Inventory) stashRootCount() int {
	n := 0
	for i := range inv.Items {
		if inv.Items[i].ParentID == inv.StashID {
			n++
		}
	}
	return n
}

// AddItemTreesToStash delivers item trees into the stash, reparenting each
// root under the stash container. Fails with E_STASH_FULL before any
// mutation when the trees would exceed capacity.
func (inv *Inventory) AddItemTreesToStash(trees [][]item.Item) error {
	if inv.StashSlots > 0 && inv.stashRootCount()+len(trees) > inv.StashSlots {
		return protocol.Errorf(protocol.ErrStashFull,
			"no room in stash for %d items", len(trees))
	}
	for _, tree := range trees {
		if len(tree) == 0 {
			continue
		}
		tree[0].ParentID = inv.StashID
		tree[0].SlotID = StashSlotID
		inv.Items = append(inv.Items, tree...)
	}
	return nil
}

// RemoveItem deletes an item and all its children from the inventory.
func (inv *Inventory) RemoveItem(id string) bool {
	items, ok := item.RemoveWithChildren(inv.Items, id)
	if ok {
		inv.Items = items
	}
	return ok
}

// MoneySum totals the stack counts of all inventory items accepted by the
// isMoney predicate.
func (inv *Inventory) MoneySum(isMoney func(tpl string) bool) int {
	total := 0
	for i := range inv.Items {
		if isMoney(inv.Items[i].Tpl) {
			total += inv.Items[i].StackCount()
		}
	}
	return total
}

// PayMoney deducts amount from the profile's currency stacks, draining
// stacks in inventory order and deleting emptied ones. Fails with E_NO_FUNDS
// before any mutation when the total is short.
func (inv *Inventory) PayMoney(amount int, isMoney func(tpl string) bool) error {
	return inv.PayMoneyFrom(amount, nil, isMoney)
}

// PayMoneyFrom is PayMoney with the client's chosen stacks drained first,
// each capped at its requested count. Any remainder falls through to the
// other stacks in inventory order; unknown or non-currency stack ids in
// preferred are ignored.
func (inv *Inventory) PayMoneyFrom(amount int, preferred []protocol.PaymentStack, isMoney func(tpl string) bool) error {
	if amount <= 0 {
		return nil
	}
	if inv.MoneySum(isMoney) < amount {
		return protocol.Errorf(protocol.ErrNoFunds, "insufficient funds: need %d", amount)
	}

	remaining := amount
	var emptied []string

	// Counts go to zero immediately so a stack drained twice (named in
	// preferred, then met again in inventory order) never double-pays.
	drain := func(it *item.Item, limit int) {
		take := it.StackCount()
		if limit > 0 && take > limit {
			take = limit
		}
		if take > remaining {
			take = remaining
		}
		if take == 0 {
			return
		}
		left := it.StackCount() - take
		remaining -= take
		it.EnsureUpd().StackObjectsCount = left
		if left == 0 {
			emptied = append(emptied, it.ID)
		}
	}

	for _, ps := range preferred {
		if remaining == 0 {
			break
		}
		it := inv.FindItem(ps.ItemID)
		if it == nil || !isMoney(it.Tpl) {
			continue
		}
		drain(it, ps.Count)
	}
	for i := range inv.Items {
		if remaining == 0 {
			break
		}
		if !isMoney(inv.Items[i].Tpl) {
			continue
		}
		drain(&inv.Items[i], 0)
	}

	for _, id := range emptied {
		inv.RemoveItem(id)
	}
	return nil
}

// GiveMoney credits amount as currency stacks of the given template,
// splitting on the template's max stack size.
func (inv *Inventory) GiveMoney(amount int, moneyTpl string, maxStack int) {
	if amount <= 0 {
		return
	}
	if maxStack <= 0 {
		maxStack = 1
	}
	for amount > 0 {
		n := amount
		if n > maxStack {
			n = maxStack
		}
		inv.Items = append(inv.Items, item.Item{
			ID:       item.NewID(),
			Tpl:      moneyTpl,
			ParentID: inv.StashID,
			SlotID:   StashSlotID,
			Upd:      &item.Upd{StackObjectsCount: n},
		})
		amount -= n
	}
}
