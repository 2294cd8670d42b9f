package trade

import (
	"sync"

	"driftbase.gg/internal/protocol"
	"driftbase.gg/internal/sim/catalogs"
	"driftbase.gg/internal/sim/item"
)

// TraderState is a trader's live assortment: a working copy of the catalog
// template whose root stacks drain as players buy. Refresh restores it.
type TraderState struct {
	mu  sync.Mutex
	def catalogs.TraderDef

	assort      []item.Item
	prices      map[string]int
	NextRefresh int64
}

func NewTraderState(def catalogs.TraderDef) *TraderState {
	t := &TraderState{def: def}
	t.restock()
	return t
}

func (t *TraderState) restock() {
	t.assort = item.Clone(t.def.Assort)
	t.prices = make(map[string]int, len(t.def.Prices))
	for id, price := range t.def.Prices {
		t.prices[id] = price
	}
}

func (t *TraderState) SourceID() string { return t.def.ID }

func (t *TraderState) Currency() string { return t.def.Currency }

func (t *TraderState) SpecialVendor() bool { return t.def.SpecialVendor }

// Refresh restores the assortment from the catalog template and schedules
// the next cycle. Per-profile purchase counters are reset by the caller.
func (t *TraderState) Refresh(now, intervalSeconds int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restock()
	t.NextRefresh = now + intervalSeconds
}

func (t *TraderState) Offer(offerID string) (*Offer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tree := item.FindAndReturnChildren(t.assort, offerID)
	if len(tree) == 0 {
		return nil, protocol.Errorf(protocol.ErrOfferNotFound,
			"trader %s has no offer %s", t.def.ID, offerID)
	}

	offer := &Offer{
		ID:          offerID,
		Items:       tree,
		Price:       t.prices[offerID],
		CurrencyTpl: t.def.Currency,
		StackCount:  tree[0].StackCount(),
	}
	if tree[0].Upd != nil {
		offer.BuyRestrictionMax = tree[0].Upd.BuyRestrictionMax
	}
	return offer, nil
}

func (t *TraderState) CommitPurchase(offerID string, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.assort {
		if t.assort[i].ID != offerID {
			continue
		}
		left := t.assort[i].StackCount() - count
		if left < 0 {
			left = 0
		}
		t.assort[i].EnsureUpd().StackObjectsCount = left
		return
	}
}

// RegisterSold folds an item tree a player sold into the live assortment so
// other players can buy it back. Only the special vendor does this.
func (t *TraderState) RegisterSold(tree []item.Item, price int) {
	if !t.def.SpecialVendor || len(tree) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	tree[0].ParentID = ""
	tree[0].SlotID = ""
	t.assort = append(t.assort, tree...)
	t.prices[tree[0].ID] = price
}
