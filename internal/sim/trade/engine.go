package trade

import (
	"log"
	"sync"

	"driftbase.gg/internal/protocol"
	"driftbase.gg/internal/sim/catalogs"
	"driftbase.gg/internal/sim/item"
	"driftbase.gg/internal/sim/profile"
	"driftbase.gg/internal/sim/tuning"
)

type Engine struct {
	cats *catalogs.Catalogs
	tune tuning.Tuning
	log  *log.Logger

	// Optional structured audit sink.
	Audit func(protocol.Event)

	// Serializes the whole buy sequence: offer checks and the stock
	// decrement must not interleave across buyers.
	mu      sync.Mutex
	sources map[string]OfferSource
	traders map[string]*TraderState
}

func NewEngine(cats *catalogs.Catalogs, tune tuning.Tuning, logger *log.Logger) *Engine {
	e := &Engine{
		cats:    cats,
		tune:    tune,
		log:     logger,
		sources: map[string]OfferSource{},
		traders: map[string]*TraderState{},
	}
	for id, def := range cats.Traders.ByID {
		state := NewTraderState(def)
		e.traders[id] = state
		e.sources[id] = state
	}
	return e
}

func (e *Engine) audit(ev protocol.Event) {
	if e.Audit != nil {
		e.Audit(ev)
	}
}

// RegisterSource plugs in a non-trader offer source (the flea market).
func (e *Engine) RegisterSource(src OfferSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources[src.SourceID()] = src
}

func (e *Engine) Trader(id string) *TraderState { return e.traders[id] }

// RefreshDueTraders restocks every trader whose cycle has elapsed and resets
// the given profiles' purchase counters against them.
func (e *Engine) RefreshDueTraders(now int64, profiles []*profile.Profile) {
	for id, t := range e.traders {
		if now < t.NextRefresh {
			continue
		}
		t.Refresh(now, e.tune.Trading.RefreshSeconds)
		for _, p := range profiles {
			p.ResetPurchases(id)
		}
		e.log.Printf("[trade] trader %s assort refreshed", id)
	}
}

// Purchase is one buy request against an offer source.
type Purchase struct {
	SourceID string
	OfferID  string
	Count    int

	// Marks delivered items found-in-raid; flea buys from player listings
	// set this. Never applies to ammo or money templates.
	FoundInRaid bool

	// Currency stacks the client picked to pay from first; any shortfall
	// drains the remaining stacks in inventory order.
	Payment []protocol.PaymentStack
}

// Buy purchases req.Count units of an offer and delivers them to the stash.
// Checks run strictly before any mutation: offer existence, the per-cycle
// purchase limit, then stock. Delivery happens before payment; a payment
// failure after delivery is reported but the delivered items stay.
func (e *Engine) Buy(p *profile.Profile, req Purchase) error {
	if req.Count <= 0 {
		return protocol.Errorf(protocol.ErrBadRequest, "buy count must be positive")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	src, ok := e.sources[req.SourceID]
	if !ok {
		return protocol.Errorf(protocol.ErrBadRequest, "unknown offer source %s", req.SourceID)
	}
	offer, err := src.Offer(req.OfferID)
	if err != nil {
		return err
	}

	if offer.BuyRestrictionMax > 0 &&
		p.PurchaseCount(req.SourceID, req.OfferID)+req.Count > offer.BuyRestrictionMax {
		return protocol.Errorf(protocol.ErrPurchaseLimit,
			"offer %s limited to %d per cycle", req.OfferID, offer.BuyRestrictionMax)
	}
	if req.Count > offer.StackCount {
		return protocol.Errorf(protocol.ErrNoStock,
			"offer %s has %d left, wanted %d", req.OfferID, offer.StackCount, req.Count)
	}

	maxStack := 1
	def, haveDef := e.cats.Items.Defs[offer.Items[0].Tpl]
	if haveDef && def.MaxStackSize > 0 {
		maxStack = def.MaxStackSize
	}
	fir := req.FoundInRaid &&
		!(haveDef && def.IsOfBaseClass(catalogs.ClassAmmo, catalogs.ClassMoney))

	var trees [][]item.Item
	for remaining := req.Count; remaining > 0; {
		n := remaining
		if n > maxStack {
			n = maxStack
		}
		tree := item.Clone(offer.Items)
		item.RemapIDs(tree)
		upd := tree[0].EnsureUpd()
		upd.StackObjectsCount = n
		upd.BuyRestrictionMax = 0
		upd.SpawnedInSession = fir
		remaining -= n
		trees = append(trees, tree)
	}

	if err := p.Inventory.AddItemTreesToStash(trees); err != nil {
		return err
	}

	payErr := p.Inventory.PayMoneyFrom(offer.Price*req.Count, req.Payment, func(tpl string) bool {
		return tpl == offer.CurrencyTpl
	})
	if payErr != nil {
		// Goods are already in the stash at this point. Mirrored deliberately;
		// callers surface the failure to the client.
		e.log.Printf("[trade] payment failed after delivery: profile=%s offer=%s: %v",
			p.ID, req.OfferID, payErr)
		return payErr
	}

	src.CommitPurchase(req.OfferID, req.Count)
	p.RecordPurchase(req.SourceID, req.OfferID, req.Count)

	e.audit(protocol.Event{
		"type":     "TRADE_BUY",
		"profile":  p.ID,
		"source":   req.SourceID,
		"offer_id": req.OfferID,
		"count":    req.Count,
		"paid":     offer.Price * req.Count,
	})
	return nil
}

// Sell hands the given inventory items to a trader for handbook value.
// Every id is resolved before anything is removed; one unknown id fails the
// whole request with nothing sold, and a repeated id is only credited once.
// The credit goes to receiver, which may be another profile (group trades);
// nil means the seller keeps it.
func (e *Engine) Sell(p *profile.Profile, receiver *profile.Profile, traderID string, itemIDs []string) error {
	trader, ok := e.traders[traderID]
	if !ok {
		return protocol.Errorf(protocol.ErrBadRequest, "unknown trader %s", traderID)
	}
	if receiver == nil {
		receiver = p
	}

	seen := make(map[string]bool, len(itemIDs))
	ids := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if len(p.Inventory.ItemWithChildren(id)) == 0 {
			return protocol.Errorf(protocol.ErrItemNotFound,
				"item %s not in inventory", id)
		}
		ids = append(ids, id)
	}

	// Trees are re-resolved at removal time: an id nested under another sold
	// tree has already left with its parent and gets no credit of its own.
	trees := make([][]item.Item, 0, len(ids))
	prices := make([]int, 0, len(ids))
	total := 0
	for _, id := range ids {
		tree := p.Inventory.ItemWithChildren(id)
		if len(tree) == 0 {
			continue
		}
		p.Inventory.RemoveItem(id)
		price := e.treeValue(tree)
		trees = append(trees, tree)
		prices = append(prices, price)
		total += price
	}

	currencyStack := 1
	if def, ok := e.cats.Items.Defs[trader.Currency()]; ok && def.MaxStackSize > 0 {
		currencyStack = def.MaxStackSize
	}
	receiver.Inventory.GiveMoney(total, trader.Currency(), currencyStack)

	for i, tree := range trees {
		trader.RegisterSold(tree, prices[i])
	}

	e.audit(protocol.Event{
		"type":    "TRADE_SELL",
		"profile": p.ID,
		"trader":  traderID,
		"items":   len(trees),
		"credit":  total,
	})
	return nil
}

// treeValue prices an item tree at handbook value, stack counts included.
func (e *Engine) treeValue(tree []item.Item) int {
	total := 0
	for i := range tree {
		def, ok := e.cats.Items.Defs[tree[i].Tpl]
		if !ok {
			continue
		}
		total += def.BasePrice * tree[i].StackCount()
	}
	return total
}
