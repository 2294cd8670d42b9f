// Package ragfair is the player flea market: profiles list item trees for a
// price, other profiles buy them through the trade engine, unsold listings
// expire back to their seller.
package ragfair

import (
	"log"
	"math"
	"sync"
	"time"

	"driftbase.gg/internal/protocol"
	"driftbase.gg/internal/sim/catalogs"
	"driftbase.gg/internal/sim/item"
	"driftbase.gg/internal/sim/profile"
	"driftbase.gg/internal/sim/trade"
	"driftbase.gg/internal/sim/tuning"
)

// SourceID is the offer-source name buy requests address the market by.
const SourceID = "ragfair"

type Listing struct {
	ID       string
	SellerID string
	Items    []item.Item
	Price    int
	// Wall-clock second the listing lapses.
	ExpiresAt int64
}

type Market struct {
	cats *catalogs.Catalogs
	tune tuning.Tuning
	log  *log.Logger

	Now func() int64

	// Resolves a seller's profile at credit/return time; sellers may have
	// disconnected since listing.
	Profiles func(id string) *profile.Profile

	// Optional structured audit sink.
	Audit func(protocol.Event)

	mu       sync.Mutex
	listings map[string]*Listing
}

func NewMarket(cats *catalogs.Catalogs, tune tuning.Tuning, logger *log.Logger) *Market {
	return &Market{
		cats:     cats,
		tune:     tune,
		log:      logger,
		Now:      func() int64 { return time.Now().Unix() },
		listings: map[string]*Listing{},
	}
}

func (m *Market) audit(ev protocol.Event) {
	if m.Audit != nil {
		m.Audit(ev)
	}
}

func (m *Market) SourceID() string { return SourceID }

// AddOffer lists an inventory item tree for sale. The items leave the
// seller's inventory immediately; the listing tax is charged up front and is
// not refunded on expiry.
func (m *Market) AddOffer(p *profile.Profile, rootItemID string, price int) (string, error) {
	if price <= 0 {
		return "", protocol.Errorf(protocol.ErrBadRequest, "offer price must be positive")
	}

	tree := p.Inventory.ItemWithChildren(rootItemID)
	if len(tree) == 0 {
		return "", protocol.Errorf(protocol.ErrItemNotFound,
			"item %s not in inventory", rootItemID)
	}
	if def, ok := m.cats.Items.Defs[tree[0].Tpl]; ok && !def.CanSellOnRagfair {
		return "", protocol.Errorf(protocol.ErrBadRequest,
			"item %s cannot be listed on the flea market", tree[0].Tpl)
	}

	tax := int(math.Ceil(float64(price) * m.tune.Ragfair.TaxRate))
	if err := p.Inventory.PayMoney(tax, m.isCurrency); err != nil {
		return "", err
	}
	p.Inventory.RemoveItem(rootItemID)

	listing := &Listing{
		ID:        item.NewID(),
		SellerID:  p.ID,
		Items:     tree,
		Price:     price,
		ExpiresAt: m.Now() + m.tune.Ragfair.OfferExpirySeconds,
	}

	m.mu.Lock()
	m.listings[listing.ID] = listing
	m.mu.Unlock()

	m.audit(protocol.Event{
		"type":     "RAGFAIR_ADD",
		"profile":  p.ID,
		"offer_id": listing.ID,
		"price":    price,
		"tax":      tax,
	})
	return listing.ID, nil
}

// RemoveOffer takes a seller's own listing down and returns the items.
func (m *Market) RemoveOffer(p *profile.Profile, offerID string) error {
	m.mu.Lock()
	listing, ok := m.listings[offerID]
	if ok && listing.SellerID == p.ID {
		delete(m.listings, offerID)
	} else {
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return protocol.Errorf(protocol.ErrOfferNotFound,
			"no listing %s owned by %s", offerID, p.ID)
	}
	if err := p.Inventory.AddItemTreesToStash([][]item.Item{listing.Items}); err != nil {
		// Stash full: relist rather than destroy the items.
		m.mu.Lock()
		m.listings[offerID] = listing
		m.mu.Unlock()
		return err
	}

	m.audit(protocol.Event{
		"type":     "RAGFAIR_REMOVE",
		"profile":  p.ID,
		"offer_id": offerID,
	})
	return nil
}

// Offer implements trade.OfferSource. A listing sells as a single unit.
func (m *Market) Offer(offerID string) (*trade.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	listing, ok := m.listings[offerID]
	if !ok {
		return nil, protocol.Errorf(protocol.ErrOfferNotFound,
			"no flea listing %s", offerID)
	}
	return &trade.Offer{
		ID:          offerID,
		Items:       item.Clone(listing.Items),
		Price:       listing.Price,
		CurrencyTpl: m.tune.Ragfair.CurrencyTpl,
		StackCount:  1,
	}, nil
}

// CommitPurchase implements trade.OfferSource: retires the listing and
// credits the seller if they can still be resolved.
func (m *Market) CommitPurchase(offerID string, count int) {
	m.mu.Lock()
	listing, ok := m.listings[offerID]
	if ok {
		delete(m.listings, offerID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	seller := m.resolveProfile(listing.SellerID)
	if seller == nil {
		m.log.Printf("[ragfair] seller %s gone, sale credit dropped", listing.SellerID)
		return
	}
	seller.Inventory.GiveMoney(listing.Price, m.tune.Ragfair.CurrencyTpl, m.currencyStack())

	m.audit(protocol.Event{
		"type":     "RAGFAIR_SOLD",
		"profile":  listing.SellerID,
		"offer_id": offerID,
		"price":    listing.Price,
	})
}

// ExpireOffers returns every lapsed listing's items to its seller. A seller
// who cannot be resolved keeps the listing for the next pass.
func (m *Market) ExpireOffers(now int64) {
	m.mu.Lock()
	var lapsed []*Listing
	for id, listing := range m.listings {
		if now >= listing.ExpiresAt {
			lapsed = append(lapsed, listing)
			delete(m.listings, id)
		}
	}
	m.mu.Unlock()

	for _, listing := range lapsed {
		seller := m.resolveProfile(listing.SellerID)
		if seller == nil {
			m.relist(listing)
			continue
		}
		if err := seller.Inventory.AddItemTreesToStash([][]item.Item{listing.Items}); err != nil {
			m.log.Printf("[ragfair] expiry return failed for %s: %v", listing.SellerID, err)
			m.relist(listing)
			continue
		}
		m.audit(protocol.Event{
			"type":     "RAGFAIR_EXPIRE",
			"profile":  listing.SellerID,
			"offer_id": listing.ID,
		})
	}
}

func (m *Market) relist(listing *Listing) {
	m.mu.Lock()
	m.listings[listing.ID] = listing
	m.mu.Unlock()
}

func (m *Market) resolveProfile(id string) *profile.Profile {
	if m.Profiles == nil {
		return nil
	}
	return m.Profiles(id)
}

func (m *Market) isCurrency(tpl string) bool {
	return tpl == m.tune.Ragfair.CurrencyTpl
}

func (m *Market) currencyStack() int {
	if def, ok := m.cats.Items.Defs[m.tune.Ragfair.CurrencyTpl]; ok && def.MaxStackSize > 0 {
		return def.MaxStackSize
	}
	return 1
}
