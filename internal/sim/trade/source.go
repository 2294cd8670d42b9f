// Package trade is the purchase/sale engine. Offers come from pluggable
// sources (traders, the special vendor, the flea market); the engine owns
// the buy/sell sequencing and the profile mutations.
package trade

import "driftbase.gg/internal/sim/item"

// Offer is a purchasable listing resolved from a source: the full item tree
// (root first), its unit price and how much of it is left.
type Offer struct {
	ID          string
	Items       []item.Item
	Price       int
	CurrencyTpl string

	// Units still in stock.
	StackCount int
	// Max units one profile may buy per refresh cycle. Zero means unlimited.
	BuyRestrictionMax int
}

// OfferSource resolves offers and absorbs the stock side effects of a
// completed purchase. Implementations must be safe to call with the trade
// engine's lock held.
type OfferSource interface {
	SourceID() string
	Offer(offerID string) (*Offer, error)

	// CommitPurchase is called once the buyer has been charged; it
	// decrements stock or retires the offer.
	CommitPurchase(offerID string, count int)
}
