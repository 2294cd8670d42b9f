package protocol

import "fmt"

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Hideout/production layer.
	ErrRecipeNotFound = "E_RECIPE_NOT_FOUND"
	ErrCraftNotFound  = "E_CRAFT_NOT_FOUND"
	ErrNothingToTake  = "E_NOTHING_TO_TAKE"
	ErrStashFull      = "E_STASH_FULL"

	// Trade layer.
	ErrOfferNotFound = "E_OFFER_NOT_FOUND"
	ErrPurchaseLimit = "E_PURCHASE_LIMIT"
	ErrNoStock       = "E_NO_STOCK"
	ErrItemNotFound  = "E_ITEM_NOT_FOUND"
	ErrNoFunds       = "E_NO_FUNDS"
	ErrTradeFailed   = "E_TRADE_FAILED"

	// Generic.
	ErrBadRequest = "E_BAD_REQUEST"
	ErrRateLimit  = "E_RATE_LIMIT"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrRecipeNotFound:  {},
	ErrCraftNotFound:   {},
	ErrNothingToTake:   {},
	ErrStashFull:       {},
	ErrOfferNotFound:   {},
	ErrPurchaseLimit:   {},
	ErrNoStock:         {},
	ErrItemNotFound:    {},
	ErrNoFunds:         {},
	ErrTradeFailed:     {},
	ErrBadRequest:      {},
	ErrRateLimit:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodedError is a hard failure carrying a client-facing error code. Engines
// return it for check-then-act violations (purchase limit, stock exceeded)
// that must abort the request before any mutation happens.
type CodedError struct {
	Code    string
	Message string
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func Errorf(code, format string, args ...any) *CodedError {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code from err, or E_INTERNAL for plain errors.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if ce, ok := err.(*CodedError); ok {
		return ce.Code
	}
	return ErrInternal
}
