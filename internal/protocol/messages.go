package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeAction  = "ACTION"
	TypeResult  = "RESULT"
)

// Action kinds carried inside an ACTION message.
const (
	ActionStartProduction    = "HIDEOUT_START_PRODUCTION"
	ActionTakeProduction     = "HIDEOUT_TAKE_PRODUCTION"
	ActionToggleArea         = "HIDEOUT_TOGGLE_AREA"
	ActionBuy                = "TRADE_BUY"
	ActionSell               = "TRADE_SELL"
	ActionAddRagfairOffer    = "RAGFAIR_ADD_OFFER"
	ActionRemoveRagfairOffer = "RAGFAIR_REMOVE_OFFER"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	Recipes string `json:"recipes"`
	Areas   string `json:"areas"`
	Items   string `json:"items"`
	Traders string `json:"traders"`
}

// ACTION (client -> server). One request per message; fields are a union
// over the action kinds.
type ActionMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Kind            string `json:"kind"`

	// HIDEOUT_START_PRODUCTION
	RecipeID string     `json:"recipe_id,omitempty"`
	Tools    []ToolUse  `json:"tools,omitempty"`

	// HIDEOUT_TOGGLE_AREA
	AreaType int  `json:"area_type,omitempty"`
	Enabled  bool `json:"enabled,omitempty"`

	// TRADE_BUY
	Source  string `json:"source,omitempty"` // trader id, "ragfair" or vendor id
	OfferID string `json:"offer_id,omitempty"`
	Count   int    `json:"count,omitempty"`
	// Marks delivered items found-in-raid; set for flea buys from players.
	FoundInRaid bool `json:"found_in_raid,omitempty"`
	// Currency stacks the client selected to pay from first.
	Payment []PaymentStack `json:"payment,omitempty"`

	// TRADE_SELL / RAGFAIR_ADD_OFFER
	ItemIDs []string `json:"item_ids,omitempty"`
	Price   int      `json:"price,omitempty"`

	// RAGFAIR_REMOVE_OFFER
	RagfairOfferID string `json:"ragfair_offer_id,omitempty"`
}

type ToolUse struct {
	ItemID string `json:"item_id"`
	Count  int    `json:"count"`
}

type PaymentStack struct {
	ItemID string `json:"item_id"`
	Count  int    `json:"count"`
}

// RESULT (server -> client). Accumulated warnings carry validation
// failures; Ok is false when the request aborted with a hard error code.
type ResultMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Ref             string    `json:"ref"`
	Ok              bool      `json:"ok"`
	ErrorCode       string    `json:"error_code,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	Warnings        []Warning `json:"warnings,omitempty"`
}

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Event is a free-form structured record for the audit log.
type Event map[string]any
