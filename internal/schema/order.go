package schema

import "time"

// OrderType enumerates order types supported by the gateway.
type OrderType string

const (
	// OrderTypeLimit represents limit orders.
	OrderTypeLimit OrderType = "Limit"
	// OrderTypeMarket represents market orders.
	OrderTypeMarket OrderType = "Market"
)

// OrderRequest represents an order submission from the host framework.
type OrderRequest struct {
	ClientOrderID string    `json:"client_order_id"`
	Symbol        string    `json:"symbol"`
	Side          TradeSide `json:"side"`
	OrderType     OrderType `json:"order_type"`
	Price         *string   `json:"price,omitempty"`
	Quantity      string    `json:"quantity"`
	Timestamp     time.Time `json:"timestamp"`
}

// CancelRequest represents a cancellation command from the host framework.
// VenueOrderID may be empty when the host never observed acceptance; the
// gateway falls back to its own client-order mapping.
type CancelRequest struct {
	ClientOrderID string    `json:"client_order_id"`
	VenueOrderID  string    `json:"venue_order_id,omitempty"`
	Symbol        string    `json:"symbol"`
	Timestamp     time.Time `json:"timestamp"`
}
