// Package schema defines the canonical event types delivered to the host framework.
package schema

import (
	"fmt"
	"time"
)

// Event represents a canonical event emitted by the adapter.
type Event struct {
	EventID  string    `json:"event_id"`
	Provider string    `json:"provider"`
	Symbol   string    `json:"symbol"`
	Type     EventType `json:"type"`
	Seq      uint64    `json:"seq"`
	IngestTS time.Time `json:"ingest_ts"`
	EmitTS   time.Time `json:"emit_ts"`
	Payload  any       `json:"payload"`
}

// EventType enumerates canonical event categories.
type EventType string

const (
	// EventTypeQuote identifies top-of-book quote ticks.
	EventTypeQuote EventType = "Quote"
	// EventTypeTrade identifies public trade ticks.
	EventTypeTrade EventType = "Trade"
	// EventTypeBookDelta identifies order-book delta batches.
	EventTypeBookDelta EventType = "BookDelta"
	// EventTypeOrderUpdate identifies order lifecycle transitions.
	EventTypeOrderUpdate EventType = "OrderUpdate"
	// EventTypeFill identifies per-trade fill executions.
	EventTypeFill EventType = "Fill"
	// EventTypeBalance identifies account balance state.
	EventTypeBalance EventType = "Balance"
)

// BuildEventID constructs the default idempotency key for an event.
func BuildEventID(provider, symbol string, typ EventType, seq uint64) string {
	return fmt.Sprintf("%s:%s:%s:%d", provider, symbol, string(typ), seq)
}

// QuotePayload conveys a top-of-book quote tick. Sizes are zero when the
// venue ticker does not publish them.
type QuotePayload struct {
	BidPrice  string    `json:"bid_price"`
	AskPrice  string    `json:"ask_price"`
	BidSize   string    `json:"bid_size"`
	AskSize   string    `json:"ask_size"`
	Timestamp time.Time `json:"timestamp"`
}

// TradeSide captures the direction of a trade.
type TradeSide string

const (
	// TradeSideBuy indicates buy side aggression or buy orders.
	TradeSideBuy TradeSide = "Buy"
	// TradeSideSell indicates sell side aggression or sell orders.
	TradeSideSell TradeSide = "Sell"
)

// TradePayload represents an executed public trade.
type TradePayload struct {
	TradeID   string    `json:"trade_id"`
	Side      TradeSide `json:"side"`
	Price     string    `json:"price"`
	Quantity  string    `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}

// BookAction identifies a single order-book delta operation.
type BookAction string

const (
	// BookActionClear removes all resting levels before a rebuild.
	BookActionClear BookAction = "Clear"
	// BookActionAdd inserts one price level.
	BookActionAdd BookAction = "Add"
)

// BookSide identifies which side of the book a delta applies to.
type BookSide string

const (
	// BookSideBid marks bid-side levels.
	BookSideBid BookSide = "Bid"
	// BookSideAsk marks ask-side levels.
	BookSideAsk BookSide = "Ask"
)

// BookDelta describes one order-book mutation.
type BookDelta struct {
	Action   BookAction `json:"action"`
	Side     BookSide   `json:"side,omitempty"`
	Price    string     `json:"price,omitempty"`
	Quantity string     `json:"quantity,omitempty"`
}

// BookDeltaPayload conveys an atomic batch of order-book deltas. A batch
// beginning with Clear fully replaces previous book state.
type BookDeltaPayload struct {
	Deltas    []BookDelta `json:"deltas"`
	Timestamp time.Time   `json:"timestamp"`
}

// OrderState enumerates order lifecycle transitions surfaced to the host.
type OrderState string

const (
	// OrderStateAccepted indicates venue acknowledgement of a new order.
	OrderStateAccepted OrderState = "Accepted"
	// OrderStateRejected indicates local or venue rejection.
	OrderStateRejected OrderState = "Rejected"
	// OrderStateCanceled indicates cancellation, full or partial.
	OrderStateCanceled OrderState = "Canceled"
)

// OrderUpdatePayload represents a non-fill order lifecycle transition.
type OrderUpdatePayload struct {
	ClientOrderID string     `json:"client_order_id"`
	VenueOrderID  string     `json:"venue_order_id,omitempty"`
	State         OrderState `json:"state"`
	Reason        string     `json:"reason,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Liquidity identifies the maker/taker role of a fill leg.
type Liquidity string

const (
	// LiquidityMaker marks resting-order executions.
	LiquidityMaker Liquidity = "Maker"
	// LiquidityTaker marks aggressing-order executions.
	LiquidityTaker Liquidity = "Taker"
	// LiquidityUnknown marks legs whose role the venue did not report.
	LiquidityUnknown Liquidity = "Unknown"
)

// FillPayload represents one trade leg contributing to an order's executed
// quantity. Commission is denominated in the instrument's quote currency.
type FillPayload struct {
	ClientOrderID      string    `json:"client_order_id"`
	VenueOrderID       string    `json:"venue_order_id"`
	TradeID            string    `json:"trade_id"`
	Side               TradeSide `json:"side"`
	Price              string    `json:"price"`
	Quantity           string    `json:"quantity"`
	Commission         string    `json:"commission"`
	CommissionCurrency string    `json:"commission_currency"`
	Liquidity          Liquidity `json:"liquidity"`
	Timestamp          time.Time `json:"timestamp"`
}

// BalancePayload conveys one currency's account balance state.
type BalancePayload struct {
	Currency  string    `json:"currency"`
	Free      string    `json:"free"`
	Locked    string    `json:"locked"`
	Total     string    `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}
