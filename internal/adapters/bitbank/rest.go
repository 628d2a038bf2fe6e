package bitbank

import (
	"context"
	"errors"
	"fmt"
)

// RestClient abstracts the authenticated and public REST surface of the
// venue. Implementations own signing, retries at the HTTP layer, and JSON
// envelope unwrapping; venue-level failures surface as *APIError.
type RestClient interface {
	GetPairs(ctx context.Context) ([]Pair, error)
	GetTicker(ctx context.Context, pair string) (Ticker, error)
	GetDepth(ctx context.Context, pair string) (Depth, error)
	GetAssets(ctx context.Context) ([]Asset, error)
	GetOrder(ctx context.Context, pair string, orderID uint64) (Order, error)
	GetTradeHistory(ctx context.Context, pair string, orderID uint64) ([]Trade, error)
	CreateOrder(ctx context.Context, params CreateOrderParams) (Order, error)
	CancelOrder(ctx context.Context, pair string, orderID uint64) (Order, error)
}

// APIError carries a venue error code returned inside a REST response
// envelope.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("bitbank api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("bitbank api error %d", e.Code)
}

// AsAPIError unwraps a venue error from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// CreateOrderParams describes a new order submission. Price is nil for
// market orders.
type CreateOrderParams struct {
	Pair   string
	Amount string
	Price  *string
	Side   string
	Type   string
}

// Venue order sides and types as they appear on the wire.
const (
	SideBuy  = "buy"
	SideSell = "sell"

	TypeLimit  = "limit"
	TypeMarket = "market"
)

// Venue order statuses.
const (
	StatusUnfilled                = "UNFILLED"
	StatusPartiallyFilled         = "PARTIALLY_FILLED"
	StatusFullyFilled             = "FULLY_FILLED"
	StatusCanceledUnfilled        = "CANCELED_UNFILLED"
	StatusCanceledPartiallyFilled = "CANCELED_PARTIALLY_FILLED"
)

// IsCanceledStatus reports whether status is one of the cancellation
// terminal states.
func IsCanceledStatus(status string) bool {
	return status == StatusCanceledUnfilled || status == StatusCanceledPartiallyFilled
}

// IsTerminalStatus reports whether status ends the order's lifecycle.
func IsTerminalStatus(status string) bool {
	return status == StatusFullyFilled || IsCanceledStatus(status)
}

// Order is the venue order record shared by the REST order endpoints and
// the private push feed. Amount fields are decimal strings; Price is absent
// for market orders. OrderedAt is Unix milliseconds.
type Order struct {
	OrderID         uint64  `json:"order_id"`
	Pair            string  `json:"pair"`
	Side            string  `json:"side"`
	Type            string  `json:"type"`
	StartAmount     string  `json:"start_amount"`
	RemainingAmount string  `json:"remaining_amount"`
	ExecutedAmount  string  `json:"executed_amount"`
	Price           *string `json:"price,omitempty"`
	AveragePrice    string  `json:"average_price"`
	OrderedAt       int64   `json:"ordered_at"`
	Status          string  `json:"status"`
}

// Trade is one execution leg from the private trade-history endpoint.
// MakerTaker is "maker", "taker", or empty when the venue omits it.
type Trade struct {
	TradeID        uint64 `json:"trade_id"`
	OrderID        uint64 `json:"order_id"`
	Pair           string `json:"pair"`
	Side           string `json:"side"`
	Type           string `json:"type"`
	Amount         string `json:"amount"`
	Price          string `json:"price"`
	MakerTaker     string `json:"maker_taker"`
	FeeAmountBase  string `json:"fee_amount_base"`
	FeeAmountQuote string `json:"fee_amount_quote"`
	ExecutedAt     int64  `json:"executed_at"`
}

// Ticker is the public top-of-book snapshot. Timestamp is Unix milliseconds.
type Ticker struct {
	Sell      string `json:"sell"`
	Buy       string `json:"buy"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Last      string `json:"last"`
	Vol       string `json:"vol"`
	Timestamp int64  `json:"timestamp"`
}

// Depth is the public full order-book snapshot. Levels are [price, amount]
// string pairs, asks ascending and bids descending.
type Depth struct {
	Asks      [][]string `json:"asks"`
	Bids      [][]string `json:"bids"`
	Timestamp int64      `json:"timestamp"`
}

// Pair describes one tradable pair from the pairs catalog.
type Pair struct {
	Name              string `json:"name"`
	BaseAsset         string `json:"base_asset"`
	QuoteAsset        string `json:"quote_asset"`
	PriceDigits       int    `json:"price_digits"`
	AmountDigits      int    `json:"amount_digits"`
	UnitAmount        string `json:"unit_amount"`
	MinAmount         string `json:"limit_min_amount"`
	MaxAmount         string `json:"limit_max_amount"`
	MakerFeeRateQuote string `json:"maker_fee_rate_quote"`
	TakerFeeRateQuote string `json:"taker_fee_rate_quote"`
	IsEnabled         bool   `json:"is_enabled"`
	IsSuspended       bool   `json:"is_stop_sell"`
}

// Asset is one account balance entry.
type Asset struct {
	Asset           string `json:"asset"`
	AmountPrecision int    `json:"amount_precision"`
	OnhandAmount    string `json:"onhand_amount"`
	LockedAmount    string `json:"locked_amount"`
	FreeAmount      string `json:"free_amount"`
}
