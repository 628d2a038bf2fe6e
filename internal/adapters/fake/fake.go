// Package fake provides in-memory REST and stream transports for local
// runs and integration-style tests. The simulator serves a small static
// catalog and replays synthetic market data for subscribed channels.
package fake

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/penguinworks/bitbank-gateway/internal/adapters/bitbank"
)

// Rest is an in-memory bitbank.RestClient. Orders fill fully on the first
// poll with a single synthetic trade leg.
type Rest struct {
	mu         sync.Mutex
	nextOrder  uint64
	nextTrade  uint64
	orders     map[uint64]bitbank.Order
	trades     map[uint64][]bitbank.Trade
	lastPrices map[string]string
}

// NewRest constructs the REST simulator.
func NewRest() *Rest {
	return &Rest{
		nextOrder:  1,
		nextTrade:  1,
		orders:     make(map[uint64]bitbank.Order),
		trades:     make(map[uint64][]bitbank.Trade),
		lastPrices: map[string]string{"btc_jpy": "5100000", "eth_jpy": "500000"},
	}
}

func (r *Rest) GetPairs(context.Context) ([]bitbank.Pair, error) {
	return []bitbank.Pair{
		{
			Name: "btc_jpy", BaseAsset: "btc", QuoteAsset: "jpy",
			PriceDigits: 0, AmountDigits: 4,
			MinAmount: "0.0001", MaxAmount: "1000",
			MakerFeeRateQuote: "-0.0002", TakerFeeRateQuote: "0.0012",
			IsEnabled: true,
		},
		{
			Name: "eth_jpy", BaseAsset: "eth", QuoteAsset: "jpy",
			PriceDigits: 0, AmountDigits: 4,
			MinAmount: "0.0001", MaxAmount: "10000",
			IsEnabled: true,
		},
	}, nil
}

func (r *Rest) GetTicker(_ context.Context, pair string) (bitbank.Ticker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	price, ok := r.lastPrices[pair]
	if !ok {
		return bitbank.Ticker{}, &bitbank.APIError{Code: 20002}
	}
	return bitbank.Ticker{
		Sell: price, Buy: price, Last: price,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (r *Rest) GetDepth(_ context.Context, pair string) (bitbank.Depth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	price, ok := r.lastPrices[pair]
	if !ok {
		return bitbank.Depth{}, &bitbank.APIError{Code: 20002}
	}
	return bitbank.Depth{
		Asks:      [][]string{{price, "1.0"}},
		Bids:      [][]string{{price, "1.0"}},
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (r *Rest) GetAssets(context.Context) ([]bitbank.Asset, error) {
	return []bitbank.Asset{
		{Asset: "jpy", AmountPrecision: 4, OnhandAmount: "1000000", LockedAmount: "0", FreeAmount: "1000000"},
		{Asset: "btc", AmountPrecision: 8, OnhandAmount: "1", LockedAmount: "0", FreeAmount: "1"},
	}, nil
}

func (r *Rest) GetOrder(_ context.Context, _ string, orderID uint64) (bitbank.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ord, ok := r.orders[orderID]
	if !ok {
		return bitbank.Order{}, &bitbank.APIError{Code: 30003}
	}
	return ord, nil
}

func (r *Rest) GetTradeHistory(_ context.Context, _ string, orderID uint64) ([]bitbank.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trades[orderID], nil
}

func (r *Rest) CreateOrder(_ context.Context, params bitbank.CreateOrderParams) (bitbank.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	price, ok := r.lastPrices[params.Pair]
	if !ok {
		return bitbank.Order{}, &bitbank.APIError{Code: 20002}
	}
	if params.Price != nil {
		price = *params.Price
	}
	orderID := r.nextOrder
	r.nextOrder++
	tradeID := r.nextTrade
	r.nextTrade++
	now := time.Now().UnixMilli()

	ord := bitbank.Order{
		OrderID:         orderID,
		Pair:            params.Pair,
		Side:            params.Side,
		Type:            params.Type,
		StartAmount:     params.Amount,
		RemainingAmount: "0",
		ExecutedAmount:  params.Amount,
		Price:           params.Price,
		AveragePrice:    price,
		OrderedAt:       now,
		Status:          bitbank.StatusFullyFilled,
	}
	r.orders[orderID] = ord
	r.trades[orderID] = []bitbank.Trade{{
		TradeID:        tradeID,
		OrderID:        orderID,
		Pair:           params.Pair,
		Side:           params.Side,
		Type:           params.Type,
		Amount:         params.Amount,
		Price:          price,
		MakerTaker:     "taker",
		FeeAmountQuote: "0",
		ExecutedAt:     now,
	}}
	return ord, nil
}

func (r *Rest) CancelOrder(_ context.Context, _ string, orderID uint64) (bitbank.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ord, ok := r.orders[orderID]
	if !ok {
		return bitbank.Order{}, &bitbank.APIError{Code: 30003}
	}
	if ord.Status == bitbank.StatusFullyFilled {
		return bitbank.Order{}, &bitbank.APIError{Code: 30004}
	}
	ord.Status = bitbank.StatusCanceledUnfilled
	r.orders[orderID] = ord
	return ord, nil
}

// Stream is an in-memory bitbank.StreamClient that replays synthetic
// ticker, transactions, and depth messages for subscribed channels.
type Stream struct {
	interval time.Duration

	mu           sync.Mutex
	handler      bitbank.MessageHandler
	onDisconnect func()
	channels     []string
	cancel       context.CancelFunc
	tick         int
}

// NewStream constructs the stream simulator emitting one message per
// subscribed channel every interval.
func NewStream(interval time.Duration) *Stream {
	if interval <= 0 {
		interval = time.Second
	}
	return &Stream{interval: interval}
}

func (s *Stream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("already connected")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(runCtx)
	return nil
}

func (s *Stream) Close(context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (s *Stream) Subscribe(_ context.Context, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.channels {
		if existing == channel {
			return nil
		}
	}
	s.channels = append(s.channels, channel)
	return nil
}

func (s *Stream) SetMessageHandler(handler bitbank.MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

func (s *Stream) SetDisconnectHandler(handler func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnect = handler
}

// DropConnection simulates a transport-level disconnect.
func (s *Stream) DropConnection() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	handler := s.onDisconnect
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if handler != nil {
		handler()
	}
}

func (s *Stream) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.emitAll()
		}
	}
}

func (s *Stream) emitAll() {
	s.mu.Lock()
	handler := s.handler
	channels := make([]string, len(s.channels))
	copy(channels, s.channels)
	s.tick++
	tick := s.tick
	s.mu.Unlock()
	if handler == nil {
		return
	}
	for _, channel := range channels {
		payload, ok := syntheticPayload(channel, tick)
		if ok {
			handler(channel, payload)
		}
	}
}

// syntheticPayload renders a plausible message for a channel; prices walk a
// slow sine around a per-pair base.
func syntheticPayload(channel string, tick int) ([]byte, bool) {
	kind, pair := bitbank.ClassifyChannel(channel)
	base := 5100000.0
	if pair == "eth_jpy" {
		base = 500000.0
	}
	mid := base + 1000*math.Sin(float64(tick)/10)
	now := time.Now().UnixMilli()
	bid := strconv.FormatFloat(mid-500, 'f', 0, 64)
	ask := strconv.FormatFloat(mid+500, 'f', 0, 64)

	var payload any
	switch kind {
	case bitbank.KindTicker:
		payload = map[string]any{
			"sell": ask, "buy": bid, "last": bid,
			"high": ask, "low": bid, "vol": "12.5",
			"timestamp": now,
		}
	case bitbank.KindTransactions:
		side := "buy"
		if tick%2 == 0 {
			side = "sell"
		}
		payload = map[string]any{
			"transactions": []map[string]any{{
				"transaction_id": now,
				"side":           side,
				"price":          bid,
				"amount":         "0.01",
				"executed_at":    now,
			}},
		}
	case bitbank.KindDepthWhole:
		payload = map[string]any{
			"asks":      [][]string{{ask, "1.2"}, {strconv.FormatFloat(mid+1000, 'f', 0, 64), "0.8"}},
			"bids":      [][]string{{bid, "0.9"}, {strconv.FormatFloat(mid-1000, 'f', 0, 64), "1.5"}},
			"timestamp": now,
		}
	default:
		return nil, false
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	return data, true
}
