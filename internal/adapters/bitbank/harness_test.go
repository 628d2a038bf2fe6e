package bitbank

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/penguinworks/bitbank-gateway/internal/schema"
)

type fakeRestClient struct {
	mu          sync.Mutex
	pairs       []Pair
	pairsErr    error
	assets      []Asset
	assetsErr   error
	orders      map[uint64]Order
	history     map[uint64][]Trade
	historyErr  error
	historyFn   func(orderID uint64) ([]Trade, error)
	createFn    func(CreateOrderParams) (Order, error)
	cancelFn    func(pair string, orderID uint64) (Order, error)
	createCalls []CreateOrderParams
}

func newFakeRestClient() *fakeRestClient {
	return &fakeRestClient{
		pairs:   testPairs(),
		orders:  make(map[uint64]Order),
		history: make(map[uint64][]Trade),
	}
}

func (f *fakeRestClient) GetPairs(context.Context) ([]Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pairsErr != nil {
		return nil, f.pairsErr
	}
	return f.pairs, nil
}

func (f *fakeRestClient) GetTicker(context.Context, string) (Ticker, error) {
	return Ticker{}, fmt.Errorf("not implemented")
}

func (f *fakeRestClient) GetDepth(context.Context, string) (Depth, error) {
	return Depth{}, fmt.Errorf("not implemented")
}

func (f *fakeRestClient) GetAssets(context.Context) ([]Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assetsErr != nil {
		return nil, f.assetsErr
	}
	return f.assets, nil
}

func (f *fakeRestClient) GetOrder(_ context.Context, _ string, orderID uint64) (Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ord, ok := f.orders[orderID]
	if !ok {
		return Order{}, &APIError{Code: 30003}
	}
	return ord, nil
}

func (f *fakeRestClient) GetTradeHistory(_ context.Context, _ string, orderID uint64) ([]Trade, error) {
	f.mu.Lock()
	fn := f.historyFn
	if fn == nil {
		defer f.mu.Unlock()
		if f.historyErr != nil {
			return nil, f.historyErr
		}
		return f.history[orderID], nil
	}
	// The hook may block to simulate a slow venue, so it runs unlocked.
	f.mu.Unlock()
	return fn(orderID)
}

func (f *fakeRestClient) CreateOrder(_ context.Context, params CreateOrderParams) (Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, params)
	if f.createFn != nil {
		return f.createFn(params)
	}
	return Order{}, fmt.Errorf("createFn not set")
}

func (f *fakeRestClient) CancelOrder(_ context.Context, pair string, orderID uint64) (Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelFn != nil {
		return f.cancelFn(pair, orderID)
	}
	return Order{}, fmt.Errorf("cancelFn not set")
}

func (f *fakeRestClient) setOrder(ord Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[ord.OrderID] = ord
}

func (f *fakeRestClient) setHistory(orderID uint64, trades []Trade) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[orderID] = trades
}

func (f *fakeRestClient) lastCreateCall() (CreateOrderParams, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createCalls) == 0 {
		return CreateOrderParams{}, false
	}
	return f.createCalls[len(f.createCalls)-1], true
}

type fakeStreamClient struct {
	mu           sync.Mutex
	connectErrs  []error
	connects     int
	subs         []string
	handler      MessageHandler
	onDisconnect func()
}

func (f *fakeStreamClient) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		return err
	}
	return nil
}

func (f *fakeStreamClient) Close(context.Context) error { return nil }

func (f *fakeStreamClient) Subscribe(_ context.Context, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, channel)
	return nil
}

func (f *fakeStreamClient) SetMessageHandler(handler MessageHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

func (f *fakeStreamClient) SetDisconnectHandler(handler func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDisconnect = handler
}

func (f *fakeStreamClient) push(channel, payload string) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		handler(channel, []byte(payload))
	}
}

func (f *fakeStreamClient) dropConnection() {
	f.mu.Lock()
	handler := f.onDisconnect
	f.mu.Unlock()
	if handler != nil {
		handler()
	}
}

func (f *fakeStreamClient) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeStreamClient) subscriptions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.subs))
	copy(out, f.subs)
	return out
}

func testPairs() []Pair {
	return []Pair{
		{
			Name:              "btc_jpy",
			BaseAsset:         "btc",
			QuoteAsset:        "jpy",
			PriceDigits:       0,
			AmountDigits:      4,
			UnitAmount:        "0.0001",
			MinAmount:         "0.0001",
			MaxAmount:         "1000",
			MakerFeeRateQuote: "-0.0002",
			TakerFeeRateQuote: "0.0012",
			IsEnabled:         true,
		},
		{
			Name:         "eth_jpy",
			BaseAsset:    "eth",
			QuoteAsset:   "jpy",
			PriceDigits:  0,
			AmountDigits: 4,
			MinAmount:    "0.0001",
			MaxAmount:    "10000",
			IsEnabled:    true,
		},
	}
}

func newTestAdapter(t *testing.T, rest *fakeRestClient, stream *fakeStreamClient) *Adapter {
	t.Helper()
	a, err := New(Options{
		Name:              "bitbank",
		Rest:              rest,
		Stream:            stream,
		PollInterval:      5 * time.Millisecond,
		PollErrorInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func connectTestAdapter(t *testing.T, a *Adapter) {
	t.Helper()
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = a.Disconnect(context.Background()) })
}

func waitEvent(t *testing.T, a *Adapter) *schema.Event {
	t.Helper()
	select {
	case evt := <-a.Events():
		if evt == nil {
			t.Fatal("event channel closed")
		}
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func waitEventOfType(t *testing.T, a *Adapter, typ schema.EventType) *schema.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-a.Events():
			if evt == nil {
				t.Fatal("event channel closed")
			}
			if evt.Type == typ {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", typ)
			return nil
		}
	}
}

func btcInstrument() schema.Instrument {
	return schema.Instrument{
		Symbol:         "BTC/JPY",
		PairCode:       "btc_jpy",
		Venue:          "bitbank",
		BaseCurrency:   "BTC",
		QuoteCurrency:  "JPY",
		PricePrecision: 0,
		SizePrecision:  4,
	}
}

func ethInstrument() schema.Instrument {
	return schema.Instrument{
		Symbol:         "ETH/JPY",
		PairCode:       "eth_jpy",
		Venue:          "bitbank",
		BaseCurrency:   "ETH",
		QuoteCurrency:  "JPY",
		PricePrecision: 0,
		SizePrecision:  4,
	}
}
