package bitbank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penguinworks/bitbank-gateway/internal/schema"
)

var testClock = func() time.Time { return time.Unix(1700000000, 0).UTC() }

func TestParseTickerQuote(t *testing.T) {
	p := newParser("bitbank", 0, testClock)
	payload := []byte(`{"sell":"5100000","buy":"5099000","high":"5200000","low":"5000000","last":"5099500","vol":"12.5","timestamp":1700000000123}`)

	events, err := p.parse(KindTicker, btcInstrument(), payload, testClock())
	require.NoError(t, err)
	require.Len(t, events, 1)

	evt := events[0]
	assert.Equal(t, schema.EventTypeQuote, evt.Type)
	assert.Equal(t, "BTC/JPY", evt.Symbol)
	assert.Equal(t, uint64(1700000000123), evt.Seq)
	assert.Equal(t, "bitbank:BTC/JPY:Quote:1700000000123", evt.EventID)

	quote, ok := evt.Payload.(schema.QuotePayload)
	require.True(t, ok)
	assert.Equal(t, "5099000", quote.BidPrice)
	assert.Equal(t, "5100000", quote.AskPrice)
	assert.Equal(t, "0", quote.BidSize)
	assert.Equal(t, "0", quote.AskSize)
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), quote.Timestamp)
}

func TestParseTickerDropsOneSidedBook(t *testing.T) {
	p := newParser("bitbank", 0, testClock)
	cases := map[string]string{
		"empty buy": `{"sell":"5100000","buy":"","timestamp":1700000000123}`,
		"zero sell": `{"sell":"0","buy":"5099000","timestamp":1700000000123}`,
		"no sides":  `{"timestamp":1700000000123}`,
	}
	for name, payload := range cases {
		events, err := p.parse(KindTicker, btcInstrument(), []byte(payload), testClock())
		require.NoError(t, err, name)
		assert.Empty(t, events, name)
	}
}

func TestParseTickerMalformed(t *testing.T) {
	p := newParser("bitbank", 0, testClock)
	_, err := p.parse(KindTicker, btcInstrument(), []byte(`{"sell":`), testClock())
	assert.Error(t, err)
}

func TestParseTransactions(t *testing.T) {
	p := newParser("bitbank", 0, testClock)
	payload := []byte(`{"transactions":[
		{"transaction_id":101,"side":"buy","price":"5100000","amount":"0.01","executed_at":1700000000100},
		{"transaction_id":102,"side":"sell","price":"5099000","amount":"0.02","executed_at":1700000000200},
		{"transaction_id":103,"side":"buy","price":"","amount":"0.03","executed_at":1700000000300}
	]}`)

	events, err := p.parse(KindTransactions, btcInstrument(), payload, testClock())
	require.NoError(t, err)
	require.Len(t, events, 2, "entry without a price must be skipped")

	first, ok := events[0].Payload.(schema.TradePayload)
	require.True(t, ok)
	assert.Equal(t, "101", first.TradeID)
	assert.Equal(t, schema.TradeSideBuy, first.Side)
	assert.Equal(t, "5100000", first.Price)
	assert.Equal(t, "0.01", first.Quantity)
	assert.Equal(t, uint64(101), events[0].Seq)

	second, ok := events[1].Payload.(schema.TradePayload)
	require.True(t, ok)
	assert.Equal(t, schema.TradeSideSell, second.Side)
}

func TestParseDepthSnapshot(t *testing.T) {
	p := newParser("bitbank", 0, testClock)
	// Levels arrive unsorted; normalization must order asks ascending and
	// bids descending.
	payload := []byte(`{"asks":[["5101000","0.5"],["5100000","1.2"]],"bids":[["5098000","0.7"],["5099000","0.3"]],"timestamp":1700000000500}`)

	events, err := p.parse(KindDepthWhole, btcInstrument(), payload, testClock())
	require.NoError(t, err)
	require.Len(t, events, 1)

	evt := events[0]
	assert.Equal(t, schema.EventTypeBookDelta, evt.Type)
	book, ok := evt.Payload.(schema.BookDeltaPayload)
	require.True(t, ok)
	require.Len(t, book.Deltas, 5, "clear plus two asks plus two bids")

	assert.Equal(t, schema.BookActionClear, book.Deltas[0].Action)

	assert.Equal(t, schema.BookSideAsk, book.Deltas[1].Side)
	assert.Equal(t, "5100000", book.Deltas[1].Price)
	assert.Equal(t, "5101000", book.Deltas[2].Price)

	assert.Equal(t, schema.BookSideBid, book.Deltas[3].Side)
	assert.Equal(t, "5099000", book.Deltas[3].Price)
	assert.Equal(t, "5098000", book.Deltas[4].Price)
}

func TestParseDepthHonorsLevelCap(t *testing.T) {
	p := newParser("bitbank", 1, testClock)
	payload := []byte(`{"asks":[["5101000","0.5"],["5100000","1.2"]],"bids":[["5098000","0.7"],["5099000","0.3"]],"timestamp":1700000000500}`)

	events, err := p.parse(KindDepthWhole, btcInstrument(), payload, testClock())
	require.NoError(t, err)
	book := events[0].Payload.(schema.BookDeltaPayload)
	require.Len(t, book.Deltas, 3)
	assert.Equal(t, "5100000", book.Deltas[1].Price, "cap keeps the best ask")
	assert.Equal(t, "5099000", book.Deltas[2].Price, "cap keeps the best bid")
}

func TestParseDepthSkipsMalformedLevels(t *testing.T) {
	p := newParser("bitbank", 0, testClock)
	payload := []byte(`{"asks":[["5100000"],["5101000","0"],["5102000","1.0"]],"bids":[],"timestamp":1700000000500}`)

	events, err := p.parse(KindDepthWhole, btcInstrument(), payload, testClock())
	require.NoError(t, err)
	book := events[0].Payload.(schema.BookDeltaPayload)
	require.Len(t, book.Deltas, 2)
	assert.Equal(t, "5102000", book.Deltas[1].Price)
}

func TestClassifyChannel(t *testing.T) {
	cases := []struct {
		channel string
		kind    MessageKind
		pair    string
	}{
		{"ticker_btc_jpy", KindTicker, "btc_jpy"},
		{"transactions_eth_jpy", KindTransactions, "eth_jpy"},
		{"depth_whole_btc_jpy", KindDepthWhole, "btc_jpy"},
		{"spot_order", KindOrderUpdate, ""},
		{"spot_order_new", KindOrderUpdate, ""},
		{"spot_trade", KindTradeUpdate, ""},
		{"asset_update", KindAssetUpdate, ""},
		{"candlestick_btc_jpy", KindUnknown, ""},
	}
	for _, tc := range cases {
		kind, pair := ClassifyChannel(tc.channel)
		assert.Equal(t, tc.kind, kind, tc.channel)
		assert.Equal(t, tc.pair, pair, tc.channel)
	}
}
