package bitbank

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverLoadBuildsCatalog(t *testing.T) {
	rest := newFakeRestClient()
	rest.pairs = append(rest.pairs, Pair{
		Name:         "xrp_jpy",
		BaseAsset:    "xrp",
		QuoteAsset:   "jpy",
		PriceDigits:  3,
		AmountDigits: 4,
		IsEnabled:    false,
	})
	r := newInstrumentResolver("bitbank", rest)
	require.NoError(t, r.load(context.Background()))

	instruments := r.instruments()
	require.Len(t, instruments, 2, "disabled pairs must be skipped")

	btc, ok := r.findBySymbol("BTC/JPY")
	require.True(t, ok)
	assert.Equal(t, "btc_jpy", btc.PairCode)
	assert.Equal(t, "BTC", btc.BaseCurrency)
	assert.Equal(t, "JPY", btc.QuoteCurrency)
	assert.Equal(t, 0, btc.PricePrecision)
	assert.Equal(t, 4, btc.SizePrecision)
	assert.Equal(t, "1", btc.PriceIncrement)
	assert.Equal(t, "0.0001", btc.SizeIncrement)
	assert.Equal(t, "0.0001", btc.MinQuantity)
	assert.Equal(t, "1000", btc.MaxQuantity)
	assert.Equal(t, "-0.0002", btc.MakerFeeRate)
	assert.Equal(t, "0.0012", btc.TakerFeeRate)

	byPair, ok := r.findByPair("eth_jpy")
	require.True(t, ok)
	assert.Equal(t, "ETH/JPY", byPair.Symbol)
}

func TestResolverCurrencies(t *testing.T) {
	rest := newFakeRestClient()
	r := newInstrumentResolver("bitbank", rest)
	require.NoError(t, r.load(context.Background()))

	currencies := r.currencyList()
	require.Len(t, currencies, 3)

	byCode := make(map[string]bool)
	for _, c := range currencies {
		byCode[c.Code] = c.Fiat
	}
	assert.True(t, byCode["JPY"], "JPY is fiat")
	assert.False(t, byCode["BTC"])
	assert.False(t, byCode["ETH"])
}

func TestResolverFallbackOnFetchError(t *testing.T) {
	rest := newFakeRestClient()
	rest.pairsErr = fmt.Errorf("venue unavailable")
	r := newInstrumentResolver("bitbank", rest)

	require.NoError(t, r.load(context.Background()), "catalog failure must not break the adapter")
	assert.True(t, r.loaded())
	_, ok := r.findBySymbol("BTC/JPY")
	assert.True(t, ok, "fallback catalog must cover BTC/JPY")
}

func TestResolverFallbackOnEmptyCatalog(t *testing.T) {
	rest := newFakeRestClient()
	rest.pairs = nil
	r := newInstrumentResolver("bitbank", rest)

	require.NoError(t, r.load(context.Background()))
	_, ok := r.findBySymbol("BTC/JPY")
	assert.True(t, ok)
}

func TestResolverSkipsMalformedPairName(t *testing.T) {
	rest := newFakeRestClient()
	rest.pairs = append(rest.pairs, Pair{Name: "nounderscore", IsEnabled: true})
	r := newInstrumentResolver("bitbank", rest)

	require.NoError(t, r.load(context.Background()))
	assert.Len(t, r.instruments(), 2)
}
