package bitbank

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/penguinworks/bitbank-gateway/internal/numeric"
	"github.com/penguinworks/bitbank-gateway/internal/observability"
	"github.com/penguinworks/bitbank-gateway/internal/schema"
)

const defaultCurrencyPrecision = 8

// fiatCodes marks quote currencies treated as fiat in the currency catalog.
var fiatCodes = map[string]bool{
	"JPY": true,
	"USD": true,
	"EUR": true,
}

// instrumentResolver maintains the tradable-instrument catalog. It loads
// the venue pair list on connect and falls back to a minimal built-in set
// when the catalog endpoint is unreachable, so subscriptions and order flow
// stay usable.
type instrumentResolver struct {
	provider string
	rest     RestClient

	mu         sync.RWMutex
	bySymbol   map[string]schema.Instrument
	byPair     map[string]schema.Instrument
	currencies map[string]schema.Currency
}

func newInstrumentResolver(provider string, rest RestClient) *instrumentResolver {
	return &instrumentResolver{
		provider:   provider,
		rest:       rest,
		bySymbol:   make(map[string]schema.Instrument),
		byPair:     make(map[string]schema.Instrument),
		currencies: make(map[string]schema.Currency),
	}
}

// load refreshes the catalog from the venue. Pairs that are disabled or
// suspended are skipped. A fetch failure installs the fallback catalog and
// returns nil; the adapter must stay functional without the endpoint.
func (r *instrumentResolver) load(ctx context.Context) error {
	pairs, err := r.rest.GetPairs(ctx)
	if err != nil {
		observability.Log().Warn("pair catalog fetch failed, using fallback instruments",
			observability.F("error", err))
		r.install(fallbackInstruments(r.provider))
		return nil
	}
	instruments := make([]schema.Instrument, 0, len(pairs))
	for _, pair := range pairs {
		if !pair.IsEnabled || pair.IsSuspended {
			continue
		}
		inst, ok := r.instrumentFromPair(pair)
		if !ok {
			observability.Log().Warn("skipping malformed pair record",
				observability.F("pair", pair.Name))
			continue
		}
		instruments = append(instruments, inst)
	}
	if len(instruments) == 0 {
		observability.Log().Warn("pair catalog empty, using fallback instruments")
		instruments = fallbackInstruments(r.provider)
	}
	r.install(instruments)
	return nil
}

func (r *instrumentResolver) instrumentFromPair(pair Pair) (schema.Instrument, bool) {
	symbol := schema.SymbolFromPair(pair.Name)
	if symbol == "" {
		return schema.Instrument{}, false
	}
	minQty := pair.MinAmount
	if minQty == "" {
		minQty = pair.UnitAmount
	}
	return schema.Instrument{
		Symbol:         symbol,
		PairCode:       pair.Name,
		Venue:          r.provider,
		BaseCurrency:   strings.ToUpper(pair.BaseAsset),
		QuoteCurrency:  strings.ToUpper(pair.QuoteAsset),
		PricePrecision: pair.PriceDigits,
		SizePrecision:  pair.AmountDigits,
		PriceIncrement: numeric.StepFromScale(pair.PriceDigits),
		SizeIncrement:  numeric.StepFromScale(pair.AmountDigits),
		MinQuantity:    minQty,
		MaxQuantity:    pair.MaxAmount,
		MakerFeeRate:   pair.MakerFeeRateQuote,
		TakerFeeRate:   pair.TakerFeeRateQuote,
	}, true
}

func (r *instrumentResolver) install(instruments []schema.Instrument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySymbol = make(map[string]schema.Instrument, len(instruments))
	r.byPair = make(map[string]schema.Instrument, len(instruments))
	r.currencies = make(map[string]schema.Currency)
	for _, inst := range instruments {
		r.bySymbol[inst.Symbol] = inst
		r.byPair[inst.PairCode] = inst
		r.registerCurrencyLocked(inst.BaseCurrency, inst.SizePrecision)
		quotePrecision := defaultCurrencyPrecision
		if fiatCodes[inst.QuoteCurrency] {
			quotePrecision = inst.PricePrecision
		}
		r.registerCurrencyLocked(inst.QuoteCurrency, quotePrecision)
	}
}

func (r *instrumentResolver) registerCurrencyLocked(code string, precision int) {
	if code == "" {
		return
	}
	if _, ok := r.currencies[code]; ok {
		return
	}
	r.currencies[code] = schema.Currency{
		Code:      code,
		Precision: precision,
		Fiat:      fiatCodes[code],
	}
}

// findBySymbol resolves an instrument by canonical symbol ("BTC/JPY").
func (r *instrumentResolver) findBySymbol(symbol string) (schema.Instrument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.bySymbol[symbol]
	return inst, ok
}

// findByPair resolves an instrument by venue pair code ("btc_jpy").
func (r *instrumentResolver) findByPair(pair string) (schema.Instrument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.byPair[pair]
	return inst, ok
}

// instruments returns the catalog sorted by symbol.
func (r *instrumentResolver) instruments() []schema.Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schema.Instrument, 0, len(r.bySymbol))
	for _, inst := range r.bySymbol {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// loaded reports whether any catalog has been installed.
func (r *instrumentResolver) loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySymbol) > 0
}

// currencyList returns known currencies sorted by code.
func (r *instrumentResolver) currencyList() []schema.Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schema.Currency, 0, len(r.currencies))
	for _, c := range r.currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// fallbackInstruments covers the most traded pairs so the adapter keeps
// working when the catalog endpoint is down.
func fallbackInstruments(venue string) []schema.Instrument {
	return []schema.Instrument{
		{
			Symbol:         "BTC/JPY",
			PairCode:       "btc_jpy",
			Venue:          venue,
			BaseCurrency:   "BTC",
			QuoteCurrency:  "JPY",
			PricePrecision: 0,
			SizePrecision:  4,
			PriceIncrement: "1",
			SizeIncrement:  "0.0001",
			MinQuantity:    "0.0001",
			MaxQuantity:    "1000",
		},
		{
			Symbol:         "ETH/JPY",
			PairCode:       "eth_jpy",
			Venue:          venue,
			BaseCurrency:   "ETH",
			QuoteCurrency:  "JPY",
			PricePrecision: 0,
			SizePrecision:  4,
			PriceIncrement: "1",
			SizeIncrement:  "0.0001",
			MinQuantity:    "0.0001",
			MaxQuantity:    "10000",
		},
	}
}
