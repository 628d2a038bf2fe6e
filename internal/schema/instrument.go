package schema

import (
	"strings"

	"github.com/penguinworks/bitbank-gateway/errs"
)

// Instrument describes a tradable spot pair on the venue. Instances are
// immutable once registered; consumers reference them by symbol.
type Instrument struct {
	Symbol         string `json:"symbol"`
	PairCode       string `json:"pair_code"`
	Venue          string `json:"venue"`
	BaseCurrency   string `json:"base_currency"`
	QuoteCurrency  string `json:"quote_currency"`
	PricePrecision int    `json:"price_precision"`
	SizePrecision  int    `json:"size_precision"`
	PriceIncrement string `json:"price_increment,omitempty"`
	SizeIncrement  string `json:"size_increment,omitempty"`
	MinQuantity    string `json:"min_quantity,omitempty"`
	MaxQuantity    string `json:"max_quantity,omitempty"`
	MakerFeeRate   string `json:"maker_fee_rate,omitempty"`
	TakerFeeRate   string `json:"taker_fee_rate,omitempty"`
}

// Currency describes a settlement currency known to the host catalog.
type Currency struct {
	Code      string `json:"code"`
	Precision int    `json:"precision"`
	Fiat      bool   `json:"fiat"`
}

// ValidateSymbol verifies the canonical instrument representation (BASE/QUOTE).
func ValidateSymbol(symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return errs.New("schema", errs.CodeInvalid, errs.WithMessage("symbol required"))
	}
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 {
		return errs.New("schema", errs.CodeInvalid, errs.WithMessage("symbol requires base/quote"))
	}
	for _, part := range parts {
		if part == "" {
			return errs.New("schema", errs.CodeInvalid, errs.WithMessage("symbol contains empty leg"))
		}
		if strings.ToUpper(part) != part {
			return errs.New("schema", errs.CodeInvalid, errs.WithMessage("symbol must be uppercase"))
		}
	}
	return nil
}

// PairCode converts a canonical symbol ("BTC/JPY") into the venue pair code
// ("btc_jpy"). Invalid symbols return the empty string.
func PairCode(symbol string) string {
	if ValidateSymbol(symbol) != nil {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(symbol), "/", "_"))
}

// SymbolFromPair converts a venue pair code ("btc_jpy") into the canonical
// symbol ("BTC/JPY"). Codes without exactly one underscore-separated base and
// quote return the empty string.
func SymbolFromPair(pair string) string {
	pair = strings.TrimSpace(pair)
	parts := strings.Split(pair, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return strings.ToUpper(parts[0]) + "/" + strings.ToUpper(parts[1])
}
