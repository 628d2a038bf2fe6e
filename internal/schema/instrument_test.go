package schema

import "testing"

func TestValidateSymbol(t *testing.T) {
	cases := []struct {
		symbol string
		ok     bool
	}{
		{"BTC/JPY", true},
		{"ETH/JPY", true},
		{"btc/jpy", false},
		{"BTCJPY", false},
		{"BTC/", false},
		{"/JPY", false},
		{"", false},
		{"BTC/JPY/X", false},
	}
	for _, tc := range cases {
		err := ValidateSymbol(tc.symbol)
		if tc.ok && err != nil {
			t.Errorf("ValidateSymbol(%q) unexpected error: %v", tc.symbol, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("ValidateSymbol(%q) expected error", tc.symbol)
		}
	}
}

func TestPairCode(t *testing.T) {
	if got := PairCode("BTC/JPY"); got != "btc_jpy" {
		t.Errorf("expected btc_jpy, got %s", got)
	}
	if got := PairCode("not a symbol"); got != "" {
		t.Errorf("expected empty string for invalid symbol, got %s", got)
	}
}

func TestSymbolFromPair(t *testing.T) {
	if got := SymbolFromPair("btc_jpy"); got != "BTC/JPY" {
		t.Errorf("expected BTC/JPY, got %s", got)
	}
	if got := SymbolFromPair("btcjpy"); got != "" {
		t.Errorf("expected empty string, got %s", got)
	}
	if got := SymbolFromPair("_jpy"); got != "" {
		t.Errorf("expected empty string, got %s", got)
	}
}

func TestBuildEventID(t *testing.T) {
	id := BuildEventID("bitbank", "BTC/JPY", EventTypeQuote, 42)
	if id != "bitbank:BTC/JPY:Quote:42" {
		t.Errorf("unexpected event id %s", id)
	}
}
