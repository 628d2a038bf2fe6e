package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New("bitbank", CodeInvalid, WithMessage("test message"))

	if err == nil {
		t.Fatal("expected non-nil error")
	}

	errStr := err.Error()
	if errStr == "" {
		t.Error("expected non-empty error string")
	}
	if !strings.Contains(errStr, "bitbank") {
		t.Error("expected exchange in error string")
	}
}

func TestErrorString(t *testing.T) {
	err := New("bitbank", CodeNotFound, WithMessage("order not found"), WithVenueCode(30003))

	str := err.Error()
	if !strings.Contains(str, "order not found") {
		t.Error("expected message in error string")
	}
	if !strings.Contains(str, "30003") {
		t.Error("expected venue code in error string")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := New("bitbank", CodeNetwork, WithCause(cause))

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestFromVenueKnownCodes(t *testing.T) {
	cases := []struct {
		code     int
		wantCode Code
		wantMsg  string
	}{
		{10001, CodeRateLimited, "rate limit exceeded"},
		{20001, CodeAuth, "authentication failed"},
		{20004, CodeInvalid, "invalid price"},
		{30001, CodeInvalid, "insufficient balance"},
		{30003, CodeNotFound, "order not found"},
		{40001, CodeUnavailable, "pair is paused"},
		{60001, CodeInvalid, "insufficient funds"},
	}
	for _, tc := range cases {
		err := FromVenue("bitbank", tc.code, "raw")
		if err.Code != tc.wantCode {
			t.Errorf("code %d: expected %s, got %s", tc.code, tc.wantCode, err.Code)
		}
		if err.Message != tc.wantMsg {
			t.Errorf("code %d: expected message %q, got %q", tc.code, tc.wantMsg, err.Message)
		}
		if err.VenueCode != tc.code {
			t.Errorf("code %d: venue code not preserved", tc.code)
		}
	}
}

func TestFromVenueUnknownCodePassesThroughRaw(t *testing.T) {
	err := FromVenue("bitbank", 99999, "mystery failure")
	if err.Code != CodeExchange {
		t.Errorf("expected %s, got %s", CodeExchange, err.Code)
	}
	if err.Message != "mystery failure" {
		t.Errorf("expected raw message passthrough, got %q", err.Message)
	}
}
