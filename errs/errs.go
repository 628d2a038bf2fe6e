// Package errs provides structured error types shared across the gateway.
package errs

import (
	"strconv"
	"strings"
)

// Code identifies an error category raised by the adapter or the venue.
type Code string

const (
	// CodeRateLimited indicates that the request exceeded venue rate limits.
	CodeRateLimited Code = "rate_limited"
	// CodeAuth indicates authentication or authorization errors.
	CodeAuth Code = "auth"
	// CodeInvalid indicates invalid input provided by the caller.
	CodeInvalid Code = "invalid_request"
	// CodeExchange indicates a venue-side failure.
	CodeExchange Code = "exchange_error"
	// CodeNetwork indicates a network transport failure.
	CodeNetwork Code = "network"
	// CodeNotFound indicates a missing resource.
	CodeNotFound Code = "not_found"
	// CodeUnavailable indicates the venue is temporarily unavailable.
	CodeUnavailable Code = "unavailable"
)

// E captures structured error information produced across the gateway.
type E struct {
	Exchange  string
	Code      Code
	VenueCode int
	RawMsg    string
	Message   string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the exchange and error code.
func New(exchange string, code Code, opts ...Option) *E {
	e := &E{
		Exchange: strings.TrimSpace(exchange),
		Code:     code,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithVenueCode captures the raw venue error code.
func WithVenueCode(code int) Option {
	return func(e *E) {
		e.VenueCode = code
	}
}

// WithRawMessage captures the raw venue error message.
func WithRawMessage(msg string) Option {
	return func(e *E) {
		e.RawMsg = msg
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	exchange := strings.TrimSpace(e.Exchange)
	if exchange == "" {
		exchange = "unknown"
	}
	parts = append(parts, "exchange="+exchange)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.VenueCode != 0 {
		parts = append(parts, "venue_code="+strconv.Itoa(e.VenueCode))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.RawMsg != "" {
		parts = append(parts, "raw_msg="+strconv.Quote(e.RawMsg))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// venueReasons maps bitbank error codes to human-readable rejection reasons.
var venueReasons = map[int]string{
	10000: "URL not found",
	10001: "rate limit exceeded",
	10002: "invalid API key",
	10003: "invalid API nonce",
	10005: "invalid signature",
	10007: "request timed out",
	20001: "authentication failed",
	20002: "invalid pair",
	20003: "invalid amount",
	20004: "invalid price",
	20005: "invalid order ID",
	20012: "unsupported order type",
	20013: "market orders are forbidden",
	30001: "insufficient balance",
	30003: "order not found",
	30004: "cannot cancel filled order",
	40001: "pair is paused",
	60001: "insufficient funds",
	60003: "exceed maximum amount",
	60004: "exceed maximum order value",
}

// VenueReason returns the human-readable reason for a bitbank error code.
// The second result reports whether the code is in the fixed table.
func VenueReason(code int) (string, bool) {
	reason, ok := venueReasons[code]
	return reason, ok
}

// classify buckets a bitbank error code into an adapter error category.
func classify(code int) Code {
	switch code {
	case 10001:
		return CodeRateLimited
	case 10002, 10003, 10005, 20001:
		return CodeAuth
	case 20002, 20003, 20004, 20005, 20012, 20013, 60003, 60004:
		return CodeInvalid
	case 30001, 60001:
		return CodeInvalid
	case 30003:
		return CodeNotFound
	case 40001:
		return CodeUnavailable
	default:
		return CodeExchange
	}
}

// FromVenue wraps a raw bitbank error code and message into an envelope,
// attaching the table reason when the code is recognised. Unclassified codes
// pass through with the raw venue message.
func FromVenue(exchange string, code int, rawMsg string) *E {
	opts := []Option{WithVenueCode(code), WithRawMessage(rawMsg)}
	if reason, ok := VenueReason(code); ok {
		opts = append(opts, WithMessage(reason))
	} else {
		opts = append(opts, WithMessage(rawMsg))
	}
	return New(exchange, classify(code), opts...)
}
