package bitbank

import (
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/penguinworks/bitbank-gateway/errs"
	"github.com/penguinworks/bitbank-gateway/internal/numeric"
	"github.com/penguinworks/bitbank-gateway/internal/schema"
)

// parser normalizes raw venue market-data payloads into canonical events.
// It is stateless; every message maps to zero or more events on its own.
type parser struct {
	provider    string
	depthLevels int
	clock       func() time.Time
}

func newParser(provider string, depthLevels int, clock func() time.Time) *parser {
	if clock == nil {
		clock = time.Now
	}
	return &parser{provider: provider, depthLevels: depthLevels, clock: clock}
}

// parse decodes one market-data message. Returning an empty slice with a nil
// error means the message carried nothing publishable (for example a ticker
// with an empty side).
func (p *parser) parse(kind MessageKind, inst schema.Instrument, data []byte, ingest time.Time) ([]*schema.Event, error) {
	switch kind {
	case KindTicker:
		return p.parseTicker(inst, data, ingest)
	case KindTransactions:
		return p.parseTransactions(inst, data, ingest)
	case KindDepthWhole:
		return p.parseDepth(inst, data, ingest)
	default:
		return nil, errs.New(p.provider, errs.CodeInvalid, errs.WithMessage("unroutable message kind"))
	}
}

func (p *parser) parseTicker(inst schema.Instrument, data []byte, ingest time.Time) ([]*schema.Event, error) {
	var msg tickerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errs.New(p.provider, errs.CodeInvalid, errs.WithMessage("malformed ticker payload"), errs.WithCause(err))
	}
	bid, bidOK := positiveDecimal(msg.Buy)
	ask, askOK := positiveDecimal(msg.Sell)
	// A one-sided or empty book is not a quote.
	if !bidOK || !askOK {
		return nil, nil
	}
	evt := p.newEvent(inst.Symbol, schema.EventTypeQuote, uint64(msg.Timestamp), ingest)
	evt.Payload = schema.QuotePayload{
		BidPrice:  bid.String(),
		AskPrice:  ask.String(),
		BidSize:   "0",
		AskSize:   "0",
		Timestamp: time.UnixMilli(msg.Timestamp).UTC(),
	}
	return []*schema.Event{evt}, nil
}

func (p *parser) parseTransactions(inst schema.Instrument, data []byte, ingest time.Time) ([]*schema.Event, error) {
	var msg transactionsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errs.New(p.provider, errs.CodeInvalid, errs.WithMessage("malformed transactions payload"), errs.WithCause(err))
	}
	events := make([]*schema.Event, 0, len(msg.Transactions))
	for _, txn := range msg.Transactions {
		price, priceOK := positiveDecimal(txn.Price)
		amount, amountOK := positiveDecimal(txn.Amount)
		if !priceOK || !amountOK {
			continue
		}
		side := schema.TradeSideSell
		if txn.Side == SideBuy {
			side = schema.TradeSideBuy
		}
		evt := p.newEvent(inst.Symbol, schema.EventTypeTrade, uint64(txn.TransactionID), ingest)
		evt.Payload = schema.TradePayload{
			TradeID:   strconv.FormatInt(txn.TransactionID, 10),
			Side:      side,
			Price:     price.String(),
			Quantity:  amount.String(),
			Timestamp: time.UnixMilli(txn.ExecutedAt).UTC(),
		}
		events = append(events, evt)
	}
	return events, nil
}

func (p *parser) parseDepth(inst schema.Instrument, data []byte, ingest time.Time) ([]*schema.Event, error) {
	var msg depthMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errs.New(p.provider, errs.CodeInvalid, errs.WithMessage("malformed depth payload"), errs.WithCause(err))
	}
	asks := parseLevels(msg.Asks, true, p.depthLevels)
	bids := parseLevels(msg.Bids, false, p.depthLevels)

	deltas := make([]schema.BookDelta, 0, 1+len(asks)+len(bids))
	deltas = append(deltas, schema.BookDelta{Action: schema.BookActionClear})
	for _, lvl := range asks {
		deltas = append(deltas, schema.BookDelta{
			Action:   schema.BookActionAdd,
			Side:     schema.BookSideAsk,
			Price:    lvl.price.String(),
			Quantity: lvl.amount.String(),
		})
	}
	for _, lvl := range bids {
		deltas = append(deltas, schema.BookDelta{
			Action:   schema.BookActionAdd,
			Side:     schema.BookSideBid,
			Price:    lvl.price.String(),
			Quantity: lvl.amount.String(),
		})
	}

	evt := p.newEvent(inst.Symbol, schema.EventTypeBookDelta, uint64(msg.Timestamp), ingest)
	evt.Payload = schema.BookDeltaPayload{
		Deltas:    deltas,
		Timestamp: time.UnixMilli(msg.Timestamp).UTC(),
	}
	return []*schema.Event{evt}, nil
}

func (p *parser) newEvent(symbol string, typ schema.EventType, seq uint64, ingest time.Time) *schema.Event {
	return &schema.Event{
		EventID:  schema.BuildEventID(p.provider, symbol, typ, seq),
		Provider: p.provider,
		Symbol:   symbol,
		Type:     typ,
		Seq:      seq,
		IngestTS: ingest,
		EmitTS:   p.clock().UTC(),
	}
}

type bookLevel struct {
	price  decimal.Decimal
	amount decimal.Decimal
}

// parseLevels converts raw [price, amount] pairs into sorted levels, keeping
// at most limit entries (zero means unbounded). Asks sort ascending, bids
// descending, so the first entries are the tightest prices.
func parseLevels(raw [][]string, ascending bool, limit int) []bookLevel {
	levels := make([]bookLevel, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			continue
		}
		price, priceOK := positiveDecimal(entry[0])
		amount, amountOK := positiveDecimal(entry[1])
		if !priceOK || !amountOK {
			continue
		}
		levels = append(levels, bookLevel{price: price, amount: amount})
	}
	sort.SliceStable(levels, func(i, j int) bool {
		if ascending {
			return levels[i].price.LessThan(levels[j].price)
		}
		return levels[i].price.GreaterThan(levels[j].price)
	})
	if limit > 0 && len(levels) > limit {
		levels = levels[:limit]
	}
	return levels
}

// positiveDecimal parses s and reports whether it is a strictly positive
// decimal value.
func positiveDecimal(s string) (decimal.Decimal, bool) {
	d, ok := numeric.Parse(s)
	if !ok || !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Wire shapes for the realtime market-data channels.

type tickerMessage struct {
	Sell      string `json:"sell"`
	Buy       string `json:"buy"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Last      string `json:"last"`
	Vol       string `json:"vol"`
	Timestamp int64  `json:"timestamp"`
}

type transactionsMessage struct {
	Transactions []transactionRecord `json:"transactions"`
}

type transactionRecord struct {
	TransactionID int64  `json:"transaction_id"`
	Side          string `json:"side"`
	Price         string `json:"price"`
	Amount        string `json:"amount"`
	ExecutedAt    int64  `json:"executed_at"`
}

type depthMessage struct {
	Asks      [][]string `json:"asks"`
	Bids      [][]string `json:"bids"`
	Timestamp int64      `json:"timestamp"`
}
