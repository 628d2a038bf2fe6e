package bitbank

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/penguinworks/bitbank-gateway/errs"
	"github.com/penguinworks/bitbank-gateway/internal/numeric"
	"github.com/penguinworks/bitbank-gateway/internal/observability"
	"github.com/penguinworks/bitbank-gateway/internal/schema"
)

// SubmitOrder routes a new order to the venue. The outcome surfaces on the
// event stream: Accepted on venue acknowledgement, Rejected with a reason
// otherwise. The returned error covers only context cancellation.
func (a *Adapter) SubmitOrder(ctx context.Context, req schema.OrderRequest) error {
	if !a.started.Load() || a.closed.Load() {
		return errs.New(a.name, errs.CodeInvalid, errs.WithMessage("adapter not connected"))
	}
	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}

	inst, ok := a.resolver.findBySymbol(req.Symbol)
	if !ok {
		a.rejectOrder(ctx, clientOrderID, "", req.Symbol, "unknown instrument "+req.Symbol)
		return nil
	}

	var side string
	switch req.Side {
	case schema.TradeSideBuy:
		side = SideBuy
	case schema.TradeSideSell:
		side = SideSell
	default:
		a.rejectOrder(ctx, clientOrderID, "", req.Symbol, "unsupported side")
		return nil
	}

	params := CreateOrderParams{Pair: inst.PairCode, Side: side}
	switch req.OrderType {
	case schema.OrderTypeLimit:
		if req.Price == nil || *req.Price == "" {
			a.rejectOrder(ctx, clientOrderID, "", req.Symbol, "limit order requires a price")
			return nil
		}
		price, ok := numeric.Parse(*req.Price)
		if !ok || !price.IsPositive() {
			a.rejectOrder(ctx, clientOrderID, "", req.Symbol, "invalid price")
			return nil
		}
		formatted := numeric.Format(price, inst.PricePrecision)
		params.Type = TypeLimit
		params.Price = &formatted
	case schema.OrderTypeMarket:
		params.Type = TypeMarket
	default:
		a.rejectOrder(ctx, clientOrderID, "", req.Symbol, "unsupported order type "+string(req.OrderType))
		return nil
	}

	qty, ok := numeric.Parse(req.Quantity)
	if !ok || !qty.IsPositive() {
		a.rejectOrder(ctx, clientOrderID, "", req.Symbol, "invalid quantity")
		return nil
	}
	params.Amount = numeric.Format(qty, inst.SizePrecision)

	if err := waitPrivate(ctx, a.limiter); err != nil {
		return err
	}
	ord, err := a.rest.CreateOrder(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.rejectOrder(ctx, clientOrderID, "", req.Symbol, a.venueReason(err))
		return nil
	}

	venueOrderID := strconv.FormatUint(ord.OrderID, 10)
	a.emitOrderUpdate(inst.Symbol, schema.OrderUpdatePayload{
		ClientOrderID: clientOrderID,
		VenueOrderID:  venueOrderID,
		State:         schema.OrderStateAccepted,
	})
	a.metrics.RecordOrderSubmitted(ctx, inst.PairCode)
	observability.Log().Info("order accepted",
		observability.F("client_order_id", clientOrderID),
		observability.F("venue_order_id", venueOrderID),
		observability.F("pair", inst.PairCode))

	octx := a.engine.register(clientOrderID, ord, inst)
	a.wg.Go(func() { a.engine.pollLoop(a.ctx, octx) })
	return nil
}

// CancelOrder requests cancellation. The venue order ID comes from the
// request or, failing that, the adapter's own client-order mapping; without
// either the cancel is rejected locally. Success emits Canceled immediately
// and folds the response into reconciliation for any residual fills.
func (a *Adapter) CancelOrder(ctx context.Context, req schema.CancelRequest) error {
	if !a.started.Load() || a.closed.Load() {
		return errs.New(a.name, errs.CodeInvalid, errs.WithMessage("adapter not connected"))
	}
	venueOrderID, ok := a.resolveVenueOrderID(req)
	if !ok {
		a.rejectOrder(ctx, req.ClientOrderID, req.VenueOrderID, req.Symbol,
			"unknown venue order id for cancel")
		return nil
	}

	pair := schema.PairCode(req.Symbol)
	if octx, found := a.engine.lookup(venueOrderID); found {
		pair = octx.instrument.PairCode
	}
	if pair == "" {
		a.rejectOrder(ctx, req.ClientOrderID, req.VenueOrderID, req.Symbol,
			"unknown instrument for cancel")
		return nil
	}

	if err := waitPrivate(ctx, a.limiter); err != nil {
		return err
	}
	ord, err := a.rest.CancelOrder(ctx, pair, venueOrderID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.rejectOrder(ctx, req.ClientOrderID, strconv.FormatUint(venueOrderID, 10),
			req.Symbol, a.venueReason(err))
		return nil
	}

	symbol := req.Symbol
	if symbol == "" {
		symbol = schema.SymbolFromPair(pair)
	}
	a.emitOrderUpdate(symbol, schema.OrderUpdatePayload{
		ClientOrderID: req.ClientOrderID,
		VenueOrderID:  strconv.FormatUint(venueOrderID, 10),
		State:         schema.OrderStateCanceled,
	})
	observability.Log().Info("order canceled",
		observability.F("venue_order_id", venueOrderID),
		observability.F("pair", pair))
	a.engine.finalizeCancel(ctx, ord)
	return nil
}

func (a *Adapter) resolveVenueOrderID(req schema.CancelRequest) (uint64, bool) {
	if req.VenueOrderID != "" {
		id, err := strconv.ParseUint(req.VenueOrderID, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	}
	if req.ClientOrderID != "" {
		return a.engine.venueOrderFor(req.ClientOrderID)
	}
	return 0, false
}

// venueReason maps a submit or cancel failure to a rejection reason,
// preferring the venue error-code table.
func (a *Adapter) venueReason(err error) string {
	if apiErr, ok := AsAPIError(err); ok {
		return errs.FromVenue(a.name, apiErr.Code, apiErr.Message).Message
	}
	return err.Error()
}

func (a *Adapter) rejectOrder(ctx context.Context, clientOrderID, venueOrderID, symbol, reason string) {
	a.emitOrderUpdate(symbol, schema.OrderUpdatePayload{
		ClientOrderID: clientOrderID,
		VenueOrderID:  venueOrderID,
		State:         schema.OrderStateRejected,
		Reason:        reason,
	})
	a.metrics.RecordOrderRejected(ctx, schema.PairCode(symbol))
	observability.Log().Warn("order rejected",
		observability.F("client_order_id", clientOrderID),
		observability.F("symbol", symbol),
		observability.F("reason", reason))
}

func (a *Adapter) emitOrderUpdate(symbol string, payload schema.OrderUpdatePayload) {
	now := a.clock().UTC()
	if payload.Timestamp.IsZero() {
		payload.Timestamp = now
	}
	seq := uint64(now.UnixNano())
	a.forwardEvent(&schema.Event{
		EventID:  schema.BuildEventID(a.name, symbol, schema.EventTypeOrderUpdate, seq),
		Provider: a.name,
		Symbol:   symbol,
		Type:     schema.EventTypeOrderUpdate,
		Seq:      seq,
		IngestTS: now,
		EmitTS:   now,
		Payload:  payload,
	})
}
