package bitbank

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/penguinworks/bitbank-gateway/errs"
	"github.com/penguinworks/bitbank-gateway/internal/numeric"
	"github.com/penguinworks/bitbank-gateway/internal/observability"
	"github.com/penguinworks/bitbank-gateway/internal/schema"
	"github.com/penguinworks/bitbank-gateway/internal/telemetry"
	"golang.org/x/time/rate"
)

const (
	defaultPollInterval      = 2 * time.Second
	defaultPollErrorInterval = 5 * time.Second
	defaultPushRetryAttempts = 10
	defaultPushRetryDelay    = 100 * time.Millisecond
)

// orderContext tracks reconciliation state for one live order. The executed
// watermark records how much filled quantity has already been reported to
// the host; reported holds the trade IDs behind it. The mutex serializes
// push, poll, and cancel observations of this order only.
type orderContext struct {
	clientOrderID string
	venueOrderID  uint64
	instrument    schema.Instrument
	side          schema.TradeSide

	mu       sync.Mutex
	executed decimal.Decimal
	reported map[uint64]struct{}
	terminal bool
	done     chan struct{}
}

// reconcilerOptions tunes the reconciliation engine. Zero values take the
// defaults above.
type reconcilerOptions struct {
	provider          string
	pollInterval      time.Duration
	pollErrorInterval time.Duration
	pushRetryAttempts int
	pushRetryDelay    time.Duration
	clock             func() time.Time
	limiter           *rate.Limiter
	metrics           *telemetry.AdapterMetrics
}

// reconciler merges push and poll order observations into exactly-once fill
// events. The engine mutex guards only the lookup maps; each order carries
// its own mutex, so a slow trade-history fetch for one order never stalls
// reconciliation of the others.
type reconciler struct {
	rest RestClient
	emit func(*schema.Event)
	opts reconcilerOptions

	mu       sync.Mutex
	orders   map[uint64]*orderContext
	byClient map[string]uint64
}

func newReconciler(rest RestClient, emit func(*schema.Event), opts reconcilerOptions) *reconciler {
	if opts.pollInterval <= 0 {
		opts.pollInterval = defaultPollInterval
	}
	if opts.pollErrorInterval <= 0 {
		opts.pollErrorInterval = defaultPollErrorInterval
	}
	if opts.pushRetryAttempts <= 0 {
		opts.pushRetryAttempts = defaultPushRetryAttempts
	}
	if opts.pushRetryDelay <= 0 {
		opts.pushRetryDelay = defaultPushRetryDelay
	}
	if opts.clock == nil {
		opts.clock = time.Now
	}
	return &reconciler{
		rest:     rest,
		emit:     emit,
		opts:     opts,
		orders:   make(map[uint64]*orderContext),
		byClient: make(map[string]uint64),
	}
}

// register adds a freshly accepted order to the engine. The executed
// watermark starts at whatever the acceptance response already reported.
func (r *reconciler) register(clientOrderID string, ord Order, inst schema.Instrument) *orderContext {
	executed, ok := numeric.Parse(ord.ExecutedAmount)
	if !ok {
		executed = decimal.Zero
	}
	side := schema.TradeSideSell
	if ord.Side == SideBuy {
		side = schema.TradeSideBuy
	}
	octx := &orderContext{
		clientOrderID: clientOrderID,
		venueOrderID:  ord.OrderID,
		instrument:    inst,
		side:          side,
		executed:      executed,
		reported:      make(map[uint64]struct{}),
		done:          make(chan struct{}),
	}
	r.mu.Lock()
	r.orders[ord.OrderID] = octx
	r.byClient[clientOrderID] = ord.OrderID
	r.mu.Unlock()
	return octx
}

// venueOrderFor resolves the venue order ID a client order ID maps to.
func (r *reconciler) venueOrderFor(clientOrderID string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byClient[clientOrderID]
	return id, ok
}

func (r *reconciler) lookup(venueOrderID uint64) (*orderContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	octx, ok := r.orders[venueOrderID]
	return octx, ok
}

// observe reconciles one order record against local state. Unknown venue
// order IDs are an error; push delivery uses observePush for its bounded
// wait instead.
func (r *reconciler) observe(ctx context.Context, ord Order) error {
	octx, ok := r.lookup(ord.OrderID)
	if !ok {
		return errs.New(r.opts.provider, errs.CodeNotFound,
			errs.WithMessage("order observation for unknown venue order "+strconv.FormatUint(ord.OrderID, 10)))
	}
	return r.reconcile(ctx, octx, ord, false)
}

// observePush handles an order record arriving on the private push feed.
// The push can beat the acceptance response that registers the order, so
// unknown IDs get a bounded wait before the record is dropped.
func (r *reconciler) observePush(ctx context.Context, ord Order) {
	for attempt := 0; attempt < r.opts.pushRetryAttempts; attempt++ {
		if octx, ok := r.lookup(ord.OrderID); ok {
			if err := r.reconcile(ctx, octx, ord, false); err != nil {
				observability.Log().Warn("push reconciliation deferred",
					observability.F("venue_order_id", ord.OrderID),
					observability.F("error", err))
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.opts.pushRetryDelay):
		}
	}
	observability.Log().Warn("dropping push for unknown order",
		observability.F("venue_order_id", ord.OrderID),
		observability.F("status", ord.Status))
}

// finalizeCancel reconciles the cancellation response for any residual
// fills and marks the order terminal without emitting a second canceled
// event; the order gateway already emitted one.
func (r *reconciler) finalizeCancel(ctx context.Context, ord Order) {
	octx, ok := r.lookup(ord.OrderID)
	if !ok {
		return
	}
	octx.mu.Lock()
	defer octx.mu.Unlock()
	if err := r.reconcileLocked(ctx, octx, ord, true); err != nil {
		observability.Log().Warn("cancel reconciliation deferred",
			observability.F("venue_order_id", ord.OrderID),
			observability.F("error", err))
	}
	octx.markTerminal()
}

// reconcile runs one reconciliation pass under the order's own mutex.
func (r *reconciler) reconcile(ctx context.Context, octx *orderContext, ord Order, suppressCancel bool) error {
	octx.mu.Lock()
	defer octx.mu.Unlock()
	return r.reconcileLocked(ctx, octx, ord, suppressCancel)
}

// reconcileLocked is the single reconciliation pass. Caller holds octx.mu.
//
// When the observed cumulative executed amount exceeds the watermark, the
// pass fetches fresh trade history, emits one fill per unreported leg, and
// advances the watermark only by what those legs account for. A pass that
// finds no new legs leaves the watermark untouched so a later pass retries;
// fills are never synthesized from amount deltas alone.
func (r *reconciler) reconcileLocked(ctx context.Context, octx *orderContext, ord Order, suppressCancel bool) error {
	observed, ok := numeric.Parse(ord.ExecutedAmount)
	if !ok {
		observed = decimal.Zero
	}
	if observed.GreaterThan(octx.executed) {
		if err := waitPrivate(ctx, r.opts.limiter); err != nil {
			return err
		}
		history, err := r.rest.GetTradeHistory(ctx, octx.instrument.PairCode, octx.venueOrderID)
		if err != nil {
			return errs.New(r.opts.provider, errs.CodeNetwork,
				errs.WithMessage("trade history fetch failed"), errs.WithCause(err))
		}
		legs := make([]Trade, 0, len(history))
		for _, trade := range history {
			if _, seen := octx.reported[trade.TradeID]; seen {
				continue
			}
			legs = append(legs, trade)
		}
		sort.Slice(legs, func(i, j int) bool { return legs[i].TradeID < legs[j].TradeID })

		if len(legs) == 0 {
			observability.Log().Debug("executed amount ahead of trade history, retrying next pass",
				observability.F("venue_order_id", octx.venueOrderID),
				observability.F("observed", ord.ExecutedAmount),
				observability.F("watermark", octx.executed))
		} else {
			delta := observed.Sub(octx.executed)
			covered := decimal.Zero
			for _, leg := range legs {
				r.emitFill(octx, leg)
				octx.reported[leg.TradeID] = struct{}{}
				if qty, ok := numeric.Parse(leg.Amount); ok {
					covered = covered.Add(qty)
				}
			}
			// The watermark tracks the leg quantities actually emitted, so a
			// stale observation can never pin it below them; a shortfall
			// advances it only by what was reported.
			if covered.GreaterThanOrEqual(delta) {
				octx.executed = decimal.Max(observed, octx.executed.Add(covered))
			} else {
				octx.executed = octx.executed.Add(covered)
			}
		}
	}

	switch {
	case IsCanceledStatus(ord.Status):
		if !octx.terminal {
			if !suppressCancel {
				r.emitCanceled(octx)
			}
			octx.markTerminal()
		}
	case ord.Status == StatusFullyFilled:
		// Terminal only once the watermark caught up; a FULLY_FILLED record
		// whose legs are still missing must keep the poll loop alive.
		if !octx.terminal && octx.executed.GreaterThanOrEqual(observed) {
			octx.markTerminal()
		}
	}
	return nil
}

func (r *reconciler) emitFill(octx *orderContext, leg Trade) {
	liquidity := schema.LiquidityUnknown
	switch leg.MakerTaker {
	case "maker":
		liquidity = schema.LiquidityMaker
	case "taker":
		liquidity = schema.LiquidityTaker
	}
	evt := &schema.Event{
		EventID:  schema.BuildEventID(r.opts.provider, octx.instrument.Symbol, schema.EventTypeFill, leg.TradeID),
		Provider: r.opts.provider,
		Symbol:   octx.instrument.Symbol,
		Type:     schema.EventTypeFill,
		Seq:      leg.TradeID,
		IngestTS: r.opts.clock().UTC(),
		EmitTS:   r.opts.clock().UTC(),
		Payload: schema.FillPayload{
			ClientOrderID:      octx.clientOrderID,
			VenueOrderID:       strconv.FormatUint(octx.venueOrderID, 10),
			TradeID:            strconv.FormatUint(leg.TradeID, 10),
			Side:               octx.side,
			Price:              leg.Price,
			Quantity:           leg.Amount,
			Commission:         leg.FeeAmountQuote,
			CommissionCurrency: octx.instrument.QuoteCurrency,
			Liquidity:          liquidity,
			Timestamp:          time.UnixMilli(leg.ExecutedAt).UTC(),
		},
	}
	r.emit(evt)
	r.opts.metrics.RecordFill(context.Background(), octx.instrument.PairCode)
}

func (r *reconciler) emitCanceled(octx *orderContext) {
	now := r.opts.clock().UTC()
	seq := uint64(now.UnixNano())
	evt := &schema.Event{
		EventID:  schema.BuildEventID(r.opts.provider, octx.instrument.Symbol, schema.EventTypeOrderUpdate, seq),
		Provider: r.opts.provider,
		Symbol:   octx.instrument.Symbol,
		Type:     schema.EventTypeOrderUpdate,
		Seq:      seq,
		IngestTS: now,
		EmitTS:   now,
		Payload: schema.OrderUpdatePayload{
			ClientOrderID: octx.clientOrderID,
			VenueOrderID:  strconv.FormatUint(octx.venueOrderID, 10),
			State:         schema.OrderStateCanceled,
			Timestamp:     now,
		},
	}
	r.emit(evt)
}

// markTerminal is idempotent. Caller holds octx.mu.
func (octx *orderContext) markTerminal() {
	if octx.terminal {
		return
	}
	octx.terminal = true
	close(octx.done)
}

// pollLoop polls one order until it reaches a terminal state or the adapter
// shuts down. Transient failures stretch the next poll to the error
// interval.
func (r *reconciler) pollLoop(ctx context.Context, octx *orderContext) {
	interval := r.opts.pollInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-octx.done:
			return
		case <-timer.C:
		}

		interval = r.opts.pollInterval
		if err := r.pollOnce(ctx, octx); err != nil {
			if ctx.Err() != nil {
				return
			}
			interval = r.opts.pollErrorInterval
			r.opts.metrics.RecordPollError(ctx)
			observability.Log().Warn("order poll failed",
				observability.F("venue_order_id", octx.venueOrderID),
				observability.F("error", err))
		}
		timer.Reset(interval)
	}
}

func (r *reconciler) pollOnce(ctx context.Context, octx *orderContext) error {
	if err := waitPrivate(ctx, r.opts.limiter); err != nil {
		return err
	}
	ord, err := r.rest.GetOrder(ctx, octx.instrument.PairCode, octx.venueOrderID)
	if err != nil {
		return err
	}
	return r.observe(ctx, ord)
}

func waitPrivate(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
