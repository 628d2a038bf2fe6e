// Package bitbank adapts the bitbank spot exchange to the gateway's
// canonical event and command model. The adapter owns connection
// supervision, market-data normalization, order routing, and fill
// reconciliation; the REST and stream transports are injected.
package bitbank

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"

	"github.com/penguinworks/bitbank-gateway/errs"
	"github.com/penguinworks/bitbank-gateway/internal/observability"
	"github.com/penguinworks/bitbank-gateway/internal/schema"
	"github.com/penguinworks/bitbank-gateway/internal/telemetry"
)

const (
	defaultQueueSize        = 256
	reconnectInitialBackoff = time.Second
	reconnectMaxBackoff     = 60 * time.Second
)

// ConnectionState reports the adapter's view of the stream connection.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Options configures the adapter. Rest and Stream are required; everything
// else has working defaults.
type Options struct {
	// Name is the provider identifier stamped on emitted events.
	Name   string
	Rest   RestClient
	Stream StreamClient

	// DepthLevels caps book snapshots per side; zero keeps every level.
	DepthLevels int
	// QueueSize bounds the inbound stream queue and the event channel.
	QueueSize int

	PollInterval      time.Duration
	PollErrorInterval time.Duration

	// ReconnectInitialBackoff and ReconnectMaxBackoff shape the stream
	// retry schedule; zero values take 1s and 60s.
	ReconnectInitialBackoff time.Duration
	ReconnectMaxBackoff     time.Duration

	// PrivateRateLimit paces authenticated REST calls. Zero disables pacing.
	PrivateRateLimit rate.Limit
	PrivateRateBurst int

	Clock   func() time.Time
	Metrics *telemetry.AdapterMetrics
}

type streamMessage struct {
	channel string
	payload []byte
}

// Adapter is the bitbank connectivity adapter. Create one with New, wire
// subscriptions and orders through it, and consume Events and Errors.
type Adapter struct {
	name   string
	rest   RestClient
	stream StreamClient
	clock  func() time.Time

	events  chan *schema.Event
	errCh   chan error
	inbound chan streamMessage

	registry *subscriptionRegistry
	resolver *instrumentResolver
	parser   *parser
	engine   *reconciler
	limiter  *rate.Limiter
	metrics  *telemetry.AdapterMetrics

	reconnectInitial time.Duration
	reconnectMax     time.Duration

	started atomic.Bool
	closed  atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      conc.WaitGroup

	stateMu      sync.Mutex
	state        ConnectionState
	reconnecting bool
}

// New constructs an adapter from options. It does not touch the network;
// call Connect to go live.
func New(opts Options) (*Adapter, error) {
	if opts.Rest == nil {
		return nil, errs.New(opts.Name, errs.CodeInvalid, errs.WithMessage("rest client required"))
	}
	if opts.Stream == nil {
		return nil, errs.New(opts.Name, errs.CodeInvalid, errs.WithMessage("stream client required"))
	}
	name := opts.Name
	if name == "" {
		name = "bitbank"
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	reconnectInitial := opts.ReconnectInitialBackoff
	if reconnectInitial <= 0 {
		reconnectInitial = reconnectInitialBackoff
	}
	reconnectMax := opts.ReconnectMaxBackoff
	if reconnectMax <= 0 {
		reconnectMax = reconnectMaxBackoff
	}
	var limiter *rate.Limiter
	if opts.PrivateRateLimit > 0 {
		burst := opts.PrivateRateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.PrivateRateLimit, burst)
	}

	a := &Adapter{
		name:     name,
		rest:     opts.Rest,
		stream:   opts.Stream,
		clock:    clock,
		events:   make(chan *schema.Event, queueSize),
		errCh:    make(chan error, queueSize),
		inbound:  make(chan streamMessage, queueSize),
		registry: newSubscriptionRegistry(),
		resolver: newInstrumentResolver(name, opts.Rest),
		parser:   newParser(name, opts.DepthLevels, clock),
		limiter:  limiter,
		metrics:  opts.Metrics,

		reconnectInitial: reconnectInitial,
		reconnectMax:     reconnectMax,
	}
	a.engine = newReconciler(opts.Rest, a.forwardEvent, reconcilerOptions{
		provider:          name,
		pollInterval:      opts.PollInterval,
		pollErrorInterval: opts.PollErrorInterval,
		clock:             clock,
		limiter:           limiter,
		metrics:           opts.Metrics,
	})
	return a, nil
}

// Events returns the canonical event stream. The channel closes after
// Disconnect drains the adapter.
func (a *Adapter) Events() <-chan *schema.Event { return a.events }

// Errors returns asynchronous adapter errors. Best effort: entries are
// dropped when the channel is full.
func (a *Adapter) Errors() <-chan error { return a.errCh }

// State reports the current connection state.
func (a *Adapter) State() ConnectionState {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.state
}

// Connect loads the instrument catalog, establishes the stream with
// backoff, and starts the dispatch loop. It blocks until the first
// connection succeeds or ctx is done. A failed Connect leaves the adapter
// ready for another attempt; after Disconnect it cannot be reused.
func (a *Adapter) Connect(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return errs.New(a.name, errs.CodeInvalid, errs.WithMessage("adapter already connected"))
	}
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.stream.SetMessageHandler(a.enqueue)
	a.stream.SetDisconnectHandler(a.handleDisconnect)

	if err := a.resolver.load(a.ctx); err != nil {
		a.abortConnect()
		return err
	}
	if err := a.establish(a.ctx); err != nil {
		a.abortConnect()
		return err
	}
	a.wg.Go(a.runLoop)
	observability.Log().Info("adapter connected", observability.F("provider", a.name))
	return nil
}

// abortConnect unwinds a failed Connect: the derived context is released
// and the started flag cleared so a later Connect can retry.
func (a *Adapter) abortConnect() {
	a.cancel()
	a.started.Store(false)
}

// Disconnect stops supervision, closes the stream, waits for in-flight
// work, and closes the event channel.
func (a *Adapter) Disconnect(ctx context.Context) error {
	if !a.started.Load() || !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.cancel()
	if err := a.stream.Close(ctx); err != nil {
		observability.Log().Warn("stream close failed", observability.F("error", err))
	}
	a.setState(StateDisconnected)
	a.wg.Wait()
	close(a.events)
	close(a.errCh)
	observability.Log().Info("adapter disconnected", observability.F("provider", a.name))
	return nil
}

// Subscribe registers market-data interest for instruments. Registrations
// are idempotent, survive reconnects, and are replayed in registration
// order after every reconnect.
func (a *Adapter) Subscribe(ctx context.Context, instruments []schema.Instrument) error {
	var firstErr error
	for _, inst := range instruments {
		if err := schema.ValidateSymbol(inst.Symbol); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if inst.PairCode == "" {
			inst.PairCode = schema.PairCode(inst.Symbol)
		}
		channels, added := a.registry.add(inst)
		if !added {
			continue
		}
		if a.State() != StateConnected {
			continue
		}
		for _, channel := range channels {
			if err := a.stream.Subscribe(ctx, channel); err != nil {
				a.emitError(errs.New(a.name, errs.CodeNetwork,
					errs.WithMessage("subscribe failed for "+channel), errs.WithCause(err)))
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			a.metrics.RecordSubscription(ctx, inst.PairCode)
		}
	}
	return firstErr
}

// Unsubscribe drops instruments from the reconnect replay set. The venue
// feed has no unsubscribe frame, so live channels keep delivering until the
// next reconnect; dispatch drops messages for unregistered pairs.
func (a *Adapter) Unsubscribe(ctx context.Context, instruments []schema.Instrument) error {
	for _, inst := range instruments {
		pair := inst.PairCode
		if pair == "" {
			pair = schema.PairCode(inst.Symbol)
		}
		if a.registry.remove(pair) {
			observability.Log().Info("unsubscribed", observability.F("pair", pair))
		}
	}
	return nil
}

// FetchInstruments returns the instrument catalog, loading it on demand.
func (a *Adapter) FetchInstruments(ctx context.Context) ([]schema.Instrument, error) {
	if !a.resolver.loaded() {
		if err := a.resolver.load(ctx); err != nil {
			return nil, err
		}
	}
	return a.resolver.instruments(), nil
}

// Currencies returns the settlement currencies behind the catalog.
func (a *Adapter) Currencies() []schema.Currency {
	return a.resolver.currencyList()
}

// GenerateAccountStatusReports fetches account balances and emits one
// balance event per held currency.
func (a *Adapter) GenerateAccountStatusReports(ctx context.Context) error {
	if !a.started.Load() || a.closed.Load() {
		return errs.New(a.name, errs.CodeInvalid, errs.WithMessage("adapter not connected"))
	}
	if err := waitPrivate(ctx, a.limiter); err != nil {
		return err
	}
	assets, err := a.rest.GetAssets(ctx)
	if err != nil {
		return errs.New(a.name, errs.CodeNetwork,
			errs.WithMessage("asset fetch failed"), errs.WithCause(err))
	}
	now := a.clock().UTC()
	for _, asset := range assets {
		a.emitBalance(asset, now)
	}
	return nil
}

// establish connects the stream, retrying with exponential backoff until
// success or shutdown, then replays registered subscriptions.
func (a *Adapter) establish(ctx context.Context) error {
	a.setState(StateConnecting)
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = a.reconnectInitial
	bo.MaxInterval = a.reconnectMax
	bo.Multiplier = 2
	bo.Reset()

	for {
		if err := ctx.Err(); err != nil {
			a.setState(StateDisconnected)
			return errs.New(a.name, errs.CodeUnavailable,
				errs.WithMessage("connect aborted"), errs.WithCause(err))
		}
		err := a.stream.Connect(ctx)
		if err == nil {
			break
		}
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			wait = a.reconnectMax
		}
		observability.Log().Warn("stream connect failed, backing off",
			observability.F("wait", wait), observability.F("error", err))
		select {
		case <-ctx.Done():
			a.setState(StateDisconnected)
			return errs.New(a.name, errs.CodeUnavailable,
				errs.WithMessage("connect aborted"), errs.WithCause(ctx.Err()))
		case <-time.After(wait):
		}
	}
	a.setState(StateConnected)
	a.replaySubscriptions(ctx)
	return nil
}

// replaySubscriptions re-issues every registered channel subscription in
// registration order. Failures are reported and skipped; the stream stays
// up with whatever subscribed cleanly.
func (a *Adapter) replaySubscriptions(ctx context.Context) {
	for _, channel := range a.registry.replay() {
		if err := a.stream.Subscribe(ctx, channel); err != nil {
			a.emitError(errs.New(a.name, errs.CodeNetwork,
				errs.WithMessage("subscription replay failed for "+channel), errs.WithCause(err)))
			continue
		}
		_, pair := ClassifyChannel(channel)
		a.metrics.RecordSubscription(ctx, pair)
	}
}

// handleDisconnect runs on the transport's goroutine when the stream drops.
// Exactly one reconnect supervisor runs at a time.
func (a *Adapter) handleDisconnect() {
	a.stateMu.Lock()
	a.state = StateDisconnected
	if a.reconnecting || a.ctx == nil || a.ctx.Err() != nil {
		a.stateMu.Unlock()
		return
	}
	a.reconnecting = true
	a.stateMu.Unlock()

	a.wg.Go(func() {
		defer func() {
			a.stateMu.Lock()
			a.reconnecting = false
			a.stateMu.Unlock()
		}()
		a.metrics.RecordReconnect(a.ctx)
		observability.Log().Warn("stream disconnected, reconnecting",
			observability.F("provider", a.name))
		if err := a.establish(a.ctx); err != nil {
			a.emitError(err)
		}
	})
}

func (a *Adapter) setState(state ConnectionState) {
	a.stateMu.Lock()
	a.state = state
	a.stateMu.Unlock()
}

// enqueue hands a raw stream message to the dispatch loop. It runs on the
// transport's goroutine, so the payload is copied and a full queue drops
// the message rather than blocking the socket reader.
func (a *Adapter) enqueue(channel string, payload []byte) {
	buf := make([]byte, len(payload))
	copy(buf, payload)
	select {
	case a.inbound <- streamMessage{channel: channel, payload: buf}:
	default:
		a.metrics.RecordDroppedMessage(context.Background(), channel)
		observability.Log().Warn("inbound queue full, dropping message",
			observability.F("channel", channel))
	}
}

// runLoop is the single dispatch goroutine. All market-data normalization
// and push routing happens here, so per-channel ordering is preserved.
func (a *Adapter) runLoop() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case msg := <-a.inbound:
			a.dispatch(msg)
		}
	}
}

// dispatch routes one inbound message. A panic in a decoder drops the
// message instead of killing the loop.
func (a *Adapter) dispatch(msg streamMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			a.metrics.RecordDroppedMessage(a.ctx, msg.channel)
			observability.Log().Error("panic dispatching stream message",
				observability.F("channel", msg.channel),
				observability.F("panic", rec))
		}
	}()

	kind, pair := ClassifyChannel(msg.channel)
	switch kind {
	case KindTicker, KindTransactions, KindDepthWhole:
		inst, ok := a.registry.instrumentFor(pair)
		if !ok {
			observability.Log().Debug("message for unregistered pair",
				observability.F("channel", msg.channel))
			return
		}
		events, err := a.parser.parse(kind, inst, msg.payload, a.clock().UTC())
		if err != nil {
			a.metrics.RecordDroppedMessage(a.ctx, msg.channel)
			a.emitError(err)
			return
		}
		for _, evt := range events {
			a.forwardEvent(evt)
		}
	case KindOrderUpdate:
		var ord Order
		if err := json.Unmarshal(msg.payload, &ord); err != nil {
			a.metrics.RecordDroppedMessage(a.ctx, msg.channel)
			a.emitError(errs.New(a.name, errs.CodeInvalid,
				errs.WithMessage("malformed order push"), errs.WithCause(err)))
			return
		}
		// The push may race the acceptance response; observePush waits
		// briefly for registration, so it runs off the dispatch loop.
		a.wg.Go(func() { a.engine.observePush(a.ctx, ord) })
	case KindTradeUpdate:
		// Trade pushes duplicate what reconciliation derives from trade
		// history; the order push plus polling already cover them.
		observability.Log().Debug("ignoring trade push", observability.F("channel", msg.channel))
	case KindAssetUpdate:
		var asset Asset
		if err := json.Unmarshal(msg.payload, &asset); err != nil {
			a.metrics.RecordDroppedMessage(a.ctx, msg.channel)
			a.emitError(errs.New(a.name, errs.CodeInvalid,
				errs.WithMessage("malformed asset push"), errs.WithCause(err)))
			return
		}
		a.emitBalance(asset, a.clock().UTC())
	default:
		a.metrics.RecordDroppedMessage(a.ctx, msg.channel)
		observability.Log().Warn("unroutable stream message",
			observability.F("channel", msg.channel))
	}
}

func (a *Adapter) emitBalance(asset Asset, now time.Time) {
	currency := strings.ToUpper(asset.Asset)
	seq := uint64(now.UnixNano())
	evt := &schema.Event{
		EventID:  schema.BuildEventID(a.name, currency, schema.EventTypeBalance, seq),
		Provider: a.name,
		Symbol:   currency,
		Type:     schema.EventTypeBalance,
		Seq:      seq,
		IngestTS: now,
		EmitTS:   now,
		Payload: schema.BalancePayload{
			Currency:  currency,
			Free:      asset.FreeAmount,
			Locked:    asset.LockedAmount,
			Total:     asset.OnhandAmount,
			Timestamp: now,
		},
	}
	a.forwardEvent(evt)
}

// forwardEvent delivers an event to the host, blocking until the host
// consumes it or the adapter shuts down.
func (a *Adapter) forwardEvent(evt *schema.Event) {
	select {
	case <-a.ctx.Done():
	case a.events <- evt:
	}
}

// emitError reports an asynchronous error without blocking.
func (a *Adapter) emitError(err error) {
	if err == nil {
		return
	}
	select {
	case a.errCh <- err:
	default:
		observability.Log().Warn("error channel full, dropping error",
			observability.F("error", err))
	}
}
