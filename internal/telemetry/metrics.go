// Package telemetry instruments adapter runtime counters with OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "bitbank-gateway/adapter"

// AdapterMetrics records counters for the adapter's runtime behaviour.
type AdapterMetrics struct {
	reconnects      metric.Int64Counter
	subscriptions   metric.Int64Counter
	droppedMessages metric.Int64Counter
	ordersSubmitted metric.Int64Counter
	ordersRejected  metric.Int64Counter
	fillsEmitted    metric.Int64Counter
	pollErrors      metric.Int64Counter
}

// NewAdapterMetrics builds counters against the provided meter provider.
// A nil provider falls back to the global provider, which is a noop unless
// telemetry has been initialised.
func NewAdapterMetrics(mp metric.MeterProvider) (*AdapterMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	m := new(AdapterMetrics)
	var err error
	if m.reconnects, err = meter.Int64Counter("adapter.reconnects",
		metric.WithDescription("Connection attempts that followed a disconnect")); err != nil {
		return nil, fmt.Errorf("create reconnects counter: %w", err)
	}
	if m.subscriptions, err = meter.Int64Counter("adapter.subscriptions_replayed",
		metric.WithDescription("Channel subscriptions issued, including reconnect replays")); err != nil {
		return nil, fmt.Errorf("create subscriptions counter: %w", err)
	}
	if m.droppedMessages, err = meter.Int64Counter("adapter.dropped_messages",
		metric.WithDescription("Stream messages discarded as malformed or unroutable")); err != nil {
		return nil, fmt.Errorf("create dropped messages counter: %w", err)
	}
	if m.ordersSubmitted, err = meter.Int64Counter("adapter.orders_submitted",
		metric.WithDescription("Orders accepted by the venue")); err != nil {
		return nil, fmt.Errorf("create orders submitted counter: %w", err)
	}
	if m.ordersRejected, err = meter.Int64Counter("adapter.orders_rejected",
		metric.WithDescription("Orders rejected locally or by the venue")); err != nil {
		return nil, fmt.Errorf("create orders rejected counter: %w", err)
	}
	if m.fillsEmitted, err = meter.Int64Counter("adapter.fills_emitted",
		metric.WithDescription("Per-trade fill events emitted by reconciliation")); err != nil {
		return nil, fmt.Errorf("create fills counter: %w", err)
	}
	if m.pollErrors, err = meter.Int64Counter("adapter.poll_errors",
		metric.WithDescription("Transient errors observed by per-order poll loops")); err != nil {
		return nil, fmt.Errorf("create poll errors counter: %w", err)
	}
	return m, nil
}

// RecordReconnect counts one reconnect attempt.
func (m *AdapterMetrics) RecordReconnect(ctx context.Context) {
	if m == nil {
		return
	}
	m.reconnects.Add(ctx, 1)
}

// RecordSubscription counts one channel subscription for the given pair.
func (m *AdapterMetrics) RecordSubscription(ctx context.Context, pair string) {
	if m == nil {
		return
	}
	m.subscriptions.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", pair)))
}

// RecordDroppedMessage counts one discarded stream message for a channel.
func (m *AdapterMetrics) RecordDroppedMessage(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	m.droppedMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", channel)))
}

// RecordOrderSubmitted counts one venue-accepted order.
func (m *AdapterMetrics) RecordOrderSubmitted(ctx context.Context, pair string) {
	if m == nil {
		return
	}
	m.ordersSubmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", pair)))
}

// RecordOrderRejected counts one rejected order.
func (m *AdapterMetrics) RecordOrderRejected(ctx context.Context, pair string) {
	if m == nil {
		return
	}
	m.ordersRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", pair)))
}

// RecordFill counts one emitted fill event.
func (m *AdapterMetrics) RecordFill(ctx context.Context, pair string) {
	if m == nil {
		return
	}
	m.fillsEmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", pair)))
}

// RecordPollError counts one transient poll failure.
func (m *AdapterMetrics) RecordPollError(ctx context.Context) {
	if m == nil {
		return
	}
	m.pollErrors.Add(ctx, 1)
}
