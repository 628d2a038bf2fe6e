// Command gateway runs the bitbank adapter against a simulated transport
// and prints the canonical event stream. It exists for local smoke runs
// and as a wiring reference for host frameworks embedding the adapter.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/penguinworks/bitbank-gateway/config"
	"github.com/penguinworks/bitbank-gateway/internal/adapters/bitbank"
	"github.com/penguinworks/bitbank-gateway/internal/adapters/fake"
	"github.com/penguinworks/bitbank-gateway/internal/observability"
	"github.com/penguinworks/bitbank-gateway/internal/schema"
	"github.com/penguinworks/bitbank-gateway/internal/telemetry"
	libtelemetry "github.com/penguinworks/bitbank-gateway/lib/telemetry"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	runFor := flag.Duration("run-for", 0, "exit after this duration (0 runs until interrupted)")
	flag.Parse()

	logger := observability.NewStdLogger(os.Stderr)
	observability.SetLogger(logger)

	if err := run(*configPath, *runFor); err != nil {
		logger.Error("gateway failed", observability.F("error", err))
		os.Exit(1)
	}
}

func run(configPath string, runFor time.Duration) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = config.FromEnv(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if runFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runFor)
		defer cancel()
	}

	providers, telemetryShutdown, err := libtelemetry.Init(ctx, libtelemetry.Config{
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ExportInterval: cfg.Telemetry.ExportInterval,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := telemetryShutdown(shutdownCtx); err != nil {
			observability.Log().Warn("telemetry shutdown failed", observability.F("error", err))
		}
	}()

	metrics, err := telemetry.NewAdapterMetrics(providers.MeterProvider)
	if err != nil {
		return err
	}

	rest := fake.NewRest()
	stream := fake.NewStream(time.Second)
	adapter, err := bitbank.New(bitbank.Options{
		Name:              "bitbank",
		Rest:              rest,
		Stream:            stream,
		DepthLevels:       cfg.Bitbank.DepthLevels,
		QueueSize:         cfg.Bitbank.EventQueueSize,
		PollInterval:      cfg.Bitbank.PollInterval,
		PollErrorInterval: cfg.Bitbank.PollErrorInterval,
		PrivateRateLimit:  rate.Limit(float64(cfg.Bitbank.PrivateRatePerMin) / 60),
		PrivateRateBurst:  cfg.Bitbank.PrivateRateBurst,
		Metrics:           metrics,
	})
	if err != nil {
		return err
	}

	if err := adapter.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = adapter.Disconnect(shutdownCtx)
	}()

	instruments, err := adapter.FetchInstruments(ctx)
	if err != nil {
		return err
	}
	if err := adapter.Subscribe(ctx, instruments); err != nil {
		return err
	}
	if err := adapter.GenerateAccountStatusReports(ctx); err != nil {
		observability.Log().Warn("account snapshot failed", observability.F("error", err))
	}

	go drainErrors(ctx, adapter)
	printEvents(ctx, adapter)
	return nil
}

func printEvents(ctx context.Context, adapter *bitbank.Adapter) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-adapter.Events():
			if !ok {
				return
			}
			printEvent(evt)
		}
	}
}

func printEvent(evt *schema.Event) {
	switch payload := evt.Payload.(type) {
	case schema.QuotePayload:
		fmt.Printf("%s quote %s bid=%s ask=%s\n", evt.EmitTS.Format(time.RFC3339), evt.Symbol, payload.BidPrice, payload.AskPrice)
	case schema.TradePayload:
		fmt.Printf("%s trade %s %s %s@%s\n", evt.EmitTS.Format(time.RFC3339), evt.Symbol, payload.Side, payload.Quantity, payload.Price)
	case schema.BookDeltaPayload:
		fmt.Printf("%s book %s deltas=%d\n", evt.EmitTS.Format(time.RFC3339), evt.Symbol, len(payload.Deltas))
	case schema.OrderUpdatePayload:
		fmt.Printf("%s order %s %s client=%s venue=%s reason=%q\n",
			evt.EmitTS.Format(time.RFC3339), evt.Symbol, payload.State, payload.ClientOrderID, payload.VenueOrderID, payload.Reason)
	case schema.FillPayload:
		fmt.Printf("%s fill %s trade=%s %s@%s fee=%s %s\n",
			evt.EmitTS.Format(time.RFC3339), evt.Symbol, payload.TradeID, payload.Quantity, payload.Price, payload.Commission, payload.Liquidity)
	case schema.BalancePayload:
		fmt.Printf("%s balance %s free=%s locked=%s\n", evt.EmitTS.Format(time.RFC3339), payload.Currency, payload.Free, payload.Locked)
	default:
		fmt.Printf("%s %s %s\n", evt.EmitTS.Format(time.RFC3339), evt.Type, evt.Symbol)
	}
}

func drainErrors(ctx context.Context, adapter *bitbank.Adapter) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-adapter.Errors():
			if !ok {
				return
			}
			observability.Log().Warn("adapter error", observability.F("error", err))
		}
	}
}
