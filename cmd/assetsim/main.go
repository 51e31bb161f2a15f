// Command assetsim runs the manufacturing asset telemetry simulator.
//
// Usage:
//
//	assetsim [flags]
//
// Flags:
//
//	-config       Path to YAML config file (optional)
//	-interval     Event generation interval per asset
//	-max-runtime  Stop automatically after this duration (0 = run until stopped)
//	-assets       Path to the assets CSV file
//	-products     Path to the products CSV file
//	-seed         Random seed (0 = time-based)
//	-metrics-addr Prometheus exposition address (empty = disabled)
//	-log-level    Log level: debug, info, warn, error
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"assetsim/internal/catalog"
	"assetsim/internal/config"
	"assetsim/internal/console"
	"assetsim/internal/observability"
	"assetsim/internal/publish"
	"assetsim/internal/sim"
	"assetsim/internal/sink"
	"assetsim/internal/stats"
)

const (
	ExitSuccess = 0
	ExitError   = 2
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	interval := flag.Duration("interval", 0, "event generation interval per asset")
	maxRuntime := flag.Duration("max-runtime", 0, "stop automatically after this duration (0 = run until stopped)")
	assetsCSV := flag.String("assets", "", "path to assets CSV file")
	productsCSV := flag.String("products", "", "path to products CSV file")
	seed := flag.Int64("seed", 0, "random seed (0 = time-based)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus exposition address (empty = disabled)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}

	// CLI flags override config file values.
	if *interval > 0 {
		cfg.Interval = *interval
	}
	if *maxRuntime > 0 {
		cfg.MaxRuntime = *maxRuntime
	}
	if *assetsCSV != "" {
		cfg.AssetsCSV = *assetsCSV
	}
	if *productsCSV != "" {
		cfg.ProductsCSV = *productsCSV
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("simulator failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}

func run(cfg *config.Config, logger *zap.Logger) error {
	assets, err := catalog.LoadAssets(cfg.AssetsCSV)
	if err != nil {
		return fmt.Errorf("loading assets: %w", err)
	}
	products, err := catalog.LoadProducts(cfg.ProductsCSV)
	if err != nil {
		return fmt.Errorf("loading products: %w", err)
	}
	cat, err := catalog.New(assets, products)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded",
		zap.Int("assets", len(cat.Assets)),
		zap.Int("products", len(cat.Products)))

	eventSink, closeSink, err := buildSink(cfg)
	if err != nil {
		return err
	}
	if closeSink != nil {
		defer closeSink()
	}

	pub := publish.NewPublisher(eventSink, publish.Options{
		MaxAttempts:    cfg.Publish.MaxAttempts,
		InitialBackoff: cfg.Publish.InitialBackoff,
		MaxBackoff:     cfg.Publish.MaxBackoff,
		RateLimit:      cfg.Publish.RateLimit,
	}, logger)

	ids := make([]string, len(cat.Assets))
	names := make([]string, len(cat.Assets))
	for i, a := range cat.Assets {
		ids[i] = a.ID
		names[i] = a.Name
	}
	agg := stats.NewAggregator(ids, names)

	metrics := observability.NewMetrics()
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
		logger.Info("metrics server listening", zap.String("addr", cfg.Metrics.Addr))
	}

	ctrl, err := sim.NewController(cat, pub, agg, metrics, logger, sim.Options{
		Interval:   cfg.Interval,
		MaxRuntime: cfg.MaxRuntime,
		Seed:       cfg.Seed,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nreceived interrupt signal, shutting down...")
		ctrl.Stop()
	}()

	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	logger.Info("simulation started",
		zap.Int("assets", ctrl.AssetCount()),
		zap.Duration("interval", cfg.Interval))

	con := console.New(ctrl, os.Stdout, logger)
	con.Run(ctx, os.Stdin)

	// Console returns on stop command, EOF, or controller shutdown. Make
	// sure the workers are stopped either way before the final summary.
	ctrl.Stop()
	<-ctrl.Done()

	printSummary(os.Stdout, ctrl.Snapshot())
	return nil
}

// buildSink constructs the configured sink adapter. The returned close
// function is nil when the sink holds no resources.
func buildSink(cfg *config.Config) (publish.Sink, func() error, error) {
	switch cfg.Sink.Type {
	case "http":
		return sink.NewHTTPSink(cfg.Sink.Endpoint, cfg.Sink.Timeout), nil, nil
	case "kafka":
		k := sink.NewKafkaSink(cfg.Sink.Brokers, cfg.Sink.Topic)
		return k, k.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported sink type %q", cfg.Sink.Type)
	}
}

func printSummary(out *os.File, snap stats.Snapshot) {
	elapsed := time.Duration(0)
	if !snap.Global.StartTime.IsZero() {
		elapsed = time.Since(snap.Global.StartTime).Round(100 * time.Millisecond)
	}

	var anomalies, errors int64
	for _, rec := range snap.Assets {
		anomalies += rec.AnomalyEventsSent
		errors += rec.ErrorCount
	}

	fmt.Fprintln(out, "\nFINAL SUMMARY")
	fmt.Fprintf(out, "  Runtime:       %v\n", elapsed)
	fmt.Fprintf(out, "  Total events:  %d (normal: %d, anomalies: %d)\n",
		snap.Global.TotalEventsSent, snap.Global.TotalEventsSent-anomalies, anomalies)
	fmt.Fprintf(out, "  Failed events: %d\n", errors)
	if secs := elapsed.Seconds(); secs > 0 {
		fmt.Fprintf(out, "  Events/sec:    %.2f\n", float64(snap.Global.TotalEventsSent)/secs)
	}
}
