package sim

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"assetsim/internal/catalog"
	"assetsim/internal/event"
	"assetsim/internal/observability"
	"assetsim/internal/publish"
	"assetsim/internal/stats"
	"assetsim/internal/telemetry"
)

type workerConfig struct {
	asset     catalog.Asset
	products  []catalog.Product
	mode      *atomic.Int32
	interval  time.Duration
	seed      int64
	publisher *publish.Publisher
	stats     *stats.Aggregator
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// worker runs the per-asset cycle loop: read mode, generate a reading,
// build an event, publish, record stats, sleep. All state here is
// worker-private except the mode cell and the aggregator.
type worker struct {
	workerConfig
	gen     *telemetry.Generator
	batcher *event.Batcher
	rng     *rand.Rand
}

func newWorker(cfg workerConfig) *worker {
	return &worker{
		workerConfig: cfg,
		gen:          telemetry.NewGenerator(cfg.seed),
		batcher:      event.NewBatcher(cfg.asset.ID, cfg.seed),
		rng:          rand.New(rand.NewSource(cfg.seed)),
	}
}

// run loops until the context is cancelled. The inter-cycle sleep is
// interruptible, so shutdown latency is bounded by one cycle, not a
// full sleep plus a cycle.
func (w *worker) run(ctx context.Context) {
	log := w.logger.With(zap.String("asset_id", w.asset.ID))
	log.Info("worker started", zap.String("asset_name", w.asset.Name))

	timer := time.NewTimer(0)
	defer timer.Stop()
	// Drain the immediate first tick so the first cycle runs right away.
	<-timer.C

	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return
		default:
		}

		w.cycle(ctx, log)

		timer.Reset(w.interval)
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return
		case <-timer.C:
		}
	}
}

// cycle produces and delivers exactly one event. A panic in generation
// is recovered and counted: one bad cycle must never terminate the
// asset's simulation.
func (w *worker) cycle(ctx context.Context, log *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			w.stats.RecordError(w.asset.ID)
			log.Error("cycle panicked", zap.Any("panic", r))
		}
	}()

	mode := telemetry.Mode(w.mode.Load())
	reading := w.gen.Generate(mode)
	probability := telemetry.DefectProbability(reading)

	product := w.products[w.rng.Intn(len(w.products))]
	e := event.New(w.asset.ID, product.ID, w.batcher.Next(), time.Now(), reading, probability)

	start := time.Now()
	out := w.publisher.Publish(ctx, e)
	w.metrics.PublishLatency.Observe(time.Since(start).Seconds())

	retries := out.Attempts - 1
	if retries < 0 {
		retries = 0
	}
	w.stats.RecordCycle(w.asset.ID, mode, out.Delivered, retries, time.Now())

	w.metrics.EventsTotal.WithLabelValues(w.asset.ID).Inc()
	if mode == telemetry.ModeAnomaly {
		w.metrics.AnomalyTotal.WithLabelValues(w.asset.ID).Inc()
	}
	if retries > 0 {
		w.metrics.PublishRetries.Add(float64(retries))
	}
	if !out.Delivered {
		w.metrics.PublishFailures.WithLabelValues(w.asset.ID).Inc()
		log.Warn("event not delivered",
			zap.String("event_id", e.ID),
			zap.Error(out.Err))
	}
}
