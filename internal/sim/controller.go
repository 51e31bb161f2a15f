// Package sim owns the simulation lifecycle: one concurrent worker per
// asset, the shared per-asset mode cells, and the control operations
// the console drives.
package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"assetsim/internal/catalog"
	"assetsim/internal/observability"
	"assetsim/internal/publish"
	"assetsim/internal/stats"
	"assetsim/internal/telemetry"
)

// State is the controller lifecycle state.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// ErrNotRunning is returned by control operations outside the Running state.
var ErrNotRunning = fmt.Errorf("simulation is not running")

// Options configures a Controller.
type Options struct {
	Interval   time.Duration // time between cycles per asset
	MaxRuntime time.Duration // 0 = unlimited
	StopGrace  time.Duration // extra wait for workers past one interval
	Seed       int64         // base seed for per-asset generators
}

// Controller creates and owns all asset workers and is the single
// authority for mode changes and shutdown.
type Controller struct {
	catalog   *catalog.Catalog
	publisher *publish.Publisher
	stats     *stats.Aggregator
	metrics   *observability.Metrics
	logger    *zap.Logger
	opts      Options

	state atomic.Int32
	// One mode cell per asset, indexed in catalog order. The slice is
	// never mutated after construction, so workers read their own cell
	// without any lock.
	modes []atomic.Int32

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped chan struct{}
	stopMu  sync.Mutex
	timer   *time.Timer
}

// NewController builds a controller for the given catalog. The catalog
// guarantees non-empty asset and product lists.
func NewController(cat *catalog.Catalog, pub *publish.Publisher, agg *stats.Aggregator, m *observability.Metrics, logger *zap.Logger, opts Options) (*Controller, error) {
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("sim: interval must be positive, got %v", opts.Interval)
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = 2 * time.Second
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	return &Controller{
		catalog:   cat,
		publisher: pub,
		stats:     agg,
		metrics:   m,
		logger:    logger.Named("sim"),
		opts:      opts,
		modes:     make([]atomic.Int32, len(cat.Assets)),
		stopped:   make(chan struct{}),
	}, nil
}

// Start launches one worker per asset, all in Normal mode, and the
// optional max-runtime timer. Valid only once, from the Created state.
// Holds the stop mutex so a concurrent Stop never observes the Running
// state before cancel and timer are in place.
func (c *Controller) Start(ctx context.Context) error {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()

	if !c.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return fmt.Errorf("sim: start from state %s", State(c.state.Load()))
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.stats.MarkStarted(time.Now())

	for i := range c.catalog.Assets {
		w := newWorker(workerConfig{
			asset:     c.catalog.Assets[i],
			products:  c.catalog.Products,
			mode:      &c.modes[i],
			interval:  c.opts.Interval,
			seed:      c.opts.Seed + int64(i),
			publisher: c.publisher,
			stats:     c.stats,
			metrics:   c.metrics,
			logger:    c.logger,
		})
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			w.run(ctx)
		}()
	}

	if c.opts.MaxRuntime > 0 {
		c.timer = time.AfterFunc(c.opts.MaxRuntime, func() {
			c.logger.Info("max runtime reached, stopping",
				zap.Duration("max_runtime", c.opts.MaxRuntime))
			c.Stop()
		})
	}

	c.logger.Info("simulation started",
		zap.Int("assets", len(c.catalog.Assets)),
		zap.Duration("interval", c.opts.Interval))
	return nil
}

// SwitchMode retargets one asset (1-based number) or, with a nil
// target, every asset. An unknown target returns an error without
// mutating any state.
func (c *Controller) SwitchMode(target *int, mode telemetry.Mode) error {
	if State(c.state.Load()) != StateRunning {
		return ErrNotRunning
	}

	if target == nil {
		for i := range c.modes {
			c.modes[i].Store(int32(mode))
		}
		c.stats.SetAllModes(mode)
		c.updateAnomalyGauge()
		c.logger.Info("switched all assets", zap.Stringer("mode", mode))
		return nil
	}

	asset, err := c.catalog.AssetByIndex(*target)
	if err != nil {
		return err
	}
	c.modes[*target-1].Store(int32(mode))
	c.stats.SetMode(asset.ID, mode)
	c.updateAnomalyGauge()
	c.logger.Info("switched asset",
		zap.Int("asset_number", *target),
		zap.String("asset_id", asset.ID),
		zap.Stringer("mode", mode))
	return nil
}

// Stop ends the simulation: workers observe the cancellation, finish
// their current cycle, and exit within one interval plus the grace
// bound. Idempotent; safe to call from any state.
func (c *Controller) Stop() {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()

	switch State(c.state.Load()) {
	case StateStopping, StateStopped:
		return
	case StateCreated:
		c.state.Store(int32(StateStopped))
		c.stats.MarkStopped()
		close(c.stopped)
		return
	}

	c.state.Store(int32(StateStopping))
	c.stats.MarkStopped()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.opts.Interval + c.opts.StopGrace):
		c.logger.Warn("workers did not exit within grace period")
	}

	c.state.Store(int32(StateStopped))
	close(c.stopped)

	snap := c.stats.Snapshot()
	c.logger.Info("simulation stopped",
		zap.Int64("total_events", snap.Global.TotalEventsSent))
}

// Done is closed once the controller reaches the Stopped state.
func (c *Controller) Done() <-chan struct{} {
	return c.stopped
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Snapshot returns a consistent copy of the global and per-asset stats.
// Valid in every state, including Stopped.
func (c *Controller) Snapshot() stats.Snapshot {
	return c.stats.Snapshot()
}

// AssetCount returns the number of simulated assets.
func (c *Controller) AssetCount() int {
	return len(c.catalog.Assets)
}

func (c *Controller) updateAnomalyGauge() {
	count := 0
	for i := range c.modes {
		if telemetry.Mode(c.modes[i].Load()) == telemetry.ModeAnomaly {
			count++
		}
	}
	c.metrics.AnomalyAssets.Set(float64(count))
}
