package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"assetsim/internal/sim"
	"assetsim/internal/stats"
	"assetsim/internal/telemetry"
)

// Console reads operator commands from an input stream and dispatches
// them through the controller's typed API. It runs independently of the
// worker loops and never blocks them.
type Console struct {
	ctrl   *sim.Controller
	out    io.Writer
	logger *zap.Logger
}

// New creates a console writing human-readable responses to out.
func New(ctrl *sim.Controller, out io.Writer, logger *zap.Logger) *Console {
	return &Console{ctrl: ctrl, out: out, logger: logger.Named("console")}
}

// Run reads lines from in until EOF, the context is cancelled, or a
// stop command arrives. A stop command stops the controller.
func (c *Console) Run(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.printHelp()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ctrl.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if stop := c.Dispatch(Parse(line)); stop {
				return
			}
		}
	}
}

// Dispatch executes one parsed command. Returns true when the command
// ends the session.
func (c *Console) Dispatch(cmd Command) bool {
	switch cmd.Kind {
	case KindEmpty:
		return false
	case KindSwitchMode:
		if err := c.ctrl.SwitchMode(cmd.Target, cmd.Mode); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			return false
		}
		if cmd.Target != nil {
			fmt.Fprintf(c.out, "switched asset #%d to %s mode\n", *cmd.Target, cmd.Mode)
		} else {
			fmt.Fprintf(c.out, "switched all assets to %s mode\n", cmd.Mode)
		}
	case KindStatus:
		c.printStatus(c.ctrl.Snapshot())
	case KindStats:
		c.printStats(c.ctrl.Snapshot())
	case KindHelp:
		c.printHelp()
	case KindStop:
		fmt.Fprintln(c.out, "stopping simulation...")
		c.ctrl.Stop()
		return true
	case KindInvalid:
		c.logger.Debug("rejected command", zap.String("reason", cmd.Reason))
		fmt.Fprintf(c.out, "error: %s (type 'help' for available commands)\n", cmd.Reason)
	}
	return false
}

func (c *Console) printStatus(snap stats.Snapshot) {
	elapsed := time.Duration(0)
	if !snap.Global.StartTime.IsZero() {
		elapsed = time.Since(snap.Global.StartTime).Round(100 * time.Millisecond)
	}

	anomalyAssets := 0
	var totalAnomalies int64
	for _, rec := range snap.Assets {
		if rec.CurrentMode == telemetry.ModeAnomaly {
			anomalyAssets++
		}
		totalAnomalies += rec.AnomalyEventsSent
	}

	fmt.Fprintln(c.out, "SIMULATION STATUS")
	fmt.Fprintf(c.out, "  Runtime:        %v\n", elapsed)
	fmt.Fprintf(c.out, "  Running:        %v\n", snap.Global.Running)
	fmt.Fprintf(c.out, "  Active assets:  %d (%d in anomaly mode)\n", len(snap.Assets), anomalyAssets)
	fmt.Fprintf(c.out, "  Total events:   %d (normal: %d, anomalies: %d)\n",
		snap.Global.TotalEventsSent, snap.Global.TotalEventsSent-totalAnomalies, totalAnomalies)
	if secs := elapsed.Seconds(); secs > 0 {
		fmt.Fprintf(c.out, "  Events/sec:     %.2f\n", float64(snap.Global.TotalEventsSent)/secs)
	}
	for i, rec := range snap.Assets {
		if rec.CurrentMode == telemetry.ModeAnomaly {
			fmt.Fprintf(c.out, "  anomaly: #%d %s\n", i+1, rec.AssetName)
		}
	}
}

func (c *Console) printStats(snap stats.Snapshot) {
	fmt.Fprintln(c.out, "DETAILED STATISTICS")
	fmt.Fprintf(c.out, "  %-3s %-22s %-8s %-8s %-8s %-8s %-8s\n",
		"#", "Asset", "Mode", "Total", "Normal", "Anomaly", "Errors")
	for i, rec := range snap.Assets {
		normal := rec.EventsSent - rec.AnomalyEventsSent
		fmt.Fprintf(c.out, "  %-3d %-22s %-8s %-8d %-8d %-8d %-8d\n",
			i+1, rec.AssetName, rec.CurrentMode, rec.EventsSent, normal,
			rec.AnomalyEventsSent, rec.ErrorCount)
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, "AVAILABLE COMMANDS")
	fmt.Fprintln(c.out, "  anomaly [#], a [#]   switch to anomaly mode (all or asset #)")
	fmt.Fprintln(c.out, "  normal [#], n [#]    switch to normal mode (all or asset #)")
	fmt.Fprintln(c.out, "  status, s            show current simulation status")
	fmt.Fprintln(c.out, "  stats                show detailed per-asset statistics")
	fmt.Fprintln(c.out, "  help, h, ?           show this help")
	fmt.Fprintln(c.out, "  stop, q              stop the simulation")
}
