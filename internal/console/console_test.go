package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"assetsim/internal/catalog"
	"assetsim/internal/observability"
	"assetsim/internal/publish"
	"assetsim/internal/sim"
	"assetsim/internal/sink"
	"assetsim/internal/stats"
	"assetsim/internal/telemetry"
)

func TestParse(t *testing.T) {
	one := 1
	three := 3

	tests := []struct {
		line string
		want Command
	}{
		{"", Command{Kind: KindEmpty}},
		{"   ", Command{Kind: KindEmpty}},
		{"anomaly", Command{Kind: KindSwitchMode, Mode: telemetry.ModeAnomaly}},
		{"ANOMALY 3", Command{Kind: KindSwitchMode, Mode: telemetry.ModeAnomaly, Target: &three}},
		{"a 1", Command{Kind: KindSwitchMode, Mode: telemetry.ModeAnomaly, Target: &one}},
		{"normal", Command{Kind: KindSwitchMode, Mode: telemetry.ModeNormal}},
		{"n 1", Command{Kind: KindSwitchMode, Mode: telemetry.ModeNormal, Target: &one}},
		{"status", Command{Kind: KindStatus}},
		{"s", Command{Kind: KindStatus}},
		{"stats", Command{Kind: KindStats}},
		{"statistics", Command{Kind: KindStats}},
		{"help", Command{Kind: KindHelp}},
		{"h", Command{Kind: KindHelp}},
		{"?", Command{Kind: KindHelp}},
		{"stop", Command{Kind: KindStop}},
		{"q", Command{Kind: KindStop}},
		{"quit", Command{Kind: KindStop}},
		{"exit", Command{Kind: KindStop}},
	}

	for _, tt := range tests {
		got := Parse(tt.line)
		assert.Equal(t, tt.want.Kind, got.Kind, "line %q", tt.line)
		assert.Equal(t, tt.want.Mode, got.Mode, "line %q", tt.line)
		if tt.want.Target == nil {
			assert.Nil(t, got.Target, "line %q", tt.line)
		} else {
			require.NotNil(t, got.Target, "line %q", tt.line)
			assert.Equal(t, *tt.want.Target, *got.Target, "line %q", tt.line)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, line := range []string{"bogus", "anomaly x", "a 1 2", "n one"} {
		got := Parse(line)
		assert.Equal(t, KindInvalid, got.Kind, "line %q", line)
		assert.NotEmpty(t, got.Reason, "line %q", line)
	}
}

func newTestConsole(t *testing.T) (*Console, *sim.Controller, *bytes.Buffer) {
	t.Helper()
	cat, err := catalog.New(
		[]catalog.Asset{
			{ID: "A_1000", Name: "Robotic Arm Alpha"},
			{ID: "A_1001", Name: "Press Beta"},
		},
		[]catalog.Product{{ID: "P_2000"}},
	)
	require.NoError(t, err)

	pub := publish.NewPublisher(sink.NewMemorySink(), publish.Options{
		InitialBackoff: time.Millisecond,
	}, zap.NewNop())
	agg := stats.NewAggregator([]string{"A_1000", "A_1001"}, []string{"Robotic Arm Alpha", "Press Beta"})

	ctrl, err := sim.NewController(cat, pub, agg, observability.NewMetrics(), zap.NewNop(),
		sim.Options{Interval: 20 * time.Millisecond, StopGrace: time.Second, Seed: 1})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return New(ctrl, out, zap.NewNop()), ctrl, out
}

func TestDispatch_SwitchMode(t *testing.T) {
	c, ctrl, out := newTestConsole(t)
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Stop()

	one := 1
	c.Dispatch(Command{Kind: KindSwitchMode, Mode: telemetry.ModeAnomaly, Target: &one})
	assert.Contains(t, out.String(), "switched asset #1 to ANOMALY mode")

	snap := ctrl.Snapshot()
	assert.Equal(t, telemetry.ModeAnomaly, snap.Assets[0].CurrentMode)
	assert.Equal(t, telemetry.ModeNormal, snap.Assets[1].CurrentMode)
}

func TestDispatch_UnknownAssetRejected(t *testing.T) {
	c, ctrl, out := newTestConsole(t)
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Stop()

	nine := 9
	c.Dispatch(Command{Kind: KindSwitchMode, Mode: telemetry.ModeAnomaly, Target: &nine})
	assert.Contains(t, out.String(), "error:")

	for _, rec := range ctrl.Snapshot().Assets {
		assert.Equal(t, telemetry.ModeNormal, rec.CurrentMode)
	}
}

func TestDispatch_StatusAndStats(t *testing.T) {
	c, ctrl, out := newTestConsole(t)
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Stop()
	time.Sleep(60 * time.Millisecond)

	c.Dispatch(Command{Kind: KindStatus})
	assert.Contains(t, out.String(), "SIMULATION STATUS")
	assert.Contains(t, out.String(), "Total events:")

	out.Reset()
	c.Dispatch(Command{Kind: KindStats})
	assert.Contains(t, out.String(), "DETAILED STATISTICS")
	assert.Contains(t, out.String(), "Robotic Arm Alpha")
	assert.Contains(t, out.String(), "Press Beta")
}

func TestDispatch_InvalidLeavesStateUnchanged(t *testing.T) {
	c, ctrl, out := newTestConsole(t)
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Stop()

	before := ctrl.Snapshot()
	stop := c.Dispatch(Command{Kind: KindInvalid, Reason: "unknown command \"bogus\""})
	assert.False(t, stop)
	assert.Contains(t, out.String(), "bogus")

	after := ctrl.Snapshot()
	for i := range after.Assets {
		assert.Equal(t, before.Assets[i].CurrentMode, after.Assets[i].CurrentMode)
	}
}

func TestDispatch_StopEndsSession(t *testing.T) {
	c, ctrl, _ := newTestConsole(t)
	require.NoError(t, ctrl.Start(context.Background()))

	stop := c.Dispatch(Command{Kind: KindStop})
	assert.True(t, stop)
	assert.Equal(t, sim.StateStopped, ctrl.State())
}

func TestRun_ProcessesScript(t *testing.T) {
	c, ctrl, out := newTestConsole(t)
	require.NoError(t, ctrl.Start(context.Background()))

	script := strings.Join([]string{"anomaly 1", "status", "stop"}, "\n")
	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), strings.NewReader(script))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after stop command")
	}

	assert.Equal(t, sim.StateStopped, ctrl.State())
	assert.Contains(t, out.String(), "switched asset #1 to ANOMALY mode")
	assert.Contains(t, out.String(), "stopping simulation...")
}

func TestRun_EOFEndsLoop(t *testing.T) {
	c, ctrl, _ := newTestConsole(t)
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Stop()

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), strings.NewReader(""))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return on EOF")
	}
}
