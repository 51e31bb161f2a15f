// Package stats aggregates per-asset and global counters for the
// simulation. Workers write single-field increments; the console and
// metrics read consistent snapshots.
package stats

import (
	"sync"
	"time"

	"assetsim/internal/telemetry"
)

// PerAsset is the counter set for one asset.
type PerAsset struct {
	AssetID           string
	AssetName         string
	EventsSent        int64
	AnomalyEventsSent int64
	ErrorCount        int64
	RetryCount        int64
	CurrentMode       telemetry.Mode
	LastEventTime     time.Time
}

// Global is the simulation-wide state.
type Global struct {
	StartTime       time.Time
	Running         bool
	TotalEventsSent int64
}

// Snapshot is a consistent copy of everything, taken under one lock so
// a reader never observes a half-applied cycle.
type Snapshot struct {
	Global Global
	Assets []PerAsset // catalog order
}

// Aggregator owns the authoritative counters. Safe for concurrent use.
type Aggregator struct {
	mu     sync.Mutex
	global Global
	assets []PerAsset
	index  map[string]int
}

// NewAggregator creates an aggregator with one record per asset, in
// catalog order, all in Normal mode.
func NewAggregator(assetIDs, assetNames []string) *Aggregator {
	a := &Aggregator{
		assets: make([]PerAsset, len(assetIDs)),
		index:  make(map[string]int, len(assetIDs)),
	}
	for i, id := range assetIDs {
		a.assets[i] = PerAsset{AssetID: id, AssetName: assetNames[i]}
		a.index[id] = i
	}
	return a
}

// MarkStarted records the simulation start.
func (a *Aggregator) MarkStarted(t time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.global.StartTime = t
	a.global.Running = true
}

// MarkStopped flips the running flag off. Idempotent.
func (a *Aggregator) MarkStopped() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.global.Running = false
}

// RecordCycle records the outcome of one worker cycle: the event count,
// the anomaly count when the cycle ran in anomaly mode, retries spent
// by the publisher, and the delivery failure if retries were exhausted.
func (a *Aggregator) RecordCycle(assetID string, mode telemetry.Mode, delivered bool, retries int, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i, ok := a.index[assetID]
	if !ok {
		return
	}
	rec := &a.assets[i]
	rec.EventsSent++
	if mode == telemetry.ModeAnomaly {
		rec.AnomalyEventsSent++
	}
	if retries > 0 {
		rec.RetryCount += int64(retries)
	}
	if !delivered {
		rec.ErrorCount++
	}
	rec.LastEventTime = at
	a.global.TotalEventsSent++
}

// RecordError counts a failed cycle that produced no event (generation
// error or panic).
func (a *Aggregator) RecordError(assetID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i, ok := a.index[assetID]; ok {
		a.assets[i].ErrorCount++
	}
}

// SetMode records the display mode for one asset.
func (a *Aggregator) SetMode(assetID string, mode telemetry.Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i, ok := a.index[assetID]; ok {
		a.assets[i].CurrentMode = mode
	}
}

// SetAllModes records the display mode for every asset.
func (a *Aggregator) SetAllModes(mode telemetry.Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.assets {
		a.assets[i].CurrentMode = mode
	}
}

// Snapshot returns a consistent copy of the global state and all
// per-asset records.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	assets := make([]PerAsset, len(a.assets))
	copy(assets, a.assets)
	return Snapshot{Global: a.global, Assets: assets}
}
