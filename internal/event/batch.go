package event

import (
	"fmt"
	"math/rand"
	"time"
)

const (
	minEventsPerBatch = 50
	maxEventsPerBatch = 200
)

// Batcher tracks the production batch an asset's events belong to,
// rotating to a new batch id after a randomly sized run of events.
// Not safe for concurrent use; each worker owns its own Batcher.
type Batcher struct {
	assetID  string
	rng      *rand.Rand
	now      func() time.Time
	current  string
	count    int
	maxCount int
}

// NewBatcher creates a batcher for one asset.
func NewBatcher(assetID string, seed int64) *Batcher {
	b := &Batcher{
		assetID: assetID,
		rng:     rand.New(rand.NewSource(seed)),
		now:     time.Now,
	}
	b.rotate()
	return b
}

// Next returns the batch id for the next event, rotating when the
// current batch has reached its size.
func (b *Batcher) Next() string {
	if b.count >= b.maxCount {
		b.rotate()
	}
	b.count++
	return b.current
}

func (b *Batcher) rotate() {
	b.current = fmt.Sprintf("BATCH_%s_%d", b.assetID, b.now().Unix())
	b.count = 0
	b.maxCount = minEventsPerBatch + b.rng.Intn(maxEventsPerBatch-minEventsPerBatch+1)
}
