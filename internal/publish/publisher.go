package publish

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"assetsim/internal/event"
)

// Options controls the retry and pacing behavior of a Publisher.
type Options struct {
	MaxAttempts    int           // per-event attempt budget
	InitialBackoff time.Duration // delay before the second attempt
	MaxBackoff     time.Duration // cap on the backoff growth
	RateLimit      int           // global events/sec across all workers, 0 = unlimited
}

// Outcome is the result of one Publish call. All failures are reported
// here rather than signaled through panics, so callers can record stats
// uniformly.
type Outcome struct {
	Delivered bool
	Attempts  int
	Err       error
}

// Publisher serializes events and delivers them to a Sink, retrying
// transient failures with exponential backoff. Safe for concurrent use.
type Publisher struct {
	sink    Sink
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewPublisher creates a publisher over the given sink. Zero option
// fields fall back to defaults (3 attempts, 200ms initial backoff, 5s cap).
func NewPublisher(sink Sink, opts Options, logger *zap.Logger) *Publisher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 200 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Second
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimit)
	}

	return &Publisher{
		sink:    sink,
		opts:    opts,
		limiter: limiter,
		logger:  logger.Named("publisher"),
	}
}

// Publish delivers one event. It retries transient sink errors up to
// the attempt budget, fails immediately on permanent errors, and never
// returns through a panic.
func (p *Publisher) Publish(ctx context.Context, e *event.Event) Outcome {
	payload, err := e.Marshal()
	if err != nil {
		// A payload the sink cannot parse would fail permanently anyway.
		return Outcome{Attempts: 0, Err: err}
	}

	backoff := p.opts.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return Outcome{Attempts: attempt - 1, Err: err}
			}
		}

		err := p.sink.Send(ctx, payload)
		if err == nil {
			return Outcome{Delivered: true, Attempts: attempt}
		}
		lastErr = err

		if !retryable(err) {
			p.logger.Warn("permanent delivery failure",
				zap.String("event_id", e.ID),
				zap.String("asset_id", e.AssetID),
				zap.Error(err))
			return Outcome{Attempts: attempt, Err: err}
		}

		if attempt == p.opts.MaxAttempts {
			break
		}

		p.logger.Debug("transient delivery failure, backing off",
			zap.String("event_id", e.ID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return Outcome{Attempts: attempt, Err: ctx.Err()}
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > p.opts.MaxBackoff {
			backoff = p.opts.MaxBackoff
		}
	}

	p.logger.Warn("delivery failed after exhausting retries",
		zap.String("event_id", e.ID),
		zap.String("asset_id", e.AssetID),
		zap.Int("attempts", p.opts.MaxAttempts),
		zap.Error(lastErr))
	return Outcome{Attempts: p.opts.MaxAttempts, Err: lastErr}
}
