package infra

import (
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type options struct {
	clock        clockwork.Clock
	logger       *zap.Logger
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

// Option configura os stores em memória (AdaptiveStore e BucketStore).
type Option func(*options)

func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithIdleTTL só vale para o BucketStore; o AdaptiveStore usa EvictAfterWindows.
func WithIdleTTL(d time.Duration) Option {
	return func(o *options) { o.idleTTL = d }
}

// WithCleanupEvery só vale para o BucketStore; o AdaptiveStore usa CleanupInterval.
func WithCleanupEvery(d time.Duration) Option {
	return func(o *options) { o.cleanupEvery = d }
}

func buildOptions(opts []Option) options {
	o := options{
		clock:        clockwork.NewRealClock(),
		logger:       zap.NewNop(),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}
