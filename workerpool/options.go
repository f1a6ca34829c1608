package workerpool

import "github.com/hupe1980/geocluster/logging"

const defaultOutboxSize = 16

type options struct {
	logger     *logging.Logger
	outboxSize int
}

// Option configures a Pool.
type Option func(*options)

// WithLogger sets the logger used for discarded responses and lifecycle
// events.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithOutboxSize sets the per-worker response buffer.
func WithOutboxSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.outboxSize = n
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:     logging.NoopLogger(),
		outboxSize: defaultOutboxSize,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	o.logger = logging.OrNoop(o.logger)
	return o
}
