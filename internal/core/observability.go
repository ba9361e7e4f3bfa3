package core

import (
	"context"
	"time"
)

// Logger is the minimal leveled key-value logging contract the service
// emits through. Pairs follow the message as alternating key, value.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// noopLogger discards everything; the default when no logger is supplied.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// TraceSpan is the closing half of a trace started by a Tracer.
type TraceSpan interface {
	End(err error)
}

// Tracer opens a span around a service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type serviceOptions struct {
	logger  Logger
	clock   func() time.Time
	metrics MetricsRecorder
	tracer  Tracer
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger: noopLogger{},
		clock:  time.Now,
	}
}

// Option customises service construction.
type Option func(*serviceOptions)

// WithLogger routes service logging to the supplied logger.
func WithLogger(l Logger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the service time source, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMetricsRecorder attaches a metrics sink to every operation.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(o *serviceOptions) { o.metrics = m }
}

// WithTracer attaches a tracer to every operation.
func WithTracer(t Tracer) Option {
	return func(o *serviceOptions) { o.tracer = t }
}
