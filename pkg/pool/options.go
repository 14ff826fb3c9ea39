package pool

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option configures a Pool at construction time.
type Option func(*settings)

type settings struct {
	name        string
	logger      *zap.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	constructor any
	onAcquire   any
	onRelease   any
}

// WithName labels the pool in logs, metrics and spans. Defaults to "default".
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithLogger sets the logger used for pool lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMetrics reports pool activity to the given Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithTracer records a span for every AcquireContext call.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = tracer
	}
}

// WithConstructor replaces the zero-argument constructor used to create
// instances. Its type must match the pool's element type or New panics.
//
//	p := pool.New[*bytes.Buffer](4, pool.Dynamic, nil, pool.WithConstructor(func() *bytes.Buffer {
//	    return bytes.NewBuffer(make([]byte, 0, 4096))
//	}))
func WithConstructor[T comparable](fn func() T) Option {
	return func(s *settings) {
		s.constructor = fn
	}
}

// WithOnAcquire sets the initial acquire hook. Unlike OnAcquire it is in
// place before the pool serves its first request.
func WithOnAcquire[T comparable](fn func(T)) Option {
	return func(s *settings) {
		s.onAcquire = fn
	}
}

// WithOnRelease sets the initial release hook.
func WithOnRelease[T comparable](fn func(T)) Option {
	return func(s *settings) {
		s.onRelease = fn
	}
}
