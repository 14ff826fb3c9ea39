// Package oganesson provides a generic, thread-safe object pool for Go and a
// small set of components built on it.
//
// A pool keeps pre-constructed instances of a caller-defined type and hands
// them out with Acquire and takes them back with Release, so the cost of
// building expensive objects (codecs, connections, buffers) is paid once.
//
// # Architecture
//
// Every pool owns a serial worker goroutine. Mutating operations run on that
// worker one at a time and in submission order:
//
//   - Acquire is synchronous and returns an instance or an error.
//   - Release and Drain are queued and return immediately.
//   - OnAcquire and OnRelease hooks run on the worker under a lock of their own.
//
// Two policies decide what happens when every instance is checked out. Static
// pools fail with pool.ErrDrained; Dynamic pools construct one more instance.
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/oganesson/pkg/pool"
//	)
//
//	p := pool.New(4, pool.Static, func(b *bytes.Buffer) { b.Grow(64 << 10) })
//	defer p.Close()
//
//	err := p.Do(context.Background(), func(b *bytes.Buffer) error {
//	    b.Reset()
//	    _, err := b.WriteString("hello")
//	    return err
//	})
//
// Pooled compressors are available from pkg/compression:
//
//	cp, err := compression.NewCompressorPool(compression.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	defer cp.Close()
//
//	compressed, err := cp.Compress(ctx, payload)
//
// # Key Packages
//
//	pkg/pool          - Generic object pool, leases, Prometheus metrics
//	pkg/compression   - Stateful codecs and a pool of them
//	pkg/config        - YAML pool configuration with environment substitution
//	pkg/errors        - Typed errors with details and stack traces
//	pkg/logger        - Structured logging with zap
//	pkg/observability - OpenTelemetry tracing setup
//	pkg/performance   - Resource usage and latency percentiles
//	internal/serial   - Single-worker FIFO task queue
//
// # Command Line
//
// The poolbench command drives a compressor pool from concurrent workers and
// reports throughput, rejections, latency percentiles and pool statistics:
//
//	poolbench run --policy static --size 2 --workers 8 --algorithm zstd
//	poolbench run --config pool.yaml --metrics-addr :9090 --json
package oganesson
