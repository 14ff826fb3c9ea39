package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/oganesson/pkg/compression"
	"github.com/ajitpratap0/oganesson/pkg/config"
	"github.com/ajitpratap0/oganesson/pkg/errors"
	"github.com/ajitpratap0/oganesson/pkg/logger"
	"github.com/ajitpratap0/oganesson/pkg/observability"
	"github.com/ajitpratap0/oganesson/pkg/performance"
	"github.com/ajitpratap0/oganesson/pkg/pool"
)

type benchOptions struct {
	// traceOut receives exported spans when tracing is enabled
	traceOut io.Writer
	// logger overrides the logger built from the config
	logger *zap.Logger
	// registry overrides the Prometheus registry
	registry *prometheus.Registry
}

// Report summarizes one benchmark run.
type Report struct {
	Pool        string                     `json:"pool"`
	Algorithm   string                     `json:"algorithm"`
	Policy      string                     `json:"policy"`
	Workers     int                        `json:"workers"`
	Iterations  int                        `json:"iterations"`
	PayloadSize int                        `json:"payload_size"`
	Operations  uint64                     `json:"operations"`
	Rejected    uint64                     `json:"rejected"`
	Bytes       uint64                     `json:"bytes"`
	Ratio       float64                    `json:"compression_ratio"`
	Duration    time.Duration              `json:"duration_ns"`
	OpsPerSec   float64                    `json:"ops_per_sec"`
	MBPerSec    float64                    `json:"mb_per_sec"`
	RSSBytes    uint64                     `json:"rss_bytes"`
	Latency     performance.Percentiles    `json:"round_trip_latency"`
	Resources   *performance.ResourceUsage `json:"resources,omitempty"`
	Stats       pool.Stats                 `json:"stats"`
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode report")
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// WriteText writes the report as an aligned table.
func (r *Report) WriteText(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "pool\t%s (%s, %s)\n", r.Pool, r.Algorithm, r.Policy)
	fmt.Fprintf(tw, "workers\t%d x %d iterations, %d byte payload\n", r.Workers, r.Iterations, r.PayloadSize)
	fmt.Fprintf(tw, "operations\t%d (%d rejected)\n", r.Operations, r.Rejected)
	fmt.Fprintf(tw, "duration\t%s\n", r.Duration.Round(time.Microsecond))
	fmt.Fprintf(tw, "throughput\t%.0f ops/s, %.2f MB/s\n", r.OpsPerSec, r.MBPerSec)
	fmt.Fprintf(tw, "ratio\t%.3f\n", r.Ratio)
	fmt.Fprintf(tw, "latency\tp50 %s, p95 %s, p99 %s, max %s\n",
		r.Latency.P50, r.Latency.P95, r.Latency.P99, r.Latency.Max)
	fmt.Fprintf(tw, "rss\t%.1f MiB\n", float64(r.RSSBytes)/(1<<20))
	if r.Resources != nil {
		fmt.Fprintf(tw, "cpu\t%.1f%% (%d goroutines, %d threads)\n",
			r.Resources.CPUPercent, r.Resources.GoroutineCount, r.Resources.ThreadCount)
	}
	fmt.Fprintf(tw, "pool size\t%d (grown %d, in use %d)\n", r.Stats.Size, r.Stats.Grown, r.Stats.InUse)
	fmt.Fprintf(tw, "acquires\t%d (released %d, rejected %d)\n", r.Stats.Acquires, r.Stats.Releases, r.Stats.Rejected)
	_ = tw.Flush()
}

func runBenchmark(ctx context.Context, cfg *config.PoolConfig, opts benchOptions) (*Report, error) {
	log := opts.logger
	if log == nil {
		if err := logger.Init(cfg.Logging); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize logger")
		}
		defer func() { _ = logger.Sync() }()
		log = logger.Get()
	}
	log = log.With(zap.String("component", "poolbench"), zap.String("pool", cfg.Name))

	tracing := cfg.Tracing
	if tracing.Enabled && tracing.Writer == nil {
		tracing.Writer = opts.traceOut
	}
	shutdownTracing, err := observability.InitTracing(tracing)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to initialize tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	poolOpts := []pool.Option{
		pool.WithName(cfg.Name),
		pool.WithTracer(observability.Tracer(tracing, "poolbench")),
	}
	if cfg.Metrics.Enabled {
		reg := opts.registry
		if reg == nil {
			reg = prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}
		poolOpts = append(poolOpts, pool.WithMetrics(pool.NewMetrics(cfg.Metrics.Namespace, reg)))

		if cfg.Metrics.Address != "" {
			stop, err := serveMetrics(cfg.Metrics.Address, reg, log)
			if err != nil {
				return nil, err
			}
			defer stop()
		}
	}

	ccfg, err := cfg.CompressorConfig()
	if err != nil {
		return nil, err
	}
	cp, err := compression.NewCompressorPool(ccfg, log, poolOpts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cp.Close(); err != nil {
			log.Warn("failed to close compressors", zap.Error(err))
		}
	}()

	payload := makePayload(cfg.Benchmark.PayloadSize)
	log.Info("starting benchmark",
		zap.Int("workers", cfg.Benchmark.Workers),
		zap.Int("iterations", cfg.Benchmark.Iterations),
		zap.Int("size", cfg.Size),
		zap.Stringer("policy", cfg.Policy),
		zap.String("algorithm", string(ccfg.Algorithm)))

	monitor, err := performance.NewResourceMonitor()
	if err != nil {
		log.Debug("process stats unavailable", zap.Error(err))
	}
	latency := performance.NewLatencyTracker()

	var ops, rejected, compressedBytes atomic.Uint64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Benchmark.Workers; w++ {
		worker := w
		g.Go(func() error {
			wctx := context.WithValue(gctx, logger.WorkerKey, worker)
			for i := 0; i < cfg.Benchmark.Iterations; i++ {
				began := time.Now()
				compressed, err := cp.Compress(wctx, payload)
				if errors.IsRetryable(err) {
					rejected.Add(1)
					runtime.Gosched()
					continue
				}
				if err != nil {
					return err
				}

				restored, err := cp.Decompress(wctx, compressed)
				if errors.IsRetryable(err) {
					rejected.Add(1)
					runtime.Gosched()
					continue
				}
				if err != nil {
					return err
				}
				if !bytes.Equal(restored, payload) {
					return errors.New(errors.ErrorTypeCompression, "round trip mismatch").
						WithDetail("worker", worker).
						WithDetail("iteration", i)
				}

				latency.Record(time.Since(began))
				ops.Add(1)
				compressedBytes.Add(uint64(len(compressed)))
			}
			logger.WithContext(wctx).Debug("worker finished")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	report := &Report{
		Pool:        cfg.Name,
		Algorithm:   string(ccfg.Algorithm),
		Policy:      cfg.Policy.String(),
		Workers:     cfg.Benchmark.Workers,
		Iterations:  cfg.Benchmark.Iterations,
		PayloadSize: len(payload),
		Operations:  ops.Load(),
		Rejected:    rejected.Load(),
		Bytes:       ops.Load() * uint64(len(payload)),
		Duration:    elapsed,
		Latency:     latency.Percentiles(),
		Stats:       cp.Stats(),
	}
	if monitor != nil {
		report.Resources = monitor.GetResourceUsage()
		report.RSSBytes = report.Resources.MemoryRSS
	}
	if report.Bytes > 0 {
		report.Ratio = float64(compressedBytes.Load()) / float64(report.Bytes)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		report.OpsPerSec = float64(report.Operations) / secs
		report.MBPerSec = float64(report.Bytes) / secs / (1 << 20)
	}

	log.Info("benchmark finished",
		zap.Uint64("operations", report.Operations),
		zap.Uint64("rejected", report.Rejected),
		zap.Duration("duration", elapsed))
	return report, nil
}

// serveMetrics exposes reg on addr until the returned stop function runs.
func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to listen for metrics").
			WithDetail("address", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("address", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// makePayload builds semi-repetitive text so every codec has something to
// compress.
func makePayload(size int) []byte {
	words := []string{"pool", "slot", "acquire", "release", "drain", "static", "dynamic", "lease"}
	var buf bytes.Buffer
	buf.Grow(size + 16)
	for i := 0; buf.Len() < size; i++ {
		buf.WriteString(words[(i*7+i/3)%len(words)])
		buf.WriteByte(' ')
	}
	return buf.Bytes()[:size]
}
