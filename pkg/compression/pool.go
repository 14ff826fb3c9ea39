package compression

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/oganesson/pkg/errors"
	"github.com/ajitpratap0/oganesson/pkg/pool"
)

// PooledCompressor is a Compressor owned by a CompressorPool.
type PooledCompressor struct {
	Compressor
	id   int
	uses int
}

// ID identifies the compressor within its pool, starting at 1.
func (pc *PooledCompressor) ID() int {
	return pc.id
}

// Uses reports how many times the compressor has been checked out.
func (pc *PooledCompressor) Uses() int {
	return pc.uses
}

// CompressorPool hands out compressors one caller at a time, so their
// encoder and decoder state is built once and reused.
//
// CompressorPool is safe for concurrent use.
type CompressorPool struct {
	config *Config
	logger *zap.Logger
	pool   *pool.Pool[*PooledCompressor]

	mu      sync.Mutex
	members []*PooledCompressor
}

// NewCompressorPool creates config.Concurrency compressors up front. With the
// Dynamic policy more are created when all are busy; with Static, callers
// get an ErrorTypeExhausted error instead. Pool options such as WithMetrics
// are passed through; the pool is named after the algorithm unless
// WithName is given.
func NewCompressorPool(config *Config, logger *zap.Logger, opts ...pool.Option) (*CompressorPool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Concurrency < 0 {
		return nil, errors.Newf(errors.ErrorTypeConfig, "concurrency must be >= 0, got %d", config.Concurrency)
	}

	// Fail early on a bad algorithm rather than inside the pool constructor.
	probe, err := NewCompressor(config)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid compression config")
	}
	_ = probe.Close()

	cp := &CompressorPool{
		config: config,
		logger: logger.With(zap.String("algorithm", string(config.Algorithm))),
	}

	base := []pool.Option{
		pool.WithName(string(config.Algorithm)),
		pool.WithLogger(logger),
		pool.WithConstructor(cp.newCompressor),
		pool.WithOnAcquire(func(pc *PooledCompressor) { pc.uses++ }),
	}
	cp.pool = pool.New(config.Concurrency, config.Policy, cp.register, append(base, opts...)...)

	cp.logger.Debug("compressor pool ready",
		zap.Int("size", cp.pool.Size()),
		zap.Stringer("policy", config.Policy))
	return cp, nil
}

func (cp *CompressorPool) newCompressor() *PooledCompressor {
	c, err := NewCompressor(cp.config)
	if err != nil {
		// The config was validated by NewCompressorPool.
		panic(err)
	}
	return &PooledCompressor{Compressor: c}
}

func (cp *CompressorPool) register(pc *PooledCompressor) {
	cp.mu.Lock()
	cp.members = append(cp.members, pc)
	pc.id = len(cp.members)
	cp.mu.Unlock()
}

// Config returns the pool configuration.
func (cp *CompressorPool) Config() Config {
	return *cp.config
}

// Acquire leases a compressor for direct use. The caller must release the
// lease.
func (cp *CompressorPool) Acquire(ctx context.Context) (*pool.Lease[*PooledCompressor], error) {
	lease, err := cp.pool.AcquireLeaseContext(ctx)
	if err != nil {
		return nil, cp.wrap(err, "acquire compressor")
	}
	return lease, nil
}

// Compress compresses data using a pooled compressor
func (cp *CompressorPool) Compress(ctx context.Context, data []byte) ([]byte, error) {
	var out []byte
	err := cp.pool.Do(ctx, func(pc *PooledCompressor) (err error) {
		out, err = pc.Compress(data)
		return err
	})
	if err != nil {
		return nil, cp.wrap(err, "compress")
	}
	return out, nil
}

// Decompress decompresses data using a pooled compressor
func (cp *CompressorPool) Decompress(ctx context.Context, data []byte) ([]byte, error) {
	var out []byte
	err := cp.pool.Do(ctx, func(pc *PooledCompressor) (err error) {
		out, err = pc.Decompress(data)
		return err
	})
	if err != nil {
		return nil, cp.wrap(err, "decompress")
	}
	return out, nil
}

// CompressStream compresses src into dst using a pooled compressor.
func (cp *CompressorPool) CompressStream(ctx context.Context, dst io.Writer, src io.Reader) error {
	err := cp.pool.Do(ctx, func(pc *PooledCompressor) error {
		return pc.CompressStream(dst, src)
	})
	return cp.wrap(err, "compress stream")
}

// DecompressStream decompresses src into dst using a pooled compressor.
func (cp *CompressorPool) DecompressStream(ctx context.Context, dst io.Writer, src io.Reader) error {
	err := cp.pool.Do(ctx, func(pc *PooledCompressor) error {
		return pc.DecompressStream(dst, src)
	})
	return cp.wrap(err, "decompress stream")
}

// CompressBatch compresses every block in parallel, using at most
// Concurrency compressors at once. Results keep the input order. The first
// failure cancels the remaining blocks.
func (cp *CompressorPool) CompressBatch(ctx context.Context, blocks [][]byte) ([][]byte, error) {
	return cp.batch(ctx, blocks, cp.Compress)
}

// DecompressBatch is the inverse of CompressBatch.
func (cp *CompressorPool) DecompressBatch(ctx context.Context, blocks [][]byte) ([][]byte, error) {
	return cp.batch(ctx, blocks, cp.Decompress)
}

func (cp *CompressorPool) batch(ctx context.Context, blocks [][]byte,
	fn func(context.Context, []byte) ([]byte, error)) ([][]byte, error) {
	out := make([][]byte, len(blocks))

	g, gctx := errgroup.WithContext(ctx)
	limit := cp.config.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, block := range blocks {
		i, block := i, block
		g.Go(func() error {
			res, err := fn(gctx, block)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns the underlying pool counters.
func (cp *CompressorPool) Stats() pool.Stats {
	return cp.pool.Stats()
}

// Close stops the pool and releases every compressor it created. Leases
// still outstanding must not be used afterwards.
func (cp *CompressorPool) Close() error {
	cp.pool.Close()

	cp.mu.Lock()
	members := cp.members
	cp.members = nil
	cp.mu.Unlock()

	var first error
	for _, pc := range members {
		if err := pc.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (cp *CompressorPool) wrap(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pool.ErrDrained):
		return errors.Wrap(err, errors.ErrorTypeExhausted, op+": no free compressor").
			WithDetail("algorithm", string(cp.config.Algorithm))
	case errors.Is(err, pool.ErrClosed):
		return errors.Wrap(err, errors.ErrorTypeInternal, op+": compressor pool closed")
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.ErrorTypeTimeout, op)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return errors.Wrap(err, errors.ErrorTypeCompression, op).
			WithDetail("algorithm", string(cp.config.Algorithm))
	}
}
