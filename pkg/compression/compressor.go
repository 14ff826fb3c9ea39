// Package compression provides pooled compression codecs for oganesson.
//
// # Overview
//
// Codecs such as zstd carry expensive encoder and decoder state. Instead of
// rebuilding that state per call, a CompressorPool keeps a set of ready
// compressors in a pool.Pool and hands each one to a single caller at a time.
// A Compressor on its own is therefore not safe for concurrent use.
//
// Supported algorithms: None, Gzip, Deflate, Snappy, S2, LZ4 and Zstd.
//
// # Basic Usage
//
//	cp, err := compression.NewCompressorPool(&compression.Config{
//	    Algorithm:   compression.Zstd,
//	    Level:       compression.Default,
//	    Concurrency: 4,
//	}, logger)
//	defer cp.Close()
//
//	compressed, err := cp.Compress(ctx, data)
//	original, err := cp.Decompress(ctx, compressed)
//
// # Performance Characteristics
//
// Speed (fastest to slowest): LZ4 > Snappy/S2 > Zstd > Gzip/Deflate
// Compression ratio (best to worst): Zstd > Gzip/Deflate > Snappy/S2 > LZ4
package compression

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/oganesson/pkg/pool"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents deflate compression
	Deflate Algorithm = "deflate"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{None, Gzip, Deflate, Snappy, S2, LZ4, Zstd}

// ParseAlgorithm converts a name such as "zstd" to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Algorithms {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unsupported compression algorithm: %s", s)
}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

var levelNames = map[Level]string{
	Fastest: "fastest",
	Default: "default",
	Better:  "better",
	Best:    "best",
}

// String returns the level name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel converts a level name to a Level. An empty string yields Default.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Default, nil
	}
	for l, name := range levelNames {
		if name == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown compression level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	name, ok := levelNames[l]
	if !ok {
		return nil, fmt.Errorf("unknown compression level %d", int(l))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Compressor provides compression and decompression functionality.
// Implementations keep reusable state and must not be shared between
// goroutines; CompressorPool provides exclusive access.
type Compressor interface {
	// Compress compresses data and returns a newly allocated result.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data and returns a newly allocated result.
	Decompress(data []byte) ([]byte, error)

	// CompressStream compresses from reader to writer.
	CompressStream(dst io.Writer, src io.Reader) error

	// DecompressStream decompresses from reader to writer.
	DecompressStream(dst io.Writer, src io.Reader) error

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm

	// Level returns the compression level configured.
	Level() Level

	// Close releases resources such as background decoder goroutines.
	Close() error
}

// Config represents compressor and compressor pool configuration.
type Config struct {
	Algorithm   Algorithm   `yaml:"algorithm" json:"algorithm"`
	Level       Level       `yaml:"level" json:"level"`
	BufferSize  int         `yaml:"buffer_size" json:"buffer_size"` // initial buffer capacity per compressor
	Concurrency int         `yaml:"concurrency" json:"concurrency"` // compressors created up front
	Policy      pool.Policy `yaml:"policy" json:"policy"`
	ChunkSize   int         `yaml:"chunk_size" json:"chunk_size"` // split size for CompressChunked
}

// DefaultConfig returns default compression configuration: Snappy with
// 64KB buffers and four pooled compressors that may grow on demand.
func DefaultConfig() *Config {
	return &Config{
		Algorithm:   Snappy,
		Level:       Default,
		BufferSize:  64 * 1024,
		Concurrency: 4,
		Policy:      pool.Dynamic,
		ChunkSize:   1024 * 1024,
	}
}

// NewCompressor creates a new compressor based on the provided configuration.
// If config is nil, default configuration is used.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}

	base := baseCompressor{
		algorithm: config.Algorithm,
		level:     config.Level,
	}
	if config.BufferSize > 0 {
		base.buf.Grow(config.BufferSize)
	}

	switch config.Algorithm {
	case None:
		return &noneCompressor{baseCompressor: base}, nil
	case Gzip:
		return newGzipCompressor(base)
	case Deflate:
		return newDeflateCompressor(base)
	case Snappy:
		return &snappyCompressor{baseCompressor: base}, nil
	case S2:
		return &s2Compressor{baseCompressor: base}, nil
	case LZ4:
		return newLZ4Compressor(base)
	case Zstd:
		return newZstdCompressor(base)
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", config.Algorithm)
	}
}

// Base compressor implementation
type baseCompressor struct {
	algorithm Algorithm
	level     Level
	buf       bytes.Buffer
}

// Algorithm returns the compression algorithm
func (bc *baseCompressor) Algorithm() Algorithm {
	return bc.algorithm
}

// Level returns the compression level
func (bc *baseCompressor) Level() Level {
	return bc.level
}

func (bc *baseCompressor) Close() error {
	return nil
}

// result copies the scratch buffer so the compressor can reuse it.
func (bc *baseCompressor) result() []byte {
	out := make([]byte, bc.buf.Len())
	copy(out, bc.buf.Bytes())
	bc.buf.Reset()
	return out
}

// None compressor (no compression)
type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) Compress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (nc *noneCompressor) Decompress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (nc *noneCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}

func (nc *noneCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}

// Gzip compressor
type gzipCompressor struct {
	baseCompressor
	writer *gzip.Writer
	reader *gzip.Reader
}

func newGzipCompressor(base baseCompressor) (*gzipCompressor, error) {
	w, err := gzip.NewWriterLevel(io.Discard, mapGzipLevel(base.level))
	if err != nil {
		return nil, err
	}
	return &gzipCompressor{baseCompressor: base, writer: w}, nil
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error) {
	gc.buf.Reset()
	gc.writer.Reset(&gc.buf)
	if _, err := gc.writer.Write(data); err != nil {
		return nil, err
	}
	if err := gc.writer.Close(); err != nil {
		return nil, err
	}
	return gc.result(), nil
}

func (gc *gzipCompressor) Decompress(data []byte) ([]byte, error) {
	gc.buf.Reset()
	if err := gc.DecompressStream(&gc.buf, bytes.NewReader(data)); err != nil {
		gc.buf.Reset()
		return nil, err
	}
	return gc.result(), nil
}

func (gc *gzipCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	gc.writer.Reset(dst)
	if _, err := io.Copy(gc.writer, src); err != nil {
		return err
	}
	return gc.writer.Close()
}

func (gc *gzipCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	if gc.reader == nil {
		r, err := gzip.NewReader(src)
		if err != nil {
			return err
		}
		gc.reader = r
	} else if err := gc.reader.Reset(src); err != nil {
		return err
	}

	_, err := io.Copy(dst, gc.reader) //nolint:gosec // G110: input is produced by this package
	return err
}

// Deflate compressor
type deflateCompressor struct {
	baseCompressor
	writer *flate.Writer
}

func newDeflateCompressor(base baseCompressor) (*deflateCompressor, error) {
	w, err := flate.NewWriter(io.Discard, mapDeflateLevel(base.level))
	if err != nil {
		return nil, err
	}
	return &deflateCompressor{baseCompressor: base, writer: w}, nil
}

func (dc *deflateCompressor) Compress(data []byte) ([]byte, error) {
	dc.buf.Reset()
	dc.writer.Reset(&dc.buf)
	if _, err := dc.writer.Write(data); err != nil {
		return nil, err
	}
	if err := dc.writer.Close(); err != nil {
		return nil, err
	}
	return dc.result(), nil
}

func (dc *deflateCompressor) Decompress(data []byte) ([]byte, error) {
	dc.buf.Reset()
	if err := dc.DecompressStream(&dc.buf, bytes.NewReader(data)); err != nil {
		dc.buf.Reset()
		return nil, err
	}
	return dc.result(), nil
}

func (dc *deflateCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	dc.writer.Reset(dst)
	if _, err := io.Copy(dc.writer, src); err != nil {
		return err
	}
	return dc.writer.Close()
}

func (dc *deflateCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	r := flate.NewReader(src)
	defer r.Close()

	_, err := io.Copy(dst, r) //nolint:gosec // G110: input is produced by this package
	return err
}

// Snappy compressor
type snappyCompressor struct {
	baseCompressor
}

func (sc *snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (sc *snappyCompressor) Decompress(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}

func (sc *snappyCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	w := snappy.NewBufferedWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (sc *snappyCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, snappy.NewReader(src))
	return err
}

// S2 compressor (Snappy-compatible but better compression)
type s2Compressor struct {
	baseCompressor
}

func (sc *s2Compressor) Compress(data []byte) ([]byte, error) {
	if sc.level >= Better {
		return s2.EncodeBetter(nil, data), nil
	}
	return s2.Encode(nil, data), nil
}

func (sc *s2Compressor) Decompress(data []byte) ([]byte, error) {
	return s2.Decode(nil, data)
}

func (sc *s2Compressor) CompressStream(dst io.Writer, src io.Reader) error {
	w := s2.NewWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (sc *s2Compressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, s2.NewReader(src))
	return err
}

// LZ4 compressor
type lz4Compressor struct {
	baseCompressor
	writer *lz4.Writer
	reader *lz4.Reader
}

func newLZ4Compressor(base baseCompressor) (*lz4Compressor, error) {
	w := lz4.NewWriter(nil)
	if err := w.Apply(lz4.CompressionLevelOption(mapLZ4Level(base.level))); err != nil {
		return nil, err
	}
	return &lz4Compressor{
		baseCompressor: base,
		writer:         w,
		reader:         lz4.NewReader(nil),
	}, nil
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error) {
	lc.buf.Reset()
	if err := lc.CompressStream(&lc.buf, bytes.NewReader(data)); err != nil {
		lc.buf.Reset()
		return nil, err
	}
	return lc.result(), nil
}

func (lc *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	lc.buf.Reset()
	if err := lc.DecompressStream(&lc.buf, bytes.NewReader(data)); err != nil {
		lc.buf.Reset()
		return nil, err
	}
	return lc.result(), nil
}

func (lc *lz4Compressor) CompressStream(dst io.Writer, src io.Reader) error {
	lc.writer.Reset(dst)
	if _, err := io.Copy(lc.writer, src); err != nil {
		return err
	}
	return lc.writer.Close()
}

func (lc *lz4Compressor) DecompressStream(dst io.Writer, src io.Reader) error {
	lc.reader.Reset(src)
	_, err := io.Copy(dst, lc.reader) //nolint:gosec // G110: input is produced by this package
	return err
}

// Zstd compressor. The encoder and decoder are the expensive part and live
// for as long as the compressor.
type zstdCompressor struct {
	baseCompressor
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor(base baseCompressor) (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(mapZstdLevel(base.level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		_ = enc.Close()
		return nil, err
	}
	return &zstdCompressor{baseCompressor: base, encoder: enc, decoder: dec}, nil
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return zc.encoder.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	return zc.decoder.DecodeAll(data, nil)
}

func (zc *zstdCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	zc.encoder.Reset(dst)
	if _, err := io.Copy(zc.encoder, src); err != nil {
		return err
	}
	return zc.encoder.Close()
}

func (zc *zstdCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	if err := zc.decoder.Reset(src); err != nil {
		return err
	}
	_, err := io.Copy(dst, zc.decoder)
	return err
}

func (zc *zstdCompressor) Close() error {
	zc.decoder.Close()
	return zc.encoder.Close()
}

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
