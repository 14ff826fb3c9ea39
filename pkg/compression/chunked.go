package compression

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/ajitpratap0/oganesson/pkg/errors"
)

// Chunked frame layout, all integers big-endian:
//
//	magic "OGCK" (4) | version (1) | algorithm (1) | chunks (4) | original size (8)
//	then per chunk: compressed length (4) | compressed bytes
const (
	chunkMagic      = "OGCK"
	chunkVersion    = 1
	chunkHeaderSize = 18
)

var algorithmCodes = map[Algorithm]byte{
	None:    0,
	Gzip:    1,
	Snappy:  2,
	LZ4:     3,
	Zstd:    4,
	S2:      5,
	Deflate: 6,
}

// CompressChunked splits data into ChunkSize pieces, compresses them in
// parallel and frames the result so DecompressChunked can restore it.
func (cp *CompressorPool) CompressChunked(ctx context.Context, data []byte) ([]byte, error) {
	chunks := splitIntoChunks(data, cp.chunkSize())

	compressed, err := cp.CompressBatch(ctx, chunks)
	if err != nil {
		return nil, err
	}

	size := chunkHeaderSize
	for _, c := range compressed {
		size += 4 + len(c)
	}

	out := make([]byte, chunkHeaderSize, size)
	copy(out[0:4], chunkMagic)
	out[4] = chunkVersion
	out[5] = algorithmCodes[cp.config.Algorithm]
	binary.BigEndian.PutUint32(out[6:10], uint32(len(compressed)))
	binary.BigEndian.PutUint64(out[10:18], uint64(len(data)))
	for _, c := range compressed {
		out = binary.BigEndian.AppendUint32(out, uint32(len(c)))
		out = append(out, c...)
	}
	return out, nil
}

// DecompressChunked reverses CompressChunked.
func (cp *CompressorPool) DecompressChunked(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) < chunkHeaderSize || !bytes.Equal(data[0:4], []byte(chunkMagic)) {
		return nil, errors.New(errors.ErrorTypeCompression, "not a chunked frame")
	}
	if data[4] != chunkVersion {
		return nil, errors.Newf(errors.ErrorTypeCompression, "unsupported chunked frame version %d", data[4])
	}
	if data[5] != algorithmCodes[cp.config.Algorithm] {
		return nil, errors.New(errors.ErrorTypeCompression, "chunked frame algorithm mismatch").
			WithDetail("algorithm", string(cp.config.Algorithm))
	}

	n := binary.BigEndian.Uint32(data[6:10])
	originalSize := binary.BigEndian.Uint64(data[10:18])

	chunks := make([][]byte, 0, n)
	rest := data[chunkHeaderSize:]
	for i := uint32(0); i < n; i++ {
		if len(rest) < 4 {
			return nil, errors.New(errors.ErrorTypeCompression, "truncated chunked frame")
		}
		l := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint64(len(rest)) < uint64(l) {
			return nil, errors.New(errors.ErrorTypeCompression, "truncated chunked frame")
		}
		chunks = append(chunks, rest[:l])
		rest = rest[l:]
	}

	decompressed, err := cp.DecompressBatch(ctx, chunks)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, c := range decompressed {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range decompressed {
		out = append(out, c...)
	}
	if uint64(len(out)) != originalSize {
		return nil, errors.Newf(errors.ErrorTypeCompression,
			"chunked frame size mismatch: want %d, got %d", originalSize, len(out))
	}
	return out, nil
}

func (cp *CompressorPool) chunkSize() int {
	if cp.config.ChunkSize > 0 {
		return cp.config.ChunkSize
	}
	return 1024 * 1024
}

// splitIntoChunks splits data into chunks for parallel processing
func splitIntoChunks(data []byte, chunkSize int) [][]byte {
	var chunks [][]byte

	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[i:end])
	}

	return chunks
}
