package compression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/oganesson/pkg/errors"
	"github.com/ajitpratap0/oganesson/pkg/pool"
	"github.com/ajitpratap0/oganesson/pkg/testutil"
)

func TestCompressChunked_RoundTrip(t *testing.T) {
	ctx := testutil.TestContext(t)
	cp := newTestPool(t, &Config{Algorithm: Zstd, Concurrency: 4, Policy: pool.Dynamic, ChunkSize: 4096})

	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"single chunk", 100},
		{"exact multiple", 4096 * 3},
		{"ragged", 4096*5 + 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := generateTextData(tt.size)

			framed, err := cp.CompressChunked(ctx, original)
			require.NoError(t, err)
			assert.Equal(t, chunkMagic, string(framed[:4]))

			restored, err := cp.DecompressChunked(ctx, framed)
			require.NoError(t, err)
			assert.Equal(t, len(original), len(restored))
			assert.Equal(t, string(original), string(restored))
		})
	}
}

func TestDecompressChunked_Rejects(t *testing.T) {
	ctx := testutil.TestContext(t)
	zstdPool := newTestPool(t, &Config{Algorithm: Zstd, Concurrency: 1, Policy: pool.Dynamic, ChunkSize: 64})
	lz4Pool := newTestPool(t, &Config{Algorithm: LZ4, Concurrency: 1, Policy: pool.Dynamic, ChunkSize: 64})

	framed, err := zstdPool.CompressChunked(ctx, generateTextData(1000))
	require.NoError(t, err)

	_, err = lz4Pool.DecompressChunked(ctx, framed)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCompression), "algorithm mismatch")

	_, err = zstdPool.DecompressChunked(ctx, framed[:len(framed)-10])
	assert.True(t, errors.IsType(err, errors.ErrorTypeCompression), "truncated")

	_, err = zstdPool.DecompressChunked(ctx, []byte("nope"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeCompression), "no header")
}

func TestSplitIntoChunks(t *testing.T) {
	chunks := splitIntoChunks([]byte("abcdefg"), 3)
	assert.Equal(t, [][]byte{[]byte("abc"), []byte("def"), []byte("g")}, chunks)
	assert.Empty(t, splitIntoChunks(nil, 3))
}
