package cipher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferPoolGetPutRoundTrips(t *testing.T) {
	p := NewBufferPool(1024)
	buf := p.Get()
	require.Len(t, buf, 1024)

	buf[0] = 0xFF
	p.Put(buf)

	hits, misses := p.Stats()
	require.Equal(t, int64(0), hits)
	require.Equal(t, int64(1), misses)

	buf2 := p.Get()
	require.Equal(t, byte(0), buf2[0], "returned buffer must be zeroed")

	hits, misses = p.Stats()
	require.Equal(t, int64(1), hits)
	require.Equal(t, int64(1), misses)
}

func TestBufferPoolDefaultSize(t *testing.T) {
	p := NewBufferPool(0)
	require.Len(t, p.Get(), defaultPooledBufferSize)
}
