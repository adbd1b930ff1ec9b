package cipher

import (
	"sync"
	"sync/atomic"
)

// defaultPooledBufferSize is the chunk size pooled buffers are sized for;
// it matches NewByteStream's default buffer budget so a gateway piping a
// ByteStream through a cipher sink rarely needs to allocate.
const defaultPooledBufferSize = 64 * 1024

// BufferPool pools byte slices used as scratch space for chunked
// encrypt/decrypt I/O, avoiding one allocation per chunk on a hot path
// that may move gigabytes through many short-lived buffers. Buffers are
// zeroed before being returned to the pool so key material or plaintext
// never lingers in a buffer an unrelated caller later reuses.
type BufferPool struct {
	pool          sync.Pool
	hits, misses  int64
	size          int
}

// NewBufferPool creates a BufferPool of buffers sized size bytes.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = defaultPooledBufferSize
	}
	return &BufferPool{size: size}
}

// Get returns a buffer from the pool, allocating a new one on a miss.
func (p *BufferPool) Get() []byte {
	if buf, ok := p.pool.Get().([]byte); ok {
		atomic.AddInt64(&p.hits, 1)
		return buf
	}
	atomic.AddInt64(&p.misses, 1)
	return make([]byte, p.size)
}

// Put zeroes buf and returns it to the pool.
func (p *BufferPool) Put(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	p.pool.Put(buf)
}

// Stats reports cumulative hit/miss counts since the pool was created.
func (p *BufferPool) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&p.hits), atomic.LoadInt64(&p.misses)
}
