package buffer

import (
	"github.com/valyala/bytebufferpool"
)

// Pool hands out fixed-size scratch buffers for streaming copies,
// backed by bytebufferpool so segment forwarding does not allocate a
// fresh slice per request.
type Pool struct {
	pool *bytebufferpool.Pool
	size int
}

// NewPool creates a pool of scratch buffers of the given size.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 32 * 1024
	}
	return &Pool{pool: &bytebufferpool.Pool{}, size: size}
}

// Get returns a pooled buffer plus a scratch slice of the pool's
// configured size over its storage. The buffer must go back via Put
// once the slice is no longer in use.
func (p *Pool) Get() (*bytebufferpool.ByteBuffer, []byte) {
	buf := p.pool.Get()
	if cap(buf.B) < p.size {
		buf.B = make([]byte, p.size)
	}
	return buf, buf.B[:p.size]
}

// Put returns a buffer to the pool.
func (p *Pool) Put(buf *bytebufferpool.ByteBuffer) {
	if buf != nil {
		p.pool.Put(buf)
	}
}
