package spatial

import "sync"

// bufPool recycles dense permanence buffers (one float64 per input) so that
// learning does not allocate per active column.
//
// Zeroing happens on get, not put, so a stale buffer returned to the pool
// can never leak permanences into the next column.
type bufPool struct {
	floats sync.Pool // stores *[]float64
}

func newBufPool(size int) *bufPool {
	return &bufPool{
		floats: sync.Pool{
			New: func() any {
				buf := make([]float64, size)
				return &buf
			},
		},
	}
}

// get returns a zeroed buffer of the size given to newBufPool.
func (p *bufPool) get() []float64 {
	bp := p.floats.Get().(*[]float64)
	buf := *bp
	clear(buf)
	return buf
}

// put returns a buffer to the pool.
func (p *bufPool) put(buf []float64) {
	p.floats.Put(&buf)
}
