package spatial

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers returns the number of logical CPUs, falling back to
// runtime.NumCPU when the host cannot be queried.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// NewMT returns a pooler that runs the overlap and boost stages on up to
// workers goroutines, each owning a contiguous range of columns. Inhibition
// and learning stay sequential. workers <= 0 selects DefaultWorkers.
//
// The parallel stages draw no random numbers, so today the active columns
// match New for the same seed. Callers must not rely on that.
func NewMT(workers int, opts ...Option) *SpatialPooler {
	sp := New(opts...)
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	sp.workers = workers
	return sp
}

// forColumns calls fn over [0, NumColumns) split into one range per worker.
// Each range writes only its own output slots.
func (sp *SpatialPooler) forColumns(fn func(lo, hi int)) {
	n := sp.conn.NumColumns()
	if sp.workers <= 1 || n < 2*sp.workers {
		fn(0, n)
		return
	}

	chunk := (n + sp.workers - 1) / sp.workers
	var g errgroup.Group
	g.SetLimit(sp.workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
