// Package topology maps flat indices to n-dimensional coordinates and
// enumerates neighborhoods over column and input spaces.
package topology

import (
	"slices"

	"github.com/Amansingh-afk/htmcore/rng"
)

// Topology describes a row-major n-dimensional grid.
type Topology struct {
	dims  []int
	mults []int // mults[i] = product(dims[i+1:])
}

// New returns the topology of a grid with the given dimensions.
// Panics if dims is empty or any dimension is non-positive.
func New(dims []int) Topology {
	if len(dims) == 0 {
		panic("topology: at least one dimension required")
	}
	mults := make([]int, len(dims))
	m := 1
	for i := len(dims) - 1; i >= 0; i-- {
		if dims[i] <= 0 {
			panic("topology: dimensions must be positive")
		}
		mults[i] = m
		m *= dims[i]
	}
	return Topology{dims: slices.Clone(dims), mults: mults}
}

// Dims returns a copy of the grid dimensions.
func (t Topology) Dims() []int { return slices.Clone(t.dims) }

func (t Topology) NumDimensions() int { return len(t.dims) }

// Size is the total number of cells in the grid.
func (t Topology) Size() int { return t.mults[0] * t.dims[0] }

// MaxDimension returns the largest single dimension.
func (t Topology) MaxDimension() int { return slices.Max(t.dims) }

// Coordinates converts a flat index to grid coordinates.
func (t Topology) Coordinates(index int) []int {
	coords := make([]int, len(t.dims))
	for i, m := range t.mults {
		coords[i] = index / m
		index %= m
	}
	return coords
}

// Index converts grid coordinates to a flat index.
func (t Topology) Index(coords []int) int {
	idx := 0
	for i, c := range coords {
		idx += c * t.mults[i]
	}
	return idx
}

// Neighborhood returns the flat indices within radius of center along every
// dimension. Wrapping treats each dimension as a ring; otherwise the
// neighborhood is clipped at the edges. The center itself is included.
func (t Topology) Neighborhood(center, radius int, wrap bool) []int {
	cp := t.Coordinates(center)

	ranges := make([][2]int, len(t.dims))
	for i, d := range t.dims {
		if wrap {
			lo := cp[i] - radius
			ranges[i] = [2]int{lo, min(lo+d-1, cp[i]+radius)}
		} else {
			ranges[i] = [2]int{max(0, cp[i]-radius), min(d-1, cp[i]+radius)}
		}
	}

	result := []int{0}
	for i, r := range ranges {
		next := make([]int, 0, len(result)*(r[1]-r[0]+1))
		for _, base := range result {
			for p := r[0]; p <= r[1]; p++ {
				next = append(next, base+modulo(p, t.dims[i])*t.mults[i])
			}
		}
		result = next
	}
	return result
}

// AvgSpan returns the bounding-box edge length of indices averaged over all
// dimensions, or 0 for no indices.
func (t Topology) AvgSpan(indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	lo := make([]int, len(t.dims))
	hi := make([]int, len(t.dims))
	for i := range lo {
		lo[i] = t.dims[i]
		hi[i] = -1
	}
	for _, idx := range indices {
		for i, c := range t.Coordinates(idx) {
			lo[i] = min(lo[i], c)
			hi[i] = max(hi[i], c)
		}
	}
	sum := 0
	for i := range lo {
		sum += hi[i] - lo[i] + 1
	}
	return float64(sum) / float64(len(t.dims))
}

// MapColumn maps a column to the input index at the center of its natural
// receptive field.
func MapColumn(column int, columns, inputs Topology) int {
	cc := columns.Coordinates(column)
	coords := make([]int, inputs.NumDimensions())
	for i := range coords {
		ratio := float64(cc[i]) / float64(columns.dims[i])
		span := float64(inputs.dims[i]) / float64(columns.dims[i])
		c := int(float64(inputs.dims[i])*ratio + span*0.5)
		coords[i] = min(max(c, 0), inputs.dims[i]-1)
	}
	return inputs.Index(coords)
}

// MapPotential selects the potential pool of a column: round(len(rf) * pct)
// inputs sampled from the receptive field of the given radius around the
// column's mapped center. The result is sorted ascending.
func MapPotential(column int, columns, inputs Topology, radius int, pct float64, wrap bool, r *rng.Source) []int {
	center := MapColumn(column, columns, inputs)
	rf := inputs.Neighborhood(center, radius, wrap)
	n := int(float64(len(rf))*pct + 0.5)
	return r.Sample(rf, n)
}

func modulo(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
