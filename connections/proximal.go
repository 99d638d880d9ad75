package connections

import (
	"slices"
	"sort"
)

// Column is one spatial pooler unit. It owns its proximal pool; its cells are
// implied by its index.
type Column struct {
	index int
	pool  Pool
}

// Index returns the column's flat index.
func (col *Column) Index() int { return col.index }

// Pool returns the column's proximal receptive field.
func (col *Column) Pool() *Pool { return &col.pool }

// Pool is the proximal receptive field of a column over the input space.
// Only potential inputs can hold a permanence; trimmed synapses are dropped
// from the permanence map while staying in the potential set.
type Pool struct {
	potential []int           // sorted
	perms     map[int]float64 // input -> permanence, zero entries absent
	connected []int           // sorted inputs with permanence >= connected threshold
}

// Potential returns the potential inputs in ascending order.
func (p *Pool) Potential() []int { return slices.Clone(p.potential) }

// Size is the number of potential inputs.
func (p *Pool) Size() int { return len(p.potential) }

// IsPotential reports whether input belongs to the pool.
func (p *Pool) IsPotential(input int) bool {
	_, ok := slices.BinarySearch(p.potential, input)
	return ok
}

// Permanence returns the permanence towards input, 0 if none.
func (p *Pool) Permanence(input int) float64 { return p.perms[input] }

// NumSynapses is the number of potential inputs holding a non-zero permanence.
func (p *Pool) NumSynapses() int { return len(p.perms) }

// Connected returns the connected inputs in ascending order. The slice is shared; do not modify.
func (p *Pool) Connected() []int { return p.connected }

// DensePermanences returns a slice of length numInputs holding every permanence.
func (p *Pool) DensePermanences(numInputs int) []float64 {
	out := make([]float64, numInputs)
	p.FillPermanences(out)
	return out
}

// SparsePermanences returns the permanences aligned with Potential().
func (p *Pool) SparsePermanences() []float64 {
	out := make([]float64, len(p.potential))
	for i, in := range p.potential {
		out[i] = p.perms[in]
	}
	return out
}

// FillPermanences writes the stored permanences into dst, indexed by input.
// Entries of dst outside the stored synapses are left untouched.
func (p *Pool) FillPermanences(dst []float64) {
	for in, v := range p.perms {
		dst[in] = v
	}
}

// Column returns the column at index.
func (c *Connections) Column(index int) *Column { return &c.columns[index] }

// SetPotentialPool replaces a column's potential inputs and clears its permanences.
func (c *Connections) SetPotentialPool(column int, potential []int) {
	pot := slices.Clone(potential)
	sort.Ints(pot)
	c.columns[column].pool = Pool{potential: slices.Compact(pot), perms: make(map[int]float64)}
}

// SetProximalPermanences stores dense permanences (indexed by input) for a
// column. Inputs outside the potential pool are ignored, values <= 0 remove the
// synapse, and the connected set is rebuilt against SynPermConnected.
func (c *Connections) SetProximalPermanences(column int, dense []float64) {
	p := &c.columns[column].pool
	threshold := c.cfg.SynPermConnected
	clear(p.perms)
	p.connected = p.connected[:0]
	for _, in := range p.potential {
		v := dense[in]
		if v <= 0 {
			continue
		}
		p.perms[in] = v
		if v >= threshold-Epsilon {
			p.connected = append(p.connected, in)
		}
	}
}

// SetSparsePermanences is SetProximalPermanences for values aligned with Potential().
func (c *Connections) SetSparsePermanences(column int, sparse []float64) {
	p := &c.columns[column].pool
	if len(sparse) != len(p.potential) {
		panic("connections: sparse permanences must align with the potential pool")
	}
	threshold := c.cfg.SynPermConnected
	clear(p.perms)
	p.connected = p.connected[:0]
	for i, in := range p.potential {
		v := sparse[i]
		if v <= 0 {
			continue
		}
		p.perms[in] = v
		if v >= threshold-Epsilon {
			p.connected = append(p.connected, in)
		}
	}
}

// ConnectedCounts returns the number of connected proximal synapses per column.
func (c *Connections) ConnectedCounts() []int {
	out := make([]int, len(c.columns))
	for i := range c.columns {
		out[i] = len(c.columns[i].pool.connected)
	}
	return out
}
