package connections

// Activity holds per-segment synapse counts for one set of active cells.
// Both slices are indexed by Segment.
type Activity struct {
	// ActiveSynapses counts synapses from active cells with permanence above
	// the connected threshold (minus Epsilon).
	ActiveSynapses []int
	// PotentialSynapses counts synapses from active cells regardless of permanence.
	PotentialSynapses []int
}

// Active returns the connected-synapse count of seg, 0 if unknown.
func (a Activity) Active(seg Segment) int { return at(a.ActiveSynapses, seg) }

// Potential returns the potential-synapse count of seg, 0 if unknown.
func (a Activity) Potential(seg Segment) int { return at(a.PotentialSynapses, seg) }

func at(s []int, seg Segment) int {
	if seg < 0 || int(seg) >= len(s) {
		return 0
	}
	return s[seg]
}

// ComputeActivity walks the receptor synapses of every active cell and
// counts, per segment, the potential synapses and the connected ones.
func (c *Connections) ComputeActivity(activeCells []Cell, connectedPermanence float64) Activity {
	act := Activity{
		ActiveSynapses:    make([]int, len(c.segments)),
		PotentialSynapses: make([]int, len(c.segments)),
	}
	threshold := connectedPermanence - Epsilon
	for _, cell := range activeCells {
		for _, syn := range c.cells[cell].receptors {
			sy := &c.synapses[syn]
			act.PotentialSynapses[sy.segment]++
			if sy.permanence > threshold {
				act.ActiveSynapses[sy.segment]++
			}
		}
	}
	return act
}
