package connections

// EvictionPolicy picks the victim among candidates: the first candidate with
// the smallest Key. A later candidate only replaces the current minimum when
// its key is lower by more than Tolerance, so near-ties keep the earlier one.
type EvictionPolicy[T any] struct {
	Name      string
	Key       func(T) float64
	Tolerance float64
}

// Victim returns the candidate to destroy, or false if there are none.
func (p EvictionPolicy[T]) Victim(candidates []T) (T, bool) {
	var victim T
	if len(candidates) == 0 {
		return victim, false
	}
	victim = candidates[0]
	minKey := p.Key(victim)
	for _, c := range candidates[1:] {
		if k := p.Key(c); k < minKey-p.Tolerance {
			victim, minKey = c, k
		}
	}
	return victim, true
}

// LeastRecentlyUsed evicts the segment with the oldest last-active iteration.
func (c *Connections) LeastRecentlyUsed() EvictionPolicy[Segment] {
	return EvictionPolicy[Segment]{
		Name: "least_recently_used",
		Key:  func(s Segment) float64 { return float64(c.segments[s].lastUsed) },
	}
}

// WeakestSynapse evicts the synapse with the lowest permanence.
func (c *Connections) WeakestSynapse() EvictionPolicy[Synapse] {
	return EvictionPolicy[Synapse]{
		Name:      "weakest_synapse",
		Key:       func(s Synapse) float64 { return c.synapses[s].permanence },
		Tolerance: Epsilon,
	}
}
