package temporal

import (
	"math"
	"slices"

	"github.com/Amansingh-afk/htmcore/connections"
	"github.com/Amansingh-afk/htmcore/sdr"
)

// cellBits is a set of cells backed by an SDR over the cell space.
type cellBits struct{ sdr.Vector }

func cellSet(numCells int, cells []connections.Cell) cellBits {
	idx := make([]int, len(cells))
	for i, c := range cells {
		idx[i] = int(c)
	}
	return cellBits{sdr.FromIndices(numCells, idx)}
}

func (s cellBits) has(c connections.Cell) bool { return s.Has(int(c)) }

// AdaptSegment updates every synapse of seg: synapses from a cell in
// activeCells gain inc, all others lose dec. Results are clamped to [0, 1];
// a synapse left at or below Epsilon is destroyed, and a segment left
// without synapses is destroyed with it.
//
// Passing NoSegment or a destroyed segment panics.
func AdaptSegment(conn *connections.Connections, seg connections.Segment, activeCells []connections.Cell, inc, dec float64) {
	adaptSegment(conn, seg, cellSet(conn.NumCells(), activeCells), inc, dec)
}

func adaptSegment(conn *connections.Connections, seg connections.Segment, active cellBits, inc, dec float64) {
	if seg == connections.NoSegment {
		panic("temporal: AdaptSegment called without a segment")
	}
	for _, syn := range conn.Synapses(seg) {
		p := conn.Permanence(syn)
		if active.has(conn.PresynapticCell(syn)) {
			p += inc
		} else {
			p -= dec
		}
		p = math.Max(0, math.Min(1, p))
		if p <= connections.Epsilon {
			conn.DestroySynapse(syn)
			continue
		}
		conn.SetPermanence(syn, p)
	}
	if conn.NumSynapses(seg) == 0 {
		conn.DestroySegment(seg)
	}
}

// GrowSynapses connects seg to up to n randomly chosen cells of winners it is
// not yet connected to, at InitialPermanence. When the segment would exceed
// MaxSynapsesPerSegment its weakest synapses from non-winner cells are
// destroyed first.
func GrowSynapses(conn *connections.Connections, seg connections.Segment, winners []connections.Cell, n int) {
	cfg := conn.Config()
	winnerSet := cellSet(conn.NumCells(), winners)

	existing := conn.Synapses(seg)
	connected := make([]connections.Cell, 0, len(existing))
	for _, syn := range existing {
		connected = append(connected, conn.PresynapticCell(syn))
	}
	connectedSet := cellSet(conn.NumCells(), connected)

	candidates := make([]int, 0, len(winners))
	for _, c := range winners {
		if !connectedSet.has(c) {
			candidates = append(candidates, int(c))
		}
	}
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	grow := min(n, len(candidates))
	if grow <= 0 {
		return
	}

	if overrun := conn.NumSynapses(seg) + grow - cfg.MaxSynapsesPerSegment; overrun > 0 {
		evictWeakest(conn, existing, winnerSet, overrun)
	}
	grow = min(grow, cfg.MaxSynapsesPerSegment-conn.NumSynapses(seg))

	for _, c := range conn.Random().Sample(candidates, grow) {
		conn.CreateSynapse(seg, connections.Cell(c), cfg.InitialPermanence)
	}
}

// evictWeakest destroys up to n of the weakest synapses whose presynaptic
// cell is not in keep.
func evictWeakest(conn *connections.Connections, synapses []connections.Synapse, keep cellBits, n int) {
	eligible := make([]connections.Synapse, 0, len(synapses))
	for _, syn := range synapses {
		if !keep.has(conn.PresynapticCell(syn)) {
			eligible = append(eligible, syn)
		}
	}
	policy := conn.WeakestSynapse()
	for range n {
		victim, ok := policy.Victim(eligible)
		if !ok {
			return
		}
		conn.DestroySynapse(victim)
		eligible = slices.DeleteFunc(eligible, func(s connections.Synapse) bool { return s == victim })
	}
}

// BestMatchingSegment returns the segment with the most potential synapses
// in act. Ties go to the segment whose cell has the fewest segments, then to
// the first in the given order.
func BestMatchingSegment(conn *connections.Connections, segs []connections.Segment, act connections.Activity) connections.Segment {
	best, bestCount, bestLoad := connections.NoSegment, -1, 0
	for _, seg := range segs {
		n := act.Potential(seg)
		load := conn.NumSegments(conn.CellForSegment(seg))
		if n > bestCount || (n == bestCount && load < bestLoad) {
			best, bestCount, bestLoad = seg, n, load
		}
	}
	return best
}

// LeastUsedCell returns the cell of cells with the fewest segments. Ties are
// broken with the model's random source.
func LeastUsedCell(conn *connections.Connections, cells []connections.Cell) connections.Cell {
	fewest := math.MaxInt
	var tied []connections.Cell
	for _, c := range cells {
		switch n := conn.NumSegments(c); {
		case n < fewest:
			fewest = n
			tied = append(tied[:0], c)
		case n == fewest:
			tied = append(tied, c)
		}
	}
	return tied[conn.Random().Intn(len(tied))]
}
