package connections

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/Amansingh-afk/htmcore/htmerr"
)

type cellData struct {
	segments  []Segment // creation order
	receptors []Synapse // synapses whose presynaptic cell is this cell
}

type segmentData struct {
	cell     Cell
	ordinal  int
	lastUsed int
	synapses []Synapse
	alive    bool
}

type synapseData struct {
	presynaptic Cell
	segment     Segment
	permanence  float64
	ordinal     int
	alive       bool
}

// ── segments ──────────────────────────────────────────────────────────────────

// CreateSegment adds a distal segment to cell. While the cell is at
// MaxSegmentsPerCell the least recently used segment is destroyed first.
func (c *Connections) CreateSegment(cell Cell) Segment {
	policy := c.LeastRecentlyUsed()
	for len(c.cells[cell].segments) >= c.cfg.MaxSegmentsPerCell {
		victim, _ := policy.Victim(c.cells[cell].segments)
		c.logger.Debug("evicting segment",
			slog.String("policy", policy.Name),
			slog.Int("cell", int(cell)),
			slog.Int("last_used", c.segments[victim].lastUsed))
		c.DestroySegment(victim)
	}

	var seg Segment
	if n := len(c.freeSegments); n > 0 {
		seg = c.freeSegments[n-1]
		c.freeSegments = c.freeSegments[:n-1]
	} else {
		seg = Segment(len(c.segments))
		c.segments = append(c.segments, segmentData{})
	}

	c.segments[seg] = segmentData{
		cell:     cell,
		ordinal:  c.nextSegmentOrdinal,
		lastUsed: c.iteration,
		synapses: c.segments[seg].synapses[:0],
		alive:    true,
	}
	c.nextSegmentOrdinal++
	c.numSegments++
	c.cells[cell].segments = append(c.cells[cell].segments, seg)
	return seg
}

// DestroySegment removes seg, its synapses and every reference to it from the
// cell's segment list and the active/matching segment lists.
func (c *Connections) DestroySegment(seg Segment) {
	sd := c.segment(seg)
	for _, syn := range sd.synapses {
		c.removeReceptor(syn)
		c.synapses[syn].alive = false
		c.freeSynapses = append(c.freeSynapses, syn)
	}
	c.numSynapses -= len(sd.synapses)
	sd.synapses = sd.synapses[:0]

	cd := &c.cells[sd.cell]
	if i := slices.Index(cd.segments, seg); i >= 0 {
		cd.segments = slices.Delete(cd.segments, i, i+1)
	}
	c.activeSegments = deleteValue(c.activeSegments, seg)
	c.matchingSegments = deleteValue(c.matchingSegments, seg)

	sd.alive = false
	c.numSegments--
	c.freeSegments = append(c.freeSegments, seg)
}

// IsAlive reports whether seg names a live segment.
func (c *Connections) IsAlive(seg Segment) bool {
	return seg >= 0 && int(seg) < len(c.segments) && c.segments[seg].alive
}

// Segments returns the segments of cell in creation order.
func (c *Connections) Segments(cell Cell) []Segment { return clone(c.cells[cell].segments) }

// NumSegments returns the number of segments on cell.
func (c *Connections) NumSegments(cell Cell) int { return len(c.cells[cell].segments) }

// SegmentAt returns the i-th segment of cell.
func (c *Connections) SegmentAt(cell Cell, i int) (Segment, error) {
	segs := c.cells[cell].segments
	if i < 0 || i >= len(segs) || i >= c.cfg.MaxSegmentsPerCell {
		return NoSegment, outOfRange("segment", i, len(segs))
	}
	return segs[i], nil
}

// CellForSegment returns the cell owning seg.
func (c *Connections) CellForSegment(seg Segment) Cell { return c.segment(seg).cell }

// SegmentOrdinal is the creation sequence number of seg; it is never reused.
func (c *Connections) SegmentOrdinal(seg Segment) int { return c.segment(seg).ordinal }

// LastUsedIteration is the learning iteration seg was last active in.
func (c *Connections) LastUsedIteration(seg Segment) int { return c.segment(seg).lastUsed }

// RecordSegmentActivity marks seg as used in the current iteration.
func (c *Connections) RecordSegmentActivity(seg Segment) { c.segment(seg).lastUsed = c.iteration }

// SegmentCount is the number of live segments.
func (c *Connections) SegmentCount() int { return c.numSegments }

// SegmentArenaSize is one past the largest segment index ever handed out.
func (c *Connections) SegmentArenaSize() int { return len(c.segments) }

// CompareSegments orders segments by owning cell, then creation order.
func (c *Connections) CompareSegments(a, b Segment) int {
	sa, sb := &c.segments[a], &c.segments[b]
	if sa.cell != sb.cell {
		return int(sa.cell) - int(sb.cell)
	}
	return sa.ordinal - sb.ordinal
}

// ── synapses ──────────────────────────────────────────────────────────────────

// CreateSynapse connects presynaptic to seg with the given permanence. While
// seg is at MaxSynapsesPerSegment its weakest synapse is destroyed first.
// The permanence is stored as given; learning rules clamp it.
func (c *Connections) CreateSynapse(seg Segment, presynaptic Cell, permanence float64) Synapse {
	sd := c.segment(seg)
	policy := c.WeakestSynapse()
	for len(sd.synapses) >= c.cfg.MaxSynapsesPerSegment {
		victim, _ := policy.Victim(sd.synapses)
		c.logger.Debug("evicting synapse",
			slog.String("policy", policy.Name),
			slog.Int("segment", int(seg)),
			slog.Float64("permanence", c.synapses[victim].permanence))
		c.DestroySynapse(victim)
	}

	var syn Synapse
	if n := len(c.freeSynapses); n > 0 {
		syn = c.freeSynapses[n-1]
		c.freeSynapses = c.freeSynapses[:n-1]
	} else {
		syn = Synapse(len(c.synapses))
		c.synapses = append(c.synapses, synapseData{})
	}
	c.synapses[syn] = synapseData{
		presynaptic: presynaptic,
		segment:     seg,
		permanence:  permanence,
		ordinal:     c.nextSynapseOrdinal,
		alive:       true,
	}
	c.nextSynapseOrdinal++
	c.numSynapses++
	sd.synapses = append(sd.synapses, syn)
	c.cells[presynaptic].receptors = append(c.cells[presynaptic].receptors, syn)
	return syn
}

// DestroySynapse removes syn from its segment and from its presynaptic cell.
// The segment is left in place even when it becomes empty.
func (c *Connections) DestroySynapse(syn Synapse) {
	sy := c.synapse(syn)
	sd := &c.segments[sy.segment]
	if i := slices.Index(sd.synapses, syn); i >= 0 {
		sd.synapses = slices.Delete(sd.synapses, i, i+1)
	}
	c.removeReceptor(syn)
	sy.alive = false
	c.numSynapses--
	c.freeSynapses = append(c.freeSynapses, syn)
}

// Synapses returns the synapses of seg in creation order.
func (c *Connections) Synapses(seg Segment) []Synapse { return clone(c.segment(seg).synapses) }

// NumSynapses returns the number of synapses on seg.
func (c *Connections) NumSynapses(seg Segment) int { return len(c.segment(seg).synapses) }

// SynapseAt returns the i-th synapse of seg.
func (c *Connections) SynapseAt(seg Segment, i int) (Synapse, error) {
	syns := c.segment(seg).synapses
	if i < 0 || i >= len(syns) || i >= c.cfg.MaxSynapsesPerSegment {
		return -1, outOfRange("synapse", i, len(syns))
	}
	return syns[i], nil
}

// ReceptorSynapses returns the synapses whose presynaptic cell is cell.
func (c *Connections) ReceptorSynapses(cell Cell) []Synapse { return clone(c.cells[cell].receptors) }

// PresynapticCell returns the source cell of syn.
func (c *Connections) PresynapticCell(syn Synapse) Cell { return c.synapse(syn).presynaptic }

// SegmentForSynapse returns the segment syn belongs to.
func (c *Connections) SegmentForSynapse(syn Synapse) Segment { return c.synapse(syn).segment }

// Permanence returns the permanence of syn.
func (c *Connections) Permanence(syn Synapse) float64 { return c.synapse(syn).permanence }

// SetPermanence overwrites the permanence of syn.
func (c *Connections) SetPermanence(syn Synapse, permanence float64) {
	c.synapse(syn).permanence = permanence
}

// SynapseCount is the number of live distal synapses.
func (c *Connections) SynapseCount() int { return c.numSynapses }

// ── helpers ───────────────────────────────────────────────────────────────────

func (c *Connections) segment(seg Segment) *segmentData {
	if seg < 0 || int(seg) >= len(c.segments) || !c.segments[seg].alive {
		panic(fmt.Sprintf("connections: segment %d is not alive", seg))
	}
	return &c.segments[seg]
}

func (c *Connections) synapse(syn Synapse) *synapseData {
	if syn < 0 || int(syn) >= len(c.synapses) || !c.synapses[syn].alive {
		panic(fmt.Sprintf("connections: synapse %d is not alive", syn))
	}
	return &c.synapses[syn]
}

func (c *Connections) removeReceptor(syn Synapse) {
	cd := &c.cells[c.synapses[syn].presynaptic]
	if i := slices.Index(cd.receptors, syn); i >= 0 {
		last := len(cd.receptors) - 1
		cd.receptors[i] = cd.receptors[last]
		cd.receptors = cd.receptors[:last]
	}
}

func deleteValue[T comparable](s []T, v T) []T {
	if i := slices.Index(s, v); i >= 0 {
		return slices.Delete(s, i, i+1)
	}
	return s
}

func outOfRange(kind string, i, n int) error {
	return htmerr.Newf(htmerr.CodeOutOfRange, htmerr.CategoryCapacity, "%s index %d out of range [0, %d)", kind, i, n).
		WithContext("index", i)
}
