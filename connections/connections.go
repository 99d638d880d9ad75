// Package connections is the shared data model of the spatial pooler and the
// temporal memory: columns with their proximal pools, cells, and the distal
// segments and synapses grown during learning.
//
// Entities live in flat arenas addressed by integer handles. Columns and cells
// are allocated once by New; segments and synapses are created and destroyed
// during learning, and their slots are recycled through free lists.
//
// A Connections is not safe for concurrent mutation. Callers must not run
// two compute steps on the same instance at once.
package connections

import (
	"log/slog"

	"github.com/Amansingh-afk/htmcore/config"
	"github.com/Amansingh-afk/htmcore/rng"
	"github.com/Amansingh-afk/htmcore/topology"
)

// Epsilon is the permanence tolerance shared by all learning rules.
const Epsilon = config.Epsilon

// Cell is the global index of a cell: column*CellsPerColumn + offset.
type Cell int

// Segment is the flat index of a distal segment. Indices of destroyed
// segments are reused, so a handle is only meaningful while its segment lives.
type Segment int

// Synapse is the flat index of a distal synapse. Like Segment, indices are reused.
type Synapse int

// NoSegment is the zero handle; it never names a live segment.
const NoSegment Segment = -1

// Connections holds the model graph and the per-run state shared by both engines.
type Connections struct {
	cfg     *config.Config
	random  *rng.Source
	logger  *slog.Logger
	columns []Column
	inputs  topology.Topology
	colTop  topology.Topology

	cells        []cellData
	segments     []segmentData
	synapses     []synapseData
	freeSegments []Segment
	freeSynapses []Synapse

	numSegments        int
	numSynapses        int
	nextSegmentOrdinal int
	nextSynapseOrdinal int
	iteration          int

	activeCells      []Cell
	winnerCells      []Cell
	activeSegments   []Segment
	matchingSegments []Segment
}

// Option configures a Connections.
type Option func(*Connections)

// WithLogger sets the logger used for eviction records (default slog.Default()).
func WithLogger(l *slog.Logger) Option { return func(c *Connections) { c.logger = l } }

// WithRandom replaces the seeded source derived from Config.Seed.
func WithRandom(r *rng.Source) Option { return func(c *Connections) { c.random = r } }

// New validates cfg and allocates columns and cells. cfg is copied;
// later changes go through Config().
func New(cfg *config.Config, opts ...Option) (*Connections, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()
	if cfg.PotentialRadius == -1 {
		cfg.PotentialRadius = cfg.NumInputs()
	}

	c := &Connections{
		cfg:     cfg,
		columns: make([]Column, cfg.NumColumns()),
		cells:   make([]cellData, cfg.NumCells()),
		inputs:  topology.New(cfg.InputDimensions),
		colTop:  topology.New(cfg.ColumnDimensions),
	}
	for i := range c.columns {
		c.columns[i] = Column{index: i}
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.random == nil {
		c.random = rng.New(cfg.Seed)
	}
	if c.logger == nil {
		c.logger = slog.Default().With(slog.String("component", "connections"))
	}
	return c, nil
}

// Config returns the live configuration. Mutations take effect on the next compute step.
func (c *Connections) Config() *config.Config { return c.cfg }

// Random returns the seeded source owned by this instance.
func (c *Connections) Random() *rng.Source { return c.random }

// Logger returns the instance logger.
func (c *Connections) Logger() *slog.Logger { return c.logger }

// InputTopology is the topology of the input space.
func (c *Connections) InputTopology() topology.Topology { return c.inputs }

// ColumnTopology is the topology of the column space.
func (c *Connections) ColumnTopology() topology.Topology { return c.colTop }

func (c *Connections) NumColumns() int { return len(c.columns) }

func (c *Connections) NumInputs() int { return c.inputs.Size() }

func (c *Connections) NumCells() int { return len(c.cells) }

// ColumnForCell returns the column index owning cell.
func (c *Connections) ColumnForCell(cell Cell) int { return int(cell) / c.cfg.CellsPerColumn }

// CellsForColumn returns the cells of column in ascending order.
func (c *Connections) CellsForColumn(column int) []Cell {
	n := c.cfg.CellsPerColumn
	out := make([]Cell, n)
	for i := range out {
		out[i] = Cell(column*n + i)
	}
	return out
}

// Iteration is the temporal memory learning iteration counter.
func (c *Connections) Iteration() int { return c.iteration }

// StartNewIteration advances the learning iteration counter.
func (c *Connections) StartNewIteration() { c.iteration++ }

// ── temporal memory activity ─────────────────────────────────────────────────

// ActiveCells returns the cells active after the last compute step.
func (c *Connections) ActiveCells() []Cell { return clone(c.activeCells) }

// WinnerCells returns the winner cells of the last compute step.
func (c *Connections) WinnerCells() []Cell { return clone(c.winnerCells) }

// ActiveSegments returns the segments that reached the activation threshold,
// ordered by cell and then creation order.
func (c *Connections) ActiveSegments() []Segment { return clone(c.activeSegments) }

// MatchingSegments returns the segments that reached the matching threshold,
// ordered like ActiveSegments.
func (c *Connections) MatchingSegments() []Segment { return clone(c.matchingSegments) }

// SetActivity replaces the activity state produced by a compute step.
// The slices are retained.
func (c *Connections) SetActivity(activeCells, winnerCells []Cell, activeSegments, matchingSegments []Segment) {
	c.activeCells = activeCells
	c.winnerCells = winnerCells
	c.activeSegments = activeSegments
	c.matchingSegments = matchingSegments
}

// ClearActivity forgets the activity of the previous step (sequence reset).
func (c *Connections) ClearActivity() {
	c.activeCells = nil
	c.winnerCells = nil
	c.activeSegments = nil
	c.matchingSegments = nil
}

func clone[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
