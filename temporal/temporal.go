// Package temporal implements the temporal memory: given the active columns
// of each step it selects active and winner cells, predicts the next step
// through distal segments, and learns sequences by growing and adapting
// distal synapses.
package temporal

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/Amansingh-afk/htmcore/config"
	"github.com/Amansingh-afk/htmcore/connections"
	"github.com/Amansingh-afk/htmcore/htmerr"
)

// Cycle is the outcome of one compute step. Cells and segments are sorted.
type Cycle struct {
	ActiveCells      []connections.Cell
	WinnerCells      []connections.Cell
	PredictiveCells  []connections.Cell
	ActiveSegments   []connections.Segment
	MatchingSegments []connections.Segment
	// BurstingColumns are the active columns that had no predictive cell.
	BurstingColumns []int
}

// TemporalMemory runs the sequence-learning algorithm over the distal part of
// a Connections. Its activity state lives in the Connections; the memory
// itself only keeps the synapse counts of the last step. Not safe for
// concurrent use.
type TemporalMemory struct {
	conn   *connections.Connections
	cfg    *config.Config
	logger *slog.Logger

	// lastActivity holds the counts behind the current active and matching
	// segments; learning in the next step sizes synapse growth from it.
	lastActivity connections.Activity
}

// Option configures a TemporalMemory.
type Option func(*TemporalMemory)

// WithLogger sets the logger (default slog.Default() tagged component=temporal).
func WithLogger(l *slog.Logger) Option { return func(tm *TemporalMemory) { tm.logger = l } }

// New returns a temporal memory. Call Init before Compute.
func New(opts ...Option) *TemporalMemory {
	tm := &TemporalMemory{}
	for _, opt := range opts {
		opt(tm)
	}
	if tm.logger == nil {
		tm.logger = slog.Default().With(slog.String("component", "temporal"))
	}
	return tm
}

// Init binds the memory to conn after validating its configuration.
func (tm *TemporalMemory) Init(conn *connections.Connections) error {
	if err := conn.Config().Validate(); err != nil {
		return err
	}
	tm.conn, tm.cfg = conn, conn.Config()
	tm.lastActivity = connections.Activity{}
	return nil
}

// Compute feeds one step of active columns. Learning grows and adapts distal
// synapses; without it the graph is left unchanged. An empty column set is
// valid and yields empty cell sets.
func (tm *TemporalMemory) Compute(activeColumns []int, learn bool) (Cycle, error) {
	conn := tm.mustConn()
	cols := slices.Clone(activeColumns)
	slices.Sort(cols)
	cols = slices.Compact(cols)
	for _, col := range cols {
		if col < 0 || col >= conn.NumColumns() {
			return Cycle{}, htmerr.Newf(htmerr.CodeInputMismatch, htmerr.CategoryValidation,
				"active column %d out of range [0, %d)", col, conn.NumColumns()).
				WithContext("column", col)
		}
	}

	bursting := tm.activateCells(cols, learn)
	tm.activateDendrites(learn)

	cycle := Cycle{
		ActiveCells:      conn.ActiveCells(),
		WinnerCells:      conn.WinnerCells(),
		PredictiveCells:  tm.PredictiveCells(),
		ActiveSegments:   conn.ActiveSegments(),
		MatchingSegments: conn.MatchingSegments(),
		BurstingColumns:  bursting,
	}
	tm.logger.Debug("temporal step",
		slog.Int("active_columns", len(cols)),
		slog.Int("bursting_columns", len(bursting)),
		slog.Int("predictive_cells", len(cycle.PredictiveCells)),
		slog.Int("segments", conn.SegmentCount()),
		slog.Int("synapses", conn.SynapseCount()),
	)
	return cycle, nil
}

// Reset forgets the activity of the previous step. Call it between
// sequences so the first element of the next one is not learnt as a
// continuation.
func (tm *TemporalMemory) Reset() {
	tm.mustConn().ClearActivity()
	tm.lastActivity = connections.Activity{}
}

// PredictiveCells returns the cells owning an active segment, i.e. the cells
// expected to become active in the next step.
func (tm *TemporalMemory) PredictiveCells() []connections.Cell {
	conn := tm.mustConn()
	var cells []connections.Cell
	for _, seg := range conn.ActiveSegments() {
		cell := conn.CellForSegment(seg)
		if n := len(cells); n == 0 || cells[n-1] != cell {
			cells = append(cells, cell)
		}
	}
	return cells
}

// Connections returns the model the memory was initialised with.
func (tm *TemporalMemory) Connections() *connections.Connections { return tm.conn }

// activateCells turns the active columns into active and winner cells and,
// with learning, reinforces or punishes the segments of the previous step.
// It returns the bursting columns.
func (tm *TemporalMemory) activateCells(cols []int, learn bool) []int {
	conn, cfg := tm.conn, tm.cfg

	prevActive := cellSet(conn.NumCells(), conn.ActiveCells())
	prevWinners := conn.WinnerCells()
	activeByCol := tm.groupByColumn(conn.ActiveSegments())
	matchingByCol := tm.groupByColumn(conn.MatchingSegments())

	activeCells := []connections.Cell{}
	winnerCells := []connections.Cell{}
	bursting := []int{}
	for _, col := range cols {
		if segs := activeByCol[col]; len(segs) > 0 {
			cells := tm.activatePredictedColumn(segs, prevActive, prevWinners, learn)
			activeCells = append(activeCells, cells...)
			winnerCells = append(winnerCells, cells...)
			continue
		}
		cells, winner := tm.burstColumn(col, matchingByCol[col], prevActive, prevWinners, learn)
		activeCells = append(activeCells, cells...)
		winnerCells = append(winnerCells, winner)
		bursting = append(bursting, col)
	}

	if learn && cfg.PredictedSegmentDecrement > 0 {
		for _, col := range slices.Sorted(maps.Keys(matchingByCol)) {
			if _, active := slices.BinarySearch(cols, col); active {
				continue
			}
			for _, seg := range matchingByCol[col] {
				adaptSegment(conn, seg, prevActive, -cfg.PredictedSegmentDecrement, 0)
			}
		}
	}

	conn.SetActivity(activeCells, winnerCells, nil, nil)
	return bursting
}

// activatePredictedColumn makes the cells of the column's active segments
// active and winners, reinforcing each segment when learning.
func (tm *TemporalMemory) activatePredictedColumn(segs []connections.Segment, prevActive cellBits,
	prevWinners []connections.Cell, learn bool) []connections.Cell {
	conn, cfg := tm.conn, tm.cfg
	var cells []connections.Cell
	for _, seg := range segs {
		cell := conn.CellForSegment(seg)
		if n := len(cells); n == 0 || cells[n-1] != cell {
			cells = append(cells, cell)
		}
		if !learn {
			continue
		}
		grow := cfg.MaxNewSynapseCount - tm.lastActivity.Potential(seg)
		adaptSegment(conn, seg, prevActive, cfg.PermanenceIncrement, cfg.PermanenceDecrement)
		if grow > 0 && conn.IsAlive(seg) {
			GrowSynapses(conn, seg, prevWinners, grow)
		}
	}
	return cells
}

// burstColumn activates every cell of an unpredicted column and picks the
// winner: the cell of the best matching segment, or else the least used
// cell, which gets a new segment when learning.
func (tm *TemporalMemory) burstColumn(col int, matching []connections.Segment, prevActive cellBits,
	prevWinners []connections.Cell, learn bool) ([]connections.Cell, connections.Cell) {
	conn, cfg := tm.conn, tm.cfg
	cells := conn.CellsForColumn(col)

	if len(matching) > 0 {
		best := BestMatchingSegment(conn, matching, tm.lastActivity)
		winner := conn.CellForSegment(best)
		if learn {
			grow := cfg.MaxNewSynapseCount - tm.lastActivity.Potential(best)
			adaptSegment(conn, best, prevActive, cfg.PermanenceIncrement, cfg.PermanenceDecrement)
			if grow > 0 && conn.IsAlive(best) {
				GrowSynapses(conn, best, prevWinners, grow)
			}
		}
		return cells, winner
	}

	winner := LeastUsedCell(conn, cells)
	if learn {
		if grow := min(cfg.MaxNewSynapseCount, len(prevWinners)); grow > 0 {
			seg := conn.CreateSegment(winner)
			GrowSynapses(conn, seg, prevWinners, grow)
		}
	}
	return cells, winner
}

// activateDendrites computes the active and matching segments for the cells
// that are active now.
func (tm *TemporalMemory) activateDendrites(learn bool) {
	conn, cfg := tm.conn, tm.cfg
	activeCells := conn.ActiveCells()
	act := conn.ComputeActivity(activeCells, cfg.ConnectedPermanence)

	activeSegs := []connections.Segment{}
	matchingSegs := []connections.Segment{}
	for i := range act.PotentialSynapses {
		seg := connections.Segment(i)
		if !conn.IsAlive(seg) {
			continue
		}
		if act.Active(seg) >= cfg.ActivationThreshold {
			activeSegs = append(activeSegs, seg)
		}
		if act.Potential(seg) >= cfg.MinThreshold {
			matchingSegs = append(matchingSegs, seg)
		}
	}
	slices.SortFunc(activeSegs, conn.CompareSegments)
	slices.SortFunc(matchingSegs, conn.CompareSegments)

	conn.SetActivity(activeCells, conn.WinnerCells(), activeSegs, matchingSegs)
	if learn {
		for _, seg := range activeSegs {
			conn.RecordSegmentActivity(seg)
		}
		conn.StartNewIteration()
	}
	tm.lastActivity = act
}

// groupByColumn splits segments sorted by cell into per-column runs.
func (tm *TemporalMemory) groupByColumn(segs []connections.Segment) map[int][]connections.Segment {
	out := make(map[int][]connections.Segment)
	for _, seg := range segs {
		col := tm.conn.ColumnForCell(tm.conn.CellForSegment(seg))
		out[col] = append(out[col], seg)
	}
	return out
}

func (tm *TemporalMemory) mustConn() *connections.Connections {
	if tm.conn == nil {
		panic("temporal: memory used before Init")
	}
	return tm.conn
}
