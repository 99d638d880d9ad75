package temporal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amansingh-afk/htmcore/config"
	"github.com/Amansingh-afk/htmcore/connections"
	"github.com/Amansingh-afk/htmcore/htmerr"
	"github.com/Amansingh-afk/htmcore/temporal"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func tmConfig() *config.Config {
	cfg := config.Default()
	cfg.InputDimensions = []int{32}
	cfg.ColumnDimensions = []int{32}
	cfg.CellsPerColumn = 4
	cfg.ActivationThreshold = 3
	cfg.MinThreshold = 2
	cfg.MaxNewSynapseCount = 4
	cfg.InitialPermanence = 0.21
	cfg.ConnectedPermanence = 0.5
	cfg.PermanenceIncrement = 0.1
	cfg.PermanenceDecrement = 0.1
	cfg.PredictedSegmentDecrement = 0
	return cfg
}

func newMemory(t *testing.T, cfg *config.Config) (*temporal.TemporalMemory, *connections.Connections) {
	t.Helper()
	conn, err := connections.New(cfg)
	require.NoError(t, err)
	tm := temporal.New()
	require.NoError(t, tm.Init(conn))
	return tm, conn
}

func columnsOf(conn *connections.Connections, cells []connections.Cell) []int {
	var cols []int
	for _, c := range cells {
		col := conn.ColumnForCell(c)
		if n := len(cols); n == 0 || cols[n-1] != col {
			cols = append(cols, col)
		}
	}
	return cols
}

var (
	seqA = []int{0, 1, 2, 3}
	seqB = []int{4, 5, 6, 7}
	seqC = []int{8, 9, 10, 11}
)

func learnAB(t *testing.T, tm *temporal.TemporalMemory, reps int) {
	t.Helper()
	for range reps {
		_, err := tm.Compute(seqA, true)
		require.NoError(t, err)
		_, err = tm.Compute(seqB, true)
		require.NoError(t, err)
		tm.Reset()
	}
}

// ── AdaptSegment ──────────────────────────────────────────────────────────────

func adaptConn(t *testing.T) *connections.Connections {
	cfg := tmConfig()
	cfg.InputDimensions = []int{128}
	cfg.ColumnDimensions = []int{128}
	_, conn := newMemory(t, cfg)
	return conn
}

func TestAdaptSegment_IncrementsActiveDecrementsInactive(t *testing.T) {
	conn := adaptConn(t)
	seg := conn.CreateSegment(0)
	s1 := conn.CreateSynapse(seg, 23, 0.5)
	s2 := conn.CreateSynapse(seg, 37, 0.6)
	s3 := conn.CreateSynapse(seg, 477, 0.9)

	temporal.AdaptSegment(conn, seg, []connections.Cell{23, 37}, 0.1, 0.1)

	assert.InDelta(t, 0.6, conn.Permanence(s1), 1e-9)
	assert.InDelta(t, 0.7, conn.Permanence(s2), 1e-9)
	assert.InDelta(t, 0.8, conn.Permanence(s3), 1e-9)
}

func TestAdaptSegment_ClampsToOne(t *testing.T) {
	conn := adaptConn(t)
	seg := conn.CreateSegment(0)
	syn := conn.CreateSynapse(seg, 23, 1.1)

	temporal.AdaptSegment(conn, seg, []connections.Cell{23}, 0.1, 0.1)
	assert.Equal(t, 1.0, conn.Permanence(syn))

	temporal.AdaptSegment(conn, seg, []connections.Cell{23}, 0.1, 0.1)
	assert.Equal(t, 1.0, conn.Permanence(syn))
}

func TestAdaptSegment_NegativePermanenceDestroysSynapseAndSegment(t *testing.T) {
	conn := adaptConn(t)
	seg := conn.CreateSegment(0)
	conn.CreateSynapse(seg, 23, -1.5)

	temporal.AdaptSegment(conn, seg, []connections.Cell{23}, 0.1, 0.1)

	assert.False(t, conn.IsAlive(seg))
	assert.Zero(t, conn.NumSegments(0))
	assert.Zero(t, conn.SegmentCount())
	assert.Zero(t, conn.SynapseCount())
	assert.Empty(t, conn.ReceptorSynapses(23))
}

func TestAdaptSegment_DecrementBelowZeroDestroys(t *testing.T) {
	conn := adaptConn(t)
	seg := conn.CreateSegment(0)
	weak := conn.CreateSynapse(seg, 23, 0.05)
	strong := conn.CreateSynapse(seg, 37, 0.9)

	temporal.AdaptSegment(conn, seg, nil, 0.1, 0.1)

	assert.Equal(t, []connections.Synapse{strong}, conn.Synapses(seg))
	assert.InDelta(t, 0.8, conn.Permanence(strong), 1e-9)
	assert.Empty(t, conn.ReceptorSynapses(23))
	assert.NotContains(t, conn.Synapses(seg), weak)
}

func TestAdaptSegment_EpsilonBoundary(t *testing.T) {
	conn := adaptConn(t)
	seg := conn.CreateSegment(0)
	tiny := conn.CreateSynapse(seg, 23, 2*connections.Epsilon)
	conn.CreateSynapse(seg, 37, connections.Epsilon)

	temporal.AdaptSegment(conn, seg, nil, 0, 0)

	assert.Equal(t, []connections.Synapse{tiny}, conn.Synapses(seg), "values above Epsilon survive")
	assert.Equal(t, 2*connections.Epsilon, conn.Permanence(tiny))
}

func TestAdaptSegment_DestroyedSegmentLeavesActivityLists(t *testing.T) {
	conn := adaptConn(t)
	keep := conn.CreateSegment(1)
	conn.CreateSynapse(keep, 40, 0.6)
	gone := conn.CreateSegment(0)
	conn.CreateSynapse(gone, 23, 0.3)
	conn.SetActivity(nil, nil, []connections.Segment{gone, keep}, []connections.Segment{gone, keep})

	temporal.AdaptSegment(conn, gone, nil, 0, 1)

	assert.Equal(t, []connections.Segment{keep}, conn.ActiveSegments())
	assert.Equal(t, []connections.Segment{keep}, conn.MatchingSegments())
	assert.NotContains(t, conn.Segments(0), gone)
}

func TestAdaptSegment_PanicsWithoutSegment(t *testing.T) {
	conn := adaptConn(t)
	assert.PanicsWithValue(t, "temporal: AdaptSegment called without a segment", func() {
		temporal.AdaptSegment(conn, connections.NoSegment, nil, 0.1, 0.1)
	})

	seg := conn.CreateSegment(0)
	conn.DestroySegment(seg)
	assert.Panics(t, func() { temporal.AdaptSegment(conn, seg, nil, 0.1, 0.1) })
}

// ── growth and cell selection ─────────────────────────────────────────────────

func TestGrowSynapses_SkipsConnectedCells(t *testing.T) {
	_, conn := newMemory(t, tmConfig())
	seg := conn.CreateSegment(0)
	conn.CreateSynapse(seg, 10, 0.5)

	temporal.GrowSynapses(conn, seg, []connections.Cell{10, 11, 12, 13}, 2)

	require.Equal(t, 3, conn.NumSynapses(seg))
	seen := map[connections.Cell]bool{}
	for _, syn := range conn.Synapses(seg)[1:] {
		pre := conn.PresynapticCell(syn)
		assert.Contains(t, []connections.Cell{11, 12, 13}, pre)
		assert.False(t, seen[pre], "cell %d grown twice", pre)
		seen[pre] = true
		assert.Equal(t, 0.21, conn.Permanence(syn))
	}
}

func TestGrowSynapses_EvictsWeakestNonWinners(t *testing.T) {
	cfg := tmConfig()
	cfg.MaxSynapsesPerSegment = 3
	_, conn := newMemory(t, cfg)
	seg := conn.CreateSegment(0)
	conn.CreateSynapse(seg, 1, 0.3)
	conn.CreateSynapse(seg, 2, 0.6)
	conn.CreateSynapse(seg, 3, 0.9)

	temporal.GrowSynapses(conn, seg, []connections.Cell{2, 20, 21}, 2)

	require.Equal(t, 3, conn.NumSynapses(seg))
	var pre []connections.Cell
	for _, syn := range conn.Synapses(seg) {
		pre = append(pre, conn.PresynapticCell(syn))
	}
	assert.Equal(t, []connections.Cell{2, 20, 21}, pre)
}

func TestGrowSynapses_NeverExceedsCapacity(t *testing.T) {
	cfg := tmConfig()
	cfg.MaxSynapsesPerSegment = 3
	_, conn := newMemory(t, cfg)
	seg := conn.CreateSegment(0)

	temporal.GrowSynapses(conn, seg, []connections.Cell{20, 21, 22, 23, 24}, 5)
	assert.Equal(t, 3, conn.NumSynapses(seg))
}

func TestLeastUsedCell_PrefersFewestSegments(t *testing.T) {
	_, conn := newMemory(t, tmConfig())
	for _, c := range []connections.Cell{0, 1, 2} {
		conn.CreateSegment(c)
	}
	for range 10 {
		assert.Equal(t, connections.Cell(3), temporal.LeastUsedCell(conn, conn.CellsForColumn(0)))
	}
}

func TestLeastUsedCell_TiesSpreadAcrossSeeds(t *testing.T) {
	picked := map[connections.Cell]int{}
	for seed := int64(1); seed <= 100; seed++ {
		cfg := tmConfig()
		cfg.Seed = seed
		_, conn := newMemory(t, cfg)
		picked[temporal.LeastUsedCell(conn, conn.CellsForColumn(0))]++
	}
	assert.Len(t, picked, 4, "every tied cell is chosen for some seed")
}

func TestBestMatchingSegment(t *testing.T) {
	_, conn := newMemory(t, tmConfig())
	a, b := conn.CreateSegment(0), conn.CreateSegment(0)
	c := conn.CreateSegment(1)
	d := conn.CreateSegment(2)
	e := conn.CreateSegment(3)

	act := connections.Activity{PotentialSynapses: make([]int, conn.SegmentArenaSize())}
	for seg, n := range map[connections.Segment]int{a: 5, b: 2, c: 5, d: 1, e: 5} {
		act.PotentialSynapses[seg] = n
	}

	best := func(segs ...connections.Segment) connections.Segment {
		return temporal.BestMatchingSegment(conn, segs, act)
	}
	assert.Equal(t, a, best(a, b, d), "most potential synapses")
	assert.Equal(t, c, best(a, b, c, d), "tie goes to the cell with fewer segments")
	assert.Equal(t, c, best(c, a))
	assert.Equal(t, c, best(c, e), "full tie keeps the first")
	assert.Equal(t, e, best(e, c))
	assert.Equal(t, connections.NoSegment, best())
}

// ── compute ───────────────────────────────────────────────────────────────────

func TestCompute_BurstsUnpredictedColumns(t *testing.T) {
	tm, conn := newMemory(t, tmConfig())

	cycle, err := tm.Compute([]int{1, 0, 1}, true)
	require.NoError(t, err)

	assert.Equal(t, []connections.Cell{0, 1, 2, 3, 4, 5, 6, 7}, cycle.ActiveCells)
	assert.Equal(t, []int{0, 1}, cycle.BurstingColumns)
	require.Len(t, cycle.WinnerCells, 2)
	assert.Equal(t, []int{0, 1}, columnsOf(conn, cycle.WinnerCells))
	assert.Empty(t, cycle.PredictiveCells)
	assert.Zero(t, conn.SegmentCount(), "nothing to grow towards on the first step")
}

func TestCompute_GrowsSegmentsTowardsPreviousWinners(t *testing.T) {
	tm, conn := newMemory(t, tmConfig())
	first, err := tm.Compute(seqA, true)
	require.NoError(t, err)
	_, err = tm.Compute(seqB, true)
	require.NoError(t, err)

	assert.Equal(t, 4, conn.SegmentCount(), "one segment per bursting column")
	assert.Equal(t, 16, conn.SynapseCount())
	for _, w := range first.WinnerCells {
		assert.Len(t, conn.ReceptorSynapses(w), 4)
	}
}

func TestCompute_LearnsSequence(t *testing.T) {
	tm, conn := newMemory(t, tmConfig())
	learnAB(t, tm, 6)

	cycle, err := tm.Compute(seqA, false)
	require.NoError(t, err)
	assert.Equal(t, seqB, columnsOf(conn, cycle.PredictiveCells))

	cycle, err = tm.Compute(seqB, false)
	require.NoError(t, err)
	assert.Empty(t, cycle.BurstingColumns)
	assert.Len(t, cycle.ActiveCells, 4, "one predicted cell per column")
	assert.Equal(t, cycle.ActiveCells, cycle.WinnerCells)
}

func TestCompute_WithoutLearningLeavesGraph(t *testing.T) {
	tm, conn := newMemory(t, tmConfig())
	learnAB(t, tm, 1)
	segments, synapses := conn.SegmentCount(), conn.SynapseCount()

	for range 3 {
		_, err := tm.Compute(seqA, false)
		require.NoError(t, err)
		_, err = tm.Compute(seqC, false)
		require.NoError(t, err)
	}
	assert.Equal(t, segments, conn.SegmentCount())
	assert.Equal(t, synapses, conn.SynapseCount())
}

func TestCompute_PunishesWrongPredictions(t *testing.T) {
	cfg := tmConfig()
	cfg.PredictedSegmentDecrement = 0.05
	tm, conn := newMemory(t, cfg)
	learnAB(t, tm, 1)

	_, err := tm.Compute(seqA, true)
	require.NoError(t, err)
	_, err = tm.Compute(seqC, true)
	require.NoError(t, err)

	for _, col := range seqB {
		for _, cell := range conn.CellsForColumn(col) {
			for _, seg := range conn.Segments(cell) {
				for _, syn := range conn.Synapses(seg) {
					assert.InDelta(t, 0.16, conn.Permanence(syn), 1e-9)
				}
			}
		}
	}
}

func TestCompute_EmptyColumns(t *testing.T) {
	tm, _ := newMemory(t, tmConfig())
	learnAB(t, tm, 2)

	cycle, err := tm.Compute(nil, true)
	require.NoError(t, err)
	assert.Empty(t, cycle.ActiveCells)
	assert.Empty(t, cycle.WinnerCells)
	assert.Empty(t, cycle.PredictiveCells)
	assert.Empty(t, cycle.ActiveSegments)
}

func TestCompute_ColumnOutOfRange(t *testing.T) {
	tm, conn := newMemory(t, tmConfig())
	_, err := tm.Compute([]int{0, 32}, true)
	require.ErrorIs(t, err, htmerr.ErrInputMismatch)
	assert.Empty(t, conn.ActiveCells(), "a rejected step leaves no activity")
}

func TestReset_ClearsActivity(t *testing.T) {
	tm, conn := newMemory(t, tmConfig())
	learnAB(t, tm, 6)
	_, err := tm.Compute(seqA, false)
	require.NoError(t, err)
	require.NotEmpty(t, tm.PredictiveCells())

	tm.Reset()
	assert.Empty(t, conn.ActiveCells())
	assert.Empty(t, conn.WinnerCells())
	assert.Empty(t, conn.ActiveSegments())
	assert.Empty(t, tm.PredictiveCells())
}

func TestCompute_SegmentCeilingPerCell(t *testing.T) {
	cfg := tmConfig()
	cfg.CellsPerColumn = 1
	cfg.MaxSegmentsPerCell = 2
	tm, conn := newMemory(t, cfg)

	// Column 0 follows three different contexts; its single cell keeps at most two segments.
	for _, ctx := range [][]int{seqA, seqB, seqC} {
		_, err := tm.Compute(ctx, true)
		require.NoError(t, err)
		_, err = tm.Compute([]int{20}, true)
		require.NoError(t, err)
		tm.Reset()
	}
	assert.Equal(t, 2, conn.NumSegments(20))
}

// ── benchmarks ────────────────────────────────────────────────────────────────

func BenchmarkCompute(b *testing.B) {
	cfg := config.Default()
	conn, err := connections.New(cfg)
	require.NoError(b, err)
	tm := temporal.New()
	require.NoError(b, tm.Init(conn))

	seq := make([][]int, 10)
	for i := range seq {
		for j := range 40 {
			seq[i] = append(seq[i], (i*40+j*7)%2048)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tm.Compute(seq[i%len(seq)], true); err != nil {
			b.Fatal(err)
		}
	}
}
