package connections_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amansingh-afk/htmcore/config"
	"github.com/Amansingh-afk/htmcore/connections"
	"github.com/Amansingh-afk/htmcore/htmerr"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.InputDimensions = []int{8}
	cfg.ColumnDimensions = []int{4}
	cfg.CellsPerColumn = 4
	cfg.MaxSegmentsPerCell = 3
	cfg.MaxSynapsesPerSegment = 3
	return cfg
}

func newConnections(t *testing.T) *connections.Connections {
	t.Helper()
	c, err := connections.New(smallConfig())
	require.NoError(t, err)
	return c
}

// ── construction ──────────────────────────────────────────────────────────────

func TestNew_Allocates(t *testing.T) {
	c := newConnections(t)
	assert.Equal(t, 4, c.NumColumns())
	assert.Equal(t, 8, c.NumInputs())
	assert.Equal(t, 16, c.NumCells())
	assert.Equal(t, []connections.Cell{8, 9, 10, 11}, c.CellsForColumn(2))
	assert.Equal(t, 2, c.ColumnForCell(10))
	assert.Zero(t, c.SegmentCount())
	assert.Zero(t, c.SynapseCount())
	assert.Equal(t, int64(42), c.Random().Seed())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.ColumnDimensions = []int{0}
	_, err := connections.New(cfg)
	assert.ErrorIs(t, err, htmerr.ErrInvalidColumns)
}

func TestNew_CopiesConfigAndResolvesRadius(t *testing.T) {
	cfg := smallConfig()
	cfg.PotentialRadius = -1
	c, err := connections.New(cfg)
	require.NoError(t, err)

	assert.Equal(t, 8, c.Config().PotentialRadius)
	cfg.CellsPerColumn = 99
	assert.Equal(t, 4, c.Config().CellsPerColumn)
}

// ── proximal pool ─────────────────────────────────────────────────────────────

func TestPool_DenseSparseRoundTrip(t *testing.T) {
	c := newConnections(t)
	c.SetPotentialPool(1, []int{6, 0, 3, 3})
	pool := c.Column(1).Pool()
	assert.Equal(t, []int{0, 3, 6}, pool.Potential())
	assert.True(t, pool.IsPotential(3))
	assert.False(t, pool.IsPotential(4))

	dense := []float64{0.2, 0.9, 0, 0.05, 0.7, 0, 0.1, 0}
	c.SetProximalPermanences(1, dense)

	// input 1 and 4 are outside the pool and must be ignored
	assert.Equal(t, []float64{0.2, 0, 0, 0.05, 0, 0, 0.1, 0}, pool.DensePermanences(8))
	assert.Equal(t, []float64{0.2, 0.05, 0.1}, pool.SparsePermanences())
	assert.Equal(t, []int{0, 6}, pool.Connected())
	assert.Equal(t, 3, pool.NumSynapses())

	c.SetSparsePermanences(1, []float64{0, 0.5, 0.01})
	assert.Equal(t, []int{3}, pool.Connected())
	assert.Equal(t, 2, pool.NumSynapses(), "zero permanence removes the synapse")
	assert.Equal(t, []int{0, 1, 0, 0}, c.ConnectedCounts())
}

func TestPool_SparseLengthMismatchPanics(t *testing.T) {
	c := newConnections(t)
	c.SetPotentialPool(0, []int{1, 2})
	assert.Panics(t, func() { c.SetSparsePermanences(0, []float64{0.3}) })
}

// ── segments ──────────────────────────────────────────────────────────────────

func TestCreateSegment_Bookkeeping(t *testing.T) {
	c := newConnections(t)
	s1 := c.CreateSegment(5)
	s2 := c.CreateSegment(5)

	assert.Equal(t, 2, c.SegmentCount())
	assert.Equal(t, []connections.Segment{s1, s2}, c.Segments(5))
	assert.Equal(t, connections.Cell(5), c.CellForSegment(s2))
	assert.Less(t, c.SegmentOrdinal(s1), c.SegmentOrdinal(s2))
	assert.True(t, c.IsAlive(s1))
	assert.False(t, c.IsAlive(connections.NoSegment))
}

func TestDestroySegment_RemovesEverything(t *testing.T) {
	c := newConnections(t)
	seg := c.CreateSegment(0)
	c.CreateSynapse(seg, 4, 0.5)
	c.CreateSynapse(seg, 8, 0.5)
	c.SetActivity(nil, nil, []connections.Segment{seg}, []connections.Segment{seg})

	c.DestroySegment(seg)

	assert.Zero(t, c.SegmentCount())
	assert.Zero(t, c.SynapseCount())
	assert.Empty(t, c.Segments(0))
	assert.Empty(t, c.ReceptorSynapses(4))
	assert.Empty(t, c.ReceptorSynapses(8))
	assert.Empty(t, c.ActiveSegments())
	assert.Empty(t, c.MatchingSegments())
	assert.False(t, c.IsAlive(seg))
	assert.Panics(t, func() { c.NumSynapses(seg) })
}

func TestCreateSegment_ReusesFlatIndex(t *testing.T) {
	c := newConnections(t)
	a := c.CreateSegment(0)
	c.CreateSegment(1)
	c.DestroySegment(a)

	b := c.CreateSegment(2)
	assert.Equal(t, a, b)
	assert.Equal(t, 2, c.SegmentArenaSize())
	assert.Equal(t, connections.Cell(2), c.CellForSegment(b))
	assert.Zero(t, c.NumSynapses(b))
}

func TestCreateSegment_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newConnections(t)
	s0 := c.CreateSegment(3) // lastUsed 0
	c.StartNewIteration()
	s1 := c.CreateSegment(3) // lastUsed 1
	c.StartNewIteration()
	s2 := c.CreateSegment(3) // lastUsed 2
	c.StartNewIteration()

	// s0 becomes the most recent; s1 is now the oldest
	c.RecordSegmentActivity(s0)
	c.CreateSynapse(s1, 0, 0.5)

	s3 := c.CreateSegment(3)

	assert.Equal(t, 3, c.NumSegments(3), "cell must stay at MaxSegmentsPerCell")
	assert.ElementsMatch(t, []connections.Segment{s0, s2, s3}, c.Segments(3))
	assert.Zero(t, c.SynapseCount(), "evicted segment's synapses must be destroyed")
	assert.Empty(t, c.ReceptorSynapses(0))
}

func TestSegmentCapacity_Ceiling(t *testing.T) {
	c := newConnections(t)
	for i := 0; i < 50; i++ {
		c.CreateSegment(7)
		if i%3 == 0 {
			c.StartNewIteration()
		}
		require.LessOrEqual(t, c.NumSegments(7), 3)
	}
	assert.Equal(t, 3, c.SegmentCount())
}

func TestSegmentAt_OutOfRange(t *testing.T) {
	c := newConnections(t)
	seg := c.CreateSegment(1)
	got, err := c.SegmentAt(1, 0)
	require.NoError(t, err)
	assert.Equal(t, seg, got)

	_, err = c.SegmentAt(1, 1)
	assert.ErrorIs(t, err, htmerr.ErrOutOfRange)
	_, err = c.SegmentAt(1, 3)
	assert.ErrorIs(t, err, htmerr.ErrOutOfRange)
	_, err = c.SegmentAt(1, -1)
	assert.ErrorIs(t, err, htmerr.ErrOutOfRange)
}

// ── synapses ──────────────────────────────────────────────────────────────────

func TestCreateSynapse_Bookkeeping(t *testing.T) {
	c := newConnections(t)
	seg := c.CreateSegment(0)
	syn := c.CreateSynapse(seg, 9, 0.3)

	assert.Equal(t, 1, c.SynapseCount())
	assert.Equal(t, []connections.Synapse{syn}, c.Synapses(seg))
	assert.Equal(t, []connections.Synapse{syn}, c.ReceptorSynapses(9))
	assert.Equal(t, connections.Cell(9), c.PresynapticCell(syn))
	assert.Equal(t, seg, c.SegmentForSynapse(syn))
	assert.Equal(t, 0.3, c.Permanence(syn))

	c.SetPermanence(syn, 0.8)
	assert.Equal(t, 0.8, c.Permanence(syn))
}

func TestCreateSynapse_EvictsWeakest(t *testing.T) {
	c := newConnections(t)
	seg := c.CreateSegment(0)
	a := c.CreateSynapse(seg, 4, 0.5)
	weak := c.CreateSynapse(seg, 5, 0.2)
	b := c.CreateSynapse(seg, 6, 0.7)

	d := c.CreateSynapse(seg, 7, 0.6)

	assert.Equal(t, 3, c.NumSynapses(seg))
	assert.Equal(t, 3, c.SynapseCount())
	assert.Empty(t, c.ReceptorSynapses(5))
	syns := c.Synapses(seg)
	assert.Contains(t, syns, a)
	assert.Contains(t, syns, b)
	assert.Contains(t, syns, d)
	assert.NotContains(t, c.ReceptorSynapses(5), weak)
}

func TestSynapseCapacity_Ceiling(t *testing.T) {
	c := newConnections(t)
	seg := c.CreateSegment(0)
	for i := 0; i < 16; i++ {
		c.CreateSynapse(seg, connections.Cell(i), float64(i)/20)
		require.LessOrEqual(t, c.NumSynapses(seg), 3)
	}
	// the three strongest survive
	var presyn []connections.Cell
	for _, s := range c.Synapses(seg) {
		presyn = append(presyn, c.PresynapticCell(s))
	}
	assert.ElementsMatch(t, []connections.Cell{13, 14, 15}, presyn)
}

func TestDestroySynapse_KeepsEmptySegment(t *testing.T) {
	c := newConnections(t)
	seg := c.CreateSegment(0)
	syn := c.CreateSynapse(seg, 4, 0.5)
	c.DestroySynapse(syn)

	assert.True(t, c.IsAlive(seg))
	assert.Zero(t, c.NumSynapses(seg))
	assert.Zero(t, c.SynapseCount())
	assert.Panics(t, func() { c.Permanence(syn) })
}

func TestSynapseAt_OutOfRange(t *testing.T) {
	c := newConnections(t)
	seg := c.CreateSegment(0)
	syn := c.CreateSynapse(seg, 2, 0.4)

	got, err := c.SynapseAt(seg, 0)
	require.NoError(t, err)
	assert.Equal(t, syn, got)

	_, err = c.SynapseAt(seg, 3)
	require.ErrorIs(t, err, htmerr.ErrOutOfRange)
	assert.True(t, htmerr.IsCategory(err, htmerr.CategoryCapacity))
}

// ── eviction policies ─────────────────────────────────────────────────────────

func TestEvictionPolicy_FirstMinimumWins(t *testing.T) {
	p := connections.EvictionPolicy[float64]{Key: func(v float64) float64 { return v }, Tolerance: 0.01}
	v, ok := p.Victim([]float64{0.5, 0.2, 0.195, 0.3})
	require.True(t, ok)
	assert.Equal(t, 0.2, v, "0.195 is within tolerance of 0.2")

	v, _ = p.Victim([]float64{0.5, 0.2, 0.1})
	assert.Equal(t, 0.1, v)

	_, ok = p.Victim(nil)
	assert.False(t, ok)
}

func TestLeastRecentlyUsed_Key(t *testing.T) {
	c := newConnections(t)
	c.StartNewIteration()
	c.StartNewIteration()
	a := c.CreateSegment(0) // lastUsed 2
	b := c.CreateSegment(1)
	c.StartNewIteration()
	c.RecordSegmentActivity(b) // lastUsed 3

	v, ok := c.LeastRecentlyUsed().Victim([]connections.Segment{b, a})
	require.True(t, ok)
	assert.Equal(t, a, v)
	assert.Equal(t, 3, c.LastUsedIteration(b))
}

// ── activity ──────────────────────────────────────────────────────────────────

func TestComputeActivity(t *testing.T) {
	c := newConnections(t)
	s1 := c.CreateSegment(0)
	c.CreateSynapse(s1, 4, 0.5)
	c.CreateSynapse(s1, 5, 0.499995)
	c.CreateSynapse(s1, 6, 0.2)
	s2 := c.CreateSegment(1)
	c.CreateSynapse(s2, 4, 0.9)

	act := c.ComputeActivity([]connections.Cell{4, 5, 6, 12}, 0.5)

	assert.Equal(t, 2, act.Active(s1), "0.499995 is within Epsilon of connected")
	assert.Equal(t, 3, act.Potential(s1))
	assert.Equal(t, 1, act.Active(s2))
	assert.Equal(t, 1, act.Potential(s2))
	assert.Zero(t, act.Potential(connections.Segment(99)))
}

func TestActivity_SetAndClear(t *testing.T) {
	c := newConnections(t)
	c.SetActivity([]connections.Cell{1, 2}, []connections.Cell{2}, nil, nil)
	active := c.ActiveCells()
	active[0] = 15
	assert.Equal(t, []connections.Cell{1, 2}, c.ActiveCells(), "accessors return copies")
	assert.Equal(t, []connections.Cell{2}, c.WinnerCells())

	c.ClearActivity()
	assert.Empty(t, c.ActiveCells())
	assert.Empty(t, c.WinnerCells())
}
