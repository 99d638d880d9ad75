// Package spatial implements the spatial pooler. It maps a binary input vector
// to a fixed-sparsity set of active columns, adapts the proximal synapses of
// the winners and keeps column usage balanced through boosting.
//
// Basic usage:
//
//	conn, err := connections.New(config.Default())
//	sp := spatial.New()
//	err = sp.Init(conn)
//	active, err := sp.Compute(input, true) // input holds NumInputs 0/1 values
//
// NewMT returns a pooler that spreads the per-column overlap and boost stages
// over a bounded set of goroutines.
package spatial

import (
	"log/slog"
	"math"
	"slices"

	"github.com/Amansingh-afk/htmcore/config"
	"github.com/Amansingh-afk/htmcore/connections"
	"github.com/Amansingh-afk/htmcore/htmerr"
	"github.com/Amansingh-afk/htmcore/topology"
)

// Observer is notified after every compute step with the dense input and the
// dense active-column array it produced. The homeostatic controller is one.
type Observer interface {
	Observe(input, active []int)
}

// SpatialPooler holds the per-column homeostasis state (duty cycles, boost
// factors, inhibition radius) on top of a Connections. It is not safe for
// concurrent use.
type SpatialPooler struct {
	conn     *connections.Connections
	cfg      *config.Config
	logger   *slog.Logger
	observer Observer
	workers  int
	bufs     *bufPool

	iteration        int
	learnIteration   int
	inhibitionRadius int

	overlapDutyCycles    []float64
	activeDutyCycles     []float64
	minOverlapDutyCycles []float64
	minActiveDutyCycles  []float64
	boostFactors         []float64
	tieBreaker           []float64

	overlaps        []int
	boostedOverlaps []float64
}

// Option configures a SpatialPooler.
type Option func(*SpatialPooler)

// WithLogger sets the logger (default slog.Default() tagged component=spatial).
func WithLogger(l *slog.Logger) Option { return func(sp *SpatialPooler) { sp.logger = l } }

// WithObserver registers an observer called at the end of every compute step.
func WithObserver(o Observer) Option { return func(sp *SpatialPooler) { sp.observer = o } }

// New returns a single-threaded pooler. Call Init before Compute.
func New(opts ...Option) *SpatialPooler {
	sp := &SpatialPooler{workers: 1}
	for _, opt := range opts {
		opt(sp)
	}
	if sp.logger == nil {
		sp.logger = slog.Default().With(slog.String("component", "spatial"))
	}
	return sp
}

// Init validates the configuration of conn, maps every column's potential
// pool, draws the initial permanences and computes the first inhibition
// radius. On a configuration error no column is touched.
func (sp *SpatialPooler) Init(conn *connections.Connections) error {
	cfg := conn.Config()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.SynPermBelowStimulusInc <= 0 {
		return htmerr.New(htmerr.CodeInvalidConfig, htmerr.CategoryConfig,
			"syn_perm_below_stimulus_inc must be positive").
			WithContext("syn_perm_below_stimulus_inc", cfg.SynPermBelowStimulusInc)
	}

	n := conn.NumColumns()
	pools := make([][]int, n)
	for col := range pools {
		pools[col] = topology.MapPotential(col, conn.ColumnTopology(), conn.InputTopology(),
			cfg.PotentialRadius, cfg.PotentialPct, cfg.WrapAround, conn.Random())
		if float64(len(pools[col])) < cfg.StimulusThreshold {
			return htmerr.New(htmerr.CodeInvalidConfig, htmerr.CategoryConfig,
				"StimulusThreshold as number of required connected synapses cannot be greater than number of neurons in receptive field").
				WithContext("column", col).
				WithContext("pool_size", len(pools[col])).
				WithContext("stimulus_threshold", cfg.StimulusThreshold)
		}
	}

	sp.conn, sp.cfg = conn, cfg
	sp.bufs = newBufPool(conn.NumInputs())
	sp.iteration, sp.learnIteration = 0, 0
	sp.overlapDutyCycles = make([]float64, n)
	sp.activeDutyCycles = make([]float64, n)
	sp.minOverlapDutyCycles = make([]float64, n)
	sp.minActiveDutyCycles = make([]float64, n)
	sp.boostFactors = make([]float64, n)
	for i := range sp.boostFactors {
		sp.boostFactors[i] = 1
	}
	sp.overlaps = make([]int, n)
	sp.boostedOverlaps = make([]float64, n)

	for col, pool := range pools {
		conn.SetPotentialPool(col, pool)
		perm := sp.initPermanences(pool)
		if err := sp.updatePermanencesForColumn(col, perm, true); err != nil {
			return err
		}
	}

	sp.tieBreaker = make([]float64, n)
	for i := range sp.tieBreaker {
		sp.tieBreaker[i] = 0.01 * conn.Random().Float64()
	}

	sp.UpdateInhibitionRadius()
	sp.logger.Debug("spatial pooler initialised",
		slog.Int("columns", n),
		slog.Int("inputs", conn.NumInputs()),
		slog.Int("inhibition_radius", sp.inhibitionRadius),
		slog.Int("workers", sp.workers),
	)
	return nil
}

// Compute runs one step on a dense 0/1 input and returns the active columns
// in ascending order. With learn set the proximal permanences, duty cycles
// and boost factors are updated.
func (sp *SpatialPooler) Compute(input []int, learn bool) ([]int, error) {
	active := make([]int, sp.mustConn().NumColumns())
	if err := sp.ComputeInto(input, active, learn); err != nil {
		return nil, err
	}
	out := make([]int, 0, len(active))
	for i, v := range active {
		if v > 0 {
			out = append(out, i)
		}
	}
	return out, nil
}

// ComputeInto is Compute writing a dense 0/1 column array into activeArray,
// which must have NumColumns entries. Size mismatches are reported before any
// state changes.
func (sp *SpatialPooler) ComputeInto(input, activeArray []int, learn bool) error {
	conn := sp.mustConn()
	if len(input) != conn.NumInputs() {
		return htmerr.Newf(htmerr.CodeInputMismatch, htmerr.CategoryValidation,
			"Input array must be same size as the defined number of inputs: From Params: %d, From Input Vector: %d",
			conn.NumInputs(), len(input))
	}
	if len(activeArray) != conn.NumColumns() {
		return htmerr.Newf(htmerr.CodeInputMismatch, htmerr.CategoryValidation,
			"Active array must be same size as the number of columns: From Params: %d, From Active Array: %d",
			conn.NumColumns(), len(activeArray))
	}

	sp.iteration++
	if learn {
		sp.learnIteration++
	}

	sp.overlaps = sp.CalculateOverlap(input)
	sp.boostedOverlaps = sp.boost(sp.overlaps, learn)

	active := sp.InhibitColumns(sp.boostedOverlaps)

	if learn {
		if err := sp.AdaptSynapses(input, active); err != nil {
			return err
		}
		sp.UpdateDutyCycles(sp.overlaps, active)
		if err := sp.BumpUpWeakColumns(); err != nil {
			return err
		}
		sp.UpdateBoostFactors()
		if sp.IsUpdateRound() {
			sp.UpdateInhibitionRadius()
			sp.UpdateMinDutyCycles()
		}
	}

	clear(activeArray)
	for _, col := range active {
		activeArray[col] = 1
	}

	if sp.observer != nil {
		sp.observer.Observe(input, activeArray)
	}
	return nil
}

// CalculateOverlap counts, per column, the connected proximal synapses whose
// input bit is on. Counts below StimulusThreshold are reported as 0.
func (sp *SpatialPooler) CalculateOverlap(input []int) []int {
	conn := sp.mustConn()
	threshold := sp.cfg.StimulusThreshold
	overlaps := make([]int, conn.NumColumns())
	sp.forColumns(func(lo, hi int) {
		for col := lo; col < hi; col++ {
			n := 0
			for _, in := range conn.Column(col).Pool().Connected() {
				if input[in] > 0 {
					n++
				}
			}
			if float64(n) < threshold {
				n = 0
			}
			overlaps[col] = n
		}
	})
	return overlaps
}

// boost scales overlaps by the boost factors. Boosting only applies while
// learning and while MinPctActiveDutyCycles is positive; otherwise the raw
// overlaps are used, even if the factors have not been reset yet.
func (sp *SpatialPooler) boost(overlaps []int, learn bool) []float64 {
	out := make([]float64, len(overlaps))
	scale := learn && sp.boosting()
	sp.forColumns(func(lo, hi int) {
		for col := lo; col < hi; col++ {
			out[col] = float64(overlaps[col])
			if scale {
				out[col] *= sp.boostFactors[col]
			}
		}
	})
	return out
}

// IsUpdateRound reports whether the current iteration refreshes the
// inhibition radius and the minimum duty cycles.
func (sp *SpatialPooler) IsUpdateRound() bool {
	return sp.iteration%sp.cfg.UpdatePeriod == 0
}

// StripUnlearnedColumns drops the columns that have never been active
// during learning.
func (sp *SpatialPooler) StripUnlearnedColumns(active []int) []int {
	out := make([]int, 0, len(active))
	for _, col := range active {
		if sp.activeDutyCycles[col] > 0 {
			out = append(out, col)
		}
	}
	return out
}

func (sp *SpatialPooler) mustConn() *connections.Connections {
	if sp.conn == nil {
		panic("spatial: pooler used before Init")
	}
	return sp.conn
}

// ── accessors ────────────────────────────────────────────────────────────────

// Connections returns the model the pooler was initialised with.
func (sp *SpatialPooler) Connections() *connections.Connections { return sp.conn }

// Iteration counts compute steps, LearnIteration only those with learning.
func (sp *SpatialPooler) Iteration() int { return sp.iteration }

func (sp *SpatialPooler) LearnIteration() int { return sp.learnIteration }

// Workers is the number of goroutines used by the per-column stages.
func (sp *SpatialPooler) Workers() int { return sp.workers }

func (sp *SpatialPooler) InhibitionRadius() int { return sp.inhibitionRadius }

func (sp *SpatialPooler) SetInhibitionRadius(r int) { sp.inhibitionRadius = r }

// Overlaps returns the raw overlaps of the last compute step.
func (sp *SpatialPooler) Overlaps() []int { return slices.Clone(sp.overlaps) }

// BoostedOverlaps returns the overlaps the last inhibition ran on.
func (sp *SpatialPooler) BoostedOverlaps() []float64 { return slices.Clone(sp.boostedOverlaps) }

func (sp *SpatialPooler) BoostFactors() []float64 { return slices.Clone(sp.boostFactors) }

func (sp *SpatialPooler) SetBoostFactors(v []float64) { sp.boostFactors = slices.Clone(v) }

func (sp *SpatialPooler) OverlapDutyCycles() []float64 { return slices.Clone(sp.overlapDutyCycles) }

func (sp *SpatialPooler) SetOverlapDutyCycles(v []float64) { sp.overlapDutyCycles = slices.Clone(v) }

func (sp *SpatialPooler) ActiveDutyCycles() []float64 { return slices.Clone(sp.activeDutyCycles) }

func (sp *SpatialPooler) SetActiveDutyCycles(v []float64) { sp.activeDutyCycles = slices.Clone(v) }

func (sp *SpatialPooler) MinOverlapDutyCycles() []float64 { return slices.Clone(sp.minOverlapDutyCycles) }

func (sp *SpatialPooler) SetMinOverlapDutyCycles(v []float64) { sp.minOverlapDutyCycles = slices.Clone(v) }

func (sp *SpatialPooler) MinActiveDutyCycles() []float64 { return slices.Clone(sp.minActiveDutyCycles) }

func (sp *SpatialPooler) SetMinActiveDutyCycles(v []float64) { sp.minActiveDutyCycles = slices.Clone(v) }

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }
