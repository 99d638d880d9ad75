// Package htmcore runs a hierarchical temporal memory region: a spatial
// pooler turns binary inputs into sparse active columns, and a temporal
// memory learns the sequence those columns form and predicts the next step.
//
// Basic usage:
//
//	m, err := htmcore.New(htmcore.WithConfig(cfg))
//	if err != nil { ... }
//	for _, in := range inputs {
//		c, err := m.Compute(in, true)
//		...
//		fmt.Println(c.Anomaly) // share of active columns that were not predicted
//	}
//	m.Reset() // sequence boundary
package htmcore

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Amansingh-afk/htmcore/config"
	"github.com/Amansingh-afk/htmcore/connections"
	"github.com/Amansingh-afk/htmcore/homeostasis"
	"github.com/Amansingh-afk/htmcore/sdr"
	"github.com/Amansingh-afk/htmcore/spatial"
	"github.com/Amansingh-afk/htmcore/temporal"
)

// Cycle is the outcome of one Model.Compute step.
type Cycle struct {
	temporal.Cycle
	ActiveColumns []int
	// Anomaly is the fraction of active columns the previous step did not
	// predict; 0 when no column is active.
	Anomaly float64
	// Stable reports the homeostasis controller's verdict; always false
	// without WithHomeostasis.
	Stable bool
}

// Stats is a point-in-time snapshot of Model state.
type Stats struct {
	ID              string
	Iterations      int
	LearnIterations int
	Segments        int
	Synapses        int
	ActiveColumns   int
	ActiveCells     int
	PredictiveCells int
	AvgAnomaly      float64
	Stable          bool
}

// Model is a spatial pooler feeding a temporal memory over one shared
// Connections. It is safe for concurrent use; steps are serialised.
type Model struct {
	mu     sync.Mutex
	id     uuid.UUID
	logger *slog.Logger
	conn   *connections.Connections
	sp     *spatial.SpatialPooler
	tm     *temporal.TemporalMemory
	homeo  *homeostasis.Controller

	activeBuf    []int
	last         Cycle
	anomalySum   float64
	anomalySteps int
}

// Option configures a Model.
type Option func(*modelOptions)

type modelOptions struct {
	cfg     *config.Config
	logger  *slog.Logger
	workers int
	homeo   *homeostasis.Options
}

// WithConfig sets the parameters (default config.Default()). The Model keeps
// its own copy.
func WithConfig(cfg *config.Config) Option { return func(o *modelOptions) { o.cfg = cfg } }

// WithLogger sets the logger every component derives from (default slog.Default()).
func WithLogger(l *slog.Logger) Option { return func(o *modelOptions) { o.logger = l } }

// WithWorkers runs the spatial pooler on n workers. n <= 0 picks one worker
// per logical CPU; n == 1 (the default) is single-threaded.
func WithWorkers(n int) Option { return func(o *modelOptions) { o.workers = n } }

// WithHomeostasis attaches a stability controller that watches the spatial
// pooler and switches boosting off once its MinCycles have passed.
func WithHomeostasis(opts homeostasis.Options) Option {
	return func(o *modelOptions) { o.homeo = &opts }
}

// New builds and initialises a Model. Configuration errors are returned as
// *htmerr.Error; invalid homeostasis options panic.
func New(opts ...Option) (*Model, error) {
	o := modelOptions{cfg: config.Default(), workers: 1}
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.New()
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("model_id", id.String()))

	conn, err := connections.New(o.cfg,
		connections.WithLogger(logger.With(slog.String("component", "connections"))))
	if err != nil {
		return nil, err
	}

	m := &Model{id: id, logger: logger, conn: conn}

	spOpts := []spatial.Option{spatial.WithLogger(logger.With(slog.String("component", "spatial")))}
	if o.homeo != nil {
		ho := *o.homeo
		if ho.Logger == nil {
			ho.Logger = logger.With(slog.String("component", "homeostasis"))
		}
		// Tunes the live copy the pooler reads, not the caller's config.
		m.homeo = homeostasis.New(conn.Config(), ho)
		spOpts = append(spOpts, spatial.WithObserver(m.homeo))
	}
	if o.workers == 1 {
		m.sp = spatial.New(spOpts...)
	} else {
		m.sp = spatial.NewMT(o.workers, spOpts...)
	}
	if err := m.sp.Init(conn); err != nil {
		return nil, err
	}

	m.tm = temporal.New(temporal.WithLogger(logger.With(slog.String("component", "temporal"))))
	if err := m.tm.Init(conn); err != nil {
		return nil, err
	}

	m.activeBuf = make([]int, conn.NumColumns())
	logger.Info("model ready",
		slog.Int("inputs", conn.NumInputs()),
		slog.Int("columns", conn.NumColumns()),
		slog.Int("cells", conn.NumCells()),
		slog.Int("workers", m.sp.Workers()),
		slog.Bool("homeostasis", m.homeo != nil),
	)
	return m, nil
}

// Compute feeds one dense 0/1 input through both engines. Learning adapts
// proximal and distal synapses; inference leaves the model unchanged apart
// from its activity state.
func (m *Model) Compute(input []int, learn bool) (Cycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sp.ComputeInto(input, m.activeBuf, learn); err != nil {
		return Cycle{}, err
	}
	cols := sdr.FromDense(m.activeBuf).Indices()

	tc, err := m.tm.Compute(cols, learn)
	if err != nil {
		return Cycle{}, err
	}

	c := Cycle{Cycle: tc, ActiveColumns: cols}
	if len(cols) > 0 {
		c.Anomaly = float64(len(tc.BurstingColumns)) / float64(len(cols))
	}
	if m.homeo != nil {
		c.Stable = m.homeo.IsStable()
	}

	m.last = c
	m.anomalySum += c.Anomaly
	m.anomalySteps++
	m.logger.Debug("model step",
		slog.Int("iteration", m.sp.Iteration()),
		slog.Int("active_columns", len(cols)),
		slog.Float64("anomaly", c.Anomaly),
	)
	return c, nil
}

// Reset marks a sequence boundary: the next input is not learnt as a
// continuation of the previous one.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tm.Reset()
	m.last = Cycle{}
}

// ID returns the identifier attached to every log record of this Model.
func (m *Model) ID() string { return m.id.String() }

// Config returns the live parameters. Callers must not modify them while
// Compute runs.
func (m *Model) Config() *config.Config { return m.conn.Config() }

// Connections exposes the underlying model for inspection.
func (m *Model) Connections() *connections.Connections { return m.conn }

// SpatialPooler exposes the pooler for inspection.
func (m *Model) SpatialPooler() *spatial.SpatialPooler { return m.sp }

// Stats returns a point-in-time snapshot of Model state.
func (m *Model) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		ID:              m.id.String(),
		Iterations:      m.sp.Iteration(),
		LearnIterations: m.sp.LearnIteration(),
		Segments:        m.conn.SegmentCount(),
		Synapses:        m.conn.SynapseCount(),
		ActiveColumns:   len(m.last.ActiveColumns),
		ActiveCells:     len(m.last.ActiveCells),
		PredictiveCells: len(m.last.PredictiveCells),
	}
	if m.homeo != nil {
		s.Stable = m.homeo.IsStable()
	}
	if m.anomalySteps > 0 {
		s.AvgAnomaly = m.anomalySum / float64(m.anomalySteps)
	}
	return s
}
