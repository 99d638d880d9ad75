// Package homeostasis detects when the spatial pooler has settled.
//
// The controller watches every input/output pair of the pooler. Once it has
// run for MinCycles it switches boosting off, then reports the pooler as
// stable when every tracked input keeps producing the same active columns
// (similarity >= RequiredSimilarity) with an unchanged active-column count
// for more than StableCycles sightings.
package homeostasis

import (
	"crypto/sha256"
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/Amansingh-afk/htmcore/config"
	"github.com/Amansingh-afk/htmcore/sdr"
)

// StabilityFunc is called when the controller enters or leaves the stable
// state, with the number of tracked patterns, the average count delta of the
// triggering input and the cycle it happened in.
type StabilityFunc func(stable bool, numPatterns int, avgDelta float64, cycle int)

// Options configures a Controller.
type Options struct {
	MinCycles          int     // cycles before boosting is disabled and stability may be reported
	RequiredSimilarity float64 // minimum output similarity for a repeated input (default 0.97)
	StableCycles       int     // sightings without change required per input (default 50)
	HistoryLen         int     // active-column counts remembered per input (default 5)
	Capacity           int     // max tracked inputs before LRU eviction (default 1024)
	OnStabilityChange  StabilityFunc
	Logger             *slog.Logger
}

// DefaultOptions returns the standard controller settings.
func DefaultOptions() Options {
	return Options{
		MinCycles:          0,
		RequiredSimilarity: 0.97,
		StableCycles:       50,
		HistoryLen:         5,
		Capacity:           1024,
	}
}

// Stats is a point-in-time snapshot of controller state.
type Stats struct {
	Cycle     int
	Patterns  int
	Stable    bool
	Evictions uint64
}

// Controller is safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	cfg     *config.Config
	opts    Options
	logger  *slog.Logger
	history *history
	cycle   int
	stable  bool
}

// New returns a controller that tunes cfg, normally the live configuration
// of the pooler's Connections.
// Panics if Capacity, HistoryLen or RequiredSimilarity is out of range.
func New(cfg *config.Config, opts Options) *Controller {
	if opts.Capacity <= 0 {
		panic("homeostasis: Options.Capacity must be positive")
	}
	if opts.HistoryLen <= 0 {
		panic("homeostasis: Options.HistoryLen must be positive")
	}
	if opts.RequiredSimilarity <= 0 || opts.RequiredSimilarity > 1 {
		panic("homeostasis: Options.RequiredSimilarity must be in (0, 1]")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With(slog.String("component", "homeostasis"))
	}
	return &Controller{
		cfg:     cfg,
		opts:    opts,
		logger:  logger,
		history: newHistory(opts.Capacity),
	}
}

// Observe implements spatial.Observer.
func (c *Controller) Observe(input, active []int) { c.Compute(input, active) }

// Compute records one input and the dense active-column array the pooler
// produced for it, and reports whether the pooler is stable.
func (c *Controller) Compute(input, output []int) bool {
	key := hash(input)
	cols := sdr.FromDense(output)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.cycle++ }()

	rec, seen := c.history.get(key)
	if !seen {
		c.history.add(&record{
			key:    key,
			output: cols.Indices(),
			counts: make([]int, c.opts.HistoryLen),
		})
		return false
	}

	push(rec.counts, cols.Count())

	if c.cycle >= c.opts.MinCycles {
		c.disableBoostingLocked()
	}

	similarity := sdr.Similarity(sdr.FromIndices(cols.Dims(), rec.output), cols)
	rec.output = cols.Indices()

	if similarity < c.opts.RequiredSimilarity {
		rec.stableCycles = 0
		if c.stable {
			c.setStableLocked(false, -1)
		}
		return false
	}

	delta := avgDelta(rec.counts)
	if delta == 0 {
		rec.stableCycles++
	} else {
		rec.stableCycles = 0
	}

	if c.cycle < c.opts.MinCycles || rec.stableCycles <= c.opts.StableCycles {
		return false
	}
	if !c.history.every(func(r *record) bool { return r.stableCycles >= c.opts.StableCycles }) {
		return false
	}
	if !c.stable {
		c.setStableLocked(true, delta)
	}
	return true
}

// IsStable reports the current stability state.
func (c *Controller) IsStable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stable
}

// Stats returns a point-in-time snapshot of controller state.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Cycle:     c.cycle,
		Patterns:  c.history.len(),
		Stable:    c.stable,
		Evictions: c.history.evictions,
	}
}

// disableBoostingLocked zeroes the boosting parameters of the pooler.
// Must be called with c.mu held.
func (c *Controller) disableBoostingLocked() {
	if c.cfg.MaxBoost == 0 && c.cfg.MinPctOverlapDutyCycles == 0 && c.cfg.MinPctActiveDutyCycles == 0 {
		return
	}
	c.cfg.MaxBoost = 0
	c.cfg.MinPctOverlapDutyCycles = 0
	c.cfg.MinPctActiveDutyCycles = 0
	c.logger.Debug("boosting disabled", slog.Int("cycle", c.cycle))
}

// setStableLocked records a transition and fires the callback.
// Must be called with c.mu held.
func (c *Controller) setStableLocked(stable bool, delta float64) {
	c.stable = stable
	c.logger.Debug("stability changed",
		slog.Bool("stable", stable),
		slog.Int("patterns", c.history.len()),
		slog.Int("cycle", c.cycle),
	)
	if c.opts.OnStabilityChange != nil {
		c.opts.OnStabilityChange(stable, c.history.len(), delta, c.cycle)
	}
}

// hash is the SHA-256 of input, each value encoded as a little-endian int32.
func hash(input []int) [32]byte {
	buf := make([]byte, 4*len(input))
	for i, v := range input {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(int32(v)))
	}
	return sha256.Sum256(buf)
}
