// Package config holds the parameters shared by the spatial pooler and the
// temporal memory, with YAML load/save support.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/Amansingh-afk/htmcore/htmerr"
)

// Epsilon is the tolerance used when comparing permanences.
const Epsilon = 0.00001

// Config is the parameter set of one model instance.
// The zero value is not usable; start from Default.
type Config struct {
	// Topology.
	InputDimensions  []int `yaml:"input_dimensions"`
	ColumnDimensions []int `yaml:"column_dimensions"`
	CellsPerColumn   int   `yaml:"cells_per_column"`
	WrapAround       bool  `yaml:"wrap_around"`
	Seed             int64 `yaml:"seed"`

	// Spatial pooler.
	PotentialRadius            int     `yaml:"potential_radius"` // -1 = whole input space
	PotentialPct               float64 `yaml:"potential_pct"`
	GlobalInhibition           bool    `yaml:"global_inhibition"`
	LocalAreaDensity           float64 `yaml:"local_area_density"` // <= 0 derives density from NumActiveColumnsPerInhArea
	NumActiveColumnsPerInhArea float64 `yaml:"num_active_columns_per_inh_area"`
	MaxInhibitionDensity       float64 `yaml:"max_inhibition_density"`
	StimulusThreshold          float64 `yaml:"stimulus_threshold"`
	SynPermInactiveDec         float64 `yaml:"syn_perm_inactive_dec"`
	SynPermActiveInc           float64 `yaml:"syn_perm_active_inc"`
	SynPermConnected           float64 `yaml:"syn_perm_connected"`
	SynPermBelowStimulusInc    float64 `yaml:"syn_perm_below_stimulus_inc"`
	SynPermTrimThreshold       float64 `yaml:"syn_perm_trim_threshold"`
	SynPermMin                 float64 `yaml:"syn_perm_min"`
	SynPermMax                 float64 `yaml:"syn_perm_max"`
	InitialSynapseConnsPct     float64 `yaml:"initial_synapse_conns_pct"`
	MinPctOverlapDutyCycles    float64 `yaml:"min_pct_overlap_duty_cycles"`
	MinPctActiveDutyCycles     float64 `yaml:"min_pct_active_duty_cycles"`
	DutyCyclePeriod            int     `yaml:"duty_cycle_period"`
	MaxBoost                   float64 `yaml:"max_boost"`
	UpdatePeriod               int     `yaml:"update_period"`

	// Temporal memory.
	ActivationThreshold       int     `yaml:"activation_threshold"`
	LearningRadius            int     `yaml:"learning_radius"`
	MinThreshold              int     `yaml:"min_threshold"`
	MaxNewSynapseCount        int     `yaml:"max_new_synapse_count"`
	MaxSynapsesPerSegment     int     `yaml:"max_synapses_per_segment"`
	MaxSegmentsPerCell        int     `yaml:"max_segments_per_cell"`
	InitialPermanence         float64 `yaml:"initial_permanence"`
	ConnectedPermanence       float64 `yaml:"connected_permanence"`
	PermanenceIncrement       float64 `yaml:"permanence_increment"`
	PermanenceDecrement       float64 `yaml:"permanence_decrement"`
	PredictedSegmentDecrement float64 `yaml:"predicted_segment_decrement"`
}

// Default returns the standard parameter set.
func Default() *Config {
	return &Config{
		InputDimensions:  []int{100},
		ColumnDimensions: []int{2048},
		CellsPerColumn:   32,
		WrapAround:       true,
		Seed:             42,

		PotentialRadius:            15,
		PotentialPct:               0.75,
		GlobalInhibition:           true,
		LocalAreaDensity:           -1,
		NumActiveColumnsPerInhArea: 0.02 * 2048,
		MaxInhibitionDensity:       0.5,
		StimulusThreshold:          5,
		SynPermInactiveDec:         0.008,
		SynPermActiveInc:           0.05,
		SynPermConnected:           0.10,
		SynPermBelowStimulusInc:    0.01,
		SynPermTrimThreshold:       0.025,
		SynPermMin:                 0,
		SynPermMax:                 1,
		InitialSynapseConnsPct:     0.5,
		MinPctOverlapDutyCycles:    0.001,
		MinPctActiveDutyCycles:     0.001,
		DutyCyclePeriod:            1000,
		MaxBoost:                   10,
		UpdatePeriod:               50,

		ActivationThreshold:       10,
		LearningRadius:            10,
		MinThreshold:              9,
		MaxNewSynapseCount:        20,
		MaxSynapsesPerSegment:     225,
		MaxSegmentsPerCell:        225,
		InitialPermanence:         0.21,
		ConnectedPermanence:       0.5,
		PermanenceIncrement:       0.10,
		PermanenceDecrement:       0.10,
		PredictedSegmentDecrement: 0.1,
	}
}

// SetSynPermActiveInc sets the active increment and the trim threshold that depends on it.
func (c *Config) SetSynPermActiveInc(v float64) {
	c.SynPermActiveInc = v
	c.SynPermTrimThreshold = v / 2
}

// SetSynPermConnected sets the connected threshold and the below-stimulus increment that depends on it.
func (c *Config) SetSynPermConnected(v float64) {
	c.SynPermConnected = v
	c.SynPermBelowStimulusInc = v / 10
}

// NumInputs is the product of InputDimensions.
func (c *Config) NumInputs() int { return product(c.InputDimensions) }

// NumColumns is the product of ColumnDimensions.
func (c *Config) NumColumns() int { return product(c.ColumnDimensions) }

// NumCells is NumColumns * CellsPerColumn.
func (c *Config) NumCells() int { return c.NumColumns() * c.CellsPerColumn }

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	cp.InputDimensions = slices.Clone(c.InputDimensions)
	cp.ColumnDimensions = slices.Clone(c.ColumnDimensions)
	return &cp
}

// Validate checks c before any model state is allocated.
func (c *Config) Validate() error {
	// A positive LocalAreaDensity takes precedence and must be at most 0.5;
	// otherwise NumActiveColumnsPerInhArea has to be positive.
	if c.LocalAreaDensity > 0.5 || (c.LocalAreaDensity <= 0 && c.NumActiveColumnsPerInhArea <= 0) {
		return htmerr.New(htmerr.CodeInvalidConfig, htmerr.CategoryConfig, "Inhibition parameters are invalid").
			WithContext("local_area_density", c.LocalAreaDensity).
			WithContext("num_active_columns_per_inh_area", c.NumActiveColumnsPerInhArea)
	}
	if n := c.NumColumns(); n <= 0 {
		return htmerr.Newf(htmerr.CodeInvalidColumns, htmerr.CategoryConfig, "Invalid number of columns: %d", n)
	}
	if n := c.NumInputs(); n <= 0 {
		return htmerr.Newf(htmerr.CodeInvalidInputs, htmerr.CategoryConfig, "Invalid number of inputs: %d", n)
	}

	switch {
	case len(c.InputDimensions) != len(c.ColumnDimensions):
		return invalid("column_dimensions", c.ColumnDimensions, "must have as many dimensions as input_dimensions")
	case c.CellsPerColumn <= 0:
		return invalid("cells_per_column", c.CellsPerColumn, "must be positive")
	case c.PotentialRadius < -1:
		return invalid("potential_radius", c.PotentialRadius, "must be >= 0 or -1")
	case c.PotentialPct <= 0 || c.PotentialPct > 1:
		return invalid("potential_pct", c.PotentialPct, "must be in (0, 1]")
	case c.SynPermMin < 0 || c.SynPermMax > 1 || c.SynPermMin > c.SynPermMax:
		return invalid("syn_perm_max", c.SynPermMax, "permanence bounds must satisfy 0 <= min <= max <= 1")
	case !unit(c.SynPermConnected):
		return invalid("syn_perm_connected", c.SynPermConnected, "must be in [0, 1]")
	case !unit(c.InitialPermanence):
		return invalid("initial_permanence", c.InitialPermanence, "must be in [0, 1]")
	case !unit(c.ConnectedPermanence):
		return invalid("connected_permanence", c.ConnectedPermanence, "must be in [0, 1]")
	case c.DutyCyclePeriod <= 0:
		return invalid("duty_cycle_period", c.DutyCyclePeriod, "must be positive")
	case c.UpdatePeriod <= 0:
		return invalid("update_period", c.UpdatePeriod, "must be positive")
	case c.MaxSynapsesPerSegment <= 0:
		return invalid("max_synapses_per_segment", c.MaxSynapsesPerSegment, "must be positive")
	case c.MaxSegmentsPerCell <= 0:
		return invalid("max_segments_per_cell", c.MaxSegmentsPerCell, "must be positive")
	}
	return nil
}

// Load reads a YAML file on top of Default, so omitted keys keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, htmerr.Wrap(err, htmerr.CodeConfigIO, htmerr.CategoryIO, "failed to read config")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, htmerr.Wrap(err, htmerr.CodeConfigIO, htmerr.CategoryIO, "failed to parse config")
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns Default when path is empty or missing.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Save writes c to path as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return htmerr.Wrap(err, htmerr.CodeConfigIO, htmerr.CategoryIO, "failed to create config directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return htmerr.Wrap(err, htmerr.CodeConfigIO, htmerr.CategoryIO, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return htmerr.Wrap(err, htmerr.CodeConfigIO, htmerr.CategoryIO, "failed to write config file")
	}
	return nil
}

// InitFile writes the default configuration to path unless a file already exists there.
func InitFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return Default().Save(path)
}

func invalid(field string, value any, reason string) error {
	return htmerr.New(htmerr.CodeInvalidConfig, htmerr.CategoryConfig, fmt.Sprintf("%s %s", field, reason)).
		WithContext(field, value)
}

func unit(v float64) bool { return v >= 0 && v <= 1 }

func product(dims []int) int {
	if len(dims) == 0 {
		return 0
	}
	p := 1
	for _, d := range dims {
		p *= d
	}
	return p
}
