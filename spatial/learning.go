package spatial

import (
	"math"

	"github.com/Amansingh-afk/htmcore/connections"
	"github.com/Amansingh-afk/htmcore/htmerr"
)

// AdaptSynapses applies the Hebbian rule to the proximal pools of the active
// columns: potential synapses on an active input bit gain SynPermActiveInc,
// all others lose SynPermInactiveDec. Inputs outside a column's potential
// pool are never touched.
func (sp *SpatialPooler) AdaptSynapses(input, active []int) error {
	cfg := sp.cfg
	changes := sp.bufs.get()
	defer sp.bufs.put(changes)
	for i, v := range input {
		if v > 0 {
			changes[i] = cfg.SynPermActiveInc
		} else {
			changes[i] = -cfg.SynPermInactiveDec
		}
	}

	for _, col := range active {
		pool := sp.conn.Column(col).Pool()
		perm := sp.bufs.get()
		pool.FillPermanences(perm)
		for _, in := range pool.Potential() {
			perm[in] += changes[in]
		}
		err := sp.updatePermanencesForColumn(col, perm, true)
		sp.bufs.put(perm)
		if err != nil {
			return err
		}
	}
	return nil
}

// BumpUpWeakColumns raises every potential permanence of the columns whose
// overlap duty cycle fell below its minimum by SynPermBelowStimulusInc.
func (sp *SpatialPooler) BumpUpWeakColumns() error {
	for col := range sp.overlapDutyCycles {
		if sp.overlapDutyCycles[col] >= sp.minOverlapDutyCycles[col] {
			continue
		}
		pool := sp.conn.Column(col).Pool()
		perm := sp.bufs.get()
		pool.FillPermanences(perm)
		for _, in := range pool.Potential() {
			perm[in] += sp.cfg.SynPermBelowStimulusInc
		}
		err := sp.updatePermanencesForColumn(col, perm, true)
		sp.bufs.put(perm)
		if err != nil {
			return err
		}
	}
	return nil
}

// RaisePermanenceToThreshold adds SynPermBelowStimulusInc to every potential
// permanence until at least StimulusThreshold of them are connected. perm is
// dense and is clipped to [SynPermMin, SynPermMax] first.
func (sp *SpatialPooler) RaisePermanenceToThreshold(perm []float64, potential []int) error {
	cfg := sp.cfg
	if float64(len(potential)) < cfg.StimulusThreshold {
		return htmerr.New(htmerr.CodeInvalidConfig, htmerr.CategoryConfig,
			"StimulusThreshold as number of required connected synapses cannot be greater than number of neurons in receptive field").
			WithContext("pool_size", len(potential)).
			WithContext("stimulus_threshold", cfg.StimulusThreshold)
	}

	for _, in := range potential {
		perm[in] = clamp(perm[in], cfg.SynPermMin, cfg.SynPermMax)
	}
	for {
		connected := 0
		for _, in := range potential {
			if perm[in] >= cfg.SynPermConnected-connections.Epsilon {
				connected++
			}
		}
		if float64(connected) >= cfg.StimulusThreshold {
			return nil
		}
		for _, in := range potential {
			perm[in] += cfg.SynPermBelowStimulusInc
		}
	}
}

// updatePermanencesForColumn optionally raises perm to the stimulus
// threshold, zeroes everything at or below SynPermTrimThreshold, clips to
// the permanence bounds and stores the result for col.
func (sp *SpatialPooler) updatePermanencesForColumn(col int, perm []float64, raise bool) error {
	cfg := sp.cfg
	potential := sp.conn.Column(col).Pool().Potential()
	if raise {
		if err := sp.RaisePermanenceToThreshold(perm, potential); err != nil {
			return err
		}
	}
	for _, in := range potential {
		v := perm[in]
		if v <= cfg.SynPermTrimThreshold {
			v = 0
		}
		perm[in] = clamp(v, cfg.SynPermMin, cfg.SynPermMax)
	}
	sp.conn.SetProximalPermanences(col, perm)
	return nil
}

// initPermanences draws the starting permanence of every potential input.
// About InitialSynapseConnsPct of them start connected.
func (sp *SpatialPooler) initPermanences(potential []int) []float64 {
	cfg := sp.cfg
	r := sp.conn.Random()
	perm := make([]float64, sp.conn.NumInputs())
	for _, in := range potential {
		var p float64
		if r.Float64() <= cfg.InitialSynapseConnsPct {
			p = cfg.SynPermConnected + (cfg.SynPermMax-cfg.SynPermConnected)*r.Float64()
		} else {
			p = cfg.SynPermConnected * r.Float64()
		}
		p = math.Trunc(p*100000) / 100000
		if p < cfg.SynPermTrimThreshold {
			p = 0
		}
		perm[in] = p
	}
	return perm
}
