package spatial

import (
	"log/slog"
	"math"
	"slices"
)

// UpdateDutyCycles folds the last step into the overlap and active duty
// cycles. The averaging period is DutyCyclePeriod, shortened to the
// iteration count while the pooler is young.
func (sp *SpatialPooler) UpdateDutyCycles(overlaps []int, active []int) {
	n := len(sp.overlapDutyCycles)
	overlapFlags := make([]float64, n)
	activeFlags := make([]float64, n)
	for i, v := range overlaps {
		if v > 0 {
			overlapFlags[i] = 1
		}
	}
	for _, col := range active {
		activeFlags[col] = 1
	}

	period := max(min(sp.cfg.DutyCyclePeriod, sp.iteration), 1)
	UpdateDutyCycle(sp.overlapDutyCycles, overlapFlags, period)
	UpdateDutyCycle(sp.activeDutyCycles, activeFlags, period)
}

// UpdateDutyCycle moves every dc[i] towards values[i] in place:
// dc = (dc*(period-1) + value) / period.
func UpdateDutyCycle(dc, values []float64, period int) {
	p := float64(period)
	for i := range dc {
		dc[i] = (dc[i]*(p-1) + values[i]) / p
	}
}

// UpdateBoostFactors recomputes the boost of every column from its active
// duty cycle. A column at or above its minimum active duty cycle gets 1;
// below it the boost grows linearly towards MaxBoost as the duty cycle
// drops to 0. MinPctActiveDutyCycles = 0 disables boosting at once: every
// factor becomes 1 and the minimum active duty cycles are cleared without
// waiting for the next update round.
func (sp *SpatialPooler) UpdateBoostFactors() {
	if !sp.boosting() {
		clear(sp.minActiveDutyCycles)
		for i := range sp.boostFactors {
			sp.boostFactors[i] = 1
		}
		return
	}
	maxBoost := sp.cfg.MaxBoost
	for i, minDC := range sp.minActiveDutyCycles {
		dc := sp.activeDutyCycles[i]
		if dc >= minDC {
			sp.boostFactors[i] = 1
			continue
		}
		sp.boostFactors[i] = (1-maxBoost)/minDC*dc + maxBoost
	}
}

// boosting reports whether boost factors may differ from 1.
func (sp *SpatialPooler) boosting() bool { return sp.cfg.MinPctActiveDutyCycles > 0 }

// UpdateMinDutyCycles recomputes the minimum duty cycles, either from the
// maxima over all columns or from the maxima inside each column's
// inhibition neighbourhood.
func (sp *SpatialPooler) UpdateMinDutyCycles() {
	if sp.cfg.GlobalInhibition || sp.inhibitionRadius > sp.conn.NumInputs() {
		sp.updateMinDutyCyclesGlobal()
		return
	}
	sp.updateMinDutyCyclesLocal()
}

func (sp *SpatialPooler) updateMinDutyCyclesGlobal() {
	minOverlap := sp.cfg.MinPctOverlapDutyCycles * slices.Max(sp.overlapDutyCycles)
	minActive := sp.cfg.MinPctActiveDutyCycles * slices.Max(sp.activeDutyCycles)
	for i := range sp.minOverlapDutyCycles {
		sp.minOverlapDutyCycles[i] = minOverlap
		sp.minActiveDutyCycles[i] = minActive
	}
}

func (sp *SpatialPooler) updateMinDutyCyclesLocal() {
	top := sp.conn.ColumnTopology()
	for col := range sp.minOverlapDutyCycles {
		var maxOverlap, maxActive float64
		for _, nb := range top.Neighborhood(col, sp.inhibitionRadius, sp.cfg.WrapAround) {
			maxOverlap = math.Max(maxOverlap, sp.overlapDutyCycles[nb])
			maxActive = math.Max(maxActive, sp.activeDutyCycles[nb])
		}
		sp.minOverlapDutyCycles[col] = sp.cfg.MinPctOverlapDutyCycles * maxOverlap
		sp.minActiveDutyCycles[col] = sp.cfg.MinPctActiveDutyCycles * maxActive
	}
}

// UpdateInhibitionRadius sets the radius to the average span of the
// connected receptive fields scaled to column space. It stays within
// [1, largest column dimension]; under global inhibition it is the largest
// column dimension.
func (sp *SpatialPooler) UpdateInhibitionRadius() {
	colTop := sp.conn.ColumnTopology()
	prev := sp.inhibitionRadius
	defer func() {
		if sp.inhibitionRadius != prev {
			sp.logger.Debug("inhibition radius updated",
				slog.Int("from", prev),
				slog.Int("to", sp.inhibitionRadius),
				slog.Int("iteration", sp.iteration),
			)
		}
	}()

	if sp.cfg.GlobalInhibition {
		sp.inhibitionRadius = colTop.MaxDimension()
		return
	}

	inTop := sp.conn.InputTopology()
	var span float64
	for col := range sp.conn.NumColumns() {
		span += inTop.AvgSpan(sp.conn.Column(col).Pool().Connected())
	}
	span /= float64(sp.conn.NumColumns())

	colDims, inDims := colTop.Dims(), inTop.Dims()
	var ratio float64
	for i := range colDims {
		ratio += float64(colDims[i]) / float64(inDims[i])
	}
	ratio /= float64(len(colDims))

	diameter := span * ratio
	radius := math.Max(1, (diameter-1)/2)
	sp.inhibitionRadius = min(int(radius+0.5), colTop.MaxDimension())
}
