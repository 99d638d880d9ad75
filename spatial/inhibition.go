package spatial

import (
	"cmp"
	"math"
	"slices"
)

// InhibitionDensity is the fraction of columns allowed to win inside one
// inhibition area. LocalAreaDensity wins when set; otherwise the density is
// derived from NumActiveColumnsPerInhArea and the current inhibition radius,
// capped at MaxInhibitionDensity.
func (sp *SpatialPooler) InhibitionDensity() float64 {
	cfg := sp.cfg
	if cfg.LocalAreaDensity > 0 {
		return cfg.LocalAreaDensity
	}
	dims := sp.conn.ColumnTopology().NumDimensions()
	area := math.Pow(float64(2*sp.inhibitionRadius+1), float64(dims))
	area = math.Min(float64(sp.conn.NumColumns()), area)
	return math.Min(cfg.NumActiveColumnsPerInhArea/area, cfg.MaxInhibitionDensity)
}

// InhibitColumns selects the winning columns from the boosted overlaps.
// Global inhibition is used when configured or when the inhibition radius
// already spans the whole column space.
func (sp *SpatialPooler) InhibitColumns(overlaps []float64) []int {
	density := sp.InhibitionDensity()
	if sp.cfg.GlobalInhibition || sp.inhibitionRadius > sp.conn.ColumnTopology().MaxDimension() {
		return sp.InhibitColumnsGlobal(overlaps, density)
	}
	return sp.InhibitColumnsLocal(overlaps, density)
}

// InhibitColumnsGlobal keeps the density*numColumns columns with the highest
// overlap over the whole column space, minus those below StimulusThreshold.
// Equal overlaps are ordered by the per-column tie-breaker.
func (sp *SpatialPooler) InhibitColumnsGlobal(overlaps []float64, density float64) []int {
	n := len(overlaps)
	numActive := int(density * float64(n))
	if numActive <= 0 {
		return []int{}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(overlaps[a]+sp.tieBreaker[a], overlaps[b]+sp.tieBreaker[b])
	})

	start := max(n-numActive, 0)
	for start < n && overlaps[order[start]] < sp.cfg.StimulusThreshold {
		start++
	}
	winners := slices.Clone(order[start:])
	slices.Sort(winners)
	return winners
}

// InhibitColumnsLocal lets a column win when fewer than density*len(area)
// neighbours inside the inhibition radius have a higher overlap. Every winner
// gets a small bonus so that equal neighbours evaluated later lose against it.
func (sp *SpatialPooler) InhibitColumnsLocal(overlaps []float64, density float64) []int {
	winners := []int{}
	if len(overlaps) == 0 {
		return winners
	}

	winnerDelta := slices.Max(overlaps) / 1000
	if winnerDelta == 0 {
		winnerDelta = 0.001
	}

	tieBroken := make([]float64, len(overlaps))
	for i, v := range overlaps {
		tieBroken[i] = v + sp.tieBreaker[i]
	}

	top := sp.conn.ColumnTopology()
	for col, ov := range overlaps {
		if ov < sp.cfg.StimulusThreshold {
			continue
		}
		area := top.Neighborhood(col, sp.inhibitionRadius, sp.cfg.WrapAround)
		numHigher := 0
		for _, nb := range area {
			if tieBroken[nb] > tieBroken[col] {
				numHigher++
			}
		}
		numActive := int(0.5 + density*float64(len(area)))
		if numHigher < numActive {
			winners = append(winners, col)
			tieBroken[col] += winnerDelta
		}
	}
	return winners
}
