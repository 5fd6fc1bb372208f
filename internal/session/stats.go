package session

import "gonum.org/v1/gonum/stat"

// Stats aggregates a set's rep history.
type Stats struct {
	RepCount           int     `json:"repCount"`
	AvgROM             float64 `json:"avgROM"`
	MaxROM             float64 `json:"maxROM"`
	ConsistencyPercent float64 `json:"romConsistencyPercent"`
	TargetROM          float64 `json:"targetROM"`
	AvgFulfillment     float64 `json:"avgFulfillment"`
}

// Stats computes aggregate statistics over the completed reps. Consistency
// is (1 − σ/µ)·100 clamped to [0, 100]; with no reps everything is zero.
func (c *Controller) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{TargetROM: c.targetROM, RepCount: len(c.reps)}
	if len(c.reps) == 0 {
		return s
	}

	values := make([]float64, len(c.reps))
	fulfillments := make([]float64, len(c.reps))
	for i, r := range c.reps {
		values[i] = r.Value
		fulfillments[i] = r.Fulfillment
		if r.Value > s.MaxROM {
			s.MaxROM = r.Value
		}
	}

	s.AvgROM = stat.Mean(values, nil)
	s.AvgFulfillment = stat.Mean(fulfillments, nil)

	if s.AvgROM > 0 && len(values) > 1 {
		sd := stat.StdDev(values, nil)
		consistency := (1 - sd/s.AvgROM) * 100
		if consistency < 0 {
			consistency = 0
		}
		if consistency > 100 {
			consistency = 100
		}
		s.ConsistencyPercent = consistency
	} else if s.AvgROM > 0 {
		// A single rep is trivially consistent.
		s.ConsistencyPercent = 100
	}
	return s
}
