package rom

import (
	"math"

	"github.com/liftlab-data/rom.engine/internal/calibration"
	"github.com/liftlab-data/rom.engine/internal/imu"
	"github.com/liftlab-data/rom.engine/internal/monitoring"
	"github.com/liftlab-data/rom.engine/internal/quat"
)

// CorrectionResult is the output of the retrospective pass over one rep.
// Velocity and Position are the corrected intermediate series, index-aligned
// with the input samples; they exist for diagnostics and reporting.
type CorrectionResult struct {
	ROM  float64 // meters, max(position) − min(position)
	Peak float64 // meters, position extremum of largest magnitude, sign kept

	Velocity     []float64
	Position     []float64
	RestSegments [][2]int // inclusive sample-index ranges classified as rest
}

// Correct runs the forward-backward integration pass over a completed rep
// buffer, ideally with rest samples on both ends. Live integration drifts
// without bound; integrating the same series forward from a known zero and
// backward from a known zero accumulates opposite-signed systematic error,
// so the average of the two cancels the dominant linear drift term. Rest
// segments then pin velocity and position to truth wherever the sensor
// provably did not move.
//
// The pass runs once per completed rep, never per sample. It never fails:
// degenerate input degrades to a zero result.
func Correct(samples []imu.Sample, b *calibration.Baseline, t Tuning) CorrectionResult {
	n := len(samples)
	if n < 2 {
		return CorrectionResult{}
	}

	gravity := samples[0].AccelMagnitude()
	if b != nil {
		gravity = b.Gravity
	}

	// Raw world-frame vertical acceleration per sample, each rotated by its
	// own quaternion, plus guarded integration steps.
	rawVert := make([]float64, n)
	dt := make([]float64, n) // dt[i] spans samples i-1 → i; dt[0] unused
	for i, s := range samples {
		_, _, worldZ := quat.RotateVector(s.AccelX, s.AccelY, s.AccelZ, s.Quat().Normalized())
		rawVert[i] = worldZ - gravity
		if i > 0 {
			d := float64(s.TimestampMS-samples[i-1].TimestampMS) / 1000.0
			if d > 0 && d <= t.MaxDT {
				dt[i] = d
			}
		}
	}

	segments := restSegments(samples, b, gravity, t)

	// Constant accel bias estimated where the sensor provably sat still.
	var bias float64
	restCount := 0
	for _, seg := range segments {
		for i := seg[0]; i <= seg[1]; i++ {
			bias += rawVert[i]
			restCount++
		}
	}
	if restCount >= t.BiasMinRestSamples {
		bias /= float64(restCount)
	} else {
		bias = 0
	}

	// Bias-corrected, 3-point [1,2,1]/4 smoothed accel; exact zero in rest
	// segments, noise floor elsewhere.
	accel := make([]float64, n)
	for i := range accel {
		accel[i] = rawVert[i] - bias
	}
	smoothed := make([]float64, n)
	copy(smoothed, accel)
	for i := 1; i < n-1; i++ {
		smoothed[i] = (accel[i-1] + 2*accel[i] + accel[i+1]) / 4
	}
	inRest := make([]bool, n)
	for _, seg := range segments {
		for i := seg[0]; i <= seg[1]; i++ {
			inRest[i] = true
		}
	}
	for i := range smoothed {
		if inRest[i] {
			smoothed[i] = 0
		} else if math.Abs(smoothed[i]) < t.RetroAccelNoiseFloor {
			smoothed[i] = 0
		}
	}

	// Forward and backward trapezoidal velocity, both anchored at a true
	// zero, then averaged.
	vf := make([]float64, n)
	for i := 1; i < n; i++ {
		vf[i] = vf[i-1] + 0.5*(smoothed[i-1]+smoothed[i])*dt[i]
	}
	vb := make([]float64, n)
	for i := n - 2; i >= 0; i-- {
		vb[i] = vb[i+1] - 0.5*(smoothed[i]+smoothed[i+1])*dt[i+1]
	}
	vel := make([]float64, n)
	for i := range vel {
		vel[i] = 0.5 * (vf[i] + vb[i])
		if inRest[i] {
			vel[i] = 0
		}
	}

	pos := make([]float64, n)
	for i := 1; i < n; i++ {
		pos[i] = pos[i-1] + 0.5*(vel[i-1]+vel[i])*dt[i]
	}

	detrend(pos, segments)

	minP, maxP := pos[0], pos[0]
	for _, p := range pos[1:] {
		if p < minP {
			minP = p
		}
		if p > maxP {
			maxP = p
		}
	}
	peak := maxP
	if math.Abs(minP) > math.Abs(maxP) {
		peak = minP
	}

	monitoring.Logf("retro: %d samples, %d rest segments, bias=%.4f m/s², rom=%.3f m",
		n, len(segments), bias, maxP-minP)

	return CorrectionResult{
		ROM:          maxP - minP,
		Peak:         peak,
		Velocity:     vel,
		Position:     pos,
		RestSegments: segments,
	}
}

// restSegments classifies each sample as still or moving and clusters
// consecutive still samples into segments of at least RestSegmentMinLen.
func restSegments(samples []imu.Sample, b *calibration.Baseline, gravity float64, t Tuning) [][2]int {
	var segs [][2]int
	runStart := -1
	flush := func(end int) {
		if runStart >= 0 && end-runStart+1 >= t.RestSegmentMinLen {
			segs = append(segs, [2]int{runStart, end})
		}
		runStart = -1
	}
	for i, s := range samples {
		gyro := s.GyroMagnitude()
		if b != nil {
			gyro = b.GyroToRadians(gyro)
		}
		still := math.Abs(s.AccelMagnitude()-gravity) < t.RetroAccelRest && gyro < t.RetroGyroRest
		if still {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i - 1)
	}
	flush(len(samples) - 1)
	return segs
}

// detrend removes residual position drift in place. With two or more rest
// segments it subtracts the line through the first and last segments'
// midpoints; with one it re-zeros at that midpoint; with none it falls back
// to a naive first-to-last linear detrend, which is an approximation rather
// than a guarantee.
func detrend(pos []float64, segments [][2]int) {
	n := len(pos)
	switch {
	case len(segments) >= 2:
		m1 := mid(segments[0])
		m2 := mid(segments[len(segments)-1])
		if m2 == m1 {
			offset := pos[m1]
			for i := range pos {
				pos[i] -= offset
			}
			return
		}
		p1, p2 := pos[m1], pos[m2]
		slope := (p2 - p1) / float64(m2-m1)
		for i := range pos {
			pos[i] -= p1 + slope*float64(i-m1)
		}
	case len(segments) == 1:
		offset := pos[mid(segments[0])]
		for i := range pos {
			pos[i] -= offset
		}
	default:
		if n < 2 {
			return
		}
		p0 := pos[0]
		slope := (pos[n-1] - p0) / float64(n-1)
		for i := range pos {
			pos[i] -= p0 + slope*float64(i)
		}
	}
}

func mid(seg [2]int) int {
	return (seg[0] + seg[1]) / 2
}
