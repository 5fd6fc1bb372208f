// Package features extracts per-repetition movement descriptors from a
// completed rep's sample buffer: timing, smoothness, and phase structure.
// The descriptors feed reporting and persistence; they never feed back into
// ROM computation.
package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/liftlab-data/rom.engine/internal/imu"
)

// epsilon guards the LDLJ logarithm against zero operands.
const epsilon = 1e-6

// RepFeatures describes one completed repetition.
type RepFeatures struct {
	DurationSec float64 `json:"durationSec"`

	AccelMean   float64 `json:"accelMean"`
	AccelStdDev float64 `json:"accelStdDev"`
	AccelMax    float64 `json:"accelMax"`
	AccelMin    float64 `json:"accelMin"`

	// LDLJ is the log dimensionless jerk over the 3-axis acceleration.
	// Smoother movement accumulates less squared jerk, so higher (less
	// negative) values mean smoother reps.
	LDLJ float64 `json:"ldlj"`

	// Phase split around the main acceleration peak.
	ConcentricSec   float64 `json:"concentricSec"`
	EccentricSec    float64 `json:"eccentricSec"`
	ConEccRatio     float64 `json:"conEccRatio"`
	PeakTimePercent float64 `json:"peakTimePercent"`

	DirectionChanges int `json:"directionChanges"`
}

// Extract computes descriptors for a rep buffer. Fewer than three samples
// yields a zero value; extraction degrades rather than failing.
func Extract(samples []imu.Sample) RepFeatures {
	var f RepFeatures
	n := len(samples)
	if n < 3 {
		return f
	}

	f.DurationSec = float64(samples[n-1].TimestampMS-samples[0].TimestampMS) / 1000.0
	if f.DurationSec <= 0 {
		return f
	}
	dt := f.DurationSec / float64(n-1)

	mags := make([]float64, n)
	for i, s := range samples {
		mags[i] = s.AccelMagnitude()
	}
	f.AccelMean = stat.Mean(mags, nil)
	f.AccelStdDev = stat.StdDev(mags, nil)
	f.AccelMax = mags[0]
	f.AccelMin = mags[0]
	for _, m := range mags[1:] {
		if m > f.AccelMax {
			f.AccelMax = m
		}
		if m < f.AccelMin {
			f.AccelMin = m
		}
	}

	f.LDLJ = ldlj(samples, dt, f.AccelMax)
	f.concentricSplit(samples)
	f.DirectionChanges = directionChanges(samples, dt)
	return f
}

// ldlj computes −ln(duration / aPeak² · ∫‖jerk‖² dt) over the three axes.
func ldlj(samples []imu.Sample, dt, aPeak float64) float64 {
	var integral float64
	for i := 1; i < len(samples); i++ {
		jx := (samples[i].AccelX - samples[i-1].AccelX) / dt
		jy := (samples[i].AccelY - samples[i-1].AccelY) / dt
		jz := (samples[i].AccelZ - samples[i-1].AccelZ) / dt
		integral += (jx*jx + jy*jy + jz*jz) * dt
	}

	duration := float64(len(samples)) * dt
	if aPeak <= 0 {
		aPeak = epsilon
	}
	if integral <= 0 {
		integral = epsilon
	}
	return -math.Log(duration / (aPeak * aPeak) * integral)
}

// concentricSplit divides the rep at the main acceleration peak on the axis
// with the greatest range, peak found by absolute amplitude.
func (f *RepFeatures) concentricSplit(samples []imu.Sample) {
	n := len(samples)
	axis := dominantAccelAxis(samples)
	peakIdx := 0
	peakAbs := 0.0
	for i, s := range samples {
		if v := math.Abs(axisValue(s, axis)); v > peakAbs {
			peakAbs = v
			peakIdx = i
		}
	}

	f.ConcentricSec = float64(samples[peakIdx].TimestampMS-samples[0].TimestampMS) / 1000.0
	f.EccentricSec = float64(samples[n-1].TimestampMS-samples[peakIdx].TimestampMS) / 1000.0
	if f.EccentricSec > 0 {
		f.ConEccRatio = f.ConcentricSec / f.EccentricSec
	}
	f.PeakTimePercent = float64(peakIdx) / float64(n) * 100
}

// directionChanges counts sign flips of the jerk magnitude's dominant axis
// as a proxy for movement reversals.
func directionChanges(samples []imu.Sample, dt float64) int {
	axis := dominantAccelAxis(samples)
	count := 0
	prevSign := 0
	for i := 1; i < len(samples); i++ {
		j := (axisValue(samples[i], axis) - axisValue(samples[i-1], axis)) / dt
		sign := 0
		if j > 0 {
			sign = 1
		} else if j < 0 {
			sign = -1
		}
		if sign != 0 && prevSign != 0 && sign != prevSign {
			count++
		}
		if sign != 0 {
			prevSign = sign
		}
	}
	return count
}

func dominantAccelAxis(samples []imu.Sample) int {
	var minV, maxV [3]float64
	for i, s := range samples {
		for a := 0; a < 3; a++ {
			v := axisValue(s, a)
			if i == 0 || v < minV[a] {
				minV[a] = v
			}
			if i == 0 || v > maxV[a] {
				maxV[a] = v
			}
		}
	}
	best := 0
	bestRange := maxV[0] - minV[0]
	for a := 1; a < 3; a++ {
		if r := maxV[a] - minV[a]; r > bestRange {
			best, bestRange = a, r
		}
	}
	return best
}

func axisValue(s imu.Sample, axis int) float64 {
	switch axis {
	case 0:
		return s.AccelX
	case 1:
		return s.AccelY
	default:
		return s.AccelZ
	}
}
