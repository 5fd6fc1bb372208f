package features

import (
	"math"
	"testing"

	"github.com/liftlab-data/rom.engine/internal/imu"
)

func repWithPeak(n, peakIdx int, peak float64) []imu.Sample {
	out := make([]imu.Sample, n)
	for i := range out {
		// Triangular accel bump on Z centered at peakIdx.
		var a float64
		if i <= peakIdx {
			a = peak * float64(i) / float64(peakIdx)
		} else {
			a = peak * float64(n-1-i) / float64(n-1-peakIdx)
		}
		out[i] = imu.Sample{AccelZ: 9.81 + a, QuatW: 1, TimestampMS: int64(i * 20)}
	}
	return out
}

func TestExtractTooFewSamples(t *testing.T) {
	f := Extract([]imu.Sample{{QuatW: 1}, {QuatW: 1, TimestampMS: 20}})
	if f.DurationSec != 0 || f.LDLJ != 0 {
		t.Errorf("short buffer should yield zero features, got %+v", f)
	}
}

func TestExtractDuration(t *testing.T) {
	f := Extract(repWithPeak(51, 25, 2))
	if math.Abs(f.DurationSec-1.0) > 1e-9 {
		t.Errorf("DurationSec = %v, want 1.0", f.DurationSec)
	}
}

func TestExtractAccelStats(t *testing.T) {
	f := Extract(repWithPeak(51, 25, 2))
	if f.AccelMax < f.AccelMean || f.AccelMean < f.AccelMin {
		t.Errorf("accel stats out of order: %+v", f)
	}
	if math.Abs(f.AccelMax-11.81) > 1e-6 {
		t.Errorf("AccelMax = %v, want 11.81", f.AccelMax)
	}
	if math.Abs(f.AccelMin-9.81) > 1e-6 {
		t.Errorf("AccelMin = %v, want 9.81", f.AccelMin)
	}
}

func TestExtractPhaseSplit(t *testing.T) {
	// Peak at sample 10 of 50: concentric 0.2 s, eccentric 0.78 s.
	f := Extract(repWithPeak(50, 10, 2))
	if math.Abs(f.ConcentricSec-0.2) > 1e-9 {
		t.Errorf("ConcentricSec = %v, want 0.2", f.ConcentricSec)
	}
	if math.Abs(f.EccentricSec-0.78) > 1e-9 {
		t.Errorf("EccentricSec = %v, want 0.78", f.EccentricSec)
	}
	if f.ConEccRatio <= 0 || f.ConEccRatio >= 1 {
		t.Errorf("ConEccRatio = %v, want (0,1) for an early peak", f.ConEccRatio)
	}
	if f.PeakTimePercent < 15 || f.PeakTimePercent > 25 {
		t.Errorf("PeakTimePercent = %v, want ≈20", f.PeakTimePercent)
	}
}

func TestSmootherMovementHasHigherLDLJ(t *testing.T) {
	smooth := repWithPeak(60, 30, 2)

	jerky := repWithPeak(60, 30, 2)
	for i := range jerky {
		if i%2 == 1 {
			jerky[i].AccelZ += 0.8
		}
	}

	fs := Extract(smooth)
	fj := Extract(jerky)
	// Less accumulated squared jerk → smaller log argument → higher LDLJ.
	if fs.LDLJ <= fj.LDLJ {
		t.Errorf("smooth LDLJ %v should be higher than jerky %v", fs.LDLJ, fj.LDLJ)
	}
	if fs.DirectionChanges >= fj.DirectionChanges {
		t.Errorf("jerky rep should reverse more: %d vs %d", fs.DirectionChanges, fj.DirectionChanges)
	}
}
