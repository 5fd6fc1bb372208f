package rom

import (
	"math"

	"github.com/liftlab-data/rom.engine/internal/calibration"
	"github.com/liftlab-data/rom.engine/internal/imu"
	"github.com/liftlab-data/rom.engine/internal/monitoring"
	"github.com/liftlab-data/rom.engine/internal/quat"
)

// StrokeEngine tracks vertical linear displacement in real time. Its output
// is feedback-grade only: dead-reckoned displacement drifts, so the
// authoritative per-rep value comes from the retrospective pass (Correct),
// not from this engine's min/max.
type StrokeEngine struct {
	tuning   Tuning
	baseline *calibration.Baseline

	// lazy gravity fallback when no rest-hold baseline exists yet
	gravity    float64
	hasGravity bool

	lastTS     int64
	hasLastTS  bool
	prevAccel  float64 // smoothed vertical accel from the previous sample
	prevVel    float64
	velocity   float64
	disp       float64
	stillCount int

	hasRepSample bool
	minDisp      float64
	maxDisp      float64
}

// NewStrokeEngine returns a live stroke tracker. baseline may be nil; the
// first sample's raw accel vector then anchors gravity until calibration
// supplies a proper baseline via SetBaseline.
func NewStrokeEngine(t Tuning, baseline *calibration.Baseline) *StrokeEngine {
	e := &StrokeEngine{tuning: t}
	e.SetBaseline(baseline)
	return e
}

// SetBaseline installs a calibration baseline and adopts its gravity
// magnitude. A nil baseline keeps the lazy first-sample fallback.
func (e *StrokeEngine) SetBaseline(b *calibration.Baseline) {
	e.baseline = b
	if b != nil {
		e.gravity = b.Gravity
		e.hasGravity = true
	}
}

// Update ingests one sample and advances the dead-reckoned state.
func (e *StrokeEngine) Update(s imu.Sample) {
	if !e.hasGravity {
		e.gravity = s.AccelMagnitude()
		e.hasGravity = true
		monitoring.Logf("stroke engine: lazy gravity anchor %.3f m/s² at t=%dms", e.gravity, s.TimestampMS)
	}

	// World-frame vertical acceleration: rotate the raw vector with the
	// sample's own quaternion, then remove gravity from the Z component.
	_, _, worldZ := quat.RotateVector(s.AccelX, s.AccelY, s.AccelZ, s.Quat().Normalized())
	vert := worldZ - e.gravity

	// Exponential smoothing suppresses spikes without flattening slow
	// motion; the dead zone removes residual sensor noise.
	smoothed := e.tuning.SmoothingPrevWeight*e.prevAccel + e.tuning.SmoothingCurWeight*vert
	if math.Abs(smoothed) < e.tuning.AccelDeadZone {
		smoothed = 0
	}

	dt := e.deltaT(s.TimestampMS)

	if e.isStill(s) {
		e.stillCount++
	} else {
		e.stillCount = 0
	}

	if e.stillCount >= e.tuning.StillMinSamples {
		// ZUPT: independent evidence says the sensor is at rest, so decay
		// the integrated velocity hard and snap it to zero.
		e.velocity *= e.tuning.ZUPTDecay
		if math.Abs(e.velocity) < e.tuning.VelocitySnapEpsilon {
			e.velocity = 0
		}
	} else if dt > 0 {
		e.velocity += 0.5 * (e.prevAccel + smoothed) * dt
		e.velocity = clamp(e.velocity, -e.tuning.MaxVelocity, e.tuning.MaxVelocity)
	}

	if dt > 0 {
		e.disp += 0.5 * (e.prevVel + e.velocity) * dt
		e.disp = clamp(e.disp, -e.tuning.MaxDisplacement, e.tuning.MaxDisplacement)
	}

	e.prevAccel = smoothed
	e.prevVel = e.velocity

	if !e.hasRepSample {
		e.minDisp = e.disp
		e.maxDisp = e.disp
		e.hasRepSample = true
	} else {
		if e.disp < e.minDisp {
			e.minDisp = e.disp
		}
		if e.disp > e.maxDisp {
			e.maxDisp = e.disp
		}
	}
}

// deltaT returns the integration step in seconds, or 0 when the timestamp is
// missing, non-monotonic, or implausibly far from the previous sample.
func (e *StrokeEngine) deltaT(ts int64) float64 {
	if !e.hasLastTS {
		e.lastTS = ts
		e.hasLastTS = true
		return 0
	}
	dt := float64(ts-e.lastTS) / 1000.0
	e.lastTS = ts
	if dt <= 0 || dt > e.tuning.MaxDT {
		monitoring.Logf("stroke engine: skipping integration, dt=%.3fs out of range", dt)
		return 0
	}
	return dt
}

// isStill applies the combined accel+gyro rest test. The gyro magnitude is
// converted to rad/s via the baseline's detected unit; without a baseline the
// native value is assumed to be rad/s already.
func (e *StrokeEngine) isStill(s imu.Sample) bool {
	accelDev := math.Abs(s.AccelMagnitude() - e.gravity)
	if accelDev >= e.tuning.StillAccelThreshold {
		return false
	}
	gyro := s.GyroMagnitude()
	if e.baseline != nil {
		gyro = e.baseline.GyroToRadians(gyro)
	}
	return gyro < e.tuning.StillGyroThreshold
}

// Displacement returns the current dead-reckoned vertical displacement in
// meters.
func (e *StrokeEngine) Displacement() float64 {
	return e.disp
}

// Velocity returns the current vertical velocity in m/s.
func (e *StrokeEngine) Velocity() float64 {
	return e.velocity
}

// RepROM returns the live within-rep displacement range in meters. Feedback
// only; see Correct for the authoritative value.
func (e *StrokeEngine) RepROM() float64 {
	if !e.hasRepSample {
		return 0
	}
	return e.maxDisp - e.minDisp
}

// ResetRep clears integration and within-rep state while keeping gravity and
// the baseline. Called at rep boundaries.
func (e *StrokeEngine) ResetRep() {
	e.velocity = 0
	e.disp = 0
	e.prevAccel = 0
	e.prevVel = 0
	e.stillCount = 0
	e.hasRepSample = false
	e.minDisp = 0
	e.maxDisp = 0
	e.hasLastTS = false
}

// Reset performs a full teardown including the gravity anchor.
func (e *StrokeEngine) Reset() {
	*e = StrokeEngine{tuning: e.tuning}
}
