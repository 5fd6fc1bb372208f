package rom

import (
	"github.com/liftlab-data/rom.engine/internal/imu"
	"github.com/liftlab-data/rom.engine/internal/monitoring"
	"github.com/liftlab-data/rom.engine/internal/quat"
)

// Axis identifies the scalar an AngleEngine tracks for ROM.
type Axis int

const (
	// AxisTotal tracks the total quaternion angle to the baseline. This is
	// the default until a dominant axis is detected.
	AxisTotal Axis = iota
	AxisRoll
	AxisPitch
	AxisYaw
)

func (a Axis) String() string {
	switch a {
	case AxisRoll:
		return "roll"
	case AxisPitch:
		return "pitch"
	case AxisYaw:
		return "yaw"
	default:
		return "total"
	}
}

// AngleEngine tracks rotational displacement against a lazily captured
// baseline orientation. The first sample of a session becomes the baseline;
// no rest hold is required for the angle regime.
type AngleEngine struct {
	tuning Tuning

	hasBaseline bool
	baseQuat    quat.Quat
	baseEuler   quat.Euler

	axis       Axis
	axisLocked bool

	angle      float64 // total angle to baseline, degrees
	deltaRoll  float64
	deltaPitch float64
	deltaYaw   float64

	hasRepSample bool
	minTracked   float64
	maxTracked   float64
	peakAngle    float64 // max total angle seen within the current rep
}

// NewAngleEngine returns an engine with the given tuning.
func NewAngleEngine(t Tuning) *AngleEngine {
	return &AngleEngine{tuning: t}
}

// Update ingests one sample. The first sample captures the baseline and
// reports zero displacement.
func (e *AngleEngine) Update(s imu.Sample) {
	q := s.Quat().Normalized()
	eu := sampleEuler(s)

	if !e.hasBaseline {
		e.baseQuat = q
		e.baseEuler = eu
		e.hasBaseline = true
		monitoring.Logf("angle engine: baseline captured at t=%dms", s.TimestampMS)
	}

	e.angle = quat.AngleBetween(e.baseQuat, q)
	e.deltaRoll = eu.Roll - e.baseEuler.Roll
	e.deltaPitch = eu.Pitch - e.baseEuler.Pitch
	e.deltaYaw = eu.Yaw - e.baseEuler.Yaw

	tracked := e.trackedValue()
	if !e.hasRepSample {
		e.minTracked = tracked
		e.maxTracked = tracked
		e.hasRepSample = true
	} else {
		if tracked < e.minTracked {
			e.minTracked = tracked
		}
		if tracked > e.maxTracked {
			e.maxTracked = tracked
		}
	}
	if e.angle > e.peakAngle {
		e.peakAngle = e.angle
	}
}

func (e *AngleEngine) trackedValue() float64 {
	if !e.axisLocked {
		return e.angle
	}
	switch e.axis {
	case AxisRoll:
		return e.deltaRoll
	case AxisPitch:
		return e.deltaPitch
	case AxisYaw:
		return e.deltaYaw
	default:
		return e.angle
	}
}

// Angle returns the current total angular displacement in degrees, [0, 180].
func (e *AngleEngine) Angle() float64 {
	return e.angle
}

// RepROM returns the within-rep range of the tracked scalar in degrees.
func (e *AngleEngine) RepROM() float64 {
	if !e.hasRepSample {
		return 0
	}
	return e.maxTracked - e.minTracked
}

// PeakAngle returns the largest total quaternion angle reached within the
// current rep, in degrees.
func (e *AngleEngine) PeakAngle() float64 {
	return e.peakAngle
}

// DominantAxis reports the tracked axis and whether detection has run.
func (e *AngleEngine) DominantAxis() (Axis, bool) {
	return e.axis, e.axisLocked
}

// DetectDominantAxis inspects a full rep buffer, picks the Euler axis with
// the greatest range relative to the baseline, and locks it for the rest of
// the session. Runs once; later calls are no-ops.
func (e *AngleEngine) DetectDominantAxis(samples []imu.Sample) {
	if e.axisLocked || !e.hasBaseline || len(samples) == 0 {
		return
	}

	var minR, maxR, minP, maxP, minY, maxY float64
	for i, s := range samples {
		eu := sampleEuler(s)
		dr := eu.Roll - e.baseEuler.Roll
		dp := eu.Pitch - e.baseEuler.Pitch
		dy := eu.Yaw - e.baseEuler.Yaw
		if i == 0 {
			minR, maxR = dr, dr
			minP, maxP = dp, dp
			minY, maxY = dy, dy
			continue
		}
		minR, maxR = minMax(dr, minR, maxR)
		minP, maxP = minMax(dp, minP, maxP)
		minY, maxY = minMax(dy, minY, maxY)
	}

	rangeR := maxR - minR
	rangeP := maxP - minP
	rangeY := maxY - minY

	e.axis = AxisRoll
	best := rangeR
	if rangeP > best {
		e.axis, best = AxisPitch, rangeP
	}
	if rangeY > best {
		e.axis = AxisYaw
	}
	e.axisLocked = true
	monitoring.Logf("angle engine: dominant axis %s (ranges roll=%.1f pitch=%.1f yaw=%.1f)",
		e.axis, rangeR, rangeP, rangeY)
}

// ResetRep clears within-rep state while keeping the baseline and axis lock.
func (e *AngleEngine) ResetRep() {
	e.hasRepSample = false
	e.minTracked = 0
	e.maxTracked = 0
	e.peakAngle = 0
}

// Reset performs a full teardown: baseline, axis lock, and rep state.
func (e *AngleEngine) Reset() {
	*e = AngleEngine{tuning: e.tuning}
}

func sampleEuler(s imu.Sample) quat.Euler {
	if s.Roll != 0 || s.Pitch != 0 || s.Yaw != 0 {
		return quat.Euler{Roll: s.Roll, Pitch: s.Pitch, Yaw: s.Yaw}
	}
	return s.Quat().Normalized().ToEuler()
}

func minMax(v, lo, hi float64) (float64, float64) {
	if v < lo {
		lo = v
	}
	if v > hi {
		hi = v
	}
	return lo, hi
}
