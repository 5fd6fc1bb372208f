// Package rom implements the range-of-motion engines: the live angle and
// stroke trackers fed one sample at a time, and the retrospective
// forward-backward integration pass that produces the authoritative stroke
// value after a repetition completes.
package rom

// Type selects which engine processes a sample stream. It is fixed per
// exercise selection and never changes mid-session.
type Type string

const (
	// TypeAngle tracks rotational displacement; the sensor rotates with
	// the limb or equipment (dumbbell-style exercises).
	TypeAngle Type = "angle"
	// TypeStroke tracks linear vertical displacement; the sensor travels
	// along a near-vertical line (barbell/machine exercises).
	TypeStroke Type = "stroke"
)

// Tuning holds every numeric threshold the engines use. Values are
// empirically tuned for one sensor module; override via DefaultTuning() plus
// the config package rather than editing constants.
type Tuning struct {
	// Live stroke engine
	SmoothingPrevWeight float64 // exponential smoothing weight on previous accel
	SmoothingCurWeight  float64 // exponential smoothing weight on current accel
	AccelDeadZone       float64 // m/s²; smoothed accel below this is zeroed
	StillAccelThreshold float64 // m/s²; |accel magnitude − gravity| rest bound
	StillGyroThreshold  float64 // rad/s; gyro magnitude rest bound
	StillMinSamples     int     // consecutive still samples before ZUPT engages
	ZUPTDecay           float64 // velocity multiplier while still
	VelocitySnapEpsilon float64 // m/s; velocity below this snaps to exactly zero
	MaxVelocity         float64 // m/s hard clamp
	MaxDisplacement     float64 // m hard clamp, both signs

	// Retrospective pass
	MaxDT                 float64 // s; dt outside (0, MaxDT) is rejected
	RetroAccelRest        float64 // m/s²; rest classification accel bound
	RetroGyroRest         float64 // rad/s; rest classification gyro bound
	RestSegmentMinLen     int     // consecutive still samples forming a segment
	BiasMinRestSamples    int     // rest samples required to estimate accel bias
	RetroAccelNoiseFloor  float64 // m/s²; corrected accel below this is zeroed

	// Rep bookkeeping
	MinRepSamples     int     // samples required to score a rep
	MaxAngleROM       float64 // degrees; per-rep clamp for angle type
	MaxStrokeROM      float64 // cm; per-rep clamp for stroke type
	FulfillmentCap    float64 // percent; live and per-rep fulfillment ceiling
	PreRepWindow      int     // rolling pre-rep buffer length
}

// DefaultTuning returns the tuning used in production.
func DefaultTuning() Tuning {
	return Tuning{
		SmoothingPrevWeight: 0.25,
		SmoothingCurWeight:  0.75,
		AccelDeadZone:       0.06,
		StillAccelThreshold: 0.12,
		StillGyroThreshold:  0.06,
		StillMinSamples:     2,
		ZUPTDecay:           0.03,
		VelocitySnapEpsilon: 0.005,
		MaxVelocity:         2.0,
		MaxDisplacement:     2.0,

		MaxDT:                 0.5,
		RetroAccelRest:        0.20,
		RetroGyroRest:         0.08,
		RestSegmentMinLen:     2,
		BiasMinRestSamples:    4,
		RetroAccelNoiseFloor:  0.05,

		MinRepSamples:  5,
		MaxAngleROM:    360,
		MaxStrokeROM:   300,
		FulfillmentCap: 150,
		PreRepWindow:   30,
	}
}

// Fulfillment returns repROM as a percentage of target, capped. A
// non-positive target yields zero rather than a division blowup.
func (t Tuning) Fulfillment(repROM, target float64) float64 {
	if target <= 0 {
		return 0
	}
	f := repROM / target * 100
	if f > t.FulfillmentCap {
		return t.FulfillmentCap
	}
	return f
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
