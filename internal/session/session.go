// Package session orchestrates a workout set: calibration reps versus
// workout reps, pre-rep buffering, rep history, target ROM, and set
// statistics. The rep-boundary detector lives in the consuming layer; this
// package only reacts to explicit start/finish/complete calls.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/liftlab-data/rom.engine/internal/calibration"
	"github.com/liftlab-data/rom.engine/internal/imu"
	"github.com/liftlab-data/rom.engine/internal/monitoring"
	"github.com/liftlab-data/rom.engine/internal/rom"
	"github.com/liftlab-data/rom.engine/internal/units"
)

// Config fixes a session's regime and tuning at construction time.
type Config struct {
	Type   rom.Type
	Tuning rom.Tuning

	// GyroRadiansThreshold overrides the gyro-unit auto-detection bound;
	// zero selects the calibration default.
	GyroRadiansThreshold float64

	// ResetHistoryOnReanchor controls whether CalibrateBaseline discards
	// the set's rep history along with the position anchor.
	ResetHistoryOnReanchor bool
}

// RepRecord is one completed repetition. Immutable once appended.
type RepRecord struct {
	Index       int      `json:"index"`
	Value       float64  `json:"value"`
	Type        rom.Type `json:"romType"`
	Unit        string   `json:"unit"`
	Fulfillment float64  `json:"fulfillment"`
}

// LiveMetrics is the per-sample feedback surface, polled after AddSample.
type LiveMetrics struct {
	Angle        float64 // degrees, angle regime
	Displacement float64 // meters, stroke regime
	Velocity     float64 // m/s, stroke regime
	RepROM       float64 // degrees or centimeters per the session type
	Fulfillment  float64 // percent of target, capped
}

// CalibrationPayload is handed to the external persistence collaborator
// once a session's target is established.
type CalibrationPayload struct {
	TargetROM float64   `json:"targetROM"`
	RepROMs   []float64 `json:"repROMs"`
	ROMType   rom.Type  `json:"romType"`
	Unit      string    `json:"unit"`
}

// Controller is the per-stream session state machine. One Controller serves
// exactly one sample stream: a single producer drives AddSample and the rep
// boundaries, while the accessors may be called from other goroutines (the
// debug endpoints do). A read-write mutex keeps the two apart.
type Controller struct {
	mu  sync.RWMutex
	id  string
	cfg Config

	baseline *calibration.Baseline

	angle  *rom.AngleEngine
	stroke *rom.StrokeEngine

	preRep      *imu.RingBuffer
	savedPreRep []imu.Sample // snapshot taken at the previous rep's end
	repBuf      []imu.Sample

	inCalibrationRep bool
	calibrationROMs  []float64
	targetROM        float64
	calibrated       bool

	reps           []RepRecord
	lastCorrection *rom.CorrectionResult
}

// New returns a Controller for one exercise selection. The ROM type is fixed
// for the controller's lifetime.
func New(cfg Config) *Controller {
	c := &Controller{
		id:  uuid.NewString(),
		cfg: cfg,
	}
	c.initEngines()
	return c
}

func (c *Controller) initEngines() {
	c.preRep = imu.NewRingBuffer(c.cfg.Tuning.PreRepWindow)
	switch c.cfg.Type {
	case rom.TypeAngle:
		c.angle = rom.NewAngleEngine(c.cfg.Tuning)
	default:
		c.stroke = rom.NewStrokeEngine(c.cfg.Tuning, c.baseline)
	}
}

// ID returns the session's identifier.
func (c *Controller) ID() string {
	return c.id
}

// Type returns the session's ROM regime.
func (c *Controller) Type() rom.Type {
	return c.cfg.Type
}

// Unit returns the unit in which this session reports ROM values.
func (c *Controller) Unit() string {
	if c.cfg.Type == rom.TypeAngle {
		return units.Degrees
	}
	return units.Centimeters
}

// AddSample ingests one IMU notification. Every sample lands in the current
// rep buffer and the rolling pre-rep window regardless of rep state, so
// pre-motion rest context survives rep boundaries.
func (c *Controller) AddSample(s imu.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repBuf = append(c.repBuf, s)
	c.preRep.Append(s)
	switch c.cfg.Type {
	case rom.TypeAngle:
		c.angle.Update(s)
	default:
		c.stroke.Update(s)
	}
}

// SetBaselineFromSamples captures a rest-hold baseline and fully resets the
// session's transient state: buffers, integration, and rep history. It
// returns false, leaving any previous baseline active, when the buffer is
// too short.
func (c *Controller) SetBaselineFromSamples(samples []imu.Sample) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := calibration.FromSamples(samples, c.cfg.GyroRadiansThreshold)
	if !ok {
		return false
	}
	c.baseline = b
	c.resetTransient(true)
	return true
}

// CalibrateBaseline re-anchors the position baseline from the rolling
// pre-rep window, assuming the caller held still long enough to fill it.
// Rep history survives unless the session is configured otherwise. Returns
// false if the window is too short; nothing changes.
func (c *Controller) CalibrateBaseline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := calibration.FromSamples(c.preRep.Snapshot(), c.cfg.GyroRadiansThreshold)
	if !ok {
		return false
	}
	c.baseline = b
	c.resetTransient(c.cfg.ResetHistoryOnReanchor)
	monitoring.Logf("session %s: baseline re-anchored (history reset=%v)", c.id, c.cfg.ResetHistoryOnReanchor)
	return true
}

// resetTransient clears integration state and buffers; history too when
// withHistory is set. The baseline itself is untouched.
func (c *Controller) resetTransient(withHistory bool) {
	c.repBuf = nil
	c.savedPreRep = nil
	c.preRep.Reset()
	c.inCalibrationRep = false
	switch c.cfg.Type {
	case rom.TypeAngle:
		c.angle.ResetRep()
	default:
		c.stroke.SetBaseline(c.baseline)
		c.stroke.ResetRep()
	}
	if withHistory {
		c.reps = nil
		c.calibrationROMs = nil
	}
}

// IsCalibrationRep reports whether a calibration rep is in progress.
func (c *Controller) IsCalibrationRep() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inCalibrationRep
}

// IsCalibrated reports whether a target ROM has been established.
func (c *Controller) IsCalibrated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calibrated
}

// TargetROM returns the session target, zero until calibrated.
func (c *Controller) TargetROM() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.targetROM
}

// StartCalibrationRep begins a calibration rep. The rep buffer is seeded
// with the pre-rep window so pre-motion rest context is preserved, and live
// integration state is reset.
func (c *Controller) StartCalibrationRep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repBuf = c.preRep.Snapshot()
	c.resetLive()
	c.inCalibrationRep = true
	monitoring.Logf("session %s: calibration rep started with %d context samples", c.id, len(c.repBuf))
}

// FinishCalibrationRep scores the calibration rep in progress. With fewer
// than the minimum buffered samples it returns (0, false): the calibration
// flag drops but rep history and buffers are untouched so the caller can
// retry. On success the ROM value is recorded for target derivation and the
// rep buffers are cleared.
func (c *Controller) FinishCalibrationRep() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inCalibrationRep = false
	if len(c.repBuf) < c.cfg.Tuning.MinRepSamples {
		monitoring.Logf("session %s: calibration rep rejected, %d samples", c.id, len(c.repBuf))
		return 0, false
	}
	// The rep buffer was already seeded with rest context at
	// StartCalibrationRep; prepending savedPreRep again would double-count
	// rest samples in the retro bias estimate.
	value := c.scoreRep(false)
	c.calibrationROMs = append(c.calibrationROMs, value)
	c.finishRepBuffers()
	return value, true
}

// SetTargetFromCalibration derives the session target as the mean of the
// supplied calibration ROMs and marks the session calibrated. The returned
// payload goes to the persistence collaborator.
func (c *Controller) SetTargetFromCalibration(values []float64) CalibrationPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum float64
	for _, v := range values {
		sum += v
	}
	if len(values) > 0 {
		c.targetROM = sum / float64(len(values))
	}
	c.calibrated = true
	monitoring.Logf("session %s: target ROM %.1f %s from %d calibration reps",
		c.id, c.targetROM, c.Unit(), len(values))
	return CalibrationPayload{
		TargetROM: c.targetROM,
		RepROMs:   append([]float64(nil), values...),
		ROMType:   c.cfg.Type,
		Unit:      c.Unit(),
	}
}

// CompleteRep scores the rep accumulated since the last boundary and appends
// an immutable RepRecord. With fewer than the minimum buffered samples it
// returns (RepRecord{}, false) and changes nothing; the caller retries at
// the next boundary.
func (c *Controller) CompleteRep() (RepRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.repBuf) < c.cfg.Tuning.MinRepSamples {
		monitoring.Logf("session %s: rep rejected, %d samples", c.id, len(c.repBuf))
		return RepRecord{}, false
	}
	value := c.scoreRep(true)
	rec := RepRecord{
		Index:       len(c.reps) + 1,
		Value:       value,
		Type:        c.cfg.Type,
		Unit:        c.Unit(),
		Fulfillment: c.cfg.Tuning.Fulfillment(value, c.targetROM),
	}
	c.reps = append(c.reps, rec)
	c.finishRepBuffers()
	return rec, true
}

// scoreRep computes the authoritative ROM for the buffered rep. Angle reps
// take the larger of the quaternion peak and the tracked range; stroke reps
// use the retrospective pass only, because the live min/max is known to
// drift. With prependContext set, stroke buffers are extended with the rest
// context saved at the previous rep's end; calibration reps skip this
// because their buffer is seeded at start instead.
func (c *Controller) scoreRep(prependContext bool) float64 {
	if c.cfg.Type == rom.TypeAngle {
		value := c.angle.PeakAngle()
		if r := c.angle.RepROM(); r > value {
			value = r
		}
		if value > c.cfg.Tuning.MaxAngleROM {
			value = c.cfg.Tuning.MaxAngleROM
		}
		if _, locked := c.angle.DominantAxis(); !locked {
			c.angle.DetectDominantAxis(c.repBuf)
		}
		return value
	}

	buf := c.repBuf
	if prependContext && len(c.savedPreRep) > 0 {
		buf = append(append([]imu.Sample(nil), c.savedPreRep...), c.repBuf...)
	}
	res := rom.Correct(buf, c.baseline, c.cfg.Tuning)
	c.lastCorrection = &res
	value := units.MetersToCentimeters(res.ROM)
	if value > c.cfg.Tuning.MaxStrokeROM {
		value = c.cfg.Tuning.MaxStrokeROM
	}
	return value
}

// finishRepBuffers clears the rep buffer, snapshots the pre-rep window for
// the next rep's rest context, and resets live integration.
func (c *Controller) finishRepBuffers() {
	c.savedPreRep = c.preRep.Snapshot()
	c.repBuf = nil
	c.resetLive()
}

func (c *Controller) resetLive() {
	switch c.cfg.Type {
	case rom.TypeAngle:
		c.angle.ResetRep()
	default:
		c.stroke.ResetRep()
	}
}

// Live returns the current feedback metrics.
func (c *Controller) Live() LiveMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var m LiveMetrics
	switch c.cfg.Type {
	case rom.TypeAngle:
		m.Angle = c.angle.Angle()
		m.RepROM = c.angle.RepROM()
	default:
		m.Displacement = c.stroke.Displacement()
		m.Velocity = c.stroke.Velocity()
		m.RepROM = units.MetersToCentimeters(c.stroke.RepROM())
	}
	if c.calibrated {
		m.Fulfillment = c.cfg.Tuning.Fulfillment(m.RepROM, c.targetROM)
	}
	return m
}

// Reps returns a copy of the set's rep history.
func (c *Controller) Reps() []RepRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]RepRecord(nil), c.reps...)
}

// LastCorrection returns the retrospective pass output from the most recent
// stroke rep, nil before the first completed rep. Diagnostic only.
func (c *Controller) LastCorrection() *rom.CorrectionResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastCorrection
}

// Baseline returns the active calibration baseline, nil before capture.
func (c *Controller) Baseline() *calibration.Baseline {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseline
}

// RepBufferLen reports how many samples the current rep has accumulated.
func (c *Controller) RepBufferLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.repBuf)
}

// Reset is the full teardown used on exercise-selection change: baseline,
// engines, buffers, history, and calibration state all go.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseline = nil
	c.repBuf = nil
	c.savedPreRep = nil
	c.inCalibrationRep = false
	c.calibrationROMs = nil
	c.targetROM = 0
	c.calibrated = false
	c.reps = nil
	c.lastCorrection = nil
	c.initEngines()
	monitoring.Logf("session %s: full reset", c.id)
}
