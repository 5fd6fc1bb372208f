package session

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftlab-data/rom.engine/internal/imu"
	"github.com/liftlab-data/rom.engine/internal/rom"
	"github.com/liftlab-data/rom.engine/internal/units"
)

const gravity = 9.81

func restSample(ts int64) imu.Sample {
	return imu.Sample{AccelZ: gravity, QuatW: 1, TimestampMS: ts}
}

// curlSample orients the sensor deg degrees about the X axis.
func curlSample(deg float64, ts int64) imu.Sample {
	half := deg * math.Pi / 360.0
	return imu.Sample{
		AccelZ:      gravity,
		QuatW:       math.Cos(half),
		QuatX:       math.Sin(half),
		TimestampMS: ts,
	}
}

func angleController() *Controller {
	return New(Config{Type: rom.TypeAngle, Tuning: rom.DefaultTuning()})
}

func strokeController() *Controller {
	return New(Config{Type: rom.TypeStroke, Tuning: rom.DefaultTuning()})
}

// feedCurl runs one angle rep 0→peak→0 through the controller, continuing
// from the given timestamp, and returns the next free timestamp.
func feedCurl(c *Controller, peak float64, ts int64) int64 {
	steps := []float64{0, 0.2, 0.5, 0.8, 1.0, 0.8, 0.5, 0.2, 0}
	for _, f := range steps {
		c.AddSample(curlSample(peak*f, ts))
		ts += 20
	}
	return ts
}

func TestFinishCalibrationRepTooFewSamples(t *testing.T) {
	c := angleController()
	c.StartCalibrationRep()
	require.True(t, c.IsCalibrationRep())

	ts := int64(0)
	for i := 0; i < 3; i++ {
		c.AddSample(curlSample(float64(i*10), ts))
		ts += 20
	}

	_, ok := c.FinishCalibrationRep()
	assert.False(t, ok, "3 samples must not score a rep")
	assert.False(t, c.IsCalibrationRep(), "calibration flag drops even on rejection")
	assert.Empty(t, c.Reps(), "rep history must be unchanged")
}

func TestCalibrationFlowAngle(t *testing.T) {
	c := angleController()

	c.StartCalibrationRep()
	ts := feedCurl(c, 90, 0)
	v1, ok := c.FinishCalibrationRep()
	require.True(t, ok)
	assert.InDelta(t, 90, v1, 1e-6)

	c.StartCalibrationRep()
	feedCurl(c, 100, ts)
	v2, ok := c.FinishCalibrationRep()
	require.True(t, ok)
	assert.InDelta(t, 100, v2, 1e-6)

	payload := c.SetTargetFromCalibration([]float64{v1, v2})
	assert.True(t, c.IsCalibrated())
	assert.InDelta(t, 95, c.TargetROM(), 1e-6)
	assert.Equal(t, rom.TypeAngle, payload.ROMType)
	assert.Equal(t, units.Degrees, payload.Unit)
	assert.Len(t, payload.RepROMs, 2)
}

func TestCompleteRepFulfillment(t *testing.T) {
	c := angleController()
	c.SetTargetFromCalibration([]float64{90})

	ts := feedCurl(c, 90, 0)
	rec, ok := c.CompleteRep()
	require.True(t, ok)
	assert.Equal(t, 1, rec.Index)
	assert.InDelta(t, 90, rec.Value, 1e-6)
	assert.InDelta(t, 100, rec.Fulfillment, 1e-6)
	assert.Equal(t, units.Degrees, rec.Unit)

	// Over-target rep caps at the fulfillment ceiling.
	feedCurl(c, 170, ts)
	rec, ok = c.CompleteRep()
	require.True(t, ok)
	assert.Equal(t, 2, rec.Index)
	assert.Equal(t, 150.0, rec.Fulfillment)
}

func TestCompleteRepInsufficientSamples(t *testing.T) {
	c := angleController()
	c.AddSample(curlSample(0, 0))
	c.AddSample(curlSample(45, 20))

	_, ok := c.CompleteRep()
	assert.False(t, ok)
	assert.Empty(t, c.Reps())
	assert.Equal(t, 2, c.RepBufferLen(), "rejected rep keeps its buffer for retry")
}

func TestEndToEndStroke(t *testing.T) {
	c := strokeController()

	// Rest hold: baseline capture per the calibration contract.
	hold := make([]imu.Sample, 15)
	for i := range hold {
		hold[i] = restSample(int64(i * 25))
	}
	require.True(t, c.SetBaselineFromSamples(hold))
	b := c.Baseline()
	require.NotNil(t, b)
	assert.InDelta(t, 9.81, b.Gravity, 1e-9)
	assert.True(t, b.GyroInRadians, "zero bias must detect rad/s")

	// Short rest for context, then a 1-second up-down stroke at 40 samples
	// with 2 m/s² peak acceleration.
	ts := int64(1000)
	for i := 0; i < 10; i++ {
		c.AddSample(restSample(ts))
		ts += 25
	}
	for i := 0; i < 40; i++ {
		var a float64
		switch {
		case i < 10:
			a = 2
		case i < 30:
			a = -2
		default:
			a = 2
		}
		c.AddSample(imu.Sample{AccelZ: gravity + a, QuatW: 1, TimestampMS: ts})
		ts += 25
	}
	for i := 0; i < 10; i++ {
		c.AddSample(restSample(ts))
		ts += 25
	}

	rec, ok := c.CompleteRep()
	require.True(t, ok)
	assert.Equal(t, rom.TypeStroke, rec.Type)
	assert.Equal(t, units.Centimeters, rec.Unit)
	assert.Greater(t, rec.Value, 0.0)
	assert.LessOrEqual(t, rec.Value, 300.0)
}

func TestStrokeRepCarriesPreRepContext(t *testing.T) {
	c := strokeController()
	ts := int64(0)
	for i := 0; i < 20; i++ {
		c.AddSample(restSample(ts))
		ts += 25
	}
	_, ok := c.CompleteRep()
	require.True(t, ok)

	// The pre-rep snapshot taken at the boundary must feed the next rep.
	assert.NotEmpty(t, c.savedPreRep)
}

func TestStatsAggregation(t *testing.T) {
	c := angleController()
	c.SetTargetFromCalibration([]float64{100})

	ts := feedCurl(c, 90, 0)
	_, ok := c.CompleteRep()
	require.True(t, ok)
	feedCurl(c, 110, ts)
	_, ok = c.CompleteRep()
	require.True(t, ok)

	s := c.Stats()
	assert.Equal(t, 2, s.RepCount)
	assert.InDelta(t, 100, s.AvgROM, 1e-6)
	assert.InDelta(t, 110, s.MaxROM, 1e-6)
	assert.InDelta(t, 100, s.TargetROM, 1e-6)
	// σ of {90,110} is ~14.14 → consistency ≈ 85.9, clamped to [0,100].
	assert.Greater(t, s.ConsistencyPercent, 80.0)
	assert.Less(t, s.ConsistencyPercent, 90.0)
}

func TestStatsEmpty(t *testing.T) {
	c := angleController()
	s := c.Stats()
	assert.Zero(t, s.RepCount)
	assert.Zero(t, s.AvgROM)
	assert.Zero(t, s.ConsistencyPercent)
}

func TestReanchorKeepsHistoryByDefault(t *testing.T) {
	c := angleController()
	feedCurl(c, 90, 0)
	_, ok := c.CompleteRep()
	require.True(t, ok)

	ts := int64(1000)
	for i := 0; i < 10; i++ {
		c.AddSample(restSample(ts))
		ts += 20
	}
	require.True(t, c.CalibrateBaseline())
	assert.Len(t, c.Reps(), 1, "re-anchor must not clear history unless configured")
}

func TestReanchorResetsHistoryWhenConfigured(t *testing.T) {
	c := New(Config{
		Type:                   rom.TypeAngle,
		Tuning:                 rom.DefaultTuning(),
		ResetHistoryOnReanchor: true,
	})
	feedCurl(c, 90, 0)
	_, ok := c.CompleteRep()
	require.True(t, ok)

	ts := int64(1000)
	for i := 0; i < 10; i++ {
		c.AddSample(restSample(ts))
		ts += 20
	}
	require.True(t, c.CalibrateBaseline())
	assert.Empty(t, c.Reps())
}

func TestReanchorTooFewSamples(t *testing.T) {
	c := angleController()
	c.AddSample(curlSample(0, 0))
	assert.False(t, c.CalibrateBaseline())
}

func TestResetTeardown(t *testing.T) {
	c := strokeController()
	hold := make([]imu.Sample, 15)
	for i := range hold {
		hold[i] = restSample(int64(i * 25))
	}
	require.True(t, c.SetBaselineFromSamples(hold))
	c.SetTargetFromCalibration([]float64{50})

	c.Reset()
	assert.Nil(t, c.Baseline())
	assert.False(t, c.IsCalibrated())
	assert.Zero(t, c.TargetROM())
	assert.Empty(t, c.Reps())
}

func TestRepRecordsImmutable(t *testing.T) {
	c := angleController()
	feedCurl(c, 90, 0)
	_, ok := c.CompleteRep()
	require.True(t, ok)

	got := c.Reps()
	got[0].Value = -1
	assert.InDelta(t, 90, c.Reps()[0].Value, 1e-6, "Reps must return a copy")
}

func TestConcurrentReadsDuringIngest(t *testing.T) {
	c := New(Config{Type: rom.TypeAngle, Tuning: rom.DefaultTuning()})

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			c.Live()
			c.Stats()
			c.Reps()
			c.RepBufferLen()
		}
	}()

	for i := 0; i < 500; i++ {
		c.AddSample(curlSample(float64(i%90), int64(i*20)))
		if i%100 == 99 {
			c.CompleteRep()
		}
	}
	close(done)
	wg.Wait()

	assert.Equal(t, 5, len(c.Reps()))
}

func TestCalibrationRepDoesNotDoubleCountContext(t *testing.T) {
	c := New(Config{Type: rom.TypeStroke, Tuning: rom.DefaultTuning()})

	hold := make([]imu.Sample, 10)
	ts := int64(0)
	for i := range hold {
		hold[i] = restSample(ts)
		ts += 25
	}
	require.True(t, c.SetBaselineFromSamples(hold))

	// A completed rep leaves a saved pre-rep snapshot behind.
	for i := 0; i < 6; i++ {
		c.AddSample(restSample(ts))
		ts += 25
	}
	_, ok := c.CompleteRep()
	require.True(t, ok)

	for i := 0; i < 4; i++ {
		c.AddSample(restSample(ts))
		ts += 25
	}
	c.StartCalibrationRep()
	seeded := c.RepBufferLen() // reseeded from the rolling window
	for i := 0; i < 8; i++ {
		c.AddSample(restSample(ts))
		ts += 25
	}
	_, ok = c.FinishCalibrationRep()
	require.True(t, ok)

	// The retro pass runs over the seeded buffer plus the samples fed
	// during the rep, and nothing else: the saved snapshot must not be
	// prepended a second time.
	res := c.LastCorrection()
	require.NotNil(t, res)
	assert.Equal(t, seeded+8, len(res.Position))
}
