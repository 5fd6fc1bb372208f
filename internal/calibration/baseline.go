// Package calibration turns a buffer of rest-hold samples into the averaged
// orientation and sensor characteristics the live engines depend on: gravity
// magnitude, gyro bias, and the sensor's angular-rate unit.
package calibration

import (
	"math"

	"github.com/liftlab-data/rom.engine/internal/imu"
	"github.com/liftlab-data/rom.engine/internal/monitoring"
	"github.com/liftlab-data/rom.engine/internal/quat"
	"github.com/liftlab-data/rom.engine/internal/units"
)

const (
	// MinSamples is the minimum rest-hold buffer length accepted by
	// FromSamples. Shorter buffers produce no baseline.
	MinSamples = 5

	// DefaultGyroRadiansThreshold separates rad/s sensors from deg/s
	// sensors by the summed magnitude of the rest-hold gyro bias. A sensor
	// reporting deg/s shows noise an order of magnitude above this at rest.
	// Empirically tuned per sensor module, hence configurable.
	DefaultGyroRadiansThreshold = 0.3
)

// Baseline is the averaged rest-hold state captured at calibration time.
// It stays fixed until an explicit recalibration.
type Baseline struct {
	Orientation quat.Quat  // hemisphere-corrected average, renormalized
	Euler       quat.Euler // averaged roll/pitch/yaw, degrees

	GravityX float64
	GravityY float64
	GravityZ float64
	Gravity  float64 // norm of the averaged accel vector

	GyroBiasX float64
	GyroBiasY float64
	GyroBiasZ float64

	// GyroInRadians is true when the sensor's angular rates are already
	// rad/s; false means deg/s and a units.DegToRad conversion applies downstream.
	GyroInRadians bool
}

// GyroToRadians converts a native-unit angular rate magnitude to rad/s
// according to the detected unit.
func (b *Baseline) GyroToRadians(native float64) float64 {
	if b.GyroInRadians {
		return native
	}
	return units.DegToRad(native)
}

// FromSamples averages a rest-hold buffer into a Baseline. It returns
// (nil, false) when fewer than MinSamples are supplied; the caller keeps any
// previous baseline and retries. gyroRadiansThreshold <= 0 selects the
// default.
func FromSamples(samples []imu.Sample, gyroRadiansThreshold float64) (*Baseline, bool) {
	if len(samples) < MinSamples {
		monitoring.Logf("calibration: rejected rest-hold buffer of %d samples (need %d)", len(samples), MinSamples)
		return nil, false
	}
	if gyroRadiansThreshold <= 0 {
		gyroRadiansThreshold = DefaultGyroRadiansThreshold
	}

	// Hemisphere correction: q and -q encode the same rotation, and a naive
	// arithmetic mean of mixed representations cancels toward zero. Align
	// every sample with the first before averaging.
	ref := samples[0].Quat()
	var qw, qx, qy, qz float64
	var roll, pitch, yaw float64
	var ax, ay, az float64
	var gx, gy, gz float64
	for _, s := range samples {
		q := s.Quat()
		if quat.Dot(ref, q) < 0 {
			q = quat.Quat{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
		}
		qw += q.W
		qx += q.X
		qy += q.Y
		qz += q.Z

		roll += s.Roll
		pitch += s.Pitch
		yaw += s.Yaw

		ax += s.AccelX
		ay += s.AccelY
		az += s.AccelZ

		gx += s.GyroX
		gy += s.GyroY
		gz += s.GyroZ
	}

	n := float64(len(samples))
	b := &Baseline{
		Orientation: quat.Quat{W: qw / n, X: qx / n, Y: qy / n, Z: qz / n}.Normalized(),
		Euler:       quat.Euler{Roll: roll / n, Pitch: pitch / n, Yaw: yaw / n},
		GravityX:    ax / n,
		GravityY:    ay / n,
		GravityZ:    az / n,
		GyroBiasX:   gx / n,
		GyroBiasY:   gy / n,
		GyroBiasZ:   gz / n,
	}
	b.Gravity = math.Sqrt(b.GravityX*b.GravityX + b.GravityY*b.GravityY + b.GravityZ*b.GravityZ)

	// At rest the true angular rate is zero, so the bias magnitude exposes
	// the unit: rad/s noise sums well under the threshold, deg/s well over.
	biasSum := math.Abs(b.GyroBiasX) + math.Abs(b.GyroBiasY) + math.Abs(b.GyroBiasZ)
	b.GyroInRadians = biasSum < gyroRadiansThreshold

	monitoring.Logf("calibration: baseline from %d samples, gravity=%.3f m/s², gyro unit=%s",
		len(samples), b.Gravity, map[bool]string{true: "rad/s", false: "deg/s"}[b.GyroInRadians])
	return b, true
}
