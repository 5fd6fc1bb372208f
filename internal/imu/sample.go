// Package imu defines the inbound sensor sample record and the rolling
// sample window the engines consume. Transport decoding (BLE, serial
// framing) happens upstream; by the time a Sample reaches this package its
// fields are already parsed.
package imu

import "github.com/liftlab-data/rom.engine/internal/quat"

// Sample is one IMU notification: raw acceleration in m/s², angular rate in
// the sensor's native unit (unknown until calibration detects it), the fused
// orientation quaternion, and an optional Euler triple in degrees.
// TimestampMS increases monotonically within a stream.
type Sample struct {
	AccelX float64 `json:"accelX"`
	AccelY float64 `json:"accelY"`
	AccelZ float64 `json:"accelZ"`

	GyroX float64 `json:"gyroX"`
	GyroY float64 `json:"gyroY"`
	GyroZ float64 `json:"gyroZ"`

	QuatW float64 `json:"quatW"`
	QuatX float64 `json:"quatX"`
	QuatY float64 `json:"quatY"`
	QuatZ float64 `json:"quatZ"`

	Roll  float64 `json:"roll,omitempty"`
	Pitch float64 `json:"pitch,omitempty"`
	Yaw   float64 `json:"yaw,omitempty"`

	TimestampMS int64 `json:"timestamp_ms"`
}

// Quat returns the sample's orientation as a quaternion value.
func (s Sample) Quat() quat.Quat {
	return quat.Quat{W: s.QuatW, X: s.QuatX, Y: s.QuatY, Z: s.QuatZ}
}

// AccelMagnitude returns the norm of the raw acceleration vector.
func (s Sample) AccelMagnitude() float64 {
	return norm3(s.AccelX, s.AccelY, s.AccelZ)
}

// GyroMagnitude returns the norm of the raw angular-rate vector in the
// sensor's native unit.
func (s Sample) GyroMagnitude() float64 {
	return norm3(s.GyroX, s.GyroY, s.GyroZ)
}
