package imu

import "math"

// DefaultPreRepWindow is the number of trailing samples retained across rep
// boundaries so the retrospective pass sees rest context before motion onset.
const DefaultPreRepWindow = 30

// RingBuffer is a fixed-capacity rolling window of samples. Once full, each
// append evicts the oldest sample. Not safe for concurrent use; the engine is
// single-threaded by contract.
type RingBuffer struct {
	buf   []Sample
	head  int
	count int
}

// NewRingBuffer returns a ring buffer holding up to capacity samples.
// A non-positive capacity falls back to DefaultPreRepWindow.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultPreRepWindow
	}
	return &RingBuffer{buf: make([]Sample, capacity)}
}

// Append adds a sample, evicting the oldest if the window is full.
func (r *RingBuffer) Append(s Sample) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = s
		r.count++
		return
	}
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
}

// Len returns the number of buffered samples.
func (r *RingBuffer) Len() int {
	return r.count
}

// Snapshot returns the buffered samples oldest-first as a fresh slice.
func (r *RingBuffer) Snapshot() []Sample {
	out := make([]Sample, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Reset empties the window without releasing its storage.
func (r *RingBuffer) Reset() {
	r.head = 0
	r.count = 0
}

func norm3(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}
