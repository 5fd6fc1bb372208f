package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		unit string
		want bool
	}{
		{Degrees, true},
		{Centimeters, true},
		{"deg", true},
		{"cm", true},
		{"", false},
		{"rad", false},
		{"DEG", false},
		{"meters", false},
	}

	for _, tt := range tests {
		if got := IsValid(tt.unit); got != tt.want {
			t.Errorf("IsValid(%q) = %v, want %v", tt.unit, got, tt.want)
		}
	}
}

func TestDegRadRoundTrip(t *testing.T) {
	for _, deg := range []float64{0, 45, 90, 180, 360, -30} {
		got := RadToDeg(DegToRad(deg))
		if math.Abs(got-deg) > 1e-12 {
			t.Errorf("round trip of %v deg gave %v", deg, got)
		}
	}
	if math.Abs(DegToRad(180)-math.Pi) > 1e-15 {
		t.Errorf("DegToRad(180) = %v, want pi", DegToRad(180))
	}
}

func TestMetersToCentimeters(t *testing.T) {
	if got := MetersToCentimeters(0.1); math.Abs(got-10) > 1e-12 {
		t.Errorf("MetersToCentimeters(0.1) = %v, want 10", got)
	}
	if got := MetersToCentimeters(-2); math.Abs(got+200) > 1e-12 {
		t.Errorf("MetersToCentimeters(-2) = %v, want -200", got)
	}
}
