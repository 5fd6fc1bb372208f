// Package config loads optional JSON tuning overrides for the ROM engines.
// Every field is a pointer: fields omitted from the file keep the compiled-in
// defaults, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/liftlab-data/rom.engine/internal/rom"
)

// TuningConfig mirrors rom.Tuning plus the session-level knobs the engine
// deliberately exposes: the gyro-unit detection threshold is an empirical
// per-sensor constant, and whether re-anchoring the baseline mid-set clears
// the set's rep history is a product decision, not physics.
type TuningConfig struct {
	// Live stroke engine
	SmoothingPrevWeight *float64 `json:"smoothing_prev_weight,omitempty"`
	SmoothingCurWeight  *float64 `json:"smoothing_cur_weight,omitempty"`
	AccelDeadZone       *float64 `json:"accel_dead_zone,omitempty"`
	StillAccelThreshold *float64 `json:"still_accel_threshold,omitempty"`
	StillGyroThreshold  *float64 `json:"still_gyro_threshold,omitempty"`
	StillMinSamples     *int     `json:"still_min_samples,omitempty"`
	ZUPTDecay           *float64 `json:"zupt_decay,omitempty"`
	VelocitySnapEpsilon *float64 `json:"velocity_snap_epsilon,omitempty"`
	MaxVelocity         *float64 `json:"max_velocity,omitempty"`
	MaxDisplacement     *float64 `json:"max_displacement,omitempty"`

	// Retrospective pass
	MaxDT                *float64 `json:"max_dt,omitempty"`
	RetroAccelRest       *float64 `json:"retro_accel_rest,omitempty"`
	RetroGyroRest        *float64 `json:"retro_gyro_rest,omitempty"`
	RestSegmentMinLen    *int     `json:"rest_segment_min_len,omitempty"`
	BiasMinRestSamples   *int     `json:"bias_min_rest_samples,omitempty"`
	RetroAccelNoiseFloor *float64 `json:"retro_accel_noise_floor,omitempty"`

	// Rep bookkeeping
	MinRepSamples  *int     `json:"min_rep_samples,omitempty"`
	MaxAngleROM    *float64 `json:"max_angle_rom,omitempty"`
	MaxStrokeROM   *float64 `json:"max_stroke_rom,omitempty"`
	FulfillmentCap *float64 `json:"fulfillment_cap,omitempty"`
	PreRepWindow   *int     `json:"pre_rep_window,omitempty"`

	// Session-level
	GyroRadiansThreshold   *float64 `json:"gyro_radians_threshold,omitempty"`
	ResetHistoryOnReanchor *bool    `json:"reset_history_on_reanchor,omitempty"`
}

// Load reads a TuningConfig from a JSON file.
func Load(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects values that would disable the engine's safety bounds.
func (c *TuningConfig) Validate() error {
	check := func(name string, v *float64) error {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, *v)
		}
		return nil
	}
	for name, v := range map[string]*float64{
		"max_velocity":           c.MaxVelocity,
		"max_displacement":       c.MaxDisplacement,
		"max_dt":                 c.MaxDT,
		"max_angle_rom":          c.MaxAngleROM,
		"max_stroke_rom":         c.MaxStrokeROM,
		"fulfillment_cap":        c.FulfillmentCap,
		"gyro_radians_threshold": c.GyroRadiansThreshold,
	} {
		if err := check(name, v); err != nil {
			return err
		}
	}
	if c.SmoothingPrevWeight != nil && c.SmoothingCurWeight != nil {
		if sum := *c.SmoothingPrevWeight + *c.SmoothingCurWeight; sum < 0.99 || sum > 1.01 {
			return fmt.Errorf("smoothing weights must sum to 1, got %v", sum)
		}
	}
	return nil
}

// Apply overlays the non-nil fields onto t.
func (c *TuningConfig) Apply(t *rom.Tuning) {
	applyF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	applyI := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}

	applyF(&t.SmoothingPrevWeight, c.SmoothingPrevWeight)
	applyF(&t.SmoothingCurWeight, c.SmoothingCurWeight)
	applyF(&t.AccelDeadZone, c.AccelDeadZone)
	applyF(&t.StillAccelThreshold, c.StillAccelThreshold)
	applyF(&t.StillGyroThreshold, c.StillGyroThreshold)
	applyI(&t.StillMinSamples, c.StillMinSamples)
	applyF(&t.ZUPTDecay, c.ZUPTDecay)
	applyF(&t.VelocitySnapEpsilon, c.VelocitySnapEpsilon)
	applyF(&t.MaxVelocity, c.MaxVelocity)
	applyF(&t.MaxDisplacement, c.MaxDisplacement)

	applyF(&t.MaxDT, c.MaxDT)
	applyF(&t.RetroAccelRest, c.RetroAccelRest)
	applyF(&t.RetroGyroRest, c.RetroGyroRest)
	applyI(&t.RestSegmentMinLen, c.RestSegmentMinLen)
	applyI(&t.BiasMinRestSamples, c.BiasMinRestSamples)
	applyF(&t.RetroAccelNoiseFloor, c.RetroAccelNoiseFloor)

	applyI(&t.MinRepSamples, c.MinRepSamples)
	applyF(&t.MaxAngleROM, c.MaxAngleROM)
	applyF(&t.MaxStrokeROM, c.MaxStrokeROM)
	applyF(&t.FulfillmentCap, c.FulfillmentCap)
	applyI(&t.PreRepWindow, c.PreRepWindow)
}
