// Package sim generates synthetic IMU and GPS streams from declarative
// scenario files, for demo mode and for exercising the pipeline without a
// boat.
package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Phase is one steady segment of a scenario: a stroke rate, a surge
// amplitude and a boat speed held for a duration.
type Phase struct {
	DurationSec    float64 `yaml:"duration_sec"`
	StrokeRateSPM  float64 `yaml:"stroke_rate_spm"`
	SurgeAmplitude float64 `yaml:"surge_amplitude"` // m/s²
	BoatSpeed      float64 `yaml:"boat_speed"`      // m/s
}

// Scenario is a full synthetic outing.
type Scenario struct {
	Name         string  `yaml:"name"`
	SampleRateHz float64 `yaml:"sample_rate_hz"`
	// AccelNoise is the standard deviation of the accelerometer noise, m/s².
	AccelNoise float64 `yaml:"accel_noise"`
	// GyroNoise is the standard deviation of the gyro noise, deg/s.
	GyroNoise float64 `yaml:"gyro_noise"`
	// MountPitchDeg tilts the simulated phone in its mount.
	MountPitchDeg float64 `yaml:"mount_pitch_deg"`
	StartLat      float64 `yaml:"start_lat"`
	StartLon      float64 `yaml:"start_lon"`
	HeadingDeg    float64 `yaml:"heading_deg"`
	Phases        []Phase `yaml:"phases"`
}

// DurationSec is the total scenario length.
func (s Scenario) DurationSec() float64 {
	var total float64
	for _, p := range s.Phases {
		total += p.DurationSec
	}
	return total
}

// phaseAt returns the phase active at elapsed time t (seconds) and whether
// the scenario is still running.
func (s Scenario) phaseAt(t float64) (Phase, bool) {
	for _, p := range s.Phases {
		if t < p.DurationSec {
			return p, true
		}
		t -= p.DurationSec
	}
	return Phase{}, false
}

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario file: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario file: %w", err)
	}
	if err := sc.validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

func (s Scenario) validate() error {
	if s.SampleRateHz < 20 || s.SampleRateHz > 100 {
		return fmt.Errorf("scenario %q: sample_rate_hz must be 20-100, got %g", s.Name, s.SampleRateHz)
	}
	if len(s.Phases) == 0 {
		return fmt.Errorf("scenario %q: at least one phase required", s.Name)
	}
	for i, p := range s.Phases {
		if p.DurationSec <= 0 {
			return fmt.Errorf("scenario %q: phase %d duration must be positive", s.Name, i)
		}
		if p.StrokeRateSPM < 0 || p.StrokeRateSPM > 72 {
			return fmt.Errorf("scenario %q: phase %d stroke rate %g out of range", s.Name, i, p.StrokeRateSPM)
		}
	}
	return nil
}

// DefaultScenario is the built-in demo outing: warm up at 20 SPM, settle
// into a 26 SPM steady state, then a short sprint.
func DefaultScenario() Scenario {
	return Scenario{
		Name:         "demo",
		SampleRateHz: 50,
		AccelNoise:   0.15,
		GyroNoise:    0.5,
		StartLat:     52.3675,
		StartLon:     4.9041,
		HeadingDeg:   90,
		Phases: []Phase{
			{DurationSec: 30, StrokeRateSPM: 20, SurgeAmplitude: 1.6, BoatSpeed: 3.2},
			{DurationSec: 120, StrokeRateSPM: 26, SurgeAmplitude: 2.2, BoatSpeed: 4.1},
			{DurationSec: 30, StrokeRateSPM: 34, SurgeAmplitude: 2.8, BoatSpeed: 4.8},
		},
	}
}
