// Package fusion blends low-rate noisy GPS speed with high-rate integrated
// IMU acceleration into one boat velocity estimate.
package fusion

import "math"

// Noise constants for the scalar filter. GPS speed is trusted less per
// reading than the short-horizon IMU integral, but it does not drift.
const (
	ProcessNoise  = 0.01
	GPSMeasNoise  = 0.5
	IMUMeasNoise  = 0.1
	initialCovar  = 1.0
	maxPredictSec = 1.0
)

// VelocityKalman is a one-dimensional Kalman filter whose state is boat
// speed in m/s. Predict integrates surge acceleration between corrections;
// UpdateGPS and UpdateIMU apply scalar corrections with their own
// measurement noise. No failure modes for the expected 0-10 m/s range.
//
// Single writer per session, like every other filter in the pipeline.
type VelocityKalman struct {
	v float64 // state: speed, m/s
	p float64 // state covariance
}

// NewVelocityKalman returns a filter at rest with wide-open covariance.
func NewVelocityKalman() *VelocityKalman {
	return &VelocityKalman{p: initialCovar}
}

// Predict advances the state by v += a·dt and grows the covariance by the
// process noise. NaN or non-positive dt skips the step; dt is capped so a
// stream gap cannot fling the estimate.
func (k *VelocityKalman) Predict(accel, dtSec float64) {
	if math.IsNaN(accel) || math.IsNaN(dtSec) || dtSec <= 0 {
		return
	}
	if dtSec > maxPredictSec {
		dtSec = maxPredictSec
	}
	k.v += accel * dtSec
	k.p += ProcessNoise
}

// UpdateGPS corrects the state with a GPS speed-over-ground reading.
func (k *VelocityKalman) UpdateGPS(speed float64) {
	k.update(speed, GPSMeasNoise)
}

// UpdateIMU corrects the state with a speed derived from IMU integration.
func (k *VelocityKalman) UpdateIMU(speed float64) {
	k.update(speed, IMUMeasNoise)
}

func (k *VelocityKalman) update(speed, r float64) {
	if math.IsNaN(speed) {
		return
	}
	gain := k.p / (k.p + r)
	k.v += gain * (speed - k.v)
	k.p *= 1 - gain
}

// Velocity returns the current fused estimate, m/s.
func (k *VelocityKalman) Velocity() float64 {
	return k.v
}

// Covariance exposes the current uncertainty, mostly for diagnostics.
func (k *VelocityKalman) Covariance() float64 {
	return k.p
}

// Reset zeroes the state for a new session.
func (k *VelocityKalman) Reset() {
	k.v = 0
	k.p = initialCovar
}

// SplitPer500m converts a velocity into the rower's split time: seconds to
// cover 500 m at the current speed. Returns 0 when effectively stationary.
func SplitPer500m(v float64) float64 {
	if v < 0.1 {
		return 0
	}
	return 500 / v
}
