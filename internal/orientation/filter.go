package orientation

import (
	"math"

	"github.com/wrccoach/stroke_computer/internal/imu"
)

// DefaultAlpha weights gyro integration against the accelerometer tilt
// estimate: high enough to trust the gyro over a stroke, low enough that
// gravity pulls pitch/roll back over a few seconds.
const DefaultAlpha = 0.98

// maxDt caps the integration step across stream gaps, seconds.
const maxDt = 0.5

// ComplementaryFilter fuses gyro rates with accelerometer tilt into a
// running pitch/roll estimate. Yaw is gyro integration only — with no
// magnetometer it drifts without bound over a session, which is accepted
// behavior, not a defect.
//
// Not safe for concurrent use; one filter per session, samples in
// non-decreasing timestamp order.
type ComplementaryFilter struct {
	alpha       float64
	pose        Pose
	lastT       float64 // ms
	initialized bool
}

// NewComplementaryFilter returns a filter with blend factor alpha in (0,1).
// Out-of-range alpha falls back to DefaultAlpha.
func NewComplementaryFilter(alpha float64) *ComplementaryFilter {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	return &ComplementaryFilter{alpha: alpha}
}

// Update advances the estimate by one IMU sample and returns the new pose.
// The first sample, samples with non-positive Δt, and NaN readings skip the
// gyro integration step rather than corrupting the state; Update never fails.
func (f *ComplementaryFilter) Update(s imu.Sample) Pose {
	ax, ay, az := float64(s.Ax), float64(s.Ay), float64(s.Az)
	gx, gy, gz := float64(s.Gx), float64(s.Gy), float64(s.Gz)

	if anyNaN(ax, ay, az, gx, gy, gz) {
		// The clock still advanced; track it so the Δt guard below sees
		// a sample older than this one as non-monotonic.
		if f.initialized && !math.IsNaN(s.T) && s.T > f.lastT {
			f.lastT = s.T
		}
		return f.pose
	}

	accel := PoseFromAccel(ax, ay, az)

	if !f.initialized {
		f.pose = accel
		f.lastT = s.T
		f.initialized = true
		return f.pose
	}

	dt := (s.T - f.lastT) / 1000.0
	f.lastT = s.T
	if dt <= 0 {
		// First sample after a clock hiccup: hold the estimate.
		return f.pose
	}
	if dt > maxDt {
		dt = maxDt
	}

	// Gyro axes pair with the tilt formulas above: gx drives pitch,
	// gy drives roll, gz drives yaw.
	a := f.alpha
	f.pose.Pitch = a*(f.pose.Pitch+gx*dt) + (1-a)*accel.Pitch
	f.pose.Roll = a*(f.pose.Roll+gy*dt) + (1-a)*accel.Roll
	f.pose.Yaw += gz * dt

	return f.pose
}

// Pose returns the current estimate without advancing the filter.
func (f *ComplementaryFilter) Pose() Pose {
	return f.pose
}

// Reset clears the filter for a new session.
func (f *ComplementaryFilter) Reset() {
	f.pose = Pose{}
	f.lastT = 0
	f.initialized = false
}

func anyNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
