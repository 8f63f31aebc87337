package orientation

import (
	"math"
)

// Pose is the canonical representation of device orientation, degrees.
type Pose struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

// PoseFromAccel computes pitch and roll from a single accelerometer
// reading. Device frame: X across the screen, Y along the long axis,
// Z out of the screen; at rest the accelerometer reads +g on Z.
//
// Tilt formulas, matching the static calibration convention:
//
//	pitch = atan2(ay, sqrt(ax² + az²))
//	roll  = atan2(ax, sqrt(ay² + az²))
//
// Yaw cannot be derived from gravity and is returned as 0.
func PoseFromAccel(ax, ay, az float64) Pose {
	pitchRad := math.Atan2(ay, math.Sqrt(ax*ax+az*az))
	rollRad := math.Atan2(ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Pitch: pitchRad * 180.0 / math.Pi,
		Roll:  rollRad * 180.0 / math.Pi,
		Yaw:   0,
	}
}
