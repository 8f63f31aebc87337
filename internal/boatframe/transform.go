package boatframe

import (
	"math"

	"github.com/wrccoach/stroke_computer/internal/calibration"
	"github.com/wrccoach/stroke_computer/internal/imu"
	"github.com/wrccoach/stroke_computer/internal/orientation"
)

// PhoneOrientation says which way the device screen faces in the boat.
type PhoneOrientation uint8

const (
	// Rower: screen toward the stern; the rower accelerates sternward
	// during the drive, so surge and sway flip sign.
	Rower PhoneOrientation = 0
	// Coxswain: screen toward the bow.
	Coxswain PhoneOrientation = 1
)

func (p PhoneOrientation) String() string {
	if p == Coxswain {
		return "coxswain"
	}
	return "rower"
}

// ParsePhoneOrientation maps the wire/config spelling to the enum.
// Unknown strings default to rower, the common mounting.
func ParsePhoneOrientation(s string) PhoneOrientation {
	if s == "coxswain" {
		return Coxswain
	}
	return Rower
}

// Acceleration is one sample mapped into the boat frame, m/s².
// Surge is bow(+)/stern(−), sway starboard(+)/port(−), heave up(+)/down(−).
type Acceleration struct {
	Surge float64 `json:"surge"`
	Sway  float64 `json:"sway"`
	Heave float64 `json:"heave"`
}

// FromOrientation removes gravity using the current orientation estimate,
// then expresses the residual in the boat frame by undoing the mounting
// tilt the calibration measured. Pure and stateless: same inputs, same
// output.
func FromOrientation(s imu.Sample, pose orientation.Pose, cal calibration.Record, phone PhoneOrientation) Acceleration {
	g := cal.GravityMagnitude
	if g <= 0 {
		g = 9.81
	}

	pitch := pose.Pitch * math.Pi / 180
	roll := pose.Roll * math.Pi / 180

	// Gravity reaction in the device frame at the current attitude;
	// subtracting it leaves linear acceleration.
	gx := g * math.Sin(roll)
	gy := g * math.Sin(pitch)
	gz := g * math.Cos(pitch) * math.Cos(roll)

	lx := float64(s.Ax) - gx
	ly := float64(s.Ay) - gy
	lz := float64(s.Az) - gz

	// Rotate the residual through the mounting tilt. Offsets are the
	// negated mounting angles, so negate them back. Device long axis lies
	// along the boat: Y → surge, X → sway, Z → heave.
	mp := -cal.PitchOffset * math.Pi / 180
	mr := -cal.RollOffset * math.Pi / 180

	sign := 1.0
	if phone == Rower {
		sign = -1.0
	}
	return Acceleration{
		Surge: sign * (ly*math.Cos(mp) - lz*math.Sin(mp)),
		Sway:  sign * (lx*math.Cos(mr) - lz*math.Sin(mr)),
		Heave: ly*math.Sin(mp) + lx*math.Sin(mr) + lz*math.Cos(mp)*math.Cos(mr),
	}
}

// FromAxes maps a sample through PCA-detected axes: gravity vector estimate
// subtracted, then projected onto the bow-stern / lateral / vertical unit
// vectors. Used when the calibration record carries detected axes.
func FromAxes(s imu.Sample, cal calibration.Record, phone PhoneOrientation) Acceleration {
	if cal.Axes == nil {
		return Acceleration{}
	}
	lx := float64(s.Ax) - cal.GravityVector[0]
	ly := float64(s.Ay) - cal.GravityVector[1]
	lz := float64(s.Az) - cal.GravityVector[2]

	ax := *cal.Axes
	sign := 1.0
	if phone == Rower {
		sign = -1.0
	}
	return Acceleration{
		Surge: sign * (lx*ax[0][0] + ly*ax[0][1] + lz*ax[0][2]),
		Sway:  sign * (lx*ax[1][0] + ly*ax[1][1] + lz*ax[1][2]),
		Heave: lx*ax[2][0] + ly*ax[2][1] + lz*ax[2][2],
	}
}

// Transform picks the axes path when the record carries detected axes and
// the orientation path otherwise, so callers stay agnostic to which
// calibration strategy ran.
func Transform(s imu.Sample, pose orientation.Pose, cal calibration.Record, phone PhoneOrientation) Acceleration {
	if cal.Axes != nil {
		return FromAxes(s, cal, phone)
	}
	return FromOrientation(s, pose, cal, phone)
}
