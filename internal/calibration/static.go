package calibration

import (
	"errors"
	"math"

	"github.com/wrccoach/stroke_computer/internal/imu"
)

// MinStaticSamples is the number of at-rest samples a static calibration
// wants before it is considered trustworthy (~3-5 s at typical rates).
const MinStaticSamples = 150

// Plausible gravity magnitude band, m/s². Outside it the device was moving
// or the accelerometer is mis-scaled; the record is degraded, not rejected.
const (
	gravityMin = 7.8
	gravityMax = 11.8
)

// Static averages accelerometer samples taken while the boat is held still
// and derives the mounting tilt from the direction of gravity.
type Static struct {
	samples []imu.Sample
}

// NewStatic returns an empty static calibration accumulator.
func NewStatic() *Static {
	return &Static{}
}

func (s *Static) Reset() {
	s.samples = s.samples[:0]
}

func (s *Static) Add(sample imu.Sample) {
	if math.IsNaN(float64(sample.Ax)) || math.IsNaN(float64(sample.Ay)) || math.IsNaN(float64(sample.Az)) {
		return
	}
	s.samples = append(s.samples, sample)
}

// SampleCount reports how many samples have been buffered so far.
func (s *Static) SampleCount() int {
	return len(s.samples)
}

// Complete averages the buffered samples into a Record.
//
//	pitchOffset = -atan2(ay, sqrt(ax²+az²))
//	rollOffset  = -atan2(ax, sqrt(ay²+az²))
//
// The offsets are the negated tilt angles, so applying them cancels the
// mounting tilt. Too few samples or an implausible gravity magnitude mark
// the record degraded; both are quality signals, not failures.
func (s *Static) Complete() (Record, error) {
	n := len(s.samples)
	if n == 0 {
		return Record{}, errors.New("static calibration: no samples")
	}

	var sumX, sumY, sumZ float64
	for _, sm := range s.samples {
		sumX += float64(sm.Ax)
		sumY += float64(sm.Ay)
		sumZ += float64(sm.Az)
	}
	fn := float64(n)
	meanX, meanY, meanZ := sumX/fn, sumY/fn, sumZ/fn

	var varX, varY, varZ float64
	for _, sm := range s.samples {
		dx := float64(sm.Ax) - meanX
		dy := float64(sm.Ay) - meanY
		dz := float64(sm.Az) - meanZ
		varX += dx * dx
		varY += dy * dy
		varZ += dz * dz
	}
	varX /= fn
	varY /= fn
	varZ /= fn

	gravity := math.Sqrt(meanX*meanX + meanY*meanY + meanZ*meanZ)
	variance := math.Sqrt(varX + varY + varZ)

	rec := Record{
		PitchOffset:      -math.Atan2(meanY, math.Sqrt(meanX*meanX+meanZ*meanZ)) * 180.0 / math.Pi,
		RollOffset:       -math.Atan2(meanX, math.Sqrt(meanY*meanY+meanZ*meanZ)) * 180.0 / math.Pi,
		GravityMagnitude: gravity,
		SampleCount:      n,
		VarianceQuality:  variance,
		CreatedAt:        s.samples[n-1].T,
		Quality:          GradeFromVariance(variance),
		Method:           "static",
		GravityVector:    [3]float64{meanX, meanY, meanZ},
	}

	if n < MinStaticSamples || gravity < gravityMin || gravity > gravityMax {
		rec.Degraded = true
	}

	return rec, nil
}
