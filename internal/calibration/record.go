package calibration

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/wrccoach/stroke_computer/internal/imu"
)

// Grade buckets the variance quality metric of a calibration.
type Grade string

const (
	GradeExcellent Grade = "excellent"
	GradeGood      Grade = "good"
	GradeFair      Grade = "fair"
	GradePoor      Grade = "poor"
)

// GradeFromVariance maps the combined standard deviation of the at-rest
// accelerometer samples to a quality grade.
func GradeFromVariance(v float64) Grade {
	switch {
	case v < 0.05:
		return GradeExcellent
	case v < 0.10:
		return GradeGood
	case v < 0.20:
		return GradeFair
	default:
		return GradePoor
	}
}

// Record is the output of a calibration run, consumed by the boat-frame
// transform for the rest of the session. Exactly one record is active per
// session. Angular offsets are degrees, gravity is m/s², CreatedAt is the
// session-clock timestamp in ms.
//
// Axes and GravityVector are only populated by the PCA strategy; they are
// derived at load/run time and never persisted in capture files.
type Record struct {
	PitchOffset      float64 `json:"pitchOffset"`
	RollOffset       float64 `json:"rollOffset"`
	YawOffset        float64 `json:"yawOffset"`
	LateralOffset    float64 `json:"lateralOffset"`
	GravityMagnitude float64 `json:"gravityMagnitude"`
	SampleCount      int     `json:"sampleCount"`
	VarianceQuality  float64 `json:"varianceQuality"`
	CreatedAt        float64 `json:"createdAt"`

	Quality  Grade  `json:"quality"`
	Degraded bool   `json:"degraded"`
	Method   string `json:"method"` // "static" or "pca"

	// PCA results, device-frame unit vectors: Axes[0] bow-stern,
	// Axes[1] port-starboard, Axes[2] vertical.
	Axes          *[3][3]float64 `json:"-"`
	GravityVector [3]float64     `json:"-"`
	Confidence    float64        `json:"confidence,omitempty"`
}

// Strategy is one interchangeable way of producing a calibration Record.
// The transform stays agnostic to which strategy produced its input.
type Strategy interface {
	// Reset discards any buffered samples.
	Reset()
	// Add buffers one raw IMU sample.
	Add(s imu.Sample)
	// Complete computes the Record from the buffered samples. It fails
	// only when no record can be produced at all; insufficient or noisy
	// data yields a degraded record instead.
	Complete() (Record, error)
}

// Save writes the record as JSON, for audit and reprocessing.
func (r Record) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal calibration: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write calibration file: %w", err)
	}
	return nil
}

// LoadRecord reads a record previously written by Save.
func LoadRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("read calibration file: %w", err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("parse calibration file: %w", err)
	}
	return r, nil
}
