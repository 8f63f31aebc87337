// Package wrcdata reads and writes .wrcdata capture files: raw IMU and GPS
// samples plus session metadata in a compact little-endian layout. Only
// raw, untransformed samples are persisted, so captures stay reprocessable
// after any pipeline parameter change.
//
// Three revisions exist, auto-detected from a 16-byte magic string:
//
//	V1  WRC_COACH_V1  64 B header   IMU[], GPS[]
//	V2  WRC_COACH_V2  128 B header  Calibration(64 B), IMU[], GPS[], CalibrationSamples[]
//	V3  WRC_COACH_V3  64 B header   IMU[], GPS[]  (axes PCA-detected at load)
//
// Decoders accept all three; encoders emit V2 when a calibration record
// must be embedded and V3 otherwise.
package wrcdata

import (
	"fmt"

	"github.com/wrccoach/stroke_computer/internal/boatframe"
	"github.com/wrccoach/stroke_computer/internal/calibration"
	"github.com/wrccoach/stroke_computer/internal/gps"
	"github.com/wrccoach/stroke_computer/internal/imu"
)

// Version tags a capture file revision.
type Version uint8

const (
	V1 Version = 1
	V2 Version = 2
	V3 Version = 3
)

func (v Version) String() string {
	return fmt.Sprintf("V%d", uint8(v))
}

// magic returns the 16-byte magic for the version, null-padded on the wire.
func (v Version) magic() string {
	switch v {
	case V1:
		return "WRC_COACH_V1"
	case V2:
		return "WRC_COACH_V2"
	default:
		return "WRC_COACH_V3"
	}
}

const (
	magicSize    = 16
	headerSizeV1 = 64
	headerSizeV2 = 128
	headerSizeV3 = 64

	imuRecordSize = 32
	gpsRecordSize = 36
	calRecordSize = 64
)

// Metadata is the per-capture session header. Catch and finish thresholds
// travel only in V1/V2 headers; V3 sessions run fully automatic.
type Metadata struct {
	FormatVersion    Version                    `json:"formatVersion"`
	SessionStartMs   float64                    `json:"sessionStartMs"`
	PhoneOrientation boatframe.PhoneOrientation `json:"phoneOrientation"`
	DemoMode         bool                       `json:"demoMode"`
	CatchThreshold   float32                    `json:"catchThreshold,omitempty"`
	FinishThreshold  float32                    `json:"finishThreshold,omitempty"`
}

// Capture is a fully decoded .wrcdata file.
type Capture struct {
	Meta               Metadata
	IMU                []imu.Sample
	GPS                []gps.Sample
	Calibration        *calibration.Record // nil when absent (V1, V3, or uncalibrated V2)
	CalibrationSamples []imu.Sample        // V2 only
}

// FormatError reports an unrecognized magic string or an impossible
// version/section combination. Fatal, no recovery, no partial decode.
type FormatError struct {
	Magic  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("wrcdata: %s", e.Reason)
	}
	return fmt.Sprintf("wrcdata: unrecognized format %q", e.Magic)
}

// TruncatedDataError reports a buffer shorter than its header-declared
// contents. Fatal, same treatment as FormatError.
type TruncatedDataError struct {
	Need int
	Have int
}

func (e *TruncatedDataError) Error() string {
	return fmt.Sprintf("wrcdata: truncated capture: need %d bytes, have %d", e.Need, e.Have)
}
