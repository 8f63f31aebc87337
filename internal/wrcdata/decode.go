package wrcdata

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/wrccoach/stroke_computer/internal/boatframe"
	"github.com/wrccoach/stroke_computer/internal/calibration"
	"github.com/wrccoach/stroke_computer/internal/gps"
	"github.com/wrccoach/stroke_computer/internal/imu"
)

// Decode parses any supported .wrcdata revision. Unrecognized magic is a
// FormatError; declared counts exceeding the buffer are a
// TruncatedDataError. There is no partial or best-effort decode.
func Decode(data []byte) (Capture, error) {
	if len(data) < magicSize {
		return Capture{}, &TruncatedDataError{Need: magicSize, Have: len(data)}
	}
	magic := strings.TrimRight(string(data[:magicSize]), "\x00")

	var version Version
	switch {
	case strings.HasPrefix(magic, "WRC_COACH_V3"):
		version = V3
	case strings.HasPrefix(magic, "WRC_COACH_V2"):
		version = V2
	case strings.HasPrefix(magic, "WRC_COACH_V1"):
		version = V1
	default:
		return Capture{}, &FormatError{Magic: magic}
	}

	hsize := headerSize(version)
	if len(data) < hsize {
		return Capture{}, &TruncatedDataError{Need: hsize, Have: len(data)}
	}

	r := reader{buf: data, off: magicSize}
	imuCount := int(r.u32())
	gpsCount := int(r.u32())

	calCount := 0
	hasCal := false
	if version == V2 {
		calCount = int(r.u32())
		hasCal = r.u8() == 1
	}

	meta := Metadata{FormatVersion: version}
	meta.SessionStartMs = r.f64()
	meta.PhoneOrientation = boatframe.PhoneOrientation(r.u8())
	meta.DemoMode = r.u8() == 1
	if version != V3 {
		meta.CatchThreshold = r.f32()
		meta.FinishThreshold = r.f32()
	}
	r.off = hsize

	// Everything after the header has a size known up front; check once.
	need := hsize + imuCount*imuRecordSize + gpsCount*gpsRecordSize
	if version == V2 {
		if hasCal {
			need += calRecordSize
		}
		need += calCount * imuRecordSize
	}
	if len(data) < need {
		return Capture{}, &TruncatedDataError{Need: need, Have: len(data)}
	}

	c := Capture{Meta: meta}

	if version == V2 && hasCal {
		c.Calibration = readCalibration(&r)
	}

	c.IMU = make([]imu.Sample, imuCount)
	for i := range c.IMU {
		c.IMU[i] = readIMU(&r)
	}

	c.GPS = make([]gps.Sample, gpsCount)
	for i := range c.GPS {
		c.GPS[i] = readGPS(&r)
	}

	if version == V2 && calCount > 0 {
		c.CalibrationSamples = make([]imu.Sample, calCount)
		for i := range c.CalibrationSamples {
			c.CalibrationSamples[i] = readIMU(&r)
		}
	}

	return c, nil
}

func readCalibration(r *reader) *calibration.Record {
	start := r.off
	rec := calibration.Record{
		PitchOffset:      float64(r.f32()),
		RollOffset:       float64(r.f32()),
		YawOffset:        float64(r.f32()),
		LateralOffset:    float64(r.f32()),
		GravityMagnitude: float64(r.f32()),
		SampleCount:      int(r.u32()),
		VarianceQuality:  float64(r.f32()),
		CreatedAt:        r.f64(),
		Method:           "static",
	}
	rec.Quality = calibration.GradeFromVariance(rec.VarianceQuality)
	r.off = start + calRecordSize
	return &rec
}

func readIMU(r *reader) imu.Sample {
	return imu.Sample{
		T:  r.f64(),
		Ax: r.f32(),
		Ay: r.f32(),
		Az: r.f32(),
		Gx: r.f32(),
		Gy: r.f32(),
		Gz: r.f32(),
	}
}

func readGPS(r *reader) gps.Sample {
	return gps.Sample{
		T:        r.f64(),
		Lat:      r.f64(),
		Lon:      r.f64(),
		Speed:    r.f32(),
		Heading:  r.f32(),
		Accuracy: r.f32(),
	}
}

// reader is the little-endian cursor mirroring writer. Bounds are checked
// once per section before reading, never per field.
type reader struct {
	buf []byte
	off int
}

func (r *reader) u8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) f32() float32 {
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return v
}

func (r *reader) f64() float64 {
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.buf[r.off:]))
	r.off += 8
	return v
}
