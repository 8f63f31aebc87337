package wrcdata

import (
	"encoding/binary"
	"math"

	"github.com/wrccoach/stroke_computer/internal/calibration"
	"github.com/wrccoach/stroke_computer/internal/gps"
	"github.com/wrccoach/stroke_computer/internal/imu"
)

// Encode serializes a capture into one contiguous buffer sized up front
// from the known sample counts. With FormatVersion unset it emits V2 when
// a calibration record is present and V3 otherwise; an explicitly
// requested version that cannot hold the capture's sections is a
// FormatError.
func Encode(c Capture) ([]byte, error) {
	version := c.Meta.FormatVersion
	if version == 0 {
		if c.Calibration != nil {
			version = V2
		} else {
			version = V3
		}
	}
	if version != V2 && c.Calibration != nil {
		return nil, &FormatError{Reason: version.String() + " cannot carry a calibration section"}
	}

	size := headerSize(version) + len(c.IMU)*imuRecordSize + len(c.GPS)*gpsRecordSize
	if version == V2 {
		if c.Calibration != nil {
			size += calRecordSize
		}
		size += len(c.CalibrationSamples) * imuRecordSize
	}

	buf := make([]byte, size)
	w := writer{buf: buf}

	writeHeader(&w, version, c)

	if version == V2 && c.Calibration != nil {
		writeCalibration(&w, c.Calibration)
	}
	for _, s := range c.IMU {
		writeIMU(&w, s)
	}
	for _, s := range c.GPS {
		writeGPS(&w, s)
	}
	if version == V2 {
		for _, s := range c.CalibrationSamples {
			writeIMU(&w, s)
		}
	}
	return buf, nil
}

func headerSize(v Version) int {
	if v == V2 {
		return headerSizeV2
	}
	return headerSizeV1
}

// writeHeader lays out the version header. Reserved bytes stay zero-filled;
// they are never reinterpreted across revisions.
func writeHeader(w *writer, version Version, c Capture) {
	start := w.off
	w.magic(version.magic())
	w.u32(uint32(len(c.IMU)))
	w.u32(uint32(len(c.GPS)))

	if version == V2 {
		w.u32(uint32(len(c.CalibrationSamples)))
		if c.Calibration != nil {
			w.u8(1)
		} else {
			w.u8(0)
		}
	}

	w.f64(c.Meta.SessionStartMs)
	w.u8(uint8(c.Meta.PhoneOrientation))
	if c.Meta.DemoMode {
		w.u8(1)
	} else {
		w.u8(0)
	}
	if version != V3 {
		w.f32(c.Meta.CatchThreshold)
		w.f32(c.Meta.FinishThreshold)
	}
	w.off = start + headerSize(version)
}

// writeCalibration lays out the fixed 64-byte V2 calibration block.
func writeCalibration(w *writer, r *calibration.Record) {
	start := w.off
	w.f32(float32(r.PitchOffset))
	w.f32(float32(r.RollOffset))
	w.f32(float32(r.YawOffset))
	w.f32(float32(r.LateralOffset))
	w.f32(float32(r.GravityMagnitude))
	w.u32(uint32(r.SampleCount))
	w.f32(float32(r.VarianceQuality))
	w.f64(r.CreatedAt)
	w.off = start + calRecordSize
}

func writeIMU(w *writer, s imu.Sample) {
	w.f64(s.T)
	w.f32(s.Ax)
	w.f32(s.Ay)
	w.f32(s.Az)
	w.f32(s.Gx)
	w.f32(s.Gy)
	w.f32(s.Gz)
}

func writeGPS(w *writer, s gps.Sample) {
	w.f64(s.T)
	w.f64(s.Lat)
	w.f64(s.Lon)
	w.f32(s.Speed)
	w.f32(s.Heading)
	w.f32(s.Accuracy)
}

// writer is a little-endian cursor over a pre-sized buffer.
type writer struct {
	buf []byte
	off int
}

func (w *writer) magic(s string) {
	copy(w.buf[w.off:w.off+magicSize], s)
	w.off += magicSize
}

func (w *writer) u8(v uint8) {
	w.buf[w.off] = v
	w.off++
}

func (w *writer) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *writer) f32(v float32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], math.Float32bits(v))
	w.off += 4
}

func (w *writer) f64(v float64) {
	binary.LittleEndian.PutUint64(w.buf[w.off:], math.Float64bits(v))
	w.off += 8
}
