package wrcdata

import (
	"errors"
	"math"
	"testing"

	"github.com/wrccoach/stroke_computer/internal/boatframe"
	"github.com/wrccoach/stroke_computer/internal/calibration"
	"github.com/wrccoach/stroke_computer/internal/gps"
	"github.com/wrccoach/stroke_computer/internal/imu"
)

func testIMU(n int) []imu.Sample {
	out := make([]imu.Sample, n)
	for i := range out {
		f := float32(i)
		out[i] = imu.Sample{
			T:  1000 + float64(i)*20,
			Ax: 0.1 * f, Ay: -0.2 * f, Az: 9.81,
			Gx: 1.5 * f, Gy: -2.5 * f, Gz: 0.25,
		}
	}
	return out
}

func testGPS(n int) []gps.Sample {
	out := make([]gps.Sample, n)
	for i := range out {
		out[i] = gps.Sample{
			T:   1000 + float64(i)*1000,
			Lat: 49.8951 + float64(i)*1e-5, Lon: -97.1384,
			Speed: 3.5, Heading: 182.5, Accuracy: 4.0,
		}
	}
	return out
}

func testCal() *calibration.Record {
	return &calibration.Record{
		PitchOffset:      -4.25,
		RollOffset:       1.5,
		GravityMagnitude: 9.803,
		SampleCount:      180,
		VarianceQuality:  0.031,
		CreatedAt:        987.5,
		Quality:          calibration.GradeExcellent,
		Method:           "static",
	}
}

func TestRoundTripV2WithCalibration(t *testing.T) {
	in := Capture{
		Meta: Metadata{
			SessionStartMs:   1234567.0,
			PhoneOrientation: boatframe.Coxswain,
			DemoMode:         false,
			CatchThreshold:   0.6,
			FinishThreshold:  -0.3,
		},
		IMU:                testIMU(250),
		GPS:                testGPS(10),
		Calibration:        testCal(),
		CalibrationSamples: testIMU(40),
	}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	wantSize := headerSizeV2 + calRecordSize + 290*imuRecordSize + 10*gpsRecordSize
	if len(data) != wantSize {
		t.Fatalf("encoded size = %d, want %d", len(data), wantSize)
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Meta.FormatVersion != V2 {
		t.Errorf("version = %s, want V2", out.Meta.FormatVersion)
	}
	if out.Meta != (Metadata{
		FormatVersion:    V2,
		SessionStartMs:   1234567.0,
		PhoneOrientation: boatframe.Coxswain,
		CatchThreshold:   0.6,
		FinishThreshold:  -0.3,
	}) {
		t.Errorf("metadata mismatch: %+v", out.Meta)
	}
	if len(out.IMU) != 250 || len(out.GPS) != 10 || len(out.CalibrationSamples) != 40 {
		t.Fatalf("counts: imu=%d gps=%d cal=%d", len(out.IMU), len(out.GPS), len(out.CalibrationSamples))
	}
	for i, s := range out.IMU {
		if s != in.IMU[i] {
			t.Fatalf("IMU[%d] = %+v, want %+v", i, s, in.IMU[i])
		}
	}
	for i, s := range out.GPS {
		if s != in.GPS[i] {
			t.Fatalf("GPS[%d] = %+v, want %+v", i, s, in.GPS[i])
		}
	}
	c := out.Calibration
	if c == nil {
		t.Fatal("calibration lost in round trip")
	}
	if float32(c.PitchOffset) != -4.25 || float32(c.RollOffset) != 1.5 {
		t.Errorf("offsets: pitch=%f roll=%f", c.PitchOffset, c.RollOffset)
	}
	if c.SampleCount != 180 || c.CreatedAt != 987.5 {
		t.Errorf("sampleCount=%d createdAt=%f", c.SampleCount, c.CreatedAt)
	}
	if float32(c.VarianceQuality) != 0.031 {
		t.Errorf("variance = %f", c.VarianceQuality)
	}
}

func TestRoundTripV3(t *testing.T) {
	in := Capture{
		Meta: Metadata{
			SessionStartMs:   5000,
			PhoneOrientation: boatframe.Rower,
			DemoMode:         true,
		},
		IMU: testIMU(100),
		GPS: testGPS(3),
	}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) != headerSizeV3+100*imuRecordSize+3*gpsRecordSize {
		t.Fatalf("unexpected size %d", len(data))
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Meta.FormatVersion != V3 {
		t.Errorf("default encode version = %s, want V3", out.Meta.FormatVersion)
	}
	if out.Calibration != nil {
		t.Error("V3 must never carry calibration")
	}
	if !out.Meta.DemoMode || out.Meta.PhoneOrientation != boatframe.Rower {
		t.Errorf("metadata mismatch: %+v", out.Meta)
	}
	if out.Meta.CatchThreshold != 0 || out.Meta.FinishThreshold != 0 {
		t.Error("V3 header has no thresholds, decoded values must stay zero")
	}
	for i, s := range out.IMU {
		if s != in.IMU[i] {
			t.Fatalf("IMU[%d] mismatch", i)
		}
	}
}

func TestV1DecodesWithoutCalibration(t *testing.T) {
	in := Capture{
		Meta: Metadata{
			FormatVersion:   V1,
			SessionStartMs:  777,
			CatchThreshold:  0.5,
			FinishThreshold: -0.25,
		},
		IMU: testIMU(20),
		GPS: testGPS(2),
	}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Meta.FormatVersion != V1 {
		t.Errorf("version = %s, want V1", out.Meta.FormatVersion)
	}
	if out.Calibration != nil {
		t.Error("V1 capture decoded with calibration present")
	}
	if out.Meta.CatchThreshold != 0.5 || out.Meta.FinishThreshold != -0.25 {
		t.Errorf("thresholds lost: %+v", out.Meta)
	}
}

func TestV2WithoutCalibrationMatchesV1Shape(t *testing.T) {
	base := Capture{
		Meta: Metadata{SessionStartMs: 100, CatchThreshold: 0.6, FinishThreshold: -0.3},
		IMU:  testIMU(30),
		GPS:  testGPS(2),
	}

	v1 := base
	v1.Meta.FormatVersion = V1
	v2 := base
	v2.Meta.FormatVersion = V2

	d1, err := Encode(v1)
	if err != nil {
		t.Fatalf("Encode V1: %v", err)
	}
	d2, err := Encode(v2)
	if err != nil {
		t.Fatalf("Encode V2: %v", err)
	}

	o1, err := Decode(d1)
	if err != nil {
		t.Fatalf("Decode V1: %v", err)
	}
	o2, err := Decode(d2)
	if err != nil {
		t.Fatalf("Decode V2: %v", err)
	}

	if o2.Calibration != nil {
		t.Error("uncalibrated V2 decoded with calibration")
	}
	if len(o1.IMU) != len(o2.IMU) || len(o1.GPS) != len(o2.GPS) {
		t.Fatal("sample counts differ between V1 and uncalibrated V2")
	}
	for i := range o1.IMU {
		if o1.IMU[i] != o2.IMU[i] {
			t.Fatalf("IMU[%d] differs between V1 and V2 decode", i)
		}
	}
	m1, m2 := o1.Meta, o2.Meta
	m1.FormatVersion, m2.FormatVersion = 0, 0
	if m1 != m2 {
		t.Errorf("metadata differs: %+v vs %+v", m1, m2)
	}
}

func TestEncodeRejectsCalibrationOutsideV2(t *testing.T) {
	c := Capture{
		Meta:        Metadata{FormatVersion: V3},
		Calibration: testCal(),
	}
	_, err := Encode(c)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestDecodeUnknownMagic(t *testing.T) {
	data := make([]byte, 128)
	copy(data, "NOT_A_CAPTURE")
	_, err := Decode(data)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	full, err := Encode(Capture{
		Meta: Metadata{SessionStartMs: 1},
		IMU:  testIMU(50),
		GPS:  testGPS(5),
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	cuts := []int{4, magicSize, headerSizeV3 - 1, headerSizeV3 + 10, len(full) - 1}
	for _, n := range cuts {
		_, err := Decode(full[:n])
		var te *TruncatedDataError
		if !errors.As(err, &te) {
			t.Errorf("cut at %d: expected TruncatedDataError, got %v", n, err)
		}
	}
}

func TestReservedHeaderBytesZeroFilled(t *testing.T) {
	data, err := Encode(Capture{
		Meta: Metadata{FormatVersion: V2, SessionStartMs: 42},
		IMU:  testIMU(1),
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// V2 payload fields end at offset 47; the rest of the 128-byte header
	// is reserved and must be zero.
	for i := 47; i < headerSizeV2; i++ {
		if data[i] != 0 {
			t.Fatalf("reserved header byte %d = %#x, want 0", i, data[i])
		}
	}
}

func TestFloatPrecisionPreserved(t *testing.T) {
	in := Capture{
		Meta: Metadata{SessionStartMs: math.Pi * 1e9},
		IMU: []imu.Sample{{
			T:  1.0000000001e12,
			Ax: math.MaxFloat32,
			Ay: math.SmallestNonzeroFloat32,
			Az: -0.0,
		}},
	}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Meta.SessionStartMs != in.Meta.SessionStartMs {
		t.Error("f64 session start not bit-exact")
	}
	if out.IMU[0] != in.IMU[0] {
		t.Errorf("extreme floats not bit-exact: %+v vs %+v", out.IMU[0], in.IMU[0])
	}
}
