package pipeline

import (
	"math"
	"testing"

	"github.com/wrccoach/stroke_computer/internal/boatframe"
	"github.com/wrccoach/stroke_computer/internal/gps"
	"github.com/wrccoach/stroke_computer/internal/imu"
)

const sampleHz = 50.0

// rowingSample fabricates one level-phone sample with a surge oscillation
// riding on gravity. Surge maps to the phone Y axis for a rower-facing
// mount, with the sign flipped back so the boat-frame surge comes out
// positive on the drive.
func rowingSample(t, surge float64) imu.Sample {
	return imu.Sample{
		T:  t,
		Ay: float32(-surge),
		Az: 9.81,
	}
}

// TestSessionStrokeScenario runs the reference session: 10 s of a
// 2.0·sin(2π·0.42·t) surge at 50 Hz. The pipeline must find 3 or 4 full
// cycles at 24-26 SPM once the filters settle.
func TestSessionStrokeScenario(t *testing.T) {
	p := New(DefaultConfig())

	for i := 0; i < int(10*sampleHz); i++ {
		ts := float64(i) / sampleHz
		surge := 2.0 * math.Sin(2*math.Pi*0.42*ts)
		p.ProcessIMU(rowingSample(ts*1000, surge))
	}

	strokes := p.Strokes()
	if len(strokes) < 3 || len(strokes) > 4 {
		t.Fatalf("got %d strokes, want 3 or 4", len(strokes))
	}
	for _, s := range strokes[1:] {
		if s.StrokeRateSPM < 24 || s.StrokeRateSPM > 26 {
			t.Errorf("stroke %d: %d spm, want 24-26", s.Index, s.StrokeRateSPM)
		}
		if s.DrivePercent <= 0 || s.DrivePercent >= 100 {
			t.Errorf("stroke %d: drive %.1f%% out of range", s.Index, s.DrivePercent)
		}
	}
}

// TestStrokeRecordOnlyAtCatch checks the emission contract: at most one
// record per sample, nil everywhere except the catch that closes a cycle.
func TestStrokeRecordOnlyAtCatch(t *testing.T) {
	p := New(DefaultConfig())

	emitted := 0
	for i := 0; i < int(10*sampleHz); i++ {
		ts := float64(i) / sampleHz
		res := p.ProcessIMU(rowingSample(ts*1000, 2.0*math.Sin(2*math.Pi*0.42*ts)))
		if res.Stroke != nil {
			emitted++
		}
	}
	if emitted != len(p.Strokes()) {
		t.Fatalf("emitted %d records but stored %d", emitted, len(p.Strokes()))
	}
}

// TestCalibrationFlow walks start/add/complete with a tilted phone at rest
// and checks the record is adopted by the transform: after calibration the
// residual surge at rest has to be near zero.
func TestCalibrationFlow(t *testing.T) {
	p := New(DefaultConfig())

	tilt := 10.0 * math.Pi / 180
	atRest := imu.Sample{
		Ay: float32(9.81 * math.Sin(tilt)),
		Az: float32(9.81 * math.Cos(tilt)),
	}

	if err := p.AddCalibrationSample(atRest); err == nil {
		t.Fatal("AddCalibrationSample before start should fail")
	}

	p.StartCalibration(nil)
	for i := 0; i < 200; i++ {
		s := atRest
		s.T = float64(i) * 20
		if err := p.AddCalibrationSample(s); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	rec, err := p.CompleteCalibration()
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if rec.Degraded {
		t.Fatalf("clean capture marked degraded: %+v", rec)
	}
	if got, ok := p.Calibration(); !ok || got.PitchOffset != rec.PitchOffset {
		t.Fatal("record not adopted as the session calibration")
	}

	// Settle the orientation filter at the same attitude, then check the
	// residual.
	var res IMUResult
	for i := 0; i < 500; i++ {
		s := atRest
		s.T = float64(i) * 20
		res = p.ProcessIMU(s)
	}
	if math.Abs(res.BoatAccel.Surge) > 0.15 {
		t.Errorf("calibrated at-rest surge = %.3f, want ~0", res.BoatAccel.Surge)
	}
}

// TestCompleteWithoutStart covers the other misuse path.
func TestCompleteWithoutStart(t *testing.T) {
	p := New(DefaultConfig())
	if _, err := p.CompleteCalibration(); err == nil {
		t.Fatal("CompleteCalibration without start should fail")
	}
}

// TestGPSFusion feeds a steady 4 m/s GPS track alongside quiet IMU data and
// expects the fused velocity to converge, with the 500 m split following.
func TestGPSFusion(t *testing.T) {
	p := New(DefaultConfig())

	var res GPSResult
	for i := 0; i < 400; i++ {
		ts := float64(i) * 20
		p.ProcessIMU(rowingSample(ts, 0))
		if i%50 == 0 { // 1 Hz GPS against 50 Hz IMU
			res = p.ProcessGPS(gps.Sample{T: ts, Speed: 4.0})
		}
	}
	if math.Abs(res.FusedVelocity-4.0) > 0.2 {
		t.Errorf("fused velocity = %.3f, want ~4.0", res.FusedVelocity)
	}
	if math.Abs(res.SplitSec-125) > 7 {
		t.Errorf("split = %.1f s, want ~125", res.SplitSec)
	}
	if v := p.Velocity(); v != res.FusedVelocity {
		t.Errorf("Velocity() = %v, last result %v", v, res.FusedVelocity)
	}
}

// TestVelocityStableDuringStrokes holds the fused velocity against a
// full-amplitude stroke oscillation: the within-stroke surge must not
// integrate into the estimate, whatever phase the session ends on.
func TestVelocityStableDuringStrokes(t *testing.T) {
	p := New(DefaultConfig())

	for i := 0; i < int(30*sampleHz); i++ {
		ts := float64(i) / sampleHz
		p.ProcessIMU(rowingSample(ts*1000, 2.0*math.Sin(2*math.Pi*0.42*ts)))
		if i%50 == 0 {
			p.ProcessGPS(gps.Sample{T: ts * 1000, Speed: 4.0})
		}
	}
	if v := p.Velocity(); math.Abs(v-4.0) > 0.5 {
		t.Errorf("fused velocity = %.2f during steady rowing, want ~4.0", v)
	}
}

// TestAutomaticModeDetectsStrokes runs automatic mode end to end: adaptive
// thresholds pick up a gentler oscillation than the fixed defaults would,
// and PCA calibration completes in the background from session motion.
func TestAutomaticModeDetectsStrokes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Automatic = true
	p := New(cfg)

	for i := 0; i < int(30*sampleHz); i++ {
		ts := float64(i) / sampleHz
		surge := 2.0 * math.Sin(2*math.Pi*0.42*ts)
		p.ProcessIMU(rowingSample(ts*1000, surge))
	}

	if len(p.Strokes()) < 8 {
		t.Fatalf("automatic mode found %d strokes in 30 s, want >= 8", len(p.Strokes()))
	}
	rec, ok := p.Calibration()
	if !ok {
		t.Fatal("automatic mode never completed PCA calibration")
	}
	if rec.Method != "pca" {
		t.Errorf("calibration method = %q, want pca", rec.Method)
	}
	if rec.Axes == nil {
		t.Error("PCA record carries no axes")
	}
}

// TestRecordRaw checks the capture buffers mirror the input streams.
func TestRecordRaw(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordRaw = true
	p := New(cfg)

	for i := 0; i < 100; i++ {
		p.ProcessIMU(rowingSample(float64(i)*20, 0))
	}
	p.ProcessGPS(gps.Sample{T: 0, Speed: 3})
	p.ProcessGPS(gps.Sample{T: 1000, Speed: 3.1})

	rimu, rgps := p.RawSamples()
	if len(rimu) != 100 || len(rgps) != 2 {
		t.Fatalf("raw buffers = %d imu / %d gps, want 100 / 2", len(rimu), len(rgps))
	}

	p.Reset()
	rimu, rgps = p.RawSamples()
	if len(rimu) != 0 || len(rgps) != 0 {
		t.Fatal("Reset kept raw samples")
	}
	if len(p.Strokes()) != 0 || p.Velocity() != 0 {
		t.Fatal("Reset kept session state")
	}
}

// TestCoxswainSignConvention flips the mount and checks the surge sign
// follows at the pipeline boundary: the orientation state is identical in
// both runs, so the surge must negate exactly.
func TestCoxswainSignConvention(t *testing.T) {
	mk := func(phone boatframe.PhoneOrientation) float64 {
		cfg := DefaultConfig()
		cfg.PhoneOrientation = phone
		p := New(cfg)
		var res IMUResult
		for i := 0; i < 200; i++ {
			ts := float64(i) / sampleHz
			res = p.ProcessIMU(rowingSample(ts*1000, 1.5*math.Sin(2*math.Pi*0.42*ts)))
		}
		return res.BoatAccel.Surge
	}

	rower := mk(boatframe.Rower)
	cox := mk(boatframe.Coxswain)
	if math.Abs(rower) < 0.01 {
		t.Fatalf("expected non-zero surge at mid-cycle, got %v", rower)
	}
	if cox != -rower {
		t.Errorf("coxswain surge %v, want exact negation of rower %v", cox, rower)
	}
}
