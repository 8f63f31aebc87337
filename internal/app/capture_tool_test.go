package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wrccoach/stroke_computer/internal/boatframe"
	"github.com/wrccoach/stroke_computer/internal/sim"
	"github.com/wrccoach/stroke_computer/internal/stroke"
	"github.com/wrccoach/stroke_computer/internal/wrcdata"
)

// writeSyntheticCapture encodes a 60 s steady-state session to disk and
// returns its path.
func writeSyntheticCapture(t *testing.T) string {
	t.Helper()

	sc := sim.Scenario{
		Name:         "test",
		SampleRateHz: 50,
		AccelNoise:   0.1,
		GyroNoise:    0.3,
		StartLat:     52.3675,
		StartLon:     4.9041,
		HeadingDeg:   90,
		Phases: []sim.Phase{
			{DurationSec: 60, StrokeRateSPM: 26, SurgeAmplitude: 2.2, BoatSpeed: 4.0},
		},
	}
	gen := sim.NewGenerator(sc, 7)

	capture := wrcdata.Capture{
		Meta: wrcdata.Metadata{
			FormatVersion:    wrcdata.V1,
			SessionStartMs:   1735689600000,
			PhoneOrientation: boatframe.Rower,
			CatchThreshold:   stroke.DefaultCatchThreshold,
			FinishThreshold:  stroke.DefaultFinishThreshold,
		},
	}
	for {
		s, ok := gen.NextIMU()
		if !ok {
			break
		}
		capture.IMU = append(capture.IMU, s)
		if fix, ok := gen.NextGPS(); ok {
			capture.GPS = append(capture.GPS, fix)
		}
	}

	data, err := wrcdata.Encode(capture)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "session.wrcdata")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCaptureRoundTrip(t *testing.T) {
	path := writeSyntheticCapture(t)

	c, err := LoadCapture(path)
	if err != nil {
		t.Fatalf("LoadCapture: %v", err)
	}
	if c.Meta.FormatVersion != wrcdata.V1 {
		t.Errorf("version = %v, want V1", c.Meta.FormatVersion)
	}
	if len(c.IMU) != 3000 {
		t.Errorf("imu samples = %d, want 3000", len(c.IMU))
	}
	if len(c.GPS) < 55 || len(c.GPS) > 61 {
		t.Errorf("gps samples = %d, want ~60", len(c.GPS))
	}
}

func TestLoadCaptureBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wrcdata")
	if err := os.WriteFile(path, []byte("not a capture"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCapture(path); err == nil {
		t.Fatal("LoadCapture accepted junk")
	}
	if _, err := LoadCapture(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("LoadCapture accepted a missing file")
	}
}

// TestReprocessCapture replays an encoded session and expects the same
// stroke picture the live pipeline would have produced.
func TestReprocessCapture(t *testing.T) {
	c, err := LoadCapture(writeSyntheticCapture(t))
	if err != nil {
		t.Fatal(err)
	}

	strokes, p := ReprocessCapture(c)
	if len(strokes) < 20 || len(strokes) > 28 {
		t.Fatalf("reprocess found %d strokes in 60 s at 26 spm", len(strokes))
	}
	for _, s := range strokes[1:] {
		if s.StrokeRateSPM < 23 || s.StrokeRateSPM > 29 {
			t.Errorf("stroke %d: %d spm, want near 26", s.Index, s.StrokeRateSPM)
		}
	}
	if v := p.Velocity(); v < 3.0 || v > 5.0 {
		t.Errorf("fused velocity = %.2f, want ~4", v)
	}
}

// TestReprocessDeterministic: same bytes in, same records out.
func TestReprocessDeterministic(t *testing.T) {
	c, err := LoadCapture(writeSyntheticCapture(t))
	if err != nil {
		t.Fatal(err)
	}

	a, _ := ReprocessCapture(c)
	b, _ := ReprocessCapture(c)
	if len(a) != len(b) {
		t.Fatalf("stroke counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("stroke %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestFormatSplit(t *testing.T) {
	cases := []struct {
		sec  float64
		want string
	}{
		{0, "-:--.-"},
		{125, "2:05.0"},
		{89.5, "1:29.5"},
		{600.04, "10:00.0"},
	}
	for _, tc := range cases {
		if got := formatSplit(tc.sec); got != tc.want {
			t.Errorf("formatSplit(%g) = %q, want %q", tc.sec, got, tc.want)
		}
	}
}
