package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/wrccoach/stroke_computer/internal/gps"
	"github.com/wrccoach/stroke_computer/internal/stroke"
	"github.com/wrccoach/stroke_computer/internal/wrcdata"
)

func sessionCapture() *wrcdata.Capture {
	c := &wrcdata.Capture{
		Meta: wrcdata.Metadata{
			FormatVersion:  wrcdata.V3,
			SessionStartMs: 1735689600000,
		},
	}
	for i := 0; i < 30; i++ {
		c.GPS = append(c.GPS, gps.Sample{
			T:        float64(i) * 1000,
			Lat:      52.3675 + float64(i)*1e-5,
			Lon:      4.9041 + float64(i)*2e-5,
			Speed:    4.0,
			Heading:  70,
			Accuracy: 3,
		})
	}
	return c
}

func sessionStrokes() []stroke.Record {
	return []stroke.Record{
		{Index: 1, CatchTime: 1000, FinishTime: 1900, StrokeRateSPM: 25, DrivePercent: 37},
		{Index: 2, CatchTime: 3400, FinishTime: 4300, StrokeRateSPM: 25, DrivePercent: 38},
		{Index: 3, CatchTime: 5800, FinishTime: 6700, StrokeRateSPM: 26, DrivePercent: 36},
	}
}

func TestWriteGPX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.gpx")
	if err := WriteGPX(path, sessionCapture()); err != nil {
		t.Fatalf("WriteGPX: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<gpx", "<trkpt", "lat=\"52.36", "wrc-coach"} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("gpx output missing %q", want)
		}
	}
	if got := bytes.Count(data, []byte("<trkpt")); got != 30 {
		t.Errorf("gpx has %d trackpoints, want 30", got)
	}
}

func TestWriteGPXEmptyCapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.gpx")
	if err := WriteGPX(path, &wrcdata.Capture{}); err == nil {
		t.Fatal("WriteGPX on a capture without GPS should fail")
	}
}

func TestWriteFIT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.fit")
	if err := WriteFIT(path, sessionCapture(), sessionStrokes()); err != nil {
		t.Fatalf("WriteFIT: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 100 {
		t.Fatalf("fit file suspiciously small: %d bytes", len(data))
	}
	// FIT header carries the ".FIT" data-type marker at offset 8.
	if !bytes.Equal(data[8:12], []byte(".FIT")) {
		t.Errorf("missing .FIT marker, header = % x", data[:12])
	}
}

func TestWriteFITEmptyCapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.fit")
	if err := WriteFIT(path, &wrcdata.Capture{}, nil); err == nil {
		t.Fatal("WriteFIT on a capture without GPS should fail")
	}
}

func TestCadenceAt(t *testing.T) {
	strokes := sessionStrokes()
	if got := cadenceAt(strokes, 500); got != 0 {
		t.Errorf("before first catch: %d, want 0", got)
	}
	if got := cadenceAt(strokes, 4000); got != 25 {
		t.Errorf("mid-session: %d, want 25", got)
	}
	if got := cadenceAt(strokes, 9000); got != 26 {
		t.Errorf("after last catch: %d, want 26", got)
	}
	if got := cadenceAt(nil, 1000); got != 0 {
		t.Errorf("no strokes: %d, want 0", got)
	}
}
