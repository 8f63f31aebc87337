package app

import (
	"fmt"
	"os"
	"time"

	"github.com/wrccoach/stroke_computer/internal/export"
	"github.com/wrccoach/stroke_computer/internal/pipeline"
	"github.com/wrccoach/stroke_computer/internal/stroke"
	"github.com/wrccoach/stroke_computer/internal/wrcdata"
)

// LoadCapture reads and decodes a .wrcdata file.
func LoadCapture(path string) (*wrcdata.Capture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}
	c, err := wrcdata.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &c, nil
}

// ReprocessCapture replays a capture's raw samples through a fresh
// pipeline, reproducing the session's stroke records offline. The pipeline
// is configured from the capture's own metadata: stored thresholds for
// V1/V2, fully automatic for V3.
func ReprocessCapture(c *wrcdata.Capture) ([]stroke.Record, *pipeline.Pipeline) {
	cfg := pipeline.DefaultConfig()
	cfg.PhoneOrientation = c.Meta.PhoneOrientation
	if c.Meta.FormatVersion == wrcdata.V3 {
		cfg.Automatic = true
	} else if c.Meta.CatchThreshold != 0 || c.Meta.FinishThreshold != 0 {
		cfg.CatchThreshold = float64(c.Meta.CatchThreshold)
		cfg.FinishThreshold = float64(c.Meta.FinishThreshold)
	}

	p := pipeline.New(cfg)
	if c.Calibration != nil {
		p.SetCalibration(*c.Calibration)
	}

	// Replay both streams in timestamp order, the way they arrived live.
	i, j := 0, 0
	for i < len(c.IMU) || j < len(c.GPS) {
		switch {
		case j >= len(c.GPS) || (i < len(c.IMU) && c.IMU[i].T <= c.GPS[j].T):
			p.ProcessIMU(c.IMU[i])
			i++
		default:
			p.ProcessGPS(c.GPS[j])
			j++
		}
	}
	return p.Strokes(), p
}

// PrintCaptureInfo writes a human-readable capture summary to stdout.
func PrintCaptureInfo(path string, c *wrcdata.Capture) {
	fmt.Printf("%s\n", path)
	fmt.Printf("  format:        %s\n", c.Meta.FormatVersion)
	fmt.Printf("  session start: %s\n",
		time.UnixMilli(int64(c.Meta.SessionStartMs)).UTC().Format(time.RFC3339))
	fmt.Printf("  orientation:   %s\n", c.Meta.PhoneOrientation)
	fmt.Printf("  demo mode:     %v\n", c.Meta.DemoMode)
	if c.Meta.FormatVersion != wrcdata.V3 {
		fmt.Printf("  thresholds:    catch %.2f / finish %.2f\n",
			c.Meta.CatchThreshold, c.Meta.FinishThreshold)
	}
	fmt.Printf("  imu samples:   %d", len(c.IMU))
	if len(c.IMU) > 1 {
		durSec := (c.IMU[len(c.IMU)-1].T - c.IMU[0].T) / 1000
		fmt.Printf(" (%.1f s, %.1f Hz)", durSec, float64(len(c.IMU)-1)/durSec)
	}
	fmt.Println()
	fmt.Printf("  gps samples:   %d\n", len(c.GPS))
	if c.Calibration != nil {
		fmt.Printf("  calibration:   %s, %d samples, quality %s\n",
			c.Calibration.Method, c.Calibration.SampleCount, c.Calibration.Quality)
	} else {
		fmt.Printf("  calibration:   none\n")
	}
	if len(c.CalibrationSamples) > 0 {
		fmt.Printf("  cal samples:   %d\n", len(c.CalibrationSamples))
	}
}

// PrintStrokeSummary writes reprocessed stroke metrics to stdout.
func PrintStrokeSummary(strokes []stroke.Record, p *pipeline.Pipeline) {
	fmt.Printf("  strokes:       %d\n", len(strokes))
	if len(strokes) > 1 {
		// Skip the first record; the filters had not settled yet.
		settled := strokes[1:]
		var spmSum, drvSum float64
		for _, s := range settled {
			spmSum += float64(s.StrokeRateSPM)
			drvSum += s.DrivePercent
		}
		fmt.Printf("  avg rate:      %.1f spm\n", spmSum/float64(len(settled)))
		fmt.Printf("  avg drive:     %.1f %%\n", drvSum/float64(len(settled)))
	}
	fmt.Printf("  final speed:   %.2f m/s\n", p.Velocity())
}

// ExportCaptureGPX converts a capture to a GPX track file.
func ExportCaptureGPX(capturePath, outPath string) error {
	c, err := LoadCapture(capturePath)
	if err != nil {
		return err
	}
	return export.WriteGPX(outPath, c)
}

// ExportCaptureFIT converts a capture to a FIT rowing activity, reprocessing
// it first so the stroke cadence travels with the track.
func ExportCaptureFIT(capturePath, outPath string) error {
	c, err := LoadCapture(capturePath)
	if err != nil {
		return err
	}
	strokes, _ := ReprocessCapture(c)
	return export.WriteFIT(outPath, c, strokes)
}
