// Package export converts decoded session captures into interchange
// formats: GPX tracks and FIT activities.
package export

import (
	"fmt"
	"os"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/wrccoach/stroke_computer/internal/wrcdata"
)

// WriteGPX writes the capture's GPS track as a GPX 1.1 file. IMU data has
// no GPX representation and is ignored.
func WriteGPX(path string, capture *wrcdata.Capture) error {
	if len(capture.GPS) == 0 {
		return fmt.Errorf("gpx export: capture has no GPS samples")
	}

	start := time.UnixMilli(int64(capture.Meta.SessionStartMs)).UTC()

	segment := gpx.GPXTrackSegment{}
	for _, s := range capture.GPS {
		segment.Points = append(segment.Points, gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  s.Lat,
				Longitude: s.Lon,
			},
			Timestamp: start.Add(time.Duration(s.T) * time.Millisecond),
		})
	}

	doc := &gpx.GPX{
		Creator: "wrc-coach stroke computer",
		Name:    "Rowing session",
		Time:    &start,
		Tracks: []gpx.GPXTrack{
			{
				Name:     "Rowing session",
				Segments: []gpx.GPXTrackSegment{segment},
			},
		},
	}

	xml, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return fmt.Errorf("gpx export: serialize: %w", err)
	}
	if err := os.WriteFile(path, xml, 0644); err != nil {
		return fmt.Errorf("gpx export: write %s: %w", path, err)
	}
	return nil
}
