package export

import (
	"fmt"
	"os"
	"time"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"github.com/wrccoach/stroke_computer/internal/stroke"
	"github.com/wrccoach/stroke_computer/internal/wrcdata"
)

// Constant for converting degrees to semicircles (FIT standard)
const degreesToSemicircles = 2147483648.0 / 180.0

// WriteFIT writes the capture as a FIT rowing activity. Stroke records feed
// the per-record cadence (SPM) and the session averages; pass the records
// obtained by reprocessing the capture through the pipeline.
func WriteFIT(path string, capture *wrcdata.Capture, strokes []stroke.Record) error {
	if len(capture.GPS) == 0 {
		return fmt.Errorf("fit export: capture has no GPS samples")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fit export: %w", err)
	}
	defer f.Close()

	start := time.UnixMilli(int64(capture.Meta.SessionStartMs)).UTC()
	fit := proto.FIT{}

	fileIdMesg := mesgdef.FileId{
		Type:         typedef.FileActivity,
		Manufacturer: typedef.ManufacturerDevelopment,
		Product:      0,
		SerialNumber: 1,
		TimeCreated:  start,
	}
	fit.Messages = append(fit.Messages, fileIdMesg.ToMesg(nil))

	// One record per GPS fix; distance integrates speed between fixes.
	var distanceM float64
	var prevT float64
	var lastTS time.Time
	for i, s := range capture.GPS {
		if i > 0 {
			distanceM += float64(s.Speed) * (s.T - prevT) / 1000
		}
		prevT = s.T
		lastTS = start.Add(time.Duration(s.T) * time.Millisecond)

		rec := &mesgdef.Record{
			Timestamp:     lastTS,
			PositionLat:   int32(s.Lat * degreesToSemicircles),
			PositionLong:  int32(s.Lon * degreesToSemicircles),
			Distance:      uint32(distanceM * 100),         // cm
			EnhancedSpeed: uint32(float64(s.Speed) * 1000), // mm/s
			Cadence:       uint8(cadenceAt(strokes, s.T)),  // SPM
		}
		fit.Messages = append(fit.Messages, rec.ToMesg(nil))
	}

	totalTime := capture.GPS[len(capture.GPS)-1].T - capture.GPS[0].T // ms

	eventMesg := mesgdef.Event{
		Timestamp: lastTS,
		Event:     typedef.EventTimer,
		EventType: typedef.EventTypeStopAll,
	}
	fit.Messages = append(fit.Messages, eventMesg.ToMesg(nil))

	lapMesg := mesgdef.Lap{
		Timestamp:        lastTS,
		StartTime:        start,
		TotalElapsedTime: uint32(totalTime),
		TotalTimerTime:   uint32(totalTime),
		TotalDistance:    uint32(distanceM * 100),
		AvgCadence:       avgCadence(strokes),
		Event:            typedef.EventLap,
		EventType:        typedef.EventTypeStop,
	}
	fit.Messages = append(fit.Messages, lapMesg.ToMesg(nil))

	sessionMesg := mesgdef.Session{
		Timestamp:        lastTS,
		StartTime:        start,
		TotalElapsedTime: uint32(totalTime),
		TotalTimerTime:   uint32(totalTime),
		TotalDistance:    uint32(distanceM * 100),
		AvgCadence:       avgCadence(strokes),
		Sport:            typedef.SportRowing,
		SubSport:         typedef.SubSportGeneric,
		Event:            typedef.EventSession,
		EventType:        typedef.EventTypeStop,
		Trigger:          typedef.SessionTriggerActivityEnd,
	}
	fit.Messages = append(fit.Messages, sessionMesg.ToMesg(nil))

	enc := encoder.New(f)
	if err := enc.Encode(&fit); err != nil {
		return fmt.Errorf("fit export: encode: %w", err)
	}
	return nil
}

// cadenceAt returns the SPM of the stroke cycle spanning session time tMs,
// 0 when no cycle covers it. Records are in session order, so a linear
// scan from the back finds the newest applicable one.
func cadenceAt(strokes []stroke.Record, tMs float64) int {
	for i := len(strokes) - 1; i >= 0; i-- {
		if strokes[i].CatchTime <= tMs {
			return strokes[i].StrokeRateSPM
		}
	}
	return 0
}

func avgCadence(strokes []stroke.Record) uint8 {
	if len(strokes) == 0 {
		return 0
	}
	var sum int
	for _, s := range strokes {
		sum += s.StrokeRateSPM
	}
	return uint8(sum / len(strokes))
}
