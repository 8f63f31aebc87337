package gps

// Sample is a single GPS fix, roughly 1 Hz. Speed is m/s over ground,
// heading is degrees true, accuracy is the estimated horizontal error
// in meters.
type Sample struct {
	T        float64 `json:"t"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Speed    float32 `json:"speed"`
	Heading  float32 `json:"heading"`
	Accuracy float32 `json:"accuracy"`
}

const mPerSecPerKnot = 0.514444

// FromRMC builds a Sample from the fields of an NMEA RMC sentence.
// RMC carries speed in knots; accuracy is not part of RMC and is filled
// in separately from GGA HDOP when available.
func FromRMC(t float64, lat, lon, speedKnots, courseDeg float64) Sample {
	return Sample{
		T:       t,
		Lat:     lat,
		Lon:     lon,
		Speed:   float32(speedKnots * mPerSecPerKnot),
		Heading: float32(courseDeg),
	}
}
