package sim

import (
	"math"
	"math/rand"

	"github.com/wrccoach/stroke_computer/internal/gps"
	"github.com/wrccoach/stroke_computer/internal/imu"
)

const (
	earthRadiusM = 6371000.0
	gravity      = 9.81
)

// Generator walks a scenario producing timestamped samples. The stroke
// oscillation accumulates phase continuously across scenario phases, so a
// rate change never produces a discontinuity.
type Generator struct {
	sc  Scenario
	rng *rand.Rand

	idx         int     // IMU samples emitted
	strokePhase float64 // radians, accumulated
	lastGPSSec  float64
	lat, lon    float64
	distanceM   float64
}

// NewGenerator builds a generator with a deterministic seed.
func NewGenerator(sc Scenario, seed int64) *Generator {
	return &Generator{
		sc:         sc,
		rng:        rand.New(rand.NewSource(seed)),
		lastGPSSec: -1,
		lat:        sc.StartLat,
		lon:        sc.StartLon,
	}
}

// NextIMU emits the next IMU sample, or false when the scenario has ended.
// The simulated phone is mounted rower-style (screen toward the stern) with
// the scenario's mounting pitch.
func (g *Generator) NextIMU() (imu.Sample, bool) {
	dt := 1.0 / g.sc.SampleRateHz
	t := float64(g.idx) * dt
	phase, ok := g.sc.phaseAt(t)
	if !ok {
		return imu.Sample{}, false
	}
	g.idx++

	g.strokePhase += 2 * math.Pi * (phase.StrokeRateSPM / 60.0) * dt
	surge := phase.SurgeAmplitude * math.Sin(g.strokePhase)

	mp := g.sc.MountPitchDeg * math.Pi / 180

	// Gravity reaction at the mounting tilt, plus the surge mapped onto the
	// device long axis. Rower mount: device +Y points sternward.
	ax := g.noise(g.sc.AccelNoise)
	ay := gravity*math.Sin(mp) - surge + g.noise(g.sc.AccelNoise)
	az := gravity*math.Cos(mp) + 0.3*surge*surge/10 + g.noise(g.sc.AccelNoise)

	// Pitch rocks slightly with the stroke; the gyro sees its rate.
	gx := 2.0*math.Cos(g.strokePhase)*(phase.StrokeRateSPM/60.0)*2*math.Pi + g.noise(g.sc.GyroNoise)

	return imu.Sample{
		T:  t * 1000,
		Ax: float32(ax),
		Ay: float32(ay),
		Az: float32(az),
		Gx: float32(gx),
		Gy: float32(g.noise(g.sc.GyroNoise)),
		Gz: float32(g.noise(g.sc.GyroNoise)),
	}, true
}

// NextGPS emits a fix when a full second has elapsed since the previous
// one, advancing the position along the scenario heading.
func (g *Generator) NextGPS() (gps.Sample, bool) {
	t := float64(g.idx) / g.sc.SampleRateHz
	if t-g.lastGPSSec < 1.0 {
		return gps.Sample{}, false
	}
	phase, ok := g.sc.phaseAt(t)
	if !ok {
		return gps.Sample{}, false
	}
	elapsed := 1.0
	if g.lastGPSSec >= 0 {
		elapsed = t - g.lastGPSSec
	}
	g.lastGPSSec = t

	speed := phase.BoatSpeed + g.noise(0.2)
	if speed < 0 {
		speed = 0
	}
	g.advance(phase.BoatSpeed * elapsed)

	return gps.Sample{
		T:        t * 1000,
		Lat:      g.lat,
		Lon:      g.lon,
		Speed:    float32(speed),
		Heading:  float32(g.sc.HeadingDeg),
		Accuracy: float32(3.0 + math.Abs(g.noise(1.0))),
	}, true
}

// Distance reports the total simulated distance, meters.
func (g *Generator) Distance() float64 {
	return g.distanceM
}

func (g *Generator) advance(meters float64) {
	g.distanceM += meters
	hr := g.sc.HeadingDeg * math.Pi / 180
	dLat := meters * math.Cos(hr) / earthRadiusM * 180 / math.Pi
	dLon := meters * math.Sin(hr) / (earthRadiusM * math.Cos(g.lat*math.Pi/180)) * 180 / math.Pi
	g.lat += dLat
	g.lon += dLon
}

func (g *Generator) noise(std float64) float64 {
	if std <= 0 {
		return 0
	}
	return g.rng.NormFloat64() * std
}
