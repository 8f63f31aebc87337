// Package pipeline wires the whole per-session processing chain: IMU sample
// → orientation update → gravity removal and axis transform → baseline
// correction → band-pass → stroke detection, with GPS samples fused into a
// velocity estimate on their own pace.
//
// One Pipeline per session, single writer, every update synchronous and
// O(1). Concurrent sessions take fully independent instances.
package pipeline

import (
	"errors"

	"github.com/wrccoach/stroke_computer/internal/boatframe"
	"github.com/wrccoach/stroke_computer/internal/calibration"
	"github.com/wrccoach/stroke_computer/internal/filter"
	"github.com/wrccoach/stroke_computer/internal/fusion"
	"github.com/wrccoach/stroke_computer/internal/gps"
	"github.com/wrccoach/stroke_computer/internal/imu"
	"github.com/wrccoach/stroke_computer/internal/orientation"
	"github.com/wrccoach/stroke_computer/internal/stroke"
)

// autoCalSamples is how much in-session data automatic mode buffers before
// running PCA axis detection (~12 s at 50 Hz).
const autoCalSamples = 600

// sustainedLowPassHz isolates the acceleration that actually changes boat
// speed before it feeds the velocity predict step. The within-stroke surge
// oscillation integrates to a velocity wobble the 1 Hz GPS correction
// cannot pin down; sustained speed changes live well below the stroke band.
const sustainedLowPassHz = 0.05

// Config carries the per-session tuning. Zero value plus DefaultConfig
// covers the common case.
type Config struct {
	PhoneOrientation boatframe.PhoneOrientation
	// Automatic switches on PCA axis detection and adaptive thresholds;
	// CatchThreshold/FinishThreshold are ignored in that mode.
	Automatic       bool
	CatchThreshold  float64
	FinishThreshold float64

	Alpha            float64 // complementary filter blend
	BandLowHz        float64
	BandHighHz       float64
	DisplayFactor    float64
	BaselineWindowMs float64

	// RecordRaw buffers every raw sample so the session can be saved as
	// a .wrcdata capture afterwards.
	RecordRaw bool
}

// DefaultConfig returns the fixed-threshold rower setup.
func DefaultConfig() Config {
	return Config{
		PhoneOrientation: boatframe.Rower,
		CatchThreshold:   stroke.DefaultCatchThreshold,
		FinishThreshold:  stroke.DefaultFinishThreshold,
		Alpha:            orientation.DefaultAlpha,
		BandLowHz:        filter.DefaultHighPassHz,
		BandHighHz:       filter.DefaultLowPassHz,
		DisplayFactor:    filter.DefaultDisplayFactor,
		BaselineWindowMs: filter.DefaultBaselineWindowMs,
	}
}

// IMUResult is what one IMU sample produces at the pipeline boundary.
type IMUResult struct {
	Orientation orientation.Pose       `json:"orientation"`
	BoatAccel   boatframe.Acceleration `json:"boatAccel"`
	// Surge after baseline correction and band-pass: what the detector saw.
	ConditionedSurge float64 `json:"conditionedSurge"`
	// DisplaySurge is the exponentially smoothed value, display only.
	DisplaySurge float64 `json:"displaySurge"`
	// Stroke is non-nil exactly when this sample completed a cycle.
	Stroke *stroke.Record `json:"stroke,omitempty"`
}

// GPSResult is what one GPS sample produces.
type GPSResult struct {
	FusedVelocity float64 `json:"fusedVelocity"` // m/s
	SplitSec      float64 `json:"splitSec"`      // seconds per 500 m
}

// Pipeline is the per-session processing chain.
type Pipeline struct {
	cfg   Config
	phone boatframe.PhoneOrientation

	orient    *orientation.ComplementaryFilter
	band      *filter.BandPass
	smoother  *filter.Smoother
	baseline  *filter.Baseline
	sustained *filter.LowPass
	detector  *stroke.Detector
	kalman    *fusion.VelocityKalman

	cal        calibration.Record
	calibrated bool
	calWork    calibration.Strategy // active explicit calibration run
	autoPCA    *calibration.PCA     // automatic-mode background detection

	lastIMUT float64
	haveIMUT bool

	strokes []stroke.Record

	rawIMU []imu.Sample
	rawGPS []gps.Sample
}

// New builds a pipeline for one session.
func New(cfg Config) *Pipeline {
	var tp stroke.ThresholdProvider
	if cfg.Automatic {
		tp = stroke.NewAdaptive()
	} else {
		tp = stroke.Fixed{CatchThreshold: cfg.CatchThreshold, FinishThreshold: cfg.FinishThreshold}
	}

	p := &Pipeline{
		cfg:       cfg,
		phone:     cfg.PhoneOrientation,
		orient:    orientation.NewComplementaryFilter(cfg.Alpha),
		band:      filter.NewBandPass(cfg.BandLowHz, cfg.BandHighHz),
		smoother:  filter.NewSmoother(cfg.DisplayFactor),
		baseline:  filter.NewBaseline(cfg.BaselineWindowMs),
		sustained: filter.NewLowPass(sustainedLowPassHz),
		detector:  stroke.NewDetector(tp),
		kalman:    fusion.NewVelocityKalman(),
	}
	if cfg.Automatic {
		p.autoPCA = calibration.NewPCA()
	}
	return p
}

// ProcessIMU runs one raw IMU sample through the chain. Never fails: bad
// samples are absorbed by the individual filters.
func (p *Pipeline) ProcessIMU(s imu.Sample) IMUResult {
	if p.cfg.RecordRaw {
		p.rawIMU = append(p.rawIMU, s)
	}

	pose := p.orient.Update(s)

	if p.autoPCA != nil && !p.calibrated {
		p.autoPCA.Add(s)
		if p.autoPCA.SampleCount() >= autoCalSamples {
			if rec, err := p.autoPCA.Complete(); err == nil {
				p.adopt(rec)
			} else {
				// Not enough motion yet; keep buffering.
				p.autoPCA.Reset()
			}
		}
	}

	accel := boatframe.Transform(s, pose, p.cal, p.phone)

	inRecovery := p.detector.Phase() == stroke.Recovery
	corrected := p.baseline.Update(s.T, accel.Surge, inRecovery)
	conditioned := p.band.Update(s.T, corrected)
	display := p.smoother.Update(conditioned)

	// The kalman never sees the band-passed surge: the band-pass strips
	// exactly the sustained acceleration that changes boat speed. It rides
	// the slow low-pass instead.
	if p.haveIMUT {
		p.kalman.Predict(p.sustained.Update(s.T, accel.Surge), (s.T-p.lastIMUT)/1000)
	}
	p.lastIMUT = s.T
	p.haveIMUT = true

	res := IMUResult{
		Orientation:      pose,
		BoatAccel:        accel,
		ConditionedSurge: conditioned,
		DisplaySurge:     display,
	}
	if rec, ok := p.detector.Update(s.T, conditioned); ok {
		p.strokes = append(p.strokes, rec)
		res.Stroke = &rec
	}
	return res
}

// ProcessGPS folds one GPS fix into the velocity estimate.
func (p *Pipeline) ProcessGPS(s gps.Sample) GPSResult {
	if p.cfg.RecordRaw {
		p.rawGPS = append(p.rawGPS, s)
	}
	p.kalman.UpdateGPS(float64(s.Speed))
	v := p.kalman.Velocity()
	return GPSResult{FusedVelocity: v, SplitSec: fusion.SplitPer500m(v)}
}

// StartCalibration begins an explicit calibration run with the given
// strategy; nil selects static gravity-vector calibration.
func (p *Pipeline) StartCalibration(s calibration.Strategy) {
	if s == nil {
		s = calibration.NewStatic()
	}
	s.Reset()
	p.calWork = s
}

// AddCalibrationSample buffers one at-rest sample into the active run.
func (p *Pipeline) AddCalibrationSample(s imu.Sample) error {
	if p.calWork == nil {
		return errors.New("pipeline: no calibration in progress")
	}
	p.calWork.Add(s)
	return nil
}

// CompleteCalibration finishes the run and makes its record the session's
// active calibration. A degraded record is still adopted — quality is the
// caller's signal, not a failure.
func (p *Pipeline) CompleteCalibration() (calibration.Record, error) {
	if p.calWork == nil {
		return calibration.Record{}, errors.New("pipeline: no calibration in progress")
	}
	rec, err := p.calWork.Complete()
	p.calWork = nil
	if err != nil {
		return calibration.Record{}, err
	}
	p.adopt(rec)
	return rec, nil
}

// adopt makes rec the session's active calibration. Adopting mid-session
// changes the transform under the conditioning chain, so the filters
// restart from the new signal instead of straddling the discontinuity.
func (p *Pipeline) adopt(rec calibration.Record) {
	p.cal = rec
	p.calibrated = true
	p.band.Reset()
	p.baseline.Reset()
	p.smoother.Reset()
	p.sustained.Reset()
}

// CancelCalibration drops an in-progress run, keeping whatever calibration
// was active before it.
func (p *Pipeline) CancelCalibration() {
	p.calWork = nil
}

// Calibrating reports whether an explicit calibration run is open.
func (p *Pipeline) Calibrating() bool {
	return p.calWork != nil
}

// SetCalibration adopts a record decoded from a capture file.
func (p *Pipeline) SetCalibration(rec calibration.Record) {
	p.adopt(rec)
}

// Calibration returns the active record and whether one has been adopted.
func (p *Pipeline) Calibration() (calibration.Record, bool) {
	return p.cal, p.calibrated
}

// Strokes returns all records emitted so far, in session order. The first
// record rides on unsettled filters; callers wanting clean metrics skip
// Index 1.
func (p *Pipeline) Strokes() []stroke.Record {
	return p.strokes
}

// Velocity returns the current fused boat speed, m/s.
func (p *Pipeline) Velocity() float64 {
	return p.kalman.Velocity()
}

// RawSamples hands back the recorded raw streams for capture writing.
// Empty unless Config.RecordRaw was set.
func (p *Pipeline) RawSamples() ([]imu.Sample, []gps.Sample) {
	return p.rawIMU, p.rawGPS
}

// Reset prepares the pipeline for a new session, keeping configuration but
// dropping all state including the calibration.
func (p *Pipeline) Reset() {
	p.orient.Reset()
	p.band.Reset()
	p.smoother.Reset()
	p.baseline.Reset()
	p.sustained.Reset()
	p.detector.Reset()
	p.kalman.Reset()
	p.cal = calibration.Record{}
	p.calibrated = false
	p.calWork = nil
	if p.cfg.Automatic {
		p.autoPCA = calibration.NewPCA()
	}
	p.lastIMUT = 0
	p.haveIMUT = false
	p.strokes = nil
	p.rawIMU = nil
	p.rawGPS = nil
}
