package stroke

import "sort"

// ThresholdProvider supplies the catch and finish thresholds the detector
// compares the conditioned surge against. Fixed and adaptive variants are
// interchangeable; the detector never branches on which one it got.
type ThresholdProvider interface {
	// Observe feeds one conditioned surge sample to the provider before
	// the detector evaluates it.
	Observe(v float64)
	// Catch is the level surge must cross upward to start a drive.
	Catch() float64
	// Finish is the level surge must fall below to end a drive.
	Finish() float64
}

// Fixed returns user-settable constant thresholds.
type Fixed struct {
	CatchThreshold  float64
	FinishThreshold float64
}

func (f Fixed) Observe(float64) {}
func (f Fixed) Catch() float64  { return f.CatchThreshold }
func (f Fixed) Finish() float64 { return f.FinishThreshold }

// Default thresholds, m/s², matching the fixed-mode session settings.
const (
	DefaultCatchThreshold  = 0.6
	DefaultFinishThreshold = -0.3
)

// adaptiveWindow is the trailing sample count the percentiles are taken
// over (~4 s at 50 Hz).
const adaptiveWindow = 200

// adaptiveWarmup is how many samples the adaptive provider wants before
// trusting its percentiles over the fallback constants.
const adaptiveWarmup = 50

// Adaptive derives thresholds from a trailing window of the signal itself:
// catch at the 90th percentile, finish at the 10th (the floor of the catch
// window). Used in fully-automatic mode where no per-boat tuning exists.
type Adaptive struct {
	window []float64
	next   int
}

// NewAdaptive returns an adaptive provider with an empty window.
func NewAdaptive() *Adaptive {
	return &Adaptive{window: make([]float64, 0, adaptiveWindow)}
}

func (a *Adaptive) Observe(v float64) {
	if len(a.window) < adaptiveWindow {
		a.window = append(a.window, v)
		return
	}
	a.window[a.next] = v
	a.next = (a.next + 1) % adaptiveWindow
}

func (a *Adaptive) Catch() float64 {
	if len(a.window) < adaptiveWarmup {
		return DefaultCatchThreshold
	}
	return a.percentile(0.90)
}

func (a *Adaptive) Finish() float64 {
	if len(a.window) < adaptiveWarmup {
		return DefaultFinishThreshold
	}
	return a.percentile(0.10)
}

func (a *Adaptive) percentile(p float64) float64 {
	sorted := make([]float64, len(a.window))
	copy(sorted, a.window)
	sort.Float64s(sorted)
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
