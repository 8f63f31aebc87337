// Package filter holds the stateful single-input digital filters that
// condition the surge signal ahead of stroke detection. Every filter
// recomputes Δt from sample timestamps; a fixed rate is never assumed.
package filter

import "math"

// Defaults for the stroke band. 0.3-1.2 Hz passes 18-72 SPM.
const (
	DefaultHighPassHz    = 0.3
	DefaultLowPassHz     = 1.2
	DefaultDisplayFactor = 0.85
)

// HighPass is a first-order high-pass filter, removing drift and DC.
type HighPass struct {
	rc          float64
	prevIn      float64
	out         float64
	lastT       float64
	initialized bool
}

// NewHighPass builds a high-pass with the given cutoff frequency in Hz.
func NewHighPass(cutoffHz float64) *HighPass {
	return &HighPass{rc: 1 / (2 * math.Pi * cutoffHz)}
}

// Update advances the filter by one sample at time t (ms) and returns the
// filtered value. Non-positive Δt or NaN input holds the previous output.
func (f *HighPass) Update(t, x float64) float64 {
	if math.IsNaN(x) {
		return f.out
	}
	if !f.initialized {
		f.prevIn = x
		f.out = 0
		f.lastT = t
		f.initialized = true
		return 0
	}
	dt := (t - f.lastT) / 1000.0
	f.lastT = t
	if dt <= 0 {
		return f.out
	}
	alpha := f.rc / (f.rc + dt)
	f.out = alpha * (f.out + x - f.prevIn)
	f.prevIn = x
	return f.out
}

func (f *HighPass) Reset() {
	*f = HighPass{rc: f.rc}
}

// LowPass is a first-order low-pass filter, removing sensor noise.
type LowPass struct {
	rc          float64
	out         float64
	lastT       float64
	initialized bool
}

// NewLowPass builds a low-pass with the given cutoff frequency in Hz.
func NewLowPass(cutoffHz float64) *LowPass {
	return &LowPass{rc: 1 / (2 * math.Pi * cutoffHz)}
}

func (f *LowPass) Update(t, x float64) float64 {
	if math.IsNaN(x) {
		return f.out
	}
	if !f.initialized {
		f.out = x
		f.lastT = t
		f.initialized = true
		return f.out
	}
	dt := (t - f.lastT) / 1000.0
	f.lastT = t
	if dt <= 0 {
		return f.out
	}
	alpha := dt / (f.rc + dt)
	f.out += alpha * (x - f.out)
	return f.out
}

func (f *LowPass) Reset() {
	*f = LowPass{rc: f.rc}
}

// BandPass cascades a high-pass and a low-pass to isolate the stroke band.
type BandPass struct {
	hp *HighPass
	lp *LowPass
}

// NewBandPass builds the detection cascade: high-pass at lowHz, then
// low-pass at highHz.
func NewBandPass(lowHz, highHz float64) *BandPass {
	return &BandPass{hp: NewHighPass(lowHz), lp: NewLowPass(highHz)}
}

func (f *BandPass) Update(t, x float64) float64 {
	return f.lp.Update(t, f.hp.Update(t, x))
}

func (f *BandPass) Reset() {
	f.hp.Reset()
	f.lp.Reset()
}

// Smoother is the exponential low-pass used for display only, never for
// detection.
type Smoother struct {
	factor      float64
	out         float64
	initialized bool
}

// NewSmoother builds a display smoother; factor near 1 smooths harder.
func NewSmoother(factor float64) *Smoother {
	if factor <= 0 || factor >= 1 {
		factor = DefaultDisplayFactor
	}
	return &Smoother{factor: factor}
}

func (s *Smoother) Update(x float64) float64 {
	if math.IsNaN(x) {
		return s.out
	}
	if !s.initialized {
		s.out = x
		s.initialized = true
		return s.out
	}
	s.out = s.factor*s.out + (1-s.factor)*x
	return s.out
}

func (s *Smoother) Reset() {
	s.out = 0
	s.initialized = false
}
