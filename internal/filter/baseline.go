package filter

import "math"

// DefaultBaselineWindowMs is how much recovery-phase history feeds the
// drift estimate.
const DefaultBaselineWindowMs = 3000

// Baseline removes slow drift (wind and current drag) from the conditioned
// surge signal. The estimate is a rolling mean over recovery-phase samples
// only; drive-phase samples are excluded so the signal's own peaks cannot
// bias the correction toward themselves.
type Baseline struct {
	windowMs float64
	times    []float64
	values   []float64
	sum      float64
}

// NewBaseline builds a corrector with the given window in ms.
func NewBaseline(windowMs float64) *Baseline {
	if windowMs <= 0 {
		windowMs = DefaultBaselineWindowMs
	}
	return &Baseline{windowMs: windowMs}
}

// Update corrects one sample. inRecovery reports the detector's current
// phase for this sample; only recovery samples enter the rolling mean, and
// the mean is subtracted from every sample that follows.
func (b *Baseline) Update(t, x float64, inRecovery bool) float64 {
	if math.IsNaN(x) {
		return 0
	}

	corrected := x - b.mean()

	if inRecovery {
		b.times = append(b.times, t)
		b.values = append(b.values, x)
		b.sum += x
		b.evict(t)
	}
	return corrected
}

// Offset returns the current drift estimate.
func (b *Baseline) Offset() float64 {
	return b.mean()
}

func (b *Baseline) Reset() {
	b.times = b.times[:0]
	b.values = b.values[:0]
	b.sum = 0
}

func (b *Baseline) mean() float64 {
	if len(b.values) == 0 {
		return 0
	}
	return b.sum / float64(len(b.values))
}

func (b *Baseline) evict(now float64) {
	i := 0
	for i < len(b.times) && now-b.times[i] > b.windowMs {
		b.sum -= b.values[i]
		i++
	}
	if i > 0 {
		b.times = b.times[i:]
		b.values = b.values[i:]
	}
}
