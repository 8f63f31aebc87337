package calibration

import (
	"errors"
	"fmt"
	"math"
	"sort"

	matrix "github.com/skelterjohn/go.matrix"

	"github.com/wrccoach/stroke_computer/internal/imu"
)

// Automatic PCA axis detection: infer the bow-stern axis from the dominant
// motion variance of in-session samples, with no user action and no need to
// know the mounting orientation.

// motionFloor discards near-rest samples before the covariance step, m/s².
const motionFloor = 1.0

// LowConfidence marks the boundary below which the detected axes are
// surfaced as low-confidence (still usable, never fatal).
const LowConfidence = 0.60

// PCA buffers in-session samples and detects the boat axes from the
// eigenvectors of their covariance.
type PCA struct {
	samples []imu.Sample
}

// NewPCA returns an empty automatic axis detector.
func NewPCA() *PCA {
	return &PCA{}
}

func (p *PCA) Reset() {
	p.samples = p.samples[:0]
}

func (p *PCA) Add(sample imu.Sample) {
	if math.IsNaN(float64(sample.Ax)) || math.IsNaN(float64(sample.Ay)) || math.IsNaN(float64(sample.Az)) {
		return
	}
	p.samples = append(p.samples, sample)
}

// SampleCount reports how many samples have been buffered so far.
func (p *PCA) SampleCount() int {
	return len(p.samples)
}

// Complete estimates gravity as the per-axis median of everything buffered,
// strips it, drops samples below the motion floor, and eigendecomposes the
// covariance of the rest. Dominant eigenvector = bow-stern axis, second =
// port-starboard, third = vertical. Confidence is the dominant eigenvalue's
// share of the first two; below LowConfidence the record is degraded.
func (p *PCA) Complete() (Record, error) {
	if len(p.samples) == 0 {
		return Record{}, errors.New("pca calibration: no samples")
	}

	gvec := p.medianGravity()
	gmag := math.Sqrt(gvec[0]*gvec[0] + gvec[1]*gvec[1] + gvec[2]*gvec[2])

	var moving [][3]float64
	for _, s := range p.samples {
		d := [3]float64{
			float64(s.Ax) - gvec[0],
			float64(s.Ay) - gvec[1],
			float64(s.Az) - gvec[2],
		}
		if math.Sqrt(d[0]*d[0]+d[1]*d[1]+d[2]*d[2]) >= motionFloor {
			moving = append(moving, d)
		}
	}
	if len(moving) < 3 {
		return Record{}, errors.New("pca calibration: not enough motion above floor")
	}

	var mean [3]float64
	for _, d := range moving {
		mean[0] += d[0]
		mean[1] += d[1]
		mean[2] += d[2]
	}
	n := float64(len(moving))
	mean[0] /= n
	mean[1] /= n
	mean[2] /= n

	var cov [3][3]float64
	for _, d := range moving {
		c := [3]float64{d[0] - mean[0], d[1] - mean[1], d[2] - mean[2]}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				cov[i][j] += c[i] * c[j]
			}
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cov[i][j] /= n
		}
	}

	axes, eigs, err := eigenAxes(cov)
	if err != nil {
		return Record{}, fmt.Errorf("pca calibration: %w", err)
	}

	// Orient the frame deterministically: the at-rest accelerometer reads
	// the upward reaction to gravity, so "heave up" aligns with the gravity
	// vector estimate; bow-stern keeps a non-negative long-axis component,
	// and the lateral axis closes a right-handed set.
	if gmag > 0 && dot(axes[2], gvec) < 0 {
		axes[2] = neg(axes[2])
	}
	if axes[0][1] < 0 {
		axes[0] = neg(axes[0])
	}
	axes[1] = cross(axes[2], axes[0])

	confidence := 0.0
	if eigs[0]+eigs[1] > 0 {
		confidence = eigs[0] / (eigs[0] + eigs[1])
	}

	rec := Record{
		GravityMagnitude: gmag,
		SampleCount:      len(p.samples),
		VarianceQuality:  math.Sqrt(eigs[2]), // residual spread off the stroke plane
		CreatedAt:        p.samples[len(p.samples)-1].T,
		Quality:          GradeFromVariance(math.Sqrt(eigs[2])),
		Method:           "pca",
		Axes:             &axes,
		GravityVector:    gvec,
		Confidence:       confidence,
	}
	if confidence < LowConfidence {
		rec.Degraded = true
	}
	return rec, nil
}

func (p *PCA) medianGravity() [3]float64 {
	n := len(p.samples)
	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i, s := range p.samples {
		xs[i] = float64(s.Ax)
		ys[i] = float64(s.Ay)
		zs[i] = float64(s.Az)
	}
	return [3]float64{median(xs), median(ys), median(zs)}
}

func median(vs []float64) float64 {
	sort.Float64s(vs)
	n := len(vs)
	if n%2 == 1 {
		return vs[n/2]
	}
	return (vs[n/2-1] + vs[n/2]) / 2
}

// eigenAxes decomposes a symmetric 3×3 covariance matrix and returns unit
// eigenvectors and eigenvalues sorted by descending eigenvalue.
func eigenAxes(cov [3][3]float64) (axes [3][3]float64, eigs [3]float64, err error) {
	flat := make([]float64, 0, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			flat = append(flat, cov[i][j])
		}
	}
	m := matrix.MakeDenseMatrix(flat, 3, 3)

	vecs, vals, err := m.Eigen()
	if err != nil {
		return axes, eigs, fmt.Errorf("eigendecomposition: %w", err)
	}

	order := []int{0, 1, 2}
	sort.Slice(order, func(a, b int) bool {
		return vals.Get(order[a], order[a]) > vals.Get(order[b], order[b])
	})

	for k, col := range order {
		eigs[k] = vals.Get(col, col)
		v := [3]float64{vecs.Get(0, col), vecs.Get(1, col), vecs.Get(2, col)}
		norm := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
		if norm == 0 {
			return axes, eigs, errors.New("degenerate eigenvector")
		}
		axes[k] = [3]float64{v[0] / norm, v[1] / norm, v[2] / norm}
	}
	return axes, eigs, nil
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func neg(a [3]float64) [3]float64 {
	return [3]float64{-a[0], -a[1], -a[2]}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
