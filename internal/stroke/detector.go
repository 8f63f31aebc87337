// Package stroke turns the conditioned surge signal into discrete stroke
// records via a two-state threshold-crossing machine.
package stroke

import "math"

// Phase is the detector state: the drive (power application) or the
// recovery back to the catch.
type Phase uint8

const (
	Recovery Phase = iota
	Drive
)

func (p Phase) String() string {
	if p == Drive {
		return "drive"
	}
	return "recovery"
}

// Record describes one completed catch→catch cycle. Emitted exactly once
// per cycle; immutable. The first record of a session rides on unsettled
// filters and callers are expected to discard it (Index==1).
type Record struct {
	Index          int     `json:"index"`
	CatchTime      float64 `json:"catchTime"`  // ms
	FinishTime     float64 `json:"finishTime"` // ms
	DriveTimeMs    float64 `json:"driveTimeMs"`
	RecoveryTimeMs float64 `json:"recoveryTimeMs"`
	StrokeRateSPM  int     `json:"strokeRateSpm"`
	DrivePercent   float64 `json:"drivePercent"`
}

// Detector is the stroke-boundary state machine. Initial phase is recovery;
// surge crossing above the catch threshold starts a drive, falling below
// the finish threshold ends it, and the next catch closes the cycle and
// emits the record. Fewer than two crossings yields zero records — that is
// an empty result, not an error.
//
// One detector per session, samples in timestamp order, no internal locking.
type Detector struct {
	thresholds ThresholdProvider

	phase      Phase
	catchT     float64
	finishT    float64
	haveCatch  bool
	haveFinish bool
	count      int
}

// NewDetector builds a detector around the given threshold strategy.
func NewDetector(tp ThresholdProvider) *Detector {
	if tp == nil {
		tp = Fixed{CatchThreshold: DefaultCatchThreshold, FinishThreshold: DefaultFinishThreshold}
	}
	return &Detector{thresholds: tp}
}

// Update advances the machine by one conditioned surge sample and returns
// a completed Record when this sample closes a catch→catch cycle. NaN
// samples are skipped so one bad value cannot corrupt the session state.
func (d *Detector) Update(t, surge float64) (Record, bool) {
	if math.IsNaN(surge) {
		return Record{}, false
	}
	d.thresholds.Observe(surge)

	switch d.phase {
	case Recovery:
		if surge > d.thresholds.Catch() {
			d.phase = Drive
			rec, ok := d.closeCycle(t)
			d.catchT = t
			d.haveCatch = true
			d.haveFinish = false
			return rec, ok
		}
	case Drive:
		if surge < d.thresholds.Finish() {
			d.phase = Recovery
			if d.haveCatch && t > d.catchT {
				d.finishT = t
				d.haveFinish = true
			}
		}
	}
	return Record{}, false
}

// closeCycle emits the record for the cycle ending at the new catch time,
// when a full catch→finish→catch sequence with strictly ordered times
// exists.
func (d *Detector) closeCycle(nextCatch float64) (Record, bool) {
	if !d.haveCatch || !d.haveFinish {
		return Record{}, false
	}
	if !(d.catchT < d.finishT && d.finishT < nextCatch) {
		return Record{}, false
	}
	drive := d.finishT - d.catchT
	recovery := nextCatch - d.finishT
	total := drive + recovery

	d.count++
	return Record{
		Index:          d.count,
		CatchTime:      d.catchT,
		FinishTime:     d.finishT,
		DriveTimeMs:    drive,
		RecoveryTimeMs: recovery,
		StrokeRateSPM:  int(math.Round(60000 / total)),
		DrivePercent:   100 * drive / total,
	}, true
}

// Phase reports the current state, consumed by the baseline corrector to
// flag recovery-phase samples.
func (d *Detector) Phase() Phase {
	return d.phase
}

// Count reports how many records have been emitted.
func (d *Detector) Count() int {
	return d.count
}

// Reset returns the machine to its initial state for a new session.
func (d *Detector) Reset() {
	d.phase = Recovery
	d.catchT = 0
	d.finishT = 0
	d.haveCatch = false
	d.haveFinish = false
	d.count = 0
}
