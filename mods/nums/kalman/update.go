package kalman

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Observe posts a reading for the given channel into the current cycle.
// Posting the same channel twice replaces the earlier reading. Readings
// accumulate until Update drains them.
func (f *Filter) Observe(channel int, value float64) error {
	if channel < 0 || channel >= f.nz {
		return fmt.Errorf("observation channel out of range: %d (channels %d)", channel, f.nz)
	}
	f.observations[channel] = value
	return nil
}

// HasObservations reports whether any channel has posted a reading in the
// current cycle.
func (f *Filter) HasObservations() bool {
	return len(f.observations) > 0
}

// HasObservation reports whether the given channel has posted a reading in
// the current cycle.
func (f *Filter) HasObservation(channel int) bool {
	_, ok := f.observations[channel]
	return ok
}

// Observations returns the pending readings of the current cycle keyed by
// channel index. The returned map is a copy.
func (f *Filter) Observations() map[int]float64 {
	result := make(map[int]float64, len(f.observations))
	for ch, v := range f.observations {
		result[ch] = v
	}
	return result
}

// Update fuses the posted readings into the state and covariance, using
// only the rows and columns of the innovation covariance and observation
// matrix that belong to channels with a reading. Channels without a reading
// contribute nothing to the gain and are not penalized in the covariance.
// The posted readings are drained on success.
//
// Callers should check HasObservations first; with no pending readings the
// state is left as is but the stabilization pass still runs and may adjust
// the covariance.
//
// A singular or ill-conditioned masked innovation covariance is returned as
// an error and leaves the state, covariance and pending readings unmodified.
func (f *Filter) Update() error {
	m := len(f.observations)
	if m == 0 {
		f.stabilize()
		return nil
	}

	channels := make([]int, 0, m)
	for ch := range f.observations {
		channels = append(channels, ch)
	}
	sort.Ints(channels)

	// Masked views of S and C covering only the reporting channels.
	sm := mat.NewDense(m, m, nil)
	cm := mat.NewDense(f.nx, m, nil)
	for j, cj := range channels {
		for i, ci := range channels {
			sm.Set(i, j, f.s.At(ci, cj))
		}
		for i := 0; i < f.nx; i++ {
			cm.Set(i, j, f.c.At(i, cj))
		}
	}

	smInv := mat.NewDense(m, m, nil)
	if err := smInv.Inverse(sm); err != nil {
		return fmt.Errorf("masked innovation covariance is not invertible: %w", err)
	}

	// Kalman gain over the reporting channels.
	gain := mat.NewDense(f.nx, m, nil)
	gain.Mul(cm, smInv)

	// Innovation: measured minus predicted, per reporting channel.
	innovation := mat.NewVecDense(m, nil)
	for i, ch := range channels {
		innovation.SetVec(i, f.observations[ch]-f.z.AtVec(ch))
	}

	correction := mat.NewVecDense(f.nx, nil)
	correction.MulVec(gain, innovation)
	f.x.AddVec(f.x, correction)

	shrink := mat.NewDense(f.nx, f.nx, nil)
	shrink.Product(gain, sm, gain.T())
	f.p.Sub(f.p, shrink)

	f.stabilize()

	clear(f.observations)
	return nil
}

// stabilize repairs numerical drift in the covariance: it symmetrizes the
// matrix, zeroes off-diagonal entries below SnapEpsilon and inflates the
// diagonal until every row is strictly diagonally dominant. Given the
// symmetrization, row-wise diagonal dominance is sufficient for positive
// semi-definiteness.
func (f *Filter) stabilize() {
	// (P + Pt) / 2, through a scratch copy so the transpose is read from
	// stable storage.
	f.txx.Copy(f.p.T())
	f.p.Add(f.p, f.txx)
	f.p.Scale(0.5, f.p)

	for i := 0; i < f.nx; i++ {
		rowSum := 0.0
		for j := 0; j < f.nx; j++ {
			if i == j {
				continue
			}
			if v := f.p.At(i, j); math.Abs(v) < f.SnapEpsilon {
				f.p.Set(i, j, 0)
			} else {
				rowSum += math.Abs(v)
			}
		}
		if f.p.At(i, i) <= rowSum {
			f.p.Set(i, i, rowSum+f.DominanceMargin)
		}
	}
}
