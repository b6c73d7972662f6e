// Package kalman implements a discrete-time Kalman state estimator for
// multi-sensor streams with partial observability. At each cycle any subset
// of the configured channels may report a reading; the filter fuses exactly
// the reported subset and leaves the estimate for silent channels untouched.
// A stabilization pass keeps the covariance symmetric and positive
// semi-definite over long runs.
package kalman

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const defaultStabilizeEpsilon = 1e-3

// Filter carries the state vector, its covariance and the model matrices
// supplied by the prediction and observation steps, together with the
// pending per-channel readings of the current cycle.
//
// A Filter is not safe for concurrent use. Dimensions are fixed at
// construction.
type Filter struct {
	nx int // state dimensions
	nz int // configured channels

	x *mat.VecDense // state
	p *mat.Dense    // state covariance, nx x nx
	q *mat.Dense    // process noise, nx x nx
	r *mat.Dense    // observation noise, nz x nz
	c *mat.Dense    // observation gain matrix, nx x nz
	z *mat.VecDense // predicted observation per channel
	s *mat.Dense    // innovation covariance, nz x nz

	observations map[int]float64

	// SnapEpsilon is the magnitude below which off-diagonal covariance
	// entries are zeroed by the stabilization pass. DominanceMargin is
	// added to the diagonal when a row fails strict diagonal dominance.
	SnapEpsilon     float64
	DominanceMargin float64

	txx *mat.Dense // scratch, nx x nx
}

// NewFilter returns a Filter for stateDims state variables and channels
// observation channels. The state starts at zero with identity covariance,
// process and observation noise start as identity, the observation matrices
// start as zero.
func NewFilter(stateDims, channels int) *Filter {
	f := &Filter{
		nx:              stateDims,
		nz:              channels,
		x:               mat.NewVecDense(stateDims, nil),
		p:               eye(stateDims),
		q:               eye(stateDims),
		r:               eye(channels),
		c:               mat.NewDense(stateDims, channels, nil),
		z:               mat.NewVecDense(channels, nil),
		s:               mat.NewDense(channels, channels, nil),
		observations:    map[int]float64{},
		SnapEpsilon:     defaultStabilizeEpsilon,
		DominanceMargin: defaultStabilizeEpsilon,
		txx:             mat.NewDense(stateDims, stateDims, nil),
	}
	return f
}

// StateDims returns the number of state variables.
func (f *Filter) StateDims() int {
	return f.nx
}

// Channels returns the number of configured observation channels.
func (f *Filter) Channels() int {
	return f.nz
}

// State returns the value of a single state variable.
func (f *Filter) State(index int) (float64, error) {
	if index < 0 || index >= f.nx {
		return 0, fmt.Errorf("state index out of range: %d (state dims %d)", index, f.nx)
	}
	return f.x.AtVec(index), nil
}

// SetState overwrites the value of a single state variable.
func (f *Filter) SetState(index int, value float64) error {
	if index < 0 || index >= f.nx {
		return fmt.Errorf("state index out of range: %d (state dims %d)", index, f.nx)
	}
	f.x.SetVec(index, value)
	return nil
}

// Covariance returns a single element of the state covariance.
func (f *Filter) Covariance(i, j int) (float64, error) {
	if i < 0 || i >= f.nx || j < 0 || j >= f.nx {
		return 0, fmt.Errorf("covariance index out of range: (%d,%d) (state dims %d)", i, j, f.nx)
	}
	return f.p.At(i, j), nil
}

// SetCovariance overwrites a single element of the state covariance.
// Symmetry is not enforced on a scalar write; it is restored by the
// stabilization pass of the next update.
func (f *Filter) SetCovariance(i, j int, value float64) error {
	if i < 0 || i >= f.nx || j < 0 || j >= f.nx {
		return fmt.Errorf("covariance index out of range: (%d,%d) (state dims %d)", i, j, f.nx)
	}
	f.p.Set(i, j, value)
	return nil
}

// StateVector returns a copy of the state vector.
func (f *Filter) StateVector() *mat.VecDense {
	return mat.VecDenseCopyOf(f.x)
}

// CovarianceMatrix returns a copy of the state covariance.
func (f *Filter) CovarianceMatrix() *mat.Dense {
	return mat.DenseCopyOf(f.p)
}

// Reset replaces the state vector and covariance in one step.
// Neither is modified when the dimensions disagree with the filter.
func (f *Filter) Reset(x0 mat.Vector, p0 mat.Matrix) error {
	if x0.Len() != f.nx {
		return fmt.Errorf("initial state has incorrect number of entries: %d (expected %d)", x0.Len(), f.nx)
	}
	if r, c := p0.Dims(); r != f.nx || c != f.nx {
		return fmt.Errorf("initial covariance has incorrect shape: %dx%d (expected %dx%d)", r, c, f.nx, f.nx)
	}
	f.x.CopyVec(x0)
	f.p.Copy(p0)
	return nil
}

// ProcessNoise returns a copy of the process noise matrix Q.
func (f *Filter) ProcessNoise() *mat.Dense {
	return mat.DenseCopyOf(f.q)
}

// SetProcessNoise replaces the process noise matrix Q. The masked update
// does not read Q; it is consumed by the prediction step.
func (f *Filter) SetProcessNoise(q mat.Matrix) error {
	if r, c := q.Dims(); r != f.nx || c != f.nx {
		return fmt.Errorf("process noise has incorrect shape: %dx%d (expected %dx%d)", r, c, f.nx, f.nx)
	}
	f.q.Copy(q)
	return nil
}

// ObservationNoise returns a copy of the observation noise matrix R.
func (f *Filter) ObservationNoise() *mat.Dense {
	return mat.DenseCopyOf(f.r)
}

// SetObservationNoise replaces the observation noise matrix R. The masked
// update does not read R directly; the observation step folds it into the
// innovation covariance.
func (f *Filter) SetObservationNoise(r mat.Matrix) error {
	if rr, cc := r.Dims(); rr != f.nz || cc != f.nz {
		return fmt.Errorf("observation noise has incorrect shape: %dx%d (expected %dx%d)", rr, cc, f.nz, f.nz)
	}
	f.r.Copy(r)
	return nil
}

// ObservationMatrix returns a copy of the observation gain matrix C.
func (f *Filter) ObservationMatrix() *mat.Dense {
	return mat.DenseCopyOf(f.c)
}

// PredictedObservation returns a copy of the predicted observation vector z.
func (f *Filter) PredictedObservation() *mat.VecDense {
	return mat.VecDenseCopyOf(f.z)
}

// InnovationCovariance returns a copy of the innovation covariance matrix S.
func (f *Filter) InnovationCovariance() *mat.Dense {
	return mat.DenseCopyOf(f.s)
}

// SetObservationMatrix replaces the observation gain matrix C. Column j is
// the sensitivity of channel j's predicted reading to the state.
func (f *Filter) SetObservationMatrix(c mat.Matrix) error {
	if r, cc := c.Dims(); r != f.nx || cc != f.nz {
		return fmt.Errorf("observation matrix has incorrect shape: %dx%d (expected %dx%d)", r, cc, f.nx, f.nz)
	}
	f.c.Copy(c)
	return nil
}

// SetPredictedObservation replaces the predicted observation vector z,
// which holds the model's predicted reading for every channel whether or
// not the channel reports this cycle.
func (f *Filter) SetPredictedObservation(z mat.Vector) error {
	if z.Len() != f.nz {
		return fmt.Errorf("predicted observation has incorrect number of entries: %d (expected %d)", z.Len(), f.nz)
	}
	f.z.CopyVec(z)
	return nil
}

// SetInnovationCovariance replaces the innovation covariance matrix S.
func (f *Filter) SetInnovationCovariance(s mat.Matrix) error {
	if r, c := s.Dims(); r != f.nz || c != f.nz {
		return fmt.Errorf("innovation covariance has incorrect shape: %dx%d (expected %dx%d)", r, c, f.nz, f.nz)
	}
	f.s.Copy(s)
	return nil
}

func eye(n int) *mat.Dense {
	result := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		result.Set(i, i, 1.0)
	}
	return result
}
