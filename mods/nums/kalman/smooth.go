package kalman

import (
	"fmt"
	"time"

	"github.com/machbase/neo-estimator/mods/nums/kalman/models"
	"gonum.org/v1/gonum/mat"
)

// Cycle is one estimation step of a recorded stream: a time step and the
// readings that arrived during it, keyed by channel index. Readings may
// cover any subset of the configured channels, including none.
type Cycle struct {
	Dt       time.Duration
	Readings map[int]float64
}

type stateChange struct {
	// The transition used to advance the model from the previous
	// a posteriori estimate to the current a priori estimate.
	// x_{k|k-1} = F_k x_{k-1}
	modelTransition mat.Matrix

	// State before readings fused, x_{k|k-1}, P_{k|k-1}
	aPrioriState      mat.Vector
	aPrioriCovariance mat.Matrix

	// State after readings fused, x_{k|k}, P_{k|k}
	aPosterioriState      mat.Vector
	aPosterioriCovariance mat.Matrix

	time time.Time
}

// Smoother implements Rauch-Tung-Striebel smoothing over a recorded
// sequence of masked estimation cycles.
type Smoother struct {
	process     models.ProcessModel
	observation models.ObservationModel
}

// NewSmoother creates a new smoother for the given process and observation
// models.
func NewSmoother(process models.ProcessModel, observation models.ObservationModel) *Smoother {
	return &Smoother{
		process:     process,
		observation: observation,
	}
}

// Smooth computes optimal estimates of the model states by using the whole
// recorded stream. A regular forward pass of the masked filter is followed
// by a backwards Rauch-Tung-Striebel pass, so each state is estimated from
// the entire history of the process, including future observations.
// Cycles without readings advance the model without a measurement update.
func (sm *Smoother) Smooth(cycles ...Cycle) ([]models.State, error) {
	n := len(cycles)
	if n == 0 {
		return make([]models.State, 0), nil
	}

	ss, err := sm.computeForwardsStateChanges(cycles...)
	if err != nil {
		return nil, err
	}

	dims := ss[0].aPrioriState.Len()
	c := mat.NewDense(dims, dims, nil)
	aPrioriCovarianceInv := mat.NewDense(dims, dims, nil)

	result := make([]models.State, n)
	result[n-1].Time = ss[n-1].time
	result[n-1].State = ss[n-1].aPosterioriState
	result[n-1].Covariance = ss[n-1].aPosterioriCovariance

	x := mat.NewVecDense(dims, nil)
	p := mat.NewDense(dims, dims, nil)

	for i := n - 2; i >= 0; i-- {
		if err := aPrioriCovarianceInv.Inverse(ss[i+1].aPrioriCovariance); err != nil {
			return nil, fmt.Errorf("a priori covariance is not invertible at cycle %d: %w", i+1, err)
		}

		c.Product(
			ss[i].aPosterioriCovariance,
			ss[i+1].modelTransition.T(),
			aPrioriCovarianceInv,
		)

		x.SubVec(result[i+1].State, ss[i+1].aPrioriState)
		x.MulVec(c, x)
		x.AddVec(ss[i].aPosterioriState, x)

		p.Sub(result[i+1].Covariance, ss[i+1].aPrioriCovariance)
		p.Product(c, p, c.T())
		p.Add(ss[i].aPosterioriCovariance, p)

		result[i].Time = ss[i].time
		result[i].State = mat.VecDenseCopyOf(x)
		result[i].Covariance = mat.DenseCopyOf(p)
	}

	return result, nil
}

// computeForwardsStateChanges runs the regular masked filter over the given
// cycles.
func (sm *Smoother) computeForwardsStateChanges(cycles ...Cycle) ([]stateChange, error) {
	initial := sm.process.InitialState()
	channels, _ := sm.observation.ObservationMatrix().Dims()

	filter := NewFilter(initial.State.Len(), channels)
	if err := filter.Reset(initial.State, initial.Covariance); err != nil {
		return nil, err
	}

	t := initial.Time
	result := make([]stateChange, len(cycles))

	for i, cycle := range cycles {
		change := &result[i]
		t = t.Add(cycle.Dt)
		change.time = t

		change.modelTransition = mat.DenseCopyOf(sm.process.Transition(cycle.Dt))
		if err := filter.Predict(cycle.Dt, sm.process); err != nil {
			return nil, err
		}

		change.aPrioriState = filter.StateVector()
		change.aPrioriCovariance = filter.CovarianceMatrix()

		if err := filter.ApplyObservationModel(sm.observation); err != nil {
			return nil, err
		}
		for ch, v := range cycle.Readings {
			if err := filter.Observe(ch, v); err != nil {
				return nil, err
			}
		}
		if filter.HasObservations() {
			if err := filter.Update(); err != nil {
				return nil, err
			}
		}

		change.aPosterioriState = filter.StateVector()
		change.aPosterioriCovariance = filter.CovarianceMatrix()
	}

	return result, nil
}
