package models

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

type BrownianModelConfig struct {
	InitialVariance     float64
	ProcessVariance     float64
	ObservationVariance float64
}

// BrownianModel models each state variable as an independent random walk
// observed directly, one channel per variable.
type BrownianModel struct {
	initialState State
	dims         int

	transition       *mat.Dense
	observationModel *mat.Dense
	observationNoise *mat.Dense

	cfg BrownianModelConfig
}

func NewBrownianModel(initialTime time.Time, initialState mat.Vector, cfg BrownianModelConfig) *BrownianModel {
	dims := initialState.Len()

	transition := mat.NewDense(dims, dims, nil)
	for i := 0; i < dims; i++ {
		transition.Set(i, i, 1.0)
	}

	initialCovariance := mat.NewDense(dims, dims, nil)
	for i := 0; i < dims; i++ {
		initialCovariance.Set(i, i, cfg.InitialVariance)
	}

	observationModel := mat.NewDense(dims, dims, nil)
	for i := 0; i < dims; i++ {
		observationModel.Set(i, i, 1.0)
	}

	observationNoise := mat.NewDense(dims, dims, nil)
	for i := 0; i < dims; i++ {
		observationNoise.Set(i, i, cfg.ObservationVariance)
	}

	return &BrownianModel{
		dims: dims,
		initialState: State{
			Time:       initialTime,
			State:      initialState,
			Covariance: initialCovariance,
		},
		transition:       transition,
		observationModel: observationModel,
		observationNoise: observationNoise,
		cfg:              cfg,
	}
}

func (m *BrownianModel) InitialState() State {
	return m.initialState
}

func (m *BrownianModel) Transition(dt time.Duration) mat.Matrix {
	return m.transition
}

func (m *BrownianModel) ProcessNoise(dt time.Duration) mat.Matrix {
	result := mat.NewDense(m.dims, m.dims, nil)

	v := m.cfg.ProcessVariance * dt.Seconds()
	for i := 0; i < m.dims; i++ {
		result.Set(i, i, v)
	}

	return result
}

func (m *BrownianModel) ObservationMatrix() mat.Matrix {
	return m.observationModel
}

func (m *BrownianModel) ObservationNoise() mat.Matrix {
	return m.observationNoise
}

func (m *BrownianModel) Value(state mat.Vector) mat.Vector {
	return state
}
