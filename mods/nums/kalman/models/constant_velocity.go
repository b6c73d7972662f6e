package models

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// ConstantVelocityModelConfig is used to set the variance of the process,
// the variance of the first estimate and the variance of the position
// channels. It is assumed that the covariance of the state is a scaled
// identity matrix, so that the variance of each component of the position
// and velocity are identical.
type ConstantVelocityModelConfig struct {
	InitialVariance     float64
	ProcessVariance     float64
	ObservationVariance float64
}

// ConstantVelocityModel models a particle moving over time with state
// modelled by position and velocity. Each position component is an
// observation channel; velocity is hidden.
type ConstantVelocityModel struct {
	initialState State
	dims         int
	stateDims    int
	cfg          ConstantVelocityModelConfig

	observationModel *mat.Dense
	observationNoise *mat.Dense
}

// NewConstantVelocityModel initialises a constant velocity model.
func NewConstantVelocityModel(initialTime time.Time, initialPosition mat.Vector, cfg ConstantVelocityModelConfig) *ConstantVelocityModel {
	dims := initialPosition.Len()
	stateDims := 2 * dims

	initialCovariance := mat.NewDense(stateDims, stateDims, nil)
	for i := 0; i < stateDims; i++ {
		initialCovariance.Set(i, i, cfg.InitialVariance)
	}

	initialState := mat.NewVecDense(stateDims, nil)
	for i := 0; i < dims; i++ {
		initialState.SetVec(i, initialPosition.AtVec(i))
	}

	observationModel := mat.NewDense(dims, stateDims, nil)
	for i := 0; i < dims; i++ {
		observationModel.Set(i, i, 1.0)
	}

	observationNoise := mat.NewDense(dims, dims, nil)
	for i := 0; i < dims; i++ {
		observationNoise.Set(i, i, cfg.ObservationVariance)
	}

	return &ConstantVelocityModel{
		dims:      dims,
		stateDims: stateDims,
		initialState: State{
			Time:       initialTime,
			State:      initialState,
			Covariance: initialCovariance,
		},
		cfg:              cfg,
		observationModel: observationModel,
		observationNoise: observationNoise,
	}
}

// InitialState initializes the model.
func (m *ConstantVelocityModel) InitialState() State {
	return m.initialState
}

// Transition returns the linear transformation that advances the model for
// the given time step.
func (m *ConstantVelocityModel) Transition(dt time.Duration) mat.Matrix {
	result := mat.NewDense(m.stateDims, m.stateDims, nil)
	for i := 0; i < m.stateDims; i++ {
		result.Set(i, i, 1.0)
	}

	dts := dt.Seconds()
	for i := 0; i < m.dims; i++ {
		result.Set(i, m.dims+i, dts)
	}

	return result
}

// ProcessNoise returns the covariance of the process noise for the given
// time step. Note: this covariance is very simple, there are better ways to
// model the process noise for constant velocity models.
func (m *ConstantVelocityModel) ProcessNoise(dt time.Duration) mat.Matrix {
	result := mat.NewDense(m.stateDims, m.stateDims, nil)
	v := dt.Seconds() * m.cfg.ProcessVariance

	for i := 0; i < m.stateDims; i++ {
		result.Set(i, i, v)
	}

	return result
}

// ObservationMatrix returns H mapping the state to the position channels.
func (m *ConstantVelocityModel) ObservationMatrix() mat.Matrix {
	return m.observationModel
}

// ObservationNoise returns the position channel noise covariance.
func (m *ConstantVelocityModel) ObservationNoise() mat.Matrix {
	return m.observationNoise
}

// Position is a helper to read the position value from a state vector for
// this model.
func (m *ConstantVelocityModel) Position(state mat.Vector) mat.Vector {
	if state.Len() != m.stateDims {
		panic(fmt.Sprintf("state vector has incorrect number of entries: %d (expected %d)", state.Len(), m.stateDims))
	}

	result := mat.NewVecDense(m.dims, nil)
	for i := 0; i < m.dims; i++ {
		result.SetVec(i, state.AtVec(i))
	}

	return result
}

func (m *ConstantVelocityModel) Velocity(state mat.Vector) mat.Vector {
	if state.Len() != m.stateDims {
		panic(fmt.Sprintf("state vector has incorrect number of entries: %d (expected %d)", state.Len(), m.stateDims))
	}

	result := mat.NewVecDense(m.dims, nil)
	for i := 0; i < m.dims; i++ {
		result.SetVec(i, state.AtVec(i+m.dims))
	}

	return result
}
