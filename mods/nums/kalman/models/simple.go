package models

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

type SimpleModelConfig struct {
	InitialVariance     float64
	ProcessVariance     float64
	ObservationVariance float64
}

// SimpleModel provides the most basic example of modelling a Brownian time
// series in a single dimension. This is just a wrapper around the
// BrownianModel, with a simplified interface that operates directly on
// floating point values rather than on vectors.
type SimpleModel struct {
	model *BrownianModel
}

func NewSimpleModel(initialTime time.Time, initialValue float64, cfg SimpleModelConfig) *SimpleModel {
	return &SimpleModel{
		model: NewBrownianModel(
			initialTime,
			mat.NewVecDense(1, []float64{initialValue}),
			BrownianModelConfig{
				InitialVariance:     cfg.InitialVariance,
				ProcessVariance:     cfg.ProcessVariance,
				ObservationVariance: cfg.ObservationVariance,
			},
		),
	}
}

func (s *SimpleModel) InitialState() State {
	return s.model.initialState
}

func (s *SimpleModel) Transition(dt time.Duration) mat.Matrix {
	return s.model.Transition(dt)
}

func (s *SimpleModel) ProcessNoise(dt time.Duration) mat.Matrix {
	return s.model.ProcessNoise(dt)
}

func (s *SimpleModel) ObservationMatrix() mat.Matrix {
	return s.model.ObservationMatrix()
}

func (s *SimpleModel) ObservationNoise() mat.Matrix {
	return s.model.ObservationNoise()
}

// Value is a helper to extract the current value from the hidden state.
func (*SimpleModel) Value(state mat.Vector) float64 {
	return state.AtVec(0)
}
