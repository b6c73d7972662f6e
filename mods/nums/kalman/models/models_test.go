package models_test

import (
	"testing"
	"time"

	"github.com/machbase/neo-estimator/mods/nums/kalman/models"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestConstantVelocityModel(t *testing.T) {
	model := models.NewConstantVelocityModel(time.Time{}, mat.NewVecDense(2, []float64{3, 4}),
		models.ConstantVelocityModelConfig{
			InitialVariance:     2.0,
			ProcessVariance:     0.5,
			ObservationVariance: 1.0,
		})

	initial := model.InitialState()
	require.Equal(t, 4, initial.State.Len())
	require.Equal(t, 3.0, initial.State.AtVec(0))
	require.Equal(t, 0.0, initial.State.AtVec(2)) // velocity starts at rest

	a := model.Transition(2 * time.Second)
	require.Equal(t, 2.0, a.At(0, 2))
	require.Equal(t, 2.0, a.At(1, 3))
	require.Equal(t, 1.0, a.At(0, 0))

	q := model.ProcessNoise(2 * time.Second)
	require.Equal(t, 1.0, q.At(0, 0))

	h := model.ObservationMatrix()
	rows, cols := h.Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, 4, cols)

	pos := model.Position(initial.State)
	require.Equal(t, []float64{3, 4}, pos.(*mat.VecDense).RawVector().Data)
	vel := model.Velocity(initial.State)
	require.Equal(t, []float64{0, 0}, vel.(*mat.VecDense).RawVector().Data)
}

func TestBrownianModel(t *testing.T) {
	model := models.NewBrownianModel(time.Time{}, mat.NewVecDense(2, []float64{1, 2}),
		models.BrownianModelConfig{
			InitialVariance:     1.0,
			ProcessVariance:     4.0,
			ObservationVariance: 0.25,
		})

	q := model.ProcessNoise(500 * time.Millisecond)
	require.Equal(t, 2.0, q.At(0, 0))
	require.Equal(t, 0.0, q.At(0, 1))

	h := model.ObservationMatrix()
	require.True(t, mat.Equal(h, mat.NewDense(2, 2, []float64{1, 0, 0, 1})))

	r := model.ObservationNoise()
	require.Equal(t, 0.25, r.At(0, 0))
}

func TestSimpleModel(t *testing.T) {
	model := models.NewSimpleModel(time.Time{}, 7.0, models.SimpleModelConfig{
		InitialVariance:     1.0,
		ProcessVariance:     1.0,
		ObservationVariance: 2.0,
	})

	initial := model.InitialState()
	require.Equal(t, 7.0, model.Value(initial.State))

	h := model.ObservationMatrix()
	rows, cols := h.Dims()
	require.Equal(t, 1, rows)
	require.Equal(t, 1, cols)
}
