package kalman_test

import (
	"bytes"
	"testing"

	"github.com/machbase/neo-estimator/mods/nums/kalman"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRecorder(t *testing.T) {
	buf := &bytes.Buffer{}
	rec := kalman.NewRecorder(2, 3, 3)
	require.NoError(t, rec.Open(buf))

	rec.Predicted(mat.NewVecDense(2, []float64{1.5, -2.0}))
	rec.Observations(
		mat.NewVecDense(3, []float64{0.1, 0.2, 0.3}),
		map[int]float64{1: 4.25},
	)
	rec.Estimated(mat.NewVecDense(2, []float64{1.75, -1.5}))
	rec.Close()

	expect := "xp_0,xp_1,zp_0,zp_1,zp_2,za_0,za_1,za_2,xe_0,xe_1\n" +
		"1.500,-2.000,0.100,0.200,0.300,,4.250,,1.750,-1.500\n"
	require.Equal(t, expect, buf.String())
}

func TestRecorderEmptyCycle(t *testing.T) {
	buf := &bytes.Buffer{}
	rec := kalman.NewRecorder(1, 2, 1)
	require.NoError(t, rec.Open(buf))

	rec.Predicted(mat.NewVecDense(1, []float64{2.0}))
	rec.Observations(mat.NewVecDense(2, []float64{9.0, 9.0}), nil)
	rec.Estimated(mat.NewVecDense(1, []float64{2.0}))
	rec.Close()

	// observation columns stay, their fields are blank
	expect := "xp_0,zp_0,zp_1,za_0,za_1,xe_0\n" +
		"2.0,,,,,2.0\n"
	require.Equal(t, expect, buf.String())
}

func TestRecorderUnopened(t *testing.T) {
	rec := kalman.NewRecorder(1, 1, 2)
	// row calls on an unopened recorder are no-ops
	rec.Predicted(mat.NewVecDense(1, []float64{1.0}))
	rec.Observations(mat.NewVecDense(1, []float64{1.0}), map[int]float64{0: 1.0})
	rec.Estimated(mat.NewVecDense(1, []float64{1.0}))
	rec.Close()
}

func TestRecorderOpenFileFailure(t *testing.T) {
	rec := kalman.NewRecorder(1, 1, 2)
	err := rec.OpenFile("/no/such/directory/estimate.csv")
	require.Error(t, err)

	// the filter side is unaffected, subsequent calls no-op
	rec.Predicted(mat.NewVecDense(1, []float64{1.0}))
	rec.Estimated(mat.NewVecDense(1, []float64{1.0}))
	rec.Close()
}
