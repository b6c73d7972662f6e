package kalman_test

import (
	"testing"

	"github.com/machbase/neo-estimator/mods/nums/kalman"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewFilterDefaults(t *testing.T) {
	f := kalman.NewFilter(3, 2)
	require.Equal(t, 3, f.StateDims())
	require.Equal(t, 2, f.Channels())

	for i := 0; i < 3; i++ {
		v, err := f.State(i)
		require.NoError(t, err)
		require.Equal(t, 0.0, v)
		for j := 0; j < 3; j++ {
			p, err := f.Covariance(i, j)
			require.NoError(t, err)
			if i == j {
				require.Equal(t, 1.0, p)
			} else {
				require.Equal(t, 0.0, p)
			}
		}
	}

	q := f.ProcessNoise()
	r := f.ObservationNoise()
	require.True(t, mat.Equal(q, eye(3)))
	require.True(t, mat.Equal(r, eye(2)))
}

func TestStateBounds(t *testing.T) {
	f := kalman.NewFilter(2, 3)

	_, err := f.State(2)
	require.Error(t, err)
	_, err = f.State(-1)
	require.Error(t, err)
	require.Error(t, f.SetState(2, 1.0))

	require.NoError(t, f.SetState(1, 42.0))
	v, err := f.State(1)
	require.NoError(t, err)
	require.Equal(t, 42.0, v)
}

func TestCovarianceBounds(t *testing.T) {
	f := kalman.NewFilter(2, 3)

	_, err := f.Covariance(2, 0)
	require.Error(t, err)
	_, err = f.Covariance(0, 2)
	require.Error(t, err)
	require.Error(t, f.SetCovariance(0, 2, 1.0))
	require.Error(t, f.SetCovariance(2, 0, 1.0))

	// a single element write does not have to keep the matrix symmetric
	require.NoError(t, f.SetCovariance(0, 1, 0.5))
	v, err := f.Covariance(0, 1)
	require.NoError(t, err)
	require.Equal(t, 0.5, v)
	v, err = f.Covariance(1, 0)
	require.NoError(t, err)
	require.Equal(t, 0.0, v)
}

func TestObserveBounds(t *testing.T) {
	f := kalman.NewFilter(2, 3)

	require.Error(t, f.Observe(3, 1.0))
	require.Error(t, f.Observe(-1, 1.0))
	require.False(t, f.HasObservations())

	require.NoError(t, f.Observe(2, 1.0))
	require.True(t, f.HasObservations())
	require.True(t, f.HasObservation(2))
	require.False(t, f.HasObservation(0))
}

func TestResetRoundTrip(t *testing.T) {
	f := kalman.NewFilter(2, 1)

	x0 := mat.NewVecDense(2, []float64{1.5, -2.5})
	p0 := mat.NewDense(2, 2, []float64{4, 0.25, 0.25, 9})
	require.NoError(t, f.Reset(x0, p0))

	require.True(t, mat.Equal(x0, f.StateVector()))
	require.True(t, mat.Equal(p0, f.CovarianceMatrix()))
}

func TestResetDimensionMismatch(t *testing.T) {
	f := kalman.NewFilter(2, 1)
	require.NoError(t, f.SetState(0, 7.0))

	badX := mat.NewVecDense(3, nil)
	badP := mat.NewDense(3, 3, nil)
	require.Error(t, f.Reset(badX, mat.NewDense(2, 2, nil)))
	require.Error(t, f.Reset(mat.NewVecDense(2, nil), badP))

	// no partial mutation on failure
	v, err := f.State(0)
	require.NoError(t, err)
	require.Equal(t, 7.0, v)
}

func TestModelMatrixSetters(t *testing.T) {
	f := kalman.NewFilter(2, 3)

	require.Error(t, f.SetProcessNoise(mat.NewDense(3, 3, nil)))
	require.Error(t, f.SetObservationNoise(mat.NewDense(2, 2, nil)))
	require.Error(t, f.SetObservationMatrix(mat.NewDense(3, 2, nil)))
	require.Error(t, f.SetPredictedObservation(mat.NewVecDense(2, nil)))
	require.Error(t, f.SetInnovationCovariance(mat.NewDense(2, 3, nil)))

	require.NoError(t, f.SetProcessNoise(mat.NewDense(2, 2, nil)))
	require.NoError(t, f.SetObservationNoise(eye(3)))
	require.NoError(t, f.SetObservationMatrix(mat.NewDense(2, 3, nil)))
	require.NoError(t, f.SetPredictedObservation(mat.NewVecDense(3, nil)))
	require.NoError(t, f.SetInnovationCovariance(eye(3)))
}

func eye(n int) *mat.Dense {
	result := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		result.Set(i, i, 1.0)
	}
	return result
}
