package kalman

import (
	"fmt"
	"time"

	"github.com/machbase/neo-estimator/mods/nums/kalman/models"
	"gonum.org/v1/gonum/mat"
)

// Predict advances the state and covariance by the given time step using
// the model's transition and process noise. The model's process noise is
// stored on the filter as Q.
func (f *Filter) Predict(dt time.Duration, model models.ProcessModel) error {
	transition := model.Transition(dt)
	if r, c := transition.Dims(); r != f.nx || c != f.nx {
		return fmt.Errorf("transition matrix has incorrect shape: %dx%d (expected %dx%d)", r, c, f.nx, f.nx)
	}
	noise := model.ProcessNoise(dt)
	if err := f.SetProcessNoise(noise); err != nil {
		return err
	}

	f.x.MulVec(transition, f.x)

	next := mat.NewDense(f.nx, f.nx, nil)
	next.Product(transition, f.p, transition.T())
	f.p.Add(next, f.q)

	return nil
}

// ApplyObservationModel derives the per-cycle observation matrices from the
// model and the current predicted state and installs them on the filter:
// the predicted observation z = H·x, the observation gain matrix C = P·Hᵀ
// and the innovation covariance S = H·P·Hᵀ + R. It must run after Predict
// and before readings are fused with Update.
func (f *Filter) ApplyObservationModel(model models.ObservationModel) error {
	h := model.ObservationMatrix()
	if r, c := h.Dims(); r != f.nz || c != f.nx {
		return fmt.Errorf("observation matrix has incorrect shape: %dx%d (expected %dx%d)", r, c, f.nz, f.nx)
	}
	if err := f.SetObservationNoise(model.ObservationNoise()); err != nil {
		return err
	}

	f.z.MulVec(h, f.x)

	f.c.Mul(f.p, h.T())

	innovation := mat.NewDense(f.nz, f.nz, nil)
	innovation.Product(h, f.p, h.T())
	f.s.Add(innovation, f.r)

	return nil
}
