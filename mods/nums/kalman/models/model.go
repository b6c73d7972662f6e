// Package models provides process and observation models for driving the
// masked Kalman filter, including common dynamic systems such as the
// constant-velocity model and a Brownian model.
package models

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

type State struct {
	Time       time.Time
	State      mat.Vector
	Covariance mat.Matrix
}

// ProcessModel initializes the hidden state and provides the transition and
// process noise matrices consumed by the prediction step.
type ProcessModel interface {
	InitialState() State
	Transition(dt time.Duration) mat.Matrix
	ProcessNoise(dt time.Duration) mat.Matrix
}

// ObservationModel maps the hidden state to the configured observation
// channels. ObservationMatrix returns H with one row per channel;
// ObservationNoise returns the channel noise covariance R.
type ObservationModel interface {
	ObservationMatrix() mat.Matrix
	ObservationNoise() mat.Matrix
}
