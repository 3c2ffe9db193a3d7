// Package model provides core abstractions shared by forestcal estimators.
//
// This package defines the fundamental building blocks used by the
// preprocessing transformers and the tree ensemble:
//
//   - BaseEstimator: fitted-state tracking for embedded transformers
//   - StateManager: concurrency-safe fitted state plus the input dimensions
//     seen at fit time
//   - Regressor / Transformer: the matrix interfaces the pipeline composes
//
// Example usage:
//
//	type MyModel struct {
//		model.BaseEstimator
//		// model-specific fields
//	}
//
//	func (m *MyModel) Fit(X, y mat.Matrix) error {
//		// training logic
//		m.SetFitted() // mark as trained
//		return nil
//	}
package model

// EstimatorState represents the learning state of a model
type EstimatorState int

const (
	// NotFitted indicates the model is not yet trained
	NotFitted EstimatorState = iota
	// Fitted indicates the model has been trained
	Fitted
)

// BaseEstimator is the base structure embedded by transformers.
type BaseEstimator struct {
	// State holds the model's learning state.
	State EstimatorState
}

// IsFitted returns whether the model has been fitted with training data.
//
// Returns:
//   - bool: true if the model is fitted, false otherwise
//
// Example:
//
//	if !encoder.IsFitted() {
//	    if err := encoder.Fit(rows); err != nil {
//	        return err
//	    }
//	}
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as fitted (trained).
//
// Called by model implementations after successful training. Should not be
// called by end users.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to its initial untrained state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}
