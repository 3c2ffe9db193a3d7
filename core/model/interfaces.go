package model

import "gonum.org/v1/gonum/mat"

// Fitter is anything that can be trained on a feature matrix and a target column.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor produces one prediction per input row as an n×1 matrix.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor is a fitted-state aware regression estimator.
type Regressor interface {
	Fitter
	Predictor
	IsFitted() bool
}

// Transformer learns statistics from X and applies them to new data.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// FeatureImportancer exposes impurity-based importances, one per input column.
type FeatureImportancer interface {
	FeatureImportances() ([]float64, error)
}
