// Package preprocessing turns a processed dataset.Table into the numeric
// design matrix consumed by the forest, and prepares the target column.
//
// It contains:
//
//   - StandardScaler: zero mean, unit (population) variance per feature
//   - OneHotEncoder: one indicator column per category seen at fit time
//   - ColumnTransformer: routes categorical columns to the encoder and numeric
//     columns to the optional scaler, passing the rest through
//   - HandleMissing: the closed set of missing-value strategies
//   - TransformTarget: target coercion, percentile trimming/clipping and the
//     optional log1p transform
//
// Transformers follow the Fit / Transform / FitTransform pattern. Statistics
// are learned in Fit only, so fitting on the training partition and
// transforming the test partition never leaks test information.
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/forestcal/core/model"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

// StandardScaler はscikit-learn互換の標準化スケーラー
// データを平均0、標準偏差1に変換する
type StandardScaler struct {
	model.BaseEstimator

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（分散0の特徴量は1）
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool
}

// NewStandardScaler creates a new StandardScaler for feature standardization.
//
// Parameters:
//   - withMean: whether to center the data at zero by removing the mean
//   - withStd: whether to divide by the population standard deviation
//
// Returns:
//   - *StandardScaler: A new StandardScaler instance ready for fitting
//
// Example:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	err := scaler.Fit(XTrain)
//	XScaled, err := scaler.Transform(XTest)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit computes the per-column mean and population standard deviation.
// Columns with (near) zero variance get a scale of 1 so they transform to 0.
//
// Errors:
//   - ErrEmptyData: if X has no rows or no columns
func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
	defer fcErrors.Recover(&err, "StandardScaler.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return fcErrors.NewModelError("StandardScaler.Fit", "empty data", fcErrors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)

		if s.WithMean {
			s.Mean[j] = mean
		}

		s.Scale[j] = 1.0
		if s.WithStd {
			std := math.Sqrt(variance)
			// 分散0の場合はゼロ除算を避けるため1のまま
			if std >= 1e-8 {
				s.Scale[j] = std
			}
		}
	}

	s.SetFitted()
	return nil
}

// Transform applies (x - mean) / scale column-wise.
//
// Errors:
//   - NotFittedError: if the scaler hasn't been fitted yet
//   - DimensionError: if X doesn't have the fitted number of columns
func (s *StandardScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer fcErrors.Recover(&err, "StandardScaler.Transform")
	if !s.IsFitted() {
		return nil, fcErrors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, fcErrors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// FitTransform fits the scaler and transforms the training data in one step.
func (s *StandardScaler) FitTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer fcErrors.Recover(&err, "StandardScaler.FitTransform")
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, s.NFeatures)
}
