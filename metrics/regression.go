// Package metrics provides the regression metrics used to judge a trained
// forest against the mean baseline.
//
//   - MSE, RMSE: squared error and its root, in target units
//   - MAE: mean absolute error
//   - R2Score: coefficient of determination
//   - MAPE: mean absolute percentage error, defined only without zero targets
//   - ExplainedVarianceScore: R² ignoring a constant offset of the predictions
//
// Evaluate bundles them for a model and a baseline prediction of the same
// test targets and computes the improvement deltas.
//
//	ev, err := metrics.Evaluate(yTest, yPred, yBaseline)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("R² %.3f (baseline %.3f)\n", ev.Model.R2, ev.Baseline.R2)
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

// pair validates a truth/prediction pair and returns them as slices.
func pair(op string, yTrue, yPred *mat.VecDense) ([]float64, []float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, nil, fcErrors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return nil, nil, fcErrors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return mat.Col(nil, 0, yTrue), mat.Col(nil, 0, yPred), nil
}

// residuals returns t - p element-wise; callers check the lengths.
func residuals(t, p []float64) []float64 {
	out := make([]float64, len(t))
	for i := range t {
		out[i] = t[i] - p[i]
	}
	return out
}

// MSE returns the mean squared error of yPred against yTrue.
//
// Errors:
//   - ValueError: if the vectors are empty
//   - DimensionError: if their lengths differ
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := pair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, d := range residuals(t, p) {
		sum += d * d
	}
	return sum / float64(len(t)), nil
}

// RMSE is the square root of MSE, in the units of the target.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE returns the mean absolute error of yPred against yTrue.
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := pair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, d := range residuals(t, p) {
		sum += math.Abs(d)
	}
	return sum / float64(len(t)), nil
}

// R2Score returns 1 - RSS/TSS. It can be negative when the predictions are
// worse than the mean of yTrue.
//
// When yTrue has no variance the score follows scikit-learn: 1.0 for a perfect
// prediction, 0.0 otherwise. A mean baseline on a constant target therefore
// scores 1.0 rather than failing.
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := pair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	mean := stat.Mean(t, nil)
	var tss, rss float64
	for i := range t {
		tss += (t[i] - mean) * (t[i] - mean)
		rss += (t[i] - p[i]) * (t[i] - p[i])
	}
	return ratioScore(rss, tss), nil
}

// MAPE returns mean(|(yTrue - yPred) / yTrue|) * 100.
//
// It is undefined as soon as a single yTrue is exactly zero; MAPE then returns
// ErrUndefinedMAPE instead of silently skipping those rows.
//
//	mape, err := metrics.MAPE(yTrue, yPred)
//	if errors.Is(err, metrics.ErrUndefinedMAPE) {
//	    // report "n/a"
//	}
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := pair("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i, v := range t {
		if v == 0 {
			return 0, ErrUndefinedMAPE
		}
		sum += math.Abs((v - p[i]) / v)
	}
	return sum / float64(len(t)) * 100, nil
}

// ExplainedVarianceScore returns 1 - Var(yTrue - yPred) / Var(yTrue) with
// population variances. Unlike R² a constant offset of the predictions is
// not penalised. A constant yTrue scores 1.0 when the residuals are constant
// too, else 0.0.
func ExplainedVarianceScore(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := pair("ExplainedVarianceScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	_, varTrue := stat.PopMeanVariance(t, nil)
	_, varDiff := stat.PopMeanVariance(residuals(t, p), nil)
	return ratioScore(varDiff, varTrue), nil
}

// ratioScore is 1 - num/den with the zero-denominator convention of R2Score.
func ratioScore(num, den float64) float64 {
	if den == 0 {
		if num == 0 {
			return 1
		}
		return 0
	}
	return 1 - num/den
}
