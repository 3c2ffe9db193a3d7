package metrics

import (
	"gonum.org/v1/gonum/mat"

	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

// ErrUndefinedMAPE is returned by MAPE when a true value is exactly zero.
var ErrUndefinedMAPE = fcErrors.New("MAPE undefined: target contains zero values")

// MAPECaveat is the caveat Evaluate records when MAPE is undefined.
const MAPECaveat = "MAPE not reported: the test target contains zero values"

// Scores are the error metrics of one set of predictions.
type Scores struct {
	MAE               float64  `json:"mae"`
	MSE               float64  `json:"mse"`
	RMSE              float64  `json:"rmse"`
	R2                float64  `json:"r2"`
	ExplainedVariance float64  `json:"explained_variance"`
	MAPE              *float64 `json:"mape"` // nil when undefined
}

// Evaluation compares the model against the mean baseline on the same test
// targets. Positive deltas mean the model is better.
type Evaluation struct {
	Model    Scores `json:"model"`
	Baseline Scores `json:"baseline"`

	MAEDelta  float64 `json:"mae_delta"`  // baseline - model
	RMSEDelta float64 `json:"rmse_delta"` // baseline - model
	R2Delta   float64 `json:"r2_delta"`   // model - baseline

	Caveats []string `json:"caveats,omitempty"`
}

// Evaluate scores yPred and yBaseline against yTest. All three slices must
// have the same non-zero length. MAPE is only set on Model; it is nil with a
// caveat when any yTest value is zero.
func Evaluate(yTest, yPred, yBaseline []float64) (Evaluation, error) {
	n := len(yTest)
	if n == 0 {
		return Evaluation{}, fcErrors.NewValueError("Evaluate", "empty test set")
	}
	if len(yPred) != n {
		return Evaluation{}, fcErrors.NewDimensionError("Evaluate", n, len(yPred), 0)
	}
	if len(yBaseline) != n {
		return Evaluation{}, fcErrors.NewDimensionError("Evaluate", n, len(yBaseline), 0)
	}

	truth := mat.NewVecDense(n, append([]float64(nil), yTest...))
	model, err := score(truth, mat.NewVecDense(n, append([]float64(nil), yPred...)))
	if err != nil {
		return Evaluation{}, err
	}
	base, err := score(truth, mat.NewVecDense(n, append([]float64(nil), yBaseline...)))
	if err != nil {
		return Evaluation{}, err
	}

	ev := Evaluation{
		Model:     model,
		Baseline:  base,
		MAEDelta:  base.MAE - model.MAE,
		RMSEDelta: base.RMSE - model.RMSE,
		R2Delta:   model.R2 - base.R2,
	}

	mape, err := MAPE(truth, mat.NewVecDense(n, append([]float64(nil), yPred...)))
	switch {
	case fcErrors.Is(err, ErrUndefinedMAPE):
		ev.Caveats = append(ev.Caveats, MAPECaveat)
	case err != nil:
		return Evaluation{}, err
	default:
		ev.Model.MAPE = &mape
	}
	return ev, nil
}

func score(yTrue, yPred *mat.VecDense) (Scores, error) {
	var s Scores
	var err error
	if s.MAE, err = MAE(yTrue, yPred); err != nil {
		return s, err
	}
	if s.MSE, err = MSE(yTrue, yPred); err != nil {
		return s, err
	}
	if s.RMSE, err = RMSE(yTrue, yPred); err != nil {
		return s, err
	}
	if s.R2, err = R2Score(yTrue, yPred); err != nil {
		return s, err
	}
	if s.ExplainedVariance, err = ExplainedVarianceScore(yTrue, yPred); err != nil {
		return s, err
	}
	return s, nil
}

// Residuals returns yTrue - yPred element-wise.
func Residuals(yTrue, yPred []float64) ([]float64, error) {
	if len(yTrue) != len(yPred) {
		return nil, fcErrors.NewDimensionError("Residuals", len(yTrue), len(yPred), 0)
	}
	out := make([]float64, len(yTrue))
	for i := range yTrue {
		out[i] = yTrue[i] - yPred[i]
	}
	return out, nil
}
