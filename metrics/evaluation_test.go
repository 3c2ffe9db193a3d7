package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

const epsilon = 1e-9

func TestEvaluate_Deltas(t *testing.T) {
	yTest := []float64{120, 250, 310, 480, 600}
	yPred := []float64{130, 240, 300, 500, 590}
	yBase := []float64{350, 350, 350, 350, 350}

	ev, err := Evaluate(yTest, yPred, yBase)
	require.NoError(t, err)

	if math.Abs(ev.MAEDelta-(ev.Baseline.MAE-ev.Model.MAE)) > epsilon {
		t.Errorf("MAEDelta = %v", ev.MAEDelta)
	}
	if math.Abs(ev.RMSEDelta-(ev.Baseline.RMSE-ev.Model.RMSE)) > epsilon {
		t.Errorf("RMSEDelta = %v", ev.RMSEDelta)
	}
	if math.Abs(ev.R2Delta-(ev.Model.R2-ev.Baseline.R2)) > epsilon {
		t.Errorf("R2Delta = %v", ev.R2Delta)
	}
	assert.Greater(t, ev.MAEDelta, 0.0)
	assert.InDelta(t, math.Sqrt(ev.Model.MSE), ev.Model.RMSE, epsilon)
	require.NotNil(t, ev.Model.MAPE)
	assert.Nil(t, ev.Baseline.MAPE)
	assert.Empty(t, ev.Caveats)
}

// A zero in the test target leaves MAPE undefined but the other
// metrics are still reported.
func TestEvaluate_ZeroTargetMAPE(t *testing.T) {
	yTest := []float64{0, 200, 400}
	yPred := []float64{10, 190, 410}
	yBase := []float64{200, 200, 200}

	ev, err := Evaluate(yTest, yPred, yBase)
	require.NoError(t, err)
	assert.Nil(t, ev.Model.MAPE)
	assert.Equal(t, []string{MAPECaveat}, ev.Caveats)
	assert.InDelta(t, 10.0, ev.Model.MAE, epsilon)
}

func TestEvaluate_ConstantTarget(t *testing.T) {
	yTest := []float64{300, 300, 300, 300}
	yPred := []float64{290, 300, 310, 300}
	yBase := []float64{300, 300, 300, 300}

	ev, err := Evaluate(yTest, yPred, yBase)
	require.NoError(t, err)
	assert.Equal(t, 1.0, ev.Baseline.R2)
	assert.Equal(t, 0.0, ev.Model.R2)
	assert.Equal(t, -1.0, ev.R2Delta)
}

// A constant offset costs R² but not explained variance; the mean baseline
// explains none of the variance.
func TestEvaluate_ExplainedVariance(t *testing.T) {
	yTest := []float64{150, 220, 310, 405, 530}
	yPred := make([]float64, len(yTest))
	for i, v := range yTest {
		yPred[i] = v + 25
	}
	yBase := []float64{323, 323, 323, 323, 323}

	ev, err := Evaluate(yTest, yPred, yBase)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ev.Model.ExplainedVariance, epsilon)
	assert.Less(t, ev.Model.R2, 1.0)
	assert.InDelta(t, 0.0, ev.Baseline.ExplainedVariance, epsilon)
	assert.InDelta(t, 25.0, ev.Model.RMSE, epsilon)
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := Evaluate(nil, nil, nil)
	var vErr *fcErrors.ValueError
	assert.ErrorAs(t, err, &vErr)

	_, err = Evaluate([]float64{1, 2}, []float64{1}, []float64{1, 2})
	var dErr *fcErrors.DimensionError
	assert.ErrorAs(t, err, &dErr)

	_, err = Evaluate([]float64{1, 2}, []float64{1, 2}, []float64{1})
	assert.ErrorAs(t, err, &dErr)
}

func TestResiduals(t *testing.T) {
	r, err := Residuals([]float64{5, 7}, []float64{4, 9})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -2}, r)

	_, err = Residuals([]float64{1}, nil)
	assert.Error(t, err)
}

func TestMAPE_NoSkipping(t *testing.T) {
	// one zero is enough: rows are never silently dropped
	yTrue := []float64{0, 100}
	_, err := Evaluate(yTrue, []float64{0, 100}, []float64{50, 50})
	require.NoError(t, err)

	ev, _ := Evaluate(yTrue, []float64{0, 100}, []float64{50, 50})
	assert.Nil(t, ev.Model.MAPE)
}
