package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/forestcal/dataset"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/preprocessing"
	"github.com/ezoic/forestcal/sklearn/ensemble"
	"github.com/ezoic/forestcal/sklearn/pipeline"
)

func workouts(t *testing.T, n int) (*dataset.Table, []float64) {
	t.Helper()
	dur := make([]float64, n)
	gender := make([]string, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		dur[i] = float64(10 + i%60)
		gender[i] = []string{"Female", "Male"}[i%2]
		y[i] = 7 * dur[i]
		if gender[i] == "Male" {
			y[i] += 100
		}
	}
	tbl, err := dataset.NewTable(
		dataset.NewNumericColumn("Duration", dur),
		dataset.NewCategoricalColumn("Gender", gender, nil),
	)
	require.NoError(t, err)
	return tbl, y
}

func newPipeline(scaling bool) *pipeline.Pipeline {
	ct := preprocessing.NewColumnTransformer([]string{"Duration"}, []string{"Gender"}, scaling)
	rf := ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(20), ensemble.WithRandomState(42))
	return pipeline.New(ct, rf)
}

func TestPipeline_FitPredict(t *testing.T) {
	X, y := workouts(t, 120)
	p := newPipeline(false)
	assert.False(t, p.IsFitted())

	require.NoError(t, p.FitContext(context.Background(), X, y))
	pred, err := p.Predict(X)
	require.NoError(t, err)
	require.Len(t, pred, 120)
	assert.True(t, p.IsFitted())

	var mae float64
	for i := range y {
		d := pred[i] - y[i]
		if d < 0 {
			d = -d
		}
		mae += d / float64(len(y))
	}
	assert.Less(t, mae, 30.0)

	assert.Equal(t, []string{"cat__Gender_Female", "cat__Gender_Male", "remainder__Duration"}, p.FeatureNamesOut())
}

func TestPipeline_ScalingDoesNotChangeForest(t *testing.T) {
	X, y := workouts(t, 80)

	a := newPipeline(false)
	b := newPipeline(true)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(X)
	require.NoError(t, err)
	// a monotone rescaling keeps every split, so predictions match
	assert.InDeltaSlice(t, pa, pb, 1e-9)
}

func TestPipeline_Params(t *testing.T) {
	p := newPipeline(false)
	params := p.GetParams()
	assert.Equal(t, 20, params["model__n_estimators"])
	assert.NotContains(t, params, "steps")
	steps := p.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, pipeline.PreprocessorStep, steps[0].Name)
	assert.Equal(t, pipeline.ModelStep, steps[1].Name)
}

func TestPipeline_Errors(t *testing.T) {
	X, y := workouts(t, 10)
	p := newPipeline(false)

	_, err := p.Predict(X)
	assert.ErrorIs(t, err, fcErrors.ErrNotFitted)

	err = p.Fit(X, y[:5])
	var dimErr *fcErrors.DimensionError
	assert.ErrorAs(t, err, &dimErr)

	ct := preprocessing.NewColumnTransformer([]string{"Duration", "Calories"}, nil, true)
	bad := pipeline.New(ct, ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(2)))
	err = bad.Fit(X, y)
	assert.True(t, fcErrors.IsConfigError(err), "got %v", err)
	assert.False(t, bad.IsFitted())
}
