package preprocessing_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/forestcal/dataset"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/preprocessing"
)

func mixedTable(t *testing.T, gender []string, dur, weight []float64) *dataset.Table {
	t.Helper()
	tbl, err := dataset.NewTable(
		dataset.NewNumericColumn("Duration", dur),
		dataset.NewCategoricalColumn("Gender", gender, nil),
		dataset.NewNumericColumn("Weight", weight),
	)
	require.NoError(t, err)
	return tbl
}

func TestColumnTransformer_EncodeAndRemainder(t *testing.T) {
	train := mixedTable(t, []string{"Male", "Female", "Male"}, []float64{30, 45, 60}, []float64{70, 60, 80})

	ct := preprocessing.NewColumnTransformer([]string{"Duration", "Weight"}, []string{"Gender"}, false)
	assert.False(t, ct.IsPassthrough())
	X, err := ct.FitTransform(train)
	require.NoError(t, err)

	assert.Equal(t, []string{"cat__Gender_Female", "cat__Gender_Male", "remainder__Duration", "remainder__Weight"},
		ct.FeatureNamesOut())
	want := mat.NewDense(3, 4, []float64{
		0, 1, 30, 70,
		1, 0, 45, 60,
		0, 1, 60, 80,
	})
	assert.True(t, mat.Equal(X, want), "got\n%v", mat.Formatted(X))
}

func TestColumnTransformer_ScalingUsesTrainingStatistics(t *testing.T) {
	train := mixedTable(t, []string{"Male", "Female"}, []float64{10, 30}, []float64{50, 50})
	test := mixedTable(t, []string{"Other", "Female"}, []float64{20, 50}, []float64{50, 90})

	ct := preprocessing.NewColumnTransformer([]string{"Duration", "Weight"}, []string{"Gender"}, true)
	require.NoError(t, ct.Fit(train))
	assert.Equal(t, []string{"cat__Gender_Female", "cat__Gender_Male", "num__Duration", "num__Weight"},
		ct.FeatureNamesOut())

	X, err := ct.Transform(test)
	require.NoError(t, err)
	// unseen "Other" -> all zeros
	assert.Equal(t, []float64{0, 0}, mat.Row(nil, 0, X)[:2])
	// Duration: train mean 20, population std 10
	assert.InDelta(t, 0.0, X.At(0, 2), 1e-12)
	assert.InDelta(t, 3.0, X.At(1, 2), 1e-12)
	// Weight is constant in training: scale 1, centred on 50
	assert.InDelta(t, 40.0, X.At(1, 3), 1e-12)
}

func TestColumnTransformer_Passthrough(t *testing.T) {
	tbl, err := dataset.NewTable(
		dataset.NewNumericColumn("Duration", []float64{1, 2}),
		dataset.NewNumericColumn("Weight", []float64{3, 4}),
	)
	require.NoError(t, err)

	ct := preprocessing.NewColumnTransformer([]string{"Duration", "Weight"}, nil, false)
	assert.True(t, ct.IsPassthrough())
	X, err := ct.FitTransform(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"Duration", "Weight"}, ct.FeatureNamesOut())
	assert.True(t, mat.Equal(X, mat.NewDense(2, 2, []float64{1, 3, 2, 4})))
}

func TestColumnTransformer_NumericOnlyScaled(t *testing.T) {
	tbl, err := dataset.NewTable(dataset.NewNumericColumn("Duration", []float64{1, 3}))
	require.NoError(t, err)

	ct := preprocessing.NewColumnTransformer([]string{"Duration"}, nil, true)
	assert.False(t, ct.IsPassthrough())
	X, err := ct.FitTransform(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"num__Duration"}, ct.FeatureNamesOut())
	assert.InDelta(t, -1.0, X.At(0, 0), 1e-12)
}

func TestColumnTransformer_Errors(t *testing.T) {
	ct := preprocessing.NewColumnTransformer([]string{"Duration"}, []string{"Gender"}, false)
	assert.Nil(t, ct.FeatureNamesOut())

	tbl, err := dataset.NewTable(dataset.NewNumericColumn("Duration", []float64{1, math.NaN()}))
	require.NoError(t, err)

	_, err = ct.Transform(tbl)
	assert.ErrorIs(t, err, fcErrors.ErrNotFitted)

	err = ct.Fit(tbl)
	assert.True(t, fcErrors.IsConfigError(err), "missing Gender must be a configuration error: %v", err)
}
