package preprocessing_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/forestcal/dataset"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/preprocessing"
)

// activityTable builds [Duration, Weight, Calories] with n rows.
// The first nullWeight rows have a missing Weight.
func activityTable(t *testing.T, n, nullWeight int) *dataset.Table {
	t.Helper()
	dur := make([]float64, n)
	w := make([]float64, n)
	cal := make([]float64, n)
	for i := 0; i < n; i++ {
		dur[i] = float64(20 + i%40)
		w[i] = 55 + float64(i%30)
		cal[i] = 5*dur[i] + 2*w[i]
	}
	for i := 0; i < nullWeight; i++ {
		w[i] = math.NaN()
	}
	tbl, err := dataset.NewTable(
		dataset.NewNumericColumn("Duration", dur),
		dataset.NewNumericColumn("Weight", w),
		dataset.NewNumericColumn("Calories", cal),
	)
	require.NoError(t, err)
	return tbl
}

func TestParseMissingStrategy(t *testing.T) {
	for _, label := range preprocessing.MissingStrategyLabels {
		s, err := preprocessing.ParseMissingStrategy(label)
		require.NoError(t, err)
		assert.Equal(t, label, s.Label())
	}
	c, _ := preprocessing.ParseMissingStrategy("fill with constant (0)")
	assert.Equal(t, preprocessing.FillConstant{Value: 0}, c)

	_, err := preprocessing.ParseMissingStrategy("interpolate")
	assert.True(t, fcErrors.IsConfigError(err))
}

// With no missing values drop rows keeps everything.
func TestHandleMissing_DropRowsComplete(t *testing.T) {
	tbl := activityTable(t, 100, 0)
	out, err := preprocessing.HandleMissing(tbl, []string{"Duration", "Weight"}, "Calories", preprocessing.DropRows{})
	require.NoError(t, err)
	assert.Equal(t, 100, out.NRows())

	ft := dataset.InferFeatureTypes(out, []string{"Duration", "Weight"})
	assert.Equal(t, []string{"Duration", "Weight"}, ft.Numeric)
	assert.Empty(t, ft.Categorical)
}

func TestHandleMissing_DropRowsRemovesIncomplete(t *testing.T) {
	tbl := activityTable(t, 50, 7)
	out, err := preprocessing.HandleMissing(tbl, []string{"Duration", "Weight"}, "Calories", preprocessing.DropRows{})
	require.NoError(t, err)
	assert.Equal(t, 43, out.NRows())
	for _, name := range []string{"Duration", "Weight", "Calories"} {
		c, _ := out.Column(name)
		assert.Zero(t, c.MissingCount(), name)
	}
	// 入力テーブルは変更されない
	w, _ := tbl.Column("Weight")
	assert.Equal(t, 7, w.MissingCount())
}

// Fill numeric mean keeps the row count and the column mean.
func TestHandleMissing_FillMean(t *testing.T) {
	tbl := activityTable(t, 100, 10)
	before, _ := tbl.Column("Weight")
	preMean := before.Mean()

	out, err := preprocessing.HandleMissing(tbl, []string{"Duration", "Weight"}, "Calories", preprocessing.FillMean{})
	require.NoError(t, err)
	assert.Equal(t, 100, out.NRows())

	w, _ := out.Column("Weight")
	assert.Zero(t, w.MissingCount())
	for i := 0; i < 10; i++ {
		assert.InDelta(t, preMean, w.Nums[i], 1e-9)
	}
	assert.InDelta(t, preMean, w.Mean(), 1e-9)
}

func TestHandleMissing_FillMedianAndMode(t *testing.T) {
	tbl, err := dataset.NewTable(
		dataset.NewNumericColumn("Age", []float64{20, math.NaN(), 30, 40, 100}),
		dataset.NewCategoricalColumn("Gender", []string{"Male", "Female", "", "Female", "Male"},
			[]bool{false, false, true, false, false}),
		dataset.NewCategoricalColumn("Weather", []string{"", "", "", "", ""}, []bool{true, true, true, true, true}),
		dataset.NewNumericColumn("Calories", []float64{100, 200, math.NaN(), 400, 500}),
	)
	require.NoError(t, err)

	out, err := preprocessing.HandleMissing(tbl, []string{"Age", "Gender", "Weather"}, "Calories", preprocessing.FillMedian{})
	require.NoError(t, err)

	age, _ := out.Column("Age")
	assert.Equal(t, 35.0, age.Nums[1], "median of 20,30,40,100")

	g, _ := out.Column("Gender")
	assert.Equal(t, "Male", g.Labels[2], "tie between Male and Female goes to the label seen first")

	w, _ := out.Column("Weather")
	assert.Equal(t, []string{"unknown", "unknown", "unknown", "unknown", "unknown"}, w.Labels)

	cal, _ := out.Column("Calories")
	assert.Equal(t, 300.0, cal.Nums[2])
}

func TestHandleMissing_ModeTieKeepsFirstSeen(t *testing.T) {
	for _, tc := range []struct {
		labels []string
		want   string
	}{
		{[]string{"Male", "Female", ""}, "Male"},
		{[]string{"Female", "Male", ""}, "Female"},
		{[]string{"Sunny", "Rainy", "Rainy", "Sunny", "Cloudy", ""}, "Sunny"},
		{[]string{"Cloudy", "Rainy", "Rainy", ""}, "Rainy"},
	} {
		missing := make([]bool, len(tc.labels))
		missing[len(missing)-1] = true
		dur := make([]float64, len(tc.labels))
		tbl, err := dataset.NewTable(
			dataset.NewCategoricalColumn("Gender", tc.labels, missing),
			dataset.NewNumericColumn("Calories", dur),
		)
		require.NoError(t, err)

		out, err := preprocessing.HandleMissing(tbl, []string{"Gender"}, "Calories", preprocessing.FillMean{})
		require.NoError(t, err)
		g, _ := out.Column("Gender")
		assert.Equal(t, tc.want, g.Labels[len(tc.labels)-1], "labels %v", tc.labels)
	}
}

func TestHandleMissing_EmptyNumericColumnIsDataError(t *testing.T) {
	nan := math.NaN()
	tbl, err := dataset.NewTable(
		dataset.NewNumericColumn("Duration", []float64{30, 40, 50}),
		dataset.NewNumericColumn("Weight", []float64{nan, nan, nan}),
		dataset.NewNumericColumn("Calories", []float64{100, 200, 300}),
	)
	require.NoError(t, err)

	for _, strategy := range []preprocessing.MissingStrategy{preprocessing.FillMean{}, preprocessing.FillMedian{}} {
		_, err := preprocessing.HandleMissing(tbl, []string{"Duration", "Weight"}, "Calories", strategy)
		require.Error(t, err, strategy.Label())
		assert.True(t, fcErrors.IsDataError(err))
		assert.Contains(t, err.Error(), `"Weight"`)
	}

	target, err := dataset.NewTable(
		dataset.NewNumericColumn("Duration", []float64{30, 40}),
		dataset.NewCategoricalColumn("Calories", []string{"n/a", ""}, []bool{false, true}),
	)
	require.NoError(t, err)
	_, err = preprocessing.HandleMissing(target, []string{"Duration"}, "Calories", preprocessing.FillMean{})
	require.Error(t, err)
	assert.True(t, fcErrors.IsDataError(err))
	assert.Contains(t, err.Error(), `"Calories"`)

	// an empty column outside the features is left alone
	_, err = preprocessing.HandleMissing(tbl, []string{"Duration"}, "Calories", preprocessing.FillMean{})
	assert.NoError(t, err)
}

func TestHandleMissing_CategoricalTargetUsesParseableValues(t *testing.T) {
	tbl, err := dataset.NewTable(
		dataset.NewNumericColumn("Duration", []float64{1, 2, 3, 4}),
		dataset.NewCategoricalColumn("Calories", []string{"100", "n/a", "", "300"}, []bool{false, false, true, false}),
	)
	require.NoError(t, err)

	out, err := preprocessing.HandleMissing(tbl, []string{"Duration"}, "Calories", preprocessing.FillMean{})
	require.NoError(t, err)
	c, _ := out.Column("Calories")
	assert.Equal(t, "200", c.Labels[2])
}

func TestHandleMissing_FillConstantTouchesWholeTable(t *testing.T) {
	tbl, err := dataset.NewTable(
		dataset.NewNumericColumn("Duration", []float64{30, math.NaN()}),
		dataset.NewNumericColumn("Dream Weight", []float64{math.NaN(), 70}),
		dataset.NewCategoricalColumn("Notes", []string{"", "ok"}, []bool{true, false}),
		dataset.NewNumericColumn("Calories", []float64{math.NaN(), 250}),
	)
	require.NoError(t, err)

	out, err := preprocessing.HandleMissing(tbl, []string{"Duration"}, "Calories", preprocessing.FillConstant{})
	require.NoError(t, err)

	assert.Zero(t, out.TotalMissing())
	dw, _ := out.Column("Dream Weight")
	assert.Equal(t, 0.0, dw.Nums[0], "columns outside the roles are filled too")
	notes, _ := out.Column("Notes")
	assert.Equal(t, "0", notes.Labels[0])
	assert.Equal(t, tbl.Names(), out.Names())
}

func TestHandleMissing_UnknownColumns(t *testing.T) {
	tbl := activityTable(t, 5, 0)
	_, err := preprocessing.HandleMissing(tbl, []string{"Heart Rate"}, "Calories", preprocessing.DropRows{})
	var cfgErr *fcErrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"Heart Rate"}, cfgErr.Missing)
}
