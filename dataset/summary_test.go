package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testPriorities = FeaturePriorities{
	Weight:        []string{"actual", "weight"},
	Demographic:   []string{"Gender", "Age"},
	Exercise:      []string{"Duration", "Exercise Intensity", "Exercise", "Heart Rate", "BMI"},
	Environmental: []string{"Weather Conditions"},
}

func TestSummarize(t *testing.T) {
	s := Summarize(smallTable(t))
	assert.Equal(t, 4, s.Rows)
	assert.Equal(t, 3, s.Cols)
	assert.Equal(t, 2, s.TotalMissing)
	assert.Equal(t, []string{"Gender"}, s.CategoricalColumns)
	assert.Equal(t, "numeric", s.Columns[0].Kind)
}

func TestSuggestTarget(t *testing.T) {
	cols := []string{"ID", "Duration", "Calories Burn", "Target"}
	assert.Equal(t, "Calories Burn", SuggestTarget(cols, []string{"calor", "burn", "target"}))
	assert.Equal(t, "", SuggestTarget([]string{"a", "b"}, []string{"calor"}))
}

func TestSuggestFeatures(t *testing.T) {
	cols := []string{"ID", "Exercise", "Calories Burn", "Dream Weight", "Actual Weight", "Age", "Gender",
		"Duration", "Heart Rate", "BMI", "Weather Conditions", "Exercise Intensity"}

	got := SuggestFeatures(cols, "Calories Burn", []string{"ID", "Dream Weight"}, testPriorities)
	want := []string{"Actual Weight", "Gender", "Age", "Duration", "Exercise Intensity", "Exercise",
		"Heart Rate", "BMI", "Weather Conditions"}
	assert.Equal(t, want, got)
}

func TestCriticalFeatureHints(t *testing.T) {
	cols := []string{"Actual Weight", "Gender", "Age"}
	assert.Equal(t, []string{"Actual Weight", "Gender"}, CriticalFeatureHints(cols, []string{"Age"}))
	assert.Empty(t, CriticalFeatureHints(cols, []string{"Gender", "Actual Weight"}))
	assert.Empty(t, CriticalFeatureHints([]string{"Age"}, nil))
}

func TestComputeInputDefaults(t *testing.T) {
	tbl := smallTable(t)
	d := ComputeInputDefaults(tbl, InferFeatureTypes(tbl, []string{"Duration", "Gender"}))

	assert.Equal(t, NumericDefault{Median: 30, Min: 20, Max: 45}, d.Numeric["Duration"])
	assert.Equal(t, []string{"Male", "Female"}, d.Categorical["Gender"])
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.5, Median([]float64{1, 2, 3, 4}))
	assert.Equal(t, 2.0, Median([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, Median(nil))
}
