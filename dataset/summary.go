package dataset

import (
	"math"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnInfo describes one column of a Summary.
type ColumnInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Missing int    `json:"missing"`
}

// Summary is the overview shown after a dataset is loaded.
type Summary struct {
	Rows               int          `json:"rows"`
	Cols               int          `json:"cols"`
	TotalMissing       int          `json:"total_missing"`
	Columns            []ColumnInfo `json:"columns"`
	CategoricalColumns []string     `json:"categorical_columns"`
}

// Summarize computes row/column counts and missing-cell totals.
func Summarize(t *Table) Summary {
	s := Summary{
		Rows:               t.NRows(),
		Cols:               t.NCols(),
		Columns:            make([]ColumnInfo, 0, t.NCols()),
		CategoricalColumns: CategoricalColumns(t),
	}
	for _, c := range t.cols {
		m := c.MissingCount()
		s.TotalMissing += m
		s.Columns = append(s.Columns, ColumnInfo{Name: c.Name, Kind: c.Kind.String(), Missing: m})
	}
	return s
}

// FeaturePriorities orders the feature suggestions.
// Weight entries are substrings matched case-insensitively; the other
// lists are exact column names.
type FeaturePriorities struct {
	Weight        []string `yaml:"weight"`
	Demographic   []string `yaml:"demographic"`
	Exercise      []string `yaml:"exercise"`
	Environmental []string `yaml:"environmental"`
}

// SuggestTarget returns the first column whose lower-cased name contains any
// keyword, or "" when none matches.
func SuggestTarget(columns, keywords []string) string {
	for _, c := range columns {
		lc := strings.ToLower(c)
		for _, kw := range keywords {
			if strings.Contains(lc, strings.ToLower(kw)) {
				return c
			}
		}
	}
	return ""
}

// SuggestFeatures orders candidate features: weight-like names first, then
// the demographic, exercise and environmental lists, then every remaining
// column. The target and excluded columns are never suggested.
func SuggestFeatures(columns []string, target string, exclude []string, p FeaturePriorities) []string {
	var out []string
	seen := map[string]bool{}
	add := func(c string) {
		if seen[c] || c == target || slices.Contains(exclude, c) {
			return
		}
		seen[c] = true
		out = append(out, c)
	}

	for _, c := range columns {
		lc := strings.ToLower(c)
		for _, kw := range p.Weight {
			if strings.Contains(lc, strings.ToLower(kw)) {
				add(c)
				break
			}
		}
	}
	for _, group := range [][]string{p.Demographic, p.Exercise, p.Environmental} {
		for _, f := range group {
			if slices.Contains(columns, f) {
				add(f)
			}
		}
	}
	for _, c := range columns {
		add(c)
	}
	return out
}

// CriticalColumns are the features that most affect calorie predictions.
var CriticalColumns = []string{"Actual Weight", "Gender"}

// CriticalFeatureHints returns the critical columns present in the dataset
// but not selected as features.
func CriticalFeatureHints(columns, features []string) []string {
	var out []string
	for _, c := range CriticalColumns {
		if slices.Contains(columns, c) && !slices.Contains(features, c) {
			out = append(out, c)
		}
	}
	return out
}

// NumericDefault seeds a numeric prediction input.
type NumericDefault struct {
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// InputDefaults seeds the prediction form.
type InputDefaults struct {
	Numeric     map[string]NumericDefault `json:"numeric"`
	Categorical map[string][]string       `json:"categorical"`
}

// ComputeInputDefaults returns median/min/max per numeric feature and the
// distinct labels (in order of appearance) per categorical feature.
func ComputeInputDefaults(t *Table, ft FeatureTypes) InputDefaults {
	d := InputDefaults{
		Numeric:     make(map[string]NumericDefault, len(ft.Numeric)),
		Categorical: make(map[string][]string, len(ft.Categorical)),
	}
	for _, name := range ft.Numeric {
		c, ok := t.Column(name)
		if !ok || c.Kind != Numeric {
			continue
		}
		vals := c.Present()
		if len(vals) == 0 {
			d.Numeric[name] = NumericDefault{}
			continue
		}
		sort.Float64s(vals)
		d.Numeric[name] = NumericDefault{
			Median: Median(vals),
			Min:    floats.Min(vals),
			Max:    floats.Max(vals),
		}
	}
	for _, name := range ft.Categorical {
		c, ok := t.Column(name)
		if !ok {
			continue
		}
		d.Categorical[name] = c.Unique()
	}
	return d
}

// Present returns the non-missing values of a numeric column.
func (c *Column) Present() []float64 {
	out := make([]float64, 0, len(c.Nums))
	for i, v := range c.Nums {
		if !c.IsMissing(i) {
			out = append(out, v)
		}
	}
	return out
}

// Unique returns the distinct non-missing cells in order of first appearance.
func (c *Column) Unique() []string {
	seen := map[string]bool{}
	out := []string{}
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			continue
		}
		s := c.String(i)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Median of sorted values; the two middle values are averaged for even n.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Mean of the non-missing values of a numeric column (NaN if none).
func (c *Column) Mean() float64 {
	vals := c.Present()
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}
