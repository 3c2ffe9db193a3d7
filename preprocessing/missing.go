package preprocessing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/forestcal/dataset"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/pkg/log"
)

// MissingStrategy is the closed set of missing-value treatments:
// DropRows, FillMean, FillMedian and FillConstant.
type MissingStrategy interface {
	// Label is the user-facing name of the strategy.
	Label() string
	missingStrategy()
}

// DropRows removes every row with a missing feature or target cell.
type DropRows struct{}

// FillMean fills numeric features and the target with their mean and
// categorical features with their mode.
type FillMean struct{}

// FillMedian is FillMean using the median.
type FillMedian struct{}

// FillConstant replaces every missing cell of the whole table with Value
// (categorical cells get its string form).
type FillConstant struct {
	Value float64
}

func (DropRows) Label() string   { return "drop rows" }
func (FillMean) Label() string   { return "fill numeric mean" }
func (FillMedian) Label() string { return "fill numeric median" }
func (FillConstant) Label() string {
	return "fill with constant (0)"
}

func (DropRows) missingStrategy()     {}
func (FillMean) missingStrategy()     {}
func (FillMedian) missingStrategy()   {}
func (FillConstant) missingStrategy() {}

// MissingStrategyLabels lists the accepted labels in display order.
var MissingStrategyLabels = []string{
	DropRows{}.Label(),
	FillMean{}.Label(),
	FillMedian{}.Label(),
	FillConstant{}.Label(),
}

// ParseMissingStrategy maps a label to its strategy.
func ParseMissingStrategy(label string) (MissingStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "drop rows", "drop":
		return DropRows{}, nil
	case "fill numeric mean", "mean":
		return FillMean{}, nil
	case "fill numeric median", "median":
		return FillMedian{}, nil
	case "fill with constant (0)", "constant":
		return FillConstant{Value: 0}, nil
	}
	return nil, fcErrors.NewConfigError("ParseMissingStrategy", "unknown missing-value strategy "+strconv.Quote(label))
}

// UnknownCategory fills categorical columns that have no observed value.
const UnknownCategory = "unknown"

// HandleMissing applies strategy to t and returns a new table; t is not
// modified and no column is ever removed.
//
// Parameters:
//   - t: the loaded dataset
//   - features: selected feature columns
//   - target: the target column
//   - strategy: one of DropRows, FillMean, FillMedian, FillConstant
//
// Behaviour:
//   - DropRows drops rows missing any of features ∪ {target}
//   - FillMean/FillMedian fill numeric features with the column statistic,
//     categorical features with their mode ("unknown" if the column is
//     entirely missing) and the target with its own statistic. A numeric
//     feature or target with no values at all is a DataError
//   - FillConstant fills every missing cell of every column, including
//     columns outside the selected roles
func HandleMissing(t *dataset.Table, features []string, target string, strategy MissingStrategy) (*dataset.Table, error) {
	roles := append(append([]string{}, features...), target)
	if missing := t.Missing(roles); len(missing) > 0 {
		return nil, fcErrors.NewConfigError("HandleMissing", "columns not found", missing...)
	}

	logger := log.GetLoggerWithName("preprocessing").With(log.OperationKey, "handle_missing")

	switch s := strategy.(type) {
	case DropRows:
		keep := make([]bool, t.NRows())
		for i := range keep {
			keep[i] = true
		}
		for _, name := range roles {
			c, _ := t.Column(name)
			for i := range keep {
				if c.IsMissing(i) {
					keep[i] = false
				}
			}
		}
		out := t.Filter(keep)
		logger.Debug("Dropped incomplete rows",
			log.StrategyKey, s.Label(),
			log.RowsDroppedKey, t.NRows()-out.NRows(),
		)
		return out, nil

	case FillMean, FillMedian:
		useMedian := false
		if _, ok := s.(FillMedian); ok {
			useMedian = true
		}
		out := t
		for _, name := range features {
			c, _ := out.Column(name)
			if c.MissingCount() == 0 {
				continue
			}
			var filled *dataset.Column
			if c.Kind == dataset.Numeric {
				v := numericStat(c.Present(), useMedian)
				if math.IsNaN(v) {
					return nil, fcErrors.NewDataError("HandleMissing",
						fmt.Sprintf("feature %q has no values to compute a %s from", name, statName(useMedian)), nil)
				}
				filled = fillNumeric(c, v)
			} else {
				filled = fillCategorical(c, modeOf(c))
			}
			var err error
			if out, err = out.WithColumn(filled); err != nil {
				return nil, err
			}
		}
		tc, _ := out.Column(target)
		if tc.MissingCount() > 0 {
			var values []float64
			if tc.Kind == dataset.Numeric {
				values = tc.Present()
			} else {
				// 数値に変換できる値だけで統計量を計算する
				values = parseableValues(tc)
			}
			v := numericStat(values, useMedian)
			if math.IsNaN(v) {
				return nil, fcErrors.NewDataError("HandleMissing",
					fmt.Sprintf("target %q has no numeric values to compute a %s from", target, statName(useMedian)), nil)
			}
			var filled *dataset.Column
			if tc.Kind == dataset.Numeric {
				filled = fillNumeric(tc, v)
			} else {
				filled = fillCategorical(tc, strconv.FormatFloat(v, 'g', -1, 64))
			}
			var err error
			if out, err = out.WithColumn(filled); err != nil {
				return nil, err
			}
		}
		return out, nil

	case FillConstant:
		logger.Warn("Constant fill applies to every column of the dataset, not only the selected roles",
			log.StrategyKey, s.Label(),
		)
		label := strconv.FormatFloat(s.Value, 'g', -1, 64)
		out := t
		for _, c := range t.Columns() {
			if c.MissingCount() == 0 {
				continue
			}
			var filled *dataset.Column
			if c.Kind == dataset.Numeric {
				filled = fillNumeric(c, s.Value)
			} else {
				filled = fillCategorical(c, label)
			}
			var err error
			if out, err = out.WithColumn(filled); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	return nil, fcErrors.NewConfigError("HandleMissing", "unsupported missing-value strategy")
}

// numericStat returns the mean or median of values, NaN when empty.
func numericStat(values []float64, median bool) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	if median {
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		return dataset.Median(sorted)
	}
	return stat.Mean(values, nil)
}

func statName(median bool) string {
	if median {
		return "median"
	}
	return "mean"
}

// parseableValues returns the cells of a categorical column that parse as numbers.
func parseableValues(c *dataset.Column) []float64 {
	var out []float64
	for i, l := range c.Labels {
		if c.Missing[i] {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(l), 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func fillNumeric(c *dataset.Column, v float64) *dataset.Column {
	out := c.Clone()
	for i, x := range out.Nums {
		if math.IsNaN(x) {
			out.Nums[i] = v
		}
	}
	return out
}

func fillCategorical(c *dataset.Column, label string) *dataset.Column {
	out := c.Clone()
	for i, m := range out.Missing {
		if m {
			out.Labels[i] = label
			out.Missing[i] = false
		}
	}
	return out
}

// modeOf returns the most frequent label; ties go to the label seen first.
func modeOf(c *dataset.Column) string {
	counts := map[string]int{}
	var order []string
	for i, l := range c.Labels {
		if c.Missing[i] {
			continue
		}
		if _, seen := counts[l]; !seen {
			order = append(order, l)
		}
		counts[l]++
	}
	if len(order) == 0 {
		return UnknownCategory
	}
	best := order[0]
	for _, l := range order[1:] {
		if counts[l] > counts[best] {
			best = l
		}
	}
	return best
}
