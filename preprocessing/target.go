package preprocessing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ezoic/forestcal/dataset"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/pkg/log"
)

// OutlierPolicy controls how extreme target values are treated.
type OutlierPolicy int

const (
	// OutliersNone leaves the target untouched.
	OutliersNone OutlierPolicy = iota
	// OutliersTrim drops rows whose target lies outside [p1, p99].
	OutliersTrim
	// OutliersClip clamps the target into [p1, p99].
	OutliersClip
)

// Percentile bounds used by trim and clip.
const (
	LowerPercentile = 1.0
	UpperPercentile = 99.0
)

func (p OutlierPolicy) String() string {
	switch p {
	case OutliersTrim:
		return "trim 1-99pct"
	case OutliersClip:
		return "clip 1-99pct"
	default:
		return "none"
	}
}

// OutlierPolicyLabels lists the accepted labels in display order.
var OutlierPolicyLabels = []string{OutliersNone.String(), OutliersTrim.String(), OutliersClip.String()}

// ParseOutlierPolicy maps a label ("none", "trim 1-99pct", "clip 1-99pct",
// or the short forms "trim" / "clip") to its policy.
func ParseOutlierPolicy(label string) (OutlierPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "none":
		return OutliersNone, nil
	case "trim", "trim 1-99pct":
		return OutliersTrim, nil
	case "clip", "clip 1-99pct":
		return OutliersClip, nil
	}
	return OutliersNone, fcErrors.NewConfigError("ParseOutlierPolicy", "unknown outlier policy "+strconv.Quote(label))
}

// MarshalText implements encoding.TextMarshaler.
func (p OutlierPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *OutlierPolicy) UnmarshalText(b []byte) error {
	v, err := ParseOutlierPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// TargetResult is the outcome of TransformTarget.
type TargetResult struct {
	// Table has the numeric (original-scale, trimmed/clipped) target written back.
	Table *dataset.Table
	// Original is the target on its original scale.
	Original []float64
	// Fit is the target the model is fitted on: log1p(Original) when
	// LogApplied, otherwise a copy of Original.
	Fit []float64
	// LogApplied reports whether the log transform was used.
	LogApplied bool
	// Lower and Upper are the percentile bounds (NaN when policy is none).
	Lower, Upper float64
	// Warnings are non-fatal caveats for the caller.
	Warnings []string
}

// TransformTarget coerces the target to numbers, applies the outlier policy
// and optionally the log1p transform.
//
// Rows whose target is missing or not numeric are dropped. When no row
// survives a DataError is returned. The log transform is skipped, with a
// warning, when any target value is <= 0.
func TransformTarget(t *dataset.Table, target string, policy OutlierPolicy, logTarget bool) (*TargetResult, error) {
	col, ok := t.Column(target)
	if !ok {
		return nil, fcErrors.NewConfigError("TransformTarget", "target column not found", target)
	}
	logger := log.GetLoggerWithName("preprocessing").With(log.OperationKey, "transform_target", log.ColumnKey, target)

	values, keep := coerceNumeric(col)
	res := &TargetResult{Lower: math.NaN(), Upper: math.NaN()}

	out := t
	if dropped := countFalse(keep); dropped > 0 {
		out = t.Filter(keep)
		values = filterValues(values, keep)
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%d rows dropped because %q is missing or not numeric", dropped, target))
		logger.Warn("Dropped rows with non-numeric target", log.RowsDroppedKey, dropped)
	}
	if len(values) == 0 {
		return nil, fcErrors.NewDataError("TransformTarget", fmt.Sprintf("target %q has no numeric values", target), nil)
	}

	switch policy {
	case OutliersTrim, OutliersClip:
		lo := Percentile(values, LowerPercentile)
		hi := Percentile(values, UpperPercentile)
		res.Lower, res.Upper = lo, hi
		if policy == OutliersTrim {
			inRange := make([]bool, len(values))
			for i, v := range values {
				inRange[i] = v >= lo && v <= hi
			}
			out = out.Filter(inRange)
			values = filterValues(values, inRange)
		} else {
			for i, v := range values {
				values[i] = math.Min(math.Max(v, lo), hi)
			}
		}
		logger.Debug("Applied outlier policy", "policy", policy.String(), "lower", lo, "upper", hi, log.SamplesKey, len(values))
	}

	var err error
	if out, err = out.WithColumn(dataset.NewNumericColumn(target, values)); err != nil {
		return nil, err
	}
	res.Table = out
	res.Original = values
	res.Fit = append([]float64(nil), values...)

	if logTarget {
		nonPositive := false
		for _, v := range values {
			if v <= 0 {
				nonPositive = true
				break
			}
		}
		if nonPositive {
			res.Warnings = append(res.Warnings, "log transform skipped: target has values <= 0")
			logger.Warn("Log transform skipped because the target has non-positive values")
		} else {
			for i, v := range values {
				res.Fit[i] = math.Log1p(v)
			}
			res.LogApplied = true
		}
	}
	return res, nil
}

// coerceNumeric converts a column to float64, marking unusable rows.
func coerceNumeric(c *dataset.Column) ([]float64, []bool) {
	n := c.Len()
	values := make([]float64, n)
	keep := make([]bool, n)
	for i := 0; i < n; i++ {
		if c.IsMissing(i) {
			continue
		}
		var v float64
		if c.Kind == dataset.Numeric {
			v = c.Nums[i]
		} else {
			parsed, err := strconv.ParseFloat(strings.TrimSpace(c.Labels[i]), 64)
			if err != nil {
				continue
			}
			v = parsed
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values[i] = v
		keep[i] = true
	}
	return values, keep
}

func filterValues(values []float64, keep []bool) []float64 {
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if keep[i] {
			out = append(out, v)
		}
	}
	return out
}

func countFalse(b []bool) int {
	n := 0
	for _, v := range b {
		if !v {
			n++
		}
	}
	return n
}

// InverseLog undoes the log1p target transform.
func InverseLog(v float64) float64 { return math.Expm1(v) }
