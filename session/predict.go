package session

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/forestcal/dataset"
	"github.com/ezoic/forestcal/metrics"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/preprocessing"
	"github.com/ezoic/forestcal/sklearn/pipeline"
)

// ConfidenceZ is the two-sided 95% normal quantile.
const ConfidenceZ = 1.96

// Cell is one input value of a prediction row.
type Cell struct {
	Column  string  `json:"column"`
	Number  float64 `json:"number,omitempty"`
	Label   string  `json:"label,omitempty"`
	IsLabel bool    `json:"is_label,omitempty"`
}

// Num returns a numeric cell.
func Num(column string, v float64) Cell { return Cell{Column: column, Number: v} }

// Label returns a categorical cell.
func Label(column, v string) Cell { return Cell{Column: column, Label: v, IsLabel: true} }

// Row is the ordered input of a single prediction.
type Row []Cell

// Interval is a prediction with its approximate 95% band.
type Interval struct {
	Prediction float64 `json:"prediction"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Sigma      float64 `json:"sigma"`
}

// Predict runs one row through p. The row must name exactly the pipeline's
// input columns, numbers for numeric columns and labels for categorical
// ones; anything else is a ConfigError. When logUsed the prediction is
// mapped back with expm1.
func Predict(p *pipeline.Pipeline, row Row, logUsed bool) (pred float64, err error) {
	defer fcErrors.Recover(&err, "session.Predict")

	if p == nil || !p.IsFitted() {
		return 0, fcErrors.NewNotFittedError("Pipeline", "Predict")
	}
	X, err := rowTable(p.Preprocessor(), row)
	if err != nil {
		return 0, err
	}
	out, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	pred = out[0]
	if logUsed {
		pred = preprocessing.InverseLog(pred)
	}
	return pred, nil
}

// rowTable builds a one-row table in the preprocessor's input order.
func rowTable(pre pipeline.Preprocessor, row Row) (*dataset.Table, error) {
	const op = "session.Predict"
	inputs := pre.InputColumns()

	byName := make(map[string]Cell, len(row))
	var unknown, dup []string
	for _, c := range row {
		if _, ok := pre.InputKind(c.Column); !ok {
			unknown = append(unknown, c.Column)
			continue
		}
		if _, seen := byName[c.Column]; seen {
			dup = append(dup, c.Column)
			continue
		}
		byName[c.Column] = c
	}
	if len(unknown) > 0 {
		return nil, fcErrors.NewConfigError(op, "columns not used by the model", unknown...)
	}
	if len(dup) > 0 {
		return nil, fcErrors.NewConfigError(op, "columns given more than once", dup...)
	}

	var missing []string
	for _, name := range inputs {
		if _, ok := byName[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fcErrors.NewConfigError(op, "missing input columns", missing...)
	}

	cols := make([]*dataset.Column, len(inputs))
	for i, name := range inputs {
		c := byName[name]
		kind, _ := pre.InputKind(name)
		switch {
		case kind == dataset.Numeric && c.IsLabel:
			return nil, fcErrors.NewConfigError(op, fmt.Sprintf("column %q needs a number, got label %q", name, c.Label))
		case kind == dataset.Numeric && (math.IsNaN(c.Number) || math.IsInf(c.Number, 0)):
			return nil, fcErrors.NewConfigError(op, fmt.Sprintf("column %q needs a finite number", name))
		case kind == dataset.Numeric:
			cols[i] = dataset.NewNumericColumn(name, []float64{c.Number})
		case !c.IsLabel:
			return nil, fcErrors.NewConfigError(op, fmt.Sprintf("column %q needs a label", name))
		default:
			cols[i] = dataset.NewCategoricalColumn(name, []string{c.Label}, nil)
		}
	}
	return dataset.NewTable(cols...)
}

// Predict runs one row through the trained pipeline.
func (r *Result) Predict(row Row) (float64, error) {
	return Predict(r.Pipeline, row, r.LogTargetUsed)
}

// ResidualSigma is the sample standard deviation (n-1) of the held-out
// residuals YTest - YPred. It is 0 with fewer than two test rows.
func (r *Result) ResidualSigma() float64 {
	resid, err := metrics.Residuals(r.Split.YTest, r.YPred)
	if err != nil || len(resid) < 2 {
		return 0
	}
	return stat.StdDev(resid, nil)
}

// PredictWithInterval predicts row and adds ±1.96σ of the test residuals.
// The band assumes normal, homoscedastic residuals.
func (r *Result) PredictWithInterval(row Row) (Interval, error) {
	pred, err := r.Predict(row)
	if err != nil {
		return Interval{}, err
	}
	sigma := r.ResidualSigma()
	return Interval{
		Prediction: pred,
		Lower:      pred - ConfidenceZ*sigma,
		Upper:      pred + ConfidenceZ*sigma,
		Sigma:      sigma,
	}, nil
}
