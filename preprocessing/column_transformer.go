package preprocessing

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/forestcal/core/model"
	"github.com/ezoic/forestcal/dataset"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

// Output name prefixes, matching scikit-learn's ColumnTransformer.
const (
	CategoricalPrefix = "cat__"
	NumericPrefix     = "num__"
	RemainderPrefix   = "remainder__"
)

// ColumnTransformer maps a feature table to the model's design matrix.
//
// Output layout, left to right:
//
//	cat__<col>_<category>   one-hot block (only when categorical features exist)
//	num__<col>              standardized block (only when scaling is on)
//	remainder__<col>        every other input column, unchanged
//
// When there is nothing to encode or scale the transformer is an identity
// passthrough and output names are the raw column names.
type ColumnTransformer struct {
	state *model.StateManager

	numeric     []string
	categorical []string
	useScaling  bool

	encoder *OneHotEncoder
	scaler  *StandardScaler

	inputColumns []string
	remainder    []string
	namesOut     []string
	kinds        map[string]dataset.Kind
}

// NewColumnTransformer creates an unfitted transformer.
//
// Parameters:
//   - numeric: numeric feature names (scaled when useScaling)
//   - categorical: categorical feature names (one-hot encoded)
//   - useScaling: whether to standardize numeric features
func NewColumnTransformer(numeric, categorical []string, useScaling bool) *ColumnTransformer {
	return &ColumnTransformer{
		state:       model.NewStateManager(),
		numeric:     slices.Clone(numeric),
		categorical: slices.Clone(categorical),
		useScaling:  useScaling,
	}
}

// IsPassthrough reports whether the transformer leaves inputs unchanged.
func (ct *ColumnTransformer) IsPassthrough() bool {
	return len(ct.categorical) == 0 && !(ct.useScaling && len(ct.numeric) > 0)
}

// IsFitted reports whether Fit succeeded.
func (ct *ColumnTransformer) IsFitted() bool { return ct.state.IsFitted() }

// Fit learns encoder categories and scaler statistics from X.
// X must contain every configured numeric and categorical column; any other
// column is passed through and must be numeric.
func (ct *ColumnTransformer) Fit(X *dataset.Table) (err error) {
	defer fcErrors.Recover(&err, "ColumnTransformer.Fit")
	if X.NRows() == 0 {
		return fcErrors.NewModelError("ColumnTransformer.Fit", "empty data", fcErrors.ErrEmptyData)
	}
	configured := append(slices.Clone(ct.categorical), ct.numeric...)
	if missing := X.Missing(configured); len(missing) > 0 {
		return fcErrors.NewConfigError("ColumnTransformer.Fit", "columns not found", missing...)
	}

	ct.inputColumns = X.Names()
	ct.kinds = make(map[string]dataset.Kind, X.NCols())
	for _, c := range X.Columns() {
		ct.kinds[c.Name] = c.Kind
	}

	var names []string
	passthrough := ct.IsPassthrough()

	ct.encoder = nil
	if len(ct.categorical) > 0 {
		ct.encoder = NewOneHotEncoder()
		if err := ct.encoder.Fit(labelRows(X, ct.categorical)); err != nil {
			return err
		}
		for _, n := range ct.encoder.GetFeatureNamesOut(ct.categorical) {
			names = append(names, CategoricalPrefix+n)
		}
	}

	ct.scaler = nil
	scaled := []string{}
	if ct.useScaling && len(ct.numeric) > 0 {
		block, err := numericBlock(X, ct.numeric)
		if err != nil {
			return err
		}
		ct.scaler = NewStandardScalerDefault()
		if err := ct.scaler.Fit(block); err != nil {
			return err
		}
		scaled = ct.numeric
		for _, n := range ct.numeric {
			names = append(names, NumericPrefix+n)
		}
	}

	ct.remainder = ct.remainder[:0]
	for _, n := range ct.inputColumns {
		if slices.Contains(ct.categorical, n) || slices.Contains(scaled, n) {
			continue
		}
		if ct.kinds[n] != dataset.Numeric {
			return fcErrors.NewValueError("ColumnTransformer.Fit",
				fmt.Sprintf("column %q is not numeric and is not configured as categorical", n))
		}
		ct.remainder = append(ct.remainder, n)
		if passthrough {
			names = append(names, n)
		} else {
			names = append(names, RemainderPrefix+n)
		}
	}

	if len(names) == 0 {
		return fcErrors.NewValueError("ColumnTransformer.Fit", "transformation produces no output columns")
	}
	ct.namesOut = names
	ct.state.SetDimensions(len(ct.inputColumns), X.NRows())
	ct.state.SetFitted()
	return nil
}

// Transform builds the design matrix for X using the fitted statistics.
// Categories unseen during Fit encode to all zeros.
func (ct *ColumnTransformer) Transform(X *dataset.Table) (_ *mat.Dense, err error) {
	defer fcErrors.Recover(&err, "ColumnTransformer.Transform")
	if !ct.state.IsFitted() {
		return nil, fcErrors.NewNotFittedError("ColumnTransformer", "Transform")
	}
	if X.NRows() == 0 {
		return nil, fcErrors.NewValueError("ColumnTransformer.Transform", "no rows to transform")
	}
	if missing := X.Missing(ct.inputColumns); len(missing) > 0 {
		return nil, fcErrors.NewConfigError("ColumnTransformer.Transform", "columns not found", missing...)
	}

	out := mat.NewDense(X.NRows(), len(ct.namesOut), nil)
	offset := 0

	if ct.encoder != nil && ct.encoder.NOutputs > 0 {
		enc, err := ct.encoder.Transform(labelRows(X, ct.categorical))
		if err != nil {
			return nil, err
		}
		offset = copyBlock(out, enc, offset)
	}

	if ct.scaler != nil {
		block, err := numericBlock(X, ct.numeric)
		if err != nil {
			return nil, err
		}
		scaled, err := ct.scaler.Transform(block)
		if err != nil {
			return nil, err
		}
		offset = copyBlock(out, scaled, offset)
	}

	if len(ct.remainder) > 0 {
		block, err := numericBlock(X, ct.remainder)
		if err != nil {
			return nil, err
		}
		copyBlock(out, block, offset)
	}
	return out, nil
}

// FitTransform fits on X and transforms it.
func (ct *ColumnTransformer) FitTransform(X *dataset.Table) (*mat.Dense, error) {
	if err := ct.Fit(X); err != nil {
		return nil, err
	}
	return ct.Transform(X)
}

// FeatureNamesOut returns the output column names in matrix order, or nil
// before Fit.
func (ct *ColumnTransformer) FeatureNamesOut() []string {
	if !ct.state.IsFitted() {
		return nil
	}
	return slices.Clone(ct.namesOut)
}

// InputColumns returns the columns seen during Fit, in order.
func (ct *ColumnTransformer) InputColumns() []string {
	return slices.Clone(ct.inputColumns)
}

// InputKind returns the kind a fitted input column had.
func (ct *ColumnTransformer) InputKind(name string) (dataset.Kind, bool) {
	k, ok := ct.kinds[name]
	return k, ok
}

// labelRows extracts categorical columns as row-major labels. Missing cells
// become MissingLabel.
func labelRows(X *dataset.Table, names []string) [][]string {
	cols := make([]*dataset.Column, len(names))
	for j, n := range names {
		cols[j], _ = X.Column(n)
	}
	rows := make([][]string, X.NRows())
	for i := range rows {
		row := make([]string, len(cols))
		for j, c := range cols {
			if c.IsMissing(i) {
				row[j] = MissingLabel
			} else {
				row[j] = c.String(i)
			}
		}
		rows[i] = row
	}
	return rows
}

// numericBlock extracts numeric columns into a dense matrix.
func numericBlock(X *dataset.Table, names []string) (*mat.Dense, error) {
	block := mat.NewDense(X.NRows(), len(names), nil)
	for j, n := range names {
		c, _ := X.Column(n)
		if c.Kind != dataset.Numeric {
			return nil, fcErrors.NewValueError("ColumnTransformer", fmt.Sprintf("column %q must be numeric", n))
		}
		block.SetCol(j, c.Nums)
	}
	return block, nil
}

// copyBlock writes src into dst starting at column offset and returns the
// next free column.
func copyBlock(dst *mat.Dense, src mat.Matrix, offset int) int {
	r, c := src.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(i, offset+j, src.At(i, j))
		}
	}
	return offset + c
}
