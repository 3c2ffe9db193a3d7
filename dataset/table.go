// Package dataset holds the tabular data model used by the training pipeline.
//
// A Table is an ordered set of equally long columns. Each Column is either
// Numeric (float64 values, NaN marks a missing cell) or Categorical (string
// labels plus a missing mask). Tables are treated as immutable: every
// operation that changes data returns a new Table and leaves its receiver
// untouched, so a processed table can be shared with concurrent readers.
package dataset

import (
	"math"
	"strconv"

	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

// Kind is the storage type of a column.
type Kind int

const (
	// Numeric columns store float64 values. NaN is missing.
	Numeric Kind = iota
	// Categorical columns store string labels with an explicit missing mask.
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Column is a single named column.
type Column struct {
	Name    string
	Kind    Kind
	Nums    []float64
	Labels  []string
	Missing []bool
}

// NewNumericColumn creates a numeric column. NaN entries are missing.
func NewNumericColumn(name string, values []float64) *Column {
	v := make([]float64, len(values))
	copy(v, values)
	return &Column{Name: name, Kind: Numeric, Nums: v}
}

// NewCategoricalColumn creates a categorical column. missing may be nil.
func NewCategoricalColumn(name string, labels []string, missing []bool) *Column {
	l := make([]string, len(labels))
	copy(l, labels)
	m := make([]bool, len(labels))
	if missing != nil {
		copy(m, missing)
	}
	return &Column{Name: name, Kind: Categorical, Labels: l, Missing: m}
}

// Len returns the number of rows.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Nums)
	}
	return len(c.Labels)
}

// IsMissing reports whether row i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Nums[i])
	}
	return c.Missing[i]
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// String formats row i. Missing cells format as "".
func (c *Column) String(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	if c.Kind == Numeric {
		return strconv.FormatFloat(c.Nums[i], 'g', -1, 64)
	}
	return c.Labels[i]
}

// Clone returns a deep copy.
func (c *Column) Clone() *Column {
	if c.Kind == Numeric {
		return NewNumericColumn(c.Name, c.Nums)
	}
	return NewCategoricalColumn(c.Name, c.Labels, c.Missing)
}

// Take returns a new column holding rows idx in that order.
func (c *Column) Take(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Nums = make([]float64, len(idx))
		for k, i := range idx {
			out.Nums[k] = c.Nums[i]
		}
		return out
	}
	out.Labels = make([]string, len(idx))
	out.Missing = make([]bool, len(idx))
	for k, i := range idx {
		out.Labels[k] = c.Labels[i]
		out.Missing[k] = c.Missing[i]
	}
	return out
}

// Table is an ordered collection of equally long columns.
type Table struct {
	cols  []*Column
	index map[string]int
	nrows int
}

// NewTable builds a table. Column names must be unique and lengths equal.
// The columns are adopted, not copied.
func NewTable(cols ...*Column) (*Table, error) {
	t := &Table{cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := t.index[c.Name]; dup {
			return nil, fcErrors.NewDataError("dataset.NewTable", "duplicate column "+strconv.Quote(c.Name), nil)
		}
		t.index[c.Name] = i
		if i == 0 {
			t.nrows = c.Len()
		} else if c.Len() != t.nrows {
			return nil, fcErrors.NewDimensionError("dataset.NewTable", t.nrows, c.Len(), 0)
		}
	}
	return t, nil
}

// mustTable is used by operations that preserve the table invariants.
func mustTable(cols []*Column) *Table {
	t, err := NewTable(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// NRows returns the number of rows.
func (t *Table) NRows() int { return t.nrows }

// NCols returns the number of columns.
func (t *Table) NCols() int { return len(t.cols) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column. The column must not be modified.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Columns returns the columns in order. They must not be modified.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// Missing returns the names of the given columns that are not in the table.
func (t *Table) Missing(names []string) []string {
	var out []string
	for _, n := range names {
		if !t.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// Select returns a table with the named columns in the given order.
func (t *Table) Select(names []string) (*Table, error) {
	if missing := t.Missing(names); len(missing) > 0 {
		return nil, fcErrors.NewConfigError("Table.Select", "columns not found", missing...)
	}
	cols := make([]*Column, len(names))
	for i, n := range names {
		c, _ := t.Column(n)
		cols[i] = c.Clone()
	}
	return NewTable(cols...)
}

// Take returns the rows idx in that order.
func (t *Table) Take(idx []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Take(idx)
	}
	out := mustTable(cols)
	out.nrows = len(idx)
	return out
}

// Filter returns the rows for which keep is true.
func (t *Table) Filter(keep []bool) *Table {
	idx := make([]int, 0, t.nrows)
	for i := 0; i < t.nrows; i++ {
		if keep[i] {
			idx = append(idx, i)
		}
	}
	return t.Take(idx)
}

// WithColumn returns a copy where col replaces the column of the same name,
// or is appended when no such column exists.
func (t *Table) WithColumn(col *Column) (*Table, error) {
	if len(t.cols) > 0 && col.Len() != t.nrows {
		return nil, fcErrors.NewDimensionError("Table.WithColumn", t.nrows, col.Len(), 0)
	}
	cols := make([]*Column, 0, len(t.cols)+1)
	replaced := false
	for _, c := range t.cols {
		if c.Name == col.Name {
			cols = append(cols, col)
			replaced = true
			continue
		}
		cols = append(cols, c)
	}
	if !replaced {
		cols = append(cols, col)
	}
	return NewTable(cols...)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Clone()
	}
	out := mustTable(cols)
	out.nrows = t.nrows
	return out
}

// TotalMissing counts missing cells across all columns.
func (t *Table) TotalMissing() int {
	n := 0
	for _, c := range t.cols {
		n += c.MissingCount()
	}
	return n
}
