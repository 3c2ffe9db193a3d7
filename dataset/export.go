package dataset

import (
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

// ToDataFrame converts the table to a gota DataFrame.
func (t *Table) ToDataFrame() dataframe.DataFrame {
	ss := make([]series.Series, 0, len(t.cols))
	for _, c := range t.cols {
		if c.Kind == Numeric {
			ss = append(ss, series.New(c.Nums, series.Float, c.Name))
			continue
		}
		vals := make([]interface{}, c.Len())
		for i := range vals {
			if c.Missing[i] {
				vals[i] = nil
			} else {
				vals[i] = c.Labels[i]
			}
		}
		ss = append(ss, series.New(vals, series.String, c.Name))
	}
	return dataframe.New(ss...)
}

// WriteCSV writes the table with a header row. Missing cells are written as NaN.
func (t *Table) WriteCSV(w io.Writer) error {
	df := t.ToDataFrame()
	if df.Err != nil {
		return fcErrors.Wrap(df.Err, "dataset: build dataframe")
	}
	if err := df.WriteCSV(w); err != nil {
		return fcErrors.Wrap(err, "dataset: write csv")
	}
	return nil
}
