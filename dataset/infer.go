package dataset

// FeatureTypes partitions feature names by kind, preserving input order.
type FeatureTypes struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
}

// InferFeatureTypes classifies each feature: a column stored as Numeric is
// numeric, everything else is categorical. Features absent from the table
// are skipped; role validation reports them.
func InferFeatureTypes(t *Table, features []string) FeatureTypes {
	ft := FeatureTypes{Numeric: []string{}, Categorical: []string{}}
	for _, f := range features {
		c, ok := t.Column(f)
		if !ok {
			continue
		}
		if c.Kind == Numeric {
			ft.Numeric = append(ft.Numeric, f)
		} else {
			ft.Categorical = append(ft.Categorical, f)
		}
	}
	return ft
}

// CategoricalColumns lists every categorical column of the table.
func CategoricalColumns(t *Table) []string {
	var out []string
	for _, c := range t.cols {
		if c.Kind == Categorical {
			out = append(out, c.Name)
		}
	}
	return out
}
