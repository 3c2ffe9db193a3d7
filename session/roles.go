package session

import (
	"slices"

	"github.com/ezoic/forestcal/config"
	"github.com/ezoic/forestcal/dataset"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

// Roles assigns the target and the feature columns.
type Roles struct {
	Target   string   `json:"target"`
	Features []string `json:"features"`
}

// Validate checks the roles against t. Violations are ConfigErrors; missing
// columns are listed in ConfigError.Missing.
func (r Roles) Validate(t *dataset.Table) error {
	const op = "Roles.Validate"
	if len(r.Features) == 0 {
		return fcErrors.NewConfigError(op, "no feature columns selected")
	}
	if r.Target == "" {
		return fcErrors.NewConfigError(op, "no target column selected")
	}
	if !t.Has(r.Target) {
		return fcErrors.NewConfigError(op, "target column not found", r.Target)
	}
	if missing := t.Missing(r.Features); len(missing) > 0 {
		return fcErrors.NewConfigError(op, "feature columns not found", missing...)
	}
	if slices.Contains(r.Features, r.Target) {
		return fcErrors.NewConfigError(op, "target column is also selected as a feature", r.Target)
	}
	seen := make(map[string]bool, len(r.Features))
	for _, f := range r.Features {
		if seen[f] {
			return fcErrors.NewConfigError(op, "feature selected twice", f)
		}
		seen[f] = true
	}
	return nil
}

// Reconcile adapts r to the columns of t, typically after a new dataset was
// loaded. A target that no longer exists is re-suggested from the target
// keywords, falling back to the first column. When any feature no longer
// exists the whole feature list is re-suggested. The target is never kept as
// a feature.
func (r Roles) Reconcile(t *dataset.Table, d config.Data) Roles {
	columns := t.Names()
	if len(columns) == 0 {
		return Roles{}
	}

	out := Roles{Target: r.Target, Features: slices.Clone(r.Features)}
	if out.Target == "" || !t.Has(out.Target) {
		out.Target = dataset.SuggestTarget(columns, d.TargetKeywords)
		if out.Target == "" {
			out.Target = columns[0]
		}
	}
	if out.Features == nil || len(t.Missing(out.Features)) > 0 {
		out.Features = dataset.SuggestFeatures(columns, out.Target, d.ExcludeColumns, d.Priorities)
	}

	out.Features = slices.DeleteFunc(out.Features, func(f string) bool { return f == out.Target })
	if len(out.Features) == 0 {
		for _, c := range columns {
			if c != out.Target && !slices.Contains(d.ExcludeColumns, c) {
				out.Features = append(out.Features, c)
			}
		}
	}
	return out
}

// CriticalHints lists important columns present in t but not selected.
func (r Roles) CriticalHints(t *dataset.Table) []string {
	return dataset.CriticalFeatureHints(t.Names(), r.Features)
}
