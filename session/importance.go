package session

import (
	"fmt"
	"sort"

	"github.com/ezoic/forestcal/core/model"
	"github.com/ezoic/forestcal/sklearn/pipeline"
)

// FeatureImportances pairs the forest importances with the preprocessor's
// output names, sorted by importance descending (ties keep output order).
// When the names are unavailable or their count disagrees, features are
// named feature_0, feature_1, ...
//
// The second result is false, with no error, when p is nil or unfitted or
// its estimator does not expose importances.
func FeatureImportances(p *pipeline.Pipeline) ([]FeatureImportance, bool) {
	if p == nil || !p.IsFitted() {
		return nil, false
	}
	fi, ok := p.Estimator().(model.FeatureImportancer)
	if !ok {
		return nil, false
	}
	importances, err := fi.FeatureImportances()
	if err != nil {
		return nil, false
	}

	names := p.FeatureNamesOut()
	if len(names) != len(importances) {
		names = make([]string, len(importances))
		for i := range names {
			names[i] = fmt.Sprintf("feature_%d", i)
		}
	}

	out := make([]FeatureImportance, len(importances))
	for i, v := range importances {
		out[i] = FeatureImportance{Feature: names[i], Importance: v}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out, true
}
