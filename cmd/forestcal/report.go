package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/ezoic/forestcal/metrics"
	"github.com/ezoic/forestcal/session"
	"github.com/ezoic/forestcal/visualize"
)

func writeReport(w io.Writer, s *session.Session, res *session.Result) error {
	sum := s.Summary()
	fmt.Fprintf(w, "Dataset: %d rows, %d columns, %d missing cells\n", sum.Rows, sum.Cols, sum.TotalMissing)
	fmt.Fprintf(w, "Target: %s\n", res.Roles.Target)
	fmt.Fprintf(w, "Features: %v\n", res.Roles.Features)
	for _, hint := range s.CriticalHints() {
		fmt.Fprintf(w, "Hint: %q is not selected as a feature\n", hint)
	}
	fmt.Fprintf(w, "Split: %d train / %d test rows, trained in %s\n\n",
		len(res.Split.YTrain), len(res.Split.YTest), res.Duration.Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Metric\tModel\tBaseline\tImprovement")
	m := res.Metrics
	fmt.Fprintf(tw, "MAE\t%.2f\t%.2f\t%.2f\n", m.Model.MAE, m.Baseline.MAE, m.MAEDelta)
	fmt.Fprintf(tw, "RMSE\t%.2f\t%.2f\t%.2f\n", m.Model.RMSE, m.Baseline.RMSE, m.RMSEDelta)
	fmt.Fprintf(tw, "R²\t%.3f\t%.3f\t%.3f\n", m.Model.R2, m.Baseline.R2, m.R2Delta)
	fmt.Fprintf(tw, "Explained variance\t%.3f\t%.3f\t\n", m.Model.ExplainedVariance, m.Baseline.ExplainedVariance)
	fmt.Fprintf(tw, "MAPE\t%s\t\t\n", formatMAPE(m.Model))
	if err := tw.Flush(); err != nil {
		return err
	}

	if res.ImportancesAvailable {
		fmt.Fprintln(w, "\nFeature importances:")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for i, fi := range res.Importances {
			if i == visualize.TopFeatures {
				break
			}
			fmt.Fprintf(tw, "  %s\t%.4f\n", fi.Feature, fi.Importance)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, msg := range res.Warnings {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
	return nil
}

func formatMAPE(s metrics.Scores) string {
	if s.MAPE == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *s.MAPE)
}

type jsonReport struct {
	Target               string                      `json:"target"`
	Features             []string                    `json:"features"`
	TrainRows            int                         `json:"train_rows"`
	TestRows             int                         `json:"test_rows"`
	DurationMs           int64                       `json:"duration_ms"`
	Metrics              metrics.Evaluation          `json:"metrics"`
	Importances          []session.FeatureImportance `json:"importances,omitempty"`
	ImportancesAvailable bool                        `json:"importances_available"`
	LogTargetUsed        bool                        `json:"log_target_used"`
	CriticalHints        []string                    `json:"critical_hints,omitempty"`
	Warnings             []string                    `json:"warnings,omitempty"`
}

func writeJSONReport(w io.Writer, s *session.Session, res *session.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Target:               res.Roles.Target,
		Features:             res.Roles.Features,
		TrainRows:            len(res.Split.YTrain),
		TestRows:             len(res.Split.YTest),
		DurationMs:           res.Duration.Milliseconds(),
		Metrics:              res.Metrics,
		Importances:          res.Importances,
		ImportancesAvailable: res.ImportancesAvailable,
		LogTargetUsed:        res.LogTargetUsed,
		CriticalHints:        s.CriticalHints(),
		Warnings:             res.Warnings,
	})
}

func writePredictions(path string, res *session.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := res.WritePredictionsCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type chart struct {
	name   string
	render func() ([]byte, error)
}

func writeCharts(dir string, res *session.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	charts := []chart{
		{"predicted_vs_actual.png", func() ([]byte, error) { return visualize.PredictedVsActual(res.Split.YTest, res.YPred) }},
		{"residuals.png", func() ([]byte, error) { return visualize.ResidualHistogram(res.Split.YTest, res.YPred) }},
		{"correlation.png", func() ([]byte, error) { return visualize.CorrelationHeatmap(res.Processed) }},
	}
	if res.ImportancesAvailable {
		charts = append(charts, chart{"importances.png", func() ([]byte, error) {
			names := make([]string, len(res.Importances))
			values := make([]float64, len(res.Importances))
			for i, fi := range res.Importances {
				names[i], values[i] = fi.Feature, fi.Importance
			}
			return visualize.FeatureImportanceBars(names, values)
		}})
	}

	var paths []string
	for _, c := range charts {
		img, err := c.render()
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, c.name)
		if err := os.WriteFile(path, img, 0o644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
