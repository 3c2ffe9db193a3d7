// Package visualize renders the evaluation charts as PNG images with
// gonum/plot: predicted against actual values, the residual distribution,
// a correlation heatmap of the numeric columns and the feature importances.
package visualize

import (
	"bytes"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

// Chart dimensions.
const (
	Width  = 8 * vg.Inch
	Height = 6 * vg.Inch
)

// ResidualBins is the number of histogram bins.
const ResidualBins = 30

// TopFeatures is the number of bars drawn by FeatureImportanceBars.
const TopFeatures = 15

// PredictedVsActual draws a scatter of predictions against actual values
// with the y = x reference line.
func PredictedVsActual(actual, predicted []float64) ([]byte, error) {
	if len(actual) != len(predicted) {
		return nil, fcErrors.NewDimensionError("visualize.PredictedVsActual", len(actual), len(predicted), 0)
	}
	if len(actual) == 0 {
		return nil, fcErrors.NewValueError("visualize.PredictedVsActual", "no points to draw")
	}

	p := plot.New()
	p.Title.Text = "Predicted vs Actual"
	p.X.Label.Text = "Actual"
	p.Y.Label.Text = "Predicted"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(actual))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range actual {
		pts[i].X = actual[i]
		pts[i].Y = predicted[i]
		lo = math.Min(lo, math.Min(actual[i], predicted[i]))
		hi = math.Max(hi, math.Max(actual[i], predicted[i]))
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fcErrors.Wrap(err, "failed to create scatter")
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 160}
	scatter.GlyphStyle.Radius = vg.Points(3)

	ref, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, fcErrors.Wrap(err, "failed to create reference line")
	}
	ref.LineStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	ref.LineStyle.Width = vg.Points(1.5)
	ref.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}

	p.Add(scatter, ref)
	p.Legend.Add("Predictions", scatter)
	p.Legend.Add("Perfect prediction", ref)
	p.Legend.Top = true
	p.Legend.Left = true
	return render(p)
}

// ResidualHistogram draws the distribution of actual minus predicted.
func ResidualHistogram(actual, predicted []float64) ([]byte, error) {
	if len(actual) != len(predicted) {
		return nil, fcErrors.NewDimensionError("visualize.ResidualHistogram", len(actual), len(predicted), 0)
	}
	if len(actual) == 0 {
		return nil, fcErrors.NewValueError("visualize.ResidualHistogram", "no residuals to draw")
	}
	resid := make(plotter.Values, len(actual))
	for i := range actual {
		resid[i] = actual[i] - predicted[i]
	}

	p := plot.New()
	p.Title.Text = "Residual Distribution"
	p.X.Label.Text = "Residual (actual - predicted)"
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(resid, ResidualBins)
	if err != nil {
		return nil, fcErrors.Wrap(err, "failed to create histogram")
	}
	h.FillColor = color.RGBA{R: 44, G: 160, B: 44, A: 200}
	p.Add(h)
	return render(p)
}

// FeatureImportanceBars draws a horizontal bar per feature for the TopFeatures
// largest importances, largest on top. names and values must be sorted in
// descending importance.
func FeatureImportanceBars(names []string, values []float64) ([]byte, error) {
	if len(names) != len(values) {
		return nil, fcErrors.NewDimensionError("visualize.FeatureImportanceBars", len(names), len(values), 0)
	}
	if len(names) == 0 {
		return nil, fcErrors.NewValueError("visualize.FeatureImportanceBars", "no importances to draw")
	}
	k := min(len(names), TopFeatures)

	// bars are drawn bottom-up
	labels := make([]string, k)
	vals := make(plotter.Values, k)
	for i := 0; i < k; i++ {
		labels[k-1-i] = names[i]
		vals[k-1-i] = values[i]
	}

	p := plot.New()
	p.Title.Text = "Feature Importances"
	p.X.Label.Text = "Importance"

	bars, err := plotter.NewBarChart(vals, vg.Points(14))
	if err != nil {
		return nil, fcErrors.Wrap(err, "failed to create bar chart")
	}
	bars.Horizontal = true
	bars.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(labels...)
	return render(p)
}

func render(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return nil, fcErrors.Wrap(err, "failed to render chart")
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fcErrors.Wrap(err, "failed to encode chart")
	}
	return buf.Bytes(), nil
}
