package visualize

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"

	"github.com/ezoic/forestcal/dataset"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

// CorrelationMatrix returns the Pearson correlation of every pair of numeric
// columns of t. Each pair uses the rows where both values are present. A
// pair with fewer than two such rows, or with a constant column, is 0.
func CorrelationMatrix(t *dataset.Table) ([]string, *mat.SymDense) {
	var names []string
	var cols [][]float64
	for _, c := range t.Columns() {
		if c.Kind == dataset.Numeric {
			names = append(names, c.Name)
			cols = append(cols, c.Nums)
		}
	}
	n := len(names)
	if n == 0 {
		return nil, nil
	}

	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		corr.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			corr.SetSym(i, j, pairwise(cols[i], cols[j]))
		}
	}
	return names, corr
}

func pairwise(a, b []float64) float64 {
	x := make([]float64, 0, len(a))
	y := make([]float64, 0, len(b))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	if len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 is drawn at
// the top.
type corrGrid struct {
	m *mat.SymDense
}

func (g corrGrid) Dims() (c, r int)   { n := g.m.SymmetricDim(); return n, n }
func (g corrGrid) Z(c, r int) float64 { n := g.m.SymmetricDim(); return g.m.At(n-1-r, c) }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

// CorrelationHeatmap draws CorrelationMatrix(t) on a diverging blue-red scale
// from -1 to 1.
func CorrelationHeatmap(t *dataset.Table) ([]byte, error) {
	names, corr := CorrelationMatrix(t)
	if len(names) < 2 {
		return nil, fcErrors.NewValueError("visualize.CorrelationHeatmap", "need at least two numeric columns")
	}

	pal := moreland.SmoothBlueRed()
	pal.SetMin(-1)
	pal.SetMax(1)
	hm := plotter.NewHeatMap(corrGrid{corr}, pal.Palette(64))
	hm.Min = -1
	hm.Max = 1

	p := plot.New()
	p.Title.Text = "Correlation Heatmap"
	p.Add(hm)

	rev := make([]string, len(names))
	for i, name := range names {
		rev[len(names)-1-i] = name
	}
	p.NominalX(names...)
	p.NominalY(rev...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = -1
	return render(p)
}
