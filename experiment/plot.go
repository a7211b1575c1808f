package experiment

import (
	"bytes"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/winetrack/pkg/errors"
)

// renderPredictionPlot renders a predicted-vs-actual scatter plot with the
// identity line as PNG bytes. Points on the line are perfect predictions.
func renderPredictionPlot(actual, predicted *mat.VecDense) ([]byte, error) {
	n := actual.Len()
	if n == 0 || predicted.Len() != n {
		return nil, errors.NewDimensionError("renderPredictionPlot", n, predicted.Len(), 0)
	}

	points := make(plotter.XYs, n)
	lo, hi := actual.AtVec(0), actual.AtVec(0)
	for i := 0; i < n; i++ {
		a, p := actual.AtVec(i), predicted.AtVec(i)
		points[i] = plotter.XY{X: a, Y: p}
		lo = min(lo, min(a, p))
		hi = max(hi, max(a, p))
	}

	pl := plot.New()
	pl.Title.Text = "Predicted vs actual wine quality"
	pl.X.Label.Text = "actual quality"
	pl.Y.Label.Text = "predicted quality"

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build scatter plot")
	}
	pl.Add(scatter)

	identity, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build identity line")
	}
	pl.Add(identity)

	writer, err := pl.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return nil, errors.Wrap(err, "failed to render plot")
	}
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to encode plot")
	}
	return buf.Bytes(), nil
}
