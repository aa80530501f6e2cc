package chart

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/rhuss/askdata/pkg/frame"
)

// Size of rendered charts.
var (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
)

// Render draws data according to s and returns PNG bytes.
func Render(s *Spec, data *frame.Frame) ([]byte, error) {
	p := plot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = firstNonEmpty(s.XLabel, s.X)
	p.Y.Label.Text = s.YLabel
	p.Add(plotter.NewGrid())

	var err error
	switch s.Type {
	case TypeLine, TypeScatter:
		err = addXY(p, s, data)
	case TypeBar:
		err = addBars(p, s, data)
	case TypeHistogram:
		err = addHistogram(p, s, data)
	default:
		err = fmt.Errorf("unsupported chart type %q", s.Type)
	}
	if err != nil {
		return nil, err
	}

	w, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return nil, fmt.Errorf("encoding chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding chart: %w", err)
	}
	return buf.Bytes(), nil
}

// addXY draws one line or scatter series per y column. A non-numeric x
// column is drawn at positions 0..n-1 with its values as tick labels.
func addXY(p *plot.Plot, s *Spec, data *frame.Frame) error {
	xs, err := data.Floats(s.X)
	if err != nil {
		labels, lerr := data.Strings(s.X)
		if lerr != nil {
			return lerr
		}
		xs = make([]float64, len(labels))
		for i := range xs {
			xs[i] = float64(i)
		}
		p.NominalX(labels...)
	}

	for i, col := range s.Y {
		ys, err := data.Floats(col)
		if err != nil {
			return err
		}
		pts := make(plotter.XYs, len(ys))
		for j := range ys {
			pts[j].X, pts[j].Y = xs[j], ys[j]
		}
		if s.Type == TypeScatter {
			sc, err := plotter.NewScatter(pts)
			if err != nil {
				return fmt.Errorf("column %q: %w", col, err)
			}
			sc.GlyphStyle.Color = plotutil.Color(i)
			sc.GlyphStyle.Shape = plotutil.Shape(i)
			p.Add(sc)
			p.Legend.Add(col, sc)
			continue
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("column %q: %w", col, err)
		}
		l.LineStyle.Color = plotutil.Color(i)
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(col, l)
	}
	p.Legend.Top = true
	return nil
}

// addBars draws grouped bars, one group per row labelled by x.
func addBars(p *plot.Plot, s *Spec, data *frame.Frame) error {
	labels, err := data.Strings(s.X)
	if err != nil {
		return err
	}
	width := vg.Points(40 / float64(len(s.Y)))
	for i, col := range s.Y {
		ys, err := data.Floats(col)
		if err != nil {
			return err
		}
		b, err := plotter.NewBarChart(plotter.Values(ys), width)
		if err != nil {
			return fmt.Errorf("column %q: %w", col, err)
		}
		b.Color = plotutil.Color(i)
		b.LineStyle.Width = 0
		b.Offset = width * vg.Length(float64(i)-float64(len(s.Y)-1)/2)
		p.Add(b)
		p.Legend.Add(col, b)
	}
	p.Legend.Top = true
	p.NominalX(labels...)
	return nil
}

func addHistogram(p *plot.Plot, s *Spec, data *frame.Frame) error {
	xs, err := data.Floats(s.X)
	if err != nil {
		return err
	}
	bins := s.Bins
	if bins == 0 {
		bins = 16
	}
	h, err := plotter.NewHist(plotter.Values(xs), bins)
	if err != nil {
		return fmt.Errorf("column %q: %w", s.X, err)
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	if p.Y.Label.Text == "" {
		p.Y.Label.Text = "count"
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
