package report

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/analysis"
	"github.com/KaramelBytes/aircheck-cli/internal/utils"
)

// Chart size in inches.
const (
	chartWidth  = 10
	chartHeight = 5
)

// ChartTitle is the heading used for a pollutant trend chart.
func ChartTitle(site string, p air.Pollutant, year int) string {
	return fmt.Sprintf("%s Levels in %s (%d)", p, site, year)
}

// NewChart plots the series with markers and a dashed red line at the pollutant's threshold.
func NewChart(site string, p air.Pollutant, year int, pts []analysis.Point) (*plot.Plot, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: nothing to plot", air.ErrNoReadings)
	}
	pl := plot.New()
	pl.Title.Text = ChartTitle(site, p, year)
	pl.Title.TextStyle.Font.Size = vg.Points(14)
	pl.X.Label.Text = "Date"
	pl.Y.Label.Text = fmt.Sprintf("%s (%s)", p, air.Unit)
	pl.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	pl.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i].X = float64(pt.Date.Unix())
		xys[i].Y = pt.Value
	}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, fmt.Errorf("series line: %w", err)
	}
	line.Width = vg.Points(1.5)
	points.GlyphStyle.Shape = draw.CircleGlyph{}
	points.GlyphStyle.Radius = vg.Points(3)

	threshold := p.Threshold()
	limit := plotter.NewFunction(func(float64) float64 { return threshold })
	limit.Color = color.RGBA{R: 220, A: 255}
	limit.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	limit.Width = vg.Points(1.5)

	pl.Add(line, points, limit)
	pl.Legend.Add(p.String(), line, points)
	pl.Legend.Add("Threshold", limit)
	pl.Legend.Top = true

	// Keep the threshold visible even when every reading is far below it.
	if pl.Y.Max < threshold {
		pl.Y.Max = threshold * 1.1
	}
	if pl.Y.Min > threshold {
		pl.Y.Min = threshold * 0.9
	}
	if len(pts) == 1 {
		pl.X.Min -= 86400
		pl.X.Max += 86400
	}
	return pl, nil
}

// WriteChartPNG renders the chart as PNG to w.
func WriteChartPNG(w io.Writer, site string, p air.Pollutant, year int, pts []analysis.Point) error {
	pl, err := NewChart(site, p, year, pts)
	if err != nil {
		return err
	}
	wt, err := pl.WriterTo(chartWidth*vg.Inch, chartHeight*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveChart writes the PNG into dir and returns the file path.
func SaveChart(dir, site string, p air.Pollutant, year int, pts []analysis.Point) (string, error) {
	var buf bytes.Buffer
	if err := WriteChartPNG(&buf, site, p, year, pts); err != nil {
		return "", err
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}
	path := filepath.Join(dir, ChartFileName(site, p, year))
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// ChartFileName builds a file-system safe name such as "pm25_gikomero_2022.png".
func ChartFileName(site string, p air.Pollutant, year int) string {
	clean := func(s string) string {
		var b strings.Builder
		for _, r := range strings.ToLower(s) {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				b.WriteRune(r)
			case r == ' ', r == '-', r == '_':
				b.WriteRune('-')
			}
		}
		return strings.Trim(b.String(), "-")
	}
	return fmt.Sprintf("%s_%s_%d.png", clean(p.String()), clean(site), year)
}
