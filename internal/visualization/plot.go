package visualization

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/models"
)

// PlotConfig controls the forecast figure
type PlotConfig struct {
	Width        vg.Length `json:"width"`         // figure width
	PanelHeight  vg.Length `json:"panel_height"`  // height of one forecaster panel
	HistoryWeeks int       `json:"history_weeks"` // training weeks drawn before the test window, 0 draws all
}

// DefaultPlotConfig returns a figure sized for a terminal-opened PNG
func DefaultPlotConfig() *PlotConfig {
	return &PlotConfig{
		Width:        10 * vg.Inch,
		PanelHeight:  3 * vg.Inch,
		HistoryWeeks: 104,
	}
}

var (
	historyColor  = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	actualColor   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	forecastColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	intervalColor = color.RGBA{R: 31, G: 119, B: 180, A: 60}
)

// Plotter draws one panel per successful forecaster: training history, held-out
// truth, the forecast and its prediction interval
type Plotter struct {
	config *PlotConfig
	logger *logrus.Logger
}

// NewPlotter creates a new plotter
func NewPlotter(config *PlotConfig, logger *logrus.Logger) *Plotter {
	if config == nil {
		config = DefaultPlotConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &Plotter{
		config: config,
		logger: logger,
	}
}

// RenderPNG returns the figure as PNG bytes
func (p *Plotter) RenderPNG(report *models.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.WritePNG(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WritePNG draws the figure to w. Forecasters appear in ranking order. A report
// without results still gets one panel with the series.
func (p *Plotter) WritePNG(w io.Writer, report *models.Report) error {
	panels, err := p.panels(report)
	if err != nil {
		return err
	}

	rows := len(panels)
	img := vgimg.New(p.config.Width, p.config.PanelHeight*vg.Length(rows))
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      4 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  4 * vg.Millimeter,
	}

	grid := make([][]*plot.Plot, rows)
	for i, pl := range panels {
		grid[i] = []*plot.Plot{pl}
	}

	canvases := plot.Align(grid, tiles, dc)
	for i := range grid {
		grid[i][0].Draw(canvases[i][0])
	}

	n, err := vgimg.PngCanvas{Canvas: img}.WriteTo(w)
	if err != nil {
		return fmt.Errorf("failed to encode plot: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"run_id": report.RunID,
		"panels": rows,
		"bytes":  n,
	}).Debug("Rendered forecast plot")

	return nil
}

func (p *Plotter) panels(report *models.Report) ([]*plot.Plot, error) {
	history := tail(report.Train, p.config.HistoryWeeks)
	results := report.Results()

	names := make([]string, 0, len(results))
	if report.Ranking != nil {
		for _, row := range report.Ranking.Rows {
			names = append(names, row.Forecaster)
		}
	} else {
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	if len(names) == 0 {
		pl, err := p.basePanel(fmt.Sprintf("%s (no successful forecasts)", report.Source), history, report.Test)
		if err != nil {
			return nil, err
		}
		return []*plot.Plot{pl}, nil
	}

	out := make([]*plot.Plot, 0, len(names))
	for _, name := range names {
		result := results[name]
		value, _ := result.Accuracy.Get(report.Metric)
		title := fmt.Sprintf("%s  (%s %.4f)", name, report.Metric, value)

		pl, err := p.basePanel(title, history, report.Test)
		if err != nil {
			return nil, err
		}
		if err := addForecast(pl, result); err != nil {
			return nil, err
		}
		out = append(out, pl)
	}
	return out, nil
}

func (p *Plotter) basePanel(title string, history, test *models.Series) (*plot.Plot, error) {
	pl := plot.New()
	pl.Title.Text = title
	pl.Y.Label.Text = "value"
	pl.X.Tick.Marker = plot.TimeTicks{Format: constants.DateLayout}
	pl.Legend.Top = true
	pl.Legend.Left = true
	pl.Add(plotter.NewGrid())

	if history.Len() > 0 {
		line, err := plotter.NewLine(xys(history.Timestamps, history.Values))
		if err != nil {
			return nil, fmt.Errorf("failed to plot history: %w", err)
		}
		line.Color = historyColor
		pl.Add(line)
		pl.Legend.Add("train", line)
	}

	if test.Len() > 0 {
		line, err := plotter.NewLine(xys(test.Timestamps, test.Values))
		if err != nil {
			return nil, fmt.Errorf("failed to plot test: %w", err)
		}
		line.Color = actualColor
		line.Width = vg.Points(1.5)
		pl.Add(line)
		pl.Legend.Add("actual", line)
	}

	return pl, nil
}

func addForecast(pl *plot.Plot, result *models.Result) error {
	ts := result.Predictions.Timestamps

	if len(result.Lower) == len(ts) && len(result.Upper) == len(ts) && len(ts) > 0 {
		band := make(plotter.XYs, 0, 2*len(ts))
		band = append(band, xys(ts, result.Lower)...)
		upper := xys(ts, result.Upper)
		for i := len(upper) - 1; i >= 0; i-- {
			band = append(band, upper[i])
		}
		poly, err := plotter.NewPolygon(band)
		if err != nil {
			return fmt.Errorf("failed to plot interval: %w", err)
		}
		poly.Color = intervalColor
		poly.LineStyle.Width = 0
		pl.Add(poly)
		pl.Legend.Add("interval", poly)
	}

	line, err := plotter.NewLine(xys(ts, result.Predictions.Values))
	if err != nil {
		return fmt.Errorf("failed to plot forecast: %w", err)
	}
	line.Color = forecastColor
	line.Width = vg.Points(1.5)
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	pl.Add(line)
	pl.Legend.Add("forecast", line)

	return nil
}

func xys(ts []time.Time, values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i := range values {
		pts[i].X = float64(ts[i].Unix())
		pts[i].Y = values[i]
	}
	return pts
}

func tail(s *models.Series, n int) *models.Series {
	if s.Len() == 0 || n <= 0 || s.Len() <= n {
		return s
	}
	return s.Slice(s.Len()-n, s.Len())
}
