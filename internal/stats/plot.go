package stats

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/guptarohit/asciigraph"
	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisGutter          = "000.00 ┤"
	terminalWidthBackup = 80
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan,
	asciigraph.Magenta,
	asciigraph.Yellow,
	asciigraph.Green,
	asciigraph.Blue,
}

var seriesColorNames = []string{"cyan", "magenta", "yellow", "green", "blue"}

// PlotSeriesWithColor renders a line chart with optional forced color output.
func PlotSeriesWithColor(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	return plotSeries(w, title, series, width, height, forceColor)
}

func plotSeries(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	series = filterSeries(series)
	if len(series) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = autoPlotWidth()
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	data := make([][]float64, 0, len(series))
	for _, s := range series {
		data = append(data, padSeries(s.Values, maxSeriesLen(series)))
	}
	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(1),
	}
	useColor := shouldUseColor(w, forceColor)
	if useColor {
		opts = append(opts, asciigraph.SeriesColors(seriesColors[:min(len(series), len(seriesColors))]...))
	}
	graph := asciigraph.PlotMany(data, opts...)

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for _, s := range series {
		minVal, maxVal := seriesMinMax(s.Values)
		if _, err := fmt.Fprintf(w, "%s: min=%.2f max=%.2f\n", s.Name, minVal, maxVal); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, graph); err != nil {
		return err
	}
	if len(series) > 1 {
		if _, err := fmt.Fprintln(w, renderLegend(series, useColor)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderTrend plots the given durations in milliseconds, oldest first.
func RenderTrend(durations []time.Duration, width, height int, caption string) string {
	if len(durations) == 0 {
		return ""
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}
	if height < 3 {
		height = 3
	}
	values := make([]float64, len(durations))
	for i, d := range durations {
		values[i] = millis(d)
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(0),
		asciigraph.Caption(caption),
	)
}

func filterSeries(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

func maxSeriesLen(series []Series) int {
	maxLen := 0
	for _, s := range series {
		if len(s.Values) > maxLen {
			maxLen = len(s.Values)
		}
	}
	return maxLen
}

// Shorter series repeat their last value so every line spans the chart.
func padSeries(values []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, values)
	for i := len(values); i < n; i++ {
		out[i] = values[len(values)-1]
	}
	return out
}

func seriesMinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	return minVal, maxVal
}

func autoPlotWidth() int {
	return PlotWidthFor(terminalWidth())
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - utf8.RuneCountInString(axisGutter)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func renderLegend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		label := s.Name
		if i < len(seriesColorNames) {
			label = fmt.Sprintf("%s (%s)", s.Name, seriesColorNames[i])
		}
		if useColor && i < len(seriesColors) {
			label = seriesColors[i].String() + label + asciigraph.Default.String()
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}
