// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/strafeval/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Compute returns descriptive statistics for a duration collection. The
// standard deviation is the population variant. Input is not modified.
func Compute(durations []time.Duration) model.DescriptiveStats {
	n := len(durations)
	if n == 0 {
		return model.DescriptiveStats{}
	}
	sorted := make([]time.Duration, n)
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	middle := n / 2
	var median float64
	if n%2 == 0 {
		median = (float64(sorted[middle-1]) + float64(sorted[middle])) / 2
	} else {
		median = float64(sorted[middle])
	}

	average, stdDev := meanAndDeviation(durations)
	return model.DescriptiveStats{
		Median:       roundDuration(median),
		Min:          sorted[0],
		Max:          sorted[n-1],
		Average:      roundDuration(average),
		StdDeviation: roundDuration(stdDev),
		SampleCount:  n,
	}
}

func meanAndDeviation(durations []time.Duration) (float64, float64) {
	if len(durations) == 0 {
		return 0, 0
	}
	var sum float64
	for _, d := range durations {
		sum += float64(d)
	}
	count := float64(len(durations))
	mean := sum / count
	var variance float64
	for _, d := range durations {
		diff := float64(d) - mean
		variance += diff * diff
	}
	variance /= count
	return mean, math.Sqrt(variance)
}

// Mean returns the arithmetic mean, or zero for an empty collection.
func Mean(durations []time.Duration) time.Duration {
	mean, _ := meanAndDeviation(durations)
	return roundDuration(mean)
}

func roundDuration(v float64) time.Duration {
	return time.Duration(math.Round(v))
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// FormatMillis renders a duration as whole milliseconds.
func FormatMillis(d time.Duration) string {
	return fmt.Sprintf("%.0f ms", float64(d)/float64(time.Millisecond))
}

// RenderStatsTable prints median/average/min/max/deviation/samples for the
// all, early and late partitions.
func RenderStatsTable(w io.Writer, r Report) error {
	headers := []string{"", "All", "Early", "Late"}
	cols := []model.DescriptiveStats{r.All, r.Early, r.Late}
	row := func(label string, value func(model.DescriptiveStats) string) []string {
		out := []string{label}
		for _, c := range cols {
			out = append(out, value(c))
		}
		return out
	}
	rows := [][]string{
		row("Median", func(s model.DescriptiveStats) string { return FormatMillis(s.Median) }),
		row("Average", func(s model.DescriptiveStats) string { return FormatMillis(s.Average) }),
		row("Min", func(s model.DescriptiveStats) string { return FormatMillis(s.Min) }),
		row("Max", func(s model.DescriptiveStats) string { return FormatMillis(s.Max) }),
		row("Std. Deviation", func(s model.DescriptiveStats) string { return FormatMillis(s.StdDeviation) }),
		row("Samples", func(s model.DescriptiveStats) string { return fmt.Sprintf("%d", s.SampleCount) }),
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderAccuracy prints the perfect count, accuracy rates and mean shot delay.
func RenderAccuracy(w io.Writer, r Report) error {
	lines := []string{
		fmt.Sprintf("Perfect %dx", r.PerfectCount),
		fmt.Sprintf("Accurate: %s%%", FormatOverallRate(r.Accuracy.OverallRate)),
		fmt.Sprintf("Early Acc: %s%%  Late Acc: %s%%", FormatSubRate(r.Accuracy.EarlyRate), FormatSubRate(r.Accuracy.LateRate)),
		fmt.Sprintf("Avg Shot Delay: %s", FormatMillis(r.AvgShotDelay)),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderReport prints the full session report.
func RenderReport(w io.Writer, r Report) error {
	if _, err := fmt.Fprintln(w, "Statistics"); err != nil {
		return err
	}
	if err := RenderStatsTable(w, r); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	if err := RenderAccuracy(w, r); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return RenderHistogram(w, r, histogramBarWidth)
}

// RenderCurves prints accuracy and perfect-rate curves over saved sessions.
func RenderCurves(w io.Writer, summaries []model.SessionSummary, window int) error {
	return RenderCurvesWithSize(w, summaries, window, 0, 10, false)
}

// RenderCurvesWithSize prints history curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, summaries []model.SessionSummary, window, totalWidth, height int, useColor bool) error {
	if len(summaries) == 0 {
		return nil
	}
	accs := make([]float64, len(summaries))
	perfects := make([]float64, len(summaries))
	medians := make([]float64, len(summaries))
	for i, s := range summaries {
		accs[i] = s.AccurateRate
		perfects[i] = s.PerfectRate
		medians[i] = float64(s.MedianAll) / float64(time.Millisecond)
	}
	accs = MovingAverage(accs, window)
	perfects = MovingAverage(perfects, window)
	medians = MovingAverage(medians, window)

	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Progress Curves", []Series{
		{Name: "Accurate %", Values: accs},
		{Name: "Perfect %", Values: perfects},
		{Name: "Median ms", Values: medians},
	}, width, height, useColor)
}
