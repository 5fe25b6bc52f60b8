package stats

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/verte-zerg/strafeval/internal/model"
)

// Histogram layout: 5 ms buckets covering 0-200 ms.
const (
	BucketWidth = 5 * time.Millisecond
	BucketCount = 41

	histogramBarWidth = 40
)

// Bucketize counts durations into BucketCount buckets of BucketWidth. Bucket
// i holds values in ((i-1)*5ms, i*5ms]; bucket 0 holds only zero. Values past
// the last bucket are clamped into it. An empty input yields []int{0}.
func Bucketize(durations []time.Duration) []int {
	if len(durations) == 0 {
		return []int{0}
	}
	out := make([]int, BucketCount)
	for _, d := range durations {
		out[bucketIndex(d)]++
	}
	return out
}

func bucketIndex(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	idx := int(d / BucketWidth)
	if d%BucketWidth != 0 {
		idx++
	}
	if idx >= BucketCount {
		idx = BucketCount - 1
	}
	return idx
}

// BucketLabels returns the upper bound of every bucket in milliseconds.
func BucketLabels() []int {
	labels := make([]int, BucketCount)
	step := int(BucketWidth / time.Millisecond)
	for i := range labels {
		labels[i] = i * step
	}
	return labels
}

// RenderHistogram prints stacked early/late bars per bucket followed by the
// perfect count. Empty buckets are skipped.
func RenderHistogram(w io.Writer, r Report, barWidth int) error {
	if _, err := fmt.Fprintln(w, "Distribution (ms)"); err != nil {
		return err
	}
	if barWidth <= 0 {
		barWidth = histogramBarWidth
	}
	early := padCounts(r.EarlyHistogram)
	late := padCounts(r.LateHistogram)
	maxCount := 0
	for i := range early {
		if c := early[i] + late[i]; c > maxCount {
			maxCount = c
		}
	}
	if r.PerfectCount > maxCount {
		maxCount = r.PerfectCount
	}
	if maxCount == 0 {
		_, err := fmt.Fprintln(w, "No samples yet.")
		return err
	}
	labels := BucketLabels()
	for i := range early {
		if early[i]+late[i] == 0 {
			continue
		}
		line := fmt.Sprintf("%4d %s%s %d/%d", labels[i],
			bar(earlyBarRune, early[i], maxCount, barWidth),
			bar(lateBarRune, late[i], maxCount, barWidth),
			early[i], late[i])
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if r.PerfectCount > 0 {
		line := fmt.Sprintf("%4s %s %d", "P", bar(perfectBarRune, r.PerfectCount, maxCount, barWidth), r.PerfectCount)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Legend: %c early  %c late  %c perfect\n", earlyBarRune, lateBarRune, perfectBarRune)
	return err
}

const (
	earlyBarRune   = '█'
	lateBarRune    = '▒'
	perfectBarRune = '░'
)

func padCounts(counts []int) []int {
	out := make([]int, BucketCount)
	copy(out, counts)
	return out
}

func bar(ch rune, count, maxCount, width int) string {
	if count <= 0 || maxCount <= 0 {
		return ""
	}
	n := count * width / maxCount
	if n == 0 {
		n = 1
	}
	return strings.Repeat(string(ch), n)
}

// Buckets flattens the report histograms into stored cells, skipping empty
// ones.
func (r Report) Buckets() []model.BucketCount {
	var out []model.BucketCount
	for i, c := range r.EarlyHistogram {
		if c > 0 {
			out = append(out, model.BucketCount{Kind: model.Early, Bucket: i, Count: c})
		}
	}
	for i, c := range r.LateHistogram {
		if c > 0 {
			out = append(out, model.BucketCount{Kind: model.Late, Bucket: i, Count: c})
		}
	}
	if r.PerfectCount > 0 {
		out = append(out, model.BucketCount{Kind: model.Perfect, Count: r.PerfectCount})
	}
	return out
}

// HistogramReport rebuilds histogram fields from stored cells, for rendering
// aggregated history with RenderHistogram.
func HistogramReport(cells []model.BucketCount) Report {
	r := Report{EarlyHistogram: []int{0}, LateHistogram: []int{0}, PerfectSeries: []int{0}}
	for _, c := range cells {
		if c.Bucket < 0 || c.Bucket >= BucketCount {
			continue
		}
		switch c.Kind {
		case model.Early:
			r.EarlyHistogram = addCell(r.EarlyHistogram, c)
		case model.Late:
			r.LateHistogram = addCell(r.LateHistogram, c)
		case model.Perfect:
			r.PerfectCount += c.Count
		}
	}
	r.PerfectSeries[0] = r.PerfectCount
	return r
}

func addCell(h []int, c model.BucketCount) []int {
	if len(h) < BucketCount {
		h = make([]int, BucketCount)
	}
	h[c.Bucket] += c.Count
	return h
}
