// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/strafeval/internal/model"
	"github.com/verte-zerg/strafeval/internal/session"
)

// Report contains every derived value for one store snapshot.
type Report struct {
	Version uint64

	All   model.DescriptiveStats
	Early model.DescriptiveStats
	Late  model.DescriptiveStats

	EarlyHistogram []int
	LateHistogram  []int
	// PerfectSeries is the single-element perfect count series.
	PerfectSeries []int
	PerfectCount  int

	Accuracy     model.AccuracyReport
	AvgShotDelay time.Duration
}

// BuildReport derives statistics, histograms and accuracy from a snapshot.
func BuildReport(snap session.Snapshot) Report {
	all := make([]time.Duration, 0, len(snap.Early)+len(snap.Late)+len(snap.Perfect))
	all = append(all, snap.Early...)
	all = append(all, snap.Late...)
	all = append(all, snap.Perfect...)

	return Report{
		Version:        snap.Version,
		All:            Compute(all),
		Early:          Compute(snap.Early),
		Late:           Compute(snap.Late),
		EarlyHistogram: Bucketize(snap.Early),
		LateHistogram:  Bucketize(snap.Late),
		PerfectSeries:  []int{len(snap.Perfect)},
		PerfectCount:   len(snap.Perfect),
		Accuracy:       Accuracy(snap.Total),
		AvgShotDelay:   Mean(snap.ShotDelays),
	}
}

// MetricsLine renders the export line "<total>, <accurate>%, <perfect>%;".
func (r Report) MetricsLine() string {
	return fmt.Sprintf("%d, %s%%, %s%%;",
		r.Accuracy.TotalCount,
		FormatOverallRate(r.Accuracy.OverallRate),
		FormatOverallRate(r.Accuracy.PerfectRate))
}

// Summary converts a report into a history record for the session that
// started at startedAt.
func (r Report) Summary(startedAt, endedAt time.Time) model.SessionSummary {
	return model.SessionSummary{
		SessionID:    uuid.NewString(),
		StartedAt:    startedAt,
		EndedAt:      endedAt,
		Total:        r.Accuracy.TotalCount,
		Accurate:     r.Accuracy.AccurateCount,
		Perfect:      r.Accuracy.PerfectCount,
		Early:        r.Accuracy.EarlyCount,
		Late:         r.Accuracy.LateCount,
		AccurateRate: r.Accuracy.OverallRate,
		PerfectRate:  r.Accuracy.PerfectRate,
		EarlyRate:    r.Accuracy.EarlyRate,
		LateRate:     r.Accuracy.LateRate,
		MedianAll:    r.All.Median,
		AverageAll:   r.All.Average,
		AvgShotDelay: r.AvgShotDelay,
	}
}
