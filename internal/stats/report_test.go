package stats

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/strafeval/internal/model"
	"github.com/verte-zerg/strafeval/internal/session"
)

func TestBuildReport(t *testing.T) {
	st := session.New()
	shot := 90 * time.Millisecond
	st.Record(model.Sample{Classification: model.Early, Duration: us(5000), ShotDelay: &shot})
	st.Record(model.Sample{Classification: model.Late, Duration: us(15000)})
	st.Record(model.Sample{Classification: model.Perfect, Duration: 0})
	st.Record(model.Sample{Classification: model.None, Duration: us(42000)})

	r := BuildReport(st.Snapshot())
	if r.All.SampleCount != 3 {
		t.Fatalf("expected 3 classified samples in all, got %d", r.All.SampleCount)
	}
	if r.Early.Median != us(5000) || r.Late.Median != us(15000) {
		t.Fatalf("unexpected partitions: early=%+v late=%+v", r.Early, r.Late)
	}
	if r.EarlyHistogram[1] != 1 || r.LateHistogram[3] != 1 {
		t.Fatalf("unexpected histograms: %v %v", r.EarlyHistogram, r.LateHistogram)
	}
	if !reflect.DeepEqual(r.PerfectSeries, []int{1}) || r.PerfectCount != 1 {
		t.Fatalf("unexpected perfect series: %v", r.PerfectSeries)
	}
	if r.Accuracy.TotalCount != 4 {
		t.Fatalf("expected 4 scored samples, got %d", r.Accuracy.TotalCount)
	}
	if r.AvgShotDelay != shot {
		t.Fatalf("expected avg shot delay %v, got %v", shot, r.AvgShotDelay)
	}
	if r.Version != 4 {
		t.Fatalf("expected version 4, got %d", r.Version)
	}
}

func TestBuildReportAfterResetMatchesFresh(t *testing.T) {
	st := session.New()
	st.Record(model.Sample{Classification: model.Early, Duration: us(5000)})
	st.Reset()

	got := BuildReport(st.Snapshot())
	want := BuildReport(session.New().Snapshot())
	got.Version, want.Version = 0, 0
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reset report differs:\n%+v\n%+v", got, want)
	}
	if !reflect.DeepEqual(got.EarlyHistogram, []int{0}) {
		t.Fatalf("expected degenerate histogram, got %v", got.EarlyHistogram)
	}
}

func TestMetricsLine(t *testing.T) {
	r := Report{Accuracy: model.AccuracyReport{TotalCount: 3, OverallRate: 200.0 / 3, PerfectRate: 100.0 / 3}}
	if got := r.MetricsLine(); got != "3, 66.67%, 33.33%;" {
		t.Fatalf("unexpected metrics line: %q", got)
	}
	if got := (Report{}).MetricsLine(); got != "0, 0.00%, 0.00%;" {
		t.Fatalf("unexpected empty metrics line: %q", got)
	}
}

func TestSummary(t *testing.T) {
	start := time.Unix(100, 0)
	end := start.Add(time.Minute)
	r := Report{
		All:          model.DescriptiveStats{Median: us(12000), Average: us(13000)},
		Accuracy:     model.AccuracyReport{TotalCount: 10, AccurateCount: 6, OverallRate: 60, PerfectCount: 2, PerfectRate: 20},
		AvgShotDelay: 70 * time.Millisecond,
	}
	s := r.Summary(start, end)
	if _, err := uuid.Parse(s.SessionID); err != nil {
		t.Fatalf("expected uuid session id, got %q", s.SessionID)
	}
	if s.Total != 10 || s.Accurate != 6 || s.Perfect != 2 || s.AccurateRate != 60 || s.MedianAll != us(12000) {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if !s.StartedAt.Equal(start) || !s.EndedAt.Equal(end) {
		t.Fatalf("unexpected times: %+v", s)
	}
}

func TestRenderReport(t *testing.T) {
	st := session.New()
	shot := 90 * time.Millisecond
	st.Record(model.Sample{Classification: model.Early, Duration: us(5000), ShotDelay: &shot})
	var buf bytes.Buffer
	if err := RenderReport(&buf, BuildReport(st.Snapshot())); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Statistics", "Perfect 0x", "Accurate: 100.00%", "Early Acc: 100.0%", "Avg Shot Delay: 90 ms", "Distribution"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
