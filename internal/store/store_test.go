package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/strafeval/internal/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "strafeval.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return st
}

func summary(id string, ended time.Time, total int) model.SessionSummary {
	return model.SessionSummary{
		SessionID:    id,
		StartedAt:    ended.Add(-5 * time.Minute),
		EndedAt:      ended,
		Total:        total,
		Accurate:     total / 2,
		Perfect:      1,
		Early:        total - 1,
		AccurateRate: 50,
		PerfectRate:  100 / float64(total),
		EarlyRate:    40,
		MedianAll:    12500 * time.Microsecond,
		AverageAll:   14 * time.Millisecond,
		AvgShotDelay: 85 * time.Millisecond,
	}
}

func TestInsertAndListSummaries(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if _, err := st.InsertSummary(ctx, summary(id, base.Add(time.Duration(i)*time.Hour), 10+i), nil); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	all, err := st.ListSummaries(ctx, model.HistoryConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].SessionID != "a" || all[2].SessionID != "c" {
		t.Fatalf("unexpected summaries: %+v", all)
	}
	got := all[1]
	if got.Total != 11 || got.MedianAll != 12500*time.Microsecond || got.AvgShotDelay != 85*time.Millisecond {
		t.Fatalf("unexpected round trip: %+v", got)
	}
	if !got.EndedAt.Equal(base.Add(time.Hour)) || !got.StartedAt.Equal(base.Add(55*time.Minute)) {
		t.Fatalf("unexpected times: %v %v", got.StartedAt, got.EndedAt)
	}

	last, err := st.ListSummaries(ctx, model.HistoryConfig{Last: 2})
	if err != nil {
		t.Fatalf("list last: %v", err)
	}
	if len(last) != 2 || last[0].SessionID != "b" || last[1].SessionID != "c" {
		t.Fatalf("unexpected last summaries: %+v", last)
	}

	since := base.Add(90 * time.Minute)
	recent, err := st.ListSummaries(ctx, model.HistoryConfig{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(recent) != 1 || recent[0].SessionID != "c" {
		t.Fatalf("unexpected since summaries: %+v", recent)
	}
}

func TestSinceComparesSubSecondTimes(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	midnight := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	for _, sum := range []model.SessionSummary{
		summary("before", midnight.Add(-500*time.Millisecond), 4),
		summary("half", midnight.Add(500*time.Millisecond), 5),
		summary("whole", midnight.Add(time.Second), 6),
	} {
		if _, err := st.InsertSummary(ctx, sum, nil); err != nil {
			t.Fatalf("insert %s: %v", sum.SessionID, err)
		}
	}

	got, err := st.ListSummaries(ctx, model.HistoryConfig{Since: &midnight})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].SessionID != "half" || got[1].SessionID != "whole" {
		t.Fatalf("unexpected summaries: %+v", got)
	}
	if !got[0].EndedAt.Equal(midnight.Add(500 * time.Millisecond)) {
		t.Fatalf("unexpected end time: %v", got[0].EndedAt)
	}
}

func TestDuplicateSessionIDRollsBack(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	now := time.Now()
	if _, err := st.InsertSummary(ctx, summary("dup", now, 4), nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	buckets := []model.BucketCount{{Kind: model.Early, Bucket: 2, Count: 1}}
	if _, err := st.InsertSummary(ctx, summary("dup", now, 4), buckets); err == nil {
		t.Fatalf("expected unique constraint error")
	}
	all, err := st.ListSummaries(ctx, model.HistoryConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(all))
	}
}

func TestAggregateBuckets(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	now := time.Now()
	id1, err := st.InsertSummary(ctx, summary("s1", now, 4), []model.BucketCount{
		{Kind: model.Early, Bucket: 2, Count: 3},
		{Kind: model.Late, Bucket: 5, Count: 1},
		{Kind: model.Perfect, Bucket: 0, Count: 2},
		{Kind: model.Late, Bucket: 7, Count: 0},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	id2, err := st.InsertSummary(ctx, summary("s2", now.Add(time.Minute), 4), []model.BucketCount{
		{Kind: model.Early, Bucket: 2, Count: 4},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := st.AggregateBuckets(ctx, []int64{id1, id2})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	want := map[model.BucketCount]bool{
		{Kind: model.Early, Bucket: 2, Count: 7}:   true,
		{Kind: model.Late, Bucket: 5, Count: 1}:    true,
		{Kind: model.Perfect, Bucket: 0, Count: 2}: true,
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected buckets: %+v", got)
	}
	for _, b := range got {
		if !want[b] {
			t.Fatalf("unexpected bucket %+v in %+v", b, got)
		}
	}

	if got, err := st.AggregateBuckets(ctx, nil); err != nil || got != nil {
		t.Fatalf("expected nil for no ids, got %v %v", got, err)
	}
}
