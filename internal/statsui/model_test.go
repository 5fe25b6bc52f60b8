package statsui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/strafeval/internal/model"
	"github.com/verte-zerg/strafeval/internal/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "strafeval.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		sum := model.SessionSummary{
			SessionID:    filepath.Base(t.Name()) + string(rune('a'+i)),
			StartedAt:    base.Add(time.Duration(i) * time.Hour),
			EndedAt:      base.Add(time.Duration(i)*time.Hour + 10*time.Minute),
			Total:        10,
			Accurate:     5 + i,
			Perfect:      i,
			AccurateRate: float64(50 + 10*i),
			PerfectRate:  float64(10 * i),
			MedianAll:    time.Duration(20-i) * time.Millisecond,
			AvgShotDelay: 90 * time.Millisecond,
		}
		cells := []model.BucketCount{{Kind: model.Early, Bucket: 3, Count: 4}, {Kind: model.Perfect, Count: i}}
		if _, err := st.InsertSummary(ctx, sum, cells); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return st
}

func TestModelLoadsHistory(t *testing.T) {
	m := NewModel(seededStore(t), model.HistoryConfig{CurveWindow: 1})
	if len(m.data.summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(m.data.summaries))
	}
	if m.data.histogram.EarlyHistogram[3] != 12 || m.data.histogram.PerfectCount != 3 {
		t.Fatalf("unexpected aggregated histogram: %+v", m.data.histogram)
	}
	if rows := m.sessionTable.Rows(); len(rows) != 3 || rows[0][3] != "70.00%" {
		t.Fatalf("expected newest session first, got %v", rows)
	}
}

func TestModelViewAndTabs(t *testing.T) {
	m := NewModel(seededStore(t), model.HistoryConfig{CurveWindow: 1})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	out := m.View()
	for _, want := range []string{"Overview", "Sessions", "Strafes", "30", "Settings: since=any  last=all  window=1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view:\n%s", want, out)
		}
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabDistribution {
		t.Fatalf("expected distribution tab, got %d", m.activeTab)
	}
	if !strings.Contains(m.View(), "Distribution (ms)") {
		t.Fatalf("expected histogram in distribution tab")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabOverview {
		t.Fatalf("expected wrap to overview, got %d", m.activeTab)
	}
}

func TestCurveWindowKeys(t *testing.T) {
	m := NewModel(seededStore(t), model.HistoryConfig{CurveWindow: 1})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'='}})
	if m.cfg.CurveWindow != 5 {
		t.Fatalf("expected window 5, got %d", m.cfg.CurveWindow)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'-'}})
	if m.cfg.CurveWindow != 1 {
		t.Fatalf("expected window 1, got %d", m.cfg.CurveWindow)
	}
}

func TestFilterAppliesLast(t *testing.T) {
	m := NewModel(seededStore(t), model.HistoryConfig{CurveWindow: 1})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m.filterInputs[1].SetValue("2")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMode || m.cfg.Last != 2 || len(m.data.summaries) != 2 {
		t.Fatalf("expected last=2 filter applied, got cfg=%+v n=%d", m.cfg, len(m.data.summaries))
	}
}

func TestParseFilter(t *testing.T) {
	cfg, err := parseFilter("2026-05-01", "4", "3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Since == nil || cfg.Last != 4 || cfg.CurveWindow != 3 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	for _, in := range [][3]string{{"05/01", "", ""}, {"", "-1", ""}, {"", "", "0"}, {"", "", "x"}} {
		if _, err := parseFilter(in[0], in[1], in[2]); err == nil {
			t.Fatalf("expected error for %v", in)
		}
	}
	cfg, err = parseFilter("", "", "")
	if err != nil || cfg.CurveWindow != 1 || cfg.Since != nil {
		t.Fatalf("unexpected defaults: %+v %v", cfg, err)
	}
}

func TestCurveWindowSteps(t *testing.T) {
	tests := []struct{ in, next, prev int }{
		{in: 1, next: 5, prev: 1},
		{in: 5, next: 10, prev: 1},
		{in: 7, next: 10, prev: 5},
		{in: 10, next: 15, prev: 5},
	}
	for _, tt := range tests {
		if got := nextCurveWindow(tt.in); got != tt.next {
			t.Fatalf("nextCurveWindow(%d) = %d, want %d", tt.in, got, tt.next)
		}
		if got := prevCurveWindow(tt.in); got != tt.prev {
			t.Fatalf("prevCurveWindow(%d) = %d, want %d", tt.in, got, tt.prev)
		}
	}
}

func TestFitLines(t *testing.T) {
	got := fitLines("ab\ncd\nef", 3, 2)
	if got != "ab \ncd " {
		t.Fatalf("unexpected fit: %q", got)
	}
	if got := truncateLine("abcdefgh", 6); got != "abc..." {
		t.Fatalf("unexpected truncate: %q", got)
	}
}
