package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/strafeval/internal/detector"
	"github.com/verte-zerg/strafeval/internal/feed"
	"github.com/verte-zerg/strafeval/internal/ingest"
	"github.com/verte-zerg/strafeval/internal/model"
	"github.com/verte-zerg/strafeval/internal/session"
	"github.com/verte-zerg/strafeval/internal/store"
)

func newTestModel(t *testing.T, withHistory bool) (*Model, *store.Store) {
	t.Helper()
	var history *store.Store
	if withHistory {
		st, err := store.Open(filepath.Join(t.TempDir(), "strafeval.db"))
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		history = st
	}
	in := ingest.New(session.New(), detector.Options{RequireShot: true})
	cfg := model.Config{Source: "ws", Listen: "127.0.0.1:8765", History: withHistory}
	return NewModel(cfg, in, nil, history), history
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestSimulateKeysRecordSamples(t *testing.T) {
	m, _ := newTestModel(t, false)
	for _, r := range []rune{'e', 'l', 'p'} {
		m.Update(runeKey(r))
	}
	acc := m.report.Accuracy
	if acc.TotalCount != 3 || acc.EarlyCount != 1 || acc.LateCount != 1 || acc.PerfectCount != 1 {
		t.Fatalf("unexpected report after simulate: %+v", acc)
	}
	if !strings.Contains(m.status, "Perfect") {
		t.Fatalf("unexpected status: %q", m.status)
	}
}

func TestFeedMessageUpdatesReport(t *testing.T) {
	m, _ := newTestModel(t, false)
	ch := make(chan feed.Message, 1)
	m.msgs = ch
	_, cmd := m.Update(feedMsg{ok: true, msg: feed.Message{Strafe: &model.StrafeEvent{StrafeType: "Early", Duration: 12000}}})
	if cmd == nil {
		t.Fatalf("expected wait command after feed message")
	}
	if m.report.Early.SampleCount != 1 {
		t.Fatalf("expected one early sample, got %+v", m.report.Early)
	}
	m.Update(feedMsg{ok: false})
	if !m.closed {
		t.Fatalf("expected closed feed")
	}
}

func TestResetSavesSummary(t *testing.T) {
	m, history := newTestModel(t, true)
	m.Update(runeKey('e'))
	m.Update(runeKey('p'))
	m.Update(runeKey('r'))

	if !m.snap.Empty() || m.report.Accuracy.TotalCount != 0 {
		t.Fatalf("expected empty session after reset")
	}
	summaries, err := history.ListSummaries(context.Background(), model.HistoryConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Total != 2 || summaries[0].Perfect != 1 {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
	cells, err := history.AggregateBuckets(context.Background(), []int64{summaries[0].ID})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(cells) != 2 {
		t.Fatalf("expected early and perfect cells, got %+v", cells)
	}
	if !m.hasLast || m.allTotal != 2 {
		t.Fatalf("expected footer stats to update")
	}

	// An empty session is not saved.
	m.Update(runeKey('r'))
	summaries, _ = history.ListSummaries(context.Background(), model.HistoryConfig{})
	if len(summaries) != 1 {
		t.Fatalf("expected empty session to be skipped, got %d", len(summaries))
	}
}

func TestQuitSavesSummary(t *testing.T) {
	m, history := newTestModel(t, true)
	m.Update(runeKey('l'))
	_, cmd := m.Update(runeKey('q'))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	summaries, err := history.ListSummaries(context.Background(), model.HistoryConfig{})
	if err != nil || len(summaries) != 1 {
		t.Fatalf("expected saved summary, got %v %v", summaries, err)
	}
}

func TestCopyMetricsLine(t *testing.T) {
	m, _ := newTestModel(t, false)
	var copied string
	m.copyText = func(s string) error {
		copied = s
		return nil
	}
	m.Update(runeKey('p'))
	m.Update(runeKey('c'))
	if !strings.HasPrefix(copied, "1, ") {
		t.Fatalf("unexpected copied line: %q", copied)
	}
	if !strings.HasSuffix(copied, ", 100.00%;") {
		t.Fatalf("expected perfect rate 100%%, got %q", copied)
	}

	m.copyText = func(string) error { return errors.New("no clipboard") }
	m.Update(runeKey('c'))
	if m.status != "Copy failed" {
		t.Fatalf("unexpected status: %q", m.status)
	}
}

func TestViewRendersSections(t *testing.T) {
	m, _ := newTestModel(t, false)
	if !strings.Contains(m.View(), "Waiting for strafes") {
		t.Fatalf("expected waiting message")
	}
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	m.Update(runeKey('e'))
	m.Update(runeKey('l'))
	m.Update(runeKey('e'))
	out := m.View()
	for _, want := range []string{"strafeval", "Statistics", "Distribution", "Accurate:", "ws://127.0.0.1:8765/events"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view:\n%s", want, out)
		}
	}
}

func TestTickExpiresPending(t *testing.T) {
	m, _ := newTestModel(t, false)
	base := time.Unix(1700000000, 0)
	for _, ev := range []model.KeyEvent{
		{Key: model.KeyLeft, Down: true, At: base},
		{Key: model.KeyLeft, Down: false, At: base.Add(300 * time.Millisecond)},
		{Key: model.KeyRight, Down: true, At: base.Add(320 * time.Millisecond)},
	} {
		m.Update(feedMsg{ok: true, msg: feed.Message{Key: &ev}})
	}
	if !m.ingest.Pending() {
		t.Fatalf("expected pending strafe")
	}
	_, cmd := m.Update(tickMsg(time.Now().Add(time.Second)))
	if cmd == nil {
		t.Fatalf("expected next tick")
	}
	if m.ingest.Pending() || m.report.Accuracy.TotalCount != 0 {
		t.Fatalf("expected strafe dropped without shot")
	}
}
