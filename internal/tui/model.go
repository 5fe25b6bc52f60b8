// Package tui provides the live Bubble Tea strafe dashboard.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/strafeval/internal/feed"
	"github.com/verte-zerg/strafeval/internal/ingest"
	"github.com/verte-zerg/strafeval/internal/logger"
	"github.com/verte-zerg/strafeval/internal/model"
	"github.com/verte-zerg/strafeval/internal/session"
	statsPkg "github.com/verte-zerg/strafeval/internal/stats"
	"github.com/verte-zerg/strafeval/internal/store"
)

const (
	recentChips  = 40
	trendSamples = 60
	trendHeight  = 6
	statusTTL    = 4 * time.Second
)

type feedMsg struct {
	msg feed.Message
	ok  bool
}

type tickMsg time.Time

// Model implements the live strafe dashboard.
type Model struct {
	config  model.Config
	ingest  *ingest.Ingestor
	msgs    <-chan feed.Message
	history *store.Store

	copyText func(string) error
	now      func() time.Time

	width  int
	height int

	built   bool
	version uint64
	snap    session.Snapshot
	report  statsPkg.Report

	status   string
	statusAt time.Time
	closed   bool

	last      model.SessionSummary
	hasLast   bool
	allTotal  int
	allAcc    int
	allPerf   int
	allLoaded bool
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	keyUpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E")).Border(lipgloss.RoundedBorder()).Padding(0, 1)
	keyDownStyle    = keyUpStyle.Copy().Foreground(lipgloss.Color("#F0F0F0")).BorderForeground(lipgloss.Color("#52C41A")).Bold(true)
	accurateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	inaccurateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	perfectStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#40A9FF"))
	panelStyle      = lipgloss.NewStyle().Padding(0, 2)
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

// NewModel constructs the dashboard. history may be nil.
func NewModel(cfg model.Config, in *ingest.Ingestor, msgs <-chan feed.Message, history *store.Store) *Model {
	m := &Model{
		config:   cfg,
		ingest:   in,
		msgs:     msgs,
		history:  history,
		copyText: clipboard.WriteAll,
		now:      time.Now,
	}
	m.refresh()
	m.loadFooterStats()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(waitForFeed(m.msgs), tick())
}

func waitForFeed(ch <-chan feed.Message) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		return feedMsg{msg: msg, ok: ok}
	}
}

func tick() tea.Cmd {
	return tea.Tick(ingest.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case feedMsg:
		if !msg.ok {
			m.closed = true
			m.ingest.Flush()
			m.refresh()
			m.setStatus("Feed closed")
			return m, nil
		}
		m.ingest.Handle(msg.msg)
		m.refresh()
		return m, waitForFeed(m.msgs)
	case tickMsg:
		m.ingest.Tick(time.Time(msg))
		m.refresh()
		return m, tick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.finishSession()
		return m, tea.Quit
	}
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return m, nil
	}
	switch msg.Runes[0] {
	case 'q':
		m.finishSession()
		return m, tea.Quit
	case 'r':
		m.finishSession()
		m.ingest.Reset()
		m.refresh()
		m.setStatus("Session reset")
	case 'c':
		line := m.report.MetricsLine()
		if err := m.copyText(line); err != nil {
			logger.Warn("failed to copy metrics", "error", err)
			m.setStatus("Copy failed")
		} else {
			m.setStatus("Copied " + line)
		}
	case 'e':
		m.simulate(model.Early)
	case 'l':
		m.simulate(model.Late)
	case 'p':
		m.simulate(model.Perfect)
	}
	return m, nil
}

func (m *Model) simulate(kind model.Classification) {
	m.ingest.Simulate(kind, m.now())
	m.refresh()
	m.setStatus("Simulated " + kind.String())
}

// refresh rebuilds the report only when the store changed.
func (m *Model) refresh() {
	st := m.ingest.Store()
	if m.built && st.Version() == m.version {
		return
	}
	m.built = true
	m.snap = st.Snapshot()
	m.version = m.snap.Version
	m.report = statsPkg.BuildReport(m.snap)
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusAt = m.now()
}

// finishSession saves a summary of the current session when history is on.
func (m *Model) finishSession() {
	if m.history == nil || !m.config.History {
		return
	}
	m.refresh()
	if m.snap.Empty() {
		return
	}
	summary := m.report.Summary(m.snap.StartedAt, m.now())
	if _, err := m.history.InsertSummary(context.Background(), summary, m.report.Buckets()); err != nil {
		logger.Error("failed to save session summary", "error", err)
		return
	}
	m.last = summary
	m.hasLast = true
	m.allTotal += summary.Total
	m.allAcc += summary.Accurate
	m.allPerf += summary.Perfect
	m.allLoaded = true
}

func (m *Model) loadFooterStats() {
	if m.history == nil {
		return
	}
	summaries, err := m.history.ListSummaries(context.Background(), model.HistoryConfig{})
	if err != nil {
		logger.Error("failed to load session history", "error", err)
		return
	}
	if len(summaries) == 0 {
		return
	}
	m.last = summaries[len(summaries)-1]
	m.hasLast = true
	for _, s := range summaries {
		m.allTotal += s.Total
		m.allAcc += s.Accurate
		m.allPerf += s.Perfect
	}
	m.allLoaded = true
}

// View implements tea.Model.
func (m *Model) View() string {
	header := m.renderHeader()
	left := m.renderStats()
	right := m.renderHistogram()
	var body string
	if m.width == 0 || m.width >= lipgloss.Width(left)+lipgloss.Width(right)+8 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(left), panelStyle.Render(right))
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, panelStyle.Render(left), panelStyle.Render(right))
	}

	sections := []string{header, body}
	if trend := m.renderTrend(); trend != "" {
		sections = append(sections, panelStyle.Render(trend))
	}
	if strip := m.renderRecent(); strip != "" {
		sections = append(sections, panelStyle.Render(strip))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	footer := m.renderFooter()
	if m.width == 0 || m.height < 3 {
		return content + "\n" + footer
	}
	bodyHeight := m.height - 1
	return lipgloss.Place(m.width, bodyHeight, lipgloss.Left, lipgloss.Top, content) + "\n" +
		lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
}

func (m *Model) renderHeader() string {
	left, right := m.ingest.Keys()
	keys := lipgloss.JoinHorizontal(lipgloss.Center, keyBox("A", left), " ", keyBox("D", right))
	source := m.config.Source
	switch source {
	case "ws":
		source = "ws://" + m.config.Listen + "/events"
	case "file":
		source = "file " + m.config.File
	}
	if m.closed {
		source += " (closed)"
	}
	info := titleStyle.Render("strafeval") + "  " + footerStyle.Render(source)
	if m.ingest.Pending() {
		info += "  " + statusStyle.Render("waiting for shot")
	}
	return panelStyle.Render(lipgloss.JoinHorizontal(lipgloss.Center, info, "   ", keys))
}

func keyBox(label string, down bool) string {
	if down {
		return keyDownStyle.Render(label)
	}
	return keyUpStyle.Render(label)
}

func (m *Model) renderStats() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Statistics"))
	b.WriteString("\n")
	if err := statsPkg.RenderStatsTable(&b, m.report); err != nil {
		return b.String()
	}
	b.WriteString("\n")
	if err := statsPkg.RenderAccuracy(&b, m.report); err != nil {
		return b.String()
	}
	if len(m.snap.ShotDelays) > 1 {
		delays := m.snap.ShotDelays
		if len(delays) > trendSamples {
			delays = delays[len(delays)-trendSamples:]
		}
		values := make([]float64, len(delays))
		for i, d := range delays {
			values[i] = float64(d) / float64(time.Millisecond)
		}
		b.WriteString("Shot Delay: " + statsPkg.Sparkline(values) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderHistogram() string {
	var b strings.Builder
	if err := statsPkg.RenderHistogram(&b, m.report, 30); err != nil {
		return ""
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderTrend() string {
	durations := make([]time.Duration, 0, trendSamples)
	for _, s := range m.snap.Total {
		if s.Classification == model.Early || s.Classification == model.Late {
			durations = append(durations, s.Duration)
		}
	}
	if len(durations) < 2 {
		return ""
	}
	if len(durations) > trendSamples {
		durations = durations[len(durations)-trendSamples:]
	}
	width := 60
	if m.width > 0 {
		width = statsPkg.PlotWidthFor(m.width - 4)
	}
	return statsPkg.RenderTrend(durations, width, trendHeight, "strafe duration (ms), oldest to newest")
}

func (m *Model) renderRecent() string {
	recent := m.snap.Recent(recentChips)
	if len(recent) == 0 {
		return footerStyle.Render("Waiting for strafes...")
	}
	width := 0
	if m.width > 0 {
		width = m.width - 4
	}
	return wrapChips(buildChips(recent), width)
}

func (m *Model) renderFooter() string {
	acc := m.report.Accuracy
	segments := []string{fmt.Sprintf("Now %d · %s%% · P %s%%",
		acc.TotalCount, statsPkg.FormatOverallRate(acc.OverallRate), statsPkg.FormatOverallRate(acc.PerfectRate))}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %d · %s%%", m.last.Total, statsPkg.FormatOverallRate(m.last.AccurateRate)))
	}
	if m.allLoaded && m.allTotal > 0 {
		segments = append(segments, fmt.Sprintf("All-time %d · %s%% · P %s%%",
			m.allTotal,
			statsPkg.FormatOverallRate(float64(m.allAcc)*100/float64(m.allTotal)),
			statsPkg.FormatOverallRate(float64(m.allPerf)*100/float64(m.allTotal))))
	}
	segments = append(segments, "r reset  c copy  e/l/p simulate  q quit")
	footer := footerStyle.Render(strings.Join(segments, "  "))
	if m.status != "" && m.now().Sub(m.statusAt) < statusTTL {
		footer = statusStyle.Render(m.status) + "  " + footer
	}
	return footer
}
