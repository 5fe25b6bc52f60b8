package statsui

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/verte-zerg/strafeval/internal/model"
	"github.com/verte-zerg/strafeval/internal/stats"
)

func renderOverview(summaries []model.SessionSummary, window, width int) string {
	if len(summaries) == 0 {
		return "No sessions found."
	}
	cards := renderSummaryCards(summaries, width)
	curves := renderCurves(summaries, window, width)
	return strings.TrimRight(cards+"\n\n"+curves, "\n")
}

func renderSummaryCards(summaries []model.SessionSummary, width int) string {
	var total, accurate, perfect int
	var shotSum time.Duration
	shotCount := 0
	best := 0.0
	for _, s := range summaries {
		total += s.Total
		accurate += s.Accurate
		perfect += s.Perfect
		if s.AvgShotDelay > 0 {
			shotSum += s.AvgShotDelay
			shotCount++
		}
		if s.Total > 0 && s.AccurateRate > best {
			best = s.AccurateRate
		}
	}
	rate := func(part int) string {
		if total == 0 {
			return "0.00%"
		}
		return stats.FormatOverallRate(float64(part)*100/float64(total)) + "%"
	}
	shot := "-"
	if shotCount > 0 {
		shot = stats.FormatMillis(shotSum / time.Duration(shotCount))
	}
	cards := []string{
		metricCard("Sessions", fmt.Sprintf("%d", len(summaries))),
		metricCard("Strafes", fmt.Sprintf("%d", total)),
		metricCard("Accurate", rate(accurate)),
		metricCard("Best Session", stats.FormatOverallRate(best)+"%"),
		metricCard("Perfect", rate(perfect)),
		metricCard("Avg Shot Delay", shot),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderCurves(summaries []model.SessionSummary, window, width int) string {
	var buf bytes.Buffer
	if err := stats.RenderCurvesWithSize(&buf, summaries, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderDistribution(data historyData) string {
	if len(data.summaries) == 0 {
		return "No sessions found."
	}
	var buf bytes.Buffer
	if err := stats.RenderHistogram(&buf, data.histogram, 40); err != nil {
		return fmt.Sprintf("Failed to render distribution: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func sessionColumns() []table.Column {
	return []table.Column{
		{Title: "Ended", Width: 16},
		{Title: "Length", Width: 8},
		{Title: "Strafes", Width: 7},
		{Title: "Accurate", Width: 9},
		{Title: "Perfect", Width: 8},
		{Title: "Early Acc", Width: 9},
		{Title: "Late Acc", Width: 9},
		{Title: "Median", Width: 7},
		{Title: "Shot", Width: 6},
	}
}

// sessionRows lists summaries newest first.
func sessionRows(summaries []model.SessionSummary) []table.Row {
	rows := make([]table.Row, 0, len(summaries))
	for i := len(summaries) - 1; i >= 0; i-- {
		s := summaries[i]
		rows = append(rows, table.Row{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			s.EndedAt.Sub(s.StartedAt).Round(time.Second).String(),
			fmt.Sprintf("%d", s.Total),
			stats.FormatOverallRate(s.AccurateRate) + "%",
			stats.FormatOverallRate(s.PerfectRate) + "%",
			stats.FormatSubRate(s.EarlyRate) + "%",
			stats.FormatSubRate(s.LateRate) + "%",
			stats.FormatMillis(s.MedianAll),
			stats.FormatMillis(s.AvgShotDelay),
		})
	}
	return rows
}

func buildSessionTable(summaries []model.SessionSummary, width, height int) table.Model {
	t := table.New(
		table.WithColumns(sessionColumns()),
		table.WithRows(sessionRows(summaries)),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(sessionTableStyles())
	return t
}

func sessionTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(ansi.Truncate(line, width, ""), width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	if width <= 3 {
		return ansi.Truncate(s, width, "")
	}
	return ansi.Truncate(s, width, "...")
}
