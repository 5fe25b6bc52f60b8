package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/strafeval/internal/model"
	statsPkg "github.com/verte-zerg/strafeval/internal/stats"
)

type styledChip struct {
	s     string
	width int
}

// chipLabel is the plain text for one recent strafe, e.g. "E12" or "P".
func chipLabel(s model.Sample) string {
	ms := float64(s.Duration) / float64(time.Millisecond)
	switch s.Classification {
	case model.Early:
		return fmt.Sprintf("E%.0f", ms)
	case model.Late:
		return fmt.Sprintf("L%.0f", ms)
	case model.Perfect:
		return "P"
	default:
		return "?"
	}
}

func chipStyleFor(s model.Sample) lipgloss.Style {
	switch {
	case s.Classification == model.Perfect:
		return perfectStyle
	case statsPkg.ScoreSample(s):
		return accurateStyle
	default:
		return inaccurateStyle
	}
}

// buildChips renders samples newest first, underlining the newest one.
func buildChips(samples []model.Sample) []styledChip {
	out := make([]styledChip, 0, len(samples))
	for i, s := range samples {
		label := chipLabel(s)
		style := chipStyleFor(s)
		if i == 0 {
			style = style.Underline(true)
		}
		out = append(out, styledChip{
			s:     style.Render(label),
			width: runewidth.StringWidth(label),
		})
	}
	return out
}

func renderChips(chips []styledChip) string {
	parts := make([]string, len(chips))
	for i, c := range chips {
		parts[i] = c.s
	}
	return strings.Join(parts, " ")
}

// wrapChips joins chips with single spaces, breaking lines so no line is
// wider than width. A chip wider than width gets a line of its own.
func wrapChips(chips []styledChip, width int) string {
	if width <= 0 {
		return renderChips(chips)
	}
	var out strings.Builder
	line := make([]styledChip, 0, len(chips))
	lineWidth := 0

	for _, chip := range chips {
		need := chip.width
		if len(line) > 0 {
			need++
		}
		if lineWidth+need > width && len(line) > 0 {
			out.WriteString(renderChips(line))
			out.WriteRune('\n')
			line = line[:0]
			lineWidth = 0
			need = chip.width
		}
		line = append(line, chip)
		lineWidth += need
	}
	out.WriteString(renderChips(line))
	return out.String()
}
