package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"", "All", "Early"}
	rows := [][]string{
		{"Median", "12 ms", "9 ms"},
		{"Samples", "140", "7"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "          All Early" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Median  12 ms  9 ms" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Samples   140     7" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableEmpty(t *testing.T) {
	if lines := formatTable(nil, nil, nil); lines != nil {
		t.Fatalf("expected nil, got %v", lines)
	}
}
