package workflow

import "testing"

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		prefix string
		year   int
		seq    int64
		want   string
	}{
		{prefix: "Q", year: 2026, seq: 1, want: "Q-2026-000001"},
		{prefix: "PO", year: 2026, seq: 4321, want: "PO-2026-004321"},
		{prefix: "Q", year: 2027, seq: 1234567, want: "Q-2027-1234567"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.prefix, tt.year, tt.seq); got != tt.want {
			t.Fatalf("formatNumber(%s,%d,%d) = %s, want %s", tt.prefix, tt.year, tt.seq, got, tt.want)
		}
	}
}
