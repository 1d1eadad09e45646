package ingest

import (
	"strings"
	"testing"
)

func TestSplitByRunes(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		max     int
		overlap int
		want    []string
	}{
		{
			name: "empty input",
			in:   "   ",
			max:  10,
		},
		{
			name: "short input kept whole",
			in:   "hello",
			max:  10,
			want: []string{"hello"},
		},
		{
			name:    "split without overlap",
			in:      "abcdefghij",
			max:     4,
			overlap: 0,
			want:    []string{"abcd", "efgh", "ij"},
		},
		{
			name:    "split with overlap",
			in:      "abcdefgh",
			max:     4,
			overlap: 2,
			want:    []string{"abcd", "cdef", "efgh"},
		},
		{
			name: "multibyte runes not broken",
			in:   "咖啡豆产自埃塞俄比亚",
			max:  4,
			want: []string{"咖啡豆产", "自埃塞俄", "比亚"},
		},
		{
			name: "non-positive max keeps whole",
			in:   "abcdef",
			max:  0,
			want: []string{"abcdef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitByRunes(tt.in, tt.max, tt.overlap)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d chunks %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitByRunesOverlapGEMax(t *testing.T) {
	// overlap >= max 时步长退化为 max，不能死循环
	got := splitByRunes(strings.Repeat("x", 12), 4, 6)
	if len(got) != 3 {
		t.Fatalf("got %d chunks, want 3", len(got))
	}
}
