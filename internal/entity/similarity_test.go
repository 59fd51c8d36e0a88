package entity

import "testing"

func TestSequenceRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "abcdef", b: "abcdef", want: 1.0},
		{name: "both empty", a: "", b: "", want: 1.0},
		{name: "one empty", a: "abc", b: "", want: 0.0},
		{name: "disjoint", a: "abc", b: "xyz", want: 0.0},
		// Shared prefix run of 9 runes over lengths 17 and 9.
		{name: "prefix overlap", a: "wikimedia commons", b: "wikimedia", want: 2.0 * 9.0 / 26.0},
		{name: "single rune overlap", a: "ab", b: "cb", want: 0.5},
		{name: "unicode runes", a: "josé", b: "josé", want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sequenceRatio(tt.a, tt.b); got != tt.want {
				t.Errorf("sequenceRatio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSequenceRatioSymmetricRange(t *testing.T) {
	pairs := [][2]string{
		{"joe biden", "joseph biden"},
		{"springfield council", "springfield city council"},
		{"a", "ab"},
	}

	for _, p := range pairs {
		ab := sequenceRatio(p[0], p[1])
		ba := sequenceRatio(p[1], p[0])

		if ab < 0 || ab > 1 {
			t.Errorf("sequenceRatio(%q, %q) = %v, out of [0, 1]", p[0], p[1], ab)
		}

		if ab != ba {
			t.Errorf("sequenceRatio not symmetric for (%q, %q): %v vs %v", p[0], p[1], ab, ba)
		}
	}
}

func TestLongestCommonRun(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		wantSize int
	}{
		{name: "full match", a: "abc", b: "abc", wantSize: 3},
		{name: "middle run", a: "xabcy", b: "zabcw", wantSize: 3},
		{name: "no match", a: "abc", b: "def", wantSize: 0},
		{name: "empty", a: "", b: "abc", wantSize: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, size := longestCommonRun([]rune(tt.a), []rune(tt.b))
			if size != tt.wantSize {
				t.Errorf("longestCommonRun(%q, %q) size = %d, want %d", tt.a, tt.b, size, tt.wantSize)
			}
		})
	}
}
