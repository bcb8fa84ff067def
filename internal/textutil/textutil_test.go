package textutil

import (
	"math"
	"testing"
)

func TestNormalizeTitle(t *testing.T) {
	decomposed := "Ame\u0301lie  (2001)\t"
	if got := NormalizeTitle(decomposed); got != "Am\u00e9lie (2001)" {
		t.Fatalf("NormalizeTitle = %q", got)
	}
	if got := NormalizeTitle("   "); got != "" {
		t.Fatalf("expected empty result for whitespace, got %q", got)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "Dune (2021)", "Dune (2021)", 1},
		{"disjoint", "Alien", "Heat", 0},
		{"empty", "", "Dune", 0},
		{"case and punctuation", "DUNE: Part Two", "dune part two", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}

	partial := Similarity("Dune (2021)", "Dune")
	if partial <= 0 || partial >= 1 {
		t.Fatalf("expected partial overlap score, got %v", partial)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"Road Trip":          "Road Trip",
		"AC/DC: Best Of?":    "AC-DC- Best Of",
		"  ":                 "untitled",
		"..":                 "untitled",
		"Rock <Live> | 1999": "Rock Live  1999",
	}
	for in, want := range tests {
		if got := SanitizeFileName(in); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
