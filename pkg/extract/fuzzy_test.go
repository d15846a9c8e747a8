package extract

import "testing"

func TestSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"restaurante", "restaurante", 1, 1},
		{"resturante", "restaurante", 0.9, 0.92},
		{"tienda", "taller", 0, 0.5},
		{"", "", 1, 1},
	}
	for _, tc := range cases {
		got := similarity(tc.a, tc.b)
		if got < tc.min || got > tc.max {
			t.Fatalf("similarity(%q, %q) = %f, want in [%f, %f]", tc.a, tc.b, got, tc.min, tc.max)
		}
	}
}

func TestBestMatchPicksClosest(t *testing.T) {
	match, ratio := bestMatch("panderia", []string{"panaderia", "papeleria", "farmacia"})
	if match != "panaderia" {
		t.Fatalf("expected panaderia, got %q (%f)", match, ratio)
	}
}
