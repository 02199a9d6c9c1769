package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		// empty -> default (restaurant_id omitted)
		{"", 1, 1},
		// valid ints
		{"7", 0, 7},
		{"-13", 1, -13},
		{"0012", 99, 12},
		// invalid -> default (no trim)
		{"main", 5, 5},
		{" 42", 7, 7},
		// overflow -> default
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct {
		limit, def, max int
		want            int
	}{
		{0, 20, 200, 20},     // unset -> default
		{-5, 20, 200, 20},    // negative -> default
		{15, 20, 200, 15},    // in range -> kept
		{200, 20, 200, 200},  // at cap -> kept
		{5000, 20, 200, 200}, // above cap -> capped
	}

	for _, tc := range cases {
		if got := ClampLimit(tc.limit, tc.def, tc.max); got != tc.want {
			t.Fatalf("ClampLimit(%d, %d, %d) = %d; want %d", tc.limit, tc.def, tc.max, got, tc.want)
		}
	}
}
