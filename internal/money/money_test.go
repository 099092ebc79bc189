package money

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want Amount
		err  bool
	}{
		{"350.00", 35000, false},
		{"0.05", 5, false},
		{"7.5", 750, false},
		{"100", 10000, false},
		{"-12.34", -1234, false},
		{"", 0, true},
		{"1.234", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.err {
			if err == nil {
				t.Fatalf("ParseAmount(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseAmount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestAmountString(t *testing.T) {
	if got := Amount(35000).String(); got != "350.00" {
		t.Fatalf("String = %s", got)
	}
	if got := Amount(5).String(); got != "0.05" {
		t.Fatalf("String = %s", got)
	}
	if got := Amount(-1234).String(); got != "-12.34" {
		t.Fatalf("String = %s", got)
	}
}

func TestCommission(t *testing.T) {
	cases := []struct {
		gross Amount
		rate  Rate
		want  Amount
	}{
		{15000, 500, 750},   // 150.00 at 5.00% = 7.50
		{20000, 1000, 2000}, // 200.00 at 10.00% = 20.00
		{10000, 500, 500},
		{1, 500, 0},  // 0.01 at 5% rounds to zero
		{99, 500, 5}, // 0.0495 rounds half-up to 0.05
		{10, 500, 1}, // exact half rounds up
	}
	for _, tc := range cases {
		if got := Commission(tc.gross, tc.rate); got != tc.want {
			t.Fatalf("Commission(%d, %d) = %d, want %d", tc.gross, tc.rate, got, tc.want)
		}
	}
}
