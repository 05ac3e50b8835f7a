package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromMinor(t *testing.T) {
	tests := []struct {
		minor int64
		want  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{100, "1.00"},
		{12345, "123.45"},
		{-3000, "-30.00"},
	}
	for _, tc := range tests {
		if got := Format(FromMinor(tc.minor)); got != tc.want {
			t.Fatalf("FromMinor(%d) = %s, want %s", tc.minor, got, tc.want)
		}
	}
}

func TestToMinorRoundTrip(t *testing.T) {
	for _, minor := range []int64{0, 1, 99, 100, 10050, -250} {
		got, err := ToMinor(FromMinor(minor))
		if err != nil {
			t.Fatalf("ToMinor(FromMinor(%d)): %v", minor, err)
		}
		if got != minor {
			t.Fatalf("round trip %d -> %d", minor, got)
		}
	}
}

func TestToMinorRejectsSubMinorPrecision(t *testing.T) {
	d := decimal.RequireFromString("1.005")
	if _, err := ToMinor(d); err == nil {
		t.Fatal("expected error for three fractional digits")
	}
}

func TestParseExactness(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3 under fixed-point arithmetic.
	a, err := Parse("0.1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	b, err := Parse("0.2")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := Format(a.Add(b)); got != "0.30" {
		t.Fatalf("0.1 + 0.2 = %s", got)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("ten coins"); err == nil {
		t.Fatal("expected parse failure")
	}
}
