package format

import "testing"

func TestCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		expected string
	}{
		{"Zero", 0, "$0.00"},
		{"Simple", 42.5, "$42.50"},
		{"Thousands separator", 1234.56, "$1,234.56"},
		{"Millions", 1234567.89, "$1,234,567.89"},
		{"Negative", -1234.56, "-$1,234.56"},
		{"Rounds to cents", 9.999, "$10.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Currency(tt.amount); got != tt.expected {
				t.Errorf("Currency(%v) = %q, expected %q", tt.amount, got, tt.expected)
			}
		})
	}
}

func TestSignedCurrency(t *testing.T) {
	if got := SignedCurrency(12); got != "+$12.00" {
		t.Errorf("SignedCurrency(12) = %q", got)
	}
	if got := SignedCurrency(-3.4); got != "-$3.40" {
		t.Errorf("SignedCurrency(-3.4) = %q", got)
	}
	if got := SignedCurrency(0); got != "+$0.00" {
		t.Errorf("SignedCurrency(0) = %q", got)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(42.55); got != "42.5%" && got != "42.6%" {
		t.Errorf("Percent(42.55) = %q", got)
	}
	if got := Percent(0); got != "0.0%" {
		t.Errorf("Percent(0) = %q", got)
	}
}

func TestDimension(t *testing.T) {
	tests := []struct {
		name     string
		inches   float64
		expected string
	}{
		{"Whole inches", 3, `3"`},
		{"Half", 1.5, `1-1/2"`},
		{"Quarter", 0.25, `1/4"`},
		{"Eighth", 2.125, `2-1/8"`},
		{"Sixteenth", 0.0625, `1/16"`},
		{"Three quarters", 0.75, `3/4"`},
		{"Off-grid decimal", 2.005, `2.005"`},
		{"Zero", 0, `0"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dimension(tt.inches); got != tt.expected {
				t.Errorf("Dimension(%v) = %q, expected %q", tt.inches, got, tt.expected)
			}
		})
	}
}

func TestVolumeFormat(t *testing.T) {
	if got := Volume(12.345); got != "12.35 in³" && got != "12.34 in³" {
		t.Errorf("Volume(12.345) = %q", got)
	}
}
