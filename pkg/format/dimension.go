package format

import (
	"fmt"
	"math"
)

// Dimension renders an inch measurement the way shop drawings read it:
// whole and fractional parts down to 1/16" when the value lands on a
// sixteenth, otherwise three decimal places. A trailing double-quote
// marks inches (e.g., `1-1/2"`, `3/8"`, `2.005"`).
func Dimension(inches float64) string {
	if inches < 0 {
		return "-" + Dimension(-inches)
	}

	whole := math.Floor(inches)
	frac := inches - whole

	sixteenths := frac * 16
	if math.Abs(sixteenths-math.Round(sixteenths)) < 1e-9 {
		num := int(math.Round(sixteenths))
		if num == 0 {
			return fmt.Sprintf("%d\"", int(whole))
		}
		den := 16
		for num%2 == 0 {
			num /= 2
			den /= 2
		}
		if whole == 0 {
			return fmt.Sprintf("%d/%d\"", num, den)
		}
		return fmt.Sprintf("%d-%d/%d\"", int(whole), num, den)
	}

	return fmt.Sprintf("%.3f\"", inches)
}

// Volume renders a cubic-inch quantity with two decimal places.
func Volume(cubicInches float64) string {
	return fmt.Sprintf("%.2f in³", cubicInches)
}
