package format

import (
	"math"
	"strconv"
	"strings"
)

// MetersPerSecondToKmPerHour converts a wind speed from m/s to km/h
func MetersPerSecondToKmPerHour(mps float64) float64 {
	return mps * 3600 / 1000
}

// Truncate drops the fractional part, e.g. 15.4 -> 15 and -0.5 -> 0
func Truncate(v float64) int {
	return int(math.Trunc(v))
}

// Kilometers converts meters to kilometers without trailing zeros, e.g. 10000 -> "10"
func Kilometers(meters int) string {
	return strconv.FormatFloat(float64(meters)/1000, 'f', -1, 64)
}

// WindRotation returns the icon rotation in degrees so the arrow points
// where the wind blows to, not where it comes from
func WindRotation(direction int) int {
	return direction - 180
}

// Precision formats v with the given number of significant digits.
// Exponent notation is used when the exponent is below -6 or not smaller
// than the precision, e.g. Precision(0.5, 3) = "0.500", Precision(1234.5, 3) = "1.23e+3".
func Precision(v float64, digits int) string {
	if digits < 1 {
		digits = 1
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if v == 0 {
		return strconv.FormatFloat(0, 'f', digits-1, 64)
	}

	// The 'e' format rounds first, so the exponent already accounts for
	// carries like 9.999 -> 1.00e+01.
	sci := strconv.FormatFloat(v, 'e', digits-1, 64)
	mantissa, expPart, _ := strings.Cut(sci, "e")
	exp, err := strconv.Atoi(expPart)
	if err != nil {
		return sci
	}

	if exp < -6 || exp >= digits {
		sign := "+"
		if exp < 0 {
			sign = "-"
			exp = -exp
		}
		return mantissa + "e" + sign + strconv.Itoa(exp)
	}
	return strconv.FormatFloat(v, 'f', digits-1-exp, 64)
}
