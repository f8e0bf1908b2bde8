package utils

import "math"

const bytesPerGB = 1024 * 1024 * 1024

// Round rounds a float64 value to 2 decimal places
func Round(val float64) float64 {
	return math.Round(val*100) / 100
}

// BytesToGB converts a byte count to gigabytes (1024^3) rounded to 2 decimal places
func BytesToGB(bytes uint64) float64 {
	return Round(float64(bytes) / bytesPerGB)
}
