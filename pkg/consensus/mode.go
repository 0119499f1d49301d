package consensus

import (
	"golang.org/x/exp/constraints"
)

// Mode returns the most frequent value in data and its count.
// Ties go to the lowest value. Mode of an empty slice is the zero value with count 0.
func Mode[T constraints.Ordered](data []T) (mode T, count int) {
	counts := make(map[T]int, len(data))
	for _, v := range data {
		counts[v]++
	}
	for v, n := range counts {
		if n > count || (n == count && v < mode) {
			mode, count = v, n
		}
	}
	return mode, count
}

// MostCommon returns the most frequent value in data and its count.
// Ties go to the value seen first.
func MostCommon[T comparable](data []T) (value T, count int) {
	counts := make(map[T]int, len(data))
	for _, v := range data {
		counts[v]++
	}
	for _, v := range data {
		if n := counts[v]; n > count {
			value, count = v, n
		}
	}
	return value, count
}

// Percent returns part/whole as a percentage, or 0 when whole is 0
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
