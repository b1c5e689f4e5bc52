// Package util contains misc internal utilities.
package util

import (
	"strconv"
	"strings"
	"time"
)

// IntSliceToCSV convets a slice of ints to CSV formatted data.
// e.g., []int{1,2,3,4,5} => "1,2,3,4,5"
func IntSliceToCSV(is []int) string {
	s := make([]string, len(is))
	for i, v := range is {
		s[i] = strconv.Itoa(v)
	}

	return strings.Join(s, ",")
}

// AllElementsNumbers returns true if every rune in s is a digit or a decimal point
func AllElementsNumbers(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

// MicrosToDuration converts an integer number of microseconds, as reported
// in capture metadata, to a time.Duration
func MicrosToDuration(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

// ParseDimension parses a positive integer, as found in query strings.
// It returns 0 for anything else.
func ParseDimension(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
