package venue

import (
	"strconv"
)

// f64 parses venue numeric fields that arrive as JSON strings. Venues are
// inconsistent about empty fields; empty or malformed parses as 0.
func f64(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func ptr(v float64) *float64 { return &v }
