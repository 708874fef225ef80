package artillery

import (
	"strconv"
	"strings"
)

// unitSeconds maps a duration suffix to its length in seconds.
// time.ParseDuration is not used here because scenario durations allow
// a day suffix and an implicit seconds unit.
var unitSeconds = map[byte]float64{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
}

// DurationSeconds converts a scenario duration token such as "30s",
// "5m", "1h" or "2d" into seconds. A bare number is seconds. The token
// feeds a best-effort request-shaping heuristic, so anything
// unrecognized yields 1 rather than an error.
func DurationSeconds(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1
	}

	mult := 1.0
	if last := s[len(s)-1]; last < '0' || last > '9' {
		m, ok := unitSeconds[last]
		if !ok {
			return 1
		}
		mult = m
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || n < 0 {
		return 1
	}
	return n * mult
}
