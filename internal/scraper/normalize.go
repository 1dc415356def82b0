// Path: internal/scraper/normalize.go
package scraper

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// countRegex matches compact counters such as "12", "2.5k" or "3m"
// once separators have been removed.
var countRegex = regexp.MustCompile(`^(\d+(?:\.\d+)?)([km]?)$`)

// ParseCount converts a display counter into an integer. ok is false when the
// token is empty or malformed; the count is then 0.
func ParseCount(token string) (n int, ok bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	token = strings.TrimSpace(strings.ReplaceAll(token, ",", ""))

	m := countRegex.FindStringSubmatch(token)
	if m == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	switch m[2] {
	case "k":
		value *= 1_000
	case "m":
		value *= 1_000_000
	}

	value = math.Round(value)
	if value >= math.MaxInt64 {
		return 0, false
	}
	return int(value), true
}

// NormalizeCount is ParseCount without the ok flag. Malformed tokens count as 0.
func NormalizeCount(token string) int {
	n, _ := ParseCount(token)
	return n
}
