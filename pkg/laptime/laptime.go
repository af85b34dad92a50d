// Package laptime converts lap time tokens of the timing service to seconds and back.
package laptime

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	secAndFrac   = regexp.MustCompile(`^(\d+)(?:\.(\d+))?`)
)

// Parse converts a lap time token to seconds.
// Accepted forms are "m:ss.fff" and plain seconds like "42.3".
// Malformed parts count as zero, the function never fails.
func Parse(token string) float64 {
	t := strings.TrimSpace(token)
	if t == "" {
		return 0
	}
	idx := strings.Index(t, ":")
	if idx < 0 {
		return parseLeadingFloat(t)
	}
	minutes := parseLeadingInt(strings.TrimSpace(t[:idx]))
	sec, ms := 0, 0
	if m := secAndFrac.FindStringSubmatch(t[idx+1:]); m != nil {
		sec, _ = strconv.Atoi(m[1])
		ms = millis(m[2])
	}
	return float64(minutes*60+sec) + float64(ms)/1000
}

// millis pads or truncates a fraction to exactly three digits: "5" is 500ms.
func millis(frac string) int {
	if frac == "" {
		return 0
	}
	if len(frac) > 3 {
		frac = frac[:3]
	}
	frac += strings.Repeat("0", 3-len(frac))
	v, err := strconv.Atoi(frac)
	if err != nil {
		return 0
	}
	return v
}

func parseLeadingInt(s string) int {
	v, err := strconv.Atoi(leadingInt.FindString(s))
	if err != nil {
		return 0
	}
	return v
}

func parseLeadingFloat(s string) float64 {
	v, err := strconv.ParseFloat(leadingFloat.FindString(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Format renders seconds as "ss.hh" below one minute and "m:ss.hh" otherwise.
func Format(seconds float64) string {
	cents := toCents(seconds)
	if cents < 6000 {
		return fmt.Sprintf("%d.%02d", cents/100, cents%100)
	}
	return withMinutes(cents)
}

// FormatWithMinutes always renders "m:ss.hh", e.g. 42.35 is "0:42.35".
func FormatWithMinutes(seconds float64) string {
	return withMinutes(toCents(seconds))
}

func withMinutes(cents int64) string {
	m := cents / 6000
	rest := cents % 6000
	return fmt.Sprintf("%d:%02d.%02d", m, rest/100, rest%100)
}

func toCents(seconds float64) int64 {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return int64(math.Round(seconds * 100))
}
