package filter

import (
	"fmt"
	"time"

	"github.com/mpapenbr/schaatslog/pkg/model"
)

// A season runs from October 1st to April 30th of the following year.
const (
	seasonStartMonth = time.October
	seasonEndMonth   = time.April
)

// SeasonOf returns the season label ("2024-2025") for a YYYY-MM-DD date.
// Dates in May to September and malformed dates have no season.
func SeasonOf(date string) (string, bool) {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return "", false
	}
	var start int
	switch {
	case d.Month() >= seasonStartMonth:
		start = d.Year()
	case d.Month() <= seasonEndMonth:
		start = d.Year() - 1
	default:
		return "", false
	}
	return fmt.Sprintf("%d-%d", start, start+1), true
}

// SeasonWindow returns the first and last date (inclusive) of the season
// belonging to now. Between May and September this is the season which ended
// on April 30th of the same year.
func SeasonWindow(now time.Time) (start, end string) {
	startYear := now.Year() - 1
	if now.Month() >= seasonStartMonth {
		startYear = now.Year()
	}
	return fmt.Sprintf("%d-10-01", startYear), fmt.Sprintf("%d-04-30", startYear+1)
}

// BySeasonWindow keeps laps with a date within [start, end].
func BySeasonWindow(laps []model.Lap, now time.Time) []model.Lap {
	start, end := SeasonWindow(now)
	ret := []model.Lap{}
	for i := range laps {
		if d := laps[i].Date; d >= start && d <= end {
			ret = append(ret, laps[i])
		}
	}
	return ret
}

// CurrentSeason returns the label of the season SeasonWindow(now) covers.
func CurrentSeason(now time.Time) string {
	start, _ := SeasonWindow(now)
	s, _ := SeasonOf(start)
	return s
}

// BySeason keeps laps whose date belongs to the season label.
func BySeason(laps []model.Lap, season string) []model.Lap {
	ret := []model.Lap{}
	for i := range laps {
		if s, ok := SeasonOf(laps[i].Date); ok && s == season {
			ret = append(ret, laps[i])
		}
	}
	return ret
}

// ValidSeason reports whether label has the form "2024-2025".
func ValidSeason(label string) bool {
	var from, to int
	if n, err := fmt.Sscanf(label, "%4d-%4d", &from, &to); err != nil || n != 2 {
		return false
	}
	return from >= 1000 && to == from+1 && label == fmt.Sprintf("%d-%d", from, to)
}
