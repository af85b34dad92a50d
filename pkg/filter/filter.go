// Package filter selects subsets of canonical laps. All functions are pure and
// return new slices.
package filter

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/mpapenbr/schaatslog/pkg/model"
)

// UnboundedMin and UnboundedMax mark a lap range without limits.
const (
	UnboundedMin = 0
	UnboundedMax = 1000
)

func ByTransponder(laps []model.Lap, id string) []model.Lap {
	id = strings.TrimSpace(id)
	if id == "" {
		return slices.Clone(laps)
	}
	return lo.Filter(laps, func(l model.Lap, _ int) bool {
		return l.Transponder == id
	})
}

// ByLapRange keeps laps with min <= lap number <= max.
// The range min <= 0 and max >= 1000 means no restriction.
func ByLapRange(laps []model.Lap, minLap, maxLap int) []model.Lap {
	if minLap <= UnboundedMin && maxLap >= UnboundedMax {
		return slices.Clone(laps)
	}
	return lo.Filter(laps, func(l model.Lap, _ int) bool {
		return l.LapNumber >= minLap && l.LapNumber <= maxLap
	})
}

func ByDate(laps []model.Lap, date string) []model.Lap {
	if strings.TrimSpace(date) == "" {
		return slices.Clone(laps)
	}
	return lo.Filter(laps, func(l model.Lap, _ int) bool {
		return l.Date == date
	})
}

// ByQuartile returns the fastest (BESTE) or slowest (SLECHTSTE) quarter of the
// laps, at least one. The result is ordered by lap time.
// ALLEMAAL and unknown modes return all laps in their original order.
func ByQuartile(laps []model.Lap, mode model.FilterMode) []model.Lap {
	if len(laps) == 0 || (mode != model.FilterBest && mode != model.FilterWorst) {
		return slices.Clone(laps)
	}
	sorted := SortedByTime(laps)
	count := max(1, len(laps)/4)
	if mode == model.FilterBest {
		return sorted[:count]
	}
	return sorted[len(sorted)-count:]
}

// SortedByTime returns a copy ordered by lap time, ties keep their order.
func SortedByTime(laps []model.Lap) []model.Lap {
	ret := slices.Clone(laps)
	slices.SortStableFunc(ret, func(a, b model.Lap) int {
		switch {
		case a.LapTimeSeconds < b.LapTimeSeconds:
			return -1
		case a.LapTimeSeconds > b.LapTimeSeconds:
			return 1
		}
		return 0
	})
	return ret
}

// Criteria combines the list filters in the order the dashboard applies them.
type Criteria struct {
	Transponder string
	Date        string
	MinLap      int
	MaxLap      int
	Mode        model.FilterMode
}

func Apply(laps []model.Lap, c Criteria) []model.Lap {
	ret := ByTransponder(laps, c.Transponder)
	ret = ByDate(ret, c.Date)
	ret = ByLapRange(ret, c.MinLap, c.MaxLap)
	return ByQuartile(ret, c.Mode)
}
