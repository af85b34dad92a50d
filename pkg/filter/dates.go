package filter

import (
	"slices"

	"github.com/samber/lo"

	"github.com/mpapenbr/schaatslog/pkg/model"
)

// UniqueDates returns the dates with laps, newest first.
func UniqueDates(laps []model.Lap) []string {
	dates := lo.Uniq(lo.FilterMap(laps, func(l model.Lap, _ int) (string, bool) {
		return l.Date, l.Date != ""
	}))
	slices.Sort(dates)
	slices.Reverse(dates)
	return dates
}

func LapsPerDate(laps []model.Lap) map[string]int {
	ret := map[string]int{}
	for i := range laps {
		if laps[i].Date != "" {
			ret[laps[i].Date]++
		}
	}
	return ret
}

// GroupByDate groups laps by date, the laps keep their order.
func GroupByDate(laps []model.Lap) map[string][]model.Lap {
	return lo.GroupBy(laps, func(l model.Lap) string { return l.Date })
}
