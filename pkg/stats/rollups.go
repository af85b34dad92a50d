package stats

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/schaatslog/pkg/canonical"
	"github.com/mpapenbr/schaatslog/pkg/filter"
	"github.com/mpapenbr/schaatslog/pkg/model"
)

// Weekdays holds the short Dutch labels indexed by time.Weekday.
var Weekdays = [7]string{"Zo", "Ma", "Di", "Wo", "Do", "Vr", "Za"}

type SeasonCount struct {
	Season string `json:"season"`
	Laps   int    `json:"laps"`
}

// LapsPerSeason counts laps per season label, ascending by label.
func LapsPerSeason(laps []model.Lap) []SeasonCount {
	counts := map[string]int{}
	for i := range laps {
		if s, ok := filter.SeasonOf(laps[i].Date); ok {
			counts[s]++
		}
	}
	ret := lo.MapToSlice(counts, func(k string, v int) SeasonCount {
		return SeasonCount{Season: k, Laps: v}
	})
	slices.SortFunc(ret, func(a, b SeasonCount) int { return cmp.Compare(a.Season, b.Season) })
	return ret
}

type WeekdayStat struct {
	Day        string  `json:"day"`
	Laps       int     `json:"laps"`
	AvgLapTime float64 `json:"avgLapTime"`
}

// WeekdayRollup buckets laps by the weekday of their date (index 0 is Sunday).
func WeekdayRollup(laps []model.Lap) [7]WeekdayStat {
	var sums [7]float64
	var ret [7]WeekdayStat
	for i := range ret {
		ret[i].Day = Weekdays[i]
	}
	for i := range laps {
		d, err := time.Parse(model.DateLayout, laps[i].Date)
		if err != nil {
			continue
		}
		wd := d.Weekday()
		ret[wd].Laps++
		sums[wd] += laps[i].LapTimeSeconds
	}
	for i := range ret {
		if ret[i].Laps > 0 {
			ret[i].AvgLapTime = canonical.Round2(sums[i] / float64(ret[i].Laps))
		}
	}
	return ret
}

type VenueStat struct {
	Venue       string  `json:"venue"`
	Laps        int     `json:"laps"`
	AvgLapTime  float64 `json:"avgLapTime"`
	AvgSpeedKmh float64 `json:"avgSpeed"`
}

// VenueComparison aggregates per venue in order of first appearance.
func VenueComparison(laps []model.Lap) []VenueStat {
	type acc struct {
		count       int
		time, speed float64
	}
	order := []string{}
	accs := map[string]*acc{}
	for i := range laps {
		v := laps[i].Venue
		a, ok := accs[v]
		if !ok {
			a = &acc{}
			accs[v] = a
			order = append(order, v)
		}
		a.count++
		a.time += laps[i].LapTimeSeconds
		a.speed += laps[i].SpeedKmh
	}
	return lo.Map(order, func(v string, _ int) VenueStat {
		a := accs[v]
		n := float64(a.count)
		return VenueStat{
			Venue:       v,
			Laps:        a.count,
			AvgLapTime:  canonical.Round2(a.time / n),
			AvgSpeedKmh: canonical.Round1(a.speed / n),
		}
	})
}

type HeatmapCell struct {
	Date      string  `json:"date"`
	Laps      int     `json:"laps"`
	Intensity float64 `json:"intensity"`
}

// SeasonHeatmap returns one cell per date with laps of the given season,
// ascending by date. Intensity is relative to the busiest date of that season.
func SeasonHeatmap(laps []model.Lap, season string) []HeatmapCell {
	perDate := filter.LapsPerDate(filter.BySeason(laps, season))
	maxCount := 1
	for _, c := range perDate {
		maxCount = max(maxCount, c)
	}
	ret := lo.MapToSlice(perDate, func(d string, c int) HeatmapCell {
		return HeatmapCell{Date: d, Laps: c, Intensity: float64(c) / float64(maxCount)}
	})
	slices.SortFunc(ret, func(a, b HeatmapCell) int { return cmp.Compare(a.Date, b.Date) })
	return ret
}

// FillHeatmapGaps inserts empty cells for every missing day between the first
// and last cell. The input must be sorted by date.
func FillHeatmapGaps(cells []HeatmapCell) []HeatmapCell {
	if len(cells) < 2 {
		return cells
	}
	first, err1 := time.Parse(model.DateLayout, cells[0].Date)
	last, err2 := time.Parse(model.DateLayout, cells[len(cells)-1].Date)
	if err1 != nil || err2 != nil {
		return cells
	}
	byDate := lo.KeyBy(cells, func(c HeatmapCell) string { return c.Date })
	ret := []HeatmapCell{}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(model.DateLayout)
		if c, ok := byDate[key]; ok {
			ret = append(ret, c)
		} else {
			ret = append(ret, HeatmapCell{Date: key})
		}
	}
	return ret
}

type WeekBest struct {
	Week           string  `json:"week"`
	LapTimeSeconds float64 `json:"lapTime"`
}

// ProgressByISOWeek returns the best lap time per ISO week ("2025-W03").
func ProgressByISOWeek(laps []model.Lap) []WeekBest {
	best := map[string]float64{}
	for i := range laps {
		d, err := time.Parse(model.DateLayout, laps[i].Date)
		if err != nil {
			continue
		}
		year, week := d.ISOWeek()
		key := fmt.Sprintf("%d-W%02d", year, week)
		if cur, ok := best[key]; !ok || laps[i].LapTimeSeconds < cur {
			best[key] = laps[i].LapTimeSeconds
		}
	}
	ret := lo.MapToSlice(best, func(k string, v float64) WeekBest {
		return WeekBest{Week: k, LapTimeSeconds: v}
	})
	slices.SortFunc(ret, func(a, b WeekBest) int { return cmp.Compare(a.Week, b.Week) })
	return ret
}

type SeasonBest struct {
	LapTimeSeconds float64 `json:"lapTime"`
	SpeedKmh       float64 `json:"speed"`
	Date           string  `json:"date"`
}

// CurrentSeasonBest returns the fastest lap within the season window of now.
func CurrentSeasonBest(laps []model.Lap, now time.Time) (SeasonBest, bool) {
	inSeason := filter.BySeasonWindow(laps, now)
	if len(inSeason) == 0 {
		return SeasonBest{}, false
	}
	best := inSeason[0]
	for _, l := range inSeason[1:] {
		if l.LapTimeSeconds < best.LapTimeSeconds {
			best = l
		}
	}
	return SeasonBest{
		LapTimeSeconds: best.LapTimeSeconds,
		SpeedKmh:       best.SpeedKmh,
		Date:           best.Date,
	}, true
}
