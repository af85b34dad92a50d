// Package stats computes the aggregates shown on the dashboard. All functions
// are pure and return neutral values for empty input.
package stats

import (
	"slices"

	"github.com/mpapenbr/schaatslog/pkg/canonical"
	"github.com/mpapenbr/schaatslog/pkg/filter"
	"github.com/mpapenbr/schaatslog/pkg/model"
)

const TopN = 10

type RankedLap struct {
	Rank int `json:"rank"`
	model.Lap
}

// Top10Bests returns the 10 fastest laps with rank 1..10.
func Top10Bests(laps []model.Lap) []RankedLap {
	return TopBests(laps, TopN)
}

func TopBests(laps []model.Lap, n int) []RankedLap {
	sorted := filter.SortedByTime(laps)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	ret := make([]RankedLap, len(sorted))
	for i := range sorted {
		ret[i] = RankedLap{Rank: i + 1, Lap: sorted[i]}
	}
	return ret
}

type Summary struct {
	TotalLaps       int        `json:"totalLaps"`
	AvgLapTime      float64    `json:"avgLapTime"`
	AvgSpeedKmh     float64    `json:"avgSpeed"`
	MaxSpeedKmh     float64    `json:"maxSpeed"`
	BestLap         *model.Lap `json:"bestLap,omitempty"`
	WorstLap        *model.Lap `json:"worstLap,omitempty"`
	TotalDistanceKm float64    `json:"totalDistance"`
}

// Summarize computes the session tiles (count, averages, extremes, distance).
func Summarize(laps []model.Lap) Summary {
	if len(laps) == 0 {
		return Summary{}
	}
	var totalTime, totalSpeed, maxSpeed float64
	best, worst := laps[0], laps[0]
	for _, l := range laps {
		totalTime += l.LapTimeSeconds
		totalSpeed += l.SpeedKmh
		maxSpeed = max(maxSpeed, l.SpeedKmh)
		if l.LapTimeSeconds < best.LapTimeSeconds {
			best = l
		}
		if l.LapTimeSeconds > worst.LapTimeSeconds {
			worst = l
		}
	}
	n := float64(len(laps))
	return Summary{
		TotalLaps:       len(laps),
		AvgLapTime:      canonical.Round2(totalTime / n),
		AvgSpeedKmh:     canonical.Round1(totalSpeed / n),
		MaxSpeedKmh:     canonical.Round1(maxSpeed),
		BestLap:         &best,
		WorstLap:        &worst,
		TotalDistanceKm: canonical.Round1(n * model.LapDistanceKm),
	}
}

// sessions returns the dates in ascending order with their laps sorted by
// lap number.
func sessions(laps []model.Lap) ([]string, map[string][]model.Lap) {
	byDate := filter.GroupByDate(laps)
	dates := make([]string, 0, len(byDate))
	for d, group := range byDate {
		dates = append(dates, d)
		slices.SortStableFunc(group, func(a, b model.Lap) int {
			return a.LapNumber - b.LapNumber
		})
	}
	slices.Sort(dates)
	return dates, byDate
}
