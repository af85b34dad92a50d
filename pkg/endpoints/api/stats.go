package api

import (
	"time"

	"github.com/mpapenbr/schaatslog/pkg/filter"
	"github.com/mpapenbr/schaatslog/pkg/model"
	"github.com/mpapenbr/schaatslog/pkg/stats"
)

// StatsResponse holds everything the dashboard shows for a lap list.
type StatsResponse struct {
	Summary    stats.Summary            `json:"summary"`
	Top10      []stats.RankedLap        `json:"top10"`
	Best5      *stats.ConsecutiveResult `json:"best5,omitempty"`
	MaxHour    stats.HourResult         `json:"maxHour"`
	MaxSession stats.SessionResult      `json:"maxSession"`
	Seasons    []stats.SeasonCount      `json:"seasons"`
	Weekdays   [7]stats.WeekdayStat     `json:"weekdays"`
	Venues     []stats.VenueStat        `json:"venues"`
	Season     string                   `json:"season"`
	Heatmap    []stats.HeatmapCell      `json:"heatmap"`
	Progress   []stats.WeekBest         `json:"progress"`
	SeasonBest *stats.SeasonBest        `json:"seasonBest,omitempty"`
	Dates      []string                 `json:"dates"`
}

// BuildStats computes all aggregates. The heatmap covers a single season, an
// empty season selects the one containing now.
func BuildStats(laps []model.Lap, now time.Time, season string) StatsResponse {
	if season == "" {
		season = filter.CurrentSeason(now)
	}
	ret := StatsResponse{
		Summary:    stats.Summarize(laps),
		Top10:      stats.Top10Bests(laps),
		MaxHour:    stats.MaxLapsInOneHour(laps),
		MaxSession: stats.MaxLapsInSession(laps),
		Seasons:    stats.LapsPerSeason(laps),
		Weekdays:   stats.WeekdayRollup(laps),
		Venues:     stats.VenueComparison(laps),
		Season:     season,
		Heatmap:    stats.FillHeatmapGaps(stats.SeasonHeatmap(laps, season)),
		Progress:   stats.ProgressByISOWeek(laps),
		Dates:      filter.UniqueDates(laps),
	}
	if b, ok := stats.Best5Consecutive(laps); ok {
		ret.Best5 = &b
	}
	if b, ok := stats.CurrentSeasonBest(laps, now); ok {
		ret.SeasonBest = &b
	}
	return ret
}
