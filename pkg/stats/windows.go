package stats

import (
	"github.com/mpapenbr/schaatslog/pkg/canonical"
	"github.com/mpapenbr/schaatslog/pkg/model"
)

const (
	ConsecutiveLaps = 5
	hourSeconds     = 3600.0
)

type ConsecutiveResult struct {
	TotalSeconds float64 `json:"totalTime"`
	AvgSpeedKmh  float64 `json:"avgSpeed"`
	Date         string  `json:"date"`
	FirstLap     int     `json:"firstLap"`
}

// Best5Consecutive finds the fastest 5 consecutive laps within one session.
func Best5Consecutive(laps []model.Lap) (ConsecutiveResult, bool) {
	return BestConsecutive(laps, ConsecutiveLaps)
}

// BestConsecutive finds the window of exactly n consecutive laps (by lap
// number, within one date) with the smallest total time.
// Ties are resolved in favor of the earlier date and lap.
func BestConsecutive(laps []model.Lap, n int) (ConsecutiveResult, bool) {
	if n <= 0 {
		return ConsecutiveResult{}, false
	}
	dates, byDate := sessions(laps)
	var best ConsecutiveResult
	found := false
	for _, d := range dates {
		session := byDate[d]
		if len(session) < n {
			continue
		}
		sum := 0.0
		for i := range n {
			sum += session[i].LapTimeSeconds
		}
		for start := 0; ; start++ {
			if !found || sum < best.TotalSeconds {
				best = ConsecutiveResult{
					TotalSeconds: sum,
					Date:         d,
					FirstLap:     session[start].LapNumber,
				}
				found = true
			}
			if start+n >= len(session) {
				break
			}
			sum += session[start+n].LapTimeSeconds - session[start].LapTimeSeconds
		}
	}
	if !found {
		return ConsecutiveResult{}, false
	}
	best.AvgSpeedKmh = canonical.Round1(
		model.SpeedFor(float64(n)*model.LapDistanceKm, best.TotalSeconds))
	best.TotalSeconds = canonical.Round2(best.TotalSeconds)
	return best, true
}

type HourResult struct {
	MaxLaps      int     `json:"maxLaps"`
	AvgSpeedKmh  float64 `json:"avgSpeed"`
	Date         string  `json:"date"`
	TotalSeconds float64 `json:"totalTime"`
}

// MaxLapsInOneHour finds the largest number of consecutive laps within one
// session whose total time does not exceed one hour.
func MaxLapsInOneHour(laps []model.Lap) HourResult {
	dates, byDate := sessions(laps)
	var best HourResult
	for _, d := range dates {
		session := byDate[d]
		for start := range session {
			if len(session)-start <= best.MaxLaps {
				break
			}
			sum := 0.0
			count := 0
			for _, l := range session[start:] {
				if sum+l.LapTimeSeconds > hourSeconds {
					break
				}
				sum += l.LapTimeSeconds
				count++
			}
			if count > best.MaxLaps {
				best = HourResult{MaxLaps: count, Date: d, TotalSeconds: sum}
			}
		}
	}
	if best.MaxLaps == 0 {
		return HourResult{}
	}
	best.AvgSpeedKmh = canonical.Round1(
		model.SpeedFor(float64(best.MaxLaps)*model.LapDistanceKm, best.TotalSeconds))
	best.TotalSeconds = canonical.Round2(best.TotalSeconds)
	return best
}

type SessionResult struct {
	Laps int    `json:"laps"`
	Date string `json:"date"`
}

// MaxLapsInSession returns the date with the most laps, the earliest on ties.
func MaxLapsInSession(laps []model.Lap) SessionResult {
	dates, byDate := sessions(laps)
	var best SessionResult
	for _, d := range dates {
		if n := len(byDate[d]); n > best.Laps {
			best = SessionResult{Laps: n, Date: d}
		}
	}
	return best
}
