//nolint:funlen // ok for tests
package stats

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/schaatslog/pkg/model"
)

func lap(num int, seconds float64, date string) model.Lap {
	return model.Lap{
		LapNumber: num, LapTimeSeconds: seconds, Venue: "Binnen",
		Date: date, SpeedKmh: model.LapSpeed(seconds), Transponder: "FZ-1",
	}
}

func session(date string, times ...float64) []model.Lap {
	ret := make([]model.Lap, len(times))
	for i, t := range times {
		ret[i] = lap(i+1, t, date)
	}
	return ret
}

func TestTop10Bests(t *testing.T) {
	laps := []model.Lap{}
	for i := 1; i <= 15; i++ {
		laps = append(laps, lap(i, float64(50-i), "2025-01-15"))
	}
	got := Top10Bests(laps)
	assert.Len(t, got, 10)
	for i, r := range got {
		assert.Equal(t, i+1, r.Rank)
		assert.Equal(t, 15-i, r.LapNumber)
	}
	assert.InDelta(t, 35.0, got[0].LapTimeSeconds, 1e-9)
	assert.Empty(t, Top10Bests(nil))
	assert.Len(t, Top10Bests(laps[:3]), 3)
}

func TestBest5Consecutive(t *testing.T) {
	laps := append(
		session("2025-01-15", 40, 40, 40, 40, 40, 35, 40),
		session("2025-01-16", 30, 30, 30, 30)...)
	got, ok := Best5Consecutive(laps)
	assert.True(t, ok)
	want := ConsecutiveResult{
		TotalSeconds: 195, AvgSpeedKmh: 36.9, Date: "2025-01-15", FirstLap: 2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Best5Consecutive() mismatch (-want +got):\n%s", diff)
	}

	_, ok = Best5Consecutive(session("2025-01-16", 30, 30, 30, 30))
	assert.False(t, ok, "sessions shorter than 5 laps do not count")
	_, ok = Best5Consecutive(nil)
	assert.False(t, ok)
}

func TestBestConsecutiveUsesLapOrder(t *testing.T) {
	// laps arrive unordered, windows follow the lap number
	laps := []model.Lap{
		lap(3, 10, "2025-01-15"),
		lap(1, 50, "2025-01-15"),
		lap(2, 10, "2025-01-15"),
	}
	got, ok := BestConsecutive(laps, 2)
	assert.True(t, ok)
	assert.Equal(t, 2, got.FirstLap)
	assert.InDelta(t, 20.0, got.TotalSeconds, 1e-9)
}

func TestMaxLapsInOneHour(t *testing.T) {
	hour := make([]float64, 61)
	for i := range hour {
		hour[i] = 60
	}
	laps := append(session("2025-01-15", hour...), session("2025-01-16", 40, 40)...)
	got := MaxLapsInOneHour(laps)
	want := HourResult{MaxLaps: 60, AvgSpeedKmh: 24, Date: "2025-01-15", TotalSeconds: 3600}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MaxLapsInOneHour() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, HourResult{}, MaxLapsInOneHour(nil))
	assert.Equal(t, HourResult{}, MaxLapsInOneHour(session("2025-01-15", 4000)))
}

func TestMaxLapsInSession(t *testing.T) {
	laps := append(session("2025-01-16", 40, 40, 40), session("2025-01-15", 40, 40, 40)...)
	assert.Equal(t, SessionResult{Laps: 3, Date: "2025-01-15"}, MaxLapsInSession(laps))
	assert.Equal(t, SessionResult{}, MaxLapsInSession(nil))
}

func TestLapsPerSeason(t *testing.T) {
	laps := []model.Lap{
		lap(1, 40, "2024-10-05"),
		lap(2, 40, "2025-03-01"),
		lap(3, 40, "2025-06-01"),
		lap(4, 40, "2023-12-01"),
		lap(5, 40, "garbage"),
	}
	want := []SeasonCount{{"2023-2024", 1}, {"2024-2025", 2}}
	assert.Equal(t, want, LapsPerSeason(laps))
	assert.Empty(t, LapsPerSeason(nil))
}

func TestWeekdayRollup(t *testing.T) {
	// 2025-01-12 is a Sunday
	laps := []model.Lap{}
	for i := range 7 {
		date := time.Date(2025, 1, 12+i, 0, 0, 0, 0, time.UTC).Format(model.DateLayout)
		laps = append(laps, lap(i+1, float64(40+i), date))
	}
	laps = append(laps, lap(8, 41, "2025-01-12"))
	got := WeekdayRollup(laps)
	for i, w := range got {
		assert.Equal(t, Weekdays[i], w.Day)
	}
	assert.Equal(t, WeekdayStat{Day: "Zo", Laps: 2, AvgLapTime: 40.5}, got[0])
	assert.Equal(t, WeekdayStat{Day: "Za", Laps: 1, AvgLapTime: 46}, got[6])

	empty := WeekdayRollup(nil)
	assert.Equal(t, WeekdayStat{Day: "Wo"}, empty[3])
}

func TestVenueComparison(t *testing.T) {
	a := lap(1, 40, "2025-01-15")
	a.Venue = "Buiten"
	b := lap(2, 39, "2025-01-15")
	c := lap(3, 41, "2025-01-15")
	c.Venue = "Buiten"
	want := []VenueStat{
		{Venue: "Buiten", Laps: 2, AvgLapTime: 40.5, AvgSpeedKmh: 35.6},
		{Venue: "Binnen", Laps: 1, AvgLapTime: 39, AvgSpeedKmh: 36.9},
	}
	if diff := cmp.Diff(want, VenueComparison([]model.Lap{a, b, c})); diff != "" {
		t.Errorf("VenueComparison() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, VenueComparison(nil))
}

func TestSeasonHeatmap(t *testing.T) {
	laps := []model.Lap{
		lap(1, 40, "2025-01-17"),
		lap(2, 40, "2025-01-15"),
		lap(3, 40, "2025-01-15"),
	}
	cells := SeasonHeatmap(laps, "2024-2025")
	want := []HeatmapCell{
		{Date: "2025-01-15", Laps: 2, Intensity: 1},
		{Date: "2025-01-17", Laps: 1, Intensity: 0.5},
	}
	assert.Equal(t, want, cells)

	filled := FillHeatmapGaps(cells)
	assert.Equal(t, []HeatmapCell{
		want[0],
		{Date: "2025-01-16"},
		want[1],
	}, filled)
	assert.Empty(t, SeasonHeatmap(nil, "2024-2025"))
}

func TestSeasonHeatmapSingleSeason(t *testing.T) {
	laps := []model.Lap{
		lap(1, 40, "2023-11-10"),
		lap(2, 40, "2023-11-10"),
		lap(3, 40, "2023-11-10"),
		lap(1, 40, "2024-11-10"),
		lap(1, 40, "2024-07-01"),
	}
	cells := SeasonHeatmap(laps, "2024-2025")
	assert.Equal(t, []HeatmapCell{{Date: "2024-11-10", Laps: 1, Intensity: 1}}, cells)
	assert.Len(t, FillHeatmapGaps(cells), 1)

	older := SeasonHeatmap(laps, "2023-2024")
	assert.Equal(t, []HeatmapCell{{Date: "2023-11-10", Laps: 3, Intensity: 1}}, older)
	assert.Empty(t, SeasonHeatmap(laps, "2021-2022"))
}

func TestProgressByISOWeek(t *testing.T) {
	laps := []model.Lap{
		lap(1, 40, "2024-12-29"),
		lap(2, 39, "2024-12-30"),
		lap(3, 41, "2025-01-01"),
		lap(4, 38, "2025-01-06"),
	}
	want := []WeekBest{
		{"2024-W52", 40},
		{"2025-W01", 39},
		{"2025-W02", 38},
	}
	assert.Equal(t, want, ProgressByISOWeek(laps))
}

func TestCurrentSeasonBest(t *testing.T) {
	laps := []model.Lap{
		lap(1, 39.0, "2024-10-05"),
		lap(2, 38.5, "2025-03-01"),
		lap(3, 35.0, "2025-06-01"),
		lap(4, 30.0, "2025-10-02"),
	}
	tests := []struct {
		name   string
		now    time.Time
		want   SeasonBest
		wantOk bool
	}{
		{
			name:   "summer uses the season just ended",
			now:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			want:   SeasonBest{LapTimeSeconds: 38.5, SpeedKmh: model.LapSpeed(38.5), Date: "2025-03-01"},
			wantOk: true,
		},
		{
			name:   "new season",
			now:    time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
			want:   SeasonBest{LapTimeSeconds: 30, SpeedKmh: model.LapSpeed(30), Date: "2025-10-02"},
			wantOk: true,
		},
		{
			name: "no laps in season",
			now:  time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CurrentSeasonBest(laps, tt.now)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSummarize(t *testing.T) {
	laps := session("2025-01-15", 40, 39, 41)
	got := Summarize(laps)
	assert.Equal(t, 3, got.TotalLaps)
	assert.InDelta(t, 40.0, got.AvgLapTime, 1e-9)
	assert.InDelta(t, 36.0, got.AvgSpeedKmh, 1e-9)
	assert.InDelta(t, 36.9, got.MaxSpeedKmh, 1e-9)
	assert.InDelta(t, 1.2, got.TotalDistanceKm, 1e-9)
	assert.Equal(t, 2, got.BestLap.LapNumber)
	assert.Equal(t, 3, got.WorstLap.LapNumber)

	assert.Equal(t, Summary{}, Summarize(nil))
}
