package canonical

import (
	"math/rand/v2"
	"time"

	"github.com/mpapenbr/schaatslog/pkg/model"
)

const (
	MaxMockLaps     = 200
	mockMinLapTime  = 35.0
	mockMaxLapTime  = 55.0
	mockMinSession  = 20
	mockMaxSession  = 30
	mockBaseDateStr = "2025-01-15"
)

var mockVenues = []string{"Binnen", "Buiten", "Gemengd"}

// GenerateMock creates numLaps (clamped to 1..200) plausible laps for development
// and demos. Sessions of 20 to 30 laps are put on consecutive days starting at
// 2025-01-15.
func GenerateMock(transponder string, numLaps int, rng *rand.Rand) []model.Lap {
	if transponder == "" {
		transponder = model.DefaultTransponder
	}
	total := min(MaxMockLaps, max(1, numLaps))
	day, _ := time.Parse(model.DateLayout, mockBaseDateStr)
	sessionLen := mockMinSession + rng.IntN(mockMaxSession-mockMinSession+1)
	inSession := 0

	ret := make([]model.Lap, 0, total)
	for i := 1; i <= total; i++ {
		seconds := Round2(mockMinLapTime + rng.Float64()*(mockMaxLapTime-mockMinLapTime))
		ret = append(ret, model.Lap{
			LapNumber:      i,
			LapTimeSeconds: seconds,
			Venue:          mockVenues[rng.IntN(len(mockVenues))],
			Date:           day.Format(model.DateLayout),
			SpeedKmh:       Round1(model.LapSpeed(seconds)),
			Transponder:    transponder,
		})
		inSession++
		if inSession == sessionLen {
			day = day.AddDate(0, 0, 1)
			inSession = 0
			sessionLen = mockMinSession + rng.IntN(mockMaxSession-mockMinSession+1)
		}
	}
	return ret
}

// NewRand returns a deterministic source for GenerateMock.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
