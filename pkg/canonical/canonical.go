// Package canonical turns raw lap entries, CSV rows and generated data into
// canonical laps.
package canonical

import (
	"time"

	"github.com/mpapenbr/schaatslog/pkg/laptime"
	"github.com/mpapenbr/schaatslog/pkg/model"
)

// FromRaw converts parsed entries of the live feed.
// Entries with a lap time of zero mark a session start and are skipped.
// Lap numbers are assigned 1..n over the emitted laps.
//
//nolint:whitespace // can't make both editor and linter happy
func FromRaw(
	entries []model.RawLapEntry, transponder string, now time.Time,
) []model.Lap {
	ret := make([]model.Lap, 0, len(entries))
	for _, e := range entries {
		lap, ok := ToCanonicalLap(e, transponder, now)
		if !ok {
			continue
		}
		lap.LapNumber = len(ret) + 1
		ret = append(ret, lap)
	}
	return ret
}

// ToCanonicalLap converts a single entry. The lap number is taken from the entry.
//
//nolint:whitespace // can't make both editor and linter happy
func ToCanonicalLap(
	e model.RawLapEntry, transponder string, now time.Time,
) (model.Lap, bool) {
	seconds := laptime.Parse(e.TimeToken)
	if seconds <= 0 {
		return model.Lap{}, false
	}
	return newLap(e.LapIndex, seconds, e.Venue, e.DateToken, transponder, now), true
}

//nolint:whitespace // can't make both editor and linter happy
func newLap(
	lapNum int, seconds float64, venue, date, transponder string, now time.Time,
) model.Lap {
	if venue == "" {
		venue = model.UnknownVenue
	}
	if date == "" {
		date = Today(now)
	}
	return model.Lap{
		LapNumber:      lapNum,
		LapTimeSeconds: Round2(seconds),
		Venue:          venue,
		Date:           date,
		SpeedKmh:       Round1(model.LapSpeed(seconds)),
		Transponder:    transponder,
	}
}

// Today returns the local calendar date of now.
func Today(now time.Time) string {
	return now.Local().Format(model.DateLayout)
}
