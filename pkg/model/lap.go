package model

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// LapDistanceKm is the length of one lap on a 400m oval.
	LapDistanceKm      = 0.4
	UnknownVenue       = "Onbekend"
	DefaultTransponder = "FZ-62579"
	DateLayout         = "2006-01-02"
)

var ErrUnknownFilter = errors.New("unknown filter mode")

// RawLapEntry is the format independent result of parsing a response body.
type RawLapEntry struct {
	LapIndex  int
	TimeToken string
	Venue     string
	DateToken string
}

// Lap is the canonical lap record.
//
//nolint:tagliatelle // field names of the timing service
type Lap struct {
	LapNumber      int     `json:"lap_num"`
	LapTimeSeconds float64 `json:"lap_time"`
	Venue          string  `json:"baan"`
	Date           string  `json:"datum"`
	SpeedKmh       float64 `json:"snelheid"`
	Transponder    string  `json:"transponder"`
}

type FilterMode string

const (
	FilterAll   FilterMode = "ALLEMAAL"
	FilterBest  FilterMode = "BESTE"
	FilterWorst FilterMode = "SLECHTSTE"
)

func ParseFilterMode(s string) (FilterMode, error) {
	switch m := FilterMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case FilterAll, FilterBest, FilterWorst:
		return m, nil
	case "":
		return FilterAll, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFilter, s)
	}
}

// SpeedFor returns the speed in km/h for covering distanceKm in seconds.
// Returns 0 for non-positive durations.
func SpeedFor(distanceKm, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return distanceKm * 3600 / seconds
}

// LapSpeed is the speed for a single lap of LapDistanceKm.
func LapSpeed(seconds float64) float64 {
	return SpeedFor(LapDistanceKm, seconds)
}
