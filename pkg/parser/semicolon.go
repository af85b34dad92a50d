package parser

import (
	"regexp"
	"strings"

	"github.com/mpapenbr/schaatslog/pkg/model"
)

var semicolonDate = regexp.MustCompile(`;?\d{4}-\d{2}-\d{2};`)

// parseSemicolon handles the getData2 format:
//
//	;2024-10-12;10:03:58;00:00.000;2838 ;2024-10-12;10:03:58;05:19.443;2838
//
// Each record is a group of date, wall clock, lap time and venue id.
func parseSemicolon(trimmed string) ([]model.RawLapEntry, bool) {
	if !strings.Contains(trimmed, ";") || !semicolonDate.MatchString(trimmed) {
		return nil, false
	}
	return ParseSemicolon(trimmed), true
}

// ParseSemicolon parses the getData2 format without format detection.
func ParseSemicolon(text string) []model.RawLapEntry {
	trimmed := strings.TrimSpace(text)
	ret := []model.RawLapEntry{}
	if trimmed == "" {
		return ret
	}
	parts := strings.Split(trimmed, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	// index 0 is the empty field in front of the leading ';'
	for i := 1; i+3 < len(parts); i += 4 {
		date, lapTime, venueID := parts[i], parts[i+2], parts[i+3]
		if date == "" || lapTime == "" {
			continue
		}
		venue := ""
		if venueID != "" {
			venue = "IJsbaan " + venueID
		}
		ret = append(ret, model.RawLapEntry{
			LapIndex:  len(ret) + 1,
			TimeToken: lapTime,
			Venue:     venue,
			DateToken: date,
		})
	}
	return ret
}
