package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mpapenbr/schaatslog/pkg/model"
)

var (
	headerLap   = regexp.MustCompile(`lap|ronde|#`)
	headerTime  = regexp.MustCompile(`time|tijd|lap_time`)
	headerVenue = regexp.MustCompile(`venue|baan|ijsbaan`)
	headerDate  = regexp.MustCompile(`date|datum`)

	simpleRow   = regexp.MustCompile(`^\d+[\t,].+`)
	rowSplitter = regexp.MustCompile(`[\t,]`)
	leadingInt  = regexp.MustCompile(`^[+-]?\d+`)
)

// parseTable handles CSV and TSV bodies with a header row.
func parseTable(trimmed string) ([]model.RawLapEntry, bool) {
	lines := splitLines(trimmed)
	if len(lines) < 2 {
		return nil, false
	}
	sep := ","
	if strings.Contains(lines[0], "\t") {
		sep = "\t"
	}
	headers := strings.Split(strings.ToLower(lines[0]), sep)
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	lapIdx := findColumn(headers, headerLap)
	timeIdx := findColumn(headers, headerTime)
	if lapIdx < 0 || timeIdx < 0 {
		return nil, false
	}
	venueIdx := findColumn(headers, headerVenue)
	dateIdx := findColumn(headers, headerDate)

	ret := []model.RawLapEntry{}
	for _, line := range lines[1:] {
		cols := strings.Split(line, sep)
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		e := model.RawLapEntry{
			LapIndex:  parseLeadingInt(column(cols, lapIdx)),
			TimeToken: column(cols, timeIdx),
			Venue:     column(cols, venueIdx),
			DateToken: column(cols, dateIdx),
		}
		if e.LapIndex != 0 && e.TimeToken != "" {
			ret = append(ret, e)
		}
	}
	return ret, true
}

// parseLines handles header-less rows like "1\t42.3\tBinnen\t2025-01-15".
func parseLines(trimmed string) ([]model.RawLapEntry, bool) {
	var ret []model.RawLapEntry
	matched := false
	for _, line := range splitLines(trimmed) {
		if !simpleRow.MatchString(line) {
			continue
		}
		matched = true
		parts := rowSplitter.Split(line, -1)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		e := model.RawLapEntry{
			LapIndex:  parseLeadingInt(column(parts, 0)),
			TimeToken: column(parts, 1),
			Venue:     column(parts, 2),
			DateToken: column(parts, 3),
		}
		if e.LapIndex != 0 && e.TimeToken != "" {
			ret = append(ret, e)
		}
	}
	return ret, matched
}

func findColumn(headers []string, re *regexp.Regexp) int {
	for i, h := range headers {
		if re.MatchString(h) {
			return i
		}
	}
	return -1
}

func column(cols []string, idx int) string {
	if idx < 0 || idx >= len(cols) {
		return ""
	}
	return cols[idx]
}

func parseLeadingInt(s string) int {
	v, err := strconv.Atoi(leadingInt.FindString(strings.TrimSpace(s)))
	if err != nil {
		return 0
	}
	return v
}
