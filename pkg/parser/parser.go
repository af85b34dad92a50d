// Package parser detects the format of a timing service response and extracts
// raw lap entries from it.
package parser

import (
	"strings"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/model"
)

type (
	// strategy returns false if the text is not in its format.
	strategy func(trimmed string) ([]model.RawLapEntry, bool)
	format   struct {
		name  string
		parse strategy
	}
)

// formats are checked in this order, the first match wins.
// JSON bodies may contain dates within strings, so the semicolon check has
// to be strict enough to not claim them.
var formats = []format{
	{"semicolon", parseSemicolon},
	{"json", parseJSON},
	{"table", parseTable},
	{"lines", parseLines},
}

// ParseRaw extracts raw lap entries from text.
// Unknown or broken input yields an empty slice, never an error.
func ParseRaw(text string) []model.RawLapEntry {
	entries, _ := Detect(text)
	return entries
}

// Detect is like ParseRaw but also returns the name of the detected format.
// The name is empty if no format matched.
func Detect(text string) ([]model.RawLapEntry, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []model.RawLapEntry{}, ""
	}
	l := log.Default().Named("parser")
	for _, f := range formats {
		if entries, ok := f.parse(trimmed); ok {
			l.Debug("format detected",
				log.String("format", f.name), log.Int("entries", len(entries)))
			if entries == nil {
				entries = []model.RawLapEntry{}
			}
			return entries, f.name
		}
	}
	l.Debug("no format detected", log.Int("length", len(trimmed)))
	return []model.RawLapEntry{}, ""
}

// splitLines splits on \n and \r\n
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines
}
