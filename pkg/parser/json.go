package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/mpapenbr/schaatslog/pkg/model"
)

type lapField int

const (
	fieldLap lapField = iota
	fieldTime
	fieldVenue
	fieldDate
)

// jsonAliases lists the candidate keys per field in priority order.
var jsonAliases = map[lapField][]string{
	fieldLap:   {"lap", "lap_num", "ronde"},
	fieldTime:  {"time", "lap_time", "tijd", "LapTime"},
	fieldVenue: {"venue", "baan", "ijsbaan", "Venue"},
	fieldDate:  {"date", "datum", "Date"},
}

var (
	lapsPath     = jp.MustParseString("$.laps")
	dataPath     = jp.MustParseString("$.data")
	sessionsPath = jp.MustParseString("$.sessions")
)

func parseJSON(trimmed string) ([]model.RawLapEntry, bool) {
	if !strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	doc, err := oj.ParseString(trimmed)
	if err != nil {
		return nil, false
	}
	return fromJSON(doc), true
}

// fromJSON unwraps the known envelopes (laps, data, sessions) until it finds
// an array of lap objects.
func fromJSON(doc any) []model.RawLapEntry {
	ret := []model.RawLapEntry{}
	switch v := doc.(type) {
	case []any:
		for _, item := range v {
			if e, ok := jsonItem(item); ok {
				ret = append(ret, e)
			}
		}
	case map[string]any:
		if arr, ok := firstArray(lapsPath, v); ok {
			return fromJSON(arr)
		}
		if arr, ok := firstArray(dataPath, v); ok {
			return fromJSON(arr)
		}
		if arr, ok := firstArray(sessionsPath, v); ok {
			for _, s := range arr {
				if m, isMap := s.(map[string]any); isMap {
					if laps, found := m["laps"]; found && laps != nil {
						ret = append(ret, fromJSON(laps)...)
						continue
					}
				}
				ret = append(ret, fromJSON(s)...)
			}
		}
	}
	return ret
}

func firstArray(path jp.Expr, doc any) ([]any, bool) {
	for _, r := range path.Get(doc) {
		if arr, ok := r.([]any); ok {
			return arr, true
		}
	}
	return nil, false
}

func jsonItem(item any) (model.RawLapEntry, bool) {
	obj, ok := item.(map[string]any)
	if !ok {
		return model.RawLapEntry{}, false
	}
	e := model.RawLapEntry{
		LapIndex:  lapNumber(lookup(obj, fieldLap)),
		TimeToken: scalarString(lookup(obj, fieldTime)),
		Venue:     scalarString(lookup(obj, fieldVenue)),
		DateToken: scalarString(lookup(obj, fieldDate)),
	}
	if e.LapIndex == 0 || e.TimeToken == "" {
		return model.RawLapEntry{}, false
	}
	return e, true
}

// lookup returns the first candidate value which is present and not empty.
func lookup(obj map[string]any, f lapField) any {
	for _, key := range jsonAliases[f] {
		if v, ok := obj[key]; ok && scalarString(v) != "" {
			return v
		}
	}
	return nil
}

func lapNumber(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case string:
		return parseLeadingInt(n)
	}
	return 0
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}
