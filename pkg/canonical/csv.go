package canonical

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/laptime"
	"github.com/mpapenbr/schaatslog/pkg/model"
)

// ExportColumns is the column order of exported CSV files.
var ExportColumns = []string{
	"lap_num", "lap_time", "baan", "datum", "snelheid", "transponder",
}

var csvAliases = struct {
	lap, time, venue, date, speed, transponder []string
}{
	lap:         []string{"lap_num", "lap", "ronde"},
	time:        []string{"lap_time", "laptime", "tijd", "time"},
	venue:       []string{"baan", "venue", "ijsbaan"},
	date:        []string{"datum", "date"},
	speed:       []string{"snelheid", "speed"},
	transponder: []string{"transponder", "id"},
}

var whitespace = regexp.MustCompile(`\s+`)

func normalizeHeader(h string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(h)), "_")
}

// csvDelimiters are the candidates for delimiter detection, ',' wins ties.
var csvDelimiters = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the candidate occurring most often (outside quotes) in
// the first line.
func sniffDelimiter(br *bufio.Reader) rune {
	// a failing reader is reported by the csv reader later on
	head, _ := br.Peek(4096)
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	counts := map[rune]int{}
	quoted := false
	for _, c := range string(head) {
		if c == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[c]++
		}
	}
	best := csvDelimiters[0]
	for _, d := range csvDelimiters[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

// ParseCSV reads laps from CSV with a header row. The delimiter (comma,
// semicolon, tab or pipe) is detected from the header line.
// Rows without a usable lap number or lap time are dropped. Malformed rows are
// logged and skipped. Only a failing reader yields an error.
func ParseCSV(r io.Reader, now time.Time) ([]model.Lap, error) {
	l := log.Default().Named("csv")
	br := bufio.NewReader(r)
	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	// with tabs an empty field would be swallowed, fields are trimmed below anyway
	reader.TrimLeadingSpace = reader.Comma != '\t'

	ret := []model.Lap{}
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return ret, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = normalizeHeader(header[i])
	}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			l.Warn("skipping malformed csv row", log.ErrorField(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(rec) != len(header) {
			l.Warn("csv row field count mismatch",
				log.Int("want", len(header)), log.Int("got", len(rec)))
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			}
		}
		if lap, ok := normalizeRow(row, now); ok {
			ret = append(ret, lap)
		}
	}
	return ret, nil
}

// ParseCSVString is a shortcut for ParseCSV on a string.
func ParseCSVString(s string, now time.Time) ([]model.Lap, error) {
	return ParseCSV(strings.NewReader(s), now)
}

func normalizeRow(row map[string]string, now time.Time) (model.Lap, bool) {
	get := func(keys []string) string {
		for _, k := range keys {
			if v := row[k]; v != "" {
				return v
			}
		}
		return ""
	}
	lapNum := number(get(csvAliases.lap))
	seconds := csvLapTime(get(csvAliases.time))
	if lapNum == 0 || seconds == 0 {
		return model.Lap{}, false
	}
	transponder := get(csvAliases.transponder)
	if transponder == "" {
		transponder = model.DefaultTransponder
	}
	lap := newLap(int(math.Round(lapNum)), seconds,
		get(csvAliases.venue), get(csvAliases.date), transponder, now)
	if speed := number(get(csvAliases.speed)); speed != 0 {
		lap.SpeedKmh = Round1(speed)
	}
	return lap, true
}

// csvLapTime accepts plain seconds and the "m:ss.fff" notation.
func csvLapTime(s string) float64 {
	if strings.Contains(s, ":") {
		return laptime.Parse(s)
	}
	return number(s)
}

// number returns 0 for anything which is not a finite number.
// A decimal comma ("42,3") is accepted.
func number(s string) float64 {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// WriteCSV writes laps with the ExportColumns header.
func WriteCSV(w io.Writer, laps []model.Lap) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return err
	}
	for i := range laps {
		lap := &laps[i]
		if err := cw.Write([]string{
			strconv.Itoa(lap.LapNumber),
			formatNumber(lap.LapTimeSeconds),
			lap.Venue,
			lap.Date,
			formatNumber(lap.SpeedKmh),
			lap.Transponder,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ToCSV(laps []model.Lap) string {
	buf := &bytes.Buffer{}
	//nolint:errcheck // writing to a buffer does not fail
	WriteCSV(buf, laps)
	return buf.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
