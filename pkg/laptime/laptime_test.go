package laptime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  float64
	}{
		{"empty", "", 0},
		{"blank", "   ", 0},
		{"minutes seconds fraction", "1:05.50", 65.5},
		{"session start marker", "00:00.000", 0},
		{"full millis", "05:19.443", 319.443},
		{"single digit fraction", "0:42.5", 42.5},
		{"long fraction truncated", "0:42.12345", 42.123},
		{"no fraction", "1:10", 70},
		{"bad minutes", "x:30.1", 30.1},
		{"bad seconds", "1:xx", 60},
		{"plain float", "42.3", 42.3},
		{"plain float with suffix", "42.3s", 42.3},
		{"padded plain float", "  38.91 ", 38.91},
		{"garbage", "abc", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Parse(tt.token), 1e-9)
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
		wantMin string
	}{
		{"below minute", 42.35, "42.35", "0:42.35"},
		{"above minute", 65.5, "1:05.50", "1:05.50"},
		{"rounding to full minute", 59.999, "1:00.00", "1:00.00"},
		{"zero", 0, "0.00", "0:00.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.seconds))
			assert.Equal(t, tt.wantMin, FormatWithMinutes(tt.seconds))
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, v := range []float64{31.07, 42.35, 65.5, 119.99, 319.44} {
		assert.InDelta(t, v, Parse(Format(v)), 1e-9, "value %v", v)
		assert.InDelta(t, v, Parse(FormatWithMinutes(v)), 1e-9, "value %v", v)
	}
}
