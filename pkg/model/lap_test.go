package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFilterMode(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    FilterMode
		wantErr bool
	}{
		{"all", "ALLEMAAL", FilterAll, false},
		{"lower case", "beste", FilterBest, false},
		{"padded", " slechtste ", FilterWorst, false},
		{"empty defaults to all", "", FilterAll, false},
		{"unknown", "SOME", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilterMode(tt.arg)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnknownFilter))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpeedConstants(t *testing.T) {
	// 1440 for one lap, 7200 for five laps
	assert.InDelta(t, 1440.0, LapSpeed(1), 1e-9)
	assert.InDelta(t, 7200.0, SpeedFor(5*LapDistanceKm, 1), 1e-9)
	assert.Equal(t, 0.0, LapSpeed(0))
}
