package lap

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mpapenbr/schaatslog/pkg/model"
)

// column limits of the lap table
const (
	maxTransponderLen = 32
	maxVenueLen       = 64
	maxLapTime        = 99999.999
	maxSpeed          = 99999.9
)

var ErrInvalidLap = errors.New("lap cannot be stored")

// Validate reports whether l fits into the lap table.
func Validate(l *model.Lap) error {
	if _, err := time.Parse(model.DateLayout, l.Date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidLap, l.Date)
	}
	if n := utf8.RuneCountInString(l.Transponder); n == 0 || n > maxTransponderLen {
		return fmt.Errorf("%w: transponder %q", ErrInvalidLap, l.Transponder)
	}
	if utf8.RuneCountInString(l.Venue) > maxVenueLen {
		return fmt.Errorf("%w: venue longer than %d", ErrInvalidLap, maxVenueLen)
	}
	if l.LapTimeSeconds <= 0 || l.LapTimeSeconds > maxLapTime {
		return fmt.Errorf("%w: lap time %v", ErrInvalidLap, l.LapTimeSeconds)
	}
	if l.SpeedKmh < 0 || l.SpeedKmh > maxSpeed {
		return fmt.Errorf("%w: speed %v", ErrInvalidLap, l.SpeedKmh)
	}
	return nil
}
