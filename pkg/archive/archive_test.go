package archive

import (
	"context"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/model"
	"github.com/mpapenbr/schaatslog/testsupport/testdb"
)

func TestStoreAndLoad(t *testing.T) {
	pool := testdb.InitTestDb()
	a := New(pool)
	ctx := context.Background()
	laps := []model.Lap{
		{LapNumber: 1, LapTimeSeconds: 40, Venue: "Binnen", Date: "2025-01-15", SpeedKmh: 36},
		{
			LapNumber: 1, LapTimeSeconds: 41, Venue: "Binnen", Date: "2025-01-15",
			SpeedKmh: 35.1, Transponder: "FZ-2",
		},
	}
	n, err := a.Store(ctx, "FZ-1", "test.csv", laps)
	assert.NilError(t, err)
	assert.Equal(t, n, 2)

	got, err := a.Load(ctx, "FZ-1")
	assert.NilError(t, err)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].Transponder, "FZ-1")

	got, err = a.Load(ctx, "FZ-2")
	assert.NilError(t, err)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].LapTimeSeconds, 41.0)
}

func TestGroupSkipsInvalidLaps(t *testing.T) {
	a := &PgArchive{log: log.Default().Named("archive")}
	laps := []model.Lap{
		{LapNumber: 1, LapTimeSeconds: 40, Venue: "Binnen", Date: "2025-01-15"},
		{LapNumber: 2, LapTimeSeconds: 40, Venue: "Binnen", Date: "15.01.2025"},
		{LapNumber: 3, LapTimeSeconds: 40, Venue: strings.Repeat("x", 80), Date: "2025-01-15"},
		{LapNumber: 4, LapTimeSeconds: 41, Venue: "Buiten", Date: "2025-01-16", Transponder: "FZ-2"},
	}
	groups, order := a.group("FZ-1", "test.csv", laps)
	assert.DeepEqual(t, order, []string{"FZ-1", "FZ-2"})
	assert.Equal(t, len(groups["FZ-1"]), 1)
	assert.Equal(t, groups["FZ-1"][0].LapNumber, 1)
	assert.Equal(t, len(groups["FZ-2"]), 1)
}

func TestStoreSkipsMalformedDate(t *testing.T) {
	pool := testdb.InitTestDb()
	a := New(pool)
	ctx := context.Background()
	laps := []model.Lap{
		{LapNumber: 1, LapTimeSeconds: 40, Venue: "Binnen", Date: "2025-01-15", SpeedKmh: 36},
		{LapNumber: 2, LapTimeSeconds: 40, Venue: "Binnen", Date: "gisteren", SpeedKmh: 36},
	}
	n, err := a.Store(ctx, "FZ-3", "bad.csv", laps)
	assert.NilError(t, err)
	assert.Equal(t, n, 1)

	got, err := a.Load(ctx, "FZ-3")
	assert.NilError(t, err)
	assert.Equal(t, len(got), 1)
}
