//nolint:whitespace //can't make both the linter and editor happy :(
package lap

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/schaatslog/pkg/model"
	"github.com/mpapenbr/schaatslog/pkg/repository"
)

// Import describes one batch of archived laps.
type Import struct {
	ID          uuid.UUID
	Transponder string
	Source      string
	CreatedAt   time.Time
}

func CreateImport(
	ctx context.Context,
	conn repository.Querier,
	transponder, source string,
) (*Import, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	ret := &Import{ID: id, Transponder: transponder, Source: source}
	row := conn.QueryRow(ctx,
		`insert into lap_import (id, transponder, source) values ($1,$2,$3)
		 returning created_at`,
		id, transponder, source)
	if err := row.Scan(&ret.CreatedAt); err != nil {
		return nil, err
	}
	return ret, nil
}

// Upsert stores laps, existing laps (transponder, date, lap number) are
// replaced. Returns the number of rows written.
func Upsert(
	ctx context.Context,
	conn repository.Querier,
	importID uuid.UUID,
	laps []model.Lap,
) (int, error) {
	count := 0
	for i := range laps {
		l := &laps[i]
		cmdTag, err := conn.Exec(ctx, upsertStmt,
			l.Transponder, l.Date, l.LapNumber, l.LapTimeSeconds,
			l.Venue, l.SpeedKmh, importID)
		if err != nil {
			return count, fmt.Errorf("upsert lap %d of %s: %w", l.LapNumber, l.Date, err)
		}
		count += int(cmdTag.RowsAffected())
	}
	return count, nil
}

// LoadByTransponder returns the archived laps ordered by date and lap number.
func LoadByTransponder(
	ctx context.Context,
	conn repository.Querier,
	transponder string,
) ([]model.Lap, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where transponder=$1 order by datum, lap_num", selector),
		transponder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := []model.Lap{}
	for rows.Next() {
		var item model.Lap
		if err := scan(&item, rows); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, rows.Err()
}

// deletes all laps of a transponder, returns number of rows deleted.
func DeleteByTransponder(
	ctx context.Context,
	conn repository.Querier,
	transponder string,
) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from lap where transponder=$1", transponder)
	if err != nil {
		return 0, err
	}
	if _, err := conn.Exec(ctx,
		"delete from lap_import where transponder=$1", transponder); err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

const upsertStmt = `
insert into lap (transponder, datum, lap_num, lap_time, baan, snelheid, import_id)
values ($1, to_date($2, 'YYYY-MM-DD'), $3, $4, $5, $6, $7)
on conflict (transponder, datum, lap_num) do update set
	lap_time=excluded.lap_time,
	baan=excluded.baan,
	snelheid=excluded.snelheid,
	import_id=excluded.import_id
`

// little helper
const selector = `select transponder, to_char(datum, 'YYYY-MM-DD'), lap_num,
lap_time::float8, baan, snelheid::float8 from lap`

func scan(l *model.Lap, row pgx.Row) error {
	return row.Scan(&l.Transponder, &l.Date, &l.LapNumber,
		&l.LapTimeSeconds, &l.Venue, &l.SpeedKmh)
}
