// Package archive stores laps in the lap database.
package archive

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/model"
	lapRepos "github.com/mpapenbr/schaatslog/pkg/repository/lap"
)

type Archive interface {
	Store(ctx context.Context, transponder, source string, laps []model.Lap) (int, error)
	Load(ctx context.Context, transponder string) ([]model.Lap, error)
}

type PgArchive struct {
	pool *pgxpool.Pool
	log  *log.Logger
}

var _ Archive = (*PgArchive)(nil)

func New(pool *pgxpool.Pool) *PgArchive {
	return &PgArchive{pool: pool, log: log.Default().Named("archive")}
}

// Store writes laps grouped by transponder, each group within one transaction
// together with its import record. Laps without transponder get transponder.
// Laps which do not fit the lap table are logged and skipped.
//
//nolint:whitespace // can't make both editor and linter happy
func (a *PgArchive) Store(
	ctx context.Context, transponder, source string, laps []model.Lap,
) (int, error) {
	groups, order := a.group(transponder, source, laps)
	total := 0
	for _, t := range order {
		err := pgx.BeginFunc(ctx, a.pool, func(tx pgx.Tx) error {
			imp, err := lapRepos.CreateImport(ctx, tx, t, source)
			if err != nil {
				return err
			}
			n, err := lapRepos.Upsert(ctx, tx, imp.ID, groups[t])
			total += n
			return err
		})
		if err != nil {
			return total, err
		}
	}
	a.log.Info("archived laps",
		log.String("source", source), log.Int("laps", total))
	return total, nil
}

// group returns the storable laps per transponder in order of first appearance.
//
//nolint:whitespace // can't make both editor and linter happy
func (a *PgArchive) group(
	transponder, source string, laps []model.Lap,
) (groups map[string][]model.Lap, order []string) {
	groups = map[string][]model.Lap{}
	for _, l := range laps {
		if l.Transponder == "" {
			l.Transponder = transponder
		}
		if err := lapRepos.Validate(&l); err != nil {
			a.log.Warn("skipping lap",
				log.String("source", source),
				log.Int("lap", l.LapNumber),
				log.ErrorField(err))
			continue
		}
		if _, ok := groups[l.Transponder]; !ok {
			order = append(order, l.Transponder)
		}
		groups[l.Transponder] = append(groups[l.Transponder], l)
	}
	return groups, order
}

func (a *PgArchive) Load(ctx context.Context, transponder string) ([]model.Lap, error) {
	return lapRepos.LoadByTransponder(ctx, a.pool, transponder)
}
