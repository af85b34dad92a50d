//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/schaatslog/pkg/db/migrate"
	database "github.com/mpapenbr/schaatslog/pkg/db/postgres"
)

// SetupTestDb starts the schaatslog test container, applies the migrations and
// returns a pool for it.
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	container, err := SetupPostgres(ctx, WithName("schaatslog-test"))
	if err != nil {
		log.Fatal(err)
	}
	dbURL, err := container.ConnectionString(ctx)
	if err != nil {
		log.Fatal(err)
	}
	return migrateAndConnect(dbURL)
}

// uses the database referenced by TESTDB_URL instead of a container
func SetupExternalTestDb() *pgxpool.Pool {
	return migrateAndConnect(os.Getenv("TESTDB_URL"))
}

func migrateAndConnect(dbURL string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	return database.InitWithURL(dbURL)
}

func ClearLapTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from lap")
}

func ClearLapImportTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from lap_import")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearLapTable(pool)
	ClearLapImportTable(pool)
}
