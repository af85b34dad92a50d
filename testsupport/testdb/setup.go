package testdb

import (
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	tcpg "github.com/mpapenbr/schaatslog/testsupport/tcpostgres"
)

var (
	once sync.Once
	pool *pgxpool.Pool
)

// InitTestDb returns a migrated database with empty tables. The pool is shared
// by all tests of a package. Set TESTDB_URL to use an existing database.
func InitTestDb() *pgxpool.Pool {
	once.Do(func() {
		if os.Getenv("TESTDB_URL") != "" {
			pool = tcpg.SetupExternalTestDb()
		} else {
			pool = tcpg.SetupTestDb()
		}
	})
	tcpg.ClearAllTables(pool)
	return pool
}
