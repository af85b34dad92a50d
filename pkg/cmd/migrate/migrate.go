package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/cmd/cmdutil"
	"github.com/mpapenbr/schaatslog/pkg/config"
	dbMigrate "github.com/mpapenbr/schaatslog/pkg/db/migrate"
	"github.com/mpapenbr/schaatslog/pkg/utils"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration()
		},
	}

	cmd.Flags().StringVarP(&config.MigrationSourceURL,
		"migrationSourceUrl",
		"m",
		"",
		"url to migration files (default: migrations built into the binary)")

	return cmd
}

func startMigration() error {
	cmdutil.SetupLogger()
	cmdutil.WaitForServices(utils.ExtractFromDBURL(config.DB))

	dbURL := prepareURLForDB(config.DB)
	if config.MigrationSourceURL == "" {
		log.Info("Using embedded migrations")
		return dbMigrate.MigrateDb(dbURL)
	}

	log.Info("Using migrations files at", log.String("source", config.MigrationSourceURL))
	m, err := migrate.New(config.MigrationSourceURL, dbURL)
	if err != nil {
		return fmt.Errorf("could not create migration: %w", err)
	}
	defer m.Close()
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("No Migration required")
		return nil
	}
	return err
}

func prepareURLForDB(url string) string {
	options := "sslmode=disable"
	if strings.Contains(url, "sslmode=") {
		return url
	}
	if strings.Contains(url, "?") {
		return fmt.Sprintf("%s&%s", url, options)
	}
	return fmt.Sprintf("%s?%s", url, options)
}
