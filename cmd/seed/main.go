package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/andresuchdata/oilhub/backend-go/internal/repository"
	"github.com/andresuchdata/oilhub/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/oilhub/backend-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const dbMetadataKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newFileFlag(defaultPath string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "file",
		Usage: "Ledger file (.csv or .xlsx), or an object key when --remote is set",
		Value: defaultPath,
	}
}

func commonFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{newDBURLFlag()}
	flags = append(flags, remoteFlags()...)
	return append(flags, extra...)
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	c.App.Metadata[dbMetadataKey] = db
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.App.Metadata[dbMetadataKey].(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *sql.DB {
	db, _ := c.App.Metadata[dbMetadataKey].(*sql.DB)
	return db
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}

	app := &cli.App{
		Name:     "seed",
		Usage:    "Create the schema and load branch, delivery and reclaim ledgers",
		Metadata: map[string]interface{}{},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runMigrate,
			},
			{
				Name:   "branches",
				Usage:  "Load branches from a ledger file",
				Flags:  commonFlags(newFileFlag("./data/seeds/branches.csv")),
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error { return seedLedger(c, ledgerBranches, c.String("file")) },
			},
			{
				Name:   "deliveries",
				Usage:  "Load dispatched and arrived deliveries from a ledger file",
				Flags:  commonFlags(newFileFlag("./data/seeds/deliveries.csv")),
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error { return seedLedger(c, ledgerDeliveries, c.String("file")) },
			},
			{
				Name:   "reclaims",
				Usage:  "Load reclaimed (suctioned) oil records from a ledger file",
				Flags:  commonFlags(newFileFlag("./data/seeds/reclaims.csv")),
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error { return seedLedger(c, ledgerReclaims, c.String("file")) },
			},
			{
				Name:  "all",
				Usage: "Run migrations and load every ledger found in a directory",
				Flags: commonFlags(&cli.StringFlag{
					Name:    "data-dir",
					Usage:   "Directory (or object prefix with --remote) containing the ledger files",
					Value:   "./data/seeds",
					EnvVars: []string{"APP_SEED_DIR"},
				}),
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					if err := runMigrate(c); err != nil {
						return fmt.Errorf("error running migrations: %w", err)
					}
					for _, kind := range []ledgerKind{ledgerBranches, ledgerDeliveries, ledgerReclaims} {
						path, err := locateLedger(c, c.String("data-dir"), kind)
						if err != nil {
							return err
						}
						if err := seedLedger(c, kind, path); err != nil {
							return fmt.Errorf("error seeding %s: %w", kind, err)
						}
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("seed failed")
	}
}

func runMigrate(c *cli.Context) error {
	db := postgres.Wrap(sqlx.NewDb(dbFrom(c), "pgx"))
	if err := db.Migrate(c.Context); err != nil {
		return err
	}
	logger.Log.Info().Msg("schema is up to date")
	return nil
}

func seedLedger(c *cli.Context, kind ledgerKind, path string) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	remote, err := newRemoteLedgers(c)
	if err != nil {
		return err
	}
	localPath := path
	if remote != nil {
		if localPath, err = remote.fetch(ctx, path); err != nil {
			return err
		}
	}

	loader := newLedgerLoader(repository.NewIngestRepository(dbFrom(c)))
	report, err := loader.load(ctx, kind, localPath)
	if err != nil {
		return err
	}

	logger.Log.Info().
		Str("ledger", string(kind)).
		Str("file", path).
		Int("loaded", report.loaded).
		Int("rejected", len(report.rejected)).
		Msg("ledger seeded")

	if remote != nil && len(report.rejected) > 0 {
		if err := remote.archiveRejected(ctx, kind, path, report.rejected); err != nil {
			logger.Log.Warn().Err(err).Msg("failed to archive rejected rows")
		}
	}
	return nil
}
