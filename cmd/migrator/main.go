package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/fastprodman/walletledger/internal/infra/logging"
	"github.com/fastprodman/walletledger/internal/infra/pgutils"
	"github.com/fastprodman/walletledger/pkg/envconf"
	"github.com/joho/godotenv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

//go:embed test_data/*.sql
var seedFS embed.FS

const (
	cmdUp      = "up"
	cmdDown    = "down"
	cmdVersion = "version"
)

type migratorConfig struct {
	DSN      string        `env:"PG_DSN"`
	LogLevel slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	AppEnv   string        `env:"APP_ENV" envDefault:"PROD"`
	Command  string        `env:"MIGRATOR_COMMAND" envDefault:"up"`
	Steps    int           `env:"MIGRATOR_STEPS" envDefault:"1"`
	Timeout  time.Duration `env:"MIGRATOR_TIMEOUT" envDefault:"2m"`
}

// migrationSet is one embedded directory tracked in its own version table,
// so seed numbering never collides with the schema.
type migrationSet struct {
	name  string
	fsys  embed.FS
	dir   string
	table string
}

var (
	schemaSet = migrationSet{name: "schema", fsys: schemaFS, dir: "migrations", table: "schema_migrations"}
	seedSet   = migrationSet{name: "dev seed", fsys: seedFS, dir: "test_data", table: "schema_migrations_seed"}
)

func main() {
	err := run()
	if err != nil {
		slog.Error("migration run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("migration run finished successfully")
}

func run() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg := new(migratorConfig)

	err = envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	db, err := pgutils.OpenDB(ctx, cfg.DSN, pgutils.PoolConfig{MaxOpenConns: 2})
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	//nolint:errcheck
	defer db.Close()

	sets := []migrationSet{schemaSet}
	if cfg.AppEnv == "DEV" {
		sets = append(sets, seedSet)
	}

	switch cfg.Command {
	case cmdUp:
		for _, set := range sets {
			err = set.apply(db, func(m *migrate.Migrate) error { return m.Up() })
			if err != nil {
				return err
			}
		}
	case cmdDown:
		// Seed rows reference the schema, so they go first.
		for i := len(sets) - 1; i >= 0; i-- {
			err = sets[i].apply(db, func(m *migrate.Migrate) error { return m.Steps(-cfg.Steps) })
			if err != nil {
				return err
			}
		}
	case cmdVersion:
		for _, set := range sets {
			err = set.apply(db, func(m *migrate.Migrate) error {
				v, dirty, verr := m.Version()
				if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
					return verr
				}

				slog.Info("migration version", "set", set.name, "version", v, "dirty", dirty)

				return nil
			})
			if err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown MIGRATOR_COMMAND %q (want up, down or version)", cfg.Command)
	}

	return nil
}

func (s migrationSet) apply(db *sql.DB, op func(*migrate.Migrate) error) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: s.table})
	if err != nil {
		return fmt.Errorf("%s: init postgres driver: %w", s.name, err)
	}

	src, err := iofs.New(s.fsys, s.dir)
	if err != nil {
		return fmt.Errorf("%s: iofs source: %w", s.name, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("%s: migrate instance: %w", s.name, err)
	}

	err = op(m)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", s.name, err)
	}

	slog.Info("migrations applied", "set", s.name)

	return nil
}
