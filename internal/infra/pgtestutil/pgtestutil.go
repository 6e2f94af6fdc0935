// Package pgtestutil provisions throwaway PostgreSQL databases for tests.
// Each database is created from template0, migrated with the same SQL the
// migrator embeds and dropped when the test ends.
package pgtestutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/fastprodman/walletledger/internal/infra/pgutils"
	"github.com/fastprodman/walletledger/internal/models"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/file"
)

const (
	// DSNEnv names the variable holding the DSN of a disposable server.
	// Database tests are skipped when it is unset.
	DSNEnv        = "PG_TEST_DSN"
	migrationsDir = "cmd/migrator/migrations"
	createRetries = 5
)

// NewTestDB returns a migrated database private to t. It is dropped in
// t.Cleanup.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	baseDSN := os.Getenv(DSNEnv)
	if baseDSN == "" {
		t.Skipf("%s not set, skipping database test", DSNEnv)
	}

	adminDSN, err := ReplaceDBInDSN(baseDSN, "postgres")
	if err != nil {
		t.Fatalf("admin dsn: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	defer cancel()

	admin, err := pgutils.OpenDB(ctx, adminDSN, pgutils.PoolConfig{MaxOpenConns: 2})
	if err != nil {
		t.Fatalf("open admin: %v", err)
	}

	dbName, err := createDatabase(ctx, admin, t.Name())
	if err != nil {
		_ = admin.Close()
		t.Fatalf("%v", err)
	}

	// Registered before the test db is opened so it runs after db.Close.
	t.Cleanup(func() { dropDatabase(admin, dbName) })

	testDSN, err := ReplaceDBInDSN(baseDSN, dbName)
	if err != nil {
		t.Fatalf("test dsn: %v", err)
	}

	db, err := pgutils.OpenDB(ctx, testDSN, pgutils.PoolConfig{ConnMaxLifetime: 30 * time.Second})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	err = migrateUp(db)
	if err != nil {
		t.Fatalf("%v", err)
	}

	return db
}

// SeedAccounts inserts accounts directly, bypassing the ledger.
func SeedAccounts(t *testing.T, db *sql.DB, accounts ...*models.Account) {
	t.Helper()

	for _, a := range accounts {
		var email sql.NullString
		if a.Email != "" {
			email = sql.NullString{String: a.Email, Valid: true}
		}

		_, err := db.ExecContext(t.Context(), `
			INSERT INTO accounts (id, display_name, email, balance, bonus_balance, currency, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, a.ID, a.DisplayName, email, a.Balance, a.BonusBalance, models.CanonicalCurrency(a.Currency), a.Active)
		if err != nil {
			t.Fatalf("seed account %s: %v", a.ID, err)
		}
	}
}

func createDatabase(ctx context.Context, admin *sql.DB, testName string) (string, error) {
	for attempt := 1; ; attempt++ {
		name := sanitizeForPgIdent(uniqueDBName("walletdb", testName))

		_, err := admin.ExecContext(ctx,
			fmt.Sprintf(`CREATE DATABASE "%s" WITH TEMPLATE template0 ENCODING 'UTF8'`, name))
		if err == nil {
			return name, nil
		}

		if !pgutils.IsUniqueViolation(err) || attempt == createRetries {
			return "", fmt.Errorf("create database: %w", err)
		}
	}
}

func dropDatabase(admin *sql.DB, name string) {
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := admin.ExecContext(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS "%s" WITH (FORCE)`, name))
	if err == nil {
		return
	}

	// Servers before 13 have no FORCE.
	_, _ = admin.ExecContext(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`, name)
	_, _ = admin.ExecContext(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS "%s"`, name))
}

func migrateUp(db *sql.DB) error {
	dir, err := migrationsAbsPath()
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}

	src, err := (&file.File{}).Open(dir)
	if err != nil {
		return fmt.Errorf("open migrations dir: %w", err)
	}

	m, err := migrate.NewWithInstance("file", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	return nil
}

// ReplaceDBInDSN swaps the database name in a URL-form Postgres DSN.
func ReplaceDBInDSN(dsn, newDB string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}

	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("dsn must be a postgres:// URL, got scheme %q", u.Scheme)
	}

	u.Path = "/" + newDB

	return u.String(), nil
}

// migrationsAbsPath resolves the migrator's SQL directory from this file,
// three levels below the repo root.
func migrationsAbsPath() (string, error) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("runtime.Caller failed")
	}

	abs, err := filepath.Abs(filepath.Join(filepath.Dir(thisFile), "..", "..", "..", migrationsDir))
	if err != nil {
		return "", fmt.Errorf("abs migrations path: %w", err)
	}

	return abs, nil
}

func uniqueDBName(prefix, testName string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(testName))

	var rnd [6]byte
	_, _ = rand.Read(rnd[:])

	return fmt.Sprintf("%s_%08x_%s", prefix, h.Sum32(), hex.EncodeToString(rnd[:]))
}

func sanitizeForPgIdent(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_", "-", "_").Replace(s)

	if len(s) <= 63 {
		return s
	}

	return s[:31] + "_" + s[len(s)-31:]
}
