// Package config holds the environment-driven settings shared by the
// binaries. Every section is loaded with pkg/envconf.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fastprodman/walletledger/internal/infra/pgutils"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/shopspring/decimal"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	SinkLog   = "log"
	SinkRedis = "redis"
)

var ErrInvalidConfig = errors.New("invalid config")

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN" envDefault:""`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

func (c PostgresConfig) Pool() pgutils.PoolConfig {
	return pgutils.PoolConfig{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

type StoreConfig struct {
	Backend  string `env:"STORE_BACKEND" envDefault:"postgres"`
	Postgres PostgresConfig
}

// LedgerConfig tunes the transaction engine.
type LedgerConfig struct {
	RetryAttempts  int           `env:"LEDGER_RETRY_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"LEDGER_RETRY_BASE_DELAY" envDefault:"50ms"`
	// LargeTransactions is a comma separated CUR:amount list.
	LargeTransactions string `env:"LEDGER_LARGE_TX_THRESHOLDS" envDefault:"USD:10000,EUR:8500,GBP:7500"`
}

// LargeTransactionThresholds parses LargeTransactions.
func (c LedgerConfig) LargeTransactionThresholds() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)

	for _, pair := range strings.Split(c.LargeTransactions, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		cur, amt, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("%w: threshold %q is not CUR:amount", ErrInvalidConfig, pair)
		}

		d, err := decimal.NewFromString(strings.TrimSpace(amt))
		if err != nil {
			return nil, fmt.Errorf("%w: threshold %q: %w", ErrInvalidConfig, pair, err)
		}

		out[models.CanonicalCurrency(cur)] = d
	}

	return out, nil
}

type RiskConfig struct {
	Window                time.Duration   `env:"RISK_WINDOW" envDefault:"24h"`
	MaxDailyCount         int             `env:"RISK_MAX_DAILY_COUNT" envDefault:"10"`
	MaxDistinctRecipients int             `env:"RISK_MAX_DISTINCT_RECIPIENTS" envDefault:"5"`
	LargeAmount           decimal.Decimal `env:"RISK_LARGE_AMOUNT" envDefault:"10000"`
	Timezone              string          `env:"RISK_TIMEZONE" envDefault:"Local"`
}

// Location resolves Timezone for the unusual-hour rule.
func (c RiskConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}

	return loc, nil
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	Channel  string `env:"REDIS_NOTIFY_CHANNEL" envDefault:"wallet:notifications"`
}

type NotifyConfig struct {
	Sink           string        `env:"NOTIFY_SINK" envDefault:"log"`
	Workers        int           `env:"NOTIFY_WORKERS" envDefault:"4"`
	QueueSize      int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	SendTimeout    time.Duration `env:"NOTIFY_SEND_TIMEOUT" envDefault:"5s"`
	AdminRecipient string        `env:"NOTIFY_ADMIN_RECIPIENT" envDefault:"fraud-team@wallet.local"`
	Redis          RedisConfig
}

type MaintenanceConfig struct {
	Enabled           bool          `env:"MAINTENANCE_ENABLED" envDefault:"true"`
	RunOnStart        bool          `env:"MAINTENANCE_RUN_ON_START" envDefault:"false"`
	DigestInterval    time.Duration `env:"MAINTENANCE_DIGEST_INTERVAL" envDefault:"24h"`
	RetentionInterval time.Duration `env:"MAINTENANCE_RETENTION_INTERVAL" envDefault:"168h"`
	RetentionDays     int           `env:"MAINTENANCE_RETENTION_DAYS" envDefault:"30"`
	SweepBatch        int           `env:"MAINTENANCE_SWEEP_BATCH" envDefault:"500"`
}

func (c MaintenanceConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Validate checks the enumerated values and the ranges envconf cannot.
func Validate(store StoreConfig, notify NotifyConfig, mnt MaintenanceConfig) error {
	var errs []error

	switch store.Backend {
	case StorePostgres:
		if store.Postgres.DSN == "" {
			errs = append(errs, fmt.Errorf("%w: PG_DSN is required for the postgres store", ErrInvalidConfig))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, store.Backend))
	}

	switch notify.Sink {
	case SinkLog, SinkRedis:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown notification sink %q", ErrInvalidConfig, notify.Sink))
	}

	if mnt.Enabled && (mnt.DigestInterval <= 0 || mnt.RetentionInterval <= 0) {
		errs = append(errs, fmt.Errorf("%w: maintenance intervals must be positive", ErrInvalidConfig))
	}

	if mnt.RetentionDays <= 0 || mnt.SweepBatch <= 0 {
		errs = append(errs, fmt.Errorf("%w: retention days and sweep batch must be positive", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}
