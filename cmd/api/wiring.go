package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/walletledger/internal/config"
	"github.com/fastprodman/walletledger/internal/infra/pgutils"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/memstore"
	"github.com/fastprodman/walletledger/internal/repos/pgstore"
	"github.com/fastprodman/walletledger/internal/services/ledger"
	"github.com/fastprodman/walletledger/internal/services/maintenance"
	"github.com/fastprodman/walletledger/internal/services/notify"
	"github.com/fastprodman/walletledger/internal/services/risk"
	"github.com/fastprodman/walletledger/pkg/shutdownqueue"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

func openStore(ctx context.Context, cfg config.StoreConfig, q *shutdownqueue.Queue) (ledger.Store, error) {
	if cfg.Backend == config.StoreMemory {
		slog.Warn("using in-memory store; data is lost on restart")

		s := memstore.New()
		for _, a := range demoAccounts() {
			s.PutAccount(a)
		}

		return s, nil
	}

	db, err := pgutils.OpenDB(ctx, cfg.Postgres.DSN, cfg.Postgres.Pool())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	q.Add("postgres", func(context.Context) error {
		return db.Close()
	})

	return pgstore.New(db), nil
}

// demoAccounts mirrors the migrator's dev seed for the memory backend.
func demoAccounts() []*models.Account {
	mk := func(id, name, email, balance, currency string) *models.Account {
		return &models.Account{
			ID:          id,
			DisplayName: name,
			Email:       email,
			Balance:     decimal.RequireFromString(balance),
			Currency:    currency,
			Active:      true,
		}
	}

	return []*models.Account{
		mk("acc-alice", "Alice", "alice@example.com", "5000.00", "USD"),
		mk("acc-bob", "Bob", "bob@example.com", "1200.00", "USD"),
		mk("acc-carol", "Carol", "", "300.00", "USD"),
		mk("acc-dave", "Dave", "dave@example.com", "8000.00", "EUR"),
	}
}

func openSink(ctx context.Context, cfg config.NotifyConfig, q *shutdownqueue.Queue) (notify.Sink, error) {
	logSink := notify.NewLogSink(slog.Default().With("component", "notify"))
	if cfg.Sink != config.SinkRedis {
		return logSink, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	err := client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	q.Add("redis", func(context.Context) error {
		return client.Close()
	})

	// The log line stays as the audit trail next to the published message.
	return notify.Multi{notify.NewRedisSink(client, cfg.Redis.Channel), logSink}, nil
}

func newScorer(cfg config.RiskConfig) (*risk.Scorer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return risk.NewScorer(
		risk.WithLocation(loc),
		risk.WithWindow(cfg.Window),
		risk.WithMaxDailyCount(cfg.MaxDailyCount),
		risk.WithMaxDistinctRecipients(cfg.MaxDistinctRecipients),
		risk.WithLargeAmount(cfg.LargeAmount),
	), nil
}

func newLedger(store ledger.Store, scorer *risk.Scorer, notifier notify.Notifier, cfg config.LedgerConfig) (*ledger.Service, error) {
	thresholds, err := cfg.LargeTransactionThresholds()
	if err != nil {
		return nil, err
	}

	opts := []ledger.Option{ledger.WithRetry(cfg.RetryAttempts, cfg.RetryBaseDelay)}
	for cur, amt := range thresholds {
		opts = append(opts, ledger.WithLargeTransactionThreshold(cur, amt))
	}

	return ledger.New(store, scorer, notifier, opts...), nil
}

// startScheduler runs the maintenance loop until the queue stops it.
func startScheduler(ctx context.Context, svc *ledger.Service, notifier notify.Notifier, cfg apiConfig, q *shutdownqueue.Queue) {
	mnt := cfg.Maintenance

	digest := maintenance.NewDigestJob(svc, notifier, cfg.Notify.AdminRecipient, mnt.DigestInterval)
	sweep := maintenance.NewRetentionJob(svc, mnt.Retention(), mnt.RetentionInterval, mnt.SweepBatch)

	sched := maintenance.NewScheduler(
		[]*maintenance.Job{digest.Job(), sweep.Job()},
		maintenance.WithRunOnStart(mnt.RunOnStart),
		maintenance.WithLogger(slog.Default().With("component", "maintenance")),
	)

	done := make(chan struct{})

	go func() {
		defer close(done)
		sched.Start(ctx)
	}()

	q.Add("scheduler", func(c context.Context) error {
		sched.Stop()

		select {
		case <-done:
			return nil
		case <-c.Done():
			return fmt.Errorf("wait for running job: %w", c.Err())
		}
	})

	slog.Info("maintenance scheduler started",
		"digestInterval", mnt.DigestInterval.String(),
		"retentionInterval", mnt.RetentionInterval.String(),
		"retention", mnt.Retention().Round(time.Hour).String(),
	)
}
