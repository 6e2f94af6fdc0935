package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/walletledger/internal/metrics"
	"github.com/fastprodman/walletledger/internal/services/notify"
	"github.com/fastprodman/walletledger/internal/services/risk"
)

const (
	JobFraudDigest    = "fraud_digest"
	JobRetentionSweep = "retention_sweep"

	DefaultDigestInterval    = 24 * time.Hour
	DefaultRetentionInterval = 7 * 24 * time.Hour
	DefaultRetention         = 30 * 24 * time.Hour
	DefaultSweepBatch        = 500
)

type Reporter interface {
	FraudReport(ctx context.Context, from, until time.Time) (*risk.Digest, error)
}

type Sweeper interface {
	SoftDeleteCompletedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// DigestJob sends the suspicious records created since its previous
// successful run to the admin recipient. The first run covers the last
// interval.
type DigestJob struct {
	reporter  Reporter
	notifier  notify.Notifier
	recipient string
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger

	lastRun time.Time
}

func NewDigestJob(reporter Reporter, notifier notify.Notifier, recipient string, interval time.Duration) *DigestJob {
	if interval <= 0 {
		interval = DefaultDigestInterval
	}

	return &DigestJob{
		reporter:  reporter,
		notifier:  notifier,
		recipient: recipient,
		interval:  interval,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

func (d *DigestJob) Job() *Job {
	return &Job{Name: JobFraudDigest, Interval: d.interval, Run: d.Run}
}

func (d *DigestJob) Run(ctx context.Context) error {
	until := d.now().UTC()
	from := d.lastRun
	if from.IsZero() {
		from = until.Add(-d.interval)
	}

	digest, err := d.reporter.FraudReport(ctx, from, until)
	if err != nil {
		return fmt.Errorf("build fraud digest: %w", err)
	}

	d.notifier.Notify(ctx, notify.New(notify.KindFraudDigest, d.recipient, digest))
	d.lastRun = until

	d.logger.Info("fraud digest queued",
		"from", from,
		"until", until,
		"totalFlagged", digest.TotalFlagged,
	)

	return nil
}

// RetentionJob soft-deletes COMPLETED records older than the retention
// window in batches, checking for cancellation between batches. A rerun
// only touches what the previous run left.
type RetentionJob struct {
	sweeper   Sweeper
	retention time.Duration
	batch     int
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func NewRetentionJob(sweeper Sweeper, retention, interval time.Duration, batch int) *RetentionJob {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultRetentionInterval
	}
	if batch <= 0 {
		batch = DefaultSweepBatch
	}

	return &RetentionJob{
		sweeper:   sweeper,
		retention: retention,
		batch:     batch,
		interval:  interval,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

func (r *RetentionJob) Job() *Job {
	return &Job{Name: JobRetentionSweep, Interval: r.interval, Run: r.Run}
}

func (r *RetentionJob) Run(ctx context.Context) error {
	cutoff := r.now().UTC().Add(-r.retention)
	total := 0

	for {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("retention sweep stopped after %d records: %w", total, err)
		}

		n, err := r.sweeper.SoftDeleteCompletedBefore(ctx, cutoff, r.batch)
		total += n
		metrics.RetentionSoftDeleted.Add(float64(n))
		if err != nil {
			return fmt.Errorf("retention sweep batch after %d records: %w", total, err)
		}

		if n < r.batch {
			break
		}
	}

	r.logger.Info("retention sweep complete", "cutoff", cutoff, "softDeleted", total)

	return nil
}
