// Package risk scores pending ledger operations against recent account
// activity. The scorer only reports a verdict; the ledger decides what to do
// with it.
package risk

import (
	"time"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/shopspring/decimal"
)

// Rule weights.
const (
	WeightHighFrequency    = 30
	WeightLargeAmount      = 40
	WeightUnusualTime      = 20
	WeightMultipleAccounts = 25
)

const (
	DefaultWindow                = 24 * time.Hour
	DefaultMaxDailyCount         = 10
	DefaultMaxDistinctRecipients = 5
	unusualHourFrom              = 1
	unusualHourTo                = 5
)

var DefaultLargeAmount = decimal.NewFromInt(10_000)

// Verdict is the outcome of scoring one candidate.
type Verdict struct {
	Score int
	Flags []models.Flag
}

func (v Verdict) Suspicious() bool {
	return v.Score >= models.SuspiciousFraudScore || len(v.Flags) > 0
}

// Scorer is safe for concurrent use once configured.
type Scorer struct {
	now                   func() time.Time
	location              *time.Location
	window                time.Duration
	maxDailyCount         int
	maxDistinctRecipients int
	largeAmount           decimal.Decimal
	largeAmountByCurrency map[string]decimal.Decimal
}

type Option func(*Scorer)

// WithClock replaces the wall clock used for the window and the hour check.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// WithLocation sets the zone the unusual-hour rule reads the clock in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scorer) { s.location = loc }
}

func WithWindow(d time.Duration) Option {
	return func(s *Scorer) { s.window = d }
}

func WithMaxDailyCount(n int) Option {
	return func(s *Scorer) { s.maxDailyCount = n }
}

func WithMaxDistinctRecipients(n int) Option {
	return func(s *Scorer) { s.maxDistinctRecipients = n }
}

// WithLargeAmount sets the fallback threshold for currencies without their own.
func WithLargeAmount(threshold decimal.Decimal) Option {
	return func(s *Scorer) { s.largeAmount = threshold }
}

// WithLargeAmountFor sets the threshold for a single currency.
func WithLargeAmountFor(currency string, threshold decimal.Decimal) Option {
	return func(s *Scorer) {
		s.largeAmountByCurrency[models.CanonicalCurrency(currency)] = threshold
	}
}

func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		now:                   time.Now,
		location:              time.Local,
		window:                DefaultWindow,
		maxDailyCount:         DefaultMaxDailyCount,
		maxDistinctRecipients: DefaultMaxDistinctRecipients,
		largeAmount:           DefaultLargeAmount,
		largeAmountByCurrency: make(map[string]decimal.Decimal),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Window is the trailing interval callers should load history for.
func (s *Scorer) Window() time.Duration {
	return s.window
}

// Since returns the lower bound of the history window at the current time.
func (s *Scorer) Since() time.Time {
	return s.now().Add(-s.window)
}

// LargeAmountThreshold returns the LARGE_AMOUNT threshold for currency.
func (s *Scorer) LargeAmountThreshold(currency string) decimal.Decimal {
	th, ok := s.largeAmountByCurrency[models.CanonicalCurrency(currency)]
	if ok {
		return th
	}

	return s.largeAmount
}

// Evaluate scores candidate against history. History is expected to be the
// subject account's records; records outside the window or soft-deleted are
// ignored. The candidate counts towards its own frequency and recipient rules.
func (s *Scorer) Evaluate(candidate *models.Transaction, history []*models.Transaction) Verdict {
	now := s.now()
	since := now.Add(-s.window)
	subject := candidate.Subject()

	var (
		score int
		flags []models.Flag
	)

	count := 1
	recipients := make(map[string]struct{})
	if candidate.Kind == models.KindTransfer {
		recipients[candidate.ToAccount] = struct{}{}
	}

	for _, h := range history {
		if h == nil || h.ID == candidate.ID || h.Deleted || h.CreatedAt.Before(since) {
			continue
		}
		if !h.InvolvesAccount(subject) {
			continue
		}

		count++

		if h.Kind == models.KindTransfer && h.FromAccount == subject && h.ToAccount != "" {
			recipients[h.ToAccount] = struct{}{}
		}
	}

	if count > s.maxDailyCount {
		score += WeightHighFrequency
		flags = append(flags, models.FlagHighFrequency)
	}

	if candidate.Amount.GreaterThan(s.LargeAmountThreshold(candidate.Currency)) {
		score += WeightLargeAmount
		flags = append(flags, models.FlagLargeAmount)
	}

	// Live clock on purpose: the hour is read at evaluation time, not from the
	// record's timestamp.
	hour := now.In(s.location).Hour()
	if hour >= unusualHourFrom && hour <= unusualHourTo {
		score += WeightUnusualTime
		flags = append(flags, models.FlagUnusualTime)
	}

	if candidate.Kind == models.KindTransfer && len(recipients) > s.maxDistinctRecipients {
		score += WeightMultipleAccounts
		flags = append(flags, models.FlagMultipleAccounts)
	}

	return Verdict{Score: min(score, models.MaxFraudScore), Flags: flags}
}
