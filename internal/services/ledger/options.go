package ledger

import (
	"time"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/shopspring/decimal"
)

const (
	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = 50 * time.Millisecond
	fallbackCurrency      = "USD"
)

// DefaultLargeTransactionThresholds are the amounts at or above which a
// committed operation raises a large_transaction notification.
func DefaultLargeTransactionThresholds() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(10_000),
		"EUR": decimal.NewFromInt(8_500),
		"GBP": decimal.NewFromInt(7_500),
	}
}

type Option func(*Service)

// WithLargeTransactionThreshold overrides the notification threshold for one currency.
func WithLargeTransactionThreshold(currency string, amount decimal.Decimal) Option {
	return func(s *Service) { s.largeTx[models.CanonicalCurrency(currency)] = amount }
}

// WithRetry bounds conflict retries. attempts counts the first try.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if baseDelay >= 0 {
			s.baseDelay = baseDelay
		}
	}
}

// WithHistoryWindow sets how far back activity is loaded for scoring and
// how far back the daily fraud report looks.
func WithHistoryWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.window = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}
