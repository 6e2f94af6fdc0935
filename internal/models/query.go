package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// QueryOptions controls paging and soft-delete visibility of a read.
// Every read states IncludeDeleted explicitly; there is no implicit filter.
type QueryOptions struct {
	Limit          int
	Offset         int
	IncludeDeleted bool
}

// Page validates paging input and applies defaults.
func Page(limit, offset int) (QueryOptions, error) {
	if limit < 0 {
		return QueryOptions{}, invalid("limit", "must not be negative")
	}

	if offset < 0 {
		return QueryOptions{}, invalid("offset", "must not be negative")
	}

	if limit == 0 {
		limit = DefaultPageLimit
	}

	return QueryOptions{Limit: min(limit, MaxPageLimit), Offset: offset}, nil
}

// Party is the display identity of an account referenced by a record.
type Party struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// HistoryEntry is a record with its counterparties resolved for display.
type HistoryEntry struct {
	*Transaction
	From *Party `json:"from,omitempty"`
	To   *Party `json:"to,omitempty"`
}

// BalanceSnapshot is a point-in-time read of an account's wallet.
type BalanceSnapshot struct {
	AccountID    string          `json:"accountId"`
	Balance      decimal.Decimal `json:"balance"`
	BonusBalance decimal.Decimal `json:"bonusBalance"`
	Currency     string          `json:"currency"`
	AsOf         time.Time       `json:"asOf"`
}

// Stats summarizes the store for the admin surface.
type Stats struct {
	TotalAccounts     int64                      `json:"totalAccounts"`
	ActiveAccounts    int64                      `json:"activeAccounts"`
	TotalTransactions int64                      `json:"totalTransactions"`
	CompletedVolume   map[string]decimal.Decimal `json:"completedVolume"`
}
