package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// Account is a wallet owned by the store. The engine only holds copies of it
// for the duration of a transaction scope.
type Account struct {
	ID           string          `json:"id"`
	DisplayName  string          `json:"displayName"`
	Email        string          `json:"email,omitempty"`
	Balance      decimal.Decimal `json:"balance"`
	BonusBalance decimal.Decimal `json:"bonusBalance"`
	Currency     string          `json:"currency"`
	Active       bool            `json:"active"`
	Deleted      bool            `json:"deleted"`
	DeletedAt    *time.Time      `json:"deletedAt,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Usable reports whether the account may take part in a ledger operation.
func (a *Account) Usable() bool {
	return a.Active && !a.Deleted
}

// Party returns the display identity used when rendering a counterparty.
func (a *Account) Party() *Party {
	return &Party{AccountID: a.ID, DisplayName: a.DisplayName, Email: a.Email}
}

// Recipient is the notification address for the account owner.
func (a *Account) Recipient() string {
	if a.Email != "" {
		return a.Email
	}

	return a.ID
}

// CanonicalCurrency normalizes an ISO currency code.
func CanonicalCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}

	return code
}
