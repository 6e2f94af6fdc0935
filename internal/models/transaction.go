package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindDeposit    Kind = "DEPOSIT"
	KindWithdrawal Kind = "WITHDRAWAL"
	KindTransfer   Kind = "TRANSFER"
	KindBonus      Kind = "BONUS"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusFlagged   Status = "FLAGGED"
)

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusFlagged
}

const (
	MaxFraudScore        = 100
	SuspiciousFraudScore = 70
)

// Transaction is the ledger record of a single balance-affecting operation.
type Transaction struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	FromAccount string          `json:"fromAccount,omitempty"`
	ToAccount   string          `json:"toAccount,omitempty"`
	Status      Status          `json:"status"`
	Description string          `json:"description,omitempty"`
	FraudScore  int             `json:"fraudScore"`
	FraudFlags  Flags           `json:"fraudFlags"`
	Deleted     bool            `json:"isDeleted"`
	DeletedAt   *time.Time      `json:"deletedAt,omitempty"`
	Metadata    Metadata        `json:"metadata"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

var descriptions = map[Kind]string{
	KindDeposit:    "Wallet deposit",
	KindWithdrawal: "Wallet withdrawal",
	KindTransfer:   "Wallet transfer",
	KindBonus:      "Bonus credit",
}

// NewTransaction builds a PENDING record, rejecting combinations that could
// never be committed.
//
//nolint:cyclop
func NewTransaction(kind Kind, amount decimal.Decimal, currency, from, to string, meta Metadata) (*Transaction, error) {
	desc, ok := descriptions[kind]
	if !ok {
		return nil, invalid("type", fmt.Sprintf("unknown kind %q", kind))
	}

	if !amount.IsPositive() {
		return nil, invalid("amount", "must be greater than zero")
	}

	if !amount.Equal(amount.Round(2)) {
		return nil, invalid("amount", "supports up to 2 decimals")
	}

	switch kind {
	case KindWithdrawal:
		if from == "" {
			return nil, invalid("fromAccount", "required for WITHDRAWAL")
		}
	case KindTransfer:
		if from == "" {
			return nil, invalid("fromAccount", "required for TRANSFER")
		}
		if to == "" {
			return nil, invalid("toAccount", "required for TRANSFER")
		}
		if from == to {
			return nil, invalid("toAccount", "must differ from fromAccount")
		}
	case KindDeposit, KindBonus:
		if to == "" {
			return nil, invalid("toAccount", fmt.Sprintf("required for %s", kind))
		}
	}

	now := time.Now().UTC()

	return &Transaction{
		ID:          uuid.NewString(),
		Kind:        kind,
		Amount:      amount,
		Currency:    CanonicalCurrency(currency),
		FromAccount: from,
		ToAccount:   to,
		Status:      StatusPending,
		Description: desc,
		FraudFlags:  Flags{},
		Metadata:    meta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Transition moves a PENDING record into a terminal status.
func (t *Transaction) Transition(to Status) error {
	if t.Status != StatusPending || !to.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}

	t.Status = to
	t.UpdatedAt = time.Now().UTC()

	return nil
}

// ApplyRisk stores a scoring verdict on the record.
func (t *Transaction) ApplyRisk(score int, flags []Flag) {
	t.FraudScore = min(max(score, 0), MaxFraudScore)
	t.FraudFlags = append(Flags{}, flags...)
}

func (t *Transaction) IsSuspicious() bool {
	return t.FraudScore >= SuspiciousFraudScore || len(t.FraudFlags) > 0
}

// Subject is the account whose activity the record is scored against.
func (t *Transaction) Subject() string {
	if t.FromAccount != "" {
		return t.FromAccount
	}

	return t.ToAccount
}

func (t *Transaction) InvolvesAccount(id string) bool {
	return id != "" && (t.FromAccount == id || t.ToAccount == id)
}

// Counterparty returns the other side of the record as seen from accountID.
func (t *Transaction) Counterparty(accountID string) string {
	switch accountID {
	case t.FromAccount:
		return t.ToAccount
	case t.ToAccount:
		return t.FromAccount
	default:
		return ""
	}
}

func (t *Transaction) SoftDelete(at time.Time) {
	at = at.UTC()
	t.Deleted = true
	t.DeletedAt = &at
	t.UpdatedAt = at
}

func (t *Transaction) Restore() {
	t.Deleted = false
	t.DeletedAt = nil
	t.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.FraudFlags = slices.Clone(t.FraudFlags)
	if t.DeletedAt != nil {
		at := *t.DeletedAt
		c.DeletedAt = &at
	}

	return &c
}
