package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewTransaction_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		kind      Kind
		amount    string
		from      string
		to        string
		wantField string // empty -> expect success
	}{
		{name: "deposit_ok", kind: KindDeposit, amount: "50.00", to: "acc-x"},
		{name: "withdrawal_ok", kind: KindWithdrawal, amount: "0.01", from: "acc-x"},
		{name: "transfer_ok", kind: KindTransfer, amount: "100", from: "acc-x", to: "acc-y"},
		{name: "bonus_ok", kind: KindBonus, amount: "5", to: "acc-x"},
		{name: "zero_amount", kind: KindDeposit, amount: "0", to: "acc-x", wantField: "amount"},
		{name: "negative_amount", kind: KindDeposit, amount: "-1", to: "acc-x", wantField: "amount"},
		{name: "three_decimals", kind: KindDeposit, amount: "1.005", to: "acc-x", wantField: "amount"},
		{name: "deposit_without_destination", kind: KindDeposit, amount: "1", wantField: "toAccount"},
		{name: "withdrawal_without_source", kind: KindWithdrawal, amount: "1", to: "acc-x", wantField: "fromAccount"},
		{name: "transfer_without_destination", kind: KindTransfer, amount: "1", from: "acc-x", wantField: "toAccount"},
		{name: "transfer_without_source", kind: KindTransfer, amount: "1", to: "acc-y", wantField: "fromAccount"},
		{name: "transfer_to_self", kind: KindTransfer, amount: "1", from: "acc-x", to: "acc-x", wantField: "toAccount"},
		{name: "unknown_kind", kind: Kind("REFUND"), amount: "1", to: "acc-x", wantField: "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			txn, err := NewTransaction(tt.kind, decimal.RequireFromString(tt.amount), "usd", tt.from, tt.to, Metadata{})

			if tt.wantField != "" {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("want ErrValidation, got %v", err)
				}

				var verr *ValidationError
				if !errors.As(err, &verr) || verr.Field != tt.wantField {
					t.Fatalf("want field %q, got %v", tt.wantField, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if txn.Status != StatusPending {
				t.Fatalf("status: want PENDING, got %s", txn.Status)
			}
			if txn.Currency != "USD" {
				t.Fatalf("currency: want USD, got %s", txn.Currency)
			}
			if txn.ID == "" {
				t.Fatal("expected generated id")
			}
		})
	}
}

func TestTransaction_TransitionIsMonotonic(t *testing.T) {
	t.Parallel()

	for _, terminal := range []Status{StatusCompleted, StatusFailed, StatusFlagged} {
		txn, err := NewTransaction(KindDeposit, decimal.NewFromInt(1), "", "", "acc", Metadata{})
		if err != nil {
			t.Fatalf("new transaction: %v", err)
		}

		err = txn.Transition(StatusPending)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("PENDING -> PENDING: want ErrInvalidTransition, got %v", err)
		}

		err = txn.Transition(terminal)
		if err != nil {
			t.Fatalf("PENDING -> %s: %v", terminal, err)
		}

		for _, next := range []Status{StatusPending, StatusCompleted, StatusFailed, StatusFlagged} {
			err = txn.Transition(next)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s -> %s: want ErrInvalidTransition, got %v", terminal, next, err)
			}
		}
	}
}

func TestTransaction_ApplyRiskClampsScore(t *testing.T) {
	t.Parallel()

	txn := &Transaction{}

	txn.ApplyRisk(135, nil)
	if txn.FraudScore != 100 {
		t.Fatalf("want 100, got %d", txn.FraudScore)
	}
	if !txn.IsSuspicious() {
		t.Fatal("score 100 must be suspicious")
	}

	txn.ApplyRisk(-5, nil)
	if txn.FraudScore != 0 || txn.IsSuspicious() {
		t.Fatalf("want clean record, got score=%d flags=%v", txn.FraudScore, txn.FraudFlags)
	}

	txn.ApplyRisk(20, []Flag{FlagUnusualTime})
	if !txn.IsSuspicious() {
		t.Fatal("any flag must make the record suspicious")
	}
}

func TestTransaction_SoftDeleteRestoreAndClone(t *testing.T) {
	t.Parallel()

	txn, err := NewTransaction(KindTransfer, decimal.NewFromInt(3), "EUR", "a", "b", Metadata{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("new transaction: %v", err)
	}
	txn.ApplyRisk(40, []Flag{FlagLargeAmount})

	clone := txn.Clone()
	txn.SoftDelete(time.Now())

	if clone.Deleted || clone.DeletedAt != nil {
		t.Fatal("clone must not observe soft delete")
	}
	if !txn.Deleted || txn.DeletedAt == nil {
		t.Fatal("soft delete not applied")
	}

	clone.FraudFlags[0] = FlagUnusualTime
	if txn.FraudFlags[0] != FlagLargeAmount {
		t.Fatal("clone shares flag storage")
	}

	txn.Restore()
	if txn.Deleted || txn.DeletedAt != nil {
		t.Fatal("restore not applied")
	}

	if txn.Counterparty("a") != "b" || txn.Counterparty("b") != "a" || txn.Counterparty("c") != "" {
		t.Fatal("counterparty mismatch")
	}
}

func TestFlags_ValueScan(t *testing.T) {
	t.Parallel()

	in := Flags{FlagHighFrequency, FlagLargeAmount}

	v, err := in.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var out Flags
	err = out.Scan(v)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(out) != 2 || !out.Has(FlagLargeAmount) {
		t.Fatalf("round trip mismatch: %v", out)
	}

	var nilFlags Flags
	v, err = nilFlags.Value()
	if err != nil || string(v.([]byte)) != "[]" {
		t.Fatalf("nil flags must encode as empty array, got %s (%v)", v, err)
	}

	err = out.Scan(42)
	if err == nil {
		t.Fatal("expected error for unsupported source")
	}
}

func TestPage(t *testing.T) {
	t.Parallel()

	opts, err := Page(0, 0)
	if err != nil || opts.Limit != DefaultPageLimit {
		t.Fatalf("default limit: %+v %v", opts, err)
	}

	opts, err = Page(1000, 5)
	if err != nil || opts.Limit != MaxPageLimit || opts.Offset != 5 {
		t.Fatalf("capped limit: %+v %v", opts, err)
	}

	_, err = Page(10, -1)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("negative offset: want ErrValidation, got %v", err)
	}
}
