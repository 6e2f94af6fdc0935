package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
)

type Flag string

const (
	FlagHighFrequency     Flag = "HIGH_FREQUENCY"
	FlagLargeAmount       Flag = "LARGE_AMOUNT"
	FlagSuspiciousPattern Flag = "SUSPICIOUS_PATTERN"
	FlagUnusualTime       Flag = "UNUSUAL_TIME"
	FlagMultipleAccounts  Flag = "MULTIPLE_ACCOUNTS"
)

// Flags is the fraud flag set of a record, stored as a JSON array.
type Flags []Flag

func (f Flags) Has(flag Flag) bool {
	return slices.Contains(f, flag)
}

func (f Flags) Value() (driver.Value, error) {
	if f == nil {
		f = Flags{}
	}

	b, err := json.Marshal([]Flag(f))
	if err != nil {
		return nil, fmt.Errorf("marshal flags: %w", err)
	}

	return b, nil
}

func (f *Flags) Scan(src any) error {
	return scanJSON(src, f)
}

// Metadata carries request context that the ledger stores but never interprets.
type Metadata struct {
	IPAddress  string `json:"ipAddress,omitempty"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
	Location   string `json:"location,omitempty"`
}

func (m Metadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	return b, nil
}

func (m *Metadata) Scan(src any) error {
	return scanJSON(src, m)
}

func scanJSON(src, dst any) error {
	var b []byte

	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("scan json: unsupported source %T", src)
	}

	if len(b) == 0 {
		return nil
	}

	err := json.Unmarshal(b, dst)
	if err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}

	return nil
}
