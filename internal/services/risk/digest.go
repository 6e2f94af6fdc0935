package risk

import (
	"time"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/shopspring/decimal"
)

// Digest aggregates flagged records over a period.
type Digest struct {
	From         time.Time                  `json:"from"`
	Until        time.Time                  `json:"until"`
	TotalFlagged int                        `json:"totalFlagged"`
	TotalAmount  map[string]decimal.Decimal `json:"totalAmount"`
	ByFlagType   map[models.Flag]int        `json:"byFlagType"`
	Transactions []*models.Transaction      `json:"transactions"`
	HighestScore int                        `json:"highestScore"`
	AverageScore float64                    `json:"averageScore"`
}

// BuildDigest aggregates flagged. Amounts are summed per currency since
// records in different currencies cannot be added together.
func BuildDigest(flagged []*models.Transaction, from, until time.Time) *Digest {
	d := &Digest{
		From:         from,
		Until:        until,
		TotalAmount:  make(map[string]decimal.Decimal),
		ByFlagType:   make(map[models.Flag]int),
		Transactions: make([]*models.Transaction, 0, len(flagged)),
	}

	var scoreSum int

	for _, t := range flagged {
		if t == nil {
			continue
		}

		d.TotalFlagged++
		d.Transactions = append(d.Transactions, t)
		d.TotalAmount[t.Currency] = d.TotalAmount[t.Currency].Add(t.Amount)

		for _, f := range t.FraudFlags {
			d.ByFlagType[f]++
		}

		scoreSum += t.FraudScore
		d.HighestScore = max(d.HighestScore, t.FraudScore)
	}

	if d.TotalFlagged > 0 {
		d.AverageScore = float64(scoreSum) / float64(d.TotalFlagged)
	}

	return d
}
