// Package prize computes whole-credit payout splits from an event's prize
// pool. Split weights are fractional, so the arithmetic runs on
// shopspring/decimal — never float64 for money — and truncates each share
// down to whole credits, crediting the remainder to first place so the
// shares always sum to the pool.
package prize

import (
	"errors"

	"github.com/shopspring/decimal"
)

// DefaultWeights is the standard podium split: 50/30/20 across the top
// three finishers.
var DefaultWeights = []decimal.Decimal{
	decimal.NewFromFloat(0.5),
	decimal.NewFromFloat(0.3),
	decimal.NewFromFloat(0.2),
}

var (
	ErrNegativePool   = errors.New("prize: pool must be non-negative")
	ErrInvalidWeights = errors.New("prize: weights must be positive and sum to 1")
)

// Split divides poolCredits across up to len(weights) winners. When there
// are fewer winners than weights, the unused weights are renormalized over
// the winners present, so a two-person event still pays out the full pool.
// Returns one whole-credit share per winner, ordered by rank.
func Split(poolCredits int64, winners int, weights []decimal.Decimal) ([]int64, error) {
	if poolCredits < 0 {
		return nil, ErrNegativePool
	}
	if err := validateWeights(weights); err != nil {
		return nil, err
	}
	if winners <= 0 || poolCredits == 0 {
		return nil, nil
	}
	if winners < len(weights) {
		weights = renormalize(weights[:winners])
	}

	pool := decimal.NewFromInt(poolCredits)
	shares := make([]int64, len(weights))
	var paid int64
	for i, w := range weights {
		share := pool.Mul(w).Floor().IntPart()
		shares[i] = share
		paid += share
	}
	// Truncation remainder goes to first place.
	shares[0] += poolCredits - paid
	return shares, nil
}

func validateWeights(weights []decimal.Decimal) error {
	if len(weights) == 0 {
		return ErrInvalidWeights
	}
	sum := decimal.Zero
	for _, w := range weights {
		if w.LessThanOrEqual(decimal.Zero) {
			return ErrInvalidWeights
		}
		sum = sum.Add(w)
	}
	if !sum.Equal(decimal.NewFromInt(1)) {
		return ErrInvalidWeights
	}
	return nil
}

func renormalize(weights []decimal.Decimal) []decimal.Decimal {
	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}
	out := make([]decimal.Decimal, len(weights))
	for i, w := range weights {
		out[i] = w.Div(sum)
	}
	return out
}
