package rating

import "github.com/shopspring/decimal"

const (
	MinScore = 1
	MaxScore = 5

	// places kept on the stored mean
	places = 6
)

// Fold adds score to a running mean over count ratings and returns the new
// mean, (mean*count + score) / (count + 1).
func Fold(mean float64, count, score int) float64 {
	if count < 0 {
		count = 0
	}
	total := decimal.NewFromFloat(mean).
		Mul(decimal.NewFromInt(int64(count))).
		Add(decimal.NewFromInt(int64(score)))
	next := total.DivRound(decimal.NewFromInt(int64(count+1)), places)

	next = decimal.Max(next, decimal.Zero)
	next = decimal.Min(next, decimal.NewFromInt(MaxScore))
	return next.InexactFloat64()
}
