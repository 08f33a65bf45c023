package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// PromotionEvaluator computes the discount for a cart. Results are clamped
// by the calculator, so evaluators need not guard against oversized values.
type PromotionEvaluator interface {
	Evaluate(ctx context.Context, lines []Line, subtotal decimal.Decimal) (decimal.Decimal, error)
}

// NoPromotion never discounts
type NoPromotion struct{}

// Evaluate implements PromotionEvaluator
func (NoPromotion) Evaluate(context.Context, []Line, decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// PercentagePromotion takes Percent off the subtotal once it reaches MinSubtotal
type PercentagePromotion struct {
	Percent     decimal.Decimal
	MinSubtotal decimal.Decimal
}

// Evaluate implements PromotionEvaluator
func (p PercentagePromotion) Evaluate(_ context.Context, _ []Line, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if subtotal.LessThan(p.MinSubtotal) || !p.Percent.IsPositive() {
		return decimal.Zero, nil
	}
	return subtotal.Mul(p.Percent).Div(decimal.NewFromInt(100)), nil
}

// FixedAmountPromotion takes a fixed Amount off once the subtotal reaches MinSubtotal
type FixedAmountPromotion struct {
	Amount      decimal.Decimal
	MinSubtotal decimal.Decimal
}

// Evaluate implements PromotionEvaluator
func (p FixedAmountPromotion) Evaluate(_ context.Context, _ []Line, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if subtotal.LessThan(p.MinSubtotal) {
		return decimal.Zero, nil
	}
	return p.Amount, nil
}

// ChainPromotion sums the discounts of its evaluators
type ChainPromotion []PromotionEvaluator

// Evaluate implements PromotionEvaluator
func (c ChainPromotion) Evaluate(ctx context.Context, lines []Line, subtotal decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range c {
		d, err := e.Evaluate(ctx, lines, subtotal)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(d)
	}
	return total, nil
}
