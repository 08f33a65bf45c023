// Package pricing derives order totals from priced cart lines.
package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

// MinorUnitPlaces is the number of decimal places of the currency's minor unit
const MinorUnitPlaces int32 = 2

// Line is one priced cart line. UnitPrice is the catalog price captured
// when the order is placed.
type Line struct {
	VariantID  uuid.UUID
	MerchantID uuid.UUID
	UnitPrice  decimal.Decimal
	Quantity   int
}

// Total returns unit price times quantity
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Destination is the shipping target used for fee lookup
type Destination struct {
	Zone    string
	Country string
}

// Breakdown holds the monetary figures of an order.
// Total == Subtotal + ShippingFee - DiscountAmount always holds.
type Breakdown struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Calculator prices carts
type Calculator struct {
	shipping   ShippingPolicy
	promotions PromotionEvaluator
}

// NewCalculator creates a calculator. A nil evaluator means no promotions.
func NewCalculator(shipping ShippingPolicy, promotions PromotionEvaluator) *Calculator {
	if promotions == nil {
		promotions = NoPromotion{}
	}
	return &Calculator{
		shipping:   shipping,
		promotions: promotions,
	}
}

// Price computes the full breakdown for an order.
//
// The shipping fee is brought to whole minor units first. After that only the
// total is rounded (half-up); the discount is restated as subtotal + shipping -
// total so the stored figures always add up.
func (c *Calculator) Price(ctx context.Context, lines []Line, dest Destination) (Breakdown, error) {
	if len(lines) == 0 {
		return Breakdown{}, shared.NewDomainError(shared.CodeInvalidCart, "Cannot price an empty cart")
	}

	subtotal, err := subtotalOf(lines)
	if err != nil {
		return Breakdown{}, err
	}

	fee := c.shipping.FeeFor(dest.Zone, subtotal).Round(MinorUnitPlaces)
	gross := subtotal.Add(fee)

	discount, err := c.promotions.Evaluate(ctx, lines, subtotal)
	if err != nil {
		return Breakdown{}, fmt.Errorf("evaluate promotions: %w", err)
	}
	discount = clamp(discount, decimal.Zero, gross)

	total := gross.Sub(discount).Round(MinorUnitPlaces)

	return Breakdown{
		Subtotal:       subtotal,
		ShippingFee:    fee,
		DiscountAmount: gross.Sub(total),
		Total:          total,
	}, nil
}

// PriceGroup prices a merchant partition. Partitions carry their own
// subtotal only; shipping and discounts belong to the parent order.
func (c *Calculator) PriceGroup(lines []Line) (Breakdown, error) {
	subtotal, err := subtotalOf(lines)
	if err != nil {
		return Breakdown{}, err
	}
	return Breakdown{
		Subtotal:       subtotal,
		ShippingFee:    decimal.Zero,
		DiscountAmount: decimal.Zero,
		Total:          subtotal,
	}, nil
}

func subtotalOf(lines []Line) (decimal.Decimal, error) {
	subtotal := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			return decimal.Zero, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Quantity for variant %s must be positive", l.VariantID))
		}
		if l.UnitPrice.IsNegative() || !l.UnitPrice.Equal(l.UnitPrice.Round(MinorUnitPlaces)) {
			return decimal.Zero, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Unit price %s for variant %s is not a valid amount", l.UnitPrice, l.VariantID))
		}
		subtotal = subtotal.Add(l.Total())
	}
	return subtotal, nil
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
