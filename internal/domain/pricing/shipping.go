package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ShippingPolicy decides the shipping fee for a destination zone
type ShippingPolicy interface {
	FeeFor(zone string, subtotal decimal.Decimal) decimal.Decimal
}

// ZoneShippingPolicy charges a flat fee per zone and waives it once the
// subtotal reaches FreeShippingThreshold. A zero threshold never waives.
type ZoneShippingPolicy struct {
	ZoneFees              map[string]decimal.Decimal
	DefaultFee            decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// FeeFor implements ShippingPolicy
func (p ZoneShippingPolicy) FeeFor(zone string, subtotal decimal.Decimal) decimal.Decimal {
	if p.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	if fee, ok := p.ZoneFees[strings.ToLower(zone)]; ok {
		return fee
	}
	return p.DefaultFee
}
