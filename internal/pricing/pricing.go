// Package pricing computes order totals. Every amount is derived on the
// server from validated line items; nothing here trusts client input.
package pricing

import (
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/shopspring/decimal"
)

var (
	// VATRate is the flat Finnish food VAT applied to the subtotal.
	VATRate = decimal.RequireFromString("0.14")

	// DeliveryFee is charged on DELIVERY orders only.
	DeliveryFee = decimal.RequireFromString("5.00")
)

// Line is one priced order line: the product base price plus every applied
// customization modifier, times quantity.
type Line struct {
	BasePrice decimal.Decimal
	Modifiers []decimal.Decimal
	Quantity  int32
}

// UnitPrice is the base price plus all modifiers.
func (l Line) UnitPrice() decimal.Decimal {
	unit := l.BasePrice
	for _, m := range l.Modifiers {
		unit = unit.Add(m)
	}
	return unit
}

// Total is UnitPrice × Quantity, unrounded.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice().Mul(decimal.NewFromInt32(l.Quantity))
}

// Totals holds the four monetary figures stored on an order.
type Totals struct {
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// DeliveryFeeFor returns the fee for a delivery type.
func DeliveryFeeFor(deliveryType string) decimal.Decimal {
	if deliveryType == enum.DeliveryTypeDelivery {
		return DeliveryFee
	}
	return decimal.Zero
}

// ComputeTotals rounds subtotal, tax and fee to cents independently, then sums
// them and rounds the total.
func ComputeTotals(lines []Line, deliveryFee decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(VATRate).Round(2)
	fee := deliveryFee.Round(2)

	return Totals{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: fee,
		Total:       subtotal.Add(tax).Add(fee).Round(2),
	}
}
