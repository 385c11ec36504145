package service

import (
	"fmt"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/enum"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Pricing holds the money rules applied to every order.
type Pricing struct {
	DeliveryFee           decimal.Decimal
	FreeDeliveryThreshold decimal.Decimal
	Tolerance             decimal.Decimal
}

// DefaultPricing is a ₹40 delivery fee waived from ₹300, with a one paisa
// tolerance on client totals.
func DefaultPricing() Pricing {
	return Pricing{
		DeliveryFee:           decimal.NewFromInt(40),
		FreeDeliveryThreshold: decimal.NewFromInt(300),
		Tolerance:             decimal.RequireFromString("0.01"),
	}
}

// NewPricing parses the configured decimal strings.
func NewPricing(deliveryFee, threshold, tolerance string) (Pricing, error) {
	fee, err := decimal.NewFromString(deliveryFee)
	if err != nil {
		return Pricing{}, fmt.Errorf("delivery fee: %w", err)
	}
	th, err := decimal.NewFromString(threshold)
	if err != nil {
		return Pricing{}, fmt.Errorf("free delivery threshold: %w", err)
	}
	tol, err := decimal.NewFromString(tolerance)
	if err != nil {
		return Pricing{}, fmt.Errorf("total tolerance: %w", err)
	}
	return Pricing{DeliveryFee: fee, FreeDeliveryThreshold: th, Tolerance: tol}, nil
}

// Quote is the server-side breakdown of an order's price.
type Quote struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

// Discount is an optional order-level discount. A zero value means none.
type Discount struct {
	Type  string
	Value decimal.Decimal
}

// Quote prices an order. delivery is true when the order has a delivery
// address; pickup orders never pay the fee.
func (p Pricing) Quote(subtotal decimal.Decimal, delivery bool, discount Discount) Quote {
	fee := decimal.Zero
	if delivery && subtotal.LessThan(p.FreeDeliveryThreshold) {
		fee = p.DeliveryFee
	}

	discountAmount := decimal.Zero
	switch discount.Type {
	case enum.DiscountTypePercentage:
		discountAmount = subtotal.Mul(discount.Value).Div(hundred)
	case enum.DiscountTypeFixed:
		discountAmount = discount.Value
	}
	discountAmount = discountAmount.Round(2)

	// The stored discount is what was applied, so total = subtotal + fee - discount holds.
	gross := subtotal.Add(fee)
	if discountAmount.GreaterThan(gross) {
		discountAmount = gross
	}
	total := gross.Sub(discountAmount)

	return Quote{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Discount:    discountAmount,
		Total:       total,
	}
}

// Matches reports whether a client-submitted total is within tolerance of
// the server figure.
func (p Pricing) Matches(server, client decimal.Decimal) bool {
	return server.Sub(client).Abs().LessThanOrEqual(p.Tolerance)
}
