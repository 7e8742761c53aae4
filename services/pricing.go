package services

import (
	"go-storefront/models"

	"github.com/shopspring/decimal"
)

var (
	taxRate           = decimal.RequireFromString("0.08")
	freeShippingFrom  = decimal.NewFromInt(50)
	flatShippingPrice = decimal.RequireFromString("9.99")
)

// Totals are the amounts of an order, rounded to cents.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// Price computes totals: 8% tax on the subtotal, free shipping from a 50.00 subtotal, else a
// flat 9.99, and total = subtotal + shipping + tax - discount. The discount is clamped to
// [0, subtotal].
func Price(items []models.CartItem, discount float64) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	subtotal = subtotal.Round(2)

	shipping := flatShippingPrice
	if subtotal.GreaterThanOrEqual(freeShippingFrom) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(taxRate).Round(2)
	disc := decimal.Min(decimal.Max(decimal.NewFromFloat(discount).Round(2), decimal.Zero), subtotal)
	total := subtotal.Add(shipping).Add(tax).Sub(disc).Round(2)

	return Totals{
		Subtotal: subtotal.InexactFloat64(),
		Shipping: shipping.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Discount: disc.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}
}
