package orders

import (
	"github.com/shopspring/decimal"

	"github.com/tapline/tapline-backend/pkg/db/models"
)

// recomputeTotals derives the money totals from the full item set. Client
// supplied totals are never trusted; this runs inside every mutation that
// touches items. Voided items contribute nothing.
func recomputeTotals(order *models.Order, taxRate decimal.Decimal) {
	subtotal := decimal.Zero
	for _, item := range order.Items {
		if item.Voided || item.IsReference {
			continue
		}
		subtotal = subtotal.Add(item.LineTotal())
	}
	order.Subtotal = subtotal
	order.TaxTotal = subtotal.Mul(taxRate).Round(2)
	order.Total = order.Subtotal.Add(order.TaxTotal).Add(order.TipTotal)
}

// activeItemCount counts non-voided lines.
func activeItemCount(items []models.OrderItem) int {
	count := 0
	for _, item := range items {
		if item.Voided {
			continue
		}
		count++
	}
	return count
}
