package orders

import (
	"storefront/models"

	"github.com/shopspring/decimal"
)

var (
	ShippingFee = decimal.NewFromInt(50)
	TaxRate     = decimal.RequireFromString("0.18")
)

// Totals is the price breakdown stored on an order.
type Totals struct {
	Items    float64
	Shipping float64
	Tax      float64
	Total    float64
}

// ComputeTotals prices a set of order lines: flat shipping plus tax rounded
// to the nearest whole unit.
func ComputeTotals(items []models.OrderItem) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(TaxRate).Round(0)
	total := subtotal.Add(ShippingFee).Add(tax)

	return Totals{
		Items:    subtotal.InexactFloat64(),
		Shipping: ShippingFee.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}
}

// itemsFromCart freezes cart lines into order lines.
func itemsFromCart(c *models.Cart) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Size:      it.Size,
		})
	}
	return items
}
