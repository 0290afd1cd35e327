package cart

import (
	"fmt"

	"storefront/models"
	"storefront/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// checkStock validates that qty units of size can be held in a cart.
func checkStock(product *models.Product, size string, qty int) error {
	if qty < 1 {
		return utils.BadRequest("Quantity must be at least 1")
	}
	if product.HasSizes() && size == "" {
		return utils.BadRequest("Size is required for this product")
	}
	available, ok := product.Available(size)
	if !ok {
		return utils.BadRequest(fmt.Sprintf("Size %s is not available", size))
	}
	if qty > available {
		return utils.BadRequest(fmt.Sprintf("Insufficient stock. Only %d available", available))
	}
	return nil
}

// addLine merges qty of product into c. A line for the same product and size
// grows by qty, keeping its original price; otherwise a new line captures the
// current effective price. c is left untouched on error.
func addLine(c *models.Cart, product *models.Product, qty int, size string) error {
	if !product.HasSizes() {
		size = ""
	}
	if qty < 1 {
		return utils.BadRequest("Quantity must be at least 1")
	}

	idx := c.FindProductLine(product.ID, size)
	merged := qty
	if idx >= 0 {
		merged += c.Items[idx].Quantity
	}
	if err := checkStock(product, size, merged); err != nil {
		return err
	}

	if idx >= 0 {
		c.Items[idx].Quantity = merged
		return nil
	}

	image := ""
	if len(product.Images) > 0 {
		image = product.Images[0]
	}
	c.Items = append(c.Items, models.CartItem{
		ID:        primitive.NewObjectID(),
		ProductID: product.ID,
		Name:      product.Name,
		Image:     image,
		Quantity:  qty,
		Price:     product.EffectivePrice(),
		Size:      size,
	})
	return nil
}

// setQuantity replaces the quantity of line idx.
func setQuantity(c *models.Cart, idx int, product *models.Product, qty int) error {
	if err := checkStock(product, c.Items[idx].Size, qty); err != nil {
		return err
	}
	c.Items[idx].Quantity = qty
	return nil
}

func removeLine(c *models.Cart, id primitive.ObjectID) bool {
	idx := c.FindLine(id)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return true
}
