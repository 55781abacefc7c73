package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dunya-jewellery/shop/internal/service/errs"
	"github.com/dunya-jewellery/shop/internal/service/models/order"
	"github.com/dunya-jewellery/shop/internal/service/models/orderitem"
)

const itemsField = "items"

// validateLines checks every cart line against the in-stock catalog in cart
// order and stops at the first failing line. It returns the item snapshots.
func (s *OrderService) validateLines(ctx context.Context, lines []order.Line) ([]orderitem.OrderItem, error) {
	if len(lines) == 0 {
		return nil, errs.NewValidationError(itemsField, "At least one item is required.")
	}

	items := make([]orderitem.OrderItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, errs.NewValidationError(itemsField, "Quantity must be a positive integer.")
		}

		p, err := s.products.FindInStockBySlug(ctx, line.ProductSlug)
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.NewValidationError(itemsField,
				fmt.Sprintf("Product '%s' not found or out of stock.", line.ProductSlug))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up product %q: %w", line.ProductSlug, err)
		}

		if !slices.Contains(p.Sizes(), line.SelectedSize) {
			return nil, errs.NewValidationError(itemsField,
				fmt.Sprintf("Selected size %s is not available.", line.SelectedSize))
		}

		image, ok := p.FirstImage()
		if !ok {
			return nil, errs.NewValidationError(itemsField, "Product image is required.")
		}

		items = append(items, orderitem.OrderItem{
			ProductID:           p.ID,
			TitleSnapshot:       p.Title,
			DescriptionSnapshot: p.Description,
			PriceSnapshotUZS:    p.PriceUZS,
			ImageURLSnapshot:    image,
			Quantity:            line.Quantity,
			SelectedSize:        line.SelectedSize,
		})
	}

	return items, nil
}
