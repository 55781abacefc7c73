package iproductrepo

import (
	"context"

	"github.com/dunya-jewellery/shop/internal/service/models/product"
)

// IProductRepository is an interface for the read-only product catalog.
type IProductRepository interface {
	List(ctx context.Context, filter *product.QueryProductsModel) ([]product.Product, error)
	GetBySlug(ctx context.Context, slug string) (product.Product, error)
	// FindInStockBySlug returns errs.ErrNotFound for unknown or out of stock products.
	FindInStockBySlug(ctx context.Context, slug string) (product.Product, error)
}
