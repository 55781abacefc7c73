package catalogsvc

import (
	"context"

	"github.com/dunya-jewellery/shop/internal/dal/interfaces/iproductrepo"
	"github.com/dunya-jewellery/shop/internal/service/models/product"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// CatalogService serves read-only product queries.
type CatalogService struct {
	products iproductrepo.IProductRepository
}

// option is a function that configures the CatalogService.
type option func(*CatalogService)

// MustNewCatalogService creates a new CatalogService.
func MustNewCatalogService(opts ...option) *CatalogService {
	s := &CatalogService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.products == nil {
		panic("catalogsvc: product repository is required")
	}

	return s
}

// WithProductRepository sets the product repository for the CatalogService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProductRepository(repo iproductrepo.IProductRepository) option {
	return func(s *CatalogService) {
		s.products = repo
	}
}

// ListProducts returns products, newest first.
func (s *CatalogService) ListProducts(
	ctx context.Context,
	filter product.QueryProductsModel,
) ([]product.Product, error) {
	ctx, span := otel.Tracer("catalogsvc").Start(ctx, "CatalogService.ListProducts")
	defer span.End()

	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	span.SetAttributes(attribute.Int("limit", filter.Limit), attribute.Int("offset", filter.Offset))

	products, err := s.products.List(ctx, &filter)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []product.Product{}
	}

	return products, nil
}

// GetProduct returns the product with the given slug or errs.ErrNotFound.
func (s *CatalogService) GetProduct(ctx context.Context, slug string) (product.Product, error) {
	ctx, span := otel.Tracer("catalogsvc").Start(ctx, "CatalogService.GetProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.slug", slug))

	return s.products.GetBySlug(ctx, slug)
}
