package cachedrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dunya-jewellery/shop/internal/dal/interfaces/iproductrepo"
	"github.com/dunya-jewellery/shop/internal/service/models/currency"
	"github.com/dunya-jewellery/shop/internal/service/models/product"
)

type cache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GenerateKey(operation, key string) string
}

// productEntry is the cached form of a product; unlike the API form it keeps raw sizes.
type productEntry struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceUZS    int64     `json:"price_uzs"`
	Currency    string    `json:"currency"`
	Sizes       []any     `json:"sizes"`
	InStock     bool      `json:"in_stock"`
	ImageURLs   []string  `json:"image_urls"`
	CreatedAt   time.Time `json:"created_at"`
}

func entryFromModel(p *product.Product) productEntry {
	return productEntry{
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       p.Title,
		Description: p.Description,
		PriceUZS:    p.PriceUZS,
		Currency:    p.Currency.String(),
		Sizes:       p.RawSizes,
		InStock:     p.InStock,
		ImageURLs:   p.ImageURLs,
		CreatedAt:   p.CreatedAt,
	}
}

func (e *productEntry) toModel() product.Product {
	return product.Product{
		ID:          e.ID,
		Slug:        e.Slug,
		Title:       e.Title,
		Description: e.Description,
		PriceUZS:    e.PriceUZS,
		Currency:    currency.Currency(e.Currency),
		RawSizes:    e.Sizes,
		InStock:     e.InStock,
		ImageURLs:   e.ImageURLs,
		CreatedAt:   e.CreatedAt,
	}
}

// CachedProductRepository serves catalog reads from Redis for a short TTL.
// FindInStockBySlug always reaches the underlying repository because order
// validation must see live stock.
type CachedProductRepository struct {
	next  iproductrepo.IProductRepository
	cache cache
	ttl   time.Duration
}

// NewCachedProductRepository wraps next with a read-through cache.
func NewCachedProductRepository(
	next iproductrepo.IProductRepository,
	cache cache,
	ttl time.Duration,
) *CachedProductRepository {
	return &CachedProductRepository{
		next:  next,
		cache: cache,
		ttl:   ttl,
	}
}

func (r *CachedProductRepository) List(
	ctx context.Context,
	filter *product.QueryProductsModel,
) ([]product.Product, error) {
	inStock := "any"
	if filter.InStock != nil {
		inStock = fmt.Sprint(*filter.InStock)
	}
	key := r.cache.GenerateKey("products", fmt.Sprintf("%s:%d:%d", inStock, filter.Limit, filter.Offset))

	var entries []productEntry
	if r.load(ctx, key, &entries) {
		result := make([]product.Product, len(entries))
		for i := range entries {
			result[i] = entries[i].toModel()
		}

		return result, nil
	}

	products, err := r.next.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	entries = make([]productEntry, len(products))
	for i := range products {
		entries[i] = entryFromModel(&products[i])
	}
	r.store(ctx, key, entries)

	return products, nil
}

func (r *CachedProductRepository) GetBySlug(ctx context.Context, slug string) (product.Product, error) {
	key := r.cache.GenerateKey("product", slug)

	var entry productEntry
	if r.load(ctx, key, &entry) {
		return entry.toModel(), nil
	}

	p, err := r.next.GetBySlug(ctx, slug)
	if err != nil {
		return product.Product{}, err
	}
	r.store(ctx, key, entryFromModel(&p))

	return p, nil
}

func (r *CachedProductRepository) FindInStockBySlug(ctx context.Context, slug string) (product.Product, error) {
	return r.next.FindInStockBySlug(ctx, slug)
}

// load reports a cache hit. Cache failures are logged and treated as misses.
func (r *CachedProductRepository) load(ctx context.Context, key string, dst any) bool {
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "Product cache read failed", "key", key, "error", err)

		return false
	}
	if raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		slog.WarnContext(ctx, "Product cache entry is corrupted", "key", key, "error", err)

		return false
	}

	return true
}

func (r *CachedProductRepository) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.WarnContext(ctx, "Failed to encode product cache entry", "key", key, "error", err)

		return
	}
	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		slog.WarnContext(ctx, "Product cache write failed", "key", key, "error", err)
	}
}
