package postgresrepo

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dunya-jewellery/shop/internal/service/errs"
	"github.com/dunya-jewellery/shop/internal/service/models/currency"
	"github.com/dunya-jewellery/shop/internal/service/models/product"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// rawSizes holds the jsonb size list as stored.
type rawSizes []any

func (s *rawSizes) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*s = nil

		return nil
	default:
		return fmt.Errorf("unsupported sizes type %T", src)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out []any
	if err := dec.Decode(&out); err != nil {
		return fmt.Errorf("failed to decode sizes: %w", err)
	}
	*s = out

	return nil
}

// ProductDal represents product data access layer model.
type ProductDal struct {
	Id          int64          `db:"id"`
	Slug        string         `db:"slug"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	PriceUZS    int64          `db:"price_uzs"`
	Currency    string         `db:"currency"`
	Sizes       rawSizes       `db:"sizes"`
	InStock     bool           `db:"in_stock"`
	ImageURLs   pq.StringArray `db:"image_urls"`
	CreatedAt   time.Time      `db:"created_at"`
}

// ToModel converts ProductDal to service layer Product model.
func (p *ProductDal) ToModel() (product.Product, error) {
	cur, err := currency.ParseCurrency(p.Currency)
	if err != nil {
		return product.Product{}, fmt.Errorf("product %q: %w", p.Slug, err)
	}

	return product.Product{
		ID:          p.Id,
		Slug:        p.Slug,
		Title:       p.Title,
		Description: p.Description,
		PriceUZS:    p.PriceUZS,
		Currency:    cur,
		RawSizes:    []any(p.Sizes),
		InStock:     p.InStock,
		ImageURLs:   []string(p.ImageURLs),
		CreatedAt:   p.CreatedAt,
	}, nil
}

var productColumns = []string{
	"id",
	"slug",
	"title",
	"description",
	"price_uzs",
	"currency",
	"sizes",
	"in_stock",
	"image_urls",
	"created_at",
}

// PostgresProductRepository reads the product catalog.
type PostgresProductRepository struct {
	db sqlx.QueryerContext
	sb sq.StatementBuilderType
}

// NewPostgresProductRepository creates a new Postgres product repository.
func NewPostgresProductRepository(db sqlx.QueryerContext) *PostgresProductRepository {
	return &PostgresProductRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// List returns products, newest first.
func (r *PostgresProductRepository) List(
	ctx context.Context,
	filter *product.QueryProductsModel,
) ([]product.Product, error) {
	query := r.sb.
		Select(productColumns...).
		From("products").
		OrderBy("created_at DESC", "id DESC")

	if filter.InStock != nil {
		query = query.Where(sq.Eq{"in_stock": *filter.InStock})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var dals []ProductDal
	if err := sqlx.SelectContext(ctx, r.db, &dals, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	result := make([]product.Product, 0, len(dals))
	for i := range dals {
		p, err := dals[i].ToModel()
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}

	return result, nil
}

// GetBySlug returns a product regardless of stock.
func (r *PostgresProductRepository) GetBySlug(ctx context.Context, slug string) (product.Product, error) {
	return r.getOne(ctx, sq.Eq{"slug": slug})
}

// FindInStockBySlug returns errs.ErrNotFound when the product is unknown or out of stock.
func (r *PostgresProductRepository) FindInStockBySlug(ctx context.Context, slug string) (product.Product, error) {
	return r.getOne(ctx, sq.Eq{"slug": slug, "in_stock": true})
}

func (r *PostgresProductRepository) getOne(ctx context.Context, where sq.Eq) (product.Product, error) {
	sqlStr, args, err := r.sb.
		Select(productColumns...).
		From("products").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to build query: %w", err)
	}

	var dal ProductDal
	err = sqlx.GetContext(ctx, r.db, &dal, sqlStr, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return product.Product{}, errs.ErrNotFound
	}
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to query product: %w", err)
	}

	return dal.ToModel()
}
