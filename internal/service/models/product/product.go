package product

import (
	"time"

	"github.com/dunya-jewellery/shop/internal/service/models/currency"
	"github.com/dunya-jewellery/shop/internal/service/models/size"
)

// Product is a catalog entry. The catalog is maintained outside this service.
type Product struct {
	ID          int64             `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	PriceUZS    int64             `json:"price_uzs"`
	Currency    currency.Currency `json:"currency"`
	// RawSizes keeps the list exactly as stored; entries may be ints, floats or strings.
	RawSizes  []any     `json:"-"`
	InStock   bool      `json:"in_stock"`
	ImageURLs []string  `json:"image_urls"`
	CreatedAt time.Time `json:"created_at"`
}

// Sizes returns the catalog sizes in their canonical form.
func (p *Product) Sizes() []size.Size {
	return size.Normalize(p.RawSizes)
}

// FirstImage returns the primary image URL and whether the product has one.
func (p *Product) FirstImage() (string, bool) {
	if len(p.ImageURLs) == 0 || p.ImageURLs[0] == "" {
		return "", false
	}

	return p.ImageURLs[0], true
}
