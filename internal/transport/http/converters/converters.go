package converters

import (
	"time"

	"github.com/dunya-jewellery/shop/internal/service/models/order"
	"github.com/dunya-jewellery/shop/internal/service/models/product"
	"github.com/dunya-jewellery/shop/internal/service/models/size"
	"github.com/google/uuid"
)

// ProductResponse is the public product representation.
type ProductResponse struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	PriceUZS    int64       `json:"price_uzs"`
	Currency    string      `json:"currency"`
	Sizes       []size.Size `json:"sizes"`
	InStock     bool        `json:"in_stock"`
	ImageURLs   []string    `json:"image_urls"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ProductToResponse renders sizes in their canonical one-decimal form.
func ProductToResponse(p product.Product) ProductResponse {
	sizes := p.Sizes()
	if sizes == nil {
		sizes = []size.Size{}
	}
	images := p.ImageURLs
	if images == nil {
		images = []string{}
	}

	return ProductResponse{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		PriceUZS:    p.PriceUZS,
		Currency:    p.Currency.String(),
		Sizes:       sizes,
		InStock:     p.InStock,
		ImageURLs:   images,
		CreatedAt:   p.CreatedAt,
	}
}

// ProductsToResponse converts a product list.
func ProductsToResponse(products []product.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = ProductToResponse(products[i])
	}

	return out
}

// OrderResponse is the only order representation exposed by the API.
type OrderResponse struct {
	ID       uuid.UUID    `json:"id"`
	Status   order.Status `json:"status"`
	Subtotal int64        `json:"subtotal"`
}

func OrderToResponse(o order.Order) OrderResponse {
	return OrderResponse{
		ID:       o.ID,
		Status:   o.Status,
		Subtotal: o.SubtotalUZS,
	}
}
