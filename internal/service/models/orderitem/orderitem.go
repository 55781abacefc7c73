package orderitem

import (
	"github.com/dunya-jewellery/shop/internal/service/models/size"
	"github.com/google/uuid"
)

// OrderItem is a line of an order. Product fields are copied at order time
// and never follow later catalog edits.
type OrderItem struct {
	ID                  int64     `json:"id"`
	OrderID             uuid.UUID `json:"order_id"`
	ProductID           int64     `json:"product_id"`
	TitleSnapshot       string    `json:"title"`
	DescriptionSnapshot string    `json:"description"`
	PriceSnapshotUZS    int64     `json:"price_uzs"`
	ImageURLSnapshot    string    `json:"image_url"`
	Quantity            int       `json:"qty"`
	SelectedSize        size.Size `json:"selected_size"`
}

// LineTotal is the unit price snapshot multiplied by the quantity.
func (i *OrderItem) LineTotal() int64 {
	return i.PriceSnapshotUZS * int64(i.Quantity)
}
