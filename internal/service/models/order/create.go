package order

import "github.com/dunya-jewellery/shop/internal/service/models/size"

// Line is one requested cart position before it is checked against the catalog.
type Line struct {
	ProductSlug  string
	Quantity     int
	SelectedSize size.Size
}

// CreateOrderModel is a structurally valid checkout request.
type CreateOrderModel struct {
	Customer       Customer
	Meta           Meta
	Lines          []Line
	IdempotencyKey string
}
