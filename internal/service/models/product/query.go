package product

// QueryProductsModel represents filter parameters for listing products.
type QueryProductsModel struct {
	InStock *bool `json:"inStock,omitempty"`
	Limit   int   `json:"limit,omitempty"`
	Offset  int   `json:"offset,omitempty"`
}
