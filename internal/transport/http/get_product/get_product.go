package getproduct

import (
	"context"
	"net/http"

	"github.com/dunya-jewellery/shop/internal/service/models/product"
	"github.com/dunya-jewellery/shop/internal/transport/http/converters"
	"github.com/dunya-jewellery/shop/internal/transport/http/response"
	"github.com/go-chi/chi/v5"
)

type service interface {
	GetProduct(ctx context.Context, slug string) (product.Product, error)
}

// GetProduct returns a single product by slug.
func GetProduct(w http.ResponseWriter, r *http.Request, service service) {
	p, err := service.GetProduct(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, r, http.StatusOK, converters.ProductToResponse(p))
}
