package listproducts

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dunya-jewellery/shop/internal/service/models/product"
	"github.com/dunya-jewellery/shop/internal/transport/http/converters"
	"github.com/dunya-jewellery/shop/internal/transport/http/response"
	"github.com/gorilla/schema"
)

type service interface {
	ListProducts(ctx context.Context, filter product.QueryProductsModel) ([]product.Product, error)
}

type queryProductsRequest struct {
	InStock *bool `schema:"in_stock"`
	Limit   int   `schema:"limit"`
	Offset  int   `schema:"offset"`
}

func (q *queryProductsRequest) ToModel() product.QueryProductsModel {
	return product.QueryProductsModel{
		InStock: q.InStock,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
}

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)

	return d
}

// ListProducts returns the catalog, newest first.
func ListProducts(w http.ResponseWriter, r *http.Request, service service) {
	query := &queryProductsRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		slog.WarnContext(r.Context(), "Error decoding product list query", "error", err)
		response.JSON(w, r, http.StatusBadRequest, response.Detail{Detail: "Invalid query parameters."})

		return
	}

	products, err := service.ListProducts(r.Context(), query.ToModel())
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, r, http.StatusOK, converters.ProductsToResponse(products))
}
