package httptransport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dunya-jewellery/shop/internal/service/errs"
	"github.com/dunya-jewellery/shop/internal/service/models/order"
	"github.com/dunya-jewellery/shop/internal/service/models/product"
	"github.com/dunya-jewellery/shop/pkg/http/middleware/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	created order.CreateOrderModel
}

func (f *fakeOrders) CreateOrder(_ context.Context, model order.CreateOrderModel) (order.Order, error) {
	f.created = model

	return order.Order{ID: uuid.New(), Status: order.StatusNew, SubtotalUZS: 200000}, nil
}

func (f *fakeOrders) GetOrder(context.Context, uuid.UUID) (order.Order, error) {
	return order.Order{}, errs.ErrNotFound
}

type fakeCatalog struct{}

func (fakeCatalog) ListProducts(context.Context, product.QueryProductsModel) ([]product.Product, error) {
	return []product.Product{{ID: 1, Slug: "ring-01"}}, nil
}

func (fakeCatalog) GetProduct(_ context.Context, slug string) (product.Product, error) {
	if slug == "ring-01" {
		return product.Product{ID: 1, Slug: slug}, nil
	}

	return product.Product{}, errs.ErrNotFound
}

func newTestTransport(t *testing.T) (*HTTPTransport, *fakeOrders) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("server.http.cors.allowed_origins", []string{"https://dunya.example"})
	viper.Set("server.http.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.Set("server.http.cors.allowed_headers", []string{"Content-Type", "Idempotency-Key"})

	orders := &fakeOrders{}
	transport := NewHTTPTransport(orders, fakeCatalog{}, metrics.NewServerMetrics("shop", prometheus.NewRegistry()))
	transport.RegisterRoutes()

	return transport, orders
}

func TestRoutes(t *testing.T) {
	transport, _ := newTestTransport(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/health/", http.StatusOK},
		{http.MethodGet, "/api/products/", http.StatusOK},
		{http.MethodGet, "/api/products", http.StatusOK},
		{http.MethodGet, "/api/products/ring-01/", http.StatusOK},
		{http.MethodGet, "/api/products/ring-99/", http.StatusNotFound},
		{http.MethodGet, "/api/orders/" + uuid.NewString() + "/", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodDelete, "/api/orders/", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			transport.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHealth(t *testing.T) {
	transport, _ := newTestTransport(t)

	rec := httptest.NewRecorder()
	transport.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/", nil))

	assert.JSONEq(t, `{"status":"healthy","service":"dunya-jewellery-backend","version":"1.0.0"}`, rec.Body.String())
}

func TestCreateOrderRoute(t *testing.T) {
	transport, orders := newTestTransport(t)

	body := `{
		"customer": {"name": "Aziza", "phone": "+998901234567", "address": "Tashkent"},
		"items": [{"productSlug": "ring-01", "qty": 2, "selectedSize": "16.0"}],
		"meta": {"locale": "ru", "theme": "light"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	transport.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"NEW"`)
	assert.Equal(t, "ring-01", orders.created.Lines[0].ProductSlug)
}

func TestCORSPreflight(t *testing.T) {
	transport, _ := newTestTransport(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/orders/", nil)
	req.Header.Set("Origin", "https://dunya.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Idempotency-Key")
	rec := httptest.NewRecorder()
	transport.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "https://dunya.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
