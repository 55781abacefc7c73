package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dunya-jewellery/shop/internal/service/models/order"
	"github.com/dunya-jewellery/shop/internal/service/models/product"
	createorder "github.com/dunya-jewellery/shop/internal/transport/http/create_order"
	getorder "github.com/dunya-jewellery/shop/internal/transport/http/get_order"
	getproduct "github.com/dunya-jewellery/shop/internal/transport/http/get_product"
	"github.com/dunya-jewellery/shop/internal/transport/http/health"
	listproducts "github.com/dunya-jewellery/shop/internal/transport/http/list_products"
	"github.com/dunya-jewellery/shop/pkg/http/middleware/metrics"
	"github.com/dunya-jewellery/shop/pkg/http/middleware/trace"
	"github.com/dunya-jewellery/shop/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const (
	defaultServiceName    = "dunya-jewellery-backend"
	defaultServiceVersion = "1.0.0"
)

type orderService interface {
	CreateOrder(ctx context.Context, model order.CreateOrderModel) (order.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (order.Order, error)
}

type catalogService interface {
	ListProducts(ctx context.Context, filter product.QueryProductsModel) ([]product.Product, error)
	GetProduct(ctx context.Context, slug string) (product.Product, error)
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	orders  orderService
	catalog catalogService
}

func NewHTTPTransport(orders orderService, catalog catalogService, serverMetrics *metrics.ServerMetrics) *HTTPTransport {
	router := newRouter(serverMetrics)
	server := newServer(router)

	return &HTTPTransport{
		server:  server,
		router:  router,
		orders:  orders,
		catalog: catalog,
	}
}

func (h *HTTPTransport) Run() error {
	slog.Info("Starting HTTP server", "address", h.server.Addr)

	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Handler returns the router, mainly for tests.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// RegisterRoutes registers the routes for the HTTPTransport.
// Trailing slashes are stripped, so "/api/products/" and "/api/products" are the same route.
func (h *HTTPTransport) RegisterRoutes() {
	healthHandler := health.NewHandler(serviceName(), serviceVersion())

	h.router.Get("/health", healthHandler)
	h.router.Handle("/metrics", metrics.Handler())

	h.router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler)

		r.Get("/products", h.listProducts)
		r.Get("/products/{slug}", h.getProduct)

		r.Post("/orders", h.createOrder)
		r.Get("/orders/{id}", h.getOrder)
	})
}

func (h *HTTPTransport) listProducts(w http.ResponseWriter, r *http.Request) {
	listproducts.ListProducts(w, r, h.catalog)
}

func (h *HTTPTransport) getProduct(w http.ResponseWriter, r *http.Request) {
	getproduct.GetProduct(w, r, h.catalog)
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.orders)
}

func newRouter(serverMetrics *metrics.ServerMetrics) *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(middleware.Recoverer)
	router.Use(trace.NewTraceMiddleware(serviceName()))
	router.Use(serverMetrics.Middleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)
	router.Use(middleware.StripSlashes)

	return router
}

func newServer(router http.Handler) *http.Server {
	port := viper.GetString("server.http.port")
	if port == "" {
		port = "8000"
	}

	return &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func serviceName() string {
	if name := viper.GetString("service.name"); name != "" {
		return name
	}

	return defaultServiceName
}

func serviceVersion() string {
	if version := viper.GetString("service.version"); version != "" {
		return version
	}

	return defaultServiceVersion
}
