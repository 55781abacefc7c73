package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunya-jewellery/shop/internal/dal/postgres"
	"github.com/dunya-jewellery/shop/internal/dal/rabbitmq"
	productrepo "github.com/dunya-jewellery/shop/internal/dal/repositories/product/postgres"
	"github.com/dunya-jewellery/shop/internal/otel"
	"github.com/dunya-jewellery/shop/internal/service/services/ordersvc"
	"github.com/dunya-jewellery/shop/internal/transport/consumer"
	"github.com/dunya-jewellery/shop/pkg/http/middleware/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/viper"
)

// NotifierApp consumes queued order notifications.
type NotifierApp struct {
	orderSvc       *ordersvc.OrderService
	consumerTransp *consumer.Consumer
	metricsServer  *http.Server
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewNotifierApp creates the queue consumer application.
func MustNewNotifierApp() *NotifierApp {
	otelController := otel.MustInitOtel(viper.GetString("service.name") + "-notifier")
	rabbitMqClient := rabbitmq.MustNewClient()
	postgresClient := postgres.MustNewClient()

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithProductRepository(productrepo.NewPostgresProductRepository(postgresClient.DB())),
		ordersvc.WithNotifier(newNotifyService(postgresClient)),
	)

	consumerTransp := consumer.NewConsumer(rabbitMqClient, orderSvc)

	return &NotifierApp{
		orderSvc:       orderSvc,
		consumerTransp: consumerTransp,
		metricsServer:  newMetricsServer(),
		rabbitMqClient: rabbitMqClient,
		postgresClient: postgresClient,
		otelController: otelController,
	}
}

// newMetricsServer exposes /metrics and /health for the consumer process.
func newMetricsServer() *http.Server {
	port := viper.GetString("notifier.metrics_port")
	if port == "" {
		port = "8001"
	}

	router := chi.NewMux()
	router.Handle("/metrics", metrics.Handler())
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *NotifierApp) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting consumer")
		if err := a.consumerTransp.Run(ctx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting metrics server", "address", a.metricsServer.Addr)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	a.gracefulShutdown()
}

// gracefulShutdown lets in-flight deliveries finish before closing the broker and database.
func (a *NotifierApp) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.consumerTransp.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	} else {
		slog.Info("Consumer stopped gracefully")
	}

	if err := a.metricsServer.Shutdown(ctx); err != nil {
		slog.Error("Metrics server shutdown error", "error", err)
	}

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	if err := a.postgresClient.Close(); err != nil {
		slog.Error("Database connection close error", "error", err)
	} else {
		slog.Info("Database connection closed gracefully")
	}

	if err := a.otelController.Shutdown(ctx); err != nil {
		slog.Error("Otel trace provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
