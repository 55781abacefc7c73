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

	"github.com/dunya-jewellery/shop/internal/dal/cache"
	"github.com/dunya-jewellery/shop/internal/dal/interfaces/iproductrepo"
	"github.com/dunya-jewellery/shop/internal/dal/postgres"
	"github.com/dunya-jewellery/shop/internal/dal/rabbitmq"
	notificationrepo "github.com/dunya-jewellery/shop/internal/dal/repositories/notification/rabbitmq"
	orderrepo "github.com/dunya-jewellery/shop/internal/dal/repositories/order/postgres"
	cachedrepo "github.com/dunya-jewellery/shop/internal/dal/repositories/product/cached"
	productrepo "github.com/dunya-jewellery/shop/internal/dal/repositories/product/postgres"
	"github.com/dunya-jewellery/shop/internal/dal/telegram"
	"github.com/dunya-jewellery/shop/internal/otel"
	"github.com/dunya-jewellery/shop/internal/service/services/catalogsvc"
	"github.com/dunya-jewellery/shop/internal/service/services/notifysvc"
	"github.com/dunya-jewellery/shop/internal/service/services/ordersvc"
	"github.com/dunya-jewellery/shop/internal/transport/consumer"
	grpctransport "github.com/dunya-jewellery/shop/internal/transport/grpc"
	httptransport "github.com/dunya-jewellery/shop/internal/transport/http"
	pendingworker "github.com/dunya-jewellery/shop/internal/worker/pending"
	"github.com/dunya-jewellery/shop/pkg/http/middleware/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

const (
	modeQueue       = "queue"
	shutdownTimeout = 10 * time.Second
)

// App represents the API application.
type App struct {
	orderSvc       *ordersvc.OrderService
	catalogSvc     *catalogsvc.CatalogService
	transport      *httptransport.HTTPTransport
	grpcTransport  *grpctransport.GRPCTransport
	pendingWorker  *pendingworker.Worker
	postgresClient *postgres.Client
	cacheClient    *cache.Client
	rabbitMqClient *rabbitmq.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new API application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel(viper.GetString("service.name"))
	postgresClient := postgres.MustNewClient()

	productRepository := productrepo.NewPostgresProductRepository(postgresClient.DB())

	var catalogRepository iproductrepo.IProductRepository = productRepository
	cacheClient := cache.MustNewClient()
	if cacheClient != nil {
		ttl := time.Duration(viper.GetInt("redis.ttl_seconds")) * time.Second
		catalogRepository = cachedrepo.NewCachedProductRepository(productRepository, cacheClient, ttl)
	}

	catalogSvc := catalogsvc.MustNewCatalogService(
		catalogsvc.WithProductRepository(catalogRepository),
	)

	var (
		rabbitMqClient *rabbitmq.Client
		pendingWorker  *pendingworker.Worker
		publisher      interface {
			PublishOrderCreated(ctx context.Context, orderID uuid.UUID) error
		}
	)
	if viper.GetString("notifier.mode") == modeQueue {
		rabbitMqClient = rabbitmq.MustNewClient()
		queue := consumer.QueueName()
		if _, err := rabbitMqClient.DeclareQueueWithDeadLetter(queue); err != nil {
			panic(err)
		}
		publisher = notificationrepo.NewNotificationRabbitMQRepository(rabbitMqClient, queue)
		slog.Info("Order notifications are queued", "queue", queue)
	}

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		// Validation always reads live stock, never the cache.
		ordersvc.WithProductRepository(productRepository),
		ordersvc.WithNotifier(newNotifyService(postgresClient)),
		ordersvc.WithPublisher(publisher),
	)
	if rabbitMqClient != nil {
		pendingWorker = pendingworker.NewWorker(orderSvc)
	}

	serverMetrics := metrics.NewServerMetrics("shop", prometheus.DefaultRegisterer)
	transport := httptransport.NewHTTPTransport(orderSvc, catalogSvc, serverMetrics)
	transport.RegisterRoutes()

	return &App{
		orderSvc:       orderSvc,
		catalogSvc:     catalogSvc,
		transport:      transport,
		grpcTransport:  grpctransport.NewGRPCTransport(),
		pendingWorker:  pendingWorker,
		postgresClient: postgresClient,
		cacheClient:    cacheClient,
		rabbitMqClient: rabbitMqClient,
		otelController: otelController,
	}
}

// newNotifyService builds the Telegram notifier from the environment and config.
func newNotifyService(postgresClient *postgres.Client) *notifysvc.NotifyService {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	httpClient := &http.Client{Timeout: 2 * notifierTimeout()}

	return notifysvc.MustNewNotifyService(
		notifysvc.WithMessenger(telegram.NewClient(viper.GetString("notifier.api_url"), token, httpClient)),
		notifysvc.WithStatusRecorder(orderrepo.NewPostgresOrderRepository(postgresClient.Pool())),
		notifysvc.WithCredentials(token, os.Getenv("TELEGRAM_CHAT_ID")),
		notifysvc.WithTimeout(notifierTimeout()),
		notifysvc.WithLocation(notifysvc.LoadLocation(viper.GetString("notifier.timezone"))),
	)
}

func notifierTimeout() time.Duration {
	if seconds := viper.GetInt("notifier.timeout_seconds"); seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return notifysvc.DefaultTimeout
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := a.transport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		a.grpcTransport.SetServing(true)
		if err := a.grpcTransport.Run(); err != nil {
			slog.Error("gRPC server error", "error", err)
		}
	}()

	if a.pendingWorker != nil {
		go a.pendingWorker.Start(ctx)
	}

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops the transports first and closes the stores after them.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.grpcTransport.SetServing(false)

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.grpcTransport.Shutdown(ctx); err != nil {
		slog.Error("gRPC server shutdown error", "error", err)
	} else {
		slog.Info("gRPC server stopped gracefully")
	}

	if a.pendingWorker != nil {
		a.pendingWorker.Stop()
		slog.Info("Pending order worker stopped gracefully")
	}

	if a.rabbitMqClient != nil {
		if err := a.rabbitMqClient.Close(); err != nil {
			slog.Error("RabbitMQ connection close error", "error", err)
		} else {
			slog.Info("RabbitMQ connection closed gracefully")
		}
	}

	if a.cacheClient != nil {
		if err := a.cacheClient.Close(); err != nil {
			slog.Error("Redis connection close error", "error", err)
		}
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
