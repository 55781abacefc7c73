package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dunya-jewellery/shop/internal/dal/interfaces/iorderitemrepo"
	"github.com/dunya-jewellery/shop/internal/dal/interfaces/iorderrepo"
	"github.com/dunya-jewellery/shop/internal/dal/postgres"
	"github.com/dunya-jewellery/shop/internal/dal/uow"
	"github.com/dunya-jewellery/shop/internal/service/errs"
	"github.com/dunya-jewellery/shop/internal/service/models/order"
	"github.com/dunya-jewellery/shop/internal/service/models/orderitem"
	"github.com/dunya-jewellery/shop/internal/service/models/product"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// OrderService validates, persists and dispatches customer orders.
type OrderService struct {
	products  productFinder
	newUOW    func() unitOfWork
	notifier  notifier
	publisher publisher
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
}

type productFinder interface {
	FindInStockBySlug(ctx context.Context, slug string) (product.Product, error)
}

type notifier interface {
	Notify(ctx context.Context, ord order.Order) order.Status
}

type publisher interface {
	PublishOrderCreated(ctx context.Context, orderID uuid.UUID) error
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		panic("ordersvc: postgres client is required")
	}
	if s.products == nil {
		panic("ordersvc: product repository is required")
	}
	if s.notifier == nil {
		panic("ordersvc: notifier is required")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithProductRepository sets the catalog used to validate cart lines.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProductRepository(products productFinder) option {
	return func(s *OrderService) {
		s.products = products
	}
}

// WithNotifier sets the notifier run after an order is committed.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNotifier(n notifier) option {
	return func(s *OrderService) {
		s.notifier = n
	}
}

// WithPublisher hands notifications to a queue instead of running them inline.
// The notifier is still used when publishing fails.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPublisher(p publisher) option {
	return func(s *OrderService) {
		s.publisher = p
	}
}

// CreateOrder validates the cart against live catalog data, stores the order
// with its item snapshots in one transaction and then dispatches the notification.
// The returned order always carries the status it was created with.
func (s *OrderService) CreateOrder(ctx context.Context, model order.CreateOrderModel) (order.Order, error) {
	ctx, span := otel.Tracer("ordersvc").Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	if model.IdempotencyKey != "" {
		_, err := s.newUOW().OrderRepository().GetByIdempotencyKey(ctx, model.IdempotencyKey)
		if err == nil {
			return order.Order{}, errs.ErrConflict
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return order.Order{}, err
		}
	}

	items, err := s.validateLines(ctx, model.Lines)
	if err != nil {
		return order.Order{}, err
	}

	ord := order.Order{
		ID:             uuid.New(),
		Customer:       model.Customer,
		Meta:           model.Meta,
		Status:         order.StatusNew,
		IdempotencyKey: model.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}

	ord, err = s.persist(ctx, ord, items)
	if err != nil {
		return order.Order{}, err
	}
	span.SetAttributes(
		attribute.String("order.id", ord.ID.String()),
		attribute.Int64("order.subtotal", ord.SubtotalUZS),
	)

	slog.InfoContext(ctx, "Order created",
		"order_id", ord.ID,
		"items", len(ord.OrderItems),
		"subtotal", ord.SubtotalUZS)

	s.dispatch(ctx, ord)

	return ord, nil
}

// persist writes the order, its items and finally the subtotal in one transaction.
func (s *OrderService) persist(
	ctx context.Context,
	ord order.Order,
	items []orderitem.OrderItem,
) (result order.Order, err error) {
	work := s.newUOW()

	if err = work.Begin(ctx); err != nil {
		return order.Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := work.Rollback(ctx); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to rollback order transaction", "order_id", ord.ID, "error", rbErr)
		}
	}()

	ord, err = work.OrderRepository().Insert(ctx, ord)
	if err != nil {
		return order.Order{}, err
	}

	for i := range items {
		items[i].OrderID = ord.ID
	}
	ord.OrderItems, err = work.OrderItemRepository().BulkInsert(ctx, items)
	if err != nil {
		return order.Order{}, err
	}

	ord.SubtotalUZS = ord.ComputeSubtotal()
	if err = work.OrderRepository().UpdateSubtotal(ctx, ord.ID, ord.SubtotalUZS); err != nil {
		return order.Order{}, err
	}

	if err = work.Commit(ctx); err != nil {
		return order.Order{}, fmt.Errorf("failed to commit order: %w", err)
	}

	return ord, nil
}

func (s *OrderService) dispatch(ctx context.Context, ord order.Order) {
	if s.publisher != nil {
		err := s.publisher.PublishOrderCreated(ctx, ord.ID)
		if err == nil {
			return
		}
		slog.WarnContext(ctx, "Failed to enqueue notification, delivering inline", "order_id", ord.ID, "error", err)
	}

	s.notifier.Notify(ctx, ord)
}

// GetOrder returns the order with its items.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (order.Order, error) {
	work := s.newUOW()

	ord, err := work.OrderRepository().Get(ctx, id)
	if err != nil {
		return order.Order{}, err
	}

	ord.OrderItems, err = work.OrderItemRepository().Query(ctx, &orderitem.QueryOrderItemsModel{
		OrderIds: []uuid.UUID{id},
	})
	if err != nil {
		return order.Order{}, err
	}

	return ord, nil
}

// ProcessNotification runs the notifier for a queued order. Orders that already
// left NEW are skipped so redelivered messages cause no second transition.
func (s *OrderService) ProcessNotification(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("ordersvc").Start(ctx, "OrderService.ProcessNotification")
	defer span.End()

	ord, err := s.GetOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", id, err)
	}

	if ord.Status.IsFinal() {
		slog.InfoContext(ctx, "Order already notified, skipping", "order_id", id, "status", ord.Status)

		return nil
	}

	status := s.notifier.Notify(ctx, ord)
	slog.InfoContext(ctx, "Order notification processed", "order_id", id, "status", status)

	return nil
}

// RepublishPending enqueues NEW orders created in [from, to) again. It is a
// no-op without a publisher and returns how many orders were enqueued.
func (s *OrderService) RepublishPending(ctx context.Context, from, to time.Time, limit int) (int, error) {
	if s.publisher == nil {
		return 0, nil
	}

	ids, err := s.newUOW().OrderRepository().ListPendingIDs(ctx, from, to, limit)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, id := range ids {
		if err := s.publisher.PublishOrderCreated(ctx, id); err != nil {
			return published, err
		}
		published++
	}

	return published, nil
}
