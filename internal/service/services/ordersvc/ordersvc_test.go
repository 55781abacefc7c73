package ordersvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dunya-jewellery/shop/internal/service/errs"
	"github.com/dunya-jewellery/shop/internal/service/models/currency"
	"github.com/dunya-jewellery/shop/internal/service/models/order"
	"github.com/dunya-jewellery/shop/internal/service/models/product"
	"github.com/dunya-jewellery/shop/internal/service/models/size"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db        *memoryDB
	catalog   *memoryCatalog
	notifier  *recordingNotifier
	publisher *recordingPublisher
	svc       *OrderService
}

func newFixture(t *testing.T, withPublisher bool) *fixture {
	t.Helper()

	db := newMemoryDB()
	f := &fixture{
		db: db,
		catalog: &memoryCatalog{products: map[string]product.Product{
			"ring-01": {
				ID:          1,
				Slug:        "ring-01",
				Title:       "Gold ring",
				Description: "585 gold",
				PriceUZS:    100000,
				Currency:    currency.CurrencyUZS,
				RawSizes:    []any{15.5, 16, 16.5},
				InStock:     true,
				ImageURLs:   []string{"https://cdn.example/ring-01.jpg", "https://cdn.example/ring-01-b.jpg"},
			},
			"earrings-02": {
				ID:        2,
				Slug:      "earrings-02",
				Title:     "Silver earrings",
				PriceUZS:  75000,
				Currency:  currency.CurrencyUZS,
				RawSizes:  []any{"1", "2,5"},
				InStock:   true,
				ImageURLs: []string{"https://cdn.example/earrings-02.jpg"},
			},
		}},
		notifier:  &recordingNotifier{db: db},
		publisher: &recordingPublisher{},
	}

	opts := []option{
		WithProductRepository(f.catalog),
		WithNotifier(f.notifier),
		func(s *OrderService) { s.newUOW = db.newUOW },
	}
	if withPublisher {
		opts = append(opts, WithPublisher(f.publisher))
	}
	f.svc = MustNewOrderService(opts...)

	return f
}

func cart(lines ...order.Line) order.CreateOrderModel {
	return order.CreateOrderModel{
		Customer: order.Customer{Name: "Aziza", Phone: "+998901234567", Address: "Tashkent"},
		Meta:     order.Meta{Locale: order.LocaleRU, Theme: order.ThemeDark},
		Lines:    lines,
	}
}

func mustSize(t *testing.T, s string) size.Size {
	t.Helper()
	v, err := size.Parse(s)
	require.NoError(t, err)

	return v
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t, false)

	created, err := f.svc.CreateOrder(context.Background(), cart(
		order.Line{ProductSlug: "ring-01", Quantity: 2, SelectedSize: mustSize(t, "16.0")},
	))
	require.NoError(t, err)

	assert.Equal(t, int64(200000), created.SubtotalUZS)
	assert.Equal(t, order.StatusNew, created.Status)
	assert.NotEqual(t, uuid.Nil, created.ID)
	require.Len(t, created.OrderItems, 1)

	item := created.OrderItems[0]
	assert.Equal(t, created.ID, item.OrderID)
	assert.Equal(t, "Gold ring", item.TitleSnapshot)
	assert.Equal(t, "585 gold", item.DescriptionSnapshot)
	assert.Equal(t, int64(100000), item.PriceSnapshotUZS)
	assert.Equal(t, "https://cdn.example/ring-01.jpg", item.ImageURLSnapshot)
	assert.Equal(t, size.Size(160), item.SelectedSize)

	assert.Equal(t, []string{"begin", "insert_order", "insert_items", "update_subtotal", "commit"}, f.db.ops)

	require.Len(t, f.notifier.notified, 1)
	assert.Len(t, f.notifier.notified[0].OrderItems, 1)

	stored, err := f.svc.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusSent, stored.Status)
	assert.Equal(t, int64(200000), stored.SubtotalUZS)
}

func TestCreateOrderSubtotalIsSumOfLineTotals(t *testing.T) {
	tests := []struct {
		name  string
		lines []order.Line
		want  int64
	}{
		{
			name:  "single line",
			lines: []order.Line{{ProductSlug: "ring-01", Quantity: 1, SelectedSize: 155}},
			want:  100000,
		},
		{
			name: "two products",
			lines: []order.Line{
				{ProductSlug: "ring-01", Quantity: 3, SelectedSize: 165},
				{ProductSlug: "earrings-02", Quantity: 2, SelectedSize: 25},
			},
			want: 3*100000 + 2*75000,
		},
		{
			name: "same product twice",
			lines: []order.Line{
				{ProductSlug: "ring-01", Quantity: 1, SelectedSize: 155},
				{ProductSlug: "ring-01", Quantity: 4, SelectedSize: 160},
			},
			want: 5 * 100000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)

			created, err := f.svc.CreateOrder(context.Background(), cart(tt.lines...))
			require.NoError(t, err)

			var sum int64
			for _, item := range created.OrderItems {
				sum += item.PriceSnapshotUZS * int64(item.Quantity)
			}
			assert.Equal(t, tt.want, created.SubtotalUZS)
			assert.Equal(t, sum, created.SubtotalUZS)
			assert.Len(t, created.OrderItems, len(tt.lines))
			assert.Len(t, f.db.items, len(tt.lines))
		})
	}
}

func TestCreateOrderValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(f *fixture)
		lines   []order.Line
		want    string
	}{
		{
			name: "out of stock",
			prepare: func(f *fixture) {
				p := f.catalog.products["ring-01"]
				p.InStock = false
				f.catalog.products["ring-01"] = p
			},
			lines: []order.Line{{ProductSlug: "ring-01", Quantity: 2, SelectedSize: 160}},
			want:  "Product 'ring-01' not found or out of stock.",
		},
		{
			name:  "unknown product",
			lines: []order.Line{{ProductSlug: "ring-99", Quantity: 1, SelectedSize: 160}},
			want:  "Product 'ring-99' not found or out of stock.",
		},
		{
			name:  "size not in catalog",
			lines: []order.Line{{ProductSlug: "ring-01", Quantity: 1, SelectedSize: 170}},
			want:  "Selected size 17.0 is not available.",
		},
		{
			name: "product without image",
			prepare: func(f *fixture) {
				p := f.catalog.products["ring-01"]
				p.ImageURLs = nil
				f.catalog.products["ring-01"] = p
			},
			lines: []order.Line{{ProductSlug: "ring-01", Quantity: 1, SelectedSize: 160}},
			want:  "Product image is required.",
		},
		{
			name: "first failing line in cart order",
			lines: []order.Line{
				{ProductSlug: "ring-01", Quantity: 1, SelectedSize: 160},
				{ProductSlug: "earrings-02", Quantity: 1, SelectedSize: 30},
				{ProductSlug: "ring-99", Quantity: 1, SelectedSize: 160},
			},
			want: "Selected size 3.0 is not available.",
		},
		{
			name:  "non-positive quantity",
			lines: []order.Line{{ProductSlug: "ring-01", Quantity: 0, SelectedSize: 160}},
			want:  "Quantity must be a positive integer.",
		},
		{
			name:  "empty cart",
			lines: nil,
			want:  "At least one item is required.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			if tt.prepare != nil {
				tt.prepare(f)
			}

			_, err := f.svc.CreateOrder(context.Background(), cart(tt.lines...))

			var vErr *errs.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, map[string]string{"items": tt.want}, vErr.Fields)
			assert.Empty(t, f.db.orders)
			assert.Empty(t, f.db.items)
			assert.Empty(t, f.notifier.notified)
		})
	}
}

func TestCreateOrderCatalogFailureIsNotValidationError(t *testing.T) {
	f := newFixture(t, false)
	f.catalog.err = errDatabase

	_, err := f.svc.CreateOrder(context.Background(), cart(
		order.Line{ProductSlug: "ring-01", Quantity: 1, SelectedSize: 160},
	))

	require.ErrorIs(t, err, errDatabase)
	var vErr *errs.ValidationError
	assert.False(t, errors.As(err, &vErr))
}

func TestCreateOrderRollsBackOnPersistenceFailure(t *testing.T) {
	f := newFixture(t, false)
	f.db.failItems = errDatabase

	_, err := f.svc.CreateOrder(context.Background(), cart(
		order.Line{ProductSlug: "ring-01", Quantity: 1, SelectedSize: 160},
	))

	require.ErrorIs(t, err, errDatabase)
	assert.Empty(t, f.db.orders)
	assert.Empty(t, f.db.items)
	assert.Contains(t, f.db.ops, "rollback")
	assert.NotContains(t, f.db.ops, "commit")
	assert.Empty(t, f.notifier.notified)
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	f := newFixture(t, false)
	model := cart(order.Line{ProductSlug: "ring-01", Quantity: 1, SelectedSize: 160})
	model.IdempotencyKey = "offline-7f3c"

	first, err := f.svc.CreateOrder(context.Background(), model)
	require.NoError(t, err)

	_, err = f.svc.CreateOrder(context.Background(), model)
	require.ErrorIs(t, err, errs.ErrConflict)

	assert.Len(t, f.db.orders, 1)
	assert.Contains(t, f.db.orders, first.ID)
	assert.Len(t, f.notifier.notified, 1)
}

func TestSnapshotsIgnoreLaterCatalogEdits(t *testing.T) {
	f := newFixture(t, false)

	created, err := f.svc.CreateOrder(context.Background(), cart(
		order.Line{ProductSlug: "ring-01", Quantity: 1, SelectedSize: 160},
	))
	require.NoError(t, err)

	p := f.catalog.products["ring-01"]
	p.Title = "Renamed ring"
	p.PriceUZS = 999999
	p.ImageURLs = []string{"https://cdn.example/new.jpg"}
	f.catalog.products["ring-01"] = p

	stored, err := f.svc.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, stored.OrderItems, 1)
	assert.Equal(t, "Gold ring", stored.OrderItems[0].TitleSnapshot)
	assert.Equal(t, int64(100000), stored.OrderItems[0].PriceSnapshotUZS)
	assert.Equal(t, "https://cdn.example/ring-01.jpg", stored.OrderItems[0].ImageURLSnapshot)
	assert.Equal(t, int64(100000), stored.SubtotalUZS)
}

func TestCreateOrderQueueMode(t *testing.T) {
	f := newFixture(t, true)

	created, err := f.svc.CreateOrder(context.Background(), cart(
		order.Line{ProductSlug: "ring-01", Quantity: 1, SelectedSize: 160},
	))
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{created.ID}, f.publisher.published)
	assert.Empty(t, f.notifier.notified)
	assert.Equal(t, order.StatusNew, f.db.orders[created.ID].Status)
}

func TestCreateOrderQueueFailureFallsBackToInline(t *testing.T) {
	f := newFixture(t, true)
	f.publisher.err = errors.New("broker down")

	created, err := f.svc.CreateOrder(context.Background(), cart(
		order.Line{ProductSlug: "ring-01", Quantity: 1, SelectedSize: 160},
	))
	require.NoError(t, err)

	assert.Equal(t, order.StatusNew, created.Status)
	require.Len(t, f.notifier.notified, 1)
	assert.Equal(t, order.StatusSent, f.db.orders[created.ID].Status)
}

func TestProcessNotification(t *testing.T) {
	f := newFixture(t, true)

	created, err := f.svc.CreateOrder(context.Background(), cart(
		order.Line{ProductSlug: "ring-01", Quantity: 1, SelectedSize: 160},
	))
	require.NoError(t, err)

	require.NoError(t, f.svc.ProcessNotification(context.Background(), created.ID))
	require.Len(t, f.notifier.notified, 1)
	assert.Len(t, f.notifier.notified[0].OrderItems, 1)
	assert.Equal(t, order.StatusSent, f.db.orders[created.ID].Status)

	// redelivery of the same message
	require.NoError(t, f.svc.ProcessNotification(context.Background(), created.ID))
	assert.Len(t, f.notifier.notified, 1)
}

func TestProcessNotificationUnknownOrder(t *testing.T) {
	f := newFixture(t, true)

	err := f.svc.ProcessNotification(context.Background(), uuid.New())
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMustNewOrderServiceRequiresDependencies(t *testing.T) {
	assert.Panics(t, func() {
		MustNewOrderService(WithNotifier(&recordingNotifier{}))
	})
}

func TestRepublishPending(t *testing.T) {
	f := newFixture(t, true)
	now := time.Now().UTC()

	stale := order.Order{ID: uuid.New(), Status: order.StatusNew, CreatedAt: now.Add(-20 * time.Minute)}
	fresh := order.Order{ID: uuid.New(), Status: order.StatusNew, CreatedAt: now.Add(-time.Minute)}
	sent := order.Order{ID: uuid.New(), Status: order.StatusSent, CreatedAt: now.Add(-30 * time.Minute)}
	ancient := order.Order{ID: uuid.New(), Status: order.StatusNew, CreatedAt: now.Add(-48 * time.Hour)}
	for _, o := range []order.Order{stale, fresh, sent, ancient} {
		f.db.orders[o.ID] = o
	}

	n, err := f.svc.RepublishPending(context.Background(), now.Add(-24*time.Hour), now.Add(-10*time.Minute), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{stale.ID}, f.publisher.published)
}

func TestRepublishPendingWithoutPublisher(t *testing.T) {
	f := newFixture(t, false)
	id := uuid.New()
	f.db.orders[id] = order.Order{ID: id, Status: order.StatusNew, CreatedAt: time.Now().Add(-time.Hour)}

	n, err := f.svc.RepublishPending(context.Background(), time.Time{}, time.Now(), 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}
