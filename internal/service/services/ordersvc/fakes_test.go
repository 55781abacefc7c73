package ordersvc

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dunya-jewellery/shop/internal/dal/interfaces/iorderitemrepo"
	"github.com/dunya-jewellery/shop/internal/dal/interfaces/iorderrepo"
	"github.com/dunya-jewellery/shop/internal/service/errs"
	"github.com/dunya-jewellery/shop/internal/service/models/order"
	"github.com/dunya-jewellery/shop/internal/service/models/orderitem"
	"github.com/dunya-jewellery/shop/internal/service/models/product"
	"github.com/google/uuid"
)

// memoryDB is an in-memory stand-in for Postgres. Writes made inside a unit of
// work only become visible on Commit.
type memoryDB struct {
	mu         sync.Mutex
	orders     map[uuid.UUID]order.Order
	items      []orderitem.OrderItem
	nextItemID int64
	ops        []string
	failItems  error
}

func newMemoryDB() *memoryDB {
	return &memoryDB{orders: map[uuid.UUID]order.Order{}}
}

func (db *memoryDB) newUOW() unitOfWork {
	return &memoryUOW{db: db}
}

func (db *memoryDB) record(op string) {
	db.ops = append(db.ops, op)
}

type memoryUOW struct {
	db           *memoryDB
	inTx         bool
	pendingOrder map[uuid.UUID]order.Order
	pendingItems []orderitem.OrderItem
}

func (u *memoryUOW) Begin(context.Context) error {
	u.inTx = true
	u.pendingOrder = map[uuid.UUID]order.Order{}
	u.db.record("begin")

	return nil
}

func (u *memoryUOW) Commit(context.Context) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	for id, o := range u.pendingOrder {
		u.db.orders[id] = o
	}
	u.db.items = append(u.db.items, u.pendingItems...)
	u.pendingOrder, u.pendingItems, u.inTx = nil, nil, false
	u.db.record("commit")

	return nil
}

func (u *memoryUOW) Rollback(context.Context) error {
	if !u.inTx {
		return nil
	}
	u.pendingOrder, u.pendingItems, u.inTx = nil, nil, false
	u.db.record("rollback")

	return nil
}

func (u *memoryUOW) OrderRepository() iorderrepo.IOrderRepository {
	return &memoryOrderRepo{u: u}
}

func (u *memoryUOW) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return &memoryOrderItemRepo{u: u}
}

type memoryOrderRepo struct {
	u *memoryUOW
}

func (r *memoryOrderRepo) Insert(_ context.Context, o order.Order) (order.Order, error) {
	db := r.u.db
	db.mu.Lock()
	defer db.mu.Unlock()

	if o.IdempotencyKey != "" {
		for _, existing := range db.orders {
			if existing.IdempotencyKey == o.IdempotencyKey {
				return order.Order{}, errs.ErrConflict
			}
		}
	}
	db.record("insert_order")
	if r.u.inTx {
		r.u.pendingOrder[o.ID] = o
	} else {
		db.orders[o.ID] = o
	}

	return o, nil
}

func (r *memoryOrderRepo) UpdateSubtotal(_ context.Context, id uuid.UUID, subtotal int64) error {
	db := r.u.db
	db.mu.Lock()
	defer db.mu.Unlock()

	db.record("update_subtotal")
	if o, ok := r.u.pendingOrder[id]; ok {
		o.SubtotalUZS = subtotal
		r.u.pendingOrder[id] = o

		return nil
	}
	if o, ok := db.orders[id]; ok {
		o.SubtotalUZS = subtotal
		db.orders[id] = o

		return nil
	}

	return errs.ErrNotFound
}

func (r *memoryOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status order.Status) error {
	db := r.u.db
	db.mu.Lock()
	defer db.mu.Unlock()

	o, ok := db.orders[id]
	if !ok {
		return errs.ErrNotFound
	}
	if o.Status != order.StatusNew {
		return errs.ErrStatusFinal
	}
	o.Status = status
	db.orders[id] = o

	return nil
}

func (r *memoryOrderRepo) Get(_ context.Context, id uuid.UUID) (order.Order, error) {
	db := r.u.db
	db.mu.Lock()
	defer db.mu.Unlock()

	o, ok := db.orders[id]
	if !ok {
		return order.Order{}, errs.ErrNotFound
	}
	o.OrderItems = nil

	return o, nil
}

func (r *memoryOrderRepo) GetByIdempotencyKey(_ context.Context, key string) (order.Order, error) {
	db := r.u.db
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, o := range db.orders {
		if o.IdempotencyKey == key {
			return o, nil
		}
	}

	return order.Order{}, errs.ErrNotFound
}

func (r *memoryOrderRepo) ListPendingIDs(
	_ context.Context,
	from, to time.Time,
	limit int,
) ([]uuid.UUID, error) {
	db := r.u.db
	db.mu.Lock()
	defer db.mu.Unlock()

	var pending []order.Order
	for _, o := range db.orders {
		if o.Status == order.StatusNew && !o.CreatedAt.Before(from) && o.CreatedAt.Before(to) {
			pending = append(pending, o)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })

	ids := make([]uuid.UUID, 0, len(pending))
	for _, o := range pending {
		if len(ids) == limit {
			break
		}
		ids = append(ids, o.ID)
	}

	return ids, nil
}

type memoryOrderItemRepo struct {
	u *memoryUOW
}

func (r *memoryOrderItemRepo) BulkInsert(
	_ context.Context,
	items []orderitem.OrderItem,
) ([]orderitem.OrderItem, error) {
	db := r.u.db
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.failItems != nil {
		return nil, db.failItems
	}
	db.record("insert_items")

	out := slices.Clone(items)
	for i := range out {
		db.nextItemID++
		out[i].ID = db.nextItemID
	}
	if r.u.inTx {
		r.u.pendingItems = append(r.u.pendingItems, out...)
	} else {
		db.items = append(db.items, out...)
	}

	return out, nil
}

func (r *memoryOrderItemRepo) Query(
	_ context.Context,
	filter *orderitem.QueryOrderItemsModel,
) ([]orderitem.OrderItem, error) {
	db := r.u.db
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []orderitem.OrderItem
	for _, item := range db.items {
		if len(filter.OrderIds) == 0 || slices.Contains(filter.OrderIds, item.OrderID) {
			out = append(out, item)
		}
	}

	return out, nil
}

type memoryCatalog struct {
	products map[string]product.Product
	err      error
}

func (c *memoryCatalog) FindInStockBySlug(_ context.Context, slug string) (product.Product, error) {
	if c.err != nil {
		return product.Product{}, c.err
	}
	p, ok := c.products[slug]
	if !ok || !p.InStock {
		return product.Product{}, errs.ErrNotFound
	}

	return p, nil
}

// recordingNotifier marks orders SENT in the memory database like the real notifier would.
type recordingNotifier struct {
	db       *memoryDB
	notified []order.Order
}

func (n *recordingNotifier) Notify(ctx context.Context, ord order.Order) order.Status {
	n.notified = append(n.notified, ord)
	repo := &memoryOrderRepo{u: &memoryUOW{db: n.db}}
	if err := repo.UpdateStatus(ctx, ord.ID, order.StatusSent); err != nil {
		return order.StatusFailed
	}

	return order.StatusSent
}

type recordingPublisher struct {
	published []uuid.UUID
	err       error
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, id uuid.UUID) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, id)

	return nil
}

var errDatabase = errors.New("database is unavailable")
