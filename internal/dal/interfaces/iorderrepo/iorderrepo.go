package iorderrepo

import (
	"context"
	"time"

	"github.com/dunya-jewellery/shop/internal/service/models/order"
	"github.com/google/uuid"
)

// IOrderRepository is an interface for order postgres repository.
type IOrderRepository interface {
	Insert(ctx context.Context, o order.Order) (order.Order, error)
	UpdateSubtotal(ctx context.Context, id uuid.UUID, subtotal int64) error
	// UpdateStatus moves a NEW order to status and returns errs.ErrStatusFinal
	// when the order already left NEW.
	UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error
	Get(ctx context.Context, id uuid.UUID) (order.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (order.Order, error)
	// ListPendingIDs returns ids of NEW orders created in [from, to), oldest first.
	ListPendingIDs(ctx context.Context, from, to time.Time, limit int) ([]uuid.UUID, error)
}
