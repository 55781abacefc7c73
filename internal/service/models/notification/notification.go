package notification

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreated asks the notifier to deliver a freshly committed order.
type OrderCreated struct {
	OrderID   uuid.UUID `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}
