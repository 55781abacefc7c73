package order

import (
	"strings"
	"time"

	"github.com/dunya-jewellery/shop/internal/service/models/orderitem"
	"github.com/google/uuid"
)

// Status is the notification outcome recorded on an order.
type Status string

const (
	StatusNew    Status = "NEW"
	StatusSent   Status = "SENT"
	StatusFailed Status = "FAILED"
)

// IsFinal reports whether no further transition is allowed.
func (s Status) IsFinal() bool {
	return s == StatusSent || s == StatusFailed
}

type Locale string

const (
	LocaleRU Locale = "ru"
	LocaleUZ Locale = "uz"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Customer holds the contact details typed in at checkout.
type Customer struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	Comment          string `json:"comment"`
	TelegramUsername string `json:"telegram_username"`
}

// Meta describes the storefront the order was placed from.
type Meta struct {
	Locale Locale `json:"locale"`
	Theme  Theme  `json:"theme"`
}

// Order represents a checkout in the system.
type Order struct {
	ID             uuid.UUID             `json:"id"`
	Customer       Customer              `json:"customer"`
	Meta           Meta                  `json:"meta"`
	SubtotalUZS    int64                 `json:"subtotal"`
	Status         Status                `json:"status"`
	IdempotencyKey string                `json:"-"`
	CreatedAt      time.Time             `json:"created_at"`
	OrderItems     []orderitem.OrderItem `json:"items"`
}

// ShortID is the human facing order reference, the first group of the UUID.
func (o *Order) ShortID() string {
	id := o.ID.String()
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}

	return id
}

// ComputeSubtotal sums the line totals of the order items.
func (o *Order) ComputeSubtotal() int64 {
	var total int64
	for _, item := range o.OrderItems {
		total += item.LineTotal()
	}

	return total
}
