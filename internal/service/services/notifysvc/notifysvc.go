package notifysvc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dunya-jewellery/shop/internal/service/errs"
	"github.com/dunya-jewellery/shop/internal/service/models/order"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=notifysvc.go -destination=mock/notifysvc.go -package=mock

const (
	DefaultTimeout  = 15 * time.Second
	DefaultTimezone = "Asia/Tashkent"

	parseModeHTML = "HTML"
)

var notificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "shop_order_notifications_total",
		Help: "Order notifications by final status.",
	},
	[]string{"status"},
)

// Messenger delivers messages to a chat.
type Messenger interface {
	SendMessage(ctx context.Context, chatID, text, parseMode string) error
	SendPhoto(ctx context.Context, chatID, photoURL string) error
}

// StatusRecorder persists the notification outcome of an order.
type StatusRecorder interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error
}

// NotifyService forwards committed orders to the staff chat and records the outcome.
type NotifyService struct {
	messenger Messenger
	statuses  StatusRecorder
	token     string
	chatID    string
	timeout   time.Duration
	location  *time.Location
}

// option is a function that configures the NotifyService.
type option func(*NotifyService)

// MustNewNotifyService creates a new NotifyService.
func MustNewNotifyService(opts ...option) *NotifyService {
	s := &NotifyService{
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.statuses == nil {
		panic("notifysvc: status recorder is required")
	}
	if s.location == nil {
		s.location = LoadLocation(DefaultTimezone)
	}

	return s
}

// WithMessenger sets the messaging transport.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMessenger(m Messenger) option {
	return func(s *NotifyService) {
		s.messenger = m
	}
}

// WithStatusRecorder sets where order statuses are written.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithStatusRecorder(r StatusRecorder) option {
	return func(s *NotifyService) {
		s.statuses = r
	}
}

// WithCredentials sets the bot token and destination chat. Blank values disable delivery.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCredentials(token, chatID string) option {
	return func(s *NotifyService) {
		s.token = strings.TrimSpace(token)
		s.chatID = strings.TrimSpace(chatID)
	}
}

// WithTimeout bounds every outbound call.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTimeout(d time.Duration) option {
	return func(s *NotifyService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLocation sets the timezone used for the order date in messages.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLocation(loc *time.Location) option {
	return func(s *NotifyService) {
		s.location = loc
	}
}

// LoadLocation falls back to a fixed UTC+5 zone when tzdata is unavailable.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("Failed to load timezone, using fixed offset", "timezone", name, "error", err)

		return time.FixedZone("UZT", 5*60*60)
	}

	return loc
}

// Notify delivers ord in a single pass and records SENT or FAILED on it.
// It ignores cancellation of ctx so a disconnected client does not abort delivery.
func (s *NotifyService) Notify(ctx context.Context, ord order.Order) order.Status {
	ctx = context.WithoutCancel(ctx)
	ctx, span := otel.Tracer("notifysvc").Start(ctx, "NotifyService.Notify")
	defer span.End()

	status := s.deliver(ctx, ord)
	span.SetAttributes(
		attribute.String("order.id", ord.ID.String()),
		attribute.String("order.status", string(status)),
	)

	if err := s.statuses.UpdateStatus(ctx, ord.ID, status); err != nil {
		if errors.Is(err, errs.ErrStatusFinal) {
			slog.WarnContext(ctx, "Order status already final", "order_id", ord.ID, "status", status)
		} else {
			slog.ErrorContext(ctx, "Failed to record order status", "order_id", ord.ID, "status", status, "error", err)
		}
	}

	notificationsTotal.WithLabelValues(string(status)).Inc()

	return status
}

func (s *NotifyService) deliver(ctx context.Context, ord order.Order) order.Status {
	if s.token == "" || s.chatID == "" || s.messenger == nil {
		slog.ErrorContext(ctx, "TELEGRAM_CONFIG_MISSING",
			"order_id", ord.ID,
			"detail", "TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID is empty")

		return order.StatusFailed
	}

	text := FormatMessage(ord, s.location)
	err := s.bounded(ctx, func(ctx context.Context) error {
		return s.messenger.SendMessage(ctx, s.chatID, text, parseModeHTML)
	})
	if err != nil {
		slog.ErrorContext(ctx, "TELEGRAM_SENDMESSAGE_FAILED", "order_id", ord.ID, "error", err)

		return order.StatusFailed
	}

	for _, item := range ord.OrderItems {
		imageURL := item.ImageURLSnapshot
		if imageURL == "" {
			continue
		}

		err := s.bounded(ctx, func(ctx context.Context) error {
			return s.messenger.SendPhoto(ctx, s.chatID, imageURL)
		})
		if err == nil {
			continue
		}
		slog.WarnContext(ctx, "TELEGRAM_SENDPHOTO_FAILED", "order_id", ord.ID, "image_url", imageURL, "error", err)

		fallback := photoFallbackText(ord.Meta.Locale, imageURL)
		err = s.bounded(ctx, func(ctx context.Context) error {
			return s.messenger.SendMessage(ctx, s.chatID, fallback, "")
		})
		if err != nil {
			slog.ErrorContext(ctx, "TELEGRAM_FALLBACK_FAILED", "order_id", ord.ID, "image_url", imageURL, "error", err)
		}
	}

	return order.StatusSent
}

func (s *NotifyService) bounded(ctx context.Context, call func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return call(ctx)
}
