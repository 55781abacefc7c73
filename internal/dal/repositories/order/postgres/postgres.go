package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dunya-jewellery/shop/internal/service/errs"
	"github.com/dunya-jewellery/shop/internal/service/models/order"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderDal represents order data access layer model.
type OrderDal struct {
	Id                       uuid.UUID   `db:"id"`
	CustomerName             string      `db:"customer_name"`
	CustomerPhone            string      `db:"customer_phone"`
	CustomerAddress          string      `db:"customer_address"`
	CustomerComment          string      `db:"customer_comment"`
	CustomerTelegramUsername string      `db:"customer_telegram_username"`
	Locale                   string      `db:"locale"`
	Theme                    string      `db:"theme"`
	SubtotalUZS              int64       `db:"subtotal_uzs"`
	Status                   string      `db:"status"`
	IdempotencyKey           pgtype.Text `db:"idempotency_key"`
	CreatedAt                time.Time   `db:"created_at"`
}

// ToModel converts OrderDal to service layer Order model.
func (o *OrderDal) ToModel() order.Order {
	return order.Order{
		ID: o.Id,
		Customer: order.Customer{
			Name:             o.CustomerName,
			Phone:            o.CustomerPhone,
			Address:          o.CustomerAddress,
			Comment:          o.CustomerComment,
			TelegramUsername: o.CustomerTelegramUsername,
		},
		Meta: order.Meta{
			Locale: order.Locale(o.Locale),
			Theme:  order.Theme(o.Theme),
		},
		SubtotalUZS:    o.SubtotalUZS,
		Status:         order.Status(o.Status),
		IdempotencyKey: o.IdempotencyKey.String,
		CreatedAt:      o.CreatedAt,
	}
}

// OrderDalFromModel converts service layer Order model to OrderDal.
func OrderDalFromModel(o *order.Order) *OrderDal {
	return &OrderDal{
		Id:                       o.ID,
		CustomerName:             o.Customer.Name,
		CustomerPhone:            o.Customer.Phone,
		CustomerAddress:          o.Customer.Address,
		CustomerComment:          o.Customer.Comment,
		CustomerTelegramUsername: o.Customer.TelegramUsername,
		Locale:                   string(o.Meta.Locale),
		Theme:                    string(o.Meta.Theme),
		SubtotalUZS:              o.SubtotalUZS,
		Status:                   string(o.Status),
		IdempotencyKey:           pgtype.Text{String: o.IdempotencyKey, Valid: o.IdempotencyKey != ""},
		CreatedAt:                o.CreatedAt,
	}
}

var orderColumns = []string{
	"id",
	"customer_name",
	"customer_phone",
	"customer_address",
	"customer_comment",
	"customer_telegram_username",
	"locale",
	"theme",
	"subtotal_uzs",
	"status",
	"idempotency_key",
	"created_at",
}

// PostgresOrderRepository represents a Postgres order repository.
type PostgresOrderRepository struct {
	conn GenericConn
	sb   sq.StatementBuilderType
}

// GenericConn is an interface that works with both pgxpool.Pool and pgx.Tx
type GenericConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// NewPostgresOrderRepository creates a new Postgres order repository.
func NewPostgresOrderRepository(conn GenericConn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert creates the order row. A duplicate idempotency key yields errs.ErrConflict.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	dal := OrderDalFromModel(&o)

	query, args, err := r.sb.
		Insert("orders").
		Columns(orderColumns...).
		Values(
			dal.Id,
			dal.CustomerName,
			dal.CustomerPhone,
			dal.CustomerAddress,
			dal.CustomerComment,
			dal.CustomerTelegramUsername,
			dal.Locale,
			dal.Theme,
			dal.SubtotalUZS,
			dal.Status,
			dal.IdempotencyKey,
			dal.CreatedAt,
		).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return order.Order{}, errs.ErrConflict
		}

		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	return o, nil
}

// UpdateSubtotal stores the computed order total.
func (r *PostgresOrderRepository) UpdateSubtotal(ctx context.Context, id uuid.UUID, subtotal int64) error {
	query, args, err := r.sb.
		Update("orders").
		Set("subtotal_uzs", subtotal).
		Where(sq.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update subtotal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}

	return nil
}

// UpdateStatus moves the order out of NEW. The condition on the current status
// makes the transition happen at most once even under concurrent deliveries.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error {
	query, args, err := r.sb.
		Update("orders").
		Set("status", string(status)).
		Where(sq.Eq{"id": id.String(), "status": string(order.StatusNew)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	return errs.ErrStatusFinal
}

// Get returns the order without its items.
func (r *PostgresOrderRepository) Get(ctx context.Context, id uuid.UUID) (order.Order, error) {
	return r.getOne(ctx, sq.Eq{"id": id.String()})
}

// GetByIdempotencyKey returns the order created with the given key.
func (r *PostgresOrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (order.Order, error) {
	return r.getOne(ctx, sq.Eq{"idempotency_key": key})
}

func (r *PostgresOrderRepository) getOne(ctx context.Context, where sq.Eq) (order.Order, error) {
	query, args, err := r.sb.
		Select(orderColumns...).
		From("orders").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build query: %w", err)
	}

	var dal OrderDal
	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&dal.Id,
		&dal.CustomerName,
		&dal.CustomerPhone,
		&dal.CustomerAddress,
		&dal.CustomerComment,
		&dal.CustomerTelegramUsername,
		&dal.Locale,
		&dal.Theme,
		&dal.SubtotalUZS,
		&dal.Status,
		&dal.IdempotencyKey,
		&dal.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return order.Order{}, errs.ErrNotFound
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to query order: %w", err)
	}

	return dal.ToModel(), nil
}

// ListPendingIDs returns ids of NEW orders created in [from, to), oldest first.
func (r *PostgresOrderRepository) ListPendingIDs(
	ctx context.Context,
	from, to time.Time,
	limit int,
) ([]uuid.UUID, error) {
	query, args, err := r.sb.
		Select("id").
		From("orders").
		Where(sq.Eq{"status": string(order.StatusNew)}).
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.Lt{"created_at": to}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending orders: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, limit)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending orders: %w", err)
	}

	return ids, nil
}
