package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/dunya-jewellery/shop/internal/service/models/orderitem"
	"github.com/dunya-jewellery/shop/internal/service/models/size"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderItemDal represents order item data access layer model.
type OrderItemDal struct {
	Id                  int64       `db:"id"`
	OrderId             uuid.UUID   `db:"order_id"`
	ProductId           pgtype.Int8 `db:"product_id"`
	TitleSnapshot       string      `db:"title_snapshot"`
	DescriptionSnapshot string      `db:"description_snapshot"`
	PriceSnapshotUZS    int64       `db:"price_snapshot_uzs"`
	ImageURLSnapshot    string      `db:"image_url_snapshot"`
	Qty                 int         `db:"qty"`
	SelectedSize        string      `db:"selected_size"`
}

// ToModel converts OrderItemDal to service layer OrderItem model.
func (oi *OrderItemDal) ToModel() (orderitem.OrderItem, error) {
	selected, err := size.Parse(oi.SelectedSize)
	if err != nil {
		return orderitem.OrderItem{}, err
	}

	return orderitem.OrderItem{
		ID:                  oi.Id,
		OrderID:             oi.OrderId,
		ProductID:           oi.ProductId.Int64,
		TitleSnapshot:       oi.TitleSnapshot,
		DescriptionSnapshot: oi.DescriptionSnapshot,
		PriceSnapshotUZS:    oi.PriceSnapshotUZS,
		ImageURLSnapshot:    oi.ImageURLSnapshot,
		Quantity:            oi.Qty,
		SelectedSize:        selected,
	}, nil
}

// PostgresOrderItemRepository represents a Postgres order item repository.
type PostgresOrderItemRepository struct {
	conn GenericConn
	sb   sq.StatementBuilderType
}

// GenericConn is an interface that works with both pgxpool.Pool and pgx.Tx
type GenericConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// NewPostgresOrderItemRepository creates a new Postgres order item repository.
func NewPostgresOrderItemRepository(conn GenericConn) *PostgresOrderItemRepository {
	return &PostgresOrderItemRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// BulkInsert inserts the items in one statement and returns them with their IDs,
// in the order they were given.
func (r *PostgresOrderItemRepository) BulkInsert(
	ctx context.Context,
	orderItems []orderitem.OrderItem,
) ([]orderitem.OrderItem, error) {
	if len(orderItems) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	builder := r.sb.
		Insert("order_items").
		Columns(
			"order_id",
			"product_id",
			"title_snapshot",
			"description_snapshot",
			"price_snapshot_uzs",
			"image_url_snapshot",
			"qty",
			"selected_size",
		).
		Suffix("RETURNING id")

	for _, oi := range orderItems {
		builder = builder.Values(
			oi.OrderID,
			pgtype.Int8{Int64: oi.ProductID, Valid: oi.ProductID != 0},
			oi.TitleSnapshot,
			oi.DescriptionSnapshot,
			oi.PriceSnapshotUZS,
			oi.ImageURLSnapshot,
			oi.Quantity,
			sq.Expr("?::text::numeric", oi.SelectedSize.String()),
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert order items: %w", err)
	}
	defer rows.Close()

	result := make([]orderitem.OrderItem, len(orderItems))
	copy(result, orderItems)

	i := 0
	for rows.Next() {
		if i >= len(result) {
			return nil, fmt.Errorf("unexpected number of inserted order items")
		}
		if err := rows.Scan(&result[i].ID); err != nil {
			return nil, fmt.Errorf("failed to scan order item id: %w", err)
		}
		i++
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Query retrieves order items based on filter criteria, ordered by insertion.
func (r *PostgresOrderItemRepository) Query(
	ctx context.Context,
	filter *orderitem.QueryOrderItemsModel,
) ([]orderitem.OrderItem, error) {
	query := r.sb.
		Select(
			"id",
			"order_id",
			"product_id",
			"title_snapshot",
			"description_snapshot",
			"price_snapshot_uzs",
			"image_url_snapshot",
			"qty",
			"selected_size::text",
		).
		From("order_items").
		OrderBy("id")

	if len(filter.Ids) > 0 {
		query = query.Where(sq.Eq{"id": filter.Ids})
	}

	if len(filter.OrderIds) > 0 {
		orderIds := make([]string, len(filter.OrderIds))
		for i, id := range filter.OrderIds {
			orderIds[i] = id.String()
		}
		query = query.Where(sq.Eq{"order_id": orderIds})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var result []orderitem.OrderItem
	for rows.Next() {
		var dal OrderItemDal

		err := rows.Scan(
			&dal.Id,
			&dal.OrderId,
			&dal.ProductId,
			&dal.TitleSnapshot,
			&dal.DescriptionSnapshot,
			&dal.PriceSnapshotUZS,
			&dal.ImageURLSnapshot,
			&dal.Qty,
			&dal.SelectedSize,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		item, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order item %d: %w", dal.Id, err)
		}

		result = append(result, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
