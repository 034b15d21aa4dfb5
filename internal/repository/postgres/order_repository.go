package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/andresuchdata/oilhub/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type orderRepository struct {
	db *DB
}

func NewOrderRepository(db *DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

type historyRow struct {
	OrderID    int64         `db:"order_id"`
	Seq        int           `db:"seq"`
	FromStatus sql.NullInt16 `db:"from_status"`
	ToStatus   int16         `db:"to_status"`
	ChangedBy  string        `db:"changed_by"`
	Reason     string        `db:"reason"`
	ChangedAt  time.Time     `db:"changed_at"`
}

type itemRow struct {
	OrderID int64 `db:"order_id"`
	LineNo  int   `db:"line_no"`
	domain.OrderLineItem
}

const orderColumns = `
	id, order_no, requesting_branch_id, supplying_branch_id, supplying_branch_name,
	total_amount, status, requested_by, requested_at, approved_by, approved_at,
	notes, cancel_reason, updated_at
`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO orders (
				order_no, requesting_branch_id, supplying_branch_id, supplying_branch_name,
				total_amount, status, requested_by, requested_at, approved_by, approved_at,
				notes, cancel_reason, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id
		`
		err := tx.QueryRowxContext(ctx, query,
			order.OrderNo,
			order.RequestingBranchID,
			order.SupplyingBranchID,
			order.SupplyingBranchName,
			order.TotalAmount,
			order.Status,
			order.RequestedBy,
			order.RequestedAt,
			order.ApprovedBy,
			order.ApprovedAt,
			order.Notes,
			order.CancelReason,
			order.UpdatedAt,
		).Scan(&order.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		return writeChildren(ctx, tx, order)
	})
}

func (r *orderRepository) Save(ctx context.Context, order *domain.Order) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders SET
				supplying_branch_id = $2,
				supplying_branch_name = $3,
				total_amount = $4,
				status = $5,
				approved_by = $6,
				approved_at = $7,
				notes = $8,
				cancel_reason = $9,
				updated_at = $10
			WHERE id = $1
		`,
			order.ID,
			order.SupplyingBranchID,
			order.SupplyingBranchName,
			order.TotalAmount,
			order.Status,
			order.ApprovedBy,
			order.ApprovedAt,
			order.Notes,
			order.CancelReason,
			order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.NotFoundf("order %d", order.ID)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
			return fmt.Errorf("failed to clear order items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_status_history WHERE order_id = $1`, order.ID); err != nil {
			return fmt.Errorf("failed to clear order history: %w", err)
		}
		return writeChildren(ctx, tx, order)
	})
}

func writeChildren(ctx context.Context, tx *sqlx.Tx, order *domain.Order) error {
	itemStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO order_items (
			order_id, line_no, oil_type, requested_quantity, quantity, price_per_liter,
			total_amount, delivery_source, source_ref_id, source_label, transport_no
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer itemStmt.Close()

	for i, item := range order.Items {
		_, err := itemStmt.ExecContext(ctx,
			order.ID,
			i,
			string(item.OilType),
			item.RequestedQuantity,
			item.Quantity,
			item.PricePerLiter,
			item.TotalAmount,
			string(item.DeliverySource),
			item.SourceRefID,
			item.SourceLabel,
			item.TransportNo,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	historyStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO order_status_history (order_id, seq, from_status, to_status, changed_by, reason, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer historyStmt.Close()

	for i, change := range order.History {
		var from sql.NullInt16
		if change.From != nil {
			from = sql.NullInt16{Int16: int16(*change.From), Valid: true}
		}
		_, err := historyStmt.ExecContext(ctx, order.ID, i, from, int16(change.To), change.By, change.Reason, change.At)
		if err != nil {
			return fmt.Errorf("failed to insert order history: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	var order domain.Order
	err := sqlx.GetContext(ctx, r.db, &order, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, domain.NotFoundf("order %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	orders := []*domain.Order{&order}
	if err := r.loadChildren(ctx, orders); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`

	var args []interface{}
	var conditions []string
	argCounter := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCounter))
		args = append(args, *filter.Status)
		argCounter++
	}
	if filter.RequestingBranchID > 0 {
		conditions = append(conditions, fmt.Sprintf("requesting_branch_id = $%d", argCounter))
		args = append(args, filter.RequestingBranchID)
		argCounter++
	}
	if filter.SupplyingBranchID > 0 {
		conditions = append(conditions, fmt.Sprintf("supplying_branch_id = $%d", argCounter))
		args = append(args, filter.SupplyingBranchID)
		argCounter++
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY requested_at DESC, id DESC LIMIT $%d OFFSET $%d", argCounter, argCounter+1)
	args = append(args, limit, offset)

	var orders []*domain.Order
	if err := sqlx.SelectContext(ctx, r.db, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if err := r.loadChildren(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) loadChildren(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*domain.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	var items []itemRow
	if err := sqlx.SelectContext(ctx, r.db, &items, `
		SELECT order_id, line_no, oil_type, requested_quantity, quantity, price_per_liter,
			total_amount, delivery_source, source_ref_id, source_label, transport_no
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, line_no
	`, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	for _, row := range items {
		if o, ok := byID[row.OrderID]; ok {
			o.Items = append(o.Items, row.OrderLineItem)
		}
	}

	var history []historyRow
	if err := sqlx.SelectContext(ctx, r.db, &history, `
		SELECT order_id, seq, from_status, to_status, changed_by, reason, changed_at
		FROM order_status_history
		WHERE order_id = ANY($1)
		ORDER BY order_id, seq
	`, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to load order history: %w", err)
	}
	for _, row := range history {
		o, ok := byID[row.OrderID]
		if !ok {
			continue
		}
		change := domain.StatusChange{
			To:     domain.OrderStatus(row.ToStatus),
			By:     row.ChangedBy,
			Reason: row.Reason,
			At:     row.ChangedAt,
		}
		if row.FromStatus.Valid {
			from := domain.OrderStatus(row.FromStatus.Int16)
			change.From = &from
		}
		o.History = append(o.History, change)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
