package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
)

// IngestRepository loads externally owned ledgers (branches, deliveries, reclaims) for seeding.
type IngestRepository struct {
	db *sql.DB
}

func NewIngestRepository(db *sql.DB) *IngestRepository {
	return &IngestRepository{db: db}
}

func (r *IngestRepository) UpsertBranch(ctx context.Context, branch *domain.Branch) (int64, error) {
	query := `
		INSERT INTO branches (id, name, is_hub, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id)
		DO UPDATE SET name = EXCLUDED.name, is_hub = EXCLUDED.is_hub, updated_at = NOW()
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, branch.ID, branch.Name, branch.IsHub).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert branch: %w", err)
	}
	return id, nil
}

// UpsertDelivery writes the delivery header keyed by delivery_no and replaces its items.
func (r *IngestRepository) UpsertDelivery(ctx context.Context, delivery *domain.Delivery) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO deliveries (
			delivery_no, order_no, from_branch_id, to_branch_id, status,
			transport_no, dispatched_at, arrived_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (delivery_no)
		DO UPDATE SET
			order_no = EXCLUDED.order_no,
			from_branch_id = EXCLUDED.from_branch_id,
			to_branch_id = EXCLUDED.to_branch_id,
			status = EXCLUDED.status,
			transport_no = EXCLUDED.transport_no,
			dispatched_at = EXCLUDED.dispatched_at,
			arrived_at = EXCLUDED.arrived_at
		RETURNING id
	`
	var id int64
	err = tx.QueryRowContext(ctx, query,
		delivery.DeliveryNo,
		delivery.OrderNo,
		delivery.FromBranchID,
		delivery.ToBranchID,
		string(delivery.Status),
		delivery.TransportNo,
		delivery.DispatchedAt,
		delivery.ArrivedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert delivery: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM delivery_items WHERE delivery_id = $1`, id); err != nil {
		return 0, fmt.Errorf("failed to clear delivery items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO delivery_items (delivery_id, oil_type, quantity, kept_on_truck_quantity)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, item := range delivery.Items {
		if _, err := stmt.ExecContext(ctx, id, string(item.OilType), item.Quantity, item.KeptOnTruckQuantity); err != nil {
			return 0, fmt.Errorf("failed to insert delivery item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delivery: %w", err)
	}
	return id, nil
}

func (r *IngestRepository) InsertReclaim(ctx context.Context, record *domain.ReclaimRecord) (int64, error) {
	query := `
		INSERT INTO reclaim_records (branch_id, oil_type, quantity, note, source_order_no, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		record.BranchID,
		string(record.OilType),
		record.Quantity,
		record.Note,
		record.SourceOrderNo,
		record.RecordedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert reclaim record: %w", err)
	}
	return id, nil
}
