package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/andresuchdata/oilhub/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type deliveryRepository struct {
	db *DB
}

func NewDeliveryRepository(db *DB) repository.DeliveryRepository {
	return &deliveryRepository{db: db}
}

func (r *deliveryRepository) FindDeliveries(ctx context.Context, filter domain.DeliveryFilter) ([]*domain.Delivery, error) {
	query := `
		SELECT
			d.id, d.delivery_no, d.order_no, d.from_branch_id, d.to_branch_id,
			d.status, d.transport_no, d.dispatched_at, d.arrived_at
		FROM deliveries d
		WHERE 1=1
	`

	var args []interface{}
	var conditions []string
	argCounter := 1

	if filter.FromBranchID > 0 {
		conditions = append(conditions, fmt.Sprintf("d.from_branch_id = $%d", argCounter))
		args = append(args, filter.FromBranchID)
		argCounter++
	}
	if filter.ToBranchID > 0 {
		conditions = append(conditions, fmt.Sprintf("d.to_branch_id = $%d", argCounter))
		args = append(args, filter.ToBranchID)
		argCounter++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("d.status = $%d", argCounter))
		args = append(args, string(filter.Status))
		argCounter++
	}
	if filter.OilType != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM delivery_items i WHERE i.delivery_id = d.id AND i.oil_type = $%d)", argCounter))
		args = append(args, string(filter.OilType))
		argCounter++
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY d.id"

	var deliveries []*domain.Delivery
	if err := sqlx.SelectContext(ctx, r.db, &deliveries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find deliveries: %w", err)
	}
	if len(deliveries) == 0 {
		return deliveries, nil
	}

	ids := make([]int64, len(deliveries))
	byID := make(map[int64]*domain.Delivery, len(deliveries))
	for i, d := range deliveries {
		ids[i] = d.ID
		byID[d.ID] = d
	}

	var items []domain.DeliveryItem
	itemQuery := `
		SELECT delivery_id, oil_type, quantity, kept_on_truck_quantity
		FROM delivery_items
		WHERE delivery_id = ANY($1)
		ORDER BY delivery_id, oil_type
	`
	if err := sqlx.SelectContext(ctx, r.db, &items, itemQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to load delivery items: %w", err)
	}
	for _, item := range items {
		if d, ok := byID[item.DeliveryID]; ok {
			d.Items = append(d.Items, item)
		}
	}

	return deliveries, nil
}

type reclaimRepository struct {
	db *DB
}

func NewReclaimRepository(db *DB) repository.ReclaimRepository {
	return &reclaimRepository{db: db}
}

func (r *reclaimRepository) ListReclaims(ctx context.Context, branchID int64, oilType *domain.OilType) ([]*domain.ReclaimRecord, error) {
	query := `
		SELECT id, branch_id, oil_type, quantity, note, source_order_no, recorded_at
		FROM reclaim_records
		WHERE branch_id = $1 AND quantity > 0
	`
	args := []interface{}{branchID}
	if oilType != nil {
		query += " AND oil_type = $2"
		args = append(args, string(*oilType))
	}
	query += " ORDER BY recorded_at, id"

	var records []*domain.ReclaimRecord
	if err := sqlx.SelectContext(ctx, r.db, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list reclaim records: %w", err)
	}
	return records, nil
}

type branchRepository struct {
	db *DB
}

func NewBranchRepository(db *DB) repository.BranchRepository {
	return &branchRepository{db: db}
}

func (r *branchRepository) GetBranch(ctx context.Context, id int64) (*domain.Branch, error) {
	var branch domain.Branch
	err := sqlx.GetContext(ctx, r.db, &branch, `
		SELECT id, name, is_hub, created_at, updated_at
		FROM branches
		WHERE id = $1
	`, id)
	if isNoRows(err) {
		return nil, domain.NotFoundf("branch %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	return &branch, nil
}

func (r *branchRepository) ListBranches(ctx context.Context) ([]*domain.Branch, error) {
	var branches []*domain.Branch
	if err := sqlx.SelectContext(ctx, r.db, &branches, `
		SELECT id, name, is_hub, created_at, updated_at
		FROM branches
		ORDER BY id
	`); err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	return branches, nil
}
