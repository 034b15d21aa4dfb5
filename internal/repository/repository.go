package repository

import (
	"context"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
)

// DeliveryRepository reads truck runs between branches.
type DeliveryRepository interface {
	FindDeliveries(ctx context.Context, filter domain.DeliveryFilter) ([]*domain.Delivery, error)
}

// ReclaimRepository reads the suction/cleaning ledger. A nil oilType lists every grade.
type ReclaimRepository interface {
	ListReclaims(ctx context.Context, branchID int64, oilType *domain.OilType) ([]*domain.ReclaimRecord, error)
}

// BranchRepository is the branch directory.
type BranchRepository interface {
	GetBranch(ctx context.Context, id int64) (*domain.Branch, error)
	ListBranches(ctx context.Context) ([]*domain.Branch, error)
}

// OrderRepository persists branch requests. Get returns an error wrapping domain.ErrNotFound
// for unknown ids.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id int64) (*domain.Order, error)
	Save(ctx context.Context, order *domain.Order) error
	List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
}
