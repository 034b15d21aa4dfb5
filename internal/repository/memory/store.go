// Package memory provides in-process repositories used by tests and the memory store mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/andresuchdata/oilhub/backend-go/internal/repository"
)

// Store holds every ledger the engine reads plus the orders it writes.
type Store struct {
	mu          sync.RWMutex
	branches    map[int64]domain.Branch
	deliveries  []domain.Delivery
	reclaims    []domain.ReclaimRecord
	orders      map[int64]*domain.Order
	nextOrderID int64
	nextID      int64
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		branches: make(map[int64]domain.Branch),
		orders:   make(map[int64]*domain.Order),
	}
}

// Verify interface compliance
var (
	_ repository.BranchRepository   = (*Store)(nil)
	_ repository.DeliveryRepository = (*Store)(nil)
	_ repository.ReclaimRepository  = (*Store)(nil)
	_ repository.OrderRepository    = (*Store)(nil)
)

// AddBranch registers or replaces a branch.
func (s *Store) AddBranch(b domain.Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches[b.ID] = b
}

// AddDelivery appends a delivery, assigning an id when missing. Items repeating a grade are
// merged into one, matching the unique (delivery_id, oil_type) key of the postgres schema.
func (s *Store) AddDelivery(d domain.Delivery) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		s.nextID++
		d.ID = s.nextID
	}
	d.Items = mergeItems(d.ID, d.Items)
	s.deliveries = append(s.deliveries, d)
	return d.ID
}

func mergeItems(deliveryID int64, items []domain.DeliveryItem) []domain.DeliveryItem {
	out := make([]domain.DeliveryItem, 0, len(items))
	index := make(map[domain.OilType]int, len(items))
	for _, item := range items {
		item.DeliveryID = deliveryID
		if i, ok := index[item.OilType]; ok {
			out[i].Quantity = out[i].Quantity.Add(item.Quantity)
			out[i].KeptOnTruckQuantity = out[i].KeptOnTruckQuantity.Add(item.KeptOnTruckQuantity)
			continue
		}
		index[item.OilType] = len(out)
		out = append(out, item)
	}
	return out
}

// SetDeliveryStatus changes a delivery's status, e.g. when a truck arrives.
func (s *Store) SetDeliveryStatus(id int64, status domain.DeliveryStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.deliveries {
		if s.deliveries[i].ID == id {
			s.deliveries[i].Status = status
			return true
		}
	}
	return false
}

// AddReclaim appends a reclaim ledger entry, assigning an id when missing.
func (s *Store) AddReclaim(r domain.ReclaimRecord) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		s.nextID++
		r.ID = s.nextID
	}
	s.reclaims = append(s.reclaims, r)
	return r.ID
}

func (s *Store) GetBranch(ctx context.Context, id int64) (*domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.branches[id]
	if !ok {
		return nil, domain.NotFoundf("branch %d", id)
	}
	return &b, nil
}

func (s *Store) ListBranches(ctx context.Context) ([]*domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindDeliveries(ctx context.Context, filter domain.DeliveryFilter) ([]*domain.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Delivery
	for _, d := range s.deliveries {
		if filter.FromBranchID > 0 && d.FromBranchID != filter.FromBranchID {
			continue
		}
		if filter.ToBranchID > 0 && d.ToBranchID != filter.ToBranchID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.OilType != "" && !carries(d, filter.OilType) {
			continue
		}
		c := d
		c.Items = append([]domain.DeliveryItem(nil), d.Items...)
		out = append(out, &c)
	}
	return out, nil
}

func carries(d domain.Delivery, oil domain.OilType) bool {
	for _, item := range d.Items {
		if item.OilType == oil {
			return true
		}
	}
	return false
}

func (s *Store) ListReclaims(ctx context.Context, branchID int64, oilType *domain.OilType) ([]*domain.ReclaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.ReclaimRecord
	for _, r := range s.reclaims {
		if r.BranchID != branchID || !r.Quantity.IsPositive() {
			continue
		}
		if oilType != nil && r.OilType != *oilType {
			continue
		}
		r := r
		out = append(out, &r)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrderID++
	order.ID = s.nextOrderID
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.NotFoundf("order %d", id)
	}
	return o.Clone(), nil
}

func (s *Store) Save(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; !ok {
		return domain.NotFoundf("order %d", order.ID)
	}
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *Store) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Order
	for _, o := range s.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.RequestingBranchID > 0 && o.RequestingBranchID != filter.RequestingBranchID {
			continue
		}
		if filter.SupplyingBranchID > 0 && o.SupplyingBranchID != filter.SupplyingBranchID {
			continue
		}
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*domain.Order{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}
