package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/oilhub/backend-go/internal/cache"
	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/andresuchdata/oilhub/backend-go/internal/observability/metrics"
	"github.com/andresuchdata/oilhub/backend-go/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type CreateOrderItem struct {
	OilType       domain.OilType  `json:"oil_type"`
	Quantity      decimal.Decimal `json:"quantity"`
	PricePerLiter decimal.Decimal `json:"price_per_liter"`
}

type CreateOrderInput struct {
	RequestingBranchID int64             `json:"requesting_branch_id"`
	SupplyingBranchID  int64             `json:"supplying_branch_id"`
	RequestedBy        string            `json:"requested_by"`
	Notes              string            `json:"notes"`
	Items              []CreateOrderItem `json:"items"`
}

type CommitInput struct {
	Drafts            []AllocationDraft `json:"drafts"`
	ApproverID        string            `json:"approver_id"`
	SupplyingBranchID int64             `json:"supplying_branch_id"`
}

// TransitionInput is a manual status change. Status is a pointer so a missing status is told
// apart from pending_approval.
type TransitionInput struct {
	Status *domain.OrderStatus `json:"status"`
	Reason string              `json:"reason"`
	Actor  string              `json:"actor"`
}

// OrderService owns the order lifecycle: creation, approval commits and manual transitions.
// Writes on one order are serialized through the locker.
type OrderService struct {
	orders   repository.OrderRepository
	branches repository.BranchRepository
	workflow *AllocationWorkflow
	locker   cache.OrderLocker
	now      func() time.Time
}

func NewOrderService(
	orders repository.OrderRepository,
	branches repository.BranchRepository,
	workflow *AllocationWorkflow,
	locker cache.OrderLocker,
) *OrderService {
	if locker == nil {
		locker = cache.NewLocalOrderLocker()
	}
	return &OrderService{
		orders:   orders,
		branches: branches,
		workflow: workflow,
		locker:   locker,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source, for tests.
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

func (s *OrderService) Workflow() *AllocationWorkflow {
	return s.workflow
}

func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	requestedBy := strings.TrimSpace(in.RequestedBy)
	if requestedBy == "" {
		return nil, domain.InvalidInputf("requested_by is required")
	}
	if len(in.Items) == 0 {
		return nil, domain.InvalidInputf("order needs at least one item")
	}
	if _, err := s.branches.GetBranch(ctx, in.RequestingBranchID); err != nil {
		return nil, err
	}

	var supplyingName string
	if in.SupplyingBranchID > 0 {
		branch, err := s.branches.GetBranch(ctx, in.SupplyingBranchID)
		if err != nil {
			return nil, err
		}
		supplyingName = branch.Name
	}

	items := make([]domain.OrderLineItem, 0, len(in.Items))
	for i, it := range in.Items {
		if !it.OilType.Valid() {
			return nil, domain.InvalidInputf("item %d: unknown oil type %q", i, it.OilType)
		}
		if !it.Quantity.IsPositive() {
			return nil, domain.InvalidInputf("item %d: quantity must be greater than zero", i)
		}
		if it.PricePerLiter.IsNegative() {
			return nil, domain.InvalidInputf("item %d: price cannot be negative", i)
		}
		items = append(items, domain.OrderLineItem{
			OilType:           it.OilType,
			RequestedQuantity: it.Quantity,
			Quantity:          it.Quantity,
			PricePerLiter:     it.PricePerLiter,
			DeliverySource:    domain.DeliveryNone,
		})
	}

	now := s.now()
	order := &domain.Order{
		OrderNo:             newOrderNo(now),
		RequestingBranchID:  in.RequestingBranchID,
		SupplyingBranchID:   in.SupplyingBranchID,
		SupplyingBranchName: supplyingName,
		Items:               items,
		Status:              domain.StatusPendingApproval,
		RequestedBy:         requestedBy,
		RequestedAt:         now,
		Notes:               in.Notes,
		UpdatedAt:           now,
		History: []domain.StatusChange{{
			To: domain.StatusPendingApproval,
			By: requestedBy,
			At: now,
		}},
	}
	order.Recalculate()

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	log.Info().
		Int64("order_id", order.ID).
		Str("order_no", order.OrderNo).
		Int64("branch_id", order.RequestingBranchID).
		Msg("order requested")
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.orders.Get(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	return s.orders.List(ctx, filter)
}

// StartApproval loads the order and seeds its approval drafts.
func (s *OrderService) StartApproval(ctx context.Context, orderID int64) ([]AllocationDraft, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.workflow.StartApproval(ctx, order)
}

// Commit approves the order with the given drafts. Availability is re-read and every line
// validated first; on any error nothing is written.
func (s *OrderService) Commit(ctx context.Context, orderID int64, in CommitInput) (order *domain.Order, err error) {
	start := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveCommit(result, time.Since(start))
	}()

	approver := strings.TrimSpace(in.ApproverID)
	if approver == "" {
		return nil, domain.InvalidInputf("approver_id is required")
	}

	unlock, err := s.lock(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(in.Drafts) == 0 {
		return nil, domain.ErrEmptyAllocation
	}
	if !domain.CanTransition(current.Status, domain.StatusApproved) {
		return nil, &domain.InvalidTransitionError{Current: current.Status, Requested: domain.StatusApproved}
	}

	supplyingID := in.SupplyingBranchID
	if supplyingID <= 0 {
		supplyingID = in.Drafts[0].AssignedFromBranchID
	}
	supplier, err := s.branches.GetBranch(ctx, supplyingID)
	if err != nil {
		return nil, err
	}

	drafts := cloneDrafts(in.Drafts)
	var mismatched domain.ValidationErrors
	for i := range drafts {
		if drafts[i].AssignedFromBranchID <= 0 {
			drafts[i].AssignedFromBranchID = supplyingID
		}
		if drafts[i].AssignedFromBranchID != supplyingID {
			mismatched = append(mismatched, domain.ValidationError{
				Line:   i,
				Reason: domain.ReasonMissingSource,
				Message: fmt.Sprintf("line is assigned to branch %d but the order is supplied by branch %d",
					drafts[i].AssignedFromBranchID, supplyingID),
			})
		}
	}

	drafts, err = s.workflow.Refresh(ctx, drafts)
	if err != nil {
		return nil, err
	}
	drafts, unbound, err := s.workflow.Rebind(ctx, drafts)
	if err != nil {
		return nil, err
	}
	violations := append(mismatched, unbound...)
	violations = append(violations, s.workflow.Validate(drafts)...)
	if len(violations) > 0 {
		for _, v := range violations {
			metrics.IncViolation(string(v.Reason))
		}
		log.Warn().
			Int64("order_id", orderID).
			Int("violations", len(violations)).
			Msg("allocation rejected")
		return nil, violations
	}

	now := s.now()
	updated := current.Clone()
	updated.Items = make([]domain.OrderLineItem, len(drafts))
	for i, d := range drafts {
		updated.Items[i] = d.OrderLineItem
	}
	updated.SupplyingBranchID = supplier.ID
	updated.SupplyingBranchName = supplier.Name
	updated.ApprovedBy = &approver
	updated.ApprovedAt = &now
	updated.Recalculate()

	if err := updated.TransitionTo(domain.StatusApproved, approver, "", now); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to persist approved order: %w", err)
	}

	metrics.IncTransition(domain.StatusApproved.String(), metrics.ResultSuccess)
	log.Info().
		Int64("order_id", orderID).
		Int64("branch_id", supplier.ID).
		Str("total_amount", updated.TotalAmount.StringFixed(2)).
		Msg("order approved")
	return updated, nil
}

// Transition applies a manual lifecycle step. Approval only happens through Commit.
func (s *OrderService) Transition(ctx context.Context, orderID int64, in TransitionInput) (*domain.Order, error) {
	if in.Status == nil {
		return nil, domain.InvalidInputf("status is required")
	}
	status := *in.Status
	actor := strings.TrimSpace(in.Actor)
	if actor == "" {
		return nil, domain.InvalidInputf("actor is required")
	}

	unlock, err := s.lock(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if status == domain.StatusApproved {
		metrics.IncTransition(status.String(), metrics.ResultError)
		return nil, &domain.InvalidTransitionError{
			Current:   current.Status,
			Requested: status,
			Detail:    "approval requires an allocation commit",
		}
	}

	updated := current.Clone()
	if err := updated.TransitionTo(status, actor, in.Reason, s.now()); err != nil {
		metrics.IncTransition(status.String(), metrics.ResultError)
		return nil, err
	}
	if err := s.orders.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to persist order transition: %w", err)
	}

	metrics.IncTransition(status.String(), metrics.ResultSuccess)
	log.Info().
		Int64("order_id", orderID).
		Str("from", current.Status.String()).
		Str("to", updated.Status.String()).
		Msg("order transitioned")
	return updated, nil
}

func (s *OrderService) lock(ctx context.Context, orderID int64) (func(), error) {
	start := time.Now()
	unlock, err := s.locker.Lock(ctx, orderID)
	metrics.ObserveLockWait(time.Since(start))
	if err != nil {
		if errors.Is(err, cache.ErrLockTimeout) {
			log.Warn().Int64("order_id", orderID).Msg("order is locked by another writer")
		}
		return nil, err
	}
	return unlock, nil
}

func newOrderNo(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("REQ-%s-%s", at.Format("20060102"), suffix)
}
