package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// AllocationDraft is one line under approval: the line item plus the supplying branch and the
// availability ceiling last read for it.
type AllocationDraft struct {
	domain.OrderLineItem
	AssignedFromBranchID int64             `json:"assigned_from_branch_id"`
	BranchTotalAvailable decimal.Decimal   `json:"branch_total_available"`
	OriginKind           domain.OriginKind `json:"origin_kind"`
}

type availabilityReader interface {
	TotalAvailable(ctx context.Context, branchID int64, oilType domain.OilType) (decimal.Decimal, error)
}

type sourceFinder interface {
	FindSource(ctx context.Context, branchID int64, oilType domain.OilType, id string) (*domain.SourceRecord, error)
}

// AllocationWorkflow edits approval drafts. Every operation returns a new slice and leaves
// its input untouched.
type AllocationWorkflow struct {
	availability availabilityReader
	sources      sourceFinder
	hubBranchID  int64
}

func NewAllocationWorkflow(availability availabilityReader, sources sourceFinder, hubBranchID int64) *AllocationWorkflow {
	return &AllocationWorkflow{availability: availability, sources: sources, hubBranchID: hubBranchID}
}

// StartApproval seeds one draft per requested line, supplied by the order's suggested branch or the hub.
func (w *AllocationWorkflow) StartApproval(ctx context.Context, order *domain.Order) ([]AllocationDraft, error) {
	if order.Status != domain.StatusPendingApproval {
		return nil, &domain.InvalidTransitionError{Current: order.Status, Requested: domain.StatusApproved}
	}

	branchID := order.SupplyingBranchID
	if branchID <= 0 {
		branchID = w.hubBranchID
	}

	drafts := make([]AllocationDraft, 0, len(order.Items))
	for _, item := range order.Items {
		d := AllocationDraft{
			OrderLineItem:        item,
			AssignedFromBranchID: branchID,
		}
		d.Quantity = item.RequestedQuantity
		clearBinding(&d)
		d.Recalculate()
		drafts = append(drafts, d)
	}

	return w.Refresh(ctx, drafts)
}

// AddLine appends a blank line for an item that was not part of the original request. A zero
// branchID binds it to the first line's branch, or the hub.
func (w *AllocationWorkflow) AddLine(drafts []AllocationDraft, branchID int64) []AllocationDraft {
	if branchID <= 0 {
		branchID = w.hubBranchID
		if len(drafts) > 0 && drafts[0].AssignedFromBranchID > 0 {
			branchID = drafts[0].AssignedFromBranchID
		}
	}

	out := cloneDrafts(drafts)
	blank := AllocationDraft{
		OrderLineItem: domain.OrderLineItem{
			RequestedQuantity: decimal.Zero,
			Quantity:          decimal.Zero,
			PricePerLiter:     decimal.Zero,
			TotalAmount:       decimal.Zero,
			DeliverySource:    domain.DeliveryNone,
		},
		AssignedFromBranchID: branchID,
		BranchTotalAvailable: decimal.Zero,
	}
	return append(out, blank)
}

func (w *AllocationWorkflow) RemoveLine(drafts []AllocationDraft, index int) ([]AllocationDraft, error) {
	if err := checkIndex(drafts, index); err != nil {
		return nil, err
	}
	out := make([]AllocationDraft, 0, len(drafts)-1)
	out = append(out, drafts[:index]...)
	return append(out, drafts[index+1:]...), nil
}

// SetOilType changes a line's grade. The source binding is dropped and availability re-read.
func (w *AllocationWorkflow) SetOilType(ctx context.Context, drafts []AllocationDraft, index int, oilType domain.OilType) ([]AllocationDraft, error) {
	if err := checkIndex(drafts, index); err != nil {
		return nil, err
	}
	if !oilType.Valid() {
		return nil, domain.InvalidInputf("unknown oil type %q", oilType)
	}

	out := cloneDrafts(drafts)
	d := &out[index]
	d.OilType = oilType
	clearBinding(d)

	available, err := w.availability.TotalAvailable(ctx, d.AssignedFromBranchID, oilType)
	if err != nil {
		return nil, err
	}
	d.BranchTotalAvailable = available
	return out, nil
}

// SetSource binds a line to a source record id, to DepotSourceRef, or clears it with "".
// Binding a record smaller than the line's quantity clamps the quantity down to the record.
func (w *AllocationWorkflow) SetSource(ctx context.Context, drafts []AllocationDraft, index int, ref string) ([]AllocationDraft, error) {
	if err := checkIndex(drafts, index); err != nil {
		return nil, err
	}

	out := cloneDrafts(drafts)
	d := &out[index]

	switch ref {
	case "":
		clearBinding(d)
	case DepotSourceRef:
		d.SourceRefID = ""
		d.SourceLabel = DepotSourceRef
		d.OriginKind = 0
		d.DeliverySource = domain.DeliveryTruck
	default:
		record, err := w.sources.FindSource(ctx, d.AssignedFromBranchID, d.OilType, ref)
		if err != nil {
			return nil, err
		}
		d.SourceRefID = record.ID
		d.SourceLabel = record.Label
		d.OriginKind = record.OriginKind
		d.DeliverySource = record.OriginKind.DeliverySource()
		if record.Quantity.LessThan(d.Quantity) {
			d.Quantity = record.Quantity
		}
	}

	d.Recalculate()
	return out, nil
}

// SetQuantity sets the amount to deliver. Negative amounts are rejected outright; zero is
// accepted here and reported by Validate.
func (w *AllocationWorkflow) SetQuantity(drafts []AllocationDraft, index int, qty decimal.Decimal) ([]AllocationDraft, error) {
	if err := checkIndex(drafts, index); err != nil {
		return nil, err
	}
	if qty.IsNegative() {
		return nil, domain.ValidationErrors{{
			Line:    index,
			Reason:  domain.ReasonQuantityNonPositive,
			Message: "quantity cannot be negative",
		}}
	}

	out := cloneDrafts(drafts)
	out[index].Quantity = qty
	out[index].Recalculate()
	return out, nil
}

func (w *AllocationWorkflow) SetPrice(drafts []AllocationDraft, index int, price decimal.Decimal) ([]AllocationDraft, error) {
	if err := checkIndex(drafts, index); err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, domain.InvalidInputf("line %d: price cannot be negative", index)
	}

	out := cloneDrafts(drafts)
	out[index].PricePerLiter = price
	out[index].Recalculate()
	return out, nil
}

// SetBranch moves every line to another supplying branch. Sources belong to a branch, so
// all bindings are cleared.
func (w *AllocationWorkflow) SetBranch(ctx context.Context, drafts []AllocationDraft, branchID int64) ([]AllocationDraft, error) {
	if branchID <= 0 {
		return nil, domain.InvalidInputf("branch id must be positive, got %d", branchID)
	}

	out := cloneDrafts(drafts)
	for i := range out {
		out[i].AssignedFromBranchID = branchID
		clearBinding(&out[i])
		out[i].Recalculate()
	}
	return w.Refresh(ctx, out)
}

// Refresh re-reads the availability ceiling of every line.
func (w *AllocationWorkflow) Refresh(ctx context.Context, drafts []AllocationDraft) ([]AllocationDraft, error) {
	type key struct {
		branchID int64
		oilType  domain.OilType
	}
	seen := make(map[key]decimal.Decimal)

	out := cloneDrafts(drafts)
	for i := range out {
		d := &out[i]
		if d.AssignedFromBranchID <= 0 || !d.OilType.Valid() {
			d.BranchTotalAvailable = decimal.Zero
			continue
		}
		k := key{d.AssignedFromBranchID, d.OilType}
		available, ok := seen[k]
		if !ok {
			var err error
			available, err = w.availability.TotalAvailable(ctx, d.AssignedFromBranchID, d.OilType)
			if err != nil {
				return nil, fmt.Errorf("refresh line %d availability: %w", i, err)
			}
			seen[k] = available
		}
		d.BranchTotalAvailable = available
	}
	return out, nil
}

// Rebind resolves every line's source binding again from the catalog. Label, origin and
// delivery source come from the record, never from the caller. A bound record that is gone,
// or smaller than the line, is reported. Lines without a record keep a truck or none source;
// anything else is left for Validate to reject.
func (w *AllocationWorkflow) Rebind(ctx context.Context, drafts []AllocationDraft) ([]AllocationDraft, domain.ValidationErrors, error) {
	out := cloneDrafts(drafts)
	var errs domain.ValidationErrors
	for i := range out {
		d := &out[i]
		d.SourceRefID = strings.TrimSpace(d.SourceRefID)

		if d.SourceRefID == "" {
			switch d.DeliverySource {
			case domain.DeliveryTruck:
				d.SourceLabel = DepotSourceRef
				d.OriginKind = 0
			case domain.DeliveryNone:
				clearBinding(d)
			}
			d.Recalculate()
			continue
		}

		if d.AssignedFromBranchID <= 0 || !d.OilType.Valid() {
			continue
		}
		record, err := w.sources.FindSource(ctx, d.AssignedFromBranchID, d.OilType, d.SourceRefID)
		if errors.Is(err, domain.ErrNotFound) {
			errs = append(errs, domain.ValidationError{
				Line:   i,
				Reason: domain.ReasonMissingSource,
				Message: fmt.Sprintf("source %s is not available at branch %d for %s",
					d.SourceRefID, d.AssignedFromBranchID, d.OilType),
			})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("rebind line %d: %w", i, err)
		}

		d.SourceLabel = record.Label
		d.OriginKind = record.OriginKind
		d.DeliverySource = record.OriginKind.DeliverySource()
		if d.Quantity.GreaterThan(record.Quantity) {
			errs = append(errs, domain.ValidationError{
				Line:   i,
				Reason: domain.ReasonQuantityExceedsAvailable,
				Message: fmt.Sprintf("quantity %s exceeds %s held by source %s",
					d.Quantity.String(), record.Quantity.String(), record.ID),
			})
		}
		d.Recalculate()
	}
	return out, errs, nil
}

// Validate reports every violation across all lines. It only reads the drafts, so repeated
// calls on the same input give the same result.
func (w *AllocationWorkflow) Validate(drafts []AllocationDraft) domain.ValidationErrors {
	type key struct {
		branchID int64
		oilType  domain.OilType
	}
	claimed := make(map[key]decimal.Decimal)

	var errs domain.ValidationErrors
	for i, d := range drafts {
		if d.AssignedFromBranchID <= 0 || !d.OilType.Valid() {
			errs = append(errs, domain.ValidationError{
				Line:    i,
				Reason:  domain.ReasonMissingSource,
				Message: "line needs a supplying branch and a valid oil type",
			})
		}
		switch {
		case !d.DeliverySource.Valid():
			errs = append(errs, domain.ValidationError{
				Line:    i,
				Reason:  domain.ReasonMissingSource,
				Message: fmt.Sprintf("unknown delivery source %q", d.DeliverySource),
			})
		case d.DeliverySource == domain.DeliverySuction && d.SourceRefID == "":
			errs = append(errs, domain.ValidationError{
				Line:    i,
				Reason:  domain.ReasonMissingSource,
				Message: "suction delivery needs a reclaim record",
			})
		}
		if d.PricePerLiter.IsNegative() {
			errs = append(errs, domain.ValidationError{
				Line:    i,
				Reason:  domain.ReasonPriceNegative,
				Message: fmt.Sprintf("price per liter cannot be negative, got %s", d.PricePerLiter.String()),
			})
		}

		if !d.Quantity.IsPositive() {
			errs = append(errs, domain.ValidationError{
				Line:    i,
				Reason:  domain.ReasonQuantityNonPositive,
				Message: fmt.Sprintf("quantity must be greater than zero, got %s", d.Quantity.String()),
			})
			continue
		}

		if d.Quantity.GreaterThan(d.BranchTotalAvailable) {
			errs = append(errs, domain.ValidationError{
				Line:   i,
				Reason: domain.ReasonQuantityExceedsAvailable,
				Message: fmt.Sprintf("quantity %s exceeds available %s at branch %d",
					d.Quantity.String(), d.BranchTotalAvailable.String(), d.AssignedFromBranchID),
			})
			continue
		}

		k := key{d.AssignedFromBranchID, d.OilType}
		running := claimed[k].Add(d.Quantity)
		if running.GreaterThan(d.BranchTotalAvailable) {
			errs = append(errs, domain.ValidationError{
				Line:   i,
				Reason: domain.ReasonQuantityExceedsAvailable,
				Message: fmt.Sprintf("lines for %s at branch %d total %s, available %s",
					d.OilType, d.AssignedFromBranchID, running.String(), d.BranchTotalAvailable.String()),
			})
			continue
		}
		claimed[k] = running
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func clearBinding(d *AllocationDraft) {
	d.SourceRefID = ""
	d.SourceLabel = ""
	d.OriginKind = 0
	d.DeliverySource = domain.DeliveryNone
}

func cloneDrafts(drafts []AllocationDraft) []AllocationDraft {
	return append(make([]AllocationDraft, 0, len(drafts)+1), drafts...)
}

func checkIndex(drafts []AllocationDraft, index int) error {
	if index < 0 || index >= len(drafts) {
		return domain.NotFoundf("draft line %d", index)
	}
	return nil
}
