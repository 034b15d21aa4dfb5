package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
)

func startDrafts(t *testing.T, f *fixture, qty string) []AllocationDraft {
	t.Helper()
	order := f.requestDiesel(t, qty)
	drafts, err := f.orders.StartApproval(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("StartApproval: %v", err)
	}
	return drafts
}

func TestStartApprovalSeedsDrafts(t *testing.T) {
	f := newFixture(t)
	drafts := startDrafts(t, f, "1000")

	if len(drafts) != 1 {
		t.Fatalf("got %d drafts, want 1", len(drafts))
	}
	d := drafts[0]
	if d.AssignedFromBranchID != northBranchID {
		t.Errorf("AssignedFromBranchID = %d, want %d", d.AssignedFromBranchID, northBranchID)
	}
	if !d.Quantity.Equal(dec("1000")) || !d.RequestedQuantity.Equal(dec("1000")) {
		t.Errorf("quantities = %s/%s, want 1000/1000", d.Quantity, d.RequestedQuantity)
	}
	if !d.BranchTotalAvailable.Equal(dec("1300")) {
		t.Errorf("BranchTotalAvailable = %s, want 1300", d.BranchTotalAvailable)
	}
	if d.DeliverySource != domain.DeliveryNone || d.SourceRefID != "" {
		t.Errorf("draft should start unbound: %+v", d)
	}
}

func TestStartApprovalDefaultsToHub(t *testing.T) {
	f := newFixture(t)
	order, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
		RequestingBranchID: southBranchID,
		RequestedBy:        "south-manager",
		Items:              []CreateOrderItem{{OilType: domain.OilDiesel, Quantity: dec("10"), PricePerLiter: dec("30")}},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	drafts, err := f.orders.StartApproval(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("StartApproval: %v", err)
	}
	if drafts[0].AssignedFromBranchID != hubBranchID {
		t.Errorf("AssignedFromBranchID = %d, want hub %d", drafts[0].AssignedFromBranchID, hubBranchID)
	}
}

func TestValidateAvailabilityBoundary(t *testing.T) {
	tests := []struct {
		qty       string
		wantValid bool
	}{
		{qty: "1300", wantValid: true},
		{qty: "1300.00", wantValid: true},
		{qty: "1301", wantValid: false},
		{qty: "1300.01", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.qty, func(t *testing.T) {
			f := newFixture(t)
			drafts := startDrafts(t, f, "1000")

			drafts, err := f.workflow.SetQuantity(drafts, 0, dec(tt.qty))
			if err != nil {
				t.Fatalf("SetQuantity: %v", err)
			}
			errs := f.workflow.Validate(drafts)
			if tt.wantValid && errs != nil {
				t.Fatalf("expected valid, got %v", errs)
			}
			if !tt.wantValid && !errs.Has(0, domain.ReasonQuantityExceedsAvailable) {
				t.Fatalf("expected QuantityExceedsAvailable on line 0, got %v", errs)
			}
		})
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	drafts := startDrafts(t, f, "1000")
	drafts = f.workflow.AddLine(drafts, 0)
	drafts, _ = f.workflow.SetQuantity(drafts, 0, dec("1500"))

	first := f.workflow.Validate(drafts)
	second := f.workflow.Validate(drafts)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("validate not idempotent:\n%v\n%v", first, second)
	}
	if len(first) == 0 {
		t.Fatal("expected violations")
	}
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	f := newFixture(t)
	drafts := startDrafts(t, f, "1000")
	drafts = f.workflow.AddLine(drafts, 0)
	drafts, _ = f.workflow.SetQuantity(drafts, 0, dec("1400"))

	errs := f.workflow.Validate(drafts)
	if !errs.Has(0, domain.ReasonQuantityExceedsAvailable) {
		t.Errorf("line 0 should exceed availability: %v", errs)
	}
	if !errs.Has(1, domain.ReasonMissingSource) {
		t.Errorf("blank line 1 should miss its grade: %v", errs)
	}
	if !errs.Has(1, domain.ReasonQuantityNonPositive) {
		t.Errorf("blank line 1 should have non-positive quantity: %v", errs)
	}
}

func TestValidateCumulativeLinesForSameGrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drafts := startDrafts(t, f, "800")
	drafts = f.workflow.AddLine(drafts, 0)

	drafts, err := f.workflow.SetOilType(ctx, drafts, 1, domain.OilDiesel)
	if err != nil {
		t.Fatalf("SetOilType: %v", err)
	}
	drafts, _ = f.workflow.SetQuantity(drafts, 1, dec("500"))
	if errs := f.workflow.Validate(drafts); errs != nil {
		t.Fatalf("800 + 500 should fit in 1300: %v", errs)
	}

	drafts, _ = f.workflow.SetQuantity(drafts, 1, dec("501"))
	errs := f.workflow.Validate(drafts)
	if !errs.Has(1, domain.ReasonQuantityExceedsAvailable) || errs.Has(0, domain.ReasonQuantityExceedsAvailable) {
		t.Errorf("expected only line 1 to exceed the shared ceiling: %v", errs)
	}
}

func TestSetSourceClampsToRecordQuantity(t *testing.T) {
	f := newFixture(t)
	drafts := startDrafts(t, f, "800")
	transitRef := fmt.Sprintf("transit:%d:diesel", f.transitDeliveryID)

	bound, err := f.workflow.SetSource(context.Background(), drafts, 0, transitRef)
	if err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	d := bound[0]
	if !d.Quantity.Equal(dec("500")) {
		t.Errorf("Quantity = %s, want clamp to 500", d.Quantity)
	}
	if d.SourceRefID != transitRef || d.OriginKind != domain.OriginInTransit || d.DeliverySource != domain.DeliveryTruck {
		t.Errorf("unexpected binding: %+v", d)
	}
	if !d.TotalAmount.Equal(dec("500").Mul(dec("31.29"))) {
		t.Errorf("TotalAmount = %s, not recalculated", d.TotalAmount)
	}
	if !drafts[0].Quantity.Equal(dec("800")) {
		t.Error("SetSource mutated its input")
	}
}

func TestSetSourceDoesNotRaiseQuantity(t *testing.T) {
	f := newFixture(t)
	drafts := startDrafts(t, f, "100")
	truckRef := fmt.Sprintf("truck:%d:diesel", f.truckDeliveryID)

	bound, err := f.workflow.SetSource(context.Background(), drafts, 0, truckRef)
	if err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if !bound[0].Quantity.Equal(dec("100")) {
		t.Errorf("Quantity = %s, want 100", bound[0].Quantity)
	}
}

func TestSetSourceReclaimUsesSuction(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddReclaim(domain.ReclaimRecord{BranchID: northBranchID, OilType: domain.OilDiesel, Quantity: dec("60")})
	drafts := startDrafts(t, f, "50")

	bound, err := f.workflow.SetSource(context.Background(), drafts, 0, fmt.Sprintf("reclaim:%d", id))
	if err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if bound[0].DeliverySource != domain.DeliverySuction {
		t.Errorf("DeliverySource = %s, want suction", bound[0].DeliverySource)
	}
}

func TestSetSourceDepotAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drafts := startDrafts(t, f, "100")

	depot, err := f.workflow.SetSource(ctx, drafts, 0, DepotSourceRef)
	if err != nil {
		t.Fatalf("SetSource depot: %v", err)
	}
	if depot[0].DeliverySource != domain.DeliveryTruck || depot[0].SourceLabel != DepotSourceRef {
		t.Errorf("unexpected depot binding: %+v", depot[0])
	}

	cleared, err := f.workflow.SetSource(ctx, depot, 0, "")
	if err != nil {
		t.Fatalf("SetSource clear: %v", err)
	}
	if cleared[0].DeliverySource != domain.DeliveryNone || cleared[0].SourceLabel != "" {
		t.Errorf("binding not cleared: %+v", cleared[0])
	}
}

func TestSetSourceUnknownRecord(t *testing.T) {
	f := newFixture(t)
	drafts := startDrafts(t, f, "100")
	_, err := f.workflow.SetSource(context.Background(), drafts, 0, "reclaim:404")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSetQuantityRejectsNegative(t *testing.T) {
	f := newFixture(t)
	drafts := startDrafts(t, f, "100")

	_, err := f.workflow.SetQuantity(drafts, 0, dec("-1"))
	var violations domain.ValidationErrors
	if !errors.As(err, &violations) || !violations.Has(0, domain.ReasonQuantityNonPositive) {
		t.Fatalf("err = %v, want QuantityNonPositive", err)
	}

	zero, err := f.workflow.SetQuantity(drafts, 0, dec("0"))
	if err != nil {
		t.Fatalf("zero quantity should be accepted for editing: %v", err)
	}
	if !f.workflow.Validate(zero).Has(0, domain.ReasonQuantityNonPositive) {
		t.Error("zero quantity should fail validation")
	}
}

func TestSetBranchClearsBindingsAndRefreshes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drafts := startDrafts(t, f, "100")
	drafts, _ = f.workflow.SetSource(ctx, drafts, 0, fmt.Sprintf("truck:%d:diesel", f.truckDeliveryID))

	moved, err := f.workflow.SetBranch(ctx, drafts, hubBranchID)
	if err != nil {
		t.Fatalf("SetBranch: %v", err)
	}
	d := moved[0]
	if d.AssignedFromBranchID != hubBranchID || d.SourceRefID != "" || d.DeliverySource != domain.DeliveryNone {
		t.Errorf("unexpected draft after SetBranch: %+v", d)
	}
	if !d.BranchTotalAvailable.IsZero() {
		t.Errorf("hub has no diesel sources, availability = %s", d.BranchTotalAvailable)
	}

	if _, err := f.workflow.SetBranch(ctx, drafts, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("SetBranch(0) err = %v, want ErrInvalidInput", err)
	}
}

func TestRemoveLine(t *testing.T) {
	f := newFixture(t)
	drafts := startDrafts(t, f, "100")
	drafts = f.workflow.AddLine(drafts, 0)

	out, err := f.workflow.RemoveLine(drafts, 0)
	if err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if len(out) != 1 || out[0].OilType != "" {
		t.Errorf("expected only the blank line to remain: %+v", out)
	}
	if len(drafts) != 2 {
		t.Error("RemoveLine mutated its input")
	}
	if _, err := f.workflow.RemoveLine(drafts, 5); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("RemoveLine(5) err = %v, want ErrNotFound", err)
	}
}

func TestSetPriceRecalculates(t *testing.T) {
	f := newFixture(t)
	drafts := startDrafts(t, f, "100")

	priced, err := f.workflow.SetPrice(drafts, 0, dec("30.5"))
	if err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	if !priced[0].TotalAmount.Equal(dec("3050")) {
		t.Errorf("TotalAmount = %s, want 3050", priced[0].TotalAmount)
	}
	if _, err := f.workflow.SetPrice(drafts, 0, dec("-0.01")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("negative price err = %v, want ErrInvalidInput", err)
	}
}

func TestStartApprovalRejectsNonPending(t *testing.T) {
	f := newFixture(t)
	order := f.requestDiesel(t, "100")
	if _, err := f.orders.Transition(context.Background(), order.ID, TransitionInput{
		Status: statusPtr(domain.StatusCancelled), Reason: "duplicate", Actor: "hub-manager",
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := f.orders.StartApproval(context.Background(), order.ID)
	var transition *domain.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Errorf("err = %v, want InvalidTransitionError", err)
	}
}

func TestAddLineBranchBinding(t *testing.T) {
	f := newFixture(t)
	drafts := startDrafts(t, f, "100")

	tests := []struct {
		name     string
		drafts   []AllocationDraft
		branchID int64
		want     int64
	}{
		{name: "explicit branch", drafts: drafts, branchID: southBranchID, want: southBranchID},
		{name: "first line branch", drafts: drafts, branchID: 0, want: northBranchID},
		{name: "hub when empty", drafts: nil, branchID: 0, want: hubBranchID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := f.workflow.AddLine(tt.drafts, tt.branchID)
			added := out[len(out)-1]
			if added.AssignedFromBranchID != tt.want {
				t.Errorf("AssignedFromBranchID = %d, want %d", added.AssignedFromBranchID, tt.want)
			}
			if !added.Quantity.IsZero() || added.DeliverySource != domain.DeliveryNone {
				t.Errorf("added line not blank: %+v", added)
			}
		})
	}
	if len(drafts) != 1 {
		t.Errorf("input drafts mutated: %d lines", len(drafts))
	}
}

func TestValidateRejectsBadPriceAndDeliverySource(t *testing.T) {
	f := newFixture(t)
	drafts := startDrafts(t, f, "100")
	drafts[0].PricePerLiter = dec("-1")
	drafts[0].DeliverySource = "pipeline"

	errs := f.workflow.Validate(drafts)
	if !errs.Has(0, domain.ReasonPriceNegative) {
		t.Errorf("expected PriceNegative, got %v", errs)
	}
	if !errs.Has(0, domain.ReasonMissingSource) {
		t.Errorf("expected MissingSource for unknown delivery source, got %v", errs)
	}
}
