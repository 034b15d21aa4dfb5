package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
)

func TestTotalAvailableSumsAllOrigins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	total, err := f.inventory.TotalAvailable(ctx, northBranchID, domain.OilDiesel)
	if err != nil {
		t.Fatalf("TotalAvailable: %v", err)
	}
	if !total.Equal(dec("1300")) {
		t.Fatalf("TotalAvailable(2, diesel) = %s, want 1300", total)
	}

	f.store.AddReclaim(domain.ReclaimRecord{BranchID: northBranchID, OilType: domain.OilDiesel, Quantity: dec("120.5"), Note: "tank 3"})
	total, err = f.inventory.TotalAvailable(ctx, northBranchID, domain.OilDiesel)
	if err != nil {
		t.Fatalf("TotalAvailable: %v", err)
	}
	if !total.Equal(dec("1420.5")) {
		t.Errorf("TotalAvailable after reclaim = %s, want 1420.5", total)
	}
}

func TestListSourcesOrigins(t *testing.T) {
	f := newFixture(t)
	records, err := f.catalog.ListSources(context.Background(), northBranchID, domain.OilDiesel)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(records), records)
	}

	byKind := map[domain.OriginKind]domain.SourceRecord{}
	for _, r := range records {
		byKind[r.OriginKind] = r
	}

	truck := byKind[domain.OriginRemainingOnTruck]
	if truck.ID != fmt.Sprintf("truck:%d:diesel", f.truckDeliveryID) || !truck.Quantity.Equal(dec("800")) || truck.OriginOrderNo != "REQ-1" {
		t.Errorf("unexpected remaining-on-truck record: %+v", truck)
	}
	transit := byKind[domain.OriginInTransit]
	if transit.ID != fmt.Sprintf("transit:%d:diesel", f.transitDeliveryID) || !transit.Quantity.Equal(dec("500")) || transit.OriginOrderNo != "REQ-2" {
		t.Errorf("unexpected in-transit record: %+v", transit)
	}
}

func TestListSourcesEdgeCases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		branchID int64
		oil      domain.OilType
	}{
		{name: "unset branch", branchID: 0, oil: domain.OilDiesel},
		{name: "unknown grade", branchID: northBranchID, oil: "kerosene"},
		{name: "grade fully unloaded", branchID: northBranchID, oil: domain.OilGasohol95},
		{name: "receiving branch of transit", branchID: southBranchID, oil: domain.OilDiesel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := f.catalog.ListSources(ctx, tt.branchID, tt.oil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if records == nil || len(records) != 0 {
				t.Errorf("want empty non-nil slice, got %+v", records)
			}
		})
	}
}

func TestArrivalMovesTransitOutOfSupplier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if !f.store.SetDeliveryStatus(f.transitDeliveryID, domain.DeliveryArrived) {
		t.Fatal("delivery not found")
	}
	total, err := f.inventory.TotalAvailable(ctx, northBranchID, domain.OilDiesel)
	if err != nil {
		t.Fatalf("TotalAvailable: %v", err)
	}
	if !total.Equal(dec("800")) {
		t.Errorf("TotalAvailable after arrival = %s, want 800", total)
	}
}

func TestBranchInventoryOnlySurfacesPositiveTotals(t *testing.T) {
	f := newFixture(t)
	f.store.AddReclaim(domain.ReclaimRecord{BranchID: northBranchID, OilType: domain.OilE20, Quantity: dec("75")})

	summaries, err := f.inventory.BranchInventory(context.Background(), northBranchID)
	if err != nil {
		t.Fatalf("BranchInventory: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2: %+v", len(summaries), summaries)
	}

	for _, s := range summaries {
		if !s.Total.Equal(s.Remaining.Add(s.InTransit).Add(s.Reclaimed)) {
			t.Errorf("%s: total %s != remaining+transit+reclaimed", s.OilType, s.Total)
		}
		if !s.Total.IsPositive() {
			t.Errorf("%s surfaced with non-positive total", s.OilType)
		}
	}

	diesel := summaries[0]
	if diesel.OilType != domain.OilDiesel || !diesel.Remaining.Equal(dec("800")) || !diesel.InTransit.Equal(dec("500")) {
		t.Errorf("unexpected diesel summary: %+v", diesel)
	}
	if summaries[1].OilType != domain.OilE20 || !summaries[1].Reclaimed.Equal(dec("75")) {
		t.Errorf("unexpected e20 summary: %+v", summaries[1])
	}
}

func TestBreakdownEmptyGrade(t *testing.T) {
	f := newFixture(t)
	summary, err := f.inventory.Breakdown(context.Background(), hubBranchID, domain.OilE85)
	if err != nil {
		t.Fatalf("Breakdown: %v", err)
	}
	if !summary.Total.IsZero() || summary.OilType != domain.OilE85 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestFindSourceUnknownID(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.FindSource(context.Background(), northBranchID, domain.OilDiesel, "truck:999:diesel")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

type failingDeliveries struct{ err error }

func (f failingDeliveries) FindDeliveries(ctx context.Context, filter domain.DeliveryFilter) ([]*domain.Delivery, error) {
	return nil, f.err
}

func TestCatalogPropagatesRepositoryErrors(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection reset")
	catalog := NewSourceCatalog(failingDeliveries{err: boom}, f.store)

	_, err := catalog.ListSources(context.Background(), northBranchID, domain.OilDiesel)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

type staticDeliveries []*domain.Delivery

func (s staticDeliveries) FindDeliveries(ctx context.Context, filter domain.DeliveryFilter) ([]*domain.Delivery, error) {
	var out []*domain.Delivery
	for _, d := range s {
		if filter.ToBranchID > 0 && d.ToBranchID != filter.ToBranchID {
			continue
		}
		if filter.FromBranchID > 0 && d.FromBranchID != filter.FromBranchID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func TestSourceIDsStayUniqueWithRepeatedGrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repeated := &domain.Delivery{
		ID: 3, DeliveryNo: "D1", FromBranchID: hubBranchID, ToBranchID: southBranchID, Status: domain.DeliveryArrived,
		Items: []domain.DeliveryItem{
			{OilType: domain.OilDiesel, Quantity: dec("1000"), KeptOnTruckQuantity: dec("300")},
			{OilType: domain.OilDiesel, Quantity: dec("1000"), KeptOnTruckQuantity: dec("400")},
		},
	}

	catalogs := map[string]*SourceCatalog{
		"repository returns duplicates": NewSourceCatalog(staticDeliveries{repeated}, f.store),
		"memory store merges on insert": func() *SourceCatalog {
			f.store.AddDelivery(*repeated)
			return f.catalog
		}(),
	}
	for name, catalog := range catalogs {
		t.Run(name, func(t *testing.T) {
			records, err := catalog.ListSources(ctx, southBranchID, domain.OilDiesel)
			if err != nil {
				t.Fatalf("ListSources: %v", err)
			}
			seen := make(map[string]int)
			for _, r := range records {
				seen[r.ID]++
			}
			for id, n := range seen {
				if n > 1 {
					t.Errorf("source id %s appears %d times", id, n)
				}
			}

			record, err := catalog.FindSource(ctx, southBranchID, domain.OilDiesel, "truck:3:diesel")
			if err != nil {
				t.Fatalf("FindSource: %v", err)
			}
			if !record.Quantity.Equal(dec("700")) {
				t.Errorf("record quantity = %s, want 700", record.Quantity)
			}
		})
	}
}
