package service

import (
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/oilhub/backend-go/internal/cache"
	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/andresuchdata/oilhub/backend-go/internal/repository/memory"
	"github.com/shopspring/decimal"
)

const (
	hubBranchID   int64 = 1
	northBranchID int64 = 2
	southBranchID int64 = 3
)

var fixedNow = time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	catalog   *SourceCatalog
	inventory *InventoryService
	workflow  *AllocationWorkflow
	orders    *OrderService

	truckDeliveryID   int64
	transitDeliveryID int64
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newFixture seeds branch 2 with 800 L diesel kept on an arrived truck (REQ-1) and 500 L
// diesel dispatched out of it (REQ-2).
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.AddBranch(domain.Branch{ID: hubBranchID, Name: "Central Hub", IsHub: true})
	store.AddBranch(domain.Branch{ID: northBranchID, Name: "North Branch"})
	store.AddBranch(domain.Branch{ID: southBranchID, Name: "South Branch"})

	arrived := fixedNow.Add(-2 * time.Hour)
	truckID := store.AddDelivery(domain.Delivery{
		DeliveryNo:   "DLV-001",
		OrderNo:      "REQ-1",
		FromBranchID: hubBranchID,
		ToBranchID:   northBranchID,
		Status:       domain.DeliveryArrived,
		TransportNo:  "TRK-7",
		ArrivedAt:    &arrived,
		Items: []domain.DeliveryItem{
			{OilType: domain.OilDiesel, Quantity: dec("2000"), KeptOnTruckQuantity: dec("800")},
			{OilType: domain.OilGasohol95, Quantity: dec("1000"), KeptOnTruckQuantity: decimal.Zero},
		},
	})
	transitID := store.AddDelivery(domain.Delivery{
		DeliveryNo:   "DLV-002",
		OrderNo:      "REQ-2",
		FromBranchID: northBranchID,
		ToBranchID:   southBranchID,
		Status:       domain.DeliveryDispatched,
		Items: []domain.DeliveryItem{
			{OilType: domain.OilDiesel, Quantity: dec("500")},
		},
	})

	catalog := NewSourceCatalog(store, store)
	inventory := NewInventoryService(catalog)
	workflow := NewAllocationWorkflow(inventory, catalog, hubBranchID)
	orders := NewOrderService(store, store, workflow, cache.NewLocalOrderLocker()).
		WithClock(func() time.Time { return fixedNow })

	return &fixture{
		store:             store,
		catalog:           catalog,
		inventory:         inventory,
		workflow:          workflow,
		orders:            orders,
		truckDeliveryID:   truckID,
		transitDeliveryID: transitID,
	}
}

// requestDiesel creates a pending order from the south branch asking branch 2 for diesel.
func (f *fixture) requestDiesel(t *testing.T, qty string) *domain.Order {
	t.Helper()
	order, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
		RequestingBranchID: southBranchID,
		SupplyingBranchID:  northBranchID,
		RequestedBy:        "south-manager",
		Items: []CreateOrderItem{
			{OilType: domain.OilDiesel, Quantity: dec(qty), PricePerLiter: dec("31.29")},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return order
}

func statusPtr(s domain.OrderStatus) *domain.OrderStatus {
	return &s
}
