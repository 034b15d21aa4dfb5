package service

import (
	"context"
	"time"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/andresuchdata/oilhub/backend-go/internal/observability/metrics"
	"github.com/shopspring/decimal"
)

// InventoryService sums catalog records into available quantities. Every call reads the
// ledgers again; nothing is cached between calls.
type InventoryService struct {
	catalog *SourceCatalog
}

func NewInventoryService(catalog *SourceCatalog) *InventoryService {
	return &InventoryService{catalog: catalog}
}

// BranchInventory returns one breakdown per grade the branch can currently supply.
func (s *InventoryService) BranchInventory(ctx context.Context, branchID int64) ([]domain.BranchInventorySummary, error) {
	start := time.Now()
	records, err := s.catalog.ListAllSources(ctx, branchID)
	if err != nil {
		metrics.ObserveAggregation("branch_inventory", metrics.ResultError, time.Since(start))
		return nil, err
	}

	byOil := summarize(records)
	out := make([]domain.BranchInventorySummary, 0, len(byOil))
	for _, oil := range domain.AllOilTypes() {
		summary, ok := byOil[oil]
		if !ok || !summary.Total.IsPositive() {
			continue
		}
		out = append(out, *summary)
	}

	metrics.ObserveAggregation("branch_inventory", metrics.ResultSuccess, time.Since(start))
	return out, nil
}

// Breakdown returns the remaining/in-transit/reclaimed split for one grade, zero-valued when empty.
func (s *InventoryService) Breakdown(ctx context.Context, branchID int64, oilType domain.OilType) (domain.BranchInventorySummary, error) {
	records, err := s.catalog.ListSources(ctx, branchID, oilType)
	if err != nil {
		return domain.BranchInventorySummary{}, err
	}
	if summary, ok := summarize(records)[oilType]; ok {
		return *summary, nil
	}
	return emptySummary(oilType), nil
}

// TotalAvailable is the allocation ceiling for a branch and grade.
func (s *InventoryService) TotalAvailable(ctx context.Context, branchID int64, oilType domain.OilType) (decimal.Decimal, error) {
	start := time.Now()
	records, err := s.catalog.ListSources(ctx, branchID, oilType)
	if err != nil {
		metrics.ObserveAggregation("total_available", metrics.ResultError, time.Since(start))
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Quantity)
	}
	metrics.ObserveAggregation("total_available", metrics.ResultSuccess, time.Since(start))
	return total, nil
}

func summarize(records []domain.SourceRecord) map[domain.OilType]*domain.BranchInventorySummary {
	byOil := make(map[domain.OilType]*domain.BranchInventorySummary)
	for _, r := range records {
		summary, ok := byOil[r.OilType]
		if !ok {
			s := emptySummary(r.OilType)
			summary = &s
			byOil[r.OilType] = summary
		}
		switch r.OriginKind {
		case domain.OriginRemainingOnTruck:
			summary.Remaining = summary.Remaining.Add(r.Quantity)
		case domain.OriginInTransit:
			summary.InTransit = summary.InTransit.Add(r.Quantity)
		case domain.OriginReclaimed:
			summary.Reclaimed = summary.Reclaimed.Add(r.Quantity)
		default:
			continue
		}
		summary.Total = summary.Total.Add(r.Quantity)
	}
	return byOil
}

func emptySummary(oilType domain.OilType) domain.BranchInventorySummary {
	return domain.BranchInventorySummary{
		OilType:   oilType,
		Remaining: decimal.Zero,
		InTransit: decimal.Zero,
		Reclaimed: decimal.Zero,
		Total:     decimal.Zero,
	}
}
