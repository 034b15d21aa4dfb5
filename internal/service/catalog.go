package service

import (
	"context"
	"fmt"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/andresuchdata/oilhub/backend-go/internal/repository"
	"golang.org/x/sync/errgroup"
)

// DepotSourceRef binds a line to the supplying branch in general rather than one record.
const DepotSourceRef = "depot"

// SourceCatalog enumerates the supply records a branch can allocate from.
type SourceCatalog struct {
	deliveries repository.DeliveryRepository
	reclaims   repository.ReclaimRepository
}

func NewSourceCatalog(deliveries repository.DeliveryRepository, reclaims repository.ReclaimRepository) *SourceCatalog {
	return &SourceCatalog{deliveries: deliveries, reclaims: reclaims}
}

// ListSources returns the supply records for one branch and grade. An unset branch or unknown
// grade yields an empty slice; only repository failures are errors.
func (c *SourceCatalog) ListSources(ctx context.Context, branchID int64, oilType domain.OilType) ([]domain.SourceRecord, error) {
	if branchID <= 0 || !oilType.Valid() {
		return []domain.SourceRecord{}, nil
	}
	return c.collect(ctx, branchID, &oilType)
}

// ListAllSources returns the supply records for every grade held by a branch.
func (c *SourceCatalog) ListAllSources(ctx context.Context, branchID int64) ([]domain.SourceRecord, error) {
	if branchID <= 0 {
		return []domain.SourceRecord{}, nil
	}
	return c.collect(ctx, branchID, nil)
}

// FindSource looks a record up among the branch's current sources.
func (c *SourceCatalog) FindSource(ctx context.Context, branchID int64, oilType domain.OilType, id string) (*domain.SourceRecord, error) {
	records, err := c.ListSources(ctx, branchID, oilType)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, domain.NotFoundf("source %q for branch %d and %s", id, branchID, oilType)
}

func (c *SourceCatalog) collect(ctx context.Context, branchID int64, oilType *domain.OilType) ([]domain.SourceRecord, error) {
	var remaining, transit, reclaimed []domain.SourceRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		remaining, err = c.remainingOnTruck(gctx, branchID, oilType)
		return err
	})
	g.Go(func() error {
		var err error
		transit, err = c.inTransit(gctx, branchID, oilType)
		return err
	})
	g.Go(func() error {
		var err error
		reclaimed, err = c.reclaimed(gctx, branchID, oilType)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]domain.SourceRecord, 0, len(remaining)+len(transit)+len(reclaimed))
	records = append(records, remaining...)
	records = append(records, transit...)
	records = append(records, reclaimed...)
	return mergeByID(records), nil
}

// mergeByID folds records sharing an id into one so every id names a single quantity.
func mergeByID(records []domain.SourceRecord) []domain.SourceRecord {
	out := records[:0]
	index := make(map[string]int, len(records))
	for _, r := range records {
		if i, ok := index[r.ID]; ok {
			out[i].Quantity = out[i].Quantity.Add(r.Quantity)
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}

// remainingOnTruck: arrived deliveries addressed to the branch that were not fully unloaded.
func (c *SourceCatalog) remainingOnTruck(ctx context.Context, branchID int64, oilType *domain.OilType) ([]domain.SourceRecord, error) {
	filter := domain.DeliveryFilter{ToBranchID: branchID, Status: domain.DeliveryArrived}
	if oilType != nil {
		filter.OilType = *oilType
	}
	deliveries, err := c.deliveries.FindDeliveries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("remaining-on-truck sources: %w", err)
	}

	var records []domain.SourceRecord
	for _, d := range deliveries {
		for _, item := range d.Items {
			if oilType != nil && item.OilType != *oilType {
				continue
			}
			if !item.OilType.Valid() || !item.KeptOnTruckQuantity.IsPositive() {
				continue
			}
			ref := deliveryRef(d)
			records = append(records, domain.SourceRecord{
				ID:            fmt.Sprintf("truck:%d:%s", d.ID, item.OilType),
				OriginKind:    domain.OriginRemainingOnTruck,
				OriginOrderNo: ref,
				BranchID:      branchID,
				OilType:       item.OilType,
				Quantity:      item.KeptOnTruckQuantity,
				Label:         fmt.Sprintf("Remaining on truck %s (%s)", ref, item.OilType.Label()),
			})
		}
	}
	return records, nil
}

// inTransit: dispatched deliveries leaving the branch that have not arrived yet.
func (c *SourceCatalog) inTransit(ctx context.Context, branchID int64, oilType *domain.OilType) ([]domain.SourceRecord, error) {
	filter := domain.DeliveryFilter{FromBranchID: branchID, Status: domain.DeliveryDispatched}
	if oilType != nil {
		filter.OilType = *oilType
	}
	deliveries, err := c.deliveries.FindDeliveries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("in-transit sources: %w", err)
	}

	var records []domain.SourceRecord
	for _, d := range deliveries {
		for _, item := range d.Items {
			if oilType != nil && item.OilType != *oilType {
				continue
			}
			if !item.OilType.Valid() || !item.Quantity.IsPositive() {
				continue
			}
			ref := deliveryRef(d)
			records = append(records, domain.SourceRecord{
				ID:            fmt.Sprintf("transit:%d:%s", d.ID, item.OilType),
				OriginKind:    domain.OriginInTransit,
				OriginOrderNo: ref,
				BranchID:      branchID,
				OilType:       item.OilType,
				Quantity:      item.Quantity,
				Label:         fmt.Sprintf("In transit %s (%s)", ref, item.OilType.Label()),
			})
		}
	}
	return records, nil
}

func (c *SourceCatalog) reclaimed(ctx context.Context, branchID int64, oilType *domain.OilType) ([]domain.SourceRecord, error) {
	ledger, err := c.reclaims.ListReclaims(ctx, branchID, oilType)
	if err != nil {
		return nil, fmt.Errorf("reclaimed sources: %w", err)
	}

	var records []domain.SourceRecord
	for _, r := range ledger {
		if oilType != nil && r.OilType != *oilType {
			continue
		}
		if !r.OilType.Valid() || !r.Quantity.IsPositive() {
			continue
		}
		label := fmt.Sprintf("Reclaimed #%d (%s)", r.ID, r.OilType.Label())
		if r.Note != "" {
			label += " " + r.Note
		}
		records = append(records, domain.SourceRecord{
			ID:            fmt.Sprintf("reclaim:%d", r.ID),
			OriginKind:    domain.OriginReclaimed,
			OriginOrderNo: r.SourceOrderNo,
			BranchID:      branchID,
			OilType:       r.OilType,
			Quantity:      r.Quantity,
			Label:         label,
		})
	}
	return records, nil
}

func deliveryRef(d *domain.Delivery) string {
	if d.OrderNo != "" {
		return d.OrderNo
	}
	return d.DeliveryNo
}
