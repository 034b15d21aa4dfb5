package ledgerio

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// RowError reports a ledger row that could not be parsed. Row is 1-based and counts the header.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseBranches expects id, name and an optional is_hub column.
func ParseBranches(rows [][]string) ([]domain.Branch, []RowError, error) {
	t, err := newTable(rows, "id", "name")
	if err != nil {
		return nil, nil, err
	}

	var (
		branches []domain.Branch
		rejected []RowError
	)
	for i, row := range t.rows {
		if isBlank(row) {
			continue
		}
		id, err := strconv.ParseInt(t.get(row, "id"), 10, 64)
		if err != nil || id <= 0 {
			rejected = append(rejected, RowError{Row: i + 2, Err: fmt.Errorf("invalid id %q", t.get(row, "id"))})
			continue
		}
		name := t.get(row, "name")
		if name == "" {
			rejected = append(rejected, RowError{Row: i + 2, Err: fmt.Errorf("name is empty")})
			continue
		}
		branches = append(branches, domain.Branch{ID: id, Name: name, IsHub: parseBool(t.get(row, "is_hub"))})
	}
	return branches, rejected, nil
}

// ParseDeliveries expects one row per delivered grade. Rows sharing a delivery_no become one
// delivery with several items; a grade repeated within a delivery is rejected.
func ParseDeliveries(rows [][]string) ([]domain.Delivery, []RowError, error) {
	t, err := newTable(rows, "delivery_no", "from_branch_id", "to_branch_id", "status", "oil_type", "quantity")
	if err != nil {
		return nil, nil, err
	}

	type gradeKey struct {
		no  string
		oil domain.OilType
	}
	var (
		order    []string
		byNo     = make(map[string]*domain.Delivery)
		grades   = make(map[gradeKey]bool)
		rejected []RowError
	)
	for i, row := range t.rows {
		if isBlank(row) {
			continue
		}
		rowNo := i + 2
		reject := func(format string, args ...any) {
			rejected = append(rejected, RowError{Row: rowNo, Err: fmt.Errorf(format, args...)})
		}

		no := t.get(row, "delivery_no")
		if no == "" {
			reject("delivery_no is empty")
			continue
		}
		from, errFrom := strconv.ParseInt(t.get(row, "from_branch_id"), 10, 64)
		to, errTo := strconv.ParseInt(t.get(row, "to_branch_id"), 10, 64)
		if errFrom != nil || errTo != nil || from <= 0 || to <= 0 {
			reject("invalid branch ids %q -> %q", t.get(row, "from_branch_id"), t.get(row, "to_branch_id"))
			continue
		}
		status := domain.DeliveryStatus(strings.ToLower(t.get(row, "status")))
		if status != domain.DeliveryDispatched && status != domain.DeliveryArrived {
			reject("unknown delivery status %q", status)
			continue
		}
		oil, ok := domain.ParseOilType(t.get(row, "oil_type"))
		if !ok {
			reject("unknown oil type %q", t.get(row, "oil_type"))
			continue
		}
		qty, err := parseQuantity(t.get(row, "quantity"))
		if err != nil {
			reject("quantity: %v", err)
			continue
		}
		kept := decimal.Zero
		if raw := t.get(row, "kept_on_truck_quantity"); raw != "" {
			if kept, err = parseQuantity(raw); err != nil {
				reject("kept_on_truck_quantity: %v", err)
				continue
			}
		}
		if kept.GreaterThan(qty) {
			reject("kept_on_truck_quantity %s exceeds quantity %s", kept, qty)
			continue
		}

		if grades[gradeKey{no, oil}] {
			reject("delivery %s lists %s more than once", no, oil)
			continue
		}

		d, exists := byNo[no]
		if !exists {
			d = &domain.Delivery{
				DeliveryNo:   no,
				OrderNo:      t.get(row, "order_no"),
				FromBranchID: from,
				ToBranchID:   to,
				Status:       status,
				TransportNo:  t.get(row, "transport_no"),
				DispatchedAt: parseOptionalTime(t.get(row, "dispatched_at")),
				ArrivedAt:    parseOptionalTime(t.get(row, "arrived_at")),
			}
			byNo[no] = d
			order = append(order, no)
		} else if d.FromBranchID != from || d.ToBranchID != to || d.Status != status {
			reject("delivery %s has conflicting header fields", no)
			continue
		}
		grades[gradeKey{no, oil}] = true
		d.Items = append(d.Items, domain.DeliveryItem{OilType: oil, Quantity: qty, KeptOnTruckQuantity: kept})
	}

	deliveries := make([]domain.Delivery, 0, len(order))
	for _, no := range order {
		deliveries = append(deliveries, *byNo[no])
	}
	return deliveries, rejected, nil
}

// ParseReclaims expects branch_id, oil_type, quantity and optional note, source_order_no, recorded_at.
func ParseReclaims(rows [][]string, now time.Time) ([]domain.ReclaimRecord, []RowError, error) {
	t, err := newTable(rows, "branch_id", "oil_type", "quantity")
	if err != nil {
		return nil, nil, err
	}

	var (
		records  []domain.ReclaimRecord
		rejected []RowError
	)
	for i, row := range t.rows {
		if isBlank(row) {
			continue
		}
		branchID, err := strconv.ParseInt(t.get(row, "branch_id"), 10, 64)
		if err != nil || branchID <= 0 {
			rejected = append(rejected, RowError{Row: i + 2, Err: fmt.Errorf("invalid branch_id %q", t.get(row, "branch_id"))})
			continue
		}
		oil, ok := domain.ParseOilType(t.get(row, "oil_type"))
		if !ok {
			rejected = append(rejected, RowError{Row: i + 2, Err: fmt.Errorf("unknown oil type %q", t.get(row, "oil_type"))})
			continue
		}
		qty, err := parseQuantity(t.get(row, "quantity"))
		if err != nil {
			rejected = append(rejected, RowError{Row: i + 2, Err: fmt.Errorf("quantity: %w", err)})
			continue
		}
		recordedAt := now
		if at := parseOptionalTime(t.get(row, "recorded_at")); at != nil {
			recordedAt = *at
		}
		records = append(records, domain.ReclaimRecord{
			BranchID:      branchID,
			OilType:       oil,
			Quantity:      qty,
			Note:          t.get(row, "note"),
			SourceOrderNo: t.get(row, "source_order_no"),
			RecordedAt:    recordedAt,
		})
	}
	return records, rejected, nil
}

func parseQuantity(raw string) (decimal.Decimal, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return decimal.Zero, fmt.Errorf("value is empty")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative value %s", raw)
	}
	return d, nil
}

func parseOptionalTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "hub":
		return true
	default:
		return false
	}
}
