package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Branch is a station in the network. The hub supplies and approves requests.
type Branch struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	IsHub     bool      `json:"is_hub" db:"is_hub"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Delivery is a truck run from one branch to another.
type Delivery struct {
	ID           int64          `json:"id" db:"id"`
	DeliveryNo   string         `json:"delivery_no" db:"delivery_no"`
	OrderNo      string         `json:"order_no" db:"order_no"`
	FromBranchID int64          `json:"from_branch_id" db:"from_branch_id"`
	ToBranchID   int64          `json:"to_branch_id" db:"to_branch_id"`
	Status       DeliveryStatus `json:"status" db:"status"`
	TransportNo  string         `json:"transport_no" db:"transport_no"`
	DispatchedAt *time.Time     `json:"dispatched_at" db:"dispatched_at"`
	ArrivedAt    *time.Time     `json:"arrived_at" db:"arrived_at"`
	Items        []DeliveryItem `json:"items" db:"-"`
}

// DeliveryItem is one compartment load on a delivery.
type DeliveryItem struct {
	DeliveryID          int64           `json:"delivery_id" db:"delivery_id"`
	OilType             OilType         `json:"oil_type" db:"oil_type"`
	Quantity            decimal.Decimal `json:"quantity" db:"quantity"`
	KeptOnTruckQuantity decimal.Decimal `json:"kept_on_truck_quantity" db:"kept_on_truck_quantity"`
}

// ReclaimRecord is oil recovered through tank suction or cleaning.
type ReclaimRecord struct {
	ID            int64           `json:"id" db:"id"`
	BranchID      int64           `json:"branch_id" db:"branch_id"`
	OilType       OilType         `json:"oil_type" db:"oil_type"`
	Quantity      decimal.Decimal `json:"quantity" db:"quantity"`
	Note          string          `json:"note" db:"note"`
	SourceOrderNo string          `json:"source_order_no" db:"source_order_no"`
	RecordedAt    time.Time       `json:"recorded_at" db:"recorded_at"`
}

// DeliveryFilter selects deliveries by direction and status. Zero fields are ignored.
type DeliveryFilter struct {
	FromBranchID int64
	ToBranchID   int64
	Status       DeliveryStatus
	OilType      OilType
}

// SourceRecord is one unit of supply a branch can allocate from.
type SourceRecord struct {
	ID            string          `json:"id"`
	OriginKind    OriginKind      `json:"origin_kind"`
	OriginOrderNo string          `json:"origin_order_no,omitempty"`
	BranchID      int64           `json:"branch_id"`
	OilType       OilType         `json:"oil_type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Label         string          `json:"label"`
}

// BranchInventorySummary is the per-grade supply breakdown for one branch.
type BranchInventorySummary struct {
	OilType   OilType         `json:"oil_type"`
	Remaining decimal.Decimal `json:"remaining"`
	InTransit decimal.Decimal `json:"in_transit"`
	Reclaimed decimal.Decimal `json:"reclaimed"`
	Total     decimal.Decimal `json:"total"`
}

// OrderLineItem is a requested grade and, after approval, what will be delivered.
type OrderLineItem struct {
	OilType           OilType         `json:"oil_type" db:"oil_type"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity" db:"requested_quantity"`
	Quantity          decimal.Decimal `json:"quantity" db:"quantity"`
	PricePerLiter     decimal.Decimal `json:"price_per_liter" db:"price_per_liter"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	DeliverySource    DeliverySource  `json:"delivery_source" db:"delivery_source"`
	SourceRefID       string          `json:"source_ref_id,omitempty" db:"source_ref_id"`
	SourceLabel       string          `json:"source_label,omitempty" db:"source_label"`
	TransportNo       string          `json:"transport_no,omitempty" db:"transport_no"`
}

// Recalculate restores TotalAmount = Quantity * PricePerLiter.
func (li *OrderLineItem) Recalculate() {
	li.TotalAmount = li.Quantity.Mul(li.PricePerLiter)
}

// StatusChange is one entry of an order's audit trail.
type StatusChange struct {
	From   *OrderStatus `json:"from"`
	To     OrderStatus  `json:"to"`
	By     string       `json:"by"`
	Reason string       `json:"reason,omitempty"`
	At     time.Time    `json:"at"`
}

// Order is a cross-branch oil request.
type Order struct {
	ID                  int64           `json:"id" db:"id"`
	OrderNo             string          `json:"order_no" db:"order_no"`
	RequestingBranchID  int64           `json:"requesting_branch_id" db:"requesting_branch_id"`
	SupplyingBranchID   int64           `json:"supplying_branch_id" db:"supplying_branch_id"`
	SupplyingBranchName string          `json:"supplying_branch_name" db:"supplying_branch_name"`
	Items               []OrderLineItem `json:"items" db:"-"`
	TotalAmount         decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status              OrderStatus     `json:"status" db:"status"`
	RequestedBy         string          `json:"requested_by" db:"requested_by"`
	RequestedAt         time.Time       `json:"requested_at" db:"requested_at"`
	ApprovedBy          *string         `json:"approved_by" db:"approved_by"`
	ApprovedAt          *time.Time      `json:"approved_at" db:"approved_at"`
	Notes               string          `json:"notes" db:"notes"`
	CancelReason        *string         `json:"cancel_reason,omitempty" db:"cancel_reason"`
	History             []StatusChange  `json:"history" db:"-"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// Recalculate restores every line total and the order total.
func (o *Order) Recalculate() {
	total := decimal.Zero
	for i := range o.Items {
		o.Items[i].Recalculate()
		total = total.Add(o.Items[i].TotalAmount)
	}
	o.TotalAmount = total
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]OrderLineItem(nil), o.Items...)
	c.History = append([]StatusChange(nil), o.History...)
	if o.ApprovedBy != nil {
		v := *o.ApprovedBy
		c.ApprovedBy = &v
	}
	if o.ApprovedAt != nil {
		v := *o.ApprovedAt
		c.ApprovedAt = &v
	}
	if o.CancelReason != nil {
		v := *o.CancelReason
		c.CancelReason = &v
	}
	return &c
}

// OrderFilter narrows order listings. Zero fields are ignored.
type OrderFilter struct {
	Status             *OrderStatus
	RequestingBranchID int64
	SupplyingBranchID  int64
	Limit              int
	Offset             int
}
