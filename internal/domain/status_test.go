package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   OrderStatus
		wantOK bool
	}{
		{"pending_approval", StatusPendingApproval, true},
		{" Approved ", StatusApproved, true},
		{"IN_TRANSIT", StatusInTransit, true},
		{"delivered", StatusDelivered, true},
		{"cancelled", StatusCancelled, true},
		{"shipped", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseOrderStatus(tt.in)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("ParseOrderStatus(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestOrderStatusJSONUsesLabels(t *testing.T) {
	payload, err := json.Marshal(struct {
		Status OrderStatus `json:"status"`
	}{StatusInTransit})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"status":"in_transit"}` {
		t.Errorf("payload = %s", payload)
	}

	var decoded struct {
		Status OrderStatus `json:"status"`
	}
	if err := json.Unmarshal([]byte(`{"status":"bogus"}`), &decoded); err == nil {
		t.Error("expected error for unknown status label")
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range AllOrderStatuses() {
		want := s == StatusDelivered || s == StatusCancelled
		if s.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, s.Terminal(), want)
		}
	}
}

func TestParseOilTypeAcceptsCodeAndLabel(t *testing.T) {
	tests := []struct {
		in     string
		want   OilType
		wantOK bool
	}{
		{"diesel", OilDiesel, true},
		{"Gasohol 95", OilGasohol95, true},
		{"GASOHOL_91", OilGasohol91, true},
		{"premium diesel", OilPremiumDiesel, true},
		{"kerosene", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseOilType(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseOilType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestOriginKindDeliverySource(t *testing.T) {
	tests := []struct {
		kind OriginKind
		want DeliverySource
	}{
		{OriginRemainingOnTruck, DeliveryTruck},
		{OriginInTransit, DeliveryTruck},
		{OriginReclaimed, DeliverySuction},
		{0, DeliveryNone},
	}
	for _, tt := range tests {
		if got := tt.kind.DeliverySource(); got != tt.want {
			t.Errorf("%v.DeliverySource() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestOrderRecalculateConservesTotals(t *testing.T) {
	order := &Order{Items: []OrderLineItem{
		{Quantity: decimal.NewFromInt(1300), PricePerLiter: decimal.RequireFromString("31.29")},
		{Quantity: decimal.RequireFromString("250.5"), PricePerLiter: decimal.RequireFromString("29.99")},
	}}
	order.Recalculate()

	sum := decimal.Zero
	for _, item := range order.Items {
		if !item.TotalAmount.Equal(item.Quantity.Mul(item.PricePerLiter)) {
			t.Errorf("line total %s != %s * %s", item.TotalAmount, item.Quantity, item.PricePerLiter)
		}
		sum = sum.Add(item.TotalAmount)
	}
	if !order.TotalAmount.Equal(sum) {
		t.Errorf("order total %s != sum of lines %s", order.TotalAmount, sum)
	}
	if !order.Items[0].TotalAmount.Equal(decimal.NewFromInt(40677)) {
		t.Errorf("1300 * 31.29 = %s, want 40677", order.Items[0].TotalAmount)
	}
}

func TestOrderCloneIsDeep(t *testing.T) {
	approver := "hub-manager"
	original := &Order{
		Items:      []OrderLineItem{{OilType: OilDiesel}},
		ApprovedBy: &approver,
	}
	clone := original.Clone()
	clone.Items[0].OilType = OilE85
	*clone.ApprovedBy = "someone-else"

	if original.Items[0].OilType != OilDiesel {
		t.Error("clone shares Items with original")
	}
	if *original.ApprovedBy != "hub-manager" {
		t.Error("clone shares ApprovedBy with original")
	}
}
