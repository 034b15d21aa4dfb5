package domain

import "strings"

// OilType is a fuel grade handled by the branch network.
type OilType string

const (
	OilPremiumDiesel OilType = "premium_diesel"
	OilDiesel        OilType = "diesel"
	OilGasohol95     OilType = "gasohol_95"
	OilGasohol91     OilType = "gasohol_91"
	OilE20           OilType = "e20"
	OilE85           OilType = "e85"
)

var oilTypeLabels = map[OilType]string{
	OilPremiumDiesel: "Premium Diesel",
	OilDiesel:        "Diesel",
	OilGasohol95:     "Gasohol 95",
	OilGasohol91:     "Gasohol 91",
	OilE20:           "Gasohol E20",
	OilE85:           "Gasohol E85",
}

// AllOilTypes returns the closed set of grades in display order.
func AllOilTypes() []OilType {
	return []OilType{OilPremiumDiesel, OilDiesel, OilGasohol95, OilGasohol91, OilE20, OilE85}
}

// Valid reports whether t belongs to the closed set of grades.
func (t OilType) Valid() bool {
	_, ok := oilTypeLabels[t]
	return ok
}

// Label returns the human-readable grade name.
func (t OilType) Label() string {
	if label, ok := oilTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// ParseOilType accepts either the code ("gasohol_95") or the label ("Gasohol 95").
func ParseOilType(value string) (OilType, bool) {
	v := strings.TrimSpace(value)
	if t := OilType(strings.ToLower(v)); t.Valid() {
		return t, true
	}
	for t, label := range oilTypeLabels {
		if strings.EqualFold(label, v) {
			return t, true
		}
	}
	return "", false
}
