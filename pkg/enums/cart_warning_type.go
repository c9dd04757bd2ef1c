package enums

import "fmt"

// CartWarningType enumerates warning reasons surfaced with a reconciled cart.
type CartWarningType string

const (
	CartWarningTypePriceChanged   CartWarningType = "price_changed"
	CartWarningTypeItemRemoved    CartWarningType = "item_removed"
	CartWarningTypeQuantityCapped CartWarningType = "quantity_capped"
	CartWarningTypeItemDropped    CartWarningType = "item_dropped"
)

var validCartWarningTypes = []CartWarningType{
	CartWarningTypePriceChanged,
	CartWarningTypeItemRemoved,
	CartWarningTypeQuantityCapped,
	CartWarningTypeItemDropped,
}

// String implements fmt.Stringer.
func (c CartWarningType) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c CartWarningType) IsValid() bool {
	for _, candidate := range validCartWarningTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartWarningType converts raw input into a CartWarningType.
func ParseCartWarningType(value string) (CartWarningType, error) {
	for _, candidate := range validCartWarningTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart warning type %q", value)
}
