package enums

import "fmt"

// LineItemStatus classifies one cart line after reconciling it against the
// live catalog.
type LineItemStatus string

const (
	LineItemStatusValid              LineItemStatus = "VALID"
	LineItemStatusPriceChanged       LineItemStatus = "PRICE_CHANGED"
	LineItemStatusProductUnavailable LineItemStatus = "PRODUCT_UNAVAILABLE"
	LineItemStatusRemoved            LineItemStatus = "REMOVED"
)

var validLineItemStatuses = []LineItemStatus{
	LineItemStatusValid,
	LineItemStatusPriceChanged,
	LineItemStatusProductUnavailable,
	LineItemStatusRemoved,
}

// String implements fmt.Stringer.
func (s LineItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s LineItemStatus) IsValid() bool {
	for _, candidate := range validLineItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLineItemStatus converts raw input into a LineItemStatus.
func ParseLineItemStatus(value string) (LineItemStatus, error) {
	for _, candidate := range validLineItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid line item status %q", value)
}
