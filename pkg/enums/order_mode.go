package enums

import "fmt"

// OrderMode distinguishes pickup orders from deliveries.
type OrderMode string

const (
	OrderModeUnset    OrderMode = ""
	OrderModePickup   OrderMode = "pickup"
	OrderModeDelivery OrderMode = "delivery"
)

var validOrderModes = []OrderMode{
	OrderModeUnset,
	OrderModePickup,
	OrderModeDelivery,
}

// String implements fmt.Stringer.
func (m OrderMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known OrderMode.
func (m OrderMode) IsValid() bool {
	for _, candidate := range validOrderModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseOrderMode converts raw input into an OrderMode. Common Spanish
// spellings from model output are accepted.
func ParseOrderMode(value string) (OrderMode, error) {
	switch value {
	case "", "unset":
		return OrderModeUnset, nil
	case "pickup", "retiro", "retira", "local":
		return OrderModePickup, nil
	case "delivery", "envio", "envío", "domicilio":
		return OrderModeDelivery, nil
	}
	return "", fmt.Errorf("invalid order mode %q", value)
}
