package types

import (
	"encoding/json"
	"strings"
)

// Address is the delivery address attached to an order. The model may hand
// back either a flat string or a structured object; both shapes are kept so
// nothing the user said is lost.
type Address struct {
	Raw          string `json:"raw,omitempty"`
	Street       string `json:"street,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
}

// UnmarshalJSON accepts both a flat string and the structured object.
func (a *Address) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*a = Address{}
		return nil
	}
	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*a = Address{Raw: raw}
		return nil
	}

	type alias Address
	var structured alias
	if err := json.Unmarshal(data, &structured); err != nil {
		return err
	}
	*a = Address(structured)
	return nil
}

// IsZero reports whether no address information is present.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Raw) == "" &&
		strings.TrimSpace(a.Street) == "" &&
		strings.TrimSpace(a.Neighborhood) == "" &&
		strings.TrimSpace(a.City) == ""
}

// Text flattens the address into a single geocodable line. Structured
// fields win over the raw string when both are present.
func (a Address) Text() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{a.Street, a.Neighborhood, a.City} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return strings.TrimSpace(a.Raw)
}
