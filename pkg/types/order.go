package types

import (
	"github.com/franmoretti/tiendabot-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// OrderItem is one line of an order. LineTotal is always recomputed from
// Quantity and UnitPrice during reconciliation, never trusted from input.
type OrderItem struct {
	ID          int             `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderDraft is the authoritative order a conversation is building up. It
// is mutated turn by turn by merging model proposals through explicit
// reconciliation rules.
type OrderDraft struct {
	Mode          enums.OrderMode `json:"mode"`
	Address       Address         `json:"address"`
	Items         []OrderItem     `json:"items"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	ScheduledDate string          `json:"scheduled_date,omitempty"`
	ScheduledTime string          `json:"scheduled_time,omitempty"`
	DistanceKm    *float64        `json:"distance_km,omitempty"`
	Lat           *float64        `json:"lat,omitempty"`
	Lng           *float64        `json:"lng,omitempty"`
}

// HasItems reports whether the draft carries at least one line item.
func (d OrderDraft) HasItems() bool {
	return len(d.Items) > 0
}

// ClearLocation drops everything derived from a previous geocode.
func (d *OrderDraft) ClearLocation() {
	d.DistanceKm = nil
	d.Lat = nil
	d.Lng = nil
}

// ProposedOrder is the loosely typed order shape extracted from model
// output. Numeric fields arrive as numbers or arbitrarily formatted
// strings and are coerced during reconciliation.
type ProposedOrder struct {
	Mode          string         `json:"entrega"`
	Address       Address        `json:"direccion"`
	Items         []ProposedItem `json:"items"`
	GrandTotal    LooseNumber    `json:"total"`
	ScheduledDate string         `json:"fecha"`
	ScheduledTime string         `json:"hora"`
}

// ProposedItem mirrors one model-declared order line.
type ProposedItem struct {
	Description string      `json:"descripcion"`
	Quantity    LooseNumber `json:"cantidad"`
	UnitPrice   LooseNumber `json:"precio_unitario"`
	LineTotal   LooseNumber `json:"total"`
}
