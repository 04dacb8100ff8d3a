package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/franmoretti/tiendabot-backend/internal/delivery"
	"github.com/franmoretti/tiendabot-backend/pkg/enums"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

// Pricer resolves a product description to its authoritative unit price.
type Pricer interface {
	PriceFor(ctx context.Context, tenantID, description string) (decimal.Decimal, bool, error)
}

// DeliveryResolver determines the delivery line for a delivery order.
type DeliveryResolver interface {
	Resolve(ctx context.Context, tenantID string, order types.OrderDraft) (*delivery.Resolution, error)
}

// Result carries the corrected order plus the flags that drive the repair
// loop. Authoritative values always win: Mismatch only reports that the
// candidate disagreed, it never leaves the disagreement in place.
type Result struct {
	Order        types.OrderDraft
	Mismatch     bool
	HasItems     bool
	NeedsAddress bool
}

// Reconciler recomputes order totals against the catalog and delivery
// tiers and reports whether the candidate matched the recomputation.
type Reconciler struct {
	pricer          Pricer
	resolver        DeliveryResolver
	deliveryKeyword string
}

// NewReconciler builds the order recalculator.
func NewReconciler(pricer Pricer, resolver DeliveryResolver, deliveryKeyword string) (*Reconciler, error) {
	if pricer == nil {
		return nil, fmt.Errorf("pricer required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("delivery resolver required")
	}
	return &Reconciler{
		pricer:          pricer,
		resolver:        resolver,
		deliveryKeyword: strings.ToLower(strings.TrimSpace(deliveryKeyword)),
	}, nil
}

// Reconcile recomputes the candidate order. It returns a non-nil error
// only when a collaborator failed outright (geocoder or catalog store
// down); the Result is still populated as far as the computation got.
func (r *Reconciler) Reconcile(ctx context.Context, tenantID string, candidate types.OrderDraft) (Result, error) {
	result := Result{
		Order:    candidate,
		HasItems: candidate.HasItems(),
	}
	order := &result.Order

	switch order.Mode {
	case enums.OrderModeDelivery:
		resolution, err := r.resolver.Resolve(ctx, tenantID, *order)
		if err != nil {
			return result, err
		}
		switch {
		case resolution == nil:
			// No usable address or no tiers configured: nothing to bill
			// yet, so any delivery line the model invented comes out.
			if r.stripDeliveryLines(order) && result.HasItems {
				result.Mismatch = true
			}
		case resolution.NeedsClarification:
			result.NeedsAddress = true
			if r.stripDeliveryLines(order) && result.HasItems {
				result.Mismatch = true
			}
			order.Address = types.Address{}
			order.ClearLocation()
		default:
			if r.upsertDeliveryLine(order, *resolution.Line) && result.HasItems {
				result.Mismatch = true
			}
			distance := resolution.DistanceKm
			lat, lng := resolution.Lat, resolution.Lng
			order.DistanceKm = &distance
			order.Lat = &lat
			order.Lng = &lng
		}
	default:
		if r.stripDeliveryLines(order) && result.HasItems {
			result.Mismatch = true
		}
		order.ClearLocation()
	}

	grandTotal := decimal.Zero
	for i := range order.Items {
		item := &order.Items[i]

		authoritative, found, err := r.pricer.PriceFor(ctx, tenantID, item.Description)
		if err != nil {
			return result, err
		}
		if !found {
			// Missing catalog price coerces to 0 and forces a repair
			// cycle rather than silently shipping a free item.
			authoritative = decimal.Zero
			if result.HasItems {
				result.Mismatch = true
			}
		}

		lineTotal := item.Quantity.Mul(authoritative)
		if result.HasItems && (!item.UnitPrice.Equal(authoritative) || !item.LineTotal.Equal(lineTotal)) {
			result.Mismatch = true
		}
		item.UnitPrice = authoritative
		item.LineTotal = lineTotal
		grandTotal = grandTotal.Add(lineTotal)
	}

	if result.HasItems && !order.GrandTotal.Equal(grandTotal) {
		result.Mismatch = true
	}
	order.GrandTotal = grandTotal

	return result, nil
}

// upsertDeliveryLine replaces any existing delivery line with the
// authoritative one, appending when none exists. It reports whether the
// item list changed.
func (r *Reconciler) upsertDeliveryLine(order *types.OrderDraft, line types.OrderItem) bool {
	for i := range order.Items {
		if !r.isDeliveryLine(order.Items[i].Description) {
			continue
		}
		existing := order.Items[i]
		order.Items[i] = line
		return existing.Description != line.Description || !existing.LineTotal.Equal(line.LineTotal)
	}
	order.Items = append(order.Items, line)
	return true
}

// stripDeliveryLines removes every delivery line and reports whether any
// were present.
func (r *Reconciler) stripDeliveryLines(order *types.OrderDraft) bool {
	kept := order.Items[:0]
	stripped := false
	for _, item := range order.Items {
		if r.isDeliveryLine(item.Description) {
			stripped = true
			continue
		}
		kept = append(kept, item)
	}
	order.Items = kept
	return stripped
}

func (r *Reconciler) isDeliveryLine(description string) bool {
	if r.deliveryKeyword == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(description)), r.deliveryKeyword)
}
