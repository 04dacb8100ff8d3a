package delivery

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/franmoretti/tiendabot-backend/pkg/config"
	"github.com/franmoretti/tiendabot-backend/pkg/db/models"
	"github.com/franmoretti/tiendabot-backend/pkg/enums"
	"github.com/franmoretti/tiendabot-backend/pkg/geo"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

// Geocoder is the slice of the geocoding client the resolver needs.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geo.Location, error)
}

// TierSource provides the tenant's delivery-fee tiers.
type TierSource interface {
	DeliveryTiers(ctx context.Context, tenantID string) ([]models.CatalogEntry, error)
}

// Resolution is the outcome of resolving a delivery fee. When the geocode
// was not exact, NeedsClarification is set and no line is produced; the
// user is asked to retype the address instead of being billed a guess.
type Resolution struct {
	Line               *types.OrderItem
	DistanceKm         float64
	Lat                float64
	Lng                float64
	NeedsClarification bool
}

// Resolver determines the delivery line item for an order.
type Resolver struct {
	geocoder Geocoder
	tiers    TierSource
	cfg      config.StoreConfig
}

// NewResolver builds the delivery fee resolver.
func NewResolver(geocoder Geocoder, tiers TierSource, cfg config.StoreConfig) (*Resolver, error) {
	if geocoder == nil {
		return nil, fmt.Errorf("geocoder required")
	}
	if tiers == nil {
		return nil, fmt.Errorf("tier source required")
	}
	return &Resolver{geocoder: geocoder, tiers: tiers, cfg: cfg}, nil
}

// Resolve geocodes the order's address and selects the matching fee tier.
// It returns (nil, nil) when the order is not a delivery, has no usable
// address, or the tenant has no delivery tiers configured.
func (r *Resolver) Resolve(ctx context.Context, tenantID string, order types.OrderDraft) (*Resolution, error) {
	if order.Mode != enums.OrderModeDelivery {
		return nil, nil
	}
	address := r.ComposeAddress(order.Address)
	if address == "" {
		return nil, nil
	}

	location, err := r.geocoder.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	if location == nil || !location.Exact {
		return &Resolution{NeedsClarification: true}, nil
	}

	distance := r.roundKm(Haversine(r.cfg.Latitude, r.cfg.Longitude, location.Lat, location.Lng))

	tiers, err := r.tiers.DeliveryTiers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(tiers) == 0 {
		return nil, nil
	}

	tier := selectTier(tiers, distance)
	quantity := decimal.NewFromInt(1)
	return &Resolution{
		Line: &types.OrderItem{
			Description: tier.Description,
			Quantity:    quantity,
			UnitPrice:   tier.UnitPrice,
			LineTotal:   tier.UnitPrice,
		},
		DistanceKm: distance,
		Lat:        location.Lat,
		Lng:        location.Lng,
	}, nil
}

// ComposeAddress flattens the address and appends the store's default
// locality suffix when the text has no comma-separated locality of its
// own, which noticeably improves geocoding accuracy for bare streets.
func (r *Resolver) ComposeAddress(address types.Address) string {
	text := address.Text()
	if text == "" {
		return ""
	}
	if !strings.Contains(text, ",") && r.cfg.LocalitySuffix != "" {
		text = text + ", " + r.cfg.LocalitySuffix
	}
	return text
}

func (r *Resolver) roundKm(distance float64) float64 {
	precision := r.cfg.DistancePrecision
	if precision < 0 {
		precision = 0
	}
	factor := math.Pow10(precision)
	return math.Round(distance*factor) / factor
}

// selectTier picks the tier whose half-open [min, max) range contains the
// distance. A distance below every tier takes the lowest one, above every
// tier the highest; a gap between tiers resolves to the tier with the
// closest boundary.
func selectTier(tiers []models.CatalogEntry, distance float64) models.CatalogEntry {
	for _, tier := range tiers {
		if distance >= *tier.MinKm && distance < *tier.MaxKm {
			return tier
		}
	}

	if distance < *tiers[0].MinKm {
		return tiers[0]
	}
	last := tiers[len(tiers)-1]
	if distance >= *last.MaxKm {
		return last
	}

	best := tiers[0]
	bestGap := math.Inf(1)
	for _, tier := range tiers {
		gap := math.Min(math.Abs(distance-*tier.MinKm), math.Abs(distance-*tier.MaxKm))
		if gap < bestGap {
			bestGap = gap
			best = tier
		}
	}
	return best
}
