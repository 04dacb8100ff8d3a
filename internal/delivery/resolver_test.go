package delivery

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/franmoretti/tiendabot-backend/pkg/config"
	"github.com/franmoretti/tiendabot-backend/pkg/db/models"
	"github.com/franmoretti/tiendabot-backend/pkg/enums"
	"github.com/franmoretti/tiendabot-backend/pkg/geo"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

type stubGeocoder struct {
	location *geo.Location
	err      error
	lastAddr string
}

func (s *stubGeocoder) Geocode(_ context.Context, address string) (*geo.Location, error) {
	s.lastAddr = address
	return s.location, s.err
}

type stubTiers struct {
	tiers []models.CatalogEntry
}

func (s *stubTiers) DeliveryTiers(_ context.Context, _ string) ([]models.CatalogEntry, error) {
	return s.tiers, nil
}

func km(v float64) *float64 { return &v }

func testTiers() []models.CatalogEntry {
	return []models.CatalogEntry{
		{Description: "envío hasta 5 km", UnitPrice: decimal.NewFromInt(1000), Active: true, MinKm: km(0), MaxKm: km(5)},
		{Description: "envío hasta 10 km", UnitPrice: decimal.NewFromInt(1800), Active: true, MinKm: km(5), MaxKm: km(10)},
	}
}

func storeConfig() config.StoreConfig {
	return config.StoreConfig{
		Latitude:          -31.4201,
		Longitude:         -64.1888,
		DistancePrecision: 1,
		LocalitySuffix:    "Córdoba, Córdoba, Argentina",
		DeliveryKeyword:   "envío",
	}
}

func TestSelectTierBoundaries(t *testing.T) {
	tiers := testTiers()

	cases := []struct {
		name     string
		distance float64
		want     string
	}{
		{"inside first", 4.2, "envío hasta 5 km"},
		{"exact boundary goes to next tier", 5.0, "envío hasta 10 km"},
		{"below lowest", -0.5, "envío hasta 5 km"},
		{"above highest", 25, "envío hasta 10 km"},
		{"zero", 0, "envío hasta 5 km"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := selectTier(tiers, tc.distance)
			if got.Description != tc.want {
				t.Fatalf("selectTier(%v) = %q, want %q", tc.distance, got.Description, tc.want)
			}
		})
	}
}

func TestSelectTierGapResolvesToClosestBoundary(t *testing.T) {
	gapped := []models.CatalogEntry{
		{Description: "envío corto", UnitPrice: decimal.NewFromInt(1000), MinKm: km(0), MaxKm: km(3)},
		{Description: "envío largo", UnitPrice: decimal.NewFromInt(2000), MinKm: km(6), MaxKm: km(10)},
	}

	if got := selectTier(gapped, 3.5); got.Description != "envío corto" {
		t.Fatalf("distance near lower tier resolved to %q", got.Description)
	}
	if got := selectTier(gapped, 5.5); got.Description != "envío largo" {
		t.Fatalf("distance near upper tier resolved to %q", got.Description)
	}
}

func TestResolveProducesDeliveryLine(t *testing.T) {
	// ~4.2 km north of the store.
	geocoder := &stubGeocoder{location: &geo.Location{Lat: -31.3823, Lng: -64.1888, Exact: true}}
	r, err := NewResolver(geocoder, &stubTiers{tiers: testTiers()}, storeConfig())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	order := types.OrderDraft{
		Mode:    enums.OrderModeDelivery,
		Address: types.Address{Raw: "Av. Rafael Núñez 4500"},
	}
	resolution, err := r.Resolve(context.Background(), "t1", order)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolution == nil || resolution.Line == nil {
		t.Fatal("expected a delivery line")
	}
	if resolution.Line.Description != "envío hasta 5 km" {
		t.Fatalf("tier = %q", resolution.Line.Description)
	}
	if resolution.DistanceKm <= 3 || resolution.DistanceKm >= 5 {
		t.Fatalf("distance = %v, want ~4.2", resolution.DistanceKm)
	}
}

func TestResolveInexactGeocodeNeedsClarification(t *testing.T) {
	geocoder := &stubGeocoder{location: &geo.Location{Lat: -31.4, Lng: -64.2, Exact: false}}
	r, err := NewResolver(geocoder, &stubTiers{tiers: testTiers()}, storeConfig())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	order := types.OrderDraft{
		Mode:    enums.OrderModeDelivery,
		Address: types.Address{Raw: "por el centro"},
	}
	resolution, err := r.Resolve(context.Background(), "t1", order)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolution == nil || !resolution.NeedsClarification {
		t.Fatal("expected NeedsClarification")
	}
	if resolution.Line != nil {
		t.Fatal("ambiguous address must not produce a line")
	}
}

func TestResolveSkipsNonDeliveryAndEmptyAddress(t *testing.T) {
	geocoder := &stubGeocoder{location: &geo.Location{Lat: -31.4, Lng: -64.2, Exact: true}}
	r, err := NewResolver(geocoder, &stubTiers{tiers: testTiers()}, storeConfig())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	if res, err := r.Resolve(context.Background(), "t1", types.OrderDraft{Mode: enums.OrderModePickup}); err != nil || res != nil {
		t.Fatalf("pickup: res=%v err=%v", res, err)
	}
	if res, err := r.Resolve(context.Background(), "t1", types.OrderDraft{Mode: enums.OrderModeDelivery}); err != nil || res != nil {
		t.Fatalf("empty address: res=%v err=%v", res, err)
	}
}

func TestComposeAddressAppendsLocality(t *testing.T) {
	r, err := NewResolver(&stubGeocoder{}, &stubTiers{}, storeConfig())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	got := r.ComposeAddress(types.Address{Raw: "Av. Colón 1234"})
	want := "Av. Colón 1234, Córdoba, Córdoba, Argentina"
	if got != want {
		t.Fatalf("ComposeAddress = %q, want %q", got, want)
	}

	withLocality := r.ComposeAddress(types.Address{Raw: "Av. Colón 1234, Villa Allende"})
	if withLocality != "Av. Colón 1234, Villa Allende" {
		t.Fatalf("address with locality must be untouched, got %q", withLocality)
	}
}

func TestHaversine(t *testing.T) {
	// Córdoba to Carlos Paz is roughly 31 km.
	d := Haversine(-31.4201, -64.1888, -31.4241, -64.4978)
	if d < 28 || d > 34 {
		t.Fatalf("Haversine = %v, want ~31", d)
	}
	if z := Haversine(-31.42, -64.18, -31.42, -64.18); z != 0 {
		t.Fatalf("same point distance = %v", z)
	}
}
