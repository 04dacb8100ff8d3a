package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/franmoretti/tiendabot-backend/pkg/db/models"
	pkgerrors "github.com/franmoretti/tiendabot-backend/pkg/errors"
	"github.com/franmoretti/tiendabot-backend/pkg/logger"
)

// Cache is the slice of the redis client the pricer needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CatalogKey(tenantID string) string
}

// Service prices order lines against the tenant's active catalog.
//
// Matching is case-insensitive equality first, substring second; it is
// deliberately not fuzzy, so a description the model invented simply
// prices at "not found" and forces a repair cycle.
type Service interface {
	PriceFor(ctx context.Context, tenantID, description string) (decimal.Decimal, bool, error)
	DeliveryTiers(ctx context.Context, tenantID string) ([]models.CatalogEntry, error)
	ListEntries(ctx context.Context, tenantID string) ([]models.CatalogEntry, error)
	UpsertEntry(ctx context.Context, entry *models.CatalogEntry) error
}

type service struct {
	repo            Repository
	cache           Cache
	logg            *logger.Logger
	cacheTTL        time.Duration
	deliveryKeyword string
}

// ServiceParams carries the pricer dependencies.
type ServiceParams struct {
	Repo            Repository
	Cache           Cache
	Logger          *logger.Logger
	CacheTTL        time.Duration
	DeliveryKeyword string
}

// NewService builds the catalog pricer.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.CacheTTL <= 0 {
		params.CacheTTL = time.Minute
	}
	return &service{
		repo:            params.Repo,
		cache:           params.Cache,
		logg:            params.Logger,
		cacheTTL:        params.CacheTTL,
		deliveryKeyword: strings.ToLower(strings.TrimSpace(params.DeliveryKeyword)),
	}, nil
}

func (s *service) PriceFor(ctx context.Context, tenantID, description string) (decimal.Decimal, bool, error) {
	needle := strings.ToLower(strings.TrimSpace(description))
	if needle == "" {
		return decimal.Zero, false, nil
	}

	entries, err := s.activeEntries(ctx, tenantID)
	if err != nil {
		return decimal.Zero, false, err
	}

	for _, entry := range entries {
		if strings.EqualFold(strings.TrimSpace(entry.Description), strings.TrimSpace(description)) {
			return entry.UnitPrice, true, nil
		}
	}
	for _, entry := range entries {
		haystack := strings.ToLower(entry.Description)
		if strings.Contains(haystack, needle) || strings.Contains(needle, haystack) {
			return entry.UnitPrice, true, nil
		}
	}
	return decimal.Zero, false, nil
}

func (s *service) DeliveryTiers(ctx context.Context, tenantID string) ([]models.CatalogEntry, error) {
	entries, err := s.activeEntries(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	tiers := make([]models.CatalogEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDeliveryTier() {
			continue
		}
		if s.deliveryKeyword != "" && !strings.HasPrefix(strings.ToLower(entry.Description), s.deliveryKeyword) {
			continue
		}
		tiers = append(tiers, entry)
	}
	sort.Slice(tiers, func(i, j int) bool {
		return *tiers[i].MinKm < *tiers[j].MinKm
	})
	return tiers, nil
}

func (s *service) ListEntries(ctx context.Context, tenantID string) ([]models.CatalogEntry, error) {
	entries, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalog entries")
	}
	return entries, nil
}

func (s *service) UpsertEntry(ctx context.Context, entry *models.CatalogEntry) error {
	if entry == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "catalog entry required")
	}
	if strings.TrimSpace(entry.TenantID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if strings.TrimSpace(entry.Description) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert catalog entry")
	}
	s.invalidate(ctx, entry.TenantID)
	return nil
}

// activeEntries reads through the short-TTL cache so bursts of turns do
// not hammer the catalog table.
func (s *service) activeEntries(ctx context.Context, tenantID string) ([]models.CatalogEntry, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, s.cache.CatalogKey(tenantID)); err == nil && cached != "" {
			var entries []models.CatalogEntry
			if err := json.Unmarshal([]byte(cached), &entries); err == nil {
				return entries, nil
			}
		}
	}

	entries, err := s.repo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active catalog")
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(entries); err == nil {
			if err := s.cache.Set(ctx, s.cache.CatalogKey(tenantID), string(encoded), s.cacheTTL); err != nil && s.logg != nil {
				s.logg.Warn(ctx, "catalog cache write failed")
			}
		}
	}
	return entries, nil
}

func (s *service) invalidate(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.CatalogKey(tenantID)); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "catalog cache invalidation failed")
	}
}
