package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/franmoretti/tiendabot-backend/pkg/db/models"
	pkgerrors "github.com/franmoretti/tiendabot-backend/pkg/errors"
	"github.com/franmoretti/tiendabot-backend/pkg/logger"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

// Cache is the slice of the redis client the hours store needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	HoursKey(tenantID string) string
}

// HoursStore reads and writes the per-tenant weekly schedule document.
type HoursStore interface {
	Week(ctx context.Context, tenantID string) (types.WeekSchedule, error)
	PutWeek(ctx context.Context, tenantID string, week types.WeekSchedule) error
}

type hoursStore struct {
	db       *gorm.DB
	cache    Cache
	logg     *logger.Logger
	cacheTTL time.Duration
}

// NewHoursStore builds the GORM-backed business-hours store.
func NewHoursStore(db *gorm.DB, cache Cache, logg *logger.Logger, cacheTTL time.Duration) HoursStore {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &hoursStore{db: db, cache: cache, logg: logg, cacheTTL: cacheTTL}
}

func (s *hoursStore) Week(ctx context.Context, tenantID string) (types.WeekSchedule, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, s.cache.HoursKey(tenantID)); err == nil && cached != "" {
			var week types.WeekSchedule
			if err := json.Unmarshal([]byte(cached), &week); err == nil {
				return week, nil
			}
		}
	}

	var doc models.BusinessHours
	err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.WeekSchedule{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business hours")
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(doc.Week); err == nil {
			if err := s.cache.Set(ctx, s.cache.HoursKey(tenantID), string(encoded), s.cacheTTL); err != nil && s.logg != nil {
				s.logg.Warn(ctx, "hours cache write failed")
			}
		}
	}
	return doc.Week, nil
}

func (s *hoursStore) PutWeek(ctx context.Context, tenantID string, week types.WeekSchedule) error {
	for day, ranges := range week {
		if len(ranges) > 2 {
			return pkgerrors.New(pkgerrors.CodeValidation, "at most two ranges per day").WithDetails(map[string]any{"day": day})
		}
	}

	doc := models.BusinessHours{
		ID:       uuid.New(),
		TenantID: tenantID,
		Week:     week,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"week", "updated_at"}),
		}).
		Create(&doc).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store business hours")
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, s.cache.HoursKey(tenantID)); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "hours cache invalidation failed")
		}
	}
	return nil
}
