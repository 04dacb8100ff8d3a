package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/franmoretti/tiendabot-backend/pkg/db/models"
)

// Repository exposes catalog persistence for a tenant.
type Repository interface {
	ListActive(ctx context.Context, tenantID string) ([]models.CatalogEntry, error)
	List(ctx context.Context, tenantID string) ([]models.CatalogEntry, error)
	Upsert(ctx context.Context, entry *models.CatalogEntry) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed catalog repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListActive(ctx context.Context, tenantID string) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("description ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) List(ctx context.Context, tenantID string) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("description ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) Upsert(ctx context.Context, entry *models.CatalogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "unit_price", "active", "min_km", "max_km", "updated_at"}),
		}).
		Create(entry).Error
}
