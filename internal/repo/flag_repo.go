package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
)

// GetFlag returns the persisted flag or ErrNotFound.
func GetFlag(ctx context.Context, db *gorm.DB, key string) (*domain.FeatureFlag, error) {
	var f domain.FeatureFlag
	if err := db.WithContext(ctx).Where("key = ?", key).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// UpsertFlag creates the flag or updates its value in a single statement.
func UpsertFlag(ctx context.Context, db *gorm.DB, key string, enabled bool, actor string) (*domain.FeatureFlag, error) {
	now := time.Now().UTC()
	f := &domain.FeatureFlag{
		Key:       key,
		Enabled:   enabled,
		UpdatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_by", "updated_at"}),
	}).Create(f).Error
	if err != nil {
		return nil, err
	}
	return GetFlag(ctx, db, key)
}

// ListFlags returns every persisted flag ordered by key.
func ListFlags(ctx context.Context, db *gorm.DB) ([]domain.FeatureFlag, error) {
	var out []domain.FeatureFlag
	err := db.WithContext(ctx).Order("key ASC").Find(&out).Error
	return out, err
}
