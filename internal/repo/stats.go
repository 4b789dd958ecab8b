// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) on the staff review queues.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
)

// CompensationStats returns the number of records in a status and the greatest
// UpdatedAt among them. When no rows match, count is 0 and maxUpdatedAt is nil.
//
// Any transition in or out of the status changes either the count or the
// max timestamp, which makes the pair a cheap validator for a review queue.
func CompensationStats(ctx context.Context, db *gorm.DB, status domain.CompensationStatus) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.CompensationRecord{}).Where("status = ?", status)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
