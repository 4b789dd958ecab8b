package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetBooking loads the booking read model by id.
func GetBooking(ctx context.Context, db *gorm.DB, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveBooking upserts a booking row. The engine never calls it on the request
// path; it exists for seeding from the admin CLI and tests.
func SaveBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	return db.WithContext(ctx).Save(b).Error
}
