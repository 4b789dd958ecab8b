// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the compensation record store.
//
// Uniqueness of booking_id and discount_code is enforced by unique indexes;
// the functions here never rely on a prior read to keep those rules. Status
// changes are compare-and-set UPDATEs scoped to the expected current status,
// so two staff members racing on the same record cannot both win.
//
// Error semantics:
//   - ErrNotFound when the record does not exist.
//   - ErrDuplicate when a discount code collides with an existing one.
//   - ErrStatusConflict when the record is no longer in the expected status.
//   - ErrInvalidTransition when the requested move is not in the table.
//   - ErrCodeExpired when redemption is attempted at or after code_expiry.
//   - Raw gorm errors for anything else (connectivity, timeouts).
//
// Every status change writes a CompensationEvent in the same transaction.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
)

var (
	// ErrStatusConflict indicates the compare-and-set precondition failed.
	ErrStatusConflict = errors.New("compensation status changed concurrently")
	// ErrInvalidTransition indicates a move not allowed by the status table.
	ErrInvalidTransition = errors.New("invalid compensation status transition")
	// ErrCodeExpired indicates the discount code is past its expiry.
	ErrCodeExpired = errors.New("discount code expired")
)

// FindCompensationByBooking returns the record for a booking or ErrNotFound.
func FindCompensationByBooking(ctx context.Context, db *gorm.DB, bookingID string) (*domain.CompensationRecord, error) {
	var rec domain.CompensationRecord
	if err := db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindCompensationByID returns the record with the given id or ErrNotFound.
func FindCompensationByID(ctx context.Context, db *gorm.DB, id string) (*domain.CompensationRecord, error) {
	var rec domain.CompensationRecord
	if err := db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindCompensationByCode returns the record owning a discount code or ErrNotFound.
func FindCompensationByCode(ctx context.Context, db *gorm.DB, code string) (*domain.CompensationRecord, error) {
	var rec domain.CompensationRecord
	if err := db.WithContext(ctx).Where("discount_code = ?", code).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertCompensationIfAbsent atomically inserts rec unless a record for the
// same booking already exists. It returns the stored record and whether this
// call created it. When another writer won the race, the winner's record is
// read back and returned with created=false.
//
// A collision on discount_code yields ErrDuplicate so the caller can retry
// with a fresh code.
func InsertCompensationIfAbsent(ctx context.Context, db *gorm.DB, rec *domain.CompensationRecord, actor string) (*domain.CompensationRecord, bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	var (
		out     *domain.CompensationRecord
		created bool
	)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "booking_id"}},
			DoNothing: true,
		}).Create(rec)
		if res.Error != nil {
			if isDuplicate(res.Error) {
				return ErrDuplicate
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			winner, err := FindCompensationByBooking(ctx, tx, rec.BookingID)
			if err != nil {
				return err
			}
			out = winner
			return nil
		}

		ev := domain.CompensationEvent{
			ID:         uuid.NewString(),
			RecordID:   rec.ID,
			BookingID:  rec.BookingID,
			Action:     domain.EventIssued,
			ToStatus:   rec.Status,
			Actor:      actor,
			OccurredAt: rec.CreatedAt,
		}
		if err := tx.Create(&ev).Error; err != nil {
			return err
		}
		out, created = rec, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// StatusChange describes one compare-and-set transition.
type StatusChange struct {
	ID     string
	From   domain.CompensationStatus
	To     domain.CompensationStatus
	Action string
	Actor  string
	Notes  string
	At     time.Time

	// Fields are extra columns written with the status.
	Fields map[string]any

	// ValidAt, when set, additionally requires code_expiry > ValidAt.
	ValidAt *time.Time
}

// UpdateCompensationStatus moves a record from ch.From to ch.To only if its
// current status is still ch.From. The audit event is written in the same
// transaction. On a failed precondition nothing is written and the error
// says why: ErrNotFound, ErrStatusConflict or ErrCodeExpired.
func UpdateCompensationStatus(ctx context.Context, db *gorm.DB, ch StatusChange) (*domain.CompensationRecord, error) {
	if !domain.CanTransition(ch.From, ch.To) {
		return nil, ErrInvalidTransition
	}
	if ch.At.IsZero() {
		ch.At = time.Now().UTC()
	}

	updates := map[string]any{
		"status":     ch.To,
		"updated_at": ch.At,
	}
	for k, v := range ch.Fields {
		updates[k] = v
	}

	var out domain.CompensationRecord
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&domain.CompensationRecord{}).Where("id = ? AND status = ?", ch.ID, ch.From)
		if ch.ValidAt != nil {
			q = q.Where("code_expiry > ?", *ch.ValidAt)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return classifyMiss(ctx, tx, ch)
		}

		ev := domain.CompensationEvent{
			ID:         uuid.NewString(),
			RecordID:   ch.ID,
			Action:     ch.Action,
			FromStatus: ch.From,
			ToStatus:   ch.To,
			Actor:      ch.Actor,
			Notes:      ch.Notes,
			OccurredAt: ch.At,
		}
		if err := tx.Where("id = ?", ch.ID).First(&out).Error; err != nil {
			return err
		}
		ev.BookingID = out.BookingID
		return tx.Create(&ev).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func classifyMiss(ctx context.Context, db *gorm.DB, ch StatusChange) error {
	cur, err := FindCompensationByID(ctx, db, ch.ID)
	if err != nil {
		return err
	}
	if cur.Status != ch.From {
		return ErrStatusConflict
	}
	if ch.ValidAt != nil {
		return ErrCodeExpired
	}
	return ErrStatusConflict
}

// ListCompensationsByStatus returns a page of records in the given status,
// oldest first.
func ListCompensationsByStatus(ctx context.Context, db *gorm.DB, status domain.CompensationStatus, offset, limit int) ([]domain.CompensationRecord, error) {
	var out []domain.CompensationRecord
	err := db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountCompensationsByStatus returns the number of records in a status.
func CountCompensationsByStatus(ctx context.Context, db *gorm.DB, status domain.CompensationStatus) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.CompensationRecord{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

// ListCompensationEvents returns the audit trail of a record in the order it
// happened.
func ListCompensationEvents(ctx context.Context, db *gorm.DB, recordID string) ([]domain.CompensationEvent, error) {
	var out []domain.CompensationEvent
	err := db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("occurred_at ASC").
		Find(&out).Error
	return out, err
}

// SetAdvisoryNote stores the free-text note on a record without touching its
// status or updated_at. It returns ErrNotFound when no record has the id.
func SetAdvisoryNote(ctx context.Context, db *gorm.DB, id, note string) error {
	res := db.WithContext(ctx).
		Model(&domain.CompensationRecord{}).
		Where("id = ?", id).
		UpdateColumn("advisory_note", note)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
