// Package domain defines the persistence models for bookings, feature flags,
// compensation records and their audit events. These types are mapped with
// GORM and form the core data layer of the delay guarantee engine.
package domain

import "time"

// Booking is the read model of a transfer booking owned by the booking
// service. The engine never writes it; it only needs the amount to price a
// discount and the route attributes to estimate delay risk.
//
// Fields:
//   - ID: booking identifier issued by the booking service.
//   - UserID: customer who owns the booking.
//   - Amount / Currency: price paid, used to derive discount amounts.
//   - Status: booking lifecycle state as reported by the booking service.
//   - Origin / Destination: human-readable pickup and drop-off points.
//   - DistanceKm / DurationMinutes: route attributes; zero means unknown.
//   - DepartureAt: scheduled pickup time, optional.
type Booking struct {
	ID              string     `json:"id"              gorm:"type:varchar(64);primaryKey"`
	UserID          string     `json:"userId"          gorm:"type:varchar(64);not null;index"`
	Amount          float64    `json:"amount"          gorm:"not null;default:0"`
	Currency        string     `json:"currency"        gorm:"type:varchar(8);not null;default:'USD'"`
	Status          string     `json:"status"          gorm:"type:varchar(32);not null;default:'confirmed'"`
	Origin          string     `json:"origin"          gorm:"type:varchar(255)"`
	Destination     string     `json:"destination"     gorm:"type:varchar(255)"`
	DistanceKm      float64    `json:"distanceKm"`
	DurationMinutes float64    `json:"durationMinutes"`
	DepartureAt     *time.Time `json:"departureAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TableName returns the database table name for Booking.
func (Booking) TableName() string { return "bookings" }

// FeatureFlag is a persisted boolean switch. The delay guarantee engine reads
// it through the cached feature gate only.
type FeatureFlag struct {
	ID          uint      `json:"-"           gorm:"primaryKey"`
	Key         string    `json:"key"         gorm:"type:varchar(128);not null;uniqueIndex:ux_feature_flags_key"`
	Enabled     bool      `json:"enabled"     gorm:"not null;default:false"`
	Description string    `json:"description" gorm:"type:varchar(512)"`
	UpdatedBy   string    `json:"updatedBy"   gorm:"type:varchar(64)"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName returns the database table name for FeatureFlag.
func (FeatureFlag) TableName() string { return "feature_flags" }

// CompensationRecord tracks a promised discount tied to exactly one booking.
// At most one record exists per booking and every non-null discount code is
// unique; both rules are enforced by unique indexes.
//
// Records are never deleted. Status moves along the transitions declared in
// status.go and is only changed by conditional writes in the repo package.
type CompensationRecord struct {
	ID                string             `json:"id"                gorm:"type:char(36);primaryKey"`
	BookingID         string             `json:"bookingId"         gorm:"type:varchar(64);not null;uniqueIndex:ux_compensation_booking"`
	UserID            string             `json:"userId"            gorm:"type:varchar(64);not null;index"`
	DelayMinutes      int                `json:"delayMinutes"      gorm:"not null;default:0;check:chk_compensation_delay,delay_minutes >= 0"`
	CompensationType  CompensationKind   `json:"compensationType"  gorm:"type:varchar(16);not null;check:chk_compensation_type,compensation_type IN ('percentage','fixed')"`
	CompensationValue float64            `json:"compensationValue" gorm:"not null;check:chk_compensation_value,compensation_value > 0"`
	DiscountCode      *string            `json:"discountCode"      gorm:"type:varchar(32);uniqueIndex:ux_compensation_code"`
	DiscountAmount    *float64           `json:"discountAmount"`
	CodeExpiry        *time.Time         `json:"codeExpiry"`
	Status            CompensationStatus `json:"status"            gorm:"type:varchar(16);not null;default:'pending';check:chk_compensation_status,status IN ('pending','approved','rejected','applied');index:idx_compensation_status_created,priority:1"`
	AdvisoryNote      string             `json:"advisoryNote,omitempty" gorm:"type:text"`
	ReviewedBy        *string            `json:"reviewedBy"        gorm:"type:varchar(64)"`
	ReviewNotes       *string            `json:"reviewNotes"       gorm:"type:text"`
	ReviewedAt        *time.Time         `json:"reviewedAt"`
	AppliedAt         *time.Time         `json:"appliedAt"`
	CreatedAt         time.Time          `json:"createdAt"         gorm:"index:idx_compensation_status_created,priority:2"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// TableName returns the database table name for CompensationRecord.
func (CompensationRecord) TableName() string { return "compensation_records" }

// Terms returns the compensation variant stored on the record.
func (r CompensationRecord) Terms() Compensation {
	return Compensation{Kind: r.CompensationType, Value: r.CompensationValue}
}

// Lifecycle actions recorded in the audit trail.
const (
	EventIssued   = "issued"
	EventApproved = "approved"
	EventRejected = "rejected"
	EventApplied  = "applied"
)

// CompensationEvent is one append-only audit row describing a lifecycle step
// of a compensation record. Events are written in the same transaction as the
// state change they describe.
type CompensationEvent struct {
	ID         string             `json:"id"         gorm:"type:char(36);primaryKey"`
	RecordID   string             `json:"recordId"   gorm:"type:char(36);not null;index:idx_compensation_events_record,priority:1"`
	BookingID  string             `json:"bookingId"  gorm:"type:varchar(64);not null;index"`
	Action     string             `json:"action"     gorm:"type:varchar(16);not null"`
	FromStatus CompensationStatus `json:"fromStatus" gorm:"type:varchar(16)"`
	ToStatus   CompensationStatus `json:"toStatus"   gorm:"type:varchar(16);not null"`
	Actor      string             `json:"actor"      gorm:"type:varchar(64);not null"`
	Notes      string             `json:"notes,omitempty" gorm:"type:text"`
	OccurredAt time.Time          `json:"occurredAt" gorm:"not null;index:idx_compensation_events_record,priority:2"`
}

// TableName returns the database table name for CompensationEvent.
func (CompensationEvent) TableName() string { return "compensation_events" }
