// Package services – Workflow
//
// This file implements the staff approval workflow for compensation records.
// Every transition is a compare-and-set at the storage layer together with an
// audit event, so a reviewer can never silently overwrite another reviewer's
// decision.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
	"github.com/tbourn/go-delay-guarantee/internal/events"
	"github.com/tbourn/go-delay-guarantee/internal/repo"
	"github.com/tbourn/go-delay-guarantee/internal/utils"
)

// redeemActor is recorded on the audit trail for code redemptions.
const redeemActor = "redemption"

// maxReviewNotesRunes caps stored reviewer notes.
const maxReviewNotesRunes = 2000

// Workflow drives compensation records through review and redemption.
type Workflow struct {
	DB           *gorm.DB
	Events       events.Publisher
	Now          func() time.Time
	StoreTimeout time.Duration
	Log          zerolog.Logger
}

// NewWorkflow returns a Workflow using the wall clock and no event sink.
func NewWorkflow(db *gorm.DB) *Workflow {
	return &Workflow{
		DB:     db,
		Events: events.NopPublisher{},
		Now:    time.Now,
		Log:    log.Logger,
	}
}

// RecordDetail is a record together with its audit trail.
type RecordDetail struct {
	Record *domain.CompensationRecord `json:"record"`
	Events []domain.CompensationEvent `json:"events"`
}

// Approve moves a pending record to approved.
func (w *Workflow) Approve(ctx context.Context, id, reviewer, notes string) (*domain.CompensationRecord, error) {
	return w.review(ctx, id, reviewer, notes, domain.StatusApproved, domain.EventApproved, events.TypeApproved)
}

// Reject moves a pending record to rejected.
func (w *Workflow) Reject(ctx context.Context, id, reviewer, notes string) (*domain.CompensationRecord, error) {
	return w.review(ctx, id, reviewer, notes, domain.StatusRejected, domain.EventRejected, events.TypeRejected)
}

func (w *Workflow) review(ctx context.Context, id, reviewer, notes string, to domain.CompensationStatus, action, eventType string) (rec *domain.CompensationRecord, err error) {
	tr := otel.Tracer("services/Workflow")
	ctx, span := tr.Start(ctx, "review",
		trace.WithAttributes(
			attribute.String("compensation.id", id),
			attribute.String("to", string(to)),
		),
	)
	defer span.End()
	defer func() { transitionsTotal.WithLabelValues(string(to), resultLabel(err)).Inc() }()

	id = strings.TrimSpace(id)
	reviewer = strings.TrimSpace(reviewer)
	if id == "" {
		return nil, fmt.Errorf("%w: compensation id is required", ErrValidation)
	}
	if reviewer == "" {
		return nil, fmt.Errorf("%w: reviewer is required", ErrValidation)
	}
	notes = clipRunes(strings.TrimSpace(notes), maxReviewNotesRunes)

	now := w.now()
	fields := map[string]any{
		"reviewed_by": reviewer,
		"reviewed_at": now,
	}
	if notes != "" {
		fields["review_notes"] = notes
	}

	sctx, cancel := withStoreTimeout(ctx, w.StoreTimeout)
	defer cancel()
	rec, err = repo.UpdateCompensationStatus(sctx, w.DB, repo.StatusChange{
		ID:     id,
		From:   domain.StatusPending,
		To:     to,
		Action: action,
		Actor:  reviewer,
		Notes:  notes,
		At:     now,
		Fields: fields,
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	loggerFrom(ctx, w.Log).Info().
		Str("record_id", rec.ID).
		Str("booking_id", rec.BookingID).
		Str("status", string(rec.Status)).
		Str("reviewer", reviewer).
		Msg("compensation reviewed")
	publishEvent(ctx, w.Events, loggerFrom(ctx, w.Log), events.FromRecord(eventType, rec, reviewer, now))
	return rec, nil
}

// MarkApplied redeems a discount code. Expiry is checked before status, so a
// code at or past its expiry yields ErrExpired whatever state it is in. A
// code that has not been approved yields ErrInvalidState.
func (w *Workflow) MarkApplied(ctx context.Context, code string) (rec *domain.CompensationRecord, err error) {
	tr := otel.Tracer("services/Workflow")
	ctx, span := tr.Start(ctx, "MarkApplied")
	defer span.End()
	defer func() { transitionsTotal.WithLabelValues(string(domain.StatusApplied), resultLabel(err)).Inc() }()

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: discount code is required", ErrValidation)
	}

	sctx, cancel := withStoreTimeout(ctx, w.StoreTimeout)
	defer cancel()

	cur, err := repo.FindCompensationByCode(sctx, w.DB, code)
	if err != nil {
		return nil, mapStoreError(err)
	}
	span.SetAttributes(attribute.String("compensation.id", cur.ID))

	now := w.now()
	if cur.CodeExpiry == nil || !now.Before(*cur.CodeExpiry) {
		return nil, ErrExpired
	}
	if cur.Status.Terminal() {
		return nil, fmt.Errorf("%w: code already %s", ErrInvalidState, cur.Status)
	}
	if cur.Status != domain.StatusApproved {
		return nil, fmt.Errorf("%w: code is %s, not yet approved", ErrInvalidState, cur.Status)
	}

	rec, err = repo.UpdateCompensationStatus(sctx, w.DB, repo.StatusChange{
		ID:      cur.ID,
		From:    domain.StatusApproved,
		To:      domain.StatusApplied,
		Action:  domain.EventApplied,
		Actor:   redeemActor,
		At:      now,
		Fields:  map[string]any{"applied_at": now},
		ValidAt: &now,
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	loggerFrom(ctx, w.Log).Info().
		Str("record_id", rec.ID).
		Str("booking_id", rec.BookingID).
		Msg("discount code applied")
	publishEvent(ctx, w.Events, loggerFrom(ctx, w.Log), events.FromRecord(events.TypeApplied, rec, redeemActor, now))
	return rec, nil
}

// ListByStatus returns one page of records in status, oldest first, and the
// total number of records in that status.
func (w *Workflow) ListByStatus(ctx context.Context, status domain.CompensationStatus, page, pageSize int) ([]domain.CompensationRecord, int64, error) {
	tr := otel.Tracer("services/Workflow")
	ctx, span := tr.Start(ctx, "ListByStatus",
		trace.WithAttributes(
			attribute.String("status", string(status)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if !status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	_, size, offset := utils.Normalize(page, pageSize)

	ctx, cancel := withStoreTimeout(ctx, w.StoreTimeout)
	defer cancel()

	total, err := repo.CountCompensationsByStatus(ctx, w.DB, status)
	if err != nil {
		return nil, 0, mapStoreError(err)
	}
	if total == 0 {
		return []domain.CompensationRecord{}, 0, nil
	}
	items, err := repo.ListCompensationsByStatus(ctx, w.DB, status, offset, size)
	if err != nil {
		return nil, 0, mapStoreError(err)
	}
	return items, total, nil
}

// Stats returns the count and latest update time of records in status; the
// HTTP layer derives a weak ETag from it.
func (w *Workflow) Stats(ctx context.Context, status domain.CompensationStatus) (int64, *time.Time, error) {
	if !status.Valid() {
		return 0, nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	ctx, cancel := withStoreTimeout(ctx, w.StoreTimeout)
	defer cancel()
	n, ts, err := repo.CompensationStats(ctx, w.DB, status)
	if err != nil {
		return 0, nil, mapStoreError(err)
	}
	return n, ts, nil
}

// Get returns a record and its audit trail.
func (w *Workflow) Get(ctx context.Context, id string) (*RecordDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: compensation id is required", ErrValidation)
	}
	ctx, cancel := withStoreTimeout(ctx, w.StoreTimeout)
	defer cancel()

	rec, err := repo.FindCompensationByID(ctx, w.DB, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	evs, err := repo.ListCompensationEvents(ctx, w.DB, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return &RecordDetail{Record: rec, Events: evs}, nil
}

func (w *Workflow) now() time.Time {
	if w.Now == nil {
		return time.Now().UTC()
	}
	return w.Now().UTC()
}

// mapStoreError translates repo errors into service errors.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrCompensationNotFound
	case errors.Is(err, repo.ErrStatusConflict):
		return ErrConflict
	case errors.Is(err, repo.ErrInvalidTransition):
		return ErrInvalidState
	case errors.Is(err, repo.ErrCodeExpired):
		return ErrExpired
	default:
		return fmt.Errorf("%w: %w", ErrDependency, err)
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrCompensationNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

func clipRunes(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return string(r[:max])
}
