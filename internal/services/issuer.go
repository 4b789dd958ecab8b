// Package services – Issuer
//
// This file implements the compensation issuer. Given a delay assessment it
// decides whether the booking earns compensation and, if so, mints exactly one
// pending CompensationRecord per booking. Exactly-once issuance is enforced by
// the store's insert-if-absent on booking_id; a caller that loses a concurrent
// race receives the winner's record.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-delay-guarantee/internal/advisory"
	"github.com/tbourn/go-delay-guarantee/internal/domain"
	"github.com/tbourn/go-delay-guarantee/internal/events"
	"github.com/tbourn/go-delay-guarantee/internal/flags"
	"github.com/tbourn/go-delay-guarantee/internal/policy"
	"github.com/tbourn/go-delay-guarantee/internal/repo"
)

const (
	// CodeTTL is how long a discount code stays redeemable after issuance.
	CodeTTL = 7 * 24 * time.Hour

	codePrefix   = "DLY-"
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 10

	// maxCodeAttempts bounds retries after a discount code collision.
	maxCodeAttempts = 5

	issuerActor    = "system"
	publishTimeout = 2 * time.Second
)

// Outcome names what Evaluate did.
type Outcome string

const (
	OutcomeDisabled     Outcome = "disabled"
	OutcomeDegraded     Outcome = "degraded"
	OutcomeNotWarranted Outcome = "not_warranted"
	OutcomeIssued       Outcome = "issued"
	OutcomeExisting     Outcome = "existing"
)

// Evaluation is the result of Evaluate. Record is nil unless Outcome is
// OutcomeIssued or OutcomeExisting.
type Evaluation struct {
	Outcome Outcome
	Record  *domain.CompensationRecord
}

// HasRecord reports whether the evaluation carries a compensation record.
func (e Evaluation) HasRecord() bool { return e.Record != nil }

// FeatureGate is the part of flags.Gate the services depend on.
type FeatureGate interface {
	Check(ctx context.Context, flag string) flags.Decision
}

// NewCodeGenerator returns a goroutine-safe generator of discount codes such
// as "DLY-7KQ2M9XAPR". Codes use an unambiguous upper-case alphabet and are
// drawn from crypto/rand by nanoid.
func NewCodeGenerator() (func() string, error) {
	gen, err := nanoid.CustomASCII(codeAlphabet, codeLength)
	if err != nil {
		return nil, err
	}
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return codePrefix + gen()
	}, nil
}

// Issuer decides on and persists compensation for delay assessments.
type Issuer struct {
	DB     *gorm.DB
	Gate   FeatureGate
	Flag   string
	Policy policy.Compensation

	// Optional collaborators; nil values fall back to no-ops.
	Advisor advisory.Advisor
	Events  events.Publisher

	Now          func() time.Time
	NewCode      func() string
	StoreTimeout time.Duration
	Log          zerolog.Logger

	notes sync.WaitGroup // in-flight advisory note lookups
}

// NewIssuer wires an Issuer with a nanoid code generator and the wall clock.
func NewIssuer(db *gorm.DB, gate FeatureGate, flag string, p policy.Compensation) (*Issuer, error) {
	gen, err := NewCodeGenerator()
	if err != nil {
		return nil, fmt.Errorf("discount code generator: %w", err)
	}
	return &Issuer{
		DB:      db,
		Gate:    gate,
		Flag:    flag,
		Policy:  p,
		Advisor: advisory.NopAdvisor{},
		Events:  events.NopPublisher{},
		Now:     time.Now,
		NewCode: gen,
		Log:     log.Logger,
	}, nil
}

// Evaluate runs the issuance decision for bookingID. The booking is looked up
// only when a new record has to be minted.
func (s *Issuer) Evaluate(ctx context.Context, bookingID string, a domain.DelayAssessment) (Evaluation, error) {
	return s.evaluate(ctx, strings.TrimSpace(bookingID), a, nil)
}

// EvaluateBooking is Evaluate for callers that already loaded the booking.
func (s *Issuer) EvaluateBooking(ctx context.Context, b *domain.Booking, a domain.DelayAssessment) (Evaluation, error) {
	if b == nil {
		return Evaluation{}, fmt.Errorf("%w: booking is required", ErrValidation)
	}
	return s.evaluate(ctx, b.ID, a, b)
}

func (s *Issuer) evaluate(ctx context.Context, bookingID string, a domain.DelayAssessment, b *domain.Booking) (ev Evaluation, err error) {
	tr := otel.Tracer("services/Issuer")
	ctx, span := tr.Start(ctx, "Evaluate",
		trace.WithAttributes(
			attribute.String("booking.id", bookingID),
			attribute.String("risk.tier", string(a.Tier)),
		),
	)
	defer func() {
		span.SetAttributes(attribute.String("outcome", string(ev.Outcome)))
		if ev.Outcome != "" {
			issuanceTotal.WithLabelValues(string(ev.Outcome)).Inc()
		}
		span.End()
	}()

	if bookingID == "" {
		return Evaluation{}, fmt.Errorf("%w: booking id is required", ErrValidation)
	}

	if d := s.Gate.Check(ctx, s.Flag); !d.Enabled {
		if d.Degraded {
			return Evaluation{Outcome: OutcomeDegraded}, nil
		}
		return Evaluation{Outcome: OutcomeDisabled}, nil
	}

	if !s.Policy.Warranted(a) {
		return Evaluation{Outcome: OutcomeNotWarranted}, nil
	}

	existing, err := s.findExisting(ctx, bookingID)
	if err != nil {
		return Evaluation{}, err
	}
	if existing != nil {
		return Evaluation{Outcome: OutcomeExisting, Record: existing}, nil
	}

	if b == nil {
		if b, err = s.loadBooking(ctx, bookingID); err != nil {
			return Evaluation{}, err
		}
	}

	terms := s.Policy.TermsFor(a.Tier)
	if err := terms.Validate(); err != nil {
		return Evaluation{}, fmt.Errorf("compensation terms for tier %s: %w", a.Tier, err)
	}
	amount, err := terms.DiscountFor(b.Amount)
	if err != nil {
		return Evaluation{}, err
	}
	amount = s.Policy.Cap(amount)

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		rec := s.newRecord(b, a, terms, amount)
		stored, created, err := s.insert(ctx, rec)
		if errors.Is(err, repo.ErrDuplicate) {
			s.logger(ctx).Warn().
				Str("booking_id", bookingID).
				Int("attempt", attempt).
				Msg("discount code collision, retrying")
			continue
		}
		if err != nil {
			return Evaluation{}, fmt.Errorf("%w: insert compensation: %w", ErrDependency, err)
		}
		if !created {
			return Evaluation{Outcome: OutcomeExisting, Record: stored}, nil
		}
		s.publish(ctx, events.TypeIssued, stored, issuerActor)
		s.attachNote(ctx, stored.ID, a, terms, amount, b.Currency)
		s.logger(ctx).Info().
			Str("booking_id", bookingID).
			Str("record_id", stored.ID).
			Str("tier", string(a.Tier)).
			Msg("compensation issued")
		return Evaluation{Outcome: OutcomeIssued, Record: stored}, nil
	}
	return Evaluation{}, fmt.Errorf("%w: no unique discount code after %d attempts", ErrDependency, maxCodeAttempts)
}

func (s *Issuer) findExisting(ctx context.Context, bookingID string) (*domain.CompensationRecord, error) {
	ctx, cancel := withStoreTimeout(ctx, s.StoreTimeout)
	defer cancel()
	rec, err := repo.FindCompensationByBooking(ctx, s.DB, bookingID)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, repo.ErrNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: find compensation: %w", ErrDependency, err)
	}
}

func (s *Issuer) loadBooking(ctx context.Context, id string) (*domain.Booking, error) {
	ctx, cancel := withStoreTimeout(ctx, s.StoreTimeout)
	defer cancel()
	return lookupBooking(ctx, s.DB, id)
}

func (s *Issuer) insert(ctx context.Context, rec *domain.CompensationRecord) (*domain.CompensationRecord, bool, error) {
	ctx, cancel := withStoreTimeout(ctx, s.StoreTimeout)
	defer cancel()
	return repo.InsertCompensationIfAbsent(ctx, s.DB, rec, issuerActor)
}

func (s *Issuer) newRecord(b *domain.Booking, a domain.DelayAssessment, terms domain.Compensation, amount float64) *domain.CompensationRecord {
	now := s.now()
	code := s.NewCode()
	expiry := now.Add(CodeTTL)
	discount := amount
	return &domain.CompensationRecord{
		ID:                uuid.NewString(),
		BookingID:         b.ID,
		UserID:            b.UserID,
		DelayMinutes:      a.EstimatedDelayMinutes,
		CompensationType:  terms.Kind,
		CompensationValue: terms.Value,
		DiscountCode:      &code,
		DiscountAmount:    &discount,
		CodeExpiry:        &expiry,
		Status:            domain.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// attachNote asks the advisor for a note in the background and stores it on
// the record. Only the caller that created the record gets here, and the
// calculation never waits for the advisor.
func (s *Issuer) attachNote(ctx context.Context, recordID string, a domain.DelayAssessment, terms domain.Compensation, amount float64, currency string) {
	if s.Advisor == nil {
		return
	}
	if _, nop := s.Advisor.(advisory.NopAdvisor); nop {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.notes.Add(1)
	go func() {
		defer s.notes.Done()
		note := s.advisoryNote(ctx, a, terms, amount, currency)
		if note == "" {
			return
		}
		uctx, cancel := withStoreTimeout(ctx, s.StoreTimeout)
		defer cancel()
		if err := repo.SetAdvisoryNote(uctx, s.DB, recordID, note); err != nil {
			s.logger(ctx).Warn().Err(err).Str("record_id", recordID).Msg("store advisory note")
		}
	}()
}

// Wait blocks until background advisory notes have been stored or dropped.
// Call it before closing the database.
func (s *Issuer) Wait() {
	s.notes.Wait()
}

func (s *Issuer) advisoryNote(ctx context.Context, a domain.DelayAssessment, terms domain.Compensation, amount float64, currency string) string {
	if s.Advisor == nil {
		return ""
	}
	note, err := s.Advisor.Note(ctx, advisory.Request{
		Assessment:     a,
		Terms:          terms,
		DiscountAmount: amount,
		Currency:       currency,
	})
	if err != nil {
		s.logger(ctx).Warn().Err(err).Str("booking_id", a.BookingID).Msg("advisory note unavailable")
		return ""
	}
	return advisory.Clip(note)
}

func (s *Issuer) publish(ctx context.Context, typ string, rec *domain.CompensationRecord, actor string) {
	publishEvent(ctx, s.Events, s.logger(ctx), events.FromRecord(typ, rec, actor, s.now()))
}

func (s *Issuer) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Issuer) logger(ctx context.Context) *zerolog.Logger {
	return loggerFrom(ctx, s.Log)
}

// publishEvent sends ev on a detached, bounded context. Failures are logged
// and never returned.
func publishEvent(ctx context.Context, p events.Publisher, l *zerolog.Logger, ev events.Event) {
	if p == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(pctx, ev); err != nil {
		l.Error().Err(err).
			Str("event", ev.Type).
			Str("record_id", ev.RecordID).
			Msg("publish compensation event failed")
	}
}

func withStoreTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// loggerFrom prefers a request-scoped logger attached to ctx and falls back to
// the service logger.
func loggerFrom(ctx context.Context, fallback zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &fallback
}

func lookupBooking(ctx context.Context, db *gorm.DB, id string) (*domain.Booking, error) {
	b, err := repo.GetBooking(ctx, db, id)
	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, repo.ErrNotFound):
		return nil, ErrBookingNotFound
	default:
		return nil, fmt.Errorf("%w: load booking: %w", ErrDependency, err)
	}
}
