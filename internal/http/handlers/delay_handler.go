// Delay HTTP handlers.
//
// This file exposes the booking-facing endpoints of the delay guarantee:
//   - GET  /delay/calculate/{bookingId}   (assess and maybe issue compensation)
//   - POST /delay/calculate               (same, used after booking; idempotent)
//   - POST /delay/redeem                  (redeem an approved discount code)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results and service errors into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
	"github.com/tbourn/go-delay-guarantee/internal/flags"
	"github.com/tbourn/go-delay-guarantee/internal/http/middleware"
	"github.com/tbourn/go-delay-guarantee/internal/repo"
	"github.com/tbourn/go-delay-guarantee/internal/services"
)

//
// Service contracts (context-aware)
//

// DelayService runs a delay calculation for a booking.
type DelayService interface {
	Calculate(ctx context.Context, req services.CalculateRequest) (*services.CalculateResult, error)
}

// Workflow drives compensation records through review and redemption.
type Workflow interface {
	Approve(ctx context.Context, id, reviewer, notes string) (*domain.CompensationRecord, error)
	Reject(ctx context.Context, id, reviewer, notes string) (*domain.CompensationRecord, error)
	MarkApplied(ctx context.Context, code string) (*domain.CompensationRecord, error)
	ListByStatus(ctx context.Context, status domain.CompensationStatus, page, pageSize int) ([]domain.CompensationRecord, int64, error)
	Stats(ctx context.Context, status domain.CompensationStatus) (int64, *time.Time, error)
	Get(ctx context.Context, id string) (*services.RecordDetail, error)
}

// FlagAdmin reads and writes feature flags through the cached gate.
type FlagAdmin interface {
	Check(ctx context.Context, flag string) flags.Decision
	Set(ctx context.Context, flag string, enabled bool, actor string) error
}

//
// Handler wiring
//

// idempotencyScope namespaces Idempotency-Key records of the calculate call.
const idempotencyScope = "delay.calculate"

// Handlers groups the HTTP endpoints of the engine.
type Handlers struct {
	delay DelayService
	wf    Workflow
	flags FlagAdmin

	// db backs Idempotency-Key records; nil disables replay detection.
	db      *gorm.DB
	idemTTL time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(delay DelayService, wf Workflow, flagAdmin FlagAdmin, db *gorm.DB, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{delay: delay, wf: wf, flags: flagAdmin, db: db, idemTTL: idemTTL}
}

// userID extracts the caller id from Gin context (set by upstream middleware).
// If absent, it falls back to the "X-User-ID" header and finally to
// "demo-user".
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CalculateRequest is the JSON payload of POST /delay/calculate.
type CalculateRequest struct {
	BookingID   string `json:"bookingId" binding:"required" example:"bk_20250310_0042"`
	Origin      string `json:"origin" example:"Athens Airport"`
	Destination string `json:"destination" example:"Plaka"`
}

// RouteResponse echoes the route that was assessed.
type RouteResponse struct {
	Origin            string  `json:"origin" example:"Athens Airport"`
	Destination       string  `json:"destination" example:"Plaka"`
	Distance          float64 `json:"distance" example:"40"`
	EstimatedDuration float64 `json:"estimatedDuration" example:"50"`
}

// CalculateResponse is the assessment plus any compensation on record.
type CalculateResponse struct {
	BookingID             string        `json:"bookingId" example:"bk_20250310_0042"`
	DelayRiskScore        int           `json:"delayRiskScore" example:"40"`
	RiskTier              string        `json:"riskTier" example:"medium"`
	EstimatedDelayMinutes int           `json:"estimatedDelayMinutes" example:"10"`
	DiscountGenerated     bool          `json:"discountGenerated" example:"true"`
	DiscountCode          *string       `json:"discountCode,omitempty" example:"DLY-7KQ2M9XAPR"`
	DiscountAmount        *float64      `json:"discountAmount,omitempty" example:"12"`
	CodeExpiry            *time.Time    `json:"codeExpiry,omitempty"`
	Status                string        `json:"status" example:"pending"`
	Defaulted             bool          `json:"defaulted,omitempty"`
	RouteOverridden       bool          `json:"routeOverridden,omitempty"`
	Route                 RouteResponse `json:"route"`
}

// RedeemRequest is the JSON payload of POST /delay/redeem.
type RedeemRequest struct {
	Code string `json:"code" binding:"required" example:"DLY-7KQ2M9XAPR"`
}

func toCalculateResponse(res *services.CalculateResult) CalculateResponse {
	a := res.Assessment
	out := CalculateResponse{
		BookingID:             a.BookingID,
		DelayRiskScore:        a.Score,
		RiskTier:              string(a.Tier),
		EstimatedDelayMinutes: a.EstimatedDelayMinutes,
		Status:                res.Status(),
		Defaulted:             a.Defaulted,
		RouteOverridden:       res.RouteOverridden,
		Route: RouteResponse{
			Origin:            a.Route.Origin,
			Destination:       a.Route.Destination,
			Distance:          a.Route.DistanceKm,
			EstimatedDuration: a.Route.DurationMinutes,
		},
	}
	if rec := res.Evaluation.Record; rec != nil {
		out.DiscountGenerated = rec.DiscountCode != nil
		out.DiscountCode = rec.DiscountCode
		out.DiscountAmount = rec.DiscountAmount
		out.CodeExpiry = rec.CodeExpiry
	}
	return out
}

//
// Handlers
//

// GetCalculate godoc
// @ID          getDelayCalculation
// @Summary     Assess delay risk for a booking
// @Description Scores the booking's route and, when warranted and the feature is enabled, issues a pending discount code.
// @Description Repeated calls return the same compensation record.
// @Tags        Delay
// @Produce     json
//
// @Param       bookingId    path   string  true  "Booking ID"
// @Param       origin       query  string  false "Origin label override"
// @Param       destination  query  string  false "Destination label override"
//
// @Success     200  {object}  handlers.CalculateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Booking not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /delay/calculate/{bookingId} [get]
func (h *Handlers) GetCalculate(c *gin.Context) {
	res, err := h.delay.Calculate(c.Request.Context(), services.CalculateRequest{
		BookingID:   c.Param("bookingId"),
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, toCalculateResponse(res))
}

// PostCalculate godoc
// @ID          postDelayCalculation
// @Summary     Assess delay risk after booking
// @Description Same as the GET variant. Supports Idempotency-Key; a key is bound to one booking.
// @Tags        Delay
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       body             body    handlers.CalculateRequest  true  "Booking to assess"
//
// @Success     200  {object}  handlers.CalculateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Booking not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Idempotency-Key reused for another booking"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /delay/calculate [post]
func (h *Handlers) PostCalculate(c *gin.Context) {
	ctx := c.Request.Context()

	var req CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.BookingID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "bookingId required")
		return
	}
	bookingID := strings.TrimSpace(req.BookingID)
	uid := userID(c)

	// Idempotency (replay path): a key may only ever describe one booking.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	replay := false
	if idemKey != "" && h.db != nil {
		prev, err := repo.GetIdempotency(ctx, h.db, uid, idempotencyScope, idemKey, time.Now().UTC())
		if err == nil && prev != nil {
			if prev.ResourceID != bookingID {
				fail(c, http.StatusConflict, ErrCodeIdempotencyReuse, "Idempotency-Key already used for another booking")
				return
			}
			replay = true
		}
	}

	res, err := h.delay.Calculate(ctx, services.CalculateRequest{
		BookingID:   bookingID,
		Origin:      req.Origin,
		Destination: req.Destination,
	})
	if err != nil {
		failService(c, err)
		return
	}

	if replay {
		c.Header("Idempotency-Replayed", "true")
	} else if idemKey != "" && h.db != nil {
		// Best effort; a lost race with a concurrent retry is harmless.
		if _, err := repo.CreateIdempotency(ctx, h.db, uid, idempotencyScope, idemKey, bookingID, http.StatusOK, h.idemTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("store idempotency key")
		}
	}
	ok(c, http.StatusOK, toCalculateResponse(res))
}

// Redeem godoc
// @ID          redeemDiscount
// @Summary     Redeem a discount code
// @Description Marks an approved compensation as applied. Expired codes are refused whatever their state.
// @Tags        Delay
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RedeemRequest  true  "Discount code"
//
// @Success     200  {object}  domain.CompensationRecord
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown code"
// @Failure     409  {object}  handlers.ErrorResponse  "Not approved"
// @Failure     410  {object}  handlers.ErrorResponse  "Code expired"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /delay/redeem [post]
func (h *Handlers) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code required")
		return
	}
	rec, err := h.wf.MarkApplied(c.Request.Context(), req.Code)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, rec)
}
