// Admin HTTP handlers.
//
// This file exposes the staff endpoints:
//   - GET  /admin/delay/pending         (review queue by status, ETag support)
//   - GET  /admin/delay/{id}            (record detail with audit trail)
//   - POST /admin/delay/approve/{id}
//   - POST /admin/delay/reject/{id}
//   - GET  /admin/flags/{name}
//   - PUT  /admin/flags/{name}          (write through the gate, invalidating its cache)
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
	"github.com/tbourn/go-delay-guarantee/internal/utils"
)

//
// DTOs
//

// ReviewRequest is the optional JSON payload of approve/reject.
type ReviewRequest struct {
	Notes string `json:"notes" binding:"max=2000" example:"goodwill"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListCompensationsResponse wraps a page of records and pagination information.
type ListCompensationsResponse struct {
	Status        string                      `json:"status" example:"pending"`
	Compensations []domain.CompensationRecord `json:"compensations"`
	Pagination    Pagination                  `json:"pagination"`
}

// FlagResponse reports the value the gate currently serves for a flag.
type FlagResponse struct {
	Key      string `json:"key" example:"delay_guarantee_enabled"`
	Enabled  bool   `json:"enabled" example:"true"`
	Degraded bool   `json:"degraded" example:"false"`
	Source   string `json:"source" example:"cache"`
}

// SetFlagRequest is the JSON payload of PUT /admin/flags/{name}.
type SetFlagRequest struct {
	Enabled *bool `json:"enabled" binding:"required" example:"true"`
}

//
// Handlers
//

// ListCompensations godoc
// @ID          listCompensations
// @Summary     Review queue
// @Description Returns compensation records in a status, oldest first. Supports weak ETag via If-None-Match.
// @Tags        Admin
// @Produce     json
//
// @Param       status         query   string  false "Record status"  Enums(pending, approved, rejected, applied) default(pending)
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object} handlers.ListCompensationsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     503  {object} handlers.ErrorResponse "Store unavailable"
// @Router      /admin/delay/pending [get]
func (h *Handlers) ListCompensations(c *gin.Context) {
	ctx := c.Request.Context()

	status := domain.StatusPending
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, err := domain.ParseStatus(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be one of "+statusNames())
			return
		}
		status = parsed
	}
	page, pageSize, _ := utils.Normalize(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize),
	)

	// ETag pre-check (best effort). The tag covers one page of one status.
	if count, latest, err := h.wf.Stats(ctx, status); err == nil {
		scope := fmt.Sprintf("%s:p%d:s%d", status, page, pageSize)
		if notModified(c, weakETag("compensations", scope, count, latest)) {
			return
		}
	}

	items, total, err := h.wf.ListByStatus(ctx, status, page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListCompensationsResponse{
		Status:        string(status),
		Compensations: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetCompensation godoc
// @ID          getCompensation
// @Summary     Compensation detail
// @Description Returns a compensation record and its audit trail.
// @Tags        Admin
// @Produce     json
//
// @Param       id  path  string  true  "Compensation ID (UUID)"  format(uuid)
//
// @Success     200  {object} services.RecordDetail
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     503  {object} handlers.ErrorResponse "Store unavailable"
// @Router      /admin/delay/{id} [get]
func (h *Handlers) GetCompensation(c *gin.Context) {
	d, err := h.wf.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// ApproveCompensation godoc
// @ID          approveCompensation
// @Summary     Approve a pending compensation
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Reviewer ID (demo header)"
// @Param       id         path    string  true  "Compensation ID (UUID)"  format(uuid)
// @Param       body       body    handlers.ReviewRequest  false "Reviewer notes"
//
// @Success     200  {object} domain.CompensationRecord
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "Not pending"
// @Failure     503  {object} handlers.ErrorResponse "Store unavailable"
// @Router      /admin/delay/approve/{id} [post]
func (h *Handlers) ApproveCompensation(c *gin.Context) {
	notes, valid := reviewNotes(c)
	if !valid {
		return
	}
	rec, err := h.wf.Approve(c.Request.Context(), c.Param("id"), userID(c), notes)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, rec)
}

// RejectCompensation godoc
// @ID          rejectCompensation
// @Summary     Reject a pending compensation
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Reviewer ID (demo header)"
// @Param       id         path    string  true  "Compensation ID (UUID)"  format(uuid)
// @Param       body       body    handlers.ReviewRequest  false "Reviewer notes"
//
// @Success     200  {object} domain.CompensationRecord
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "Not pending"
// @Failure     503  {object} handlers.ErrorResponse "Store unavailable"
// @Router      /admin/delay/reject/{id} [post]
func (h *Handlers) RejectCompensation(c *gin.Context) {
	notes, valid := reviewNotes(c)
	if !valid {
		return
	}
	rec, err := h.wf.Reject(c.Request.Context(), c.Param("id"), userID(c), notes)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, rec)
}

// reviewNotes reads the optional review body. An empty body is allowed.
func reviewNotes(c *gin.Context) (string, bool) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return "", true
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return "", true
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return "", false
	}
	return strings.TrimSpace(req.Notes), true
}

// GetFlag godoc
// @ID          getFlag
// @Summary     Read a feature flag
// @Description Returns the value the feature gate serves, including whether it failed closed.
// @Tags        Admin
// @Produce     json
//
// @Param       name  path  string  true  "Flag name"
//
// @Success     200  {object} handlers.FlagResponse
// @Router      /admin/flags/{name} [get]
func (h *Handlers) GetFlag(c *gin.Context) {
	d := h.flags.Check(c.Request.Context(), c.Param("name"))
	ok(c, http.StatusOK, FlagResponse{Key: d.Flag, Enabled: d.Enabled, Degraded: d.Degraded, Source: d.Source})
}

// SetFlag godoc
// @ID          setFlag
// @Summary     Write a feature flag
// @Description Writes the flag through the gate; the cached value is invalidated before the response.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Actor ID (demo header)"
// @Param       name       path    string  true  "Flag name"
// @Param       body       body    handlers.SetFlagRequest  true  "New value"
//
// @Success     200  {object} handlers.FlagResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     503  {object} handlers.ErrorResponse "Store unavailable"
// @Router      /admin/flags/{name} [put]
func (h *Handlers) SetFlag(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	var req SetFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil || name == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "enabled (bool) required")
		return
	}
	ctx := c.Request.Context()
	if err := h.flags.Set(ctx, name, *req.Enabled, userID(c)); err != nil {
		_ = c.Error(err)
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "flag store unavailable")
		return
	}
	d := h.flags.Check(ctx, name)
	ok(c, http.StatusOK, FlagResponse{Key: d.Flag, Enabled: d.Enabled, Degraded: d.Degraded, Source: d.Source})
}

func statusNames() string {
	all := domain.AllStatuses()
	names := make([]string, 0, len(all))
	for _, s := range all {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
