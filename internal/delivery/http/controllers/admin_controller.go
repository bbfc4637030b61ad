package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	h "raceportal/internal/delivery/http/helpers"
	"raceportal/internal/delivery/http/middleware"
	"raceportal/internal/domain"
)

type AdminController struct {
	Logger  *slog.Logger
	Service domain.AdminService
}

func NewAdminController(logger *slog.Logger, svc domain.AdminService) *AdminController {
	return &AdminController{
		Logger:  logger,
		Service: svc,
	}
}

// ReviewRequest is the request body for POST /admin/registrations/{registrationID}/review.
type ReviewRequest struct {
	Decision string `json:"decision"` // "approve" or "reject"
	Reason   string `json:"reason"`
}

// Validate implements Validator.
func (rr ReviewRequest) Validate() []string {
	d := strings.TrimSpace(strings.ToLower(rr.Decision))
	if d != string(domain.ReviewApprove) && d != string(domain.ReviewReject) {
		return []string{"decision must be \"approve\" or \"reject\""}
	}
	return nil
}

// Review godoc
// @Summary Decide a registration under review
// @Description Approval confirms the registration and allocates its bib; rejection releases the slot. Requires registrations:write.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Param body body ReviewRequest true "Decision"
// @Success 200 {object} helpers.APIResponse "data contains the registration"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/registrations/{registrationID}/review [post]
func (c *AdminController) Review(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	var req ReviewRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	decision := domain.ReviewDecision(strings.TrimSpace(strings.ToLower(req.Decision)))
	reg, err := c.Service.ReviewRegistration(r.Context(), actorID, registrationID, decision, req.Reason)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, reg)
}

// OverrideStatusRequest is the request body for POST /admin/registrations/{registrationID}/status.
type OverrideStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Validate implements Validator.
func (or OverrideStatusRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(or.Status) == "" {
		errs = append(errs, "status is required")
	}
	if strings.TrimSpace(or.Reason) == "" {
		errs = append(errs, "reason is required")
	}
	return errs
}

// OverrideStatus godoc
// @Summary Force a registration into a status
// @Description Audited escape hatch that bypasses the transition table; the only way out of a terminal status. Requires registrations:write.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Param body body OverrideStatusRequest true "Target status and reason"
// @Success 200 {object} helpers.APIResponse "data contains the registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict or capacity_exceeded"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/registrations/{registrationID}/status [post]
func (c *AdminController) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	var req OverrideStatusRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	to := domain.Status(strings.TrimSpace(strings.ToLower(req.Status)))
	reg, err := c.Service.OverrideStatus(r.Context(), actorID, registrationID, to, req.Reason)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, reg)
}

// UpdateCapacityRequest is the request body for PATCH /admin/categories/{categoryID}/capacity.
type UpdateCapacityRequest struct {
	TotalSlots int `json:"total_slots"`
}

// Validate implements Validator.
func (ur UpdateCapacityRequest) Validate() []string {
	if ur.TotalSlots < 0 {
		return []string{"total_slots must not be negative"}
	}
	return nil
}

// UpdateCapacity godoc
// @Summary Change a category's total slots
// @Description Never accepts a value below the category's current reserved+confirmed count. Requires settings:write.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param categoryID path string true "Category ID"
// @Param body body UpdateCapacityRequest true "New capacity"
// @Success 200 {object} helpers.APIResponse "data contains the category"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/categories/{categoryID}/capacity [patch]
func (c *AdminController) UpdateCapacity(w http.ResponseWriter, r *http.Request) {
	categoryID := r.PathValue("categoryID")
	var req UpdateCapacityRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	category, err := c.Service.UpdateCategoryCapacity(r.Context(), actorID, categoryID, req.TotalSlots)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, category)
}

// ListRegistrationsResponse is the data payload for the event registration listing.
type ListRegistrationsResponse struct {
	Registrations []*domain.RegistrationWithAthlete `json:"registrations"`
	Pagination    h.PaginationMeta                  `json:"pagination"`
}

// ListRegistrations godoc
// @Summary List an event's registrations with athlete data
// @Description Paginated organizer-facing listing. Requires registrations:read.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} helpers.APIResponse "data contains registrations and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID}/registrations [get]
func (c *AdminController) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	p := h.ParsePagination(r)
	rows, total, err := c.Service.ListEventRegistrations(r.Context(), actorID, eventID, p)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, ListRegistrationsResponse{
		Registrations: rows,
		Pagination:    h.NewPaginationMeta(p.Page, p.PageSize, total),
	})
}

// ListAuditResponse is the data payload for the audit log listing.
type ListAuditResponse struct {
	Entries    []*domain.AuditEntry `json:"entries"`
	Pagination h.PaginationMeta     `json:"pagination"`
}

// ListAudit godoc
// @Summary Read the audit log
// @Description Paginated, append-only audit trail of administrative and lifecycle mutations. Requires audit:read.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param resource query string false "Filter by resource"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} helpers.APIResponse "data contains entries and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/audit [get]
func (c *AdminController) ListAudit(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	p := h.ParsePagination(r)
	resource := r.URL.Query().Get("resource")
	entries, total, err := c.Service.ListAuditEntries(r.Context(), actorID, resource, p)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, ListAuditResponse{
		Entries:    entries,
		Pagination: h.NewPaginationMeta(p.Page, p.PageSize, total),
	})
}
