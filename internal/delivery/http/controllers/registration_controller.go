package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	h "raceportal/internal/delivery/http/helpers"
	"raceportal/internal/delivery/http/middleware"
	"raceportal/internal/domain"
)

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// AthleteRequest carries the athlete profile inside a signup.
type AthleteRequest struct {
	FullName         string    `json:"full_name"`
	BirthDate        time.Time `json:"birth_date"`
	Gender           string    `json:"gender"`
	Document         string    `json:"document"`
	Email            string    `json:"email"`
	City             string    `json:"city"`
	State            string    `json:"state"`
	Resident         bool      `json:"resident"`
	GuardianName     string    `json:"guardian_name"`
	GuardianDocument string    `json:"guardian_document"`
}

// SignUpForEventRequest is the request body for POST /events/{slug}/registrations.
type SignUpForEventRequest struct {
	CategorySlug string          `json:"category_slug"`
	Athlete      *AthleteRequest `json:"athlete"`
}

// Validate implements Validator.
func (s SignUpForEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(s.CategorySlug) == "" {
		errs = append(errs, "category_slug is required")
	}
	if s.Athlete != nil {
		if strings.TrimSpace(s.Athlete.FullName) == "" {
			errs = append(errs, "athlete.full_name is required")
		}
		if s.Athlete.BirthDate.IsZero() {
			errs = append(errs, "athlete.birth_date is required")
		}
		if strings.TrimSpace(s.Athlete.Document) == "" {
			errs = append(errs, "athlete.document is required")
		}
		if strings.TrimSpace(s.Athlete.Email) == "" {
			errs = append(errs, "athlete.email is required")
		}
	}
	return errs
}

func (s SignUpForEventRequest) athlete() *domain.Athlete {
	if s.Athlete == nil {
		return nil
	}
	return &domain.Athlete{
		FullName:         strings.TrimSpace(s.Athlete.FullName),
		BirthDate:        s.Athlete.BirthDate,
		Gender:           s.Athlete.Gender,
		Document:         strings.TrimSpace(s.Athlete.Document),
		Email:            strings.TrimSpace(strings.ToLower(s.Athlete.Email)),
		City:             s.Athlete.City,
		State:            s.Athlete.State,
		Resident:         s.Athlete.Resident,
		GuardianName:     strings.TrimSpace(s.Athlete.GuardianName),
		GuardianDocument: strings.TrimSpace(s.Athlete.GuardianDocument),
	}
}

// SignUp godoc
// @Summary Register the current athlete for an event category
// @Description Creates a registration, reserving a slot in the category. The registration lands in pending_payment for paid categories, pending_documents when supporting documents are required, or directly in confirmed for free categories with nothing to review.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body SignUpForEventRequest true "Signup data"
// @Success 201 {object} helpers.APIResponse "data contains the registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: capacity_exceeded or conflict"
// @Failure 422 {object} helpers.APIResponse "error.code: ineligible"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registrations [post]
func (c *RegistrationController) SignUp(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req SignUpForEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}

	reg, err := c.Service.SignUp(r.Context(), userID, domain.SignUpInput{
		EventID:      eventID,
		CategorySlug: strings.TrimSpace(req.CategorySlug),
		Athlete:      req.athlete(),
	})
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, reg)
}

// ListMine godoc
// @Summary List the current athlete's registrations
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the registrations"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations [get]
func (c *RegistrationController) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	regs, err := c.Service.ListMyRegistrations(r.Context(), userID)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, regs)
}

// Get godoc
// @Summary Get one of the current athlete's registrations
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} helpers.APIResponse "data contains the registration"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID} [get]
func (c *RegistrationController) Get(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	reg, err := c.Service.GetMyRegistration(r.Context(), userID, registrationID)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, reg)
}

// SubmitDocuments godoc
// @Summary Submit supporting documents for review
// @Description Moves a pending_documents registration to under_review.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} helpers.APIResponse "data contains the registration"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/documents [post]
func (c *RegistrationController) SubmitDocuments(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	reg, err := c.Service.SubmitDocuments(r.Context(), userID, registrationID)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, reg)
}

// Cancel godoc
// @Summary Cancel one of the current athlete's registrations
// @Description Withdraws a non-terminal registration; any held slot returns to the pool.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} helpers.APIResponse "data contains the registration"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/cancel [post]
func (c *RegistrationController) Cancel(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	reg, err := c.Service.Cancel(r.Context(), userID, registrationID)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, reg)
}
