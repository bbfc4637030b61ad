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

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateCategoryRequest is one category in CreateEventRequest.
type CreateCategoryRequest struct {
	Name                   string `json:"name"`
	Slug                   string `json:"slug"`
	TotalSlots             int    `json:"total_slots"`
	PriceCents             *int64 `json:"price_cents"`
	MinAge                 *int   `json:"min_age"`
	MaxAge                 *int   `json:"max_age"`
	RequiresResidencyProof bool   `json:"requires_residency_proof"`
	RequiresGuardian       bool   `json:"requires_guardian"`
}

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Name       string                  `json:"name"`
	Slug       string                  `json:"slug"`
	Year       int                     `json:"year"`
	Edition    int                     `json:"edition"`
	RaceDate   time.Time               `json:"race_date"`
	Categories []CreateCategoryRequest `json:"categories"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(c.Slug) == "" {
		errs = append(errs, "slug is required")
	}
	if c.Year < 2000 {
		errs = append(errs, "year must be a four-digit year")
	}
	if len(c.Categories) == 0 {
		errs = append(errs, "at least one category is required")
	}
	for _, cat := range c.Categories {
		if strings.TrimSpace(cat.Slug) == "" {
			errs = append(errs, "category slug is required")
		}
		if cat.TotalSlots < 0 {
			errs = append(errs, "category total_slots must not be negative")
		}
	}
	return errs
}

// CreateEvent godoc
// @Summary Create an event with its categories
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateEventRequest true "Event data"
// @Success 201 {object} helpers.APIResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}

	event := domain.NewEvent(strings.TrimSpace(req.Name), strings.TrimSpace(req.Slug),
		req.Year, req.Edition, req.RaceDate, time.Now(), time.Now())
	categories := make([]*domain.Category, 0, len(req.Categories))
	for _, cat := range req.Categories {
		categories = append(categories, &domain.Category{
			Name:                   strings.TrimSpace(cat.Name),
			Slug:                   strings.TrimSpace(cat.Slug),
			TotalSlots:             cat.TotalSlots,
			PriceCents:             cat.PriceCents,
			MinAge:                 cat.MinAge,
			MaxAge:                 cat.MaxAge,
			RequiresResidencyProof: cat.RequiresResidencyProof,
			RequiresGuardian:       cat.RequiresGuardian,
		})
	}

	created, err := c.Service.CreateEvent(r.Context(), userID, event, categories)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, created)
}

// ListEvents godoc
// @Summary List events
// @Tags events
// @Produce json
// @Success 200 {object} helpers.APIResponse "data contains the events"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := c.Service.ListEvents(r.Context())
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get an event by slug
// @Tags events
// @Produce json
// @Param slug path string true "Event slug"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{slug} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing slug")
		return
	}
	event, err := c.Service.GetEventBySlug(r.Context(), slug)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListCategories godoc
// @Summary List an event's categories with remaining capacity
// @Tags events
// @Produce json
// @Param slug path string true "Event slug"
// @Success 200 {object} helpers.APIResponse "data contains the categories"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{slug}/categories [get]
func (c *EventController) ListCategories(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing slug")
		return
	}
	event, err := c.Service.GetEventBySlug(r.Context(), slug)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	categories, err := c.Service.ListCategories(r.Context(), event.ID)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, categories)
}
