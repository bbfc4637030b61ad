package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	h "raceportal/internal/delivery/http/helpers"
	"raceportal/internal/delivery/http/middleware"
	"raceportal/internal/domain"
)

type PaymentController struct {
	Logger  *slog.Logger
	Service domain.PaymentService
}

func NewPaymentController(logger *slog.Logger, svc domain.PaymentService) *PaymentController {
	return &PaymentController{
		Logger:  logger,
		Service: svc,
	}
}

// Start godoc
// @Summary Start (or resume) payment for a registration
// @Description Creates an instant-payment charge for a pending_payment registration and returns the QR payload. Reuses an open charge when one exists; for a registration swept back to pending it re-reserves a slot first.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Success 201 {object} helpers.APIResponse "data contains the payment with QR payload"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict or capacity_exceeded"
// @Failure 502 {object} helpers.APIResponse "error.code: provider_unavailable"
// @Router /registrations/{registrationID}/payment [post]
func (c *PaymentController) Start(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	payment, err := c.Service.StartPayment(r.Context(), userID, registrationID)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, payment)
}

// Check godoc
// @Summary Check payment status for a registration
// @Description Polls the provider for the latest charge and applies the result: PAID confirms the registration, EXPIRED/CANCELLED releases its slot, PENDING changes nothing.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} helpers.APIResponse "data contains the payment"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: payment_rejected"
// @Failure 502 {object} helpers.APIResponse "error.code: provider_unavailable"
// @Router /registrations/{registrationID}/payment [get]
func (c *PaymentController) Check(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	payment, err := c.Service.CheckPayment(r.Context(), userID, registrationID)
	if err != nil {
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, payment)
}

// WebhookRequest is the provider's push notification body. Only the external
// charge id is trusted; the status is re-queried from the provider.
type WebhookRequest struct {
	ChargeID string `json:"charge_id"`
}

// Validate implements Validator.
func (wr WebhookRequest) Validate() []string {
	if strings.TrimSpace(wr.ChargeID) == "" {
		return []string{"charge_id is required"}
	}
	return nil
}

// Webhook godoc
// @Summary Provider payment notification
// @Description Receives the instant-payment provider's push notification. The provider is re-queried for the authoritative charge status; replayed notifications are acknowledged without effect.
// @Tags payments
// @Accept json
// @Produce json
// @Param body body WebhookRequest true "Notification"
// @Success 200 {object} helpers.APIResponse "acknowledged"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 502 {object} helpers.APIResponse "error.code: provider_unavailable"
// @Router /payments/webhook [post]
func (c *PaymentController) Webhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	err := c.Service.HandleProviderNotification(r.Context(), strings.TrimSpace(req.ChargeID))
	if err != nil {
		// A terminal provider outcome is a normal resolution from the
		// webhook's point of view; acknowledge it so the provider stops
		// retrying.
		if errors.Is(err, domain.ErrPaymentRejected) || errors.Is(err, domain.ErrInvalidTransition) {
			h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "acknowledged"})
			return
		}
		writeDomainError(r.Context(), c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}
