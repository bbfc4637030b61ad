package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"raceportal/internal/delivery/http/helpers"
	"raceportal/internal/domain"
)

// writeDomainError maps a service error onto the API envelope. Unrecognized
// errors are logged and become internal_error; domain sentinels keep their
// message so the athlete can act on it.
func writeDomainError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrPermissionDenied):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrInvalidCredentials):
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrCapacityExceeded):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeCapacityExceeded, "category is full")
	case errors.Is(err, domain.ErrDuplicateRegistration):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "athlete already registered for this event")
	case errors.Is(err, domain.ErrDuplicateEmail):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "email already in use")
	case errors.Is(err, domain.ErrIneligible):
		helpers.WriteJSONError(w, http.StatusUnprocessableEntity, helpers.ErrCodeIneligible, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
	case errors.Is(err, domain.ErrPaymentRejected):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodePaymentRejected, err.Error())
	case errors.Is(err, domain.ErrPaymentUnavailable):
		helpers.WriteJSONError(w, http.StatusBadGateway, helpers.ErrCodeUnavailable, "payment provider unavailable, try again")
	default:
		logger.ErrorContext(ctx, "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
	}
}
