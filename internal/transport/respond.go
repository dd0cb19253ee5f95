package transport

import (
	"errors"
	"net/http"
	"strconv"

	"shop-api/internal/middleware"
	"shop-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MessageResponse is the body of endpoints that only acknowledge an action
type MessageResponse struct {
	Message string `json:"message"`
}

// statusFor maps a service error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes the structured error body for err. Internal
// failures are logged and hidden behind fallback.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, status, fallback)
		return
	}
	logger.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	middleware.RespondWithError(w, status, err.Error())
}

// decodeRequest decodes and validates the JSON body into v, writing the
// error response itself when it fails
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
