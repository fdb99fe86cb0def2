package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/httputil"
	"github.com/pathconvert/pathconvert/internal/metrics"
	"github.com/pathconvert/pathconvert/internal/middleware"
	"github.com/pathconvert/pathconvert/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeInternalError   = "internal_error"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeValidationError = "validation_error"
	ErrCodeNotEntitled     = "not_entitled"
	ErrCodeConflict        = "conflict"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondServiceError maps a service error onto a status and code. Anything
// unrecognised is logged and reported as a 500 without detail.
func respondServiceError(c *gin.Context, log *logrus.Logger, err error, action string) {
	switch {
	case errors.Is(err, models.ErrNotEntitled):
		respondError(c, http.StatusForbidden, ErrCodeNotEntitled, "an active subscription is required")
	case errors.Is(err, models.ErrInvalidSettings),
		errors.Is(err, models.ErrInvalidJobType),
		errors.Is(err, models.ErrMissingIDs),
		errors.Is(err, models.ErrDimensionMismatch):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
	case errors.Is(err, models.ErrJobNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
	case errors.Is(err, models.ErrCollectionNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "collection not found")
	case errors.Is(err, models.ErrShopNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "shop not found")
	case errors.Is(err, models.ErrDuplicateKey):
		respondError(c, http.StatusConflict, ErrCodeConflict, "already exists")
	default:
		middleware.Logger(c, log).WithError(err).Error(action)
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
