package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/Domenick1991/carpool/internal/middleware"
	"github.com/gin-gonic/gin"
)

// respondError maps the engine's error taxonomy onto distinct HTTP
// responses. The code field is what the UI switches on: "no seats left" is
// not "trip gone" and neither is "try again".
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status, code, message = http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, domain.ErrForbidden):
		status, code, message = http.StatusForbidden, "forbidden", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, domain.ErrInsufficientCapacity):
		status, code, message = http.StatusConflict, "insufficient_capacity", err.Error()
	case errors.Is(err, domain.ErrTripNotBookable):
		status, code, message = http.StatusConflict, "trip_not_bookable", err.Error()
	case errors.Is(err, domain.ErrTooEarly):
		status, code, message = http.StatusConflict, "too_early", err.Error()
	case errors.Is(err, domain.ErrDuplicateReview):
		status, code, message = http.StatusConflict, "duplicate_review", err.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		status, code, message = http.StatusConflict, "invalid_transition", err.Error()
	case errors.Is(err, domain.ErrConflict):
		status, code, message = http.StatusServiceUnavailable, "conflict_retry", err.Error()
	}

	c.JSON(status, gin.H{
		"error":      message,
		"code":       code,
		"request_id": middleware.GetRequestID(c),
	})
}
