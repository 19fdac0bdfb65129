package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appealdomain "github.com/fieldops/penaltyd/internal/appeal/domain"
	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
	ledgerdomain "github.com/fieldops/penaltyd/internal/ledger/domain"
	policydomain "github.com/fieldops/penaltyd/internal/policy/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, appealdomain.ErrAppealAlreadyOpen),
		errors.Is(err, appealdomain.ErrAppealAlreadyDecided):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, eventdomain.ErrInvalidUser),
		errors.Is(err, eventdomain.ErrInvalidSource),
		errors.Is(err, eventdomain.ErrInvalidSeverity):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, eventdomain.ErrEventNotFound),
		errors.Is(err, ledgerdomain.ErrLedgerNotFound),
		errors.Is(err, appealdomain.ErrAppealNotFound),
		errors.Is(err, policydomain.ErrPolicyNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
