package httpapi

import (
	"errors"
	"net/http"

	"social-prospector/internal/analytics"
	"social-prospector/internal/contacts"
	"social-prospector/internal/goals"
	"social-prospector/internal/quota"
	"social-prospector/internal/sequence"
	"social-prospector/pkg/logger"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, goals.ErrUnknownGoal),
		errors.Is(err, sequence.ErrInvalidStage),
		errors.Is(err, sequence.ErrInvalidArgument),
		errors.Is(err, contacts.ErrInvalidArgument),
		errors.Is(err, analytics.ErrInvalidRequest),
		errors.Is(err, quota.ErrInvalidArgument),
		errors.Is(err, quota.ErrUnknownAction),
		errors.Is(err, quota.ErrUnknownResource),
		errors.Is(err, quota.ErrUnknownTier):
		return http.StatusBadRequest
	case errors.Is(err, sequence.ErrContactNotOwned):
		return http.StatusForbidden
	case errors.Is(err, sequence.ErrNoActiveSequence),
		errors.Is(err, contacts.ErrNotFound),
		errors.Is(err, quota.ErrActorNotFound):
		return http.StatusNotFound
	case errors.Is(err, sequence.ErrAlreadyTerminal),
		errors.Is(err, sequence.ErrSequenceActive):
		return http.StatusConflict
	case errors.Is(err, quota.ErrQuotaDenied):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with the mapped status. Internal errors are logged and not echoed.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "err", err)
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
