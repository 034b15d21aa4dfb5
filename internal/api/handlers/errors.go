package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/oilhub/backend-go/internal/cache"
	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var (
		violations domain.ValidationErrors
		transition *domain.InvalidTransitionError
	)

	switch {
	case errors.As(err, &violations):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      "allocation is invalid",
			"violations": violations,
		})
	case errors.Is(err, domain.ErrEmptyAllocation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      err.Error(),
			"violations": []domain.ValidationError{},
		})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{
			"error":     transition.Error(),
			"current":   transition.Current,
			"requested": transition.Requested,
		})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, cache.ErrLockTimeout):
		c.JSON(http.StatusConflict, gin.H{"error": "order is being modified, retry shortly"})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func parsePositiveIntWithDefault(value string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func parseNonNegativeInt(value string) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v >= 0 {
		return v
	}
	return 0
}

func parseOptionalInt64(value string) (int64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
