package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"walrusweb/pkg/auth"
	"walrusweb/pkg/services"
)

const (
	msgInvalidSubmission = "Invalid submission."
	msgInvalidPitch      = "Invalid pitch request."
	msgInvalidQuote      = "Invalid quote request."
	msgInvalidInput      = "Invalid input."
	msgUnauthorized      = "Unauthorized"
	msgNotConfigured     = "Admin password not configured."
	msgPitchNotFound     = "Pitch not found."
	msgInternal          = "Internal server error."
)

// respondError maps a service error to its HTTP response. invalidMessage is
// the error text for rejected input.
func (h *Handlers) respondError(c *gin.Context, err error, invalidMessage string) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		if invalidMessage == "" {
			invalidMessage = msgInvalidInput
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  invalidMessage,
			"fields": validationErr.Fields,
		})
	case errors.Is(err, auth.ErrNotConfigured):
		if h.production {
			h.logger.Error(
				"operator request rejected: no operator secret configured",
				"component", "api",
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgNotConfigured})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
	case errors.Is(err, auth.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
	case errors.Is(err, services.ErrPitchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgPitchNotFound})
	default:
		h.logger.Error(
			fmt.Sprintf("error handling %s %s: %s", c.Request.Method, c.FullPath(), err),
			"component", "api",
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}
