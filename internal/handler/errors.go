package handler

import (
	"errors"
	"log"
	"net/http"

	"foodconnect/internal/service"

	"github.com/gin-gonic/gin"
)

// writeServiceError maps service errors to HTTP responses.
// Unexpected errors are logged and reported with the generic fallback message.
func writeServiceError(c *gin.Context, err error, fallback string) {
	var notApproved *service.NotApprovedError
	switch {
	case errors.As(err, &notApproved):
		c.JSON(http.StatusForbidden, gin.H{"error": notApproved.Message(), "code": "not_approved", "status": notApproved.Status})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "forbidden"})
	case errors.Is(err, service.ErrAlreadyClaimed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "already_claimed"})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "invalid_transition"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
	case errors.Is(err, service.ErrDuplicateCredential):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "duplicate_credential"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "invalid_credentials"})
	default:
		log.Printf("Error: %s: %v", fallback, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "code": "internal"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error(), "code": "validation"})
}
