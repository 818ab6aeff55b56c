package handler

import (
	"errors"
	"log"
	"net/http"

	"mpola/internal/repository"
	"mpola/internal/service"

	"github.com/gin-gonic/gin"
)

// respondError maps service and repository errors onto HTTP responses. Policy
// refusals and provider faults carry structured detail; everything
// unclassified is a 500 with a generic message.
func respondError(c *gin.Context, err error) {
	var policyErr *service.PolicyError
	var providerErr *service.ProviderError
	var pendingErr *service.PendingDepositError

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrDuplicatePhone):
		c.JSON(http.StatusBadRequest, gin.H{"error": "duplicate phone number in schedule"})
	case errors.As(err, &policyErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    policyErr.Decision.Reason,
			"decision": policyErr.Decision,
		})
	case errors.As(err, &pendingErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            pendingErr.Error(),
			"fund_transaction": pendingErr.Existing,
		})
	case errors.Is(err, service.ErrAlreadyFunded):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRateUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.As(err, &providerErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":       providerErr.Error(),
			"transaction": providerErr.Transaction,
		})
	default:
		log.Printf("[Handler] unhandled error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
