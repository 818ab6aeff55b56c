package handler

import (
	"errors"
	"log"
	"net/http"

	"mpola/internal/repository"
	"mpola/internal/service"

	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	svc *service.WebhookService
}

func NewWebhookHandler(svc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// Handle processes Bitnob settlement and funding notifications. Unknown event
// types and unknown references are acknowledged with 200 so the provider does
// not retry them forever; nothing is mutated in either case.
func (h *WebhookHandler) Handle(c *gin.Context) {
	var event service.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		log.Printf("[Webhook] invalid payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	log.Printf("[Webhook] event=%s reference=%s", event.Type, event.Reference)

	result, err := h.svc.Process(event)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnrecognizedEvent):
			log.Printf("[Webhook] unrecognized event %s, acknowledging", event.Type)
			c.JSON(http.StatusOK, gin.H{"received": true, "warning": "unrecognized event type"})
		case errors.Is(err, repository.ErrNotFound):
			log.Printf("[Webhook] no transaction for reference %s, acknowledging", event.Reference)
			c.JSON(http.StatusOK, gin.H{"received": true, "warning": "unknown reference"})
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			respondError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "result": result})
}
