package handler

import (
	"net/http"
	"strconv"

	"mpola/internal/middleware"
	"mpola/internal/models"
	"mpola/internal/repository"
	"mpola/internal/service"

	"github.com/gin-gonic/gin"
)

type PayoutHandler struct {
	payouts      *service.PayoutService
	installments *service.InstallmentService
	receivers    *repository.ReceiverRepository
	schedules    *repository.ScheduleRepository
}

func NewPayoutHandler(
	payouts *service.PayoutService,
	installments *service.InstallmentService,
	receivers *repository.ReceiverRepository,
	schedules *repository.ScheduleRepository,
) *PayoutHandler {
	return &PayoutHandler{payouts: payouts, installments: installments, receivers: receivers, schedules: schedules}
}

type InitiatePayoutRequest struct {
	SenderName string `json:"sender_name" binding:"required"`
}

// Initiate attempts the receiver's next installment immediately.
func (h *PayoutHandler) Initiate(c *gin.Context) {
	recv, _, ok := h.loadOwned(c)
	if !ok {
		return
	}
	var req InitiatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.payouts.InitiatePayout(c.Request.Context(), recv.ID, req.SenderName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckTiming runs the next-installment decision without initiating anything.
func (h *PayoutHandler) CheckTiming(c *gin.Context) {
	recv, sched, ok := h.loadOwned(c)
	if !ok {
		return
	}
	decision, err := h.installments.CanReceiveNextInstallment(recv, sched)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"decision":          decision,
		"next_payment_date": sched.NextPaymentDate,
	})
}

// Progress returns the receiver's installment history and completion ratio.
func (h *PayoutHandler) Progress(c *gin.Context) {
	recv, _, ok := h.loadOwned(c)
	if !ok {
		return
	}
	report, err := h.installments.Progress(recv)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *PayoutHandler) loadOwned(c *gin.Context) (*models.Receiver, *models.PaymentSchedule, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receiver id"})
		return nil, nil, false
	}
	recv, err := h.receivers.GetByID(uint(id))
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	sched, err := h.schedules.GetByID(recv.ScheduleID)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	if sched.CustomerID != middleware.GetCustomerID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, nil, false
	}
	return recv, sched, true
}
