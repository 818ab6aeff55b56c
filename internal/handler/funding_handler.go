package handler

import (
	"net/http"

	"mpola/internal/middleware"
	"mpola/internal/models"
	"mpola/internal/repository"
	"mpola/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FundingHandler struct {
	svc       *service.FundingService
	schedules *repository.ScheduleRepository
	funding   *repository.FundingRepository
}

func NewFundingHandler(
	svc *service.FundingService,
	schedules *repository.ScheduleRepository,
	funding *repository.FundingRepository,
) *FundingHandler {
	return &FundingHandler{svc: svc, schedules: schedules, funding: funding}
}

type CreateDepositRequest struct {
	Network string `json:"network" binding:"required"`
}

// CreateDeposit provisions a stablecoin deposit address covering the
// schedule's remaining shortfall.
func (h *FundingHandler) CreateDeposit(c *gin.Context) {
	sched, ok := h.loadOwned(c)
	if !ok {
		return
	}
	var req CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	details, err := h.svc.CreateDeposit(c.Request.Context(), sched.ID, req.Network)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, details)
}

// FundingStatus returns the schedule's full funding picture.
func (h *FundingHandler) FundingStatus(c *gin.Context) {
	sched, ok := h.loadOwned(c)
	if !ok {
		return
	}
	report, err := h.svc.FundingStatus(sched.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ConfirmManually marks a fund transaction paid without a webhook.
func (h *FundingHandler) ConfirmManually(c *gin.Context) {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fund transaction id"})
		return
	}
	fund, err := h.funding.GetByID(fundID)
	if err != nil {
		respondError(c, err)
		return
	}
	sched, err := h.schedules.GetByID(fund.ScheduleID)
	if err != nil {
		respondError(c, err)
		return
	}
	if sched.CustomerID != middleware.GetCustomerID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	result, err := h.svc.ConfirmManually(fundID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FundingHandler) loadOwned(c *gin.Context) (*models.PaymentSchedule, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return nil, false
	}
	sched, err := h.schedules.GetByID(id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if sched.CustomerID != middleware.GetCustomerID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	return sched, true
}
