package handler

import (
	"net/http"
	"time"

	"mpola/internal/middleware"
	"mpola/internal/models"
	"mpola/internal/repository"
	"mpola/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ScheduleHandler struct {
	svc       *service.ScheduleService
	ledger    *service.LedgerService
	schedules *repository.ScheduleRepository
	receivers *repository.ReceiverRepository
	txns      *repository.TransactionRepository
}

func NewScheduleHandler(
	svc *service.ScheduleService,
	ledger *service.LedgerService,
	schedules *repository.ScheduleRepository,
	receivers *repository.ReceiverRepository,
	txns *repository.TransactionRepository,
) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, ledger: ledger, schedules: schedules, receivers: receivers, txns: txns}
}

type CreateReceiverRequest struct {
	Name                 string          `json:"name" binding:"required"`
	Phone                string          `json:"phone" binding:"required"`
	CountryCode          string          `json:"country_code" binding:"required"`
	AmountPerInstallment decimal.Decimal `json:"amount_per_installment" binding:"required"`
	NumberOfInstallments int             `json:"number_of_installments" binding:"required,min=1"`
}

type CreateScheduleRequest struct {
	Title       string                  `json:"title" binding:"required"`
	Description string                  `json:"description"`
	Frequency   string                  `json:"frequency"`
	StartDate   *time.Time              `json:"start_date"`
	Receivers   []CreateReceiverRequest `json:"receivers" binding:"required,min=1,dive"`
}

func (h *ScheduleHandler) Create(c *gin.Context) {
	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := service.CreatePlanInput{
		Title:       req.Title,
		Description: req.Description,
		Frequency:   req.Frequency,
		StartDate:   req.StartDate,
	}
	for _, r := range req.Receivers {
		in.Receivers = append(in.Receivers, service.ReceiverInput{
			Name:                 r.Name,
			Phone:                r.Phone,
			CountryCode:          r.CountryCode,
			AmountPerInstallment: r.AmountPerInstallment,
			NumberOfInstallments: r.NumberOfInstallments,
		})
	}
	sched, receivers, err := h.svc.CreatePlan(middleware.GetCustomerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"schedule":  sched,
		"receivers": receivers,
	})
}

func (h *ScheduleHandler) List(c *gin.Context) {
	list, err := h.schedules.List(middleware.GetCustomerID(c), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": list})
}

type receiverDetail struct {
	models.Receiver
	Transactions []models.InstallmentTransaction `json:"transactions"`
}

// Get returns one schedule with its receivers, their transactions and the
// funding position.
func (h *ScheduleHandler) Get(c *gin.Context) {
	sched, ok := h.loadOwned(c)
	if !ok {
		return
	}
	receivers, err := h.receivers.ListBySchedule(sched.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	details := make([]receiverDetail, 0, len(receivers))
	for _, recv := range receivers {
		txns, err := h.txns.ListByReceiver(recv.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		details = append(details, receiverDetail{Receiver: recv, Transactions: txns})
	}
	available, err := h.ledger.AvailableBalance(sched.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"schedule":          sched,
		"receivers":         details,
		"available_balance": available,
	})
}

type PatchScheduleRequest struct {
	Status      *string `json:"status"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// Patch updates the mutable schedule fields only. Amounts, frequency and
// receivers are immutable after creation.
func (h *ScheduleHandler) Patch(c *gin.Context) {
	sched, ok := h.loadOwned(c)
	if !ok {
		return
	}
	var req PatchScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.UpdateDetails(sched, req.Status, req.Title, req.Description); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": sched})
}

// loadOwned parses the :id param and enforces that the schedule belongs to the
// authenticated customer. Foreign schedules read as not found.
func (h *ScheduleHandler) loadOwned(c *gin.Context) (*models.PaymentSchedule, bool) {
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
