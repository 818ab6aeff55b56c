package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mpola/internal/domain"
	"mpola/internal/models"
	"mpola/internal/repository"
	"mpola/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newWebhookRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Customer{},
		&models.PaymentSchedule{},
		&models.Receiver{},
		&models.InstallmentTransaction{},
		&models.FundTransaction{},
	))

	scheduleRepo := repository.NewScheduleRepository(db)
	receiverRepo := repository.NewReceiverRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	fundingRepo := repository.NewFundingRepository(db)
	ledger := service.NewLedgerService(db, scheduleRepo, fundingRepo, txnRepo)
	scheduleSvc := service.NewScheduleService(db, scheduleRepo, receiverRepo, decimal.NewFromFloat(0.015), "UGX")
	webhookSvc := service.NewWebhookService(db, txnRepo, fundingRepo, receiverRepo, scheduleRepo, scheduleSvc, ledger)

	r := gin.New()
	r.POST("/api/v1/webhooks/bitnob", NewWebhookHandler(webhookSvc).Handle)
	return r, db
}

func postWebhook(t *testing.T, r *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/bitnob", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookAcknowledgesUnknownReference(t *testing.T) {
	r, _ := newWebhookRouter(t)

	w := postWebhook(t, r, gin.H{"event": domain.EventSettlementSuccess, "reference": "ghost"})
	assert.Equal(t, http.StatusOK, w.Code, "unknown references are acked so the provider stops retrying")
	assert.Contains(t, w.Body.String(), "unknown reference")
}

func TestWebhookAcknowledgesUnrecognizedEvent(t *testing.T) {
	r, db := newWebhookRouter(t)

	sched := &models.PaymentSchedule{
		CustomerID:  1,
		Title:       "t",
		Status:      domain.ScheduleStatusActive,
		TotalAmount: decimal.NewFromInt(100),
		Frequency:   domain.FrequencyMonthly,
	}
	require.NoError(t, db.Create(sched).Error)
	fund := &models.FundTransaction{
		ScheduleID: sched.ID,
		Reference:  "dep-1",
		Amount:     decimal.NewFromInt(100),
		Status:     domain.FundStatusPending,
	}
	require.NoError(t, db.Create(fund).Error)

	w := postWebhook(t, r, gin.H{"event": "stablecoin.deposit.teleported", "reference": "dep-1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "unrecognized event")

	var reloaded models.FundTransaction
	require.NoError(t, db.First(&reloaded, "reference = ?", "dep-1").Error)
	assert.Equal(t, domain.FundStatusPending, reloaded.Status, "unrecognized events change nothing")
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	r, _ := newWebhookRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/bitnob", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookRejectsMissingFields(t *testing.T) {
	r, _ := newWebhookRouter(t)

	w := postWebhook(t, r, gin.H{"event": domain.EventSettlementSuccess})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
