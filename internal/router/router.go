package router

import (
	"time"

	"mpola/config"
	"mpola/internal/handler"
	"mpola/internal/middleware"
	"mpola/internal/repository"
	"mpola/internal/scheduler"
	"mpola/internal/service"
	"mpola/pkg/payment"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers into the HTTP engine. The
// returned scheduler is not started; the caller owns its lifecycle.
func Setup(cfg *config.Config, db *gorm.DB, provider payment.Provider) (*gin.Engine, *scheduler.Scheduler) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	customerRepo := repository.NewCustomerRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	receiverRepo := repository.NewReceiverRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	fundingRepo := repository.NewFundingRepository(db)

	// Services
	ledgerSvc := service.NewLedgerService(db, scheduleRepo, fundingRepo, txnRepo)
	scheduleSvc := service.NewScheduleService(db, scheduleRepo, receiverRepo, cfg.Payment.ProcessingFeeRate, cfg.Payment.Currency)
	installmentSvc := service.NewInstallmentService(ledgerSvc, scheduleSvc, txnRepo)
	payoutSvc := service.NewPayoutService(cfg, provider, customerRepo, scheduleRepo, receiverRepo, txnRepo, installmentSvc)
	webhookSvc := service.NewWebhookService(db, txnRepo, fundingRepo, receiverRepo, scheduleRepo, scheduleSvc, ledgerSvc)
	fundingSvc := service.NewFundingService(db, provider, customerRepo, scheduleRepo, fundingRepo, txnRepo, ledgerSvc)
	authSvc := service.NewAuthService(cfg, customerRepo, provider)

	sched := scheduler.New(scheduleRepo, receiverRepo, txnRepo, payoutSvc, scheduleSvc, 30*time.Second)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, ledgerSvc, scheduleRepo, receiverRepo, txnRepo)
	payoutHandler := handler.NewPayoutHandler(payoutSvc, installmentSvc, receiverRepo, scheduleRepo)
	fundingHandler := handler.NewFundingHandler(fundingSvc, scheduleRepo, fundingRepo)
	webhookHandler := handler.NewWebhookHandler(webhookSvc)
	schedulerHandler := handler.NewSchedulerHandler(sched)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		schedules := api.Group("/schedules")
		schedules.Use(authMw)
		{
			schedules.POST("", scheduleHandler.Create)
			schedules.GET("", scheduleHandler.List)
			schedules.GET("/:id", scheduleHandler.Get)
			schedules.PATCH("/:id", scheduleHandler.Patch)
			schedules.POST("/:id/deposits", fundingHandler.CreateDeposit)
			schedules.GET("/:id/funding", fundingHandler.FundingStatus)
		}

		receivers := api.Group("/receivers")
		receivers.Use(authMw)
		{
			receivers.POST("/:id/payout", payoutHandler.Initiate)
			receivers.GET("/:id/timing", payoutHandler.CheckTiming)
			receivers.GET("/:id/progress", payoutHandler.Progress)
		}

		api.POST("/fund-transactions/:id/confirm", authMw, fundingHandler.ConfirmManually)

		api.POST("/scheduler/trigger", authMw, schedulerHandler.Trigger)
		api.GET("/scheduler/status", authMw, schedulerHandler.Status)

		api.POST("/webhooks/bitnob", webhookHandler.Handle)
	}

	return r, sched
}
