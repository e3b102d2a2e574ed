package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-core/internal/config"
	"github.com/ignatzorin/freelance-core/internal/http/handlers"
	"github.com/ignatzorin/freelance-core/internal/http/middleware"
	"github.com/ignatzorin/freelance-core/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	projectHandler *handlers.ProjectHandler,
	proposalHandler *handlers.ProposalHandler,
	contractHandler *handlers.ContractHandler,
	milestoneHandler *handlers.MilestoneHandler,
	timeEntryHandler *handlers.TimeEntryHandler,
	paymentHandler *handlers.PaymentHandler,
	invoiceHandler *handlers.InvoiceHandler,
	disputeHandler *handlers.DisputeHandler,
	notificationHandler *handlers.NotificationHandler,
	healthHandler *handlers.HealthHandler,
	wsHandler *handlers.WSHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Публичные маршруты
	api.GET("/projects", projectHandler.List)
	api.GET("/projects/:id", middleware.UUIDValidator("id"), projectHandler.Get)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.Me)

		protected.POST("/projects", projectHandler.Create)
		protected.GET("/projects/my", projectHandler.ListMy)
		protected.PATCH("/projects/:id/status", middleware.UUIDValidator("id"), projectHandler.UpdateStatus)

		protected.POST("/projects/:id/proposals", middleware.UUIDValidator("id"), proposalHandler.Submit)
		protected.GET("/projects/:id/proposals", middleware.UUIDValidator("id"), proposalHandler.ListByProject)
		protected.GET("/proposals/my", proposalHandler.ListMy)
		protected.GET("/proposals/:id", middleware.UUIDValidator("id"), proposalHandler.Get)
		protected.POST("/proposals/:id/accept", middleware.UUIDValidator("id"), proposalHandler.Accept)
		protected.POST("/proposals/:id/reject", middleware.UUIDValidator("id"), proposalHandler.Reject)
		protected.POST("/proposals/:id/withdraw", middleware.UUIDValidator("id"), proposalHandler.Withdraw)

		protected.POST("/contracts", contractHandler.Create)
		protected.GET("/contracts/my", contractHandler.ListMy)
		protected.GET("/contracts/:id", middleware.UUIDValidator("id"), contractHandler.Get)
		protected.POST("/contracts/:id/complete", middleware.UUIDValidator("id"), contractHandler.Complete)
		protected.POST("/contracts/:id/cancel", middleware.UUIDValidator("id"), contractHandler.Cancel)
		protected.POST("/contracts/:id/terminate", middleware.UUIDValidator("id"), contractHandler.Terminate)

		protected.POST("/contracts/:id/milestones", middleware.UUIDValidator("id"), milestoneHandler.Create)
		protected.GET("/contracts/:id/milestones", middleware.UUIDValidator("id"), milestoneHandler.ListByContract)
		protected.GET("/milestones/:id", middleware.UUIDValidator("id"), milestoneHandler.Get)
		protected.POST("/milestones/:id/start", middleware.UUIDValidator("id"), milestoneHandler.Start)
		protected.POST("/milestones/:id/submit", middleware.UUIDValidator("id"), milestoneHandler.Submit)
		protected.POST("/milestones/:id/approve", middleware.UUIDValidator("id"), milestoneHandler.Approve)
		protected.POST("/milestones/:id/reject", middleware.UUIDValidator("id"), milestoneHandler.Reject)

		protected.POST("/time-entries/start", timeEntryHandler.Start)
		protected.POST("/time-entries/submit", timeEntryHandler.SubmitBatch)
		protected.POST("/time-entries/approve", timeEntryHandler.Approve)
		protected.POST("/time-entries/reject", timeEntryHandler.RejectBatch)
		protected.POST("/time-entries/reset", timeEntryHandler.ResetToDraft)
		protected.GET("/time-entries/:id", middleware.UUIDValidator("id"), timeEntryHandler.Get)
		protected.POST("/time-entries/:id/stop", middleware.UUIDValidator("id"), timeEntryHandler.Stop)
		protected.PATCH("/time-entries/:id", middleware.UUIDValidator("id"), timeEntryHandler.Update)
		protected.DELETE("/time-entries/:id", middleware.UUIDValidator("id"), timeEntryHandler.Delete)
		protected.GET("/contracts/:id/time-entries", middleware.UUIDValidator("id"), timeEntryHandler.ListByContract)

		protected.POST("/escrows", paymentHandler.FundEscrow)
		protected.POST("/escrows/:id/release", middleware.UUIDValidator("id"), paymentHandler.Release)
		protected.POST("/escrows/:id/refund", middleware.UUIDValidator("id"), paymentHandler.Refund)
		protected.GET("/contracts/:id/escrow", middleware.UUIDValidator("id"), paymentHandler.GetEscrow)
		protected.GET("/contracts/:id/payments", middleware.UUIDValidator("id"), paymentHandler.ListByContract)
		protected.GET("/contracts/:id/payments/totals", middleware.UUIDValidator("id"), paymentHandler.Totals)
		protected.POST("/payments/:id/confirm", middleware.UUIDValidator("id"), paymentHandler.Confirm)
		protected.POST("/payments/:id/refund", middleware.UUIDValidator("id"), paymentHandler.RefundPayment)

		protected.POST("/invoices", invoiceHandler.Create)
		protected.GET("/invoices/:id", middleware.UUIDValidator("id"), invoiceHandler.Get)
		protected.GET("/contracts/:id/invoices", middleware.UUIDValidator("id"), invoiceHandler.ListByContract)
		protected.POST("/invoices/:id/pay", middleware.UUIDValidator("id"), invoiceHandler.MarkPaid)
		protected.POST("/invoices/:id/cancel", middleware.UUIDValidator("id"), invoiceHandler.Cancel)
		protected.POST("/invoices/:id/overdue", middleware.UUIDValidator("id"), invoiceHandler.MarkOverdue)

		protected.POST("/disputes", disputeHandler.Open)
		protected.GET("/disputes", disputeHandler.ListOpen)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.Get)
		protected.POST("/disputes/:id/review", middleware.UUIDValidator("id"), disputeHandler.Review)
		protected.POST("/disputes/:id/escalate", middleware.UUIDValidator("id"), disputeHandler.Escalate)
		protected.POST("/disputes/:id/close", middleware.UUIDValidator("id"), disputeHandler.Close)
		protected.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)
		protected.GET("/contracts/:id/disputes", middleware.UUIDValidator("id"), disputeHandler.ListByContract)

		protected.GET("/notifications", notificationHandler.List)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	}

	return r
}
