package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-core/internal/config"
	"github.com/ignatzorin/freelance-core/internal/db"
	httpHandlers "github.com/ignatzorin/freelance-core/internal/http/handlers"
	httpRouter "github.com/ignatzorin/freelance-core/internal/http/router"
	"github.com/ignatzorin/freelance-core/internal/logger"
	"github.com/ignatzorin/freelance-core/internal/repository"
	"github.com/ignatzorin/freelance-core/internal/service"
	"github.com/ignatzorin/freelance-core/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn)
	proposalRepo := repository.NewProposalRepository(dbConn)
	contractRepo := repository.NewContractRepository(dbConn)
	milestoneRepo := repository.NewMilestoneRepository(dbConn)
	timeEntryRepo := repository.NewTimeEntryRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	invoiceRepo := repository.NewInvoiceRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo)
	authService := service.NewAuthService(userRepo, tokenManager)
	projectService := service.NewProjectService(projectRepo)
	proposalService := service.NewProposalService(proposalRepo, projectRepo, userRepo, notificationService)
	contractService := service.NewContractService(contractRepo, proposalRepo, projectRepo, userRepo, notificationService, cfg.PlatformFeeRate)
	milestoneService := service.NewMilestoneService(milestoneRepo, contractRepo, paymentRepo, notificationService, cfg.PlatformFeeRate)
	timeEntryService := service.NewTimeEntryService(timeEntryRepo, contractRepo, notificationService)
	paymentService := service.NewPaymentService(paymentRepo, contractRepo, notificationService, cfg.PlatformFeeRate)
	invoiceService := service.NewInvoiceService(invoiceRepo, contractRepo, notificationService)
	disputeService := service.NewDisputeService(disputeRepo, contractRepo, notificationService, cfg.PlatformFeeRate)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()
	notificationService.SetHub(hub)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	projectHandler := httpHandlers.NewProjectHandler(projectService)
	proposalHandler := httpHandlers.NewProposalHandler(proposalService)
	contractHandler := httpHandlers.NewContractHandler(contractService)
	milestoneHandler := httpHandlers.NewMilestoneHandler(milestoneService)
	timeEntryHandler := httpHandlers.NewTimeEntryHandler(timeEntryService, invoiceService)
	paymentHandler := httpHandlers.NewPaymentHandler(paymentService)
	invoiceHandler := httpHandlers.NewInvoiceHandler(invoiceService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)

	// Роутер.
	engine := httpRouter.SetupRouter(
		cfg,
		authHandler,
		projectHandler,
		proposalHandler,
		contractHandler,
		milestoneHandler,
		timeEntryHandler,
		paymentHandler,
		invoiceHandler,
		disputeHandler,
		notificationHandler,
		healthHandler,
		wsHandler,
		tokenManager,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
