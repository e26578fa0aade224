package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/invopilot/invopilot/internal/api"
	"github.com/invopilot/invopilot/internal/approval"
	"github.com/invopilot/invopilot/internal/client"
	"github.com/invopilot/invopilot/internal/config"
	"github.com/invopilot/invopilot/internal/export"
	"github.com/invopilot/invopilot/internal/invoice"
	"github.com/invopilot/invopilot/internal/notification"
	"github.com/invopilot/invopilot/internal/repository"
	"github.com/invopilot/invopilot/pkg/database"
	"github.com/invopilot/invopilot/pkg/utils"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env before viper reads the environment. Missing file is fine.
	_ = gotenv.Load()

	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Invopilot",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := database.NewMigrator(db, logger).Run(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	workflowRepo := repository.NewWorkflowRepository(db.DB, logger)
	approvalRepo := repository.NewApprovalRepository(db.DB, logger)
	invoiceRepo := repository.NewInvoiceRepository(db.DB, logger)
	clientRepo := repository.NewClientRepository(db.DB, logger)
	brandingRepo := repository.NewBrandingRepository(db.DB, logger)

	dispatcher := buildDispatcher(cfg, logger)

	engine := approval.NewEngine(db, workflowRepo, approvalRepo, invoiceRepo, dispatcher, logger)

	renderer, err := invoice.NewTextRenderer()
	if err != nil {
		logger.Fatal("Failed to initialize invoice renderer", zap.Error(err))
	}
	invoiceSvc := invoice.NewService(invoiceRepo, clientRepo, brandingRepo, renderer, dispatcher, logger)
	clientSvc := client.NewService(clientRepo, logger)
	exporter := export.NewExcelExporter(logger)

	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewServer(engine, invoiceSvc, clientSvc, exporter, logger).Router()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// buildDispatcher selects the outbound notification channel.
func buildDispatcher(cfg *config.Config, logger *zap.Logger) notification.Dispatcher {
	switch cfg.Notification.Channel {
	case "smtp":
		return notification.NewSMTPDispatcher(notification.SMTPConfig{
			Host:     cfg.Notification.SMTP.Host,
			Port:     cfg.Notification.SMTP.Port,
			Username: cfg.Notification.SMTP.Username,
			Password: cfg.Notification.SMTP.Password,
			From:     cfg.Notification.SMTP.From,
			FromName: cfg.Notification.FromName,
			Timeout:  cfg.Notification.SendTimeout,
		}, logger)
	case "lark":
		return notification.NewLarkDispatcher(
			cfg.Notification.Lark.AppID,
			cfg.Notification.Lark.AppSecret,
			logger,
		)
	default:
		return notification.NewLogDispatcher(logger)
	}
}

func configPath() string {
	if path := os.Getenv("INVOPILOT_CONFIG"); path != "" {
		return path
	}
	return "configs/config.yaml"
}
