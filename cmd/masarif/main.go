package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"masarif/internal/api"
	"masarif/internal/api/handlers"
	"masarif/internal/service"
	"masarif/pkg/config"
	"masarif/pkg/logger"

	"go.uber.org/zap"
)

// @title masarif API
// @version 1.0.0
// @description AI-powered expense extraction, analytics and export API

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting masarif service", zap.String("version", config.AppVersion))

	if cfg.OpenAI.APIKey == "" {
		appLogger.Warn("OPENAI_API_KEY is not set, extraction endpoints will fail")
	}

	// Initialize services
	llmService := service.NewLLMService(service.NewOpenAIClient(&cfg.OpenAI), &cfg.OpenAI, appLogger)
	extractorService := service.NewExtractorService(llmService, appLogger)
	ocrService := service.NewOCRService(llmService, extractorService, &cfg.Fetch, appLogger)
	receiptService := service.NewReceiptService(llmService, appLogger)
	pdfService := service.NewPDFService(appLogger)
	analyticsService := service.NewAnalyticsService(appLogger)
	exportService := service.NewExportService(appLogger)

	// Initialize handlers
	h := api.Handlers{
		Health:    handlers.NewHealthHandler(),
		Extract:   handlers.NewExtractHandler(extractorService, appLogger),
		OCR:       handlers.NewOCRHandler(ocrService, appLogger),
		Receipt:   handlers.NewReceiptHandler(receiptService, pdfService, appLogger),
		PDF:       handlers.NewPDFHandler(pdfService, appLogger),
		Analytics: handlers.NewAnalyticsHandler(analyticsService, appLogger),
		Export:    handlers.NewExportHandler(exportService, appLogger),
	}

	// Setup router
	app := api.SetupRouter(h, cfg.Server, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
