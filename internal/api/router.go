package api

import (
	"masarif/docs"
	"masarif/internal/api/handlers"
	"masarif/pkg/config"
	"masarif/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

// Handlers collects the route handlers wired by SetupRouter.
type Handlers struct {
	Health    *handlers.HealthHandler
	Extract   *handlers.ExtractHandler
	OCR       *handlers.OCRHandler
	Receipt   *handlers.ReceiptHandler
	PDF       *handlers.PDFHandler
	Analytics *handlers.AnalyticsHandler
	Export    *handlers.ExportHandler
}

func SetupRouter(h Handlers, srv config.ServerConfig, appLogger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      config.AppName,
		ReadTimeout:  srv.ReadTimeout,
		WriteTimeout: srv.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(appLogger))

	// Swagger - importing docs registers the generated doc via init()
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Service status
	app.Get("/", h.Health.Status)
	app.Get("/api", h.Health.Status)
	app.Get("/health", h.Health.Health)
	app.Get("/info", h.Health.Info)

	expenses := app.Group("/expenses")

	// Extraction routes
	extract := expenses.Group("/extract")
	extract.Post("", h.Extract.ExtractSingle)
	extract.Post("/multi", h.Extract.ExtractMulti)
	extract.Post("/batch", h.Extract.ExtractBatch)

	// OCR routes
	ocr := expenses.Group("/ocr")
	ocr.Post("/upload", h.OCR.Upload)
	ocr.Post("/url", h.OCR.FromURL)

	// Receipt parser routes
	receipts := expenses.Group("/receipt/parse")
	receipts.Post("/text", h.Receipt.ParseText)
	receipts.Post("/upload", h.Receipt.ParseUpload)
	receipts.Post("/url", h.Receipt.ParseURL)

	// PDF routes
	pdf := expenses.Group("/pdf")
	pdf.Post("/info", h.PDF.Info)
	pdf.Post("/extract-text", h.PDF.ExtractText)

	// Analytics routes
	analytics := expenses.Group("/analytics")
	analytics.Post("", h.Analytics.Analyze)
	analytics.Post("/summary", h.Analytics.Summary)
	analytics.Post("/anomalies", h.Analytics.Anomalies)

	// Export routes
	export := expenses.Group("/export")
	export.Post("/csv", h.Export.CSV)
	export.Post("/excel", h.Export.Excel)

	return app
}
