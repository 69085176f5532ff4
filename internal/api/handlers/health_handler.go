package handlers

import (
	"masarif/internal/dto"
	"masarif/internal/models"
	"masarif/pkg/config"

	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Status godoc
// @Summary API status
// @Description Service name, version and documentation location.
// @Tags health
// @Produce json
// @Success 200 {object} dto.APIStatusResponse
// @Router /api [get]
func (h *HealthHandler) Status(c *fiber.Ctx) error {
	return c.JSON(dto.APIStatusResponse{
		Status:  "ok",
		Name:    config.AppName,
		Version: config.AppVersion,
		Docs:    "/swagger/index.html",
	})
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(dto.HealthResponse{
		Status:  "healthy",
		Service: config.AppName,
		Version: config.AppVersion,
	})
}

// Info godoc
// @Summary API information and capabilities
// @Description Everything the service can do, the languages and categories it knows, and its route map.
// @Tags health
// @Produce json
// @Success 200 {object} dto.InfoResponse
// @Router /info [get]
func (h *HealthHandler) Info(c *fiber.Ctx) error {
	return c.JSON(dto.InfoResponse{
		Name:        config.AppName,
		Version:     config.AppVersion,
		Description: config.AppDescription,
		Capabilities: map[string]string{
			"single_extraction": "Extract one expense from text",
			"multi_extraction":  "Extract multiple expenses from one text",
			"batch_processing":  "Process multiple texts at once",
			"ocr":               "Extract from receipt/invoice images",
			"receipt_parsing":   "Parse full receipt structure from text, images and PDFs",
			"pdf":               "Inspect PDFs and extract their text",
			"analytics":         "Generate insights and summaries",
			"export":            "Export to CSV and Excel",
		},
		SupportedLanguages: models.SupportedLanguages(),
		ExpenseCategories:  models.Categories(),
		Endpoints: map[string]string{
			"extract_single":       "POST /expenses/extract",
			"extract_multi":        "POST /expenses/extract/multi",
			"extract_batch":        "POST /expenses/extract/batch",
			"ocr_upload":           "POST /expenses/ocr/upload",
			"ocr_url":              "POST /expenses/ocr/url",
			"receipt_parse_text":   "POST /expenses/receipt/parse/text",
			"receipt_parse_upload": "POST /expenses/receipt/parse/upload",
			"receipt_parse_url":    "POST /expenses/receipt/parse/url",
			"pdf_info":             "POST /expenses/pdf/info",
			"pdf_extract_text":     "POST /expenses/pdf/extract-text",
			"analytics":            "POST /expenses/analytics",
			"summary":              "POST /expenses/analytics/summary",
			"anomalies":            "POST /expenses/analytics/anomalies",
			"export_csv":           "POST /expenses/export/csv",
			"export_excel":         "POST /expenses/export/excel",
		},
	})
}
