package handlers

import (
	"masarif/internal/models"
	"masarif/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const spreadsheetMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandler struct {
	export *service.ExportService
	logger *zap.Logger
}

func NewExportHandler(export *service.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		export: export,
		logger: logger,
	}
}

// CSV godoc
// @Summary Export expenses to CSV
// @Description Render the supplied expenses as a CSV download.
// @Tags export
// @Accept json
// @Produce text/csv
// @Param request body []models.ExpenseRecord true "Expense records"
// @Success 200 {string} string "CSV content"
// @Failure 400 {object} map[string]string
// @Router /expenses/export/csv [post]
func (h *ExportHandler) CSV(c *fiber.Ctx) error {
	var records []models.ExpenseRecord
	if err := c.BodyParser(&records); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	content, err := h.export.ToCSV(records)
	if err != nil {
		return serviceError(c, h.logger, "CSV export failed", err)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename=expenses.csv")
	return c.SendString(content)
}

// Excel godoc
// @Summary Export expenses to Excel
// @Description Render the supplied expenses as a styled xlsx workbook, optionally with a summary sheet.
// @Tags export
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param request body []models.ExpenseRecord true "Expense records"
// @Param title query string false "Report title" default(Expense Report)
// @Param include_summary query bool false "Include summary sheet" default(true)
// @Success 200 {file} file "Workbook"
// @Failure 400 {object} map[string]string
// @Router /expenses/export/excel [post]
func (h *ExportHandler) Excel(c *fiber.Ctx) error {
	var records []models.ExpenseRecord
	if err := c.BodyParser(&records); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	title := c.Query("title", service.DefaultExportTitle)
	workbook, err := h.export.ToSpreadsheet(records, c.QueryBool("include_summary", true), title)
	if err != nil {
		return serviceError(c, h.logger, "Excel export failed", err)
	}

	c.Set(fiber.HeaderContentType, spreadsheetMIME)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+service.SpreadsheetFileName(title))
	return c.Send(workbook)
}
