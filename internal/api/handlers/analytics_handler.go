package handlers

import (
	"masarif/internal/dto"
	"masarif/internal/models"
	"masarif/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	logger    *zap.Logger
}

func NewAnalyticsHandler(analytics *service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		logger:    logger,
	}
}

// Analyze godoc
// @Summary Analyze expenses
// @Description Aggregate expenses by category, payment method and day, with derived insights.
// @Tags analytics
// @Accept json
// @Produce json
// @Param request body dto.AnalyticsRequest true "Expenses to analyze"
// @Success 200 {object} dto.AnalyticsResponse
// @Failure 400 {object} map[string]string
// @Router /expenses/analytics [post]
func (h *AnalyticsHandler) Analyze(c *fiber.Ctx) error {
	var req dto.AnalyticsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	return c.JSON(h.analytics.Analyze(req.Expenses, req.GroupBy, ""))
}

// Summary godoc
// @Summary Render an expense summary
// @Description Render a human-readable text report over the supplied expenses.
// @Tags analytics
// @Accept json
// @Produce json
// @Param request body []models.ExpenseRecord true "Expense records"
// @Param period query string false "Period label for the report heading" default(this period)
// @Success 200 {object} dto.SummaryResponse
// @Failure 400 {object} map[string]string
// @Router /expenses/analytics/summary [post]
func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	var records []models.ExpenseRecord
	if err := c.BodyParser(&records); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	return c.JSON(dto.SummaryResponse{
		Summary: h.analytics.FormatSummary(records, c.Query("period")),
	})
}

// Anomalies godoc
// @Summary Detect unusual expenses
// @Description Flag expenses whose amount deviates from the mean by more than the threshold in standard deviations.
// @Tags analytics
// @Accept json
// @Produce json
// @Param request body []models.ExpenseRecord true "Expense records"
// @Param threshold query number false "Standard deviation threshold" default(2.0)
// @Success 200 {object} dto.AnomaliesResponse
// @Failure 400 {object} map[string]string
// @Router /expenses/analytics/anomalies [post]
func (h *AnalyticsHandler) Anomalies(c *fiber.Ctx) error {
	var records []models.ExpenseRecord
	if err := c.BodyParser(&records); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	anomalies := h.analytics.DetectAnomalies(records, c.QueryFloat("threshold", service.DefaultAnomalyThreshold))
	return c.JSON(dto.AnomaliesResponse{
		Count:     len(anomalies),
		Anomalies: anomalies,
	})
}
