package handlers

import (
	"masarif/internal/dto"
	"masarif/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ExtractHandler struct {
	extractor *service.ExtractorService
	logger    *zap.Logger
}

func NewExtractHandler(extractor *service.ExtractorService, logger *zap.Logger) *ExtractHandler {
	return &ExtractHandler{
		extractor: extractor,
		logger:    logger,
	}
}

// ExtractSingle godoc
// @Summary Extract a single expense from text
// @Description Extract one expense from free text. Supports English, French, German, Arabic and Moroccan Darija.
// @Tags extraction
// @Accept json
// @Produce json
// @Param request body dto.ExtractRequest true "Extraction request"
// @Success 200 {object} dto.ExtractResponse
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /expenses/extract [post]
func (h *ExtractHandler) ExtractSingle(c *fiber.Ctx) error {
	var req dto.ExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.extractor.ExtractSingle(c.Context(), req.Text, req.ExpenseType, req.Fields, req.Language)
	if err != nil {
		return serviceError(c, h.logger, "Extraction failed", err)
	}

	return c.JSON(resp)
}

// ExtractMulti godoc
// @Summary Extract multiple expenses from one text
// @Description Extract every expense mentioned in a single text, each with its own category.
// @Tags extraction
// @Accept json
// @Produce json
// @Param request body dto.MultiExtractRequest true "Extraction request"
// @Success 200 {object} dto.MultiExtractResponse
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /expenses/extract/multi [post]
func (h *ExtractHandler) ExtractMulti(c *fiber.Ctx) error {
	var req dto.MultiExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.extractor.ExtractMulti(c.Context(), req.Text, req.Fields, req.Language)
	if err != nil {
		return serviceError(c, h.logger, "Extraction failed", err)
	}

	return c.JSON(resp)
}

// ExtractBatch godoc
// @Summary Process multiple expense texts in batch
// @Description Run single extraction over each text. A failing text is reported in its result slot without aborting the batch.
// @Tags extraction
// @Accept json
// @Produce json
// @Param request body dto.BatchExtractRequest true "Batch request"
// @Success 200 {object} dto.BatchExtractResponse
// @Failure 400 {object} map[string]string
// @Router /expenses/extract/batch [post]
func (h *ExtractHandler) ExtractBatch(c *fiber.Ctx) error {
	var req dto.BatchExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.extractor.ExtractBatch(c.Context(), req.Texts, req.Fields)
	if err != nil {
		return serviceError(c, h.logger, "Batch extraction failed", err)
	}

	return c.JSON(resp)
}
