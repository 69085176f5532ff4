package handlers

import (
	"unicode/utf8"

	"masarif/internal/dto"
	"masarif/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type PDFHandler struct {
	pdf    *service.PDFService
	logger *zap.Logger
}

func NewPDFHandler(pdf *service.PDFService, logger *zap.Logger) *PDFHandler {
	return &PDFHandler{
		pdf:    pdf,
		logger: logger,
	}
}

// Info godoc
// @Summary Inspect a PDF
// @Description Report page count, document metadata and whether the PDF carries a text layer.
// @Tags pdf
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file"
// @Success 200 {object} dto.PDFInfoResponse
// @Failure 400 {object} map[string]string
// @Router /expenses/pdf/info [post]
func (h *PDFHandler) Info(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}
	if file.Header.Get("Content-Type") != "application/pdf" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File must be a PDF",
		})
	}

	data, err := readFormFile(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to open file",
		})
	}

	info, err := h.pdf.Info(data)
	if err != nil {
		return serviceError(c, h.logger, "PDF inspection failed", err)
	}

	return c.JSON(info)
}

// ExtractText godoc
// @Summary Extract text from a PDF
// @Description Extract the embedded text of every page, with page markers.
// @Tags pdf
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file"
// @Success 200 {object} dto.PDFTextResponse
// @Failure 400 {object} map[string]string
// @Router /expenses/pdf/extract-text [post]
func (h *PDFHandler) ExtractText(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}
	if file.Header.Get("Content-Type") != "application/pdf" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File must be a PDF",
		})
	}

	data, err := readFormFile(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to open file",
		})
	}

	text, err := h.pdf.ExtractText(data)
	if err != nil {
		return serviceError(c, h.logger, "PDF text extraction failed", err)
	}

	return c.JSON(dto.PDFTextResponse{
		Success:   true,
		Text:      text,
		CharCount: utf8.RuneCountInString(text),
	})
}
