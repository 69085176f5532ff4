package handlers

import (
	"strings"

	"masarif/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// defaultFields is the extraction field list applied when the caller
// does not narrow it.
const defaultFields = "amount,currency,category,description,date,vendor"

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

type OCRHandler struct {
	ocr    *service.OCRService
	logger *zap.Logger
}

func NewOCRHandler(ocr *service.OCRService, logger *zap.Logger) *OCRHandler {
	return &OCRHandler{
		ocr:    ocr,
		logger: logger,
	}
}

// Upload godoc
// @Summary Extract expenses from a receipt image
// @Description Upload a receipt or invoice image, read its text and extract every expense found on it.
// @Tags ocr
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Receipt or invoice image"
// @Param fields query string false "Comma-separated fields to extract" default(amount,currency,category,description,date,vendor)
// @Success 200 {object} dto.OCRResponse
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /expenses/ocr/upload [post]
func (h *OCRHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}

	contentType := file.Header.Get("Content-Type")
	if !allowedImageType(contentType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid file type. Allowed: " + strings.Join(allowedImageTypes, ", "),
		})
	}

	data, err := readFormFile(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to open file",
		})
	}

	resp, err := h.ocr.ProcessImage(c.Context(), data, contentType, queryFields(c))
	if err != nil {
		return serviceError(c, h.logger, "Receipt processing failed", err)
	}

	return c.JSON(resp)
}

// FromURL godoc
// @Summary Extract expenses from a URL
// @Description Read an image URL with the vision model, or scrape a webpage and extract the prices it lists.
// @Tags ocr
// @Produce json
// @Param image_url query string true "Image or webpage URL"
// @Param fields query string false "Comma-separated fields to extract" default(amount,currency,category,description,date,vendor)
// @Success 200 {object} dto.OCRResponse
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /expenses/ocr/url [post]
func (h *OCRHandler) FromURL(c *fiber.Ctx) error {
	resp, err := h.ocr.ProcessURL(c.Context(), c.Query("image_url"), queryFields(c))
	if err != nil {
		return serviceError(c, h.logger, "URL processing failed", err)
	}

	return c.JSON(resp)
}

func allowedImageType(contentType string) bool {
	for _, t := range allowedImageTypes {
		if contentType == t {
			return true
		}
	}
	return false
}

// queryFields reads the fields query parameter as a comma-separated
// list, dropping empty entries.
func queryFields(c *fiber.Ctx) []string {
	parts := strings.Split(c.Query("fields", defaultFields), ",")
	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			fields = append(fields, part)
		}
	}
	return fields
}
