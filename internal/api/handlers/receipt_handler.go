package handlers

import (
	"context"
	"strings"
	"unicode/utf8"

	"masarif/internal/dto"
	"masarif/internal/models"
	"masarif/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	// pdfTextThreshold is the minimum extracted character count for a
	// PDF to be parsed from its text layer instead of a page raster.
	pdfTextThreshold = 50
	// maxEchoedTextChars caps the extracted text echoed back in upload
	// responses.
	maxEchoedTextChars = 2000
)

type ReceiptHandler struct {
	receipts *service.ReceiptService
	pdf      *service.PDFService
	logger   *zap.Logger
}

func NewReceiptHandler(receipts *service.ReceiptService, pdf *service.PDFService, logger *zap.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		receipts: receipts,
		pdf:      pdf,
		logger:   logger,
	}
}

// ParseText godoc
// @Summary Parse a receipt from text
// @Description Parse vendor, invoice, line items, totals and payment details out of receipt or invoice text.
// @Tags receipts
// @Produce json
// @Param text query string true "Receipt text"
// @Param extract_line_items query bool false "Extract individual line items" default(true)
// @Param extract_vendor query bool false "Extract vendor details" default(true)
// @Param extract_tax query bool false "Extract tax breakdown" default(true)
// @Success 200 {object} dto.ReceiptParseResponse
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /expenses/receipt/parse/text [post]
func (h *ReceiptHandler) ParseText(c *fiber.Ctx) error {
	receipt, err := h.receipts.ParseText(c.Context(), c.Query("text"), queryReceiptOptions(c))
	if err != nil {
		return serviceError(c, h.logger, "Receipt parsing failed", err)
	}

	return c.JSON(dto.NewReceiptParseResponse("text", receipt))
}

// ParseUpload godoc
// @Summary Parse a receipt from an uploaded image or PDF
// @Description Parse the full receipt structure from an upload. PDFs with a usable text layer are parsed from text, scanned PDFs through a rasterized first page.
// @Tags receipts
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Receipt/invoice image or PDF"
// @Param extract_line_items query bool false "Extract individual line items" default(true)
// @Param extract_vendor query bool false "Extract vendor details" default(true)
// @Param extract_tax query bool false "Extract tax breakdown" default(true)
// @Success 200 {object} dto.ReceiptParseResponse
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /expenses/receipt/parse/upload [post]
func (h *ReceiptHandler) ParseUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}

	data, err := readFormFile(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to open file",
		})
	}

	opts := queryReceiptOptions(c)
	contentType := file.Header.Get("Content-Type")

	var (
		receipt *models.Receipt
		source  string
	)
	switch {
	case contentType == "application/pdf":
		receipt, source, err = h.parsePDF(c.Context(), data, opts)
	case allowedImageType(contentType):
		receipt, err = h.receipts.ParseImage(c.Context(), data, contentType, opts)
		source = "image_upload"
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid file type: " + contentType + ". Allowed: images (JPEG, PNG, WebP, GIF) and PDF",
		})
	}
	if err != nil {
		return serviceError(c, h.logger, "Receipt parsing failed", err)
	}

	resp := dto.NewReceiptParseResponse(source, receipt)
	resp.ExtractedText = truncateEchoedText(resp.ExtractedText)
	return c.JSON(resp)
}

// ParseURL godoc
// @Summary Parse a receipt from an image URL
// @Description Parse the full receipt structure from a remote receipt or invoice image.
// @Tags receipts
// @Produce json
// @Param image_url query string true "Receipt image URL"
// @Param extract_line_items query bool false "Extract individual line items" default(true)
// @Param extract_vendor query bool false "Extract vendor details" default(true)
// @Param extract_tax query bool false "Extract tax breakdown" default(true)
// @Success 200 {object} dto.ReceiptParseResponse
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /expenses/receipt/parse/url [post]
func (h *ReceiptHandler) ParseURL(c *fiber.Ctx) error {
	receipt, err := h.receipts.ParseURL(c.Context(), c.Query("image_url"), queryReceiptOptions(c))
	if err != nil {
		return serviceError(c, h.logger, "Receipt parsing failed", err)
	}

	return c.JSON(dto.NewReceiptParseResponse("image_url", receipt))
}

// parsePDF picks the parsing route for a PDF upload: the text layer
// when it carries enough characters, otherwise a vision pass over the
// rasterized first page.
func (h *ReceiptHandler) parsePDF(ctx context.Context, data []byte, opts service.ReceiptOptions) (*models.Receipt, string, error) {
	text, err := h.pdf.ExtractText(data)
	if err != nil {
		return nil, "", err
	}

	if strings.TrimSpace(text) != "" && utf8.RuneCountInString(text) > pdfTextThreshold {
		receipt, err := h.receipts.ParseText(ctx, text, opts)
		if err != nil {
			return nil, "", err
		}
		receipt.ExtractedText = text
		return receipt, "pdf_text", nil
	}

	page, err := h.pdf.PageToPNG(data, 0, service.DefaultRasterDPI)
	if err != nil {
		return nil, "", err
	}
	receipt, err := h.receipts.ParseImage(ctx, page, "image/png", opts)
	if err != nil {
		return nil, "", err
	}
	return receipt, "pdf_ocr", nil
}

// queryReceiptOptions reads the structure toggles, all on unless
// explicitly disabled.
func queryReceiptOptions(c *fiber.Ctx) service.ReceiptOptions {
	return service.ReceiptOptions{
		ExtractLineItems: c.QueryBool("extract_line_items", true),
		ExtractVendor:    c.QueryBool("extract_vendor", true),
		ExtractTax:       c.QueryBool("extract_tax", true),
	}
}

func truncateEchoedText(s string) string {
	if utf8.RuneCountInString(s) <= maxEchoedTextChars {
		return s
	}
	return string([]rune(s)[:maxEchoedTextChars])
}
