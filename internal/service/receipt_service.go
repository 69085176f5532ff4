package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"masarif/internal/models"

	"go.uber.org/zap"
)

const receiptParsePrompt = `You are an expert receipt/invoice parser. Extract ALL information from this receipt.

EXTRACT THE FOLLOWING:

1. **VENDOR INFO**:
   - name: Store/company name
   - address: Full address if visible
   - phone: Phone number
   - tax_id: Tax ID/VAT number if visible

2. **INVOICE INFO**:
   - number: Invoice/receipt number
   - date: Date (YYYY-MM-DD format)
   - due_date: Due date if invoice
   - type: "receipt", "invoice", or "bill"

3. **LINE ITEMS** (each product/service):
   - description: Item name
   - quantity: Number of items (default 1)
   - unit_price: Price per unit
   - total: Line total
   - category: transport/food/utilities/shopping/health/entertainment/education/travel/other

4. **TOTALS**:
   - subtotal: Before tax
   - tax_rate: Tax percentage (e.g., 20 for 20%)
   - tax_amount: Tax amount
   - discount: Discount amount (0 if none)
   - total: Final total
   - currency: MAD, EUR, USD, etc.

5. **PAYMENT**:
   - method: cash, card, transfer, mobile, other
   - status: paid, unpaid, partial

CURRENCY DETECTION:
- dh, درهم, DH, MAD → "MAD"
- €, euro, EUR → "EUR"
- $, dollar, USD → "USD"
- £, pound, GBP → "GBP"

LANGUAGE SUPPORT:
- English, French, German, Arabic, Moroccan Darija

Return ONLY valid JSON, no explanation.`

// ReceiptOptions selects which sections of the reply structure the
// model is asked to fill in.
type ReceiptOptions struct {
	ExtractLineItems bool
	ExtractVendor    bool
	ExtractTax       bool
}

func DefaultReceiptOptions() ReceiptOptions {
	return ReceiptOptions{ExtractLineItems: true, ExtractVendor: true, ExtractTax: true}
}

type ReceiptService struct {
	llm    *LLMService
	logger *zap.Logger
}

func NewReceiptService(llm *LLMService, logger *zap.Logger) *ReceiptService {
	return &ReceiptService{
		llm:    llm,
		logger: logger,
	}
}

// ParseText parses receipt or invoice text into the full structured
// form.
func (s *ReceiptService) ParseText(ctx context.Context, text string, opts ReceiptOptions) (*models.Receipt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required: %w", ErrInvalidInput)
	}

	reply, err := s.llm.CompleteJSON(ctx,
		receiptSystemPrompt(opts, false),
		"Parse this receipt/invoice:\n\n"+text,
	)
	if err != nil {
		return nil, err
	}

	receipt, err := parseReceiptReply(reply)
	if err != nil {
		return nil, err
	}
	s.logger.Info("receipt parsed from text",
		zap.Int("text_length", len(text)),
		zap.Int("line_items", len(receipt.LineItems)),
	)
	return receipt, nil
}

// ParseImage parses a receipt photo via the vision model. The reply
// additionally carries the raw text the model read and a confidence
// estimate.
func (s *ReceiptService) ParseImage(ctx context.Context, data []byte, mimeType string, opts ReceiptOptions) (*models.Receipt, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image upload: %w", ErrInvalidInput)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	reply, err := s.llm.CompleteVision(ctx,
		receiptSystemPrompt(opts, true),
		"Parse this receipt/invoice image. Extract ALL visible information.",
		DataURL(mimeType, data),
		0,
	)
	if err != nil {
		return nil, err
	}

	receipt, err := parseReceiptReply(reply)
	if err != nil {
		return nil, err
	}
	s.logger.Info("receipt parsed from image",
		zap.Int("image_bytes", len(data)),
		zap.Int("line_items", len(receipt.LineItems)),
	)
	return receipt, nil
}

// ParseURL parses a receipt image by its remote URL.
func (s *ReceiptService) ParseURL(ctx context.Context, rawURL string, opts ReceiptOptions) (*models.Receipt, error) {
	if !isValidURL(rawURL) {
		return nil, fmt.Errorf("invalid URL format, must start with http:// or https://: %w", ErrInvalidInput)
	}

	reply, err := s.llm.CompleteVision(ctx,
		receiptSystemPrompt(opts, true),
		"Parse this receipt/invoice image. Extract ALL visible information.",
		rawURL,
		0,
	)
	if err != nil {
		return nil, err
	}

	receipt, err := parseReceiptReply(reply)
	if err != nil {
		return nil, err
	}
	s.logger.Info("receipt parsed from url",
		zap.String("url", rawURL),
		zap.Int("line_items", len(receipt.LineItems)),
	)
	return receipt, nil
}

func parseReceiptReply(reply string) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := json.Unmarshal([]byte(extractJSONObject(reply)), &receipt); err != nil {
		return nil, fmt.Errorf("parse receipt reply: %v: %w", err, ErrUpstream)
	}
	receipt.Normalize()
	receipt.ExtractedText = sanitizeUTF8(receipt.ExtractedText)
	return &receipt, nil
}

// receiptSystemPrompt appends the reply structure the toggles ask for.
// Vision parses also request the raw text and a confidence score.
func receiptSystemPrompt(opts ReceiptOptions, vision bool) string {
	var b strings.Builder
	b.WriteString(receiptParsePrompt)
	b.WriteString("\n\nReturn this exact JSON structure:\n{\n")

	if opts.ExtractVendor {
		b.WriteString(`  "vendor": {
    "name": "<string or null>",
    "address": "<string or null>",
    "phone": "<string or null>",
    "tax_id": "<string or null>"
  },
`)
	} else {
		b.WriteString("  \"vendor\": null,\n")
	}

	b.WriteString(`  "invoice": {
    "number": "<string or null>",
    "date": "<YYYY-MM-DD or null>",
    "due_date": "<YYYY-MM-DD or null>",
    "type": "<receipt/invoice/bill>"
  },
`)

	if opts.ExtractLineItems {
		b.WriteString(`  "line_items": [
    {
      "description": "<item name>",
      "quantity": "<number>",
      "unit_price": "<number or null>",
      "total": "<number>",
      "category": "<category>"
    }
  ],
`)
	} else {
		b.WriteString("  \"line_items\": [],\n")
	}

	if opts.ExtractTax {
		b.WriteString(`  "totals": {
    "subtotal": "<number or null>",
    "tax_rate": "<number or null>",
    "tax_amount": "<number or null>",
    "discount": "<number or 0>",
    "total": "<number>",
    "currency": "<MAD/EUR/USD>"
  },
`)
	} else {
		b.WriteString("  \"totals\": {\"total\": \"<number>\", \"currency\": \"<code>\"},\n")
	}

	b.WriteString(`  "payment": {
    "method": "<cash/card/transfer/mobile/other or null>",
    "status": "<paid/unpaid/partial>"
  },
`)

	if vision {
		b.WriteString(`  "extracted_text": "<all visible text from receipt>",
  "language_detected": "<detected language>",
  "confidence": "<0.0-1.0>"
`)
	} else {
		b.WriteString("  \"language_detected\": \"<detected language>\"\n")
	}

	b.WriteString("}\n\nTODAY'S DATE: ")
	b.WriteString(time.Now().Format("2006-01-02"))
	return b.String()
}
