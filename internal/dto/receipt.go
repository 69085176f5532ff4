package dto

import "masarif/internal/models"

// ReceiptParseResponse flattens a parsed receipt for the API: payment
// method and status are lifted out of the nested payment object and a
// line item count is added.
type ReceiptParseResponse struct {
	Success          bool                     `json:"success"`
	Source           string                   `json:"source"`
	Invoice          *models.ReceiptInvoice   `json:"invoice"`
	Vendor           *models.ReceiptVendor    `json:"vendor"`
	LineItems        []models.ReceiptLineItem `json:"line_items"`
	LineItemsCount   int                      `json:"line_items_count"`
	Totals           *models.ReceiptTotals    `json:"totals"`
	PaymentMethod    string                   `json:"payment_method,omitempty"`
	PaymentStatus    string                   `json:"payment_status,omitempty"`
	ExtractedText    string                   `json:"extracted_text,omitempty"`
	LanguageDetected string                   `json:"language_detected,omitempty"`
	Confidence       *models.FlexFloat        `json:"confidence,omitempty"`
}

// NewReceiptParseResponse builds the flat response from a normalized
// receipt.
func NewReceiptParseResponse(source string, receipt *models.Receipt) *ReceiptParseResponse {
	resp := &ReceiptParseResponse{
		Success:          true,
		Source:           source,
		Invoice:          receipt.Invoice,
		Vendor:           receipt.Vendor,
		LineItems:        receipt.LineItems,
		LineItemsCount:   len(receipt.LineItems),
		Totals:           receipt.Totals,
		ExtractedText:    receipt.ExtractedText,
		LanguageDetected: receipt.LanguageDetected,
		Confidence:       receipt.Confidence,
	}
	if receipt.Payment != nil {
		resp.PaymentMethod = receipt.Payment.Method
		resp.PaymentStatus = receipt.Payment.Status
	}
	return resp
}
