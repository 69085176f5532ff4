package models

// ReceiptVendor identifies the issuing business on a parsed receipt.
type ReceiptVendor struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
}

// ReceiptInvoice holds the document-level metadata of a receipt,
// invoice or bill.
type ReceiptInvoice struct {
	Number  string `json:"number,omitempty"`
	Date    string `json:"date,omitempty"`
	DueDate string `json:"due_date,omitempty"`
	Type    string `json:"type,omitempty"`
}

type ReceiptLineItem struct {
	Description string     `json:"description,omitempty"`
	Quantity    *FlexFloat `json:"quantity,omitempty"`
	UnitPrice   *FlexFloat `json:"unit_price,omitempty"`
	Total       *FlexFloat `json:"total,omitempty"`
	Category    string     `json:"category,omitempty"`
}

type ReceiptTotals struct {
	Subtotal  *FlexFloat `json:"subtotal,omitempty"`
	TaxRate   *FlexFloat `json:"tax_rate,omitempty"`
	TaxAmount *FlexFloat `json:"tax_amount,omitempty"`
	Discount  *FlexFloat `json:"discount,omitempty"`
	Total     *FlexFloat `json:"total,omitempty"`
	Currency  string     `json:"currency,omitempty"`
}

// ReceiptPayment records how the receipt was settled. Status is one of
// paid, unpaid or partial.
type ReceiptPayment struct {
	Method string `json:"method,omitempty"`
	Status string `json:"status,omitempty"`
}

// Receipt is the structured result of full receipt parsing. Confidence
// and ExtractedText are populated only by vision parses.
type Receipt struct {
	Vendor           *ReceiptVendor    `json:"vendor,omitempty"`
	Invoice          *ReceiptInvoice   `json:"invoice,omitempty"`
	LineItems        []ReceiptLineItem `json:"line_items"`
	Totals           *ReceiptTotals    `json:"totals,omitempty"`
	Payment          *ReceiptPayment   `json:"payment,omitempty"`
	LanguageDetected string            `json:"language_detected,omitempty"`
	Confidence       *FlexFloat        `json:"confidence,omitempty"`
	ExtractedText    string            `json:"extracted_text,omitempty"`
}

// Normalize enforces response invariants on a model-produced receipt.
func (r *Receipt) Normalize() {
	if r.LineItems == nil {
		r.LineItems = []ReceiptLineItem{}
	}
}
