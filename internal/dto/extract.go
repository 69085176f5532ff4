package dto

import "masarif/internal/models"

type ExtractRequest struct {
	Text        string   `json:"text"`
	ExpenseType string   `json:"expense_type"`
	Fields      []string `json:"fields"`
	Language    string   `json:"language"`
}

type MultiExtractRequest struct {
	Text     string   `json:"text"`
	Fields   []string `json:"fields"`
	Language string   `json:"language"`
}

type BatchExtractRequest struct {
	Texts  []string `json:"texts"`
	Fields []string `json:"fields"`
}

// ExtractResponse carries one extracted expense. ExpenseType echoes the
// category the model settled on, which the caller may have forced.
type ExtractResponse struct {
	Success          bool                 `json:"success"`
	Journal          string               `json:"journal"`
	ExpenseType      *string              `json:"expense_type"`
	Data             models.ExpenseRecord `json:"data"`
	LanguageDetected *string              `json:"language_detected"`
}

type MultiExtractResponse struct {
	Success          bool                   `json:"success"`
	Count            int                    `json:"count"`
	Expenses         []models.ExpenseRecord `json:"expenses"`
	LanguageDetected *string                `json:"language_detected"`
}

// BatchResult is the outcome for one input text of a batch. Exactly one
// of Data and Error is set.
type BatchResult struct {
	Input   string                `json:"input"`
	Success bool                  `json:"success"`
	Data    *models.ExpenseRecord `json:"data,omitempty"`
	Error   string                `json:"error,omitempty"`
}

type BatchExtractResponse struct {
	Success   bool          `json:"success"`
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Results   []BatchResult `json:"results"`
}
