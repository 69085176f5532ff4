package dto

import "masarif/internal/models"

// OCRResponse is the image/webpage extraction pipeline result. URL and
// LanguageDetected are set only for webpage sources.
type OCRResponse struct {
	Success          bool                   `json:"success"`
	Source           string                 `json:"source"`
	URL              string                 `json:"url,omitempty"`
	ExtractedText    string                 `json:"extracted_text"`
	Expenses         []models.ExpenseRecord `json:"expenses"`
	Count            int                    `json:"count"`
	LanguageDetected *string                `json:"language_detected,omitempty"`
}
