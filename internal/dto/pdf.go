package dto

type PDFInfoResponse struct {
	Success   bool              `json:"success"`
	PageCount int               `json:"page_count"`
	Metadata  map[string]string `json:"metadata"`
	HasText   bool              `json:"has_text"`
}

type PDFTextResponse struct {
	Success   bool   `json:"success"`
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
}
