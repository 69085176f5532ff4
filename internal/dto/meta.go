package dto

type APIStatusResponse struct {
	Status  string `json:"status"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// InfoResponse advertises the service capabilities and route map to API
// consumers.
type InfoResponse struct {
	Name               string            `json:"name"`
	Version            string            `json:"version"`
	Description        string            `json:"description"`
	Capabilities       map[string]string `json:"capabilities"`
	SupportedLanguages []string          `json:"supported_languages"`
	ExpenseCategories  []string          `json:"expense_categories"`
	Endpoints          map[string]string `json:"endpoints"`
}
