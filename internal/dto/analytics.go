package dto

import "masarif/internal/models"

type AnalyticsRequest struct {
	Expenses []models.ExpenseRecord `json:"expenses"`
	GroupBy  string                 `json:"group_by"`
}

// AnalyticsResponse mirrors the analysis engine output. The payment and
// daily mappings are omitted entirely for empty inputs.
type AnalyticsResponse struct {
	Success        bool                `json:"success"`
	TotalAmount    float64             `json:"total_amount"`
	Currency       string              `json:"currency"`
	Count          int                 `json:"count"`
	Breakdown      *models.Breakdown   `json:"breakdown"`
	Insights       []string            `json:"insights"`
	PaymentSummary *models.AmountByKey `json:"payment_summary,omitempty"`
	DailyTotals    *models.AmountByKey `json:"daily_totals,omitempty"`
}

type AnomaliesResponse struct {
	Count     int                    `json:"count"`
	Anomalies []models.AnomalyRecord `json:"anomalies"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}
