package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"masarif/internal/dto"
	"masarif/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultGroupBy is the grouping field used when the caller names none.
	DefaultGroupBy = "category"
	// DefaultAnomalyThreshold is the z-score above which a record is flagged.
	DefaultAnomalyThreshold = 2.0
	// DefaultPeriod labels summaries when the caller names no period.
	DefaultPeriod = "this period"

	// minAnomalySample is the smallest record count with a meaningful
	// standard deviation for anomaly detection.
	minAnomalySample = 3
)

type AnalyticsService struct {
	logger *zap.Logger
}

func NewAnalyticsService(logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{logger: logger}
}

// Analyze aggregates expenses by groupBy and derives insight strings.
// Records are never rejected: missing amounts count as 0 and missing
// grouping values fall back to sentinel keys.
func (s *AnalyticsService) Analyze(records []models.ExpenseRecord, groupBy, currency string) *dto.AnalyticsResponse {
	if groupBy == "" {
		groupBy = DefaultGroupBy
	}
	if currency == "" {
		currency = models.DefaultCurrency
	}

	if len(records) == 0 {
		return &dto.AnalyticsResponse{
			Success:   true,
			Currency:  currency,
			Breakdown: models.NewBreakdown(),
			Insights:  []string{"No expenses to analyze"},
		}
	}

	var total float64
	breakdown := models.NewBreakdown()
	payments := models.NewAmountByKey()
	daily := models.NewAmountByKey()

	for i := range records {
		r := &records[i]
		amount := r.AmountOrZero()
		total += amount
		breakdown.Add(r.GroupKey(groupBy), amount)
		payments.Add(r.PaymentOrUnknown(), amount)
		daily.Add(r.DateOrUnknown(), amount)
	}

	insights := buildInsights(records, breakdown, payments, daily, total, currency)

	s.logger.Debug("analyzed expenses",
		zap.Int("count", len(records)),
		zap.String("group_by", groupBy),
		zap.Int("groups", breakdown.Len()),
	)

	return &dto.AnalyticsResponse{
		Success:        true,
		TotalAmount:    round2(total),
		Currency:       currency,
		Count:          len(records),
		Breakdown:      breakdown,
		Insights:       insights,
		PaymentSummary: payments,
		DailyTotals:    daily,
	}
}

// DetectAnomalies flags records whose amount deviates from the
// population mean by more than threshold standard deviations. Fewer
// than three records, or a zero-variance sample, yields no anomalies.
func (s *AnalyticsService) DetectAnomalies(records []models.ExpenseRecord, threshold float64) []models.AnomalyRecord {
	anomalies := []models.AnomalyRecord{}
	if len(records) < minAnomalySample {
		return anomalies
	}

	amounts := make([]float64, len(records))
	var sum float64
	for i := range records {
		amounts[i] = records[i].AmountOrZero()
		sum += amounts[i]
	}
	mean := sum / float64(len(amounts))

	var varianceSum float64
	for _, amount := range amounts {
		diff := amount - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(amounts)))
	if stdDev == 0 {
		return anomalies
	}

	for i := range records {
		z := math.Abs(amounts[i]-mean) / stdDev
		if z <= threshold {
			continue
		}
		deviation := "low"
		if amounts[i] > mean {
			deviation = "high"
		}
		anomalies = append(anomalies, models.AnomalyRecord{
			Expense:   records[i],
			ZScore:    round2(z),
			Deviation: deviation,
		})
	}

	s.logger.Debug("anomaly detection complete",
		zap.Int("records", len(records)),
		zap.Float64("threshold", threshold),
		zap.Int("anomalies", len(anomalies)),
	)
	return anomalies
}

// FormatSummary renders a fixed-layout text report for the period.
func (s *AnalyticsService) FormatSummary(records []models.ExpenseRecord, period string) string {
	if period == "" {
		period = DefaultPeriod
	}
	analysis := s.Analyze(records, DefaultGroupBy, models.DefaultCurrency)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 EXPENSE SUMMARY - %s\n", strings.ToUpper(period))
	b.WriteString(strings.Repeat("=", 40))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Total Spent: %.2f %s\n", analysis.TotalAmount, analysis.Currency)
	fmt.Fprintf(&b, "Number of Expenses: %d\n\n", analysis.Count)

	b.WriteString("📁 BY CATEGORY:\n")
	for _, key := range analysis.Breakdown.Keys() {
		entry, _ := analysis.Breakdown.Get(key)
		var pct float64
		if analysis.TotalAmount != 0 {
			pct = entry.Amount / analysis.TotalAmount * 100
		}
		fmt.Fprintf(&b, "  • %s: %.2f %s (%.1f%%)\n", key, entry.Amount, analysis.Currency, pct)
	}

	b.WriteString("\n💡 INSIGHTS:\n")
	for _, insight := range analysis.Insights {
		fmt.Fprintf(&b, "  • %s\n", insight)
	}
	return strings.TrimSpace(b.String())
}

func buildInsights(records []models.ExpenseRecord, breakdown *models.Breakdown, payments, daily *models.AmountByKey, total float64, currency string) []string {
	insights := make([]string, 0, 4)

	if key, amount, ok := maxGroup(breakdown); ok {
		insights = append(insights, fmt.Sprintf("Highest spending: %s (%.2f %s)", key, amount, currency))
	}
	if key, amount, ok := maxAmount(payments); ok {
		insights = append(insights, fmt.Sprintf("Most used payment: %s (%.2f %s)", key, amount, currency))
	}
	insights = append(insights, fmt.Sprintf("Average expense: %.2f %s", total/float64(len(records)), currency))

	if trend, ok := trendInsight(records, daily); ok {
		insights = append(insights, trend)
	}
	return insights
}

// maxGroup returns the breakdown entry with the largest amount; ties
// keep the first-seen key because the scan uses strict greater-than.
func maxGroup(b *models.Breakdown) (string, float64, bool) {
	var (
		bestKey string
		bestAmt float64
		found   bool
	)
	for _, key := range b.Keys() {
		entry, _ := b.Get(key)
		if !found || entry.Amount > bestAmt {
			bestKey, bestAmt, found = key, entry.Amount, true
		}
	}
	return bestKey, bestAmt, found
}

func maxAmount(m *models.AmountByKey) (string, float64, bool) {
	var (
		bestKey string
		bestAmt float64
		found   bool
	)
	for _, key := range m.Keys() {
		if amount := m.Get(key); !found || amount > bestAmt {
			bestKey, bestAmt, found = key, amount, true
		}
	}
	return bestKey, bestAmt, found
}

// trendInsight compares the two date-ordered halves of daily spending.
// It needs at least two distinct dated days; undated records are left
// out entirely.
func trendInsight(records []models.ExpenseRecord, daily *models.AmountByKey) (string, bool) {
	seen := make(map[string]struct{})
	var dates []string
	for i := range records {
		if !records[i].HasDate() {
			continue
		}
		d := *records[i].Date
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	if len(dates) < 2 {
		return "", false
	}

	sort.Strings(dates)
	mid := len(dates) / 2
	var firstHalf, secondHalf float64
	for _, d := range dates[:mid] {
		firstHalf += daily.Get(d)
	}
	for _, d := range dates[mid:] {
		secondHalf += daily.Get(d)
	}

	switch {
	case secondHalf > firstHalf:
		return "📈 Spending trending upward", true
	case secondHalf < firstHalf:
		return "📉 Spending trending downward", true
	default:
		return "", false
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
