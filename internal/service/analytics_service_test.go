package service

import (
	"strings"
	"testing"

	"masarif/internal/models"

	"go.uber.org/zap"
)

func rec(amount float64, category, payment, date string) models.ExpenseRecord {
	r := models.ExpenseRecord{Amount: &amount}
	if category != "" {
		r.Category = &category
	}
	if payment != "" {
		r.PaymentMethod = &payment
	}
	if date != "" {
		r.Date = &date
	}
	return r
}

func amounts(values ...float64) []models.ExpenseRecord {
	records := make([]models.ExpenseRecord, len(values))
	for i, v := range values {
		v := v
		records[i] = models.ExpenseRecord{Amount: &v}
	}
	return records
}

func newAnalytics() *AnalyticsService {
	return NewAnalyticsService(zap.NewNop())
}

func TestAnalyzeTotals(t *testing.T) {
	svc := newAnalytics()

	t.Run("total equals sum of amounts", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(50, "food", "cash", ""),
			rec(30, "transport", "card", ""),
			rec(100, "food", "cash", ""),
		}
		res := svc.Analyze(records, "", "")
		if res.TotalAmount != 180 {
			t.Errorf("total = %v, want 180", res.TotalAmount)
		}
		if res.Count != 3 {
			t.Errorf("count = %d, want 3", res.Count)
		}
		if res.Currency != "MAD" {
			t.Errorf("currency = %q, want MAD", res.Currency)
		}
	})

	t.Run("total rounds to two decimals", func(t *testing.T) {
		res := svc.Analyze(amounts(10.005, 20.005), "", "")
		if res.TotalAmount != 30.01 {
			t.Errorf("total = %v, want 30.01", res.TotalAmount)
		}
	})

	t.Run("missing amounts count as zero", func(t *testing.T) {
		records := []models.ExpenseRecord{
			{},
			rec(25, "", "", ""),
		}
		res := svc.Analyze(records, "", "")
		if res.TotalAmount != 25 {
			t.Errorf("total = %v, want 25", res.TotalAmount)
		}
		if res.Count != 2 {
			t.Errorf("count = %d, want 2", res.Count)
		}
	})

	t.Run("breakdown sums to total for any grouping", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(50, "food", "cash", "2025-01-01"),
			rec(30, "transport", "card", "2025-01-02"),
			rec(100, "food", "", ""),
		}
		for _, groupBy := range []string{"category", "payment_method", "date", "currency"} {
			res := svc.Analyze(records, groupBy, "")
			var sum float64
			for _, key := range res.Breakdown.Keys() {
				entry, _ := res.Breakdown.Get(key)
				sum += entry.Amount
			}
			if sum != res.TotalAmount {
				t.Errorf("group_by %s: breakdown sum %v != total %v", groupBy, sum, res.TotalAmount)
			}
		}
	})
}

func TestAnalyzeEmpty(t *testing.T) {
	res := newAnalytics().Analyze(nil, "", "")
	if !res.Success {
		t.Error("success should be true for empty input")
	}
	if res.TotalAmount != 0 || res.Count != 0 {
		t.Errorf("total = %v count = %d, want zeros", res.TotalAmount, res.Count)
	}
	if res.Breakdown.Len() != 0 {
		t.Errorf("breakdown has %d keys, want 0", res.Breakdown.Len())
	}
	if len(res.Insights) != 1 {
		t.Fatalf("insights = %v, want exactly one", res.Insights)
	}
	if res.Insights[0] != "No expenses to analyze" {
		t.Errorf("insight = %q", res.Insights[0])
	}
	if res.PaymentSummary != nil || res.DailyTotals != nil {
		t.Error("payment and daily mappings should be omitted for empty input")
	}
}

func TestAnalyzeGrouping(t *testing.T) {
	svc := newAnalytics()

	t.Run("missing group value falls back to other", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(10, "", "", ""),
			rec(20, "food", "", ""),
		}
		res := svc.Analyze(records, "category", "")
		entry, ok := res.Breakdown.Get("other")
		if !ok {
			t.Fatalf("breakdown keys = %v, want other present", res.Breakdown.Keys())
		}
		if entry.Amount != 10 || entry.Count != 1 {
			t.Errorf("other = %+v, want amount 10 count 1", entry)
		}
	})

	t.Run("keys keep first-seen order", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(5, "zoo", "", ""),
			rec(5, "apple", "", ""),
			rec(5, "zoo", "", ""),
		}
		res := svc.Analyze(records, "category", "")
		keys := res.Breakdown.Keys()
		if len(keys) != 2 || keys[0] != "zoo" || keys[1] != "apple" {
			t.Errorf("keys = %v, want [zoo apple]", keys)
		}
	})

	t.Run("payment and daily sentinels", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(10, "food", "", ""),
			rec(20, "food", "card", "2025-02-01"),
		}
		res := svc.Analyze(records, "", "")
		if got := res.PaymentSummary.Get("unknown"); got != 10 {
			t.Errorf("payment unknown = %v, want 10", got)
		}
		if got := res.DailyTotals.Get("unknown"); got != 10 {
			t.Errorf("daily unknown = %v, want 10", got)
		}
		if got := res.DailyTotals.Get("2025-02-01"); got != 20 {
			t.Errorf("daily 2025-02-01 = %v, want 20", got)
		}
	})
}

func TestAnalyzeInsights(t *testing.T) {
	svc := newAnalytics()

	t.Run("fixed order and formats", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(60, "food", "cash", ""),
			rec(40, "transport", "card", ""),
		}
		res := svc.Analyze(records, "", "")
		want := []string{
			"Highest spending: food (60.00 MAD)",
			"Most used payment: cash (60.00 MAD)",
			"Average expense: 50.00 MAD",
		}
		if len(res.Insights) != len(want) {
			t.Fatalf("insights = %v, want %v", res.Insights, want)
		}
		for i := range want {
			if res.Insights[i] != want[i] {
				t.Errorf("insight[%d] = %q, want %q", i, res.Insights[i], want[i])
			}
		}
	})

	t.Run("ties go to first-seen group", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(50, "food", "cash", ""),
			rec(50, "transport", "card", ""),
		}
		res := svc.Analyze(records, "", "")
		if res.Insights[0] != "Highest spending: food (50.00 MAD)" {
			t.Errorf("insight = %q, want first-seen food", res.Insights[0])
		}
		if res.Insights[1] != "Most used payment: cash (50.00 MAD)" {
			t.Errorf("insight = %q, want first-seen cash", res.Insights[1])
		}
	})

	t.Run("most used payment is by amount", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(10, "", "cash", ""),
			rec(15, "", "cash", ""),
			rec(100, "", "card", ""),
		}
		res := svc.Analyze(records, "", "")
		if res.Insights[1] != "Most used payment: card (100.00 MAD)" {
			t.Errorf("insight = %q, want card", res.Insights[1])
		}
	})
}

func TestTrendInsight(t *testing.T) {
	svc := newAnalytics()

	hasTrend := func(res []string) (string, bool) {
		for _, s := range res {
			if strings.Contains(s, "trending") {
				return s, true
			}
		}
		return "", false
	}

	t.Run("upward", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(10, "", "", "2025-01-01"),
			rec(90, "", "", "2025-01-02"),
		}
		res := svc.Analyze(records, "", "")
		trend, ok := hasTrend(res.Insights)
		if !ok {
			t.Fatalf("insights = %v, want a trend", res.Insights)
		}
		if trend != "📈 Spending trending upward" {
			t.Errorf("trend = %q", trend)
		}
	})

	t.Run("downward", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(90, "", "", "2025-01-01"),
			rec(10, "", "", "2025-01-02"),
		}
		res := svc.Analyze(records, "", "")
		trend, ok := hasTrend(res.Insights)
		if !ok {
			t.Fatalf("insights = %v, want a trend", res.Insights)
		}
		if trend != "📉 Spending trending downward" {
			t.Errorf("trend = %q", trend)
		}
	})

	t.Run("no trend when halves are equal", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(50, "", "", "2025-01-01"),
			rec(50, "", "", "2025-01-02"),
		}
		res := svc.Analyze(records, "", "")
		if trend, ok := hasTrend(res.Insights); ok {
			t.Errorf("unexpected trend %q for equal halves", trend)
		}
	})

	t.Run("no trend for single date", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(10, "", "", "2025-01-01"),
			rec(90, "", "", "2025-01-01"),
		}
		res := svc.Analyze(records, "", "")
		if trend, ok := hasTrend(res.Insights); ok {
			t.Errorf("unexpected trend %q for one distinct date", trend)
		}
	})

	t.Run("undated records are ignored", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(1000, "", "", ""),
			rec(10, "", "", "2025-01-01"),
			rec(90, "", "", "2025-01-02"),
		}
		res := svc.Analyze(records, "", "")
		trend, ok := hasTrend(res.Insights)
		if !ok || trend != "📈 Spending trending upward" {
			t.Errorf("trend = %q ok = %v, want upward", trend, ok)
		}
	})

	t.Run("odd date count gives extra date to second half", func(t *testing.T) {
		// halves: [01] vs [02, 03] -> 50 vs 30+30
		records := []models.ExpenseRecord{
			rec(50, "", "", "2025-01-01"),
			rec(30, "", "", "2025-01-02"),
			rec(30, "", "", "2025-01-03"),
		}
		res := svc.Analyze(records, "", "")
		trend, ok := hasTrend(res.Insights)
		if !ok || trend != "📈 Spending trending upward" {
			t.Errorf("trend = %q ok = %v, want upward", trend, ok)
		}
	})
}

func TestDetectAnomalies(t *testing.T) {
	svc := newAnalytics()

	t.Run("fewer than three records", func(t *testing.T) {
		got := svc.DetectAnomalies(amounts(10, 1000), DefaultAnomalyThreshold)
		if len(got) != 0 {
			t.Errorf("anomalies = %v, want none", got)
		}
	})

	t.Run("zero variance", func(t *testing.T) {
		got := svc.DetectAnomalies(amounts(10, 10, 10), DefaultAnomalyThreshold)
		if len(got) != 0 {
			t.Errorf("anomalies = %v, want none", got)
		}
	})

	t.Run("single outlier flagged high", func(t *testing.T) {
		got := svc.DetectAnomalies(amounts(10, 11, 10, 12, 11, 10, 500), DefaultAnomalyThreshold)
		if len(got) != 1 {
			t.Fatalf("anomalies = %d, want 1", len(got))
		}
		a := got[0]
		if a.Expense.AmountOrZero() != 500 {
			t.Errorf("flagged amount = %v, want 500", a.Expense.AmountOrZero())
		}
		if a.Deviation != "high" {
			t.Errorf("deviation = %q, want high", a.Deviation)
		}
		if a.ZScore <= DefaultAnomalyThreshold {
			t.Errorf("z score = %v, want > %v", a.ZScore, DefaultAnomalyThreshold)
		}
	})

	t.Run("z equal to threshold is not flagged", func(t *testing.T) {
		// mean 5, stddev 5, every z exactly 1
		records := amounts(0, 0, 0, 0, 10, 10, 10, 10)
		if got := svc.DetectAnomalies(records, 1.0); len(got) != 0 {
			t.Errorf("anomalies = %v, want none at the boundary", got)
		}
		if got := svc.DetectAnomalies(records, 0.9); len(got) != 8 {
			t.Errorf("anomalies = %d, want all 8 just under the boundary", len(got))
		}
	})

	t.Run("low and high in input order", func(t *testing.T) {
		records := amounts(10, 10, 10, 10, 10, -400, 10, 10, 10, 10, 10, 500)
		got := svc.DetectAnomalies(records, 2.0)
		if len(got) != 2 {
			t.Fatalf("anomalies = %d, want 2", len(got))
		}
		if got[0].Expense.AmountOrZero() != -400 || got[0].Deviation != "low" {
			t.Errorf("first = %v/%s, want -400/low", got[0].Expense.AmountOrZero(), got[0].Deviation)
		}
		if got[1].Expense.AmountOrZero() != 500 || got[1].Deviation != "high" {
			t.Errorf("second = %v/%s, want 500/high", got[1].Expense.AmountOrZero(), got[1].Deviation)
		}
	})
}

func TestFormatSummary(t *testing.T) {
	svc := newAnalytics()

	t.Run("full layout", func(t *testing.T) {
		records := []models.ExpenseRecord{
			rec(60, "food", "cash", ""),
			rec(40, "transport", "card", ""),
		}
		got := svc.FormatSummary(records, "this month")
		want := strings.Join([]string{
			"📊 EXPENSE SUMMARY - THIS MONTH",
			strings.Repeat("=", 40),
			"",
			"Total Spent: 100.00 MAD",
			"Number of Expenses: 2",
			"",
			"📁 BY CATEGORY:",
			"  • food: 60.00 MAD (60.0%)",
			"  • transport: 40.00 MAD (40.0%)",
			"",
			"💡 INSIGHTS:",
			"  • Highest spending: food (60.00 MAD)",
			"  • Most used payment: cash (60.00 MAD)",
			"  • Average expense: 50.00 MAD",
		}, "\n")
		if got != want {
			t.Errorf("summary =\n%s\nwant\n%s", got, want)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		got := svc.FormatSummary(nil, "")
		want := strings.Join([]string{
			"📊 EXPENSE SUMMARY - THIS PERIOD",
			strings.Repeat("=", 40),
			"",
			"Total Spent: 0.00 MAD",
			"Number of Expenses: 0",
			"",
			"📁 BY CATEGORY:",
			"",
			"💡 INSIGHTS:",
			"  • No expenses to analyze",
		}, "\n")
		if got != want {
			t.Errorf("summary =\n%s\nwant\n%s", got, want)
		}
	})
}
