package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"masarif/internal/dto"
	"masarif/internal/models"

	"go.uber.org/zap"
)

// Price mentions in the supported currencies and languages. Two or more
// mentions in one text route it to multi-expense extraction.
var (
	priceMentionRe  = regexp.MustCompile(`\d+\s*(dh|درهم|mad|€|euro|euros|\$|dollar|dollars)`)
	chainedPricesRe = regexp.MustCompile(`\d+\s*(dh|درهم|mad).*?(w|و|and|et|,).*?\d+\s*(dh|درهم|mad)`)
)

const multiSystemPrompt = `You are an expense extraction engine. Extract ALL expenses and return ONLY valid JSON.

CRITICAL: Each expense must have its OWN correct category based on what it is.

Return this exact structure:
{
  "expenses": [
    {
      "amount": <number>,
      "currency": "MAD",
      "category": "<correct category for THIS item>",
      "description": "<what was bought>",
      "date": "<YYYY-MM-DD>",
      "payment_method": "cash"
    }
  ],
  "language_detected": "<detected language>"
}

Example: "30dh f taxi w 45dh f ghda w 150dh f facture telefon" becomes:
- taxi → transport
- ghda → food
- facture telefon → utilities`

type ExtractorService struct {
	llm    *LLMService
	logger *zap.Logger
}

func NewExtractorService(llm *LLMService, logger *zap.Logger) *ExtractorService {
	return &ExtractorService{
		llm:    llm,
		logger: logger,
	}
}

// ExtractSingle extracts one expense from free text. When expenseType
// names a known category the model is instructed to use it and the
// result is overridden with it regardless of what the model returned.
func (s *ExtractorService) ExtractSingle(ctx context.Context, text, expenseType string, fields []string, language string) (*dto.ExtractResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required: %w", ErrInvalidInput)
	}

	today := time.Now().Format("2006-01-02")
	forced := expenseType != "" && models.ValidCategory(expenseType)

	reply, err := s.llm.CompleteJSON(ctx,
		singleSystemPrompt(expenseType, forced, today),
		singleUserPrompt(text, expenseType, forced, today, fields, language),
	)
	if err != nil {
		return nil, err
	}

	top, err := parseReplyObject(reply)
	if err != nil {
		return nil, err
	}

	// The model is asked for {"expense": {...}} but replies also arrive
	// as a bare expense object or as a one-element "expenses" array.
	dataRaw := json.RawMessage(extractJSONObject(reply))
	if v, ok := top["expense"]; ok {
		dataRaw = v
	}
	if v, ok := top["expenses"]; ok {
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err == nil && len(items) > 0 {
			dataRaw = items[0]
		}
	}

	var record models.ExpenseRecord
	if err := json.Unmarshal(dataRaw, &record); err != nil {
		return nil, fmt.Errorf("parse extracted expense: %v: %w", err, ErrUpstream)
	}
	if forced {
		record.Category = &expenseType
	}

	s.logger.Info("expense extracted",
		zap.Int("text_length", len(text)),
		zap.Bool("forced_category", forced),
	)

	return &dto.ExtractResponse{
		Success:          true,
		Journal:          "expenses",
		ExpenseType:      record.Category,
		Data:             record,
		LanguageDetected: stringField(top, "language_detected"),
	}, nil
}

// ExtractMulti extracts every expense mentioned in one text.
func (s *ExtractorService) ExtractMulti(ctx context.Context, text string, fields []string, language string) (*dto.MultiExtractResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required: %w", ErrInvalidInput)
	}

	today := time.Now().Format("2006-01-02")
	reply, err := s.llm.CompleteJSON(ctx, multiSystemPrompt, multiUserPrompt(text, today, fields, language))
	if err != nil {
		return nil, err
	}

	top, err := parseReplyObject(reply)
	if err != nil {
		return nil, err
	}

	expenses := []models.ExpenseRecord{}
	if v, ok := top["expenses"]; ok {
		if err := json.Unmarshal(v, &expenses); err != nil {
			return nil, fmt.Errorf("parse extracted expenses: %v: %w", err, ErrUpstream)
		}
	}
	if expenses == nil {
		expenses = []models.ExpenseRecord{}
	}

	s.logger.Info("expenses extracted",
		zap.Int("text_length", len(text)),
		zap.Int("count", len(expenses)),
	)

	return &dto.MultiExtractResponse{
		Success:          true,
		Count:            len(expenses),
		Expenses:         expenses,
		LanguageDetected: stringField(top, "language_detected"),
	}, nil
}

// ExtractSmart routes to multi extraction when the text mentions more
// than one price, otherwise to single extraction.
func (s *ExtractorService) ExtractSmart(ctx context.Context, text string, fields []string) (*dto.MultiExtractResponse, error) {
	if hasMultipleExpenses(text) {
		return s.ExtractMulti(ctx, text, fields, "")
	}

	single, err := s.ExtractSingle(ctx, text, "", fields, "")
	if err != nil {
		return nil, err
	}
	return &dto.MultiExtractResponse{
		Success:          true,
		Count:            1,
		Expenses:         []models.ExpenseRecord{single.Data},
		LanguageDetected: single.LanguageDetected,
	}, nil
}

// ExtractBatch runs single extraction over each text. One text failing
// does not abort the batch; its error is recorded in its result slot.
func (s *ExtractorService) ExtractBatch(ctx context.Context, texts []string, fields []string) (*dto.BatchExtractResponse, error) {
	results := make([]dto.BatchResult, 0, len(texts))
	failed := 0

	for _, text := range texts {
		single, err := s.ExtractSingle(ctx, text, "", fields, "")
		if err != nil {
			failed++
			results = append(results, dto.BatchResult{
				Input: text,
				Error: err.Error(),
			})
			continue
		}
		results = append(results, dto.BatchResult{
			Input:   text,
			Success: true,
			Data:    &single.Data,
		})
	}

	s.logger.Info("batch extraction complete",
		zap.Int("total", len(texts)),
		zap.Int("failed", failed),
	)

	return &dto.BatchExtractResponse{
		Success:   true,
		Total:     len(texts),
		Processed: len(texts) - failed,
		Failed:    failed,
		Results:   results,
	}, nil
}

func hasMultipleExpenses(text string) bool {
	lower := strings.ToLower(text)
	if len(priceMentionRe.FindAllString(lower, -1)) > 1 {
		return true
	}
	return chainedPricesRe.MatchString(lower)
}

func singleSystemPrompt(expenseType string, forced bool, today string) string {
	forceClause := ""
	categoryLine := "<detect from text>"
	if forced {
		forceClause = fmt.Sprintf("CRITICAL: The category MUST be %q. Do not change it.\n\n", expenseType)
		categoryLine = expenseType
	}
	return fmt.Sprintf(`You are an expense extraction engine. Extract expense data and return ONLY valid JSON.

%sReturn this exact structure:
{
  "expense": {
    "amount": <number or null>,
    "currency": "<MAD/EUR/USD - detect from text>",
    "category": "%s",
    "description": "<short description>",
    "date": "%s",
    "payment_method": "cash"
  },
  "language_detected": "<English/French/German/Arabic/Moroccan Darija>"
}`, forceClause, categoryLine, today)
}

func singleUserPrompt(text, expenseType string, forced bool, today string, fields []string, language string) string {
	categoryInstruction := "Determine the best category from: " + strings.Join(models.Categories(), ", ")
	if forced {
		categoryInstruction = fmt.Sprintf("IMPORTANT: The user has specified the category as %q. You MUST use %q as the category.", expenseType, expenseType)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Extract expense information from this text:

TEXT: %s

TODAY'S DATE: %s

%s
`, text, today, categoryInstruction)
	writePromptHints(&b, fields, language)
	b.WriteString(`
VOCABULARY:

DAIRJA (Moroccan):
- khlsst/خلصت = paid
- chrit/شريت = bought
- dh/درهم = MAD (Moroccan Dirham)
- f/في = for
- lyouma = today
- ghda = lunch
- ftour = breakfast

DEUTSCH (German):
- bezahlt/gezahlt = paid
- gekauft = bought
- €/Euro = EUR
- für = for
- heute = today
- Mittagessen = lunch
- Frühstück = breakfast
- Taxi/Fahrt = transport
- Essen = food
- Miete = rent
- Einkaufen = shopping

Return the extracted expense data.`)
	return b.String()
}

func multiUserPrompt(text, today string, fields []string, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Extract ALL expenses from this text. Each item separated by "w", "و", "and", "et", or "," is a SEPARATE expense.

TEXT: %s

TODAY'S DATE: %s
`, text, today)
	writePromptHints(&b, fields, language)
	b.WriteString(`
VOCABULARY:

DAIRJA/ARABIC:
- khlsst/خلصت = paid
- chrit/شريت = bought
- dh/درهم = MAD (Moroccan Dirham)
- f/في = for/in
- w/و = and (separates expenses)
- lyouma/ليوما = today
- ghda/غدا = lunch → category: food
- ftour/فطور = breakfast → category: food
- taxi/طاكسي = taxi → category: transport
- tramway/tram = tram → category: transport
- facture/فاتورة = bill → category: utilities
- telefon/تيليفون = phone → category: utilities
- carburant/essence = fuel → category: transport

DEUTSCH (German):
- bezahlt/gezahlt = paid
- gekauft = bought
- €/Euro = EUR
- für = for
- und = and (separates expenses)
- heute = today
- Mittagessen = lunch → food
- Frühstück = breakfast → food
- Taxi/Fahrt/U-Bahn = transport
- Miete = rent
- Rechnung = bill → utilities
- Einkaufen = shopping

CATEGORY RULES:
- taxi, tramway, bus, carburant, essence, parking → "transport"
- ghda, ftour, sandwich, pizza, café, atay, restaurant → "food"
- facture, telephone, telefon, internet, eau, electricité → "utilities"
- loyer → "rent"
- cinema, film, match → "entertainment"
- habits, vetements → "shopping"
- pharmacie, medicament → "health"
- école, formation → "education"
- voyage, hotel → "travel"
- anything else → "other"`)
	return b.String()
}

func writePromptHints(b *strings.Builder, fields []string, language string) {
	if len(fields) > 0 {
		fmt.Fprintf(b, "\nFIELDS TO EXTRACT: %s\n", strings.Join(fields, ", "))
	}
	if language != "" {
		fmt.Fprintf(b, "\nLANGUAGE HINT: the text is in %q.\n", language)
	}
}

// extractJSONObject strips markdown fences and isolates the outermost
// JSON object of a model reply.
func extractJSONObject(reply string) string {
	cleaned := cleanJSONReply(reply)
	if obj, ok := jsonSlice(cleaned, '{', '}'); ok {
		return obj
	}
	return cleaned
}

// parseReplyObject decodes a model reply into its top-level keys.
func parseReplyObject(reply string) (map[string]json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(extractJSONObject(reply)), &top); err != nil {
		return nil, fmt.Errorf("parse model reply: %v: %w", err, ErrUpstream)
	}
	return top, nil
}

// stringField reads a top-level string key, returning nil when absent
// or null.
func stringField(top map[string]json.RawMessage, key string) *string {
	v, ok := top[key]
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil
	}
	return &s
}
