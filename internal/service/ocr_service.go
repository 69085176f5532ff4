package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"masarif/internal/dto"
	"masarif/internal/models"
	"masarif/pkg/config"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	// maxWebpageChars caps the scraped text handed to the model.
	maxWebpageChars = 8000
	// displayTextLimit caps the extracted_text echoed in webpage responses.
	displayTextLimit = 1500

	fetchUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Elements removed before reading a page's visible text.
const strippedSelectors = "script, style, head, meta, link, noscript, header, footer, nav"

var (
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
	multiSpaceRe   = regexp.MustCompile(` {2,}`)
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff"}

const webpagePrompt = `You are an expense extraction engine.
Extract ALL prices, fees, tickets, subscriptions, fares, or any monetary amounts from the text.
Look for prices in various formats: 10dh, 10 MAD, 10€, $10, 10 dirhams, etc.

Return ONLY valid JSON with this structure:
{
  "expenses": [
    {"amount": <number>, "currency": "<code like MAD, EUR, USD>", "category": "<category>", "description": "<what it is>"}
  ],
  "language_detected": "<language>"
}

Categories: transport, food, utilities, rent, entertainment, shopping, health, education, travel, other
If no prices found, return {"expenses": [], "language_detected": "<language>"}`

// OCRService turns receipt images and webpages into expense records by
// chaining vision text extraction with the multi-expense extractor.
type OCRService struct {
	llm        *LLMService
	extractor  *ExtractorService
	httpClient *http.Client
	fetchCfg   *config.FetchConfig
	logger     *zap.Logger
}

func NewOCRService(llm *LLMService, extractor *ExtractorService, fetchCfg *config.FetchConfig, logger *zap.Logger) *OCRService {
	return &OCRService{
		llm:        llm,
		extractor:  extractor,
		httpClient: &http.Client{Timeout: fetchCfg.Timeout},
		fetchCfg:   fetchCfg,
		logger:     logger,
	}
}

// ProcessImage runs the full upload pipeline: image bytes to text via
// the vision model, then text to structured expenses.
func (s *OCRService) ProcessImage(ctx context.Context, data []byte, mimeType string, fields []string) (*dto.OCRResponse, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image upload: %w", ErrInvalidInput)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	text, err := s.llm.ExtractImageText(ctx, DataURL(mimeType, data))
	if err != nil {
		return nil, err
	}
	text = sanitizeUTF8(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text extracted from image: %w", ErrUpstream)
	}

	multi, err := s.extractor.ExtractMulti(ctx, text, fields, "")
	if err != nil {
		return nil, err
	}

	s.logger.Info("receipt image processed",
		zap.Int("image_bytes", len(data)),
		zap.Int("expenses", multi.Count),
	)

	return &dto.OCRResponse{
		Success:       true,
		Source:        "image_upload",
		ExtractedText: text,
		Expenses:      multi.Expenses,
		Count:         multi.Count,
	}, nil
}

// ProcessURL handles both direct image links and ordinary webpages.
// Image links go to the vision model as-is; webpages are fetched,
// stripped to visible text and scanned for prices.
func (s *OCRService) ProcessURL(ctx context.Context, rawURL string, fields []string) (*dto.OCRResponse, error) {
	if !isValidURL(rawURL) {
		return nil, fmt.Errorf("invalid URL format, must start with http:// or https://: %w", ErrInvalidInput)
	}

	if isImageURL(rawURL) {
		text, err := s.llm.ExtractImageText(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		text = sanitizeUTF8(text)
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("no text extracted from image: %w", ErrUpstream)
		}

		multi, err := s.extractor.ExtractMulti(ctx, text, fields, "")
		if err != nil {
			return nil, err
		}
		return &dto.OCRResponse{
			Success:       true,
			Source:        "image_url",
			ExtractedText: text,
			Expenses:      multi.Expenses,
			Count:         multi.Count,
		}, nil
	}

	pageText, err := s.fetchWebpageText(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	reply, err := s.llm.CompleteJSON(ctx, webpagePrompt,
		"Extract all prices and expenses from this webpage content:\n\n"+pageText)
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
			return nil, fmt.Errorf("parse webpage expenses: %v: %w", err, ErrUpstream)
		}
	}
	if expenses == nil {
		expenses = []models.ExpenseRecord{}
	}

	display := pageText
	if truncated := truncateChars(display, displayTextLimit); truncated != display {
		display = truncated + "..."
	}

	s.logger.Info("webpage processed",
		zap.String("url", rawURL),
		zap.Int("text_length", len(pageText)),
		zap.Int("expenses", len(expenses)),
	)

	return &dto.OCRResponse{
		Success:          true,
		Source:           "webpage",
		URL:              rawURL,
		ExtractedText:    display,
		Expenses:         expenses,
		Count:            len(expenses),
		LanguageDetected: stringField(top, "language_detected"),
	}, nil
}

func (s *OCRService) fetchWebpageText(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build webpage request: %v: %w", err, ErrInvalidInput)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5,fr;q=0.3,ar;q=0.2")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch webpage: %v: %w", err, ErrUpstream)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("webpage returned status %d: %w", resp.StatusCode, ErrUpstream)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, s.fetchCfg.MaxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("parse webpage: %v: %w", err, ErrUpstream)
	}
	doc.Find(strippedSelectors).Remove()

	text := strings.ReplaceAll(doc.Text(), "\t", " ")
	text = multiNewlineRe.ReplaceAllString(text, "\n\n")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(sanitizeUTF8(text))

	return truncateChars(text, maxWebpageChars), nil
}

func isValidURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// isImageURL reports whether the URL path ends in a known image
// extension, ignoring any query string.
func isImageURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if i := strings.IndexByte(lower, '?'); i != -1 {
		lower = lower[:i]
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
