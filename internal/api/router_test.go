package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"masarif/internal/api/handlers"
	"masarif/internal/service"
	"masarif/pkg/config"

	"github.com/gofiber/fiber/v2"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type stubReply struct {
	content string
	err     error
}

// stubCompleter plays back scripted model replies in order.
type stubCompleter struct {
	script []stubReply
}

func (s *stubCompleter) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if len(s.script) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("unexpected completion call")
	}
	next := s.script[0]
	s.script = s.script[1:]
	if next.err != nil {
		return openai.ChatCompletionResponse{}, next.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: next.content}},
		},
	}, nil
}

// newTestApp assembles the full router over real services with the
// model client replaced by a scripted stub.
func newTestApp(stub *stubCompleter) *fiber.App {
	nop := zap.NewNop()
	llmCfg := &config.OpenAIConfig{Model: "gpt-4o-mini", VisionModel: "gpt-4o", MaxTokens: 2000}
	llm := service.NewLLMService(stub, llmCfg, nop)
	extractor := service.NewExtractorService(llm, nop)
	ocr := service.NewOCRService(llm, extractor, &config.FetchConfig{}, nop)
	receipts := service.NewReceiptService(llm, nop)
	pdf := service.NewPDFService(nop)

	h := Handlers{
		Health:    handlers.NewHealthHandler(),
		Extract:   handlers.NewExtractHandler(extractor, nop),
		OCR:       handlers.NewOCRHandler(ocr, nop),
		Receipt:   handlers.NewReceiptHandler(receipts, pdf, nop),
		PDF:       handlers.NewPDFHandler(pdf, nop),
		Analytics: handlers.NewAnalyticsHandler(service.NewAnalyticsService(nop), nop),
		Export:    handlers.NewExportHandler(service.NewExportService(nop), nop),
	}
	return SetupRouter(h, config.ServerConfig{}, nop)
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds an upload request with an explicit part
// content type, which the handlers inspect.
func multipartRequest(t *testing.T, target, fileName, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, body
}

func TestServiceStatusRoutes(t *testing.T) {
	app := newTestApp(&stubCompleter{})

	t.Run("root status", func(t *testing.T) {
		for _, target := range []string{"/", "/api"} {
			resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, target, nil))
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("GET %s status = %d", target, resp.StatusCode)
			}
			if body["status"] != "ok" || body["name"] != "masarif" {
				t.Errorf("GET %s body = %v", target, body)
			}
			if body["docs"] != "/swagger/index.html" {
				t.Errorf("docs = %v", body["docs"])
			}
		}
	})

	t.Run("health", func(t *testing.T) {
		resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body["status"] != "healthy" || body["service"] != "masarif" {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("info", func(t *testing.T) {
		resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/info", nil))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		capabilities, ok := body["capabilities"].(map[string]any)
		if !ok || len(capabilities) != 8 {
			t.Errorf("capabilities = %v", body["capabilities"])
		}
		endpoints, ok := body["endpoints"].(map[string]any)
		if !ok || len(endpoints) != 15 {
			t.Errorf("endpoints = %v", body["endpoints"])
		}
		languages, _ := body["supported_languages"].([]any)
		found := false
		for _, l := range languages {
			if l == "Moroccan Darija" {
				found = true
			}
		}
		if !found {
			t.Errorf("supported_languages = %v", languages)
		}
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/nope", nil))
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if msg, _ := body["error"].(string); msg == "" {
			t.Errorf("body = %v", body)
		}
	})
}

func TestExtractRoute(t *testing.T) {
	t.Run("extracts one expense", func(t *testing.T) {
		app := newTestApp(&stubCompleter{script: []stubReply{{content: `{
			"expense": {"amount": 15, "currency": "MAD", "category": "transport", "description": "taxi", "date": "2025-03-01"},
			"language_detected": "Moroccan Darija"
		}`}}})
		resp, body := doRequest(t, app, jsonRequest(http.MethodPost, "/expenses/extract", `{"text": "khlsst 15dh f taxi"}`))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
		}
		if body["success"] != true || body["expense_type"] != "transport" {
			t.Errorf("body = %v", body)
		}
		data, _ := body["data"].(map[string]any)
		if data["amount"] != 15.0 {
			t.Errorf("amount = %v", data["amount"])
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		app := newTestApp(&stubCompleter{})
		resp, body := doRequest(t, app, jsonRequest(http.MethodPost, "/expenses/extract", `{"text": `))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body["error"] != "Invalid request body" {
			t.Errorf("error = %v", body["error"])
		}
	})

	t.Run("empty text", func(t *testing.T) {
		app := newTestApp(&stubCompleter{})
		resp, body := doRequest(t, app, jsonRequest(http.MethodPost, "/expenses/extract", `{"text": "   "}`))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
		}
	})

	t.Run("model failure maps to bad gateway", func(t *testing.T) {
		app := newTestApp(&stubCompleter{script: []stubReply{{err: errors.New("rate limited")}}})
		resp, _ := doRequest(t, app, jsonRequest(http.MethodPost, "/expenses/extract", `{"text": "coffee 12 MAD"}`))
		if resp.StatusCode != http.StatusBadGateway {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})
}

func TestOCRUploadRoute(t *testing.T) {
	t.Run("processes an image", func(t *testing.T) {
		app := newTestApp(&stubCompleter{script: []stubReply{
			{content: "CAFE ATLAS\nCoffee 12 MAD\nTotal 12 MAD"},
			{content: `{"expenses": [{"amount": 12, "currency": "MAD", "category": "food", "description": "coffee"}]}`},
		}})
		req := multipartRequest(t, "/expenses/ocr/upload", "receipt.png", "image/png", []byte("fake image bytes"))
		resp, body := doRequest(t, app, req)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
		}
		if body["source"] != "image_upload" || body["count"] != 1.0 {
			t.Errorf("body = %v", body)
		}
		if !strings.Contains(body["extracted_text"].(string), "CAFE ATLAS") {
			t.Errorf("extracted_text = %v", body["extracted_text"])
		}
	})

	t.Run("rejects non-image upload", func(t *testing.T) {
		app := newTestApp(&stubCompleter{})
		req := multipartRequest(t, "/expenses/ocr/upload", "notes.txt", "text/plain", []byte("not an image"))
		resp, body := doRequest(t, app, req)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		want := "Invalid file type. Allowed: image/jpeg, image/png, image/webp, image/gif"
		if body["error"] != want {
			t.Errorf("error = %v", body["error"])
		}
	})

	t.Run("missing file", func(t *testing.T) {
		app := newTestApp(&stubCompleter{})
		resp, body := doRequest(t, app, httptest.NewRequest(http.MethodPost, "/expenses/ocr/upload", nil))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body["error"] != "File is required" {
			t.Errorf("error = %v", body["error"])
		}
	})
}

func TestReceiptParseTextRoute(t *testing.T) {
	t.Run("parses receipt text", func(t *testing.T) {
		app := newTestApp(&stubCompleter{script: []stubReply{{content: `{
			"vendor": {"name": "Marjane"},
			"line_items": [{"description": "milk", "quantity": 2, "unit_price": 6, "total": 12}],
			"totals": {"total": 12, "currency": "MAD"}
		}`}}})
		req := httptest.NewRequest(http.MethodPost, "/expenses/receipt/parse/text?text=MARJANE+milk+x2+12+MAD", nil)
		resp, body := doRequest(t, app, req)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
		}
		if body["success"] != true || body["source"] != "text" {
			t.Errorf("body = %v", body)
		}
		vendor, _ := body["vendor"].(map[string]any)
		if vendor["name"] != "Marjane" {
			t.Errorf("vendor = %v", vendor)
		}
		if body["line_items_count"] != 1.0 {
			t.Errorf("line_items_count = %v", body["line_items_count"])
		}
	})

	t.Run("missing text", func(t *testing.T) {
		app := newTestApp(&stubCompleter{})
		resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodPost, "/expenses/receipt/parse/text", nil))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})
}

func TestPDFRoutes(t *testing.T) {
	app := newTestApp(&stubCompleter{})

	t.Run("info rejects non-pdf content type", func(t *testing.T) {
		req := multipartRequest(t, "/expenses/pdf/info", "scan.png", "image/png", []byte("png bytes"))
		resp, body := doRequest(t, app, req)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body["error"] != "File must be a PDF" {
			t.Errorf("error = %v", body["error"])
		}
	})

	t.Run("info rejects unreadable pdf", func(t *testing.T) {
		req := multipartRequest(t, "/expenses/pdf/info", "broken.pdf", "application/pdf", []byte("not a pdf"))
		resp, _ := doRequest(t, app, req)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})

	t.Run("extract-text rejects unreadable pdf", func(t *testing.T) {
		req := multipartRequest(t, "/expenses/pdf/extract-text", "broken.pdf", "application/pdf", []byte("not a pdf"))
		resp, _ := doRequest(t, app, req)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})
}

func TestAnalyticsRoutes(t *testing.T) {
	app := newTestApp(&stubCompleter{})

	const records = `[
		{"amount": 50, "currency": "MAD", "category": "food", "description": "lunch", "date": "2025-03-01"},
		{"amount": 300, "currency": "MAD", "category": "shopping", "description": "shoes", "date": "2025-03-02"}
	]`

	t.Run("analyze", func(t *testing.T) {
		body := `{"expenses": ` + records + `, "group_by": "category"}`
		resp, got := doRequest(t, app, jsonRequest(http.MethodPost, "/expenses/analytics", body))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body = %v", resp.StatusCode, got)
		}
		if got["success"] != true || got["total_amount"] != 350.0 || got["count"] != 2.0 {
			t.Errorf("body = %v", got)
		}
		if _, ok := got["breakdown"].(map[string]any); !ok {
			t.Errorf("breakdown = %v", got["breakdown"])
		}
	})

	t.Run("analyze malformed body", func(t *testing.T) {
		resp, got := doRequest(t, app, jsonRequest(http.MethodPost, "/expenses/analytics", `{"expenses": }`))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if got["error"] != "Invalid request body" {
			t.Errorf("error = %v", got["error"])
		}
	})

	t.Run("summary carries period label", func(t *testing.T) {
		resp, got := doRequest(t, app, jsonRequest(http.MethodPost, "/expenses/analytics/summary?period=March+2025", records))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		summary, _ := got["summary"].(string)
		if !strings.Contains(summary, "MARCH 2025") {
			t.Errorf("summary = %q", summary)
		}
	})

	t.Run("anomalies", func(t *testing.T) {
		const outliers = `[
			{"amount": 10, "category": "food"},
			{"amount": 10, "category": "food"},
			{"amount": 10, "category": "food"},
			{"amount": 10, "category": "food"},
			{"amount": 100, "category": "shopping"}
		]`
		resp, got := doRequest(t, app, jsonRequest(http.MethodPost, "/expenses/analytics/anomalies?threshold=1.5", outliers))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body = %v", resp.StatusCode, got)
		}
		if got["count"] != 1.0 {
			t.Fatalf("count = %v, body = %v", got["count"], got)
		}
		anomalies, _ := got["anomalies"].([]any)
		first, _ := anomalies[0].(map[string]any)
		if first["amount"] != 100.0 {
			t.Errorf("anomaly = %v", first)
		}
	})
}

func TestExportRoutes(t *testing.T) {
	app := newTestApp(&stubCompleter{})

	const records = `[
		{"amount": 50, "currency": "MAD", "category": "food", "description": "lunch", "date": "2025-03-01"},
		{"amount": 300, "currency": "MAD", "category": "shopping", "description": "shoes", "date": "2025-03-02"}
	]`

	t.Run("csv download", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/expenses/export/csv", records), -1)
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
			t.Errorf("content type = %q", ct)
		}
		if cd := resp.Header.Get("Content-Disposition"); cd != "attachment; filename=expenses.csv" {
			t.Errorf("disposition = %q", cd)
		}
		content, _ := io.ReadAll(resp.Body)
		lines := strings.Split(strings.TrimSpace(string(content)), "\n")
		if len(lines) != 3 {
			t.Fatalf("lines = %d", len(lines))
		}
		if lines[0] != "amount,category,currency,date,description" {
			t.Errorf("header = %q", lines[0])
		}
	})

	t.Run("excel download", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/expenses/export/excel?title=Q1+Report", records), -1)
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if cd := resp.Header.Get("Content-Disposition"); cd != "attachment; filename=Q1_Report.xlsx" {
			t.Errorf("disposition = %q", cd)
		}
		workbook, _ := io.ReadAll(resp.Body)
		if !bytes.HasPrefix(workbook, []byte("PK")) {
			t.Errorf("workbook does not look like a zip, first bytes = %v", workbook[:min(4, len(workbook))])
		}
	})
}
