package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"masarif/pkg/config"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ChatCompleter is the slice of the OpenAI client the service depends
// on. Tests substitute a deterministic implementation.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type LLMService struct {
	client ChatCompleter
	config *config.OpenAIConfig
	logger *zap.Logger
}

func NewLLMService(client ChatCompleter, cfg *config.OpenAIConfig, logger *zap.Logger) *LLMService {
	return &LLMService{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// NewOpenAIClient builds the production chat client from configuration.
func NewOpenAIClient(cfg *config.OpenAIConfig) *openai.Client {
	if cfg.BaseURL != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		clientCfg.BaseURL = cfg.BaseURL
		return openai.NewClientWithConfig(clientCfg)
	}
	return openai.NewClient(cfg.APIKey)
}

// imageTextMaxTokens bounds plain text extraction replies; structured
// receipt parses use the larger configured limit.
const imageTextMaxTokens = 1000

const imageTextPrompt = `Extract ALL text from this receipt/invoice image.

Include:
- Vendor/store name
- Date
- All items with prices
- Subtotal, tax, total
- Payment method if visible

Return the text exactly as it appears, preserving structure.`

// Phrases that mark a refusal instead of extracted text.
var refusalPhrases = []string{
	"i can't help",
	"i cannot help",
	"cannot process",
	"unable to process",
	"unable to extract",
	"please provide",
}

// CompleteJSON sends a system and user prompt to the text model and
// returns its reply, requested as a single JSON object.
func (s *LLMService) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	return s.complete(ctx, req)
}

// CompleteVision sends a prompt with an attached image to the vision
// model, optionally under a system message. imageURL may be a remote
// URL or a data URL built by DataURL.
func (s *LLMService) CompleteVision(ctx context.Context, system, prompt, imageURL string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = s.config.MaxTokens
	}
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
			},
		},
	})
	req := openai.ChatCompletionRequest{
		Model:       s.config.VisionModel,
		Temperature: 0.1,
		MaxTokens:   maxTokens,
		Messages:    messages,
	}
	return s.complete(ctx, req)
}

// ExtractImageText runs the vision model over an image and returns the
// text it reads. A refusal reply is reported as an upstream failure
// rather than passed on as document text.
func (s *LLMService) ExtractImageText(ctx context.Context, imageURL string) (string, error) {
	text, err := s.CompleteVision(ctx, "", imageTextPrompt, imageURL, imageTextMaxTokens)
	if err != nil {
		return "", err
	}

	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			s.logger.Warn("model returned a refusal instead of extracted text",
				zap.String("reply", text),
			)
			return "", fmt.Errorf("model refused extraction: %s: %w", text, ErrUpstream)
		}
	}

	s.logger.Info("text extracted from image", zap.Int("text_length", len(text)))
	return text, nil
}

func (s *LLMService) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %v: %w", err, ErrUpstream)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in model response: %w", ErrUpstream)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// DataURL encodes raw bytes as a data URL the vision API accepts.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// cleanJSONReply strips the markdown fences models like to wrap around
// JSON payloads.
func cleanJSONReply(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// jsonSlice isolates the first top-level JSON value delimited by open
// and close, tolerating prose around it.
func jsonSlice(content string, open, close byte) (string, bool) {
	start := strings.IndexByte(content, open)
	end := strings.LastIndexByte(content, close)
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return content[start : end+1], true
}
