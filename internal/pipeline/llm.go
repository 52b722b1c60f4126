package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"
)

// Default model settings.
const (
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultAnthropicModel = "claude-3-haiku-20240307"
	DefaultMaxTokens      = 1000
)

// GeminiCompleter answers prompts with a Gemini model.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter creates a genai client. With an empty apiKey the client
// falls back to the GOOGLE_* environment (Gemini API or Vertex AI).
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	cfg := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
		cfg.Backend = genai.BackendGeminiAPI
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("NewGeminiCompleter: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

// Complete implements Completer.
func (g *GeminiCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: userPrompt}},
		},
	}

	var cfg *genai.GenerateContentConfig
	if systemPrompt != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("GeminiCompleter.Complete: generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("GeminiCompleter.Complete: empty response from model")
	}
	return text, nil
}

// AnthropicCompleter answers prompts with a Claude model.
type AnthropicCompleter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicCompleter creates an Anthropic client. With an empty apiKey the
// SDK reads ANTHROPIC_API_KEY.
func NewAnthropicCompleter(apiKey, model string) *AnthropicCompleter {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicCompleter{client: anthropic.NewClient(opts...), model: model}
}

// Complete implements Completer.
func (a *AnthropicCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: DefaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("AnthropicCompleter.Complete: create message: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("AnthropicCompleter.Complete: empty response from model")
	}
	return b.String(), nil
}

// CompleterClassifier implements Classifier on top of any Completer.
type CompleterClassifier struct {
	completer Completer
}

// NewCompleterClassifier wraps c.
func NewCompleterClassifier(c Completer) *CompleterClassifier {
	return &CompleterClassifier{completer: c}
}

// NewGeminiClassifier returns a Classifier backed by Gemini.
func NewGeminiClassifier(ctx context.Context, apiKey, model string) (*CompleterClassifier, error) {
	c, err := NewGeminiCompleter(ctx, apiKey, model)
	if err != nil {
		return nil, err
	}
	return NewCompleterClassifier(c), nil
}

// NewAnthropicClassifier returns a Classifier backed by Claude.
func NewAnthropicClassifier(apiKey, model string) *CompleterClassifier {
	return NewCompleterClassifier(NewAnthropicCompleter(apiKey, model))
}

// Classify implements Classifier.
func (c *CompleterClassifier) Classify(ctx context.Context, req Request) (*Response, error) {
	userPrompt, err := buildClassifierUserPrompt(req.Items)
	if err != nil {
		return nil, err
	}

	raw, err := c.completer.Complete(ctx, buildClassifierSystemPrompt(req.Vocabulary), userPrompt)
	if err != nil {
		return nil, fmt.Errorf("Classify: %w", err)
	}

	resp, err := decodeClassifierResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("Classify: %w", err)
	}
	return resp, nil
}
