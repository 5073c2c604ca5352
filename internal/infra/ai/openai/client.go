package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/WreckedSky/burpgpt/internal/domain/analysis"
	"github.com/WreckedSky/burpgpt/internal/infra/ai/prompt"
)

const (
	maxTokens    = 2048
	defaultModel = "gpt-4o-mini"
)

// Client implements analysis.Analyzer on top of the OpenAI API
type Client struct {
	*openai.Client
	Model    string
	Template *prompt.Template
}

// Options for NewClient. Zero values fall back to OpenAI defaults.
type Options struct {
	APIKey        string
	Model         string
	BaseURL       string
	MaxPromptSize int
	Template      string
	Timeout       time.Duration
}

func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		Client:   openai.NewClientWithConfig(cfg),
		Model:    opts.Model,
		Template: prompt.New(opts.Template, opts.MaxPromptSize),
	}
}

// IdentifyVulnerabilities sends the rendered exchange upstream and returns the
// request it built plus the raw response body decoded into any. An upstream
// error object is a payload, not a failure; only transport problems return err.
func (c *Client) IdentifyVulnerabilities(ctx context.Context, ex *analysis.Exchange) (analysis.Request, any, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	tmpl := c.Template
	if tmpl == nil {
		tmpl = prompt.New("", 0)
	}
	text, _ := tmpl.Render(ex)
	req := analysis.Request{Model: model, MaxPromptSize: tmpl.MaxPromptSize, Prompt: text}

	var (
		resp any
		err  error
	)
	if isCompletionModel(model) {
		resp, err = c.complete(ctx, model, text)
	} else {
		resp, err = c.chat(ctx, model, text)
	}
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return req, apiErrorPayload(apiErr), nil
		}
		return req, nil, fmt.Errorf("%w: %w", analysis.ErrTransport, err)
	}

	payload, err := toPayload(resp)
	if err != nil {
		return req, nil, fmt.Errorf("%w: %w", analysis.ErrTransport, err)
	}
	return req, payload, nil
}

func (c *Client) chat(ctx context.Context, model, text string) (any, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	return resp, nil
}

func (c *Client) complete(ctx context.Context, model, text string) (any, error) {
	resp, err := c.CreateCompletion(ctx, openai.CompletionRequest{
		Model:     model,
		Prompt:    text,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create completion: %w", err)
	}
	return resp, nil
}

func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") ||
		strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5")
}

// isCompletionModel reports whether the model only serves the legacy /completions endpoint
func isCompletionModel(model string) bool {
	if strings.HasSuffix(model, "-instruct") {
		return true
	}
	for _, p := range []string{"text-", "davinci", "babbage", "curie", "ada"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func apiErrorPayload(e *openai.APIError) map[string]any {
	errObj := map[string]any{"type": e.Type}
	if e.Message != "" {
		errObj["message"] = e.Message
	}
	if e.Code != nil {
		errObj["code"] = fmt.Sprint(e.Code)
	}
	return map[string]any{"error": errObj}
}

// toPayload round-trips a typed SDK response through JSON so the domain
// decoder sees the same shape as the wire.
func toPayload(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
