// Package openai provides a punc.Restorer backed by an OpenAI-compatible
// chat completion API.
//
// Punctuation restoration runs on every recognizer emission over the full
// accumulated transcript, so the prompt pins the model to a pure editing
// task: insert punctuation, change nothing else.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/intgg/translator/pkg/provider/punc"
)

const systemPrompt = "You restore punctuation in raw speech-recognition " +
	"output. Insert sentence-terminal and clause punctuation appropriate to " +
	"the text's language. Do not add, remove, or reorder any words. Reply " +
	"with the punctuated text only."

// Provider implements punc.Restorer using the OpenAI chat API.
type Provider struct {
	client oai.Client
	model  string
}

var _ punc.Restorer = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout. Default 5s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New constructs a chat-completion punctuation provider.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai punc: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai punc: model must not be empty")
	}

	cfg := &config{timeout: 5 * time.Second}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Restore implements punc.Restorer.
func (p *Provider) Restore(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(text),
		},
		Temperature: param.NewOpt(0.0),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai punc: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai punc: empty choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
