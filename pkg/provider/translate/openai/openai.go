// Package openai provides a translate.Translator backed by an
// OpenAI-compatible chat completion API.
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

	"github.com/intgg/translator/pkg/provider/translate"
)

// languageNames maps the short config language codes to the names used in
// the translation prompt.
var languageNames = map[string]string{
	"cn": "Chinese",
	"en": "English",
	"ja": "Japanese",
	"ko": "Korean",
	"fr": "French",
	"de": "German",
	"es": "Spanish",
	"ru": "Russian",
	"it": "Italian",
}

const systemPrompt = "You are a translation engine for a real-time speech " +
	"interpreter. Translate the user's text from %s to %s. The input is a " +
	"fragment of live speech and may be cut off mid-thought; translate what " +
	"is there without completing it. Reply with the translation only, no " +
	"quotes, no commentary."

// Provider implements translate.Translator using the OpenAI chat API.
type Provider struct {
	client oai.Client
	model  string
}

var _ translate.Translator = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default API base URL, e.g. for an
// OpenAI-compatible local server.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout. Translation sits on the hot
// path of a live interpreter; the default is 5s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New constructs a chat-completion translation provider.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai translate: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai translate: model must not be empty")
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

// Translate implements translate.Translator.
func (p *Provider) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(fmt.Sprintf(systemPrompt, languageName(fromLang), languageName(toLang))),
			oai.UserMessage(text),
		},
		Temperature: param.NewOpt(0.2),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai translate: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai translate: empty choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// languageName resolves a config language code to a prompt-friendly name,
// falling back to the code itself for unmapped languages.
func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
