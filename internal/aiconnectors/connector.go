// Package aiconnectors adapts langchaingo providers to the llm.Model
// transport used by the review and suggestion clients.
package aiconnectors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/cohere"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/smartreview/internal/llm"
)

// Provider represents an AI provider type
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderClaude Provider = "claude"
	ProviderCohere Provider = "cohere"
	ProviderOllama Provider = "ollama"
	// ProviderNone never reaches a model; every request fails as
	// unavailable so reviews come from the template fallback.
	ProviderNone Provider = "none"
)

var providerAliases = map[string]Provider{
	"openai":    ProviderOpenAI,
	"gemini":    ProviderGemini,
	"googleai":  ProviderGemini,
	"google":    ProviderGemini,
	"claude":    ProviderClaude,
	"anthropic": ProviderClaude,
	"cohere":    ProviderCohere,
	"ollama":    ProviderOllama,
	"none":      ProviderNone,
	"":          ProviderNone,
}

// ParseProvider resolves a configured provider name, accepting the vendor
// aliases langchaingo uses.
func ParseProvider(name string) (Provider, error) {
	if p, ok := providerAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unsupported provider: %s", name)
}

// DefaultModel is used when no model is configured.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderGemini:
		return "gemini-2.5-flash"
	case ProviderClaude:
		return "claude-3-5-haiku-latest"
	case ProviderCohere:
		return "command-r"
	case ProviderOllama:
		return "llama3"
	default:
		return ""
	}
}

// ConnectorOptions contains options for creating a connector
type ConnectorOptions struct {
	Provider Provider `json:"provider"`
	APIKey   string   `json:"api_key"`
	BaseURL  string   `json:"base_url,omitempty"`
	Model    string   `json:"model,omitempty"`
}

// Connector represents a connection to an AI provider. It implements
// llm.Model.
type Connector struct {
	provider Provider
	llm      llms.Model
	options  ConnectorOptions
}

// NewConnector creates a new connector for the specified provider
func NewConnector(ctx context.Context, options ConnectorOptions) (*Connector, error) {
	if options.Model == "" {
		options.Model = DefaultModel(options.Provider)
	}

	log.Debug().
		Str("provider", string(options.Provider)).
		Str("model", options.Model).
		Msg("Creating new connector")

	var model llms.Model
	var err error
	switch options.Provider {
	case ProviderOpenAI:
		model, err = createOpenAIModel(options)
	case ProviderGemini:
		model, err = createGeminiModel(ctx, options)
	case ProviderClaude:
		model, err = createAnthropicModel(options)
	case ProviderCohere:
		model, err = createCohereModel(options)
	case ProviderOllama:
		model, err = createOllamaModel(options)
	case ProviderNone:
		model = offlineModel{}
	default:
		return nil, fmt.Errorf("unsupported provider: %s", options.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create model for provider %s: %w", options.Provider, err)
	}

	return &Connector{provider: options.Provider, llm: model, options: options}, nil
}

// NewWithModel wraps an already constructed langchaingo model.
func NewWithModel(provider Provider, modelName string, model llms.Model) *Connector {
	return &Connector{
		provider: provider,
		llm:      model,
		options:  ConnectorOptions{Provider: provider, Model: modelName},
	}
}

func createOpenAIModel(options ConnectorOptions) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(options.Model),
		openai.WithToken(options.APIKey),
	}
	if options.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(options.BaseURL))
	}
	return openai.New(opts...)
}

func createGeminiModel(ctx context.Context, options ConnectorOptions) (llms.Model, error) {
	return googleai.New(ctx,
		googleai.WithAPIKey(options.APIKey),
		googleai.WithDefaultModel(options.Model),
	)
}

func createAnthropicModel(options ConnectorOptions) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithToken(options.APIKey),
		anthropic.WithModel(options.Model),
	}
	if options.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(options.BaseURL))
	}
	return anthropic.New(opts...)
}

func createCohereModel(options ConnectorOptions) (llms.Model, error) {
	opts := []cohere.Option{
		cohere.WithToken(options.APIKey),
		cohere.WithModel(options.Model),
	}
	if options.BaseURL != "" {
		opts = append(opts, cohere.WithBaseURL(options.BaseURL))
	}
	return cohere.New(opts...)
}

func createOllamaModel(options ConnectorOptions) (llms.Model, error) {
	if options.BaseURL == "" {
		options.BaseURL = DefaultOllamaURL
	}
	// Ollama takes temperature and token limits per call, not at construction.
	return ollama.New(
		ollama.WithServerURL(options.BaseURL),
		ollama.WithModel(options.Model),
	)
}

// Generate sends one system+user exchange to the provider. Provider errors
// are classified so the resilient client can decide whether to retry.
func (c *Connector) Generate(ctx context.Context, req llm.Request) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.User))

	callOptions := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		callOptions = append(callOptions, llms.WithMaxTokens(req.MaxTokens))
	}
	// Gemini needs the model on every call.
	if c.provider == ProviderGemini {
		callOptions = append(callOptions, llms.WithModel(c.options.Model))
	}

	resp, err := c.llm.GenerateContent(ctx, messages, callOptions...)
	if err != nil {
		return "", llm.Classify(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", &llm.ProviderError{Kind: llm.KindUnavailable, Err: errors.New("empty response from provider")}
	}
	text := resp.Choices[0].Content
	if strings.TrimSpace(text) == "" {
		return "", &llm.ProviderError{Kind: llm.KindUnavailable, Err: errors.New("empty completion")}
	}
	return text, nil
}

// Name returns provider/model, e.g. "openai/gpt-4o-mini".
func (c *Connector) Name() string {
	if c.options.Model == "" {
		return string(c.provider)
	}
	return string(c.provider) + "/" + c.options.Model
}

// GetProvider returns the provider of this connector
func (c *Connector) GetProvider() Provider {
	return c.provider
}

// Check verifies the provider is reachable with the configured credentials.
// Ollama is checked by listing its models, everything else with a tiny
// completion.
func (c *Connector) Check(ctx context.Context) error {
	switch c.provider {
	case ProviderNone:
		return nil
	case ProviderOllama:
		return ValidateOllamaConnection(ctx, c.options.BaseURL, c.options.APIKey)
	}
	_, err := c.Generate(ctx, llm.Request{User: "Reply with OK.", MaxTokens: 5})
	if err != nil {
		return fmt.Errorf("provider %s check failed: %w", c.provider, err)
	}
	return nil
}

// offlineModel is the langchaingo model behind ProviderNone.
type offlineModel struct{}

var errOffline = errors.New("no AI provider configured")

func (offlineModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, &llm.ProviderError{Kind: llm.KindUnavailable, Err: errOffline}
}

func (offlineModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return "", &llm.ProviderError{Kind: llm.KindUnavailable, Err: errOffline}
}
