package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"
)

// GeminiConfig holds Google Gemini parameters.
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// GeminiClient implements Provider with the Gemini API. The declared schema is
// passed as a native response schema instead of prompt instructions.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGeminiClient constructs a GeminiClient if an API key is configured.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrDisabled
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	temp := cfg.Temperature
	if temp <= 0 {
		temp = 0.2
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: float32(temp),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

// Name identifies the provider in logs.
func (g *GeminiClient) Name() string {
	return "gemini"
}

// Enabled reports whether the client can make outbound calls.
func (g *GeminiClient) Enabled() bool {
	return g != nil && g.client != nil
}

// Generate requests a JSON completion constrained by the prompt schema.
func (g *GeminiClient) Generate(ctx context.Context, prompt Prompt) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temperature),
		MaxOutputTokens:  g.maxTokens,
		ResponseMIMEType: "application/json",
	}
	if system := strings.TrimSpace(prompt.System); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(prompt.Schema.Fields) > 0 {
		config.ResponseSchema = responseSchema(prompt.Schema)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.User), config)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func responseSchema(schema Schema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(schema.Fields))
	for _, f := range schema.Fields {
		props[f.Name] = &genai.Schema{Type: genai.TypeString, Description: f.Description}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   schema.Names(),
	}
}
