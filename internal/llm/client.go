// Package llm wraps the language-model endpoint behind a single synchronous
// text-in, text-out call. The default provider speaks the hosted-inference
// JSON protocol ({"inputs": ..., "parameters": ...}); a gemini provider is
// available for running the agent against Google models instead.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/genai"
)

// Generation defaults tuned for deterministic function-call output.
const (
	defaultTemperature  = 0.001
	defaultMaxNewTokens = 2048
	defaultStopToken    = "<bot_end>"
)

// The model is prompted to answer with "Call: <expression>"; the prefix is
// stripped before the reply is handed to the parser.
const callPrefix = "Call:"

type generateRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Client calls the configured language-model endpoint. One Generate call per
// classification; no retries, no local timeout beyond the HTTP client's.
type Client struct {
	provider     string
	baseURL      string
	model        string
	httpClient   *http.Client
	geminiClient *genai.Client
	debug        bool
}

// NewClient builds a client for the given provider ("raven" or "gemini").
// Endpoint, model, and generation parameters come from viper under the llm.*
// keys.
func NewClient(ctx context.Context, provider string, debug bool) (*Client, error) {
	c := &Client{
		provider: provider,
		debug:    debug,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	switch provider {
	case "gemini":
		apiKey := viper.GetString("llm.gemini.api_key")
		geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			// Empty APIKey falls back to Application Default Credentials.
			APIKey: apiKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		c.geminiClient = geminiClient
		c.model = viper.GetString("llm.gemini.model")
		if c.model == "" {
			c.model = "gemini-2.0-flash"
		}
	case "raven", "":
		c.provider = "raven"
		c.baseURL = viper.GetString("llm.endpoint")
		if c.baseURL == "" {
			return nil, fmt.Errorf("llm.endpoint is not configured")
		}
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}

	return c, nil
}

// NewClientWithURL builds a raven-protocol client against a fixed URL,
// bypassing viper. Used by tests and one-off tooling.
func NewClientWithURL(baseURL string, debug bool) *Client {
	return &Client{
		provider: "raven",
		baseURL:  baseURL,
		debug:    debug,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Generate sends the prompt and returns the generated text with the call
// prefix stripped. Transport and protocol failures are returned as errors;
// the caller decides whether they are fatal.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	switch c.provider {
	case "gemini":
		return c.generateGemini(ctx, prompt)
	default:
		return c.generateRaven(ctx, prompt)
	}
}

func (c *Client) generateRaven(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Inputs:     prompt,
		Parameters: generationParameters(),
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.debug {
		fmt.Printf("[llm] POST %s (%d prompt chars)\n", c.baseURL, len(prompt))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("model endpoint request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read model response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed []generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal model response: %w", err)
	}
	if len(parsed) == 0 {
		return "", fmt.Errorf("empty response from model endpoint")
	}

	return stripCallPrefix(parsed[0].GeneratedText), nil
}

func (c *Client) generateGemini(ctx context.Context, prompt string) (string, error) {
	if c.geminiClient == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}

	temperature := float32(viper.GetFloat64("llm.parameters.temperature"))
	if temperature == 0 {
		temperature = defaultTemperature
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:   genai.Ptr(temperature),
		StopSequences: []string{stopToken()},
	}

	content := genai.NewContentFromText(prompt, genai.RoleUser)
	resp, err := c.geminiClient.Models.GenerateContent(ctx, c.model, []*genai.Content{content}, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content with gemini: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates from gemini")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.WriteString(part.Text)
		}
	}
	return stripCallPrefix(out.String()), nil
}

func generationParameters() map[string]any {
	temperature := viper.GetFloat64("llm.parameters.temperature")
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := viper.GetInt("llm.parameters.max_new_tokens")
	if maxTokens == 0 {
		maxTokens = defaultMaxNewTokens
	}
	return map[string]any{
		"temperature":      temperature,
		"stop":             []string{stopToken()},
		"do_sample":        false,
		"max_new_tokens":   maxTokens,
		"return_full_text": false,
	}
}

func stopToken() string {
	if s := viper.GetString("llm.parameters.stop"); s != "" {
		return s
	}
	return defaultStopToken
}

func stripCallPrefix(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, callPrefix, ""))
}
