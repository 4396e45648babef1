package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/PadsterH2012/extractor/internal/types"
)

const (
	cloudBName          = "cloud_b"
	cloudBDefaultURL    = "https://api.anthropic.com"
	cloudBDefaultModel  = "claude-sonnet-4-20250514"
	anthropicAPIVersion = "2023-06-01"
)

// cloudBBackend speaks the Anthropic messages API directly over HTTP. No
// official client is pulled in for a two-endpoint surface.
type cloudBBackend struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// CloudBConfig configures the Anthropic backend.
type CloudBConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewCloudB builds the cloud-B provider.
func NewCloudB(cfg CloudBConfig, maxConcurrent int, logger *slog.Logger) (*LLM, error) {
	if cfg.APIKey == "" {
		return nil, types.Errorf(types.KindProviderUnauthorized, "",
			"cloud_b provider requires an API key").
			WithHint("set PROVIDER_B_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = cloudBDefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = cloudBDefaultURL
	}

	b := &cloudBBackend{
		httpClient: &http.Client{},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}
	return newLLM(b, maxConcurrent, logger), nil
}

func (b *cloudBBackend) name() string { return cloudBName }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (b *cloudBBackend) complete(ctx context.Context, system, user string, opts Options) (string, error) {
	model := opts.Model
	if model == "" {
		model = b.model
	}

	payload := anthropicRequest{
		Model:       model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: user}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", b.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &statusError{code: resp.StatusCode, body: truncateBody(respBody)}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error %s: %s", parsed.Error.Type, parsed.Error.Message)
	}

	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("response has no text content")
}

func (b *cloudBBackend) healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v1/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", b.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyTransport(&statusError{code: resp.StatusCode})
	}
	return nil
}

// truncateBody bounds error bodies carried into log lines.
func truncateBody(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
