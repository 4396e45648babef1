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
	localName         = "local"
	localDefaultURL   = "http://localhost:11434"
	localDefaultModel = "llama3.1"
)

// localBackend speaks the Ollama chat API of a locally hosted model server.
// No key is required; reachability is the only precondition.
type localBackend struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// LocalConfig configures the local model backend.
type LocalConfig struct {
	BaseURL string
	Model   string
}

// NewLocal builds the local provider.
func NewLocal(cfg LocalConfig, maxConcurrent int, logger *slog.Logger) (*LLM, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = localDefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = localDefaultModel
	}
	b := &localBackend{
		httpClient: &http.Client{},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
	}
	return newLLM(b, maxConcurrent, logger), nil
}

func (b *localBackend) name() string { return localName }

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64 page renders for vision models
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  struct {
		Temperature float64 `json:"temperature"`
		NumPredict  int     `json:"num_predict,omitempty"`
	} `json:"options"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error,omitempty"`
}

func (b *localBackend) complete(ctx context.Context, system, user string, opts Options) (string, error) {
	resp, err := b.chat(ctx, []ollamaMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, opts, "json")
	if err != nil {
		return "", err
	}
	return resp, nil
}

// chat posts one non-streaming exchange to /api/chat.
func (b *localBackend) chat(ctx context.Context, messages []ollamaMessage, opts Options, format string) (string, error) {
	model := opts.Model
	if model == "" {
		model = b.model
	}

	payload := ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Format:   format,
	}
	payload.Options.Temperature = opts.Temperature
	payload.Options.NumPredict = opts.MaxTokens

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &statusError{code: resp.StatusCode, body: truncateBody(respBody)}
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("model server error: %s", parsed.Error)
	}
	return parsed.Message.Content, nil
}

func (b *localBackend) healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return types.NewError(types.KindAIUnreachable, "", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyTransport(&statusError{code: resp.StatusCode})
	}
	return nil
}
