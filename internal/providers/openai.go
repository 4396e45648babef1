package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/PadsterH2012/extractor/internal/types"
)

const (
	cloudAName         = "cloud_a"
	cloudADefaultModel = openai.ChatModelGPT4o
)

// cloudABackend speaks the OpenAI chat completions API through the official
// SDK. SDK-level retries are disabled; the shared call path owns retry
// policy.
type cloudABackend struct {
	client openai.Client
	model  string
}

// CloudAConfig configures the OpenAI-compatible backend.
type CloudAConfig struct {
	APIKey  string
	Model   string
	BaseURL string // override for API-compatible gateways
}

// NewCloudA builds the cloud-A provider. An empty API key is rejected here
// rather than surfacing as a 401 mid-pipeline.
func NewCloudA(cfg CloudAConfig, maxConcurrent int, logger *slog.Logger) (*LLM, error) {
	if cfg.APIKey == "" {
		return nil, types.Errorf(types.KindProviderUnauthorized, "",
			"cloud_a provider requires an API key").
			WithHint("set PROVIDER_A_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = cloudADefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	b := &cloudABackend{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
	return newLLM(b, maxConcurrent, logger), nil
}

func (b *cloudABackend) name() string { return cloudAName }

func (b *cloudABackend) complete(ctx context.Context, system, user string, opts Options) (string, error) {
	model := opts.Model
	if model == "" {
		model = b.model
	}

	completion, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(opts.Temperature),
		MaxTokens:   openai.Int(int64(opts.MaxTokens)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &statusError{code: apiErr.StatusCode, body: apiErr.Message}
		}
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func (b *cloudABackend) healthy(ctx context.Context) error {
	_, err := b.client.Models.List(ctx)
	if err != nil {
		return classifyTransport(err)
	}
	return nil
}
