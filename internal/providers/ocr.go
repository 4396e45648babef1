package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const (
	ocrDefaultModel = "llava"
	// ocrConfidence is reported for successful recognitions. The chat API
	// exposes no per-token confidence, so a fixed estimate stands in.
	ocrConfidence = 0.8
)

const ocrPrompt = `Transcribe every piece of text visible in this scanned ` +
	`book page. Preserve reading order and line breaks. Output only the ` +
	`transcribed text, no commentary.`

// OCR recognizes page images through a local vision model. It satisfies the
// pdf package's OCRClient without importing it.
type OCR struct {
	local *localBackend
	model string
	gate  *Gate
}

// NewOCR builds an OCR client against the local model server.
func NewOCR(cfg LocalConfig, maxConcurrent int) *OCR {
	if cfg.BaseURL == "" {
		cfg.BaseURL = localDefaultURL
	}
	model := cfg.Model
	if model == "" {
		model = ocrDefaultModel
	}
	return &OCR{
		local: &localBackend{
			httpClient: &http.Client{},
			baseURL:    cfg.BaseURL,
			model:      model,
		},
		model: model,
		gate:  NewGate(maxConcurrent),
	}
}

// RecognizePage extracts text from one rendered page image.
func (o *OCR) RecognizePage(ctx context.Context, image []byte, pageNum int) (string, float64, error) {
	if err := o.gate.Acquire(ctx); err != nil {
		return "", 0, classifyCtx(err)
	}
	defer o.gate.Release()

	opts := Options{
		Model:       o.model,
		Temperature: 0,
		MaxTokens:   DefaultMaxTokens,
	}
	text, err := o.local.chat(ctx, []ollamaMessage{{
		Role:    "user",
		Content: ocrPrompt,
		Images:  []string{base64.StdEncoding.EncodeToString(image)},
	}}, opts, "")
	if err != nil {
		return "", 0, fmt.Errorf("page %d recognition failed: %w", pageNum, classifyTransport(err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0, fmt.Errorf("page %d recognition returned no text", pageNum)
	}
	return text, ocrConfidence, nil
}
