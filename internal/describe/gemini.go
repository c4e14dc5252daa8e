// Package describe writes marketing copy for a listing using the Gemini
// text generation API. It never fails: any problem yields a stock sentence.
package describe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rishabhv97/kiwisqft/internal/config"
)

const (
	FallbackNoKey    = "Beautiful property in a great location. Contact for more details."
	FallbackEmpty    = "Contact us for more details about this wonderful property."
	FallbackOnError  = "A stunning property located in a prime area. Perfect for families or professionals looking for a new home."
	maxResponseBytes = 1 << 20
)

// Request is what the generator is told about the property.
type Request struct {
	Title        string   `json:"title"`
	PropertyType string   `json:"type"`
	Location     string   `json:"location"`
	Features     []string `json:"features"`
}

// Result is the generated text. Generated is false when a fallback was used.
type Result struct {
	Text      string `json:"description"`
	Generated bool   `json:"generated"`
}

// IDescriber produces a listing description.
type IDescriber interface {
	Describe(ctx context.Context, req Request) Result
}

type geminiDescriber struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiDescriber creates a describer from config. Without an API key it
// always returns FallbackNoKey.
func NewGeminiDescriber(cfg *config.Config) IDescriber {
	timeout := cfg.GeminiTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &geminiDescriber{
		apiKey:     cfg.GeminiAPIKey,
		model:      cfg.GeminiModel,
		baseURL:    strings.TrimRight(cfg.GeminiBaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Prompt renders the instruction sent to the model.
func Prompt(req Request) string {
	return fmt.Sprintf(`Write a compelling, professional, and attractive real estate listing description (approx 80-100 words) for a property with the following details:
Title: %s
Type: %s
Location: %s
Key Features: %s.

Tone: Sophisticated, inviting, and trustworthy. Focus on the lifestyle and benefits.
Do not include placeholders.`, req.Title, req.PropertyType, req.Location, strings.Join(req.Features, ", "))
}

func (d *geminiDescriber) Describe(ctx context.Context, req Request) Result {
	if d.apiKey == "" {
		slog.Warn("Gemini API key is missing, using stock description")
		return Result{Text: FallbackNoKey}
	}
	text, err := d.generate(ctx, Prompt(req))
	if err != nil {
		slog.Error("description generation failed", "error", err)
		return Result{Text: FallbackOnError}
	}
	if text == "" {
		return Result{Text: FallbackEmpty}
	}
	return Result{Text: text, Generated: true}
}

func (d *geminiDescriber) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", d.baseURL, d.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", d.apiKey)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to contact Gemini: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read Gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to parse Gemini response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}
