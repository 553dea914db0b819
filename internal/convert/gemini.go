// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/docmorph/internal/document"
	"github.com/pdiddy/docmorph/pkg/types"
)

// maxErrorBody caps how much of a non-200 response body is kept for diagnostics.
const maxErrorBody = 4096

// GeminiBackend calls the Gemini generateContent REST endpoint with the
// encoded document and the prompt as the two parts of a single user turn.
type GeminiBackend struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiBackend creates a backend from cfg, filling in the default model,
// base URL and timeout where cfg leaves them empty. The credential is
// captured here; it is not re-read from the environment later.
func NewGeminiBackend(cfg types.GeminiConfig) *GeminiBackend {
	model := cfg.Model
	if model == "" {
		model = types.DefaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = types.DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	return &GeminiBackend{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Model returns the model identifier requests are sent to.
func (g *GeminiBackend) Model() string { return g.model }

// CheckCredential reports ErrCredentialMissing when no API key is configured.
func (g *GeminiBackend) CheckCredential() error {
	if g.apiKey == "" {
		return ErrCredentialMissing
	}
	return nil
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inline_data,omitempty"`
}

type geminiBlob struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate issues exactly one generateContent request and returns the text
// of the first candidate. A response without candidates yields "" so the
// caller can substitute its fallback; transport errors, non-200 statuses and
// undecodable bodies are returned as errors.
func (g *GeminiBackend) Generate(ctx context.Context, payload document.Payload, prompt string) (string, error) {
	if err := g.CheckCredential(); err != nil {
		return "", err
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiBlob{MimeType: payload.MediaType, Data: payload.Data}},
				{Text: prompt},
			},
		}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Gemini API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("Gemini API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var gResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return "", fmt.Errorf("decoding Gemini response: %w", err)
	}

	if len(gResp.Candidates) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, part := range gResp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}
