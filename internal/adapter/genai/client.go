// Package genai wraps the generative AI provider behind two operations:
// plain text completion and vision-assisted completion. The wire format is
// isolated here; callers receive raw model text and do their own parsing.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no API key is set. Resolvers treat it
// like any other provider failure and degrade to safe defaults.
var ErrNotConfigured = errors.New("genai: api key not configured")

// Client calls a Gemini-style generateContent endpoint.
type Client struct {
	apiKey     string
	httpClient *http.Client
	textURL    string
	visionURL  string
}

// NewClient creates a generative AI client. The timeout bounds a single
// completion request; model inference is slow, 30s is typical.
func NewClient(apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		textURL:    "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent",
		visionURL:  "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro-vision:generateContent",
	}
}

// Complete sends a text prompt and returns the model's text response.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := request{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.1,
			TopK:            1,
			TopP:            0.8,
			MaxOutputTokens: 300,
		},
	}
	return c.generate(ctx, c.textURL, req)
}

// CompleteWithImage sends a prompt plus image bytes to the vision model.
func (c *Client) CompleteWithImage(ctx context.Context, prompt string, image []byte) (string, error) {
	req := request{
		Contents: []content{{Parts: []part{
			{Text: prompt},
			{InlineData: &inlineData{
				MimeType: "image/jpeg",
				Data:     base64.StdEncoding.EncodeToString(image),
			}},
		}}},
		GenerationConfig: generationConfig{
			Temperature:     0.1,
			TopK:            1,
			TopP:            0.8,
			MaxOutputTokens: 500,
		},
	}
	return c.generate(ctx, c.visionURL, req)
}

func (c *Client) generate(ctx context.Context, endpoint string, reqBody request) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("genai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("genai API error: status %d: %s", resp.StatusCode, body)
	}

	var genResp response
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("genai: empty candidate list in response")
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

// Provider wire types.

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}
