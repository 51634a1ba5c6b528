// Package gemini adapts the Google GenAI SDK to the pipeline's Completer
// interface.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/council-ai/council/internal/ai"
)

const defaultModel = "gemini-2.5-flash"

// contentCaller mirrors the genai Models surface so tests can substitute a
// fake without a network client.
type contentCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client sends prompts to the Gemini API and classifies its failures.
type Client struct {
	models contentCaller
	model  string
}

// New creates a Client for the Gemini API backend.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Client{models: client.Models, model: model}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Complete implements ai.Completer. Provider failures come back as *ai.Error
// with a kind the retry loop can branch on.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.models == nil {
		return "", &ai.Error{Kind: ai.KindFatal, Err: errors.New("gemini client is not initialized")}
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", &ai.Error{Kind: ai.KindFatal, Err: errors.New("prompt must not be empty")}
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", classify(err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", &ai.Error{Kind: ai.KindTransient, Err: errors.New("gemini api returned empty response")}
	}

	return output, nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &ai.Error{Kind: ai.KindRateLimited, Err: err}
		case apiErr.Code >= http.StatusInternalServerError:
			return &ai.Error{Kind: ai.KindTransient, Err: err}
		default:
			return &ai.Error{Kind: ai.KindFatal, Err: err}
		}
	}
	// Network-level failures carry no status code.
	return &ai.Error{Kind: ai.KindTransient, Err: err}
}
