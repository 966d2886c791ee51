package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobsignal/internal/model"
)

const (
	systemPrompt = "You extract technology and role keywords from job titles. " +
		"Answer only with terms from the given lists."

	// Cap on the response body read from the endpoint.
	maxResponseBytes = 1 << 20
)

// titleTermsSchema is sent as the structured-output schema and checked again
// locally before the response is used.
var titleTermsSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"technologies": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"roles": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []string{"technologies", "roles"},
}

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	endpoint   string
	apiKey     string
	modelName  string
	httpClient *http.Client
}

// NewOpenAIProvider creates a provider for baseURL (e.g. https://api.openai.com/v1).
func NewOpenAIProvider(baseURL, apiKey, modelName string, httpClient *http.Client) *OpenAIProvider {
	return &OpenAIProvider{
		endpoint:   strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:     apiKey,
		modelName:  modelName,
		httpClient: httpClient,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model          string         `json:"model"`
	Messages       []message      `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema namedSchema `json:"json_schema"`
}

type namedSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type choice struct {
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type completionResponse struct {
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error,omitempty"`
}

// Complete sends prompt and returns the assistant's JSON reply. Non-200
// responses come back as *model.HTTPError carrying any Retry-After hint.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Model: p.modelName,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: 256,
		ResponseFormat: responseFormat{
			Type:       "json_schema",
			JSONSchema: namedSchema{Name: "title_terms", Strict: true, Schema: titleTermsSchema},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read completion: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		httpErr := &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("completion: %s", strings.TrimSpace(string(raw))),
		}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			httpErr.RetryAfter = time.Duration(secs) * time.Second
		}
		return "", httpErr
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	switch {
	case out.Error != nil:
		return "", fmt.Errorf("completion error (%s): %s", out.Error.Type, out.Error.Message)
	case len(out.Choices) == 0:
		return "", errors.New("completion returned no choices")
	case out.Choices[0].FinishReason == "length":
		return "", errors.New("completion truncated at max_tokens")
	}
	return out.Choices[0].Message.Content, nil
}
