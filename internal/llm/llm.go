// package llm wraps the model provider's Responses API.
//
// Every call submits a prompt plus a JSON schema and gets structured JSON
// back with usage counters. A call may continue a previous response by id so
// the provider can reuse prior reasoning context.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when a request does not name one.
	DefaultModel = "gpt-4o-mini"
)

// Usage holds the token counters for a single model call.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	CachedTokens     int `json:"cachedTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Add accumulates another phase's counters into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.CachedTokens += other.CachedTokens
	u.TotalTokens += other.TotalTokens
}

// SumUsage combines per-call usage phases into one set of counters.
func SumUsage(phases []Usage) Usage {
	var total Usage
	for _, phase := range phases {
		total.Add(phase)
	}
	return total
}

// Request describes a structured generation call.
type Request struct {
	Model              string
	Instructions       string
	Input              string
	SchemaName         string
	Schema             map[string]any
	PreviousResponseID string
}

// Response is the provider's reply to a structured generation call.
type Response struct {
	Text       string
	ResponseID string
	Model      string
	Usage      Usage
}

// Caller is the capability the orchestrator and classifier depend on.
type Caller interface {
	Submit(ctx context.Context, req Request) (*Response, error)
}

// Client calls the provider's Responses API over HTTP.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *log.Logger
}

// Opts contains construction options for a Client.
type Opts struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewClient creates an LLM client. A missing API key leaves the client
// unavailable; Submit then fails fast.
func NewClient(opts Opts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		model:      opts.Model,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger.With("component", "llm"),
	}
}

// Available reports whether the client has credentials.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// DefaultModelName returns the model used when requests don't name one.
func (c *Client) DefaultModelName() string {
	return c.model
}

type textFormat struct {
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type responsesRequest struct {
	Model              string  `json:"model"`
	Instructions       string  `json:"instructions,omitempty"`
	Input              string  `json:"input"`
	PreviousResponseID string  `json:"previous_response_id,omitempty"`
	Text               *struct {
		Format textFormat `json:"format"`
	} `json:"text,omitempty"`
}

type outputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outputItem struct {
	Type    string          `json:"type"`
	Content []outputContent `json:"content"`
}

type responsesResponse struct {
	ID     string       `json:"id"`
	Model  string       `json:"model"`
	Output []outputItem `json:"output"`
	Usage  *struct {
		InputTokens        int `json:"input_tokens"`
		InputTokensDetails struct {
			CachedTokens int `json:"cached_tokens"`
		} `json:"input_tokens_details"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Submit sends a structured generation request.
//
// Empty content, schema-less replies, and non-2xx statuses are errors: a
// malformed model reply fails the call rather than guessing intent from
// partial output.
func (c *Client) Submit(ctx context.Context, req Request) (*Response, error) {
	if !c.Available() {
		return nil, fmt.Errorf("%w: model API key not configured", shared.ErrMissingCredentials)
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	payload := responsesRequest{
		Model:              model,
		Instructions:       req.Instructions,
		Input:              req.Input,
		PreviousResponseID: req.PreviousResponseID,
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		payload.Text = &struct {
			Format textFormat `json:"format"`
		}{Format: textFormat{Type: "json_schema", Name: name, Schema: req.Schema, Strict: true}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	// The status line decides the error class. Error bodies are decoded only
	// for the provider's message; a non-JSON body (a proxy error page) still
	// maps to a status-based error rather than a malformed-output one.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure responsesResponse
		json.NewDecoder(resp.Body).Decode(&failure)

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: model provider returned status 401", shared.ErrAuthFailed)
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: model provider returned status 429", shared.ErrRateLimited)
		}
		if failure.Error != nil && failure.Error.Message != "" {
			return nil, fmt.Errorf("%w: %s", shared.ErrGenerationFailed, failure.Error.Message)
		}
		return nil, fmt.Errorf("%w: status %d", shared.ErrGenerationFailed, resp.StatusCode)
	}

	var parsed responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrMalformedOutput, err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrGenerationFailed, parsed.Error.Message)
	}

	text := extractText(parsed.Output)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty model output", shared.ErrMalformedOutput)
	}

	result := &Response{Text: text, ResponseID: parsed.ID, Model: parsed.Model}
	if parsed.Usage != nil {
		result.Usage = Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			CachedTokens:     parsed.Usage.InputTokensDetails.CachedTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}

	c.logger.Debug("model call complete", "model", model,
		"tokens_in", result.Usage.PromptTokens, "tokens_out", result.Usage.CompletionTokens,
		"cached", result.Usage.CachedTokens)

	return result, nil
}

func extractText(output []outputItem) string {
	for _, item := range output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "output_text" && content.Text != "" {
				return content.Text
			}
		}
	}
	return ""
}
