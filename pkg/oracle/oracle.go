// Package oracle provides the client for the external fix-generation
// service, an OpenAI-compatible chat completions API that proposes fix
// instructions for accessibility violations.
//
// The oracle's output is untrusted input: callers re-validate both the
// shape and the safety of every response before acting on it.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/openai/openai-go"

	"github.com/entrhq/remedy/pkg/logging"
	"github.com/entrhq/remedy/pkg/types"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"

	// DefaultContextTokenBudget bounds how much page context is embedded in
	// a single prompt.
	DefaultContextTokenBudget = 1500
)

// Oracle proposes a fix instruction for a violation. Implementations may
// suspend on network I/O; they must not mutate their inputs.
type Oracle interface {
	ProposeFix(ctx context.Context, violation types.Violation, pageCtx types.PageContext) (types.FixInstruction, error)
}

// Client is an Oracle backed by an OpenAI-compatible chat completions API.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	tokenBudget int
	log         *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithModel sets the model used for fix generation.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTokenBudget bounds the page context embedded in each prompt.
func WithTokenBudget(budget int) ClientOption {
	return func(c *Client) {
		c.tokenBudget = budget
	}
}

// NewClient creates an oracle client. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable; an empty base URL falls back to
// OPENAI_BASE_URL, then the OpenAI default.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("oracle API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	c := &Client{
		httpClient:  &http.Client{},
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		tokenBudget: DefaultContextTokenBudget,
		log:         logging.NewLogger("oracle"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			c.baseURL = envBaseURL
		}
	}

	return c, nil
}

// ProposeFix asks the oracle for a fix instruction for the given violation.
// The response is parsed into a FixInstruction; any shape the response
// cannot be coerced into is an error, never a partially filled instruction.
func (c *Client) ProposeFix(ctx context.Context, violation types.Violation, pageCtx types.PageContext) (types.FixInstruction, error) {
	system, user := c.buildPrompt(violation, pageCtx)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		openai.UserMessage(user),
	}

	content, err := c.complete(ctx, messages)
	if err != nil {
		return types.FixInstruction{}, err
	}

	instruction, err := ParseFixInstruction(content, violation.ID)
	if err != nil {
		c.log.Warnf("oracle returned unusable response for violation %s: %v", violation.ID, err)
		return types.FixInstruction{}, err
	}

	c.log.Debugf("oracle proposed %s fix for violation %s", instruction.Type, violation.ID)
	return instruction, nil
}

// complete sends a non-streaming chat completion request and returns the
// assistant message content.
func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	reqBody := map[string]interface{}{
		"model":    c.model,
		"messages": messages,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("API request failed with status %d (failed to read error body: %w)", resp.StatusCode, readErr)
		}
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
