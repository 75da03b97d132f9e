package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"deal-checker/internal/domain"
)

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	Err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d: %v", e.StatusCode, e.Err)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

func (e *HTTPStatusError) Unwrap() error {
	return e.Err
}

// Client is a focused OpenAI client for single-prompt chat completions.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	staticKey   string
	getter      Getter
	paramPrefix string

	keyMu  sync.Mutex
	apiKey string

	api openai.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAPIKey sets the key directly. It takes precedence over WithParamStore.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.staticKey = strings.TrimSpace(key)
	}
}

// WithParamStore reads the key from <paramPrefix>/open-ai-token on first use.
func WithParamStore(ps Getter, paramPrefix string) Option {
	return func(c *Client) {
		c.getter = ps
		c.paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	}
}

// NewClient creates a Client. No key is looked up until the first Complete
// call, so routes that never reach the model never need a credential.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.getter != nil && c.paramPrefix == "" {
		return nil, errors.New("openai: parameter prefix must not be empty")
	}

	reqOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if c.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(c.baseURL))
	}
	if c.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(c.httpClient))
	}
	c.api = openai.NewClient(reqOpts...)
	return c, nil
}

// resolveAPIKey returns the static key, or fetches it from SSM. Only a
// successful lookup is cached; a failed one is retried on the next call.
func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	if c.staticKey != "" {
		return c.staticKey, nil
	}
	if c.getter == nil {
		return "", errors.New("openai: no API key configured")
	}

	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	key, err := fetchAPIKeyFromParamStore(ctx, c.getter, c.tokenParameterName())
	if err != nil {
		return "", err
	}
	c.apiKey = key
	return key, nil
}

func (c *Client) tokenParameterName() string {
	return c.paramPrefix + "/open-ai-token"
}

// Complete sends req as a single user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if strings.TrimSpace(req.Model) == "" {
		return domain.Completion{}, errors.New("openai: model must not be empty")
	}

	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return domain.Completion{}, err
	}

	resp, err := c.api.Chat.Completions.New(ctx, chatParams(req), option.WithAPIKey(apiKey))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return domain.Completion{}, &HTTPStatusError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return domain.Completion{}, fmt.Errorf("openai: request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Completion{}, errors.New("openai: no choices in response")
	}

	msg := resp.Choices[0].Message
	out := domain.Completion{Text: msg.Content}
	for _, a := range msg.Annotations {
		out.Annotations = append(out.Annotations, domain.Annotation{
			Type: string(a.Type),
			URLCitation: domain.URLCitation{
				StartIndex: a.URLCitation.StartIndex,
				EndIndex:   a.URLCitation.EndIndex,
				Title:      a.URLCitation.Title,
				URL:        a.URLCitation.URL,
			},
		})
	}
	return out, nil
}

func chatParams(req domain.CompletionRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}

func fetchAPIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("openai: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("openai: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("openai: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("openai: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("openai: API token is empty")
	}
	return tp.Token, nil
}
