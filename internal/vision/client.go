// Package vision talks to an OpenAI-compatible chat completions endpoint
// with image input and decodes the structured replies.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"alliance-observatory/internal/config"
	"alliance-observatory/internal/constants"
	"alliance-observatory/internal/domain"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = fmt.Errorf("vision backend not configured: %w", domain.ErrDependencyMissing)

// APIError is a non-success reply from the vision endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("vision API error: %d", e.StatusCode)
	}
	return fmt.Sprintf("vision API error: %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return domain.ErrExternalService
}

func (e *APIError) retryable() bool {
	return e.StatusCode == fasthttp.StatusTooManyRequests || e.StatusCode >= 500
}

type RateLimitInfo struct {
	Limit     int           `json:"limit"`
	Remaining int           `json:"remaining"`
	Reset     time.Duration `json:"reset"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type Client struct {
	apiKey      string
	endpoint    string
	model       string
	client      *fasthttp.Client
	maxAttempts int
	backoff     time.Duration
	logger      zerolog.Logger

	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type ClientOption func(*Client)

func WithHTTPClient(hc *fasthttp.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) { c.endpoint = endpoint }
}

func WithRetry(attempts int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
		c.backoff = backoff
	}
}

func NewClient(cfg *config.Config, logger zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:   cfg.VisionAPIKey,
		endpoint: cfg.VisionEndpoint,
		model:    cfg.VisionModel,
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         constants.VisionTimeout,
			WriteTimeout:        constants.VisionTimeout,
			MaxIdleConnDuration: time.Minute,
		},
		maxAttempts: 3,
		backoff:     2 * time.Second,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *Client) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if limit := string(resp.Header.Peek("X-Ratelimit-Limit-Requests")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining-Requests")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset-Requests")); reset != "" {
		if val, err := time.ParseDuration(reset); err == nil {
			c.rateLimit.Reset = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one prompt with one image and returns the message content,
// which the prompts require to be a JSON object.
func (c *Client) Complete(ctx context.Context, prompt string, image []byte) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL(image)}},
			},
		}},
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode vision request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		content, err := c.do(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.retryable() || attempt == c.maxAttempts {
			break
		}
		wait := c.backoff * time.Duration(attempt)
		c.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("vision request failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.VisionTimeout)
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("vision request failed: %w: %w", domain.ErrExternalService, err)
	}

	c.updateRateLimit(resp)

	var parsed chatResponse
	decodeErr := json.Unmarshal(resp.Body(), &parsed)

	if resp.StatusCode() != fasthttp.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode()}
		if decodeErr == nil && parsed.Error != nil {
			apiErr.Message = parsed.Error.Message
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode vision response: %w: %w", domain.ErrExternalService, decodeErr)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("vision response has no choices: %w", domain.ErrExternalService)
	}
	return []byte(parsed.Choices[0].Message.Content), nil
}

func dataURL(image []byte) string {
	mime := http.DetectContentType(image)
	if mime == "application/octet-stream" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}
