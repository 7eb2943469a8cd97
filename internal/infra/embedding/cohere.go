// Package embedding provides the Cohere embedding client used to vectorize
// news items, preference texts, and search queries.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/cgast/embird/internal/observability/metrics"
	"github.com/cgast/embird/internal/resilience/circuitbreaker"
	"github.com/cgast/embird/internal/resilience/retry"
	"github.com/cgast/embird/internal/utils/text"
)

// Dimensions is the output dimensionality of the embed-english-v3.0 model.
const Dimensions = 1024

const (
	defaultEndpoint = "https://api.cohere.ai/v1/embed"
	defaultModel    = "embed-english-v3.0"

	// maxInputBytes caps the text sent per request; longer inputs are
	// truncated with an ellipsis marker before the call.
	maxInputBytes = 2048

	maxAttempts    = 3
	attemptBackoff = 2 * time.Second
)

var (
	// ErrNoInput indicates the text was empty after preprocessing.
	ErrNoInput = errors.New("embedding: no input text")

	// ErrUnavailable indicates the provider could not serve the request
	// after all attempts.
	ErrUnavailable = errors.New("embedding: provider unavailable")

	// ErrShape indicates the provider returned a vector with the wrong
	// dimensionality.
	ErrShape = errors.New("embedding: unexpected vector shape")
)

// Input types accepted by the Cohere embed endpoint.
const (
	inputTypeDocument = "search_document"
	inputTypeQuery    = "search_query"
)

// Client is a Cohere embed API client with retry, circuit breaking, and
// request pacing.
type Client struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
	breaker  *circuitbreaker.CircuitBreaker
	limiter  *rate.Limiter
	backoff  time.Duration
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API endpoint. Used by tests.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithBackoff overrides the per-attempt backoff base. Used by tests.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithLimiter overrides the request pacing limiter. Used by tests.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates an embedding client. The limiter paces requests to
// stay under the provider's trial-tier rate limits.
func NewClient(apiKey string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		model:    defaultModel,
		client:   &http.Client{Timeout: 30 * time.Second},
		breaker:  circuitbreaker.New(circuitbreaker.EmbeddingAPIConfig()),
		limiter:  rate.NewLimiter(rate.Every(700*time.Millisecond), 1),
		backoff:  attemptBackoff,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed vectorizes document text (articles, preference descriptions).
func (c *Client) Embed(ctx context.Context, input string) ([]float32, error) {
	return c.embed(ctx, input, inputTypeDocument)
}

// EmbedQuery vectorizes a search query.
func (c *Client) EmbedQuery(ctx context.Context, input string) ([]float32, error) {
	return c.embed(ctx, input, inputTypeQuery)
}

func (c *Client) embed(ctx context.Context, input, inputType string) ([]float32, error) {
	input = preprocess(input)
	if input == "" {
		return nil, ErrNoInput
	}

	var vec []float32
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		vec, lastErr = c.call(ctx, input, inputType)
		metrics.RecordEmbeddingRequest(lastErr == nil, time.Since(start))

		if lastErr == nil {
			return vec, nil
		}
		if errors.Is(lastErr, ErrShape) || !retry.IsRetryable(lastErr) {
			break
		}
		if attempt == maxAttempts {
			break
		}

		// Rate-limit responses back off harder the longer we keep
		// hitting them.
		delay := c.backoff
		if retry.IsRateLimited(lastErr) {
			delay = c.backoff * time.Duration(attempt)
		}
		c.logger.Warn("embedding request failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("error", lastErr))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if errors.Is(lastErr, ErrShape) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) call(ctx context.Context, input, inputType string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, input, inputType)
	})
	if err != nil {
		return nil, err
	}
	return result.([]float32), nil
}

type embedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (c *Client) doRequest(ctx context.Context, input, inputType string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{
		Texts:     []string{input},
		Model:     c.model,
		InputType: inputType,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Embeddings) != 1 {
		return nil, fmt.Errorf("%w: got %d embeddings", ErrShape, len(parsed.Embeddings))
	}
	if len(parsed.Embeddings[0]) != Dimensions {
		return nil, fmt.Errorf("%w: got %d dimensions", ErrShape, len(parsed.Embeddings[0]))
	}
	return parsed.Embeddings[0], nil
}

// preprocess normalizes whitespace and caps the input size.
func preprocess(s string) string {
	return text.TruncateBytes(text.CollapseWhitespace(s), maxInputBytes)
}
