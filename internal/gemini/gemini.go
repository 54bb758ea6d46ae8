// Package gemini wraps the Gemini generative-text API behind Generator.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"mindmate/internal/config"
)

const (
	// DefaultModel matches the model the study notes prompts were tuned on.
	DefaultModel = "gemini-1.5-flash-latest"

	defaultTimeout     = 2 * time.Minute
	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
)

var (
	// ErrMissingAPIKey is returned by NewClient when no key is supplied.
	ErrMissingAPIKey = errors.New("gemini API key not set")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("no content generated")
)

// Options configures a Client. Zero values fall back to package defaults.
type Options struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration

	// ClientOptions are passed to the underlying genai client after the key.
	ClientOptions []option.ClientOption
}

func (o *Options) applyDefaults() {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
}

// Client wraps the Gemini client
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	opts   Options
}

var _ Generator = (*Client)(nil)

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts.applyDefaults()

	clientOpts := append([]option.ClientOption{option.WithAPIKey(opts.APIKey)}, opts.ClientOptions...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(opts.Model)
	model.SetTemperature(0.4)
	model.SetTopK(40)
	model.SetTopP(0.95)
	model.SetMaxOutputTokens(8192)

	return &Client{
		client: client,
		model:  model,
		opts:   opts,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() {
	c.client.Close()
}

// GenerateText sends prompt as a single text part and returns the text of the
// first candidate. Transport errors and empty responses are retried.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	log := config.WithContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	return retry(ctx, c.opts.MaxAttempts, c.opts.RetryDelay, func(attempt int) (string, error) {
		start := time.Now()
		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			err = redact(err, c.opts.APIKey)
			log.WithError(err).Warnf("gemini request failed (attempt %d/%d)", attempt, c.opts.MaxAttempts)
			return "", fmt.Errorf("failed to generate content (attempt %d): %w", attempt, err)
		}

		if u := resp.UsageMetadata; u != nil {
			log.WithField("prompt_tokens", u.PromptTokenCount).
				WithField("candidate_tokens", u.CandidatesTokenCount).
				WithField("total_tokens", u.TotalTokenCount).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				Info("gemini response received")
		}

		text := responseText(resp)
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("%w (attempt %d)", ErrEmptyResponse, attempt)
		}
		return text, nil
	})
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

// redactedError hides the API key in the message of err while keeping it
// unwrappable.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// redact removes the API key from err. Transport errors carry the request URL,
// and the key travels in its query string.
func redact(err error, apiKey string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = stripQuery(urlErr.URL)
	}
	if apiKey != "" && strings.Contains(err.Error(), apiKey) {
		return &redactedError{msg: strings.ReplaceAll(err.Error(), apiKey, "REDACTED"), err: err}
	}
	return err
}

func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// retry calls fn up to attempts times, sleeping delay between failures. It
// stops early once ctx is done and returns the last error seen.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func(attempt int) (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := fn(attempt)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ctx.Err(), lastErr)
		case <-time.After(delay):
		}
	}
	return "", fmt.Errorf("failed to generate text after %d attempts: %w", attempts, lastErr)
}
