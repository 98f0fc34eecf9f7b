// Package generation sends a built prompt to an OpenAI-compatible chat
// completion endpoint and turns the reply into formatted metadata.
//
// Each call makes exactly one request, bounded by the configured timeout.
// Retries are disabled; callers regenerate explicitly.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/formatter"
	"github.com/dpshade/pocket-meta/internal/langdetect"
	"github.com/dpshade/pocket-meta/internal/logger"
	"github.com/dpshade/pocket-meta/internal/models"
	"github.com/dpshade/pocket-meta/internal/prompt"
)

const (
	pingMessage  = "Reply with the single word OK."
	pingExpected = "OK"
	pingMaxToken = 10

	defaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of a non-JSON error body is kept
	maxErrorBody = 512
)

// Client wraps an openai-go client configured from an APIConfig
type Client struct {
	mu         sync.RWMutex
	config     models.APIConfig
	api        openai.Client
	httpClient *http.Client
	now        func() time.Time
	format     *formatter.Formatter
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient routes every request through hc
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock sets the time source used for prompt dates and {{date}}
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
		c.format = formatter.NewWithClock(now)
	}
}

// NewClient creates a client for cfg
func NewClient(cfg models.APIConfig, opts ...Option) *Client {
	c := &Client{
		now:    time.Now,
		format: formatter.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.config = cfg
	c.api = c.newAPI(cfg)
	return c
}

func (c *Client) newAPI(cfg models.APIConfig) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if c.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(c.httpClient))
	}
	return openai.NewClient(opts...)
}

// Config returns a copy of the active configuration
func (c *Client) Config() models.APIConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// UpdateConfig replaces the whole configuration
func (c *Client) UpdateConfig(cfg models.APIConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = cfg
	c.api = c.newAPI(cfg)
}

func (c *Client) snapshot() (models.APIConfig, openai.Client) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config, c.api
}

// Generate runs one request for req. It never returns a Go error: failures
// are reported through the Error code and Message of the result.
func (c *Client) Generate(ctx context.Context, req models.GenerationRequest) models.GenerationResult {
	start := time.Now()
	cfg, api := c.snapshot()

	if strings.TrimSpace(cfg.APIKey) == "" {
		return failure(errors.APIKeyMissingError(), start)
	}

	msgs := prompt.Build(req, c.now())
	log := logger.With("template", req.Template.ID, "file", req.FileName, "language", msgs.Language)
	log.Debug("sending completion request", "model", cfg.Model)

	content, tokens, err := c.complete(ctx, api, cfg, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(msgs.System),
			openai.UserMessage(msgs.User),
		},
		Temperature: openai.Float(cfg.Temperature),
		MaxTokens:   openai.Int(int64(cfg.MaxTokens)),
	})
	if err != nil {
		log.Warn("completion request failed", "error", err)
		return failure(err, start)
	}

	metadata, err := c.format.Format(content, req.Template.YAMLSkeleton)
	if err != nil {
		return failure(err, start)
	}

	result := models.GenerationResult{
		Success:          true,
		Metadata:         metadata,
		TokensUsed:       tokens,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	log.Debug("completion succeeded", "tokens", tokens, "duration_ms", result.ProcessingTimeMs)
	return result
}

// TestConnection sends a tiny ping request and reports whether the endpoint answered
// with the expected acknowledgement
func (c *Client) TestConnection(ctx context.Context) (bool, error) {
	cfg, api := c.snapshot()
	if strings.TrimSpace(cfg.APIKey) == "" {
		return false, errors.APIKeyMissingError()
	}

	content, _, err := c.complete(ctx, api, cfg, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(cfg.Model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(pingMessage)},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(pingMaxToken),
	})
	if err != nil {
		return false, err
	}
	if !strings.Contains(strings.ToUpper(content), pingExpected) {
		return false, errors.InvalidResponseError(fmt.Sprintf("unexpected ping reply: %q", content))
	}
	return true, nil
}

// complete performs the request and returns the trimmed assistant content
// and total token usage
func (c *Client) complete(ctx context.Context, api openai.Client, cfg models.APIConfig, body openai.ChatCompletionNewParams) (content string, tokens int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.InternalError(fmt.Sprintf("completion request panicked: %v", r))
		}
	}()

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var raw *http.Response
	response, err := api.Chat.Completions.New(ctx, body, option.WithResponseInto(&raw))
	if err != nil {
		return "", 0, classify(ctx, err, raw, timeout)
	}
	if response == nil || len(response.Choices) == 0 {
		return "", 0, errors.InvalidResponseError("response contained no choices")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), int(response.Usage.TotalTokens), nil
}

// classify maps a failed request to an error code. raw is the HTTP response
// when one arrived.
func classify(ctx context.Context, err error, raw *http.Response, timeout time.Duration) *errors.AppError {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.APIRequestError(fmt.Sprintf("request timed out after %s", timeout), err).
			WithContext("timeout", true)
	}

	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		body := strings.TrimSpace(apiErr.RawJSON())
		if body == "" {
			body = apiErr.Message
		}
		if body == "" {
			body = readBody(apiErr.Response)
		}
		return errors.APIRequestError(fmt.Sprintf("status %d: %s", apiErr.StatusCode, body), err).
			WithContext("status", apiErr.StatusCode)
	}

	if raw != nil && raw.StatusCode >= 300 {
		return errors.APIRequestError(fmt.Sprintf("status %d: %s", raw.StatusCode, readBody(raw)), err).
			WithContext("status", raw.StatusCode)
	}

	// A 2xx reply that cannot be decoded is a protocol error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if raw != nil || stderrors.As(err, &syntaxErr) || stderrors.As(err, &typeErr) {
		return errors.InvalidResponseError(fmt.Sprintf("malformed completion payload: %v", err)).
			WithDetails(err.Error())
	}

	return errors.APIRequestError(err.Error(), err)
}

// readBody returns the start of a response body and puts it back for later
// readers
func readBody(res *http.Response) string {
	if res == nil || res.Body == nil {
		return ""
	}
	content, err := io.ReadAll(res.Body)
	res.Body.Close()
	res.Body = io.NopCloser(bytes.NewReader(content))
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(string(content))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return text
}

func failure(err error, start time.Time) models.GenerationResult {
	appErr := errors.GetAppError(err)
	return models.GenerationResult{
		Success:          false,
		Error:            string(appErr.Code),
		Message:          appErr.Message,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
}

// EstimateTokens approximates token usage: two units per CJK character and
// one per whitespace-separated word of everything else
func EstimateTokens(text string) int {
	cjk := 0
	rest := strings.Map(func(r rune) rune {
		if langdetect.IsCJK(r) {
			cjk++
			return ' '
		}
		return r
	}, text)
	return cjk*2 + len(strings.Fields(rest))
}

// EstimateTokens is a method alias for callers holding a Client
func (c *Client) EstimateTokens(text string) int {
	return EstimateTokens(text)
}
